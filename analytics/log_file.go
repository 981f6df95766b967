package analytics

import (
	"go.uber.org/zap"
)

type logFileSink struct {
	log *zap.Logger
}

func (s *logFileSink) write(rec Record) error {
	s.log.Info("command",
		zap.Time("time", rec.Time),
		zap.String("command", rec.Command),
		zap.String("entityId", rec.EntityId),
		zap.Any("detail", rec.Detail),
		zap.Bool("success", rec.Success),
		zap.String("error", rec.Error),
	)
	return nil
}

func (s *logFileSink) close() error {
	return s.log.Sync()
}

// NewLogFileDataCollector appends one JSON line per command to fileName.
func NewLogFileDataCollector(fileName string) (CommandCollector, error) {
	cfg := zap.NewProductionConfig()
	cfg.OutputPaths = []string{fileName}
	cfg.ErrorOutputPaths = []string{"stderr"}
	cfg.DisableCaller = true
	cfg.DisableStacktrace = true
	cfg.Sampling = nil
	l, err := cfg.Build()
	if err != nil {
		return nil, err
	}
	return newAsyncCollector("log-file-collector", &logFileSink{log: l}), nil
}
