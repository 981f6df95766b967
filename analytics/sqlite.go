package analytics

import (
	"context"
	"database/sql"
	"encoding/json"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

const createCommandLog = `CREATE TABLE IF NOT EXISTS command_log(
	ts INTEGER,
	command TEXT,
	entity_id TEXT,
	detail TEXT,
	success INTEGER,
	error TEXT
);
CREATE INDEX IF NOT EXISTS idx_command_log_entity ON command_log(entity_id);`

type sqliteSink struct {
	db *sql.DB
}

func (s *sqliteSink) write(rec Record) error {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	detail, err := json.Marshal(rec.Detail)
	if err != nil {
		return err
	}
	success := 0
	if rec.Success {
		success = 1
	}
	_, err = s.db.ExecContext(ctx, `INSERT INTO command_log(ts, command, entity_id, detail, success, error) VALUES(?,?,?,?,?,?)`,
		rec.Time.UnixMilli(), rec.Command, rec.EntityId, string(detail), success, rec.Error)
	return err
}

func (s *sqliteSink) close() error {
	return s.db.Close()
}

type sqliteCollector struct {
	*asyncCollector
	sink *sqliteSink
}

var _ RecordReader = new(sqliteCollector)

// NewSqliteDataCollector stores commands in the command_log table of the sqlite file at path.
func NewSqliteDataCollector(path string) (CommandCollector, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, err
		}
	}
	db, err := sql.Open("sqlite", "file:"+path+"?_pragma=busy_timeout=5000")
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(1)
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, err
	}
	if _, err := db.ExecContext(ctx, createCommandLog); err != nil {
		db.Close()
		return nil, err
	}
	sink := &sqliteSink{db: db}
	return &sqliteCollector{
		asyncCollector: newAsyncCollector("sqlite-collector", sink),
		sink:           sink,
	}, nil
}

func (c *sqliteCollector) Recent(ctx context.Context, limit int) ([]Record, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := c.sink.db.QueryContext(ctx, `SELECT ts, command, entity_id, detail, success, error FROM command_log ORDER BY rowid DESC LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var records []Record
	for rows.Next() {
		var (
			ts      int64
			detail  string
			success int
			rec     Record
		)
		if err := rows.Scan(&ts, &rec.Command, &rec.EntityId, &detail, &success, &rec.Error); err != nil {
			return nil, err
		}
		rec.Time = time.UnixMilli(ts)
		rec.Success = success == 1
		if detail != "" && detail != "null" {
			_ = json.Unmarshal([]byte(detail), &rec.Detail)
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}
