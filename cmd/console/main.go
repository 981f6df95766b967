package main

import (
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/mohitkumar/orchy-console/agent"
	"github.com/mohitkumar/orchy-console/analytics"
	"github.com/mohitkumar/orchy-console/config"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

type cfg struct {
	config.Config
}
type cli struct {
	cfg cfg
}

func setupFlags(cmd *cobra.Command) error {
	cmd.Flags().String("config-file", "", "Path to config file.")
	cmd.Flags().String("redis-addr", "localhost:6379", "comma separated list of redis host:port")
	cmd.Flags().String("redis-password", "", "redis password")
	cmd.Flags().Int("redis-pool-size", 0, "redis connection pool size")
	cmd.Flags().String("namespace", "orchy-console", "namespace used in storage")
	cmd.Flags().Int("partition-count", 16, "number of entity partitions in storage")
	cmd.Flags().Int("http-port", 8080, "http port for rest endpoints")
	cmd.Flags().String("storage-impl", "redis", "implementation of underline storage (redis or memory)")
	cmd.Flags().Duration("poll-interval", config.DEFAULT_POLL_INTERVAL, "interval between status polls of a running process")
	cmd.Flags().String("collector-type", "", "command audit collector (LOG_FILE_DATA_COLLECTOR or SQLITE_DATA_COLLECTOR)")
	cmd.Flags().String("collector-file", "console-audit.log", "file used by the command audit collector")
	cmd.Flags().String("schema-type", "", "type of the schema nodes describing processes and steps")
	cmd.Flags().String("process-base-class", "", "class every process definition extends")
	cmd.Flags().String("inactive-marker", "", "interface marking a process definition inactive")
	cmd.Flags().String("log-level", "info", "log level")
	cmd.Flags().Bool("development", false, "development logging")
	return viper.BindPFlags(cmd.Flags())
}

func loadDotEnv() error {
	if _, err := os.Stat(".env"); err == nil {
		return godotenv.Load(".env")
	}
	return nil
}

func (c *cli) setupConfig(cmd *cobra.Command, args []string) error {
	var err error

	if err = loadDotEnv(); err != nil {
		return err
	}
	viper.SetEnvPrefix("CONSOLE")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()

	configFile, err := cmd.Flags().GetString("config-file")
	if err != nil {
		return err
	}
	if configFile != "" {
		viper.SetConfigFile(configFile)
		if err = viper.ReadInConfig(); err != nil {
			// it's ok if config file doesn't exist
			if _, ok := err.(viper.ConfigFileNotFoundError); !ok && !os.IsNotExist(err) {
				return err
			}
		}
	}

	c.cfg.RedisConfig.Addrs = strings.Split(viper.GetString("redis-addr"), ",")
	c.cfg.RedisConfig.Password = viper.GetString("redis-password")
	c.cfg.RedisConfig.PoolSize = viper.GetInt("redis-pool-size")
	c.cfg.RedisConfig.Namespace = viper.GetString("namespace")
	c.cfg.RedisConfig.PartitionCount = viper.GetInt("partition-count")
	c.cfg.HttpPort = viper.GetInt("http-port")
	c.cfg.StorageType = config.StorageType(viper.GetString("storage-impl"))
	c.cfg.PollInterval = viper.GetDuration("poll-interval")
	c.cfg.AnalyticsConfig.CollectorType = analytics.DataCollectorType(viper.GetString("collector-type"))
	c.cfg.AnalyticsConfig.FileName = viper.GetString("collector-file")
	c.cfg.ConsoleConfig.SchemaType = viper.GetString("schema-type")
	c.cfg.ConsoleConfig.ProcessBaseClass = viper.GetString("process-base-class")
	c.cfg.ConsoleConfig.InactiveMarker = viper.GetString("inactive-marker")
	c.cfg.LogLevel = viper.GetString("log-level")
	c.cfg.Development = viper.GetBool("development")
	return nil
}

func (c *cli) run(cmd *cobra.Command, args []string) error {
	var err error
	agent, err := agent.New(c.cfg.Config)
	if err != nil {
		return err
	}
	err = agent.Start()
	if err != nil {
		return err
	}
	sigc := make(chan os.Signal, 1)
	signal.Notify(sigc, syscall.SIGINT, syscall.SIGTERM)
	<-sigc
	return agent.Shutdown()
}

func main() {
	cli := &cli{}

	cmd := &cobra.Command{
		Use:     "orchy-console",
		PreRunE: cli.setupConfig,
		RunE:    cli.run,
	}

	if err := setupFlags(cmd); err != nil {
		log.Fatal(err)
	}

	if err := cmd.Execute(); err != nil {
		log.Fatal(err)
	}
}
