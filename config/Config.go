package config

import (
	"time"

	"github.com/mohitkumar/orchy-console/analytics"
)

type StorageType string

const STORAGE_TYPE_REDIS StorageType = "redis"
const STORAGE_TYPE_INMEM StorageType = "memory"

const DEFAULT_POLL_INTERVAL = 200 * time.Millisecond

type Config struct {
	RedisConfig     RedisStorageConfig
	HttpPort        int
	StorageType     StorageType
	PollInterval    time.Duration
	AnalyticsConfig analytics.DataCollectorConfig
	LogLevel        string
	Development     bool
	ConsoleConfig   ConsoleConfig
}

type ConsoleConfig struct {
	SchemaType       string
	ProcessBaseClass string
	InactiveMarker   string
}

type RedisStorageConfig struct {
	Addrs          []string
	Namespace      string
	Password       string
	PoolSize       int
	PartitionCount int
}

func (c Config) GetPollInterval() time.Duration {
	if c.PollInterval <= 0 {
		return DEFAULT_POLL_INTERVAL
	}
	return c.PollInterval
}
