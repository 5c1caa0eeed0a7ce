package scheduler

import (
	"time"

	"github.com/duebook/duebook/internal/config"
)

// Config controls scheduler intervals, the materialization horizon and
// batch sizes.
type Config struct {
	RunInterval time.Duration
	// Horizon is the look-ahead window: a computed occurrence is only
	// materialized once its due date falls within now+Horizon.
	Horizon     time.Duration
	BatchSize   int
	JobTimeout  time.Duration
	EnabledJobs []string
}

func DefaultConfig() Config {
	return Config{
		RunInterval: 24 * time.Hour,
		Horizon:     7 * 24 * time.Hour,
		BatchSize:   50,
		JobTimeout:  5 * time.Minute,
	}
}

func (c Config) withDefaults() Config {
	defaults := DefaultConfig()
	if c.RunInterval <= 0 {
		c.RunInterval = defaults.RunInterval
	}
	if c.Horizon <= 0 {
		c.Horizon = defaults.Horizon
	}
	if c.BatchSize <= 0 {
		c.BatchSize = defaults.BatchSize
	}
	if c.JobTimeout <= 0 {
		c.JobTimeout = defaults.JobTimeout
	}
	return c
}

func ProvideConfig(appCfg config.Config) Config {
	return Config{
		RunInterval: appCfg.SchedulerRunInterval,
		Horizon:     time.Duration(appCfg.SchedulerHorizonDays) * 24 * time.Hour,
		BatchSize:   appCfg.SchedulerBatchSize,
		EnabledJobs: appCfg.SchedulerEnabledJobs,
	}.withDefaults()
}
