package pipeline

import "time"

// Config controls pipeline intervals, batch sizes and stage timeouts.
type Config struct {
	RunInterval     time.Duration
	BatchSize       int
	ImportBatchSize int
	StageTimeout    time.Duration
	ImportTimeout   time.Duration
	EnabledStages   []string
}

func DefaultConfig() Config {
	return Config{
		RunInterval:     5 * time.Minute,
		BatchSize:       50,
		ImportBatchSize: 500,
		StageTimeout:    30 * time.Second,
		ImportTimeout:   2 * time.Minute,
	}
}

func (c Config) withDefaults() Config {
	defaults := DefaultConfig()
	if c.RunInterval <= 0 {
		c.RunInterval = defaults.RunInterval
	}
	if c.BatchSize <= 0 {
		c.BatchSize = defaults.BatchSize
	}
	if c.ImportBatchSize <= 0 {
		c.ImportBatchSize = defaults.ImportBatchSize
	}
	if c.StageTimeout <= 0 {
		c.StageTimeout = defaults.StageTimeout
	}
	if c.ImportTimeout <= 0 {
		c.ImportTimeout = defaults.ImportTimeout
	}
	return c
}
