package pipeline

import (
	"time"

	"github.com/pkg/errors"
	"go.uber.org/multierr"
)

const (
	// DefaultSampleEvery fuses one frame pair out of every ten submitted.
	DefaultSampleEvery = 10
	// DefaultWorkers is the number of goroutines fusing frame pairs.
	DefaultWorkers = 1
	// latencyWindow is how many recent fusion latencies Stats summarizes.
	latencyWindow = 1024
	// flushPollInterval is how often Flush rechecks the counters.
	flushPollInterval = 5 * time.Millisecond
)

// Config controls how submitted frame pairs are sampled and fused.
type Config struct {
	// SampleEvery keeps the first of every SampleEvery submitted pairs. 1 keeps them all.
	SampleEvery int `json:"sample_every"`
	Workers     int `json:"workers"`
	// StatsIntervalSec logs Stats at this period when positive.
	StatsIntervalSec float64 `json:"stats_interval_sec"`
}

// DefaultConfig fuses one frame pair in ten on a single worker.
func DefaultConfig() Config {
	return Config{
		SampleEvery: DefaultSampleEvery,
		Workers:     DefaultWorkers,
	}
}

// CheckValid returns every problem with the config at once.
func (cfg Config) CheckValid() error {
	var errs error
	if cfg.SampleEvery < 1 {
		errs = multierr.Append(errs, errors.Errorf("sample_every must be at least 1, got %d", cfg.SampleEvery))
	}
	if cfg.Workers < 1 {
		errs = multierr.Append(errs, errors.Errorf("workers must be at least 1, got %d", cfg.Workers))
	}
	if cfg.StatsIntervalSec < 0 {
		errs = multierr.Append(errs, errors.Errorf("stats_interval_sec cannot be negative, got %v", cfg.StatsIntervalSec))
	}
	return errs
}

// StatsInterval returns StatsIntervalSec as a duration.
func (cfg Config) StatsInterval() time.Duration {
	return time.Duration(cfg.StatsIntervalSec * float64(time.Second))
}
