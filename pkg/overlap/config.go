package overlap

import (
	"time"

	"github.com/matzehuels/sceneguard/pkg/errors"
)

const (
	DefaultCheckInterval            = 500 * time.Millisecond
	DefaultFootprintScale           = 2.0
	DefaultMaxConcurrentCorrections = 3
	DefaultCorrectionTimeout        = 5 * time.Second
	DefaultPreDelay                 = 500 * time.Millisecond
	DefaultHistoryLimit             = 1000
	DefaultRepositionGap            = 0.2
)

// Config holds the monitor and scheduler tunables.
//
// FootprintScale multiplies each object's radius before overlap geometry is
// computed; the default of 2 models the full visual extent of an object
// rather than its nominal radius.
type Config struct {
	CheckInterval            time.Duration `toml:"check_interval" json:"check_interval"`
	FootprintScale           float64       `toml:"footprint_scale" json:"footprint_scale"`
	AutoCorrect              bool          `toml:"auto_correct" json:"auto_correct"`
	MaxConcurrentCorrections int           `toml:"max_concurrent_corrections" json:"max_concurrent_corrections"`
	CorrectionTimeout        time.Duration `toml:"correction_timeout" json:"correction_timeout"`
	PreDelay                 time.Duration `toml:"pre_delay" json:"pre_delay"`
	HistoryLimit             int           `toml:"history_limit" json:"history_limit"`
	RepositionGap            float64       `toml:"reposition_gap" json:"reposition_gap"`
}

// DefaultConfig returns the documented defaults with auto-correction on.
func DefaultConfig() Config {
	c := Config{AutoCorrect: true}
	c.SetDefaults()
	return c
}

// SetDefaults fills zero-valued fields. AutoCorrect is left as given.
func (c *Config) SetDefaults() {
	if c.CheckInterval == 0 {
		c.CheckInterval = DefaultCheckInterval
	}
	if c.FootprintScale == 0 {
		c.FootprintScale = DefaultFootprintScale
	}
	if c.MaxConcurrentCorrections == 0 {
		c.MaxConcurrentCorrections = DefaultMaxConcurrentCorrections
	}
	if c.CorrectionTimeout == 0 {
		c.CorrectionTimeout = DefaultCorrectionTimeout
	}
	if c.PreDelay == 0 {
		c.PreDelay = DefaultPreDelay
	}
	if c.HistoryLimit == 0 {
		c.HistoryLimit = DefaultHistoryLimit
	}
	if c.RepositionGap == 0 {
		c.RepositionGap = DefaultRepositionGap
	}
}

// Validate checks ranges. Call SetDefaults first.
func (c Config) Validate() error {
	switch {
	case c.CheckInterval < time.Millisecond:
		return errors.New(errors.ErrCodeInvalidConfig, "monitor.check_interval must be at least 1ms, got %v", c.CheckInterval)
	case c.FootprintScale <= 0:
		return errors.New(errors.ErrCodeInvalidConfig, "monitor.footprint_scale must be positive")
	case c.MaxConcurrentCorrections < 1:
		return errors.New(errors.ErrCodeInvalidConfig, "monitor.max_concurrent_corrections must be at least 1")
	case c.CorrectionTimeout <= 0:
		return errors.New(errors.ErrCodeInvalidConfig, "monitor.correction_timeout must be positive")
	case c.PreDelay < 0:
		return errors.New(errors.ErrCodeInvalidConfig, "monitor.pre_delay must be non-negative")
	case c.HistoryLimit < 1:
		return errors.New(errors.ErrCodeInvalidConfig, "monitor.history_limit must be positive")
	}
	return nil
}
