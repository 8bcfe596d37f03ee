package fadeout

import (
	"time"

	"github.com/matzehuels/sceneguard/pkg/errors"
)

// RemovedOpacity is the opacity at or below which an object counts as gone.
const RemovedOpacity = 0.1

const (
	DefaultRampSteps    = 5
	DefaultRampInterval = 10 * time.Millisecond
	DefaultHistoryLimit = 1000
)

// Policy decides whether objects may be removed at all. Allowed is an
// opaque upstream decision; ProtectPersistent refuses persistent objects.
type Policy struct {
	Allowed           bool `toml:"allowed" json:"allowed"`
	ProtectPersistent bool `toml:"protect_persistent" json:"protect_persistent"`
}

// Config holds the coordinator tunables.
type Config struct {
	Policy       Policy        `toml:"policy" json:"policy"`
	RampSteps    int           `toml:"ramp_steps" json:"ramp_steps"`
	RampInterval time.Duration `toml:"ramp_interval" json:"ramp_interval"`
	HistoryLimit int           `toml:"history_limit" json:"history_limit"`
}

// DefaultConfig allows removal of everything except persistent objects.
func DefaultConfig() Config {
	c := Config{Policy: Policy{Allowed: true, ProtectPersistent: true}}
	c.SetDefaults()
	return c
}

// SetDefaults fills zero-valued numeric fields. Policy is left as given.
func (c *Config) SetDefaults() {
	if c.RampSteps == 0 {
		c.RampSteps = DefaultRampSteps
	}
	if c.RampInterval == 0 {
		c.RampInterval = DefaultRampInterval
	}
	if c.HistoryLimit == 0 {
		c.HistoryLimit = DefaultHistoryLimit
	}
}

// Validate checks ranges. Call SetDefaults first.
func (c Config) Validate() error {
	if c.RampSteps < 1 {
		return errors.New(errors.ErrCodeInvalidConfig, "fadeout.ramp_steps must be positive")
	}
	if c.RampInterval < 0 {
		return errors.New(errors.ErrCodeInvalidConfig, "fadeout.ramp_interval must be non-negative")
	}
	if c.HistoryLimit < 1 {
		return errors.New(errors.ErrCodeInvalidConfig, "fadeout.history_limit must be positive")
	}
	return nil
}
