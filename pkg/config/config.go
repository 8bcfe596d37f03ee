// Package config loads the sceneguard configuration file.
//
// The file is TOML with one table per component:
//
//	[screen]     frame bounds in scene units
//	[placement]  placement engine tunables
//	[camera]     framing margins and move durations
//	[monitor]    overlap monitor and correction scheduler
//	[fadeout]    removal policy and ramp
//	[cache]      layout cache backend (null, file, redis)
//	[store]      report store backend (memory, file, mongo)
//	[server]     HTTP API listener
//
// Keys left out of the file keep their defaults, so a file only needs to
// list what it changes. Unknown keys are rejected to catch typos.
package config

import (
	"fmt"
	"io"
	"os"
	"slices"
	"strings"
	"time"

	"github.com/BurntSushi/toml"

	"github.com/matzehuels/sceneguard/pkg/cache"
	"github.com/matzehuels/sceneguard/pkg/camera"
	"github.com/matzehuels/sceneguard/pkg/errors"
	"github.com/matzehuels/sceneguard/pkg/fadeout"
	"github.com/matzehuels/sceneguard/pkg/overlap"
	"github.com/matzehuels/sceneguard/pkg/pipeline"
	"github.com/matzehuels/sceneguard/pkg/placement"
	"github.com/matzehuels/sceneguard/pkg/scene"
	"github.com/matzehuels/sceneguard/pkg/store"
)

// Config is the whole configuration file.
type Config struct {
	Screen    scene.BBox       `toml:"screen" json:"screen"`
	Placement placement.Config `toml:"placement" json:"placement"`
	Camera    camera.Config    `toml:"camera" json:"camera"`
	Monitor   overlap.Config   `toml:"monitor" json:"monitor"`
	FadeOut   fadeout.Config   `toml:"fadeout" json:"fadeout"`
	Cache     cache.Config     `toml:"cache" json:"cache"`
	Store     store.Config     `toml:"store" json:"store"`
	Server    ServerConfig     `toml:"server" json:"server"`
}

// Server defaults.
const (
	DefaultAddr              = "127.0.0.1:8080"
	DefaultReadHeaderTimeout = 10 * time.Second
	DefaultShutdownTimeout   = 10 * time.Second
	DefaultMaxBodyBytes      = 4 << 20
	DefaultMaxLiveScenes     = 64
)

// ServerConfig configures the HTTP API.
type ServerConfig struct {
	Addr              string        `toml:"addr" json:"addr"`
	ReadHeaderTimeout time.Duration `toml:"read_header_timeout" json:"read_header_timeout"`
	ShutdownTimeout   time.Duration `toml:"shutdown_timeout" json:"shutdown_timeout"`
	MaxBodyBytes      int64         `toml:"max_body_bytes" json:"max_body_bytes"`
	// MaxLiveScenes bounds how many scenes keep a running registry and
	// monitor in memory. The oldest is stopped when the limit is reached;
	// its stored report stays readable.
	MaxLiveScenes int `toml:"max_live_scenes" json:"max_live_scenes"`
}

// SetDefaults fills zero-valued fields.
func (s *ServerConfig) SetDefaults() {
	if s.Addr == "" {
		s.Addr = DefaultAddr
	}
	if s.ReadHeaderTimeout == 0 {
		s.ReadHeaderTimeout = DefaultReadHeaderTimeout
	}
	if s.ShutdownTimeout == 0 {
		s.ShutdownTimeout = DefaultShutdownTimeout
	}
	if s.MaxBodyBytes == 0 {
		s.MaxBodyBytes = DefaultMaxBodyBytes
	}
	if s.MaxLiveScenes == 0 {
		s.MaxLiveScenes = DefaultMaxLiveScenes
	}
}

// Validate checks ranges. Call SetDefaults first.
func (s ServerConfig) Validate() error {
	switch {
	case s.ReadHeaderTimeout < 0 || s.ShutdownTimeout < 0:
		return errors.New(errors.ErrCodeInvalidConfig, "server timeouts must be non-negative")
	case s.MaxBodyBytes < 1:
		return errors.New(errors.ErrCodeInvalidConfig, "server.max_body_bytes must be positive")
	case s.MaxLiveScenes < 1:
		return errors.New(errors.ErrCodeInvalidConfig, "server.max_live_scenes must be positive")
	}
	return nil
}

// Default returns the configuration used when no file is given.
func Default() Config {
	c := Config{
		Screen:  scene.DefaultScreen,
		Monitor: overlap.DefaultConfig(),
		FadeOut: fadeout.DefaultConfig(),
	}
	c.SetDefaults()
	return c
}

// SetDefaults fills every section's zero-valued fields. Booleans are left
// as given; start from [Default] to get the documented ones.
func (c *Config) SetDefaults() {
	if c.Screen == (scene.BBox{}) {
		c.Screen = scene.DefaultScreen
	}
	c.Placement.SetDefaults()
	c.Camera.SetDefaults()
	c.Monitor.SetDefaults()
	c.FadeOut.SetDefaults()
	c.Cache.SetDefaults()
	c.Store.SetDefaults()
	c.Server.SetDefaults()
}

// Validate checks every section.
func (c Config) Validate() error {
	s := c.Screen
	if err := errors.ValidateBounds(s.MinX, s.MinY, s.MaxX, s.MaxY); err != nil {
		return errors.Wrap(errors.ErrCodeInvalidConfig, err, "invalid [screen]")
	}
	sections := []struct {
		name string
		v    interface{ Validate() error }
	}{
		{"placement", c.Placement},
		{"camera", c.Camera},
		{"monitor", c.Monitor},
		{"fadeout", c.FadeOut},
		{"cache", c.Cache},
		{"store", c.Store},
		{"server", c.Server},
	}
	for _, sec := range sections {
		if err := sec.v.Validate(); err != nil {
			return errors.Wrap(errors.ErrCodeInvalidConfig, err, "invalid [%s]", sec.name)
		}
	}
	return nil
}

// PipelineOptions returns workflow options built from the screen and
// component sections.
func (c Config) PipelineOptions() pipeline.Options {
	return pipeline.Options{
		Screen:    c.Screen,
		Placement: c.Placement,
		Camera:    c.Camera,
		Monitor:   c.Monitor,
		FadeOut:   c.FadeOut,
	}
}

// Load reads a TOML file on top of [Default], then validates the result.
func Load(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("read config: %w", err)
	}
	return Parse(string(data))
}

// Parse decodes TOML text on top of [Default], then validates the result.
func Parse(text string) (Config, error) {
	c := Default()
	md, err := toml.Decode(text, &c)
	if err != nil {
		return Config{}, errors.Wrap(errors.ErrCodeInvalidConfig, err, "parse config")
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, len(undecoded))
		for i, k := range undecoded {
			keys[i] = k.String()
		}
		slices.Sort(keys)
		return Config{}, errors.New(errors.ErrCodeInvalidConfig, "unknown config keys: %s", strings.Join(keys, ", "))
	}
	c.SetDefaults()
	if err := c.Validate(); err != nil {
		return Config{}, err
	}
	return c, nil
}

// Write encodes c as TOML.
func Write(w io.Writer, c Config) error {
	return toml.NewEncoder(w).Encode(c)
}
