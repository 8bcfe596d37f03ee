// Package store persists workflow runs together with the overlap events and
// removal reports produced while they were live.
//
// Three backends implement [Store]:
//   - [MemoryStore]: process-local, for tests and single-shot CLI runs
//   - [FileStore]: JSON files under a directory, for the CLI
//   - [MongoStore]: MongoDB collections, for the API server
//
// Lookups of unknown run ids return a NOT_FOUND *errors.Error.
package store

import (
	"context"
	"time"

	"github.com/matzehuels/sceneguard/pkg/errors"
	"github.com/matzehuels/sceneguard/pkg/fadeout"
	"github.com/matzehuels/sceneguard/pkg/overlap"
	"github.com/matzehuels/sceneguard/pkg/pipeline"
)

// Run is one stored workflow run.
type Run struct {
	ID        string          `json:"id" bson:"_id"`
	Name      string          `json:"name,omitempty" bson:"name,omitempty"`
	CreatedAt time.Time       `json:"created_at" bson:"created_at"`
	Layout    pipeline.Layout `json:"layout" bson:"layout"`
}

// RunInfo is the listing form of a run.
type RunInfo struct {
	ID        string    `json:"id" bson:"_id"`
	Name      string    `json:"name,omitempty" bson:"name,omitempty"`
	CreatedAt time.Time `json:"created_at" bson:"created_at"`
	Objects   int       `json:"objects" bson:"objects"`
	Warnings  int       `json:"warnings" bson:"warnings"`
}

// Info summarises r for listings.
func (r Run) Info() RunInfo {
	return RunInfo{
		ID:        r.ID,
		Name:      r.Name,
		CreatedAt: r.CreatedAt,
		Objects:   len(r.Layout.Objects),
		Warnings:  len(r.Layout.Summary.Warnings),
	}
}

// Store is the persistence interface.
type Store interface {
	// SaveRun inserts or replaces a run.
	SaveRun(ctx context.Context, r Run) error
	GetRun(ctx context.Context, id string) (Run, error)
	// ListRuns returns up to limit runs, newest first. limit <= 0 means all.
	ListRuns(ctx context.Context, limit int) ([]RunInfo, error)
	// DeleteRun removes a run with its events and removal reports.
	DeleteRun(ctx context.Context, id string) error

	// SaveEvent inserts or replaces an event of a run. Events are updated
	// in place when a correction lands.
	SaveEvent(ctx context.Context, runID string, ev overlap.Event) error
	Events(ctx context.Context, runID string) ([]overlap.Event, error)

	AppendRemoval(ctx context.Context, runID string, r fadeout.Report) error
	Removals(ctx context.Context, runID string) ([]fadeout.Report, error)

	Close() error
}

// Backend names accepted by [Open].
const (
	BackendMemory = "memory"
	BackendFile   = "file"
	BackendMongo  = "mongo"
)

// Config selects and configures a backend.
type Config struct {
	Backend string      `toml:"backend" json:"backend"`
	Dir     string      `toml:"dir" json:"dir"`
	Mongo   MongoConfig `toml:"mongo" json:"mongo"`
}

// SetDefaults fills empty fields.
func (c *Config) SetDefaults() {
	if c.Backend == "" {
		c.Backend = BackendMemory
	}
	c.Mongo.SetDefaults()
}

// Validate checks the backend name and the settings it needs.
func (c Config) Validate() error {
	switch c.Backend {
	case BackendMemory, BackendMongo:
	case BackendFile:
		if c.Dir == "" {
			return errors.New(errors.ErrCodeInvalidConfig, "store.dir is required for the file backend")
		}
	default:
		return errors.New(errors.ErrCodeInvalidConfig, "store.backend %q must be one of memory, file, mongo", c.Backend)
	}
	return nil
}

// Open builds the configured backend.
func Open(ctx context.Context, cfg Config) (Store, error) {
	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	switch cfg.Backend {
	case BackendFile:
		fs, err := NewFileStore(cfg.Dir)
		if err != nil {
			return nil, err
		}
		return fs, nil
	case BackendMongo:
		ms, err := NewMongoStore(ctx, cfg.Mongo)
		if err != nil {
			return nil, err
		}
		return ms, nil
	default:
		return NewMemoryStore(), nil
	}
}

func runNotFound(id string) error {
	return errors.New(errors.ErrCodeNotFound, "run %q not found", id)
}
