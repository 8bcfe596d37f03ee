// Package pipeline sequences the layout workflow for a scene.
//
// A [Runner] takes the objects of one scene through seven phases in fixed
// order:
//
//  1. analyze: category counts, spatial spread and a complexity label
//  2. position: place each object in arrival order, registering it before
//     the next one is placed
//  3. sweep: find conflicts between actual footprints and resolve them with
//     placement alternatives, warning when none is clear
//  4. sequence: split persistent from transient objects and fix the order
//     in which they appear
//  5. frame: ask the camera for a zoom or pan
//  6. validate: structural checks on every registered object
//  7. monitor: optionally start the background overlap monitor
//
// The output is a [Layout] (final positions, camera action and a [Summary])
// plus the live [registry.Registry] the layout was built in. Layouts are
// cached by scene and configuration hash, so phases 1 to 6 are skipped when
// the same scene is laid out twice.
//
// # Usage
//
//	runner := pipeline.NewRunner(c, nil, logger)
//	res, err := runner.Execute(ctx, file.ObjectList(), pipeline.Options{StartMonitor: true})
//	if err != nil {
//	    return err
//	}
//	defer res.Stop(context.Background())
//	json.NewEncoder(os.Stdout).Encode(res.Layout)
package pipeline

import (
	"io"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/sceneguard/pkg/cache"
	"github.com/matzehuels/sceneguard/pkg/camera"
	"github.com/matzehuels/sceneguard/pkg/errors"
	"github.com/matzehuels/sceneguard/pkg/fadeout"
	"github.com/matzehuels/sceneguard/pkg/overlap"
	"github.com/matzehuels/sceneguard/pkg/placement"
	"github.com/matzehuels/sceneguard/pkg/scene"
)

// =============================================================================
// Phases
// =============================================================================

// Phase names, in execution order.
const (
	PhaseAnalyze  = "analyze"
	PhasePosition = "position"
	PhaseSweep    = "sweep"
	PhaseSequence = "sequence"
	PhaseFrame    = "frame"
	PhaseValidate = "validate"
	PhaseMonitor  = "monitor"
)

// Phases lists every phase in execution order.
var Phases = []string{
	PhaseAnalyze, PhasePosition, PhaseSweep, PhaseSequence, PhaseFrame, PhaseValidate, PhaseMonitor,
}

// SweepFootprintScale is the footprint scale used by the conflict sweep.
// The sweep looks at actual extents; the live monitor uses the wider
// [overlap.Config.FootprintScale].
const SweepFootprintScale = 1.0

// =============================================================================
// Options
// =============================================================================

// Options configures one workflow run. Zero component configs take their
// defaults.
type Options struct {
	Screen    scene.BBox       `json:"screen"`
	Placement placement.Config `json:"placement"`
	Camera    camera.Config    `json:"camera"`
	Monitor   overlap.Config   `json:"monitor"`
	FadeOut   fadeout.Config   `json:"fadeout"`

	// StartMonitor runs phase 7. Without it the result has no monitor.
	StartMonitor bool `json:"start_monitor,omitempty"`

	// Refresh ignores cached layouts (the fresh layout is still stored).
	Refresh bool `json:"refresh,omitempty"`

	Logger *log.Logger `json:"-"`
}

// SetDefaults fills the screen, the component configs and the logger.
func (o *Options) SetDefaults() {
	if o.Screen == (scene.BBox{}) {
		o.Screen = scene.DefaultScreen
	}
	o.Placement.SetDefaults()
	o.Camera.SetDefaults()
	if o.Monitor == (overlap.Config{}) {
		o.Monitor = overlap.DefaultConfig()
	}
	o.Monitor.SetDefaults()
	if o.FadeOut == (fadeout.Config{}) {
		o.FadeOut = fadeout.DefaultConfig()
	}
	o.FadeOut.SetDefaults()
	if o.Logger == nil {
		o.Logger = log.NewWithOptions(io.Discard, log.Options{})
	}
}

// Validate checks the screen and every component config.
func (o *Options) Validate() error {
	s := o.Screen
	if err := errors.ValidateBounds(s.MinX, s.MinY, s.MaxX, s.MaxY); err != nil {
		return err
	}
	for _, v := range []interface{ Validate() error }{o.Placement, o.Camera, o.Monitor, o.FadeOut} {
		if err := v.Validate(); err != nil {
			return err
		}
	}
	return nil
}

// LayoutKeyOpts returns the cache key options for this configuration. Only
// settings that change phases 1 to 6 are hashed.
func (o *Options) LayoutKeyOpts() (cache.LayoutKeyOpts, error) {
	h, err := cache.HashValue(struct {
		Placement placement.Config
		Camera    camera.Config
	}{o.Placement, o.Camera})
	if err != nil {
		return cache.LayoutKeyOpts{}, err
	}
	return cache.LayoutKeyOpts{
		ConfigHash: h,
		MinX:       o.Screen.MinX,
		MinY:       o.Screen.MinY,
		MaxX:       o.Screen.MaxX,
		MaxY:       o.Screen.MaxY,
	}, nil
}
