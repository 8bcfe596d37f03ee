package pipeline

import (
	"context"
	"fmt"
	"time"

	"github.com/charmbracelet/log"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/matzehuels/sceneguard/pkg/cache"
	"github.com/matzehuels/sceneguard/pkg/camera"
	"github.com/matzehuels/sceneguard/pkg/errors"
	"github.com/matzehuels/sceneguard/pkg/fadeout"
	"github.com/matzehuels/sceneguard/pkg/observability"
	"github.com/matzehuels/sceneguard/pkg/overlap"
	"github.com/matzehuels/sceneguard/pkg/placement"
	"github.com/matzehuels/sceneguard/pkg/registry"
	"github.com/matzehuels/sceneguard/pkg/scene"
)

// Runner executes the workflow with layout caching. It holds no scene state,
// so one Runner can serve concurrent runs.
type Runner struct {
	Cache  cache.Cache
	Keyer  cache.Keyer
	Logger *log.Logger
}

// NewRunner creates a runner. A nil cache disables caching, a nil keyer
// uses the default one.
func NewRunner(c cache.Cache, keyer cache.Keyer, logger *log.Logger) *Runner {
	if c == nil {
		c = cache.NewNullCache()
	}
	if keyer == nil {
		keyer = cache.NewDefaultKeyer()
	}
	if logger == nil {
		logger = log.Default()
	}
	return &Runner{Cache: c, Keyer: keyer, Logger: logger}
}

// Result is a finished run: the layout and the live components behind it.
type Result struct {
	Layout   Layout
	Registry *registry.Registry
	Remover  *fadeout.Coordinator

	// Monitor is nil unless Options.StartMonitor was set.
	Monitor *overlap.Monitor
}

// Stop halts the monitor, if any, and records its correction counts in the
// layout summary. It is safe to call more than once.
func (r *Result) Stop(ctx context.Context) error {
	if r.Monitor == nil {
		return nil
	}
	err := r.Monitor.Stop(ctx)
	r.Layout.Summary.Corrections = corrections(r.Monitor)
	return err
}

func corrections(m *overlap.Monitor) Corrections {
	st := m.Scheduler().Stats()
	return Corrections{Scheduled: st.Scheduled, Applied: st.Completed, Failed: st.Failed}
}

// Execute runs every phase over objs. Objects are placed in slice order.
func (r *Runner) Execute(ctx context.Context, objs []scene.Object, opts Options) (*Result, error) {
	r.applyLogger(&opts)
	opts.SetDefaults()
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	logger := opts.Logger

	key, err := r.layoutKey(objs, &opts)
	if err != nil {
		return nil, err
	}

	reg := registry.New(registry.WithLogger(logger))
	var layout Layout
	hit := false
	if !opts.Refresh {
		layout, hit = r.cached(ctx, key)
	}

	if hit {
		logger.Info("layout cache hit", "objects", len(layout.Objects))
		for _, p := range layout.Objects {
			if _, err := reg.Register(p.Object(), p.ZOrder); err != nil {
				return nil, errors.Wrap(errors.ErrCodeInternal, err, "restore cached layout")
			}
		}
		layout.Summary.CacheHit = true
		layout.Summary.Corrections = Corrections{}
	} else {
		layout, err = r.build(ctx, reg, objs, opts, logger)
		if err != nil {
			return nil, err
		}
		if data, err := MarshalLayout(layout); err == nil {
			if err := r.Cache.Set(ctx, key, data, cache.TTLLayout); err != nil {
				logger.Warn("layout not cached", "err", err)
			} else {
				observability.Cache().OnCacheSet(ctx, key, len(data))
			}
		}
	}

	res := &Result{
		Layout:   layout,
		Registry: reg,
		Remover:  fadeout.New(reg, opts.FadeOut, fadeout.WithLogger(logger)),
	}

	skipped := !opts.StartMonitor
	err = r.phase(ctx, &res.Layout.Summary, PhaseMonitor, skipped, func() error {
		sched := overlap.NewScheduler(opts.Monitor,
			overlap.NewSceneCorrector(reg, res.Remover, opts.Screen, opts.Monitor), logger)
		res.Monitor = overlap.NewMonitor(reg, sched, opts.Monitor, logger)
		// The monitor outlives the request that started it; Result.Stop ends it.
		return res.Monitor.Start(context.WithoutCancel(ctx))
	})
	if err != nil {
		return nil, err
	}

	logger.Info("workflow finished",
		"objects", len(res.Layout.Objects), "conflicts", res.Layout.Summary.Conflicts,
		"warnings", len(res.Layout.Summary.Warnings), "cached", hit)
	return res, nil
}

// build runs phases 1 to 6.
func (r *Runner) build(ctx context.Context, reg *registry.Registry, objs []scene.Object, opts Options, logger *log.Logger) (Layout, error) {
	sum := Summary{Strategies: make(map[placement.Strategy]int)}
	eng := placement.New(opts.Placement, logger)
	framer := camera.New(opts.Camera, logger)
	var action camera.Action

	steps := []struct {
		name string
		fn   func() error
	}{
		{PhaseAnalyze, func() error {
			sum.Analysis = Analyze(objs, opts.Screen)
			logger.Debug("analyzed scene", "objects", len(objs), "complexity", sum.Analysis.Complexity)
			return nil
		}},
		{PhasePosition, func() error {
			return position(reg, eng, objs, opts.Screen, &sum)
		}},
		{PhaseSweep, func() error {
			sweep(reg, eng, opts.Screen, &sum)
			return nil
		}},
		{PhaseSequence, func() error {
			sum.Persistent, sum.Transient, sum.Sequence = Sequence(reg.Snapshot().Objects)
			return nil
		}},
		{PhaseFrame, func() error {
			action = frame(framer, reg.Snapshot().Objects, opts.Screen)
			if action.Kind != camera.KindNone {
				sum.CameraActions = append(sum.CameraActions, action)
			}
			return nil
		}},
		{PhaseValidate, func() error {
			w := validate(reg.Snapshot().Objects, opts.Screen)
			sum.Valid = len(w) == 0
			sum.Warnings = append(sum.Warnings, w...)
			return nil
		}},
	}
	for _, s := range steps {
		if err := ctx.Err(); err != nil {
			return Layout{}, errors.Wrap(errors.ErrCodeCancelled, err, "workflow cancelled before %s", s.name)
		}
		if err := r.phase(ctx, &sum, s.name, false, s.fn); err != nil {
			return Layout{}, fmt.Errorf("%s: %w", s.name, err)
		}
	}
	for _, w := range sum.Warnings {
		logger.Warn(w)
	}

	return Layout{
		Version: LayoutVersion,
		Screen:  opts.Screen,
		Objects: scene.ExportAll(reg.Snapshot().Objects),
		Camera:  action,
		Summary: sum,
	}, nil
}

// phase times fn and reports it to the workflow hooks.
func (r *Runner) phase(ctx context.Context, sum *Summary, name string, skip bool, fn func() error) error {
	if skip {
		sum.Phases = append(sum.Phases, PhaseTiming{Name: name, Skipped: true})
		return nil
	}
	hooks := observability.Workflow()
	hooks.OnPhaseStart(ctx, name, len(sum.Phases)+1)
	start := time.Now()
	err := fn()
	d := time.Since(start)
	hooks.OnPhaseComplete(ctx, name, d, err)
	sum.Phases = append(sum.Phases, PhaseTiming{Name: name, Duration: d})
	return err
}

// sceneKey is what identifies a scene for caching: every object as placed
// in the input plus whether its position was a hint.
type sceneKey struct {
	Objects []scene.Placed `json:"objects"`
	Hints   []*r3.Vec      `json:"hints"`
}

func (r *Runner) layoutKey(objs []scene.Object, opts *Options) (string, error) {
	k := sceneKey{Objects: scene.ExportAll(objs), Hints: make([]*r3.Vec, len(objs))}
	for i, o := range objs {
		k.Hints[i] = o.Hint
	}
	h, err := cache.HashValue(k)
	if err != nil {
		return "", errors.Wrap(errors.ErrCodeInvalidScene, err, "hash scene")
	}
	ko, err := opts.LayoutKeyOpts()
	if err != nil {
		return "", errors.Wrap(errors.ErrCodeInvalidConfig, err, "hash config")
	}
	return r.Keyer.LayoutKey(h, ko), nil
}

func (r *Runner) cached(ctx context.Context, key string) (Layout, bool) {
	data, hit, err := r.Cache.Get(ctx, key)
	if err != nil {
		r.Logger.Warn("layout cache unavailable", "err", err)
		return Layout{}, false
	}
	if !hit {
		observability.Cache().OnCacheMiss(ctx, key)
		return Layout{}, false
	}
	l, err := UnmarshalLayout(data)
	if err != nil {
		r.Logger.Debug("discarding cached layout", "err", err)
		observability.Cache().OnCacheMiss(ctx, key)
		return Layout{}, false
	}
	observability.Cache().OnCacheHit(ctx, key)
	return l, true
}

// applyLogger sets the runner's logger on options if not already set.
func (r *Runner) applyLogger(opts *Options) {
	if opts.Logger == nil {
		opts.Logger = r.Logger
	}
}

// Close releases the cache.
func (r *Runner) Close() error {
	return r.Cache.Close()
}
