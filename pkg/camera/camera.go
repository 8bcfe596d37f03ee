// Package camera decides whether the viewport should move to keep a scene in
// frame.
//
// A [Framer] looks at the union bounding box of a set of objects and returns
// one [Action]: zoom out when the box (plus a margin) no longer fits, pan when
// objects drift out of the optimal inner zone, or nothing. The margin depends
// on what is on screen: mathematical content gets a tight margin to keep
// coordinates precise, text a loose one to avoid clipping.
package camera

import (
	"io"
	"math"
	"time"

	"github.com/charmbracelet/log"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/matzehuels/sceneguard/pkg/errors"
	"github.com/matzehuels/sceneguard/pkg/scene"
)

// =============================================================================
// Configuration
// =============================================================================

const (
	DefaultMargin        = 0.15
	DefaultMathMargin    = 0.08
	DefaultTextMargin    = 0.20
	DefaultOptimalZone   = 0.9
	DefaultMinFrameWidth = 4.0
	DefaultMaxFrameWidth = 60.0
	DefaultZoomDuration  = time.Second
	DefaultPanDuration   = 800 * time.Millisecond
)

// Config holds the framing tunables.
type Config struct {
	Margin        float64       `toml:"margin" json:"margin"`
	MathMargin    float64       `toml:"math_margin" json:"math_margin"`
	TextMargin    float64       `toml:"text_margin" json:"text_margin"`
	OptimalZone   float64       `toml:"optimal_zone" json:"optimal_zone"`
	MinFrameWidth float64       `toml:"min_frame_width" json:"min_frame_width"`
	MaxFrameWidth float64       `toml:"max_frame_width" json:"max_frame_width"`
	ZoomDuration  time.Duration `toml:"zoom_duration" json:"zoom_duration"`
	PanDuration   time.Duration `toml:"pan_duration" json:"pan_duration"`
}

// DefaultConfig returns the documented defaults.
func DefaultConfig() Config {
	var c Config
	c.SetDefaults()
	return c
}

// SetDefaults fills zero-valued fields.
func (c *Config) SetDefaults() {
	if c.Margin == 0 {
		c.Margin = DefaultMargin
	}
	if c.MathMargin == 0 {
		c.MathMargin = DefaultMathMargin
	}
	if c.TextMargin == 0 {
		c.TextMargin = DefaultTextMargin
	}
	if c.OptimalZone == 0 {
		c.OptimalZone = DefaultOptimalZone
	}
	if c.MinFrameWidth == 0 {
		c.MinFrameWidth = DefaultMinFrameWidth
	}
	if c.MaxFrameWidth == 0 {
		c.MaxFrameWidth = DefaultMaxFrameWidth
	}
	if c.ZoomDuration == 0 {
		c.ZoomDuration = DefaultZoomDuration
	}
	if c.PanDuration == 0 {
		c.PanDuration = DefaultPanDuration
	}
}

// Validate checks ranges. Call SetDefaults first.
func (c Config) Validate() error {
	for name, v := range map[string]float64{
		"camera.margin":       c.Margin,
		"camera.math_margin":  c.MathMargin,
		"camera.text_margin":  c.TextMargin,
		"camera.optimal_zone": c.OptimalZone,
	} {
		if v <= 0 || v >= 1 {
			return errors.New(errors.ErrCodeInvalidConfig, "%s must be within (0, 1), got %g", name, v)
		}
	}
	if c.MinFrameWidth <= 0 || c.MaxFrameWidth < c.MinFrameWidth {
		return errors.New(errors.ErrCodeInvalidConfig, "camera frame width range [%g, %g] is invalid", c.MinFrameWidth, c.MaxFrameWidth)
	}
	return nil
}

// =============================================================================
// Types
// =============================================================================

// Viewport is the visible frame.
type Viewport struct {
	Center r3.Vec  `json:"center"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// ViewportFor returns the viewport that exactly shows b.
func ViewportFor(b scene.BBox) Viewport {
	return Viewport{Center: b.Center(), Width: b.Width(), Height: b.Height()}
}

// Box returns the viewport as a bounding box.
func (v Viewport) Box() scene.BBox { return scene.BoxAround(v.Center, v.Width, v.Height) }

// Aspect returns width over height, or 16:9 for a degenerate viewport.
func (v Viewport) Aspect() float64 {
	if v.Height <= 0 {
		return 16.0 / 9.0
	}
	return v.Width / v.Height
}

// Kind is the camera move to make.
type Kind string

const (
	KindNone    Kind = "none"
	KindZoomOut Kind = "zoom_out"
	KindPan     Kind = "pan"
)

// Action is a camera directive for the downstream scene generator.
type Action struct {
	Kind         Kind          `json:"kind"`
	TargetCenter r3.Vec        `json:"target_center"`
	TargetWidth  float64       `json:"target_width"`
	TargetHeight float64       `json:"target_height"`
	Duration     time.Duration `json:"duration"`
	Reason       string        `json:"reason,omitempty"`
}

// Viewport returns the frame the action ends on.
func (a Action) Viewport() Viewport {
	return Viewport{Center: a.TargetCenter, Width: a.TargetWidth, Height: a.TargetHeight}
}

// =============================================================================
// Geometry
// =============================================================================

// ComputeBoundingBox returns the union of the objects' boxes. It reports
// false for an empty set.
func ComputeBoundingBox(objs []scene.Object) (scene.BBox, bool) {
	if len(objs) == 0 {
		return scene.BBox{}, false
	}
	b := objs[0].Box
	for _, o := range objs[1:] {
		b = b.Union(o.Box)
	}
	return b, true
}

// FitsInView reports whether b, grown by margin on every side (as a fraction
// of its own size), lies inside the viewport.
func FitsInView(b scene.BBox, vp Viewport, margin float64) bool {
	grown := scene.BoxAround(b.Center(), b.Width()*(1+margin), b.Height()*(1+margin))
	return vp.Box().ContainsBox(grown)
}

// =============================================================================
// Framer
// =============================================================================

// Framer turns object sets into camera actions. It is stateless and safe for
// concurrent use.
type Framer struct {
	cfg    Config
	logger *log.Logger
}

// New creates a Framer. Zero config fields take their defaults.
func New(cfg Config, logger *log.Logger) *Framer {
	cfg.SetDefaults()
	if logger == nil {
		logger = log.New(io.Discard)
	}
	return &Framer{cfg: cfg, logger: logger}
}

// MarginFor picks the framing margin for a set of objects: any text widens
// it, a purely mathematical set tightens it.
func (f *Framer) MarginFor(objs []scene.Object) float64 {
	if len(objs) == 0 {
		return f.cfg.Margin
	}
	allMath := true
	for _, o := range objs {
		if o.Category == scene.CategoryText {
			return f.cfg.TextMargin
		}
		allMath = allMath && o.Category.IsMathematical()
	}
	if allMath {
		return f.cfg.MathMargin
	}
	return f.cfg.Margin
}

// Recommend returns the camera action that keeps objs framed in vp.
func (f *Framer) Recommend(objs []scene.Object, vp Viewport) Action {
	none := Action{Kind: KindNone, TargetCenter: vp.Center, TargetWidth: vp.Width, TargetHeight: vp.Height}

	b, ok := ComputeBoundingBox(objs)
	if !ok {
		none.Reason = "no objects"
		return none
	}
	m := f.MarginFor(objs)

	if b.Width()*(1+m) > vp.Width || b.Height()*(1+m) > vp.Height {
		a := f.zoomOut(b, vp, m)
		f.logger.Debug("camera zoom out", "width", a.TargetWidth, "margin", m)
		return a
	}

	zone := scene.BoxAround(vp.Center, vp.Width*f.cfg.OptimalZone, vp.Height*f.cfg.OptimalZone)
	outside := !FitsInView(b, vp, m)
	for _, o := range objs {
		if !zone.Contains(o.Position) {
			outside = true
			break
		}
	}
	if !outside {
		none.Reason = "scene fits"
		return none
	}

	a, moved := f.pan(b, vp)
	if !moved {
		none.Reason = "scene centred"
		return none
	}
	f.logger.Debug("camera pan", "x", a.TargetCenter.X, "y", a.TargetCenter.Y)
	return a
}

// zoomOut widens the frame so b occupies at most 1−m of it. The aspect ratio
// is preserved and the width clamped to the configured range; a zoom-out
// never narrows the current frame.
func (f *Framer) zoomOut(b scene.BBox, vp Viewport, m float64) Action {
	aspect := vp.Aspect()
	w := math.Max(b.Width(), b.Height()*aspect) / (1 - m)
	w = math.Max(w, vp.Width)
	w = math.Min(math.Max(w, f.cfg.MinFrameWidth), f.cfg.MaxFrameWidth)
	return Action{
		Kind:         KindZoomOut,
		TargetCenter: b.Center(),
		TargetWidth:  w,
		TargetHeight: w / aspect,
		Duration:     f.cfg.ZoomDuration,
		Reason:       "scene exceeds frame",
	}
}

// pan moves toward the centroid of b. The displacement is clamped to the
// optimal zone's half-extent on each axis unless the clamped move would still
// leave the centroid outside the new zone, in which case the frame centres
// on the centroid.
func (f *Framer) pan(b scene.BBox, vp Viewport) (Action, bool) {
	c := b.Center()
	hx := vp.Width * f.cfg.OptimalZone / 2
	hy := vp.Height * f.cfg.OptimalZone / 2
	dx := math.Min(math.Max(c.X-vp.Center.X, -hx), hx)
	dy := math.Min(math.Max(c.Y-vp.Center.Y, -hy), hy)
	if math.Abs(c.X-vp.Center.X-dx) > hx || math.Abs(c.Y-vp.Center.Y-dy) > hy {
		dx, dy = c.X-vp.Center.X, c.Y-vp.Center.Y
	}
	if math.Abs(dx) < 1e-9 && math.Abs(dy) < 1e-9 {
		return Action{}, false
	}
	return Action{
		Kind:         KindPan,
		TargetCenter: r3.Vec{X: vp.Center.X + dx, Y: vp.Center.Y + dy},
		TargetWidth:  vp.Width,
		TargetHeight: vp.Height,
		Duration:     f.cfg.PanDuration,
		Reason:       "objects outside optimal zone",
	}, true
}
