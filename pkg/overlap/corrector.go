package overlap

import (
	"context"
	"math"
	"time"

	"gonum.org/v1/gonum/spatial/r3"

	"github.com/matzehuels/sceneguard/pkg/errors"
	"github.com/matzehuels/sceneguard/pkg/scene"
)

// Target is the subset of the registry a SceneCorrector mutates.
type Target interface {
	Get(id string) (scene.Object, bool)
	Move(id string, p r3.Vec) error
	SetAppearDelay(id string, d time.Duration) error
}

// Fader hides a single object, typically through the fade-out coordinator.
type Fader interface {
	FadeOut(ctx context.Context, id string) error
}

// SceneCorrector is the default Corrector. It routes every change through
// the registry.
type SceneCorrector struct {
	target Target
	fader  Fader
	screen scene.BBox
	cfg    Config
}

// NewSceneCorrector creates a corrector over t. fader may be nil, in which
// case fade-out corrections fail with UNSUPPORTED.
func NewSceneCorrector(t Target, fader Fader, screen scene.BBox, cfg Config) *SceneCorrector {
	cfg.SetDefaults()
	return &SceneCorrector{target: t, fader: fader, screen: screen, cfg: cfg}
}

// Apply performs the task's action.
func (c *SceneCorrector) Apply(ctx context.Context, t Task) error {
	if err := ctx.Err(); err != nil {
		return errors.Wrap(errors.ErrCodeCancelled, err, "task %s", t.ID)
	}
	switch t.Action {
	case ActionImmediateFadeOut:
		if c.fader == nil {
			return errors.New(errors.ErrCodeUnsupported, "no fader configured")
		}
		if err := c.fader.FadeOut(ctx, t.Subject); err != nil {
			return errors.Wrap(errors.ErrCodeCorrectionFailure, err, "fade out %s", t.Subject)
		}
		return nil
	case ActionTextReposition:
		return c.reposition(t.Subject, t.Other)
	case ActionTimingAdjustment:
		o, ok := c.target.Get(t.Subject)
		if !ok {
			return errors.NotFound(t.Subject)
		}
		return c.target.SetAppearDelay(t.Subject, o.AppearDelay+c.cfg.PreDelay)
	case ActionMonitorOnly:
		return nil
	}
	return errors.New(errors.ErrCodeUnsupported, "unknown correction action %q", t.Action)
}

// corners are the reposition directions in order of preference: above-right
// first, then its mirrors.
var corners = [...][2]float64{{1, 1}, {-1, 1}, {1, -1}, {-1, -1}}

// reposition moves subject diagonally away from other, far enough that their
// footprints no longer intersect. Above-right is tried first; a candidate
// that the on-screen clamp pushes back onto other is discarded.
func (c *SceneCorrector) reposition(subject, other string) error {
	s, ok := c.target.Get(subject)
	if !ok {
		return errors.NotFound(subject)
	}
	o, ok := c.target.Get(other)
	if !ok {
		return errors.NotFound(other)
	}
	w, h := s.Width(), s.Height()
	reach := ((s.Radius()+o.Radius())*c.cfg.FootprintScale + c.cfg.RepositionGap) / math.Sqrt2
	dx := math.Max(o.Width()/2+c.cfg.RepositionGap+w/2, reach)
	dy := math.Max(o.Height()/2+c.cfg.RepositionGap+h/2, reach)
	inner := c.screen.InnerFor(w, h)
	for _, k := range corners {
		p := inner.Clamp(r3.Vec{X: o.Position.X + k[0]*dx, Y: o.Position.Y + k[1]*dy, Z: s.Position.Z})
		if Measure(s.At(p), o, c.cfg.FootprintScale).Area == 0 {
			return c.target.Move(subject, p)
		}
	}
	return errors.New(errors.ErrCodeCorrectionFailure, "no on-screen position clears %s of %s", subject, other)
}
