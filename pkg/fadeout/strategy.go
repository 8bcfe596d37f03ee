package fadeout

import (
	"context"
	"time"

	"gonum.org/v1/gonum/spatial/r3"

	"github.com/matzehuels/sceneguard/pkg/errors"
	"github.com/matzehuels/sceneguard/pkg/scene"
)

// Target is the subset of the registry the coordinator mutates.
// *registry.Registry satisfies it.
type Target interface {
	Get(id string) (scene.Object, bool)
	UpdateVisibility(id string, visible bool, opacity float64) error
	SetFadeInProgress(id string, inProgress bool) error
	SetScale(id string, scale float64) error
	Move(id string, p r3.Vec) error
	Remove(id string) error
}

// Strategy is one way of making an object disappear.
type Strategy struct {
	Name  string
	Apply func(ctx context.Context, t Target, o scene.Object) error
}

// Strategy names.
const (
	StrategyStandardFade = "standard_fade"
	StrategyGradualRamp  = "gradual_ramp"
	StrategyInstantHide  = "instant_hide"
	StrategyScaleToZero  = "scale_to_zero"
	StrategyForcedRemove = "forced_removal"
	StrategyOffscreen    = "offscreen_displacement"
)

// offscreen is far outside any reasonable frame.
var offscreen = r3.Vec{X: 1e4, Y: 1e4}

// PrimaryStrategies returns the default primary chain.
func PrimaryStrategies(cfg Config) []Strategy {
	return []Strategy{
		{Name: StrategyStandardFade, Apply: standardFade},
		{Name: StrategyGradualRamp, Apply: gradualRamp(cfg.RampSteps, cfg.RampInterval)},
		{Name: StrategyInstantHide, Apply: instantHide},
		{Name: StrategyScaleToZero, Apply: scaleToZero},
	}
}

// EscalationStrategies returns the default escalation chain.
func EscalationStrategies() []Strategy {
	return []Strategy{
		{Name: StrategyForcedRemove, Apply: forcedRemove},
		{Name: StrategyOffscreen, Apply: displaceOffscreen},
	}
}

func standardFade(_ context.Context, t Target, o scene.Object) error {
	if err := t.SetFadeInProgress(o.ID, true); err != nil {
		return err
	}
	if err := t.UpdateVisibility(o.ID, false, 0); err != nil {
		_ = t.SetFadeInProgress(o.ID, false)
		return err
	}
	return t.SetFadeInProgress(o.ID, false)
}

func gradualRamp(steps int, interval time.Duration) func(context.Context, Target, scene.Object) error {
	return func(ctx context.Context, t Target, o scene.Object) error {
		if err := t.SetFadeInProgress(o.ID, true); err != nil {
			return err
		}
		// Clear the flag on every exit so an aborted ramp is not a
		// contradiction forever.
		defer func() { _ = t.SetFadeInProgress(o.ID, false) }()

		for i := 1; i <= steps; i++ {
			op := o.Opacity * (1 - float64(i)/float64(steps))
			if err := t.UpdateVisibility(o.ID, true, op); err != nil {
				return err
			}
			if interval > 0 && i < steps {
				select {
				case <-ctx.Done():
					return errors.Wrap(errors.ErrCodeCancelled, ctx.Err(), "ramp on %s interrupted", o.ID)
				case <-time.After(interval):
				}
			}
		}
		return t.UpdateVisibility(o.ID, false, 0)
	}
}

func instantHide(_ context.Context, t Target, o scene.Object) error {
	return t.UpdateVisibility(o.ID, false, o.Opacity)
}

func scaleToZero(_ context.Context, t Target, o scene.Object) error {
	if err := t.SetScale(o.ID, 0); err != nil {
		return err
	}
	return t.UpdateVisibility(o.ID, o.Visible, 0)
}

func forcedRemove(_ context.Context, t Target, o scene.Object) error {
	if err := t.Remove(o.ID); err != nil && !errors.IsNotFound(err) {
		return err
	}
	return nil
}

func displaceOffscreen(_ context.Context, t Target, o scene.Object) error {
	if err := t.Move(o.ID, offscreen); err != nil {
		return err
	}
	return t.UpdateVisibility(o.ID, false, 0)
}
