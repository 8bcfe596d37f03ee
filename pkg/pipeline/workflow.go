package pipeline

import (
	"fmt"
	"math"
	"slices"

	"gonum.org/v1/gonum/stat"

	"github.com/matzehuels/sceneguard/pkg/camera"
	"github.com/matzehuels/sceneguard/pkg/errors"
	"github.com/matzehuels/sceneguard/pkg/overlap"
	"github.com/matzehuels/sceneguard/pkg/placement"
	"github.com/matzehuels/sceneguard/pkg/registry"
	"github.com/matzehuels/sceneguard/pkg/scene"
)

// Complexity labels produced by Analyze.
const (
	ComplexitySimple   = "simple"
	ComplexityModerate = "moderate"
	ComplexityComplex  = "complex"
)

// Analyze counts categories and measures how the hinted positions spread
// over the screen. Density is total footprint area over screen area.
func Analyze(objs []scene.Object, screen scene.BBox) Analysis {
	a := Analysis{Counts: make(map[scene.Category]int)}
	var xs, ys []float64
	var area float64
	for _, o := range objs {
		a.Counts[o.Category]++
		area += o.Width() * o.Height()
		if o.Hint != nil {
			xs = append(xs, o.Hint.X)
			ys = append(ys, o.Hint.Y)
		}
	}
	a.Hinted = len(xs)
	if len(xs) > 0 {
		a.MeanX, a.SpreadX = stat.PopMeanStdDev(xs, nil)
		a.MeanY, a.SpreadY = stat.PopMeanStdDev(ys, nil)
	}
	if s := screen.Area(); s > 0 {
		a.Density = area / s
	}
	a.Complexity = complexity(len(objs), len(a.Counts), a.Density)
	return a
}

func complexity(n, kinds int, density float64) string {
	switch {
	case n > 15 || density > 0.6:
		return ComplexityComplex
	case n > 5 || kinds > 2 || density > 0.3:
		return ComplexityModerate
	default:
		return ComplexitySimple
	}
}

// position places objs one at a time in arrival order. Each object is
// registered before the next is placed so later placements see it.
func position(reg *registry.Registry, eng *placement.Engine, objs []scene.Object, screen scene.BBox, sum *Summary) error {
	for i, o := range objs {
		res := eng.FindPlacement(o, reg.Snapshot().Objects, screen)
		z := o.ZOrder
		if z == 0 {
			z = i
		}
		if _, err := reg.Register(o.At(res.Position), z); err != nil {
			return err
		}
		sum.Positioned++
		sum.Strategies[res.Strategy]++
		sum.Placements = append(sum.Placements, Placement{
			ID: o.ID, Strategy: res.Strategy, Confidence: res.Confidence, Risk: res.Risk,
		})
		if res.Strategy == placement.StrategyFallback {
			err := errors.New(errors.ErrCodePlacementFailure, "no acceptable placement for %s; placed at screen centre", o.ID)
			sum.Warnings = append(sum.Warnings, err.Error())
		}
	}
	return nil
}

// sweep finds overlapping pairs at actual footprint size and moves the newer
// object of each pair to the first placement alternative that clears every
// other object. Pairs that cannot be cleared become warnings.
func sweep(reg *registry.Registry, eng *placement.Engine, screen scene.BBox, sum *Summary) {
	conflicts := overlap.Detect(reg.Snapshot().Objects, SweepFootprintScale)
	sum.Conflicts = len(conflicts)
	for _, c := range conflicts {
		a, okA := reg.Get(c.A.ID)
		b, okB := reg.Get(c.B.ID)
		if !okA || !okB || overlap.Measure(a, b, SweepFootprintScale).Area == 0 {
			sum.Resolved++
			continue
		}
		subject := scene.Newer(a, b)
		others := slices.DeleteFunc(reg.Snapshot().Objects, func(o scene.Object) bool { return o.ID == subject.ID })

		res := eng.FindPlacement(subject, others, screen)
		candidates := append([]placement.Alternative{{Position: res.Position, Risk: res.Risk}}, res.Alternatives...)
		moved := false
		for _, alt := range candidates {
			if clears(subject.At(alt.Position), others) {
				if err := reg.Move(subject.ID, alt.Position); err == nil {
					moved = true
				}
				break
			}
		}
		if moved {
			sum.Resolved++
			continue
		}
		sum.Warnings = append(sum.Warnings,
			fmt.Sprintf("unresolved overlap between %s and %s (ratio %.2f)", a.ID, b.ID, c.Ratio))
	}
}

func clears(o scene.Object, others []scene.Object) bool {
	for _, other := range others {
		if overlap.Measure(o, other, SweepFootprintScale).Area > 0 {
			return false
		}
	}
	return true
}

// Sequence splits objs into persistent and transient ids and returns the
// order they should appear in: persistent objects first, then transient
// ones, each group in creation order.
func Sequence(objs []scene.Object) (persistent, transient, order []string) {
	sorted := slices.Clone(objs)
	slices.SortStableFunc(sorted, func(a, b scene.Object) int {
		switch {
		case a.CreatedAt < b.CreatedAt:
			return -1
		case a.CreatedAt > b.CreatedAt:
			return 1
		}
		return 0
	})
	for _, o := range sorted {
		if o.Persistent {
			persistent = append(persistent, o.ID)
		} else {
			transient = append(transient, o.ID)
		}
	}
	order = append(slices.Clone(persistent), transient...)
	return persistent, transient, order
}

// frame asks the camera for an action over the visible objects.
func frame(framer *camera.Framer, objs []scene.Object, screen scene.BBox) camera.Action {
	visible := slices.DeleteFunc(slices.Clone(objs), func(o scene.Object) bool { return !o.Visible })
	return framer.Recommend(visible, camera.ViewportFor(screen))
}

// validate checks that every object has a finite position inside the screen
// and a non-negative size. Problems are returned as warnings.
func validate(objs []scene.Object, screen scene.BBox) []string {
	var warnings []string
	for _, o := range objs {
		p := o.Position
		switch {
		case !finite(p.X) || !finite(p.Y) || !finite(p.Z):
			warnings = append(warnings, fmt.Sprintf("%s has a non-finite position", o.ID))
		case !o.Size.Valid():
			warnings = append(warnings, fmt.Sprintf("%s has an invalid size", o.ID))
		case !screen.Contains(p):
			warnings = append(warnings, fmt.Sprintf("%s is outside the screen at (%.2f, %.2f)", o.ID, p.X, p.Y))
		}
	}
	return warnings
}

func finite(v float64) bool { return !math.IsNaN(v) && !math.IsInf(v, 0) }
