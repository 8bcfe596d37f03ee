package placement

import (
	"math"

	"gonum.org/v1/gonum/spatial/r3"

	"github.com/matzehuels/sceneguard/pkg/scene"
)

// CollisionRisk scores how crowded point p is for an object of footprint
// radius r. It returns 0 when every existing object is at least
// r + other + margin away, and otherwise 1 − d/threshold for the worst pair,
// so the value approaches 1 as centres coincide.
func CollisionRisk(p r3.Vec, r float64, existing []scene.Object, margin float64) float64 {
	var risk float64
	for _, o := range existing {
		threshold := r + o.Radius() + margin
		if threshold <= 0 {
			continue
		}
		d := scene.Distance2D(p, o.Position)
		if d >= threshold {
			continue
		}
		risk = math.Max(risk, 1-d/threshold)
	}
	return risk
}

// clearance returns the smallest gap between a footprint of radius r at p
// and any existing footprint. With no objects it returns +Inf.
func clearance(p r3.Vec, r float64, existing []scene.Object) float64 {
	gap := math.Inf(1)
	for _, o := range existing {
		gap = math.Min(gap, scene.Distance2D(p, o.Position)-r-o.Radius())
	}
	return gap
}
