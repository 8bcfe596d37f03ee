package overlap

import (
	"math"

	"github.com/matzehuels/sceneguard/pkg/scene"
)

// LiveOpacity is the opacity above which a visible object takes part in
// overlap detection. Anything at or below it counts as removed.
const LiveOpacity = 0.1

// CircleOverlapArea returns the area shared by two circles of radii r1 and
// r2 whose centres are d apart. It is 0 when d >= r1+r2 and the full area of
// the smaller circle when one contains the other.
func CircleOverlapArea(d, r1, r2 float64) float64 {
	if r1 <= 0 || r2 <= 0 || d >= r1+r2 {
		return 0
	}
	if d <= math.Abs(r1-r2) {
		r := math.Min(r1, r2)
		return math.Pi * r * r
	}
	// Half-angles subtended by the chord, from the law of cosines.
	a1 := math.Acos(clampCos((d*d + r1*r1 - r2*r2) / (2 * d * r1)))
	a2 := math.Acos(clampCos((d*d + r2*r2 - r1*r1) / (2 * d * r2)))
	return r1*r1*(a1-math.Sin(2*a1)/2) + r2*r2*(a2-math.Sin(2*a2)/2)
}

func clampCos(v float64) float64 { return math.Min(math.Max(v, -1), 1) }

// Overlap is the measured conflict between two objects.
type Overlap struct {
	A, B     scene.Object
	Area     float64
	Ratio    float64
	Distance float64
	Severity Severity
}

// Measure computes the overlap between a and b with both footprint radii
// multiplied by scale.
func Measure(a, b scene.Object, scale float64) Overlap {
	r1, r2 := a.Radius()*scale, b.Radius()*scale
	d := scene.Distance2D(a.Position, b.Position)
	area := CircleOverlapArea(d, r1, r2)
	var ratio float64
	if rmin := math.Min(r1, r2); rmin > 0 {
		ratio = math.Min(area/(math.Pi*rmin*rmin), 1)
	}
	return Overlap{A: a, B: b, Area: area, Ratio: ratio, Distance: d, Severity: Classify(ratio)}
}

// Detect returns every overlapping pair among the live objects, in snapshot
// order. Objects that are hidden or faded to LiveOpacity or below are
// ignored.
func Detect(objs []scene.Object, scale float64) []Overlap {
	live := make([]scene.Object, 0, len(objs))
	for _, o := range objs {
		if o.Visible && o.Opacity > LiveOpacity {
			live = append(live, o)
		}
	}
	var out []Overlap
	for i := range live {
		for j := i + 1; j < len(live); j++ {
			if ov := Measure(live[i], live[j], scale); ov.Area > 0 {
				out = append(out, ov)
			}
		}
	}
	return out
}
