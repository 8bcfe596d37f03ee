package overlap

import (
	"math"
	"testing"

	"gonum.org/v1/gonum/spatial/r3"

	"github.com/matzehuels/sceneguard/pkg/errors"
	"github.com/matzehuels/sceneguard/pkg/scene"
)

func TestCircleOverlapArea(t *testing.T) {
	tests := []struct {
		name      string
		d, r1, r2 float64
		want      float64
	}{
		{"disjoint", 3, 1, 1, 0},
		{"tangent", 2, 1, 1, 0},
		{"concentric", 0, 1, 1, math.Pi},
		{"contained", 0.5, 3, 1, math.Pi},
		{"unit lens", 1, 1, 1, 2*math.Acos(0.5) - 0.5*math.Sqrt(3)},
		{"zero radius", 0, 0, 1, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := CircleOverlapArea(tt.d, tt.r1, tt.r2)
			if math.Abs(got-tt.want) > 1e-9 {
				t.Errorf("CircleOverlapArea(%v, %v, %v) = %v, want %v", tt.d, tt.r1, tt.r2, got, tt.want)
			}
		})
	}
}

func TestCircleOverlapAreaPositiveIffIntersecting(t *testing.T) {
	for _, r1 := range []float64{0.1, 0.5, 1, 2.5} {
		for _, r2 := range []float64{0.1, 1, 3} {
			for k := range 120 {
				// Offset keeps d clear of the tangency points, which are
				// multiples of 0.05.
				d := float64(k)*0.05 + 0.013
				area := CircleOverlapArea(d, r1, r2)
				if (area > 0) != (d < r1+r2) {
					t.Fatalf("d=%v r1=%v r2=%v: area %v, intersecting %v", d, r1, r2, area, d < r1+r2)
				}
				rmin := math.Min(r1, r2)
				if area > math.Pi*rmin*rmin+1e-9 {
					t.Fatalf("d=%v r1=%v r2=%v: area %v exceeds smaller circle", d, r1, r2, area)
				}
				if sym := CircleOverlapArea(d, r2, r1); math.Abs(sym-area) > 1e-9 {
					t.Fatalf("area not symmetric: %v vs %v", area, sym)
				}
			}
		}
	}
}

func TestClassify(t *testing.T) {
	tests := []struct {
		ratio float64
		want  Severity
	}{
		{0, SeverityLow},
		{0.2, SeverityLow},
		{0.21, SeverityMedium},
		{0.5, SeverityMedium},
		{0.51, SeverityHigh},
		{0.8, SeverityHigh},
		{0.81, SeverityCritical},
		{1, SeverityCritical},
	}
	for _, tt := range tests {
		if got := Classify(tt.ratio); got != tt.want {
			t.Errorf("Classify(%v) = %v, want %v", tt.ratio, got, tt.want)
		}
	}
}

func TestSeverityText(t *testing.T) {
	for _, s := range []Severity{SeverityLow, SeverityMedium, SeverityHigh, SeverityCritical} {
		b, _ := s.MarshalText()
		var got Severity
		if err := got.UnmarshalText(b); err != nil || got != s {
			t.Errorf("round trip %v = %v, %v", s, got, err)
		}
	}
	for _, name := range []string{"", "unknown", "CRITICAL", "severe"} {
		got := SeverityHigh
		err := got.UnmarshalText([]byte(name))
		if !errors.Is(err, errors.ErrCodeInvalidInput) {
			t.Errorf("UnmarshalText(%q) error = %v, want INVALID_INPUT", name, err)
		}
		if got != SeverityHigh {
			t.Errorf("UnmarshalText(%q) changed the value to %v", name, got)
		}
	}
}

func TestSuggestAction(t *testing.T) {
	mk := func(id string, c scene.Category, created uint64, persistent bool) scene.Object {
		o := scene.NewObject(id, c, scene.Circle(1))
		o.CreatedAt = created
		o.Persistent = persistent
		return o
	}
	shapeOld := mk("old", scene.CategoryShape, 1, false)
	shapeNew := mk("new", scene.CategoryShape, 2, false)
	axesNew := mk("axes", scene.CategoryAxes, 3, true)
	text := mk("label", scene.CategoryText, 4, false)
	text2 := mk("label2", scene.CategoryText, 5, false)

	tests := []struct {
		name        string
		s           Severity
		a, b        scene.Object
		wantAction  Action
		wantSubject string
	}{
		{"critical transient newer", SeverityCritical, shapeOld, shapeNew, ActionImmediateFadeOut, "new"},
		{"critical persistent newer", SeverityCritical, shapeOld, axesNew, ActionTimingAdjustment, "axes"},
		{"critical with text", SeverityCritical, text, shapeOld, ActionTextReposition, "label"},
		{"critical text pair", SeverityCritical, text, text2, ActionTextReposition, "label2"},
		{"high text pair", SeverityHigh, text2, text, ActionTextReposition, "label2"},
		{"high shapes", SeverityHigh, shapeOld, shapeNew, ActionMonitorOnly, ""},
		{"medium", SeverityMedium, text, text2, ActionMonitorOnly, ""},
		{"low", SeverityLow, shapeOld, shapeNew, ActionMonitorOnly, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			action, subject := SuggestAction(tt.s, tt.a, tt.b)
			if action != tt.wantAction || subject != tt.wantSubject {
				t.Errorf("SuggestAction = (%v, %q), want (%v, %q)", action, subject, tt.wantAction, tt.wantSubject)
			}
		})
	}
}

func TestDetectSkipsHiddenObjects(t *testing.T) {
	a := scene.NewObject("a", scene.CategoryShape, scene.Circle(1))
	b := scene.NewObject("b", scene.CategoryShape, scene.Circle(1)).At(r3.Vec{X: 0.5})
	if got := Detect([]scene.Object{a, b}, 1); len(got) != 1 {
		t.Fatalf("Detect = %d overlaps, want 1", len(got))
	}
	b.Opacity = LiveOpacity
	if got := Detect([]scene.Object{a, b}, 1); len(got) != 0 {
		t.Errorf("faded object should be ignored, got %d overlaps", len(got))
	}
	b.Opacity, b.Visible = 1, false
	if got := Detect([]scene.Object{a, b}, 1); len(got) != 0 {
		t.Errorf("hidden object should be ignored, got %d overlaps", len(got))
	}
}

func TestMeasureTwoUnitCirclesHalfApart(t *testing.T) {
	a := scene.NewObject("a", scene.CategoryShape, scene.Circle(1))
	b := scene.NewObject("b", scene.CategoryShape, scene.Circle(1)).At(r3.Vec{X: 0.5})
	ov := Measure(a, b, DefaultFootprintScale)
	if ov.Ratio <= 0.8 || ov.Severity != SeverityCritical {
		t.Errorf("ratio %v severity %v, want > 0.8 and critical", ov.Ratio, ov.Severity)
	}
}
