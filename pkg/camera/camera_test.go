package camera

import (
	"math"
	"testing"

	"gonum.org/v1/gonum/spatial/r3"

	"github.com/matzehuels/sceneguard/pkg/scene"
)

var vp = ViewportFor(scene.DefaultScreen)

func obj(id string, c scene.Category, size scene.Size, x, y float64) scene.Object {
	return scene.NewObject(id, c, size).At(r3.Vec{X: x, Y: y})
}

func near(a, b float64) bool { return math.Abs(a-b) < 1e-9 }

func TestComputeBoundingBox(t *testing.T) {
	if _, ok := ComputeBoundingBox(nil); ok {
		t.Error("ComputeBoundingBox(nil) should report false")
	}
	b, ok := ComputeBoundingBox([]scene.Object{
		obj("a", scene.CategoryShape, scene.Circle(1), -2, 0),
		obj("b", scene.CategoryShape, scene.Rect(2, 4), 3, 1),
	})
	want := scene.BBox{MinX: -3, MinY: -1, MaxX: 4, MaxY: 3}
	if !ok || b != want {
		t.Errorf("ComputeBoundingBox = %+v, %v; want %+v", b, ok, want)
	}
}

func TestFitsInView(t *testing.T) {
	tests := []struct {
		name   string
		b      scene.BBox
		margin float64
		want   bool
	}{
		{"small centred", scene.BoxAround(r3.Vec{}, 2, 2), 0.15, true},
		{"exact fit no margin", scene.DefaultScreen, 0, true},
		{"exact fit with margin", scene.DefaultScreen, 0.1, false},
		{"off to the side", scene.BoxAround(r3.Vec{X: 7}, 1, 1), 0.1, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := FitsInView(tt.b, vp, tt.margin); got != tt.want {
				t.Errorf("FitsInView = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestMarginFor(t *testing.T) {
	f := New(Config{}, nil)
	tests := []struct {
		name string
		cats []scene.Category
		want float64
	}{
		{"empty", nil, DefaultMargin},
		{"shapes", []scene.Category{scene.CategoryShape, scene.CategoryPoint}, DefaultMargin},
		{"math only", []scene.Category{scene.CategoryAxes, scene.CategoryCurve}, DefaultMathMargin},
		{"text wins", []scene.Category{scene.CategoryAxes, scene.CategoryText}, DefaultTextMargin},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var objs []scene.Object
			for _, c := range tt.cats {
				objs = append(objs, obj("o", c, scene.Circle(1), 0, 0))
			}
			if got := f.MarginFor(objs); got != tt.want {
				t.Errorf("MarginFor = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestRecommendNone(t *testing.T) {
	f := New(Config{}, nil)
	a := f.Recommend([]scene.Object{obj("c", scene.CategoryShape, scene.Circle(1), 0, 0)}, vp)
	if a.Kind != KindNone {
		t.Errorf("Kind = %v, want none (%s)", a.Kind, a.Reason)
	}
	if a := f.Recommend(nil, vp); a.Kind != KindNone {
		t.Errorf("empty Kind = %v, want none", a.Kind)
	}
}

func TestRecommendZoomOut(t *testing.T) {
	f := New(Config{}, nil)
	objs := []scene.Object{
		obj("l", scene.CategoryShape, scene.Circle(0.5), -6.5, 0),
		obj("r", scene.CategoryShape, scene.Circle(0.5), 6.5, 0),
	}
	a := f.Recommend(objs, vp)
	if a.Kind != KindZoomOut {
		t.Fatalf("Kind = %v, want zoom_out", a.Kind)
	}
	if !near(a.TargetWidth, 14/(1-DefaultMargin)) {
		t.Errorf("TargetWidth = %v, want %v", a.TargetWidth, 14/(1-DefaultMargin))
	}
	if !near(a.TargetWidth/a.TargetHeight, vp.Aspect()) {
		t.Errorf("aspect = %v, want %v", a.TargetWidth/a.TargetHeight, vp.Aspect())
	}
	if a.Duration != DefaultZoomDuration {
		t.Errorf("Duration = %v, want %v", a.Duration, DefaultZoomDuration)
	}
}

func TestRecommendMathMarginAvoidsZoom(t *testing.T) {
	f := New(Config{}, nil)
	axes := obj("ax", scene.CategoryAxes, scene.Rect(13, 7), 0, 0)
	if a := f.Recommend([]scene.Object{axes}, vp); a.Kind != KindNone {
		t.Errorf("axes Kind = %v, want none with the tight math margin", a.Kind)
	}
	shape := obj("sq", scene.CategoryShape, scene.Rect(13, 7), 0, 0)
	if a := f.Recommend([]scene.Object{shape}, vp); a.Kind != KindZoomOut {
		t.Errorf("shape Kind = %v, want zoom_out with the default margin", a.Kind)
	}
}

func TestRecommendZoomClampsWidth(t *testing.T) {
	f := New(Config{}, nil)
	a := f.Recommend([]scene.Object{obj("wide", scene.CategoryShape, scene.Rect(200, 10), 0, 0)}, vp)
	if a.Kind != KindZoomOut || a.TargetWidth != DefaultMaxFrameWidth {
		t.Errorf("got %v width %v, want zoom_out clamped to %v", a.Kind, a.TargetWidth, DefaultMaxFrameWidth)
	}
}

func TestRecommendPanClamped(t *testing.T) {
	f := New(Config{}, nil)
	a := f.Recommend([]scene.Object{obj("edge", scene.CategoryShape, scene.Circle(0.5), 6.8, 0)}, vp)
	if a.Kind != KindPan {
		t.Fatalf("Kind = %v, want pan", a.Kind)
	}
	half := vp.Width * DefaultOptimalZone / 2
	if !near(a.TargetCenter.X, half) || a.TargetCenter.Y != 0 {
		t.Errorf("TargetCenter = %v, want (%v, 0)", a.TargetCenter, half)
	}
	zone := scene.BoxAround(a.TargetCenter, vp.Width*DefaultOptimalZone, vp.Height*DefaultOptimalZone)
	if !zone.Contains(r3.Vec{X: 6.8}) {
		t.Error("centroid should lie inside the new optimal zone")
	}
	if a.TargetWidth != vp.Width || a.TargetHeight != vp.Height {
		t.Error("pan must not change the frame size")
	}
}

func TestRecommendPanFarObject(t *testing.T) {
	f := New(Config{}, nil)
	objs := []scene.Object{obj("far", scene.CategoryShape, scene.Circle(0.1), 20, 0)}
	a := f.Recommend(objs, vp)
	if a.Kind != KindPan {
		t.Fatalf("Kind = %v, want pan", a.Kind)
	}
	if !near(a.TargetCenter.X, 20) || a.TargetCenter.Y != 0 {
		t.Errorf("TargetCenter = %v, want (20, 0)", a.TargetCenter)
	}
	zone := scene.BoxAround(a.TargetCenter, a.TargetWidth*DefaultOptimalZone, a.TargetHeight*DefaultOptimalZone)
	if !zone.Contains(r3.Vec{X: 20}) {
		t.Error("centroid should lie inside the new optimal zone")
	}
	b, _ := ComputeBoundingBox(objs)
	if !FitsInView(b, a.Viewport(), f.MarginFor(objs)) {
		t.Error("object should be visible in the new frame")
	}
	if again := f.Recommend(objs, a.Viewport()); again.Kind != KindNone {
		t.Errorf("second Recommend = %v, want none", again.Kind)
	}
}

func TestConfigValidate(t *testing.T) {
	if err := DefaultConfig().Validate(); err != nil {
		t.Fatalf("default config invalid: %v", err)
	}
	c := DefaultConfig()
	c.MaxFrameWidth = 1
	if err := c.Validate(); err == nil {
		t.Error("max < min frame width should be rejected")
	}
}
