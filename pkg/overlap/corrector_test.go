package overlap

import (
	"context"
	"testing"
	"time"

	"github.com/matzehuels/sceneguard/pkg/errors"
	"github.com/matzehuels/sceneguard/pkg/registry"
	"github.com/matzehuels/sceneguard/pkg/scene"
)

func TestSceneCorrectorApply(t *testing.T) {
	type placed struct {
		id   string
		cat  scene.Category
		r    float64
		x, y float64
	}
	tests := []struct {
		name     string
		screen   scene.BBox
		objects  []placed
		task     Task
		wantCode errors.Code
		check    func(t *testing.T, reg *registry.Registry)
	}{
		{
			name:   "reposition above right",
			screen: scene.DefaultScreen,
			objects: []placed{
				{"circle", scene.CategoryShape, 0.5, 0, 0},
				{"label", scene.CategoryText, 0.5, 0.3, 0},
			},
			task: Task{ID: "t1", Subject: "label", Other: "circle", Action: ActionTextReposition},
			check: func(t *testing.T, reg *registry.Registry) {
				label, _ := reg.Get("label")
				circle, _ := reg.Get("circle")
				if label.Position.X <= circle.Position.X || label.Position.Y <= circle.Position.Y {
					t.Errorf("label at %v, want above right of %v", label.Position, circle.Position)
				}
				if ov := Measure(label, circle, DefaultFootprintScale); ov.Area != 0 {
					t.Errorf("label still overlaps circle: ratio %v", ov.Ratio)
				}
			},
		},
		{
			name:   "reposition near top right corner",
			screen: scene.DefaultScreen,
			objects: []placed{
				{"circle", scene.CategoryShape, 0.5, 6.6, 3.5},
				{"label", scene.CategoryText, 0.5, 6.5, 3.4},
			},
			task: Task{ID: "t2", Subject: "label", Other: "circle", Action: ActionTextReposition},
			check: func(t *testing.T, reg *registry.Registry) {
				label, _ := reg.Get("label")
				circle, _ := reg.Get("circle")
				if ov := Measure(label, circle, DefaultFootprintScale); ov.Area != 0 {
					t.Errorf("label at %v still overlaps circle: ratio %v", label.Position, ov.Ratio)
				}
				if !scene.DefaultScreen.ContainsBox(label.Box) {
					t.Errorf("label box %+v left the screen", label.Box)
				}
			},
		},
		{
			name:   "reposition with no room",
			screen: scene.BBox{MinX: -1, MinY: -1, MaxX: 1, MaxY: 1},
			objects: []placed{
				{"circle", scene.CategoryShape, 0.5, 0, 0},
				{"label", scene.CategoryText, 0.5, 0.1, 0},
			},
			task:     Task{ID: "t3", Subject: "label", Other: "circle", Action: ActionTextReposition},
			wantCode: errors.ErrCodeCorrectionFailure,
			check: func(t *testing.T, reg *registry.Registry) {
				if label, _ := reg.Get("label"); label.Position.X != 0.1 || label.Position.Y != 0 {
					t.Errorf("label moved to %v on a failed correction", label.Position)
				}
			},
		},
		{
			name:   "timing adjustment",
			screen: scene.DefaultScreen,
			objects: []placed{
				{"a", scene.CategoryShape, 1, 0, 0},
				{"b", scene.CategoryShape, 1, 0.5, 0},
			},
			task: Task{ID: "t4", Subject: "b", Other: "a", Action: ActionTimingAdjustment},
			check: func(t *testing.T, reg *registry.Registry) {
				if b, _ := reg.Get("b"); b.AppearDelay != 2*DefaultPreDelay {
					t.Errorf("AppearDelay = %v, want %v", b.AppearDelay, 2*DefaultPreDelay)
				}
			},
		},
		{
			name:     "reposition missing subject",
			screen:   scene.DefaultScreen,
			objects:  []placed{{"circle", scene.CategoryShape, 0.5, 0, 0}},
			task:     Task{ID: "t5", Subject: "ghost", Other: "circle", Action: ActionTextReposition},
			wantCode: errors.ErrCodeNotFound,
		},
		{
			name:     "reposition missing other",
			screen:   scene.DefaultScreen,
			objects:  []placed{{"label", scene.CategoryText, 0.5, 0, 0}},
			task:     Task{ID: "t6", Subject: "label", Other: "ghost", Action: ActionTextReposition},
			wantCode: errors.ErrCodeNotFound,
		},
		{
			name:     "timing adjustment missing subject",
			screen:   scene.DefaultScreen,
			task:     Task{ID: "t7", Subject: "ghost", Action: ActionTimingAdjustment},
			wantCode: errors.ErrCodeNotFound,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			reg := registry.New()
			for _, p := range tt.objects {
				place(t, reg, p.id, p.cat, p.r, p.x, p.y)
			}
			if tt.task.Action == ActionTimingAdjustment && len(tt.objects) > 0 {
				if err := reg.SetAppearDelay(tt.task.Subject, DefaultPreDelay); err != nil {
					t.Fatal(err)
				}
			}

			c := NewSceneCorrector(reg, nil, tt.screen, DefaultConfig())
			err := c.Apply(context.Background(), tt.task)
			if tt.wantCode != "" {
				if !errors.Is(err, tt.wantCode) {
					t.Fatalf("Apply() error = %v, want %s", err, tt.wantCode)
				}
			} else if err != nil {
				t.Fatalf("Apply() error = %v", err)
			}
			if tt.check != nil {
				tt.check(t, reg)
			}
		})
	}
}

func TestSceneCorrectorCancelled(t *testing.T) {
	reg := registry.New()
	place(t, reg, "label", scene.CategoryText, 0.5, 0, 0)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	c := NewSceneCorrector(reg, nil, scene.DefaultScreen, DefaultConfig())
	err := c.Apply(ctx, Task{ID: "t", Subject: "label", Action: ActionTimingAdjustment})
	if !errors.Is(err, errors.ErrCodeCancelled) {
		t.Fatalf("Apply() error = %v, want CANCELLED", err)
	}
	if label, _ := reg.Get("label"); label.AppearDelay != time.Duration(0) {
		t.Errorf("AppearDelay = %v, want unchanged", label.AppearDelay)
	}
}
