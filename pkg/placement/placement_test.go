package placement

import (
	"fmt"
	"math"
	"math/rand/v2"
	"testing"

	"gonum.org/v1/gonum/spatial/r3"

	"github.com/matzehuels/sceneguard/pkg/scene"
)

var screen = scene.DefaultScreen

func obj(id string, c scene.Category, size scene.Size, x, y float64) scene.Object {
	return scene.NewObject(id, c, size).At(r3.Vec{X: x, Y: y})
}

func TestCollisionRisk(t *testing.T) {
	existing := []scene.Object{obj("a", scene.CategoryShape, scene.Circle(1), 0, 0)}
	tests := []struct {
		name string
		p    r3.Vec
		want float64
	}{
		{"coincident", r3.Vec{}, 1},
		{"half threshold", r3.Vec{X: 1}, 0.5},
		{"at threshold", r3.Vec{X: 2}, 0},
		{"far away", r3.Vec{X: 5, Y: 5}, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			// threshold = 0.7 + 1 + 0.3 = 2
			got := CollisionRisk(tt.p, 0.7, existing, 0.3)
			if math.Abs(got-tt.want) > 1e-9 {
				t.Errorf("CollisionRisk = %v, want %v", got, tt.want)
			}
		})
	}
	if got := CollisionRisk(r3.Vec{}, 1, nil, 0.3); got != 0 {
		t.Errorf("CollisionRisk with no objects = %v, want 0", got)
	}
}

func TestGridCell(t *testing.T) {
	for n := range 40 {
		for _, cols := range []int{1, 3, 4, 7} {
			row, col := GridCell(n, cols)
			if row != n/cols || col != n%cols {
				t.Errorf("GridCell(%d, %d) = (%d, %d), want (%d, %d)", n, cols, row, col, n/cols, n%cols)
			}
		}
	}
}

func TestFloodFillPartition(t *testing.T) {
	rng := rand.New(rand.NewPCG(1, 2))
	grids := [][][]bool{
		{},
		{{false}},
		{{true}},
		{{false, true, false}, {true, true, true}, {false, true, false}},
	}
	for range 20 {
		n := 2 + rng.IntN(10)
		g := make([][]bool, n)
		for r := range g {
			g[r] = make([]bool, n)
			for c := range g[r] {
				g[r][c] = rng.Float64() < 0.4
			}
		}
		grids = append(grids, g)
	}

	for i, g := range grids {
		t.Run(fmt.Sprintf("grid%d", i), func(t *testing.T) {
			owner := map[Cell]int{}
			for ri, region := range FloodFill(g) {
				if len(region) == 0 {
					t.Errorf("region %d is empty", ri)
				}
				for _, c := range region {
					if g[c.Row][c.Col] {
						t.Errorf("blocked cell %v in region %d", c, ri)
					}
					if prev, dup := owner[c]; dup {
						t.Errorf("cell %v in regions %d and %d", c, prev, ri)
					}
					owner[c] = ri
				}
			}
			for r := range g {
				for c := range g[r] {
					if _, ok := owner[Cell{r, c}]; !g[r][c] && !ok {
						t.Errorf("free cell (%d,%d) not covered", r, c)
					}
				}
			}
		})
	}
}

func TestFloodFillConnectivity(t *testing.T) {
	g := [][]bool{
		{false, false, true, false},
		{true, false, true, false},
		{false, true, true, false},
	}
	regions := FloodFill(g)
	if len(regions) != 3 {
		t.Fatalf("got %d regions, want 3", len(regions))
	}
	sizes := map[int]int{}
	for _, r := range regions {
		sizes[len(r)]++
	}
	if sizes[3] != 2 || sizes[1] != 1 {
		t.Errorf("region sizes = %v, want two of 3 and one of 1", sizes)
	}
}

func TestFindPlacementEmptyScene(t *testing.T) {
	e := New(Config{}, nil)
	res := e.FindPlacement(scene.NewObject("c", scene.CategoryShape, scene.Circle(1)), nil, screen)
	if res.Position != screen.Center() {
		t.Errorf("Position = %v, want centre %v", res.Position, screen.Center())
	}
	if res.Confidence < 0.9 {
		t.Errorf("Confidence = %v, want >= 0.9", res.Confidence)
	}
	if res.Strategy != StrategyEmptyScene {
		t.Errorf("Strategy = %v, want %v", res.Strategy, StrategyEmptyScene)
	}
}

func TestFindPlacementHonoursHint(t *testing.T) {
	e := New(Config{}, nil)
	existing := []scene.Object{obj("a", scene.CategoryShape, scene.Circle(0.5), -5, 0)}

	o := scene.NewObject("b", scene.CategoryShape, scene.Circle(0.5))
	o.Hint = &r3.Vec{X: 3, Y: 1}
	res := e.FindPlacement(o, existing, screen)
	if res.Strategy != StrategyHint || res.Confidence != 1 || res.Position != *o.Hint {
		t.Errorf("hint not honoured: %+v", res)
	}

	o.Hint = &r3.Vec{X: -5, Y: 0.2}
	if res := e.FindPlacement(o, existing, screen); res.Strategy == StrategyHint {
		t.Error("colliding hint should not be honoured")
	}
}

func TestFindPlacementGrid(t *testing.T) {
	e := New(Config{}, nil)
	existing := []scene.Object{obj("s0", scene.CategoryShape, scene.Circle(0.5), -5.325, 4-8.0/6)}
	res := e.FindPlacement(scene.NewObject("s1", scene.CategoryShape, scene.Circle(0.5)), existing, screen)
	if res.Strategy != StrategyGrid {
		t.Fatalf("Strategy = %v, want grid", res.Strategy)
	}
	want := r3.Vec{X: -7.1 + 1.5*14.2/4, Y: 4 - 0.5*8.0/3}
	if scene.Distance2D(res.Position, want) > 1e-9 {
		t.Errorf("Position = %v, want %v (row 0, col 1)", res.Position, want)
	}
}

func TestFindPlacementEmptyRegion(t *testing.T) {
	e := New(Config{}, nil)
	existing := []scene.Object{obj("a", scene.CategoryShape, scene.Circle(0.5), -5, 0)}
	res := e.FindPlacement(scene.NewObject("plot", scene.CategoryCurve, scene.Rect(4, 3)), existing, screen)
	if res.Strategy != StrategyEmptyRegion {
		t.Fatalf("Strategy = %v, want empty_region", res.Strategy)
	}
	if res.Risk != 0 {
		t.Errorf("Risk = %v, want 0", res.Risk)
	}
	if res.Position.X < -2 {
		t.Errorf("Position %v should sit away from the occupied left edge", res.Position)
	}
}

func TestFindPlacementTextStack(t *testing.T) {
	e := New(Config{}, nil)
	title := obj("title", scene.CategoryText, scene.Rect(3, 0.5), 0, 3.5)

	res := e.FindPlacement(scene.NewObject("sub", scene.CategoryText, scene.Rect(2, 0.5)), []scene.Object{title}, screen)
	if res.Strategy != StrategyTextStack {
		t.Fatalf("Strategy = %v, want text_stack", res.Strategy)
	}
	if want := (r3.Vec{X: 0, Y: 2.75}); scene.Distance2D(res.Position, want) > 1e-9 {
		t.Errorf("Position = %v, want %v (stacked below)", res.Position, want)
	}

	// With no vertical room left the new row reuses the top and shifts right.
	footer := obj("footer", scene.CategoryText, scene.Rect(3, 0.5), 0, -3.6)
	res = e.FindPlacement(scene.NewObject("note", scene.CategoryText, scene.Rect(2, 0.5)), []scene.Object{title, footer}, screen)
	if want := (r3.Vec{X: 2.75, Y: 3.75}); scene.Distance2D(res.Position, want) > 1e-9 {
		t.Errorf("Position = %v, want %v (shifted right on top row)", res.Position, want)
	}
}

func TestSpiralAndForceLeaveCollisions(t *testing.T) {
	e := New(Config{}, nil)
	existing := []scene.Object{obj("a", scene.CategoryShape, scene.Circle(1), 0, 0)}
	o := scene.NewObject("b", scene.CategoryShape, scene.Circle(0.5))
	req := request{obj: o, existing: existing, screen: screen, inner: screen.InnerFor(1, 1), radius: 0.5}

	c, ok := e.spiral(req)
	if !ok {
		t.Fatal("spiral found no candidate")
	}
	if r := CollisionRisk(c.pos, 0.5, existing, e.cfg.CollisionMargin); r >= e.cfg.SpiralRiskLimit {
		t.Errorf("spiral risk = %v, want < %v", r, e.cfg.SpiralRiskLimit)
	}

	c, _ = e.force(req)
	if d := scene.Distance2D(c.pos, r3.Vec{}); d <= 1.8 {
		t.Errorf("force distance = %v, want > 1.8 (collision threshold)", d)
	}
	if !screen.Contains(c.pos) {
		t.Errorf("force position %v off screen", c.pos)
	}
}

func TestFindPlacementFallback(t *testing.T) {
	e := New(Config{}, nil)
	wall := []scene.Object{obj("wall", scene.CategoryShape, scene.Circle(100), 0, 0)}
	for _, c := range []scene.Category{scene.CategoryShape, scene.CategoryCurve} {
		res := e.FindPlacement(scene.NewObject("x", c, scene.Circle(0.5)), wall, screen)
		if res.Strategy != StrategyFallback || res.Confidence != FallbackConfidence {
			t.Errorf("%v: got %v/%v, want fallback/%v", c, res.Strategy, res.Confidence, FallbackConfidence)
		}
		if res.Position != screen.Center() {
			t.Errorf("%v: fallback position = %v, want centre", c, res.Position)
		}
	}
}

func TestFindPlacementCameraHint(t *testing.T) {
	e := New(Config{}, nil)
	existing := []scene.Object{
		obj("a", scene.CategoryShape, scene.Circle(0.5), -6.5, 3.4),
		obj("b", scene.CategoryShape, scene.Circle(0.5), 6.5, -3.4),
	}
	res := e.FindPlacement(scene.NewObject("c", scene.CategoryShape, scene.Circle(0.5)), existing, screen)
	if res.CameraHint == nil || !res.CameraHint.ZoomOut || res.CameraHint.Scale <= 1 {
		t.Errorf("CameraHint = %+v, want zoom-out with scale > 1", res.CameraHint)
	}

	res = e.FindPlacement(scene.NewObject("d", scene.CategoryShape, scene.Circle(0.5)), existing[:1], screen)
	if res.CameraHint != nil {
		t.Errorf("CameraHint = %+v, want none for a compact scene", res.CameraHint)
	}
}

func TestFindPlacementAlwaysInBounds(t *testing.T) {
	e := New(Config{}, nil)
	sizes := map[scene.Category]scene.Size{
		scene.CategoryShape:   scene.Circle(0.4),
		scene.CategoryText:    scene.Rect(1.5, 0.4),
		scene.CategoryCurve:   scene.Rect(3, 2),
		scene.CategoryAxes:    scene.Rect(6, 4),
		scene.CategoryPoint:   scene.Circle(0.05),
		scene.CategoryUnknown: scene.Circle(0.6),
	}
	var placed []scene.Object
	for n := range 51 {
		c := scene.Categories[n%len(scene.Categories)]
		o := scene.NewObject(fmt.Sprintf("o%d", n), c, sizes[c])
		res := e.FindPlacement(o, placed, screen)
		if !screen.Contains(res.Position) {
			t.Fatalf("object %d (%v) placed off screen at %v", n, c, res.Position)
		}
		if res.Confidence < 0 || res.Confidence > 1 {
			t.Errorf("object %d confidence %v out of range", n, res.Confidence)
		}
		if len(res.Alternatives) > DefaultMaxAlternatives {
			t.Errorf("object %d has %d alternatives", n, len(res.Alternatives))
		}
		for _, a := range res.Alternatives {
			if a.Risk >= DefaultAltRiskLimit || !screen.Contains(a.Position) {
				t.Errorf("object %d bad alternative %+v", n, a)
			}
		}
		placed = append(placed, o.At(res.Position))
	}
}

func TestStrategyOrderCoversCategories(t *testing.T) {
	for _, c := range scene.Categories {
		order := StrategyOrder(c)
		if len(order) == 0 {
			t.Errorf("StrategyOrder(%v) is empty", c)
		}
	}
	if got := StrategyOrder(scene.CategoryText)[0]; got != StrategyTextStack {
		t.Errorf("text first strategy = %v, want text_stack", got)
	}
	if got := StrategyOrder(scene.CategoryAxes); got[len(got)-1] != StrategyCameraAdjust {
		t.Errorf("axes last strategy = %v, want camera_adjust", got[len(got)-1])
	}
}

func TestConfigValidate(t *testing.T) {
	if err := DefaultConfig().Validate(); err != nil {
		t.Fatalf("default config invalid: %v", err)
	}
	bad := DefaultConfig()
	bad.GridSize = 1
	if err := bad.Validate(); err == nil {
		t.Error("grid_size 1 should be rejected")
	}
	bad = DefaultConfig()
	bad.ConfidenceFloor = 1.5
	if err := bad.Validate(); err == nil {
		t.Error("confidence_floor 1.5 should be rejected")
	}
}
