package placement

import (
	"math"

	"gonum.org/v1/gonum/spatial/r3"

	"github.com/matzehuels/sceneguard/pkg/scene"
)

// Strategy names the rule that produced a placement.
type Strategy string

const (
	StrategyHint         Strategy = "hint"
	StrategyEmptyScene   Strategy = "empty_scene"
	StrategyEmptyRegion  Strategy = "empty_region"
	StrategyGrid         Strategy = "grid"
	StrategySpiral       Strategy = "spiral"
	StrategyForce        Strategy = "force_directed"
	StrategyTextStack    Strategy = "text_stack"
	StrategyCameraAdjust Strategy = "camera_adjust"
	StrategyFallback     Strategy = "fallback"
)

// Strategies lists every strategy name in reporting order.
var Strategies = []Strategy{
	StrategyHint, StrategyEmptyScene, StrategyEmptyRegion, StrategyGrid, StrategySpiral,
	StrategyForce, StrategyTextStack, StrategyCameraAdjust, StrategyFallback,
}

// StrategyOrder returns the strategies tried for category c, most preferred
// first.
func StrategyOrder(c scene.Category) []Strategy {
	switch c {
	case scene.CategoryCurve, scene.CategoryAxes:
		return []Strategy{StrategyEmptyRegion, StrategyCameraAdjust}
	case scene.CategoryShape, scene.CategoryPoint:
		return []Strategy{StrategyGrid, StrategySpiral, StrategyForce}
	case scene.CategoryText:
		return []Strategy{StrategyTextStack, StrategySpiral, StrategyForce}
	case scene.CategoryUnknown:
		return []Strategy{StrategyEmptyRegion, StrategySpiral, StrategyForce}
	}
	return []Strategy{StrategySpiral, StrategyForce}
}

// candidate is one strategy's proposal before the floor check.
type candidate struct {
	pos        r3.Vec
	confidence float64
	zoomOut    bool
}

// request bundles the inputs shared by every strategy.
type request struct {
	obj      scene.Object
	existing []scene.Object
	screen   scene.BBox
	inner    scene.BBox // where obj stays fully on screen
	radius   float64
}

func (e *Engine) risk(req request, p r3.Vec) float64 {
	return CollisionRisk(p, req.radius, req.existing, e.cfg.CollisionMargin)
}

func (e *Engine) run(s Strategy, req request) (candidate, bool) {
	switch s {
	case StrategyEmptyRegion:
		return e.emptyRegion(req)
	case StrategyGrid:
		return e.grid(req)
	case StrategySpiral:
		return e.spiral(req)
	case StrategyForce:
		return e.force(req)
	case StrategyTextStack:
		return e.textStack(req)
	case StrategyCameraAdjust:
		return e.cameraAdjust(req)
	}
	return candidate{}, false
}

// =============================================================================
// Empty region
// =============================================================================

func (e *Engine) emptyRegion(req request) (candidate, bool) {
	g := newRaster(req.screen, e.cfg.GridSize)
	minArea := math.Max(e.cfg.MinRegionFraction*req.screen.Area(), req.obj.Width()*req.obj.Height())
	regions := g.emptyRegions(req.existing, e.cfg.CollisionMargin, minArea)
	if len(regions) == 0 {
		return candidate{}, false
	}
	best := regions[0]
	p := req.inner.Clamp(best.Centroid)
	return candidate{pos: p, confidence: (1 - e.risk(req, p)) * (0.5 + 0.5*best.Score)}, true
}

// =============================================================================
// Grid
// =============================================================================

// GridCell returns the row and column of the nth object (0-based) of a
// category in a layout with cols columns.
func GridCell(n, cols int) (row, col int) {
	return n / cols, n % cols
}

func (e *Engine) grid(req request) (candidate, bool) {
	n := 0
	for _, o := range req.existing {
		if o.Category == req.obj.Category {
			n++
		}
	}
	row, col := GridCell(n, e.cfg.GridCols)
	row %= e.cfg.GridRows

	cw := req.screen.Width() / float64(e.cfg.GridCols)
	ch := req.screen.Height() / float64(e.cfg.GridRows)
	p := r3.Vec{
		X: req.screen.MinX + (float64(col)+0.5)*cw,
		Y: req.screen.MaxY - (float64(row)+0.5)*ch,
	}
	p = req.inner.Clamp(p)
	return candidate{pos: p, confidence: 1 - e.risk(req, p)}, true
}

// =============================================================================
// Spiral
// =============================================================================

func (e *Engine) spiral(req request) (candidate, bool) {
	c := req.screen.Center()
	if risk := e.risk(req, c); risk < e.cfg.SpiralRiskLimit {
		return candidate{pos: c, confidence: 1 - risk}, true
	}
	maxR := req.screen.HalfDiagonal()
	for r := e.cfg.SpiralRadiusStep; r <= maxR; r += e.cfg.SpiralRadiusStep {
		for a := 0.0; a < 2*math.Pi; a += e.cfg.SpiralAngleStep {
			p := r3.Vec{X: c.X + r*math.Cos(a), Y: c.Y + r*math.Sin(a)}
			if !req.inner.Contains(p) {
				continue
			}
			if risk := e.risk(req, p); risk < e.cfg.SpiralRiskLimit {
				return candidate{pos: p, confidence: 1 - risk}, true
			}
		}
	}
	return candidate{}, false
}

// =============================================================================
// Force-directed
// =============================================================================

// minForceDistance caps repulsion for coincident centres.
const minForceDistance = 0.1

func (e *Engine) force(req request) (candidate, bool) {
	c := req.screen.Center()
	p := c
	maxStep := req.screen.Width() / 10
	for range e.cfg.ForceIterations {
		var f r3.Vec
		for i, o := range req.existing {
			d := r3.Sub(p, o.Position)
			d.Z = 0
			dist := r3.Norm(d)
			var dir r3.Vec
			if dist < 1e-9 {
				// Coincident centres: push in a direction fixed by index.
				a := float64(i) * 2.399963 // golden angle
				dir = r3.Vec{X: math.Cos(a), Y: math.Sin(a)}
			} else {
				dir = r3.Scale(1/dist, d)
			}
			dist = math.Max(dist, minForceDistance)
			reach := req.radius + o.Radius() + e.cfg.CollisionMargin
			f = r3.Add(f, r3.Scale(e.cfg.Repulsion*reach*reach/(dist*dist), dir))
		}
		f = r3.Add(f, r3.Scale(e.cfg.Attraction, r3.Sub(c, p)))
		step := r3.Scale(e.cfg.ForceStep, f)
		if n := r3.Norm(step); n > maxStep {
			step = r3.Scale(maxStep/n, step)
		}
		p = req.inner.Clamp(r3.Add(p, step))
	}
	p.Z = 0
	return candidate{pos: p, confidence: 1 - e.risk(req, p)}, true
}

// =============================================================================
// Text stack
// =============================================================================

func (e *Engine) textStack(req request) (candidate, bool) {
	var texts []scene.Object
	for _, o := range req.existing {
		if o.Category == scene.CategoryText {
			texts = append(texts, o)
		}
	}
	w, h := req.obj.Width(), req.obj.Height()
	sp := e.cfg.TextSpacing
	x := req.screen.Center().X
	y := req.screen.MaxY - sp - h/2
	if len(texts) > 0 {
		lowest := texts[0].Box.MinY
		for _, t := range texts[1:] {
			lowest = math.Min(lowest, t.Box.MinY)
		}
		y = lowest - sp - h/2
	}
	if y < req.inner.MinY {
		// Out of vertical room: reuse the top row and rely on the sideways shift.
		y = req.inner.MaxY
	}

	// Shift right past any text on the same row. Each pass can only move
	// right, so len(texts) passes reach a fixed point.
	for range len(texts) + 1 {
		box := scene.BoxAround(r3.Vec{X: x, Y: y}, w, h)
		moved := false
		for _, t := range texts {
			if box.Intersects(t.Box.Inset(-sp / 2)) {
				x = t.Box.MaxX + sp + w/2
				box = scene.BoxAround(r3.Vec{X: x, Y: y}, w, h)
				moved = true
			}
		}
		if !moved {
			break
		}
	}
	p := req.inner.Clamp(r3.Vec{X: x, Y: y})
	return candidate{pos: p, confidence: 1 - boxOverlap(scene.BoxAround(p, w, h), req.existing)}, true
}

// boxOverlap returns the largest fraction of box covered by any single
// existing bounding box. Text is wide and short, so boxes score it better
// than circular footprints do.
func boxOverlap(box scene.BBox, existing []scene.Object) float64 {
	area := box.Area()
	if area <= 0 {
		return 0
	}
	var worst float64
	for _, o := range existing {
		ix := math.Min(box.MaxX, o.Box.MaxX) - math.Max(box.MinX, o.Box.MinX)
		iy := math.Min(box.MaxY, o.Box.MaxY) - math.Max(box.MinY, o.Box.MinY)
		if ix > 0 && iy > 0 {
			worst = math.Max(worst, ix*iy/area)
		}
	}
	return math.Min(worst, 1)
}

// =============================================================================
// Camera adjust
// =============================================================================

func (e *Engine) cameraAdjust(req request) (candidate, bool) {
	g := newRaster(req.screen, e.cfg.GridSize)
	best, bestGap := req.screen.Center(), math.Inf(-1)
	for r := range g.n {
		for c := range g.n {
			p := req.inner.Clamp(g.cellCenter(Cell{r, c}))
			if gap := clearance(p, req.radius, req.existing); gap > bestGap {
				best, bestGap = p, gap
			}
		}
	}
	// A zoom-out relieves crowding, so the point only has to be partly clear.
	return candidate{pos: best, confidence: 0.4 + 0.5*(1-e.risk(req, best)), zoomOut: true}, true
}
