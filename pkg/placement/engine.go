package placement

import (
	"io"
	"math"

	"github.com/charmbracelet/log"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/matzehuels/sceneguard/pkg/scene"
)

// CameraHint asks the camera to zoom out by Scale because the scene is close
// to filling the frame.
type CameraHint struct {
	ZoomOut bool    `json:"zoom_out"`
	Scale   float64 `json:"scale,omitempty"`
	Reason  string  `json:"reason,omitempty"`
}

// Alternative is a fallback position with its collision risk.
type Alternative struct {
	Position r3.Vec  `json:"position"`
	Risk     float64 `json:"risk"`
}

// Result is the outcome of FindPlacement.
type Result struct {
	Position     r3.Vec        `json:"position"`
	Strategy     Strategy      `json:"strategy"`
	Confidence   float64       `json:"confidence"`
	Risk         float64       `json:"risk"`
	CameraHint   *CameraHint   `json:"camera_hint,omitempty"`
	Alternatives []Alternative `json:"alternatives,omitempty"`
}

// Engine computes placements. It holds no scene state and is safe for
// concurrent use.
type Engine struct {
	cfg    Config
	logger *log.Logger
}

// New creates an Engine. Zero config fields take their defaults; a nil logger
// discards output.
func New(cfg Config, logger *log.Logger) *Engine {
	cfg.SetDefaults()
	if logger == nil {
		logger = log.New(io.Discard)
	}
	return &Engine{cfg: cfg, logger: logger}
}

// Config returns the effective configuration.
func (e *Engine) Config() Config { return e.cfg }

// FindPlacement proposes a position for obj given the objects already on
// screen. It never fails: when no strategy is acceptable the result uses
// [StrategyFallback] at the screen centre.
func (e *Engine) FindPlacement(obj scene.Object, existing []scene.Object, screen scene.BBox) Result {
	req := request{
		obj:      obj,
		existing: withoutSelf(obj.ID, existing),
		screen:   screen,
		inner:    screen.InnerFor(obj.Width(), obj.Height()),
		radius:   obj.Radius(),
	}

	res := e.choose(req)
	res.Position = screen.Clamp(req.inner.Clamp(res.Position))
	res.Position.Z = 0
	res.Risk = e.risk(req, res.Position)
	res.Alternatives = e.alternatives(req, res.Position)
	res.CameraHint = e.cameraHint(req, res.Position)
	if res.Strategy == StrategyCameraAdjust && res.CameraHint == nil {
		res.CameraHint = &CameraHint{ZoomOut: true, Scale: 1.2, Reason: "crowded scene"}
	}

	e.logger.Debug("placed object",
		"id", obj.ID, "category", obj.Category, "strategy", res.Strategy,
		"confidence", res.Confidence, "x", res.Position.X, "y", res.Position.Y)
	return res
}

func (e *Engine) choose(req request) Result {
	if h := req.obj.Hint; h != nil && req.screen.Contains(*h) && e.risk(req, *h) == 0 {
		return Result{Position: *h, Strategy: StrategyHint, Confidence: 1}
	}
	if len(req.existing) == 0 {
		return Result{Position: req.screen.Center(), Strategy: StrategyEmptyScene, Confidence: 0.95}
	}
	for _, s := range StrategyOrder(req.obj.Category) {
		c, ok := e.run(s, req)
		if !ok {
			e.logger.Debug("strategy produced no candidate", "id", req.obj.ID, "strategy", s)
			continue
		}
		if c.confidence >= e.cfg.ConfidenceFloor {
			return Result{Position: c.pos, Strategy: s, Confidence: clampUnit(c.confidence)}
		}
		e.logger.Debug("candidate below floor", "id", req.obj.ID, "strategy", s, "confidence", c.confidence)
	}
	e.logger.Warn("no acceptable placement, using fallback", "id", req.obj.ID)
	return Result{Position: req.screen.Center(), Strategy: StrategyFallback, Confidence: FallbackConfidence}
}

// alternatives returns up to MaxAlternatives positions around p and at the
// inset screen corners whose risk is below AltRiskLimit.
func (e *Engine) alternatives(req request, p r3.Vec) []Alternative {
	if e.cfg.MaxAlternatives == 0 {
		return nil
	}
	d := math.Max(2*req.radius+e.cfg.CollisionMargin, req.screen.Width()/8)
	in := req.inner
	points := []r3.Vec{
		{X: p.X + d, Y: p.Y},
		{X: p.X - d, Y: p.Y},
		{X: p.X, Y: p.Y + d},
		{X: p.X, Y: p.Y - d},
		{X: in.MinX, Y: in.MaxY},
		{X: in.MaxX, Y: in.MaxY},
		{X: in.MinX, Y: in.MinY},
		{X: in.MaxX, Y: in.MinY},
	}
	var out []Alternative
	for _, q := range points {
		if !in.Contains(q) || scene.Distance2D(p, q) < 1e-9 {
			continue
		}
		if r := e.risk(req, q); r < e.cfg.AltRiskLimit {
			out = append(out, Alternative{Position: q, Risk: r})
			if len(out) == e.cfg.MaxAlternatives {
				break
			}
		}
	}
	return out
}

// cameraHint recommends a zoom-out when the union of all boxes, including
// the new object at p, spans more than CameraHintFraction of the screen.
func (e *Engine) cameraHint(req request, p r3.Vec) *CameraHint {
	union := scene.BoxAround(p, req.obj.Width(), req.obj.Height())
	for _, o := range req.existing {
		union = union.Union(o.Box)
	}
	limitW := e.cfg.CameraHintFraction * req.screen.Width()
	limitH := e.cfg.CameraHintFraction * req.screen.Height()
	if union.Width() <= limitW && union.Height() <= limitH {
		return nil
	}
	return &CameraHint{
		ZoomOut: true,
		Scale:   math.Max(union.Width()/limitW, union.Height()/limitH),
		Reason:  "scene exceeds frame fraction",
	}
}

func withoutSelf(id string, objs []scene.Object) []scene.Object {
	out := make([]scene.Object, 0, len(objs))
	for _, o := range objs {
		if o.ID != id {
			out = append(out, o)
		}
	}
	return out
}

func clampUnit(v float64) float64 {
	return math.Min(math.Max(v, 0), 1)
}
