package scene

import (
	"maps"
	"math"
	"time"

	"gonum.org/v1/gonum/spatial/r3"
)

// Size is an object's footprint: either an explicit radius or a width/height
// pair. When both are given the radius wins for collision purposes.
type Size struct {
	Radius float64 `json:"radius,omitempty" yaml:"radius,omitempty" toml:"radius,omitempty" bson:"radius,omitempty"`
	Width  float64 `json:"width,omitempty" yaml:"width,omitempty" toml:"width,omitempty" bson:"width,omitempty"`
	Height float64 `json:"height,omitempty" yaml:"height,omitempty" toml:"height,omitempty" bson:"height,omitempty"`
}

// Circle returns a Size with the given radius.
func Circle(r float64) Size { return Size{Radius: r} }

// Rect returns a Size with the given width and height.
func Rect(w, h float64) Size { return Size{Width: w, Height: h} }

// Valid reports whether every dimension is finite and non-negative.
func (s Size) Valid() bool {
	for _, v := range []float64{s.Radius, s.Width, s.Height} {
		if math.IsNaN(v) || math.IsInf(v, 0) || v < 0 {
			return false
		}
	}
	return true
}

// VisibilityState is the visibility triple owned by the registry.
type VisibilityState struct {
	Visible        bool    `json:"visible"`
	Opacity        float64 `json:"opacity"`
	FadeInProgress bool    `json:"fade_in_progress,omitempty"`
}

// Object is the authoritative state of one scene element.
//
// Objects are value types: the registry hands out copies, so mutating a
// returned Object has no effect until it is routed back through a registry
// method. Box is maintained by the registry and recomputed on every position,
// size or scale change.
type Object struct {
	ID             string
	Category       Category
	Position       r3.Vec
	Hint           *r3.Vec // initial position requested by the scene author
	Size           Size
	Scale          float64
	ZOrder         int
	Opacity        float64
	Visible        bool
	FadeInProgress bool
	Persistent     bool
	AppearDelay    time.Duration
	CreatedAt      uint64
	Props          map[string]any
	Box            BBox
}

// NewObject returns a visible, fully opaque object at the origin with scale 1.
func NewObject(id string, c Category, size Size) Object {
	o := Object{
		ID:       id,
		Category: c,
		Size:     size,
		Scale:    1,
		Opacity:  1,
		Visible:  true,
	}
	o.Refresh()
	return o
}

// Width returns the scaled horizontal extent.
func (o Object) Width() float64 {
	if o.Size.Width > 0 {
		return o.Size.Width * o.Scale
	}
	return 2 * o.Size.Radius * o.Scale
}

// Height returns the scaled vertical extent.
func (o Object) Height() float64 {
	if o.Size.Height > 0 {
		return o.Size.Height * o.Scale
	}
	return 2 * o.Size.Radius * o.Scale
}

// Radius returns the scaled circular footprint radius.
func (o Object) Radius() float64 {
	if o.Size.Radius > 0 {
		return o.Size.Radius * o.Scale
	}
	return math.Max(o.Size.Width, o.Size.Height) / 2 * o.Scale
}

// Refresh recomputes the cached bounding box from position, size and scale.
func (o *Object) Refresh() {
	o.Box = BoxAround(o.Position, o.Width(), o.Height())
}

// Visibility returns the object's visibility triple.
func (o Object) Visibility() VisibilityState {
	return VisibilityState{Visible: o.Visible, Opacity: o.Opacity, FadeInProgress: o.FadeInProgress}
}

// At returns a copy of o moved to p with a refreshed bounding box.
func (o Object) At(p r3.Vec) Object {
	o.Position = p
	o.Refresh()
	return o
}

// Clone returns a deep copy of o.
func (o Object) Clone() Object {
	if o.Hint != nil {
		h := *o.Hint
		o.Hint = &h
	}
	if o.Props != nil {
		o.Props = maps.Clone(o.Props)
	}
	return o
}

// Newer returns whichever of a and b was registered later.
func Newer(a, b Object) Object {
	if b.CreatedAt > a.CreatedAt {
		return b
	}
	return a
}
