package scene

import (
	"math"

	"gonum.org/v1/gonum/spatial/r3"
)

// BBox is an axis-aligned rectangle in scene units.
type BBox struct {
	MinX float64 `json:"min_x" yaml:"min_x" toml:"min_x" bson:"min_x"`
	MinY float64 `json:"min_y" yaml:"min_y" toml:"min_y" bson:"min_y"`
	MaxX float64 `json:"max_x" yaml:"max_x" toml:"max_x" bson:"max_x"`
	MaxY float64 `json:"max_y" yaml:"max_y" toml:"max_y" bson:"max_y"`
}

// DefaultScreen is the default 16:9 frame centred on the origin.
var DefaultScreen = BBox{MinX: -7.1, MinY: -4, MaxX: 7.1, MaxY: 4}

// BoxAround returns the box of the given size centred on c.
func BoxAround(c r3.Vec, width, height float64) BBox {
	return BBox{
		MinX: c.X - width/2,
		MinY: c.Y - height/2,
		MaxX: c.X + width/2,
		MaxY: c.Y + height/2,
	}
}

// Width returns the horizontal span.
func (b BBox) Width() float64 { return b.MaxX - b.MinX }

// Height returns the vertical span.
func (b BBox) Height() float64 { return b.MaxY - b.MinY }

// Area returns Width*Height.
func (b BBox) Area() float64 { return b.Width() * b.Height() }

// Center returns the midpoint with Z = 0.
func (b BBox) Center() r3.Vec {
	return r3.Vec{X: (b.MinX + b.MaxX) / 2, Y: (b.MinY + b.MaxY) / 2}
}

// HalfDiagonal returns the distance from the centre to a corner.
func (b BBox) HalfDiagonal() float64 {
	return math.Hypot(b.Width(), b.Height()) / 2
}

// Contains reports whether p lies inside b (edges included).
func (b BBox) Contains(p r3.Vec) bool {
	return p.X >= b.MinX && p.X <= b.MaxX && p.Y >= b.MinY && p.Y <= b.MaxY
}

// ContainsBox reports whether o lies entirely inside b.
func (b BBox) ContainsBox(o BBox) bool {
	return o.MinX >= b.MinX && o.MaxX <= b.MaxX && o.MinY >= b.MinY && o.MaxY <= b.MaxY
}

// Intersects reports whether the interiors of b and o overlap.
func (b BBox) Intersects(o BBox) bool {
	return b.MinX < o.MaxX && o.MinX < b.MaxX && b.MinY < o.MaxY && o.MinY < b.MaxY
}

// Union returns the smallest box containing both b and o.
func (b BBox) Union(o BBox) BBox {
	return BBox{
		MinX: math.Min(b.MinX, o.MinX),
		MinY: math.Min(b.MinY, o.MinY),
		MaxX: math.Max(b.MaxX, o.MaxX),
		MaxY: math.Max(b.MaxY, o.MaxY),
	}
}

// Scale grows (f > 1) or shrinks (f < 1) the box about its centre.
func (b BBox) Scale(f float64) BBox {
	return BoxAround(b.Center(), b.Width()*f, b.Height()*f)
}

// Inset shrinks every side by d. Sides never cross: a box narrower than 2d
// collapses onto its centre line.
func (b BBox) Inset(d float64) BBox {
	c := b.Center()
	out := BBox{MinX: b.MinX + d, MinY: b.MinY + d, MaxX: b.MaxX - d, MaxY: b.MaxY - d}
	if out.MinX > out.MaxX {
		out.MinX, out.MaxX = c.X, c.X
	}
	if out.MinY > out.MaxY {
		out.MinY, out.MaxY = c.Y, c.Y
	}
	return out
}

// InnerFor returns the region of centre points at which a width×height box
// stays inside b. A box larger than b collapses onto b's centre line.
func (b BBox) InnerFor(width, height float64) BBox {
	c := b.Center()
	in := BBox{MinX: b.MinX + width/2, MinY: b.MinY + height/2, MaxX: b.MaxX - width/2, MaxY: b.MaxY - height/2}
	if in.MinX > in.MaxX {
		in.MinX, in.MaxX = c.X, c.X
	}
	if in.MinY > in.MaxY {
		in.MinY, in.MaxY = c.Y, c.Y
	}
	return in
}

// Clamp returns p moved to the nearest point inside b. Z is preserved.
func (b BBox) Clamp(p r3.Vec) r3.Vec {
	return r3.Vec{
		X: math.Min(math.Max(p.X, b.MinX), b.MaxX),
		Y: math.Min(math.Max(p.Y, b.MinY), b.MaxY),
		Z: p.Z,
	}
}

// Valid reports whether b is finite with non-negative extent.
func (b BBox) Valid() bool {
	for _, v := range []float64{b.MinX, b.MinY, b.MaxX, b.MaxY} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return b.MaxX >= b.MinX && b.MaxY >= b.MinY
}

// Distance2D returns the planar distance between a and b, ignoring Z.
func Distance2D(a, b r3.Vec) float64 {
	return math.Hypot(a.X-b.X, a.Y-b.Y)
}
