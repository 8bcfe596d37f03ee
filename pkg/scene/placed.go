package scene

import (
	"time"

	"gonum.org/v1/gonum/spatial/r3"
)

// Placed is the serialization form of a positioned object, used in layout
// files, caches, API responses and stored reports.
type Placed struct {
	ID          string         `json:"id" bson:"id"`
	Category    Category       `json:"category" bson:"category"`
	X           float64        `json:"x" bson:"x"`
	Y           float64        `json:"y" bson:"y"`
	Z           float64        `json:"z,omitempty" bson:"z,omitempty"`
	Size        Size           `json:"size" bson:"size"`
	Scale       float64        `json:"scale" bson:"scale"`
	ZOrder      int            `json:"z_order" bson:"z_order"`
	Opacity     float64        `json:"opacity" bson:"opacity"`
	Visible     bool           `json:"visible" bson:"visible"`
	Persistent  bool           `json:"persistent,omitempty" bson:"persistent,omitempty"`
	AppearDelay time.Duration  `json:"appear_delay,omitempty" bson:"appear_delay,omitempty"`
	CreatedAt   uint64         `json:"created_at" bson:"created_at"`
	Box         BBox           `json:"bbox" bson:"bbox"`
	Props       map[string]any `json:"props,omitempty" bson:"props,omitempty"`
}

// Export converts an object into its serialization form.
func Export(o Object) Placed {
	return Placed{
		ID:          o.ID,
		Category:    o.Category,
		X:           o.Position.X,
		Y:           o.Position.Y,
		Z:           o.Position.Z,
		Size:        o.Size,
		Scale:       o.Scale,
		ZOrder:      o.ZOrder,
		Opacity:     o.Opacity,
		Visible:     o.Visible,
		Persistent:  o.Persistent,
		AppearDelay: o.AppearDelay,
		CreatedAt:   o.CreatedAt,
		Box:         o.Box,
		Props:       o.Props,
	}
}

// ExportAll converts a slice of objects, preserving order.
func ExportAll(objs []Object) []Placed {
	out := make([]Placed, len(objs))
	for i, o := range objs {
		out[i] = Export(o)
	}
	return out
}

// Object converts the serialization form back into an Object with a fresh
// bounding box.
func (p Placed) Object() Object {
	o := Object{
		ID:          p.ID,
		Category:    p.Category,
		Position:    r3.Vec{X: p.X, Y: p.Y, Z: p.Z},
		Size:        p.Size,
		Scale:       p.Scale,
		ZOrder:      p.ZOrder,
		Opacity:     p.Opacity,
		Visible:     p.Visible,
		Persistent:  p.Persistent,
		AppearDelay: p.AppearDelay,
		CreatedAt:   p.CreatedAt,
		Props:       p.Props,
	}
	o.Refresh()
	return o
}
