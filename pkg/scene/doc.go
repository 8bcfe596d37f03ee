// Package scene defines the data model shared by every sceneguard component.
//
// # Core Types
//
//   - [Object]: authoritative state of one visual element (position, footprint,
//     visibility, z-order, creation sequence, cached bounding box)
//   - [Category]: closed set of object kinds; strategy tables switch on it
//     exhaustively, so adding a kind is a compile-time decision
//   - [BBox]: axis-aligned rectangle used for bounding boxes and screen bounds
//   - [VisibilityState]: the visibility triple mutated by removal and activation
//   - [Descriptor]: the normalized input record read from scene files
//   - [Placed]: the serialization form of a positioned object
//
// Positions are gonum [r3.Vec] values. Only X and Y take part in layout; Z is
// carried through untouched for renderers that use it.
//
// # Footprints
//
// Collision checks model every object as a circle. [Object.Radius] returns the
// explicit radius when one is set and otherwise half of the larger side, both
// multiplied by the current scale.
//
// # Scene Files
//
// [ReadDescriptors] accepts JSON, YAML and TOML files holding an "objects" list:
//
//	objects:
//	  - id: axes
//	    category: axes
//	    width: 10
//	    height: 6
//	  - id: label
//	    category: text
//	    width: 2
//	    height: 0.5
//	    position: [0, 3]
package scene
