package scene

import (
	"fmt"
	"strings"
)

// Category is the closed set of object kinds known to the engine.
type Category int

const (
	CategoryUnknown Category = iota
	CategoryShape
	CategoryText
	CategoryCurve
	CategoryAxes
	CategoryPoint
)

// Categories lists every category in declaration order.
var Categories = []Category{
	CategoryUnknown,
	CategoryShape,
	CategoryText,
	CategoryCurve,
	CategoryAxes,
	CategoryPoint,
}

var categoryNames = map[Category]string{
	CategoryUnknown: "unknown",
	CategoryShape:   "shape",
	CategoryText:    "text",
	CategoryCurve:   "curve",
	CategoryAxes:    "axes",
	CategoryPoint:   "point",
}

// categoryAliases maps descriptor spellings onto categories. Upstream
// normalizers emit renderer class names, so the common ones are accepted.
var categoryAliases = map[string]Category{
	"unknown":     CategoryUnknown,
	"shape":       CategoryShape,
	"circle":      CategoryShape,
	"square":      CategoryShape,
	"rectangle":   CategoryShape,
	"polygon":     CategoryShape,
	"triangle":    CategoryShape,
	"text":        CategoryText,
	"label":       CategoryText,
	"tex":         CategoryText,
	"mathtex":     CategoryText,
	"curve":       CategoryCurve,
	"plot":        CategoryCurve,
	"graph":       CategoryCurve,
	"function":    CategoryCurve,
	"axes":        CategoryAxes,
	"axis":        CategoryAxes,
	"axis_system": CategoryAxes,
	"numberplane": CategoryAxes,
	"point":       CategoryPoint,
	"dot":         CategoryPoint,
}

// String returns the canonical lowercase name.
func (c Category) String() string {
	if name, ok := categoryNames[c]; ok {
		return name
	}
	return fmt.Sprintf("category(%d)", int(c))
}

// ParseCategory maps a descriptor spelling to a category. Matching ignores
// case and surrounding whitespace. ok is false for unrecognised names, in
// which case CategoryUnknown is returned.
func ParseCategory(s string) (c Category, ok bool) {
	c, ok = categoryAliases[strings.ToLower(strings.TrimSpace(s))]
	return c, ok
}

// MarshalText implements encoding.TextMarshaler.
func (c Category) MarshalText() ([]byte, error) {
	return []byte(c.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler. Unrecognised names decode
// to CategoryUnknown rather than failing.
func (c *Category) UnmarshalText(text []byte) error {
	*c, _ = ParseCategory(string(text))
	return nil
}

// IsMathematical reports whether objects of this category carry coordinate
// information (curves and axis systems) that must not be hidden or distorted.
func (c Category) IsMathematical() bool {
	switch c {
	case CategoryCurve, CategoryAxes:
		return true
	case CategoryUnknown, CategoryShape, CategoryText, CategoryPoint:
		return false
	}
	return false
}

// PersistentByDefault reports whether objects of this category stay visible
// for the whole scene unless a descriptor says otherwise.
func (c Category) PersistentByDefault() bool {
	return c.IsMathematical()
}
