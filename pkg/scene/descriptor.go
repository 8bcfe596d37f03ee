package scene

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"gonum.org/v1/gonum/spatial/r3"
	"gopkg.in/yaml.v3"

	"github.com/matzehuels/sceneguard/pkg/errors"
)

// Scene file formats accepted by [DecodeDescriptors].
const (
	FormatJSON = "json"
	FormatYAML = "yaml"
	FormatTOML = "toml"
)

// Descriptor is the normalized description of one incoming object, as produced
// by an upstream normalization step.
type Descriptor struct {
	ID         string         `json:"id" yaml:"id" toml:"id"`
	Category   string         `json:"category" yaml:"category" toml:"category"`
	Position   []float64      `json:"position,omitempty" yaml:"position,omitempty" toml:"position,omitempty"`
	Radius     float64        `json:"radius,omitempty" yaml:"radius,omitempty" toml:"radius,omitempty"`
	Width      float64        `json:"width,omitempty" yaml:"width,omitempty" toml:"width,omitempty"`
	Height     float64        `json:"height,omitempty" yaml:"height,omitempty" toml:"height,omitempty"`
	Color      string         `json:"color,omitempty" yaml:"color,omitempty" toml:"color,omitempty"`
	ZOrder     *int           `json:"z_order,omitempty" yaml:"z_order,omitempty" toml:"z_order,omitempty"`
	Persistent *bool          `json:"persistent,omitempty" yaml:"persistent,omitempty" toml:"persistent,omitempty"`
	Props      map[string]any `json:"props,omitempty" yaml:"props,omitempty" toml:"props,omitempty"`
}

// File is the top-level layout of a scene file.
type File struct {
	Screen  *BBox        `json:"screen,omitempty" yaml:"screen,omitempty" toml:"screen,omitempty"`
	Objects []Descriptor `json:"objects" yaml:"objects" toml:"objects"`
}

// Validate checks the descriptor for structural problems.
func (d Descriptor) Validate() error {
	if err := errors.ValidateObjectID(d.ID); err != nil {
		return err
	}
	if !(Size{Radius: d.Radius, Width: d.Width, Height: d.Height}).Valid() {
		return errors.New(errors.ErrCodeInvalidScene, "object %q has a negative or non-finite size", d.ID)
	}
	if len(d.Position) > 3 {
		return errors.New(errors.ErrCodeInvalidScene, "object %q position has %d components (max 3)", d.ID, len(d.Position))
	}
	return nil
}

// Object converts the descriptor into an unregistered Object. A position, when
// present, becomes the placement hint; missing components default to zero.
func (d Descriptor) Object() Object {
	cat, _ := ParseCategory(d.Category)
	o := NewObject(d.ID, cat, Size{Radius: d.Radius, Width: d.Width, Height: d.Height})
	if len(d.Position) > 0 {
		var v [3]float64
		copy(v[:], d.Position)
		hint := r3.Vec{X: v[0], Y: v[1], Z: v[2]}
		o.Hint = &hint
		o.Position = hint
	}
	if d.ZOrder != nil {
		o.ZOrder = *d.ZOrder
	}
	o.Persistent = cat.PersistentByDefault()
	if d.Persistent != nil {
		o.Persistent = *d.Persistent
	}
	if len(d.Props) > 0 || d.Color != "" {
		o.Props = make(map[string]any, len(d.Props)+1)
		for k, v := range d.Props {
			o.Props[k] = v
		}
		if d.Color != "" {
			o.Props["color"] = d.Color
		}
	}
	o.Refresh()
	return o
}

// FormatFromPath infers the scene format from a file extension.
func FormatFromPath(path string) (string, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		return FormatJSON, nil
	case ".yaml", ".yml":
		return FormatYAML, nil
	case ".toml":
		return FormatTOML, nil
	}
	return "", errors.New(errors.ErrCodeInvalidFormat, "unsupported scene file extension %q (want .json, .yaml or .toml)", filepath.Ext(path))
}

// DecodeDescriptors parses scene file data in the given format and validates
// the result with [File.Validate].
func DecodeDescriptors(data []byte, format string) (File, error) {
	var f File
	var err error
	switch format {
	case FormatJSON:
		dec := json.NewDecoder(bytes.NewReader(data))
		dec.DisallowUnknownFields()
		err = dec.Decode(&f)
	case FormatYAML:
		err = yaml.Unmarshal(data, &f)
	case FormatTOML:
		_, err = toml.Decode(string(data), &f)
	default:
		return File{}, errors.New(errors.ErrCodeInvalidFormat, "unknown scene format %q", format)
	}
	if err != nil {
		return File{}, errors.Wrap(errors.ErrCodeInvalidScene, err, "decode %s scene", format)
	}

	if err := f.Validate(); err != nil {
		return File{}, err
	}
	return f, nil
}

// Validate checks every descriptor and the screen, and rejects duplicate ids
// so callers get a single error before anything is registered.
func (f File) Validate() error {
	seen := make(map[string]bool, len(f.Objects))
	for _, d := range f.Objects {
		if err := d.Validate(); err != nil {
			return err
		}
		if seen[d.ID] {
			return errors.New(errors.ErrCodeDuplicateID, "object %q appears more than once", d.ID)
		}
		seen[d.ID] = true
	}
	if f.Screen != nil {
		s := *f.Screen
		return errors.ValidateBounds(s.MinX, s.MinY, s.MaxX, s.MaxY)
	}
	return nil
}

// ReadDescriptors reads and decodes a scene file, inferring the format from
// its extension.
func ReadDescriptors(path string) (File, error) {
	format, err := FormatFromPath(path)
	if err != nil {
		return File{}, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return File{}, errors.Wrap(errors.ErrCodeInvalidInput, err, "read %s", path)
	}
	return DecodeDescriptors(data, format)
}

// ObjectList converts every descriptor in arrival order.
func (f File) ObjectList() []Object {
	out := make([]Object, len(f.Objects))
	for i, d := range f.Objects {
		out[i] = d.Object()
	}
	return out
}
