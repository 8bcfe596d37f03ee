package scene

import (
	"math"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/matzehuels/sceneguard/pkg/errors"
)

func TestParseCategory(t *testing.T) {
	tests := []struct {
		input  string
		want   Category
		wantOK bool
	}{
		{"circle", CategoryShape, true},
		{"  Text ", CategoryText, true},
		{"MathTex", CategoryText, true},
		{"plot", CategoryCurve, true},
		{"NumberPlane", CategoryAxes, true},
		{"dot", CategoryPoint, true},
		{"unknown", CategoryUnknown, true},
		{"sparkle", CategoryUnknown, false},
		{"", CategoryUnknown, false},
	}

	for _, tt := range tests {
		got, ok := ParseCategory(tt.input)
		if got != tt.want || ok != tt.wantOK {
			t.Errorf("ParseCategory(%q) = %v, %v, want %v, %v", tt.input, got, ok, tt.want, tt.wantOK)
		}
	}
}

func TestCategoryTextRoundTrip(t *testing.T) {
	for _, c := range Categories {
		text, err := c.MarshalText()
		if err != nil {
			t.Fatalf("MarshalText(%v): %v", c, err)
		}
		var back Category
		if err := back.UnmarshalText(text); err != nil {
			t.Fatalf("UnmarshalText(%s): %v", text, err)
		}
		if back != c {
			t.Errorf("round trip %v -> %s -> %v", c, text, back)
		}
	}
}

func TestCategoryIsMathematical(t *testing.T) {
	for _, c := range Categories {
		want := c == CategoryCurve || c == CategoryAxes
		if got := c.IsMathematical(); got != want {
			t.Errorf("%v.IsMathematical() = %v, want %v", c, got, want)
		}
		if c.PersistentByDefault() != want {
			t.Errorf("%v.PersistentByDefault() = %v, want %v", c, c.PersistentByDefault(), want)
		}
	}
}

func TestObjectFootprint(t *testing.T) {
	tests := []struct {
		name         string
		size         Size
		scale        float64
		wantRadius   float64
		wantW, wantH float64
	}{
		{"circle", Circle(1), 1, 1, 2, 2},
		{"rect", Rect(4, 2), 1, 2, 4, 2},
		{"scaled circle", Circle(1), 0.5, 0.5, 1, 1},
		{"zero scale", Rect(2, 2), 0, 0, 0, 0},
		{"radius wins", Size{Radius: 0.5, Width: 4, Height: 4}, 1, 0.5, 4, 4},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			o := NewObject("o", CategoryShape, tt.size)
			o.Scale = tt.scale
			o.Refresh()
			if got := o.Radius(); got != tt.wantRadius {
				t.Errorf("Radius() = %v, want %v", got, tt.wantRadius)
			}
			if o.Box.Width() != tt.wantW || o.Box.Height() != tt.wantH {
				t.Errorf("Box = %vx%v, want %vx%v", o.Box.Width(), o.Box.Height(), tt.wantW, tt.wantH)
			}
		})
	}
}

func TestObjectAtRefreshesBox(t *testing.T) {
	o := NewObject("c", CategoryShape, Circle(1))
	moved := o.At(r3.Vec{X: 3, Y: -1})
	want := BBox{MinX: 2, MinY: -2, MaxX: 4, MaxY: 0}
	if diff := cmp.Diff(want, moved.Box); diff != "" {
		t.Errorf("box mismatch (-want +got):\n%s", diff)
	}
	if o.Position != (r3.Vec{}) {
		t.Error("At must not modify the receiver")
	}
}

func TestObjectCloneIsDeep(t *testing.T) {
	hint := r3.Vec{X: 1}
	o := NewObject("c", CategoryShape, Circle(1))
	o.Hint = &hint
	o.Props = map[string]any{"color": "RED"}

	c := o.Clone()
	c.Hint.X = 9
	c.Props["color"] = "BLUE"

	if o.Hint.X != 1 || o.Props["color"] != "RED" {
		t.Error("Clone shares hint or props with the original")
	}
}

func TestBBoxOps(t *testing.T) {
	a := BBox{MinX: 0, MinY: 0, MaxX: 2, MaxY: 2}
	b := BBox{MinX: 1, MinY: 1, MaxX: 4, MaxY: 3}

	if !a.Intersects(b) {
		t.Error("a and b should intersect")
	}
	if a.Intersects(BBox{MinX: 2, MinY: 0, MaxX: 3, MaxY: 1}) {
		t.Error("touching edges should not count as intersecting")
	}
	if got := a.Union(b); got != (BBox{MinX: 0, MinY: 0, MaxX: 4, MaxY: 3}) {
		t.Errorf("Union = %+v", got)
	}
	if got := a.Scale(2); got != (BBox{MinX: -1, MinY: -1, MaxX: 3, MaxY: 3}) {
		t.Errorf("Scale(2) = %+v", got)
	}
	if got := a.Inset(5); got.Width() != 0 || got.Height() != 0 || got.Center() != a.Center() {
		t.Errorf("Inset beyond half width = %+v, want collapsed onto centre", got)
	}
	if got := a.Clamp(r3.Vec{X: -3, Y: 1, Z: 7}); got != (r3.Vec{X: 0, Y: 1, Z: 7}) {
		t.Errorf("Clamp = %+v", got)
	}
	if (BBox{MinX: math.NaN()}).Valid() {
		t.Error("NaN box should be invalid")
	}
}

func TestDescriptorObject(t *testing.T) {
	z := 4
	persistent := false
	d := Descriptor{
		ID:         "axes",
		Category:   "NumberPlane",
		Position:   []float64{1, 2},
		Width:      10,
		Height:     6,
		Color:      "BLUE",
		ZOrder:     &z,
		Persistent: &persistent,
	}

	o := d.Object()
	if o.Category != CategoryAxes {
		t.Errorf("Category = %v, want axes", o.Category)
	}
	if o.Hint == nil || *o.Hint != (r3.Vec{X: 1, Y: 2}) {
		t.Errorf("Hint = %v, want (1,2,0)", o.Hint)
	}
	if o.ZOrder != 4 {
		t.Errorf("ZOrder = %d, want 4", o.ZOrder)
	}
	if o.Persistent {
		t.Error("descriptor override should make axes transient")
	}
	if o.Props["color"] != "BLUE" {
		t.Errorf("color prop = %v", o.Props["color"])
	}

	defaulted := Descriptor{ID: "plot", Category: "plot", Radius: 1}.Object()
	if !defaulted.Persistent {
		t.Error("curves should default to persistent")
	}
	if defaulted.Hint != nil {
		t.Error("descriptor without position should have no hint")
	}
}

func TestDecodeDescriptors(t *testing.T) {
	jsonScene := `{"objects":[{"id":"a","category":"circle","radius":1},{"id":"b","category":"text","width":2,"height":0.5,"position":[0,3]}]}`
	yamlScene := "objects:\n  - id: a\n    category: circle\n    radius: 1\n  - id: b\n    category: text\n    width: 2\n    height: 0.5\n    position: [0, 3]\n"
	tomlScene := "[[objects]]\nid = \"a\"\ncategory = \"circle\"\nradius = 1.0\n\n[[objects]]\nid = \"b\"\ncategory = \"text\"\nwidth = 2.0\nheight = 0.5\nposition = [0.0, 3.0]\n"

	for format, data := range map[string]string{FormatJSON: jsonScene, FormatYAML: yamlScene, FormatTOML: tomlScene} {
		t.Run(format, func(t *testing.T) {
			f, err := DecodeDescriptors([]byte(data), format)
			if err != nil {
				t.Fatalf("DecodeDescriptors: %v", err)
			}
			objs := f.ObjectList()
			if len(objs) != 2 {
				t.Fatalf("got %d objects, want 2", len(objs))
			}
			if objs[0].Radius() != 1 || objs[1].Category != CategoryText {
				t.Errorf("unexpected objects: %+v", objs)
			}
			if objs[1].Hint == nil || objs[1].Hint.Y != 3 {
				t.Errorf("text hint = %v, want y=3", objs[1].Hint)
			}
		})
	}
}

func TestDecodeDescriptorsErrors(t *testing.T) {
	tests := []struct {
		name string
		data string
		code errors.Code
	}{
		{"duplicate id", `{"objects":[{"id":"a"},{"id":"a"}]}`, errors.ErrCodeDuplicateID},
		{"empty id", `{"objects":[{"id":""}]}`, errors.ErrCodeInvalidInput},
		{"negative size", `{"objects":[{"id":"a","radius":-1}]}`, errors.ErrCodeInvalidScene},
		{"bad json", `{"objects":`, errors.ErrCodeInvalidScene},
		{"unknown field", `{"objects":[{"id":"a","bogus":1}]}`, errors.ErrCodeInvalidScene},
		{"bad screen", `{"screen":{"min_x":1,"max_x":0,"min_y":0,"max_y":1},"objects":[]}`, errors.ErrCodeInvalidBounds},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := DecodeDescriptors([]byte(tt.data), FormatJSON)
			if !errors.Is(err, tt.code) {
				t.Errorf("error = %v, want code %s", err, tt.code)
			}
		})
	}
}

func TestFormatFromPath(t *testing.T) {
	tests := map[string]string{
		"scene.json": FormatJSON,
		"scene.YML":  FormatYAML,
		"a/b.yaml":   FormatYAML,
		"s.toml":     FormatTOML,
	}
	for path, want := range tests {
		got, err := FormatFromPath(path)
		if err != nil || got != want {
			t.Errorf("FormatFromPath(%q) = %q, %v, want %q", path, got, err, want)
		}
	}
	if _, err := FormatFromPath("scene.xml"); !errors.Is(err, errors.ErrCodeInvalidFormat) {
		t.Errorf("xml should be rejected, got %v", err)
	}
}

func TestPlacedRoundTrip(t *testing.T) {
	o := NewObject("c", CategoryPoint, Circle(0.1)).At(r3.Vec{X: 1, Y: 2})
	o.ZOrder = 3
	o.CreatedAt = 7

	back := Export(o).Object()
	if diff := cmp.Diff(o, back); diff != "" {
		t.Errorf("round trip mismatch (-want +got):\n%s", diff)
	}
}

func TestReadDescriptors_Examples(t *testing.T) {
	tests := []struct {
		file    string
		objects int
		screen  bool
	}{
		{"function_plot.yaml", 5, true},
		{"shapes.json", 5, false},
		{"crowded.toml", 5, true},
	}
	for _, tt := range tests {
		t.Run(tt.file, func(t *testing.T) {
			f, err := ReadDescriptors(filepath.Join("..", "..", "examples", "scenes", tt.file))
			if err != nil {
				t.Fatalf("ReadDescriptors() error = %v", err)
			}
			if got := len(f.ObjectList()); got != tt.objects {
				t.Errorf("len(ObjectList()) = %d, want %d", got, tt.objects)
			}
			if got := f.Screen != nil; got != tt.screen {
				t.Errorf("has screen = %v, want %v", got, tt.screen)
			}
		})
	}
}
