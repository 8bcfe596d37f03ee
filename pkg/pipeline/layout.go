package pipeline

import (
	"encoding/json"
	"io"
	"os"
	"time"

	"github.com/matzehuels/sceneguard/pkg/camera"
	"github.com/matzehuels/sceneguard/pkg/errors"
	"github.com/matzehuels/sceneguard/pkg/placement"
	"github.com/matzehuels/sceneguard/pkg/scene"
)

// LayoutVersion is bumped whenever the serialized form changes shape.
// Cached layouts with another version are recomputed.
const LayoutVersion = 1

// Layout is the serializable result of a workflow run.
type Layout struct {
	Version int            `json:"version" bson:"version"`
	Screen  scene.BBox     `json:"screen" bson:"screen"`
	Objects []scene.Placed `json:"objects" bson:"objects"`
	Camera  camera.Action  `json:"camera" bson:"camera"`
	Summary Summary        `json:"summary" bson:"summary"`
}

// Summary reports what the workflow did.
type Summary struct {
	Positioned    int                        `json:"positioned" bson:"positioned"`
	Strategies    map[placement.Strategy]int `json:"strategies" bson:"strategies"`
	Placements    []Placement                `json:"placements,omitempty" bson:"placements,omitempty"`
	Analysis      Analysis                   `json:"analysis" bson:"analysis"`
	Conflicts     int                        `json:"conflicts" bson:"conflicts"`
	Resolved      int                        `json:"resolved" bson:"resolved"`
	CameraActions []camera.Action            `json:"camera_actions,omitempty" bson:"camera_actions,omitempty"`
	Corrections   Corrections                `json:"corrections" bson:"corrections"`
	Warnings      []string                   `json:"warnings,omitempty" bson:"warnings,omitempty"`
	Persistent    []string                   `json:"persistent,omitempty" bson:"persistent,omitempty"`
	Transient     []string                   `json:"transient,omitempty" bson:"transient,omitempty"`
	Sequence      []string                   `json:"sequence" bson:"sequence"`
	Valid         bool                       `json:"valid" bson:"valid"`
	Phases        []PhaseTiming              `json:"phases" bson:"phases"`
	CacheHit      bool                       `json:"cache_hit" bson:"cache_hit"`
}

// Placement records the engine's decision for one object.
type Placement struct {
	ID         string             `json:"id" bson:"id"`
	Strategy   placement.Strategy `json:"strategy" bson:"strategy"`
	Confidence float64            `json:"confidence" bson:"confidence"`
	Risk       float64            `json:"risk" bson:"risk"`
}

// Analysis is the output of the analyze phase.
type Analysis struct {
	Counts     map[scene.Category]int `json:"counts" bson:"counts"`
	Hinted     int                    `json:"hinted" bson:"hinted"`
	MeanX      float64                `json:"mean_x" bson:"mean_x"`
	MeanY      float64                `json:"mean_y" bson:"mean_y"`
	SpreadX    float64                `json:"spread_x" bson:"spread_x"`
	SpreadY    float64                `json:"spread_y" bson:"spread_y"`
	Density    float64                `json:"density" bson:"density"`
	Complexity string                 `json:"complexity" bson:"complexity"`
}

// Corrections counts monitor corrections. It stays zero until the monitor
// has run; [Result.Stop] fills it in.
type Corrections struct {
	Scheduled int `json:"scheduled" bson:"scheduled"`
	Applied   int `json:"applied" bson:"applied"`
	Failed    int `json:"failed" bson:"failed"`
}

// PhaseTiming is the wall time of one phase.
type PhaseTiming struct {
	Name     string        `json:"name" bson:"name"`
	Duration time.Duration `json:"duration" bson:"duration"`
	Skipped  bool          `json:"skipped,omitempty" bson:"skipped,omitempty"`
}

// ObjectList converts the placed objects back into scene objects.
func (l Layout) ObjectList() []scene.Object {
	out := make([]scene.Object, len(l.Objects))
	for i, p := range l.Objects {
		out[i] = p.Object()
	}
	return out
}

// MarshalLayout encodes l as indented JSON.
func MarshalLayout(l Layout) ([]byte, error) {
	return json.MarshalIndent(l, "", "  ")
}

// UnmarshalLayout decodes a layout and rejects other versions.
func UnmarshalLayout(data []byte) (Layout, error) {
	var l Layout
	if err := json.Unmarshal(data, &l); err != nil {
		return Layout{}, errors.Wrap(errors.ErrCodeInvalidFormat, err, "decode layout")
	}
	if l.Version != LayoutVersion {
		return Layout{}, errors.New(errors.ErrCodeInvalidFormat, "layout version %d, want %d", l.Version, LayoutVersion)
	}
	return l, nil
}

// WriteLayout writes l as JSON to w.
func WriteLayout(w io.Writer, l Layout) error {
	data, err := MarshalLayout(l)
	if err != nil {
		return err
	}
	_, err = w.Write(append(data, '\n'))
	return err
}

// ReadLayout reads a layout from r.
func ReadLayout(r io.Reader) (Layout, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return Layout{}, err
	}
	return UnmarshalLayout(data)
}

// ReadLayoutFile reads a layout from path.
func ReadLayoutFile(path string) (Layout, error) {
	f, err := os.Open(path)
	if err != nil {
		return Layout{}, errors.Wrap(errors.ErrCodeInvalidInput, err, "open layout")
	}
	defer f.Close()
	return ReadLayout(f)
}
