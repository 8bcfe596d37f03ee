package config

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/matzehuels/sceneguard/pkg/errors"
	"github.com/matzehuels/sceneguard/pkg/overlap"
	"github.com/matzehuels/sceneguard/pkg/placement"
	"github.com/matzehuels/sceneguard/pkg/scene"
	"github.com/matzehuels/sceneguard/pkg/store"
)

func TestDefault(t *testing.T) {
	c := Default()
	if err := c.Validate(); err != nil {
		t.Fatalf("Default().Validate() = %v", err)
	}
	if c.Screen != scene.DefaultScreen {
		t.Errorf("Screen = %+v, want %+v", c.Screen, scene.DefaultScreen)
	}
	if !c.Monitor.AutoCorrect {
		t.Error("Monitor.AutoCorrect = false, want true")
	}
	if !c.FadeOut.Policy.Allowed || !c.FadeOut.Policy.ProtectPersistent {
		t.Errorf("FadeOut.Policy = %+v, want both true", c.FadeOut.Policy)
	}
	if c.Monitor.CheckInterval != overlap.DefaultCheckInterval {
		t.Errorf("Monitor.CheckInterval = %v, want %v", c.Monitor.CheckInterval, overlap.DefaultCheckInterval)
	}
	if c.Store.Backend != store.BackendMemory {
		t.Errorf("Store.Backend = %q, want %q", c.Store.Backend, store.BackendMemory)
	}
	if c.Server.Addr != DefaultAddr {
		t.Errorf("Server.Addr = %q, want %q", c.Server.Addr, DefaultAddr)
	}
}

func TestParse(t *testing.T) {
	c, err := Parse(`
[screen]
min_x = -10.0
min_y = -5.0
max_x = 10.0
max_y = 5.0

[placement]
grid_size = 30

[monitor]
check_interval = "250ms"
auto_correct = false

[server]
addr = ":9000"
`)
	if err != nil {
		t.Fatalf("Parse() error: %v", err)
	}

	if want := (scene.BBox{MinX: -10, MinY: -5, MaxX: 10, MaxY: 5}); c.Screen != want {
		t.Errorf("Screen = %+v, want %+v", c.Screen, want)
	}
	if c.Placement.GridSize != 30 {
		t.Errorf("Placement.GridSize = %d, want 30", c.Placement.GridSize)
	}
	if c.Placement.ForceIterations != placement.DefaultForceIterations {
		t.Errorf("Placement.ForceIterations = %d, want default %d", c.Placement.ForceIterations, placement.DefaultForceIterations)
	}
	if c.Monitor.CheckInterval != 250*time.Millisecond {
		t.Errorf("Monitor.CheckInterval = %v, want 250ms", c.Monitor.CheckInterval)
	}
	if c.Monitor.AutoCorrect {
		t.Error("Monitor.AutoCorrect = true, want false")
	}
	if !c.FadeOut.Policy.Allowed {
		t.Error("untouched FadeOut.Policy.Allowed lost its default")
	}
	if c.Server.Addr != ":9000" {
		t.Errorf("Server.Addr = %q, want :9000", c.Server.Addr)
	}
}

func TestParse_Errors(t *testing.T) {
	tests := []struct {
		name string
		text string
		want string
	}{
		{"syntax", "[screen\n", "parse config"},
		{"unknown key", "[monitor]\ncheck_intervall = \"1s\"\n", "monitor.check_intervall"},
		{"bad screen", "[screen]\nmin_x = 5.0\nmax_x = -5.0\n", "[screen]"},
		{"bad placement", "[placement]\ngrid_size = 1\n", "[placement]"},
		{"bad store", "[store]\nbackend = \"sqlite\"\n", "[store]"},
		{"bad server", "[server]\nmax_live_scenes = -1\n", "[server]"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse(tt.text)
			if err == nil {
				t.Fatal("Parse() error = nil, want error")
			}
			if !errors.Is(err, errors.ErrCodeInvalidConfig) {
				t.Errorf("Parse() code = %s, want INVALID_CONFIG", errors.GetCode(err))
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Errorf("Parse() error = %q, want it to mention %q", err, tt.want)
			}
		})
	}
}

func TestWriteLoadRoundTrip(t *testing.T) {
	want := Default()
	want.Placement.GridSize = 25
	want.Monitor.PreDelay = 2 * time.Second
	want.FadeOut.Policy.ProtectPersistent = false

	var buf bytes.Buffer
	if err := Write(&buf, want); err != nil {
		t.Fatalf("Write() error: %v", err)
	}
	path := filepath.Join(t.TempDir(), "sceneguard.toml")
	if err := os.WriteFile(path, buf.Bytes(), 0o600); err != nil {
		t.Fatal(err)
	}

	got, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error: %v\n%s", err, buf.String())
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("round trip mismatch (-want +got):\n%s", diff)
	}
}

func TestLoad_Missing(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "nope.toml")); err == nil {
		t.Error("Load() of a missing file: want error")
	}
}

func TestPipelineOptions(t *testing.T) {
	c := Default()
	c.Placement.GridSize = 12
	opts := c.PipelineOptions()
	if opts.Placement.GridSize != 12 || opts.Screen != c.Screen || opts.Monitor != c.Monitor {
		t.Errorf("PipelineOptions() = %+v, does not mirror config", opts)
	}
	if err := opts.Validate(); err != nil {
		t.Errorf("PipelineOptions().Validate() = %v", err)
	}
}

func TestLoad_Example(t *testing.T) {
	c, err := Load(filepath.Join("..", "..", "examples", "scenes", "sceneguard.toml"))
	if err != nil {
		t.Fatalf("Load(example) error = %v", err)
	}
	if c.Monitor.CheckInterval != 250*time.Millisecond {
		t.Errorf("Monitor.CheckInterval = %v, want 250ms", c.Monitor.CheckInterval)
	}
	if c.Store.Backend != store.BackendFile || c.Store.Dir != "runs" {
		t.Errorf("Store = %+v, want file backend in runs", c.Store)
	}
	if c.Server.MaxLiveScenes != 16 {
		t.Errorf("Server.MaxLiveScenes = %d, want 16", c.Server.MaxLiveScenes)
	}
}
