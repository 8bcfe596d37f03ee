package buildinfo

import (
	"runtime/debug"
	"strings"
	"testing"
)

func TestFill(t *testing.T) {
	tests := []struct {
		name string
		vars [3]string
		bi   debug.BuildInfo
		want [3]string
	}{
		{
			name: "devel build keeps defaults",
			vars: [3]string{"dev", "none", "unknown"},
			bi:   debug.BuildInfo{Main: debug.Module{Version: "(devel)"}},
			want: [3]string{"dev", "none", "unknown"},
		},
		{
			name: "module version and vcs stamp",
			vars: [3]string{"dev", "none", "unknown"},
			bi: debug.BuildInfo{
				Main: debug.Module{Version: "v0.3.1"},
				Settings: []debug.BuildSetting{
					{Key: "vcs.revision", Value: "abc123"},
					{Key: "vcs.time", Value: "2026-01-02T03:04:05Z"},
				},
			},
			want: [3]string{"v0.3.1", "abc123", "2026-01-02T03:04:05Z"},
		},
		{
			name: "ldflags win",
			vars: [3]string{"v1.0.0", "deadbeef", "2026-05-01"},
			bi: debug.BuildInfo{
				Main:     debug.Module{Version: "v0.3.1"},
				Settings: []debug.BuildSetting{{Key: "vcs.revision", Value: "abc123"}},
			},
			want: [3]string{"v1.0.0", "deadbeef", "2026-05-01"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			saved := [3]string{Version, Commit, Date}
			t.Cleanup(func() { Version, Commit, Date = saved[0], saved[1], saved[2] })

			Version, Commit, Date = tt.vars[0], tt.vars[1], tt.vars[2]
			fill(&tt.bi)
			if got := [3]string{Version, Commit, Date}; got != tt.want {
				t.Errorf("fill() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestTemplate(t *testing.T) {
	got := Template()
	if !strings.HasPrefix(got, "{{.Name}} version "+Version) {
		t.Errorf("Template() = %q", got)
	}
	if !strings.Contains(String(), "commit: "+Commit) {
		t.Errorf("String() = %q", String())
	}
}
