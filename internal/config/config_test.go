package config

import (
	"testing"
)

func TestLoadDefaults(t *testing.T) {
	cfg := Load()

	tests := []struct {
		name string
		got  string
		want string
	}{
		{"web root", cfg.WebRoot, "web"},
		{"config root", cfg.ConfigRoot, "config"},
		{"renderer jar", cfg.RendererJar, "bluemap.jar"},
		{"artifacts root", cfg.ArtifactsRoot, "artifacts"},
		{"staging root", cfg.StagingRoot, "staging"},
		{"java bin", cfg.JavaBin, "java"},
		{"unzip bin", cfg.UnzipBin, "unzip"},
		{"http port", cfg.HTTPPort, "8080"},
		{"queue name", cfg.QueueName, "mapserve:renders"},
		{"dimension", cfg.MapDimension, "overworld"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.got != tt.want {
				t.Errorf("got %q, want %q", tt.got, tt.want)
			}
		})
	}

	if cfg.Precompress {
		t.Error("expected precompression to default off")
	}
}

func TestEnvOverride(t *testing.T) {
	t.Setenv("WEB_ROOT", "/srv/bluemap/web")
	t.Setenv("PRECOMPRESS_TILES", "true")

	cfg := Load()
	if cfg.WebRoot != "/srv/bluemap/web" {
		t.Errorf("expected env override, got %q", cfg.WebRoot)
	}
	if !cfg.Precompress {
		t.Error("expected precompression enabled")
	}
}

func TestBoolEnv(t *testing.T) {
	tests := []struct {
		val  string
		def  bool
		want bool
	}{
		{"", true, true},
		{"", false, false},
		{"1", false, true},
		{"false", true, false},
		{"bogus", true, true},
	}

	for _, tt := range tests {
		t.Setenv("MAPSERVE_TEST_BOOL", tt.val)
		if got := BoolEnv("MAPSERVE_TEST_BOOL", tt.def); got != tt.want {
			t.Errorf("BoolEnv(%q, %v)=%v, want %v", tt.val, tt.def, got, tt.want)
		}
	}
}

func TestEnvCSV(t *testing.T) {
	t.Setenv("MAPSERVE_TEST_CSV", " a, ,b ,")
	got := EnvCSV("MAPSERVE_TEST_CSV", nil)
	if len(got) != 2 || got[0] != "a" || got[1] != "b" {
		t.Errorf("unexpected csv parse: %v", got)
	}

	t.Setenv("MAPSERVE_TEST_CSV", "")
	got = EnvCSV("MAPSERVE_TEST_CSV", []string{"def"})
	if len(got) != 1 || got[0] != "def" {
		t.Errorf("expected default, got %v", got)
	}
}
