package cartoview

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
)

func writeConfig(t *testing.T, contents string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "cartoview.hcl")
	if err := os.WriteFile(path, []byte(contents), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadConfig(t *testing.T) {
	t.Setenv("CARTOVIEW_WORLD", "/srv/world")

	path := writeConfig(t, `
concurrency = 3

viewer {
  tick_interval = "8ms"
  queue_size    = 256
  zoom          = 6
}

layer "surface" {
  render  = "surface"
  options = {
    strip_ceiling = "true"
  }
}

layer "biomes" {
  render = lower("BIOME")
}

map "overworld" {
  path   = format("%s/region", env("CARTOVIEW_WORLD"))
  layers = ["surface", "biomes"]
}
`)

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}

	m, ok := cfg.Map("overworld")
	if !ok {
		t.Fatal("expected map overworld")
	}
	if m.Path != "/srv/world/region" {
		t.Fatalf("unexpected map path %q", m.Path)
	}

	layer, ok := cfg.Layer("biomes")
	if !ok || layer.Render != "biome" {
		t.Fatalf("unexpected biomes layer %+v", layer)
	}
	surface, _ := cfg.Layer("surface")
	if !surface.Options.GetBool("strip_ceiling", false) {
		t.Fatal("expected strip_ceiling to be set")
	}

	want := RendererOpts{TickInterval: 8 * time.Millisecond, Workers: 3, QueueSize: 256}
	if diff := cmp.Diff(want, cfg.RendererOpts()); diff != "" {
		t.Fatalf("unexpected renderer opts (-want +got):\n%s", diff)
	}
	if cfg.InitialZoom() != 6 {
		t.Fatalf("expected zoom 6, got %d", cfg.InitialZoom())
	}
}

func TestLoadConfigDefaults(t *testing.T) {
	path := writeConfig(t, `
layer "light" {
  render = "lighting"
}

map "nether" {
  path   = "/srv/world/DIM-1/region"
  layers = ["light"]
}
`)

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if diff := cmp.Diff(RendererOpts{}, cfg.RendererOpts()); diff != "" {
		t.Fatalf("expected zero renderer opts (-want +got):\n%s", diff)
	}
	if cfg.InitialZoom() != BaseZoom {
		t.Fatalf("expected base zoom, got %d", cfg.InitialZoom())
	}
}

func TestConfigValidate(t *testing.T) {
	zoom := 40
	tests := []struct {
		name   string
		config Config
		errors []string
	}{
		{
			name: "valid",
			config: Config{
				Layers: []*LayerConfigBlock{{Name: "a", Render: "surface"}},
				Maps:   []*MapConfigBlock{{Name: "m", Path: "/w", Layers: []string{"a"}}},
			},
		},
		{
			name: "unknown renderer and layer",
			config: Config{
				Layers: []*LayerConfigBlock{{Name: "a", Render: "isometric"}},
				Maps:   []*MapConfigBlock{{Name: "m", Path: "/w", Layers: []string{"b"}}},
			},
			errors: []string{`unsupported renderer "isometric"`, `unknown layer "b"`},
		},
		{
			name: "bad viewer",
			config: Config{
				Concurrency: -1,
				Viewer:      &ViewerConfigBlock{TickInterval: "soon", Zoom: &zoom},
			},
			errors: []string{"concurrency", "viewer.tick_interval", "viewer.zoom"},
		},
		{
			name: "duplicate layer and empty map",
			config: Config{
				Layers: []*LayerConfigBlock{{Name: "a", Render: "biome"}, {Name: "a", Render: "biome"}},
				Maps:   []*MapConfigBlock{{Name: "m"}},
			},
			errors: []string{"defined twice", "path must be set", "at least one layer"},
		},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			err := test.config.Validate()
			if len(test.errors) == 0 {
				if err != nil {
					t.Fatalf("expected no error, got %v", err)
				}
				return
			}
			if err == nil {
				t.Fatal("expected an error")
			}
			for _, want := range test.errors {
				if !strings.Contains(err.Error(), want) {
					t.Errorf("expected error to mention %q, got %v", want, err)
				}
			}
		})
	}
}

func TestLoadConfigRejectsInvalid(t *testing.T) {
	path := writeConfig(t, `
map "overworld" {
  path   = "/srv/world/region"
  layers = ["missing"]
}
`)
	if _, err := LoadConfig(path); err == nil || !strings.Contains(err.Error(), `unknown layer "missing"`) {
		t.Fatalf("expected unknown layer error, got %v", err)
	}
}

func TestRenderOptsGetBool(t *testing.T) {
	opts := RenderOpts{"a": "true", "b": "0", "c": "maybe"}
	if !opts.GetBool("a", false) || opts.GetBool("b", true) || !opts.GetBool("c", true) || opts.GetBool("d", false) {
		t.Fatal("unexpected GetBool results")
	}
}
