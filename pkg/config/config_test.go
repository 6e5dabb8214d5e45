package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDefaultIsValid(t *testing.T) {
	cfg := Default()
	if err := cfg.Validate(); err != nil {
		t.Fatal(err)
	}
	if cfg.Grid.UploadRows != 3 || cfg.Grid.UploadCols != 3 {
		t.Fatalf("upload shape %dx%d", cfg.Grid.UploadRows, cfg.Grid.UploadCols)
	}
	if cfg.Export.Filename != "tilemap.png" {
		t.Fatalf("filename %q", cfg.Export.Filename)
	}
}

func TestLoadYAMLAndEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tilegrid.yaml")
	yml := `
grid:
  rows: 2
  cols: 4
compose:
  workers: 3
export:
  dir: /tmp/out
assets:
  db_path: /tmp/assets
`
	if err := os.WriteFile(path, []byte(yml), 0o644); err != nil {
		t.Fatal(err)
	}
	t.Setenv("MAX_WORKERS", "6")
	t.Setenv("API_KEY", "secret")

	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Grid.Rows != 2 || cfg.Grid.Cols != 4 {
		t.Fatalf("grid %dx%d", cfg.Grid.Rows, cfg.Grid.Cols)
	}
	if cfg.Grid.UploadRows != 3 {
		t.Fatalf("default upload rows lost: %d", cfg.Grid.UploadRows)
	}
	if cfg.Compose.Workers != 6 {
		t.Fatalf("workers = %d, want env override", cfg.Compose.Workers)
	}
	if cfg.Generator.APIKey != "secret" || cfg.Generator.Model == "" {
		t.Fatalf("generator = %+v", cfg.Generator)
	}
	if cfg.Export.Dir != "/tmp/out" || cfg.Assets.DBPath != "/tmp/assets" {
		t.Fatalf("export %+v assets %+v", cfg.Export, cfg.Assets)
	}
}

func TestLoadBadEnvIntFallsBack(t *testing.T) {
	t.Setenv("MAX_WORKERS", "many")
	cfg, err := Load("")
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Compose.Workers != Default().Compose.Workers {
		t.Fatalf("workers = %d", cfg.Compose.Workers)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"zero rows", func(c *Config) { c.Grid.Rows = 0 }},
		{"zero upload cols", func(c *Config) { c.Grid.UploadCols = 0 }},
		{"inverted zoom", func(c *Config) { c.Zoom.Min = 2 }},
		{"zero step", func(c *Config) { c.Zoom.Step = 0 }},
		{"unknown sink", func(c *Config) { c.Export.Sink = "ftp" }},
		{"no filename", func(c *Config) { c.Export.Filename = "" }},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			cfg := Default()
			tc.mutate(&cfg)
			if err := cfg.Validate(); err == nil {
				t.Fatal("expected error")
			}
		})
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Fatal("expected error")
	}
}
