// Package config loads settings from an optional YAML file and the
// environment. Environment variables win over the file.
package config

import (
	"fmt"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"

	"github.com/PhantomInTheWire/tilegrid/pkg/generate"
	"github.com/PhantomInTheWire/tilegrid/pkg/split"
	"github.com/PhantomInTheWire/tilegrid/pkg/stitch"
	"github.com/PhantomInTheWire/tilegrid/pkg/view"
)

type Config struct {
	Grid      GridConfig      `yaml:"grid"`
	Zoom      ZoomConfig      `yaml:"zoom"`
	Compose   ComposeConfig   `yaml:"compose"`
	Generator GeneratorConfig `yaml:"generator"`
	Export    ExportConfig    `yaml:"export"`
	S3        S3Config        `yaml:"s3"`
	Assets    AssetsConfig    `yaml:"assets"`
	Filter    FilterConfig    `yaml:"filter"`
}

type GridConfig struct {
	// Rows and Cols shape the empty grid the editor starts with.
	Rows int `yaml:"rows"`
	Cols int `yaml:"cols"`
	// UploadRows and UploadCols shape grids sliced from uploads.
	UploadRows int `yaml:"upload_rows"`
	UploadCols int `yaml:"upload_cols"`
}

type ZoomConfig struct {
	Min  float64 `yaml:"min"`
	Max  float64 `yaml:"max"`
	Step float64 `yaml:"step"`
}

type ComposeConfig struct {
	Workers   int `yaml:"workers"`
	MaxPixels int `yaml:"max_pixels"`
}

type GeneratorConfig struct {
	APIKey string `yaml:"api_key"`
	Model  string `yaml:"model"`
}

type ExportConfig struct {
	Dir      string `yaml:"dir"`
	Filename string `yaml:"filename"`
	// Sink is "dir" or "s3".
	Sink string `yaml:"sink"`
}

type S3Config struct {
	Endpoint  string `yaml:"endpoint"`
	Region    string `yaml:"region"`
	AccessKey string `yaml:"access_key"`
	SecretKey string `yaml:"secret_key"`
	Bucket    string `yaml:"bucket"`
	Prefix    string `yaml:"prefix"`
}

type AssetsConfig struct {
	// DBPath is a LevelDB directory; empty keeps assets in memory.
	DBPath string `yaml:"db_path"`
}

type FilterConfig struct {
	WasmPath string `yaml:"wasm_path"`
	Func     string `yaml:"func"`
	Workers  int    `yaml:"workers"`
}

func Default() Config {
	return Config{
		Grid: GridConfig{Rows: 5, Cols: 5, UploadRows: split.DefaultRows, UploadCols: split.DefaultCols},
		Zoom: ZoomConfig{Min: view.DefaultMinZoom, Max: view.DefaultMaxZoom, Step: view.DefaultZoomStep},
		Compose: ComposeConfig{
			Workers:   stitch.DefaultWorkers,
			MaxPixels: stitch.DefaultMaxPixels,
		},
		Generator: GeneratorConfig{Model: generate.DefaultModel},
		Export:    ExportConfig{Dir: ".", Filename: "tilemap.png", Sink: "dir"},
		S3: S3Config{
			Endpoint:  "http://localhost:9000",
			Region:    "us-east-1",
			AccessKey: "minioadmin",
			SecretKey: "minioadmin",
			Bucket:    "tiles-bucket",
		},
		Filter: FilterConfig{Workers: 4},
	}
}

// Load reads path (if non-empty) over the defaults, then applies the
// environment.
func Load(path string) (Config, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("config: read %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("config: unmarshal %s: %w", path, err)
		}
	}
	cfg.applyEnv()
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c *Config) applyEnv() {
	c.Grid.UploadRows = getEnvInt("TILEGRID_UPLOAD_ROWS", c.Grid.UploadRows)
	c.Grid.UploadCols = getEnvInt("TILEGRID_UPLOAD_COLS", c.Grid.UploadCols)
	c.Compose.Workers = getEnvInt("MAX_WORKERS", c.Compose.Workers)
	c.Generator.APIKey = getEnv("API_KEY", c.Generator.APIKey)
	c.Generator.Model = getEnv("TILEGRID_MODEL", c.Generator.Model)
	c.Export.Dir = getEnv("TILEGRID_EXPORT_DIR", c.Export.Dir)
	c.Export.Sink = getEnv("TILEGRID_EXPORT_SINK", c.Export.Sink)
	c.S3.Endpoint = getEnv("MINIO_ENDPOINT", c.S3.Endpoint)
	c.S3.AccessKey = getEnv("MINIO_ACCESS_KEY", c.S3.AccessKey)
	c.S3.SecretKey = getEnv("MINIO_SECRET_KEY", c.S3.SecretKey)
	c.S3.Bucket = getEnv("MINIO_BUCKET", c.S3.Bucket)
	c.Assets.DBPath = getEnv("TILEGRID_ASSET_DB", c.Assets.DBPath)
	c.Filter.WasmPath = getEnv("TILEGRID_FILTER_WASM", c.Filter.WasmPath)
	c.Filter.Func = getEnv("TILEGRID_FILTER_FUNC", c.Filter.Func)
}

func (c Config) Validate() error {
	if c.Grid.Rows < 1 || c.Grid.Cols < 1 {
		return fmt.Errorf("config: grid must be at least 1x1, got %dx%d", c.Grid.Rows, c.Grid.Cols)
	}
	if c.Grid.UploadRows < 1 || c.Grid.UploadCols < 1 {
		return fmt.Errorf("config: upload grid must be at least 1x1, got %dx%d", c.Grid.UploadRows, c.Grid.UploadCols)
	}
	if c.Zoom.Min <= 0 || c.Zoom.Min > 1 || c.Zoom.Max < 1 || c.Zoom.Step <= 0 {
		return fmt.Errorf("config: zoom needs 0 < min <= 1 <= max and step > 0, got %v/%v/%v",
			c.Zoom.Min, c.Zoom.Max, c.Zoom.Step)
	}
	switch c.Export.Sink {
	case "dir", "s3":
	default:
		return fmt.Errorf("config: unknown export sink %q", c.Export.Sink)
	}
	if c.Export.Filename == "" {
		return fmt.Errorf("config: export filename is empty")
	}
	return nil
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return fallback
}
