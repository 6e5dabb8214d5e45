package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"path"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/PhantomInTheWire/tilegrid/pkg/asset"
	"github.com/PhantomInTheWire/tilegrid/pkg/config"
	"github.com/PhantomInTheWire/tilegrid/pkg/editor"
	"github.com/PhantomInTheWire/tilegrid/pkg/generate"
	"github.com/PhantomInTheWire/tilegrid/pkg/stitch"
	"github.com/PhantomInTheWire/tilegrid/pkg/storage"
)

var (
	configPath string
	cfg        config.Config
)

var rootCmd = &cobra.Command{
	Use:           "tilegrid",
	Short:         "Slice, edit and stitch tile grids",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		cfg, err = config.Load(configPath)
		return err
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "YAML config file")
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		log.Fatalf("tilegrid: %v", err)
	}
}

// openSink returns where exports go, per config. sub names a subdirectory
// (or key prefix) below the configured location.
func openSink(ctx context.Context, dir, sub string) (storage.Sink, error) {
	if cfg.Export.Sink == "s3" {
		return storage.NewS3(ctx, storage.S3Config{
			Endpoint:  cfg.S3.Endpoint,
			Region:    cfg.S3.Region,
			AccessKey: cfg.S3.AccessKey,
			SecretKey: cfg.S3.SecretKey,
			Bucket:    cfg.S3.Bucket,
			Prefix:    path.Join(cfg.S3.Prefix, sub),
		}, nil)
	}
	if dir == "" {
		dir = cfg.Export.Dir
	}
	return storage.Dir{Path: filepath.Join(dir, sub)}, nil
}

// openAssets returns the repository and a func that closes its store.
func openAssets() (*asset.Repository, func(), error) {
	if cfg.Assets.DBPath == "" {
		repo, err := asset.NewRepository(nil, nil)
		return repo, func() {}, err
	}
	store, err := asset.OpenLevelStore(cfg.Assets.DBPath)
	if err != nil {
		return nil, nil, err
	}
	repo, err := asset.NewRepository(store, nil)
	if err != nil {
		store.Close()
		return nil, nil, err
	}
	return repo, func() { store.Close() }, nil
}

func newGenerator(ctx context.Context) *generate.Service {
	backend, err := generate.NewImagen(ctx, cfg.Generator.APIKey, cfg.Generator.Model)
	if err != nil {
		log.Printf("Failed to initialize image backend: %v", err)
		return generate.Unavailable("Failed to initialize AI service. API_KEY might be missing.", nil)
	}
	return generate.NewService(backend, nil)
}

func newEditor(gen editor.Generator, repo *asset.Repository, sink storage.Sink) (*editor.Editor, error) {
	return editor.New(editor.Options{
		Rows:       cfg.Grid.Rows,
		Cols:       cfg.Grid.Cols,
		UploadRows: cfg.Grid.UploadRows,
		UploadCols: cfg.Grid.UploadCols,
		MinZoom:    cfg.Zoom.Min,
		MaxZoom:    cfg.Zoom.Max,
		ZoomStep:   cfg.Zoom.Step,
		ExportName: cfg.Export.Filename,
		Composer:   stitch.Composer{Workers: cfg.Compose.Workers, MaxPixels: cfg.Compose.MaxPixels},
	}, gen, repo, sink)
}
