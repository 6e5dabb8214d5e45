// Package storage is where exported images go: a local directory standing in
// for a browser download, or an S3-compatible bucket.
package storage

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Sink receives one encoded file per call.
type Sink interface {
	Save(ctx context.Context, name string, data []byte) error
}

// Dir writes files into a local directory, creating it on first use.
type Dir struct {
	Path string
}

func (d Dir) Save(ctx context.Context, name string, data []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if name != filepath.Base(name) {
		return fmt.Errorf("storage: invalid file name %q", name)
	}
	if err := os.MkdirAll(d.Path, 0o755); err != nil {
		return err
	}
	if err := os.WriteFile(filepath.Join(d.Path, name), data, 0o644); err != nil {
		return fmt.Errorf("storage: write %s: %w", name, err)
	}
	return nil
}

func contentType(name string) string {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".png":
		return "image/png"
	case ".jpg", ".jpeg":
		return "image/jpeg"
	default:
		return "application/octet-stream"
	}
}
