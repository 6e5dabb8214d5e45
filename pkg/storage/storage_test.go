package storage

import (
	"context"
	"os"
	"path/filepath"
	"testing"
)

func TestDirSave(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "out")
	d := Dir{Path: dir}
	if err := d.Save(context.Background(), "tilemap.png", []byte("png")); err != nil {
		t.Fatal(err)
	}
	got, err := os.ReadFile(filepath.Join(dir, "tilemap.png"))
	if err != nil {
		t.Fatal(err)
	}
	if string(got) != "png" {
		t.Fatalf("file contents = %q", got)
	}
}

func TestDirRejectsPaths(t *testing.T) {
	d := Dir{Path: t.TempDir()}
	if err := d.Save(context.Background(), "../escape.png", nil); err == nil {
		t.Fatal("expected error for path traversal")
	}
}

func TestDirCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := (Dir{Path: t.TempDir()}).Save(ctx, "a.png", nil); err == nil {
		t.Fatal("expected context error")
	}
}

func TestContentType(t *testing.T) {
	for name, want := range map[string]string{
		"tilemap.png":  "image/png",
		"tile.JPG":     "image/jpeg",
		"notes.txt":    "application/octet-stream",
		"tile_0_1.png": "image/png",
	} {
		if got := contentType(name); got != want {
			t.Errorf("contentType(%q) = %q, want %q", name, got, want)
		}
	}
}
