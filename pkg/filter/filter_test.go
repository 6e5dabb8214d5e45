package filter

import (
	"context"
	"image/color"
	"os"
	"testing"

	"github.com/disintegration/imaging"

	"github.com/PhantomInTheWire/tilegrid/pkg/raster"
)

func openFromEnv(t *testing.T) *Filter {
	t.Helper()
	path := os.Getenv("TILEGRID_FILTER_WASM")
	if path == "" {
		t.Skip("TILEGRID_FILTER_WASM not set")
	}
	f, err := Open(path, 2, os.Getenv("TILEGRID_FILTER_FUNC"))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(f.Close)
	return f
}

func TestApplyKeepsTileSize(t *testing.T) {
	f := openFromEnv(t)
	in, err := raster.EncodePNG(imaging.New(12, 7, color.NRGBA{200, 40, 40, 255}))
	if err != nil {
		t.Fatal(err)
	}
	out, err := f.Apply(context.Background(), in)
	if err != nil {
		t.Fatal(err)
	}
	img, err := raster.Decode(out)
	if err != nil {
		t.Fatal(err)
	}
	if b := img.Bounds(); b.Dx() != 12 || b.Dy() != 7 {
		t.Fatalf("filtered tile is %v", b)
	}
}

func TestOpenMissingModule(t *testing.T) {
	if os.Getenv("TILEGRID_FILTER_WASM") == "" {
		t.Skip("TILEGRID_FILTER_WASM not set")
	}
	if _, err := Open("does-not-exist.wasm", 1, ""); err == nil {
		t.Fatal("expected error")
	}
}
