package stitch

import (
	"context"
	"errors"
	"image"
	"image/color"
	"io"
	"log"
	"os"
	"path/filepath"
	"testing"

	"github.com/disintegration/imaging"

	"github.com/PhantomInTheWire/tilegrid/pkg/grid"
	"github.com/PhantomInTheWire/tilegrid/pkg/raster"
	"github.com/PhantomInTheWire/tilegrid/pkg/split"
)

var quiet = log.New(io.Discard, "", 0)

func solid(t *testing.T, w, h int, c color.NRGBA) grid.Tile {
	t.Helper()
	data, err := raster.EncodePNG(imaging.New(w, h, c))
	if err != nil {
		t.Fatal(err)
	}
	return data
}

func gradient(w, h int) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.SetNRGBA(x, y, color.NRGBA{uint8(x), uint8(y), uint8(x * y), 255})
		}
	}
	return img
}

func TestComposeEmptyGrid(t *testing.T) {
	g, _ := grid.New(4, 4)
	res, err := Compose(context.Background(), g)
	if !errors.Is(err, ErrEmptyGrid) {
		t.Fatalf("err = %v, want ErrEmptyGrid", err)
	}
	if res != nil {
		t.Fatal("got a result for an empty grid")
	}
}

func TestComposeRoundTrip(t *testing.T) {
	tests := []struct {
		w, h, rows, cols int
	}{
		{300, 300, 3, 3},
		{120, 80, 2, 4},
		{100, 100, 3, 3},
	}
	for _, tc := range tests {
		src := gradient(tc.w, tc.h)
		g, err := split.Image(src, tc.rows, tc.cols)
		if err != nil {
			t.Fatal(err)
		}
		res, err := Compose(context.Background(), g)
		if err != nil {
			t.Fatal(err)
		}
		wantW := (tc.w / tc.cols) * tc.cols
		wantH := (tc.h / tc.rows) * tc.rows
		if b := res.Image.Bounds(); b.Dx() != wantW || b.Dy() != wantH {
			t.Fatalf("%dx%d/%dx%d: composite %v, want %dx%d", tc.w, tc.h, tc.rows, tc.cols, b, wantW, wantH)
		}
		if tc.w%tc.cols != 0 || tc.h%tc.rows != 0 {
			continue
		}
		for y := 0; y < wantH; y++ {
			for x := 0; x < wantW; x++ {
				if got, want := res.Image.NRGBAAt(x, y), src.NRGBAAt(x, y); got != want {
					t.Fatalf("pixel (%d,%d) = %v, want %v", x, y, got, want)
				}
			}
		}
	}
}

func TestComposeSingleTile(t *testing.T) {
	red := color.NRGBA{200, 10, 10, 255}
	g, _ := grid.New(3, 4)
	g.SetCell(1, 2, solid(t, 16, 8, red))

	res, err := Compose(context.Background(), g)
	if err != nil {
		t.Fatal(err)
	}
	if b := res.Image.Bounds(); b.Dx() != 64 || b.Dy() != 24 {
		t.Fatalf("composite %v, want 64x24", b)
	}
	if res.TileWidth != 16 || res.TileHeight != 8 {
		t.Fatalf("tile size %dx%d", res.TileWidth, res.TileHeight)
	}
	cell := image.Rect(32, 8, 48, 16)
	for y := 0; y < 24; y++ {
		for x := 0; x < 64; x++ {
			want := color.NRGBA{}
			if image.Pt(x, y).In(cell) {
				want = red
			}
			if got := res.Image.NRGBAAt(x, y); got != want {
				t.Fatalf("pixel (%d,%d) = %v, want %v", x, y, got, want)
			}
		}
	}
}

func TestComposeSkipsUndecodableTiles(t *testing.T) {
	blue := color.NRGBA{0, 0, 255, 255}
	g, _ := grid.New(2, 2)
	g.SetCell(0, 0, solid(t, 4, 4, blue))
	g.SetCell(0, 1, grid.Tile("garbage"))
	g.SetCell(1, 1, solid(t, 4, 4, blue))

	c := Composer{Workers: 2, Logger: quiet}
	res, err := c.Compose(context.Background(), g)
	if err != nil {
		t.Fatal(err)
	}
	if got := res.Image.NRGBAAt(5, 1); got != (color.NRGBA{}) {
		t.Fatalf("undecodable cell pixel = %v, want blank", got)
	}
	if got := res.Image.NRGBAAt(6, 6); got != blue {
		t.Fatalf("cell 1,1 pixel = %v", got)
	}
	decoded, err := raster.Decode(res.PNG)
	if err != nil {
		t.Fatal(err)
	}
	if b := decoded.Bounds(); b.Dx() != 8 || b.Dy() != 8 {
		t.Fatalf("encoded bounds %v", b)
	}
}

func TestComposeClipsOversizedTiles(t *testing.T) {
	green := color.NRGBA{0, 255, 0, 255}
	red := color.NRGBA{255, 0, 0, 255}
	g, _ := grid.New(1, 2)
	g.SetCell(0, 0, solid(t, 4, 4, red))
	g.SetCell(0, 1, solid(t, 9, 9, green))

	res, err := Compose(context.Background(), g)
	if err != nil {
		t.Fatal(err)
	}
	if b := res.Image.Bounds(); b.Dx() != 8 || b.Dy() != 4 {
		t.Fatalf("composite %v", b)
	}
	if got := res.Image.NRGBAAt(3, 3); got != red {
		t.Fatalf("first cell overwritten: %v", got)
	}
	if got := res.Image.NRGBAAt(7, 3); got != green {
		t.Fatalf("second cell = %v", got)
	}
}

func TestComposeBadReference(t *testing.T) {
	g, _ := grid.New(2, 2)
	g.SetCell(0, 0, grid.Tile("garbage"))
	g.SetCell(1, 1, solid(t, 2, 2, color.NRGBA{A: 255}))
	if _, err := Compose(context.Background(), g); err == nil {
		t.Fatal("expected an error for an undecodable reference tile")
	}
}

func TestComposeSurfaceLimit(t *testing.T) {
	g, _ := grid.New(10, 10)
	g.SetCell(0, 0, solid(t, 10, 10, color.NRGBA{A: 255}))
	c := Composer{MaxPixels: 100*100 - 1}
	if _, err := c.Compose(context.Background(), g); !errors.Is(err, ErrSurfaceUnavailable) {
		t.Fatalf("err = %v, want ErrSurfaceUnavailable", err)
	}
	c.MaxPixels = 100 * 100
	if _, err := c.Compose(context.Background(), g); err != nil {
		t.Fatalf("at the limit: %v", err)
	}
}

func TestComposeCancelled(t *testing.T) {
	g, _ := grid.New(1, 1)
	g.SetCell(0, 0, solid(t, 2, 2, color.NRGBA{A: 255}))
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if res, err := Compose(ctx, g); err == nil || res != nil {
		t.Fatalf("Compose on cancelled ctx = %v, %v", res, err)
	}
}

func TestLoadDir(t *testing.T) {
	dir := t.TempDir()
	write := func(name string, data []byte) {
		if err := os.WriteFile(filepath.Join(dir, name), data, 0o644); err != nil {
			t.Fatal(err)
		}
	}
	write("tile_0_0.png", solid(t, 2, 2, color.NRGBA{A: 255}))
	write("tile_2_1.png", solid(t, 2, 2, color.NRGBA{A: 255}))
	write("tile_x_y.png", []byte("ignored"))
	write("notes.txt", []byte("ignored"))

	g, err := LoadDir(dir)
	if err != nil {
		t.Fatal(err)
	}
	if g.Rows() != 3 || g.Cols() != 2 || g.Populated() != 2 {
		t.Fatalf("grid %dx%d with %d tiles", g.Rows(), g.Cols(), g.Populated())
	}
	if _, err := LoadDir(t.TempDir()); err == nil {
		t.Fatal("expected error for a directory without tiles")
	}
}
