package split

import (
	"context"
	"errors"
	"fmt"
	"image"
	"math"

	"github.com/disintegration/imaging"
	xdraw "golang.org/x/image/draw"
	"golang.org/x/image/math/f64"

	"github.com/PhantomInTheWire/tilegrid/pkg/grid"
	"github.com/PhantomInTheWire/tilegrid/pkg/raster"
	"github.com/PhantomInTheWire/tilegrid/pkg/storage"
)

// Shape used for uploads and for reopening a composed tilemap. A composite
// does not record how many tiles built it, so reopening always yields 3x3.
const (
	DefaultRows = 3
	DefaultCols = 3
)

var ErrSurfaceUnavailable = errors.New("split: rendering surface unavailable")

// Kernel samples tiles whose origin falls between source pixels.
var Kernel xdraw.Interpolator = xdraw.ApproxBiLinear

// TileSize is the real-valued size of one cell when src is cut into
// rows x cols.
func TileSize(src image.Rectangle, rows, cols int) (w, h float64) {
	return float64(src.Dx()) / float64(cols), float64(src.Dy()) / float64(rows)
}

// Image cuts src into rows x cols equal tiles and returns them as a fully
// populated grid. Tile size may be fractional; the offscreen surface is the
// truncated size and is cleared before each cell. The grid is only built
// once the surface is known to be usable.
func Image(src image.Image, rows, cols int) (*grid.Grid, error) {
	if rows < 1 || cols < 1 {
		return nil, fmt.Errorf("%w: %dx%d grid", ErrSurfaceUnavailable, rows, cols)
	}
	b := src.Bounds()
	tw, th := TileSize(b, rows, cols)
	sw, sh := int(tw), int(th)
	if sw < 1 || sh < 1 {
		return nil, fmt.Errorf("%w: %dx%d source is too small for %dx%d tiles",
			ErrSurfaceUnavailable, b.Dx(), b.Dy(), rows, cols)
	}
	surface := image.NewNRGBA(image.Rect(0, 0, sw, sh))

	g, err := grid.New(rows, cols)
	if err != nil {
		return nil, err
	}
	for y := 0; y < rows; y++ {
		for x := 0; x < cols; x++ {
			raster.Clear(surface)
			ox := float64(b.Min.X) + float64(x)*tw
			oy := float64(b.Min.Y) + float64(y)*th
			render(surface, src, ox, oy)

			tile, err := raster.EncodePNG(surface)
			if err != nil {
				return nil, fmt.Errorf("split: tile %d,%d: %w", y, x, err)
			}
			if err := g.SetCell(y, x, tile); err != nil {
				return nil, err
			}
		}
	}
	return g, nil
}

// render draws the part of src whose top-left is (ox, oy) onto surface.
func render(surface *image.NRGBA, src image.Image, ox, oy float64) {
	if ox == math.Trunc(ox) && oy == math.Trunc(oy) {
		min := image.Pt(int(ox), int(oy))
		r := image.Rectangle{Min: min, Max: min.Add(surface.Bounds().Size())}
		raster.Paste(surface, imaging.Crop(src, r), image.Point{}, surface.Bounds())
		return
	}
	// surface = src translated by (-ox, -oy)
	s2d := f64.Aff3{
		1, 0, -ox,
		0, 1, -oy,
	}
	Kernel.Transform(surface, s2d, src, src.Bounds(), xdraw.Src, nil)
}

// TileName is the file name a cell is exported under.
func TileName(row, col int) string {
	return fmt.Sprintf("tile_%d_%d.png", row, col)
}

// Save writes every populated cell to sink and returns the names written,
// row-major.
func Save(ctx context.Context, g *grid.Grid, sink storage.Sink) ([]string, error) {
	var names []string
	var err error
	g.Each(func(row, col int, t grid.Tile) {
		if err != nil || len(t) == 0 {
			return
		}
		name := TileName(row, col)
		if err = sink.Save(ctx, name, t); err != nil {
			err = fmt.Errorf("split: save %s: %w", name, err)
			return
		}
		names = append(names, name)
	})
	if err != nil {
		return nil, err
	}
	return names, nil
}
