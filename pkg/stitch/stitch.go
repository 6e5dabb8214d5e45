// Package stitch recomposes a tile grid into one image.
package stitch

import (
	"context"
	"errors"
	"fmt"
	"image"
	"log"
	"sync"

	"github.com/disintegration/imaging"
	"golang.org/x/sync/errgroup"

	"github.com/PhantomInTheWire/tilegrid/pkg/grid"
	"github.com/PhantomInTheWire/tilegrid/pkg/raster"
)

const (
	DefaultWorkers   = 8
	DefaultMaxPixels = 8192 * 8192
)

var (
	ErrEmptyGrid          = errors.New("stitch: nothing to compose")
	ErrSurfaceUnavailable = errors.New("stitch: rendering surface unavailable")
)

// Result is a finished composite.
type Result struct {
	Image      *image.NRGBA
	PNG        []byte
	TileWidth  int
	TileHeight int
}

// Composer stitches grids. The zero value uses the package defaults.
type Composer struct {
	// Workers bounds how many tiles are decoded at once.
	Workers int
	// MaxPixels caps the composite area.
	MaxPixels int
	Logger    *log.Logger
}

// Compose stitches g with a default Composer.
func Compose(ctx context.Context, g *grid.Grid) (*Result, error) {
	var c Composer
	return c.Compose(ctx, g)
}

// Compose decodes every populated cell concurrently and pastes it at its
// fixed cell offset. The first populated cell in row-major order sets the
// tile size for the whole grid. Cells that fail to decode are left blank.
// The composite is only encoded after every cell has settled.
func (c *Composer) Compose(ctx context.Context, g *grid.Grid) (*Result, error) {
	logger := c.Logger
	if logger == nil {
		logger = log.Default()
	}
	workers := c.Workers
	if workers <= 0 {
		workers = DefaultWorkers
	}
	maxPixels := c.MaxPixels
	if maxPixels <= 0 {
		maxPixels = DefaultMaxPixels
	}

	refAt, refTile, ok := g.First()
	if !ok {
		return nil, ErrEmptyGrid
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	ref, err := raster.Decode(refTile)
	if err != nil {
		return nil, fmt.Errorf("stitch: reference tile %v: %w", refAt, err)
	}
	tw, th := ref.Bounds().Dx(), ref.Bounds().Dy()
	rows, cols := g.Rows(), g.Cols()
	if tw < 1 || th < 1 || tw*cols > maxPixels/(th*rows) {
		return nil, fmt.Errorf("%w: %dx%d tiles in a %dx%d grid",
			ErrSurfaceUnavailable, tw, th, rows, cols)
	}

	dst := image.NewNRGBA(image.Rect(0, 0, tw*cols, th*rows))
	var mu sync.Mutex
	var eg errgroup.Group
	eg.SetLimit(workers)

	g.Each(func(row, col int, t grid.Tile) {
		if len(t) == 0 {
			return
		}
		eg.Go(func() error {
			img := ref
			if row != refAt.Row || col != refAt.Col {
				if ctx.Err() != nil {
					return nil
				}
				var err error
				if img, err = raster.Decode(t); err != nil {
					logger.Printf("stitch: skipping tile %d,%d: %v", row, col, err)
					return nil
				}
			}
			// convert outside the lock
			tile := imaging.Clone(img)
			cell := image.Rect(col*tw, row*th, (col+1)*tw, (row+1)*th)
			mu.Lock()
			raster.Paste(dst, tile, cell.Min, cell)
			mu.Unlock()
			return nil
		})
	})
	// tasks never fail, Wait is only the barrier
	_ = eg.Wait()

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	data, err := raster.EncodePNG(dst)
	if err != nil {
		return nil, fmt.Errorf("stitch: %w", err)
	}
	return &Result{Image: dst, PNG: data, TileWidth: tw, TileHeight: th}, nil
}
