// Package editor is the tile-editing surface: the single owner of the grid,
// the selected cell and the zoom level. Everything else sees clones.
package editor

import (
	"context"
	"errors"
	"fmt"
	"image"
	"io"
	"log"
	"strings"
	"sync"

	"github.com/PhantomInTheWire/tilegrid/pkg/asset"
	"github.com/PhantomInTheWire/tilegrid/pkg/generate"
	"github.com/PhantomInTheWire/tilegrid/pkg/grid"
	"github.com/PhantomInTheWire/tilegrid/pkg/raster"
	"github.com/PhantomInTheWire/tilegrid/pkg/split"
	"github.com/PhantomInTheWire/tilegrid/pkg/stitch"
	"github.com/PhantomInTheWire/tilegrid/pkg/storage"
	"github.com/PhantomInTheWire/tilegrid/pkg/view"
)

// TilemapPrompt labels every exported tilemap asset.
const TilemapPrompt = "Custom Tilemap"

var (
	ErrNoSelection = errors.New("editor: no tile selected")
	ErrEmptyPrompt = errors.New("editor: edit prompt is empty")
	ErrNotTilemap  = errors.New("editor: asset is not a tilemap")
	ErrSuperseded  = errors.New("editor: superseded by a newer load")
)

// Generator is the image-generation collaborator.
type Generator interface {
	GenerateImage(ctx context.Context, prompt string, ratio generate.AspectRatio) ([]byte, error)
}

// TileFilter rewrites one encoded tile.
type TileFilter interface {
	Apply(ctx context.Context, tile []byte) ([]byte, error)
}

type Options struct {
	Rows, Cols             int
	UploadRows, UploadCols int
	MinZoom, MaxZoom       float64
	ZoomStep               float64
	// ExportName is the file name exports are saved under.
	ExportName string
	Composer   stitch.Composer
	Logger     *log.Logger
}

func DefaultOptions() Options {
	return Options{
		Rows: 5, Cols: 5,
		UploadRows: split.DefaultRows, UploadCols: split.DefaultCols,
		MinZoom: view.DefaultMinZoom, MaxZoom: view.DefaultMaxZoom, ZoomStep: view.DefaultZoomStep,
		ExportName: "tilemap.png",
	}
}

type Editor struct {
	opts   Options
	gen    Generator
	assets *asset.Repository
	sink   storage.Sink
	logger *log.Logger

	mu   sync.Mutex
	grid *grid.Grid
	sel  view.Selection
	zoom *view.Zoom
	// loads counts started loads; only the newest may install its grid.
	loads uint64
}

// New builds an editor over an empty grid. gen may be nil if AI edits are
// never used; sink may be nil to skip saving exports.
func New(opts Options, gen Generator, assets *asset.Repository, sink storage.Sink) (*Editor, error) {
	if opts.Logger == nil {
		opts.Logger = log.Default()
	}
	if opts.Composer.Logger == nil {
		opts.Composer.Logger = opts.Logger
	}
	if opts.ExportName == "" {
		opts.ExportName = "tilemap.png"
	}
	if opts.UploadRows < 1 || opts.UploadCols < 1 {
		opts.UploadRows, opts.UploadCols = split.DefaultRows, split.DefaultCols
	}
	g, err := grid.New(opts.Rows, opts.Cols)
	if err != nil {
		return nil, err
	}
	return &Editor{
		opts:   opts,
		gen:    gen,
		assets: assets,
		sink:   sink,
		logger: opts.Logger,
		grid:   g,
		zoom:   view.NewZoom(opts.MinZoom, opts.MaxZoom, opts.ZoomStep),
	}, nil
}

// Grid returns a snapshot of the current grid.
func (e *Editor) Grid() *grid.Grid {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.grid.Clone()
}

func (e *Editor) AddRow() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.grid.AddRow()
}

// RemoveRow drops the last row unless it is the only one.
func (e *Editor) RemoveRow() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.grid.RemoveRow() {
		return false
	}
	e.sel.Fit(e.grid.Rows(), e.grid.Cols())
	return true
}

func (e *Editor) AddCol() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.grid.AddCol()
}

// RemoveCol drops the last column unless it is the only one.
func (e *Editor) RemoveCol() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.grid.RemoveCol() {
		return false
	}
	e.sel.Fit(e.grid.Rows(), e.grid.Cols())
	return true
}

// Clear empties every cell and drops the selection.
func (e *Editor) Clear() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.grid.Clear()
	e.sel.Clear()
}

func (e *Editor) SetCell(row, col int, t grid.Tile) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.grid.SetCell(row, col, t)
}

func (e *Editor) SelectTile(row, col int) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.sel.Select(row, col)
}

func (e *Editor) ClearSelection() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.sel.Clear()
}

func (e *Editor) Selection() (grid.Coord, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.sel.Get()
}

func (e *Editor) ZoomIn() float64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.zoom.In()
	return e.zoom.Level()
}

func (e *Editor) ZoomOut() float64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.zoom.Out()
	return e.zoom.Level()
}

func (e *Editor) ResetZoom() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.zoom.Reset()
}

// Zoom returns the level and its rounded percentage.
func (e *Editor) Zoom() (float64, int) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.zoom.Level(), e.zoom.Percent()
}

// Replace installs a copy of g as the grid. Loads still in flight are
// superseded.
func (e *Editor) Replace(g *grid.Grid) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.loads++
	e.grid = g.Clone()
	e.sel.Fit(g.Rows(), g.Cols())
}

// LoadUpload slices an uploaded image into the upload shape.
func (e *Editor) LoadUpload(ctx context.Context, r io.Reader) error {
	return e.LoadImage(ctx, r, e.opts.UploadRows, e.opts.UploadCols)
}

// LoadImage reads, decodes and slices r, then replaces the grid. Each stage
// fails on its own; the grid is only touched once the new one is complete.
// A selection outside the new shape is dropped.
func (e *Editor) LoadImage(ctx context.Context, r io.Reader, rows, cols int) error {
	seq := e.beginLoad()

	data, err := io.ReadAll(r)
	if err != nil {
		return fmt.Errorf("editor: read upload: %w", err)
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	img, err := raster.Decode(data)
	if err != nil {
		return fmt.Errorf("editor: %w", err)
	}
	return e.slice(ctx, seq, img, rows, cols)
}

// LoadAsset reopens a tilemap asset for editing. The composite does not
// carry its original shape, so it is always cut into the default 3x3.
func (e *Editor) LoadAsset(ctx context.Context, a asset.Asset) error {
	if a.Kind != asset.KindTilemap {
		return fmt.Errorf("%w: %s is a %s", ErrNotTilemap, a.ID, a.Kind)
	}
	seq := e.beginLoad()
	img, err := raster.Decode(a.Image)
	if err != nil {
		return fmt.Errorf("editor: asset %s: %w", a.ID, err)
	}
	return e.slice(ctx, seq, img, split.DefaultRows, split.DefaultCols)
}

func (e *Editor) beginLoad() uint64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.loads++
	return e.loads
}

func (e *Editor) slice(ctx context.Context, seq uint64, img image.Image, rows, cols int) error {
	g, err := split.Image(img, rows, cols)
	if err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if seq != e.loads {
		return ErrSuperseded
	}
	e.grid = g
	e.sel.Fit(rows, cols)
	e.logger.Printf("editor: loaded %dx%d grid", rows, cols)
	return nil
}

// ApplyEdit generates a new tile for the selected cell from prompt. On any
// failure the grid and the asset list are left as they were.
func (e *Editor) ApplyEdit(ctx context.Context, prompt string) error {
	at, ok := e.Selection()
	if !ok {
		return ErrNoSelection
	}
	if strings.TrimSpace(prompt) == "" {
		return ErrEmptyPrompt
	}
	if e.gen == nil {
		return generate.ErrNotInitialized
	}

	data, err := e.gen.GenerateImage(ctx, generate.TilePrompt(prompt), generate.Square)
	if err != nil {
		return err
	}
	if len(data) == 0 {
		return generate.ErrNoImage
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.grid.SetCell(at.Row, at.Col, data); err != nil {
		return err
	}
	if e.assets != nil {
		if _, err := e.assets.Append(asset.Draft{Kind: asset.KindTile, Image: data, Prompt: prompt}); err != nil {
			e.logger.Printf("editor: record tile asset: %v", err)
		}
	}
	return nil
}

// ApplyFilter runs f over the selected cell and replaces it with the result.
func (e *Editor) ApplyFilter(ctx context.Context, f TileFilter) error {
	e.mu.Lock()
	at, ok := e.sel.Get()
	var tile grid.Tile
	var err error
	if ok {
		tile, err = e.grid.Cell(at.Row, at.Col)
	}
	e.mu.Unlock()
	if !ok {
		return ErrNoSelection
	}
	if err != nil {
		return err
	}
	if len(tile) == 0 {
		return fmt.Errorf("editor: tile %v is empty", at)
	}

	out, err := f.Apply(ctx, tile)
	if err != nil {
		return fmt.Errorf("editor: filter tile %v: %w", at, err)
	}
	if _, err := raster.Decode(out); err != nil {
		return fmt.Errorf("editor: filter tile %v: output is not an image: %w", at, err)
	}
	return e.SetCell(at.Row, at.Col, out)
}

// Export composes the grid, saves it and records it as a tilemap asset.
// The asset is only recorded once the save succeeded. An empty grid returns
// stitch.ErrEmptyGrid and has no side effects.
func (e *Editor) Export(ctx context.Context) (asset.Asset, error) {
	snap := e.Grid()
	res, err := e.opts.Composer.Compose(ctx, snap)
	if err != nil {
		return asset.Asset{}, err
	}

	if e.sink != nil {
		if err := e.sink.Save(ctx, e.opts.ExportName, res.PNG); err != nil {
			return asset.Asset{}, fmt.Errorf("editor: save export: %w", err)
		}
	}
	var a asset.Asset
	if e.assets != nil {
		a, err = e.assets.Append(asset.Draft{Kind: asset.KindTilemap, Image: res.PNG, Prompt: TilemapPrompt})
		if err != nil {
			return asset.Asset{}, err
		}
	}
	e.logger.Printf("editor: exported %dx%d tilemap", res.Image.Bounds().Dx(), res.Image.Bounds().Dy())
	return a, nil
}

// Watch reloads the grid whenever a tilemap becomes the selected asset,
// until ctx is done. The subscription is in place when Watch returns.
// The outcome of each reload is offered on the returned channel, which is
// closed once watching stops.
func (e *Editor) Watch(ctx context.Context, repo *asset.Repository) <-chan error {
	events, stop := repo.Subscribe()
	loaded := make(chan error, 1)
	go func() {
		defer close(loaded)
		defer stop()
		for {
			select {
			case <-ctx.Done():
				return
			case ev := <-events:
				if ev.Asset == nil || ev.Asset.Kind != asset.KindTilemap {
					continue
				}
				err := e.LoadAsset(ctx, *ev.Asset)
				if errors.Is(err, ErrSuperseded) {
					continue
				}
				if err != nil {
					e.logger.Printf("editor: load selected asset %s: %v", ev.Asset.ID, err)
				}
				select {
				case loaded <- err:
				default:
				}
			}
		}
	}()
	return loaded
}
