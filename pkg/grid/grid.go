package grid

import (
	"errors"
	"fmt"
)

var (
	ErrOutOfBounds  = errors.New("grid: cell out of bounds")
	ErrInvalidShape = errors.New("grid: rows and cols must be at least 1")
)

// Tile is an encoded raster image (PNG). A nil or empty Tile is an absent cell.
type Tile []byte

// Coord addresses one cell, row-major.
type Coord struct {
	Row, Col int
}

func (c Coord) String() string {
	return fmt.Sprintf("(%d,%d)", c.Row, c.Col)
}

// Grid is a rows x cols matrix of optional tiles. cells always has exactly
// rows entries of exactly cols tiles each.
type Grid struct {
	rows, cols int
	cells      [][]Tile
}

// New returns a rows x cols grid with every cell absent.
func New(rows, cols int) (*Grid, error) {
	if rows < 1 || cols < 1 {
		return nil, fmt.Errorf("%w: got %dx%d", ErrInvalidShape, rows, cols)
	}
	g := &Grid{rows: rows, cols: cols, cells: make([][]Tile, rows)}
	for r := range g.cells {
		g.cells[r] = make([]Tile, cols)
	}
	return g, nil
}

func (g *Grid) Rows() int { return g.rows }
func (g *Grid) Cols() int { return g.cols }

// Contains reports whether c lies inside the current extent.
func (g *Grid) Contains(c Coord) bool {
	return c.Row >= 0 && c.Row < g.rows && c.Col >= 0 && c.Col < g.cols
}

func (g *Grid) AddRow() {
	g.cells = append(g.cells, make([]Tile, g.cols))
	g.rows++
}

// RemoveRow drops the last row. It refuses and returns false when only one
// row is left.
func (g *Grid) RemoveRow() bool {
	if g.rows <= 1 {
		return false
	}
	g.cells[g.rows-1] = nil
	g.cells = g.cells[:g.rows-1]
	g.rows--
	return true
}

func (g *Grid) AddCol() {
	for r := range g.cells {
		g.cells[r] = append(g.cells[r], nil)
	}
	g.cols++
}

// RemoveCol drops the last column. It refuses and returns false when only one
// column is left.
func (g *Grid) RemoveCol() bool {
	if g.cols <= 1 {
		return false
	}
	for r := range g.cells {
		g.cells[r][g.cols-1] = nil
		g.cells[r] = g.cells[r][:g.cols-1]
	}
	g.cols--
	return true
}

// Clear empties every cell, keeping the shape.
func (g *Grid) Clear() {
	for r := range g.cells {
		g.cells[r] = make([]Tile, g.cols)
	}
}

func (g *Grid) Cell(row, col int) (Tile, error) {
	if !g.Contains(Coord{row, col}) {
		return nil, fmt.Errorf("%w: %v in %dx%d", ErrOutOfBounds, Coord{row, col}, g.rows, g.cols)
	}
	return g.cells[row][col], nil
}

// SetCell replaces one cell. Pass nil to make it absent.
func (g *Grid) SetCell(row, col int, t Tile) error {
	if !g.Contains(Coord{row, col}) {
		return fmt.Errorf("%w: %v in %dx%d", ErrOutOfBounds, Coord{row, col}, g.rows, g.cols)
	}
	g.cells[row][col] = t
	return nil
}

// Each calls fn for every cell in row-major order, absent cells included.
func (g *Grid) Each(fn func(row, col int, t Tile)) {
	for r, row := range g.cells {
		for c, t := range row {
			fn(r, c, t)
		}
	}
}

// First returns the first populated cell in row-major order.
func (g *Grid) First() (Coord, Tile, bool) {
	for r, row := range g.cells {
		for c, t := range row {
			if len(t) > 0 {
				return Coord{r, c}, t, true
			}
		}
	}
	return Coord{}, nil, false
}

func (g *Grid) Populated() int {
	n := 0
	for _, row := range g.cells {
		for _, t := range row {
			if len(t) > 0 {
				n++
			}
		}
	}
	return n
}

// Clone returns a copy whose row slices are independent of g. Tile bytes
// are shared; tiles are never mutated in place.
func (g *Grid) Clone() *Grid {
	out := &Grid{rows: g.rows, cols: g.cols, cells: make([][]Tile, g.rows)}
	for r, row := range g.cells {
		out.cells[r] = append([]Tile(nil), row...)
	}
	return out
}
