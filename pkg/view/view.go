package view

import (
	"math"

	"github.com/PhantomInTheWire/tilegrid/pkg/grid"
)

const (
	DefaultMinZoom  = 0.2
	DefaultMaxZoom  = 3.0
	DefaultZoomStep = 0.1
)

// Selection is either empty or one cell coordinate. The zero value is empty.
type Selection struct {
	coord grid.Coord
	set   bool
}

// Select does not validate against the grid; resizes call Fit.
func (s *Selection) Select(row, col int) {
	s.coord = grid.Coord{Row: row, Col: col}
	s.set = true
}

func (s *Selection) Clear() {
	*s = Selection{}
}

func (s Selection) Get() (grid.Coord, bool) {
	return s.coord, s.set
}

// Fit clears the selection if it falls outside a rows x cols grid and
// reports whether it did.
func (s *Selection) Fit(rows, cols int) bool {
	if !s.set {
		return false
	}
	if s.coord.Row >= rows || s.coord.Col >= cols {
		s.Clear()
		return true
	}
	return false
}

// Zoom is a display scale clamped to [min, max]. It never affects the grid.
type Zoom struct {
	min, max, step float64
	level          float64
}

func NewZoom(min, max, step float64) *Zoom {
	return &Zoom{min: min, max: max, step: step, level: 1}
}

func DefaultZoom() *Zoom {
	return NewZoom(DefaultMinZoom, DefaultMaxZoom, DefaultZoomStep)
}

func (z *Zoom) In() {
	z.level = math.Min(z.max, z.level+z.step)
}

func (z *Zoom) Out() {
	z.level = math.Max(z.min, z.level-z.step)
}

func (z *Zoom) Reset() {
	z.level = 1
}

func (z *Zoom) Level() float64 { return z.level }

// Percent is the level as a rounded percentage, e.g. 1.1 -> 110.
func (z *Zoom) Percent() int {
	return int(math.Round(z.level * 100))
}
