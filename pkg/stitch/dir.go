package stitch

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/PhantomInTheWire/tilegrid/pkg/grid"
)

// LoadDir rebuilds a grid from tile_<row>_<col>.png files in dir. The shape
// is the largest row and column seen plus one; missing cells stay absent.
func LoadDir(dir string) (*grid.Grid, error) {
	files, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}

	type cell struct {
		row, col int
		path     string
	}
	var cells []cell
	rows, cols := 0, 0
	for _, f := range files {
		if f.IsDir() {
			continue
		}
		var r, c int
		var rest string
		n, _ := fmt.Sscanf(f.Name(), "tile_%d_%d%s", &r, &c, &rest)
		if n != 3 || rest != ".png" || r < 0 || c < 0 {
			continue
		}
		cells = append(cells, cell{r, c, filepath.Join(dir, f.Name())})
		rows = max(rows, r+1)
		cols = max(cols, c+1)
	}
	if len(cells) == 0 {
		return nil, fmt.Errorf("stitch: no tile_<row>_<col>.png files in %s", dir)
	}

	g, err := grid.New(rows, cols)
	if err != nil {
		return nil, err
	}
	for _, c := range cells {
		data, err := os.ReadFile(c.path)
		if err != nil {
			return nil, err
		}
		if err := g.SetCell(c.row, c.col, data); err != nil {
			return nil, err
		}
	}
	return g, nil
}
