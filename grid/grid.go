// Package grid defines the discrete pixel-grid index space shared by the map,
// distance, cost and path layers. Cells are addressed by row and column and are
// stored row-major in flat arenas.
package grid

import "fmt"

// Cell is a row/column index into the pixel grid. Rows grow along the image X
// axis (down) and columns along the image Y axis (right).
type Cell struct {
	R int
	C int
}

// String returns a human readable form of the cell.
func (c Cell) String() string {
	return fmt.Sprintf("(%d,%d)", c.R, c.C)
}

// Add returns the cell offset by the given one.
func (c Cell) Add(o Cell) Cell {
	return Cell{c.R + o.R, c.C + o.C}
}

// Dims are the extent of a grid.
type Dims struct {
	Rows int
	Cols int
}

// Size returns the total number of cells.
func (d Dims) Size() int {
	return d.Rows * d.Cols
}

// Empty reports whether the grid has no cells.
func (d Dims) Empty() bool {
	return d.Rows <= 0 || d.Cols <= 0
}

// Inside reports whether the cell lies within the grid.
func (d Dims) Inside(c Cell) bool {
	return c.R >= 0 && c.C >= 0 && c.R < d.Rows && c.C < d.Cols
}

// Index returns the row-major arena index of an in-grid cell.
func (d Dims) Index(c Cell) int {
	return c.R*d.Cols + c.C
}

// CellAt is the inverse of Index.
func (d Dims) CellAt(idx int) Cell {
	return Cell{idx / d.Cols, idx % d.Cols}
}

// Clamp returns the nearest in-grid cell.
func (d Dims) Clamp(c Cell) Cell {
	if c.R < 0 {
		c.R = 0
	} else if c.R >= d.Rows {
		c.R = d.Rows - 1
	}
	if c.C < 0 {
		c.C = 0
	} else if c.C >= d.Cols {
		c.C = d.Cols - 1
	}
	return c
}

// Neighbors8 are the offsets of the 8-connected neighbourhood, axis-aligned first.
var Neighbors8 = [8]Cell{
	{-1, 0}, {1, 0}, {0, -1}, {0, 1},
	{-1, -1}, {-1, 1}, {1, -1}, {1, 1},
}

// IsDiagonal reports whether a neighbourhood offset moves along both axes.
func IsDiagonal(off Cell) bool {
	return off.R != 0 && off.C != 0
}
