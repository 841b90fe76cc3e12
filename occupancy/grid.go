// Package occupancy holds the static map: the grayscale occupancy image, its
// frames and the trinary classification derived from it.
package occupancy

import (
	"image"

	"go.viam.com/planner2d/grid"
)

// Class is the classification of one map cell.
type Class uint8

// The three cell classes. The zero value is Unknown.
const (
	Unknown Class = iota
	Free
	Occupied
)

func (c Class) String() string {
	switch c {
	case Free:
		return "free"
	case Occupied:
		return "occupied"
	default:
		return "unknown"
	}
}

// Grid is the classification of every pixel of a map image, row-major.
type Grid struct {
	dims  grid.Dims
	cells []Class
}

// NewGrid returns a grid with every cell Unknown.
func NewGrid(dims grid.Dims) *Grid {
	return &Grid{dims: dims, cells: make([]Class, dims.Size())}
}

// Dims returns the grid extent.
func (g *Grid) Dims() grid.Dims {
	return g.dims
}

// At returns the class of an in-grid cell.
func (g *Grid) At(c grid.Cell) Class {
	return g.cells[g.dims.Index(c)]
}

// Set sets the class of an in-grid cell.
func (g *Grid) Set(c grid.Cell, class Class) {
	g.cells[g.dims.Index(c)] = class
}

// AtIndex returns the class at an arena index.
func (g *Grid) AtIndex(idx int) Class {
	return g.cells[idx]
}

// Count returns how many cells have the given class.
func (g *Grid) Count(class Class) int {
	n := 0
	for _, c := range g.cells {
		if c == class {
			n++
		}
	}
	return n
}

// Clone returns a deep copy.
func (g *Grid) Clone() *Grid {
	cells := make([]Class, len(g.cells))
	copy(cells, g.cells)
	return &Grid{dims: g.dims, cells: cells}
}

// thresholdValues converts probability thresholds into gray levels using the
// trinary map convention: p(occupied) = (255 - v) / 255.
func thresholdValues(occThreshold, freeThreshold float64) (occ, free int) {
	return int((1.0 - occThreshold) * 255), int((1.0 - freeThreshold) * 255)
}

// Classify thresholds a grayscale image. Pixels darker than the occupied level
// are Occupied, pixels brighter than the free level are Free, the rest Unknown.
// Image X maps to grid columns and image Y to rows.
func Classify(img *image.Gray, occThreshold, freeThreshold float64) *Grid {
	b := img.Bounds()
	g := NewGrid(grid.Dims{Rows: b.Dy(), Cols: b.Dx()})
	occ, free := thresholdValues(occThreshold, freeThreshold)
	for r := 0; r < b.Dy(); r++ {
		for c := 0; c < b.Dx(); c++ {
			v := int(img.GrayAt(b.Min.X+c, b.Min.Y+r).Y)
			cell := grid.Cell{R: r, C: c}
			switch {
			case v < occ:
				g.Set(cell, Occupied)
			case v > free:
				g.Set(cell, Free)
			default:
				g.Set(cell, Unknown)
			}
		}
	}
	return g
}
