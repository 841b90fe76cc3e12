// Package pathsearch computes shortest-path trees over a cost field.
package pathsearch

import (
	"go.viam.com/planner2d/grid"
)

// Unreached is the parent index of a cell no root reached.
const Unreached = -1

// PathMap is the result of a search: for every cell, in row-major order, the
// arena index of its parent toward the nearest root and the accumulated cost of
// getting there. Roots are their own parent.
type PathMap struct {
	Dims   grid.Dims
	Parent []int
	Cost   []float64
}

// NewPathMap returns a path map with every cell unreached.
func NewPathMap(dims grid.Dims) *PathMap {
	pm := &PathMap{
		Dims:   dims,
		Parent: make([]int, dims.Size()),
		Cost:   make([]float64, dims.Size()),
	}
	for i := range pm.Parent {
		pm.Parent[i] = Unreached
	}
	return pm
}

// ParentOf returns the parent of a cell, or false if the cell is outside the map
// or was not reached.
func (pm *PathMap) ParentOf(c grid.Cell) (grid.Cell, bool) {
	if !pm.Dims.Inside(c) {
		return grid.Cell{}, false
	}
	p := pm.Parent[pm.Dims.Index(c)]
	if p < 0 || p >= len(pm.Parent) {
		return grid.Cell{}, false
	}
	return pm.Dims.CellAt(p), true
}

// Reached reports whether a cell is connected to a root.
func (pm *PathMap) Reached(c grid.Cell) bool {
	_, ok := pm.ParentOf(c)
	return ok
}

// CostAt returns the accumulated cost of a cell.
func (pm *PathMap) CostAt(c grid.Cell) float64 {
	return pm.Cost[pm.Dims.Index(c)]
}
