// Package dmap computes distance fields: for every grid cell, the distance in
// cells to the nearest obstacle, capped at a maximum radius.
package dmap

import (
	"github.com/pkg/errors"
	"gonum.org/v1/gonum/mat"

	"go.viam.com/planner2d/grid"
)

// Field is a distance field together with, per cell, the arena index and label
// of the obstacle seed it was reached from. Cells not reached by any seed have
// nearest and label -1.
type Field struct {
	dims    grid.Dims
	dist    *mat.Dense
	nearest []int
	label   []int
}

// NewField allocates a field. dims must not be empty.
func NewField(dims grid.Dims) *Field {
	f := &Field{
		dims:    dims,
		dist:    mat.NewDense(dims.Rows, dims.Cols, nil),
		nearest: make([]int, dims.Size()),
		label:   make([]int, dims.Size()),
	}
	for i := range f.nearest {
		f.nearest[i] = -1
		f.label[i] = -1
	}
	return f
}

// Dims returns the field extent.
func (f *Field) Dims() grid.Dims {
	return f.dims
}

// Distances returns the distance matrix, in cells. Callers must not modify it.
func (f *Field) Distances() *mat.Dense {
	return f.dist
}

// At returns the distance at a cell.
func (f *Field) At(c grid.Cell) float64 {
	return f.dist.At(c.R, c.C)
}

// NearestObstacle returns the seed cell a cell was reached from.
func (f *Field) NearestObstacle(c grid.Cell) (grid.Cell, bool) {
	n := f.nearest[f.dims.Index(c)]
	if n < 0 {
		return grid.Cell{}, false
	}
	return f.dims.CellAt(n), true
}

// Label returns the obstacle label of the seed a cell was reached from, or -1.
func (f *Field) Label(c grid.Cell) int {
	return f.label[f.dims.Index(c)]
}

// CopyFrom overwrites the field with src. Both must have the same dims.
func (f *Field) CopyFrom(src *Field) error {
	if f.dims != src.dims {
		return errors.Errorf("cannot copy %dx%d field into %dx%d field",
			src.dims.Rows, src.dims.Cols, f.dims.Rows, f.dims.Cols)
	}
	f.dist.Copy(src.dist)
	copy(f.nearest, src.nearest)
	copy(f.label, src.label)
	return nil
}

// Clone returns a deep copy.
func (f *Field) Clone() *Field {
	out := NewField(f.dims)
	// dims match by construction
	_ = out.CopyFrom(f)
	return out
}

// Equal reports whether two fields are bit-identical.
func (f *Field) Equal(o *Field) bool {
	if f.dims != o.dims {
		return false
	}
	a, b := f.dist.RawMatrix().Data, o.dist.RawMatrix().Data
	for i := range a {
		if a[i] != b[i] || f.nearest[i] != o.nearest[i] || f.label[i] != o.label[i] {
			return false
		}
	}
	return true
}

func (f *Field) set(idx int, dist float64, nearest, label int) {
	c := f.dims.CellAt(idx)
	f.dist.Set(c.R, c.C, dist)
	f.nearest[idx] = nearest
	f.label[idx] = label
}

func (f *Field) distAt(idx int) float64 {
	c := f.dims.CellAt(idx)
	return f.dist.At(c.R, c.C)
}
