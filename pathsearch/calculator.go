package pathsearch

import (
	"container/heap"
	"math"

	"github.com/pkg/errors"
	"gonum.org/v1/gonum/mat"

	"go.viam.com/planner2d/grid"
)

type node struct {
	idx  int
	cost float64
}

type openList []node

func (ol openList) Len() int            { return len(ol) }
func (ol openList) Less(i, j int) bool  { return ol[i].cost < ol[j].cost }
func (ol openList) Swap(i, j int)       { ol[i], ol[j] = ol[j], ol[i] }
func (ol *openList) Push(x interface{}) { *ol = append(*ol, x.(node)) }
func (ol *openList) Pop() interface{} {
	old := *ol
	n := old[len(old)-1]
	*ol = old[:len(old)-1]
	return n
}

// Calculator runs a multi-root Dijkstra search over a cost field. Moving between
// 8-connected neighbours costs the destination cell's cost times the step length.
// Cells whose cost exceeds the max cost are impassable.
type Calculator struct {
	maxCost float64
	field   *mat.Dense
	goals   []grid.Cell
}

// NewCalculator returns a calculator with no impassable cost.
func NewCalculator() *Calculator {
	return &Calculator{maxCost: math.Inf(1)}
}

// SetMaxCost sets the highest cost a cell may have and still be traversed.
func (c *Calculator) SetMaxCost(cost float64) {
	c.maxCost = cost
}

// SetCostField sets the search weights.
func (c *Calculator) SetCostField(f *mat.Dense) {
	c.field = f
}

// SetGoals sets the roots of the search.
func (c *Calculator) SetGoals(goals []grid.Cell) {
	c.goals = append(c.goals[:0], goals...)
}

// Compute builds the path map. Roots always enter the tree, even on impassable
// cells, so a goal placed inside an inflated obstacle stays reachable from its
// free neighbours.
func (c *Calculator) Compute() (*PathMap, error) {
	if c.field == nil {
		return nil, errors.New("path search needs a cost field")
	}
	rows, cols := c.field.Dims()
	dims := grid.Dims{Rows: rows, Cols: cols}
	if dims.Empty() {
		return nil, errors.New("path search cost field is empty")
	}
	if len(c.goals) == 0 {
		return nil, errors.New("path search needs at least one goal")
	}

	pm := NewPathMap(dims)
	for i := range pm.Cost {
		pm.Cost[i] = math.Inf(1)
	}
	closed := make([]bool, dims.Size())
	var open openList
	for _, g := range c.goals {
		if !dims.Inside(g) {
			return nil, errors.Errorf("goal %v is outside the %dx%d cost field", g, rows, cols)
		}
		idx := dims.Index(g)
		pm.Parent[idx] = idx
		pm.Cost[idx] = 0
		open = append(open, node{idx: idx})
	}
	heap.Init(&open)

	for open.Len() > 0 {
		cur := heap.Pop(&open).(node)
		if closed[cur.idx] {
			continue
		}
		closed[cur.idx] = true
		cell := dims.CellAt(cur.idx)
		for _, off := range grid.Neighbors8 {
			n := cell.Add(off)
			if !dims.Inside(n) {
				continue
			}
			nIdx := dims.Index(n)
			if closed[nIdx] {
				continue
			}
			weight := c.field.At(n.R, n.C)
			if weight > c.maxCost || math.IsNaN(weight) {
				continue
			}
			step := 1.0
			if grid.IsDiagonal(off) {
				step = math.Sqrt2
			}
			cost := cur.cost + weight*step
			if cost < pm.Cost[nIdx] {
				pm.Cost[nIdx] = cost
				pm.Parent[nIdx] = cur.idx
				heap.Push(&open, node{idx: nIdx, cost: cost})
			}
		}
	}
	return pm, nil
}
