package dmap

import (
	"container/heap"
	"math"

	"github.com/pkg/errors"
	"gonum.org/v1/gonum/mat"

	"go.viam.com/planner2d/grid"
	"go.viam.com/planner2d/occupancy"
)

type queueItem struct {
	idx  int
	dist float64
}

type seedQueue []queueItem

func (q seedQueue) Len() int            { return len(q) }
func (q seedQueue) Less(i, j int) bool  { return q[i].dist < q[j].dist }
func (q seedQueue) Swap(i, j int)       { q[i], q[j] = q[j], q[i] }
func (q *seedQueue) Push(x interface{}) { *q = append(*q, x.(queueItem)) }
func (q *seedQueue) Pop() interface{} {
	old := *q
	item := old[len(old)-1]
	*q = old[:len(old)-1]
	return item
}

// Calculator is a brushfire Euclidean distance transform. Distances propagate
// outward from obstacle seeds through the 8-neighbourhood, each cell keeping the
// distance to the seed it was reached from. Compute only ever lowers distances,
// so a field restored from an earlier result acts as an upper bound and only the
// region around newly seeded cells is revisited.
type Calculator struct {
	maxDistance float64
	grid        *occupancy.Grid
	out         *Field
	maxIndex    int
	queue       seedQueue
}

// NewCalculator returns a calculator with no configuration.
func NewCalculator() *Calculator {
	return &Calculator{maxDistance: math.Inf(1)}
}

// SetMaxDistance sets the cap, in cells, beyond which distances are not propagated.
func (c *Calculator) SetMaxDistance(d float64) {
	c.maxDistance = d
}

// SetClassification sets the static map the field is initialized from.
func (c *Calculator) SetClassification(g *occupancy.Grid) {
	c.grid = g
}

// SetOutput sets the field the calculator writes to.
func (c *Calculator) SetOutput(f *Field) {
	c.out = f
}

// Init resets the output field from the classification: occupied and unknown
// cells become seeds labelled 0..MaxIndex-1, every other cell starts at the cap.
func (c *Calculator) Init() error {
	if c.grid == nil || c.out == nil {
		return errors.New("distance calculator needs a classification grid and an output field")
	}
	if c.grid.Dims() != c.out.Dims() {
		return errors.Errorf("classification grid %v does not match output field %v", c.grid.Dims(), c.out.Dims())
	}
	c.queue = c.queue[:0]
	label := 0
	for idx := 0; idx < c.out.dims.Size(); idx++ {
		if c.grid.AtIndex(idx) == occupancy.Free {
			c.out.set(idx, c.maxDistance, -1, -1)
			continue
		}
		c.out.set(idx, 0, idx, label)
		c.queue = append(c.queue, queueItem{idx: idx})
		label++
	}
	heap.Init(&c.queue)
	c.maxIndex = label
	return nil
}

// MaxIndex returns the number of seeds created by Init. Labels from MaxIndex on
// are free for dynamic obstacles.
func (c *Calculator) MaxIndex() int {
	return c.maxIndex
}

// SeedObstacles adds obstacle seeds labelled from maxIndex on. Cells outside the
// field and cells already holding a seed are skipped.
func (c *Calculator) SeedObstacles(cells []grid.Cell, maxIndex int) {
	if c.out == nil {
		return
	}
	for i, cell := range cells {
		if !c.out.dims.Inside(cell) {
			continue
		}
		idx := c.out.dims.Index(cell)
		if c.out.distAt(idx) == 0 {
			continue
		}
		c.out.set(idx, 0, idx, maxIndex+i)
		heap.Push(&c.queue, queueItem{idx: idx})
	}
}

// Compute propagates every pending seed and returns the distance matrix of the
// output field.
func (c *Calculator) Compute() *mat.Dense {
	if c.out == nil {
		return nil
	}
	dims := c.out.dims
	for c.queue.Len() > 0 {
		item := heap.Pop(&c.queue).(queueItem)
		if item.dist > c.out.distAt(item.idx) {
			continue
		}
		cell := dims.CellAt(item.idx)
		seedIdx := c.out.nearest[item.idx]
		seed := dims.CellAt(seedIdx)
		label := c.out.label[item.idx]
		for _, off := range grid.Neighbors8 {
			n := cell.Add(off)
			if !dims.Inside(n) {
				continue
			}
			nIdx := dims.Index(n)
			d := math.Hypot(float64(n.R-seed.R), float64(n.C-seed.C))
			if d >= c.out.distAt(nIdx) || d >= c.maxDistance {
				continue
			}
			c.out.set(nIdx, d, seedIdx, label)
			heap.Push(&c.queue, queueItem{idx: nIdx, dist: d})
		}
	}
	return c.out.dist
}
