package inject

import (
	"gonum.org/v1/gonum/mat"

	"go.viam.com/planner2d/dmap"
	"go.viam.com/planner2d/grid"
)

// DistanceTransformer is an injected distance transform.
type DistanceTransformer struct {
	*dmap.Calculator
	InitFunc          func() error
	MaxIndexFunc      func() int
	SeedObstaclesFunc func(cells []grid.Cell, maxIndex int)
	ComputeFunc       func() *mat.Dense

	InitCalls    int
	ComputeCalls int
}

// NewDistanceTransformer returns a DistanceTransformer backed by the brushfire
// calculator.
func NewDistanceTransformer() *DistanceTransformer {
	return &DistanceTransformer{Calculator: dmap.NewCalculator()}
}

// Init calls the injected Init or the real version.
func (d *DistanceTransformer) Init() error {
	d.InitCalls++
	if d.InitFunc == nil {
		return d.Calculator.Init()
	}
	return d.InitFunc()
}

// MaxIndex calls the injected MaxIndex or the real version.
func (d *DistanceTransformer) MaxIndex() int {
	if d.MaxIndexFunc == nil {
		return d.Calculator.MaxIndex()
	}
	return d.MaxIndexFunc()
}

// SeedObstacles calls the injected SeedObstacles or the real version.
func (d *DistanceTransformer) SeedObstacles(cells []grid.Cell, maxIndex int) {
	if d.SeedObstaclesFunc == nil {
		d.Calculator.SeedObstacles(cells, maxIndex)
		return
	}
	d.SeedObstaclesFunc(cells, maxIndex)
}

// Compute calls the injected Compute or the real version.
func (d *DistanceTransformer) Compute() *mat.Dense {
	d.ComputeCalls++
	if d.ComputeFunc == nil {
		return d.Calculator.Compute()
	}
	return d.ComputeFunc()
}
