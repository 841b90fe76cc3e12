package inject

import (
	"gonum.org/v1/gonum/mat"

	"go.viam.com/planner2d/grid"
	"go.viam.com/planner2d/pathsearch"
)

// PathSearcher is an injected path search.
type PathSearcher struct {
	*pathsearch.Calculator
	SetCostFieldFunc func(f *mat.Dense)
	SetGoalsFunc     func(goals []grid.Cell)
	ComputeFunc      func() (*pathsearch.PathMap, error)
}

// NewPathSearcher returns a PathSearcher backed by the Dijkstra calculator.
func NewPathSearcher() *PathSearcher {
	return &PathSearcher{Calculator: pathsearch.NewCalculator()}
}

// SetCostField calls the injected SetCostField and the real version.
func (s *PathSearcher) SetCostField(f *mat.Dense) {
	if s.SetCostFieldFunc != nil {
		s.SetCostFieldFunc(f)
	}
	s.Calculator.SetCostField(f)
}

// SetGoals calls the injected SetGoals and the real version.
func (s *PathSearcher) SetGoals(goals []grid.Cell) {
	if s.SetGoalsFunc != nil {
		s.SetGoalsFunc(goals)
	}
	s.Calculator.SetGoals(goals)
}

// Compute calls the injected Compute or the real version.
func (s *PathSearcher) Compute() (*pathsearch.PathMap, error) {
	if s.ComputeFunc == nil {
		return s.Calculator.Compute()
	}
	return s.ComputeFunc()
}
