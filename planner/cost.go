package planner

import (
	"math"

	"gonum.org/v1/gonum/mat"
)

// costMapping turns obstacle distances in meters into path-search weights: max
// inside the robot radius, min beyond the safety region, decaying exponentially
// in between so the two ends meet.
type costMapping struct {
	maxCost      float64
	minCost      float64
	robotRadius  float64
	safetyRegion float64
	lambda       float64
}

func newCostMapping(cfg Config) costMapping {
	return costMapping{
		maxCost:      cfg.MaxCost,
		minCost:      cfg.MinCost,
		robotRadius:  cfg.RobotRadius,
		safetyRegion: cfg.SafetyRegion,
		lambda:       math.Log(cfg.MaxCost/cfg.MinCost) / (cfg.SafetyRegion - cfg.RobotRadius),
	}
}

func (m costMapping) cost(d float64) float64 {
	switch {
	case d < m.robotRadius:
		return m.maxCost
	case d > m.safetyRegion:
		return m.minCost
	default:
		return m.maxCost * math.Exp(-m.lambda*(d-m.robotRadius))
	}
}

// apply maps a distance field in cells to a new cost field.
func (m costMapping) apply(dist *mat.Dense, resolution float64) *mat.Dense {
	var out mat.Dense
	out.Apply(func(_, _ int, v float64) float64 {
		return m.cost(v * resolution)
	}, dist)
	return &out
}

// searchMaxCost is the highest cost the path search may traverse. Cells at the
// maximum cost, those within the robot radius, are impassable.
func (m costMapping) searchMaxCost() float64 {
	return m.maxCost - 1
}
