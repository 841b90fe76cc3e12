package planner

import (
	"strings"

	"github.com/pkg/errors"
	"gonum.org/v1/gonum/mat"

	"go.viam.com/planner2d/grid"
	"go.viam.com/planner2d/occupancy"
)

// DisplayMode selects which field a display renders.
type DisplayMode int

// The display modes cycle in this order.
const (
	DisplayMap DisplayMode = iota
	DisplayDistance
	DisplayCost
)

func (m DisplayMode) String() string {
	switch m {
	case DisplayMap:
		return "map"
	case DisplayDistance:
		return "distance"
	case DisplayCost:
		return "cost"
	default:
		return "unknown"
	}
}

// Next returns the mode following m.
func (m DisplayMode) Next() DisplayMode {
	return (m + 1) % (DisplayCost + 1)
}

// ParseDisplayMode parses the name of a display mode.
func ParseDisplayMode(s string) (DisplayMode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "map", "":
		return DisplayMap, nil
	case "distance":
		return DisplayDistance, nil
	case "cost":
		return DisplayCost, nil
	default:
		return DisplayMap, errors.Errorf("unknown display mode %q", s)
	}
}

// Snapshot is what a display needs to draw the planner's current view. Matrices
// are replaced rather than modified by later cycles and must not be modified by
// the caller.
type Snapshot struct {
	Mode DisplayMode
	// Grid is the classification of the static map.
	Grid *occupancy.Grid
	// Distance holds obstacle distances in meters.
	Distance *mat.Dense
	Cost     *mat.Dense
	Path     []grid.Cell
	Laser    []grid.Cell

	Robot    grid.Cell
	HasRobot bool
	Goal     grid.Cell
	HasGoal  bool
}
