package planner

import (
	"math"

	"github.com/golang/geo/r2"
	"github.com/pkg/errors"

	"go.viam.com/planner2d/grid"
	"go.viam.com/planner2d/referenceframe"
)

// lookaheadCells converts the lookahead distance to a path index. It is at
// least one so the robot never targets its own cell.
func lookaheadCells(distance, resolution float64) int {
	n := int(math.Round(distance / resolution))
	if n < 1 {
		return 1
	}
	return n
}

// waypoint is the point handed to the motion controller.
type waypoint struct {
	target r2.Point
	cell   grid.Cell
	final  bool
}

// selectWaypoint picks the cell lookahead steps along path. When the path is not
// longer than that the terminal cell is the final waypoint; if it is the goal
// cell the exact goal position is targeted rather than the cell centre.
func selectWaypoint(
	path []grid.Cell,
	lookahead int,
	frames *referenceframe.MapFrames,
	goal referenceframe.TrackedPose,
) (waypoint, error) {
	if len(path) == 0 {
		return waypoint{}, errors.New("cannot select a waypoint on an empty path")
	}
	if len(path) > lookahead {
		cell := path[lookahead]
		target, err := frames.GridToImageChecked(cell)
		if err != nil {
			return waypoint{}, err
		}
		return waypoint{target: target, cell: cell}, nil
	}
	last := path[len(path)-1]
	if last == goal.Pixel {
		return waypoint{target: goal.Image.Point(), cell: last, final: true}, nil
	}
	target, err := frames.GridToImageChecked(last)
	if err != nil {
		return waypoint{}, err
	}
	return waypoint{target: target, cell: last, final: true}, nil
}
