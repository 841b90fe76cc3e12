package planner

import (
	"context"

	"github.com/golang/geo/r2"
	"gonum.org/v1/gonum/mat"

	"go.viam.com/planner2d/dmap"
	"go.viam.com/planner2d/grid"
	"go.viam.com/planner2d/motion"
	"go.viam.com/planner2d/occupancy"
	"go.viam.com/planner2d/pathsearch"
	"go.viam.com/planner2d/spatialmath"
)

// A DistanceTransformer computes the distance of every cell to its nearest
// obstacle, in cells. After Init has propagated the static obstacles, further
// seeds only lower the distances held in the output field.
type DistanceTransformer interface {
	SetMaxDistance(d float64)
	SetClassification(g *occupancy.Grid)
	SetOutput(f *dmap.Field)
	Init() error
	MaxIndex() int
	SeedObstacles(cells []grid.Cell, maxIndex int)
	Compute() *mat.Dense
}

// A PathSearcher builds a tree of cheapest paths rooted at the goals.
type PathSearcher interface {
	SetMaxCost(cost float64)
	SetCostField(f *mat.Dense)
	SetGoals(goals []grid.Cell)
	Compute() (*pathsearch.PathMap, error)
}

// An ObstacleRasterizer converts robot-frame laser points into grid cells given
// the robot's image-frame pose.
type ObstacleRasterizer interface {
	SetResolution(resolution float64)
	SetRobotPose(pose spatialmath.Pose2D)
	SetPoints(points []r2.Point)
	Compute()
	OccupiedCells() []grid.Cell
}

// A MotionController turns a target point into a velocity command. It is called
// from the planning cycle while CancelGoal may reset it concurrently, so
// implementations must be safe for concurrent use.
type MotionController interface {
	ComputeVelocities(pose spatialmath.Pose2D, target r2.Point) (motion.Velocity, bool)
	ResetVelocities()
}

// A MapLoader produces a static map from a path.
type MapLoader interface {
	Load(path string) (occupancy.MapSpec, error)
}

// A Stopper halts the motion layer. It is invoked synchronously when a goal is
// cancelled or reached.
type Stopper interface {
	Stop(ctx context.Context) error
}
