package planner

import (
	"context"
	"image"
	"image/color"
	"math"
	"sync"
	"testing"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/golang/geo/r2"
	"github.com/pkg/errors"
	"go.uber.org/zap/zaptest/observer"
	"go.viam.com/test"
	"gonum.org/v1/gonum/mat"

	"go.viam.com/planner2d/grid"
	"go.viam.com/planner2d/logging"
	"go.viam.com/planner2d/motion"
	"go.viam.com/planner2d/occupancy"
	"go.viam.com/planner2d/pathsearch"
	"go.viam.com/planner2d/referenceframe"
	"go.viam.com/planner2d/spatialmath"
	"go.viam.com/planner2d/testutils/inject"
)

const testResolution = 0.05

type testHarness struct {
	planner   *Planner
	motion    *inject.MotionController
	distance  *inject.DistanceTransformer
	search    *inject.PathSearcher
	obstacles *inject.ObstacleRasterizer
	stopper   *inject.Stopper
	clock     *clock.Mock
	logs      *observer.ObservedLogs
}

func newHarness(t *testing.T) *testHarness {
	t.Helper()
	return newHarnessWithConfig(t, Config{})
}

func newHarnessWithConfig(t *testing.T, cfg Config) *testHarness {
	t.Helper()
	clk := clock.NewMock()
	ctrl, err := motion.NewControllerWithClock(motion.DefaultConfig(), clk)
	test.That(t, err, test.ShouldBeNil)
	h := &testHarness{
		motion:    inject.NewMotionController(ctrl),
		distance:  inject.NewDistanceTransformer(),
		search:    inject.NewPathSearcher(),
		obstacles: inject.NewObstacleRasterizer(),
		stopper:   &inject.Stopper{},
		clock:     clk,
	}
	var logger logging.Logger
	logger, h.logs = logging.NewObservedTestLogger(t)
	h.planner, err = New(cfg, Dependencies{
		Distance:  h.distance,
		Search:    h.search,
		Obstacles: h.obstacles,
		Motion:    h.motion,
		Stopper:   h.stopper,
		Clock:     clk,
	}, logger)
	test.That(t, err, test.ShouldBeNil)
	return h
}

func freeImage(rows, cols int) *image.Gray {
	img := image.NewGray(image.Rect(0, 0, cols, rows))
	for i := range img.Pix {
		img.Pix[i] = 255
	}
	return img
}

func mapSpec(img *image.Gray) occupancy.MapSpec {
	return occupancy.MapSpec{
		Image:             img,
		Resolution:        testResolution,
		OccupiedThreshold: 0.65,
		FreeThreshold:     0.196,
	}
}

func (h *testHarness) loadFreeMap(t *testing.T, rows, cols int) {
	t.Helper()
	test.That(t, h.planner.LoadMap(mapSpec(freeImage(rows, cols))), test.ShouldBeNil)
}

// worldAt returns the world pose at the centre of a cell, heading along +column.
func (h *testHarness) worldAt(c grid.Cell) spatialmath.Pose2D {
	pt := h.planner.MapState().Frames().GridToWorld(c)
	return spatialmath.Pose2D{X: pt.X, Y: pt.Y}
}

func TestStraightLineLookahead(t *testing.T) {
	h := newHarness(t)
	h.loadFreeMap(t, 40, 140)
	ctx := context.Background()

	test.That(t, h.planner.SetRobotPose(h.worldAt(grid.Cell{R: 20, C: 20})), test.ShouldBeNil)
	id, err := h.planner.SetGoal(h.worldAt(grid.Cell{R: 20, C: 120}))
	test.That(t, err, test.ShouldBeNil)
	test.That(t, id, test.ShouldNotBeEmpty)
	h.planner.SetSensorPoints([]r2.Point{})

	res, err := h.planner.Step(ctx)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, res.GoalReached, test.ShouldBeFalse)
	test.That(t, res.Diagnostics.GoalID, test.ShouldEqual, id)
	test.That(t, res.Diagnostics.BaselineRebuilt, test.ShouldBeTrue)
	test.That(t, res.Diagnostics.SensorAvailable, test.ShouldBeTrue)
	test.That(t, res.Diagnostics.PathLength, test.ShouldEqual, 101)
	test.That(t, res.Diagnostics.FinalWaypoint, test.ShouldBeFalse)
	test.That(t, res.Velocity.Linear, test.ShouldBeGreaterThan, 0)
	test.That(t, math.Abs(res.Velocity.Angular), test.ShouldBeLessThan, 1e-6)
	test.That(t, h.planner.State(), test.ShouldEqual, StateCycling)

	targets := h.motion.Targets()
	test.That(t, targets, test.ShouldHaveLength, 1)
	want := h.planner.MapState().Frames().GridToImage(grid.Cell{R: 20, C: 40})
	test.That(t, targets[0].X, test.ShouldAlmostEqual, want.X)
	test.That(t, targets[0].Y, test.ShouldAlmostEqual, want.Y)

	snap := h.planner.Snapshot()
	test.That(t, snap.Path, test.ShouldHaveLength, 101)
	for i, c := range snap.Path {
		test.That(t, c, test.ShouldResemble, grid.Cell{R: 20, C: 20 + i})
	}
	test.That(t, snap.HasGoal, test.ShouldBeTrue)
	test.That(t, snap.Goal, test.ShouldResemble, grid.Cell{R: 20, C: 120})

	// the baseline is computed once per map
	h.clock.Add(100 * time.Millisecond)
	res, err = h.planner.Step(ctx)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, res.Diagnostics.BaselineRebuilt, test.ShouldBeFalse)
	test.That(t, h.distance.InitCalls, test.ShouldEqual, 1)
}

func TestGoalReached(t *testing.T) {
	h := newHarness(t)
	h.loadFreeMap(t, 40, 140)
	ctx := context.Background()
	goal := grid.Cell{R: 20, C: 120}

	test.That(t, h.planner.SetRobotPose(h.worldAt(grid.Cell{R: 20, C: 115})), test.ShouldBeNil)
	_, err := h.planner.SetGoal(h.worldAt(goal))
	test.That(t, err, test.ShouldBeNil)
	h.planner.SetSensorPoints([]r2.Point{})

	res, err := h.planner.Step(ctx)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, res.Diagnostics.FinalWaypoint, test.ShouldBeTrue)
	test.That(t, res.GoalReached, test.ShouldBeFalse)
	test.That(t, res.Velocity.IsZero(), test.ShouldBeFalse)
	goalPose, _, ok := h.planner.Goal()
	test.That(t, ok, test.ShouldBeTrue)
	targets := h.motion.Targets()
	test.That(t, targets[len(targets)-1], test.ShouldResemble, goalPose.Image.Point())

	test.That(t, h.planner.SetRobotPose(h.worldAt(goal)), test.ShouldBeNil)
	res, err = h.planner.Step(ctx)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, res.GoalReached, test.ShouldBeTrue)
	test.That(t, res.Velocity.IsZero(), test.ShouldBeTrue)
	test.That(t, h.planner.State(), test.ShouldEqual, StateIdle)
	test.That(t, h.stopper.Calls(), test.ShouldEqual, 1)
	_, _, ok = h.planner.Goal()
	test.That(t, ok, test.ShouldBeFalse)
	test.That(t, h.logs.FilterMessage("goal reached").Len(), test.ShouldEqual, 1)

	// idle cycles do nothing
	calls := len(h.motion.Targets())
	res, err = h.planner.Step(ctx)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, res, test.ShouldResemble, Result{})
	test.That(t, h.motion.Targets(), test.ShouldHaveLength, calls)
}

func TestIntermediateWaypointNeverReachesGoal(t *testing.T) {
	h := newHarness(t)
	h.loadFreeMap(t, 40, 140)
	frames := h.planner.MapState().Frames()
	// every target short of column 60 counts as reached
	edge := frames.GridToImage(grid.Cell{R: 20, C: 60}).Y
	h.motion.ComputeVelocitiesFunc = func(pose spatialmath.Pose2D, target r2.Point) (motion.Velocity, bool) {
		if target.Y < edge {
			return motion.Velocity{}, true
		}
		return motion.Velocity{Linear: 0.2}, false
	}
	test.That(t, h.planner.SetRobotPose(h.worldAt(grid.Cell{R: 20, C: 20})), test.ShouldBeNil)
	_, err := h.planner.SetGoal(h.worldAt(grid.Cell{R: 20, C: 120}))
	test.That(t, err, test.ShouldBeNil)
	h.planner.SetSensorPoints([]r2.Point{})

	res, err := h.planner.Step(context.Background())
	test.That(t, err, test.ShouldBeNil)
	test.That(t, res.GoalReached, test.ShouldBeFalse)
	test.That(t, res.Diagnostics.FinalWaypoint, test.ShouldBeFalse)
	test.That(t, res.Velocity, test.ShouldResemble, motion.Velocity{Linear: 0.2})
	test.That(t, h.planner.State(), test.ShouldEqual, StateCycling)

	targets := h.motion.Targets()
	test.That(t, targets, test.ShouldHaveLength, 21)
	test.That(t, targets[0], test.ShouldResemble, frames.GridToImage(grid.Cell{R: 20, C: 40}))
	test.That(t, targets[20], test.ShouldResemble, frames.GridToImage(grid.Cell{R: 20, C: 60}))
	_, _, ok := h.planner.Goal()
	test.That(t, ok, test.ShouldBeTrue)
}

func TestShortLookaheadSkipsReachedCells(t *testing.T) {
	h := newHarnessWithConfig(t, Config{LookaheadDistance: testResolution})
	h.loadFreeMap(t, 40, 140)
	ctx := context.Background()
	test.That(t, h.planner.SetRobotPose(h.worldAt(grid.Cell{R: 20, C: 20})), test.ShouldBeNil)
	_, err := h.planner.SetGoal(h.worldAt(grid.Cell{R: 20, C: 120}))
	test.That(t, err, test.ShouldBeNil)
	h.planner.SetSensorPoints([]r2.Point{})

	robot, ok := h.planner.RobotPose()
	test.That(t, ok, test.ShouldBeTrue)
	tolerance := motion.DefaultConfig().GoalTolerance
	for i := 0; i < 3; i++ {
		res, err := h.planner.Step(ctx)
		test.That(t, err, test.ShouldBeNil)
		test.That(t, res.GoalReached, test.ShouldBeFalse)
		test.That(t, res.Velocity.Linear, test.ShouldBeGreaterThan, 0)
		h.clock.Add(100 * time.Millisecond)
	}
	targets := h.motion.Targets()
	last := targets[len(targets)-1]
	dist := last.Sub(robot.Image.Point()).Norm()
	test.That(t, dist, test.ShouldBeGreaterThan, tolerance)
	test.That(t, dist, test.ShouldBeLessThanOrEqualTo, tolerance+testResolution+1e-9)
}

func TestLaserObstacleForcesDetour(t *testing.T) {
	h := newHarness(t)
	h.loadFreeMap(t, 40, 140)
	ctx := context.Background()

	test.That(t, h.planner.SetRobotPose(h.worldAt(grid.Cell{R: 20, C: 20})), test.ShouldBeNil)
	_, err := h.planner.SetGoal(h.worldAt(grid.Cell{R: 20, C: 120}))
	test.That(t, err, test.ShouldBeNil)
	h.planner.SetSensorPoints([]r2.Point{})
	res, err := h.planner.Step(ctx)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, res.Diagnostics.PathLength, test.ShouldEqual, 101)
	baseline := h.planner.cache.baseline.Clone()
	baselineCost := mat.DenseCopyOf(h.planner.cache.baselineCost)

	// a wall 2.5m ahead of the robot, across its line of travel
	var wall []r2.Point
	for k := -6; k <= 6; k++ {
		wall = append(wall, r2.Point{X: 2.5, Y: float64(k) * testResolution})
	}
	h.planner.SetSensorPoints(wall)
	res, err = h.planner.Step(ctx)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, res.Diagnostics.DynamicCells, test.ShouldEqual, 13)

	snap := h.planner.Snapshot()
	test.That(t, snap.Laser, test.ShouldHaveLength, 13)
	test.That(t, snap.Laser[6], test.ShouldResemble, grid.Cell{R: 20, C: 70})
	maxOffset := 0
	for _, c := range snap.Path {
		test.That(t, c, test.ShouldNotResemble, grid.Cell{R: 20, C: 70})
		if off := int(math.Abs(float64(c.R - 20))); off > maxOffset {
			maxOffset = off
		}
	}
	test.That(t, maxOffset, test.ShouldBeGreaterThanOrEqualTo, 12)
	test.That(t, snap.Path[len(snap.Path)-1], test.ShouldResemble, grid.Cell{R: 20, C: 120})

	// the overlay never leaks into the baseline
	test.That(t, h.planner.cache.baseline.Equal(baseline), test.ShouldBeTrue)
	test.That(t, mat.Equal(h.planner.cache.baselineCost, baselineCost), test.ShouldBeTrue)

	// once the obstacle is gone the straight path is back
	h.planner.SetSensorPoints([]r2.Point{})
	res, err = h.planner.Step(ctx)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, res.Diagnostics.PathLength, test.ShouldEqual, 101)
	test.That(t, h.planner.cache.working.Equal(baseline), test.ShouldBeTrue)
}

func TestEmptyPathStopsButKeepsGoal(t *testing.T) {
	h := newHarness(t)
	img := freeImage(40, 140)
	for r := 0; r < 40; r++ {
		img.SetGray(70, r, color.Gray{Y: 0})
	}
	test.That(t, h.planner.LoadMap(mapSpec(img)), test.ShouldBeNil)

	test.That(t, h.planner.SetRobotPose(h.worldAt(grid.Cell{R: 20, C: 20})), test.ShouldBeNil)
	_, err := h.planner.SetGoal(h.worldAt(grid.Cell{R: 20, C: 120}))
	test.That(t, err, test.ShouldBeNil)
	h.planner.SetSensorPoints([]r2.Point{})

	resets := h.motion.ResetCalls()
	res, err := h.planner.Step(context.Background())
	test.That(t, err, test.ShouldBeNil)
	test.That(t, res.Diagnostics.PathLength, test.ShouldEqual, 0)
	test.That(t, res.Velocity.IsZero(), test.ShouldBeTrue)
	test.That(t, res.GoalReached, test.ShouldBeFalse)
	test.That(t, h.motion.ResetCalls(), test.ShouldEqual, resets+1)
	test.That(t, h.motion.Targets(), test.ShouldBeEmpty)
	test.That(t, h.planner.State(), test.ShouldEqual, StateCycling)
	_, _, ok := h.planner.Goal()
	test.That(t, ok, test.ShouldBeTrue)
}

func TestNoLaserFallsBackToBaseline(t *testing.T) {
	h := newHarness(t)
	h.loadFreeMap(t, 40, 140)
	test.That(t, h.planner.SetRobotPose(h.worldAt(grid.Cell{R: 20, C: 20})), test.ShouldBeNil)
	_, err := h.planner.SetGoal(h.worldAt(grid.Cell{R: 20, C: 120}))
	test.That(t, err, test.ShouldBeNil)

	res, err := h.planner.Step(context.Background())
	test.That(t, err, test.ShouldBeNil)
	test.That(t, res.Diagnostics.SensorAvailable, test.ShouldBeFalse)
	test.That(t, res.Diagnostics.Warnings, test.ShouldResemble, []string{"laser data not available"})
	test.That(t, res.Diagnostics.PathLength, test.ShouldEqual, 101)
	test.That(t, res.Velocity.Linear, test.ShouldBeGreaterThan, 0)
	test.That(t, h.logs.FilterMessage("laser data not available").Len(), test.ShouldEqual, 1)
}

func TestRasterizedCellsOutsideMapIgnored(t *testing.T) {
	h := newHarness(t)
	h.loadFreeMap(t, 40, 140)
	h.obstacles.OccupiedCellsFunc = func() []grid.Cell {
		return []grid.Cell{{R: -1, C: 3}, {R: 40, C: 0}, {R: 10, C: 60}}
	}
	test.That(t, h.planner.SetRobotPose(h.worldAt(grid.Cell{R: 20, C: 20})), test.ShouldBeNil)
	h.planner.SetSensorPoints([]r2.Point{})
	_, err := h.planner.SetGoal(h.worldAt(grid.Cell{R: 20, C: 120}))
	test.That(t, err, test.ShouldBeNil)

	res, err := h.planner.Step(context.Background())
	test.That(t, err, test.ShouldBeNil)
	test.That(t, res.Diagnostics.SensorAvailable, test.ShouldBeTrue)
	test.That(t, res.Diagnostics.DynamicCells, test.ShouldEqual, 1)
	test.That(t, res.Diagnostics.Warnings, test.ShouldBeEmpty)
}

func TestLoadMapFromError(t *testing.T) {
	h := newHarness(t)
	loader := &inject.MapLoader{
		LoadFunc: func(path string) (occupancy.MapSpec, error) {
			return occupancy.MapSpec{}, errors.New("no such map")
		},
	}
	err := h.planner.LoadMapFrom(loader, "missing.png")
	test.That(t, err, test.ShouldNotBeNil)
	test.That(t, err.Error(), test.ShouldContainSubstring, `cannot load map "missing.png"`)
	test.That(t, err.Error(), test.ShouldContainSubstring, "no such map")
	test.That(t, h.planner.MapState(), test.ShouldBeNil)

	loader.LoadFunc = func(path string) (occupancy.MapSpec, error) {
		return mapSpec(freeImage(10, 10)), nil
	}
	test.That(t, h.planner.LoadMapFrom(loader, "free.png"), test.ShouldBeNil)
	test.That(t, h.planner.MapState(), test.ShouldNotBeNil)
}

func TestOutOfBounds(t *testing.T) {
	h := newHarness(t)
	h.loadFreeMap(t, 40, 140)
	test.That(t, h.planner.SetRobotPose(spatialmath.Pose2D{X: -5, Y: -5}), test.ShouldBeNil)
	_, err := h.planner.SetGoal(h.worldAt(grid.Cell{R: 20, C: 120}))
	test.That(t, err, test.ShouldBeNil)

	resets := h.motion.ResetCalls()
	res, err := h.planner.Step(context.Background())
	test.That(t, err, test.ShouldNotBeNil)
	test.That(t, errors.Is(err, referenceframe.ErrOutOfBounds), test.ShouldBeTrue)
	test.That(t, res.Velocity.IsZero(), test.ShouldBeTrue)
	test.That(t, h.motion.ResetCalls(), test.ShouldEqual, resets+1)
}

func TestSearchFailure(t *testing.T) {
	h := newHarness(t)
	h.loadFreeMap(t, 10, 10)
	h.search.ComputeFunc = func() (*pathsearch.PathMap, error) {
		return nil, errors.New("boom")
	}
	test.That(t, h.planner.SetRobotPose(h.worldAt(grid.Cell{R: 5, C: 1})), test.ShouldBeNil)
	_, err := h.planner.SetGoal(h.worldAt(grid.Cell{R: 5, C: 8}))
	test.That(t, err, test.ShouldBeNil)
	_, err = h.planner.Step(context.Background())
	test.That(t, err, test.ShouldNotBeNil)
	test.That(t, err.Error(), test.ShouldContainSubstring, "path search failed")
	test.That(t, err.Error(), test.ShouldContainSubstring, "boom")
}

func TestSearchRootedAtGoal(t *testing.T) {
	h := newHarness(t)
	h.loadFreeMap(t, 10, 10)
	var goals []grid.Cell
	var costs *mat.Dense
	h.search.SetGoalsFunc = func(g []grid.Cell) { goals = g }
	h.search.SetCostFieldFunc = func(f *mat.Dense) { costs = f }
	test.That(t, h.planner.SetRobotPose(h.worldAt(grid.Cell{R: 5, C: 1})), test.ShouldBeNil)
	_, err := h.planner.SetGoal(h.worldAt(grid.Cell{R: 5, C: 8}))
	test.That(t, err, test.ShouldBeNil)
	_, err = h.planner.Step(context.Background())
	test.That(t, err, test.ShouldBeNil)
	test.That(t, goals, test.ShouldResemble, []grid.Cell{{R: 5, C: 8}})
	test.That(t, costs, test.ShouldEqual, h.planner.cache.baselineCost)
}

func TestWithoutMap(t *testing.T) {
	h := newHarness(t)
	_, err := h.planner.SetGoal(spatialmath.Pose2D{})
	test.That(t, err, test.ShouldBeError, ErrNoMap)
	test.That(t, h.planner.SetRobotPose(spatialmath.Pose2D{}), test.ShouldBeError, ErrNoMap)
	test.That(t, h.planner.Reset(context.Background()), test.ShouldBeError, ErrNoMap)
	res, err := h.planner.Step(context.Background())
	test.That(t, err, test.ShouldBeNil)
	test.That(t, res, test.ShouldResemble, Result{})

	err = h.planner.LoadMap(occupancy.MapSpec{Resolution: 0.05})
	test.That(t, err, test.ShouldNotBeNil)
	test.That(t, h.planner.MapState(), test.ShouldBeNil)
}

func TestCancelGoal(t *testing.T) {
	h := newHarness(t)
	h.loadFreeMap(t, 20, 20)
	ctx := context.Background()
	test.That(t, h.planner.SetRobotPose(h.worldAt(grid.Cell{R: 10, C: 2})), test.ShouldBeNil)
	_, err := h.planner.SetGoal(h.worldAt(grid.Cell{R: 10, C: 18}))
	test.That(t, err, test.ShouldBeNil)
	test.That(t, h.planner.State(), test.ShouldEqual, StateCycling)

	resets := h.motion.ResetCalls()
	test.That(t, h.planner.CancelGoal(ctx), test.ShouldBeNil)
	test.That(t, h.planner.State(), test.ShouldEqual, StateIdle)
	test.That(t, h.motion.ResetCalls(), test.ShouldEqual, resets+1)
	test.That(t, h.stopper.Calls(), test.ShouldEqual, 1)

	res, err := h.planner.Step(ctx)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, res, test.ShouldResemble, Result{})

	h.stopper.StopFunc = func(ctx context.Context) error { return errors.New("base offline") }
	err = h.planner.CancelGoal(ctx)
	test.That(t, err, test.ShouldNotBeNil)
	test.That(t, err.Error(), test.ShouldContainSubstring, "base offline")
}

func TestResetRebuildsBaseline(t *testing.T) {
	h := newHarness(t)
	img := freeImage(20, 20)
	// a gray block that is unknown at the default thresholds and free at lower ones
	for r := 5; r < 8; r++ {
		for c := 5; c < 8; c++ {
			img.SetGray(c, r, color.Gray{Y: 150})
		}
	}
	test.That(t, h.planner.LoadMap(mapSpec(img)), test.ShouldBeNil)
	test.That(t, h.planner.MapState().Grid().Count(occupancy.Unknown), test.ShouldEqual, 9)
	ctx := context.Background()

	test.That(t, h.planner.SetRobotPose(h.worldAt(grid.Cell{R: 15, C: 2})), test.ShouldBeNil)
	_, err := h.planner.SetGoal(h.worldAt(grid.Cell{R: 15, C: 18}))
	test.That(t, err, test.ShouldBeNil)
	_, err = h.planner.Step(ctx)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, h.distance.InitCalls, test.ShouldEqual, 1)

	h.planner.SetThresholds(0.65, 0.5)
	test.That(t, h.planner.Reset(ctx), test.ShouldBeNil)
	test.That(t, h.planner.State(), test.ShouldEqual, StateIdle)
	_, _, ok := h.planner.Goal()
	test.That(t, ok, test.ShouldBeFalse)
	test.That(t, h.planner.MapState().Grid().Count(occupancy.Unknown), test.ShouldEqual, 0)

	_, err = h.planner.SetGoal(h.worldAt(grid.Cell{R: 15, C: 18}))
	test.That(t, err, test.ShouldBeNil)
	res, err := h.planner.Step(ctx)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, res.Diagnostics.BaselineRebuilt, test.ShouldBeTrue)
	test.That(t, h.distance.InitCalls, test.ShouldEqual, 2)
	test.That(t, h.logs.FilterMessage("planner reset").Len(), test.ShouldEqual, 1)
}

func TestDisplayOnly(t *testing.T) {
	h := newHarness(t)
	h.loadFreeMap(t, 20, 30)
	h.planner.SetDisplayActive(true)
	h.planner.SetDisplayMode(DisplayCost)

	res, err := h.planner.Step(context.Background())
	test.That(t, err, test.ShouldBeNil)
	test.That(t, res.Diagnostics.BaselineRebuilt, test.ShouldBeTrue)
	test.That(t, res.Velocity.IsZero(), test.ShouldBeTrue)
	test.That(t, h.planner.State(), test.ShouldEqual, StateIdle)
	test.That(t, h.motion.Targets(), test.ShouldBeEmpty)

	snap := h.planner.Snapshot()
	test.That(t, snap.Mode, test.ShouldEqual, DisplayCost)
	test.That(t, snap.Cost, test.ShouldNotBeNil)
	test.That(t, snap.Distance, test.ShouldNotBeNil)
	test.That(t, snap.Distance.At(3, 3), test.ShouldAlmostEqual, 1.0)
	test.That(t, snap.Cost.At(3, 3), test.ShouldAlmostEqual, 20)
	test.That(t, snap.Grid.Dims(), test.ShouldResemble, grid.Dims{Rows: 20, Cols: 30})
}

func TestLoadMapRetracksPoses(t *testing.T) {
	h := newHarness(t)
	h.loadFreeMap(t, 20, 20)
	pose := spatialmath.Pose2D{X: 0.52, Y: 0.52}
	test.That(t, h.planner.SetRobotPose(pose), test.ShouldBeNil)
	before, _ := h.planner.RobotPose()

	// a taller image moves the image origin but not the world pose
	h.loadFreeMap(t, 30, 20)
	after, ok := h.planner.RobotPose()
	test.That(t, ok, test.ShouldBeTrue)
	test.That(t, after.World, test.ShouldResemble, pose)
	test.That(t, after.Pixel.R, test.ShouldEqual, before.Pixel.R+10)
	test.That(t, after.Pixel.C, test.ShouldEqual, before.Pixel.C)
}

func TestNewValidatesConfig(t *testing.T) {
	_, err := New(Config{MinCost: 200}, Dependencies{}, logging.NewTestLogger(t))
	test.That(t, err, test.ShouldNotBeNil)
	test.That(t, err.Error(), test.ShouldContainSubstring, "max_cost")

	p, err := New(Config{}, Dependencies{}, logging.NewTestLogger(t))
	test.That(t, err, test.ShouldBeNil)
	test.That(t, p.Config(), test.ShouldResemble, DefaultConfig())
}

func TestGoalReplacedDuringCycleSurvives(t *testing.T) {
	h := newHarness(t)
	h.loadFreeMap(t, 40, 140)
	ctx := context.Background()
	test.That(t, h.planner.SetRobotPose(h.worldAt(grid.Cell{R: 20, C: 118})), test.ShouldBeNil)
	_, err := h.planner.SetGoal(h.worldAt(grid.Cell{R: 20, C: 120}))
	test.That(t, err, test.ShouldBeNil)
	h.planner.SetSensorPoints([]r2.Point{})

	var replacement string
	h.motion.ComputeVelocitiesFunc = func(pose spatialmath.Pose2D, target r2.Point) (motion.Velocity, bool) {
		// the driver moves the goal while the cycle is computing
		id, err := h.planner.SetGoal(h.worldAt(grid.Cell{R: 20, C: 40}))
		test.That(t, err, test.ShouldBeNil)
		replacement = id
		return motion.Velocity{}, true
	}

	res, err := h.planner.Step(ctx)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, res.Diagnostics.FinalWaypoint, test.ShouldBeTrue)
	test.That(t, res.GoalReached, test.ShouldBeFalse)
	test.That(t, res.Velocity.IsZero(), test.ShouldBeTrue)

	goal, id, ok := h.planner.Goal()
	test.That(t, ok, test.ShouldBeTrue)
	test.That(t, id, test.ShouldEqual, replacement)
	test.That(t, goal.Pixel, test.ShouldResemble, grid.Cell{R: 20, C: 40})
	test.That(t, h.planner.State(), test.ShouldEqual, StateCycling)
	test.That(t, h.stopper.Calls(), test.ShouldEqual, 0)
	test.That(t, h.logs.FilterMessage("goal reached").Len(), test.ShouldEqual, 0)
}

func TestConcurrentSettersDuringStep(t *testing.T) {
	h := newHarness(t)
	h.loadFreeMap(t, 40, 140)
	ctx := context.Background()
	test.That(t, h.planner.SetRobotPose(h.worldAt(grid.Cell{R: 20, C: 20})), test.ShouldBeNil)
	_, err := h.planner.SetGoal(h.worldAt(grid.Cell{R: 20, C: 120}))
	test.That(t, err, test.ShouldBeNil)

	robotCells := []grid.Cell{{R: 20, C: 20}, {R: 10, C: 30}, {R: 30, C: 50}}
	goalCells := []grid.Cell{{R: 20, C: 120}, {R: 5, C: 100}, {R: 35, C: 80}}
	points := [][]r2.Point{nil, {}, {{X: 0.5, Y: 0}, {X: 0.5, Y: 0.05}}}

	done := make(chan struct{})
	var wg sync.WaitGroup
	setters := []func(i int) error{
		func(i int) error {
			return h.planner.SetRobotPose(h.worldAt(robotCells[i%len(robotCells)]))
		},
		func(i int) error {
			h.planner.SetSensorPoints(points[i%len(points)])
			return nil
		},
		func(i int) error {
			if i%4 == 3 {
				return h.planner.CancelGoal(ctx)
			}
			_, err := h.planner.SetGoal(h.worldAt(goalCells[i%len(goalCells)]))
			return err
		},
		func(i int) error {
			snap := h.planner.Snapshot()
			if snap.HasRobot {
				_ = snap.Robot.String()
			}
			h.planner.State()
			h.planner.Goal()
			return nil
		},
	}
	errs := make([]error, len(setters))
	for n, set := range setters {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; ; i++ {
				select {
				case <-done:
					return
				default:
				}
				if err := set(i); err != nil {
					errs[n] = err
					return
				}
			}
		}()
	}

	for i := 0; i < 50; i++ {
		_, err := h.planner.Step(ctx)
		test.That(t, err, test.ShouldBeNil)
		h.clock.Add(100 * time.Millisecond)
	}
	close(done)
	wg.Wait()
	for _, err := range errs {
		test.That(t, err, test.ShouldBeNil)
	}

	snap := h.planner.Snapshot()
	test.That(t, snap.Grid, test.ShouldNotBeNil)
	for _, c := range snap.Path {
		test.That(t, snap.Grid.Dims().Inside(c), test.ShouldBeTrue)
	}
}
