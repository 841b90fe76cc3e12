package planner

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"go.opencensus.io/trace"
	"gonum.org/v1/gonum/mat"

	"go.viam.com/planner2d/grid"
	"go.viam.com/planner2d/motion"
	"go.viam.com/planner2d/referenceframe"
)

const (
	warnNoLaser = "laser data not available"
	warnNoRobot = "robot pose not available"
)

// Diagnostics describes what a cycle did.
type Diagnostics struct {
	GoalID string
	// SensorAvailable is false when the cycle ran on the static map alone.
	SensorAvailable bool
	DynamicCells    int
	// BaselineRebuilt is true on the cycle that recomputed the static baseline.
	BaselineRebuilt bool
	PathLength      int
	// PathTruncated is set when path extraction ended away from the goal.
	PathTruncated bool
	FinalWaypoint bool
	Warnings      []string

	InitDuration   time.Duration
	SearchDuration time.Duration
	CycleDuration  time.Duration
}

// Result is the outcome of one planning cycle.
type Result struct {
	Velocity    motion.Velocity
	GoalReached bool
	Diagnostics Diagnostics
}

// Step runs one planning cycle. Cycles are serialized; a call made while another
// is running waits for it. With no goal and display inactive Step does nothing.
func (p *Planner) Step(ctx context.Context) (res Result, err error) {
	ctx, span := trace.StartSpan(ctx, "planner::Step")
	defer span.End()

	p.cycleMu.Lock()
	defer p.cycleMu.Unlock()

	start := p.clk.Now()
	in := p.load()
	if in.mapState == nil || (in.goal == nil && !in.displayActive) {
		return res, nil
	}
	if in.goal != nil {
		res.Diagnostics.GoalID = in.goal.id
	}

	if in.mapGen != p.cacheGen || !p.cache.ready() {
		if err = p.initialize(ctx, in, &res.Diagnostics); err != nil {
			return res, err
		}
	}

	dist, laser, err := p.overlay(ctx, in, &res.Diagnostics)
	if err != nil {
		return res, err
	}
	cost := p.cache.baselineCost
	if res.Diagnostics.DynamicCells > 0 {
		cost = p.costs.apply(dist, in.mapState.Resolution())
	}
	var distImage mat.Dense
	distImage.Scale(in.mapState.Resolution(), dist)

	var path []grid.Cell
	defer func() {
		p.publish(in, &distImage, cost, path, laser)
		res.Diagnostics.CycleDuration = p.clk.Since(start)
		p.logger.Debugw("planning cycle",
			"goal", res.Diagnostics.GoalID,
			"dynamic_cells", res.Diagnostics.DynamicCells,
			"path_length", res.Diagnostics.PathLength,
			"duration", res.Diagnostics.CycleDuration,
		)
	}()

	if in.goal == nil {
		return res, nil
	}
	if !in.hasRobot {
		res.Diagnostics.Warnings = append(res.Diagnostics.Warnings, warnNoRobot)
		p.logger.Warn(warnNoRobot)
		p.motion.ResetVelocities()
		return res, nil
	}
	frames := in.mapState.Frames()
	if !frames.Inside(in.robot.Pixel) {
		p.motion.ResetVelocities()
		return res, errors.Wrapf(referenceframe.ErrOutOfBounds, "robot cell %v", in.robot.Pixel)
	}
	if !frames.Inside(in.goal.pose.Pixel) {
		p.motion.ResetVelocities()
		return res, errors.Wrapf(referenceframe.ErrOutOfBounds, "goal cell %v", in.goal.pose.Pixel)
	}

	path, truncated, err := p.searchPath(ctx, cost, in)
	if err != nil {
		p.motion.ResetVelocities()
		return res, err
	}
	res.Diagnostics.PathLength = len(path)
	res.Diagnostics.PathTruncated = truncated
	if len(path) == 0 {
		p.motion.ResetVelocities()
		return res, nil
	}

	lookahead := lookaheadCells(p.cfg.LookaheadDistance, in.mapState.Resolution())
	wp, err := selectWaypoint(path, lookahead, frames, in.goal.pose)
	if err != nil {
		p.motion.ResetVelocities()
		return res, err
	}
	vel, reached := p.motion.ComputeVelocities(in.robot.Image, wp.target)
	// an intermediate waypoint the controller already considers reached is
	// replaced by the next cell along the path
	for reached && !wp.final {
		lookahead++
		if wp, err = selectWaypoint(path, lookahead, frames, in.goal.pose); err != nil {
			p.motion.ResetVelocities()
			return res, err
		}
		vel, reached = p.motion.ComputeVelocities(in.robot.Image, wp.target)
	}
	res.Diagnostics.FinalWaypoint = wp.final
	if wp.final && reached {
		// a goal replaced during the cycle stays active
		path = nil
		res.GoalReached, err = p.finishGoal(ctx, in.goal.id)
		return res, err
	}
	res.Velocity = vel
	return res, nil
}

func (p *Planner) initialize(ctx context.Context, in cycleInput, diag *Diagnostics) error {
	_, span := trace.StartSpan(ctx, "planner::initializeBaseline")
	defer span.End()

	p.mu.Lock()
	prev := p.shared.state
	p.shared.state = StateInitializing
	p.mu.Unlock()

	start := p.clk.Now()
	resolution := in.mapState.Resolution()
	err := p.cache.initializeBaseline(in.mapState.Grid(), p.cfg.SafetyRegion/resolution, resolution, p.costs)
	diag.InitDuration = p.clk.Since(start)

	p.mu.Lock()
	if p.shared.state == StateInitializing {
		switch {
		case err != nil:
			p.shared.state = prev
		case p.shared.goal != nil:
			p.shared.state = StateCycling
		default:
			p.shared.state = StateIdle
		}
	}
	p.mu.Unlock()
	if err != nil {
		return err
	}
	p.cacheGen = in.mapGen
	diag.BaselineRebuilt = true
	p.logger.Debugw("distance field baseline computed", "max_index", p.cache.maxIndex, "duration", diag.InitDuration)
	return nil
}

// overlay restores the baseline and seeds the in-grid laser obstacles on top of
// it. It returns the resulting distance field and the seeded cells.
func (p *Planner) overlay(ctx context.Context, in cycleInput, diag *Diagnostics) (*mat.Dense, []grid.Cell, error) {
	_, span := trace.StartSpan(ctx, "planner::overlay")
	defer span.End()

	if err := p.cache.restore(); err != nil {
		return nil, nil, err
	}
	dist := p.cache.working.Distances()
	if in.points == nil || !in.hasRobot {
		diag.Warnings = append(diag.Warnings, warnNoLaser)
		p.logger.Warn(warnNoLaser)
		return dist, nil, nil
	}
	diag.SensorAvailable = true

	frames := in.mapState.Frames()
	p.obstacles.SetResolution(in.mapState.Resolution())
	p.obstacles.SetRobotPose(in.robot.Image)
	p.obstacles.SetPoints(in.points)
	p.obstacles.Compute()
	var cells []grid.Cell
	for _, c := range p.obstacles.OccupiedCells() {
		if frames.Inside(c) {
			cells = append(cells, c)
		}
	}
	diag.DynamicCells = len(cells)
	if len(cells) == 0 {
		return dist, nil, nil
	}
	p.cache.engine.SeedObstacles(cells, p.cache.maxIndex)
	if d := p.cache.engine.Compute(); d != nil {
		dist = d
	}
	return dist, cells, nil
}

func (p *Planner) searchPath(ctx context.Context, cost *mat.Dense, in cycleInput) ([]grid.Cell, bool, error) {
	_, span := trace.StartSpan(ctx, "planner::searchPath")
	defer span.End()

	p.search.SetMaxCost(p.costs.searchMaxCost())
	p.search.SetCostField(cost)
	p.search.SetGoals([]grid.Cell{in.goal.pose.Pixel})
	pm, err := p.search.Compute()
	if err != nil {
		return nil, false, errors.Wrap(err, "path search failed")
	}
	path, truncated := extractPath(pm, in.robot.Pixel)
	return path, truncated, nil
}

// publish stores the cycle's fields for display.
func (p *Planner) publish(in cycleInput, dist, cost *mat.Dense, path, laser []grid.Cell) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.shared.mapGen != in.mapGen {
		return
	}
	p.shared.display.Grid = in.mapState.Grid()
	p.shared.display.Distance = dist
	p.shared.display.Cost = cost
	p.shared.display.Path = path
	p.shared.display.Laser = laser
}
