// Package planner is the reactive core of a 2D grid navigation planner. Each
// cycle it overlays the latest laser obstacles on a cached distance field of the
// static map, searches a path to the goal through the resulting cost field and
// asks a motion controller for a velocity toward a point ahead on that path.
//
// Setters may be called from any goroutine while a driver calls Step
// periodically. Step never holds the state lock while running the engines.
package planner

import (
	"context"
	"sync"

	"github.com/benbjohnson/clock"
	"github.com/golang/geo/r2"
	"github.com/google/uuid"
	"github.com/pkg/errors"

	"go.viam.com/planner2d/dmap"
	"go.viam.com/planner2d/dynmap"
	"go.viam.com/planner2d/grid"
	"go.viam.com/planner2d/logging"
	"go.viam.com/planner2d/motion"
	"go.viam.com/planner2d/occupancy"
	"go.viam.com/planner2d/pathsearch"
	"go.viam.com/planner2d/referenceframe"
	"go.viam.com/planner2d/spatialmath"
)

// ErrNoMap is returned by operations that need a loaded map.
var ErrNoMap = errors.New("no map loaded")

// State is the phase of the replanning engine.
type State int

// The replanning engine states.
const (
	StateIdle State = iota
	StateInitializing
	StateCycling
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateInitializing:
		return "initializing"
	case StateCycling:
		return "cycling"
	default:
		return "unknown"
	}
}

// Dependencies are the collaborators of a planner. Nil engines are replaced by
// the reference implementations of this module; Stopper may stay nil.
type Dependencies struct {
	Distance  DistanceTransformer
	Search    PathSearcher
	Obstacles ObstacleRasterizer
	Motion    MotionController
	Stopper   Stopper
	Clock     clock.Clock
}

type goalState struct {
	id   string
	pose referenceframe.TrackedPose
}

// sharedState is everything setters and the planning cycle exchange. Every
// field is guarded by Planner.mu.
type sharedState struct {
	mapState *occupancy.MapState
	// mapGen changes every time the baseline must be recomputed.
	mapGen     uint64
	thresholds [2]float64

	goal     *goalState
	robot    referenceframe.TrackedPose
	hasRobot bool
	// points is nil until the first laser snapshot arrives.
	points []r2.Point

	state         State
	displayActive bool
	display       Snapshot
}

// cycleInput is the copy of shared state one cycle works from.
type cycleInput struct {
	mapState      *occupancy.MapState
	mapGen        uint64
	goal          *goalState
	robot         referenceframe.TrackedPose
	hasRobot      bool
	points        []r2.Point
	displayActive bool
}

// A Planner runs the replanning cycle.
type Planner struct {
	cfg    Config
	costs  costMapping
	logger logging.Logger
	clk    clock.Clock

	search    PathSearcher
	obstacles ObstacleRasterizer
	motion    MotionController
	stopper   Stopper

	mu     sync.Mutex
	shared sharedState

	// cycleMu serializes Step; the fields below it belong to the cycle.
	cycleMu  sync.Mutex
	cache    *fieldCache
	cacheGen uint64
}

// New returns a planner with no map loaded.
func New(cfg Config, deps Dependencies, logger logging.Logger) (*Planner, error) {
	cfg = cfg.WithDefaults()
	if err := cfg.Validate("planner"); err != nil {
		return nil, err
	}
	if deps.Distance == nil {
		deps.Distance = dmap.NewCalculator()
	}
	if deps.Search == nil {
		deps.Search = pathsearch.NewCalculator()
	}
	if deps.Obstacles == nil {
		deps.Obstacles = dynmap.New()
	}
	if deps.Clock == nil {
		deps.Clock = clock.New()
	}
	if deps.Motion == nil {
		ctrl, err := motion.NewControllerWithClock(motion.DefaultConfig(), deps.Clock)
		if err != nil {
			return nil, err
		}
		deps.Motion = ctrl
	}
	if logger == nil {
		logger = logging.NewLogger("planner")
	}
	return &Planner{
		cfg:       cfg,
		costs:     newCostMapping(cfg),
		logger:    logger,
		clk:       deps.Clock,
		search:    deps.Search,
		obstacles: deps.Obstacles,
		motion:    deps.Motion,
		stopper:   deps.Stopper,
		cache:     newFieldCache(deps.Distance),
	}, nil
}

// Config returns the planner parameters in use.
func (p *Planner) Config() Config {
	return p.cfg
}

// LoadMap replaces the static map. Poses already set are re-expressed in the
// new map's frames and the baseline is recomputed on the next cycle. On error
// the previous map is kept.
func (p *Planner) LoadMap(spec occupancy.MapSpec) error {
	ms, warnings, err := occupancy.LoadMap(spec)
	if err != nil {
		return err
	}
	for _, w := range warnings {
		p.logger.Warnw("map threshold out of range", "detail", w)
	}
	dims := ms.Dims()

	p.mu.Lock()
	p.shared.mapState = ms
	p.shared.mapGen++
	occ, free := ms.Thresholds()
	p.shared.thresholds = [2]float64{occ, free}
	frames := ms.Frames()
	if p.shared.goal != nil {
		p.shared.goal.pose = frames.Track(p.shared.goal.pose.World)
	}
	if p.shared.hasRobot {
		p.shared.robot = frames.Track(p.shared.robot.World)
	}
	p.shared.display = Snapshot{Mode: p.shared.display.Mode, Grid: ms.Grid()}
	p.mu.Unlock()

	p.logger.Infow("map loaded",
		"rows", dims.Rows,
		"cols", dims.Cols,
		"resolution", ms.Resolution(),
		"origin", ms.Origin().String(),
		"free_cells", ms.Grid().Count(occupancy.Free),
		"occupied_cells", ms.Grid().Count(occupancy.Occupied),
	)
	return nil
}

// LoadMapFrom loads a map through a loader.
func (p *Planner) LoadMapFrom(loader MapLoader, path string) error {
	spec, err := loader.Load(path)
	if err != nil {
		return errors.Wrapf(err, "cannot load map %q", path)
	}
	return p.LoadMap(spec)
}

// SetThresholds sets the occupied and free thresholds applied by the next Reset.
func (p *Planner) SetThresholds(occupied, free float64) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.shared.thresholds = [2]float64{occupied, free}
}

// Reset cancels the active goal, reclassifies the static map with the current
// thresholds and schedules the baseline to be recomputed.
func (p *Planner) Reset(ctx context.Context) error {
	p.mu.Lock()
	ms := p.shared.mapState
	if ms == nil {
		p.mu.Unlock()
		return ErrNoMap
	}
	reclassified, warnings := ms.Reclassify(p.shared.thresholds[0], p.shared.thresholds[1])
	p.shared.mapState = reclassified
	p.shared.mapGen++
	p.shared.display.Grid = reclassified.Grid()
	p.mu.Unlock()

	for _, w := range warnings {
		p.logger.Warnw("map threshold out of range", "detail", w)
	}
	occ, free := reclassified.Thresholds()
	p.logger.Infow("planner reset", "occupied_thresh", occ, "free_thresh", free)
	return p.CancelGoal(ctx)
}

// SetGoal sets a new goal in the world frame, replacing any active goal, and
// returns its id.
func (p *Planner) SetGoal(pose spatialmath.Pose2D) (string, error) {
	p.mu.Lock()
	ms := p.shared.mapState
	if ms == nil {
		p.mu.Unlock()
		return "", ErrNoMap
	}
	g := &goalState{id: uuid.NewString(), pose: ms.Frames().Track(pose)}
	p.shared.goal = g
	if p.shared.state != StateInitializing {
		p.shared.state = StateCycling
	}
	p.shared.display.Goal, p.shared.display.HasGoal = g.pose.Pixel, true
	p.mu.Unlock()

	p.logger.Infow("goal set", "id", g.id, "pose", pose.String(), "cell", g.pose.Pixel.String())
	return g.id, nil
}

// CancelGoal clears the active goal and stops the motion layer. It is a no-op
// apart from the stop when no goal is active.
func (p *Planner) CancelGoal(ctx context.Context) error {
	p.mu.Lock()
	g := p.shared.goal
	p.shared.goal = nil
	if p.shared.state != StateInitializing {
		p.shared.state = StateIdle
	}
	p.shared.display.HasGoal = false
	p.shared.display.Path = nil
	p.mu.Unlock()

	if g != nil {
		p.logger.Infow("goal cancelled", "id", g.id)
	}
	return p.stop(ctx)
}

// finishGoal clears the goal with the given id if it is still the active one
// and reports whether it did.
func (p *Planner) finishGoal(ctx context.Context, id string) (bool, error) {
	p.mu.Lock()
	if p.shared.goal == nil || p.shared.goal.id != id {
		p.mu.Unlock()
		return false, nil
	}
	p.shared.goal = nil
	p.shared.state = StateIdle
	p.shared.display.HasGoal = false
	p.shared.display.Path = nil
	p.mu.Unlock()

	p.logger.Infow("goal reached", "id", id)
	return true, p.stop(ctx)
}

func (p *Planner) stop(ctx context.Context) error {
	p.motion.ResetVelocities()
	if p.stopper == nil {
		return nil
	}
	return errors.Wrap(p.stopper.Stop(ctx), "cannot stop motion")
}

// SetRobotPose sets the robot pose in the world frame.
func (p *Planner) SetRobotPose(pose spatialmath.Pose2D) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	ms := p.shared.mapState
	if ms == nil {
		return ErrNoMap
	}
	p.shared.robot = ms.Frames().Track(pose)
	p.shared.hasRobot = true
	p.shared.display.Robot, p.shared.display.HasRobot = p.shared.robot.Pixel, true
	return nil
}

// SetSensorPoints replaces the laser snapshot with points in the robot frame.
// The slice is retained and must not be modified afterwards.
func (p *Planner) SetSensorPoints(points []r2.Point) {
	if points == nil {
		points = []r2.Point{}
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.shared.points = points
}

// SetDisplayActive keeps the fields refreshed for display while no goal is
// active.
func (p *Planner) SetDisplayActive(active bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.shared.displayActive = active
}

// SetDisplayMode selects the field reported in snapshots.
func (p *Planner) SetDisplayMode(mode DisplayMode) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.shared.display.Mode = mode
}

// State returns the current engine state.
func (p *Planner) State() State {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.shared.state
}

// Goal returns the active goal and its id.
func (p *Planner) Goal() (referenceframe.TrackedPose, string, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.shared.goal == nil {
		return referenceframe.TrackedPose{}, "", false
	}
	return p.shared.goal.pose, p.shared.goal.id, true
}

// RobotPose returns the last robot pose set.
func (p *Planner) RobotPose() (referenceframe.TrackedPose, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.shared.robot, p.shared.hasRobot
}

// MapState returns the static map in use, or nil.
func (p *Planner) MapState() *occupancy.MapState {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.shared.mapState
}

// Snapshot returns the fields published by the last cycle.
func (p *Planner) Snapshot() Snapshot {
	p.mu.Lock()
	defer p.mu.Unlock()
	s := p.shared.display
	s.Path = append([]grid.Cell(nil), s.Path...)
	s.Laser = append([]grid.Cell(nil), s.Laser...)
	return s
}

// Close cancels any goal and stops the motion layer.
func (p *Planner) Close(ctx context.Context) error {
	return p.CancelGoal(ctx)
}

func (p *Planner) load() cycleInput {
	p.mu.Lock()
	defer p.mu.Unlock()
	in := cycleInput{
		mapState:      p.shared.mapState,
		mapGen:        p.shared.mapGen,
		robot:         p.shared.robot,
		hasRobot:      p.shared.hasRobot,
		points:        p.shared.points,
		displayActive: p.shared.displayActive,
	}
	if p.shared.goal != nil {
		g := *p.shared.goal
		in.goal = &g
	}
	return in
}

func (p *Planner) setState(s State) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.shared.state = s
}
