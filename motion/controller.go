// Package motion turns a target point into velocity commands for a
// differential-drive base.
package motion

import (
	"math"
	"sync"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/golang/geo/r2"
	"github.com/pkg/errors"

	"go.viam.com/planner2d/spatialmath"
	"go.viam.com/planner2d/utils"
)

// Velocity is a unicycle command: linear speed along the heading in m/s,
// angular speed counterclockwise in rad/s.
type Velocity struct {
	Linear  float64
	Angular float64
}

// IsZero reports whether the command is a stop.
func (v Velocity) IsZero() bool {
	return v.Linear == 0 && v.Angular == 0
}

// Config configures a Controller.
type Config struct {
	MaxLinear  float64
	MaxAngular float64
	Kp         float64
	Ki         float64
	Kd         float64
	// GoalTolerance is the distance in meters under which a target counts as reached.
	GoalTolerance float64
	// SlowdownDistance is the distance from the target at which linear speed starts to ramp down.
	SlowdownDistance float64
	// Period is the time step assumed for the first command after a reset.
	Period time.Duration
}

// DefaultConfig returns the controller settings used when none are configured.
func DefaultConfig() Config {
	return Config{
		MaxLinear:        0.5,
		MaxAngular:       1.0,
		Kp:               1.5,
		Ki:               0,
		Kd:               0.1,
		GoalTolerance:    0.1,
		SlowdownDistance: 0.5,
		Period:           100 * time.Millisecond,
	}
}

// Controller steers toward a target with a PID on heading error. Linear speed
// drops with the heading error and near the target; it is zero while the target
// is behind the robot.
type Controller struct {
	mu      sync.Mutex
	cfg     Config
	heading *PID
	clk     clock.Clock
	last    time.Time
}

// NewController returns a controller using the wall clock.
func NewController(cfg Config) (*Controller, error) {
	return NewControllerWithClock(cfg, clock.New())
}

// NewControllerWithClock returns a controller timing its PID steps with clk.
func NewControllerWithClock(cfg Config, clk clock.Clock) (*Controller, error) {
	if cfg.MaxLinear <= 0 || cfg.MaxAngular <= 0 {
		return nil, errors.Errorf("max velocities must be positive, got linear %v angular %v", cfg.MaxLinear, cfg.MaxAngular)
	}
	if cfg.GoalTolerance < 0 {
		return nil, errors.Errorf("goal tolerance must not be negative, got %v", cfg.GoalTolerance)
	}
	if cfg.Period <= 0 {
		cfg.Period = DefaultConfig().Period
	}
	pid, err := NewPID(PIDConfig{Kp: cfg.Kp, Ki: cfg.Ki, Kd: cfg.Kd, Limit: cfg.MaxAngular})
	if err != nil {
		return nil, errors.Wrap(err, "heading controller")
	}
	return &Controller{cfg: cfg, heading: pid, clk: clk}, nil
}

// ComputeVelocities returns the command driving pose toward target and whether
// the target is within the goal tolerance. pose and target share a frame.
func (c *Controller) ComputeVelocities(pose spatialmath.Pose2D, target r2.Point) (Velocity, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	delta := target.Sub(pose.Point())
	dist := delta.Norm()
	if dist <= c.cfg.GoalTolerance {
		c.resetLocked()
		return Velocity{}, true
	}

	now := c.clk.Now()
	dt := c.cfg.Period
	if !c.last.IsZero() {
		if elapsed := now.Sub(c.last); elapsed > 0 {
			dt = elapsed
		}
	}
	c.last = now

	headingErr := utils.AngleDiff(pose.Theta, math.Atan2(delta.Y, delta.X))
	// a saturated integrator keeps the previous output
	angular, _ := c.heading.Next(headingErr, dt)

	linear := c.cfg.MaxLinear * math.Max(0, math.Cos(headingErr))
	if c.cfg.SlowdownDistance > 0 && dist < c.cfg.SlowdownDistance {
		linear *= dist / c.cfg.SlowdownDistance
	}
	return Velocity{Linear: linear, Angular: angular}, false
}

// ResetVelocities clears the heading PID state so that the next command starts
// fresh.
func (c *Controller) ResetVelocities() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.resetLocked()
}

func (c *Controller) resetLocked() {
	c.heading.Reset()
	c.last = time.Time{}
}
