// Package config defines the structures to configure the planner driver.
package config

import (
	"fmt"
	"math"
	"time"

	"github.com/golang/geo/r2"
	"github.com/pkg/errors"
	"go.uber.org/multierr"
	"go.viam.com/utils"

	"go.viam.com/planner2d/motion"
	"go.viam.com/planner2d/occupancy"
	"go.viam.com/planner2d/planner"
	"go.viam.com/planner2d/spatialmath"
)

// Default map thresholds, in probability of occupancy.
const (
	DefaultOccupiedThreshold = occupancy.DefaultOccupiedThreshold
	DefaultFreeThreshold     = occupancy.DefaultFreeThreshold
)

// A Config describes the static map, the planner and its simulated driver.
type Config struct {
	ConfigFilePath string `json:"-"`

	Map     MapConfig      `json:"map"`
	Planner planner.Config `json:"planner"`
	Motion  MotionConfig   `json:"motion"`
	Driver  DriverConfig   `json:"driver"`
	Debug   bool           `json:"debug,omitempty"`
}

// Ensure fills in defaults and ensures all parts of the config are valid.
func (c *Config) Ensure() error {
	c.Map.applyDefaults()
	c.Planner = c.Planner.WithDefaults()
	c.Motion.applyDefaults()
	c.Driver.applyDefaults()
	return multierr.Combine(
		c.Map.Validate("map"),
		c.Planner.Validate("planner"),
		c.Motion.Validate("motion"),
		c.Driver.Validate("driver"),
	)
}

// PoseConfig is a world pose written as [x, y, theta].
type PoseConfig [3]float64

// Pose returns the pose.
func (p PoseConfig) Pose() spatialmath.Pose2D {
	return spatialmath.NewPose2D(p[0], p[1], p[2])
}

// MapConfig locates the static map image and describes how to read it.
type MapConfig struct {
	ImagePath      string     `json:"image_path"`
	Resolution     float64    `json:"resolution"`
	Origin         PoseConfig `json:"origin"`
	OccupiedThresh float64    `json:"occupied_thresh"`
	FreeThresh     float64    `json:"free_thresh"`
}

func (mc *MapConfig) applyDefaults() {
	if mc.OccupiedThresh == 0 && mc.FreeThresh == 0 {
		mc.OccupiedThresh = DefaultOccupiedThreshold
		mc.FreeThresh = DefaultFreeThreshold
	}
}

// Validate ensures all parts of the config are valid.
func (mc *MapConfig) Validate(path string) error {
	var err error
	if mc.ImagePath == "" {
		err = multierr.Append(err, utils.NewConfigValidationFieldRequiredError(path, "image_path"))
	}
	if mc.Resolution == 0 {
		err = multierr.Append(err, utils.NewConfigValidationFieldRequiredError(path, "resolution"))
	} else if !(mc.Resolution > 0) || math.IsInf(mc.Resolution, 0) {
		err = multierr.Append(err, errors.Errorf("%s: resolution must be positive, got %v", path, mc.Resolution))
	}
	if mc.FreeThresh > mc.OccupiedThresh {
		err = multierr.Append(err, errors.Errorf("%s: free_thresh %v must not exceed occupied_thresh %v",
			path, mc.FreeThresh, mc.OccupiedThresh))
	}
	return err
}

// Loader returns the image loader for this map.
func (mc *MapConfig) Loader() occupancy.ImageLoader {
	return occupancy.ImageLoader{
		Resolution:        mc.Resolution,
		Origin:            mc.Origin.Pose(),
		OccupiedThreshold: mc.OccupiedThresh,
		FreeThreshold:     mc.FreeThresh,
	}
}

// MotionConfig configures the reference motion controller.
type MotionConfig struct {
	MaxLinear     float64 `json:"max_linear"`
	MaxAngular    float64 `json:"max_angular"`
	Kp            float64 `json:"kp"`
	Ki            float64 `json:"ki"`
	Kd            float64 `json:"kd"`
	GoalTolerance float64 `json:"goal_tolerance"`
}

func (mc *MotionConfig) applyDefaults() {
	def := motion.DefaultConfig()
	if mc.MaxLinear == 0 {
		mc.MaxLinear = def.MaxLinear
	}
	if mc.MaxAngular == 0 {
		mc.MaxAngular = def.MaxAngular
	}
	if mc.Kp == 0 && mc.Ki == 0 && mc.Kd == 0 {
		mc.Kp, mc.Ki, mc.Kd = def.Kp, def.Ki, def.Kd
	}
	if mc.GoalTolerance == 0 {
		mc.GoalTolerance = def.GoalTolerance
	}
}

// Validate ensures all parts of the config are valid.
func (mc *MotionConfig) Validate(path string) error {
	var err error
	if mc.MaxLinear < 0 {
		err = multierr.Append(err, errors.Errorf("%s: max_linear must be positive, got %v", path, mc.MaxLinear))
	}
	if mc.MaxAngular < 0 {
		err = multierr.Append(err, errors.Errorf("%s: max_angular must be positive, got %v", path, mc.MaxAngular))
	}
	if mc.GoalTolerance < 0 {
		err = multierr.Append(err, errors.Errorf("%s: goal_tolerance must not be negative, got %v", path, mc.GoalTolerance))
	}
	return err
}

// ControllerConfig returns the motion controller settings.
func (mc *MotionConfig) ControllerConfig() motion.Config {
	cfg := motion.DefaultConfig()
	cfg.MaxLinear = mc.MaxLinear
	cfg.MaxAngular = mc.MaxAngular
	cfg.Kp, cfg.Ki, cfg.Kd = mc.Kp, mc.Ki, mc.Kd
	cfg.GoalTolerance = mc.GoalTolerance
	return cfg
}

// DriverConfig configures the simulated run: the start and goal poses, the cycle
// rate and the obstacles only the simulated laser sees.
type DriverConfig struct {
	CycleHz      float64      `json:"cycle_hz"`
	Start        PoseConfig   `json:"start"`
	Goal         PoseConfig   `json:"goal"`
	Obstacles    [][2]float64 `json:"obstacles,omitempty"`
	LidarRays    int          `json:"lidar_rays"`
	LidarRange   float64      `json:"lidar_range"`
	MaxCycles    int          `json:"max_cycles"`
	SnapshotPath string       `json:"snapshot_path,omitempty"`
	DisplayMode  string       `json:"display_mode,omitempty"`
}

func (dc *DriverConfig) applyDefaults() {
	if dc.CycleHz == 0 {
		dc.CycleHz = 10
	}
	if dc.LidarRays == 0 {
		dc.LidarRays = 360
	}
	if dc.LidarRange == 0 {
		dc.LidarRange = 5
	}
	if dc.MaxCycles == 0 {
		dc.MaxCycles = 3000
	}
}

// Validate ensures all parts of the config are valid.
func (dc *DriverConfig) Validate(path string) error {
	var err error
	if !(dc.CycleHz > 0) {
		err = multierr.Append(err, errors.Errorf("%s: cycle_hz must be positive, got %v", path, dc.CycleHz))
	}
	if dc.LidarRays < 0 {
		err = multierr.Append(err, errors.Errorf("%s: lidar_rays must be positive, got %d", path, dc.LidarRays))
	}
	if dc.LidarRange < 0 {
		err = multierr.Append(err, errors.Errorf("%s: lidar_range must be positive, got %v", path, dc.LidarRange))
	}
	if _, perr := planner.ParseDisplayMode(dc.DisplayMode); perr != nil {
		err = multierr.Append(err, errors.Wrap(perr, path))
	}
	for i, o := range dc.Obstacles {
		if math.IsNaN(o[0]) || math.IsNaN(o[1]) {
			err = multierr.Append(err, fmt.Errorf("%s.obstacles.%d: coordinates must be numbers", path, i))
		}
	}
	return err
}

// Period returns the time between cycles.
func (dc *DriverConfig) Period() time.Duration {
	return time.Duration(float64(time.Second) / dc.CycleHz)
}

// ObstaclePoints returns the extra obstacles as world points.
func (dc *DriverConfig) ObstaclePoints() []r2.Point {
	points := make([]r2.Point, 0, len(dc.Obstacles))
	for _, o := range dc.Obstacles {
		points = append(points, r2.Point{X: o[0], Y: o[1]})
	}
	return points
}
