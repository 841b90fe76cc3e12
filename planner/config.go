package planner

import (
	"math"

	"github.com/pkg/errors"
	"go.uber.org/multierr"
	goutils "go.viam.com/utils"
)

// Config holds the cost field and lookahead parameters of a planner.
type Config struct {
	MaxCost           float64 `json:"max_cost"`
	MinCost           float64 `json:"min_cost"`
	RobotRadius       float64 `json:"robot_radius"`
	SafetyRegion      float64 `json:"safety_region"`
	LookaheadDistance float64 `json:"lookahead_distance"`
}

// DefaultConfig returns the parameters used for any field left unset.
func DefaultConfig() Config {
	return Config{
		MaxCost:           100,
		MinCost:           20,
		RobotRadius:       0.3,
		SafetyRegion:      1.0,
		LookaheadDistance: 1.0,
	}
}

// WithDefaults returns cfg with every zero field replaced by its default.
func (cfg Config) WithDefaults() Config {
	def := DefaultConfig()
	if cfg.MaxCost == 0 {
		cfg.MaxCost = def.MaxCost
	}
	if cfg.MinCost == 0 {
		cfg.MinCost = def.MinCost
	}
	if cfg.RobotRadius == 0 {
		cfg.RobotRadius = def.RobotRadius
	}
	if cfg.SafetyRegion == 0 {
		cfg.SafetyRegion = def.SafetyRegion
	}
	if cfg.LookaheadDistance == 0 {
		cfg.LookaheadDistance = def.LookaheadDistance
	}
	return cfg
}

// Validate ensures all parts of the config are valid.
func (cfg Config) Validate(path string) error {
	var err error
	if cfg.MaxCost == 0 {
		err = multierr.Append(err, goutils.NewConfigValidationFieldRequiredError(path, "max_cost"))
	}
	if cfg.MinCost <= 0 {
		err = multierr.Append(err, errors.Errorf("%s: min_cost must be positive, got %v", path, cfg.MinCost))
	}
	if cfg.MaxCost != 0 && cfg.MaxCost <= cfg.MinCost {
		err = multierr.Append(err, errors.Errorf("%s: max_cost %v must exceed min_cost %v", path, cfg.MaxCost, cfg.MinCost))
	}
	if cfg.RobotRadius < 0 || math.IsNaN(cfg.RobotRadius) {
		err = multierr.Append(err, errors.Errorf("%s: robot_radius must not be negative, got %v", path, cfg.RobotRadius))
	}
	if !(cfg.SafetyRegion > cfg.RobotRadius) {
		err = multierr.Append(err, errors.Errorf("%s: safety_region %v must exceed robot_radius %v",
			path, cfg.SafetyRegion, cfg.RobotRadius))
	}
	if !(cfg.LookaheadDistance > 0) {
		err = multierr.Append(err, errors.Errorf("%s: lookahead_distance must be positive, got %v", path, cfg.LookaheadDistance))
	}
	return err
}
