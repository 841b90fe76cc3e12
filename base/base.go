// Package base defines the mobile base the planner's velocity commands drive.
package base

import (
	"context"

	"github.com/golang/geo/r3"

	"go.viam.com/planner2d/motion"
	"go.viam.com/planner2d/utils"
)

// A Base is a differential-drive base. Linear velocity is in mm/s with +Y
// forward, angular velocity in degrees/s about +Z.
type Base interface {
	SetVelocity(ctx context.Context, linear, angular r3.Vector, extra map[string]interface{}) error
	Stop(ctx context.Context, extra map[string]interface{}) error
	IsMoving(ctx context.Context) (bool, error)
	Close(ctx context.Context) error
}

// VelocityVectors converts a planner velocity into base velocity vectors.
func VelocityVectors(v motion.Velocity) (linear, angular r3.Vector) {
	return r3.Vector{Y: v.Linear * 1000}, r3.Vector{Z: utils.RadToDeg(v.Angular)}
}

// Stopper adapts a Base to the planner's stop hook.
type Stopper struct {
	Base Base
}

// Stop stops the base.
func (s Stopper) Stop(ctx context.Context) error {
	return s.Base.Stop(ctx, nil)
}
