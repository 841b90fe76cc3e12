// Package fake implements a simulated unicycle base.
package fake

import (
	"context"
	"math"
	"sync"
	"time"

	"github.com/golang/geo/r3"

	"go.viam.com/planner2d/logging"
	"go.viam.com/planner2d/spatialmath"
	"go.viam.com/planner2d/utils"
)

// Base integrates the last commanded velocity into a world-frame pose.
type Base struct {
	mu         sync.Mutex
	pose       spatialmath.Pose2D
	linear     float64 // m/s
	angular    float64 // rad/s
	logger     logging.Logger
	CloseCount int
}

// NewBase returns a stopped base at the given pose.
func NewBase(start spatialmath.Pose2D, logger logging.Logger) *Base {
	return &Base{pose: spatialmath.NewPose2D(start.X, start.Y, start.Theta), logger: logger}
}

// SetVelocity sets the velocity held until the next command.
func (b *Base) SetVelocity(ctx context.Context, linear, angular r3.Vector, extra map[string]interface{}) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.linear = linear.Y / 1000
	b.angular = utils.DegToRad(angular.Z)
	return nil
}

// Stop zeroes the velocity.
func (b *Base) Stop(ctx context.Context, extra map[string]interface{}) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.linear != 0 || b.angular != 0 {
		b.logger.Debug("stopping base")
	}
	b.linear, b.angular = 0, 0
	return nil
}

// IsMoving reports whether a non-zero velocity is commanded.
func (b *Base) IsMoving(ctx context.Context) (bool, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.linear != 0 || b.angular != 0, nil
}

// Close stops the base.
func (b *Base) Close(ctx context.Context) error {
	b.mu.Lock()
	b.CloseCount++
	b.mu.Unlock()
	return b.Stop(ctx, nil)
}

// Advance moves the base along its current velocity for dt.
func (b *Base) Advance(dt time.Duration) spatialmath.Pose2D {
	b.mu.Lock()
	defer b.mu.Unlock()
	s := dt.Seconds()
	if b.angular == 0 {
		b.pose.X += b.linear * s * math.Cos(b.pose.Theta)
		b.pose.Y += b.linear * s * math.Sin(b.pose.Theta)
		return b.pose
	}
	// exact arc integration for a constant twist
	r := b.linear / b.angular
	theta := b.pose.Theta + b.angular*s
	b.pose.X += r * (math.Sin(theta) - math.Sin(b.pose.Theta))
	b.pose.Y -= r * (math.Cos(theta) - math.Cos(b.pose.Theta))
	b.pose.Theta = utils.WrapAngle(theta)
	return b.pose
}

// Pose returns the current world-frame pose.
func (b *Base) Pose() spatialmath.Pose2D {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.pose
}
