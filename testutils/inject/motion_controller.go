package inject

import (
	"sync"

	"github.com/golang/geo/r2"

	"go.viam.com/planner2d/motion"
	"go.viam.com/planner2d/spatialmath"
)

// MotionController is an injected motion controller. It records the targets it
// was asked to drive to.
type MotionController struct {
	*motion.Controller
	ComputeVelocitiesFunc func(pose spatialmath.Pose2D, target r2.Point) (motion.Velocity, bool)
	ResetVelocitiesFunc   func()

	mu         sync.Mutex
	targets    []r2.Point
	resetCalls int
}

// NewMotionController wraps a real controller.
func NewMotionController(ctrl *motion.Controller) *MotionController {
	return &MotionController{Controller: ctrl}
}

// ComputeVelocities calls the injected ComputeVelocities or the real version.
func (m *MotionController) ComputeVelocities(pose spatialmath.Pose2D, target r2.Point) (motion.Velocity, bool) {
	m.mu.Lock()
	m.targets = append(m.targets, target)
	m.mu.Unlock()
	if m.ComputeVelocitiesFunc == nil {
		return m.Controller.ComputeVelocities(pose, target)
	}
	return m.ComputeVelocitiesFunc(pose, target)
}

// ResetVelocities calls the injected ResetVelocities or the real version.
func (m *MotionController) ResetVelocities() {
	m.mu.Lock()
	m.resetCalls++
	m.mu.Unlock()
	if m.ResetVelocitiesFunc == nil {
		if m.Controller != nil {
			m.Controller.ResetVelocities()
		}
		return
	}
	m.ResetVelocitiesFunc()
}

// Targets returns every target passed to ComputeVelocities.
func (m *MotionController) Targets() []r2.Point {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]r2.Point(nil), m.targets...)
}

// ResetCalls returns how many times ResetVelocities was called.
func (m *MotionController) ResetCalls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.resetCalls
}
