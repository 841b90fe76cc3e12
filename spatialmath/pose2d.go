// Package spatialmath defines planar poses and the rigid transforms between frames.
package spatialmath

import (
	"fmt"
	"math"

	"github.com/golang/geo/r2"

	"go.viam.com/planner2d/utils"
)

// Pose2D is a planar pose: a position and a heading in radians.
type Pose2D struct {
	X     float64
	Y     float64
	Theta float64
}

// NewPose2D returns a pose with its heading wrapped to [-pi, pi).
func NewPose2D(x, y, theta float64) Pose2D {
	return Pose2D{X: x, Y: y, Theta: utils.WrapAngle(theta)}
}

// Point returns the position of the pose.
func (p Pose2D) Point() r2.Point {
	return r2.Point{X: p.X, Y: p.Y}
}

// String returns a human readable form of the pose.
func (p Pose2D) String() string {
	return fmt.Sprintf("{X:%.3f Y:%.3f Theta:%.3f}", p.X, p.Y, p.Theta)
}

// PoseAlmostEqual compares two poses within epsilon, taking heading wrap into account.
func PoseAlmostEqual(a, b Pose2D, epsilon float64) bool {
	return math.Abs(a.X-b.X) <= epsilon &&
		math.Abs(a.Y-b.Y) <= epsilon &&
		math.Abs(utils.AngleDiff(a.Theta, b.Theta)) <= epsilon
}

// Transform is a 2D rigid transform: a rotation followed by a translation. The
// sine and cosine of the rotation are cached.
type Transform struct {
	theta       float64
	cos, sin    float64
	translation r2.Point
}

// NewTransform builds the transform that maps points expressed in the frame
// located at pose into the frame the pose is expressed in.
func NewTransform(pose Pose2D) Transform {
	theta := utils.WrapAngle(pose.Theta)
	return Transform{
		theta:       theta,
		cos:         math.Cos(theta),
		sin:         math.Sin(theta),
		translation: pose.Point(),
	}
}

// IdentityTransform returns the transform that changes nothing.
func IdentityTransform() Transform {
	return NewTransform(Pose2D{})
}

// Pose returns the pose this transform was built from.
func (t Transform) Pose() Pose2D {
	return Pose2D{X: t.translation.X, Y: t.translation.Y, Theta: t.theta}
}

// Rotation returns the rotation angle in radians.
func (t Transform) Rotation() float64 {
	return t.theta
}

// Translation returns the translation component.
func (t Transform) Translation() r2.Point {
	return t.translation
}

func (t Transform) rotate(p r2.Point) r2.Point {
	return r2.Point{X: t.cos*p.X - t.sin*p.Y, Y: t.sin*p.X + t.cos*p.Y}
}

// Apply maps a point through the transform.
func (t Transform) Apply(p r2.Point) r2.Point {
	return t.rotate(p).Add(t.translation)
}

// Compose returns t*o, which applies o first and then t.
func (t Transform) Compose(o Transform) Transform {
	p := t.Apply(o.translation)
	return NewTransform(Pose2D{X: p.X, Y: p.Y, Theta: t.theta + o.theta})
}

// Inverse returns the transform undoing t.
func (t Transform) Inverse() Transform {
	inv := Transform{theta: utils.WrapAngle(-t.theta), cos: t.cos, sin: -t.sin}
	inv.translation = inv.rotate(t.translation).Mul(-1)
	return inv
}

// ApplyPose maps a pose through the transform.
func (t Transform) ApplyPose(p Pose2D) Pose2D {
	return t.Compose(NewTransform(p)).Pose()
}
