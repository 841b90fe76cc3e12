// Package lidar converts laser range measurements into robot-frame points and
// simulates a planar laser scanner.
package lidar

import (
	"math"

	"github.com/golang/geo/r2"

	"go.viam.com/planner2d/utils"
)

// Measurements is a scan, sortable by angle then distance.
type Measurements []*Measurement

func (ms Measurements) Len() int {
	return len(ms)
}

func (ms Measurements) Swap(i, j int) {
	ms[i], ms[j] = ms[j], ms[i]
}

func (ms Measurements) Less(i, j int) bool {
	if ms[i].angle < ms[j].angle {
		return true
	}
	if ms[i].angle == ms[j].angle {
		return ms[i].distance < ms[j].distance
	}
	return false
}

// Points returns the robot-frame points of every measurement.
func (ms Measurements) Points() []r2.Point {
	points := make([]r2.Point, 0, len(ms))
	for _, m := range ms {
		points = append(points, m.Point())
	}
	return points
}

// Measurement is one laser return.
type Measurement struct {
	angle    float64
	angleDeg float64
	distance float64
	x        float64
	y        float64
}

// NewMeasurement returns a measurement of a return at distance meters, angle
// radians counterclockwise from the robot's heading.
func NewMeasurement(angle, distance float64) *Measurement {
	// robot frame: X forward, Y to the left
	return &Measurement{
		angle:    angle,
		angleDeg: utils.RadToDeg(angle),
		distance: distance,
		x:        distance * math.Cos(angle),
		y:        distance * math.Sin(angle),
	}
}

// Angle is in radians.
func (m *Measurement) Angle() float64 {
	return m.angle
}

// AngleDeg is in degrees.
func (m *Measurement) AngleDeg() float64 {
	return m.angleDeg
}

func (m *Measurement) Distance() float64 {
	return m.distance
}

// Coords returns the robot-frame coordinates of the return.
func (m *Measurement) Coords() (float64, float64) {
	return m.x, m.y
}

// Point returns the robot-frame point of the return.
func (m *Measurement) Point() r2.Point {
	return r2.Point{X: m.x, Y: m.y}
}
