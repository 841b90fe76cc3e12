// Package dynmap rasterizes laser points sensed around the robot into grid cells.
package dynmap

import (
	"math"

	"github.com/golang/geo/r2"

	"go.viam.com/planner2d/grid"
	"go.viam.com/planner2d/spatialmath"
)

// Map turns robot-frame points into the image-frame cells they fall in.
type Map struct {
	resolution float64
	robot      spatialmath.Transform
	points     []r2.Point
	cells      []grid.Cell
}

// New returns a rasterizer with unit resolution and the robot at the image origin.
func New() *Map {
	return &Map{resolution: 1, robot: spatialmath.IdentityTransform()}
}

// SetResolution sets the cell size in meters. Non-positive values are ignored.
func (m *Map) SetResolution(resolution float64) {
	if resolution > 0 {
		m.resolution = resolution
	}
}

// SetRobotPose sets the robot pose in the image frame.
func (m *Map) SetRobotPose(pose spatialmath.Pose2D) {
	m.robot = spatialmath.NewTransform(pose)
}

// SetPoints replaces the robot-frame points.
func (m *Map) SetPoints(points []r2.Point) {
	m.points = append(m.points[:0], points...)
}

// Compute rasterizes the current points. Cells are returned in the order their
// first point was seen, without duplicates. They may lie outside the grid.
func (m *Map) Compute() {
	m.cells = m.cells[:0]
	seen := make(map[grid.Cell]struct{}, len(m.points))
	for _, p := range m.points {
		if math.IsNaN(p.X) || math.IsNaN(p.Y) || math.IsInf(p.X, 0) || math.IsInf(p.Y, 0) {
			continue
		}
		ip := m.robot.Apply(p)
		c := grid.Cell{
			R: int(math.Floor(ip.X / m.resolution)),
			C: int(math.Floor(ip.Y / m.resolution)),
		}
		if _, ok := seen[c]; ok {
			continue
		}
		seen[c] = struct{}{}
		m.cells = append(m.cells, c)
	}
}

// OccupiedCells returns the cells of the last Compute. The slice is reused by
// the next Compute.
func (m *Map) OccupiedCells() []grid.Cell {
	return m.cells
}
