package inject

import (
	"go.viam.com/planner2d/dynmap"
	"go.viam.com/planner2d/grid"
)

// ObstacleRasterizer is an injected laser rasterizer.
type ObstacleRasterizer struct {
	*dynmap.Map
	OccupiedCellsFunc func() []grid.Cell
}

// NewObstacleRasterizer returns an ObstacleRasterizer backed by dynmap.
func NewObstacleRasterizer() *ObstacleRasterizer {
	return &ObstacleRasterizer{Map: dynmap.New()}
}

// OccupiedCells calls the injected OccupiedCells or the real version.
func (r *ObstacleRasterizer) OccupiedCells() []grid.Cell {
	if r.OccupiedCellsFunc == nil {
		return r.Map.OccupiedCells()
	}
	return r.OccupiedCellsFunc()
}
