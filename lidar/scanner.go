package lidar

import (
	"context"
	"math"
	"sync"

	"github.com/golang/geo/r2"
	"github.com/pkg/errors"

	"go.viam.com/planner2d/grid"
	"go.viam.com/planner2d/occupancy"
	"go.viam.com/planner2d/spatialmath"
)

// A Scanner produces laser scans.
type Scanner interface {
	Scan(ctx context.Context) (Measurements, error)
}

// A PoseSource reports where the scanner currently is in the world.
type PoseSource interface {
	Pose() spatialmath.Pose2D
}

// SimulatedConfig configures a SimulatedScanner.
type SimulatedConfig struct {
	Rays     int
	MaxRange float64
}

// SimulatedScanner casts rays over a static map plus a set of extra obstacle
// cells that only the scanner sees.
type SimulatedScanner struct {
	cfg   SimulatedConfig
	ms    *occupancy.MapState
	poses PoseSource

	mu    sync.Mutex
	extra map[grid.Cell]struct{}
}

// NewSimulatedScanner returns a scanner over ms located by poses.
func NewSimulatedScanner(cfg SimulatedConfig, ms *occupancy.MapState, poses PoseSource) (*SimulatedScanner, error) {
	if cfg.Rays <= 0 {
		return nil, errors.Errorf("simulated lidar needs a positive number of rays, got %d", cfg.Rays)
	}
	if !(cfg.MaxRange > 0) {
		return nil, errors.Errorf("simulated lidar needs a positive range, got %v", cfg.MaxRange)
	}
	if ms == nil {
		return nil, errors.New("simulated lidar needs a map")
	}
	return &SimulatedScanner{cfg: cfg, ms: ms, poses: poses, extra: map[grid.Cell]struct{}{}}, nil
}

// AddObstacle marks the cell containing a world point as occupied for the
// scanner only.
func (s *SimulatedScanner) AddObstacle(world r2.Point) {
	c := s.ms.Frames().WorldToGrid(world)
	s.mu.Lock()
	defer s.mu.Unlock()
	s.extra[c] = struct{}{}
}

// ClearObstacles removes every extra obstacle.
func (s *SimulatedScanner) ClearObstacles() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.extra = map[grid.Cell]struct{}{}
}

// Scan casts rays from the current pose.
func (s *SimulatedScanner) Scan(ctx context.Context) (Measurements, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return s.ScanFrom(s.poses.Pose()), nil
}

// ScanFrom casts evenly spaced rays from pose. Rays that leave the map or
// exceed the range return nothing.
func (s *SimulatedScanner) ScanFrom(pose spatialmath.Pose2D) Measurements {
	s.mu.Lock()
	defer s.mu.Unlock()
	frames := s.ms.Frames()
	step := frames.Resolution() / 2
	var ms Measurements
	for i := 0; i < s.cfg.Rays; i++ {
		angle := -math.Pi + 2*math.Pi*float64(i)/float64(s.cfg.Rays)
		heading := pose.Theta + angle
		dir := r2.Point{X: math.Cos(heading), Y: math.Sin(heading)}
		for d := step; d <= s.cfg.MaxRange; d += step {
			c := frames.WorldToGrid(pose.Point().Add(dir.Mul(d)))
			if !frames.Inside(c) {
				break
			}
			if s.hit(c) {
				ms = append(ms, NewMeasurement(angle, d))
				break
			}
		}
	}
	return ms
}

func (s *SimulatedScanner) hit(c grid.Cell) bool {
	if _, ok := s.extra[c]; ok {
		return true
	}
	return s.ms.Grid().At(c) == occupancy.Occupied
}
