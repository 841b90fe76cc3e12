// Package visualize draws planner snapshots.
package visualize

import (
	"image"
	"image/color"

	"github.com/fogleman/gg"
	"github.com/pkg/errors"
	"gonum.org/v1/gonum/mat"

	"go.viam.com/planner2d/grid"
	"go.viam.com/planner2d/occupancy"
	"go.viam.com/planner2d/planner"
	"go.viam.com/planner2d/utils"
)

// Options scales the distance and cost fields to gray levels.
type Options struct {
	SafetyRegion float64
	MinCost      float64
	MaxCost      float64
}

// OptionsFromConfig returns the scaling matching a planner config.
func OptionsFromConfig(cfg planner.Config) Options {
	return Options{SafetyRegion: cfg.SafetyRegion, MinCost: cfg.MinCost, MaxCost: cfg.MaxCost}
}

var (
	pathColor  = color.RGBA{0, 0, 255, 255}
	laserColor = color.RGBA{255, 0, 0, 255}
	robotColor = color.RGBA{0, 200, 0, 255}
	goalColor  = color.RGBA{255, 128, 0, 255}
)

// Render draws the field selected by the snapshot's mode, one pixel per cell,
// with the path, laser cells, robot and goal on top.
func Render(s planner.Snapshot, opts Options) (image.Image, error) {
	if s.Grid == nil {
		return nil, errors.New("snapshot has no map")
	}
	dims := s.Grid.Dims()
	shade, err := shader(s, opts)
	if err != nil {
		return nil, err
	}

	dc := gg.NewContext(dims.Cols, dims.Rows)
	for r := 0; r < dims.Rows; r++ {
		for c := 0; c < dims.Cols; c++ {
			v := uint8(utils.Clamp(shade(grid.Cell{R: r, C: c}), 0, 1) * 255)
			dc.SetColor(color.Gray{Y: v})
			dc.SetPixel(c, r)
		}
	}

	if len(s.Path) > 1 {
		dc.SetColor(pathColor)
		dc.SetLineWidth(1)
		for i := 1; i < len(s.Path); i++ {
			a, b := s.Path[i-1], s.Path[i]
			dc.DrawLine(float64(a.C)+0.5, float64(a.R)+0.5, float64(b.C)+0.5, float64(b.R)+0.5)
		}
		dc.Stroke()
	}
	dc.SetColor(laserColor)
	for _, c := range s.Laser {
		dc.SetPixel(c.C, c.R)
	}
	if s.HasRobot {
		dc.SetColor(robotColor)
		dc.DrawRectangle(float64(s.Robot.C)-1, float64(s.Robot.R)-1, 3, 3)
		dc.Fill()
	}
	if s.HasGoal {
		dc.SetColor(goalColor)
		dc.DrawCircle(float64(s.Goal.C)+0.5, float64(s.Goal.R)+0.5, 2)
		dc.Fill()
	}
	return dc.Image(), nil
}

func shader(s planner.Snapshot, opts Options) (func(grid.Cell) float64, error) {
	switch s.Mode {
	case planner.DisplayMap:
		return func(c grid.Cell) float64 {
			switch s.Grid.At(c) {
			case occupancy.Free:
				return 1
			case occupancy.Occupied:
				return 0
			default:
				return 0.5
			}
		}, nil
	case planner.DisplayDistance:
		if s.Distance == nil {
			return nil, errors.New("snapshot has no distance field")
		}
		if !(opts.SafetyRegion > 0) {
			return nil, errors.New("rendering distances needs a positive safety region")
		}
		return fieldShader(s.Distance, func(v float64) float64 { return v / opts.SafetyRegion }), nil
	case planner.DisplayCost:
		if s.Cost == nil {
			return nil, errors.New("snapshot has no cost field")
		}
		span := opts.MaxCost - opts.MinCost
		if !(span > 0) {
			return nil, errors.New("rendering costs needs max cost above min cost")
		}
		return fieldShader(s.Cost, func(v float64) float64 { return 1 - (v-opts.MinCost)/span }), nil
	default:
		return nil, errors.Errorf("unknown display mode %v", s.Mode)
	}
}

func fieldShader(m *mat.Dense, scale func(float64) float64) func(grid.Cell) float64 {
	return func(c grid.Cell) float64 {
		return scale(m.At(c.R, c.C))
	}
}

// SavePNG renders a snapshot to a PNG file.
func SavePNG(path string, s planner.Snapshot, opts Options) error {
	img, err := Render(s, opts)
	if err != nil {
		return err
	}
	return errors.Wrapf(gg.SavePNG(path, img), "cannot save snapshot to %q", path)
}
