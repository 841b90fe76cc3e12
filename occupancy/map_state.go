package occupancy

import (
	"fmt"
	"image"
	"image/draw"
	"math"

	"github.com/pkg/errors"

	"go.viam.com/planner2d/grid"
	"go.viam.com/planner2d/referenceframe"
	"go.viam.com/planner2d/spatialmath"
	"go.viam.com/planner2d/utils"
)

// MapSpec is everything needed to load a static map.
type MapSpec struct {
	Image             *image.Gray
	Resolution        float64
	Origin            spatialmath.Pose2D
	OccupiedThreshold float64
	FreeThreshold     float64
}

// MapState is a loaded static map. It is never mutated after construction, so a
// pointer to it may be shared freely; Reclassify returns a new value.
type MapState struct {
	image             *image.Gray
	resolution        float64
	origin            spatialmath.Pose2D
	occupiedThreshold float64
	freeThreshold     float64

	frames *referenceframe.MapFrames
	grid   *Grid
}

// LoadMap stores a copy of the image, derives the frame transforms and builds the
// classification grid. Thresholds outside [0,1] are clamped and NaN thresholds
// replaced by the defaults; each adjustment is reported in the returned warnings.
func LoadMap(spec MapSpec) (*MapState, []string, error) {
	if spec.Image == nil {
		return nil, nil, errors.New("map image is nil")
	}
	b := spec.Image.Bounds()
	frames, err := referenceframe.NewMapFrames(spec.Origin, spec.Resolution, grid.Dims{Rows: b.Dy(), Cols: b.Dx()})
	if err != nil {
		return nil, nil, errors.Wrap(err, "invalid map parameters")
	}
	occ, free, warnings := clampThresholds(spec.OccupiedThreshold, spec.FreeThreshold)

	img := image.NewGray(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(img, img.Bounds(), spec.Image, b.Min, draw.Src)

	return &MapState{
		image:             img,
		resolution:        spec.Resolution,
		origin:            spec.Origin,
		occupiedThreshold: occ,
		freeThreshold:     free,
		frames:            frames,
		grid:              Classify(img, occ, free),
	}, warnings, nil
}

// Default thresholds, used in place of a NaN threshold.
const (
	DefaultOccupiedThreshold = 0.65
	DefaultFreeThreshold     = 0.196
)

func clampThresholds(occ, free float64) (float64, float64, []string) {
	var warnings []string
	clamp := func(name string, v, def float64) float64 {
		if math.IsNaN(v) {
			warnings = append(warnings, fmt.Sprintf("%s is NaN, using %v", name, def))
			return def
		}
		c := utils.Clamp(v, 0, 1)
		if c != v {
			warnings = append(warnings, fmt.Sprintf("%s %v clamped to %v", name, v, c))
		}
		return c
	}
	occ = clamp("occupied_thresh", occ, DefaultOccupiedThreshold)
	free = clamp("free_thresh", free, DefaultFreeThreshold)
	return occ, free, warnings
}

// Reclassify rebuilds the classification grid from new thresholds without
// reloading the image. Frames are shared with the receiver.
func (ms *MapState) Reclassify(occThreshold, freeThreshold float64) (*MapState, []string) {
	occ, free, warnings := clampThresholds(occThreshold, freeThreshold)
	return &MapState{
		image:             ms.image,
		resolution:        ms.resolution,
		origin:            ms.origin,
		occupiedThreshold: occ,
		freeThreshold:     free,
		frames:            ms.frames,
		grid:              Classify(ms.image, occ, free),
	}, warnings
}

// Image returns the stored grayscale image. Callers must not modify it.
func (ms *MapState) Image() *image.Gray {
	return ms.image
}

// Resolution returns meters per pixel.
func (ms *MapState) Resolution() float64 {
	return ms.resolution
}

// Origin returns the map origin in the world frame.
func (ms *MapState) Origin() spatialmath.Pose2D {
	return ms.origin
}

// Thresholds returns the occupied and free thresholds in use.
func (ms *MapState) Thresholds() (occupied, free float64) {
	return ms.occupiedThreshold, ms.freeThreshold
}

// Frames returns the frame transforms of the map.
func (ms *MapState) Frames() *referenceframe.MapFrames {
	return ms.frames
}

// Grid returns the classification grid. Callers must not modify it.
func (ms *MapState) Grid() *Grid {
	return ms.grid
}

// Dims returns the grid extent.
func (ms *MapState) Dims() grid.Dims {
	return ms.grid.Dims()
}
