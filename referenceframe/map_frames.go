// Package referenceframe keeps the world, map-image and pixel-grid frames of a
// loaded map in sync and converts poses and points between them.
//
// World frame: bottom-left origin, X right, Y up (the map metadata convention).
// Image frame: top-left origin, X down, Y right. Pixel grid: one cell per image
// pixel, rows along image X and columns along image Y.
package referenceframe

import (
	"math"

	"github.com/golang/geo/r2"
	"github.com/pkg/errors"

	"go.viam.com/planner2d/grid"
	"go.viam.com/planner2d/spatialmath"
)

// ErrOutOfBounds is returned when a conversion lands outside the grid.
var ErrOutOfBounds = errors.New("coordinate outside of grid bounds")

// MapFrames holds the transforms of one loaded map. It is immutable; a new value
// is built each time a map is (re)loaded.
type MapFrames struct {
	resolution    float64
	invResolution float64
	dims          grid.Dims

	mapOrigin      spatialmath.Transform
	mapOriginInv   spatialmath.Transform
	imageToMap     spatialmath.Transform
	imageOrigin    spatialmath.Transform
	imageOriginInv spatialmath.Transform
}

// NewMapFrames derives the frames of a map whose image has the given dimensions.
// The image origin sits imageRows*resolution above the map origin, rotated by
// -90 degrees, so that image rows grow downward in the world.
func NewMapFrames(origin spatialmath.Pose2D, resolution float64, dims grid.Dims) (*MapFrames, error) {
	if resolution <= 0 || math.IsNaN(resolution) || math.IsInf(resolution, 0) {
		return nil, errors.Errorf("map resolution must be positive, got %v", resolution)
	}
	if dims.Empty() {
		return nil, errors.Errorf("map image must not be empty, got %dx%d", dims.Rows, dims.Cols)
	}
	mapOrigin := spatialmath.NewTransform(origin)
	imageToMap := spatialmath.NewTransform(spatialmath.Pose2D{
		X:     0,
		Y:     float64(dims.Rows) * resolution,
		Theta: -math.Pi / 2,
	})
	imageOrigin := mapOrigin.Compose(imageToMap)
	return &MapFrames{
		resolution:     resolution,
		invResolution:  1 / resolution,
		dims:           dims,
		mapOrigin:      mapOrigin,
		mapOriginInv:   mapOrigin.Inverse(),
		imageToMap:     imageToMap,
		imageOrigin:    imageOrigin,
		imageOriginInv: imageOrigin.Inverse(),
	}, nil
}

// Resolution returns the size of a cell in meters.
func (mf *MapFrames) Resolution() float64 {
	return mf.resolution
}

// Dims returns the grid extent.
func (mf *MapFrames) Dims() grid.Dims {
	return mf.dims
}

// MapOrigin returns the map origin expressed in the world frame.
func (mf *MapFrames) MapOrigin() spatialmath.Transform {
	return mf.mapOrigin
}

// ImageToMap returns the image origin expressed in the map-origin frame.
func (mf *MapFrames) ImageToMap() spatialmath.Transform {
	return mf.imageToMap
}

// ImageOrigin returns the image origin expressed in the world frame.
func (mf *MapFrames) ImageOrigin() spatialmath.Transform {
	return mf.imageOrigin
}

// WorldToMap expresses a world pose relative to the map origin.
func (mf *MapFrames) WorldToMap(p spatialmath.Pose2D) spatialmath.Pose2D {
	return mf.mapOriginInv.ApplyPose(p)
}

// WorldToImage expresses a world pose in the image frame.
func (mf *MapFrames) WorldToImage(p spatialmath.Pose2D) spatialmath.Pose2D {
	return mf.imageOriginInv.ApplyPose(p)
}

// ImageToWorld is the inverse of WorldToImage.
func (mf *MapFrames) ImageToWorld(p spatialmath.Pose2D) spatialmath.Pose2D {
	return mf.imageOrigin.ApplyPose(p)
}

// ImageToGrid returns the cell containing an image-frame point. The result may
// lie outside the grid; check with Inside.
func (mf *MapFrames) ImageToGrid(p r2.Point) grid.Cell {
	return grid.Cell{
		R: int(math.Floor(p.X * mf.invResolution)),
		C: int(math.Floor(p.Y * mf.invResolution)),
	}
}

// GridToImage returns the image-frame centre of a cell.
func (mf *MapFrames) GridToImage(c grid.Cell) r2.Point {
	return r2.Point{
		X: (float64(c.R) + 0.5) * mf.resolution,
		Y: (float64(c.C) + 0.5) * mf.resolution,
	}
}

// GridToImageChecked is GridToImage rejecting cells outside the grid.
func (mf *MapFrames) GridToImageChecked(c grid.Cell) (r2.Point, error) {
	if !mf.dims.Inside(c) {
		return r2.Point{}, errors.Wrapf(ErrOutOfBounds, "cell %v in %dx%d grid", c, mf.dims.Rows, mf.dims.Cols)
	}
	return mf.GridToImage(c), nil
}

// WorldToGrid returns the cell containing a world-frame point.
func (mf *MapFrames) WorldToGrid(p r2.Point) grid.Cell {
	return mf.ImageToGrid(mf.imageOriginInv.Apply(p))
}

// GridToWorld returns the world-frame centre of a cell.
func (mf *MapFrames) GridToWorld(c grid.Cell) r2.Point {
	return mf.imageOrigin.Apply(mf.GridToImage(c))
}

// Inside reports whether the cell lies in the grid.
func (mf *MapFrames) Inside(c grid.Cell) bool {
	return mf.dims.Inside(c)
}

// Clamp returns the nearest in-grid cell.
func (mf *MapFrames) Clamp(c grid.Cell) grid.Cell {
	return mf.dims.Clamp(c)
}

// TrackedPose holds the three synchronized representations of one pose.
type TrackedPose struct {
	World spatialmath.Pose2D
	Image spatialmath.Pose2D
	Pixel grid.Cell
}

// Track derives the image and pixel representations of a world pose.
func (mf *MapFrames) Track(world spatialmath.Pose2D) TrackedPose {
	image := mf.WorldToImage(world)
	return TrackedPose{
		World: world,
		Image: image,
		Pixel: mf.ImageToGrid(image.Point()),
	}
}
