package occupancy

import (
	"image"
	"image/draw"
	// register the decoders map images commonly come in.
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"os"

	"github.com/pkg/errors"
	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"

	"go.viam.com/planner2d/spatialmath"
)

// ImageLoader loads a map from an image file. The map metadata is supplied by the
// caller rather than read from a descriptor file.
type ImageLoader struct {
	Resolution        float64
	Origin            spatialmath.Pose2D
	OccupiedThreshold float64
	FreeThreshold     float64
}

// Load decodes the image at path and pairs it with the loader's metadata.
func (l ImageLoader) Load(path string) (MapSpec, error) {
	img, err := ReadGrayImage(path)
	if err != nil {
		return MapSpec{}, err
	}
	return MapSpec{
		Image:             img,
		Resolution:        l.Resolution,
		Origin:            l.Origin,
		OccupiedThreshold: l.OccupiedThreshold,
		FreeThreshold:     l.FreeThreshold,
	}, nil
}

// ReadGrayImage decodes an image file and converts it to grayscale.
func ReadGrayImage(path string) (*image.Gray, error) {
	//nolint:gosec
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrapf(err, "cannot open map image %q", path)
	}
	defer func() {
		_ = f.Close()
	}()
	img, _, err := image.Decode(f)
	if err != nil {
		return nil, errors.Wrapf(err, "cannot decode map image %q", path)
	}
	return MakeGray(img), nil
}

// MakeGray takes an image and makes it gray, rebasing its bounds to the origin.
func MakeGray(img image.Image) *image.Gray {
	if gray, ok := img.(*image.Gray); ok && gray.Bounds().Min == (image.Point{}) {
		return gray
	}
	b := img.Bounds()
	result := image.NewGray(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(result, result.Bounds(), img, b.Min, draw.Src)
	return result
}
