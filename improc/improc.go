// Package improc holds the image-processing helpers used by the patch
// loader: cropping frames to scale-aligned sizes, deriving the low-resolution
// counterpart of a frame, and converting crops into float32 arrays ready for
// tensor stacking.
package improc

import (
	"image"

	"github.com/disintegration/imaging"
	"github.com/pkg/errors"
)

// ShrinkToMultiple crops img (anchored at the top-left corner) so that its
// width is a multiple of scale[0] and its height a multiple of scale[1].
// A frame already aligned is copied unchanged.
func ShrinkToMultiple(img image.Image, scale [2]int) *image.NRGBA {
	w := img.Bounds().Dx()
	h := img.Bounds().Dy()
	return imaging.Crop(img, image.Rect(0, 0, w-w%scale[0], h-h%scale[1]))
}

// Downsample resizes img by 1/scale per axis using a Catmull-Rom (bicubic)
// kernel. The input dimensions must be multiples of the scale, which
// ShrinkToMultiple guarantees.
func Downsample(img image.Image, scale [2]int) (*image.NRGBA, error) {
	w := img.Bounds().Dx()
	h := img.Bounds().Dy()
	if w%scale[0] != 0 || h%scale[1] != 0 {
		return nil, errors.Errorf("improc: frame %dx%d is not a multiple of scale %dx%d", w, h, scale[0], scale[1])
	}
	return imaging.Resize(img, w/scale[0], h/scale[1], imaging.CatmullRom), nil
}

// Crop returns the sub-image of img delimited by box.
func Crop(img image.Image, box image.Rectangle) *image.NRGBA {
	return imaging.Crop(img, box)
}
