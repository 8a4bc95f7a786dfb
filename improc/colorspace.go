package improc

import (
	"image"
	"image/color"

	"github.com/pkg/errors"
)

// ColorSpace selects the channel layout of the arrays produced by ToArray.
type ColorSpace int

const (
	// Gray keeps only the luma channel (1 channel per pixel).
	Gray ColorSpace = iota
	// YCbCr keeps luma and both chroma channels (3 channels per pixel).
	YCbCr
)

// Channels returns the number of channels per pixel for the color space.
func (cs ColorSpace) Channels() int {
	if cs == Gray {
		return 1
	}
	return 3
}

func (cs ColorSpace) String() string {
	if cs == Gray {
		return "gray"
	}
	return "ycbcr"
}

// ToArray converts img into a flat float32 array in row-major
// (height, width, channel) order. Pixel values are kept in the 0..255 range;
// normalization is left to the training code.
func ToArray(img image.Image, cs ColorSpace) ([]float32, error) {
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	ch := cs.Channels()
	out := make([]float32, h*w*ch)

	i := 0
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			r, g, bl, _ := img.At(x, y).RGBA()
			yy, cb, cr := color.RGBToYCbCr(uint8(r>>8), uint8(g>>8), uint8(bl>>8))
			switch cs {
			case Gray:
				out[i] = float32(yy)
				i++
			case YCbCr:
				out[i] = float32(yy)
				out[i+1] = float32(cb)
				out[i+2] = float32(cr)
				i += 3
			default:
				return nil, errors.Errorf("improc: unknown color space %d", cs)
			}
		}
	}
	return out, nil
}
