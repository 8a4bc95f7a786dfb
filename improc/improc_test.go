package improc

import (
	"image"
	"image/color"
	"testing"
)

func fill(w, h int, c color.NRGBA) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for i := 0; i < w*h; i++ {
		img.Pix[i*4] = c.R
		img.Pix[i*4+1] = c.G
		img.Pix[i*4+2] = c.B
		img.Pix[i*4+3] = 0xFF
	}
	return img
}

func TestShrinkToMultiple(t *testing.T) {
	img := fill(13, 9, color.NRGBA{R: 100, G: 100, B: 100})
	out := ShrinkToMultiple(img, [2]int{4, 2})
	if out.Bounds().Dx() != 12 || out.Bounds().Dy() != 8 {
		t.Fatalf("shrunk to %v, want 12x8", out.Bounds())
	}
	// Already aligned frames pass through unchanged.
	out = ShrinkToMultiple(img, [2]int{1, 1})
	if out.Bounds().Dx() != 13 || out.Bounds().Dy() != 9 {
		t.Fatalf("shrunk to %v, want 13x9", out.Bounds())
	}
}

func TestDownsample(t *testing.T) {
	img := fill(16, 8, color.NRGBA{R: 80, G: 80, B: 80})
	out, err := Downsample(img, [2]int{2, 2})
	if err != nil {
		t.Fatalf("Downsample failed: %v", err)
	}
	if out.Bounds().Dx() != 8 || out.Bounds().Dy() != 4 {
		t.Fatalf("downsampled to %v, want 8x4", out.Bounds())
	}
	// A constant image stays constant under bicubic resampling.
	if out.Pix[0] != 80 {
		t.Fatalf("downsampled value = %d, want 80", out.Pix[0])
	}

	if _, err := Downsample(fill(15, 8, color.NRGBA{}), [2]int{2, 2}); err == nil {
		t.Fatalf("expected error for misaligned input")
	}
}

func TestCrop(t *testing.T) {
	img := fill(10, 10, color.NRGBA{R: 5, G: 5, B: 5})
	out := Crop(img, image.Rect(2, 3, 6, 9))
	if out.Bounds().Dx() != 4 || out.Bounds().Dy() != 6 {
		t.Fatalf("cropped to %v, want 4x6", out.Bounds())
	}
}

func TestToArrayGray(t *testing.T) {
	img := fill(3, 2, color.NRGBA{R: 120, G: 120, B: 120})
	arr, err := ToArray(img, Gray)
	if err != nil {
		t.Fatalf("ToArray failed: %v", err)
	}
	if len(arr) != 3*2*1 {
		t.Fatalf("array length = %d, want 6", len(arr))
	}
	// Equal RGB channels give luma equal to the channel value.
	for i, v := range arr {
		if v != 120 {
			t.Fatalf("arr[%d] = %f, want 120", i, v)
		}
	}
}

func TestToArrayYCbCr(t *testing.T) {
	img := fill(2, 2, color.NRGBA{R: 90, G: 90, B: 90})
	arr, err := ToArray(img, YCbCr)
	if err != nil {
		t.Fatalf("ToArray failed: %v", err)
	}
	if len(arr) != 2*2*3 {
		t.Fatalf("array length = %d, want 12", len(arr))
	}
	// Neutral gray: luma 90, both chroma channels centered at 128.
	if arr[0] != 90 || arr[1] != 128 || arr[2] != 128 {
		t.Fatalf("first pixel = %v, want [90 128 128]", arr[:3])
	}
}

func TestColorSpaceChannels(t *testing.T) {
	if Gray.Channels() != 1 || YCbCr.Channels() != 3 {
		t.Fatalf("unexpected channel counts: gray=%d ycbcr=%d", Gray.Channels(), YCbCr.Channels())
	}
}
