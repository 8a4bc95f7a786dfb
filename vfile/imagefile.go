package vfile

import (
	"image"
	"os"

	"github.com/disintegration/imaging"
	"github.com/pkg/errors"
)

// ImageFile is a still-image File. It probes the dimensions at open time and
// decodes the pixels lazily on the first read, so building a loader over a
// large directory stays cheap.
type ImageFile struct {
	path string
	w, h int
	read int
	img  image.Image // cached after first decode
}

var _ File = (*ImageFile)(nil)

// NewImageFile opens path as a one-frame still image.
func NewImageFile(path string) (*ImageFile, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrapf(err, "vfile: failed to open image %s", path)
	}
	defer f.Close()

	cfg, _, err := image.DecodeConfig(f)
	if err != nil {
		return nil, errors.Wrapf(err, "vfile: failed to probe image %s", path)
	}
	return &ImageFile{path: path, w: cfg.Width, h: cfg.Height}, nil
}

// Name returns the path the image was opened from.
func (f *ImageFile) Name() string { return f.path }

// Frames returns 1 before the image has been read, 0 after.
func (f *ImageFile) Frames() int { return 1 - f.read }

// Shape returns the image dimensions.
func (f *ImageFile) Shape() (int, int) { return f.w, f.h }

// ReadFrames returns the decoded image as a single-frame sequence.
func (f *ImageFile) ReadFrames(n int) ([]image.Image, error) {
	if n <= 0 {
		return nil, nil
	}
	if n > f.Frames() {
		return nil, errors.Errorf("vfile: %s has %d frame(s) left, requested %d", f.path, f.Frames(), n)
	}
	if f.img == nil {
		img, err := imaging.Open(f.path)
		if err != nil {
			return nil, errors.Wrapf(err, "vfile: failed to decode image %s", f.path)
		}
		f.img = img
	}
	f.read = 1
	return []image.Image{f.img}, nil
}

// Reopen rewinds the read cursor. The decoded pixels stay cached.
func (f *ImageFile) Reopen() error {
	f.read = 0
	return nil
}

// Close drops the cached decode.
func (f *ImageFile) Close() error {
	f.img = nil
	return nil
}
