// Package vfile abstracts the media files a dataset is built from. A File
// hands out decoded frames one read at a time so the patch loader never has
// to care whether the bytes on disk are a still image or a headerless raw
// video stream.
package vfile

import (
	"image"
	"strings"

	"github.com/pkg/errors"
)

// ModeImage selects still-image files decoded through the standard image
// codecs (PNG, JPEG, GIF, BMP, TIFF).
const ModeImage = "image"

// File is one open media file. Frames are consumed sequentially; Reopen
// rewinds the read cursor so the file can be traversed again.
type File interface {
	// Name returns the path the file was opened from.
	Name() string
	// Frames returns the number of frames not yet read. Reopen refreshes it.
	Frames() int
	// Shape returns the per-frame width and height in pixels.
	Shape() (w, h int)
	// ReadFrames decodes and returns the next n frames, advancing the read
	// cursor. It fails if fewer than n frames remain.
	ReadFrames(n int) ([]image.Image, error)
	// Reopen rewinds the read cursor to the first frame.
	Reopen() error
	// Close releases the underlying file handle.
	Close() error
}

// Open classifies mode once and returns the matching File variant. Raw
// formats need the per-frame width and height since the stream carries no
// header.
func Open(path, mode string, width, height int) (File, error) {
	if strings.EqualFold(mode, ModeImage) {
		return NewImageFile(path)
	}
	if f, ok := rawFormats[strings.ToUpper(mode)]; ok {
		return NewRawFile(path, f, width, height)
	}
	return nil, errors.Errorf("vfile: unknown mode %q", mode)
}
