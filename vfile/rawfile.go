package vfile

import (
	"image"
	"io"
	"os"

	"github.com/pkg/errors"
)

// RawFormat identifies a headerless raw pixel layout.
type RawFormat string

const (
	YV12 RawFormat = "YV12" // planar 4:2:0, Y then V then U
	YV21 RawFormat = "YV21" // planar 4:2:0, Y then U then V
	NV12 RawFormat = "NV12" // semi-planar 4:2:0, Y then interleaved CbCr
	NV21 RawFormat = "NV21" // semi-planar 4:2:0, Y then interleaved CrCb
	RGB  RawFormat = "RGB"  // packed 24-bit RGB
	BGR  RawFormat = "BGR"  // packed 24-bit BGR
)

var rawFormats = map[string]RawFormat{
	string(YV12): YV12,
	string(YV21): YV21,
	string(NV12): NV12,
	string(NV21): NV21,
	string(RGB):  RGB,
	string(BGR):  BGR,
}

// frameBytes returns the byte size of one w x h frame in the format.
func (f RawFormat) frameBytes(w, h int) int {
	switch f {
	case RGB, BGR:
		return w * h * 3
	default:
		return w * h * 3 / 2
	}
}

// chroma420 reports whether the format subsamples chroma 4:2:0, which
// requires even frame dimensions.
func (f RawFormat) chroma420() bool {
	return f != RGB && f != BGR
}

// RawFile is a File over a headerless stream of fixed-size frames. The frame
// count is derived from the file size; the read cursor advances frame by
// frame and Reopen seeks back to the start.
type RawFile struct {
	path   string
	format RawFormat
	w, h   int
	total  int
	read   int
	f      *os.File
}

var _ File = (*RawFile)(nil)

// NewRawFile opens path as a raw stream of w x h frames in the given format.
func NewRawFile(path string, format RawFormat, w, h int) (*RawFile, error) {
	if w <= 0 || h <= 0 {
		return nil, errors.Errorf("vfile: raw file %s needs positive dimensions, got %dx%d", path, w, h)
	}
	if format.chroma420() && (w%2 != 0 || h%2 != 0) {
		return nil, errors.Errorf("vfile: %s frames must have even dimensions, got %dx%d", format, w, h)
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrapf(err, "vfile: failed to open raw file %s", path)
	}
	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, errors.Wrapf(err, "vfile: failed to stat raw file %s", path)
	}
	return &RawFile{
		path:   path,
		format: format,
		w:      w,
		h:      h,
		total:  int(info.Size()) / format.frameBytes(w, h),
		f:      f,
	}, nil
}

// Name returns the path the stream was opened from.
func (r *RawFile) Name() string { return r.path }

// Frames returns the number of frames not yet read.
func (r *RawFile) Frames() int { return r.total - r.read }

// Shape returns the per-frame dimensions.
func (r *RawFile) Shape() (int, int) { return r.w, r.h }

// ReadFrames decodes the next n frames from the stream.
func (r *RawFile) ReadFrames(n int) ([]image.Image, error) {
	if n <= 0 {
		return nil, nil
	}
	if n > r.Frames() {
		return nil, errors.Errorf("vfile: %s has %d frame(s) left, requested %d", r.path, r.Frames(), n)
	}
	size := r.format.frameBytes(r.w, r.h)
	buf := make([]byte, size)
	frames := make([]image.Image, n)
	for i := range frames {
		if _, err := io.ReadFull(r.f, buf); err != nil {
			return nil, errors.Wrapf(err, "vfile: failed to read frame %d of %s", r.read+i, r.path)
		}
		frames[i] = r.decodeFrame(buf)
	}
	r.read += n
	return frames, nil
}

// Reopen seeks back to the first frame.
func (r *RawFile) Reopen() error {
	if _, err := r.f.Seek(0, io.SeekStart); err != nil {
		return errors.Wrapf(err, "vfile: failed to rewind %s", r.path)
	}
	r.read = 0
	return nil
}

// Close closes the underlying file.
func (r *RawFile) Close() error { return r.f.Close() }

// decodeFrame converts one frame's bytes into an image.
func (r *RawFile) decodeFrame(buf []byte) image.Image {
	switch r.format {
	case RGB, BGR:
		return decodePacked24(buf, r.w, r.h, r.format == BGR)
	default:
		return decode420(buf, r.w, r.h, r.format)
	}
}

func decodePacked24(buf []byte, w, h int, bgr bool) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for i := 0; i < w*h; i++ {
		r, g, b := buf[i*3], buf[i*3+1], buf[i*3+2]
		if bgr {
			r, b = b, r
		}
		img.Pix[i*4] = r
		img.Pix[i*4+1] = g
		img.Pix[i*4+2] = b
		img.Pix[i*4+3] = 0xFF
	}
	return img
}

func decode420(buf []byte, w, h int, format RawFormat) *image.YCbCr {
	img := image.NewYCbCr(image.Rect(0, 0, w, h), image.YCbCrSubsampleRatio420)
	copy(img.Y, buf[:w*h])
	cw, chh := w/2, h/2
	cn := cw * chh
	chroma := buf[w*h:]
	switch format {
	case YV12: // V plane first
		copy(img.Cr, chroma[:cn])
		copy(img.Cb, chroma[cn:cn*2])
	case YV21: // U plane first
		copy(img.Cb, chroma[:cn])
		copy(img.Cr, chroma[cn:cn*2])
	case NV12: // interleaved CbCr
		for i := 0; i < cn; i++ {
			img.Cb[i] = chroma[i*2]
			img.Cr[i] = chroma[i*2+1]
		}
	case NV21: // interleaved CrCb
		for i := 0; i < cn; i++ {
			img.Cr[i] = chroma[i*2]
			img.Cb[i] = chroma[i*2+1]
		}
	}
	return img
}
