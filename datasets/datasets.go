// Package datasets describes the media collections the patch loader reads.
//
// A Dataset is an immutable description: which files belong to which method
// (train/val/test), how their pixels are laid out, and the default extraction
// geometry (scale, patch size, stride, depth). It holds no open resources;
// the loader package turns it into file handles and patch streams.
package datasets

import (
	"path/filepath"

	"github.com/pkg/errors"
)

// Method names select one of the three file lists of a Dataset.
const (
	MethodTrain = "train"
	MethodVal   = "val"
	MethodTest  = "test"
)

// Dataset is the configuration for one media collection. The zero value of
// an optional field means "use the default": Scale nil is 1:1, PatchSize nil
// is the full frame, Stride nil follows PatchSize, Depth 0 is 1.
type Dataset struct {
	// Name labels the dataset in logs and plots.
	Name string

	// Train, Val and Test list the media file paths per method.
	Train []string
	Val   []string
	Test  []string

	// Mode is the pixel layout: vfile.ModeImage for still images, or a raw
	// format name (YV12, YV21, NV12, NV21, RGB, BGR) for headerless streams.
	Mode string

	// Width and Height give the per-frame dimensions of raw streams. Ignored
	// for still images, which carry their own size.
	Width, Height int

	// Scale is the HR/LR ratio, one or two elements (a single value applies
	// to both axes).
	Scale []int

	// PatchSize is the extraction patch size in HR pixels, one or two
	// elements. Unset means each frame yields one full-frame patch.
	PatchSize []int

	// Stride is the grid step for deterministic extraction, one or two
	// elements. Unset defaults to PatchSize.
	Stride []int

	// Depth is how many consecutive frames are grouped and cropped together.
	Depth int

	// Random enables quota-bounded random sampling for the train method.
	Random bool

	// MaxPatches caps the total patches produced in random mode.
	MaxPatches int
}

// Files returns the file list for the given method.
func (d *Dataset) Files(method string) ([]string, error) {
	switch method {
	case MethodTrain:
		return d.Train, nil
	case MethodVal:
		return d.Val, nil
	case MethodTest:
		return d.Test, nil
	}
	return nil, errors.Errorf("datasets: unknown method %q", method)
}

// GlobFiles expands a glob pattern and fails when nothing matches, so a typo
// in a path surfaces at construction instead of as an empty training run.
func GlobFiles(pattern string) ([]string, error) {
	paths, err := filepath.Glob(pattern)
	if err != nil {
		return nil, errors.Wrapf(err, "datasets: failed to glob pattern %s", pattern)
	}
	if len(paths) == 0 {
		return nil, errors.Errorf("datasets: no files found matching pattern: %s", pattern)
	}
	return paths, nil
}
