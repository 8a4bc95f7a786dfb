package loader

import (
	"fmt"
	"io"
	"math/rand"

	"github.com/gomlx/gomlx/pkg/core/shapes"
	"github.com/gomlx/gomlx/pkg/core/tensors"
	"github.com/gomlx/gomlx/pkg/ml/train"
	"github.com/gomlx/gopjrt/dtypes"
	"github.com/pkg/errors"

	"github.com/quarterpixel/srdata/datasets"
	"github.com/quarterpixel/srdata/improc"
)

// BatchLoader assembles the patch pairs of a Loader into fixed-size float32
// tensor batches. HR and LR batches are shaped
// (batch, depth, height, width, channels), with the depth axis dropped when
// depth is 1. The final batch of a deterministic pass may be shorter.
//
// BatchLoader implements gomlx's train.Dataset: Yield returns the LR batch
// as the input and the HR batch as the label.
type BatchLoader struct {
	loader *Loader
	batch  int
	cs     improc.ColorSpace
	name   string
}

// Assert BatchLoader is a train.Dataset.
var _ train.Dataset = (*BatchLoader)(nil)

// NewBatchLoader constructs the loader for one dataset method and builds it.
// cs selects the channel layout of the batches (improc.Gray or
// improc.YCbCr); opts overrides the descriptor geometry.
func NewBatchLoader(batchSize int, ds *datasets.Dataset, method string, loop bool,
	cs improc.ColorSpace, opts Options, rng *rand.Rand) (*BatchLoader, error) {

	if batchSize <= 0 {
		return nil, errors.Errorf("loader: batch size must be positive, got %d", batchSize)
	}
	l, err := NewLoader(ds, method, loop, rng)
	if err != nil {
		return nil, err
	}
	if err := l.Build(opts); err != nil {
		l.Close()
		return nil, err
	}

	name := ds.Name
	if name == "" {
		name = "srdata"
	}
	return &BatchLoader{
		loader: l,
		batch:  batchSize,
		cs:     cs,
		name:   fmt.Sprintf("%s/%s", name, method),
	}, nil
}

// Next pulls up to batch-size pairs from the underlying loader and stacks
// them into an (HR, LR) tensor pair. A shorter final batch is returned once,
// then io.EOF.
func (b *BatchLoader) Next() (hr, lr *tensors.Tensor, err error) {
	var hrBuf, lrBuf []float32
	var depth, hrW, hrH, lrW, lrH int

	n := 0
	for n < b.batch {
		pair, err := b.loader.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, nil, err
		}

		if n == 0 {
			depth = len(pair.HR)
			hrW, hrH = pair.HRBox.Dx(), pair.HRBox.Dy()
			lrW, lrH = pair.LRBox.Dx(), pair.LRBox.Dy()
		} else if len(pair.HR) != depth || pair.HRBox.Dx() != hrW || pair.HRBox.Dy() != hrH {
			return nil, nil, errors.Errorf(
				"loader: inconsistent patch shape in batch: got depth=%d %dx%d, expected depth=%d %dx%d",
				len(pair.HR), pair.HRBox.Dx(), pair.HRBox.Dy(), depth, hrW, hrH)
		}

		for _, img := range pair.HR {
			arr, err := improc.ToArray(img, b.cs)
			if err != nil {
				return nil, nil, err
			}
			hrBuf = append(hrBuf, arr...)
		}
		for _, img := range pair.LR {
			arr, err := improc.ToArray(img, b.cs)
			if err != nil {
				return nil, nil, err
			}
			lrBuf = append(lrBuf, arr...)
		}
		n++
	}
	if n == 0 {
		return nil, nil, io.EOF
	}

	ch := b.cs.Channels()
	return stackBatch(hrBuf, n, depth, hrH, hrW, ch), stackBatch(lrBuf, n, depth, lrH, lrW, ch), nil
}

// stackBatch copies a contiguous float32 buffer into a tensor shaped
// (n, depth, h, w, ch), squeezing the depth axis when it is a singleton.
func stackBatch(buf []float32, n, depth, h, w, ch int) *tensors.Tensor {
	dims := []int{n, depth, h, w, ch}
	if depth == 1 {
		dims = []int{n, h, w, ch}
	}
	t := tensors.FromShape(shapes.Make(dtypes.Float32, dims...))
	t.MutableFlatData(func(flat any) {
		copy(flat.([]float32), buf)
	})
	return t
}

// Len returns the total number of batches one pass produces:
// ceil(total patches / batch size). Meaningless when looping.
func (b *BatchLoader) Len() int {
	return ceilDiv(b.loader.TotalPatches(), b.batch)
}

// Name implements train.Dataset.
func (b *BatchLoader) Name() string { return b.name }

// Yield implements train.Dataset. The LR batch is the model input, the HR
// batch the label.
func (b *BatchLoader) Yield() (spec any, inputs, labels []*tensors.Tensor, err error) {
	hr, lr, err := b.Next()
	if err != nil {
		return nil, nil, nil, err
	}
	return b, []*tensors.Tensor{lr}, []*tensors.Tensor{hr}, nil
}

// Reset implements train.Dataset, rewinding the underlying loader for a new
// epoch.
func (b *BatchLoader) Reset() {
	b.loader.Reset()
}

// Loader exposes the underlying patch loader, mainly for its accounting.
func (b *BatchLoader) Loader() *Loader { return b.loader }

// Close releases the underlying file handles.
func (b *BatchLoader) Close() error { return b.loader.Close() }
