// Package loader turns a media collection into a bounded stream of paired
// high-resolution/low-resolution patches and stacks them into fixed-size
// training batches.
//
// A Loader walks the files of one dataset method and emits Pair values, one
// crop box at a time, under one of two policies fixed at construction:
// deterministic grid coverage (every aligned patch exactly once per pass) or
// quota-bounded random sampling. A BatchLoader sits on top and assembles
// Pairs into gomlx tensors.
package loader

import (
	"image"
	"io"
	"math/rand"
	"time"

	"github.com/pkg/errors"

	"github.com/quarterpixel/srdata/datasets"
	"github.com/quarterpixel/srdata/improc"
	"github.com/quarterpixel/srdata/vfile"
)

// Pair is one extracted patch: depth consecutive high-resolution crops and
// their low-resolution counterparts, plus the crop boxes they came from.
// The low-res box is always the high-res box divided exactly by the scale.
type Pair struct {
	HR, LR       []image.Image
	HRBox, LRBox image.Rectangle
}

// Options overrides the extraction geometry of the dataset descriptor at
// Build time. Nil/zero fields keep the descriptor's values.
type Options struct {
	// Scale, PatchSize and Stride take one or two elements, like their
	// descriptor counterparts.
	Scale     []int
	PatchSize []int
	Stride    []int

	// Depth overrides the frames-per-group count when positive.
	Depth int

	// NoCrop disables patch extraction entirely: each frame group yields a
	// single full-frame pair.
	NoCrop bool
}

// Loader produces a lazy sequence of Pairs from one dataset method. Create
// it with NewLoader, call Build once, then pull with Next until io.EOF.
type Loader struct {
	files []vfile.File
	rng   *rand.Rand

	loop       bool
	random     bool
	maxPatches int

	// geometry configuration, resolved by Build
	scaleCfg  []int
	patchCfg  []int
	strideCfg []int
	depth     int

	scale  [2]int
	patch  [2]int
	stride [2]int
	crop   bool

	built bool
	total int

	st iterState
}

// iterState is the extraction cursor. It tracks the current file, the frame
// group being cropped, and either the grid position (deterministic mode) or
// the remaining draws and the global counter (random mode).
type iterState struct {
	fileIdx    int
	fileReady  bool
	groupsLeft int
	done       bool

	// current frame group
	groupActive bool
	hr, lr      []image.Image
	gw, gh      int // shrunk HR frame dimensions
	pw, ph      int // effective patch size for this group
	sw, sh      int // effective stride for this group

	// deterministic grid cursor
	x, y int

	// random sampling
	perFile   int
	drawsLeft int
	emitted   int
}

// NewLoader opens one handle per file of the given method, shuffling the
// file order once. The rng drives both the shuffle and random-mode patch
// origins; pass a seeded source for reproducible runs, or nil for a
// time-seeded one. Random mode applies when the descriptor asks for it,
// except for the test method which always iterates deterministically.
func NewLoader(ds *datasets.Dataset, method string, loop bool, rng *rand.Rand) (*Loader, error) {
	if ds == nil {
		return nil, errors.New("loader: dataset descriptor is required")
	}
	paths, err := ds.Files(method)
	if err != nil {
		return nil, err
	}
	if len(paths) == 0 {
		return nil, errors.Errorf("loader: dataset %q has no files for method %q", ds.Name, method)
	}
	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}

	shuffled := make([]string, len(paths))
	copy(shuffled, paths)
	rng.Shuffle(len(shuffled), func(i, j int) {
		shuffled[i], shuffled[j] = shuffled[j], shuffled[i]
	})

	files := make([]vfile.File, len(shuffled))
	for i, p := range shuffled {
		f, err := vfile.Open(p, ds.Mode, ds.Width, ds.Height)
		if err != nil {
			for _, opened := range files[:i] {
				opened.Close()
			}
			return nil, err
		}
		files[i] = f
	}

	return &Loader{
		files:      files,
		rng:        rng,
		loop:       loop,
		random:     ds.Random && method != datasets.MethodTest,
		maxPatches: ds.MaxPatches,
		scaleCfg:   ds.Scale,
		patchCfg:   ds.PatchSize,
		strideCfg:  ds.Stride,
		depth:      ds.Depth,
	}, nil
}

// Build normalizes the extraction geometry and computes the patch-count
// accounting. It must run before Next.
func (l *Loader) Build(opts Options) error {
	if opts.Scale != nil {
		l.scaleCfg = opts.Scale
	}
	if opts.PatchSize != nil {
		l.patchCfg = opts.PatchSize
	}
	if opts.Stride != nil {
		l.strideCfg = opts.Stride
	}
	if opts.Depth > 0 {
		l.depth = opts.Depth
	}
	if l.depth <= 0 {
		l.depth = 1
	}

	scale, err := toPair(l.scaleCfg, 1)
	if err != nil {
		return errors.WithMessage(err, "invalid scale")
	}
	if scale[0] < 1 || scale[1] < 1 {
		return errors.Errorf("loader: scale must be at least 1 per axis, got %dx%d", scale[0], scale[1])
	}
	l.scale = scale

	l.crop = !opts.NoCrop && l.patchCfg != nil
	if l.crop {
		patch, err := toPair(l.patchCfg, 0)
		if err != nil {
			return errors.WithMessage(err, "invalid patch size")
		}
		l.patch = shrinkModScale(patch, scale)
		if l.patch[0] <= 0 || l.patch[1] <= 0 {
			return errors.Errorf("loader: patch size %dx%d is smaller than scale %dx%d", patch[0], patch[1], scale[0], scale[1])
		}
		if l.strideCfg == nil {
			l.stride = l.patch
		} else {
			stride, err := toPair(l.strideCfg, 0)
			if err != nil {
				return errors.WithMessage(err, "invalid stride")
			}
			l.stride = shrinkModScale(stride, scale)
			if l.stride[0] <= 0 || l.stride[1] <= 0 {
				return errors.Errorf("loader: stride %dx%d is smaller than scale %dx%d", stride[0], stride[1], scale[0], scale[1])
			}
		}
	} else {
		l.patch = [2]int{}
		l.stride = [2]int{}
	}

	if l.random && l.maxPatches <= 0 {
		return errors.New("loader: random mode requires a positive MaxPatches")
	}

	l.total = l.countPatches()
	l.Reset()
	l.built = true
	return nil
}

// countPatches computes the advertised patch total. In random mode it is the
// quota; in deterministic mode the closed-form grid count per depth group,
// summed over files, which matches exactly what one non-looping pass yields.
func (l *Loader) countPatches() int {
	if l.random {
		return l.maxPatches
	}
	total := 0
	for _, f := range l.files {
		groups := f.Frames() / l.depth
		if groups == 0 {
			continue
		}
		w, h := f.Shape()
		if !l.crop {
			// One full-frame pair per group, unless the frame shrinks away
			// entirely at this scale.
			if w >= l.scale[0] && h >= l.scale[1] {
				total += groups
			}
			continue
		}
		gx := (w-l.patch[0])/l.stride[0] + 1
		gy := (h-l.patch[1])/l.stride[1] + 1
		if gx < 1 || gy < 1 {
			continue
		}
		total += groups * gx * gy
	}
	return total
}

// TotalPatches returns the number of pairs one pass produces (the quota in
// random mode). Valid after Build; stable across calls and during iteration.
func (l *Loader) TotalPatches() int { return l.total }

// NumFiles returns the number of input files, fixed at construction.
func (l *Loader) NumFiles() int { return len(l.files) }

// Reset rewinds the extraction to the beginning. Drained file handles are
// reopened lazily as iteration reaches them.
func (l *Loader) Reset() {
	l.st = iterState{perFile: ceilDiv(l.maxPatches, len(l.files))}
}

// Next returns the next patch pair, or io.EOF when the sequence is
// exhausted: after one full pass in deterministic mode (unless looping), or
// once the quota is met in random mode.
func (l *Loader) Next() (*Pair, error) {
	if !l.built {
		return nil, errors.New("loader: not built, call Build first")
	}
	if l.st.done {
		return nil, io.EOF
	}
	if l.random {
		return l.nextRandom()
	}
	return l.nextGrid()
}

// nextGrid advances the deterministic grid walk: x outer, y inner, step =
// stride, cells that would cross the right or bottom edge silently skipped.
func (l *Loader) nextGrid() (*Pair, error) {
	st := &l.st
	for {
		if st.groupActive {
			if box, ok := l.nextCell(); ok {
				return l.emit(box)
			}
			st.groupActive = false
		}

		f := l.files[st.fileIdx]
		if !st.fileReady {
			if f.Frames() == 0 {
				if err := f.Reopen(); err != nil {
					return nil, err
				}
			}
			st.groupsLeft = f.Frames() / l.depth
			st.fileReady = true
		}

		if st.groupsLeft > 0 {
			if err := l.loadGroup(f); err != nil {
				return nil, err
			}
			st.groupsLeft--
			continue
		}

		// Drain the remainder frames so the handle is fully consumed before
		// the next file (and ready for Reopen on a later pass).
		if rem := f.Frames(); rem > 0 {
			if _, err := f.ReadFrames(rem); err != nil {
				return nil, err
			}
		}
		st.fileIdx++
		st.fileReady = false
		if st.fileIdx == len(l.files) {
			if l.loop {
				st.fileIdx = 0
				continue
			}
			st.done = true
			return nil, io.EOF
		}
	}
}

// nextCell returns the next grid cell of the current group that fits inside
// the frame, consuming skipped cells along the way.
func (l *Loader) nextCell() (image.Rectangle, bool) {
	st := &l.st
	for st.x < st.gw {
		for st.y < st.gh {
			x, y := st.x, st.y
			st.y += st.sh
			if x+st.pw <= st.gw && y+st.ph <= st.gh {
				return image.Rect(x, y, x+st.pw, y+st.ph), true
			}
		}
		st.y = 0
		st.x += st.sw
	}
	return image.Rectangle{}, false
}

// nextRandom draws scale-aligned random origins, per-file quota per depth
// group, hard-capped by the global counter.
func (l *Loader) nextRandom() (*Pair, error) {
	st := &l.st
	if st.emitted >= l.maxPatches {
		st.done = true
		return nil, io.EOF
	}
	for {
		if st.groupActive && st.drawsLeft > 0 {
			st.drawsLeft--
			rx := st.gw - st.pw
			ry := st.gh - st.ph
			if rx < 0 || ry < 0 {
				return nil, errors.Errorf("loader: patch %dx%d exceeds frame %dx%d in %s",
					st.pw, st.ph, st.gw, st.gh, l.files[st.fileIdx].Name())
			}
			// Origins stay multiples of the scale so the low-res box divides
			// exactly.
			x := l.scale[0] * l.rng.Intn(rx/l.scale[0]+1)
			y := l.scale[1] * l.rng.Intn(ry/l.scale[1]+1)
			st.emitted++
			return l.emit(image.Rect(x, y, x+st.pw, y+st.ph))
		}
		st.groupActive = false

		if st.fileIdx >= len(l.files) {
			st.done = true
			return nil, io.EOF
		}
		f := l.files[st.fileIdx]
		if !st.fileReady {
			if f.Frames() == 0 {
				if err := f.Reopen(); err != nil {
					return nil, err
				}
			}
			st.groupsLeft = f.Frames() / l.depth
			st.fileReady = true
		}

		if st.groupsLeft > 0 {
			if err := l.loadGroup(f); err != nil {
				return nil, err
			}
			st.groupsLeft--
			st.drawsLeft = st.perFile
			continue
		}

		st.fileIdx++
		st.fileReady = false
	}
}

// loadGroup reads the next depth frames from f, shrinks them to a
// scale-aligned size and derives the low-res counterparts.
func (l *Loader) loadGroup(f vfile.File) error {
	frames, err := f.ReadFrames(l.depth)
	if err != nil {
		return err
	}
	st := &l.st
	st.hr = make([]image.Image, len(frames))
	st.lr = make([]image.Image, len(frames))
	for i, frame := range frames {
		hr := improc.ShrinkToMultiple(frame, l.scale)
		lr, err := improc.Downsample(hr, l.scale)
		if err != nil {
			return err
		}
		st.hr[i] = hr
		st.lr[i] = lr
	}
	st.gw = st.hr[0].Bounds().Dx()
	st.gh = st.hr[0].Bounds().Dy()
	if l.crop {
		st.pw, st.ph = l.patch[0], l.patch[1]
		st.sw, st.sh = l.stride[0], l.stride[1]
	} else {
		st.pw, st.ph = st.gw, st.gh
		st.sw, st.sh = st.gw, st.gh
	}
	st.x, st.y = 0, 0
	st.groupActive = true
	return nil
}

// emit crops the current group at box and derives the low-res crop from the
// scaled-down box.
func (l *Loader) emit(box image.Rectangle) (*Pair, error) {
	lrBox := image.Rect(
		box.Min.X/l.scale[0], box.Min.Y/l.scale[1],
		box.Max.X/l.scale[0], box.Max.Y/l.scale[1],
	)
	st := &l.st
	p := &Pair{
		HR:    make([]image.Image, len(st.hr)),
		LR:    make([]image.Image, len(st.lr)),
		HRBox: box,
		LRBox: lrBox,
	}
	for i := range st.hr {
		p.HR[i] = improc.Crop(st.hr[i], box)
		p.LR[i] = improc.Crop(st.lr[i], lrBox)
	}
	return p, nil
}

// Close releases every file handle.
func (l *Loader) Close() error {
	var first error
	for _, f := range l.files {
		if err := f.Close(); err != nil && first == nil {
			first = err
		}
	}
	return first
}
