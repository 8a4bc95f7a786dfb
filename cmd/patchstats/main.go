// Command patchstats exercises a patch-loader configuration against a real
// media directory: it reports the patch and batch accounting, streams every
// batch with a progress bar, saves a few sample HR/LR patch pairs, and plots
// a histogram of per-batch mean intensity so dataset problems (black frames,
// clipped exposure) show up before a training run does.
package main

import (
	"flag"
	"fmt"
	"io"
	"log"
	"math/rand"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/disintegration/imaging"
	"github.com/gomlx/gomlx/pkg/core/tensors"
	"github.com/schollz/progressbar/v3"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"

	"github.com/quarterpixel/srdata/datasets"
	"github.com/quarterpixel/srdata/improc"
	"github.com/quarterpixel/srdata/loader"
)

func main() {
	patternFlag := flag.String("pattern", "", "glob pattern for media files (required), e.g. 'data/train/*.png'")
	modeFlag := flag.String("mode", "image", "pixel mode: image, or a raw format (YV12, YV21, NV12, NV21, RGB, BGR)")
	widthFlag := flag.Int("width", 0, "frame width for raw formats")
	heightFlag := flag.Int("height", 0, "frame height for raw formats")
	methodFlag := flag.String("method", datasets.MethodTrain, "dataset method: train, val or test")
	scaleFlag := flag.String("scale", "2", "HR/LR scale factor, one value or WxH")
	patchFlag := flag.String("patch", "32", "patch size in HR pixels, one value or WxH; empty for full frames")
	strideFlag := flag.String("stride", "", "grid stride, one value or WxH; empty to follow patch size")
	depthFlag := flag.Int("depth", 1, "frames grouped per patch")
	batchFlag := flag.Int("batch", 16, "batch size")
	randomFlag := flag.Bool("random", false, "sample random patch origins instead of walking the grid")
	maxPatchesFlag := flag.Int("max-patches", 0, "total patch quota for random mode")
	colorFlag := flag.String("color", "gray", "channel layout: gray or ycbcr")
	seedFlag := flag.Int64("seed", time.Now().UnixNano(), "random seed")
	outDir := flag.String("out", "plots", "output directory for the histogram and sample patches")
	samplesFlag := flag.Int("samples", 4, "number of sample HR/LR patch pairs to save as PNGs")
	flag.Parse()

	if *patternFlag == "" {
		flag.Usage()
		os.Exit(2)
	}

	files, err := datasets.GlobFiles(*patternFlag)
	if err != nil {
		log.Fatalf("failed to list media files: %v", err)
	}

	scale, err := parsePair(*scaleFlag)
	if err != nil {
		log.Fatalf("invalid -scale: %v", err)
	}
	patch, err := parsePair(*patchFlag)
	if err != nil {
		log.Fatalf("invalid -patch: %v", err)
	}
	stride, err := parsePair(*strideFlag)
	if err != nil {
		log.Fatalf("invalid -stride: %v", err)
	}

	ds := &datasets.Dataset{
		Name:       "patchstats",
		Train:      files,
		Val:        files,
		Test:       files,
		Mode:       *modeFlag,
		Width:      *widthFlag,
		Height:     *heightFlag,
		Scale:      scale,
		PatchSize:  patch,
		Stride:     stride,
		Depth:      *depthFlag,
		Random:     *randomFlag,
		MaxPatches: *maxPatchesFlag,
	}

	var cs improc.ColorSpace
	switch strings.ToLower(*colorFlag) {
	case "gray":
		cs = improc.Gray
	case "ycbcr":
		cs = improc.YCbCr
	default:
		log.Fatalf("unknown -color %q (want gray or ycbcr)", *colorFlag)
	}

	if err := os.MkdirAll(*outDir, 0o755); err != nil {
		log.Fatalf("failed to create output directory: %v", err)
	}

	if *samplesFlag > 0 {
		if err := saveSamples(ds, *methodFlag, *samplesFlag, *outDir, *seedFlag); err != nil {
			log.Fatalf("failed to save sample patches: %v", err)
		}
	}

	bl, err := loader.NewBatchLoader(*batchFlag, ds, *methodFlag, false, cs,
		loader.Options{}, rand.New(rand.NewSource(*seedFlag)))
	if err != nil {
		log.Fatalf("failed to build batch loader: %v", err)
	}
	defer bl.Close()

	totalPatches := bl.Loader().TotalPatches()
	totalBatches := bl.Len()
	fmt.Printf("files: %d  patches: %d  batches of %d: %d\n",
		bl.Loader().NumFiles(), totalPatches, *batchFlag, totalBatches)

	pBar := progressbar.NewOptions(totalBatches,
		progressbar.OptionSetDescription("Streaming"),
		progressbar.OptionShowIts(),
		progressbar.OptionSetItsString("batches"),
	)

	var means plotter.Values
	for {
		hr, _, err := bl.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			log.Fatalf("batch read failed: %v", err)
		}
		means = append(means, batchMean(hr))
		_ = pBar.Add(1)
	}
	_ = pBar.Close()
	fmt.Println()

	if len(means) != totalBatches {
		log.Fatalf("accounting mismatch: advertised %d batches, streamed %d", totalBatches, len(means))
	}

	outPath := filepath.Join(*outDir, "patch_intensity.png")
	if err := plotHist(means, outPath); err != nil {
		log.Fatalf("failed to plot histogram: %v", err)
	}
	log.Printf("Streamed %d batches; histogram written to %s", len(means), outPath)
}

// parsePair parses "N" or "WxH" into a one- or two-element slice; empty
// input yields nil (use the dataset default).
func parsePair(s string) ([]int, error) {
	if s == "" {
		return nil, nil
	}
	parts := strings.SplitN(strings.ToLower(s), "x", 2)
	out := make([]int, len(parts))
	for i, p := range parts {
		v, err := strconv.Atoi(strings.TrimSpace(p))
		if err != nil {
			return nil, fmt.Errorf("bad value %q: %w", p, err)
		}
		out[i] = v
	}
	return out, nil
}

// batchMean averages every value of a float32 tensor.
func batchMean(t *tensors.Tensor) float64 {
	var sum float64
	var n int
	t.MutableFlatData(func(flat any) {
		data := flat.([]float32)
		n = len(data)
		for _, v := range data {
			sum += float64(v)
		}
	})
	if n == 0 {
		return 0
	}
	return sum / float64(n)
}

// saveSamples writes the first n HR/LR patch pairs of a fresh pass as PNGs.
func saveSamples(ds *datasets.Dataset, method string, n int, outDir string, seed int64) error {
	l, err := loader.NewLoader(ds, method, false, rand.New(rand.NewSource(seed)))
	if err != nil {
		return err
	}
	defer l.Close()
	if err := l.Build(loader.Options{}); err != nil {
		return err
	}

	for i := 0; i < n; i++ {
		pair, err := l.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return err
		}
		hrPath := filepath.Join(outDir, fmt.Sprintf("sample_%02d_hr.png", i))
		lrPath := filepath.Join(outDir, fmt.Sprintf("sample_%02d_lr.png", i))
		if err := imaging.Save(imaging.Clone(pair.HR[0]), hrPath); err != nil {
			return err
		}
		if err := imaging.Save(imaging.Clone(pair.LR[0]), lrPath); err != nil {
			return err
		}
	}
	return nil
}

// plotHist writes a histogram of per-batch mean intensities.
func plotHist(means plotter.Values, outPath string) error {
	p := plot.New()
	p.Title.Text = "Per-batch mean intensity"
	p.X.Label.Text = "mean intensity"
	p.Y.Label.Text = "batches"

	bins := 16
	if len(means) < bins {
		bins = len(means)
	}
	if bins < 1 {
		bins = 1
	}
	hist, err := plotter.NewHist(means, bins)
	if err != nil {
		return err
	}
	p.Add(hist)

	return p.Save(8*vg.Inch, 6*vg.Inch, outPath)
}
