// pairdump runs the frame-pairing scheduler over a dataset manifest and
// writes paired previews, so that you can eyeball what the model will see:
// current frame with its annotations on the left, reference frame on the
// right. With --hist it also plots the distribution of sampled reference
// offsets, which should be uniform over the configured range.
package main

import (
	"fmt"
	"image"
	"os"
	"path/filepath"

	"github.com/akamensky/argparse"
	"github.com/bmharper/cimg/v2"
	"github.com/cyclopcam/featureflow/pkg/augment"
	"github.com/cyclopcam/featureflow/pkg/pair"
	"github.com/cyclopcam/featureflow/pkg/vid"
	"github.com/cyclopcam/logs"
	"github.com/fogleman/gg"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
)

func check(err error) {
	if err != nil {
		panic(err)
	}
}

func main() {
	parser := argparse.NewParser("pairdump", "Dump paired samples from a dataset manifest")
	manifest := parser.String("d", "dataset", &argparse.Options{Help: "Dataset manifest (JSON)", Required: true})
	outDir := parser.String("o", "outdir", &argparse.Options{Help: "Output directory for previews", Required: true})
	evalMode := parser.Flag("", "eval", &argparse.Options{Help: "Run the inference-mode key frame schedule instead of the training schedule", Default: false})
	count := parser.Int("n", "count", &argparse.Options{Help: "Number of preview images to write", Default: 10})
	offsetMin := parser.Int("", "offsetmin", &argparse.Options{Help: "Training: minimum reference frame offset", Default: -9})
	offsetMax := parser.Int("", "offsetmax", &argparse.Options{Help: "Training: maximum reference frame offset", Default: 9})
	keyDuration := parser.Int("k", "keyduration", &argparse.Options{Help: "Inference: key frame interval", Default: 10})
	histFile := parser.String("", "hist", &argparse.Options{Help: "Write a histogram PNG of sampled reference offsets", Default: ""})
	seed := parser.Int("", "seed", &argparse.Options{Help: "Random seed", Default: 1})
	err := parser.Parse(os.Args)
	if err != nil {
		fmt.Print(parser.Usage(err))
		os.Exit(1)
	}

	logger, err := logs.NewLog()
	check(err)

	ds, err := vid.LoadDataset(*manifest)
	check(err)
	logger.Infof("Dataset %v: %v samples", ds.Name, len(ds.Samples))

	catalog := vid.NewCatalog()
	catalog.Register(ds)

	cfg := pair.Config{
		IsTrain:          !*evalMode,
		ImageFormat:      vid.FormatRGB,
		FrameOffsetMin:   *offsetMin,
		FrameOffsetMax:   *offsetMax,
		KeyFrameDuration: *keyDuration,
		Seed:             int64(*seed),
	}
	if cfg.IsTrain {
		cfg.Augmentations = augment.TrainOptions()
		root, err := catalog.VideoImageRoot([]string{ds.Name})
		check(err)
		cfg.VideoImageRoot = root
	} else {
		cfg.Augmentations = augment.EvalOptions()
	}

	mapper, err := pair.NewMapper(&cfg, logger)
	check(err)
	check(os.MkdirAll(*outDir, 0755))

	state := pair.KeyFrameState{}
	offsets := []int{}
	for i := range ds.Samples {
		sample := &ds.Samples[i]
		if sample.FileName != "" && !filepath.IsAbs(sample.FileName) {
			sample.FileName = filepath.Join(ds.ImageRoot, sample.FileName)
		}
		paired, err := mapper.Map(sample, &state)
		if err != nil {
			logger.Errorf("Sample %v: %v", sample.FileName, err)
			os.Exit(1)
		}
		offsets = append(offsets, paired.RefFrameID-sample.FrameSegID)
		if i < *count {
			outFile := filepath.Join(*outDir, fmt.Sprintf("pair-%04d.png", i))
			check(writePreview(outFile, paired))
			logger.Infof("Sample %v: ref frame %v -> %v", sample.FrameSegID, paired.RefFrameID, outFile)
		}
	}

	if *histFile != "" {
		check(writeOffsetHistogram(*histFile, offsets))
		logger.Infof("Wrote offset histogram %v", *histFile)
	}
}

// Side by side: current frame with annotation boxes, reference frame
func writePreview(filename string, paired *pair.PairedSample) error {
	w := paired.ImageCur.Width
	h := paired.ImageCur.Height
	canvas := image.NewRGBA(image.Rect(0, 0, w*2, h))
	blitRGB(canvas, paired.ImageCur, 0)
	blitRGB(canvas, paired.ImageRef, w)

	dc := gg.NewContextForRGBA(canvas)
	dc.SetRGB(1, 0, 0)
	dc.SetLineWidth(2)
	for _, a := range paired.Instances {
		dc.DrawRectangle(float64(a.Box.X), float64(a.Box.Y), float64(a.Box.Width), float64(a.Box.Height))
	}
	dc.Stroke()
	return dc.SavePNG(filename)
}

func blitRGB(dst *image.RGBA, src *cimg.Image, offsetX int) {
	for y := 0; y < src.Height; y++ {
		row := src.Pixels[y*src.Stride:]
		for x := 0; x < src.Width; x++ {
			di := dst.PixOffset(offsetX+x, y)
			dst.Pix[di] = row[x*3]
			dst.Pix[di+1] = row[x*3+1]
			dst.Pix[di+2] = row[x*3+2]
			dst.Pix[di+3] = 255
		}
	}
}

func writeOffsetHistogram(filename string, offsets []int) error {
	if len(offsets) == 0 {
		return nil
	}
	values := make(plotter.Values, len(offsets))
	minOff, maxOff := offsets[0], offsets[0]
	for i, o := range offsets {
		values[i] = float64(o)
		minOff = min(minOff, o)
		maxOff = max(maxOff, o)
	}
	p := plot.New()
	p.Title.Text = "Reference frame offsets"
	p.X.Label.Text = "offset"
	p.Y.Label.Text = "count"
	hist, err := plotter.NewHist(values, maxOff-minOff+1)
	if err != nil {
		return err
	}
	p.Add(hist)
	return p.Save(6*vg.Inch, 4*vg.Inch, filename)
}
