package main

import (
	"fmt"
	"os"

	"github.com/akamensky/argparse"
	"github.com/bmharper/cimg/v2"
	"github.com/cyclopcam/featureflow/pkg/flow"
	"github.com/cyclopcam/featureflow/pkg/vid"
	"github.com/cyclopcam/logs"
)

func check(err error) {
	if err != nil {
		panic(err)
	}
}

func main() {
	parser := argparse.NewParser("flowviz", "Render an optical flow field as a color image")
	flowFile := parser.String("f", "flow", &argparse.Options{Help: "Input .flo flow file", Required: true})
	image1 := parser.String("", "image1", &argparse.Options{Help: "First frame of the pair (optional, for a side-by-side montage)", Default: ""})
	image2 := parser.String("", "image2", &argparse.Options{Help: "Second frame of the pair (optional, for a side-by-side montage)", Default: ""})
	output := parser.String("o", "output", &argparse.Options{Help: "Output JPEG file", Required: true})
	quality := parser.Int("q", "quality", &argparse.Options{Help: "JPEG quality", Default: 95})
	err := parser.Parse(os.Args)
	if err != nil {
		fmt.Print(parser.Usage(err))
		os.Exit(1)
	}

	logger, _ := logs.NewLog()

	field, err := flow.ReadFlo(*flowFile)
	check(err)
	logger.Infof("Flow field %v: %vx%v", *flowFile, field.Width, field.Height)

	var img *cimg.Image
	if *image1 != "" && *image2 != "" {
		frame1, err := vid.ReadImage(*image1, vid.FormatRGB)
		check(err)
		frame2, err := vid.ReadImage(*image2, vid.FormatRGB)
		check(err)
		img, err = flow.Visualize(frame1, frame2, field)
		check(err)
	} else {
		img = flow.ToImage(field)
	}

	check(img.WriteJPEG(*output, cimg.MakeCompressParams(cimg.Sampling444, *quality, 0), 0644))
	logger.Infof("Wrote %v", *output)
}
