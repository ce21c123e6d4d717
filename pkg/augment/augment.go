// Package augment implements the shared augmentation transform that the
// pairing scheduler applies to a (current, reference) frame pair.
//
// The transform parameters are drawn once, from the current frame, and then
// re-applied verbatim to the reference frame and to annotation geometry.
// Flow-based feature propagation needs the two frames to stay pixel aligned,
// so the two images must never see independently sampled augmentations.
package augment

import (
	"fmt"
	"math/rand"

	"github.com/bmharper/cimg/v2"
	"github.com/chewxy/math32"
	"github.com/cyclopcam/featureflow/pkg/vid"
)

// Options controls which augmentations are sampled
type Options struct {
	ShortEdgeSizes  []int   // Candidate shortest-edge sizes. One is chosen per sample. Empty = no resize.
	MaxSize         int     // Cap on the longest edge after resize. 0 = no cap.
	FlipProbability float32 // Probability of a horizontal flip. 0 = never flip.
}

// The usual training setup for video detection: multi-scale shortest edge
// plus 50% horizontal flip.
func TrainOptions() Options {
	return Options{
		ShortEdgeSizes:  []int{480, 512, 544, 576, 608, 640},
		MaxSize:         1067,
		FlipProbability: 0.5,
	}
}

// Deterministic single-scale resize for inference
func EvalOptions() Options {
	return Options{
		ShortEdgeSizes: []int{600},
		MaxSize:        1000,
	}
}

// Transform is a fully-determined augmentation: applying it is pure, so the
// same Transform can be replayed on any number of images and boxes.
type Transform struct {
	SrcWidth  int
	SrcHeight int
	OutWidth  int
	OutHeight int
	ScaleX    float32
	ScaleY    float32
	FlipH     bool
}

func Identity(width, height int) Transform {
	return Transform{
		SrcWidth:  width,
		SrcHeight: height,
		OutWidth:  width,
		OutHeight: height,
		ScaleX:    1,
		ScaleY:    1,
	}
}

// Sample draws one Transform for an image of the given size
func (o *Options) Sample(rng *rand.Rand, width, height int) Transform {
	t := Identity(width, height)
	if len(o.ShortEdgeSizes) != 0 {
		short := o.ShortEdgeSizes[rng.Intn(len(o.ShortEdgeSizes))]
		scale := float32(short) / float32(min(width, height))
		if o.MaxSize > 0 && scale*float32(max(width, height)) > float32(o.MaxSize) {
			scale = float32(o.MaxSize) / float32(max(width, height))
		}
		t.OutWidth = int(math32.Round(float32(width) * scale))
		t.OutHeight = int(math32.Round(float32(height) * scale))
		t.ScaleX = float32(t.OutWidth) / float32(width)
		t.ScaleY = float32(t.OutHeight) / float32(height)
	}
	if o.FlipProbability > 0 && rng.Float32() < o.FlipProbability {
		t.FlipH = true
	}
	return t
}

// ApplyImage runs the transform on an image. The image must have the size
// that the transform was sampled from. The input is never mutated.
func (t Transform) ApplyImage(img *cimg.Image) (*cimg.Image, error) {
	if img.Width != t.SrcWidth || img.Height != t.SrcHeight {
		return nil, fmt.Errorf("Transform was sampled from a %vx%v image, cannot apply to %vx%v",
			t.SrcWidth, t.SrcHeight, img.Width, img.Height)
	}
	var out *cimg.Image
	if t.OutWidth != t.SrcWidth || t.OutHeight != t.SrcHeight {
		// CatmullRom is the sharpest of the stbir filters, and training wants
		// sharp downsampled frames more than it wants speed.
		params := cimg.ResizeParams{CheapSRGBFilter: true, Filter: cimg.ResizeFilterCatmullRom}
		out = cimg.ResizeNew(img, t.OutWidth, t.OutHeight, &params)
	} else {
		out = vid.CloneImage(img)
	}
	if t.FlipH {
		flipHorizontal(out)
	}
	return out, nil
}

// ApplyRect maps an annotation box through the same geometry. The result is
// not clipped to the output image.
func (t Transform) ApplyRect(r vid.Rect) vid.Rect {
	x1 := int(math32.Round(float32(r.X) * t.ScaleX))
	y1 := int(math32.Round(float32(r.Y) * t.ScaleY))
	x2 := int(math32.Round(float32(r.X+r.Width) * t.ScaleX))
	y2 := int(math32.Round(float32(r.Y+r.Height) * t.ScaleY))
	if t.FlipH {
		x1, x2 = t.OutWidth-x2, t.OutWidth-x1
	}
	return vid.Rect{X: x1, Y: y1, Width: x2 - x1, Height: y2 - y1}
}

func flipHorizontal(img *cimg.Image) {
	for y := 0; y < img.Height; y++ {
		row := img.Pixels[y*img.Stride : y*img.Stride+img.Width*3]
		for x1 := 0; x1 < img.Width/2; x1++ {
			x2 := img.Width - 1 - x1
			for c := 0; c < 3; c++ {
				row[x1*3+c], row[x2*3+c] = row[x2*3+c], row[x1*3+c]
			}
		}
	}
}
