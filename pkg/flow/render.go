package flow

import (
	"fmt"

	"github.com/bmharper/cimg/v2"
	"github.com/chewxy/math32"
)

// float32 machine epsilon, added after normalization to dodge the exact-zero
// singularity in the angle computation
const normEpsilon = 1.1920929e-7

// ToImage renders a flow field as an RGB image. Flow direction selects the
// hue from the color wheel, and magnitude (relative to the largest motion in
// the field) fades the color toward white as motion approaches zero.
// Unknown flow renders as black. Pure function, safe for concurrent use.
func ToImage(f *Field) *cimg.Image {
	npix := f.Width * f.Height
	u := make([]float32, npix)
	v := make([]float32, npix)
	unknown := make([]bool, npix)

	maxrad := float32(-1)
	for i := 0; i < npix; i++ {
		uu := f.Values[2*i]
		vv := f.Values[2*i+1]
		if math32.IsNaN(uu) || math32.IsNaN(vv) || math32.Abs(uu) > UnknownThreshold || math32.Abs(vv) > UnknownThreshold {
			unknown[i] = true
			uu = 0
			vv = 0
		}
		maxrad = max(maxrad, math32.Sqrt(uu*uu+vv*vv))
		u[i] = uu
		v[i] = vv
	}
	if maxrad <= 0 {
		// All-zero (or all-unknown) field. Skipping normalization renders it
		// as uniform white instead of dividing by zero.
		maxrad = 1
	}

	img := cimg.NewImage(f.Width, f.Height, cimg.PixelFormatRGB)
	for y := 0; y < f.Height; y++ {
		row := img.Pixels[y*img.Stride:]
		for x := 0; x < f.Width; x++ {
			i := y*f.Width + x
			uu := u[i]/maxrad + normEpsilon
			vv := v[i]/maxrad + normEpsilon
			rad := math32.Sqrt(uu*uu + vv*vv)
			a := math32.Atan2(-vv, -uu) / math32.Pi // [-1, 1]
			fk := (a+1)/2*float32(WheelSize-1) + 1  // [1, WheelSize]
			k0 := int(math32.Floor(fk))
			k1 := k0 + 1
			if k1 == WheelSize+1 {
				k1 = 1
			}
			blend := fk - float32(k0)
			for c := 0; c < 3; c++ {
				col := (1-blend)*colorWheel[k0-1][c]/255 + blend*colorWheel[k1-1][c]/255
				if rad <= 1 {
					// Saturated hue at the field's maximum motion, white at rest
					col = 1 - rad*(1-col)
				} else {
					// Out of range magnitude: darken rather than clip
					col *= 0.75
				}
				b := byte(math32.Floor(255 * col))
				if unknown[i] {
					b = 0
				}
				row[x*3+c] = b
			}
		}
	}
	return img
}

// Visualize stacks frame 1, frame 2 and the rendered flow field vertically
// for side by side inspection. All three must have the same dimensions.
func Visualize(image1, image2 *cimg.Image, f *Field) (*cimg.Image, error) {
	if image1.Width != f.Width || image1.Height != f.Height || image2.Width != f.Width || image2.Height != f.Height {
		return nil, fmt.Errorf("Image/flow size mismatch: img1 %vx%v, img2 %vx%v, flow %vx%v",
			image1.Width, image1.Height, image2.Width, image2.Height, f.Width, f.Height)
	}
	flowImg := ToImage(f)
	montage := cimg.NewImage(f.Width, f.Height*3, cimg.PixelFormatRGB)
	montage.CopyImageRect(image1, 0, 0, f.Width, f.Height, 0, 0)
	montage.CopyImageRect(image2, 0, 0, f.Width, f.Height, 0, f.Height)
	montage.CopyImageRect(flowImg, 0, 0, f.Width, f.Height, 0, f.Height*2)
	return montage, nil
}
