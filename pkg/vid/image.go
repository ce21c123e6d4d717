package vid

import (
	"fmt"

	"github.com/bmharper/cimg/v2"
)

// Channel order of decoded images
type ImageFormat string

const (
	FormatRGB ImageFormat = "RGB"
	FormatBGR ImageFormat = "BGR"
)

func ParseImageFormat(s string) (ImageFormat, error) {
	switch ImageFormat(s) {
	case FormatRGB:
		return FormatRGB, nil
	case FormatBGR:
		return FormatBGR, nil
	}
	return "", fmt.Errorf("Unknown image format '%v' (expected RGB or BGR)", s)
}

// ReadImage decodes an image file into an 8-bit 3-channel image in the given
// channel order. EXIF rotation is applied by the decoder.
func ReadImage(filename string, format ImageFormat) (*cimg.Image, error) {
	img, err := cimg.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("Error reading image %v: %w", filename, err)
	}
	img = img.ToRGB()
	if format == FormatBGR {
		SwapRB(img)
	}
	return img, nil
}

// SwapRB swaps the first and third channel in place (RGB <-> BGR)
func SwapRB(img *cimg.Image) {
	for y := 0; y < img.Height; y++ {
		row := img.Pixels[y*img.Stride : y*img.Stride+img.Width*3]
		for x := 0; x < len(row); x += 3 {
			row[x], row[x+2] = row[x+2], row[x]
		}
	}
}

// CloneImage makes a deep copy of an image
func CloneImage(img *cimg.Image) *cimg.Image {
	pixels := make([]byte, len(img.Pixels))
	copy(pixels, img.Pixels)
	return cimg.WrapImageStrided(img.Width, img.Height, cimg.PixelFormatRGB, pixels, img.Stride)
}

// CheckImageSize verifies the decoded image against the declared size in the
// sample record, if the record declares one. A mismatch means the manifest
// and the files on disk are out of sync.
func CheckImageSize(sample *Sample, img *cimg.Image) error {
	if sample.Width != 0 && sample.Width != img.Width || sample.Height != 0 && sample.Height != img.Height {
		return fmt.Errorf("Image size mismatch for %v: manifest says %vx%v, file is %vx%v",
			sample.FileName, sample.Width, sample.Height, img.Width, img.Height)
	}
	return nil
}
