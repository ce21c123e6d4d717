// Package flow holds optical flow fields, the Middlebury .flo file format,
// and the color wheel rendering used to inspect flow outputs.
package flow

// Flow values with magnitude beyond this are "unknown flow" markers. They
// contribute nothing to normalization and render as black.
const UnknownThreshold = 1e7

// Field is a dense optical flow field: a (u, v) displacement per pixel.
// Values are interleaved row-major, so Values[2*(y*Width+x)] is u and
// Values[2*(y*Width+x)+1] is v.
type Field struct {
	Width  int
	Height int
	Values []float32
}

func NewField(width, height int) *Field {
	return &Field{
		Width:  width,
		Height: height,
		Values: make([]float32, width*height*2),
	}
}

func (f *Field) Flow(x, y int) (u, v float32) {
	i := 2 * (y*f.Width + x)
	return f.Values[i], f.Values[i+1]
}

func (f *Field) SetFlow(x, y int, u, v float32) {
	i := 2 * (y*f.Width + x)
	f.Values[i] = u
	f.Values[i+1] = v
}
