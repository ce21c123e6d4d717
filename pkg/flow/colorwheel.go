package flow

// The Middlebury color wheel: six angular segments with hand-tuned ramp
// lengths, chosen so that equal flow angles map to perceptually distinct
// hues. Ramp sizes are from the original Middlebury flow code.
const (
	segRY = 15 // red -> yellow
	segYG = 6  // yellow -> green
	segGC = 4  // green -> cyan
	segCB = 11 // cyan -> blue
	segBM = 13 // blue -> magenta
	segMR = 6  // magenta -> red
)

// Number of wheel entries (55)
const WheelSize = segRY + segYG + segGC + segCB + segBM + segMR

// Built once at startup, never mutated
var colorWheel = makeColorWheel()

func makeColorWheel() [WheelSize][3]float32 {
	var wheel [WheelSize][3]float32
	col := 0

	// RY
	for i := 0; i < segRY; i++ {
		wheel[col+i][0] = 255
		wheel[col+i][1] = float32(255 * i / segRY)
	}
	col += segRY

	// YG
	for i := 0; i < segYG; i++ {
		wheel[col+i][0] = 255 - float32(255*i/segYG)
		wheel[col+i][1] = 255
	}
	col += segYG

	// GC
	for i := 0; i < segGC; i++ {
		wheel[col+i][1] = 255
		wheel[col+i][2] = float32(255 * i / segGC)
	}
	col += segGC

	// CB
	for i := 0; i < segCB; i++ {
		wheel[col+i][1] = 255 - float32(255*i/segCB)
		wheel[col+i][2] = 255
	}
	col += segCB

	// BM
	for i := 0; i < segBM; i++ {
		wheel[col+i][2] = 255
		wheel[col+i][0] = float32(255 * i / segBM)
	}
	col += segBM

	// MR
	for i := 0; i < segMR; i++ {
		wheel[col+i][2] = 255 - float32(255*i/segMR)
		wheel[col+i][0] = 255
	}

	return wheel
}
