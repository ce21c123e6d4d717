package vid

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/bmharper/cimg/v2"
	"github.com/stretchr/testify/require"
)

func TestLoadDataset(t *testing.T) {
	dir := t.TempDir()
	manifest := filepath.Join(dir, "vid_train.json")
	body := `{
		"name": "vid_train",
		"imageRoot": "/data/vid",
		"isVideo": true,
		"samples": [
			{"fileName": "seq00/000000.JPEG", "pattern": "seq00/%06d.JPEG", "frameSegID": 0, "frameSegLen": 120,
			 "annotations": [{"box": {"x": 10, "y": 20, "width": 30, "height": 40}, "class": "car"}]},
			{"fileName": "still.jpg"}
		]
	}`
	require.NoError(t, os.WriteFile(manifest, []byte(body), 0644))

	ds, err := LoadDataset(manifest)
	require.NoError(t, err)
	require.Equal(t, "vid_train", ds.Name)
	require.Len(t, ds.Samples, 2)
	require.True(t, ds.Samples[0].IsVideoFrame())
	require.Equal(t, 120, ds.Samples[0].FrameSegLen)
	require.Equal(t, Rect{X: 10, Y: 20, Width: 30, Height: 40}, ds.Samples[0].Annotations[0].Box)
	require.False(t, ds.Samples[1].IsVideoFrame())

	_, err = LoadDataset(filepath.Join(dir, "missing.json"))
	require.Error(t, err)

	garbage := filepath.Join(dir, "garbage.json")
	require.NoError(t, os.WriteFile(garbage, []byte("not json"), 0644))
	_, err = LoadDataset(garbage)
	require.Error(t, err)
}

func TestCatalog(t *testing.T) {
	c := NewCatalog()
	c.Register(&Dataset{Name: "det_train", ImageRoot: "/data/det"})
	c.Register(&Dataset{Name: "vid_train", ImageRoot: "/data/vid", IsVideo: true})

	_, err := c.Get("nope")
	require.Error(t, err)

	root, err := c.VideoImageRoot([]string{"det_train", "vid_train"})
	require.NoError(t, err)
	require.Equal(t, "/data/vid", root)

	// No video dataset registered for this training config: hard failure
	// with a diagnostic, not a silent fallback
	_, err = c.VideoImageRoot([]string{"det_train"})
	require.Error(t, err)
	require.Contains(t, err.Error(), "video image root")

	_, err = c.VideoImageRoot([]string{"det_train", "unregistered"})
	require.Error(t, err)
}

func TestFilterInstances(t *testing.T) {
	in := []Annotation{
		{Box: Rect{X: 0, Y: 0, Width: 10, Height: 10}, Class: "car"},
		{Box: Rect{X: 0, Y: 0, Width: 10, Height: 10}, Class: "car", IsCrowd: true},
		{Box: Rect{X: 5, Y: 5, Width: 0, Height: 10}, Class: "dog"},
		{Box: Rect{X: 5, Y: 5, Width: 10, Height: -2}, Class: "dog"},
		{Box: Rect{X: 1, Y: 1, Width: 1, Height: 1}, Class: "cat"},
	}
	out := FilterInstances(in)
	require.Len(t, out, 2)
	require.Equal(t, "car", out[0].Class)
	require.Equal(t, "cat", out[1].Class)
}

func TestRect(t *testing.T) {
	a := Rect{X: 0, Y: 0, Width: 10, Height: 10}
	b := Rect{X: 5, Y: 5, Width: 10, Height: 10}
	require.Equal(t, Rect{X: 5, Y: 5, Width: 5, Height: 5}, a.Intersection(b))
	require.Equal(t, Rect{X: 0, Y: 0, Width: 15, Height: 15}, a.Union(b))
	require.InDelta(t, 25.0/175.0, a.IOU(b), 1e-6)

	// Disjoint rects have an empty intersection
	c := Rect{X: 20, Y: 20, Width: 5, Height: 5}
	require.True(t, a.Intersection(c).IsEmpty())

	// Clip to image bounds
	d := Rect{X: -5, Y: 2, Width: 20, Height: 20}
	require.Equal(t, Rect{X: 0, Y: 2, Width: 10, Height: 8}, d.Clip(10, 10))
}

func TestImageFormats(t *testing.T) {
	_, err := ParseImageFormat("RGB")
	require.NoError(t, err)
	_, err = ParseImageFormat("BGR")
	require.NoError(t, err)
	_, err = ParseImageFormat("YUV-BT.601")
	require.Error(t, err)
}

func TestReadImage(t *testing.T) {
	dir := t.TempDir()
	filename := filepath.Join(dir, "red.jpg")
	img := cimg.NewImage(32, 24, cimg.PixelFormatRGB)
	for y := 0; y < img.Height; y++ {
		row := img.Pixels[y*img.Stride:]
		for x := 0; x < img.Width; x++ {
			row[x*3] = 255
		}
	}
	require.NoError(t, img.WriteJPEG(filename, cimg.MakeCompressParams(cimg.Sampling444, 99, 0), 0644))

	rgb, err := ReadImage(filename, FormatRGB)
	require.NoError(t, err)
	require.Equal(t, 32, rgb.Width)
	require.GreaterOrEqual(t, rgb.Pixels[0], byte(250)) // R first
	require.LessOrEqual(t, rgb.Pixels[2], byte(5))

	bgr, err := ReadImage(filename, FormatBGR)
	require.NoError(t, err)
	require.LessOrEqual(t, bgr.Pixels[0], byte(5)) // B first
	require.GreaterOrEqual(t, bgr.Pixels[2], byte(250))

	_, err = ReadImage(filepath.Join(dir, "missing.jpg"), FormatRGB)
	require.Error(t, err)

	corrupt := filepath.Join(dir, "corrupt.jpg")
	require.NoError(t, os.WriteFile(corrupt, []byte("not a jpeg"), 0644))
	_, err = ReadImage(corrupt, FormatRGB)
	require.Error(t, err)
}

func TestCloneImage(t *testing.T) {
	img := cimg.NewImage(8, 8, cimg.PixelFormatRGB)
	img.Pixels[0] = 42
	clone := CloneImage(img)
	require.Equal(t, img.Pixels, clone.Pixels)
	clone.Pixels[0] = 7
	require.Equal(t, byte(42), img.Pixels[0])
}

func TestCheckImageSize(t *testing.T) {
	img := cimg.NewImage(32, 24, cimg.PixelFormatRGB)
	require.NoError(t, CheckImageSize(&Sample{FileName: "x.jpg"}, img))
	require.NoError(t, CheckImageSize(&Sample{FileName: "x.jpg", Width: 32, Height: 24}, img))
	require.Error(t, CheckImageSize(&Sample{FileName: "x.jpg", Width: 33, Height: 24}, img))
	require.Error(t, CheckImageSize(&Sample{FileName: "x.jpg", Width: 32, Height: 25}, img))
}
