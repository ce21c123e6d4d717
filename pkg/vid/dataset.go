// Package vid holds the dataset model for video object detection:
// frame samples, video sequences, annotations, and the catalog of
// registered datasets.
package vid

import (
	"encoding/json"
	"fmt"
	"os"
)

// Sample is the record of one frame. Frames that belong to a video sequence
// carry a Pattern; still images (detection-only examples) do not.
type Sample struct {
	FileName    string       `json:"fileName"`              // Image path, absolute or relative to the dataset ImageRoot
	Pattern     string       `json:"pattern,omitempty"`     // Sprintf pattern (eg "seq05/%06d.JPEG") resolving a frame index to a path under the video image root. Empty for still images.
	FrameSegID  int          `json:"frameSegID"`            // Position of this frame within its sequence
	FrameSegLen int          `json:"frameSegLen"`           // Number of frames in the sequence
	Width       int          `json:"width,omitempty"`       // Declared image width, 0 if unknown
	Height      int          `json:"height,omitempty"`      // Declared image height, 0 if unknown
	Annotations []Annotation `json:"annotations,omitempty"` // Ground truth instances, if labeled
}

// IsVideoFrame is true if the sample belongs to a video sequence
func (s *Sample) IsVideoFrame() bool {
	return s.Pattern != ""
}

// Dataset is a named set of samples, typically loaded from a JSON manifest.
type Dataset struct {
	Name      string   `json:"name"`
	ImageRoot string   `json:"imageRoot"`         // Root directory that sample file names and patterns are relative to
	IsVideo   bool     `json:"isVideo,omitempty"` // True if this dataset contains video sequences
	Samples   []Sample `json:"samples"`
}

func LoadDataset(filename string) (*Dataset, error) {
	raw, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("Error loading dataset manifest %v: %w", filename, err)
	}
	ds := &Dataset{}
	if err := json.Unmarshal(raw, ds); err != nil {
		return nil, fmt.Errorf("Error loading dataset manifest %v as JSON: %w", filename, err)
	}
	return ds, nil
}

// Catalog is a registry of datasets by name. The training config refers to
// datasets by name, and the pairing scheduler resolves the video image root
// through the catalog.
type Catalog struct {
	datasets map[string]*Dataset
}

func NewCatalog() *Catalog {
	return &Catalog{
		datasets: map[string]*Dataset{},
	}
}

func (c *Catalog) Register(ds *Dataset) {
	c.datasets[ds.Name] = ds
}

func (c *Catalog) Get(name string) (*Dataset, error) {
	ds := c.datasets[name]
	if ds == nil {
		return nil, fmt.Errorf("Dataset '%v' is not registered", name)
	}
	return ds, nil
}

// VideoImageRoot returns the image root of the first video dataset among
// names. Video sequence frames resolve their reference frames against this
// root, so a configuration that includes video samples but registers no
// video dataset is an error.
func (c *Catalog) VideoImageRoot(names []string) (string, error) {
	for _, name := range names {
		ds, err := c.Get(name)
		if err != nil {
			return "", err
		}
		if ds.IsVideo {
			return ds.ImageRoot, nil
		}
	}
	return "", fmt.Errorf("No video dataset among %v: a video image root is required to resolve reference frames", names)
}
