// Package pair implements the frame-pairing scheduler for deep feature flow
// training and inference. Every sample is mapped to a (current, reference)
// frame pair: in training the reference is a randomly offset frame from the
// same sequence, and in inference it is the most recent key frame, whose
// expensively-computed features the model warps forward via optical flow.
package pair

import (
	"errors"
	"fmt"
	"math/rand"
	"path/filepath"

	"github.com/bmharper/cimg/v2"
	"github.com/cyclopcam/featureflow/pkg/augment"
	"github.com/cyclopcam/featureflow/pkg/gen"
	"github.com/cyclopcam/featureflow/pkg/vid"
	"github.com/cyclopcam/logs"
)

// Scheduler precondition violations. These indicate a broken caller (frames
// fed out of order), not a recoverable condition.
var (
	ErrNoKeyFrame = errors.New("no key frame cached: non-key frame requested before any key frame in the sequence")
	ErrOutOfOrder = errors.New("frames fed out of order")
)

// Config of a Mapper
type Config struct {
	IsTrain          bool
	ImageFormat      vid.ImageFormat // Channel order of decoded images
	FrameOffsetMin   int             // Training: smallest reference frame offset (inclusive)
	FrameOffsetMax   int             // Training: largest reference frame offset (inclusive). Offsets are drawn uniformly from [min, max].
	KeyFrameDuration int             // Inference: a key frame every this many frames
	VideoImageRoot   string          // Root directory that sequence patterns resolve against. Required for training.
	Augmentations    augment.Options
	Seed             int64 // Seed for offset/augmentation sampling. 0 = fixed default.
}

// KeyFrameState is the inference-time key frame cache. It is owned by the
// caller, one per worker, and handed into every Map call so that the
// sequencing contract is explicit: within one sequence, calls must be
// strictly ordered by FrameSegID, and one state must never be shared between
// interleaved sequences or goroutines.
type KeyFrameState struct {
	Image *cimg.Image // Decoded key frame, before augmentation
	SegID int         // FrameSegID of the key frame
}

func (s *KeyFrameState) IsEmpty() bool {
	return s.Image == nil
}

func (s *KeyFrameState) Clear() {
	s.Image = nil
	s.SegID = 0
}

// PairedSample is the output of the scheduler: both frames after the shared
// augmentation, plus the transformed ground truth (training only).
type PairedSample struct {
	Sample     *vid.Sample
	ImageCur   *cimg.Image
	ImageRef   *cimg.Image
	Instances  []vid.Annotation
	Transform  augment.Transform
	RefFrameID int // Sequence position the reference frame came from
}

// Mapper turns dataset samples into paired training/inference samples.
// A Mapper is not safe for concurrent use; give each data-loading worker
// its own instance.
type Mapper struct {
	cfg Config
	log logs.Log
	rng *rand.Rand
}

func NewMapper(cfg *Config, log logs.Log) (*Mapper, error) {
	if cfg.IsTrain && cfg.FrameOffsetMin > cfg.FrameOffsetMax {
		return nil, fmt.Errorf("Invalid frame offset range [%v, %v]: min must not exceed max", cfg.FrameOffsetMin, cfg.FrameOffsetMax)
	}
	if !cfg.IsTrain && cfg.KeyFrameDuration < 1 {
		return nil, fmt.Errorf("Invalid key frame duration %v: must be a positive integer", cfg.KeyFrameDuration)
	}
	if cfg.IsTrain && cfg.VideoImageRoot == "" {
		return nil, fmt.Errorf("No video image root configured: training with video sequences needs a root directory to resolve reference frames")
	}
	if _, err := vid.ParseImageFormat(string(cfg.ImageFormat)); err != nil {
		return nil, err
	}
	seed := cfg.Seed
	if seed == 0 {
		seed = 1
	}
	m := &Mapper{
		cfg: *cfg,
		log: log,
		rng: rand.New(rand.NewSource(seed)),
	}
	mode := "inference"
	if cfg.IsTrain {
		mode = "training"
	}
	log.Infof("Mapper in %v mode, augmentations %+v", mode, cfg.Augmentations)
	return m, nil
}

// Map pairs one sample with its reference frame and applies the shared
// augmentation. state is the caller-owned key frame cache; it is only
// consulted in inference mode, but must be non-nil there.
func (m *Mapper) Map(sample *vid.Sample, state *KeyFrameState) (*PairedSample, error) {
	imageCur, err := vid.ReadImage(sample.FileName, m.cfg.ImageFormat)
	if err != nil {
		return nil, err
	}
	if err := vid.CheckImageSize(sample, imageCur); err != nil {
		return nil, err
	}

	var imageRef *cimg.Image
	refFrameID := sample.FrameSegID

	if m.cfg.IsTrain {
		imageRef, refFrameID, err = m.pairTrain(sample, imageCur)
	} else {
		imageRef, refFrameID, err = m.pairEval(sample, imageCur, state)
	}
	if err != nil {
		return nil, err
	}
	if err := vid.CheckImageSize(sample, imageRef); err != nil {
		return nil, err
	}

	// One transform, drawn from the current frame, replayed on the reference
	// frame and the annotations. ApplyImage never mutates its input, so the
	// cached key frame is safe even though imageRef aliases it.
	transform := m.cfg.Augmentations.Sample(m.rng, imageCur.Width, imageCur.Height)
	imageCurT, err := transform.ApplyImage(imageCur)
	if err != nil {
		return nil, err
	}
	imageRefT, err := transform.ApplyImage(imageRef)
	if err != nil {
		return nil, err
	}

	out := &PairedSample{
		Sample:     sample,
		ImageCur:   imageCurT,
		ImageRef:   imageRefT,
		Transform:  transform,
		RefFrameID: refFrameID,
	}
	if m.cfg.IsTrain && len(sample.Annotations) != 0 {
		instances := make([]vid.Annotation, 0, len(sample.Annotations))
		for _, a := range sample.Annotations {
			a.Box = transform.ApplyRect(a.Box).Clip(transform.OutWidth, transform.OutHeight)
			instances = append(instances, a)
		}
		out.Instances = vid.FilterInstances(instances)
	}
	return out, nil
}

// Training policy: still images pair with themselves, video frames pair with
// a uniformly offset frame from the same sequence, clamped to its bounds.
func (m *Mapper) pairTrain(sample *vid.Sample, imageCur *cimg.Image) (*cimg.Image, int, error) {
	if !sample.IsVideoFrame() {
		return vid.CloneImage(imageCur), sample.FrameSegID, nil
	}
	offset := m.cfg.FrameOffsetMin + m.rng.Intn(m.cfg.FrameOffsetMax-m.cfg.FrameOffsetMin+1)
	refID := gen.Clamp(sample.FrameSegID+offset, 0, sample.FrameSegLen-1)
	refFile := filepath.Join(m.cfg.VideoImageRoot, fmt.Sprintf(sample.Pattern, refID))
	imageRef, err := vid.ReadImage(refFile, m.cfg.ImageFormat)
	if err != nil {
		return nil, 0, err
	}
	return imageRef, refID, nil
}

// Inference policy: every KeyFrameDuration'th frame becomes the key frame and
// pairs with itself; the frames in between pair with the cached key frame.
// The cache is cleared after the last frame of the sequence.
func (m *Mapper) pairEval(sample *vid.Sample, imageCur *cimg.Image, state *KeyFrameState) (*cimg.Image, int, error) {
	if state == nil {
		return nil, 0, fmt.Errorf("Inference-mode Map needs a caller-owned KeyFrameState")
	}
	var imageRef *cimg.Image
	refFrameID := sample.FrameSegID
	if sample.FrameSegID%m.cfg.KeyFrameDuration == 0 {
		imageRef = vid.CloneImage(imageCur)
		state.Image = vid.CloneImage(imageCur)
		state.SegID = sample.FrameSegID
	} else {
		if state.IsEmpty() {
			return nil, 0, fmt.Errorf("Frame %v of %v: %w", sample.FrameSegID, sample.FileName, ErrNoKeyFrame)
		}
		delta := sample.FrameSegID - state.SegID
		if delta <= 0 || delta >= m.cfg.KeyFrameDuration {
			return nil, 0, fmt.Errorf("Frame %v with key frame %v (duration %v): %w",
				sample.FrameSegID, state.SegID, m.cfg.KeyFrameDuration, ErrOutOfOrder)
		}
		imageRef = state.Image
		refFrameID = state.SegID
	}
	if sample.FrameSegID+1 == sample.FrameSegLen {
		state.Clear()
	}
	return imageRef, refFrameID, nil
}
