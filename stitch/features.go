package stitch

import (
	"image"

	"github.com/pkg/errors"

	"go.viam.com/scrollstitch/rimage"
	"go.viam.com/scrollstitch/vision/keypoints"
)

// Features are the keypoints and descriptors of one frame. Keypoints live in feature space: the
// scroll axis is Y and is never resampled, X is the across axis scaled by the session's sample
// scale.
type Features struct {
	Gray        *image.Gray
	KeyPoints   keypoints.KeyPoints
	Descriptors keypoints.Descriptors
}

// Extractor turns frames into Features. It holds no mutable state.
type Extractor struct {
	axis        Axis
	width       int
	height      int
	sampleWidth int
	fast        *keypoints.FASTConfig
	patchSize   int
}

// NewExtractor returns an Extractor for the frame size and sampling parameters of cfg.
func NewExtractor(cfg Config) (*Extractor, error) {
	if err := cfg.Validate("stitch"); err != nil {
		return nil, err
	}
	return &Extractor{
		axis:        cfg.Axis,
		width:       cfg.FrameWidth,
		height:      cfg.FrameHeight,
		sampleWidth: cfg.sampledAcross(),
		fast:        keypoints.DefaultFASTConfig(cfg.CornerThreshold),
		patchSize:   cfg.DescriptorPatchSize,
	}, nil
}

// Extract computes the features of frame.
func (e *Extractor) Extract(frame image.Image) (*Features, error) {
	if !rimage.SameSize(frame, e.width, e.height) {
		size := frame.Bounds().Size()
		return nil, errors.Wrapf(ErrDimensionMismatch, "got %dx%d, want %dx%d", size.X, size.Y, e.width, e.height)
	}
	gray := rimage.ToGray(frame)
	if e.axis == Horizontal {
		gray = rimage.TransposeGray(gray)
	}
	gray, err := rimage.ResizeAcross(gray, e.sampleWidth)
	if err != nil {
		return nil, err
	}

	kps := keypoints.ComputeFAST(gray, e.fast)
	if len(kps) == 0 {
		return nil, ErrNoFeatures
	}
	return &Features{
		Gray:        gray,
		KeyPoints:   kps,
		Descriptors: keypoints.ComputeBandDescriptors(gray, kps, e.patchSize),
	}, nil
}
