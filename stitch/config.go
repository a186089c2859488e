package stitch

import (
	"encoding/json"
	"math"
	"os"
	"path/filepath"

	"github.com/pkg/errors"
	"go.uber.org/multierr"
	goutils "go.viam.com/utils"

	"go.viam.com/scrollstitch/utils"
	"go.viam.com/scrollstitch/vision/ann"
)

// Config contains the parameters of one scroll capture session.
type Config struct {
	Axis        Axis `json:"axis"`
	FrameWidth  int  `json:"frame_width"`
	FrameHeight int  `json:"frame_height"`

	// SampleRate is the requested downscale of the axis orthogonal to scrolling, before it is
	// bounded by MinSampleSize and MaxSampleSize.
	SampleRate    float64 `json:"sample_rate"`
	MinSampleSize int     `json:"min_sample_size"`
	MaxSampleSize int     `json:"max_sample_size"`

	CornerThreshold     int `json:"corner_threshold"`
	DescriptorPatchSize int `json:"descriptor_patch_size"`
	// MinSizeDelta is how many pixels an edge may grow past its match index before the index is
	// rebuilt.
	MinSizeDelta int `json:"min_size_delta"`

	// MaxNeighbors and EfSearch tune the match index graph. Zero picks the index defaults.
	MaxNeighbors int `json:"max_neighbors,omitempty"`
	EfSearch     int `json:"ef_search,omitempty"`
}

// DefaultConfig returns a config for frames of the given size with default sampling parameters.
func DefaultConfig(axis Axis, width, height int) Config {
	return Config{
		Axis:                axis,
		FrameWidth:          width,
		FrameHeight:         height,
		SampleRate:          0.5,
		MinSampleSize:       64,
		MaxSampleSize:       256,
		CornerThreshold:     20,
		DescriptorPatchSize: 16,
		MinSizeDelta:        32,
		MaxNeighbors:        16,
		EfSearch:            64,
	}
}

// LoadConfig loads a Config from a json file and validates it.
func LoadConfig(file string) (*Config, error) {
	filePath := filepath.Clean(file)
	configFile, err := os.Open(filePath)
	if err != nil {
		return nil, errors.Wrap(err, "cannot open stitch config")
	}
	defer goutils.UncheckedErrorFunc(configFile.Close)

	var config Config
	if err := json.NewDecoder(configFile).Decode(&config); err != nil {
		return nil, errors.Wrapf(err, "cannot decode stitch config %q", filePath)
	}
	if err := config.Validate(file); err != nil {
		return nil, err
	}
	return &config, nil
}

// Validate ensures all parts of the config are valid.
func (cfg *Config) Validate(path string) error {
	var errs error
	invalid := func(msg string) {
		errs = multierr.Append(errs, goutils.NewConfigValidationError(path, errors.New(msg)))
	}

	if cfg.Axis != Vertical && cfg.Axis != Horizontal {
		invalid("axis should be vertical or horizontal")
	}
	if cfg.FrameWidth <= 0 {
		invalid("frame_width should be > 0")
	}
	if cfg.FrameHeight <= 0 {
		invalid("frame_height should be > 0")
	}
	if !(cfg.SampleRate > 0) || math.IsInf(cfg.SampleRate, 0) {
		invalid("sample_rate should be > 0")
	}
	if cfg.MinSampleSize <= 0 {
		invalid("min_sample_size should be > 0")
	}
	if cfg.MaxSampleSize <= 0 {
		invalid("max_sample_size should be > 0")
	}
	if cfg.MinSampleSize > cfg.MaxSampleSize {
		invalid("min_sample_size should be <= max_sample_size")
	}
	if cfg.CornerThreshold <= 0 || cfg.CornerThreshold > 255 {
		invalid("corner_threshold should be in (0, 255]")
	}
	if cfg.DescriptorPatchSize < 2 {
		invalid("descriptor_patch_size should be >= 2")
	}
	if cfg.MinSizeDelta <= 0 {
		invalid("min_size_delta should be > 0")
	}
	if cfg.MaxNeighbors < 0 {
		invalid("max_neighbors should be >= 0")
	}
	if cfg.EfSearch < 0 {
		invalid("ef_search should be >= 0")
	}
	return errs
}

// indexConfig returns the match index parameters, leaving unset ones to the index defaults.
func (cfg *Config) indexConfig() ann.HNSWConfig {
	return ann.HNSWConfig{M: cfg.MaxNeighbors, EfSearch: cfg.EfSearch}
}

// SampleScale returns the downscale factor applied across the scroll axis during feature
// extraction, in (0, 1].
func (cfg *Config) SampleScale() float64 {
	side := float64(cfg.Axis.across(cfg.FrameWidth, cfg.FrameHeight))
	target := utils.ClampFloat(side*cfg.SampleRate, float64(cfg.MinSampleSize), float64(cfg.MaxSampleSize))
	return utils.ClampFloat(target/side, math.SmallestNonzeroFloat64, 1)
}

// sampledAcross returns the across-axis size of the feature image.
func (cfg *Config) sampledAcross() int {
	side := cfg.Axis.across(cfg.FrameWidth, cfg.FrameHeight)
	return utils.MaxInt(1, int(math.Round(float64(side)*cfg.SampleScale())))
}
