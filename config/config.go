/*
DESCRIPTION
  config.go defines the configuration shared by the indexer and the
  locator: windowing parameters, matching thresholds, raw RGB frame
  geometry and search concurrency. Fields left at zero are defaulted by
  Validate, which logs each correction.

AUTHORS
  Saxon A. Nelson-Milton <saxon@ausocean.org>
  Trek Hopton <trek@ausocean.org>

LICENSE
  Copyright (C) 2024 the Australian Ocean Lab (AusOcean). All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/

// Package config provides configuration for the clip locator pipeline.
package config

import (
	"os"

	"github.com/ausocean/utils/logging"
	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

// Defaults applied by Validate.
const (
	defaultIndexDir         = "index"
	defaultSegmentLength    = 3.0
	defaultOverlapFraction  = 0.3
	defaultShotThreshold    = 0.5
	defaultFrameThreshold   = 0.95
	defaultAcceptDistance   = 5
	defaultMaxKeyFrames     = 120
	defaultRGBWidth         = 352
	defaultRGBHeight        = 288
	defaultSequentialProbes = 2
	defaultWorkers          = 4
)

// Config holds the parameters of the indexing and search pipelines. The
// same windowing parameters must be used at index and query time for the
// segment hashes to be comparable.
type Config struct {
	// Logger is used by all components for event logging.
	Logger logging.Logger `yaml:"-"`

	// IndexDir is the directory holding persisted index records.
	IndexDir string `yaml:"index_dir"`

	// Videos lists the source video paths of the corpus, for the indexer.
	Videos []string `yaml:"videos"`

	// SegmentLength is the segment hash window length in seconds.
	SegmentLength float64 `yaml:"segment_length"`

	// OverlapFraction is the fraction of a window shared with its successor.
	OverlapFraction float64 `yaml:"overlap_fraction"`

	// ShotThreshold is the histogram correlation below which adjacent frames
	// are treated as belonging to different shots.
	ShotThreshold float64 `yaml:"shot_threshold"`

	// FrameThreshold is the histogram correlation at or above which a clip
	// key frame is considered to match a source frame.
	FrameThreshold float64 `yaml:"frame_threshold"`

	// AcceptDistance short-circuits the coarse ranker's inner scan once a
	// Hamming distance strictly below it is seen.
	AcceptDistance int `yaml:"accept_distance"`

	// MaxKeyFrames sets the sampling step for a query clip's evenly spaced
	// key frames: every (frame count / MaxKeyFrames)-th frame, at least every
	// frame. The resulting count is not capped at MaxKeyFrames and can reach
	// just under twice its value.
	MaxKeyFrames int `yaml:"max_key_frames"`

	// RGBWidth and RGBHeight are the frame dimensions of the raw RGB
	// companion files.
	RGBWidth  int `yaml:"rgb_width"`
	RGBHeight int `yaml:"rgb_height"`

	// RGBVerification enables byte-exact first-frame confirmation against
	// the raw RGB companions.
	RGBVerification bool `yaml:"rgb_verification"`

	// SequentialProbes is the number of top-ranked candidates probed
	// sequentially before the remainder is dispatched to the worker pool.
	SequentialProbes int `yaml:"sequential_probes"`

	// Workers bounds the fine locator worker pool.
	Workers int `yaml:"workers"`
}

// Validate fills invalid or unset fields with their defaults, logging each
// corrected field, and reports unrecoverable problems.
func (c *Config) Validate() error {
	if c.Logger == nil {
		return errors.New("no logger set in config")
	}
	if c.IndexDir == "" {
		c.LogInvalidField("IndexDir", defaultIndexDir)
		c.IndexDir = defaultIndexDir
	}
	if c.SegmentLength <= 0 {
		c.LogInvalidField("SegmentLength", defaultSegmentLength)
		c.SegmentLength = defaultSegmentLength
	}
	if c.OverlapFraction <= 0 || c.OverlapFraction >= 1 {
		c.LogInvalidField("OverlapFraction", defaultOverlapFraction)
		c.OverlapFraction = defaultOverlapFraction
	}
	if c.ShotThreshold == 0 || c.ShotThreshold <= -1 || c.ShotThreshold >= 1 {
		c.LogInvalidField("ShotThreshold", defaultShotThreshold)
		c.ShotThreshold = defaultShotThreshold
	}
	if c.FrameThreshold <= 0 || c.FrameThreshold > 1 {
		c.LogInvalidField("FrameThreshold", defaultFrameThreshold)
		c.FrameThreshold = defaultFrameThreshold
	}
	if c.AcceptDistance <= 0 {
		c.LogInvalidField("AcceptDistance", defaultAcceptDistance)
		c.AcceptDistance = defaultAcceptDistance
	}
	if c.MaxKeyFrames <= 0 {
		c.LogInvalidField("MaxKeyFrames", defaultMaxKeyFrames)
		c.MaxKeyFrames = defaultMaxKeyFrames
	}
	if c.RGBWidth <= 0 {
		c.LogInvalidField("RGBWidth", defaultRGBWidth)
		c.RGBWidth = defaultRGBWidth
	}
	if c.RGBHeight <= 0 {
		c.LogInvalidField("RGBHeight", defaultRGBHeight)
		c.RGBHeight = defaultRGBHeight
	}
	if c.SequentialProbes <= 0 {
		c.LogInvalidField("SequentialProbes", defaultSequentialProbes)
		c.SequentialProbes = defaultSequentialProbes
	}
	if c.Workers <= 0 {
		c.LogInvalidField("Workers", defaultWorkers)
		c.Workers = defaultWorkers
	}
	return nil
}

// LogInvalidField logs that a field was bad or unset and has been defaulted.
func (c *Config) LogInvalidField(name string, def interface{}) {
	c.Logger.Info(name+" bad or unset, defaulting", name, def)
}

// LoadFile reads a YAML configuration/manifest file into c. Fields absent
// from the file are left untouched, so defaults still apply via Validate.
func (c *Config) LoadFile(path string) error {
	b, err := os.ReadFile(path)
	if err != nil {
		return errors.Wrapf(err, "could not read config file %s", path)
	}
	if err := yaml.Unmarshal(b, c); err != nil {
		return errors.Wrapf(err, "could not parse config file %s", path)
	}
	return nil
}
