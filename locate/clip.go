/*
DESCRIPTION
  clip.go extracts the query clip's key frames: evenly spaced sample frames
  whose histograms drive the fine locator.

AUTHORS
  Trek Hopton <trek@ausocean.org>

LICENSE
  Copyright (C) 2024 the Australian Ocean Lab (AusOcean). All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/

package locate

import (
	"fmt"
	"io"

	"github.com/ausocean/cliplocate/histogram"
	"github.com/ausocean/cliplocate/video"
)

// Clip is the locator's view of a query clip: the histograms of its key
// frames, the key frames' 0-based indices within the clip, and the path of
// its raw RGB companion.
type Clip struct {
	Path       string
	RGBPath    string
	Histograms []histogram.Histogram
	Indices    []uint64

	avg histogram.Histogram
}

// ExtractClip decodes the clip at path and samples evenly spaced key
// frames: with step = max(1, total/maxKeyFrames), frame i is a key frame
// when i is zero or a multiple of step. The count is not capped at
// maxKeyFrames; a clip of at least maxKeyFrames frames yields from
// maxKeyFrames to just under twice as many. A histogram is computed per key
// frame.
func ExtractClip(path, rgbPath string, maxKeyFrames int) (*Clip, error) {
	r, err := video.Open(path)
	if err != nil {
		return nil, err
	}
	defer r.Close()

	step := r.FrameCount() / uint64(maxKeyFrames)
	if step == 0 {
		step = 1
	}

	c := &Clip{Path: path, RGBPath: rgbPath}
	for {
		f, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("could not read clip %s: %w", path, err)
		}

		if f.Index%step == 0 {
			h, err := histogram.FromFrame(f.Mat)
			if err != nil {
				f.Close()
				return nil, fmt.Errorf("could not compute histogram of clip %s frame %d: %w", path, f.Index, err)
			}
			c.Histograms = append(c.Histograms, h)
			c.Indices = append(c.Indices, f.Index)
		}
		f.Close()
	}

	if len(c.Histograms) == 0 {
		return nil, fmt.Errorf("clip %s yielded no key frames", path)
	}
	return c, nil
}

// AvgHistogram returns the arithmetic mean of the clip's key-frame
// histograms, computed once and cached.
func (c *Clip) AvgHistogram() histogram.Histogram {
	if c.avg == nil {
		c.avg = histogram.Mean(c.Histograms)
	}
	return c.avg
}

// FirstHistogram returns the histogram of the clip's first key frame.
func (c *Clip) FirstHistogram() histogram.Histogram { return c.Histograms[0] }
