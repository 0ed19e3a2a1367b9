/*
DESCRIPTION
  shot.go detects shot boundaries in a video by scanning for frames whose
  color histogram correlates poorly with the previous frame's, and records
  the per-frame histogram table as a side product of the same pass.

AUTHORS
  Saxon A. Nelson-Milton <saxon@ausocean.org>
  Russell Stanley <russell@ausocean.org>

LICENSE
  Copyright (C) 2024 the Australian Ocean Lab (AusOcean). All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/

// Package shot detects shot boundaries in videos.
package shot

import (
	"fmt"
	"io"

	"github.com/ausocean/cliplocate/histogram"
	"github.com/ausocean/cliplocate/video"
)

// DefaultThreshold is the histogram correlation below which two adjacent
// frames are considered to belong to different shots.
const DefaultThreshold = 0.5

// Segmenter consumes per-frame histograms and accumulates the boundary list
// and histogram table. The zero value is not usable; use NewSegmenter.
type Segmenter struct {
	threshold  float64
	prev       histogram.Histogram
	table      []histogram.Histogram
	boundaries []uint64
}

// NewSegmenter returns a Segmenter using the given similarity threshold.
func NewSegmenter(threshold float64) *Segmenter {
	return &Segmenter{threshold: threshold}
}

// Feed appends the next frame's histogram to the table, recording the
// frame's 0-based index as a shot boundary when its similarity to the
// previous frame falls below the threshold.
func (s *Segmenter) Feed(h histogram.Histogram) {
	idx := uint64(len(s.table))
	s.table = append(s.table, h)
	if s.prev != nil && histogram.Similarity(s.prev, h) < s.threshold {
		s.boundaries = append(s.boundaries, idx)
	}
	s.prev = h
}

// Result returns the boundary list and histogram table. The boundary list
// is strictly increasing and, once at least one frame has been fed, never
// empty: if no discontinuity was detected it is seeded with frame 0, so
// downstream code always has a segment to examine. With no frames fed both
// results are empty.
func (s *Segmenter) Result() (boundaries []uint64, table []histogram.Histogram) {
	if len(s.boundaries) == 0 && len(s.table) > 0 {
		return []uint64{0}, s.table
	}
	return s.boundaries, s.table
}

// Segment runs a single pass over the video at path and returns its shot
// boundary list and per-frame histogram table.
func Segment(path string, threshold float64) (boundaries []uint64, table []histogram.Histogram, err error) {
	r, err := video.Open(path)
	if err != nil {
		return nil, nil, err
	}
	defer r.Close()

	seg := NewSegmenter(threshold)
	for {
		f, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, nil, fmt.Errorf("could not read %s frame %d: %w", path, len(seg.table), err)
		}

		h, err := histogram.FromFrame(f.Mat)
		f.Close()
		if err != nil {
			return nil, nil, fmt.Errorf("could not compute histogram of %s frame %d: %w", path, len(seg.table), err)
		}
		seg.Feed(h)
	}

	boundaries, table = seg.Result()
	return boundaries, table, nil
}
