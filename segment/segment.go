/*
DESCRIPTION
  segment.go produces perceptual segment hashes for a video: the stream is
  cut into fixed-length overlapping windows of luminance frames, and each
  window's per-pixel temporal mean image is perceptually hashed.

AUTHORS
  Trek Hopton <trek@ausocean.org>
  Saxon A. Nelson-Milton <saxon@ausocean.org>

LICENSE
  Copyright (C) 2024 the Australian Ocean Lab (AusOcean). All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/

// Package segment derives overlapping-window perceptual hashes from videos.
package segment

import (
	"fmt"
	"io"
	"math"
	"math/bits"

	"gocv.io/x/gocv"

	"github.com/ausocean/cliplocate/phash"
	"github.com/ausocean/cliplocate/video"
)

// Default windowing parameters. Windows are three seconds long and overlap
// by 30% of their length.
const (
	DefaultLength  = 3.0
	DefaultOverlap = 0.3
)

// window accumulates luminance frames and reports when a window's worth has
// been seen. A window completes when the frame just added has a nonzero
// index that is a multiple of segmentFrames; the last overlapFrames frames
// are then retained to seed the next window.
type window struct {
	segmentFrames int
	overlapFrames int
	width, height int
	frames        [][]byte
	index         uint64
}

func newWindow(fps, length, overlap float64) (*window, error) {
	segmentFrames := int(math.Round(fps * length))
	if segmentFrames <= 0 {
		return nil, fmt.Errorf("window of %v s at %v fps contains no frames", length, fps)
	}
	return &window{
		segmentFrames: segmentFrames,
		overlapFrames: int(math.Round(float64(segmentFrames) * overlap)),
	}, nil
}

// add appends one luminance frame. When the frame completes a window, the
// window's mean image is returned and the buffer is trimmed to the overlap
// tail.
func (w *window) add(gray []byte, width, height int) (mean []byte, full bool, err error) {
	if w.width == 0 {
		w.width, w.height = width, height
	}
	if width != w.width || height != w.height {
		return nil, false, fmt.Errorf("frame resolution changed from %dx%d to %dx%d", w.width, w.height, width, height)
	}

	w.frames = append(w.frames, gray)
	full = w.index != 0 && w.index%uint64(w.segmentFrames) == 0
	w.index++

	if !full {
		return nil, false, nil
	}

	mean = w.mean()
	if w.overlapFrames < len(w.frames) {
		w.frames = append([][]byte(nil), w.frames[len(w.frames)-w.overlapFrames:]...)
	}
	return mean, true, nil
}

// flush returns the mean of any frames still buffered after end of stream.
func (w *window) flush() (mean []byte, ok bool) {
	if len(w.frames) == 0 {
		return nil, false
	}
	return w.mean(), true
}

// mean computes the element-wise arithmetic mean image of the buffered
// frames, truncated back to 8 bits. Accumulation is in float64, summed in
// frame order.
func (w *window) mean() []byte {
	sums := make([]float64, len(w.frames[0]))
	for _, f := range w.frames {
		for i, v := range f {
			sums[i] += float64(v)
		}
	}
	mean := make([]byte, len(sums))
	n := float64(len(w.frames))
	for i, s := range sums {
		mean[i] = byte(s / n)
	}
	return mean
}

// Hashes computes the ordered segment hash list for the video at path.
// Hash positions correspond to window positions in time, and two runs over
// the same source bytes with the same parameters produce identical lists.
func Hashes(path string, length, overlap float64) ([]uint64, error) {
	r, err := video.Open(path)
	if err != nil {
		return nil, err
	}
	defer r.Close()

	w, err := newWindow(r.FPS(), length, overlap)
	if err != nil {
		return nil, fmt.Errorf("video %s: %w", path, err)
	}

	var hashes []uint64
	gray := gocv.NewMat()
	defer gray.Close()

	for {
		f, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("could not read %s frame %d: %w", path, w.index, err)
		}

		gocv.CvtColor(f.Mat, &gray, gocv.ColorRGBToGray)
		width, height := gray.Cols(), gray.Rows()
		plane := gray.ToBytes()
		f.Close()

		mean, full, err := w.add(plane, width, height)
		if err != nil {
			return nil, fmt.Errorf("video %s: %w", path, err)
		}
		if full {
			h, err := phash.FromGray(mean, width, height)
			if err != nil {
				return nil, fmt.Errorf("could not hash %s window ending at frame %d: %w", path, w.index-1, err)
			}
			hashes = append(hashes, h)
		}
	}

	if mean, ok := w.flush(); ok {
		h, err := phash.FromGray(mean, w.width, w.height)
		if err != nil {
			return nil, fmt.Errorf("could not hash %s trailing window: %w", path, err)
		}
		hashes = append(hashes, h)
	}
	return hashes, nil
}

// Distance returns the Hamming distance between two segment hashes.
func Distance(a, b uint64) int { return bits.OnesCount64(a ^ b) }
