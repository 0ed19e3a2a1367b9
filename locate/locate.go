/*
DESCRIPTION
  locate.go implements the fine locator, which finds the exact frame at
  which a query clip starts within one candidate source video. The clip's
  key-frame histogram sequence is slid across the source's shot segments,
  most promising shot first; surviving candidate start frames may then be
  confirmed byte-for-byte against the raw RGB companion files.

AUTHORS
  Saxon A. Nelson-Milton <saxon@ausocean.org>
  Trek Hopton <trek@ausocean.org>
  Russell Stanley <russell@ausocean.org>

LICENSE
  Copyright (C) 2024 the Australian Ocean Lab (AusOcean). All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/

// Package locate finds the starting frame of a query clip within a
// candidate source video.
package locate

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/ausocean/utils/logging"

	"github.com/ausocean/cliplocate/histogram"
	"github.com/ausocean/cliplocate/video"
)

var (
	// ErrNoMatch reports that no shot of the candidate video yielded a
	// confirmed starting frame. It is an outcome, not a failure.
	ErrNoMatch = errors.New("clip not found in candidate video")

	// ErrCancelled reports that the locator observed cancellation between
	// shot scans and stopped early.
	ErrCancelled = errors.New("locate cancelled")
)

// Source is the index-derived view of one candidate source video.
type Source struct {
	ID         string
	Boundaries []uint64
	Histograms []histogram.Histogram
	RGBPath    string
}

// Locator holds the matching parameters for fine location. The zero value
// is not usable; use New.
type Locator struct {
	frameThreshold float64
	rgbWidth       int
	rgbHeight      int
	verifyRGB      bool
	log            logging.Logger
}

// New returns a Locator matching key frames at or above frameThreshold,
// with byte-exact RGB verification of candidates when verifyRGB is set.
// The RGB dimensions describe the raw companion files' frame geometry.
func New(frameThreshold float64, rgbWidth, rgbHeight int, verifyRGB bool, l logging.Logger) *Locator {
	return &Locator{
		frameThreshold: frameThreshold,
		rgbWidth:       rgbWidth,
		rgbHeight:      rgbHeight,
		verifyRGB:      verifyRGB,
		log:            l,
	}
}

// candidate is a start frame whose key-frame walk fully passed, with the
// average similarity across the walk.
type candidate struct {
	index uint64
	sim   float64
}

// Locate returns the frame index of src at which clip starts. Shots are
// probed in similarity-ranked order; within each shot candidate start
// frames are scanned in increasing index order. ErrNoMatch is returned if
// no shot yields a match, ErrCancelled if ctx is done between shot scans.
func (l *Locator) Locate(ctx context.Context, src *Source, clip *Clip) (uint64, error) {
	if len(src.Histograms) == 0 || len(src.Boundaries) == 0 {
		return 0, fmt.Errorf("candidate %s has an empty index record", src.ID)
	}
	if len(clip.Histograms) == 0 {
		return 0, fmt.Errorf("query clip %s has no key frames", clip.Path)
	}

	var clipFirst []byte
	if l.verifyRGB {
		var err error
		clipFirst, err = l.readRGBFrame(clip.RGBPath, 0)
		if err != nil {
			return 0, fmt.Errorf("could not read query clip RGB first frame: %w", err)
		}
	}

	for _, b := range l.rankShots(src, clip) {
		if err := ctx.Err(); err != nil {
			return 0, fmt.Errorf("candidate %s: %w", src.ID, ErrCancelled)
		}

		cands, best := l.scanShot(src, clip, b)
		if !l.verifyRGB {
			if best.sim > 0 {
				return best.index, nil
			}
			continue
		}
		if len(cands) == 0 {
			continue
		}

		sort.SliceStable(cands, func(i, j int) bool { return cands[i].sim > cands[j].sim })
		frame, err := l.verify(src, cands, clipFirst)
		if err == nil {
			return frame, nil
		}
		if !errors.Is(err, ErrNoMatch) {
			return 0, err
		}
	}
	return 0, fmt.Errorf("candidate %s: %w", src.ID, ErrNoMatch)
}

// rankShots orders the source's shot boundaries by the similarity of the
// boundary frame's histogram to the clip's average key-frame histogram,
// descending, so the most promising shot is probed first.
func (l *Locator) rankShots(src *Source, clip *Clip) []int {
	avg := clip.AvgHistogram()
	type ranked struct {
		pos int
		sim float64
	}
	rs := make([]ranked, len(src.Boundaries))
	for i, b := range src.Boundaries {
		rs[i] = ranked{pos: i, sim: histogram.Similarity(avg, src.Histograms[b])}
	}
	sort.SliceStable(rs, func(i, j int) bool { return rs[i].sim > rs[j].sim })

	order := make([]int, len(rs))
	for i, r := range rs {
		order[i] = r.pos
	}
	return order
}

// segmentRange returns the inclusive frame range of the shot whose boundary
// sits at position pos in the ascending boundary list: from the boundary's
// successor frame (or 0 for the first boundary) through the next boundary
// (or the final frame of the table).
func (l *Locator) segmentRange(src *Source, pos int) (start, end uint64) {
	if pos > 0 {
		start = src.Boundaries[pos] + 1
	}
	end = uint64(len(src.Histograms) - 1)
	if pos < len(src.Boundaries)-1 {
		end = src.Boundaries[pos+1]
	}
	return start, end
}

// scanShot walks every candidate start frame of one shot. For each start i
// the clip's key frames are compared against the source histograms at
// i+offset; the walk abandons i as soon as a key frame misses, and i
// becomes a candidate only when every key frame passes. The best candidate
// by average similarity is also tracked for the no-verification decision.
func (l *Locator) scanShot(src *Source, clip *Clip, pos int) ([]candidate, candidate) {
	start, end := l.segmentRange(src, pos)
	var cands []candidate
	best := candidate{sim: 0}

	for i := start; i <= end; i++ {
		var total float64
		matched := 0
		for k, kh := range clip.Histograms {
			si := i + clip.Indices[k]
			if si >= uint64(len(src.Histograms)) {
				break
			}
			sim := histogram.Similarity(kh, src.Histograms[si])
			if sim < l.frameThreshold {
				break
			}
			total += sim
			matched++
		}
		if matched != len(clip.Histograms) {
			continue
		}

		c := candidate{index: i, sim: total / float64(matched)}
		cands = append(cands, c)
		if c.sim > best.sim {
			best = c
		}
	}
	return cands, best
}

// verify confirms candidates byte-for-byte: the first frame of the clip's
// RGB companion must equal the candidate frame of the source's. Candidates
// whose source frame is missing or short are unverifiable and skipped.
// ErrNoMatch is returned when no candidate verifies.
func (l *Locator) verify(src *Source, cands []candidate, clipFirst []byte) (uint64, error) {
	rgb, err := video.OpenRGB(src.RGBPath, l.rgbWidth, l.rgbHeight)
	if err != nil {
		return 0, fmt.Errorf("candidate %s: %w", src.ID, err)
	}
	defer rgb.Close()

	for _, c := range cands {
		frame, err := rgb.ReadFrame(c.index)
		if err != nil {
			if errors.Is(err, video.ErrShortFrame) {
				l.log.Warning("candidate frame unverifiable, skipping", "video", src.ID, "frame", c.index, "error", err.Error())
				continue
			}
			return 0, fmt.Errorf("candidate %s frame %d: %w", src.ID, c.index, err)
		}
		if bytes.Equal(frame, clipFirst) {
			l.log.Debug("exact RGB match", "video", src.ID, "frame", c.index)
			return c.index, nil
		}
	}
	return 0, ErrNoMatch
}

// readRGBFrame reads a single frame from a raw RGB companion file.
func (l *Locator) readRGBFrame(path string, n uint64) ([]byte, error) {
	rgb, err := video.OpenRGB(path, l.rgbWidth, l.rgbHeight)
	if err != nil {
		return nil, err
	}
	defer rgb.Close()
	return rgb.ReadFrame(n)
}
