/*
DESCRIPTION
  histogram.go computes and compares 8x8x8 color histograms over RGB video
  frames. Histograms are L2-normalized on computation so that any two are
  directly comparable by correlation.

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

// Package histogram provides color histogram computation and comparison for
// video frames.
package histogram

import (
	"encoding/binary"
	"fmt"
	"math"

	"gocv.io/x/gocv"
	"gonum.org/v1/gonum/stat"
)

// Histogram geometry. Three channels with 8 bins each give 512 bins total.
const (
	BinsPerChannel = 8
	Bins           = BinsPerChannel * BinsPerChannel * BinsPerChannel
)

// Histogram is a 512-bin color histogram with unit Euclidean norm.
type Histogram []float64

// FromFrame computes the histogram of an RGB frame. All pixels contribute;
// the result is L2-normalized.
func FromFrame(m gocv.Mat) (Histogram, error) {
	if m.Empty() {
		return nil, fmt.Errorf("cannot compute histogram of empty frame")
	}

	hist := gocv.NewMat()
	defer hist.Close()
	mask := gocv.NewMat()
	defer mask.Close()

	gocv.CalcHist(
		[]gocv.Mat{m},
		[]int{0, 1, 2},
		mask,
		&hist,
		[]int{BinsPerChannel, BinsPerChannel, BinsPerChannel},
		[]float64{0, 256, 0, 256, 0, 256},
		false,
	)

	raw := hist.ToBytes()
	if len(raw) != Bins*4 {
		return nil, fmt.Errorf("unexpected histogram size: %d bytes", len(raw))
	}

	h := make(Histogram, Bins)
	for i := range h {
		h[i] = float64(math.Float32frombits(binary.LittleEndian.Uint32(raw[i*4:])))
	}
	return h.normalize(), nil
}

// normalize scales h to unit Euclidean norm in place. An all-zero histogram
// is returned unchanged.
func (h Histogram) normalize() Histogram {
	var ss float64
	for _, v := range h {
		ss += v * v
	}
	if ss == 0 {
		return h
	}
	n := math.Sqrt(ss)
	for i := range h {
		h[i] /= n
	}
	return h
}

// Similarity returns the Pearson correlation of the two histograms, in
// [-1, 1]. Identical histograms score 1. A histogram with zero variance
// has no defined correlation; such pairs score 1, matching OpenCV's
// correlation comparison.
func Similarity(a, b Histogram) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	r := stat.Correlation(a, b, nil)
	if math.IsNaN(r) {
		return 1
	}
	return r
}

// Mean returns the arithmetic mean of the given histograms. Bins are
// accumulated in a single left-to-right pass so the result is reproducible
// regardless of caller parallelism. The mean of normalized histograms is
// not itself renormalized.
func Mean(hs []Histogram) Histogram {
	if len(hs) == 0 {
		return nil
	}
	m := make(Histogram, len(hs[0]))
	for _, h := range hs {
		for i, v := range h {
			m[i] += v
		}
	}
	for i := range m {
		m[i] /= float64(len(hs))
	}
	return m
}
