/*
DESCRIPTION
  phash.go derives 64-bit perceptual hashes from grayscale images. The hash
  is built from the low-frequency block of the 2-D DCT of a 32x32 downscale,
  thresholded at the median, so it changes slowly under small visual
  perturbations.

AUTHORS
  Trek Hopton <trek@ausocean.org>
  Russell Stanley <russell@ausocean.org>

LICENSE
  Copyright (C) 2024 the Australian Ocean Lab (AusOcean). All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/

// Package phash provides 64-bit perceptual image hashing.
package phash

import (
	"image"
	"math"
	"math/bits"
	"sort"

	"github.com/pkg/errors"
	"gocv.io/x/gocv"
	"gonum.org/v1/gonum/mat"
)

// tileSize is the side length of the downscaled image the DCT runs over,
// and blockSize the side length of the retained low-frequency block.
const (
	tileSize  = 32
	blockSize = 8
)

// dctBasis is the orthonormal DCT-II basis matrix for tileSize, computed
// once. The 2-D transform of a tile A is dctBasis * A * dctBasisᵀ.
var dctBasis = newDCTBasis()

func newDCTBasis() *mat.Dense {
	t := mat.NewDense(tileSize, tileSize, nil)
	for i := 0; i < tileSize; i++ {
		c := math.Sqrt(2.0 / tileSize)
		if i == 0 {
			c = math.Sqrt(1.0 / tileSize)
		}
		for j := 0; j < tileSize; j++ {
			t.Set(i, j, c*math.Cos((2*float64(j)+1)*float64(i)*math.Pi/(2*tileSize)))
		}
	}
	return t
}

// FromGray hashes a tightly packed single-channel grayscale image of the
// given dimensions. The image is downscaled to 32x32 with area
// interpolation before transforming.
func FromGray(pix []byte, width, height int) (uint64, error) {
	if len(pix) != width*height {
		return 0, errors.Errorf("grayscale buffer size %d does not match %dx%d", len(pix), width, height)
	}

	m, err := gocv.NewMatFromBytes(height, width, gocv.MatTypeCV8U, pix)
	if err != nil {
		return 0, errors.Wrap(err, "could not wrap grayscale buffer")
	}
	defer m.Close()

	tile := gocv.NewMat()
	defer tile.Close()
	gocv.Resize(m, &tile, image.Pt(tileSize, tileSize), 0, 0, gocv.InterpolationArea)

	d := mat.NewDense(tileSize, tileSize, nil)
	raw := tile.ToBytes()
	for r := 0; r < tileSize; r++ {
		for c := 0; c < tileSize; c++ {
			d.Set(r, c, float64(raw[r*tileSize+c]))
		}
	}
	return fromTile(d), nil
}

// fromTile hashes a 32x32 intensity tile. The tile is transformed with the
// 2-D DCT-II; the top-left 8x8 low-frequency block is kept and each
// coefficient maps to one bit, 1 where the coefficient is at least the
// median of the block's 63 non-DC coefficients. Bits are packed row-major,
// most significant first.
func fromTile(tile *mat.Dense) uint64 {
	var tmp, freq mat.Dense
	tmp.Mul(dctBasis, tile)
	freq.Mul(&tmp, dctBasis.T())

	block := make([]float64, 0, blockSize*blockSize)
	for r := 0; r < blockSize; r++ {
		for c := 0; c < blockSize; c++ {
			block = append(block, freq.At(r, c))
		}
	}

	// Median over the block excluding the DC term.
	ac := append([]float64(nil), block[1:]...)
	sort.Float64s(ac)
	med := ac[len(ac)/2]

	var hash uint64
	for i, v := range block {
		if v >= med {
			hash |= 1 << (63 - i)
		}
	}
	return hash
}

// Distance returns the Hamming distance between two hashes.
func Distance(a, b uint64) int { return bits.OnesCount64(a ^ b) }
