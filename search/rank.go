/*
DESCRIPTION
  rank.go coarse-ranks corpus videos against a query clip by the minimum
  Hamming distance between any clip segment hash and any source segment
  hash.

AUTHORS
  Trek Hopton <trek@ausocean.org>

LICENSE
  Copyright (C) 2024 the Australian Ocean Lab (AusOcean). All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/

package search

import (
	"math"
	"sort"

	"github.com/ausocean/cliplocate/segment"
)

// Candidate is one corpus video with its minimum segment-hash Hamming
// distance to the query clip.
type Candidate struct {
	ID       string
	Distance int
}

// Rank returns the corpus videos ordered by ascending minimum Hamming
// distance between any pair of clip and source segment hashes. The scan of
// a source short-circuits once a distance strictly below accept is found.
// Ties are broken by ID in lexicographic order so rankings are
// reproducible. Sources with no segment hashes are skipped.
func Rank(clipHashes []uint64, corpus map[string][]uint64, accept int) []Candidate {
	cands := make([]Candidate, 0, len(corpus))
	for id, srcHashes := range corpus {
		if len(clipHashes) == 0 || len(srcHashes) == 0 {
			continue
		}

		min := math.MaxInt
	scan:
		for _, ch := range clipHashes {
			for _, sh := range srcHashes {
				d := segment.Distance(ch, sh)
				if d < min {
					min = d
				}
				if d < accept {
					break scan
				}
			}
		}
		cands = append(cands, Candidate{ID: id, Distance: min})
	}

	sort.Slice(cands, func(i, j int) bool {
		if cands[i].Distance != cands[j].Distance {
			return cands[i].Distance < cands[j].Distance
		}
		return cands[i].ID < cands[j].ID
	})
	return cands
}
