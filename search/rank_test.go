/*
DESCRIPTION
  rank_test.go provides testing for the coarse ranker's ordering and
  tie-breaking.

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
	"testing"

	"github.com/google/go-cmp/cmp"
	"pgregory.net/rapid"
)

const acceptDistance = 5

func TestRank(t *testing.T) {
	const h = uint64(0xcafef00ddeadbeef)

	tests := []struct {
		name   string
		clip   []uint64
		corpus map[string][]uint64
		want   []Candidate
	}{
		{
			name: "nearest first",
			clip: []uint64{h},
			corpus: map[string][]uint64{
				"A": {h},
				"B": {h ^ 1},
			},
			want: []Candidate{{ID: "A", Distance: 0}, {ID: "B", Distance: 1}},
		},
		{
			name: "ties broken by id",
			clip: []uint64{h},
			corpus: map[string][]uint64{
				"C": {h ^ 1},
				"A": {h ^ 3},
				"B": {h ^ 6},
			},
			want: []Candidate{{ID: "C", Distance: 1}, {ID: "A", Distance: 2}, {ID: "B", Distance: 2}},
		},
		{
			name: "empty source skipped",
			clip: []uint64{h},
			corpus: map[string][]uint64{
				"A": {h},
				"B": {},
			},
			want: []Candidate{{ID: "A", Distance: 0}},
		},
		{
			name:   "empty clip yields nothing",
			clip:   nil,
			corpus: map[string][]uint64{"A": {h}},
			want:   []Candidate{},
		},
		{
			name: "min over all pairs",
			clip: []uint64{h, h ^ 0xff},
			corpus: map[string][]uint64{
				"A": {h ^ 0xffff, h ^ 0xf0},
			},
			want: []Candidate{{ID: "A", Distance: 4}},
		},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			got := Rank(test.clip, test.corpus, acceptDistance)
			if diff := cmp.Diff(test.want, got); diff != "" {
				t.Errorf("unexpected ranking (-want +got):\n%s", diff)
			}
		})
	}
}

func TestRankOrderingProperties(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		clip := rapid.SliceOfN(rapid.Uint64(), 1, 8).Draw(t, "clip")
		nSrc := rapid.IntRange(1, 10).Draw(t, "nSrc")

		corpus := make(map[string][]uint64, nSrc)
		for i := 0; i < nSrc; i++ {
			id := string(rune('A' + i))
			corpus[id] = rapid.SliceOfN(rapid.Uint64(), 1, 8).Draw(t, id)
		}

		cands := Rank(clip, corpus, acceptDistance)
		if len(cands) != nSrc {
			t.Fatalf("ranked %d candidates, want %d", len(cands), nSrc)
		}
		for i := 1; i < len(cands); i++ {
			prev, cur := cands[i-1], cands[i]
			if cur.Distance < prev.Distance {
				t.Fatalf("ranking not ascending: %v before %v", prev, cur)
			}
			if cur.Distance == prev.Distance && cur.ID < prev.ID {
				t.Fatalf("tie not broken by id: %v before %v", prev, cur)
			}
		}
	})
}
