/*
DESCRIPTION
  index_test.go provides testing for record validation, the on-disk
  encoding and the directory store.

AUTHORS
  Saxon A. Nelson-Milton <saxon@ausocean.org>

LICENSE
  Copyright (C) 2024 the Australian Ocean Lab (AusOcean). All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/

package index

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/ausocean/cliplocate/histogram"
)

func testRecord() *Record {
	h1 := make(histogram.Histogram, histogram.Bins)
	h2 := make(histogram.Histogram, histogram.Bins)
	h3 := make(histogram.Histogram, histogram.Bins)
	h1[0], h2[100], h3[511] = 1, 0.5, 0.25

	return &Record{
		Path:           "videos/video7.mp4",
		FPS:            30,
		SegmentHashes:  []uint64{0xdeadbeefcafef00d, 0, ^uint64(0)},
		ShotBoundaries: []uint64{0, 2},
		Histograms:     []histogram.Histogram{h1, h2, h3},
	}
}

func TestRecordRoundTrip(t *testing.T) {
	want := testRecord()

	var buf bytes.Buffer
	if err := encodeRecord(&buf, "videos/video7", want); err != nil {
		t.Fatalf("encode failed: %v", err)
	}

	id, got, err := decodeRecord(&buf)
	if err != nil {
		t.Fatalf("decode failed: %v", err)
	}
	if id != "videos/video7" {
		t.Errorf("decoded id %q, want %q", id, "videos/video7")
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("record did not round-trip (-want +got):\n%s", diff)
	}
}

func TestDecodeBadMagic(t *testing.T) {
	if _, _, err := decodeRecord(bytes.NewReader([]byte("NOPE, not a record"))); err == nil {
		t.Error("expected error decoding bad magic")
	}
}

func TestDecodeTruncated(t *testing.T) {
	var buf bytes.Buffer
	if err := encodeRecord(&buf, "v", testRecord()); err != nil {
		t.Fatalf("encode failed: %v", err)
	}
	b := buf.Bytes()
	if _, _, err := decodeRecord(bytes.NewReader(b[:len(b)/2])); err == nil {
		t.Error("expected error decoding truncated record")
	}
}

func TestRecordValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Record)
		wantErr bool
	}{
		{name: "valid", mutate: func(r *Record) {}},
		{name: "empty boundaries", mutate: func(r *Record) { r.ShotBoundaries = nil }, wantErr: true},
		{name: "decreasing boundaries", mutate: func(r *Record) { r.ShotBoundaries = []uint64{2, 1} }, wantErr: true},
		{name: "duplicate boundaries", mutate: func(r *Record) { r.ShotBoundaries = []uint64{1, 1} }, wantErr: true},
		{name: "boundary out of range", mutate: func(r *Record) { r.ShotBoundaries = []uint64{3} }, wantErr: true},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			r := testRecord()
			test.mutate(r)
			err := r.Validate()
			if test.wantErr && err == nil {
				t.Error("expected validation error")
			}
			if !test.wantErr && err != nil {
				t.Errorf("unexpected validation error: %v", err)
			}
		})
	}
}

func TestStorePutGetAll(t *testing.T) {
	st, err := NewStore(t.TempDir(), (*testLogger)(t))
	if err != nil {
		t.Fatalf("could not create store: %v", err)
	}

	want := map[string]*Record{
		"videos/video1": testRecord(),
		"videos/video2": testRecord(),
	}
	want["videos/video2"].SegmentHashes = []uint64{42}

	for id, rec := range want {
		if err := st.Put(id, rec); err != nil {
			t.Fatalf("could not put %s: %v", id, err)
		}
	}

	got, err := st.GetAll()
	if err != nil {
		t.Fatalf("could not get all: %v", err)
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("store did not round-trip (-want +got):\n%s", diff)
	}
}

func TestStoreGet(t *testing.T) {
	st, err := NewStore(t.TempDir(), (*testLogger)(t))
	if err != nil {
		t.Fatalf("could not create store: %v", err)
	}
	want := testRecord()
	if err := st.Put("v", want); err != nil {
		t.Fatalf("could not put: %v", err)
	}

	got, err := st.Get("v")
	if err != nil {
		t.Fatalf("could not get: %v", err)
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("record did not round-trip (-want +got):\n%s", diff)
	}

	if _, err := st.Get("missing"); err == nil {
		t.Error("expected error for missing record")
	}
}

// TestStoreReplace checks that a second Put for the same id atomically
// replaces the first record.
func TestStoreReplace(t *testing.T) {
	st, err := NewStore(t.TempDir(), (*testLogger)(t))
	if err != nil {
		t.Fatalf("could not create store: %v", err)
	}

	first := testRecord()
	if err := st.Put("v", first); err != nil {
		t.Fatalf("could not put first record: %v", err)
	}

	second := testRecord()
	second.SegmentHashes = []uint64{1, 2, 3}
	if err := st.Put("v", second); err != nil {
		t.Fatalf("could not replace record: %v", err)
	}

	got, err := st.GetAll()
	if err != nil {
		t.Fatalf("could not get all: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("store holds %d records after replace, want 1", len(got))
	}
	if diff := cmp.Diff(second, got["v"]); diff != "" {
		t.Errorf("replace did not take (-want +got):\n%s", diff)
	}
}

// TestStoreSkipsCorrupt checks that a corrupt record file is skipped by
// GetAll rather than failing the whole load.
func TestStoreSkipsCorrupt(t *testing.T) {
	dir := t.TempDir()
	st, err := NewStore(dir, (*testLogger)(t))
	if err != nil {
		t.Fatalf("could not create store: %v", err)
	}
	if err := st.Put("good", testRecord()); err != nil {
		t.Fatalf("could not put: %v", err)
	}
	if err := os.WriteFile(filepath.Join(dir, "bad"+recordExt), []byte("garbage"), 0644); err != nil {
		t.Fatalf("could not write corrupt record: %v", err)
	}

	got, err := st.GetAll()
	if err != nil {
		t.Fatalf("could not get all: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("store holds %d records, want 1 (corrupt skipped)", len(got))
	}
	if _, ok := got["good"]; !ok {
		t.Error("good record missing after corrupt skip")
	}
}

func TestStoreInvalidPut(t *testing.T) {
	st, err := NewStore(t.TempDir(), (*testLogger)(t))
	if err != nil {
		t.Fatalf("could not create store: %v", err)
	}
	bad := testRecord()
	bad.ShotBoundaries = nil
	if err := st.Put("v", bad); err == nil {
		t.Error("expected error putting invalid record")
	}
}
