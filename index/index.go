/*
DESCRIPTION
  index.go defines the per-video index record and the directory-backed
  store that persists records. A record bundles the three structures the
  locator needs for one source video: segment hashes, shot boundaries and
  the per-frame histogram table, all produced from the same source file in
  the same indexing session.

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

// Package index persists and retrieves per-video index records.
package index

import (
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/ausocean/utils/logging"
	"github.com/pkg/errors"

	"github.com/ausocean/cliplocate/histogram"
)

// recordExt is the file extension of persisted records.
const recordExt = ".cvi"

// Record is the persisted unit for one source video. Records are written
// once by the indexer and read many times; re-indexing a video replaces its
// record atomically.
type Record struct {
	Path           string // Source video file path, for RGB companion and fps lookup.
	FPS            float64
	SegmentHashes  []uint64
	ShotBoundaries []uint64
	Histograms     []histogram.Histogram
}

// Validate checks the record's internal consistency: the boundary list must
// be strictly increasing, nonempty, and lie within the histogram table.
func (r *Record) Validate() error {
	if len(r.ShotBoundaries) == 0 {
		return errors.New("empty shot boundary list")
	}
	var prev uint64
	for i, b := range r.ShotBoundaries {
		if i > 0 && b <= prev {
			return errors.Errorf("shot boundaries not strictly increasing at %d", b)
		}
		if b >= uint64(len(r.Histograms)) {
			return errors.Errorf("shot boundary %d outside histogram table of %d frames", b, len(r.Histograms))
		}
		prev = b
	}
	return nil
}

// Store is a directory of record files, one per video identifier.
// Concurrent readers are safe; writers are exclusive per identifier by
// virtue of the atomic file replace.
type Store struct {
	dir string
	log logging.Logger
}

// NewStore opens (creating if needed) a store rooted at dir.
func NewStore(dir string, l logging.Logger) (*Store, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, errors.Wrapf(err, "could not create index directory %s", dir)
	}
	return &Store{dir: dir, log: l}, nil
}

// Dir returns the store's directory.
func (s *Store) Dir() string { return s.dir }

func (s *Store) recordPath(id string) string {
	return filepath.Join(s.dir, url.PathEscape(id)+recordExt)
}

// Put persists the record for id, atomically replacing any existing record.
func (s *Store) Put(id string, rec *Record) error {
	if err := rec.Validate(); err != nil {
		return errors.Wrapf(err, "invalid record for %s", id)
	}

	dst := s.recordPath(id)
	tmp, err := os.CreateTemp(s.dir, url.PathEscape(id)+".tmp*")
	if err != nil {
		return errors.Wrapf(err, "could not create temp record for %s", id)
	}

	err = encodeRecord(tmp, id, rec)
	if err == nil {
		err = tmp.Sync()
	}
	if cerr := tmp.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		os.Remove(tmp.Name())
		return errors.Wrapf(err, "could not write record for %s", id)
	}

	if err := os.Rename(tmp.Name(), dst); err != nil {
		os.Remove(tmp.Name())
		return errors.Wrapf(err, "could not replace record for %s", id)
	}
	return nil
}

// Get loads the record for a single video identifier.
func (s *Store) Get(id string) (*Record, error) {
	f, err := os.Open(s.recordPath(id))
	if err != nil {
		return nil, errors.Wrapf(err, "no index record for %s", id)
	}
	defer f.Close()

	gotID, rec, err := decodeRecord(f)
	if err != nil {
		return nil, errors.Wrapf(err, "corrupt index record for %s", id)
	}
	if gotID != id {
		return nil, errors.Errorf("index record for %s holds id %s", id, gotID)
	}
	return rec, nil
}

// GetAll loads every readable record in the store. Corrupt or truncated
// record files are skipped with a warning rather than failing the load, so
// one bad entry cannot take the whole corpus offline.
func (s *Store) GetAll() (map[string]*Record, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, errors.Wrapf(err, "could not read index directory %s", s.dir)
	}

	recs := make(map[string]*Record)
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), recordExt) {
			continue
		}

		f, err := os.Open(filepath.Join(s.dir, e.Name()))
		if err != nil {
			s.log.Warning("could not open index record, skipping", "file", e.Name(), "error", err.Error())
			continue
		}
		id, rec, err := decodeRecord(f)
		f.Close()
		if err != nil {
			s.log.Warning("corrupt index record, skipping", "file", e.Name(), "error", err.Error())
			continue
		}
		if err := rec.Validate(); err != nil {
			s.log.Warning("inconsistent index record, skipping", "file", e.Name(), "error", err.Error())
			continue
		}
		recs[id] = rec
	}
	return recs, nil
}
