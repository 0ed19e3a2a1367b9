/*
DESCRIPTION
  search.go drives the online matching pipeline: the query clip is segment
  hashed, corpus videos are coarse-ranked by hash distance, and the fine
  locator is run over candidates, first sequentially on the top ranks and
  then concurrently on the remainder with a bounded worker pool. The first
  confirmed match wins; ties between concurrent successes are resolved in
  favor of the better coarse rank.

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

// Package search locates query clips within an indexed corpus of videos.
package search

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/ausocean/utils/logging"

	"github.com/ausocean/cliplocate/config"
	"github.com/ausocean/cliplocate/index"
	"github.com/ausocean/cliplocate/locate"
	"github.com/ausocean/cliplocate/segment"
	"github.com/ausocean/cliplocate/video"
)

// ErrNoMatch reports that no corpus video contains the query clip. It is an
// outcome, not a failure.
var ErrNoMatch = errors.New("clip not found in corpus")

// Match is the result of a successful search.
type Match struct {
	ID         string
	StartFrame uint64
	FPS        float64 // Source frame rate, for timestamp rendering.
}

// locateFunc runs the fine locator on one candidate. It is a field on
// Searcher so tests can substitute a stub.
type locateFunc func(ctx context.Context, src *locate.Source, clip *locate.Clip) (uint64, error)

// Searcher runs searches against a loaded corpus index. The corpus may be
// swapped while searches run; each search works on the snapshot taken at
// its start.
type Searcher struct {
	cfg config.Config
	log logging.Logger

	// Pipeline stages, held as fields so tests can substitute stubs.
	locate  locateFunc
	hash    func(path string, length, overlap float64) ([]uint64, error)
	extract func(path, rgbPath string, maxKeyFrames int) (*locate.Clip, error)

	mu     sync.RWMutex
	corpus map[string]*index.Record
}

// New returns a Searcher over the given corpus. The config is validated,
// with invalid fields defaulted.
func New(cfg config.Config, corpus map[string]*index.Record) (*Searcher, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("could not validate config: %w", err)
	}
	loc := locate.New(cfg.FrameThreshold, cfg.RGBWidth, cfg.RGBHeight, cfg.RGBVerification, cfg.Logger)
	return &Searcher{
		cfg:     cfg,
		log:     cfg.Logger,
		locate:  loc.Locate,
		hash:    segment.Hashes,
		extract: locate.ExtractClip,
		corpus:  corpus,
	}, nil
}

// SetCorpus replaces the corpus, e.g. after an index reload. In-flight
// searches continue on the corpus they started with.
func (s *Searcher) SetCorpus(corpus map[string]*index.Record) {
	s.mu.Lock()
	s.corpus = corpus
	s.mu.Unlock()
}

func (s *Searcher) snapshot() map[string]*index.Record {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.corpus
}

// result carries one candidate's outcome back to the orchestrator.
type result struct {
	rank  int
	frame uint64
	ok    bool
}

// Search locates the clip at clipPath within the corpus. An unreadable
// query clip is fatal; failures on individual candidates are logged and
// skipped. ErrNoMatch is returned when no candidate confirms.
func (s *Searcher) Search(clipPath, clipRGBPath string) (*Match, error) {
	corpus := s.snapshot()
	start := time.Now()

	clipHashes, err := s.hash(clipPath, s.cfg.SegmentLength, s.cfg.OverlapFraction)
	if err != nil {
		return nil, fmt.Errorf("could not hash query clip: %w", err)
	}

	corpusHashes := make(map[string][]uint64, len(corpus))
	for id, rec := range corpus {
		corpusHashes[id] = rec.SegmentHashes
	}
	cands := Rank(clipHashes, corpusHashes, s.cfg.AcceptDistance)
	s.log.Info("coarse ranking complete", "clip", clipPath, "candidates", len(cands), "elapsed", time.Since(start).String())
	if len(cands) == 0 {
		return nil, ErrNoMatch
	}

	clip, err := s.extract(clipPath, clipRGBPath, s.cfg.MaxKeyFrames)
	if err != nil {
		return nil, fmt.Errorf("could not extract query clip key frames: %w", err)
	}
	s.log.Debug("key frames extracted", "clip", clipPath, "count", len(clip.Histograms))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Probe the best-ranked candidates one at a time; most searches end here.
	head := s.cfg.SequentialProbes
	if head > len(cands) {
		head = len(cands)
	}
	for rank := 0; rank < head; rank++ {
		if r := s.probe(ctx, rank, cands[rank], corpus, clip); r.ok {
			return s.match(cands[r.rank].ID, r.frame, corpus, start)
		}
		s.log.Info("clip not in candidate, trying next", "video", cands[rank].ID)
	}
	if head == len(cands) {
		return nil, ErrNoMatch
	}

	// Dispatch the remainder to the worker pool. Workers share a
	// cancellation context which the first success trips; a cancelled
	// worker's outcome is not a failure.
	s.log.Info("no match in top candidates, switching to parallel search")

	jobs := make(chan int)
	results := make(chan result)
	var wg sync.WaitGroup

	for w := 0; w < s.cfg.Workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for rank := range jobs {
				if ctx.Err() != nil {
					return
				}
				results <- s.probe(ctx, rank, cands[rank], corpus, clip)
			}
		}()
	}

	go func() {
		defer close(jobs)
		for rank := head; rank < len(cands); rank++ {
			select {
			case jobs <- rank:
			case <-ctx.Done():
				return
			}
		}
	}()

	go func() {
		wg.Wait()
		close(results)
	}()

	// The first success cancels the pool; any further successes already in
	// flight are collected and the better coarse rank wins.
	best := result{rank: -1}
	for r := range results {
		if !r.ok {
			continue
		}
		if best.rank < 0 || r.rank < best.rank {
			best = r
		}
		cancel()
	}
	if best.rank < 0 {
		return nil, ErrNoMatch
	}
	return s.match(cands[best.rank].ID, best.frame, corpus, start)
}

// probe runs the fine locator on one ranked candidate. Any failure other
// than a clean no-match is logged and reported as not-ok, skipping the
// candidate without failing the search.
func (s *Searcher) probe(ctx context.Context, rank int, cand Candidate, corpus map[string]*index.Record, clip *locate.Clip) result {
	rec, ok := corpus[cand.ID]
	if !ok {
		s.log.Warning("no index record for ranked candidate, skipping", "video", cand.ID)
		return result{rank: rank}
	}

	src := &locate.Source{
		ID:         cand.ID,
		Boundaries: rec.ShotBoundaries,
		Histograms: rec.Histograms,
		RGBPath:    video.CompanionPath(rec.Path),
	}

	frame, err := s.locate(ctx, src, clip)
	switch {
	case err == nil:
		return result{rank: rank, frame: frame, ok: true}
	case errors.Is(err, locate.ErrNoMatch):
	case errors.Is(err, locate.ErrCancelled):
		s.log.Debug("candidate search cancelled", "video", cand.ID)
	default:
		s.log.Error("could not search candidate, skipping", "video", cand.ID, "error", err.Error())
	}
	return result{rank: rank}
}

func (s *Searcher) match(id string, frame uint64, corpus map[string]*index.Record, start time.Time) (*Match, error) {
	s.log.Info("match found", "video", id, "frame", frame, "elapsed", time.Since(start).String())
	return &Match{ID: id, StartFrame: frame, FPS: corpus[id].FPS}, nil
}

// Timestamp renders the match's starting time as zero-padded mm:ss.
func (m *Match) Timestamp() string {
	secs := int(float64(m.StartFrame) / m.FPS)
	return fmt.Sprintf("%02d:%02d", secs/60, secs%60)
}
