/*
DESCRIPTION
  build.go runs the offline indexing pipeline: for each corpus video it
  derives the segment hash list, the shot boundary list and the per-frame
  histogram table in one session, and persists them as that video's index
  record.

AUTHORS
  Saxon A. Nelson-Milton <saxon@ausocean.org>

LICENSE
  Copyright (C) 2024 the Australian Ocean Lab (AusOcean). All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/

package search

import (
	"fmt"
	"time"

	"github.com/ausocean/cliplocate/config"
	"github.com/ausocean/cliplocate/index"
	"github.com/ausocean/cliplocate/segment"
	"github.com/ausocean/cliplocate/shot"
	"github.com/ausocean/cliplocate/video"
)

// BuildIndex indexes every video in cfg.Videos into the store. A video
// that cannot be read or hashed is logged and skipped without touching its
// existing record, so a bad file cannot corrupt the index. The number of
// successfully indexed videos is returned.
func BuildIndex(cfg config.Config, st *index.Store) (int, error) {
	if err := cfg.Validate(); err != nil {
		return 0, fmt.Errorf("could not validate config: %w", err)
	}
	if len(cfg.Videos) == 0 {
		return 0, fmt.Errorf("no videos in corpus manifest")
	}

	done := 0
	for _, path := range cfg.Videos {
		if err := buildOne(cfg, st, path); err != nil {
			cfg.Logger.Error("could not index video, skipping", "video", path, "error", err.Error())
			continue
		}
		done++
	}
	return done, nil
}

func buildOne(cfg config.Config, st *index.Store, path string) error {
	start := time.Now()

	fps, err := video.FPS(path)
	if err != nil {
		return err
	}

	hashes, err := segment.Hashes(path, cfg.SegmentLength, cfg.OverlapFraction)
	if err != nil {
		return fmt.Errorf("could not compute segment hashes: %w", err)
	}
	cfg.Logger.Debug("segment hashes computed", "video", path, "hashes", len(hashes), "elapsed", time.Since(start).String())

	boundaries, table, err := shot.Segment(path, cfg.ShotThreshold)
	if err != nil {
		return fmt.Errorf("could not segment shots: %w", err)
	}
	cfg.Logger.Debug("shots segmented", "video", path, "boundaries", len(boundaries), "frames", len(table))

	rec := &index.Record{
		Path:           path,
		FPS:            fps,
		SegmentHashes:  hashes,
		ShotBoundaries: boundaries,
		Histograms:     table,
	}
	if err := st.Put(video.ID(path), rec); err != nil {
		return fmt.Errorf("could not store record: %w", err)
	}

	cfg.Logger.Info("video indexed", "video", path, "elapsed", time.Since(start).String())
	return nil
}
