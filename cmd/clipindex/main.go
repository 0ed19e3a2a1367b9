/*
DESCRIPTION
  clipindex is the offline indexer. It reads a YAML corpus manifest, derives
  segment hashes, shot boundaries and per-frame histograms for each listed
  video, and writes the per-video index records consumed by cliplocate.

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

package main

import (
	"flag"
	"fmt"
	"io"
	"os"

	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/ausocean/utils/logging"

	"github.com/ausocean/cliplocate/config"
	"github.com/ausocean/cliplocate/index"
	"github.com/ausocean/cliplocate/search"
)

// Current software version.
const version = "v1.0.0"

// Logging configuration.
const (
	logPath      = "/var/log/cliplocate/clipindex.log"
	logMaxSize   = 500 // MB
	logMaxBackup = 10
	logMaxAge    = 28 // days
	logSuppress  = true
)

func main() {
	var (
		manifestPtr = flag.String("manifest", "corpus.yaml", "YAML corpus manifest listing source videos")
		indexPtr    = flag.String("index", "", "index directory (overrides manifest)")
		debugPtr    = flag.Bool("debug", false, "enable debug logging")
		versionPtr  = flag.Bool("version", false, "show version")
	)
	flag.Parse()
	if *versionPtr {
		fmt.Println(version)
		os.Exit(0)
	}

	// Create lumberjack logger to handle logging to file.
	fileLog := &lumberjack.Logger{
		Filename:   logPath,
		MaxSize:    logMaxSize,
		MaxBackups: logMaxBackup,
		MaxAge:     logMaxAge,
	}

	verbosity := logging.Info
	if *debugPtr {
		verbosity = logging.Debug
	}
	log := logging.New(verbosity, io.MultiWriter(fileLog, os.Stderr), logSuppress)

	log.Info("starting clipindex", "version", version)

	cfg := config.Config{Logger: log}
	if err := cfg.LoadFile(*manifestPtr); err != nil {
		log.Fatal("could not load corpus manifest", "error", err.Error())
	}
	if *indexPtr != "" {
		cfg.IndexDir = *indexPtr
	}
	if err := cfg.Validate(); err != nil {
		log.Fatal("could not validate config", "error", err.Error())
	}

	st, err := index.NewStore(cfg.IndexDir, log)
	if err != nil {
		log.Fatal("could not open index store", "error", err.Error())
	}

	done, err := search.BuildIndex(cfg, st)
	if err != nil {
		log.Fatal("could not build index", "error", err.Error())
	}

	log.Info("indexing complete", "indexed", done, "videos", len(cfg.Videos))
	if done < len(cfg.Videos) {
		os.Exit(1)
	}
}
