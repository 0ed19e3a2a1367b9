/*
DESCRIPTION
  cliplocate is the online locator. Given a query clip and its raw RGB
  companion it reports which indexed source video the clip came from and
  the exact frame at which it starts. A watch mode keeps the process alive
  answering queries from stdin, hot-reloading the index when records change
  on disk.

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
	"bufio"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"

	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/ausocean/utils/logging"

	"github.com/ausocean/cliplocate/config"
	"github.com/ausocean/cliplocate/index"
	"github.com/ausocean/cliplocate/search"
	"github.com/ausocean/cliplocate/video"
)

// Current software version.
const version = "v1.0.0"

// Logging configuration.
const (
	logPath      = "/var/log/cliplocate/cliplocate.log"
	logMaxSize   = 500 // MB
	logMaxBackup = 10
	logMaxAge    = 28 // days
	logSuppress  = true
)

func main() {
	var (
		indexPtr   = flag.String("index", "index", "index directory")
		configPtr  = flag.String("config", "", "optional YAML config file")
		verifyPtr  = flag.Bool("rgb-verify", true, "confirm matches byte-for-byte against RGB companions")
		watchPtr   = flag.Bool("watch", false, "read clip/rgb path pairs from stdin, reloading the index on change")
		debugPtr   = flag.Bool("debug", false, "enable debug logging")
		versionPtr = flag.Bool("version", false, "show version")
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

	cfg := config.Config{Logger: log}
	if *configPtr != "" {
		if err := cfg.LoadFile(*configPtr); err != nil {
			log.Fatal("could not load config", "error", err.Error())
		}
	}
	cfg.IndexDir = *indexPtr
	cfg.RGBVerification = *verifyPtr

	st, err := index.NewStore(cfg.IndexDir, log)
	if err != nil {
		log.Fatal("could not open index store", "error", err.Error())
	}
	corpus, err := st.GetAll()
	if err != nil {
		log.Fatal("could not load index", "error", err.Error())
	}
	if len(corpus) == 0 {
		log.Fatal("index is empty; run clipindex first", "dir", cfg.IndexDir)
	}
	log.Info("index loaded", "videos", len(corpus))

	searcher, err := search.New(cfg, corpus)
	if err != nil {
		log.Fatal("could not create searcher", "error", err.Error())
	}

	if *watchPtr {
		watch(st, searcher, log)
		return
	}

	if flag.NArg() < 2 {
		fmt.Fprintln(os.Stderr, "usage: cliplocate [flags] <clip.mp4> <clip.rgb>")
		os.Exit(1)
	}
	if !run(searcher, flag.Arg(0), flag.Arg(1), log) {
		os.Exit(1)
	}
}

// run performs one search and prints the result. It reports whether a
// match was found.
func run(s *search.Searcher, clipPath, clipRGBPath string, log logging.Logger) bool {
	m, err := s.Search(clipPath, clipRGBPath)
	switch {
	case errors.Is(err, search.ErrNoMatch):
		fmt.Println("no match")
		return false
	case err != nil:
		log.Error("search failed", "clip", clipPath, "error", err.Error())
		return false
	}
	fmt.Printf("%s frame %d at %s\n", video.BaseName(m.ID), m.StartFrame, m.Timestamp())
	return true
}

// watch answers queries from stdin, one "clip.mp4 clip.rgb" pair per line,
// reusing the loaded index and reloading it when records change on disk.
func watch(st *index.Store, s *search.Searcher, log logging.Logger) {
	done := make(chan struct{})
	defer close(done)

	err := st.Watch(done, func() {
		corpus, err := st.GetAll()
		if err != nil {
			log.Error("could not reload index", "error", err.Error())
			return
		}
		s.SetCorpus(corpus)
		log.Info("index reloaded", "videos", len(corpus))
	})
	if err != nil {
		log.Fatal("could not watch index directory", "error", err.Error())
	}

	sc := bufio.NewScanner(os.Stdin)
	for sc.Scan() {
		fields := strings.Fields(sc.Text())
		switch len(fields) {
		case 0:
			continue
		case 1:
			run(s, fields[0], video.CompanionPath(fields[0]), log)
		default:
			run(s, fields[0], fields[1], log)
		}
	}
	if err := sc.Err(); err != nil {
		log.Error("could not read queries", "error", err.Error())
	}
}
