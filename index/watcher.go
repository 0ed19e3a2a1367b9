/*
DESCRIPTION
  watcher.go notifies a long-running locator when the index directory
  changes on disk, so the corpus can be reloaded without restarting.

AUTHORS
  Trek Hopton <trek@ausocean.org>

LICENSE
  Copyright (C) 2024 the Australian Ocean Lab (AusOcean). All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/

package index

import (
	"strings"

	"github.com/fsnotify/fsnotify"
	"github.com/pkg/errors"
)

// Watch invokes onChange whenever a record file in the store's directory is
// created, replaced or removed, until done is closed. Temp files from
// in-progress writes are ignored; only the atomic rename of a completed
// record triggers a notification.
func (s *Store) Watch(done <-chan struct{}, onChange func()) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return errors.Wrap(err, "could not create index watcher")
	}
	if err := w.Add(s.dir); err != nil {
		w.Close()
		return errors.Wrapf(err, "could not watch index directory %s", s.dir)
	}

	go func() {
		defer w.Close()
		for {
			select {
			case <-done:
				return
			case ev, ok := <-w.Events:
				if !ok {
					return
				}
				if !strings.HasSuffix(ev.Name, recordExt) {
					continue
				}
				if ev.Op&(fsnotify.Create|fsnotify.Rename|fsnotify.Remove|fsnotify.Write) == 0 {
					continue
				}
				s.log.Info("index record changed, reloading", "file", ev.Name, "op", ev.Op.String())
				onChange()
			case err, ok := <-w.Errors:
				if !ok {
					return
				}
				s.log.Warning("index watcher error", "error", err.Error())
			}
		}
	}()
	return nil
}
