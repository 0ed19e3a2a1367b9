/*
DESCRIPTION
  rgb.go provides access to the raw-pixel companion files used for byte
  exact frame verification. A companion file is a headerless sequence of
  frames, each exactly width*height*3 bytes of row-major RGB data.

AUTHORS
  Saxon A. Nelson-Milton <saxon@ausocean.org>

LICENSE
  Copyright (C) 2024 the Australian Ocean Lab (AusOcean). All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/

package video

import (
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/pkg/errors"
)

// ErrShortFrame is returned by RGBFile.ReadFrame when the file ends before
// a full frame's worth of bytes, i.e. the file is truncated or the frame
// index is out of range.
var ErrShortFrame = errors.New("short read of RGB frame")

// RGBFile reads fixed-size raw RGB frames from a headerless companion file.
type RGBFile struct {
	f      *os.File
	path   string
	width  int
	height int
	mu     sync.Mutex
}

// OpenRGB opens the raw RGB file at path with the given frame dimensions.
func OpenRGB(path string, width, height int) (*RGBFile, error) {
	if width <= 0 || height <= 0 {
		return nil, errors.Errorf("invalid RGB frame dimensions %dx%d", width, height)
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrapf(err, "could not open RGB file %s", path)
	}
	return &RGBFile{f: f, path: path, width: width, height: height}, nil
}

// FrameSize returns the size of one frame in bytes.
func (r *RGBFile) FrameSize() int { return r.width * r.height * 3 }

// ReadFrame reads frame n, i.e. the FrameSize bytes starting at byte offset
// n*FrameSize. A frame that is missing or incomplete returns ErrShortFrame.
func (r *RGBFile) ReadFrame(n uint64) ([]byte, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.f == nil {
		return nil, errors.Errorf("RGB file %s is closed", r.path)
	}

	buf := make([]byte, r.FrameSize())
	read, err := r.f.ReadAt(buf, int64(n)*int64(r.FrameSize()))
	switch {
	case err == io.EOF || err == io.ErrUnexpectedEOF:
		if read < len(buf) {
			return nil, errors.Wrapf(ErrShortFrame, "%s frame %d (%d of %d bytes)", r.path, n, read, len(buf))
		}
	case err != nil:
		return nil, errors.Wrapf(err, "could not read %s frame %d", r.path, n)
	}
	return buf, nil
}

// FrameCount returns the number of complete frames the file holds.
func (r *RGBFile) FrameCount() (uint64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.f == nil {
		return 0, errors.Errorf("RGB file %s is closed", r.path)
	}
	fi, err := r.f.Stat()
	if err != nil {
		return 0, errors.Wrapf(err, "could not stat %s", r.path)
	}
	return uint64(fi.Size()) / uint64(r.FrameSize()), nil
}

// Close closes the underlying file.
func (r *RGBFile) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.f == nil {
		return nil
	}
	err := r.f.Close()
	r.f = nil
	return err
}

// CompanionPath maps a video path or identifier to the path of its raw RGB
// companion, e.g. X.mp4 becomes X.rgb.
func CompanionPath(path string) string {
	return strings.TrimSuffix(path, filepath.Ext(path)) + ".rgb"
}
