/*
DESCRIPTION
  video.go provides Reader, a sequential frame reader for video files backed
  by an OpenCV capture. Frames are emitted in RGB pixel order regardless of
  the source color space.

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

// Package video provides sequential frame access to video files and to their
// raw RGB companion files.
package video

import (
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"sync"

	"gocv.io/x/gocv"
)

// Frame is a single decoded video frame. Mat holds the pixel data in RGB
// order. Frames borrow native memory and must be closed by the consumer.
type Frame struct {
	Index  uint64
	Width  int
	Height int
	FPS    float64
	Mat    gocv.Mat
}

// Pixels returns the frame's pixel data as a tightly packed, row-major RGB
// byte slice.
func (f *Frame) Pixels() []byte { return f.Mat.ToBytes() }

// Close releases the native memory backing the frame.
func (f *Frame) Close() error { return f.Mat.Close() }

// Reader reads frames from a video file one at a time, in order.
type Reader struct {
	cap    *gocv.VideoCapture
	path   string
	next   uint64
	fps    float64
	width  int
	height int
	frames uint64
	closed bool
	mu     sync.Mutex
}

// Open opens the video file at path for sequential reading. The fps and
// frame count are trusted from the container header; a header reporting a
// non-positive fps or a zero frame count is considered malformed.
func Open(path string) (*Reader, error) {
	vc, err := gocv.VideoCaptureFile(path)
	if err != nil {
		return nil, fmt.Errorf("could not open video %s: %w", path, err)
	}

	r := &Reader{
		cap:    vc,
		path:   path,
		fps:    vc.Get(gocv.VideoCaptureFPS),
		width:  int(vc.Get(gocv.VideoCaptureFrameWidth)),
		height: int(vc.Get(gocv.VideoCaptureFrameHeight)),
		frames: uint64(vc.Get(gocv.VideoCaptureFrameCount)),
	}

	if r.fps <= 0 {
		vc.Close()
		return nil, fmt.Errorf("video %s has malformed header: fps %v", path, r.fps)
	}
	if r.frames == 0 {
		vc.Close()
		return nil, fmt.Errorf("video %s has malformed header: zero frame count", path)
	}
	return r, nil
}

// Read decodes and returns the next frame. io.EOF is returned at end of
// stream, after which the reader is closed and further reads fail.
func (r *Reader) Read() (*Frame, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return nil, fmt.Errorf("video %s: reader is closed", r.path)
	}

	bgr := gocv.NewMat()
	if ok := r.cap.Read(&bgr); !ok || bgr.Empty() {
		bgr.Close()
		r.closeLocked()
		return nil, io.EOF
	}

	rgb := gocv.NewMat()
	gocv.CvtColor(bgr, &rgb, gocv.ColorBGRToRGB)
	bgr.Close()

	f := &Frame{
		Index:  r.next,
		Width:  rgb.Cols(),
		Height: rgb.Rows(),
		FPS:    r.fps,
		Mat:    rgb,
	}
	r.next++
	return f, nil
}

// Seek positions the reader so that the next Read returns the frame at the
// given index.
func (r *Reader) Seek(frame uint64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return fmt.Errorf("video %s: reader is closed", r.path)
	}
	if ok := r.cap.Set(gocv.VideoCapturePosFrames, float64(frame)); !ok {
		return fmt.Errorf("video %s: could not seek to frame %d", r.path, frame)
	}
	r.next = frame
	return nil
}

// FPS returns the frame rate from the container header.
func (r *Reader) FPS() float64 { return r.fps }

// FrameCount returns the total frame count from the container header.
func (r *Reader) FrameCount() uint64 { return r.frames }

// Resolution returns the frame width and height in pixels.
func (r *Reader) Resolution() (w, h int) { return r.width, r.height }

// Close releases the underlying capture. Close after end-of-stream is a
// no-op.
func (r *Reader) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.closeLocked()
}

func (r *Reader) closeLocked() error {
	if r.closed {
		return nil
	}
	r.closed = true
	return r.cap.Close()
}

// FrameCount probes the frame count of the video at path without retaining
// a reader.
func FrameCount(path string) (uint64, error) {
	r, err := Open(path)
	if err != nil {
		return 0, err
	}
	defer r.Close()
	return r.FrameCount(), nil
}

// FPS probes the frame rate of the video at path.
func FPS(path string) (float64, error) {
	r, err := Open(path)
	if err != nil {
		return 0, err
	}
	defer r.Close()
	return r.FPS(), nil
}

// Resolution probes the frame dimensions of the video at path.
func Resolution(path string) (w, h int, err error) {
	r, err := Open(path)
	if err != nil {
		return 0, 0, err
	}
	defer r.Close()
	w, h = r.Resolution()
	return w, h, nil
}

// ID derives the stable video identifier from a video file path, i.e. the
// path with its extension removed. The same derivation is used at index and
// query time so identifiers match across sessions.
func ID(path string) string {
	return strings.TrimSuffix(path, filepath.Ext(path))
}

// BaseName returns the display name for a video identifier or path, i.e.
// the final path element without extension.
func BaseName(path string) string {
	return strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
}
