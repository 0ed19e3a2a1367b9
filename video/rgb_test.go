/*
DESCRIPTION
  rgb_test.go provides testing for raw RGB companion file access and the
  path/identifier helpers.

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
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/pkg/errors"
)

const (
	testWidth  = 4
	testHeight = 3
	testFrame  = testWidth * testHeight * 3
)

// writeFrames writes n frames, frame i filled with byte i, plus extra
// trailing bytes.
func writeFrames(t *testing.T, n, extra int) string {
	t.Helper()
	var buf bytes.Buffer
	for i := 0; i < n; i++ {
		buf.Write(bytes.Repeat([]byte{byte(i)}, testFrame))
	}
	buf.Write(make([]byte, extra))

	path := filepath.Join(t.TempDir(), "test.rgb")
	if err := os.WriteFile(path, buf.Bytes(), 0644); err != nil {
		t.Fatalf("could not write test RGB file: %v", err)
	}
	return path
}

func TestRGBReadFrame(t *testing.T) {
	path := writeFrames(t, 5, 0)
	f, err := OpenRGB(path, testWidth, testHeight)
	if err != nil {
		t.Fatalf("could not open RGB file: %v", err)
	}
	defer f.Close()

	for n := uint64(0); n < 5; n++ {
		got, err := f.ReadFrame(n)
		if err != nil {
			t.Fatalf("could not read frame %d: %v", n, err)
		}
		want := bytes.Repeat([]byte{byte(n)}, testFrame)
		if !bytes.Equal(got, want) {
			t.Errorf("frame %d content mismatch", n)
		}
	}
}

func TestRGBShortFrame(t *testing.T) {
	// Two full frames plus half a frame of trailing bytes.
	path := writeFrames(t, 2, testFrame/2)
	f, err := OpenRGB(path, testWidth, testHeight)
	if err != nil {
		t.Fatalf("could not open RGB file: %v", err)
	}
	defer f.Close()

	if _, err := f.ReadFrame(2); !errors.Is(err, ErrShortFrame) {
		t.Errorf("expected ErrShortFrame for truncated frame, got %v", err)
	}
	if _, err := f.ReadFrame(10); !errors.Is(err, ErrShortFrame) {
		t.Errorf("expected ErrShortFrame past end of file, got %v", err)
	}

	count, err := f.FrameCount()
	if err != nil {
		t.Fatalf("could not count frames: %v", err)
	}
	if count != 2 {
		t.Errorf("FrameCount = %d, want 2", count)
	}
}

func TestRGBClosed(t *testing.T) {
	path := writeFrames(t, 1, 0)
	f, err := OpenRGB(path, testWidth, testHeight)
	if err != nil {
		t.Fatalf("could not open RGB file: %v", err)
	}
	if err := f.Close(); err != nil {
		t.Fatalf("could not close: %v", err)
	}
	if _, err := f.ReadFrame(0); err == nil {
		t.Error("expected error reading closed file")
	}
	if err := f.Close(); err != nil {
		t.Errorf("double close errored: %v", err)
	}
}

func TestOpenRGBBadDims(t *testing.T) {
	if _, err := OpenRGB("whatever.rgb", 0, 288); err == nil {
		t.Error("expected error for zero width")
	}
}

func TestCompanionPath(t *testing.T) {
	tests := []struct{ in, want string }{
		{"videos/video7.mp4", "videos/video7.rgb"},
		{"clip.avi", "clip.rgb"},
		{"noext", "noext.rgb"},
	}
	for _, test := range tests {
		if got := CompanionPath(test.in); got != test.want {
			t.Errorf("CompanionPath(%q) = %q, want %q", test.in, got, test.want)
		}
	}
}

func TestIDAndBaseName(t *testing.T) {
	tests := []struct{ in, id, base string }{
		{"videos/video7.mp4", "videos/video7", "video7"},
		{"clip.mp4", "clip", "clip"},
		{"a/b/c.mov", "a/b/c", "c"},
	}
	for _, test := range tests {
		if got := ID(test.in); got != test.id {
			t.Errorf("ID(%q) = %q, want %q", test.in, got, test.id)
		}
		if got := BaseName(test.in); got != test.base {
			t.Errorf("BaseName(%q) = %q, want %q", test.in, got, test.base)
		}
	}
}
