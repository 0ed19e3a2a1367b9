/*
DESCRIPTION
  format.go implements the on-disk encoding of index records: a fixed
  little-endian layout of magic, version, identifier, video metadata, the
  segment hash list, the shot boundary list and the histogram table. The
  encoding round-trips losslessly; bin ordering on read matches write.

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
	"bufio"
	"encoding/binary"
	"io"
	"math"

	"github.com/pkg/errors"

	"github.com/ausocean/cliplocate/histogram"
)

var magic = [4]byte{'C', 'V', 'I', 'X'}

const formatVersion = 1

// Sanity caps on decoded lengths, to fail fast on corrupt headers rather
// than attempting absurd allocations.
const (
	maxStringLen = 1 << 16
	maxListLen   = 1 << 26
)

func encodeRecord(w io.Writer, id string, rec *Record) error {
	bw := bufio.NewWriter(w)

	if _, err := bw.Write(magic[:]); err != nil {
		return err
	}
	if err := bw.WriteByte(formatVersion); err != nil {
		return err
	}

	if err := writeString(bw, id); err != nil {
		return err
	}
	if err := writeString(bw, rec.Path); err != nil {
		return err
	}
	if err := binary.Write(bw, binary.LittleEndian, math.Float64bits(rec.FPS)); err != nil {
		return err
	}

	if err := writeUint64s(bw, rec.SegmentHashes); err != nil {
		return err
	}
	if err := writeUint64s(bw, rec.ShotBoundaries); err != nil {
		return err
	}

	if err := binary.Write(bw, binary.LittleEndian, uint32(len(rec.Histograms))); err != nil {
		return err
	}
	if err := binary.Write(bw, binary.LittleEndian, uint32(histogram.Bins)); err != nil {
		return err
	}
	for _, h := range rec.Histograms {
		if len(h) != histogram.Bins {
			return errors.Errorf("histogram has %d bins, want %d", len(h), histogram.Bins)
		}
		for _, v := range h {
			if err := binary.Write(bw, binary.LittleEndian, math.Float64bits(v)); err != nil {
				return err
			}
		}
	}
	return bw.Flush()
}

func decodeRecord(r io.Reader) (string, *Record, error) {
	br := bufio.NewReader(r)

	var m [4]byte
	if _, err := io.ReadFull(br, m[:]); err != nil {
		return "", nil, errors.Wrap(err, "could not read magic")
	}
	if m != magic {
		return "", nil, errors.New("bad magic")
	}
	v, err := br.ReadByte()
	if err != nil {
		return "", nil, errors.Wrap(err, "could not read version")
	}
	if v != formatVersion {
		return "", nil, errors.Errorf("unsupported format version %d", v)
	}

	id, err := readString(br)
	if err != nil {
		return "", nil, errors.Wrap(err, "could not read id")
	}

	rec := &Record{}
	rec.Path, err = readString(br)
	if err != nil {
		return "", nil, errors.Wrap(err, "could not read path")
	}

	var fpsBits uint64
	if err := binary.Read(br, binary.LittleEndian, &fpsBits); err != nil {
		return "", nil, errors.Wrap(err, "could not read fps")
	}
	rec.FPS = math.Float64frombits(fpsBits)

	rec.SegmentHashes, err = readUint64s(br)
	if err != nil {
		return "", nil, errors.Wrap(err, "could not read segment hashes")
	}
	rec.ShotBoundaries, err = readUint64s(br)
	if err != nil {
		return "", nil, errors.Wrap(err, "could not read shot boundaries")
	}

	var count, bins uint32
	if err := binary.Read(br, binary.LittleEndian, &count); err != nil {
		return "", nil, errors.Wrap(err, "could not read histogram count")
	}
	if err := binary.Read(br, binary.LittleEndian, &bins); err != nil {
		return "", nil, errors.Wrap(err, "could not read histogram bin count")
	}
	if bins != histogram.Bins {
		return "", nil, errors.Errorf("record has %d-bin histograms, want %d", bins, histogram.Bins)
	}
	if count > maxListLen {
		return "", nil, errors.Errorf("implausible histogram count %d", count)
	}

	rec.Histograms = make([]histogram.Histogram, count)
	for i := range rec.Histograms {
		h := make(histogram.Histogram, bins)
		for j := range h {
			var b uint64
			if err := binary.Read(br, binary.LittleEndian, &b); err != nil {
				return "", nil, errors.Wrapf(err, "could not read histogram %d", i)
			}
			h[j] = math.Float64frombits(b)
		}
		rec.Histograms[i] = h
	}
	return id, rec, nil
}

func writeString(w io.Writer, s string) error {
	if err := binary.Write(w, binary.LittleEndian, uint32(len(s))); err != nil {
		return err
	}
	_, err := io.WriteString(w, s)
	return err
}

func readString(r io.Reader) (string, error) {
	var n uint32
	if err := binary.Read(r, binary.LittleEndian, &n); err != nil {
		return "", err
	}
	if n > maxStringLen {
		return "", errors.Errorf("implausible string length %d", n)
	}
	b := make([]byte, n)
	if _, err := io.ReadFull(r, b); err != nil {
		return "", err
	}
	return string(b), nil
}

func writeUint64s(w io.Writer, vs []uint64) error {
	if err := binary.Write(w, binary.LittleEndian, uint32(len(vs))); err != nil {
		return err
	}
	for _, v := range vs {
		if err := binary.Write(w, binary.LittleEndian, v); err != nil {
			return err
		}
	}
	return nil
}

func readUint64s(r io.Reader) ([]uint64, error) {
	var n uint32
	if err := binary.Read(r, binary.LittleEndian, &n); err != nil {
		return nil, err
	}
	if n > maxListLen {
		return nil, errors.Errorf("implausible list length %d", n)
	}
	if n == 0 {
		return nil, nil
	}
	vs := make([]uint64, n)
	for i := range vs {
		if err := binary.Read(r, binary.LittleEndian, &vs[i]); err != nil {
			return nil, err
		}
	}
	return vs, nil
}
