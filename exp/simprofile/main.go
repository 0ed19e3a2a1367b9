/*
DESCRIPTION
  simprofile plots the frame-to-frame histogram similarity profile of a
  video, with a dashed line at the shot threshold, as an aid for tuning
  that threshold. Frames whose similarity dips below the line are the ones
  the shot segmenter would treat as boundaries; they are not marked
  individually.

AUTHORS
  Russell Stanley <russell@ausocean.org>

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

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"

	"github.com/ausocean/cliplocate/histogram"
	"github.com/ausocean/cliplocate/shot"
	"github.com/ausocean/cliplocate/video"
)

func main() {
	var (
		outPtr    = flag.String("out", "simprofile.png", "output plot file")
		threshPtr = flag.Float64("threshold", shot.DefaultThreshold, "shot boundary threshold to draw")
	)
	flag.Parse()
	if flag.NArg() < 1 {
		fmt.Fprintln(os.Stderr, "usage: simprofile [flags] <video>")
		os.Exit(1)
	}
	path := flag.Arg(0)

	sims, err := profile(path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "could not profile %s: %v\n", path, err)
		os.Exit(1)
	}

	p := plot.New()
	p.Title.Text = "Histogram similarity: " + video.BaseName(path)
	p.X.Label.Text = "frame"
	p.Y.Label.Text = "correlation with previous frame"

	pts := make(plotter.XYs, len(sims))
	for i, s := range sims {
		pts[i].X = float64(i + 1)
		pts[i].Y = s
	}
	line, err := plotter.NewLine(pts)
	if err != nil {
		fmt.Fprintf(os.Stderr, "could not plot similarity profile: %v\n", err)
		os.Exit(1)
	}
	p.Add(line)

	thresh := plotter.XYs{
		{X: 1, Y: *threshPtr},
		{X: float64(len(sims)), Y: *threshPtr},
	}
	tline, err := plotter.NewLine(thresh)
	if err != nil {
		fmt.Fprintf(os.Stderr, "could not plot threshold: %v\n", err)
		os.Exit(1)
	}
	tline.Dashes = []vg.Length{vg.Points(4), vg.Points(4)}
	p.Add(tline)
	p.Legend.Add("similarity", line)
	p.Legend.Add("threshold", tline)

	if err := p.Save(25*vg.Centimeter, 10*vg.Centimeter, *outPtr); err != nil {
		fmt.Fprintf(os.Stderr, "could not save plot: %v\n", err)
		os.Exit(1)
	}
	fmt.Println("wrote", *outPtr)
}

// profile returns the similarity of each frame to its predecessor, i.e.
// entry i is the correlation between frames i and i+1.
func profile(path string) ([]float64, error) {
	r, err := video.Open(path)
	if err != nil {
		return nil, err
	}
	defer r.Close()

	var (
		sims []float64
		prev histogram.Histogram
	)
	for {
		f, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}

		h, err := histogram.FromFrame(f.Mat)
		f.Close()
		if err != nil {
			return nil, err
		}
		if prev != nil {
			sims = append(sims, histogram.Similarity(prev, h))
		}
		prev = h
	}
	return sims, nil
}
