//
// Copyright © 2023 Charles E. Vejnar
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://www.mozilla.org/MPL/2.0/.
//

package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/pkg/errors"

	"git.sr.ht/~vejnar/GeneDot/lib/annotation"
	"git.sr.ht/~vejnar/GeneDot/lib/chunk"
	"git.sr.ht/~vejnar/GeneDot/lib/config"
	"git.sr.ht/~vejnar/GeneDot/lib/dotindex"
	"git.sr.ht/~vejnar/GeneDot/lib/dotplot"
	"git.sr.ht/~vejnar/GeneDot/lib/viewport"
)

var version = "DEV"

func parseZoom(raw string) (r viewport.Rect, err error) {
	fields := strings.Split(raw, ",")
	if len(fields) != 4 {
		return r, errors.Errorf("zoom %q: want x0,y0,x1,y1", raw)
	}
	var v [4]float64
	for i, f := range fields {
		if v[i], err = strconv.ParseFloat(strings.TrimSpace(f), 64); err != nil {
			return r, errors.Wrapf(err, "zoom %q", raw)
		}
	}
	return viewport.Rect{X0: v[0], Y0: v[1], X1: v[2], Y1: v[3]}, nil
}

func splitNames(raw string) []string {
	if len(raw) == 0 {
		return nil
	}
	return strings.Split(raw, ",")
}

func loadTrack(path, name, rawSide string) (*annotation.Track, error) {
	side, err := annotation.ParseSide(rawSide)
	if err != nil {
		return nil, err
	}
	if len(name) == 0 {
		name = filepath.Base(path)
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	r, err := dotindex.Decompress(f)
	if err != nil {
		return nil, err
	}
	defer r.Close()
	return annotation.Parse(r, name, side)
}

func main() {
	// Arguments: General
	var pathConfig string
	var verboseLevel int
	var verbose, printVersion bool
	flag.StringVar(&pathConfig, "config", "", "Path to TOML configuration")
	flag.IntVar(&verboseLevel, "verbose_level", 0, "Verbose level")
	flag.BoolVar(&verbose, "verbose", false, "Verbose")
	flag.BoolVar(&printVersion, "version", false, "Print version and quit")
	// Arguments: Input
	var pathIndex, pathData, pathAnnotation, annotationSide string
	flag.StringVar(&pathIndex, "path_index", "", "Path to index (optionally compressed)")
	flag.StringVar(&pathData, "path_data", "", "Path or http(s) URL to alignment data")
	flag.StringVar(&pathAnnotation, "path_annotation", "", "Path to annotation CSV file")
	flag.StringVar(&annotationSide, "annotation_side", "ref", "Axis of the annotation: 'ref' or 'query'")
	// Arguments: Plot
	var refsRaw, queriesRaw, zoomRaw string
	var width, height float64
	var showRepetitive, overviewOnly bool
	var nWorker int
	flag.StringVar(&refsRaw, "refs", "", "Selected refs (comma separated)")
	flag.StringVar(&queriesRaw, "queries", "", "Selected queries (comma separated)")
	flag.StringVar(&zoomRaw, "zoom", "", "Zoom region in pixels: x0,y0,x1,y1")
	flag.Float64Var(&width, "width", 0, "Plotting area width (overrides configuration)")
	flag.Float64Var(&height, "height", 0, "Plotting area height (overrides configuration)")
	flag.BoolVar(&showRepetitive, "show_repetitive", false, "Show repetitive alignments")
	flag.BoolVar(&overviewOnly, "overview_only", false, "Draw overview alignments only")
	flag.IntVar(&nWorker, "num_worker", 0, "Number of queries loaded in parallel (overrides configuration)")
	// Arguments: Output
	var outputFormat string
	flag.StringVar(&outputFormat, "format", "csv", "Output format: 'csv' or 'json'")
	// Arguments: Parse
	flag.Parse()

	// Version
	if printVersion {
		fmt.Println(version)
		os.Exit(0)
	}

	// Verbose
	if verbose && verboseLevel == 0 {
		verboseLevel = 1
	}
	logLevel := slog.LevelWarn
	if verboseLevel > 1 {
		logLevel = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: logLevel}))

	// Time start
	var timeStart time.Time
	if verboseLevel > 0 {
		timeStart = time.Now()
	}

	// Configuration
	cfg := config.Default()
	if len(pathConfig) > 0 {
		var err error
		if cfg, err = config.Load(pathConfig); err != nil {
			log.Fatal(err)
		}
	}
	flag.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "width":
			cfg.Width = width
		case "height":
			cfg.Height = height
		case "show_repetitive":
			cfg.ShowRepetitive = showRepetitive
		case "overview_only":
			cfg.OverviewOnly = overviewOnly
		case "num_worker":
			cfg.Concurrency = nWorker
		}
	})
	if len(pathAnnotation) > 0 {
		cfg.Annotations = append(cfg.Annotations, config.Annotation{Path: pathAnnotation, Side: annotationSide})
	}
	if err := cfg.Validate(); err != nil {
		log.Fatal(err)
	}
	if outputFormat != "csv" && outputFormat != "json" {
		log.Fatalln("Unknown output format", outputFormat)
	}

	// Check arguments
	if len(pathIndex) == 0 {
		log.Fatal("No index input")
	} else if _, err := os.Stat(pathIndex); os.IsNotExist(err) {
		log.Fatalln(pathIndex, "not found")
	}

	// Index
	ix, err := dotindex.Open(pathIndex, logger)
	if err != nil {
		log.Fatal(err)
	}
	if verboseLevel > 0 {
		fmt.Fprintf(os.Stderr, "%.1fmin - Index with %d refs and %d queries\n", time.Now().Sub(timeStart).Minutes(), len(ix.Refs), len(ix.Queries))
	}

	// Data
	var store *chunk.Store
	if len(pathData) > 0 && !cfg.OverviewOnly {
		reader, closer, err := chunk.Open(pathData)
		if err != nil {
			log.Fatal(err)
		}
		defer closer()
		store = chunk.NewStore(ix, reader,
			chunk.WithShowRepetitive(cfg.ShowRepetitive),
			chunk.WithConcurrency(cfg.Concurrency),
			chunk.WithLogger(logger))
	}

	// Plot
	plot, err := dotplot.New(ix, store, cfg, dotplot.WithLogger(logger))
	if err != nil {
		log.Fatal(err)
	}
	for _, a := range cfg.Annotations {
		track, err := loadTrack(a.Path, a.Name, a.Side)
		if err != nil {
			log.Fatal(err)
		}
		plot.AddTrack(track)
	}

	// Selection and loading
	ctx := context.Background()
	refs, queries := splitNames(refsRaw), splitNames(queriesRaw)
	switch {
	case len(refs) > 0 && len(queries) > 0:
		err = plot.Select(ctx, refs, queries)
	case len(refs) > 0:
		err = plot.SelectRefs(ctx, refs)
	case len(queries) > 0:
		err = plot.SelectQueries(ctx, queries)
	default:
		err = plot.Load(ctx)
	}
	if err != nil {
		log.Fatal(err)
	}
	if store != nil && verboseLevel > 0 {
		fmt.Fprintf(os.Stderr, "%.1fmin - %d read(s) of alignment data\n", time.Now().Sub(timeStart).Minutes(), store.Reads())
	}

	// Zoom
	if len(zoomRaw) > 0 {
		r, err := parseZoom(zoomRaw)
		if err != nil {
			log.Fatal(err)
		}
		if err = plot.Zoom(r); err != nil {
			log.Fatal(err)
		}
		if verboseLevel > 0 {
			x, y := plot.VisibleRegion()
			fmt.Fprintf(os.Stderr, "%.1fmin - Showing %s to %s against %s to %s\n", time.Now().Sub(timeStart).Minutes(), x.Start, x.End, y.Start, y.End)
		}
	}

	// Output
	frame := plot.Frame()
	if outputFormat == "json" {
		err = writeJSON(os.Stdout, frame)
	} else {
		err = writeCSV(os.Stdout, frame)
	}
	if err != nil {
		log.Fatal(err)
	}
}
