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
	"runtime"
	"strings"
	"time"

	"git.sr.ht/~vejnar/GeneDot/lib/esam"
	"git.sr.ht/~vejnar/GeneDot/lib/prep"
)

var version = "DEV"

func indexSuffix(format string) string {
	switch {
	case strings.HasSuffix(format, "+gzip"):
		return ".gz"
	case strings.HasSuffix(format, "+lz4"), strings.HasSuffix(format, "+lz4hc"):
		return ".lz4"
	case strings.HasSuffix(format, "+zstd"):
		return ".zst"
	}
	return ""
}

func main() {
	// Arguments: General
	var pathReport string
	var nWorker, verboseLevel int
	var verbose, printVersion bool
	flag.StringVar(&pathReport, "path_report", "", "Write assembly report to path (stdout with -)")
	flag.IntVar(&nWorker, "num_worker", 1, "Number of worker(s)")
	flag.IntVar(&verboseLevel, "verbose_level", 0, "Verbose level")
	flag.BoolVar(&verbose, "verbose", false, "Verbose")
	flag.BoolVar(&printVersion, "version", false, "Print version and quit")
	// Arguments: Input
	var pathDelta, pathCoords, pathSAM, pathBAM, rawSAMCmdIn string
	flag.StringVar(&pathDelta, "path_delta", "", "Path to MUMmer delta file (optionally compressed)")
	flag.StringVar(&pathCoords, "path_coords", "", "Path to coords CSV file (optionally compressed)")
	flag.StringVar(&pathSAM, "path_sam", "", "Path to SAM file")
	flag.StringVar(&pathBAM, "path_bam", "", "Path to BAM file")
	flag.StringVar(&rawSAMCmdIn, "sam_command_in", "", "Command line to execute for opening the SAM file (comma separated)")
	// Arguments: Filtering
	var uniqueLength, overviewSize int
	var keepSmallUniques bool
	flag.IntVar(&uniqueLength, "unique_length", 10000, "Total length of unique sequence an alignment must have on the query side to be unique")
	flag.BoolVar(&keepSmallUniques, "keep_small_uniques", true, "Keep alignments shorter than unique_length if they are completely unique")
	flag.IntVar(&overviewSize, "overview_size", 1000, "Maximum number of alignments in overview")
	// Arguments: Output
	var outPrefix, indexFormat string
	flag.StringVar(&outPrefix, "out", "output", "Output prefix")
	flag.StringVar(&indexFormat, "index_format", "csv", "Index format: 'csv', 'csv+gzip', 'csv+lz4', 'csv+lz4hc' or 'csv+zstd'")
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

	// Max CPU
	runtime.GOMAXPROCS(nWorker * 2)

	// Time start
	var timeStart time.Time
	if verboseLevel > 0 {
		timeStart = time.Now()
	}

	// Check arguments
	var path, format string
	for _, in := range []struct{ path, format string }{
		{pathDelta, prep.FormatDelta},
		{pathCoords, prep.FormatCoords},
		{pathSAM, prep.FormatSAM},
		{pathBAM, prep.FormatBAM},
	} {
		if len(in.path) == 0 {
			continue
		}
		if len(path) > 0 {
			log.Fatal("Only one input allowed")
		}
		if _, err := os.Stat(in.path); os.IsNotExist(err) {
			log.Fatalln(in.path, "not found")
		}
		path, format = in.path, in.format
	}
	if len(path) == 0 {
		log.Fatal("No input")
	}

	// Read alignments
	if verboseLevel > 0 {
		fmt.Printf("%.1fmin - Reading %s\n", time.Now().Sub(timeStart).Minutes(), path)
	}
	var input *prep.Input
	var err error
	if format == prep.FormatSAM && len(rawSAMCmdIn) > 0 {
		rr, closer, err := esam.Open(esam.PathSAM{Path: path, Binary: false}, strings.Split(rawSAMCmdIn, ","), nWorker)
		if err != nil {
			log.Fatal(err)
		}
		input, err = prep.ReadSAM(rr)
		if err != nil {
			log.Fatal(err)
		}
		if err = closer(); err != nil {
			log.Fatal(err)
		}
	} else {
		input, err = prep.Read(path, format, nWorker)
		if err != nil {
			log.Fatal(err)
		}
	}
	if verboseLevel > 0 {
		fmt.Printf("%.1fmin - Read %d alignments\n", time.Now().Sub(timeStart).Minutes(), len(input.Alignments))
	}

	// Prepare
	opt := prep.DefaultOptions()
	opt.UniqueLength = uniqueLength
	opt.KeepSmall = keepSmallUniques
	opt.OverviewSize = overviewSize
	opt.Workers = nWorker
	opt.Logger = logger
	ds, err := prep.Prepare(context.Background(), input, opt)
	if err != nil {
		log.Fatal(err)
	}
	if verboseLevel > 0 {
		fmt.Printf("%.1fmin - %d unique and %d repetitive alignments over %d refs and %d queries\n", time.Now().Sub(timeStart).Minutes(), ds.Stats.UniqueAlignments, ds.Stats.RepetitiveAlignments, len(ds.Refs), len(ds.Queries))
	}

	// Write data then index
	pathData := outPrefix + ".dot.data"
	fData, err := os.Create(pathData)
	if err != nil {
		log.Fatal(err)
	}
	if err = ds.WriteData(fData); err != nil {
		log.Fatal(err)
	}
	if err = fData.Close(); err != nil {
		log.Fatal(err)
	}
	pathIndex := outPrefix + ".dot.index" + indexSuffix(indexFormat)
	fIndex, err := os.Create(pathIndex)
	if err != nil {
		log.Fatal(err)
	}
	if err = ds.WriteIndex(fIndex, indexFormat); err != nil {
		log.Fatal(err)
	}
	if err = fIndex.Close(); err != nil {
		log.Fatal(err)
	}
	if verboseLevel > 0 {
		fmt.Printf("%.1fmin - Wrote %s and %s\n", time.Now().Sub(timeStart).Minutes(), pathData, pathIndex)
	}

	// Report
	if len(pathReport) > 0 {
		if err = ds.Stats.Write(pathReport); err != nil {
			log.Fatal(err)
		}
	}
}
