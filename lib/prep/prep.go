//
// Copyright (C) 2023 Charles E. Vejnar
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://www.mozilla.org/MPL/2.0/.
//

// Package prep turns alignments into a dataset: an alignment-data resource
// of per-query blocks and an index resource pointing into it.
package prep

import (
	"bufio"
	"context"
	"io"
	"log/slog"
	"sort"

	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"
	"gopkg.in/fatih/set.v0"

	"git.sr.ht/~vejnar/GeneDot/lib/alignment"
	"git.sr.ht/~vejnar/GeneDot/lib/anchor"
	"git.sr.ht/~vejnar/GeneDot/lib/chunk"
	"git.sr.ht/~vejnar/GeneDot/lib/dotindex"
	"git.sr.ht/~vejnar/GeneDot/lib/segment"
)

type Options struct {
	// Unique query length an alignment needs to be unique
	UniqueLength int
	// Keep alignments shorter than UniqueLength if entirely unique
	KeepSmall bool
	// Maximum number of overview alignments
	OverviewSize int
	Workers      int
	Logger       *slog.Logger
}

func DefaultOptions() Options {
	return Options{UniqueLength: 10000, KeepSmall: true, OverviewSize: 1000, Workers: 4}
}

// QueryData holds the oriented alignments of one query.
type QueryData struct {
	Entry      dotindex.QueryEntry
	Flipped    bool
	Unique     []alignment.Record
	Repetitive []alignment.Record
}

type Dataset struct {
	Refs     []dotindex.RefEntry
	Queries  []*QueryData
	Overview []alignment.Record
	Stats    Report
}

type queryInput struct {
	name   string
	length int
	alns   []alignment.Record
	keep   []int
}

// Prepare classifies, orders and orients the alignments of in.
func Prepare(ctx context.Context, in *Input, opt Options) (*Dataset, error) {
	logger := opt.Logger
	if logger == nil {
		logger = slog.Default()
	}
	if opt.Workers < 1 {
		opt.Workers = 1
	}

	// Group by query
	var queries []*queryInput
	queryPos := make(map[string]int)
	var refs []segment.SequenceRef
	refLengths := make(map[string]int)
	for _, a := range in.Alignments {
		if l, ok := refLengths[a.Ref]; !ok {
			refLengths[a.Ref] = a.RefLength
			refs = append(refs, segment.SequenceRef{Name: a.Ref, Length: a.RefLength})
		} else if l != a.RefLength {
			logger.Warn("conflicting reference length", "ref", a.Ref, "kept", l, "found", a.RefLength)
		}
		i, ok := queryPos[a.Query]
		if !ok {
			i = len(queries)
			queryPos[a.Query] = i
			queries = append(queries, &queryInput{name: a.Query, length: a.QueryLength})
		}
		queries[i].alns = append(queries[i].alns, a.Record)
	}

	// Unique anchor filtering
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(opt.Workers)
	for _, q := range queries {
		q := q
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			ivs := make([]anchor.Interval, len(q.alns))
			for i, a := range q.alns {
				start, end := a.QueryRange()
				ivs[i] = anchor.Interval{Start: start, End: end, UID: uintptr(i)}
			}
			var err error
			if q.keep, err = anchor.Unique(ivs, opt.UniqueLength, opt.KeepSmall); err != nil {
				return errors.Wrapf(err, "filtering %s", q.name)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	logger.Info("filtered alignments", "queries", len(queries), "alignments", len(in.Alignments))

	// Reference order and offsets
	segment.SortNatural(refs)
	refOffsets := make(map[string]int, len(refs))
	cumul := 0
	for _, r := range refs {
		refOffsets[r.Name] = cumul
		cumul += r.Length
	}

	// Scores, orientation and categories
	ds := &Dataset{}
	scores := make([]float64, len(queries))
	refsByQuery := make([]set.Interface, len(queries))
	queriesByRef := make(map[string]set.Interface, len(refs))
	for _, r := range refs {
		queriesByRef[r.Name] = set.New(set.NonThreadSafe)
	}
	for iq, q := range queries {
		for i := range q.alns {
			q.alns[i].Category = alignment.Repetitive
		}
		for _, k := range q.keep {
			q.alns[k].Category = alignment.Unique
		}
		refsByQuery[iq] = set.New(set.NonThreadSafe)
		var sumForward, sumReverse int
		var positions []float64
		for _, a := range q.alns {
			if a.Category != alignment.Unique {
				continue
			}
			refsByQuery[iq].Add(a.Ref)
			queriesByRef[a.Ref].Add(q.name)
			positions = append(positions, float64(refOffsets[a.Ref])+float64(a.RefStart+a.RefEnd)/2)
			if a.Reverse() {
				sumReverse += a.QueryLength()
			} else {
				sumForward += a.QueryLength()
			}
		}
		scores[iq] = median(positions)
		qd := &QueryData{
			Entry:   dotindex.QueryEntry{Name: q.name, Length: q.length},
			Flipped: sumReverse > sumForward,
		}
		for _, a := range q.alns {
			if qd.Flipped {
				a.QueryStart = q.length - a.QueryStart
				a.QueryEnd = q.length - a.QueryEnd
			}
			if a.Category == alignment.Unique {
				qd.Unique = append(qd.Unique, a)
			} else {
				qd.Repetitive = append(qd.Repetitive, a)
			}
		}
		sort.Stable(alignment.ByQueryLength(qd.Unique))
		sort.Stable(alignment.ByQueryLength(qd.Repetitive))
		ds.Queries = append(ds.Queries, qd)
	}

	// Query order
	order := make([]int, len(queries))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(i, j int) bool { return scores[order[i]] < scores[order[j]] })
	sorted := make([]*QueryData, len(order))
	for i, iq := range order {
		qd := ds.Queries[iq]
		for _, r := range refs {
			if refsByQuery[iq].Has(r.Name) {
				qd.Entry.MatchingRefs = append(qd.Entry.MatchingRefs, r.Name)
			}
		}
		sorted[i] = qd
	}
	ds.Queries = sorted

	for _, r := range refs {
		e := dotindex.RefEntry{Name: r.Name, Length: r.Length}
		for _, qd := range ds.Queries {
			if queriesByRef[r.Name].Has(qd.Entry.Name) {
				e.MatchingQueries = append(e.MatchingQueries, qd.Entry.Name)
			}
		}
		ds.Refs = append(ds.Refs, e)
	}

	// Overview
	for _, qd := range ds.Queries {
		ds.Overview = append(ds.Overview, qd.Unique...)
	}
	sort.Stable(alignment.ByQueryLength(ds.Overview))
	if opt.OverviewSize >= 0 && len(ds.Overview) > opt.OverviewSize {
		ds.Overview = ds.Overview[:opt.OverviewSize]
	}

	ds.Stats = NewReport(in, ds)
	return ds, nil
}

func median(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	s := append([]float64(nil), values...)
	sort.Float64s(s)
	n := len(s)
	if n%2 == 1 {
		return s[n/2]
	}
	return (s[n/2-1] + s[n/2]) / 2
}

// WriteData writes the alignment-data resource and sets the byte offsets
// of each query entry.
func (ds *Dataset) WriteData(w io.Writer) error {
	bw := bufio.NewWriter(w)
	var offset int64
	write := func(s string) error {
		n, err := bw.WriteString(s)
		offset += int64(n)
		return err
	}
	for _, qd := range ds.Queries {
		for _, c := range alignment.Categories {
			switch c {
			case alignment.Unique:
				qd.Entry.UniqueStart = offset
			case alignment.Repetitive:
				qd.Entry.RepetitiveStart = offset
			}
			recs := qd.Unique
			if c == alignment.Repetitive {
				recs = qd.Repetitive
			}
			if err := write(chunk.Marker(qd.Entry.Name, c) + "\n"); err != nil {
				return err
			}
			for _, rec := range recs {
				if err := write(alignment.FormatRow(rec) + "\n"); err != nil {
					return err
				}
			}
		}
		qd.Entry.End = offset
	}
	return bw.Flush()
}

// WriteIndex writes the index resource in format (see dotindex.Compress).
// Call WriteData first.
func (ds *Dataset) WriteIndex(w io.Writer, format string) error {
	cw, err := dotindex.Compress(w, format)
	if err != nil {
		return err
	}
	entries := make([]dotindex.QueryEntry, len(ds.Queries))
	for i, qd := range ds.Queries {
		entries[i] = qd.Entry
	}
	if err = dotindex.Write(cw, ds.Refs, entries, ds.Overview); err != nil {
		cw.Close()
		return err
	}
	return cw.Close()
}
