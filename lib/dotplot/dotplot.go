//
// Copyright (C) 2023 Charles E. Vejnar
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://www.mozilla.org/MPL/2.0/.
//

// Package dotplot drives a dot plot: selection, data loading, scales,
// zoom and culling of the geometry to draw.
package dotplot

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/pkg/errors"

	"git.sr.ht/~vejnar/GeneDot/lib/alignment"
	"git.sr.ht/~vejnar/GeneDot/lib/annotation"
	"git.sr.ht/~vejnar/GeneDot/lib/chunk"
	"git.sr.ht/~vejnar/GeneDot/lib/config"
	"git.sr.ht/~vejnar/GeneDot/lib/dotindex"
	"git.sr.ht/~vejnar/GeneDot/lib/scale"
	"git.sr.ht/~vejnar/GeneDot/lib/segment"
	"git.sr.ht/~vejnar/GeneDot/lib/viewport"
)

// ErrEmptySelection is returned when a selection leaves an axis without sequences.
var ErrEmptySelection = errors.New("empty selection")

type Option func(*Plot)

func WithLogger(logger *slog.Logger) Option {
	return func(p *Plot) { p.logger = logger }
}

// Plot is the state of one dot plot. Refs are drawn along x, queries along
// y. Methods are safe for concurrent use.
type Plot struct {
	cfg      config.Config
	index    *dotindex.Index
	store    *chunk.Store
	logger   *slog.Logger
	overview map[string][]alignment.Record
	// Every sequence of the index, laid out with the configured padding
	refCatalog, queryCatalog *segment.Index

	mu             sync.RWMutex
	refs           []string
	queries        []string
	x, y           *scale.Scale
	view           *viewport.Transform
	tracks         []*annotation.Track
	showRepetitive bool
}

// New returns a Plot selecting every sequence of ix. Store may be nil, in
// which case only overview alignments are drawn.
func New(ix *dotindex.Index, store *chunk.Store, cfg config.Config, opts ...Option) (*Plot, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	p := &Plot{
		cfg:            cfg,
		index:          ix,
		store:          store,
		logger:         slog.Default(),
		overview:       make(map[string][]alignment.Record),
		showRepetitive: cfg.ShowRepetitive,
	}
	for _, opt := range opts {
		opt(p)
	}
	if cfg.OverviewOnly {
		p.store = nil
	}
	if p.store != nil {
		p.store.SetShowRepetitive(cfg.ShowRepetitive)
	}
	for _, rec := range ix.Overview {
		p.overview[rec.Query] = append(p.overview[rec.Query], rec)
	}
	var err error
	if p.refCatalog, err = catalog(ix.RefSegments, ix.RefNames(), cfg.Padding); err != nil {
		return nil, errors.Wrap(err, "refs")
	}
	if p.queryCatalog, err = catalog(ix.QuerySegments, ix.QueryNames(), cfg.Padding); err != nil {
		return nil, errors.Wrap(err, "queries")
	}
	x, y, err := p.scales(ix.RefNames(), ix.QueryNames())
	if err != nil {
		return nil, err
	}
	p.apply(x, y)
	return p, nil
}

func catalog(segments func([]string) ([]segment.SequenceRef, error), names []string, padding int) (*segment.Index, error) {
	refs, err := segments(names)
	if err != nil {
		return nil, err
	}
	return segment.New(refs, padding)
}

// scales builds the x and y scales of a selection, each restricted from
// its catalog and kept in catalog order.
func (p *Plot) scales(refs, queries []string) (x, y *scale.Scale, err error) {
	if len(refs) == 0 || len(queries) == 0 {
		return nil, nil, ErrEmptySelection
	}
	if x, err = buildScale(p.refCatalog, refs, 0, p.cfg.Width, p.cfg.GapPixels); err != nil {
		return nil, nil, errors.Wrap(err, "x-axis")
	}
	// Queries go upward
	if y, err = buildScale(p.queryCatalog, queries, p.cfg.Height, 0, p.cfg.GapPixels); err != nil {
		return nil, nil, errors.Wrap(err, "y-axis")
	}
	return x, y, nil
}

func buildScale(from *segment.Index, names []string, lo, hi, gap float64) (*scale.Scale, error) {
	idx, err := from.Select(names)
	if err != nil {
		return nil, err
	}
	return scale.Build(idx, lo, hi, gap)
}

// apply replaces the selection with the sequences of x and y and resets the view.
func (p *Plot) apply(x, y *scale.Scale) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.refs, p.queries = x.Index().Names(), y.Index().Names()
	p.x, p.y = x, y
	p.view = viewport.NewTransform(viewport.Rect{X0: 0, Y0: 0, X1: p.cfg.Width, Y1: p.cfg.Height})
	p.logger.Debug("selection applied", "refs", len(p.refs), "queries", len(p.queries))
}

// Load loads the alignment data of the selected queries.
func (p *Plot) Load(ctx context.Context) error {
	_, queries := p.Selection()
	return p.load(ctx, queries)
}

func (p *Plot) load(ctx context.Context, queries []string) error {
	if p.store == nil {
		return nil
	}
	return p.store.EnsureLoadedAll(ctx, queries)
}

// SelectRefs selects refs and the queries aligning to them, loads those
// queries, then rebuilds the scales and resets the zoom.
func (p *Plot) SelectRefs(ctx context.Context, refs []string) error {
	queries, err := p.index.QueriesForRefs(refs)
	if err != nil {
		return err
	}
	if len(queries) == 0 {
		return errors.Wrap(ErrEmptySelection, "no query aligns to the selected refs")
	}
	return p.selectAndLoad(ctx, refs, queries)
}

// SelectQueries selects queries and the refs they align to, loads the
// queries, then rebuilds the scales and resets the zoom.
func (p *Plot) SelectQueries(ctx context.Context, queries []string) error {
	refs, err := p.index.RefsForQueries(queries)
	if err != nil {
		return err
	}
	if len(refs) == 0 {
		return errors.Wrap(ErrEmptySelection, "no ref aligns to the selected queries")
	}
	return p.selectAndLoad(ctx, refs, queries)
}

// Select selects exactly refs and queries.
func (p *Plot) Select(ctx context.Context, refs, queries []string) error {
	return p.selectAndLoad(ctx, refs, queries)
}

// selectAndLoad applies a selection once its scales are built and its
// queries loaded. Nothing is read for a selection naming unknown sequences.
func (p *Plot) selectAndLoad(ctx context.Context, refs, queries []string) error {
	x, y, err := p.scales(refs, queries)
	if err != nil {
		return err
	}
	if err = p.load(ctx, y.Index().Names()); err != nil {
		return err
	}
	p.apply(x, y)
	return nil
}

// SetShowRepetitive toggles drawing of repetitive alignments, loading them
// for the selected queries when turned on.
func (p *Plot) SetShowRepetitive(ctx context.Context, show bool) error {
	p.mu.Lock()
	p.showRepetitive = show
	queries := p.queries
	p.mu.Unlock()
	if p.store == nil {
		return nil
	}
	p.store.SetShowRepetitive(show)
	if !show {
		return nil
	}
	return p.load(ctx, queries)
}

// AddTrack adds an annotation track drawn along the axis of its side.
func (p *Plot) AddTrack(t *annotation.Track) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.tracks = append(p.tracks, t)
}

// Selection returns the selected refs and queries.
func (p *Plot) Selection() (refs, queries []string) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return append([]string(nil), p.refs...), append([]string(nil), p.queries...)
}

// Scales returns the current x (refs) and y (queries) scales.
func (p *Plot) Scales() (x, y *scale.Scale) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.x, p.y
}

// Zoom shows r, in unzoomed pixel space, over the whole plotting area.
func (p *Plot) Zoom(r viewport.Rect) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.view.SetZoomRegion(r)
}

func (p *Plot) ResetZoom() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.view.Reset()
}

// Locus is a position on a sequence. OK is false when the pixel it was
// computed from falls between sequences.
type Locus struct {
	Seq string
	Pos float64
	OK  bool
}

func (l Locus) String() string {
	if !l.OK {
		return "-"
	}
	return fmt.Sprintf("%s:%.0f", l.Seq, l.Pos)
}

// Extent is the genomic span of one axis.
type Extent struct {
	Start, End Locus
}

// VisibleRegion returns the genomic extents of the zoomed region.
func (p *Plot) VisibleRegion() (x, y Extent) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	r := p.view.Region()
	x = Extent{Start: locus(p.x, r.X0), End: locus(p.x, r.X1)}
	// The y-axis runs from Height at the first query to 0
	y = Extent{Start: locus(p.y, r.Y1), End: locus(p.y, r.Y0)}
	return
}

func locus(s *scale.Scale, px float64) Locus {
	name, pos, ok := s.Invert(px)
	return Locus{Seq: name, Pos: pos, OK: ok}
}
