//
// Copyright (C) 2023 Charles E. Vejnar
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://www.mozilla.org/MPL/2.0/.
//

package dotplot

import (
	"git.sr.ht/~vejnar/GeneDot/lib/alignment"
	"git.sr.ht/~vejnar/GeneDot/lib/annotation"
	"git.sr.ht/~vejnar/GeneDot/lib/chunk"
	"git.sr.ht/~vejnar/GeneDot/lib/scale"
	"git.sr.ht/~vejnar/GeneDot/lib/viewport"
)

// QueryStatus is the load state of the data of one query.
type QueryStatus struct {
	Query      string
	Unique     chunk.Status
	Repetitive chunk.Status
	// Last load failure
	Err error
	// Drawn from the overview
	Overview bool
}

// TrackSpans are the visible features of an annotation track.
type TrackSpans struct {
	Name  string
	Side  annotation.Side
	Spans []viewport.Span
}

// Frame is the geometry to draw, in screen space.
type Frame struct {
	// Zoomed region in unzoomed pixel space
	Region viewport.Rect
	// Sequence boundaries along x (refs) and y (queries)
	X, Y        []viewport.Span
	Lines       []viewport.Line
	Skipped     int
	Status      []QueryStatus
	Annotations []TrackSpans
}

// Frame computes the visible geometry of the current selection and zoom.
// Queries whose data is not loaded are drawn from the overview.
func (p *Plot) Frame() Frame {
	p.mu.RLock()
	defer p.mu.RUnlock()
	home := p.view.Home()
	f := Frame{
		Region: p.view.Region(),
		X:      boundarySpans(p.x, p.view.X(), home.X0, home.X1),
		Y:      boundarySpans(p.y, p.view.Y(), home.Y0, home.Y1),
	}

	var records []alignment.Record
	for _, q := range p.queries {
		st := QueryStatus{Query: q}
		for _, c := range p.categories() {
			var recs []alignment.Record
			loaded := false
			if p.store != nil {
				status := p.store.Status(q, c)
				if c == alignment.Unique {
					st.Unique = status
				} else {
					st.Repetitive = status
				}
				if err := p.store.Failure(q, c); err != nil {
					st.Err = err
				}
				if status == chunk.Loaded {
					recs, loaded = p.store.Records(q, c), true
				}
			}
			if !loaded {
				st.Overview = true
				recs = overviewRecords(p.overview[q], c)
			}
			for _, rec := range recs {
				if p.x.Has(rec.Ref) {
					records = append(records, rec)
				}
			}
		}
		f.Status = append(f.Status, st)
	}
	culler := viewport.Culler{X: p.x, Y: p.y, View: p.view, Logger: p.logger}
	f.Lines, f.Skipped = culler.Process(records, home)

	for _, t := range p.tracks {
		ts := TrackSpans{Name: t.Name, Side: t.Side}
		if t.Side == annotation.SideRef {
			ts.Spans = viewport.CullSpans(t.Spans(p.x, p.view.X()), home.X0, home.X1)
		} else {
			ts.Spans = viewport.CullSpans(t.Spans(p.y, p.view.Y()), home.Y0, home.Y1)
		}
		f.Annotations = append(f.Annotations, ts)
	}
	return f
}

func (p *Plot) categories() []alignment.Category {
	if p.showRepetitive {
		return alignment.Categories
	}
	return []alignment.Category{alignment.Unique}
}

func overviewRecords(recs []alignment.Record, c alignment.Category) []alignment.Record {
	var kept []alignment.Record
	for _, rec := range recs {
		if rec.Category == c {
			kept = append(kept, rec)
		}
	}
	return kept
}

func boundarySpans(s *scale.Scale, axis viewport.Linear, lo, hi float64) []viewport.Span {
	bs := s.Boundaries()
	spans := make([]viewport.Span, len(bs))
	for i, b := range bs {
		spans[i] = viewport.Span{Index: i, Label: b.Name, Start: axis.Apply(b.Start), End: axis.Apply(b.End)}
	}
	return viewport.CullSpans(spans, lo, hi)
}
