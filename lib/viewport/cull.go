//
// Copyright (C) 2023 Charles E. Vejnar
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://www.mozilla.org/MPL/2.0/.
//

package viewport

import (
	"log/slog"

	"github.com/pkg/errors"

	"git.sr.ht/~vejnar/GeneDot/lib/alignment"
	"git.sr.ht/~vejnar/GeneDot/lib/scale"
)

// Line is an alignment drawn from (X1, Y1) to (X2, Y2) in screen space.
type Line struct {
	Record         alignment.Record
	X1, Y1, X2, Y2 float64
}

// Span is a 1-D interval in screen space along one axis.
type Span struct {
	Index      int
	Label      string
	Start, End float64
}

// Culler maps alignments to screen space and keeps the visible ones.
type Culler struct {
	X, Y   *scale.Scale
	View   *Transform
	Logger *slog.Logger
}

// Project maps records through the scales and the view transform. Records
// on sequences missing from either scale are skipped and counted.
func (c *Culler) Project(records []alignment.Record) (lines []Line, skipped int) {
	lines = make([]Line, 0, len(records))
	for _, rec := range records {
		l, err := c.project(rec)
		if err != nil {
			if !errors.Is(err, scale.ErrUnknownSequence) {
				c.logger().Warn("cannot project alignment", "ref", rec.Ref, "query", rec.Query, "err", err)
			}
			skipped++
			continue
		}
		lines = append(lines, l)
	}
	return
}

func (c *Culler) project(rec alignment.Record) (l Line, err error) {
	l.Record = rec
	if l.X1, err = c.X.Get(rec.Ref, rec.RefStart); err != nil {
		return
	}
	if l.X2, err = c.X.Get(rec.Ref, rec.RefEnd); err != nil {
		return
	}
	if l.Y1, err = c.Y.Get(rec.Query, rec.QueryStart); err != nil {
		return
	}
	if l.Y2, err = c.Y.Get(rec.Query, rec.QueryEnd); err != nil {
		return
	}
	if c.View != nil {
		l.X1, l.Y1 = c.View.Apply(l.X1, l.Y1)
		l.X2, l.Y2 = c.View.Apply(l.X2, l.Y2)
	}
	return l, nil
}

// Process projects records and culls them against view.
func (c *Culler) Process(records []alignment.Record, view Rect) ([]Line, int) {
	lines, skipped := c.Project(records)
	return Cull(lines, view), skipped
}

func (c *Culler) logger() *slog.Logger {
	if c.Logger == nil {
		return slog.Default()
	}
	return c.Logger
}

// Cull drops lines with both ends beyond the same edge of view and clamps
// the remaining ends to view. Clamping is done per axis, so the slope of a
// clamped line may change. The input slice is not modified.
func Cull(lines []Line, view Rect) []Line {
	view = view.Norm()
	kept := make([]Line, 0, len(lines))
	for _, l := range lines {
		// Discard before snapping
		if outside(l.X1, l.X2, view.X0, view.X1) || outside(l.Y1, l.Y2, view.Y0, view.Y1) {
			continue
		}
		l.X1, l.X2 = clamp(l.X1, view.X0, view.X1), clamp(l.X2, view.X0, view.X1)
		l.Y1, l.Y2 = clamp(l.Y1, view.Y0, view.Y1), clamp(l.Y2, view.Y0, view.Y1)
		kept = append(kept, l)
	}
	return kept
}

// CullSpans is Cull for intervals along one axis bounded by [lo, hi].
func CullSpans(spans []Span, lo, hi float64) []Span {
	if lo > hi {
		lo, hi = hi, lo
	}
	kept := make([]Span, 0, len(spans))
	for _, s := range spans {
		if outside(s.Start, s.End, lo, hi) {
			continue
		}
		s.Start, s.End = clamp(s.Start, lo, hi), clamp(s.End, lo, hi)
		kept = append(kept, s)
	}
	return kept
}

// outside reports whether a and b are both strictly beyond the same bound.
func outside(a, b, lo, hi float64) bool {
	return (a < lo && b < lo) || (a > hi && b > hi)
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
