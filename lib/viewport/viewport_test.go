//
// Copyright (C) 2023 Charles E. Vejnar
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://www.mozilla.org/MPL/2.0/.
//

package viewport

import (
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"git.sr.ht/~vejnar/GeneDot/lib/alignment"
	"git.sr.ht/~vejnar/GeneDot/lib/scale"
	"git.sr.ht/~vejnar/GeneDot/lib/segment"
)

var home = Rect{X0: 0, Y0: 0, X1: 800, Y1: 600}

func TestTransformHomeIsIdentity(t *testing.T) {
	tr := NewTransform(home)
	assert.True(t, tr.IsIdentity())

	require.NoError(t, tr.SetZoomRegion(Rect{X0: 100, Y0: 100, X1: 200, Y1: 150}))
	assert.False(t, tr.IsIdentity())

	tr.Reset()
	require.NoError(t, tr.SetZoomRegion(home))
	assert.True(t, tr.IsIdentity())
	x, y := tr.Apply(home.X1, home.Y1)
	assert.Equal(t, home.X1, x)
	assert.Equal(t, home.Y1, y)
}

func TestSetZoomRegion(t *testing.T) {
	tr := NewTransform(home)
	region := Rect{X0: 200, Y0: 450, X1: 100, Y1: 300}
	require.NoError(t, tr.SetZoomRegion(region))

	x, y := tr.Apply(100, 300)
	assert.InDelta(t, 0, x, 1e-9)
	assert.InDelta(t, 0, y, 1e-9)
	x, y = tr.Apply(200, 450)
	assert.InDelta(t, 800, x, 1e-9)
	assert.InDelta(t, 600, y, 1e-9)

	got := tr.Region()
	assert.InDelta(t, 100, got.X0, 1e-9)
	assert.InDelta(t, 450, got.Y1, 1e-9)
}

func TestZoomDoesNotCompound(t *testing.T) {
	tr := NewTransform(home)
	region := Rect{X0: 10, Y0: 20, X1: 30, Y1: 40}
	require.NoError(t, tr.SetZoomRegion(region))
	first := *tr
	for i := 0; i < 5; i++ {
		require.NoError(t, tr.SetZoomRegion(Rect{X0: 0, Y0: 0, X1: 1, Y1: 1}))
		require.NoError(t, tr.SetZoomRegion(region))
	}
	assert.Equal(t, first, *tr)
}

func TestSetZoomRegionEmpty(t *testing.T) {
	tr := NewTransform(home)
	err := tr.SetZoomRegion(Rect{X0: 5, Y0: 0, X1: 5, Y1: 10})
	assert.True(t, errors.Is(err, ErrEmptyRegion))
	assert.True(t, tr.IsIdentity())
}

func TestCullDiscardsSameSide(t *testing.T) {
	view := Rect{X0: 0, Y0: 0, X1: 100, Y1: 100}
	lines := []Line{
		{X1: -10, Y1: 50, X2: -5, Y2: 60},  // left
		{X1: 110, Y1: 50, X2: 120, Y2: 60}, // right
		{X1: 10, Y1: -1, X2: 20, Y2: -50},  // above
		{X1: 10, Y1: 101, X2: 20, Y2: 150}, // below
		{X1: 10, Y1: 10, X2: 20, Y2: 20},   // inside
		{X1: -10, Y1: 50, X2: 50, Y2: 50},  // crosses left edge
		{X1: -10, Y1: -10, X2: 110, Y2: 110},
	}
	orig := append([]Line(nil), lines...)
	kept := Cull(lines, view)
	require.Len(t, kept, 3)
	assert.Equal(t, orig, lines)
	for _, l := range kept {
		assert.False(t, outside(l.X1, l.X2, view.X0, view.X1))
		assert.False(t, outside(l.Y1, l.Y2, view.Y0, view.Y1))
	}
	assert.Equal(t, Line{X1: 10, Y1: 10, X2: 20, Y2: 20}, kept[0])
	assert.Equal(t, Line{X1: 0, Y1: 50, X2: 50, Y2: 50}, kept[1])
	assert.Equal(t, Line{X1: 0, Y1: 0, X2: 100, Y2: 100}, kept[2])
}

func TestCullSnapsOutsideEnd(t *testing.T) {
	view := Rect{X0: 10, Y0: 20, X1: 110, Y1: 220}
	lines := []Line{
		{X1: 50, Y1: 50, X2: 500, Y2: 100},
		{X1: 50, Y1: 50, X2: 60, Y2: -300},
		{X1: -4, Y1: 50, X2: 60, Y2: 60},
		{X1: 50, Y1: 250, X2: 60, Y2: 60},
	}
	kept := Cull(lines, view)
	require.Len(t, kept, 4)
	assert.Equal(t, 110., kept[0].X2)
	assert.Equal(t, 100., kept[0].Y2)
	assert.Equal(t, 20., kept[1].Y2)
	assert.Equal(t, 10., kept[2].X1)
	assert.Equal(t, 220., kept[3].Y1)
}

func TestCullSpans(t *testing.T) {
	spans := []Span{
		{Index: 0, Start: -5, End: -1},
		{Index: 1, Start: -5, End: 5},
		{Index: 2, Start: 2, End: 3},
		{Index: 3, Start: 9, End: 20},
		{Index: 4, Start: 11, End: 20},
	}
	kept := CullSpans(spans, 10, 0)
	require.Len(t, kept, 3)
	assert.Equal(t, Span{Index: 1, Start: 0, End: 5}, kept[0])
	assert.Equal(t, Span{Index: 2, Start: 2, End: 3}, kept[1])
	assert.Equal(t, Span{Index: 3, Start: 9, End: 10}, kept[2])
}

func TestCullerProcess(t *testing.T) {
	xIdx, err := segment.New([]segment.SequenceRef{{Name: "chr1", Length: 100}, {Name: "chr2", Length: 100}}, 0)
	require.NoError(t, err)
	yIdx, err := segment.New([]segment.SequenceRef{{Name: "q1", Length: 200}}, 0)
	require.NoError(t, err)
	x, err := scale.Build(xIdx, 0, 200, 0)
	require.NoError(t, err)
	y, err := scale.Build(yIdx, 200, 0, 0)
	require.NoError(t, err)
	view := NewTransform(Rect{X1: 200, Y1: 200})
	c := &Culler{X: x, Y: y, View: view}

	recs := []alignment.Record{
		{Ref: "chr1", RefStart: 0, RefEnd: 50, Query: "q1", QueryStart: 0, QueryEnd: 50},
		{Ref: "chr2", RefStart: 10, RefEnd: 90, Query: "q1", QueryStart: 150, QueryEnd: 100},
		{Ref: "chr3", RefStart: 10, RefEnd: 90, Query: "q1", QueryStart: 150, QueryEnd: 100},
	}
	lines, skipped := c.Process(recs, view.Home())
	assert.Equal(t, 1, skipped)
	require.Len(t, lines, 2)
	assert.Equal(t, Line{Record: recs[0], X1: 0, Y1: 200, X2: 50, Y2: 150}, lines[0])

	// Zoom on chr2: chr1 alignment falls left of the view
	require.NoError(t, view.SetZoomRegion(Rect{X0: 100, Y0: 0, X1: 200, Y1: 200}))
	lines, _ = c.Process(recs, view.Home())
	require.Len(t, lines, 1)
	assert.Equal(t, "chr2", lines[0].Record.Ref)
	assert.InDelta(t, 20, lines[0].X1, 1e-9)
	assert.InDelta(t, 180, lines[0].X2, 1e-9)
	assert.Equal(t, recs[1], lines[0].Record)
}
