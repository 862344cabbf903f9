//
// Copyright (C) 2023 Charles E. Vejnar
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://www.mozilla.org/MPL/2.0/.
//

package scale

import (
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"git.sr.ht/~vejnar/GeneDot/lib/segment"
)

const eps = 1e-9

var refs = []segment.SequenceRef{{Name: "chr1", Length: 1000}, {Name: "chr2", Length: 500}, {Name: "chr3", Length: 250}, {Name: "chrM", Length: 17}}

func TestBuildEmpty(t *testing.T) {
	_, err := FromRefs(nil, 0, 100, 2)
	assert.True(t, errors.Is(err, ErrEmptyIndex))

	idx, err := segment.New(nil, 0)
	require.NoError(t, err)
	_, err = Build(idx, 0, 100, 2)
	assert.True(t, errors.Is(err, ErrEmptyIndex))
}

func TestBoundariesTileRange(t *testing.T) {
	for _, rg := range [][2]float64{{0, 800}, {600, 0}, {50, 51}, {0, 3}} {
		s, err := FromRefs(refs, rg[0], rg[1], 2)
		require.NoError(t, err)
		_, _, gap := s.geometry()
		bs := s.Boundaries()
		require.Len(t, bs, len(refs))

		assert.InDelta(t, rg[0], bs[0].Start, eps)
		assert.InDelta(t, rg[1], bs[len(bs)-1].End, eps)
		dir := 1.
		if rg[1] < rg[0] {
			dir = -1
		}
		for i, b := range bs {
			assert.Equal(t, refs[i].Name, b.Name)
			assert.GreaterOrEqual(t, (b.End-b.Start)*dir, 0.)
			if i > 0 {
				assert.InDelta(t, gap, (b.Start-bs[i-1].End)*dir, eps, "gap before %s", b.Name)
			}
		}
	}
}

func TestGetMatchesBoundaries(t *testing.T) {
	s, err := FromRefs(refs, 0, 800, 4)
	require.NoError(t, err)
	for i, b := range s.Boundaries() {
		start, err := s.Get(b.Name, 0)
		require.NoError(t, err)
		end, err := s.Get(b.Name, refs[i].Length)
		require.NoError(t, err)
		assert.InDelta(t, b.Start, start, eps)
		assert.InDelta(t, b.End, end, eps)
	}
}

func TestGetMonotonic(t *testing.T) {
	s, err := FromRefs(refs, 0, 800, 4)
	require.NoError(t, err)
	last := -1.
	for _, ref := range refs {
		for pos := 0; pos <= ref.Length; pos += 7 {
			px, err := s.Get(ref.Name, pos)
			require.NoError(t, err)
			assert.Greater(t, px, last)
			last = px
		}
	}
}

func TestGetUnknownAndExtrapolation(t *testing.T) {
	s, err := FromRefs(refs, 0, 800, 0)
	require.NoError(t, err)
	_, err = s.Get("chrZ", 0)
	assert.True(t, errors.Is(err, ErrUnknownSequence))

	// Out-of-range offsets extrapolate
	ppb := 800. / 1767.
	px, err := s.Get("chr1", -10)
	require.NoError(t, err)
	assert.InDelta(t, -10*ppb, px, eps)

	assert.True(t, s.Contains("chr2", 0))
	assert.True(t, s.Contains("chr2", 500))
	assert.False(t, s.Contains("chr2", 501))
	assert.False(t, s.Contains("chr2", -1))
	assert.False(t, s.Contains("chrZ", 1))
}

func TestWithPixelRangeSharesIndex(t *testing.T) {
	s, err := FromRefs(refs, 0, 800, 2)
	require.NoError(t, err)
	r := s.WithPixelRange(0, 1600)
	assert.Same(t, s.Index(), r.Index())
	lo, hi := s.PixelRange()
	assert.Equal(t, 0., lo)
	assert.Equal(t, 800., hi)
	bs := r.Boundaries()
	assert.InDelta(t, 1600, bs[len(bs)-1].End, eps)
}

func TestInvert(t *testing.T) {
	s, err := FromRefs(refs, 800, 0, 4)
	require.NoError(t, err)
	for _, ref := range refs {
		for _, pos := range []int{0, ref.Length / 3, ref.Length} {
			px, err := s.Get(ref.Name, pos)
			require.NoError(t, err)
			name, got, ok := s.Invert(px)
			require.True(t, ok, "%s:%d", ref.Name, pos)
			assert.Equal(t, ref.Name, name)
			assert.InDelta(t, float64(pos), got, 1e-6)
		}
	}
	// Middle of the first gap
	bs := s.Boundaries()
	_, _, ok := s.Invert((bs[0].End + bs[1].Start) / 2)
	assert.False(t, ok)
	_, _, ok = s.Invert(900)
	assert.False(t, ok)
}
