//
// Copyright (C) 2023 Charles E. Vejnar
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://www.mozilla.org/MPL/2.0/.
//

package scale

import (
	"math"
	"sort"

	"github.com/pkg/errors"

	"git.sr.ht/~vejnar/GeneDot/lib/segment"
)

var (
	ErrEmptyIndex      = errors.New("scale built over an empty index")
	ErrUnknownSequence = errors.New("sequence not in scale")
)

// Rounding slack, in bases, accepted by Invert at sequence ends.
const invertTolerance = 1e-6

// Boundary is the pixel span occupied by one sequence.
type Boundary struct {
	Name       string
	Start, End float64
}

// Scale maps positions on concatenated sequences to a pixel range.
// The pixel range may be reversed (Lo > Hi), as for a y-axis drawn upward.
type Scale struct {
	index  *segment.Index
	lo, hi float64
	gap    float64
}

// Build returns a Scale over the sequences of index mapped onto [lo, hi].
// Gap is the number of pixels between two consecutive sequences; it is
// dropped when the range is too narrow to hold it.
func Build(index *segment.Index, lo, hi, gap float64) (*Scale, error) {
	if index == nil || index.Len() == 0 {
		return nil, ErrEmptyIndex
	}
	if gap < 0 {
		return nil, errors.Errorf("negative gap %g", gap)
	}
	return &Scale{index: index, lo: lo, hi: hi, gap: gap}, nil
}

// FromRefs builds a segment index without padding and a Scale over it.
func FromRefs(refs []segment.SequenceRef, lo, hi, gap float64) (*Scale, error) {
	if len(refs) == 0 {
		return nil, ErrEmptyIndex
	}
	index, err := segment.New(refs, 0)
	if err != nil {
		return nil, err
	}
	return Build(index, lo, hi, gap)
}

// WithPixelRange returns a Scale sharing the same index over a new range.
func (s *Scale) WithPixelRange(lo, hi float64) *Scale {
	return &Scale{index: s.index, lo: lo, hi: hi, gap: s.gap}
}

// Index returns the segment index of the scale.
func (s *Scale) Index() *segment.Index { return s.index }

// PixelRange returns the pixel range of the scale.
func (s *Scale) PixelRange() (lo, hi float64) { return s.lo, s.hi }

// Has reports whether name is part of the scale.
func (s *Scale) Has(name string) bool { return s.index.Has(name) }

// geometry returns the direction of the range, the pixels per base and
// the effective gap between sequences.
func (s *Scale) geometry() (dir, ppb, gap float64) {
	n := float64(s.index.Len())
	width := math.Abs(s.hi - s.lo)
	dir = 1
	if s.hi < s.lo {
		dir = -1
	}
	gap = s.gap
	if gap*(n-1) >= width {
		gap = 0
	}
	ppb = (width - gap*(n-1)) / float64(s.index.Span())
	return
}

// Get returns the pixel of position pos on sequence name. Positions outside
// the sequence are extrapolated linearly.
func (s *Scale) Get(name string, pos int) (float64, error) {
	i, _, offset, ok := s.index.Lookup(name)
	if !ok {
		return 0, errors.Wrap(ErrUnknownSequence, name)
	}
	dir, ppb, gap := s.geometry()
	return s.lo + dir*(float64(offset+pos)*ppb+float64(i)*gap), nil
}

// Contains reports whether name is in the scale and 0 <= pos <= length.
func (s *Scale) Contains(name string, pos int) bool {
	_, ref, _, ok := s.index.Lookup(name)
	return ok && pos >= 0 && pos <= ref.Length
}

// Boundaries returns the pixel span of each sequence in index order.
func (s *Scale) Boundaries() []Boundary {
	dir, ppb, gap := s.geometry()
	bs := make([]Boundary, s.index.Len())
	for i := range bs {
		ref, offset := s.index.At(i)
		start := float64(offset)*ppb + float64(i)*gap
		bs[i] = Boundary{
			Name:  ref.Name,
			Start: s.lo + dir*start,
			End:   s.lo + dir*(start+float64(ref.Length)*ppb),
		}
	}
	return bs
}

// Invert returns the sequence and position under pixel px. It fails when px
// falls outside the range or in a gap between sequences.
func (s *Scale) Invert(px float64) (name string, pos float64, ok bool) {
	dir, ppb, gap := s.geometry()
	if ppb == 0 {
		return
	}
	d := (px - s.lo) * dir
	n := s.index.Len()
	tol := invertTolerance * ppb
	// First sequence starting after d
	i := sort.Search(n, func(i int) bool {
		_, offset := s.index.At(i)
		return float64(offset)*ppb+float64(i)*gap > d+tol
	}) - 1
	if i < 0 {
		return
	}
	ref, offset := s.index.At(i)
	pos = (d-float64(i)*gap)/ppb - float64(offset)
	if pos < -invertTolerance || pos > float64(ref.Length)+invertTolerance {
		return "", 0, false
	}
	return ref.Name, math.Max(0, math.Min(pos, float64(ref.Length))), true
}
