//
// Copyright (C) 2023 Charles E. Vejnar
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://www.mozilla.org/MPL/2.0/.
//

package segment

import (
	"github.com/pkg/errors"
	"gopkg.in/fatih/set.v0"
)

var (
	ErrUnknownSequence   = errors.New("unknown sequence")
	ErrDuplicateSequence = errors.New("duplicate sequence")
	ErrInvalidLength     = errors.New("sequence length must be positive")
)

// SequenceRef is a named sequence (chromosome, contig) with its length.
type SequenceRef struct {
	Name   string
	Length int
}

// Index is an ordered catalog of sequences with their cumulative offsets.
// An Index is never modified after creation: Select returns a new one.
type Index struct {
	refs    []SequenceRef
	offsets []int
	pos     map[string]int
	padding int
	span    int
}

// New builds an Index from refs in the given order. Padding is the number
// of bases inserted between two consecutive sequences.
func New(refs []SequenceRef, padding int) (*Index, error) {
	if padding < 0 {
		return nil, errors.Errorf("negative padding %d", padding)
	}
	idx := &Index{
		refs:    make([]SequenceRef, len(refs)),
		offsets: make([]int, len(refs)),
		pos:     make(map[string]int, len(refs)),
		padding: padding,
	}
	copy(idx.refs, refs)
	// Cumulative offsets
	var offset int
	for i, ref := range idx.refs {
		if ref.Length <= 0 {
			return nil, errors.Wrapf(ErrInvalidLength, "%s (%d)", ref.Name, ref.Length)
		}
		if _, ok := idx.pos[ref.Name]; ok {
			return nil, errors.Wrap(ErrDuplicateSequence, ref.Name)
		}
		if i > 0 {
			offset += padding
		}
		idx.pos[ref.Name] = i
		idx.offsets[i] = offset
		offset += ref.Length
	}
	idx.span = offset
	return idx, nil
}

// Len returns the number of sequences.
func (idx *Index) Len() int { return len(idx.refs) }

// Padding returns the number of bases between two consecutive sequences.
func (idx *Index) Padding() int { return idx.padding }

// Span returns the total length of the concatenated axis, padding included.
func (idx *Index) Span() int { return idx.span }

// Refs returns a copy of the sequences in index order.
func (idx *Index) Refs() []SequenceRef {
	refs := make([]SequenceRef, len(idx.refs))
	copy(refs, idx.refs)
	return refs
}

// At returns the i-th sequence and its offset.
func (idx *Index) At(i int) (SequenceRef, int) {
	return idx.refs[i], idx.offsets[i]
}

// Names returns the sequence names in index order.
func (idx *Index) Names() []string {
	names := make([]string, len(idx.refs))
	for i, ref := range idx.refs {
		names[i] = ref.Name
	}
	return names
}

// Lookup returns the position of name in the index, its sequence and offset.
func (idx *Index) Lookup(name string) (i int, ref SequenceRef, offset int, ok bool) {
	i, ok = idx.pos[name]
	if !ok {
		return
	}
	return i, idx.refs[i], idx.offsets[i], true
}

// Has reports whether name is indexed.
func (idx *Index) Has(name string) bool {
	_, ok := idx.pos[name]
	return ok
}

// Select returns a new Index restricted to names, keeping the order of idx.
func (idx *Index) Select(names []string) (*Index, error) {
	keep := set.New(set.NonThreadSafe)
	for _, name := range names {
		if !idx.Has(name) {
			return nil, errors.Wrap(ErrUnknownSequence, name)
		}
		keep.Add(name)
	}
	var refs []SequenceRef
	for _, ref := range idx.refs {
		if keep.Has(ref.Name) {
			refs = append(refs, ref)
		}
	}
	return New(refs, idx.padding)
}
