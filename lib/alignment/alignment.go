//
// Copyright (C) 2023 Charles E. Vejnar
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://www.mozilla.org/MPL/2.0/.
//

package alignment

import (
	"fmt"

	"github.com/pkg/errors"
)

// Category classifies an alignment for separate loading and drawing.
type Category uint8

const (
	Unique Category = iota
	Repetitive
)

// Categories lists all categories in storage order.
var Categories = []Category{Unique, Repetitive}

func (c Category) String() string {
	switch c {
	case Unique:
		return "unique"
	case Repetitive:
		return "repetitive"
	}
	return fmt.Sprintf("Category(%d)", uint8(c))
}

// ParseCategory parses "unique" or "repetitive".
func ParseCategory(s string) (Category, error) {
	switch s {
	case "unique":
		return Unique, nil
	case "repetitive":
		return Repetitive, nil
	}
	return 0, errors.Errorf("unknown category %q", s)
}

// Record is one alignment between a reference and a query sequence.
// Coordinates are those of the input; a reverse alignment has
// QueryStart > QueryEnd.
type Record struct {
	Ref                  string
	RefStart, RefEnd     int
	Query                string
	QueryStart, QueryEnd int
	Category             Category
}

// Reverse reports whether the query is aligned on the reverse strand.
func (r Record) Reverse() bool {
	return r.QueryStart > r.QueryEnd
}

// QueryLength returns the length of the alignment on the query.
func (r Record) QueryLength() int {
	return abs(r.QueryEnd - r.QueryStart)
}

// RefLength returns the length of the alignment on the reference.
func (r Record) RefLength() int {
	return abs(r.RefEnd - r.RefStart)
}

// QueryRange returns the query interval with start <= end.
func (r Record) QueryRange() (int, int) {
	if r.Reverse() {
		return r.QueryEnd, r.QueryStart
	}
	return r.QueryStart, r.QueryEnd
}

func (r Record) String() string {
	return fmt.Sprintf("%s:%d-%d~%s:%d-%d(%s)", r.Ref, r.RefStart, r.RefEnd, r.Query, r.QueryStart, r.QueryEnd, r.Category)
}

// ByQueryLength sorts longest alignments first.
type ByQueryLength []Record

func (a ByQueryLength) Len() int           { return len(a) }
func (a ByQueryLength) Swap(i, j int)      { a[i], a[j] = a[j], a[i] }
func (a ByQueryLength) Less(i, j int) bool { return a[i].QueryLength() > a[j].QueryLength() }

func abs(n int) int {
	if n < 0 {
		return -n
	}
	return n
}
