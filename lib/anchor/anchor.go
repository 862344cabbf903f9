//
// Copyright (C) 2023 Charles E. Vejnar
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://www.mozilla.org/MPL/2.0/.
//

// Package anchor implements unique anchor filtering: an alignment is kept
// as unique when enough of its query interval is covered by no other
// alignment of the same query.
package anchor

import (
	"fmt"
	"sort"

	"github.com/biogo/store/interval"
)

type Interval struct {
	Start, End int
	UID        uintptr
}

func (i Interval) Overlap(b interval.IntRange) bool {
	// Half-open interval indexing.
	return i.End > b.Start && i.Start < b.End
}

func (i Interval) ID() uintptr {
	return i.UID
}

func (i Interval) Range() interval.IntRange {
	return interval.IntRange{Start: i.Start, End: i.End}
}

func (i Interval) String() string {
	return fmt.Sprintf("[%d,%d)#%d", i.Start, i.End, i.UID)
}

type event struct {
	pos   int
	start bool
}

// UniqueCoverage returns the sorted intervals covered by exactly one of ivs.
func UniqueCoverage(ivs []Interval) []Interval {
	events := make([]event, 0, 2*len(ivs))
	for _, iv := range ivs {
		events = append(events, event{iv.Start, true}, event{iv.End, false})
	}
	sort.SliceStable(events, func(i, j int) bool { return events[i].pos < events[j].pos })

	var uniques []Interval
	coverage := 0
	last := -1
	for _, e := range events {
		if coverage == 1 {
			uniques = append(uniques, Interval{Start: last, End: e.pos, UID: uintptr(len(uniques))})
		}
		if e.start {
			coverage++
		} else {
			coverage--
		}
		last = e.pos
	}
	return uniques
}

// Unique returns the indexes of the alignments of one query to keep as
// unique. Intervals are query coordinates with Start <= End. An alignment
// is kept when the uniquely covered length inside it reaches uniqueLength,
// or, with keepSmall, when it exactly spans a uniquely covered interval.
func Unique(ivs []Interval, uniqueLength int, keepSmall bool) ([]int, error) {
	switch len(ivs) {
	case 0:
		return nil, nil
	case 1:
		if keepSmall || ivs[0].End-ivs[0].Start >= uniqueLength {
			return []int{0}, nil
		}
		return nil, nil
	}

	// Tree of uniquely covered intervals
	tree := &interval.IntTree{}
	for _, u := range UniqueCoverage(ivs) {
		if u.End == u.Start {
			continue
		}
		if err := tree.Insert(u, true); err != nil {
			return nil, err
		}
	}
	tree.AdjustRanges()

	var keep []int
	for i, iv := range ivs {
		var sumUnique int
		var exact bool
		for _, hit := range tree.Get(iv) {
			r := hit.Range()
			if r.Start >= iv.Start && r.End <= iv.End {
				sumUnique += r.End - r.Start
				if r.Start == iv.Start && r.End == iv.End {
					exact = true
				}
			}
		}
		if sumUnique >= uniqueLength || (keepSmall && exact) {
			keep = append(keep, i)
		}
	}
	return keep, nil
}
