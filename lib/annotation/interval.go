//
// Copyright (C) 2015-2023 Charles E. Vejnar
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://www.mozilla.org/MPL/2.0/.
//

package annotation

import (
	"fmt"

	"github.com/biogo/store/interval"
)

// Integer-specific intervals

type IntInterval struct {
	Start, End int
	UID        uintptr
	Feature    *Feature
}

func (i IntInterval) Overlap(b interval.IntRange) bool {
	// Half-open interval indexing.
	return i.End > b.Start && i.Start < b.End
}

func (i IntInterval) ID() uintptr {
	return i.UID
}

func (i IntInterval) Range() interval.IntRange {
	return interval.IntRange{Start: i.Start, End: i.End}
}

func (i IntInterval) String() string {
	return fmt.Sprintf("[%d,%d)#%d-%s", i.Start, i.End, i.UID, i.Feature.Name)
}

// BuildTrees builds one tree per sequence holding the features of the sequence.
func BuildTrees(features []Feature) (trees map[string]*interval.IntTree, err error) {
	trees = make(map[string]*interval.IntTree)
	for i := range features {
		feat := &features[i]
		// New tree for unseen sequence
		if _, ok := trees[feat.Seq]; !ok {
			trees[feat.Seq] = &interval.IntTree{}
		}
		iv := IntInterval{Start: feat.Start, End: feat.End, UID: uintptr(i), Feature: feat}
		// Point features occupy one position
		if iv.End == iv.Start {
			iv.End++
		}
		if err = trees[feat.Seq].Insert(iv, true); err != nil {
			return
		}
	}
	for k := range trees {
		trees[k].AdjustRanges()
	}
	return
}
