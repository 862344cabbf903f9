//
// Copyright (C) 2023 Charles E. Vejnar
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://www.mozilla.org/MPL/2.0/.
//

package segment

import (
	"sort"
	"strings"
)

// NaturalLess compares names so that embedded numbers sort by value
// ("chr2" before "chr10").
func NaturalLess(a, b string) bool {
	for len(a) > 0 && len(b) > 0 {
		ca, cb := chunk(a), chunk(b)
		a, b = a[len(ca):], b[len(cb):]
		if ca == cb {
			continue
		}
		da, db := isDigit(ca[0]), isDigit(cb[0])
		switch {
		case da && db:
			na, nb := strings.TrimLeft(ca, "0"), strings.TrimLeft(cb, "0")
			if len(na) != len(nb) {
				return len(na) < len(nb)
			}
			if na != nb {
				return na < nb
			}
			// Same value, fewer leading zeros first
			return len(ca) < len(cb)
		case da != db:
			// Numbers before text
			return da
		default:
			return ca < cb
		}
	}
	return len(a) < len(b)
}

// SortNatural sorts refs by name with NaturalLess.
func SortNatural(refs []SequenceRef) {
	sort.SliceStable(refs, func(i, j int) bool { return NaturalLess(refs[i].Name, refs[j].Name) })
}

func chunk(s string) string {
	d := isDigit(s[0])
	i := 1
	for i < len(s) && isDigit(s[i]) == d {
		i++
	}
	return s[:i]
}

func isDigit(c byte) bool {
	return c >= '0' && c <= '9'
}
