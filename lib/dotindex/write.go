//
// Copyright (C) 2023 Charles E. Vejnar
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://www.mozilla.org/MPL/2.0/.
//

package dotindex

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"git.sr.ht/~vejnar/GeneDot/lib/alignment"
)

// Write writes refs, queries and overview as an index resource.
func Write(w io.Writer, refs []RefEntry, queries []QueryEntry, overview []alignment.Record) error {
	bw := bufio.NewWriter(w)
	// Refs
	fmt.Fprintf(bw, "#%s\nref,ref_length,matching_queries\n", BlockRef)
	for _, e := range refs {
		fmt.Fprintf(bw, "%s,%d,%s\n", e.Name, e.Length, strings.Join(e.MatchingQueries, ListSep))
	}
	// Queries
	fmt.Fprintf(bw, "#%s\nquery,query_length,matching_refs,bytePosition_unique,bytePosition_repetitive,bytePosition_end\n", BlockQuery)
	for _, e := range queries {
		fmt.Fprintf(bw, "%s,%d,%s,%d,%d,%d\n", e.Name, e.Length, strings.Join(e.MatchingRefs, ListSep), e.UniqueStart, e.RepetitiveStart-e.UniqueStart, e.End-e.RepetitiveStart)
	}
	// Overview
	fmt.Fprintf(bw, "#%s\n", BlockOverview)
	if err := alignment.WriteOverview(bw, overview); err != nil {
		return err
	}
	return bw.Flush()
}
