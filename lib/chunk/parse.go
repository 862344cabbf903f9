//
// Copyright (C) 2023 Charles E. Vejnar
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://www.mozilla.org/MPL/2.0/.
//

package chunk

import (
	"bufio"
	"bytes"
	"fmt"
	"strings"

	"github.com/pkg/errors"

	"git.sr.ht/~vejnar/GeneDot/lib/alignment"
)

// ParseError reports a malformed chunk of alignment data.
type ParseError struct {
	Query string
	Line  int
	Err   error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("chunk of %s (line %d): %v", e.Query, e.Line, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

// Marker returns the line introducing the records of query in category c.
func Marker(query string, c alignment.Category) string {
	return "!" + query + "!" + c.String()
}

// Parse splits data into records per category. Data holds one or more
// blocks, each introduced by a marker line; only the categories in want
// may appear. Every category in want is present in the result, empty if
// its block is missing.
func Parse(data []byte, query string, want []alignment.Category) (map[alignment.Category][]alignment.Record, error) {
	buckets := make(map[alignment.Category][]alignment.Record, len(want))
	for _, c := range want {
		buckets[c] = []alignment.Record{}
	}
	var current alignment.Category
	inBlock := false
	scanner := bufio.NewScanner(bytes.NewReader(data))
	scanner.Buffer(make([]byte, 64*1024), 16*1024*1024)
	iline := 0
	for scanner.Scan() {
		iline++
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		if line[0] == '!' {
			// Query names may contain '!': the category follows the last one
			sep := strings.LastIndexByte(line, '!')
			if sep == 0 {
				return nil, &ParseError{Query: query, Line: iline, Err: errors.Errorf("malformed marker %q", line)}
			}
			if name := line[1:sep]; name != query {
				return nil, &ParseError{Query: query, Line: iline, Err: errors.Errorf("marker for query %q", name)}
			}
			c, err := alignment.ParseCategory(line[sep+1:])
			if err != nil {
				return nil, &ParseError{Query: query, Line: iline, Err: err}
			}
			if _, ok := buckets[c]; !ok {
				return nil, &ParseError{Query: query, Line: iline, Err: errors.Errorf("unexpected %s block", c)}
			}
			current, inBlock = c, true
			continue
		}
		if !inBlock {
			return nil, &ParseError{Query: query, Line: iline, Err: errors.New("record before marker")}
		}
		rec, err := alignment.ParseRow(line, query, current)
		if err != nil {
			return nil, &ParseError{Query: query, Line: iline, Err: err}
		}
		buckets[current] = append(buckets[current], rec)
	}
	if err := scanner.Err(); err != nil {
		return nil, &ParseError{Query: query, Line: iline, Err: err}
	}
	return buckets, nil
}
