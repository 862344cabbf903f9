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
	"log/slog"
	"strings"

	"github.com/pkg/errors"
	"gopkg.in/fatih/set.v0"

	"git.sr.ht/~vejnar/GeneDot/lib/alignment"
	"git.sr.ht/~vejnar/GeneDot/lib/segment"
	"git.sr.ht/~vejnar/GeneDot/lib/table"
)

const (
	BlockRef      = "ref"
	BlockQuery    = "query"
	BlockOverview = "overview"

	// Separator of the matching_queries and matching_refs lists
	ListSep = "~"
)

var ErrUnknownName = errors.New("unknown name")

// ParseError reports a malformed index block.
type ParseError struct {
	Block string
	Line  int
	Err   error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("index block #%s (line %d): %v", e.Block, e.Line, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

type RefEntry struct {
	Name            string
	Length          int
	MatchingQueries []string
}

// QueryEntry locates the records of a query in the alignment data:
// unique records in [UniqueStart, RepetitiveStart), repetitive ones in
// [RepetitiveStart, End).
type QueryEntry struct {
	Name                              string
	Length                            int
	MatchingRefs                      []string
	UniqueStart, RepetitiveStart, End int64
}

// Index is the parsed index resource of a dataset.
type Index struct {
	Refs     []RefEntry
	Queries  []QueryEntry
	Overview []alignment.Record
	Warnings []string

	refPos, queryPos map[string]int
}

type block struct {
	name  string
	line  int
	lines []string
}

// Parse reads an index resource. Unknown marker lines are recorded as
// warnings and their content ignored. Any malformed block fails the parse.
func Parse(r io.Reader, logger *slog.Logger) (*Index, error) {
	if logger == nil {
		logger = slog.Default()
	}
	ix := &Index{}
	blocks := make(map[string]*block)
	var current *block
	skipping := false
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), 64*1024*1024)
	iline := 0
	for scanner.Scan() {
		iline++
		line := strings.TrimRight(scanner.Text(), "\r")
		if strings.HasPrefix(line, "#") {
			name := strings.TrimSpace(line[1:])
			switch name {
			case BlockRef, BlockQuery, BlockOverview:
				if _, ok := blocks[name]; ok {
					return nil, &ParseError{Block: name, Line: iline, Err: errors.New("duplicate block")}
				}
				current = &block{name: name, line: iline}
				blocks[name] = current
				skipping = false
			default:
				ix.Warnings = append(ix.Warnings, fmt.Sprintf("line %d: unknown marker %q", iline, line))
				logger.Warn("index: unknown marker", "line", iline, "marker", line)
				current = nil
				skipping = true
			}
			continue
		}
		if current == nil {
			if !skipping && strings.TrimSpace(line) != "" {
				return nil, &ParseError{Line: iline, Err: errors.New("content before first marker")}
			}
			continue
		}
		current.lines = append(current.lines, line)
	}
	if err := scanner.Err(); err != nil {
		return nil, errors.Wrap(err, "reading index")
	}

	// Required blocks
	for _, name := range []string{BlockRef, BlockQuery} {
		if _, ok := blocks[name]; !ok {
			return nil, &ParseError{Block: name, Line: iline, Err: errors.New("missing block")}
		}
	}
	if err := ix.parseRefs(blocks[BlockRef]); err != nil {
		return nil, err
	}
	if err := ix.parseQueries(blocks[BlockQuery]); err != nil {
		return nil, err
	}
	if b, ok := blocks[BlockOverview]; ok {
		recs, err := alignment.ParseOverview(b.reader())
		if err != nil {
			return nil, b.fail(err)
		}
		ix.Overview = recs
	}
	return ix, nil
}

func (b *block) reader() io.Reader {
	return strings.NewReader(strings.Join(b.lines, "\n"))
}

func (b *block) fail(err error) error {
	return &ParseError{Block: b.name, Line: b.line, Err: err}
}

// failRow reports err on the file line of row i of t, a table read from b.
func (b *block) failRow(t *table.Table, i int, err error) error {
	return &ParseError{Block: b.name, Line: b.line + t.Line(i), Err: err}
}

func (b *block) table(cols ...string) (*table.Table, error) {
	t, err := table.Read(b.reader())
	if err != nil {
		return nil, b.fail(err)
	}
	if err = t.Require(cols...); err != nil {
		return nil, b.fail(err)
	}
	return t, nil
}

func (ix *Index) parseRefs(b *block) error {
	t, err := b.table("ref", "ref_length", "matching_queries")
	if err != nil {
		return err
	}
	ix.refPos = make(map[string]int, len(t.Rows))
	for i := range t.Rows {
		e := RefEntry{Name: t.String(i, "ref"), MatchingQueries: t.List(i, "matching_queries", ListSep)}
		if e.Length, err = t.Int(i, "ref_length"); err != nil {
			return b.failRow(t, i, err)
		}
		if err = checkEntry(e.Name, e.Length, ix.refPos); err != nil {
			return b.failRow(t, i, err)
		}
		ix.refPos[e.Name] = len(ix.Refs)
		ix.Refs = append(ix.Refs, e)
	}
	return nil
}

func (ix *Index) parseQueries(b *block) error {
	t, err := b.table("query", "query_length", "matching_refs", "bytePosition_unique", "bytePosition_repetitive", "bytePosition_end")
	if err != nil {
		return err
	}
	ix.queryPos = make(map[string]int, len(t.Rows))
	for i := range t.Rows {
		e := QueryEntry{Name: t.String(i, "query"), MatchingRefs: t.List(i, "matching_refs", ListSep)}
		if e.Length, err = t.Int(i, "query_length"); err != nil {
			return b.failRow(t, i, err)
		}
		if err = checkEntry(e.Name, e.Length, ix.queryPos); err != nil {
			return b.failRow(t, i, err)
		}
		// Offset of unique block, size of unique block, size of repetitive block
		var pos [3]int64
		for j, col := range []string{"bytePosition_unique", "bytePosition_repetitive", "bytePosition_end"} {
			if pos[j], err = t.Int64(i, col); err != nil {
				return b.failRow(t, i, err)
			}
			if pos[j] < 0 {
				return b.failRow(t, i, errors.Errorf("negative %s", col))
			}
		}
		e.UniqueStart = pos[0]
		e.RepetitiveStart = pos[0] + pos[1]
		e.End = e.RepetitiveStart + pos[2]
		ix.queryPos[e.Name] = len(ix.Queries)
		ix.Queries = append(ix.Queries, e)
	}
	return nil
}

func checkEntry(name string, length int, seen map[string]int) error {
	if name == "" {
		return errors.New("empty name")
	}
	if length <= 0 {
		return errors.Errorf("%s: non-positive length %d", name, length)
	}
	if _, ok := seen[name]; ok {
		return errors.Errorf("%s: duplicate name", name)
	}
	return nil
}

// Ref returns the entry of reference name.
func (ix *Index) Ref(name string) (RefEntry, bool) {
	i, ok := ix.refPos[name]
	if !ok {
		return RefEntry{}, false
	}
	return ix.Refs[i], true
}

// Query returns the entry of query name.
func (ix *Index) Query(name string) (QueryEntry, bool) {
	i, ok := ix.queryPos[name]
	if !ok {
		return QueryEntry{}, false
	}
	return ix.Queries[i], true
}

// RefNames returns all reference names in index order.
func (ix *Index) RefNames() []string {
	names := make([]string, len(ix.Refs))
	for i, e := range ix.Refs {
		names[i] = e.Name
	}
	return names
}

// QueryNames returns all query names in index order.
func (ix *Index) QueryNames() []string {
	names := make([]string, len(ix.Queries))
	for i, e := range ix.Queries {
		names[i] = e.Name
	}
	return names
}

// RefSegments returns the references named in names, in index order.
func (ix *Index) RefSegments(names []string) ([]segment.SequenceRef, error) {
	keep, err := nameSet(names, ix.refPos)
	if err != nil {
		return nil, err
	}
	var refs []segment.SequenceRef
	for _, e := range ix.Refs {
		if keep.Has(e.Name) {
			refs = append(refs, segment.SequenceRef{Name: e.Name, Length: e.Length})
		}
	}
	return refs, nil
}

// QuerySegments returns the queries named in names, in index order.
func (ix *Index) QuerySegments(names []string) ([]segment.SequenceRef, error) {
	keep, err := nameSet(names, ix.queryPos)
	if err != nil {
		return nil, err
	}
	var refs []segment.SequenceRef
	for _, e := range ix.Queries {
		if keep.Has(e.Name) {
			refs = append(refs, segment.SequenceRef{Name: e.Name, Length: e.Length})
		}
	}
	return refs, nil
}

// QueriesForRefs returns the queries matching any of refs, in index order.
// Queries listed as matching but absent from the query block are ignored.
func (ix *Index) QueriesForRefs(refs []string) ([]string, error) {
	if _, err := nameSet(refs, ix.refPos); err != nil {
		return nil, err
	}
	matching := set.New(set.NonThreadSafe)
	for _, name := range refs {
		for _, q := range ix.Refs[ix.refPos[name]].MatchingQueries {
			matching.Add(q)
		}
	}
	var queries []string
	for _, e := range ix.Queries {
		if matching.Has(e.Name) {
			queries = append(queries, e.Name)
		}
	}
	return queries, nil
}

// RefsForQueries returns the references matching any of queries, in index order.
func (ix *Index) RefsForQueries(queries []string) ([]string, error) {
	if _, err := nameSet(queries, ix.queryPos); err != nil {
		return nil, err
	}
	matching := set.New(set.NonThreadSafe)
	for _, name := range queries {
		for _, r := range ix.Queries[ix.queryPos[name]].MatchingRefs {
			matching.Add(r)
		}
	}
	var refs []string
	for _, e := range ix.Refs {
		if matching.Has(e.Name) {
			refs = append(refs, e.Name)
		}
	}
	return refs, nil
}

func nameSet(names []string, pos map[string]int) (set.Interface, error) {
	s := set.New(set.NonThreadSafe)
	for _, name := range names {
		if _, ok := pos[name]; !ok {
			return nil, errors.Wrap(ErrUnknownName, name)
		}
		s.Add(name)
	}
	return s, nil
}
