//
// Copyright (C) 2023 Charles E. Vejnar
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://www.mozilla.org/MPL/2.0/.
//

package alignment

import (
	"io"
	"strconv"
	"strings"

	"github.com/pkg/errors"

	"git.sr.ht/~vejnar/GeneDot/lib/table"
)

// Number of fields of a chunk row: ref_start,ref_end,query_start,query_end,ref
const RowFields = 5

// Overview columns.
var OverviewHeader = []string{"ref_start", "ref_end", "query_start", "query_end", "ref", "query", "tag"}

// ParseRow parses one chunk row for query and category c.
func ParseRow(line string, query string, c Category) (rec Record, err error) {
	fields := strings.Split(line, ",")
	if len(fields) != RowFields {
		err = errors.Errorf("%d fields, want %d", len(fields), RowFields)
		return
	}
	var coords [4]int
	for i := 0; i < 4; i++ {
		if coords[i], err = table.ParseInt(strings.TrimSpace(fields[i])); err != nil {
			return
		}
	}
	ref := strings.TrimSpace(fields[4])
	if ref == "" {
		err = errors.New("empty ref")
		return
	}
	return Record{
		Ref: ref, RefStart: coords[0], RefEnd: coords[1],
		Query: query, QueryStart: coords[2], QueryEnd: coords[3],
		Category: c,
	}, nil
}

// FormatRow formats rec as a chunk row, without newline.
func FormatRow(rec Record) string {
	var b strings.Builder
	b.WriteString(strconv.Itoa(rec.RefStart))
	b.WriteByte(',')
	b.WriteString(strconv.Itoa(rec.RefEnd))
	b.WriteByte(',')
	b.WriteString(strconv.Itoa(rec.QueryStart))
	b.WriteByte(',')
	b.WriteString(strconv.Itoa(rec.QueryEnd))
	b.WriteByte(',')
	b.WriteString(rec.Ref)
	return b.String()
}

// ParseOverview parses an overview CSV block. The tag column is optional
// and defaults to unique.
func ParseOverview(r io.Reader) ([]Record, error) {
	t, err := table.Read(r)
	if err != nil {
		return nil, err
	}
	if err = t.Require(OverviewHeader[:6]...); err != nil {
		return nil, err
	}
	recs := make([]Record, len(t.Rows))
	for i := range t.Rows {
		rec := Record{Ref: t.String(i, "ref"), Query: t.String(i, "query")}
		for _, f := range []struct {
			col string
			v   *int
		}{
			{"ref_start", &rec.RefStart},
			{"ref_end", &rec.RefEnd},
			{"query_start", &rec.QueryStart},
			{"query_end", &rec.QueryEnd},
		} {
			if *f.v, err = t.Int(i, f.col); err != nil {
				return nil, err
			}
		}
		if tag := t.String(i, "tag"); tag != "" {
			if rec.Category, err = ParseCategory(tag); err != nil {
				return nil, errors.Wrapf(err, "row %d", i+1)
			}
		}
		recs[i] = rec
	}
	return recs, nil
}

// WriteOverview writes recs as an overview CSV block with header.
func WriteOverview(w io.Writer, recs []Record) error {
	if _, err := io.WriteString(w, strings.Join(OverviewHeader, ",")+"\n"); err != nil {
		return err
	}
	for _, rec := range recs {
		if _, err := io.WriteString(w, FormatRow(rec)+","+rec.Query+","+rec.Category.String()+"\n"); err != nil {
			return err
		}
	}
	return nil
}
