//
// Copyright (C) 2023 Charles E. Vejnar
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://www.mozilla.org/MPL/2.0/.
//

package table

import (
	"encoding/csv"
	"io"
	"math"
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

// Table is a CSV block with a header row. Lines holds the input line of
// each row, the header being on line 1.
type Table struct {
	Header []string
	Rows   [][]string
	Lines  []int
	cols   map[string]int
}

// Read parses a CSV block whose first row is the header. Rows may have
// fewer fields than the header; missing fields read as empty.
func Read(r io.Reader) (*Table, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true
	header, err := cr.Read()
	if err == io.EOF {
		return nil, errors.New("missing header")
	} else if err != nil {
		return nil, err
	}
	t := &Table{Header: header, cols: make(map[string]int, len(header))}
	for i, h := range header {
		t.cols[strings.TrimSpace(h)] = i
	}
	for {
		row, err := cr.Read()
		if err == io.EOF {
			break
		} else if err != nil {
			return nil, err
		}
		if len(row) == 1 && row[0] == "" {
			continue
		}
		line, _ := cr.FieldPos(0)
		if len(row) > len(header) {
			return nil, errors.Errorf("line %d: %d fields, header has %d", line, len(row), len(header))
		}
		t.Rows = append(t.Rows, row)
		t.Lines = append(t.Lines, line)
	}
	return t, nil
}

// Line returns the input line of row i.
func (t *Table) Line(i int) int {
	return t.Lines[i]
}

// Has reports whether the header contains col.
func (t *Table) Has(col string) bool {
	_, ok := t.cols[col]
	return ok
}

// Require returns an error naming the first missing column.
func (t *Table) Require(cols ...string) error {
	for _, c := range cols {
		if !t.Has(c) {
			return errors.Errorf("missing column %q", c)
		}
	}
	return nil
}

// String returns field col of row i.
func (t *Table) String(i int, col string) string {
	j, ok := t.cols[col]
	if !ok || j >= len(t.Rows[i]) {
		return ""
	}
	return strings.TrimSpace(t.Rows[i][j])
}

// Int returns field col of row i as an integer. Floats with an integral
// value are accepted.
func (t *Table) Int(i int, col string) (int, error) {
	v, err := ParseInt(t.String(i, col))
	if err != nil {
		return 0, errors.Wrapf(err, "row %d column %s", i+1, col)
	}
	return v, nil
}

// Int64 is Int for byte offsets.
func (t *Table) Int64(i int, col string) (int64, error) {
	v, err := ParseInt64(t.String(i, col))
	if err != nil {
		return 0, errors.Wrapf(err, "row %d column %s", i+1, col)
	}
	return v, nil
}

// List splits field col of row i on sep, dropping empty items.
func (t *Table) List(i int, col, sep string) []string {
	var items []string
	for _, it := range strings.Split(t.String(i, col), sep) {
		if it != "" {
			items = append(items, it)
		}
	}
	return items
}

// ParseInt parses an integer written either as "12" or "12.0".
func ParseInt(s string) (int, error) {
	v, err := ParseInt64(s)
	if err != nil {
		return 0, err
	}
	if int64(int(v)) != v {
		return 0, errors.Errorf("%q out of range", s)
	}
	return int(v), nil
}

// ParseInt64 is ParseInt for 64-bit values.
func ParseInt64(s string) (int64, error) {
	if v, err := strconv.ParseInt(s, 10, 64); err == nil {
		return v, nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, err
	}
	if f != math.Trunc(f) || f < math.MinInt64 || f >= math.MaxInt64 {
		return 0, errors.Errorf("%q is not an integer", s)
	}
	return int64(f), nil
}
