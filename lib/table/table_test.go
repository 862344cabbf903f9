//
// Copyright (C) 2023 Charles E. Vejnar
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://www.mozilla.org/MPL/2.0/.
//

package table

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRead(t *testing.T) {
	tb, err := Read(strings.NewReader("name, length ,offset\nchr1,100,0\n\nchr2\nchr3,12.0,100.0\n"))
	require.NoError(t, err)
	assert.Equal(t, [][]string{{"chr1", "100", "0"}, {"chr2"}, {"chr3", "12.0", "100.0"}}, tb.Rows)
	assert.Equal(t, []int{2, 4, 5}, tb.Lines)
	assert.Equal(t, 5, tb.Line(2))

	assert.True(t, tb.Has("length"))
	assert.False(t, tb.Has(" length "))
	assert.NoError(t, tb.Require("name", "offset"))
	assert.Error(t, tb.Require("name", "strand"))

	// Short rows read as empty
	assert.Equal(t, "", tb.String(1, "length"))
	_, err = tb.Int(1, "length")
	assert.Error(t, err)

	v, err := tb.Int(2, "length")
	require.NoError(t, err)
	assert.Equal(t, 12, v)
	off, err := tb.Int64(2, "offset")
	require.NoError(t, err)
	assert.Equal(t, int64(100), off)
}

func TestReadErrors(t *testing.T) {
	_, err := Read(strings.NewReader(""))
	assert.EqualError(t, err, "missing header")

	_, err = Read(strings.NewReader("a,b\n1,2\n1,2,3\n"))
	assert.EqualError(t, err, "line 3: 3 fields, header has 2")

	_, err = Read(strings.NewReader("a,b\n\"1,2\n"))
	assert.Error(t, err)
}

func TestParseInt(t *testing.T) {
	cases := []struct {
		in  string
		out int64
		ok  bool
	}{
		{"12", 12, true},
		{"-3", -3, true},
		{"12.0", 12, true},
		{"100.0", 100, true},
		{"1e3", 1000, true},
		{"12.5", 0, false},
		{"x", 0, false},
		{"", 0, false},
		{"NaN", 0, false},
		{"1e300", 0, false},
	}
	for _, c := range cases {
		v, err := ParseInt64(c.in)
		w, werr := ParseInt(c.in)
		if !c.ok {
			assert.Error(t, err, c.in)
			assert.Error(t, werr, c.in)
			continue
		}
		require.NoError(t, err, c.in)
		require.NoError(t, werr, c.in)
		assert.Equal(t, c.out, v, c.in)
		assert.Equal(t, int(c.out), w, c.in)
	}
}

func TestList(t *testing.T) {
	tb, err := Read(strings.NewReader("ref,matching\nR1,Q1~~Q2~\nR2,\n"))
	require.NoError(t, err)
	assert.Equal(t, []string{"Q1", "Q2"}, tb.List(0, "matching", "~"))
	assert.Nil(t, tb.List(1, "matching", "~"))
}
