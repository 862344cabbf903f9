//
// Copyright (C) 2023 Charles E. Vejnar
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://www.mozilla.org/MPL/2.0/.
//

package chunk

import (
	"bytes"
	"context"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"git.sr.ht/~vejnar/GeneDot/lib/alignment"
	"git.sr.ht/~vejnar/GeneDot/lib/dotindex"
)

type rangeCall struct{ start, end int64 }

// memReader serves ranges from data and records every call.
type memReader struct {
	mu    sync.Mutex
	data  []byte
	calls []rangeCall
	gate  chan struct{}
	fail  error
}

func (m *memReader) ReadRange(ctx context.Context, start, end int64) ([]byte, error) {
	m.mu.Lock()
	m.calls = append(m.calls, rangeCall{start, end})
	gate, fail := m.gate, m.fail
	m.mu.Unlock()
	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if fail != nil {
		return nil, fail
	}
	return ReaderAt{R: bytes.NewReader(m.data)}.ReadRange(ctx, start, end)
}

func (m *memReader) Calls() []rangeCall {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]rangeCall(nil), m.calls...)
}

// dataset builds alignment data and the matching index from per-query blocks.
func dataset(t *testing.T, blocks map[string][2]string, order ...string) (*dotindex.Index, []byte) {
	t.Helper()
	var data bytes.Buffer
	var queries []dotindex.QueryEntry
	for _, q := range order {
		e := dotindex.QueryEntry{Name: q, Length: 1000, MatchingRefs: []string{"R1"}}
		e.UniqueStart = int64(data.Len())
		data.WriteString(blocks[q][0])
		e.RepetitiveStart = int64(data.Len())
		data.WriteString(blocks[q][1])
		e.End = int64(data.Len())
		queries = append(queries, e)
	}
	var idx bytes.Buffer
	require.NoError(t, dotindex.Write(&idx, []dotindex.RefEntry{{Name: "R1", Length: 5000, MatchingQueries: order}}, queries, nil))
	ix, err := dotindex.Parse(&idx, nil)
	require.NoError(t, err)
	return ix, data.Bytes()
}

var blocks = map[string][2]string{
	"Q1": {"!Q1!unique\n1,100,1,100,R1\n200,300,500,400,R1\n", "!Q1!repetitive\n10,20,30,40,R1\n"},
	"Q2": {"!Q2!unique\n5,50,5,50,R1\n", "!Q2!repetitive\n"},
	"Q3": {"!Q3!unique\n1,2,3,oops,R1\n", "!Q3!repetitive\n7,8,9,10,R1\n"},
}

func TestEnsureLoadedSingleCombinedRead(t *testing.T) {
	// Offsets of the index: unique block at 100 of size 50, repetitive block of size 30
	src := "#ref\nref,ref_length,matching_queries\nR1,1000,Q\n" +
		"#query\nquery,query_length,matching_refs,bytePosition_unique,bytePosition_repetitive,bytePosition_end\nQ,500,R1,100,50,30\n"
	ix, err := dotindex.Parse(strings.NewReader(src), nil)
	require.NoError(t, err)
	data := strings.Repeat(" ", 100) +
		"!Q!unique\n1,2,3,4,R1\n" + strings.Repeat(" ", 50-len("!Q!unique\n1,2,3,4,R1\n")) +
		"!Q!repetitive\n5,6,7,8,R1\n" + strings.Repeat(" ", 30-len("!Q!repetitive\n5,6,7,8,R1\n"))
	r := &memReader{data: []byte(data)}
	s := NewStore(ix, r, WithShowRepetitive(true))

	require.NoError(t, s.EnsureLoaded(context.Background(), "Q"))
	assert.Equal(t, []rangeCall{{100, 180}}, r.Calls())
	assert.Equal(t, Loaded, s.Status("Q", alignment.Unique))
	assert.Equal(t, Loaded, s.Status("Q", alignment.Repetitive))
	assert.Len(t, s.Records("Q", alignment.Unique), 1)
	assert.Len(t, s.Records("Q", alignment.Repetitive), 1)

	// Second call issues no read
	require.NoError(t, s.EnsureLoaded(context.Background(), "Q"))
	assert.Len(t, r.Calls(), 1)
	assert.Equal(t, 1, s.Reads())
}

func TestEnsureLoadedUniqueThenRepetitive(t *testing.T) {
	ix, data := dataset(t, blocks, "Q1", "Q2")
	r := &memReader{data: data}
	s := NewStore(ix, r)
	ctx := context.Background()

	require.NoError(t, s.EnsureLoaded(ctx, "Q1"))
	q1, _ := ix.Query("Q1")
	assert.Equal(t, []rangeCall{{q1.UniqueStart, q1.RepetitiveStart}}, r.Calls())
	assert.Equal(t, NotRequested, s.Status("Q1", alignment.Repetitive))
	assert.True(t, s.Complete("Q1"))

	recs := s.Records("Q1", alignment.Unique)
	require.Len(t, recs, 2)
	assert.Equal(t, alignment.Record{Ref: "R1", RefStart: 200, RefEnd: 300, Query: "Q1", QueryStart: 500, QueryEnd: 400, Category: alignment.Unique}, recs[1])

	s.SetShowRepetitive(true)
	assert.False(t, s.Complete("Q1"))
	require.NoError(t, s.EnsureLoaded(ctx, "Q1"))
	assert.Equal(t, rangeCall{q1.RepetitiveStart, q1.End}, r.Calls()[1])
	assert.Equal(t, alignment.Repetitive, s.Records("Q1", alignment.Repetitive)[0].Category)
	assert.Len(t, s.Records("Q1", alignment.Unique), 2)

	// Loaded but empty
	require.NoError(t, s.EnsureLoaded(ctx, "Q2"))
	assert.Equal(t, Loaded, s.Status("Q2", alignment.Repetitive))
	assert.Empty(t, s.Records("Q2", alignment.Repetitive))
}

func TestEnsureLoadedParseFailure(t *testing.T) {
	ix, data := dataset(t, blocks, "Q1", "Q3")
	r := &memReader{data: data}
	s := NewStore(ix, r, WithShowRepetitive(true))
	ctx := context.Background()

	require.NoError(t, s.EnsureLoaded(ctx, "Q3"))
	for _, c := range alignment.Categories {
		assert.Equal(t, NotRequested, s.Status("Q3", c))
		assert.Nil(t, s.Records("Q3", c))
		var perr *ParseError
		assert.True(t, errors.As(s.Failure("Q3", c), &perr))
	}

	// A failed chunk is retried
	require.NoError(t, s.EnsureLoaded(ctx, "Q3"))
	assert.Len(t, r.Calls(), 2)
}

func TestEnsureLoadedBangInQueryName(t *testing.T) {
	q := "ctg!7"
	ix, data := dataset(t, map[string][2]string{
		q: {Marker(q, alignment.Unique) + "\n1,100,1,100,R1\n", Marker(q, alignment.Repetitive) + "\n5,6,7,8,R1\n"},
	}, q)
	s := NewStore(ix, &memReader{data: data}, WithShowRepetitive(true))

	require.NoError(t, s.EnsureLoaded(context.Background(), q))
	for _, c := range alignment.Categories {
		assert.Equal(t, Loaded, s.Status(q, c), c.String())
		assert.NoError(t, s.Failure(q, c))
		require.Len(t, s.Records(q, c), 1)
		assert.Equal(t, q, s.Records(q, c)[0].Query)
	}
}

func TestEnsureLoadedLogsCategoryNames(t *testing.T) {
	ix, data := dataset(t, blocks, "Q1", "Q3")
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
	s := NewStore(ix, &memReader{data: data}, WithLogger(logger))
	ctx := context.Background()

	require.NoError(t, s.EnsureLoaded(ctx, "Q1"))
	require.NoError(t, s.EnsureLoaded(ctx, "Q3"))
	out := buf.String()
	assert.Contains(t, out, "msg=\"chunk loaded\" query=Q1 categories=[unique]")
	assert.Contains(t, out, "msg=\"chunk not loaded\" query=Q3 categories=[unique]")
}

func TestEnsureLoadedFailureKeepsPriorBucket(t *testing.T) {
	ix, data := dataset(t, map[string][2]string{
		"Q1": {"!Q1!unique\n1,100,1,100,R1\n", "!Q1!repetitive\nnot,a,row\n"},
	}, "Q1")
	r := &memReader{data: data}
	s := NewStore(ix, r)
	ctx := context.Background()

	require.NoError(t, s.EnsureLoaded(ctx, "Q1"))
	before := s.Records("Q1", alignment.Unique)
	require.Len(t, before, 1)

	s.SetShowRepetitive(true)
	require.NoError(t, s.EnsureLoaded(ctx, "Q1"))
	assert.Equal(t, before, s.Records("Q1", alignment.Unique))
	assert.Equal(t, Loaded, s.Status("Q1", alignment.Unique))
	assert.Equal(t, NotRequested, s.Status("Q1", alignment.Repetitive))
	assert.Error(t, s.Failure("Q1", alignment.Repetitive))
}

func TestEnsureLoadedReadFailureThenRetry(t *testing.T) {
	ix, data := dataset(t, blocks, "Q1")
	r := &memReader{data: data, fail: errors.New("connection reset")}
	s := NewStore(ix, r)
	ctx := context.Background()

	require.NoError(t, s.EnsureLoaded(ctx, "Q1"))
	assert.Equal(t, NotRequested, s.Status("Q1", alignment.Unique))
	assert.EqualError(t, s.Failure("Q1", alignment.Unique), "connection reset")

	r.mu.Lock()
	r.fail = nil
	r.mu.Unlock()
	require.NoError(t, s.EnsureLoaded(ctx, "Q1"))
	assert.Equal(t, Loaded, s.Status("Q1", alignment.Unique))
	assert.NoError(t, s.Failure("Q1", alignment.Unique))
}

func TestEnsureLoadedInFlightIsNoop(t *testing.T) {
	ix, data := dataset(t, blocks, "Q1")
	gate := make(chan struct{})
	r := &memReader{data: data, gate: gate}
	s := NewStore(ix, r)
	ctx := context.Background()

	done := make(chan error)
	go func() { done <- s.EnsureLoaded(ctx, "Q1") }()
	require.Eventually(t, func() bool { return s.Status("Q1", alignment.Unique) == Loading }, time.Second, time.Millisecond)

	// Returns at once without a second read
	require.NoError(t, s.EnsureLoaded(ctx, "Q1"))
	assert.Len(t, r.Calls(), 1)

	close(gate)
	require.NoError(t, <-done)
	assert.Equal(t, Loaded, s.Status("Q1", alignment.Unique))
	assert.Len(t, r.Calls(), 1)
}

func TestEnsureLoadedCancelled(t *testing.T) {
	ix, data := dataset(t, blocks, "Q1")
	r := &memReader{data: data, gate: make(chan struct{})}
	s := NewStore(ix, r)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := s.EnsureLoaded(ctx, "Q1")
	assert.True(t, errors.Is(err, context.Canceled))
	assert.Equal(t, NotRequested, s.Status("Q1", alignment.Unique))
}

func TestEnsureLoadedUnknown(t *testing.T) {
	ix, data := dataset(t, blocks, "Q1")
	s := NewStore(ix, &memReader{data: data})
	assert.True(t, errors.Is(s.EnsureLoaded(context.Background(), "Q9"), ErrUnknownQuery))
}

func TestEnsureLoadedAll(t *testing.T) {
	ix, data := dataset(t, blocks, "Q1", "Q2", "Q3")
	r := &memReader{data: data}
	s := NewStore(ix, r, WithShowRepetitive(true), WithConcurrency(2))
	require.NoError(t, s.EnsureLoadedAll(context.Background(), []string{"Q1", "Q2", "Q3"}))
	assert.Len(t, r.Calls(), 3)
	assert.True(t, s.Complete("Q1"))
	assert.True(t, s.Complete("Q2"))
	assert.False(t, s.Complete("Q3"))

	require.NoError(t, s.EnsureLoadedAll(context.Background(), []string{"Q1", "Q2"}))
	assert.Len(t, r.Calls(), 3)
}

func TestParseChunk(t *testing.T) {
	both := []alignment.Category{alignment.Unique, alignment.Repetitive}
	got, err := Parse([]byte("!Q!unique\r\n1,2,3,4,R\n\n!Q!repetitive\n5,6,8,7,R\n"), "Q", both)
	require.NoError(t, err)
	assert.Len(t, got[alignment.Unique], 1)
	assert.True(t, got[alignment.Repetitive][0].Reverse())

	got, err = Parse(nil, "Q", both)
	require.NoError(t, err)
	assert.NotNil(t, got[alignment.Repetitive])

	uniq := []alignment.Category{alignment.Unique}
	for name, data := range map[string]string{
		"no marker":      "1,2,3,4,R\n",
		"other query":    "!P!unique\n",
		"bad marker":     "!Q\n",
		"bad category":   "!Q!multi\n",
		"unexpected cat": "!Q!repetitive\n",
		"bad row":        "!Q!unique\n1,2,3\n",
	} {
		_, err := Parse([]byte(data), "Q", uniq)
		var perr *ParseError
		assert.True(t, errors.As(err, &perr), name)
	}
	assert.Equal(t, "!Q!repetitive", Marker("Q", alignment.Repetitive))
}

func TestFileReader(t *testing.T) {
	path := filepath.Join(t.TempDir(), "data")
	require.NoError(t, os.WriteFile(path, []byte("0123456789"), 0644))
	r, closer, err := Open(path)
	require.NoError(t, err)
	defer closer()

	got, err := r.ReadRange(context.Background(), 2, 5)
	require.NoError(t, err)
	assert.Equal(t, "234", string(got))

	_, err = r.ReadRange(context.Background(), 8, 20)
	assert.True(t, errors.Is(err, ErrShortRead))
	_, err = r.ReadRange(context.Background(), 5, 2)
	assert.Error(t, err)
}

func TestHTTPReader(t *testing.T) {
	content := "0123456789abcdef"
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		http.ServeContent(w, req, "data", time.Time{}, strings.NewReader(content))
	}))
	defer srv.Close()
	plain := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		w.Write([]byte(content))
	}))
	defer plain.Close()
	missing := httptest.NewServer(http.NotFoundHandler())
	defer missing.Close()

	for _, url := range []string{srv.URL, plain.URL} {
		r, _, err := Open(url)
		require.NoError(t, err)
		got, err := r.ReadRange(context.Background(), 10, 14)
		require.NoError(t, err, url)
		assert.Equal(t, "abcd", string(got))
	}

	r := &HTTP{URL: missing.URL}
	_, err := r.ReadRange(context.Background(), 0, 4)
	assert.Error(t, err)
}
