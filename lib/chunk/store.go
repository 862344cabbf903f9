//
// Copyright (C) 2023 Charles E. Vejnar
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://www.mozilla.org/MPL/2.0/.
//

package chunk

import (
	"context"
	"log/slog"
	"sync"

	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"
	"gopkg.in/fatih/set.v0"

	"git.sr.ht/~vejnar/GeneDot/lib/alignment"
	"git.sr.ht/~vejnar/GeneDot/lib/dotindex"
)

var ErrUnknownQuery = errors.New("query not in index")

// Status is the load state of the records of one query in one category.
type Status uint8

const (
	NotRequested Status = iota
	Loading
	Loaded
)

func (s Status) String() string {
	switch s {
	case NotRequested:
		return "not requested"
	case Loading:
		return "loading"
	case Loaded:
		return "loaded"
	}
	return "unknown"
}

type key struct {
	query    string
	category alignment.Category
}

// Store loads alignment records per query on demand and keeps them.
// Records of a (query, category) are read at most once; a failed read or
// parse leaves the pair not loaded so a later call retries.
type Store struct {
	reader      RangeReader
	logger      *slog.Logger
	concurrency int

	mu             sync.Mutex
	entries        map[string]dotindex.QueryEntry
	loaded         map[key]bool
	failures       map[key]error
	records        map[string]map[alignment.Category][]alignment.Record
	showRepetitive bool
	inFlight       set.Interface
	nRead          int
}

type Option func(*Store)

// WithShowRepetitive sets whether repetitive records are loaded.
func WithShowRepetitive(show bool) Option {
	return func(s *Store) { s.showRepetitive = show }
}

// WithLogger sets the logger reporting reads and failures.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Store) { s.logger = logger }
}

// WithConcurrency bounds the number of simultaneous reads of EnsureLoadedAll.
func WithConcurrency(n int) Option {
	return func(s *Store) { s.concurrency = n }
}

// NewStore returns a Store reading the queries of ix from r.
func NewStore(ix *dotindex.Index, r RangeReader, opts ...Option) *Store {
	s := &Store{
		reader:      r,
		logger:      slog.Default(),
		concurrency: 4,
		entries:     make(map[string]dotindex.QueryEntry, len(ix.Queries)),
		loaded:      make(map[key]bool),
		failures:    make(map[key]error),
		records:     make(map[string]map[alignment.Category][]alignment.Record),
		inFlight:    set.New(set.ThreadSafe),
	}
	for _, e := range ix.Queries {
		s.entries[e.Name] = e
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.concurrency < 1 {
		s.concurrency = 1
	}
	return s
}

// SetShowRepetitive changes whether EnsureLoaded fetches repetitive records.
func (s *Store) SetShowRepetitive(show bool) {
	s.mu.Lock()
	s.showRepetitive = show
	s.mu.Unlock()
}

// ShowRepetitive reports whether repetitive records are loaded.
func (s *Store) ShowRepetitive() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.showRepetitive
}

// Categories returns the categories currently required.
func (s *Store) Categories() []alignment.Category {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.required()
}

func (s *Store) required() []alignment.Category {
	if s.showRepetitive {
		return []alignment.Category{alignment.Unique, alignment.Repetitive}
	}
	return []alignment.Category{alignment.Unique}
}

// EnsureLoaded fetches the required categories of query that are neither
// loaded nor being loaded, with a single range read. Chunk read and parse
// failures are logged and recorded, not returned; only an unknown query or
// a cancelled context is an error.
func (s *Store) EnsureLoaded(ctx context.Context, query string) error {
	entry, ok := s.entries[query]
	if !ok {
		return errors.Wrap(ErrUnknownQuery, query)
	}

	// Claim categories
	s.mu.Lock()
	var need []alignment.Category
	for _, c := range s.required() {
		k := key{query, c}
		if s.loaded[k] || s.inFlight.Has(k) {
			continue
		}
		s.inFlight.Add(k)
		need = append(need, c)
	}
	s.mu.Unlock()
	if len(need) == 0 {
		return nil
	}

	buckets, err := s.fetch(ctx, entry, need)

	s.mu.Lock()
	defer s.mu.Unlock()
	for _, c := range need {
		k := key{query, c}
		s.inFlight.Remove(k)
		if err != nil {
			s.failures[k] = err
			continue
		}
		if s.records[query] == nil {
			s.records[query] = make(map[alignment.Category][]alignment.Record)
		}
		s.records[query][c] = buckets[c]
		s.loaded[k] = true
		delete(s.failures, k)
	}
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		s.logger.Warn("chunk not loaded", "query", query, "categories", categoryNames(need), "err", err)
		return nil
	}
	s.logger.Debug("chunk loaded", "query", query, "categories", categoryNames(need))
	return nil
}

func (s *Store) fetch(ctx context.Context, entry dotindex.QueryEntry, need []alignment.Category) (map[alignment.Category][]alignment.Record, error) {
	start, end := byteRange(entry, need)
	var data []byte
	if end > start {
		var err error
		s.mu.Lock()
		s.nRead++
		s.mu.Unlock()
		s.logger.Debug("reading chunk", "query", entry.Name, "start", start, "end", end)
		if data, err = s.reader.ReadRange(ctx, start, end); err != nil {
			return nil, err
		}
	}
	return Parse(data, entry.Name, need)
}

func categoryNames(cs []alignment.Category) []string {
	names := make([]string, len(cs))
	for i, c := range cs {
		names[i] = c.String()
	}
	return names
}

// byteRange returns the span covering the blocks of categories need.
func byteRange(entry dotindex.QueryEntry, need []alignment.Category) (start, end int64) {
	var unique, repetitive bool
	for _, c := range need {
		switch c {
		case alignment.Unique:
			unique = true
		case alignment.Repetitive:
			repetitive = true
		}
	}
	switch {
	case unique && repetitive:
		return entry.UniqueStart, entry.End
	case unique:
		return entry.UniqueStart, entry.RepetitiveStart
	case repetitive:
		return entry.RepetitiveStart, entry.End
	}
	return 0, 0
}

// EnsureLoadedAll calls EnsureLoaded for each query, with bounded concurrency.
func (s *Store) EnsureLoadedAll(ctx context.Context, queries []string) error {
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.concurrency)
	for _, q := range queries {
		q := q
		g.Go(func() error {
			return s.EnsureLoaded(gctx, q)
		})
	}
	return g.Wait()
}

// Records returns the loaded records of query in category c. The slice is
// shared and must not be modified.
func (s *Store) Records(query string, c alignment.Category) []alignment.Record {
	s.mu.Lock()
	defer s.mu.Unlock()
	recs := s.records[query][c]
	return recs[:len(recs):len(recs)]
}

// Status returns the load state of query in category c.
func (s *Store) Status(query string, c alignment.Category) Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	k := key{query, c}
	switch {
	case s.loaded[k]:
		return Loaded
	case s.inFlight.Has(k):
		return Loading
	}
	return NotRequested
}

// Failure returns the error of the last failed load of query in category
// c, or nil.
func (s *Store) Failure(query string, c alignment.Category) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.failures[key{query, c}]
}

// Complete reports whether all required categories of query are loaded.
func (s *Store) Complete(query string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, c := range s.required() {
		if !s.loaded[key{query, c}] {
			return false
		}
	}
	return true
}

// Reads returns the number of range reads issued.
func (s *Store) Reads() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.nRead
}
