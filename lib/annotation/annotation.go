//
// Copyright (C) 2023 Charles E. Vejnar
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://www.mozilla.org/MPL/2.0/.
//

package annotation

import (
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/biogo/store/interval"
	"github.com/pkg/errors"

	"git.sr.ht/~vejnar/GeneDot/lib/scale"
	"git.sr.ht/~vejnar/GeneDot/lib/table"
	"git.sr.ht/~vejnar/GeneDot/lib/viewport"
)

// Side is the axis an annotation track is drawn along.
type Side uint8

const (
	SideRef Side = iota
	SideQuery
)

// Key returns the column naming the sequence of a feature on side s.
func (s Side) Key() string {
	if s == SideQuery {
		return "query"
	}
	return "ref"
}

func (s Side) String() string { return s.Key() }

// ParseSide parses "ref" or "query".
func ParseSide(v string) (Side, error) {
	switch strings.ToLower(v) {
	case "ref":
		return SideRef, nil
	case "query":
		return SideQuery, nil
	}
	return 0, errors.Errorf("unknown side %q", v)
}

// SideError reports a track whose header does not match its declared side.
type SideError struct {
	Declared Side
	Header   []string
}

func (e *SideError) Error() string {
	return fmt.Sprintf("annotation declared for %s but header is %s", e.Declared, strings.Join(e.Header, ","))
}

// Feature is one annotated interval, 0-based half-open.
type Feature struct {
	ID         uint32
	Seq        string
	Start, End int
	Name       string
	Attrs      map[string]string
}

// Track is a set of features drawn along one axis.
type Track struct {
	Name     string
	Side     Side
	Features []Feature
	trees    map[string]*interval.IntTree
}

// Parse reads a CSV track declared for side. The header must contain the
// side key (ref or query), otherwise the track fails with a SideError; the
// _start and _end columns of the key are required.
func Parse(r io.Reader, name string, side Side) (*Track, error) {
	t, err := table.Read(r)
	if err != nil {
		return nil, errors.Wrapf(err, "annotation %s", name)
	}
	key := side.Key()
	if !t.Has(key) {
		return nil, &SideError{Declared: side, Header: t.Header}
	}
	if err = t.Require(key+"_start", key+"_end"); err != nil {
		return nil, errors.Wrapf(err, "annotation %s", name)
	}
	track := &Track{Name: name, Side: side, Features: make([]Feature, 0, len(t.Rows))}
	for i := range t.Rows {
		feat := Feature{ID: uint32(i), Seq: t.String(i, key), Name: t.String(i, "name"), Attrs: make(map[string]string)}
		if feat.Start, err = t.Int(i, key+"_start"); err != nil {
			return nil, errors.Wrapf(err, "annotation %s", name)
		}
		if feat.End, err = t.Int(i, key+"_end"); err != nil {
			return nil, errors.Wrapf(err, "annotation %s", name)
		}
		if feat.Start > feat.End {
			feat.Start, feat.End = feat.End, feat.Start
		}
		for _, h := range t.Header {
			h = strings.TrimSpace(h)
			switch h {
			case "", key, key + "_start", key + "_end", "name":
			default:
				feat.Attrs[h] = t.String(i, h)
			}
		}
		track.Features = append(track.Features, feat)
	}
	if track.trees, err = BuildTrees(track.Features); err != nil {
		return nil, errors.Wrapf(err, "annotation %s", name)
	}
	return track, nil
}

// Overlapping returns the features of seq overlapping [start, end), sorted by start.
func (t *Track) Overlapping(seq string, start, end int) []Feature {
	tree, ok := t.trees[seq]
	if !ok {
		return nil
	}
	var feats []Feature
	for _, iv := range tree.Get(IntInterval{Start: start, End: end}) {
		feats = append(feats, *iv.(IntInterval).Feature)
	}
	sort.Slice(feats, func(i, j int) bool {
		if feats[i].Start != feats[j].Start {
			return feats[i].Start < feats[j].Start
		}
		return feats[i].ID < feats[j].ID
	})
	return feats
}

// Spans maps the features lying on sequences of s to screen space through
// axis. Features on sequences missing from s are left out.
func (t *Track) Spans(s *scale.Scale, axis viewport.Linear) []viewport.Span {
	var spans []viewport.Span
	for i, feat := range t.Features {
		if !s.Has(feat.Seq) {
			continue
		}
		start, _ := s.Get(feat.Seq, feat.Start)
		end, _ := s.Get(feat.Seq, feat.End)
		spans = append(spans, viewport.Span{Index: i, Label: feat.Name, Start: axis.Apply(start), End: axis.Apply(end)})
	}
	return spans
}
