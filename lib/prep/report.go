//
// Copyright (C) 2015-2023 Charles E. Vejnar
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://www.mozilla.org/MPL/2.0/.
//

package prep

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
)

// AssemblyStats summarizes the lengths of the sequences of one side.
type AssemblyStats struct {
	Name       string  `json:"name,omitempty"`
	Count      int     `json:"count"`
	Total      int64   `json:"total"`
	TotalHuman string  `json:"total_human"`
	Mean       float64 `json:"mean"`
	Min        int64   `json:"min"`
	Max        int64   `json:"max"`
	N50        int64   `json:"n50"`
	N50Human   string  `json:"n50_human"`
}

type Report struct {
	Ref                  AssemblyStats `json:"ref"`
	Query                AssemblyStats `json:"query"`
	UniqueAlignments     int           `json:"unique_alignments"`
	RepetitiveAlignments int           `json:"repetitive_alignments"`
}

func NewReport(in *Input, ds *Dataset) (r Report) {
	refLengths := make([]int64, len(ds.Refs))
	for i, e := range ds.Refs {
		refLengths[i] = int64(e.Length)
	}
	queryLengths := make([]int64, len(ds.Queries))
	for i, qd := range ds.Queries {
		queryLengths[i] = int64(qd.Entry.Length)
		r.UniqueAlignments += len(qd.Unique)
		r.RepetitiveAlignments += len(qd.Repetitive)
	}
	r.Ref = NewAssemblyStats(refLengths)
	r.Query = NewAssemblyStats(queryLengths)
	if in.RefPath != "" {
		r.Ref.Name = filepath.Base(in.RefPath)
	}
	if in.QueryPath != "" {
		r.Query.Name = filepath.Base(in.QueryPath)
	}
	return
}

func NewAssemblyStats(lengths []int64) (s AssemblyStats) {
	s.Count = len(lengths)
	if s.Count == 0 {
		s.TotalHuman, s.N50Human = GigMeg(0), GigMeg(0)
		return
	}
	sorted := append([]int64(nil), lengths...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })
	s.Min, s.Max = sorted[0], sorted[len(sorted)-1]
	for _, l := range sorted {
		s.Total += l
	}
	s.Mean = float64(s.Total) / float64(s.Count)
	s.N50 = N50(sorted)
	s.TotalHuman = GigMeg(float64(s.Total))
	s.N50Human = GigMeg(float64(s.N50))
	return
}

// N50 returns the length L such that sequences of length >= L hold at least
// half of the total. sorted must be in increasing order.
func N50(sorted []int64) int64 {
	var total, cumul int64
	for _, l := range sorted {
		total += l
	}
	for i := len(sorted) - 1; i >= 0; i-- {
		cumul += sorted[i]
		if 2*cumul >= total {
			return sorted[i]
		}
	}
	return 0
}

// GigMeg formats a number of base pairs with a Gbp, Mbp or Kbp unit.
func GigMeg(n float64) string {
	switch {
	case n > 1e9:
		return strconv.FormatFloat(n/1e9, 'f', 2, 64) + " Gbp"
	case n > 1e6:
		return strconv.FormatFloat(n/1e6, 'f', 2, 64) + " Mbp"
	case n > 1e3:
		return strconv.FormatFloat(n/1e3, 'f', 2, 64) + " Kbp"
	}
	return strconv.FormatFloat(n, 'f', -1, 64) + " bp"
}

// Write writes the report as JSON to pathReport, or to stdout if pathReport is "-".
func (r Report) Write(pathReport string) error {
	report, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return err
	}
	if pathReport != "-" {
		return os.WriteFile(pathReport, append(report, '\n'), 0o644)
	}
	fmt.Println(string(report))
	return nil
}
