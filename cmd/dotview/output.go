//
// Copyright © 2023 Charles E. Vejnar
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://www.mozilla.org/MPL/2.0/.
//

package main

import (
	"encoding/csv"
	"encoding/json"
	"io"
	"strconv"

	"git.sr.ht/~vejnar/GeneDot/lib/dotplot"
	"git.sr.ht/~vejnar/GeneDot/lib/viewport"
)

type jsonSpan struct {
	Label string  `json:"label"`
	Start float64 `json:"start"`
	End   float64 `json:"end"`
}

type jsonLine struct {
	Ref        string  `json:"ref"`
	RefStart   int     `json:"ref_start"`
	RefEnd     int     `json:"ref_end"`
	Query      string  `json:"query"`
	QueryStart int     `json:"query_start"`
	QueryEnd   int     `json:"query_end"`
	Category   string  `json:"category"`
	X1         float64 `json:"x1"`
	Y1         float64 `json:"y1"`
	X2         float64 `json:"x2"`
	Y2         float64 `json:"y2"`
}

type jsonStatus struct {
	Query      string `json:"query"`
	Unique     string `json:"unique"`
	Repetitive string `json:"repetitive"`
	Overview   bool   `json:"overview"`
	Error      string `json:"error,omitempty"`
}

type jsonTrack struct {
	Name  string     `json:"name"`
	Side  string     `json:"side"`
	Spans []jsonSpan `json:"spans"`
}

type jsonFrame struct {
	Region      [4]float64   `json:"region"`
	X           []jsonSpan   `json:"x"`
	Y           []jsonSpan   `json:"y"`
	Lines       []jsonLine   `json:"lines"`
	Skipped     int          `json:"skipped"`
	Status      []jsonStatus `json:"status"`
	Annotations []jsonTrack  `json:"annotations,omitempty"`
}

func toJSONSpans(spans []viewport.Span) []jsonSpan {
	out := make([]jsonSpan, len(spans))
	for i, s := range spans {
		out[i] = jsonSpan{Label: s.Label, Start: s.Start, End: s.End}
	}
	return out
}

func writeJSON(w io.Writer, f dotplot.Frame) error {
	out := jsonFrame{
		Region:  [4]float64{f.Region.X0, f.Region.Y0, f.Region.X1, f.Region.Y1},
		X:       toJSONSpans(f.X),
		Y:       toJSONSpans(f.Y),
		Lines:   make([]jsonLine, len(f.Lines)),
		Skipped: f.Skipped,
	}
	for i, l := range f.Lines {
		r := l.Record
		out.Lines[i] = jsonLine{
			Ref: r.Ref, RefStart: r.RefStart, RefEnd: r.RefEnd,
			Query: r.Query, QueryStart: r.QueryStart, QueryEnd: r.QueryEnd,
			Category: r.Category.String(),
			X1: l.X1, Y1: l.Y1, X2: l.X2, Y2: l.Y2,
		}
	}
	for _, st := range f.Status {
		js := jsonStatus{Query: st.Query, Unique: st.Unique.String(), Repetitive: st.Repetitive.String(), Overview: st.Overview}
		if st.Err != nil {
			js.Error = st.Err.Error()
		}
		out.Status = append(out.Status, js)
	}
	for _, t := range f.Annotations {
		out.Annotations = append(out.Annotations, jsonTrack{Name: t.Name, Side: t.Side.String(), Spans: toJSONSpans(t.Spans)})
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(out)
}

func ftoa(v float64) string {
	return strconv.FormatFloat(v, 'f', 3, 64)
}

// writeCSV writes the frame as CSV blocks introduced by marker lines.
func writeCSV(w io.Writer, f dotplot.Frame) error {
	cw := csv.NewWriter(w)
	spans := func(marker string, spans []viewport.Span) {
		cw.Write([]string{marker})
		cw.Write([]string{"label", "start", "end"})
		for _, s := range spans {
			cw.Write([]string{s.Label, ftoa(s.Start), ftoa(s.End)})
		}
	}
	spans("#x", f.X)
	spans("#y", f.Y)
	cw.Write([]string{"#lines"})
	cw.Write([]string{"ref", "ref_start", "ref_end", "query", "query_start", "query_end", "category", "x1", "y1", "x2", "y2"})
	for _, l := range f.Lines {
		r := l.Record
		cw.Write([]string{
			r.Ref, strconv.Itoa(r.RefStart), strconv.Itoa(r.RefEnd),
			r.Query, strconv.Itoa(r.QueryStart), strconv.Itoa(r.QueryEnd),
			r.Category.String(), ftoa(l.X1), ftoa(l.Y1), ftoa(l.X2), ftoa(l.Y2),
		})
	}
	cw.Write([]string{"#status"})
	cw.Write([]string{"query", "unique", "repetitive", "overview", "error"})
	for _, st := range f.Status {
		var msg string
		if st.Err != nil {
			msg = st.Err.Error()
		}
		cw.Write([]string{st.Query, st.Unique.String(), st.Repetitive.String(), strconv.FormatBool(st.Overview), msg})
	}
	for _, t := range f.Annotations {
		spans("#annotation_"+t.Side.String()+"_"+t.Name, t.Spans)
	}
	cw.Flush()
	return cw.Error()
}
