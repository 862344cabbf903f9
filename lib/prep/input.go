//
// Copyright (C) 2023 Charles E. Vejnar
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://www.mozilla.org/MPL/2.0/.
//

package prep

import (
	"bufio"
	"io"
	"os"
	"strings"

	"github.com/biogo/hts/sam"
	"github.com/pkg/errors"

	"git.sr.ht/~vejnar/GeneDot/lib/alignment"
	"git.sr.ht/~vejnar/GeneDot/lib/dotindex"
	"git.sr.ht/~vejnar/GeneDot/lib/esam"
	"git.sr.ht/~vejnar/GeneDot/lib/table"
)

// Input formats
const (
	FormatDelta  = "delta"
	FormatCoords = "coords"
	FormatSAM    = "sam"
	FormatBAM    = "bam"
)

// Alignment is an input alignment with the lengths of both sequences.
type Alignment struct {
	alignment.Record
	RefLength   int
	QueryLength int
}

// Input holds the alignments read from one file.
type Input struct {
	Alignments []Alignment
	// Ref and query file names from the delta header
	RefPath, QueryPath string
}

func (in *Input) add(a Alignment) {
	a.Ref = strings.ReplaceAll(a.Ref, ",", "_")
	a.Query = strings.ReplaceAll(a.Query, ",", "_")
	in.Alignments = append(in.Alignments, a)
}

// ReadDelta reads a MUMmer delta file.
func ReadDelta(r io.Reader) (*Input, error) {
	in := &Input{}
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)
	iline := 0
	var current *Alignment
	for scanner.Scan() {
		iline++
		line := strings.TrimSpace(scanner.Text())
		switch {
		case iline == 1:
			fields := strings.Fields(line)
			if len(fields) >= 2 {
				in.RefPath, in.QueryPath = fields[0], fields[1]
			}
		case iline == 2:
			// NUCMER or PROMER
		case strings.HasPrefix(line, ">"):
			fields := strings.Fields(line[1:])
			if len(fields) != 4 {
				return nil, errors.Errorf("delta line %d: malformed header", iline)
			}
			current = &Alignment{Record: alignment.Record{Ref: fields[0], Query: fields[1]}}
			var err error
			if current.RefLength, err = table.ParseInt(fields[2]); err != nil {
				return nil, errors.Wrapf(err, "delta line %d", iline)
			}
			if current.QueryLength, err = table.ParseInt(fields[3]); err != nil {
				return nil, errors.Wrapf(err, "delta line %d", iline)
			}
		default:
			fields := strings.Fields(line)
			if len(fields) <= 4 {
				// Indel positions
				continue
			}
			if current == nil {
				return nil, errors.Errorf("delta line %d: alignment before header", iline)
			}
			a := *current
			for i, v := range []*int{&a.RefStart, &a.RefEnd, &a.QueryStart, &a.QueryEnd} {
				n, err := table.ParseInt(fields[i])
				if err != nil {
					return nil, errors.Wrapf(err, "delta line %d", iline)
				}
				*v = n
			}
			in.add(a)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return in, nil
}

// Columns of a coords CSV file.
var CoordsHeader = []string{"ref_start", "ref_end", "query_start", "query_end", "ref_length", "query_length", "ref", "query"}

// ReadCoords reads a coords CSV file with header.
func ReadCoords(r io.Reader) (*Input, error) {
	t, err := table.Read(r)
	if err != nil {
		return nil, err
	}
	if err = t.Require(CoordsHeader...); err != nil {
		return nil, err
	}
	in := &Input{}
	for i := range t.Rows {
		a := Alignment{Record: alignment.Record{Ref: t.String(i, "ref"), Query: t.String(i, "query")}}
		for j, v := range []*int{&a.RefStart, &a.RefEnd, &a.QueryStart, &a.QueryEnd, &a.RefLength, &a.QueryLength} {
			if *v, err = t.Int(i, CoordsHeader[j]); err != nil {
				return nil, err
			}
		}
		in.add(a)
	}
	return in, nil
}

// ReadSAM reads the mapped primary and supplementary records of rr.
func ReadSAM(rr sam.RecordReader) (*Input, error) {
	in := &Input{}
	for {
		rec, err := rr.Read()
		if err == io.EOF {
			break
		} else if err != nil {
			return nil, err
		}
		c, ok := esam.AlignedCoords(rec)
		if !ok {
			continue
		}
		in.add(Alignment{
			Record: alignment.Record{
				Ref: c.Ref, RefStart: c.RefStart, RefEnd: c.RefEnd,
				Query: c.Query, QueryStart: c.QueryStart, QueryEnd: c.QueryEnd,
			},
			RefLength:   c.RefLength,
			QueryLength: c.QueryLength,
		})
	}
	return in, nil
}

// Read reads path in format. Delta and coords files may be compressed.
func Read(path, format string, nWorker int) (*Input, error) {
	switch format {
	case FormatSAM, FormatBAM:
		rr, closer, err := esam.Open(esam.PathSAM{Path: path, Binary: format == FormatBAM}, nil, nWorker)
		if err != nil {
			return nil, err
		}
		defer closer()
		return ReadSAM(rr)
	case FormatDelta, FormatCoords:
	default:
		return nil, errors.Errorf("unknown input format %q", format)
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	r, err := dotindex.Decompress(f)
	if err != nil {
		return nil, errors.Wrapf(err, "opening %s", path)
	}
	defer r.Close()
	if format == FormatDelta {
		return ReadDelta(r)
	}
	return ReadCoords(r)
}
