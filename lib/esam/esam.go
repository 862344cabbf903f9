//
// Copyright (C) 2015-2023 Charles E. Vejnar
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://www.mozilla.org/MPL/2.0/.
//

package esam

import (
	"io"
	"os"
	"os/exec"

	"github.com/biogo/hts/bam"
	"github.com/biogo/hts/sam"
)

// PathSAM stores Path to SAM (Binary=false) or BAM (Binary=true) file.
type PathSAM struct {
	Path   string
	Binary bool
}

// Coords of an alignment, 1-based and inclusive as in MUMmer coords files.
// A query aligned on the reverse strand has QueryStart > QueryEnd.
type Coords struct {
	Ref, Query                             string
	RefStart, RefEnd, QueryStart, QueryEnd int
	RefLength, QueryLength                 int
}

// QuerySpan returns the query length clipped before the alignment, the
// aligned query length and the length clipped after, in read orientation.
func QuerySpan(r *sam.Record) (left, aligned, right int) {
	seenAligned := false
	for _, co := range r.Cigar {
		t := co.Type()
		switch t {
		case sam.CigarSoftClipped, sam.CigarHardClipped:
			if seenAligned {
				right += co.Len()
			} else {
				left += co.Len()
			}
		default:
			if l := co.Len() * t.Consumes().Query; l > 0 {
				aligned += l
				seenAligned = true
			}
		}
	}
	return
}

// AlignedCoords returns the coordinates of a mapped primary or supplementary
// alignment. Query coordinates are on the forward strand of the query.
func AlignedCoords(r *sam.Record) (c Coords, ok bool) {
	if r.Flags&sam.Unmapped != 0 || r.Flags&sam.Secondary != 0 || r.Ref == nil {
		return
	}
	left, aligned, right := QuerySpan(r)
	if aligned == 0 {
		return
	}
	c = Coords{
		Ref:         r.Ref.Name(),
		Query:       r.Name,
		RefStart:    r.Pos + 1,
		RefEnd:      r.End(),
		RefLength:   r.Ref.Len(),
		QueryLength: left + aligned + right,
	}
	if r.Flags&sam.Reverse != 0 {
		c.QueryStart = c.QueryLength - left
		c.QueryEnd = c.QueryLength - left - aligned + 1
	} else {
		c.QueryStart = left + 1
		c.QueryEnd = left + aligned
	}
	return c, true
}

// Open opens a SAM or BAM file. If cmd is given, the SAM file is read from
// the output of cmd run with the path appended.
func Open(pathSAM PathSAM, cmd []string, nWorker int) (rr sam.RecordReader, closer func() error, err error) {
	if pathSAM.Binary {
		var f *os.File
		if f, err = os.Open(pathSAM.Path); err != nil {
			return
		}
		var br *bam.Reader
		if br, err = bam.NewReader(f, nWorker); err != nil {
			f.Close()
			return
		}
		return br, func() error { br.Close(); return f.Close() }, nil
	}
	if len(cmd) == 0 {
		var f *os.File
		if f, err = os.Open(pathSAM.Path); err != nil {
			return
		}
		if rr, err = sam.NewReader(f); err != nil {
			f.Close()
			return
		}
		return rr, f.Close, nil
	}
	cmd = append(cmd, pathSAM.Path)
	p := exec.Command(cmd[0], cmd[1:]...)
	var pp io.ReadCloser
	if pp, err = p.StdoutPipe(); err != nil {
		return
	}
	if err = p.Start(); err != nil {
		return
	}
	if rr, err = sam.NewReader(pp); err != nil {
		pp.Close()
		return
	}
	return rr, func() error { pp.Close(); return p.Wait() }, nil
}
