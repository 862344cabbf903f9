//
// Copyright (C) 2023 Charles E. Vejnar
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://www.mozilla.org/MPL/2.0/.
//

package dotindex

import (
	"bufio"
	"bytes"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4"
	"github.com/pkg/errors"
)

var (
	magicGzip = []byte{0x1f, 0x8b}
	magicLZ4  = []byte{0x04, 0x22, 0x4d, 0x18}
	magicZstd = []byte{0x28, 0xb5, 0x2f, 0xfd}
)

type readCloser struct {
	io.Reader
	close func() error
}

func (rc readCloser) Close() error { return rc.close() }

// Decompress sniffs r for a gzip, LZ4 or zstd header and returns a reader of
// the decompressed content. Uncompressed input is returned as is.
func Decompress(r io.Reader) (io.ReadCloser, error) {
	br := bufio.NewReader(r)
	head, err := br.Peek(4)
	if err != nil && err != io.EOF {
		return nil, err
	}
	nop := func() error { return nil }
	switch {
	case bytes.HasPrefix(head, magicGzip):
		gr, err := gzip.NewReader(br)
		if err != nil {
			return nil, err
		}
		return gr, nil
	case bytes.HasPrefix(head, magicLZ4):
		return readCloser{Reader: lz4.NewReader(br), close: nop}, nil
	case bytes.HasPrefix(head, magicZstd):
		zr, err := zstd.NewReader(br)
		if err != nil {
			return nil, err
		}
		return zr.IOReadCloser(), nil
	}
	return readCloser{Reader: br, close: nop}, nil
}

type GenericWriter interface {
	Write(buf []byte) (n int, err error)
	Close() error
}

type nopCloser struct{ io.Writer }

func (nopCloser) Close() error { return nil }

// Compress wraps w according to format: "csv", "csv+gzip", "csv+lz4",
// "csv+lz4hc" or "csv+zstd". Closing the returned writer does not close w.
func Compress(w io.Writer, format string) (GenericWriter, error) {
	var zip string
	if strings.Contains(format, "+") {
		doubleFormat := strings.Split(format, "+")
		format, zip = doubleFormat[0], doubleFormat[1]
	}
	if format != "csv" {
		return nil, errors.Errorf("unknown index format %q", format)
	}
	switch zip {
	case "":
		return nopCloser{w}, nil
	case "gzip":
		return gzip.NewWriter(w), nil
	case "lz4":
		return lz4.NewWriter(w), nil
	case "lz4hc":
		lzWriter := lz4.NewWriter(w)
		lzWriter.Header = lz4.Header{CompressionLevel: 9}
		return lzWriter, nil
	case "zstd":
		return zstd.NewWriter(w)
	}
	return nil, errors.Errorf("unknown compression %q", zip)
}

// Open parses the index resource at path, compressed or not.
func Open(path string, logger *slog.Logger) (*Index, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	r, err := Decompress(f)
	if err != nil {
		return nil, errors.Wrapf(err, "opening %s", path)
	}
	defer r.Close()
	return Parse(r, logger)
}
