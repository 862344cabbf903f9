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
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"

	"github.com/pkg/errors"
)

var ErrShortRead = errors.New("short range read")

// RangeReader reads the bytes [start, end) of the alignment data.
type RangeReader interface {
	ReadRange(ctx context.Context, start, end int64) ([]byte, error)
}

// ReaderAt reads ranges from an io.ReaderAt.
type ReaderAt struct {
	R io.ReaderAt
}

func (r ReaderAt) ReadRange(ctx context.Context, start, end int64) ([]byte, error) {
	if err := checkRange(start, end); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	buf := make([]byte, end-start)
	n, err := r.R.ReadAt(buf, start)
	if n == len(buf) {
		return buf, nil
	}
	if err == nil || err == io.EOF {
		err = ErrShortRead
	}
	return nil, errors.Wrapf(err, "reading [%d,%d)", start, end)
}

// File is a RangeReader over a local file.
type File struct {
	ReaderAt
	f *os.File
}

// OpenFile opens path for range reads.
func OpenFile(path string) (*File, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	return &File{ReaderAt: ReaderAt{R: f}, f: f}, nil
}

func (f *File) Close() error { return f.f.Close() }

// HTTP reads ranges from a URL with Range requests.
type HTTP struct {
	URL    string
	Client *http.Client
}

func (h *HTTP) ReadRange(ctx context.Context, start, end int64) ([]byte, error) {
	if err := checkRange(start, end); err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, h.URL, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Range", fmt.Sprintf("bytes=%d-%d", start, end-1))
	client := h.Client
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	var body io.Reader
	switch resp.StatusCode {
	case http.StatusPartialContent:
		body = resp.Body
	case http.StatusOK:
		// Range ignored by the server
		if _, err = io.CopyN(io.Discard, resp.Body, start); err != nil {
			return nil, errors.Wrapf(ErrShortRead, "skipping to %d: %v", start, err)
		}
		body = resp.Body
	default:
		return nil, errors.Errorf("%s: %s", h.URL, resp.Status)
	}
	buf := make([]byte, end-start)
	if _, err = io.ReadFull(body, buf); err != nil {
		return nil, errors.Wrapf(ErrShortRead, "reading [%d,%d): %v", start, end, err)
	}
	return buf, nil
}

// Open returns a RangeReader for a local path or an http(s) URL, and the
// function releasing it.
func Open(location string) (RangeReader, func() error, error) {
	if strings.HasPrefix(location, "http://") || strings.HasPrefix(location, "https://") {
		return &HTTP{URL: location}, func() error { return nil }, nil
	}
	f, err := OpenFile(location)
	if err != nil {
		return nil, nil, err
	}
	return f, f.Close, nil
}

func checkRange(start, end int64) error {
	if start < 0 || end < start {
		return errors.Errorf("invalid range [%d,%d)", start, end)
	}
	return nil
}
