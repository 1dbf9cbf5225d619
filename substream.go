// Copyright 2026 Lemon4ksan. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package zipseek

import (
	"fmt"
	"io"
)

// subStream is a read-only view over the byte range [start, start+length)
// of the archive's shared source. The source position is never assumed:
// every read addresses the source at an absolute offset, so interleaved
// readers over the same source do not disturb each other.
//
// Closing a subStream never closes the source; the Archive owns it.
type subStream struct {
	archive *Archive
	start   int64
	length  int64
	pos     int64 // logical cursor within the view
	closed  bool
}

func (s *subStream) Read(p []byte) (int, error) {
	if s.closed {
		return 0, fmt.Errorf("%w: read on closed stream", ErrUnsupportedOperation)
	}
	if s.archive.closed {
		return 0, ErrArchiveClosed
	}

	remaining := s.length - s.pos
	if remaining <= 0 {
		return 0, io.EOF
	}
	if int64(len(p)) > remaining {
		p = p[:remaining]
	}

	n, err := s.archive.src.ReadAt(p, s.start+s.pos)
	s.pos += int64(n)
	if err == io.EOF && s.pos < s.length {
		err = io.ErrUnexpectedEOF
	}
	if err == io.EOF {
		err = nil
	}
	return n, err
}

// Seek is not supported; the view is strictly sequential.
func (s *subStream) Seek(offset int64, whence int) (int64, error) {
	return 0, fmt.Errorf("%w: seek on entry stream", ErrUnsupportedOperation)
}

func (s *subStream) Close() error {
	s.closed = true
	return nil
}
