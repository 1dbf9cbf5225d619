// Copyright 2026 Lemon4ksan. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package zipseek resolves a single named entry inside a ZIP archive and
// streams its decompressed content, without reading or indexing the whole
// central directory up front.
//
// It is built for the "one file out of a huge archive" case: the archive
// may live in a local file, in memory, or behind an HTTP server that
// supports range requests, and only the end records, the central directory
// headers up to the match, and the matched entry's data are ever read.
//
// # Basic Usage
//
//	a, _ := zipseek.OpenFile("big.zip")
//	defer a.Close()
//
//	entry, ok, err := a.Resolve("core/config.json", zipseek.Exact)
//	if err != nil || !ok {
//		// ...
//	}
//	rc, _ := entry.Open()
//	defer rc.Close()
//	data, _ := io.ReadAll(rc)
//
// Remote archives work the same way:
//
//	a, _ := zipseek.OpenURL("https://example.com/dist.zip")
//
// Archives with Zip64 extensions, legacy DOS filename encodings and
// deflate64 entries are handled transparently. Compression methods other
// than stored, deflate and deflate64 are rejected.
//
// An Archive performs no internal locking. Use one Archive, and each
// stream opened from it, from one goroutine at a time; distinct entry
// streams may be interleaved freely from that goroutine because every
// read addresses the shared source by absolute offset.
package zipseek

import (
	"bytes"
	"fmt"
	"io"
	"os"

	lru "github.com/hashicorp/golang-lru/v2"
	"golang.org/x/text/collate"
	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/language"
)

// Archive resolves entries in a single ZIP archive. It owns the underlying
// source for the duration of its life; closing the Archive invalidates
// every Entry and stream derived from it.
type Archive struct {
	src    io.ReaderAt
	size   int64
	closer io.Closer // set when the Archive owns the source
	closed bool

	textEncoding encoding.Encoding
	collator     *collate.Collator

	// End-record resolution results, valid after newArchive returns.
	eocdOffset int64
	diskNum    uint32
	cdOffset   int64
	entryCount int64
	comment    string

	cache *lru.Cache[resolveKey, *Entry]
}

// Option configures an Archive during construction.
type Option func(*Archive)

// WithTextEncoding sets the character encoding used to decode entry names
// and comments that are not flagged as UTF-8. The default is code page 437,
// the encoding the ZIP format specifies for legacy names.
func WithTextEncoding(enc encoding.Encoding) Option {
	return func(a *Archive) {
		if enc != nil {
			a.textEncoding = enc
		}
	}
}

// WithLanguage sets the language used by the Collated comparison policy.
// The default is the unspecified language, which collates by Unicode order.
func WithLanguage(tag language.Tag) Option {
	return func(a *Archive) {
		a.collator = collate.New(tag)
	}
}

// WithResolveCache layers an LRU cache of the given size over Resolve,
// keyed by name and comparison policy. Lookups that hit skip the central
// directory scan entirely; the observable contract of Resolve, including
// first-occurrence-wins for duplicate names, is unchanged.
func WithResolveCache(size int) Option {
	return func(a *Archive) {
		if c, err := lru.New[resolveKey, *Entry](size); err == nil {
			a.cache = c
		}
	}
}

// NewReader resolves the end records of the archive in src, which holds
// size bytes. The caller retains ownership of src; Close does not close it.
func NewReader(src io.ReaderAt, size int64, options ...Option) (*Archive, error) {
	return newArchive(src, size, nil, options)
}

// NewFromReader reads src completely into memory and resolves the archive
// there. The copy is eager and full; use NewReader with a seekable source
// for large archives.
func NewFromReader(src io.Reader, options ...Option) (*Archive, error) {
	data, err := io.ReadAll(src)
	if err != nil {
		return nil, fmt.Errorf("zipseek: buffer source: %w", err)
	}
	return newArchive(bytes.NewReader(data), int64(len(data)), nil, options)
}

// OpenFile opens the named file and resolves it as an archive. The Archive
// owns the file handle and closes it on Close.
func OpenFile(path string, options ...Option) (*Archive, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	stat, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, err
	}
	a, err := newArchive(f, stat.Size(), f, options)
	if err != nil {
		f.Close()
		return nil, err
	}
	return a, nil
}

func newArchive(src io.ReaderAt, size int64, closer io.Closer, options []Option) (*Archive, error) {
	a := &Archive{
		src:          src,
		size:         size,
		closer:       closer,
		textEncoding: charmap.CodePage437,
	}
	for _, opt := range options {
		opt(a)
	}
	if err := a.resolveDirectory(); err != nil {
		return nil, err
	}
	return a, nil
}

// Comment returns the archive-level trailing comment, decoded with the
// configured text encoding.
func (a *Archive) Comment() string { return a.comment }

// EntryCount returns the total number of central directory entries the end
// records declare.
func (a *Archive) EntryCount() int64 { return a.entryCount }

// Close releases the archive. When the Archive owns its source (OpenFile,
// OpenURL) the source is closed too. Streams still open on entries fail
// deterministically with ErrArchiveClosed afterwards; their existence does
// not make Close fail. Close is idempotent.
func (a *Archive) Close() error {
	if a.closed {
		return nil
	}
	a.closed = true
	if a.closer != nil {
		return a.closer.Close()
	}
	return nil
}
