// Copyright 2026 Lemon4ksan. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package zipseek

import (
	"bytes"
	"hash/crc32"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/klauspost/compress/flate"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lemon4ksan/zipseek/internal"
)

// testEntry describes one entry of a synthesized archive.
type testEntry struct {
	name          string
	data          []byte
	method        uint16
	comment       string
	flags         uint16
	versionMadeBy uint16
	externalAttrs uint32
	diskStart     uint16
	modTime       time.Time
	extra         []internal.ExtraField

	// Overrides applied to the central directory header only, for
	// synthesizing inconsistent archives. Zero means "use the real value".
	cdCRC32     uint32
	cdUncompLen uint32
}

func deflateBytes(t *testing.T, data []byte) []byte {
	t.Helper()
	var buf bytes.Buffer
	w, err := flate.NewWriter(&buf, flate.DefaultCompression)
	require.NoError(t, err)
	_, err = w.Write(data)
	require.NoError(t, err)
	require.NoError(t, w.Close())
	return buf.Bytes()
}

// buildArchive assembles a complete single-volume archive from the given
// entries: local headers with data, the central directory, and the end
// record.
func buildArchive(t *testing.T, entries []testEntry, comment string) []byte {
	t.Helper()
	var buf bytes.Buffer

	type placed struct {
		offset uint32
		stored []byte
		e      testEntry
	}
	var all []placed

	for _, e := range entries {
		stored := e.data
		if e.method == 8 {
			stored = deflateBytes(t, e.data)
		}
		offset := uint32(buf.Len())
		dosDate, dosTime := timeToMsDos(e.modTime)
		lh := internal.LocalFileHeader{
			VersionNeededToExtract: 20,
			GeneralPurposeBitFlag:  e.flags,
			CompressionMethod:      e.method,
			LastModFileTime:        dosTime,
			LastModFileDate:        dosDate,
			CRC32:                  crc32.ChecksumIEEE(e.data),
			CompressedSize:         uint32(len(stored)),
			UncompressedSize:       uint32(len(e.data)),
			Filename:               []byte(e.name),
		}
		buf.Write(lh.Encode())
		buf.Write(stored)
		all = append(all, placed{offset, stored, e})
	}

	cdOffset := uint32(buf.Len())
	for _, p := range all {
		sum := crc32.ChecksumIEEE(p.e.data)
		if p.e.cdCRC32 != 0 {
			sum = p.e.cdCRC32
		}
		uncomp := uint32(len(p.e.data))
		if p.e.cdUncompLen != 0 {
			uncomp = p.e.cdUncompLen
		}
		dosDate, dosTime := timeToMsDos(p.e.modTime)
		cd := internal.CentralDirectory{
			VersionMadeBy:          p.e.versionMadeBy,
			VersionNeededToExtract: 20,
			GeneralPurposeBitFlag:  p.e.flags,
			CompressionMethod:      p.e.method,
			LastModFileTime:        dosTime,
			LastModFileDate:        dosDate,
			CRC32:                  sum,
			CompressedSize:         uint32(len(p.stored)),
			UncompressedSize:       uncomp,
			DiskNumberStart:        p.e.diskStart,
			ExternalFileAttributes: p.e.externalAttrs,
			LocalHeaderOffset:      p.offset,
			Filename:               []byte(p.e.name),
			ExtraField:             p.e.extra,
			Comment:                []byte(p.e.comment),
		}
		buf.Write(cd.Encode())
	}
	cdSize := uint32(buf.Len()) - cdOffset

	end := internal.EndOfCentralDirectory{
		TotalNumberOfEntriesOnThisDisk: uint16(len(entries)),
		TotalNumberOfEntries:           uint16(len(entries)),
		CentralDirSize:                 cdSize,
		CentralDirOffset:               cdOffset,
		Comment:                        []byte(comment),
	}
	buf.Write(end.Encode())
	return buf.Bytes()
}

func openArchive(t *testing.T, data []byte, options ...Option) *Archive {
	t.Helper()
	a, err := NewReader(bytes.NewReader(data), int64(len(data)), options...)
	require.NoError(t, err)
	t.Cleanup(func() { a.Close() })
	return a
}

func readEntry(t *testing.T, e *Entry) []byte {
	t.Helper()
	rc, err := e.Open()
	require.NoError(t, err)
	data, err := io.ReadAll(rc)
	require.NoError(t, err)
	require.NoError(t, rc.Close())
	return data
}

func TestOpenFile(t *testing.T) {
	data := buildArchive(t, []testEntry{
		{name: "hello.txt", data: []byte("hello from disk"), method: 8},
	}, "")

	path := filepath.Join(t.TempDir(), "test.zip")
	require.NoError(t, os.WriteFile(path, data, 0644))

	a, err := OpenFile(path)
	require.NoError(t, err)

	entry, ok, err := a.Resolve("hello.txt", Exact)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, []byte("hello from disk"), readEntry(t, entry))

	require.NoError(t, a.Close())
	require.NoError(t, a.Close(), "Close must be idempotent")
}

func TestOpenFile_Missing(t *testing.T) {
	_, err := OpenFile(filepath.Join(t.TempDir(), "absent.zip"))
	require.Error(t, err)
}

func TestNewFromReader(t *testing.T) {
	data := buildArchive(t, []testEntry{
		{name: "a.txt", data: []byte("buffered")},
	}, "")

	a, err := NewFromReader(bytes.NewReader(data))
	require.NoError(t, err)
	defer a.Close()

	entry, ok, err := a.Resolve("a.txt", Exact)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, []byte("buffered"), readEntry(t, entry))
}

func TestArchiveClosed(t *testing.T) {
	data := buildArchive(t, []testEntry{
		{name: "f.txt", data: []byte("content")},
	}, "")
	a := openArchive(t, data)

	entry, ok, err := a.Resolve("f.txt", Exact)
	require.NoError(t, err)
	require.True(t, ok)

	rc, err := entry.Open()
	require.NoError(t, err)

	require.NoError(t, a.Close())

	_, _, err = a.Resolve("f.txt", Exact)
	assert.ErrorIs(t, err, ErrArchiveClosed)

	_, err = entry.Open()
	assert.ErrorIs(t, err, ErrArchiveClosed)

	_, err = rc.Read(make([]byte, 1))
	assert.ErrorIs(t, err, ErrArchiveClosed)
}

func TestComment(t *testing.T) {
	data := buildArchive(t, []testEntry{
		{name: "x", data: []byte("y")},
	}, "release build 42")
	a := openArchive(t, data)
	assert.Equal(t, "release build 42", a.Comment())
	assert.Equal(t, int64(1), a.EntryCount())
}

// countingReaderAt counts ReadAt calls to observe whether a lookup touched
// the source.
type countingReaderAt struct {
	r     io.ReaderAt
	reads int
}

func (c *countingReaderAt) ReadAt(p []byte, off int64) (int, error) {
	c.reads++
	return c.r.ReadAt(p, off)
}

func TestResolveCache(t *testing.T) {
	data := buildArchive(t, []testEntry{
		{name: "first.txt", data: []byte("1")},
		{name: "second.txt", data: []byte("2")},
	}, "")

	src := &countingReaderAt{r: bytes.NewReader(data)}
	a, err := NewReader(src, int64(len(data)), WithResolveCache(16))
	require.NoError(t, err)
	defer a.Close()

	e1, ok, err := a.Resolve("second.txt", Exact)
	require.NoError(t, err)
	require.True(t, ok)

	before := src.reads
	e2, ok, err := a.Resolve("second.txt", Exact)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Same(t, e1, e2, "cache hit must return the cached entry")
	assert.Equal(t, before, src.reads, "cache hit must not touch the source")

	// Misses are cached too.
	_, ok, err = a.Resolve("absent.txt", Exact)
	require.NoError(t, err)
	require.False(t, ok)

	before = src.reads
	_, ok, err = a.Resolve("absent.txt", Exact)
	require.NoError(t, err)
	require.False(t, ok)
	assert.Equal(t, before, src.reads)

	// Distinct comparison policies are distinct cache keys.
	_, ok, err = a.Resolve("SECOND.TXT", IgnoreCase)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestOpenURL(t *testing.T) {
	content := bytes.Repeat([]byte("remote entry payload. "), 4000)
	data := buildArchive(t, []testEntry{
		{name: "payload.bin", data: content, method: 8},
		{name: "other.bin", data: []byte("other")},
	}, "")

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.ServeContent(w, r, "archive.zip", time.Now(), bytes.NewReader(data))
	}))
	defer srv.Close()

	a, err := OpenURL(srv.URL)
	require.NoError(t, err)
	defer a.Close()

	entry, ok, err := a.Resolve("payload.bin", Exact)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, content, readEntry(t, entry))
}

func TestOpenURL_BadURL(t *testing.T) {
	_, err := OpenURL("http://127.0.0.1:0/nothing.zip")
	require.Error(t, err)
}
