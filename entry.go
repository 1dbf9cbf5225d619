// Copyright 2026 Lemon4ksan. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package zipseek

import (
	"fmt"
	"hash"
	"hash/crc32"
	"io"
	"io/fs"
	"strings"
	"time"

	"github.com/lemon4ksan/zipseek/internal"
	"github.com/lemon4ksan/zipseek/internal/inflate"
	"github.com/lemon4ksan/zipseek/internal/sys"
)

// CompressionMethod identifies how an entry's data is stored.
type CompressionMethod uint16

const (
	Stored    CompressionMethod = 0
	Deflated  CompressionMethod = 8
	Deflate64 CompressionMethod = 9
)

func (m CompressionMethod) String() string {
	switch m {
	case Stored:
		return "stored"
	case Deflated:
		return "deflate"
	case Deflate64:
		return "deflate64"
	default:
		return fmt.Sprintf("method(%d)", uint16(m))
	}
}

// Entry is one resolved central directory entry. All metadata comes from
// the central directory header; the local header is consulted only when
// Open locates the compressed data, and only for its length fields.
//
// An Entry stays valid until its Archive is closed.
type Entry struct {
	archive *Archive

	name      string // full stored name, decoded
	shortName string
	comment   string
	method    CompressionMethod
	flags     uint16

	crc32            uint32
	compressedSize   int64
	uncompressedSize int64

	localHeaderOffset int64
	diskStart         uint32

	hostSystem sys.HostSystem
	mode       fs.FileMode
	modTime    time.Time
	isDir      bool

	// Absolute offset of the compressed data, computed lazily by Open on
	// first use. Negative until then.
	dataOffset int64
}

// newEntry builds an Entry from a parsed central directory header. The
// header's saturated 32-bit fields are replaced with their Zip64 extra
// field values when present.
func (a *Archive) newEntry(hdr internal.CentralDirectory, storedName, short string, host sys.HostSystem) (*Entry, error) {
	e := &Entry{
		archive:           a,
		name:              storedName,
		shortName:         short,
		comment:           a.decodeText(hdr.Comment, hdr.GeneralPurposeBitFlag),
		method:            CompressionMethod(hdr.CompressionMethod),
		flags:             hdr.GeneralPurposeBitFlag,
		crc32:             hdr.CRC32,
		compressedSize:    int64(hdr.CompressedSize),
		uncompressedSize:  int64(hdr.UncompressedSize),
		localHeaderOffset: int64(hdr.LocalHeaderOffset),
		diskStart:         uint32(hdr.DiskNumberStart),
		hostSystem:        host,
		modTime:           msDosToTime(hdr.LastModFileDate, hdr.LastModFileTime),
		dataOffset:        -1,
	}

	wantUncompressed := hdr.UncompressedSize == internal.Sentinel32
	wantCompressed := hdr.CompressedSize == internal.Sentinel32
	wantOffset := hdr.LocalHeaderOffset == internal.Sentinel32
	wantDisk := hdr.DiskNumberStart == internal.Sentinel16

	if wantUncompressed || wantCompressed || wantOffset || wantDisk {
		v, err := internal.ExtractZip64(hdr.ExtraField, wantUncompressed, wantCompressed, wantOffset, wantDisk)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrMalformedRecord, err)
		}
		if v.HasUncompressedSize {
			e.uncompressedSize = int64(v.UncompressedSize)
		}
		if v.HasCompressedSize {
			e.compressedSize = int64(v.CompressedSize)
		}
		if v.HasLocalHeaderOffset {
			if v.LocalHeaderOffset > uint64(a.size) {
				return nil, fmt.Errorf("%w: local header offset %d", ErrFieldOverflow, v.LocalHeaderOffset)
			}
			e.localHeaderOffset = int64(v.LocalHeaderOffset)
		}
		if v.HasDiskNumberStart {
			e.diskStart = v.DiskNumberStart
		}
	}

	e.mode = parseExternalAttributes(hdr, storedName, host)
	e.isDir = strings.HasSuffix(storedName, "/") || e.mode.IsDir()

	return e, nil
}

// Name returns the full stored name, decoded to UTF-8.
func (e *Entry) Name() string { return e.name }

// ShortName returns the stored name with any leading path stripped under
// the separator convention of the system that wrote the entry. Resolve
// matches against this name.
func (e *Entry) ShortName() string { return e.shortName }

// Comment returns the per-entry comment.
func (e *Entry) Comment() string { return e.comment }

// Method returns the entry's compression method.
func (e *Entry) Method() CompressionMethod { return e.method }

// CRC32 returns the declared IEEE CRC-32 of the uncompressed data.
func (e *Entry) CRC32() uint32 { return e.crc32 }

// CompressedSize returns the size of the stored data in bytes.
func (e *Entry) CompressedSize() int64 { return e.compressedSize }

// UncompressedSize returns the size of the data after decompression.
func (e *Entry) UncompressedSize() int64 { return e.uncompressedSize }

// Mode returns the file mode derived from the external attributes under
// the writing system's convention.
func (e *Entry) Mode() fs.FileMode { return e.mode }

// ModTime returns the MS-DOS modification time, in UTC with two second
// precision.
func (e *Entry) ModTime() time.Time { return e.modTime }

// IsDir reports whether the entry denotes a directory.
func (e *Entry) IsDir() bool { return e.isDir }

// HostSystem returns the system the entry was written on.
func (e *Entry) HostSystem() sys.HostSystem { return e.hostSystem }

// Open returns a stream of the entry's decompressed data. The local header
// is read here, once, only to locate the data: its own length fields decide
// how many bytes to skip, while sizes, CRC and method always come from the
// central directory.
//
// The stream verifies the declared CRC-32 and size; Close reports
// ErrChecksum or ErrSizeMismatch when the data does not match. Closing the
// stream never closes the archive. Multiple streams from one archive may
// be open at once.
func (e *Entry) Open() (io.ReadCloser, error) {
	a := e.archive
	if a.closed {
		return nil, ErrArchiveClosed
	}

	switch e.method {
	case Stored, Deflated, Deflate64:
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedMethod, e.method)
	}

	if e.diskStart != a.diskNum {
		return nil, fmt.Errorf("%w: entry starts on disk %d, archive is disk %d", ErrSplitArchive, e.diskStart, a.diskNum)
	}

	if e.dataOffset < 0 {
		if e.localHeaderOffset < 0 || e.localHeaderOffset+internal.LocalHeaderLen > a.size {
			return nil, fmt.Errorf("%w: local header offset %d beyond stream end", ErrLocalHeaderCorrupt, e.localHeaderOffset)
		}
		hr := io.NewSectionReader(a.src, e.localHeaderOffset, a.size-e.localHeaderOffset)
		headerLen, err := internal.SkipLocalHeader(hr)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrLocalHeaderCorrupt, err)
		}
		e.dataOffset = e.localHeaderOffset + headerLen
	}

	if e.dataOffset+e.compressedSize > a.size {
		return nil, fmt.Errorf("%w: data range [%d, %d) beyond stream end %d",
			ErrLocalHeaderCorrupt, e.dataOffset, e.dataOffset+e.compressedSize, a.size)
	}

	sub := &subStream{archive: a, start: e.dataOffset, length: e.compressedSize}

	var rc io.ReadCloser
	switch e.method {
	case Stored:
		rc = sub
	case Deflated:
		rc = inflate.NewReader(sub, inflate.Deflate)
	case Deflate64:
		rc = inflate.NewReader(sub, inflate.Deflate64)
	}

	return &checksumReader{
		rc:   rc,
		hash: crc32.NewIEEE(),
		want: e.crc32,
		size: uint64(e.uncompressedSize),
	}, nil
}

func parseExternalAttributes(hdr internal.CentralDirectory, storedName string, host sys.HostSystem) fs.FileMode {
	var mode fs.FileMode

	if host.IsUnix() {
		unixMode := hdr.ExternalFileAttributes >> 16
		mode = fs.FileMode(unixMode & 0777)

		switch unixMode & sys.S_IFMT {
		case sys.S_IFDIR:
			mode |= fs.ModeDir
		case sys.S_IFLNK:
			mode |= fs.ModeSymlink
		case sys.S_IFSOCK:
			mode |= fs.ModeSocket
		case sys.S_IFIFO:
			mode |= fs.ModeNamedPipe
		case sys.S_IFCHR:
			mode |= fs.ModeCharDevice
		case sys.S_IFBLK:
			mode |= fs.ModeDevice
		}
		return mode
	}

	if host.IsWindows() {
		isDir := strings.HasSuffix(storedName, `/`) || strings.HasSuffix(storedName, `\`) ||
			hdr.ExternalFileAttributes&0x10 != 0

		if isDir {
			mode = 0755 | fs.ModeDir
		} else {
			mode = 0644
		}

		if hdr.ExternalFileAttributes&0x01 != 0 {
			mode &^= 0222 // read-only attribute
		}
		return mode
	}

	if strings.HasSuffix(storedName, "/") {
		return 0755 | fs.ModeDir
	}
	return 0644
}

// checksumReader wraps an entry stream to verify CRC32 checksum and size
// during reading. It ensures data integrity by comparing the computed hash
// with the expected value upon closing.
type checksumReader struct {
	rc   io.ReadCloser
	hash hash.Hash32
	want uint32
	read uint64
	size uint64
}

func (cr *checksumReader) Read(p []byte) (int, error) {
	n, err := cr.rc.Read(p)
	if n > 0 {
		cr.read += uint64(n)
		if cr.read > cr.size {
			return n, fmt.Errorf("%w: more than the declared %d bytes", ErrSizeMismatch, cr.size)
		}
		cr.hash.Write(p[:n])
	}
	return n, err
}

// Close verifies CRC32 and size after reading completes. A stream closed
// before reaching EOF fails the size check.
func (cr *checksumReader) Close() error {
	defer cr.rc.Close()

	if cr.read != cr.size {
		return fmt.Errorf("%w: read %d, want %d", ErrSizeMismatch, cr.read, cr.size)
	}
	if got := cr.hash.Sum32(); got != cr.want {
		return fmt.Errorf("%w: got %08x, want %08x", ErrChecksum, got, cr.want)
	}
	return nil
}
