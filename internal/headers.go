// Copyright 2026 Lemon4ksan. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package internal implements the fixed binary layouts of the ZIP
// structural records. All multi-byte integers are little-endian.
package internal

import (
	"encoding/binary"
	"fmt"
	"io"
	"math"

	"github.com/valyala/bytebufferpool"
)

// Each record type is identified by a header signature. Signature values
// begin with the two byte constant marker of 0x4b50, representing the
// characters "PK".
const (
	CentralDirectorySignature            uint32 = 0x02014b50
	LocalFileHeaderSignature             uint32 = 0x04034b50
	EndOfCentralDirSignature             uint32 = 0x06054b50
	Zip64EndOfCentralDirSignature        uint32 = 0x06064b50
	Zip64EndOfCentralDirLocatorSignature uint32 = 0x07064b50
)

// Fixed record sizes, excluding signatures and variable tails.
const (
	LocalHeaderLen       = 30 // local header including signature, without name/extra
	DirectoryEndLen      = 22 // EOCD including signature, without comment
	DirectoryHeaderLen   = 46 // central directory header including signature, without tails
	Zip64LocatorLen      = 20 // Zip64 EOCD locator including signature
	Zip64DirectoryEndLen = 56 // Zip64 EOCD record including signature, minimal form
)

// All-ones sentinels that redirect a reader to the Zip64 extension fields.
const (
	Sentinel16 uint16 = math.MaxUint16
	Sentinel32 uint32 = math.MaxUint32
)

type EndOfCentralDirectory struct {
	ThisDiskNum                     uint16
	DiskNumWithTheStartOfCentralDir uint16
	TotalNumberOfEntriesOnThisDisk  uint16
	TotalNumberOfEntries            uint16
	CentralDirSize                  uint32
	CentralDirOffset                uint32
	CommentLength                   uint16
	Comment                         []byte
}

// ReadEndOfCentralDir reads the EOCD payload. The signature has already
// been consumed by the caller.
func ReadEndOfCentralDir(src io.Reader) (EndOfCentralDirectory, error) {
	var buf [18]byte
	if _, err := io.ReadFull(src, buf[:]); err != nil {
		return EndOfCentralDirectory{}, fmt.Errorf("read end of central directory: %w", err)
	}
	end := EndOfCentralDirectory{
		ThisDiskNum:                     binary.LittleEndian.Uint16(buf[0:2]),
		DiskNumWithTheStartOfCentralDir: binary.LittleEndian.Uint16(buf[2:4]),
		TotalNumberOfEntriesOnThisDisk:  binary.LittleEndian.Uint16(buf[4:6]),
		TotalNumberOfEntries:            binary.LittleEndian.Uint16(buf[6:8]),
		CentralDirSize:                  binary.LittleEndian.Uint32(buf[8:12]),
		CentralDirOffset:                binary.LittleEndian.Uint32(buf[12:16]),
		CommentLength:                   binary.LittleEndian.Uint16(buf[16:18]),
	}
	if end.CommentLength > 0 {
		end.Comment = make([]byte, end.CommentLength)
		if _, err := io.ReadFull(src, end.Comment); err != nil {
			return EndOfCentralDirectory{}, fmt.Errorf("read archive comment: %w", err)
		}
	}
	return end, nil
}

// Encode serializes the record, used by tests to synthesize archives.
func (e EndOfCentralDirectory) Encode() []byte {
	buf := make([]byte, DirectoryEndLen+len(e.Comment))
	binary.LittleEndian.PutUint32(buf[0:4], EndOfCentralDirSignature)
	binary.LittleEndian.PutUint16(buf[4:6], e.ThisDiskNum)
	binary.LittleEndian.PutUint16(buf[6:8], e.DiskNumWithTheStartOfCentralDir)
	binary.LittleEndian.PutUint16(buf[8:10], e.TotalNumberOfEntriesOnThisDisk)
	binary.LittleEndian.PutUint16(buf[10:12], e.TotalNumberOfEntries)
	binary.LittleEndian.PutUint32(buf[12:16], e.CentralDirSize)
	binary.LittleEndian.PutUint32(buf[16:20], e.CentralDirOffset)
	binary.LittleEndian.PutUint16(buf[20:22], uint16(len(e.Comment)))
	copy(buf[22:], e.Comment)
	return buf
}

type Zip64EndOfCentralDirectory struct {
	Size                            uint64
	VersionMadeBy                   uint16
	VersionNeededToExtract          uint16
	ThisDiskNum                     uint32
	DiskNumWithTheStartOfCentralDir uint32
	TotalNumberOfEntriesOnThisDisk  uint64
	TotalNumberOfEntries            uint64
	CentralDirSize                  uint64
	CentralDirOffset                uint64
}

// ReadZip64EndOfCentralDir reads the Zip64 EOCD payload. The signature has
// already been consumed by the caller.
func ReadZip64EndOfCentralDir(src io.Reader) (Zip64EndOfCentralDirectory, error) {
	var buf [52]byte
	if _, err := io.ReadFull(src, buf[:]); err != nil {
		return Zip64EndOfCentralDirectory{}, fmt.Errorf("read zip64 end of central directory: %w", err)
	}
	return Zip64EndOfCentralDirectory{
		Size:                            binary.LittleEndian.Uint64(buf[0:8]),
		VersionMadeBy:                   binary.LittleEndian.Uint16(buf[8:10]),
		VersionNeededToExtract:          binary.LittleEndian.Uint16(buf[10:12]),
		ThisDiskNum:                     binary.LittleEndian.Uint32(buf[12:16]),
		DiskNumWithTheStartOfCentralDir: binary.LittleEndian.Uint32(buf[16:20]),
		TotalNumberOfEntriesOnThisDisk:  binary.LittleEndian.Uint64(buf[20:28]),
		TotalNumberOfEntries:            binary.LittleEndian.Uint64(buf[28:36]),
		CentralDirSize:                  binary.LittleEndian.Uint64(buf[36:44]),
		CentralDirOffset:                binary.LittleEndian.Uint64(buf[44:52]),
	}, nil
}

func (z Zip64EndOfCentralDirectory) Encode() []byte {
	buf := make([]byte, Zip64DirectoryEndLen)
	binary.LittleEndian.PutUint32(buf[0:4], Zip64EndOfCentralDirSignature)
	binary.LittleEndian.PutUint64(buf[4:12], 44)
	binary.LittleEndian.PutUint16(buf[12:14], z.VersionMadeBy)
	binary.LittleEndian.PutUint16(buf[14:16], z.VersionNeededToExtract)
	binary.LittleEndian.PutUint32(buf[16:20], z.ThisDiskNum)
	binary.LittleEndian.PutUint32(buf[20:24], z.DiskNumWithTheStartOfCentralDir)
	binary.LittleEndian.PutUint64(buf[24:32], z.TotalNumberOfEntriesOnThisDisk)
	binary.LittleEndian.PutUint64(buf[32:40], z.TotalNumberOfEntries)
	binary.LittleEndian.PutUint64(buf[40:48], z.CentralDirSize)
	binary.LittleEndian.PutUint64(buf[48:56], z.CentralDirOffset)
	return buf
}

type Zip64EndOfCentralDirectoryLocator struct {
	EndOfCentralDirStartDiskNum uint32
	Zip64EndOfCentralDirOffset  uint64
	TotalNumberOfDisks          uint32
}

// ReadZip64EndOfCentralDirLocator reads the locator payload. The signature
// has already been consumed by the caller.
func ReadZip64EndOfCentralDirLocator(src io.Reader) (Zip64EndOfCentralDirectoryLocator, error) {
	var buf [16]byte
	if _, err := io.ReadFull(src, buf[:]); err != nil {
		return Zip64EndOfCentralDirectoryLocator{}, fmt.Errorf("read zip64 locator: %w", err)
	}
	return Zip64EndOfCentralDirectoryLocator{
		EndOfCentralDirStartDiskNum: binary.LittleEndian.Uint32(buf[0:4]),
		Zip64EndOfCentralDirOffset:  binary.LittleEndian.Uint64(buf[4:12]),
		TotalNumberOfDisks:          binary.LittleEndian.Uint32(buf[12:16]),
	}, nil
}

func (l Zip64EndOfCentralDirectoryLocator) Encode() []byte {
	buf := make([]byte, Zip64LocatorLen)
	binary.LittleEndian.PutUint32(buf[0:4], Zip64EndOfCentralDirLocatorSignature)
	binary.LittleEndian.PutUint32(buf[4:8], l.EndOfCentralDirStartDiskNum)
	binary.LittleEndian.PutUint64(buf[8:16], l.Zip64EndOfCentralDirOffset)
	binary.LittleEndian.PutUint32(buf[16:20], l.TotalNumberOfDisks)
	return buf
}

type CentralDirectory struct {
	VersionMadeBy          uint16
	VersionNeededToExtract uint16
	GeneralPurposeBitFlag  uint16
	CompressionMethod      uint16
	LastModFileTime        uint16
	LastModFileDate        uint16
	CRC32                  uint32
	CompressedSize         uint32
	UncompressedSize       uint32
	FilenameLength         uint16
	ExtraFieldLength       uint16
	FileCommentLength      uint16
	DiskNumberStart        uint16
	InternalFileAttributes uint16
	ExternalFileAttributes uint32
	LocalHeaderOffset      uint32
	Filename               []byte
	ExtraField             []ExtraField
	Comment                []byte
}

// ReadCentralDirEntry reads one central directory header. The signature has
// already been consumed by the caller. Truncation anywhere inside the record
// surfaces as an io.ErrUnexpectedEOF-wrapping error.
//
// When scratch is non-nil the variable-length tail is stored in its bytes,
// avoiding a per-record allocation during directory scans; the returned
// record's Filename, ExtraField and Comment then alias the scratch buffer
// and are valid only until its next reuse.
func ReadCentralDirEntry(src io.Reader, scratch *bytebufferpool.ByteBuffer) (CentralDirectory, error) {
	var buf [42]byte
	if _, err := io.ReadFull(src, buf[:]); err != nil {
		return CentralDirectory{}, fmt.Errorf("read central directory header: %w", noEOF(err))
	}

	entry := CentralDirectory{
		VersionMadeBy:          binary.LittleEndian.Uint16(buf[0:2]),
		VersionNeededToExtract: binary.LittleEndian.Uint16(buf[2:4]),
		GeneralPurposeBitFlag:  binary.LittleEndian.Uint16(buf[4:6]),
		CompressionMethod:      binary.LittleEndian.Uint16(buf[6:8]),
		LastModFileTime:        binary.LittleEndian.Uint16(buf[8:10]),
		LastModFileDate:        binary.LittleEndian.Uint16(buf[10:12]),
		CRC32:                  binary.LittleEndian.Uint32(buf[12:16]),
		CompressedSize:         binary.LittleEndian.Uint32(buf[16:20]),
		UncompressedSize:       binary.LittleEndian.Uint32(buf[20:24]),
		FilenameLength:         binary.LittleEndian.Uint16(buf[24:26]),
		ExtraFieldLength:       binary.LittleEndian.Uint16(buf[26:28]),
		FileCommentLength:      binary.LittleEndian.Uint16(buf[28:30]),
		DiskNumberStart:        binary.LittleEndian.Uint16(buf[30:32]),
		InternalFileAttributes: binary.LittleEndian.Uint16(buf[32:34]),
		ExternalFileAttributes: binary.LittleEndian.Uint32(buf[34:38]),
		LocalHeaderOffset:      binary.LittleEndian.Uint32(buf[38:42]),
	}

	need := int(entry.FilenameLength) + int(entry.ExtraFieldLength) + int(entry.FileCommentLength)
	var tail []byte
	if scratch != nil {
		if cap(scratch.B) < need {
			scratch.B = make([]byte, need)
		}
		scratch.B = scratch.B[:need]
		tail = scratch.B
	} else {
		tail = make([]byte, need)
	}
	if _, err := io.ReadFull(src, tail); err != nil {
		return CentralDirectory{}, fmt.Errorf("read central directory tail: %w", noEOF(err))
	}

	entry.Filename = tail[:entry.FilenameLength]
	entry.ExtraField = ParseExtraFields(tail[entry.FilenameLength : int(entry.FilenameLength)+int(entry.ExtraFieldLength)])
	entry.Comment = tail[int(entry.FilenameLength)+int(entry.ExtraFieldLength):]

	return entry, nil
}

func (d CentralDirectory) Encode() []byte {
	extra := encodeExtraFields(d.ExtraField)
	buf := make([]byte, DirectoryHeaderLen+len(d.Filename)+len(extra)+len(d.Comment))

	binary.LittleEndian.PutUint32(buf[0:4], CentralDirectorySignature)
	binary.LittleEndian.PutUint16(buf[4:6], d.VersionMadeBy)
	binary.LittleEndian.PutUint16(buf[6:8], d.VersionNeededToExtract)
	binary.LittleEndian.PutUint16(buf[8:10], d.GeneralPurposeBitFlag)
	binary.LittleEndian.PutUint16(buf[10:12], d.CompressionMethod)
	binary.LittleEndian.PutUint16(buf[12:14], d.LastModFileTime)
	binary.LittleEndian.PutUint16(buf[14:16], d.LastModFileDate)
	binary.LittleEndian.PutUint32(buf[16:20], d.CRC32)
	binary.LittleEndian.PutUint32(buf[20:24], d.CompressedSize)
	binary.LittleEndian.PutUint32(buf[24:28], d.UncompressedSize)
	binary.LittleEndian.PutUint16(buf[28:30], uint16(len(d.Filename)))
	binary.LittleEndian.PutUint16(buf[30:32], uint16(len(extra)))
	binary.LittleEndian.PutUint16(buf[32:34], uint16(len(d.Comment)))
	binary.LittleEndian.PutUint16(buf[34:36], d.DiskNumberStart)
	binary.LittleEndian.PutUint16(buf[36:38], d.InternalFileAttributes)
	binary.LittleEndian.PutUint32(buf[38:42], d.ExternalFileAttributes)
	binary.LittleEndian.PutUint32(buf[42:46], d.LocalHeaderOffset)

	offset := DirectoryHeaderLen
	offset += copy(buf[offset:], d.Filename)
	offset += copy(buf[offset:], extra)
	copy(buf[offset:], d.Comment)

	return buf
}

type LocalFileHeader struct {
	VersionNeededToExtract uint16
	GeneralPurposeBitFlag  uint16
	CompressionMethod      uint16
	LastModFileTime        uint16
	LastModFileDate        uint16
	CRC32                  uint32
	CompressedSize         uint32
	UncompressedSize       uint32
	Filename               []byte
	ExtraField             []byte
}

// SkipLocalHeader reads the fixed local header prefix and returns the total
// header length, fixed prefix plus the header's own filename and extra field
// lengths. Only the length matters to the caller; the local header copies of
// the metadata fields are not trusted over the central directory.
func SkipLocalHeader(src io.Reader) (int64, error) {
	var buf [LocalHeaderLen]byte
	if _, err := io.ReadFull(src, buf[:]); err != nil {
		return 0, fmt.Errorf("read local file header: %w", noEOF(err))
	}
	if binary.LittleEndian.Uint32(buf[0:4]) != LocalFileHeaderSignature {
		return 0, fmt.Errorf("unexpected local file header signature %#08x", binary.LittleEndian.Uint32(buf[0:4]))
	}
	filenameLen := int64(binary.LittleEndian.Uint16(buf[26:28]))
	extraLen := int64(binary.LittleEndian.Uint16(buf[28:30]))
	return LocalHeaderLen + filenameLen + extraLen, nil
}

func (h LocalFileHeader) Encode() []byte {
	buf := make([]byte, LocalHeaderLen+len(h.Filename)+len(h.ExtraField))

	binary.LittleEndian.PutUint32(buf[0:4], LocalFileHeaderSignature)
	binary.LittleEndian.PutUint16(buf[4:6], h.VersionNeededToExtract)
	binary.LittleEndian.PutUint16(buf[6:8], h.GeneralPurposeBitFlag)
	binary.LittleEndian.PutUint16(buf[8:10], h.CompressionMethod)
	binary.LittleEndian.PutUint16(buf[10:12], h.LastModFileTime)
	binary.LittleEndian.PutUint16(buf[12:14], h.LastModFileDate)
	binary.LittleEndian.PutUint32(buf[14:18], h.CRC32)
	binary.LittleEndian.PutUint32(buf[18:22], h.CompressedSize)
	binary.LittleEndian.PutUint32(buf[22:26], h.UncompressedSize)
	binary.LittleEndian.PutUint16(buf[26:28], uint16(len(h.Filename)))
	binary.LittleEndian.PutUint16(buf[28:30], uint16(len(h.ExtraField)))

	copy(buf[LocalHeaderLen:], h.Filename)
	copy(buf[LocalHeaderLen+len(h.Filename):], h.ExtraField)

	return buf
}

func noEOF(e error) error {
	if e == io.EOF {
		return io.ErrUnexpectedEOF
	}
	return e
}
