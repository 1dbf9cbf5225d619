// Copyright 2026 Lemon4ksan. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package zipseek

import (
	"encoding/binary"
	"fmt"
	"io"
	"math"
	"strings"

	"github.com/valyala/bytebufferpool"

	"github.com/lemon4ksan/zipseek/internal"
	"github.com/lemon4ksan/zipseek/internal/sys"
)

// resolveDirectory locates the end of central directory record, upgrades to
// the Zip64 record when the EOCD carries saturated fields, and validates
// that the archive is single-volume. On success the Archive knows the disk
// number, central directory offset and expected entry count.
func (a *Archive) resolveDirectory() error {
	end, eocdOffset, err := a.findEndOfCentralDir()
	if err != nil {
		return err
	}

	if end.ThisDiskNum != end.DiskNumWithTheStartOfCentralDir ||
		end.TotalNumberOfEntriesOnThisDisk != end.TotalNumberOfEntries {
		return fmt.Errorf("%w: archive spans multiple disks", ErrSplitArchive)
	}

	a.eocdOffset = eocdOffset
	a.diskNum = uint32(end.ThisDiskNum)
	a.cdOffset = int64(end.CentralDirOffset)
	a.entryCount = int64(end.TotalNumberOfEntries)
	a.comment = a.decodeText(end.Comment, 0)

	if end.ThisDiskNum == internal.Sentinel16 ||
		end.CentralDirOffset == internal.Sentinel32 ||
		end.TotalNumberOfEntries == internal.Sentinel16 {
		if err := a.upgradeZip64(); err != nil {
			return err
		}
	}

	if a.cdOffset > a.size {
		return fmt.Errorf("%w: central directory offset %d beyond stream end %d", ErrFieldOverflow, a.cdOffset, a.size)
	}
	return nil
}

// findEndOfCentralDir scans backward from the end of the stream for the
// EOCD signature. The record can be no further back than the maximum
// comment length plus the record itself. The rightmost candidate whose
// declared comment still fits inside the stream wins; a stray signature
// inside a comment fails that check and the scan continues past it.
func (a *Archive) findEndOfCentralDir() (internal.EndOfCentralDirectory, int64, error) {
	var end internal.EndOfCentralDirectory

	if a.size < internal.DirectoryEndLen {
		return end, 0, fmt.Errorf("%w: stream of %d bytes is too small", ErrCentralDirectoryNotFound, a.size)
	}

	const bufSize = 1024
	buf := make([]byte, bufSize)

	searchLimit := min(int64(math.MaxUint16)+internal.DirectoryEndLen, a.size)

	for searchStart := int64(0); searchStart < searchLimit; {
		readSize := min(bufSize, searchLimit-searchStart)
		readPos := a.size - searchStart - readSize

		n, err := a.src.ReadAt(buf[:readSize], readPos)
		if err != nil && err != io.EOF {
			return end, 0, fmt.Errorf("zipseek: read at %d: %w", readPos, err)
		}
		if n < 4 {
			break
		}

		chunk := buf[:n]
		for p := n - 4; p >= 0; p-- {
			if binary.LittleEndian.Uint32(chunk[p:p+4]) != internal.EndOfCentralDirSignature {
				continue
			}
			recordOffset := readPos + int64(p)
			if recordOffset+internal.DirectoryEndLen > a.size {
				continue
			}

			sr := io.NewSectionReader(a.src, recordOffset+4, a.size-recordOffset-4)
			candidate, err := internal.ReadEndOfCentralDir(sr)
			if err != nil {
				continue
			}
			if recordOffset+internal.DirectoryEndLen+int64(candidate.CommentLength) > a.size {
				// Signature bytes inside a comment, not a record.
				continue
			}
			return candidate, recordOffset, nil
		}

		// Move the window backward, overlapping by 3 bytes so a signature
		// straddling two chunks is still seen.
		searchStart += int64(n) - 3
	}

	return end, 0, fmt.Errorf("%w: no end of central directory signature within search window", ErrCentralDirectoryNotFound)
}

// upgradeZip64 replaces the saturated EOCD values with the Zip64 record's
// 64-bit ones. The locator sits directly before the EOCD in a canonical
// archive, but some writers leave padding between the two, so the signature
// is scanned backward over a small window. A missing locator is not an
// error: the sentinel values may legitimately be real values in a non-Zip64
// archive. A locator that points at anything other than a Zip64 EOCD record
// is corruption.
func (a *Archive) upgradeZip64() error {
	const locatorScanWindow = 16

	locOffset := int64(-1)
	var sig [4]byte
	for off := a.eocdOffset - internal.Zip64LocatorLen; off >= 0 && off >= a.eocdOffset-internal.Zip64LocatorLen-locatorScanWindow; off-- {
		if _, err := a.src.ReadAt(sig[:], off); err != nil {
			return nil
		}
		if binary.LittleEndian.Uint32(sig[:]) == internal.Zip64EndOfCentralDirLocatorSignature {
			locOffset = off
			break
		}
	}
	if locOffset < 0 {
		return nil
	}

	locReader := io.NewSectionReader(a.src, locOffset+4, internal.Zip64LocatorLen-4)
	locator, err := internal.ReadZip64EndOfCentralDirLocator(locReader)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrMalformedRecord, err)
	}

	if locator.Zip64EndOfCentralDirOffset > math.MaxInt64 {
		return fmt.Errorf("%w: zip64 end record offset %d", ErrFieldOverflow, locator.Zip64EndOfCentralDirOffset)
	}
	recordOffset := int64(locator.Zip64EndOfCentralDirOffset)
	if recordOffset+4 > a.size {
		return fmt.Errorf("%w: locator target %d beyond stream end", ErrZip64Misplaced, recordOffset)
	}

	if _, err := a.src.ReadAt(sig[:], recordOffset); err != nil {
		return fmt.Errorf("%w: %v", ErrZip64Misplaced, err)
	}
	if binary.LittleEndian.Uint32(sig[:]) != internal.Zip64EndOfCentralDirSignature {
		return fmt.Errorf("%w: no record signature at offset %d", ErrZip64Misplaced, recordOffset)
	}

	recReader := io.NewSectionReader(a.src, recordOffset+4, a.size-recordOffset-4)
	record, err := internal.ReadZip64EndOfCentralDir(recReader)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrMalformedRecord, err)
	}

	if record.TotalNumberOfEntries != record.TotalNumberOfEntriesOnThisDisk {
		return fmt.Errorf("%w: zip64 record spans multiple disks", ErrSplitArchive)
	}
	if record.TotalNumberOfEntries > math.MaxInt64 {
		return fmt.Errorf("%w: entry count %d", ErrFieldOverflow, record.TotalNumberOfEntries)
	}
	if record.CentralDirOffset > math.MaxInt64 {
		return fmt.Errorf("%w: central directory offset %d", ErrFieldOverflow, record.CentralDirOffset)
	}

	a.diskNum = record.ThisDiskNum
	a.entryCount = int64(record.TotalNumberOfEntries)
	a.cdOffset = int64(record.CentralDirOffset)
	return nil
}

// Resolve scans the central directory for the first entry whose short name
// (the stored name with any leading path stripped, under the separator
// convention of the system that wrote the entry) matches name under cmp.
//
// The scan is linear from the start of the directory and stops at the first
// match, so when an archive holds duplicate names the first occurrence in
// directory order wins; that behavior is contractual and tested. A miss is
// not an error: ok is false and err is nil. A full scan that reads a
// different number of headers than the end record declared fails with
// ErrEntryCountMismatch.
func (a *Archive) Resolve(name string, cmp Comparison) (entry *Entry, ok bool, err error) {
	if a.closed {
		return nil, false, ErrArchiveClosed
	}

	key := resolveKey{name: name, cmp: cmp}
	if a.cache != nil {
		if cached, hit := a.cache.Get(key); hit {
			return cached, cached != nil, nil
		}
	}

	entry, ok, err = a.scan(name, cmp)
	if err != nil {
		return nil, false, err
	}
	if a.cache != nil {
		a.cache.Add(key, entry)
	}
	return entry, ok, nil
}

// scan is the uncached lookup primitive: one pass over the central
// directory from its recorded start offset.
func (a *Archive) scan(name string, cmp Comparison) (*Entry, bool, error) {
	pos := a.cdOffset
	var read int64

	bb := bytebufferpool.Get()
	defer bytebufferpool.Put(bb)

	for {
		if pos >= a.size {
			break // clean end of stream at a record boundary
		}
		var sig [4]byte
		n, err := a.src.ReadAt(sig[:], pos)
		if n < 4 {
			if err != nil && err != io.EOF {
				return nil, false, fmt.Errorf("zipseek: read at %d: %w", pos, err)
			}
			return nil, false, fmt.Errorf("%w: truncated record signature at offset %d", ErrMalformedRecord, pos)
		}
		if binary.LittleEndian.Uint32(sig[:]) != internal.CentralDirectorySignature {
			break // end of the central directory
		}

		sr := io.NewSectionReader(a.src, pos+4, a.size-pos-4)
		hdr, err := internal.ReadCentralDirEntry(sr, bb)
		if err != nil {
			return nil, false, fmt.Errorf("%w: entry %d at offset %d: %v", ErrMalformedRecord, read, pos, err)
		}
		read++
		pos += internal.DirectoryHeaderLen +
			int64(hdr.FilenameLength) + int64(hdr.ExtraFieldLength) + int64(hdr.FileCommentLength)

		// hdr's byte fields alias the pooled buffer, so anything kept past
		// this iteration is materialized into fresh storage here.
		storedName := a.decodeText(hdr.Filename, hdr.GeneralPurposeBitFlag)
		host := sys.HostSystem(hdr.VersionMadeBy >> 8)
		short := shortNameOf(storedName, host)

		if !a.nameMatches(short, name, cmp) {
			continue
		}

		entry, err := a.newEntry(hdr, storedName, short, host)
		if err != nil {
			return nil, false, err
		}
		return entry, true, nil
	}

	if read != a.entryCount {
		return nil, false, fmt.Errorf("%w: read %d headers, end record declared %d", ErrEntryCountMismatch, read, a.entryCount)
	}
	return nil, false, nil
}

// shortNameOf strips the path from a full stored name. Entries written
// under the DOS/Windows convention treat backslash, forward slash and the
// drive colon as separators; everything else uses forward slash only. The
// convention is applied to the full stored name, never to an already
// shortened one.
func shortNameOf(full string, host sys.HostSystem) string {
	seps := "/"
	if host.IsWindows() {
		seps = `\/:`
	}
	if i := strings.LastIndexAny(full, seps); i >= 0 {
		return full[i+1:]
	}
	return full
}
