// Copyright 2026 Lemon4ksan. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package internal

import (
	"encoding/binary"
	"fmt"
	"math"
)

// Zip64ExtraFieldTag identifies the extra field that carries 64-bit size
// and offset information for entries exceeding the 32-bit limits.
const Zip64ExtraFieldTag uint16 = 0x0001

// ExtraField is one tag/length/value record from a header's extra field area.
type ExtraField struct {
	Tag  uint16
	Data []byte
}

// ParseExtraFields decodes the variable-length records attached to central
// and local headers, preserving their order. A trailing fragment shorter
// than a tag/size header, or a declared size overrunning the buffer, ends
// the parse cleanly rather than failing.
func ParseExtraFields(b []byte) []ExtraField {
	var fields []ExtraField
	for offset := 0; offset+4 <= len(b); {
		tag := binary.LittleEndian.Uint16(b[offset : offset+2])
		size := int(binary.LittleEndian.Uint16(b[offset+2 : offset+4]))
		offset += 4
		if offset+size > len(b) {
			break
		}
		fields = append(fields, ExtraField{Tag: tag, Data: b[offset : offset+size]})
		offset += size
	}
	return fields
}

func encodeExtraFields(fields []ExtraField) []byte {
	var size int
	for _, f := range fields {
		size += 4 + len(f.Data)
	}
	buf := make([]byte, 0, size)
	for _, f := range fields {
		var hdr [4]byte
		binary.LittleEndian.PutUint16(hdr[0:2], f.Tag)
		binary.LittleEndian.PutUint16(hdr[2:4], uint16(len(f.Data)))
		buf = append(buf, hdr[:]...)
		buf = append(buf, f.Data...)
	}
	return buf
}

// Zip64Values holds the optional sub-values of a Zip64 extra field. Presence
// flags report which values were actually decoded.
type Zip64Values struct {
	UncompressedSize     uint64
	CompressedSize       uint64
	LocalHeaderOffset    uint64
	DiskNumberStart      uint32
	HasUncompressedSize  bool
	HasCompressedSize    bool
	HasLocalHeaderOffset bool
	HasDiskNumberStart   bool
}

// zip64FullLen is the size of a Zip64 extra field carrying all four
// sub-values: three 8-byte sizes/offsets plus a 4-byte disk number.
const zip64FullLen = 28

// ExtractZip64 scans fields for the first Zip64 record and decodes its
// sub-values in the fixed order uncompressed size, compressed size, local
// header offset, start disk number. A value is consumed when the caller
// asked for it, or when the record is large enough to hold all four;
// some writers emit every field regardless of which fixed fields were
// saturated, and skipping over the unrequested ones keeps the requested
// ones aligned.
func ExtractZip64(fields []ExtraField, wantUncompressed, wantCompressed, wantOffset, wantDisk bool) (Zip64Values, error) {
	var v Zip64Values

	var data []byte
	found := false
	for _, f := range fields {
		if f.Tag == Zip64ExtraFieldTag {
			data = f.Data
			found = true
			break
		}
	}
	if !found {
		return v, nil
	}

	full := len(data) >= zip64FullLen
	offset := 0

	if (wantUncompressed || full) && offset+8 <= len(data) {
		size := binary.LittleEndian.Uint64(data[offset : offset+8])
		if size > math.MaxInt64 {
			return v, fmt.Errorf("zip64 uncompressed size %d exceeds int64", size)
		}
		if wantUncompressed {
			v.UncompressedSize, v.HasUncompressedSize = size, true
		}
		offset += 8
	}
	if (wantCompressed || full) && offset+8 <= len(data) {
		size := binary.LittleEndian.Uint64(data[offset : offset+8])
		if size > math.MaxInt64 {
			return v, fmt.Errorf("zip64 compressed size %d exceeds int64", size)
		}
		if wantCompressed {
			v.CompressedSize, v.HasCompressedSize = size, true
		}
		offset += 8
	}
	if (wantOffset || full) && offset+8 <= len(data) {
		if wantOffset {
			v.LocalHeaderOffset, v.HasLocalHeaderOffset = binary.LittleEndian.Uint64(data[offset:offset+8]), true
		}
		offset += 8
	}
	if (wantDisk || full) && offset+4 <= len(data) {
		if wantDisk {
			v.DiskNumberStart, v.HasDiskNumberStart = binary.LittleEndian.Uint32(data[offset:offset+4]), true
		}
	}

	return v, nil
}
