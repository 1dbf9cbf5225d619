// Copyright 2026 Lemon4ksan. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package zipseek

import "unicode/utf8"

// Bit 11 of the general purpose flags marks the name and comment as UTF-8.
const utf8Flag = 0x800

// decodeText turns a raw name or comment into a string. Text flagged as
// UTF-8, or that happens to be valid UTF-8, is taken as-is; everything else
// goes through the archive's configured legacy encoding. A conversion
// failure falls back to the raw bytes rather than failing the scan.
func (a *Archive) decodeText(raw []byte, flags uint16) string {
	if len(raw) == 0 {
		return ""
	}
	if flags&utf8Flag != 0 || utf8.Valid(raw) {
		return string(raw)
	}
	decoded, err := a.textEncoding.NewDecoder().Bytes(raw)
	if err != nil {
		return string(raw)
	}
	return string(decoded)
}
