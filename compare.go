// Copyright 2026 Lemon4ksan. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package zipseek

import (
	"strings"

	"golang.org/x/text/collate"
	"golang.org/x/text/language"
)

// Comparison selects how entry short names are matched against the name
// passed to Resolve.
type Comparison uint8

const (
	// Exact matches byte-for-byte.
	Exact Comparison = iota

	// IgnoreCase matches under Unicode case folding.
	IgnoreCase

	// Collated matches under the archive's collation language, configured
	// with WithLanguage. Names that differ only in ways the language
	// considers insignificant compare equal.
	Collated
)

// resolveKey identifies one cached Resolve lookup.
type resolveKey struct {
	name string
	cmp  Comparison
}

func (a *Archive) nameMatches(short, want string, cmp Comparison) bool {
	switch cmp {
	case IgnoreCase:
		return strings.EqualFold(short, want)
	case Collated:
		if a.collator == nil {
			a.collator = collate.New(language.Und)
		}
		return a.collator.CompareString(short, want) == 0
	default:
		return short == want
	}
}
