// Copyright 2026 Lemon4ksan. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package zipseek

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/text/language"
)

func TestNameMatches(t *testing.T) {
	tests := []struct {
		name  string
		short string
		want  string
		cmp   Comparison
		match bool
	}{
		{"exact equal", "file.txt", "file.txt", Exact, true},
		{"exact case differs", "File.txt", "file.txt", Exact, false},
		{"exact different", "a.txt", "b.txt", Exact, false},
		{"fold equal", "README.TXT", "readme.txt", IgnoreCase, true},
		{"fold unicode", "ÄRGER.log", "ärger.log", IgnoreCase, true},
		{"fold different", "a.txt", "b.txt", IgnoreCase, false},
		{"collated equal", "notes.md", "notes.md", Collated, true},
		{"collated different", "notes.md", "other.md", Collated, false},
		// Precomposed é against combining acute: canonically equivalent,
		// so collation treats them as the same string.
		{"collated normalization", "café.txt", "café.txt", Collated, true},
	}

	a := &Archive{}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := a.nameMatches(tt.short, tt.want, tt.cmp)
			assert.Equal(t, tt.match, got)
		})
	}
}

func TestResolve_Collated(t *testing.T) {
	// Stored name uses a combining accent; the lookup uses the precomposed
	// form. Only the collated policy bridges the two spellings.
	data := buildArchive(t, []testEntry{
		{name: "docs/café.txt", data: []byte("accented")},
	}, "")
	a := openArchive(t, data, WithLanguage(language.French))

	_, ok, err := a.Resolve("café.txt", Exact)
	require.NoError(t, err)
	assert.False(t, ok)

	entry, ok, err := a.Resolve("café.txt", Collated)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, []byte("accented"), readEntry(t, entry))
}
