// Copyright 2026 Lemon4ksan. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package inflate

import (
	"bytes"
	"testing"
)

func TestWindowWriteByteDrain(t *testing.T) {
	var w window
	w.init()

	input := []byte("the quick brown fox")
	for _, c := range input {
		w.writeByte(c)
	}

	if w.available() != len(input) {
		t.Fatalf("available() = %d, want %d", w.available(), len(input))
	}
	if w.free()+w.available() != windowSize {
		t.Fatalf("free()+available() = %d, want %d", w.free()+w.available(), windowSize)
	}

	out := make([]byte, len(input))
	n := w.drain(out)
	if n != len(input) {
		t.Fatalf("drain() = %d, want %d", n, len(input))
	}
	if !bytes.Equal(out, input) {
		t.Errorf("drain() produced %q, want %q", out, input)
	}
	if w.available() != 0 {
		t.Errorf("available() after full drain = %d", w.available())
	}
}

func TestWindowWriteCopy(t *testing.T) {
	tests := []struct {
		name   string
		seed   string
		dist   int
		length int
		want   string
	}{
		{"non overlapping", "abcdef", 6, 3, "abcdefabc"},
		{"overlapping repeat", "ab", 2, 6, "abababab"},
		{"distance one run", "x", 1, 5, "xxxxxx"},
		{"partial overlap", "abcd", 3, 5, "abcdbcdbc"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var w window
			w.init()
			for _, c := range []byte(tt.seed) {
				w.writeByte(c)
			}
			w.writeCopy(tt.dist, tt.length)

			out := make([]byte, len(tt.want))
			if n := w.drain(out); n != len(tt.want) {
				t.Fatalf("drain() = %d, want %d", n, len(tt.want))
			}
			if string(out) != tt.want {
				t.Errorf("window holds %q, want %q", out, tt.want)
			}
		})
	}
}

func TestWindowCopyAfterDrain(t *testing.T) {
	// Drained bytes must remain valid back-reference sources until the
	// write cursor laps them.
	var w window
	w.init()

	seed := []byte("0123456789")
	for _, c := range seed {
		w.writeByte(c)
	}
	buf := make([]byte, len(seed))
	w.drain(buf)

	w.writeCopy(10, 4) // references only drained bytes
	out := make([]byte, 4)
	w.drain(out)
	if string(out) != "0123" {
		t.Errorf("copy from drained history = %q, want %q", out, "0123")
	}
}

func TestWindowWrapAround(t *testing.T) {
	var w window
	w.init()

	// Fill to just short of the wrap point, drain, then write across it.
	chunk := bytes.Repeat([]byte("abcdefgh"), windowSize/8)
	pos := 0
	for pos < windowSize-4 {
		s := w.writeSlice()
		n := copy(s, chunk[pos:pos+min(len(s), windowSize-4-pos)])
		w.writeMark(n)
		pos += n
		drained := make([]byte, n)
		w.drain(drained)
	}
	if w.wr != windowSize-4 {
		t.Fatalf("write cursor = %d, want %d", w.wr, windowSize-4)
	}

	for _, c := range []byte("WXYZwxyz") {
		w.writeByte(c)
	}
	out := make([]byte, 8)
	if n := w.drain(out); n != 8 {
		t.Fatalf("drain() across wrap = %d, want 8", n)
	}
	if string(out) != "WXYZwxyz" {
		t.Errorf("drain() across wrap = %q", out)
	}
	if w.free()+w.available() != windowSize {
		t.Errorf("free()+available() = %d, want %d", w.free()+w.available(), windowSize)
	}
}

func TestWindowHistSize(t *testing.T) {
	var w window
	w.init()

	if w.histSize() != 0 {
		t.Fatalf("histSize() of fresh window = %d", w.histSize())
	}
	for i := 0; i < 100; i++ {
		w.writeByte('a')
	}
	if w.histSize() != 100 {
		t.Errorf("histSize() = %d, want 100", w.histSize())
	}

	buf := make([]byte, windowSize)
	w.drain(buf)
	for written := 100; written < windowSize+50; written += 50 {
		for i := 0; i < 50; i++ {
			w.writeByte('b')
		}
		w.drain(buf)
	}
	if w.histSize() != windowSize {
		t.Errorf("histSize() after lapping = %d, want %d", w.histSize(), windowSize)
	}
}

func TestWindowPartialDrain(t *testing.T) {
	var w window
	w.init()
	for _, c := range []byte("abcdefgh") {
		w.writeByte(c)
	}

	out := make([]byte, 3)
	if n := w.drain(out); n != 3 || string(out) != "abc" {
		t.Fatalf("first drain = %d %q", n, out)
	}
	if n := w.drain(out); n != 3 || string(out) != "def" {
		t.Fatalf("second drain = %d %q", n, out)
	}
	rest := make([]byte, 10)
	if n := w.drain(rest); n != 2 || string(rest[:2]) != "gh" {
		t.Fatalf("final drain = %d %q", n, rest[:2])
	}
}
