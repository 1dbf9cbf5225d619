// Copyright 2026 Lemon4ksan. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package inflate

// The window must be able to address the deflate64 back-reference range:
// distances up to 65536 plus a single token length of up to 65538 bytes.
// 262144 is the smallest power of two with room for both, which keeps the
// wrap-around arithmetic to a mask.
const (
	windowSize = 262144
	windowMask = windowSize - 1
)

// window is the LZ77 sliding history used during decompression, kept as a
// circular buffer. Bytes stay addressable as back-reference sources after
// they have been drained, until the write cursor laps them; the capacity
// exceeds the maximum match distance by enough that a valid stream can
// never reference an overwritten byte.
//
// Invariant: free() + available() == windowSize at all times.
type window struct {
	hist  []byte
	wr    int   // next write position
	used  int   // bytes written and not yet drained
	total int64 // total bytes ever written, bounds valid back-reference distances
}

func (w *window) init() {
	if w.hist == nil {
		w.hist = make([]byte, windowSize)
	}
	w.wr, w.used, w.total = 0, 0, 0
}

// free returns the number of bytes that may be written before a drain is
// required. The decoder never emits more than this in one step.
func (w *window) free() int { return windowSize - w.used }

// available returns the number of written bytes not yet drained.
func (w *window) available() int { return w.used }

// histSize returns the number of bytes of valid history behind the write
// cursor, which bounds legal back-reference distances.
func (w *window) histSize() int {
	if w.total >= windowSize {
		return windowSize
	}
	return int(w.total)
}

func (w *window) writeByte(c byte) {
	w.hist[w.wr] = c
	w.wr = (w.wr + 1) & windowMask
	w.used++
	w.total++
}

// writeCopy copies length bytes starting dist bytes behind the write cursor
// to the write cursor. The copy proceeds byte by byte forward so that bytes
// written earlier in the same call are valid sources for later ones; when
// dist < length the output repeats, which is required LZ77 semantics and
// not an aliasing bug.
func (w *window) writeCopy(dist, length int) {
	src := (w.wr - dist) & windowMask
	for i := 0; i < length; i++ {
		w.hist[w.wr] = w.hist[src]
		w.wr = (w.wr + 1) & windowMask
		src = (src + 1) & windowMask
	}
	w.used += length
	w.total += int64(length)
}

// writeSlice returns the contiguous writable region at the write cursor,
// bounded by free space and the wrap point. Used by stored-block
// passthrough to read directly into the window.
func (w *window) writeSlice() []byte {
	n := w.free()
	if n > windowSize-w.wr {
		n = windowSize - w.wr
	}
	return w.hist[w.wr : w.wr+n]
}

// writeMark records n bytes written into the slice returned by writeSlice.
func (w *window) writeMark(n int) {
	w.wr = (w.wr + n) & windowMask
	w.used += n
	w.total += int64(n)
}

// drain copies up to len(p) available bytes, oldest first, out of the
// window and returns the number copied.
func (w *window) drain(p []byte) int {
	n := w.used
	if n > len(p) {
		n = len(p)
	}
	if n == 0 {
		return 0
	}
	start := (w.wr - w.used) & windowMask
	c := copy(p[:n], w.hist[start:min(windowSize, start+n)])
	if c < n {
		copy(p[c:n], w.hist[:n-c])
	}
	w.used -= n
	return n
}
