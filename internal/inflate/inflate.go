// Copyright 2026 Lemon4ksan. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package inflate decompresses raw DEFLATE and DEFLATE64 streams.
//
// The decoder is an explicit state machine: each step advances one block
// header, code table, symbol run or stored chunk, suspending whenever the
// input runs dry or the output window fills, so partial reads never force
// a re-parse. Decoded literals and back-references feed the sliding window
// in window.go; Read drains it.
package inflate

import (
	"bufio"
	"io"
	"math/bits"
	"strconv"
	"sync"
)

// Format selects the codec variant. Deflate64 extends the length code 285
// to 16 extra bits (lengths up to 65538) and adds the distance codes 30
// and 31 (distances up to 65536).
type Format int

const (
	Deflate Format = iota
	Deflate64
)

const (
	maxCodeLen     = 16  // longest Huffman code
	maxNumLit      = 286 // literal/length alphabet size
	maxNumDist     = 30  // distance alphabet size, deflate
	maxNumDist64   = 32  // distance alphabet size, deflate64
	numCodes       = 19  // code-length alphabet size
	endBlockMarker = 256
)

// CorruptInputError reports corrupted compressed input at the given
// compressed byte offset.
type CorruptInputError int64

func (e CorruptInputError) Error() string {
	return "inflate: corrupt input before offset " + strconv.FormatInt(int64(e), 10)
}

// InternalError reports a bug in the decoder itself.
type InternalError string

func (e InternalError) Error() string { return "inflate: internal error: " + string(e) }

// Reader is the input interface the decoder consumes. Sources that do not
// implement io.ByteReader are wrapped in a bufio.Reader.
type Reader interface {
	io.Reader
	io.ByteReader
}

// Huffman decoding uses a two-level chunk table: a direct table for codes
// up to huffmanChunkBits long, with overflow links for longer codes.
const (
	huffmanChunkBits  = 9
	huffmanNumChunks  = 1 << huffmanChunkBits
	huffmanCountMask  = 15
	huffmanValueShift = 4
)

type huffmanDecoder struct {
	min      int
	chunks   [huffmanNumChunks]uint32
	links    [][]uint32
	linkMask uint32
}

// init builds the decoding tables from a set of code lengths. Returns false
// if the lengths do not describe a valid prefix code.
func (h *huffmanDecoder) init(lengths []int) bool {
	if h.min != 0 {
		*h = huffmanDecoder{}
	}

	var count [maxCodeLen]int
	var min, max int
	for _, n := range lengths {
		if n == 0 {
			continue
		}
		if min == 0 || n < min {
			min = n
		}
		if n > max {
			max = n
		}
		count[n]++
	}

	if max == 0 {
		return true
	}

	code := 0
	var nextcode [maxCodeLen]int
	for i := min; i <= max; i++ {
		code <<= 1
		nextcode[i] = code
		code += count[i]
	}

	// The code must be exactly full, except for the degenerate single-code
	// case some encoders emit.
	if code != 1<<uint(max) && !(code == 1 && max == 1) {
		return false
	}

	h.min = min
	if max > huffmanChunkBits {
		numLinks := 1 << (uint(max) - huffmanChunkBits)
		h.linkMask = uint32(numLinks - 1)

		link := nextcode[huffmanChunkBits+1] >> 1
		h.links = make([][]uint32, huffmanNumChunks-link)
		for j := uint(link); j < huffmanNumChunks; j++ {
			reverse := int(bits.Reverse16(uint16(j)))
			reverse >>= uint(16 - huffmanChunkBits)
			off := j - uint(link)
			h.chunks[reverse] = uint32(off<<huffmanValueShift | (huffmanChunkBits + 1))
			h.links[off] = make([]uint32, numLinks)
		}
	}

	for i, n := range lengths {
		if n == 0 {
			continue
		}
		code := nextcode[n]
		nextcode[n]++
		chunk := uint32(i<<huffmanValueShift | n)
		reverse := int(bits.Reverse16(uint16(code)))
		reverse >>= uint(16 - n)
		if n <= huffmanChunkBits {
			for off := reverse; off < len(h.chunks); off += 1 << uint(n) {
				h.chunks[off] = chunk
			}
		} else {
			j := reverse & (huffmanNumChunks - 1)
			value := h.chunks[j] >> huffmanValueShift
			linktab := h.links[value]
			reverse >>= huffmanChunkBits
			for off := reverse; off < len(linktab); off += 1 << uint(n-huffmanChunkBits) {
				linktab[off] = chunk
			}
		}
	}

	return true
}

var fixedOnce sync.Once
var fixedLitDecoder huffmanDecoder

func fixedLitDecoderInit() {
	fixedOnce.Do(func() {
		// Fixed literal/length code per RFC 1951 section 3.2.6, shared by
		// deflate and deflate64.
		var lengths [288]int
		for i := 0; i < 144; i++ {
			lengths[i] = 8
		}
		for i := 144; i < 256; i++ {
			lengths[i] = 9
		}
		for i := 256; i < 280; i++ {
			lengths[i] = 7
		}
		for i := 280; i < 288; i++ {
			lengths[i] = 8
		}
		fixedLitDecoder.init(lengths[:])
	})
}

var codeOrder = [...]int{16, 17, 18, 0, 8, 7, 9, 6, 10, 5, 11, 4, 12, 3, 13, 2, 14, 1, 15}

type decompressor struct {
	format Format

	// Input source and compressed offset (for error reporting).
	r       Reader
	rBuf    *bufio.Reader
	roffset int64

	// Input bits, in top of b.
	b  uint32
	nb uint

	// Huffman decoders for literal/length and distance codes.
	h1, h2 huffmanDecoder

	// Length arrays used to define the dynamic Huffman codes.
	bits     *[maxNumLit + maxNumDist64]int
	codebits *[numCodes]int

	// Output sliding window.
	win window

	// Temporary buffer for stored-block headers.
	buf [4]byte

	// Next step in the decompression, and step-internal state.
	step      func(*decompressor)
	stepState int
	final     bool
	err       error
	hl, hd    *huffmanDecoder
	copyLen   int
	copyDist  int
}

// NewReader returns an io.ReadCloser producing the uncompressed form of
// the raw stream r. Close reports any error left behind by decoding; it
// does not close r.
func NewReader(r io.Reader, format Format) io.ReadCloser {
	fixedLitDecoderInit()

	f := &decompressor{format: format}
	f.makeReader(r)
	f.bits = new([maxNumLit + maxNumDist64]int)
	f.codebits = new([numCodes]int)
	f.step = (*decompressor).nextBlock
	f.win.init()
	return f
}

func (f *decompressor) makeReader(r io.Reader) {
	if rr, ok := r.(Reader); ok {
		f.r = rr
		return
	}
	f.rBuf = bufio.NewReader(r)
	f.r = f.rBuf
}

func (f *decompressor) maxDistCodes() int {
	if f.format == Deflate64 {
		return maxNumDist64
	}
	return maxNumDist
}

func (f *decompressor) maxMatchDist() int {
	if f.format == Deflate64 {
		return 1 << 16
	}
	return 1 << 15
}

func (f *decompressor) Read(p []byte) (int, error) {
	for {
		if f.win.available() > 0 {
			n := f.win.drain(p)
			if f.win.available() == 0 && f.err != nil {
				return n, f.err
			}
			return n, nil
		}
		if f.err != nil {
			return 0, f.err
		}
		f.step(f)
	}
}

func (f *decompressor) Close() error {
	if f.err == io.EOF {
		return nil
	}
	return f.err
}

func (f *decompressor) nextBlock() {
	for f.nb < 1+2 {
		if f.err = f.moreBits(); f.err != nil {
			return
		}
	}
	f.final = f.b&1 == 1
	f.b >>= 1
	typ := f.b & 3
	f.b >>= 2
	f.nb -= 1 + 2
	switch typ {
	case 0:
		f.dataBlock()
	case 1:
		f.hl = &fixedLitDecoder
		f.hd = nil
		f.huffmanBlock()
	case 2:
		if f.err = f.readHuffman(); f.err != nil {
			break
		}
		f.hl = &f.h1
		f.hd = &f.h2
		f.huffmanBlock()
	default:
		f.err = CorruptInputError(f.roffset)
	}
}

// readHuffman parses the dynamic code table header of a type-2 block and
// builds the literal/length and distance decoders.
func (f *decompressor) readHuffman() error {
	for f.nb < 5+5+4 {
		if err := f.moreBits(); err != nil {
			return err
		}
	}
	nlit := int(f.b&0x1F) + 257
	if nlit > maxNumLit {
		return CorruptInputError(f.roffset)
	}
	f.b >>= 5
	ndist := int(f.b&0x1F) + 1
	if ndist > f.maxDistCodes() {
		return CorruptInputError(f.roffset)
	}
	f.b >>= 5
	nclen := int(f.b&0xF) + 4
	f.b >>= 4
	f.nb -= 5 + 5 + 4

	for i := 0; i < nclen; i++ {
		for f.nb < 3 {
			if err := f.moreBits(); err != nil {
				return err
			}
		}
		f.codebits[codeOrder[i]] = int(f.b & 0x7)
		f.b >>= 3
		f.nb -= 3
	}
	for i := nclen; i < len(codeOrder); i++ {
		f.codebits[codeOrder[i]] = 0
	}
	if !f.h1.init(f.codebits[0:]) {
		return CorruptInputError(f.roffset)
	}

	for i, n := 0, nlit+ndist; i < n; {
		x, err := f.huffSym(&f.h1)
		if err != nil {
			return err
		}
		if x < 16 {
			f.bits[i] = x
			i++
			continue
		}
		var rep int
		var nb uint
		var b int
		switch x {
		default:
			return InternalError("unexpected length code")
		case 16:
			rep = 3
			nb = 2
			if i == 0 {
				return CorruptInputError(f.roffset)
			}
			b = f.bits[i-1]
		case 17:
			rep = 3
			nb = 3
			b = 0
		case 18:
			rep = 11
			nb = 7
			b = 0
		}
		for f.nb < nb {
			if err := f.moreBits(); err != nil {
				return err
			}
		}
		rep += int(f.b & uint32(1<<nb-1))
		f.b >>= nb
		f.nb -= nb
		if i+rep > n {
			return CorruptInputError(f.roffset)
		}
		for j := 0; j < rep; j++ {
			f.bits[i] = b
			i++
		}
	}

	if !f.h1.init(f.bits[0:nlit]) || !f.h2.init(f.bits[nlit:nlit+ndist]) {
		return CorruptInputError(f.roffset)
	}

	if f.h1.min < f.bits[endBlockMarker] {
		f.h1.min = f.bits[endBlockMarker]
	}

	return nil
}

// huffmanBlock decodes the symbol run of a compressed block, emitting
// literals and back-references into the window. It suspends whenever the
// window fills, resuming either at the next symbol or mid-copy.
func (f *decompressor) huffmanBlock() {
	const (
		stateInit = iota
		stateCopy
	)

	switch f.stepState {
	case stateInit:
		goto readLiteral
	case stateCopy:
		goto copyHistory
	}

readLiteral:
	{
		v, err := f.huffSym(f.hl)
		if err != nil {
			f.err = err
			return
		}
		var n uint
		var length int
		switch {
		case v < 256:
			f.win.writeByte(byte(v))
			if f.win.free() == 0 {
				f.step = (*decompressor).huffmanBlock
				f.stepState = stateInit
				return
			}
			goto readLiteral
		case v == 256:
			f.finishBlock()
			return
		case v < 265:
			length = v - (257 - 3)
			n = 0
		case v < 269:
			length = v*2 - (265*2 - 11)
			n = 1
		case v < 273:
			length = v*4 - (269*4 - 19)
			n = 2
		case v < 277:
			length = v*8 - (273*8 - 35)
			n = 3
		case v < 281:
			length = v*16 - (277*16 - 67)
			n = 4
		case v < 285:
			length = v*32 - (281*32 - 131)
			n = 5
		case v < maxNumLit:
			// Code 285: fixed length 258 in deflate; in deflate64 it is an
			// escape with base 3 and 16 extra bits, for lengths up to 65538.
			if f.format == Deflate64 {
				length = 3
				n = 16
			} else {
				length = 258
				n = 0
			}
		default:
			f.err = CorruptInputError(f.roffset)
			return
		}
		if n > 0 {
			for f.nb < n {
				if err = f.moreBits(); err != nil {
					f.err = err
					return
				}
			}
			length += int(f.b & uint32(1<<n-1))
			f.b >>= n
			f.nb -= n
		}

		var dist int
		if f.hd == nil {
			// Fixed distance codes are plain 5-bit values, bit-reversed.
			for f.nb < 5 {
				if err = f.moreBits(); err != nil {
					f.err = err
					return
				}
			}
			dist = int(bits.Reverse8(uint8(f.b & 0x1F << 3)))
			f.b >>= 5
			f.nb -= 5
		} else {
			if dist, err = f.huffSym(f.hd); err != nil {
				f.err = err
				return
			}
		}

		switch {
		case dist < 4:
			dist++
		case dist < f.maxDistCodes():
			nb := uint(dist-2) >> 1
			extra := (dist & 1) << nb
			for f.nb < nb {
				if err = f.moreBits(); err != nil {
					f.err = err
					return
				}
			}
			extra |= int(f.b & uint32(1<<nb-1))
			f.b >>= nb
			f.nb -= nb
			dist = 1<<(nb+1) + 1 + extra
		default:
			f.err = CorruptInputError(f.roffset)
			return
		}

		if dist > f.maxMatchDist() || dist > f.win.histSize() {
			f.err = CorruptInputError(f.roffset)
			return
		}

		f.copyLen, f.copyDist = length, dist
		goto copyHistory
	}

copyHistory:
	{
		// Emit no more than the window's free space in one step; a token
		// longer than that resumes here after a drain. The copy distance
		// stays valid across the split because the source advances with
		// the write cursor.
		cnt := f.copyLen
		if free := f.win.free(); cnt > free {
			cnt = free
		}
		f.win.writeCopy(f.copyDist, cnt)
		f.copyLen -= cnt

		if f.copyLen > 0 {
			f.step = (*decompressor).huffmanBlock
			f.stepState = stateCopy
			return
		}
		f.stepState = stateInit
		if f.win.free() == 0 {
			f.step = (*decompressor).huffmanBlock
			return
		}
		goto readLiteral
	}
}

// dataBlock begins a stored (uncompressed) block: discard unused bits,
// validate the length/complement header, then pass bytes through.
func (f *decompressor) dataBlock() {
	f.nb = 0
	f.b = 0

	nr, err := io.ReadFull(f.r, f.buf[0:4])
	f.roffset += int64(nr)
	if err != nil {
		f.err = noEOF(err)
		return
	}
	n := int(f.buf[0]) | int(f.buf[1])<<8
	nn := int(f.buf[2]) | int(f.buf[3])<<8
	if uint16(nn) != uint16(^n) {
		f.err = CorruptInputError(f.roffset)
		return
	}

	if n == 0 {
		f.finishBlock()
		return
	}

	f.copyLen = n
	f.copyData()
}

// copyData reads the body of a stored block directly into the window,
// suspending when the window fills.
func (f *decompressor) copyData() {
	buf := f.win.writeSlice()
	if len(buf) > f.copyLen {
		buf = buf[:f.copyLen]
	}

	cnt, err := io.ReadFull(f.r, buf)
	f.roffset += int64(cnt)
	f.copyLen -= cnt
	f.win.writeMark(cnt)
	if err != nil {
		f.err = noEOF(err)
		return
	}

	if f.copyLen > 0 {
		f.step = (*decompressor).copyData
		return
	}
	f.finishBlock()
}

func (f *decompressor) finishBlock() {
	if f.final {
		f.err = io.EOF
		return
	}
	f.step = (*decompressor).nextBlock
}

func (f *decompressor) moreBits() error {
	c, err := f.r.ReadByte()
	if err != nil {
		return noEOF(err)
	}
	f.roffset++
	f.b |= uint32(c) << f.nb
	f.nb += 8
	return nil
}

// huffSym reads enough bits to decode one symbol with h.
func (f *decompressor) huffSym(h *huffmanDecoder) (int, error) {
	n := uint(h.min)
	nb, b := f.nb, f.b
	for {
		for nb < n {
			c, err := f.r.ReadByte()
			if err != nil {
				f.b = b
				f.nb = nb
				return 0, noEOF(err)
			}
			f.roffset++
			b |= uint32(c) << (nb & 31)
			nb += 8
		}
		chunk := h.chunks[b&(huffmanNumChunks-1)]
		n = uint(chunk & huffmanCountMask)
		if n > huffmanChunkBits {
			chunk = h.links[chunk>>huffmanValueShift][(b>>huffmanChunkBits)&h.linkMask]
			n = uint(chunk & huffmanCountMask)
		}
		if n <= nb {
			if n == 0 {
				f.b = b
				f.nb = nb
				f.err = CorruptInputError(f.roffset)
				return 0, f.err
			}
			f.b = b >> (n & 31)
			f.nb = nb - n
			return int(chunk >> huffmanValueShift), nil
		}
	}
}

func noEOF(e error) error {
	if e == io.EOF {
		return io.ErrUnexpectedEOF
	}
	return e
}
