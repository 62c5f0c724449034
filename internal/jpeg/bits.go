package jpeg

import (
	"errors"
	"fmt"
)

// decodeError is raised with panic inside the entropy decoder and recovered
// at scan level.
type decodeError struct{ error }

var errShortData = errors.New("jpeg: entropy coded data ends early")

func fail(format string, args ...any) {
	panic(decodeError{fmt.Errorf("%w: "+format, append([]any{ErrFormat}, args...)...)})
}

// bitReader reads entropy coded data, removing stuffed zero bytes. It stops
// in front of the first marker and never consumes it.
type bitReader struct {
	data   []byte
	pos    int
	acc    uint32
	n      int  // valid bits in acc
	marker bool // a marker or the end of data was reached
}

func (r *bitReader) fill() {
	for r.n <= 24 && !r.marker {
		if r.pos >= len(r.data) {
			r.marker = true
			return
		}
		b := r.data[r.pos]
		if b == 0xFF {
			if r.pos+1 >= len(r.data) || r.data[r.pos+1] != 0 {
				r.marker = true
				return
			}
			r.pos += 2
		} else {
			r.pos++
		}
		r.acc = r.acc<<8 | uint32(b)
		r.n += 8
	}
}

func (r *bitReader) bit() int {
	if r.n == 0 {
		r.fill()
		if r.n == 0 {
			panic(decodeError{errShortData})
		}
	}
	r.n--
	return int(r.acc>>uint(r.n)) & 1
}

func (r *bitReader) bits(count int) int {
	if count == 0 {
		return 0
	}
	if r.n < count {
		r.fill()
		if r.n < count {
			panic(decodeError{errShortData})
		}
	}
	r.n -= count
	return int(r.acc>>uint(r.n)) & (1<<uint(count) - 1)
}

// receiveExtend reads an s-bit magnitude and extends its sign (F.2.2.1).
func (r *bitReader) receiveExtend(s int) int {
	if s == 0 {
		return 0
	}
	if s > 16 {
		fail("magnitude category %d", s)
	}
	v := r.bits(s)
	if v < 1<<uint(s-1) {
		v -= 1<<uint(s) - 1
	}
	return v
}

func (r *bitReader) decodeHuffman(h *huffTable) byte {
	if r.n < 8 {
		r.fill()
	}
	if r.n >= 8 {
		if e := h.lookup[(r.acc>>uint(r.n-8))&0xFF]; e != 0 {
			r.n -= int(e & 0xFF)
			return byte(e >> 8)
		}
	}
	code := int32(0)
	for l := 1; l <= 16; l++ {
		code = code<<1 | int32(r.bit())
		if code <= h.maxCode[l] {
			return h.values[h.valPtr[l]+code-h.minCode[l]]
		}
	}
	fail("bad Huffman code")
	return 0
}

// restart drops the buffered bits and consumes the RSTn marker that should
// follow. It returns the marker found and whether it was a restart marker;
// any other marker is left in place for the marker parser.
func (r *bitReader) restart() (byte, bool) {
	r.acc, r.n = 0, 0
	for i := r.pos; i+1 < len(r.data); i++ {
		if r.data[i] != 0xFF {
			continue
		}
		m := r.data[i+1]
		if m == 0 || m == 0xFF {
			continue
		}
		if m >= markerRST0 && m <= markerRST7 {
			r.pos = i + 2
			r.marker = false
			return m, true
		}
		r.pos = i
		r.marker = true
		return m, false
	}
	r.pos = len(r.data)
	r.marker = true
	return 0, false
}
