package fax

import "fmt"

var modeEncode = buildRunEncoder(modeCodes)

type bitWriter struct {
	buf  []byte
	acc  uint32
	nacc int
	n    int // bits written
}

func (w *bitWriter) put(code uint32, bits int) {
	for i := bits - 1; i >= 0; i-- {
		w.acc = w.acc<<1 | (code>>uint(i))&1
		w.nacc++
		w.n++
		if w.nacc == 8 {
			w.buf = append(w.buf, byte(w.acc))
			w.acc, w.nacc = 0, 0
		}
	}
}

func (w *bitWriter) putCode(c runCode) { w.put(uint32(c.code), int(c.bits)) }

func (w *bitWriter) align() {
	if w.nacc != 0 {
		w.put(0, 8-w.nacc)
	}
}

func (w *bitWriter) eol() { w.put(codeEOL, 12) }

func (w *bitWriter) putRun(run int, white bool) {
	codes := blackEncode
	if white {
		codes = whiteEncode
	}
	for run >= 2560 {
		w.putCode(codes[2560])
		run -= 2560
	}
	if run >= 64 {
		w.putCode(codes[run/64*64])
		run %= 64
	}
	w.putCode(codes[run])
}

// Encode compresses a bi-level image laid out the way Decoder emits it: rows
// of p.RowBytes() bytes, 1 bits white unless p.BlackIs1. K < 0 produces
// Group 4 data, K = 0 one-dimensional Group 3 data and K > 0 mixed data with
// every K-th row coded one-dimensionally. EndOfLine, EncodedByteAlign and
// EndOfBlock are honoured. When p.Rows is 0 the row count is taken from the
// length of img.
func Encode(img []byte, p Params) ([]byte, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	stride := p.RowBytes()
	rows := p.Rows
	if rows == 0 {
		rows = len(img) / stride
	}
	if len(img) < rows*stride {
		return nil, fmt.Errorf("ccitt: image holds %d bytes, need %d", len(img), rows*stride)
	}

	cols := p.Columns
	ref := make([]byte, stride)
	for i := range ref {
		ref[i] = 0xFF
	}
	cur := make([]byte, stride)

	w := &bitWriter{}
	for y := 0; y < rows; y++ {
		copy(cur, img[y*stride:(y+1)*stride])
		if p.BlackIs1 {
			for i := range cur {
				cur[i] ^= 0xFF
			}
		}

		if p.EndOfLine {
			if p.EncodedByteAlign {
				// fill so that the EOL ends on a byte boundary
				w.put(0, (4-w.n%8+8)%8)
			}
			w.eol()
		}
		twoD := p.K < 0 || (p.K > 0 && y%p.K != 0)
		if p.K > 0 {
			if twoD {
				w.put(0, 1)
			} else {
				w.put(1, 1)
			}
		}

		if twoD {
			encode2D(w, cur, ref, cols)
		} else {
			encode1D(w, cur, cols)
		}
		if p.EncodedByteAlign && !p.EndOfLine {
			w.align()
		}
		cur, ref = ref, cur
	}

	if p.EndOfBlock {
		if p.EncodedByteAlign && !p.EndOfLine {
			w.align()
		}
		n := 6
		if p.K < 0 {
			n = 2
		}
		for i := 0; i < n; i++ {
			w.eol()
			if p.K > 0 {
				w.put(1, 1)
			}
		}
	}
	w.align()
	return w.buf, nil
}

func encode1D(w *bitWriter, row []byte, cols int) {
	white := true
	for pos := 0; pos < cols; {
		next := findBit(row, cols, pos, !white)
		w.putRun(next-pos, white)
		pos = next
		white = !white
	}
}

func pixel(row []byte, x int) bool {
	if x < 0 {
		return true
	}
	return row[x/8]&(0x80>>uint(x%8)) != 0
}

// changingElements returns b1 and b2 on the reference row for a0 and its colour.
func changingElements(ref []byte, cols, a0 int, white bool) (int, int) {
	start := a0 + 1
	if pixel(ref, start-1) != white {
		start = findBit(ref, cols, start, white)
	}
	b1 := findBit(ref, cols, start, !white)
	if b1 >= cols {
		return cols, cols
	}
	return b1, findBit(ref, cols, b1+1, white)
}

func encode2D(w *bitWriter, cur, ref []byte, cols int) {
	a0, white := -1, true
	for a0 < cols {
		a1 := findBit(cur, cols, a0+1, !white)
		b1, b2 := changingElements(ref, cols, a0, white)

		switch delta := a1 - b1; {
		case b2 < a1:
			w.putCode(modeEncode[modePass])
			a0 = b2
		case delta >= -3 && delta <= 3:
			w.putCode(modeEncode[verticalMode(delta)])
			a0 = a1
			white = !white
		default:
			a2 := findBit(cur, cols, a1+1, white)
			w.putCode(modeEncode[modeHoriz])
			w.putRun(a1-max(a0, 0), white)
			w.putRun(a2-a1, !white)
			a0 = a2
		}
	}
}

func verticalMode(delta int) int {
	for mode, d := range modeDelta {
		if d == delta && mode != modePass && mode != modeHoriz {
			return mode
		}
	}
	return modeV0
}
