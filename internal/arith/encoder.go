package arith

// Encoder is the matching QM-coder encoder. It is used to produce test data
// and fixtures; Flush terminates the data with the 0xFF 0xAC marker.
type Encoder struct {
	out []byte // out[len(out)-1] is the byte being assembled
	a   uint32
	c   uint32
	ct  int
}

// NewEncoder returns an encoder in the initial state.
func NewEncoder() *Encoder {
	// out[0] stands in for the byte preceding the data
	return &Encoder{out: []byte{0}, a: defaultAValue, ct: 12}
}

// Encode codes one decision with the context at cx[pos], updating it the
// same way Decoder.ReadBit does.
func (e *Encoder) Encode(cx Contexts, pos, bit int) {
	state := cx[pos]
	qe := qeTable[state>>1]
	mps := int(state & 1)

	e.a -= qe.qe
	if bit == mps {
		if e.a&defaultAValue != 0 {
			e.c += qe.qe
			return
		}
		if e.a < qe.qe {
			e.a = qe.qe
		} else {
			e.c += qe.qe
		}
		cx[pos] = qe.nmps<<1 | uint8(mps)
	} else {
		if e.a < qe.qe {
			e.c += qe.qe
		} else {
			e.a = qe.qe
		}
		if qe.switchM {
			mps = 1 - mps
		}
		cx[pos] = qe.nlps<<1 | uint8(mps)
	}
	e.renormalize()
}

func (e *Encoder) renormalize() {
	for {
		e.a <<= 1
		e.c <<= 1
		e.ct--
		if e.ct == 0 {
			e.byteOut()
		}
		if e.a&defaultAValue != 0 {
			return
		}
	}
}

func (e *Encoder) byteOut() {
	last := len(e.out) - 1
	if e.out[last] == 0xFF {
		e.out = append(e.out, byte(e.c>>20))
		e.c &= 0xFFFFF
		e.ct = 7
		return
	}
	if e.c >= 0x8000000 {
		// carry into the pending byte
		e.out[last]++
		if e.out[last] == 0xFF {
			e.c &= 0x7FFFFFF
			e.out = append(e.out, byte(e.c>>20))
			e.c &= 0xFFFFF
			e.ct = 7
			return
		}
	}
	e.out = append(e.out, byte(e.c>>19))
	e.c &= 0x7FFFF
	e.ct = 8
}

// Flush terminates the code stream and returns the encoded bytes.
func (e *Encoder) Flush() []byte {
	t := e.c + e.a
	e.c |= 0xFFFF
	if e.c >= t {
		e.c -= 0x8000
	}
	e.c <<= uint(e.ct)
	e.byteOut()
	e.c <<= uint(e.ct)
	e.byteOut()
	if e.out[len(e.out)-1] != 0xFF {
		e.out = append(e.out, 0xFF)
	}
	e.out = append(e.out, 0xAC)
	return e.out[1:]
}
