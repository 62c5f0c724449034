// Package arith implements the adaptive binary arithmetic decoder (QM-coder)
// used by JBIG2 and JPEG 2000 data in PDF files, together with the integer
// decoding procedures built on top of it.
package arith

const defaultAValue = 0x8000

// qeEntry is one row of the probability estimation state machine.
type qeEntry struct {
	qe      uint32
	nmps    uint8
	nlps    uint8
	switchM bool
}

var qeTable = [...]qeEntry{
	{0x5601, 1, 1, true}, {0x3401, 2, 6, false}, {0x1801, 3, 9, false},
	{0x0AC1, 4, 12, false}, {0x0521, 5, 29, false}, {0x0221, 38, 33, false},
	{0x5601, 7, 6, true}, {0x5401, 8, 14, false}, {0x4801, 9, 14, false},
	{0x3801, 10, 14, false}, {0x3001, 11, 17, false}, {0x2401, 12, 18, false},
	{0x1C01, 13, 20, false}, {0x1601, 29, 21, false}, {0x5601, 15, 14, true},
	{0x5401, 16, 14, false}, {0x5101, 17, 15, false}, {0x4801, 18, 16, false},
	{0x3801, 19, 17, false}, {0x3401, 20, 18, false}, {0x3001, 21, 19, false},
	{0x2801, 22, 19, false}, {0x2401, 23, 20, false}, {0x2201, 24, 21, false},
	{0x1C01, 25, 22, false}, {0x1801, 26, 23, false}, {0x1601, 27, 24, false},
	{0x1401, 28, 25, false}, {0x1201, 29, 26, false}, {0x1101, 30, 27, false},
	{0x0AC1, 31, 28, false}, {0x09C1, 32, 29, false}, {0x08A1, 33, 30, false},
	{0x0521, 34, 31, false}, {0x0441, 35, 32, false}, {0x02A1, 36, 33, false},
	{0x0221, 37, 34, false}, {0x0141, 38, 35, false}, {0x0111, 39, 36, false},
	{0x0085, 40, 37, false}, {0x0049, 41, 38, false}, {0x0025, 42, 39, false},
	{0x0015, 43, 40, false}, {0x0009, 44, 41, false}, {0x0005, 45, 42, false},
	{0x0001, 45, 43, false}, {0x5601, 46, 46, false},
}

// NumStates is the number of probability states of the QM-coder.
const NumStates = len(qeTable)

// Decoder holds the register state of the arithmetic decoder. The code
// register is split into a high and a low 16-bit half.
type Decoder struct {
	data  []byte
	bp    int
	end   int
	chigh uint32
	clow  uint32
	ct    int
	a     uint32
}

// New initialises a decoder over data[start:end]. Bytes at or beyond end read
// as 0xFF, so a truncated segment decodes deterministically instead of failing.
func New(data []byte, start, end int) *Decoder {
	if end > len(data) {
		end = len(data)
	}
	if start < 0 {
		start = 0
	}
	d := &Decoder{data: data, bp: start, end: end}
	d.chigh = uint32(d.byteAt(start))
	d.byteIn()
	d.chigh = ((d.chigh << 7) & 0xFFFF) | ((d.clow >> 9) & 0x7F)
	d.clow = (d.clow << 7) & 0xFFFF
	d.ct -= 7
	d.a = defaultAValue
	return d
}

func (d *Decoder) byteAt(i int) byte {
	if i < d.end {
		return d.data[i]
	}
	return 0xFF
}

func (d *Decoder) byteIn() {
	if d.byteAt(d.bp) == 0xFF {
		if d.byteAt(d.bp+1) > 0x8F {
			// marker: feed 1-bits without advancing
			d.clow += 0xFF00
			d.ct = 8
		} else {
			d.bp++
			d.clow += uint32(d.byteAt(d.bp)) << 9
			d.ct = 7
		}
	} else {
		d.bp++
		d.clow += uint32(d.byteAt(d.bp)) << 8
		d.ct = 8
	}
	if d.clow > 0xFFFF {
		d.chigh += d.clow >> 16
		d.clow &= 0xFFFF
	}
}

// ReadBit decodes one binary decision using the context at cx[pos] and
// updates that context in place.
func (d *Decoder) ReadBit(cx Contexts, pos int) int {
	state := cx[pos]
	qe := qeTable[state>>1]
	mps := int(state & 1)
	var bit int
	var next uint8

	d.a -= qe.qe
	if d.chigh < qe.qe {
		// LPS exchange
		if d.a < qe.qe {
			d.a = qe.qe
			bit = mps
			next = qe.nmps
		} else {
			d.a = qe.qe
			bit = 1 ^ mps
			if qe.switchM {
				mps = bit
			}
			next = qe.nlps
		}
	} else {
		d.chigh -= qe.qe
		if d.a&defaultAValue != 0 {
			return mps
		}
		// MPS exchange
		if d.a < qe.qe {
			bit = 1 ^ mps
			if qe.switchM {
				mps = bit
			}
			next = qe.nlps
		} else {
			bit = mps
			next = qe.nmps
		}
	}

	d.renormalize()
	cx[pos] = next<<1 | uint8(mps)
	return bit
}

func (d *Decoder) renormalize() {
	for {
		if d.ct == 0 {
			d.byteIn()
		}
		d.a = (d.a << 1) & 0xFFFF
		d.chigh = ((d.chigh << 1) & 0xFFFF) | ((d.clow >> 15) & 1)
		d.clow = (d.clow << 1) & 0xFFFF
		d.ct--
		if d.a&defaultAValue != 0 {
			return
		}
	}
}

// Position returns the offset of the byte currently being consumed.
func (d *Decoder) Position() int { return d.bp }
