// Package fax decodes CCITT Group 3 and Group 4 facsimile data as found in
// CCITTFaxDecode streams and JBIG2 MMR regions.
package fax

import (
	"errors"
	"io"
	"log/slog"

	"github.com/jdeng/pdfstream/internal/stream"
)

const (
	codeEOF = -1
	codeEOL = 0x001
)

// Option configures a Decoder.
type Option func(*Decoder)

// WithLogger routes diagnostics about damaged data to l.
func WithLogger(l *slog.Logger) Option {
	return func(d *Decoder) {
		if l != nil {
			d.log = l
		}
	}
}

// Decoder reads CCITT encoded rows from a byte source. Damaged or truncated
// data never produces an error: decoding stops, the row being decoded is
// completed with white pixels and Err reports true.
type Decoder struct {
	src io.ByteReader
	p   Params
	log *slog.Logger

	inputBuf  uint64
	inputBits int

	codingLine []int
	refLine    []int
	a0i        int

	nextLine2D bool
	resynced   bool
	started    bool
	eof        bool
	done       bool
	err        bool
	damaged    int
	rows       int

	row    []byte
	rowPos int
}

// NewDecoder prepares a decoder over src. Only invalid parameters fail.
func NewDecoder(src io.ByteReader, p Params, opts ...Option) (*Decoder, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	d := &Decoder{
		src:        src,
		p:          p,
		log:        slog.New(slog.NewTextHandler(io.Discard, nil)),
		codingLine: make([]int, p.Columns+1),
		refLine:    make([]int, p.Columns+2),
		nextLine2D: p.K < 0,
		rowPos:     -1,
	}
	d.codingLine[0] = p.Columns
	for _, opt := range opts {
		opt(d)
	}
	return d, nil
}

// Params returns the decoding parameters.
func (d *Decoder) Params() Params { return d.p }

// RowBytes returns the size of one output row.
func (d *Decoder) RowBytes() int { return d.p.RowBytes() }

// Rows returns the number of rows emitted so far.
func (d *Decoder) Rows() int { return d.rows }

// Err reports whether damaged or truncated data was encountered.
func (d *Decoder) Err() bool { return d.err }

// Done reports whether the last row has been emitted.
func (d *Decoder) Done() bool { return d.done }

func (d *Decoder) lookBits(n int) int {
	for d.inputBits < n {
		c, err := d.src.ReadByte()
		if err != nil {
			if !errors.Is(err, io.EOF) {
				d.log.Warn("ccitt: source read failed", slog.Any("err", err))
			}
			if d.inputBits == 0 {
				return codeEOF
			}
			// pad the remaining bits with zeros
			return int((d.inputBuf << uint(n-d.inputBits)) & (1<<uint(n) - 1))
		}
		d.inputBuf = d.inputBuf<<8 | uint64(c)
		d.inputBits += 8
	}
	return int((d.inputBuf >> uint(d.inputBits-n)) & (1<<uint(n) - 1))
}

func (d *Decoder) eatBits(n int) {
	d.inputBits -= n
	if d.inputBits < 0 {
		d.inputBits = 0
	}
}

type lookup int

const (
	found lookup = iota
	exhausted
	invalid
)

// readCode matches the next code against a length-grouped code table.
func (d *Decoder) readCode(table []byte) (int, lookup) {
	off := 0
	for n := 1; table[off] != 0xff; n++ {
		count := int(table[off])
		off++
		if count == 0 {
			continue
		}
		code := d.lookBits(n)
		if code == codeEOF {
			return 0, exhausted
		}
		for i := 0; i < count; i, off = i+1, off+3 {
			if int(table[off]) == code {
				d.eatBits(n)
				return int(table[off+1]) | int(table[off+2])<<8, found
			}
		}
	}
	return 0, invalid
}

// readRun reads a complete run: make-up codes followed by a terminating code.
func (d *Decoder) readRun(black bool) (int, lookup) {
	table := whiteRunCodes
	if black {
		table = blackRunCodes
	}
	total := 0
	for {
		run, res := d.readCode(table)
		if res != found {
			return total, res
		}
		total += run
		if run < 64 {
			return total, found
		}
	}
}

func (d *Decoder) addPixels(a1, blackPixels int) {
	if a1 > d.codingLine[d.a0i] {
		if a1 > d.p.Columns {
			d.log.Debug("ccitt: row is wrong length", slog.Int("row", d.rows), slog.Int("a1", a1))
			d.err = true
			a1 = d.p.Columns
		}
		if (d.a0i&1)^blackPixels != 0 {
			d.a0i++
		}
		d.codingLine[d.a0i] = a1
	}
}

func (d *Decoder) addPixelsNeg(a1, blackPixels int) {
	switch {
	case a1 > d.codingLine[d.a0i]:
		d.addPixels(a1, blackPixels)
	case a1 < d.codingLine[d.a0i]:
		if a1 < 0 {
			d.log.Debug("ccitt: invalid vertical code", slog.Int("row", d.rows))
			d.err = true
			a1 = 0
		}
		for d.a0i > 0 && a1 <= d.codingLine[d.a0i-1] {
			d.a0i--
		}
		d.codingLine[d.a0i] = a1
	}
}

// closeRow completes the current row with white pixels.
func (d *Decoder) closeRow() {
	d.addPixels(d.p.Columns, 0)
}

// damage records a decoding failure inside a row. With EOL codes present the
// decoder resynchronises on the next EOL; otherwise decoding stops.
func (d *Decoder) damage(what string, res lookup) {
	d.err = true
	d.closeRow()
	if res == exhausted {
		d.log.Debug("ccitt: data ends inside a row", slog.Int("row", d.rows))
		d.eof = true
		return
	}
	d.log.Debug("ccitt: bad code", slog.String("kind", what), slog.Int("row", d.rows))
	d.damaged++
	if !d.p.EndOfLine || d.damaged > d.p.DamagedRowsBeforeError {
		d.eof = true
		return
	}
	for {
		code := d.lookBits(13)
		if code == codeEOF {
			d.eof = true
			return
		}
		if code>>1 == codeEOL {
			d.eatBits(12)
			if d.p.K > 0 {
				d.nextLine2D = code&1 == 0
				d.eatBits(1)
			}
			d.resynced = true
			return
		}
		d.eatBits(1)
	}
}

func (d *Decoder) decode1D() {
	d.codingLine[0] = 0
	d.a0i = 0
	black := 0
	for d.codingLine[d.a0i] < d.p.Columns {
		run, res := d.readRun(black != 0)
		if res != found {
			d.damage("run", res)
			return
		}
		d.addPixels(d.codingLine[d.a0i]+run, black)
		black ^= 1
	}
}

func (d *Decoder) decode2D() {
	columns := d.p.Columns
	i := 0
	for ; i < columns && d.codingLine[i] < columns; i++ {
		d.refLine[i] = d.codingLine[i]
	}
	for ; i < columns+2; i++ {
		d.refLine[i] = columns
	}
	d.codingLine[0] = 0
	d.a0i = 0
	b1i, black := 0, 0

	// skip b1 forward past a0 onto a changing element of the right colour
	advance := func() bool {
		for d.refLine[b1i] <= d.codingLine[d.a0i] && d.refLine[b1i] < columns {
			b1i += 2
			if b1i > columns+1 {
				return false
			}
		}
		return true
	}

	for d.codingLine[d.a0i] < columns {
		mode, res := d.readCode(modeCodes)
		if res != found {
			d.damage("mode", res)
			return
		}
		switch mode {
		case modePass:
			if b1i+1 < columns+2 {
				d.addPixels(d.refLine[b1i+1], black)
				if d.refLine[b1i+1] < columns {
					b1i += 2
				}
			}
		case modeHoriz:
			run1, res := d.readRun(black != 0)
			if res != found {
				d.damage("run", res)
				return
			}
			run2, res := d.readRun(black == 0)
			if res != found {
				d.damage("run", res)
				return
			}
			d.addPixels(d.codingLine[d.a0i]+run1, black)
			if d.codingLine[d.a0i] < columns {
				d.addPixels(d.codingLine[d.a0i]+run2, black^1)
			}
			if !advance() {
				d.damage("horizontal", invalid)
				return
			}
		default:
			if b1i > columns+1 {
				d.damage("vertical", invalid)
				return
			}
			delta := modeDelta[mode]
			if delta >= 0 {
				d.addPixels(d.refLine[b1i]+delta, black)
			} else {
				d.addPixelsNeg(d.refLine[b1i]+delta, black)
			}
			black ^= 1
			if d.codingLine[d.a0i] < columns {
				if delta >= 0 || b1i == 0 {
					b1i++
				} else {
					b1i--
				}
				if !advance() {
					d.damage("vertical", invalid)
					return
				}
			}
		}
	}
}

func (d *Decoder) start() {
	d.started = true
	code := d.lookBits(12)
	for code == 0 {
		d.eatBits(1)
		code = d.lookBits(12)
	}
	if code == codeEOL {
		d.eatBits(12)
	}
	if d.p.K > 0 {
		d.nextLine2D = d.lookBits(1) == 0
		d.eatBits(1)
	}
}

// trailer consumes the end of a row: fill bits, EOL, alignment, the 1D/2D tag
// and the end-of-block sequence.
func (d *Decoder) trailer() {
	gotEOL := false
	if d.p.EncodedByteAlign && !d.p.EndOfLine {
		d.inputBits &^= 7
	}
	if d.p.EndOfLine || !d.p.EncodedByteAlign {
		code := d.lookBits(12)
		if d.p.EndOfLine {
			for code != codeEOF && code != codeEOL {
				d.eatBits(1)
				code = d.lookBits(12)
			}
		} else {
			for code == 0 {
				d.eatBits(1)
				code = d.lookBits(12)
			}
		}
		if code == codeEOL {
			d.eatBits(12)
			gotEOL = true
		}
	} else if d.p.EndOfBlock && d.lookBits(12) == codeEOL {
		// between aligned rows an EOL only starts the end-of-block sequence
		d.eatBits(12)
		gotEOL = true
	}
	if d.p.EncodedByteAlign && !gotEOL {
		d.inputBits &^= 7
	}

	if d.lookBits(1) == codeEOF {
		d.eof = true
		return
	}
	if d.p.K > 0 {
		d.nextLine2D = d.lookBits(1) == 0
		d.eatBits(1)
	}

	if d.p.EndOfBlock && gotEOL && d.lookBits(12) == codeEOL {
		d.eatBits(12)
		if d.p.K > 0 {
			d.eatBits(1)
		}
		if d.p.K >= 0 {
			for i := 0; i < 4; i++ {
				if d.lookBits(12) != codeEOL {
					d.log.Debug("ccitt: bad RTC code", slog.Int("row", d.rows))
					break
				}
				d.eatBits(12)
				if d.p.K > 0 {
					d.eatBits(1)
				}
			}
		}
		d.eof = true
	}
}

func (d *Decoder) finish() {
	if !d.done {
		d.done = true
		if d.rows == 0 || (d.p.Rows > 0 && d.rows < d.p.Rows) {
			d.err = true
		}
		d.log.Debug("ccitt: decoding finished", slog.Int("rows", d.rows), slog.Bool("err", d.err))
	}
}

// ReadRow decodes the next row into dst, which must hold RowBytes bytes.
// Pixels are packed MSB first, with 1 meaning white unless BlackIs1 is set;
// bits past the last column are 0 before that inversion. ReadRow returns
// false once no more rows follow.
func (d *Decoder) ReadRow(dst []byte) bool {
	if d.done {
		return false
	}
	if !d.started {
		d.start()
	}
	if d.eof || d.lookBits(1) == codeEOF {
		d.finish()
		return false
	}

	d.resynced = false
	if d.nextLine2D {
		d.decode2D()
	} else {
		d.decode1D()
	}
	switch {
	case d.p.Rows > 0 && d.rows+1 >= d.p.Rows:
		d.eof = true
	case !d.eof && !d.resynced:
		d.trailer()
	}

	d.emit(dst[:d.p.RowBytes()])
	d.rows++
	return true
}

func (d *Decoder) emit(dst []byte) {
	columns := d.p.Columns
	for i := range dst {
		dst[i] = 0xFF
	}
	for i := 0; i <= d.a0i && d.codingLine[i] < columns; i += 2 {
		clearBits(dst, columns, d.codingLine[i], d.codingLine[i+1])
	}
	if pad := columns % 8; pad != 0 {
		dst[len(dst)-1] &^= 0xFF >> uint(pad)
	}
	if d.p.BlackIs1 {
		for i := range dst {
			dst[i] ^= 0xFF
		}
	}
}

// ReadNextChar returns the next output byte, decoding rows as needed, or -1
// at the end of the image.
func (d *Decoder) ReadNextChar() int {
	if d.rowPos < 0 || d.rowPos >= len(d.row) {
		if d.row == nil {
			d.row = make([]byte, d.p.RowBytes())
		}
		if !d.ReadRow(d.row) {
			return -1
		}
		d.rowPos = 0
	}
	c := d.row[d.rowPos]
	d.rowPos++
	return int(c)
}

// ReadBlock implements stream.BlockDecoder, one row per block.
func (d *Decoder) ReadBlock(b *stream.Buffer) error {
	n := d.p.RowBytes()
	if !d.ReadRow(b.Grow(n)) {
		b.SetEOF()
		return nil
	}
	b.Commit(n)
	if d.eof {
		d.finish()
		b.SetEOF()
	}
	return nil
}
