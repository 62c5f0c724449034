// Package jbig2 decodes JBIG2 generic regions, the bi-level bitmaps coded
// either with the arithmetic decoder of package arith or as MMR data.
package jbig2

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/jdeng/pdfstream/internal/arith"
	"github.com/jdeng/pdfstream/internal/fax"
	"github.com/jdeng/pdfstream/internal/stream"
)

// RowsPerBlock is the number of rows a RegionDecoder adds per ReadBlock.
const RowsPerBlock = 16

// ErrInvalidRegion is wrapped by every region parameter failure.
var ErrInvalidRegion = errors.New("jbig2: invalid generic region")

// Point is an adaptive template pixel, relative to the pixel being decoded.
type Point struct {
	X, Y int
}

// GenericRegion holds the parameters of a generic region.
type GenericRegion struct {
	Width    int
	Height   int
	Template int // 0 to 3, ignored for MMR
	TPGDON   bool
	// AT holds the adaptive template pixels. Template 0 uses all four,
	// the other templates only the first.
	AT  [4]Point
	MMR bool
	// Skip, when set, marks pixels that are not coded and stay white.
	Skip *Bitmap
}

// DefaultAT returns the nominal adaptive template pixels of a template.
func DefaultAT(template int) [4]Point {
	switch template {
	case 0:
		return [4]Point{{3, -1}, {-3, -1}, {2, -2}, {-2, -2}}
	case 1:
		return [4]Point{{3, -1}}
	default:
		return [4]Point{{2, -1}}
	}
}

var (
	contextSize = [...]int{1 << 16, 1 << 13, 1 << 10, 1 << 10}
	// contexts that code the row-repeat flag
	tpgdContext = [...]int{0x9b25, 0x0795, 0x00e5, 0x0195}

	line1Shift = [...]uint{12, 9, 7}
	line1Mask  = [...]uint32{0x07, 0x0f, 0x07}
	line2Mask  = [...]uint32{0x1f, 0x1f, 0x0f}
	line3Mask  = [...]uint32{0x0f, 0x07, 0x03}
)

// Validate checks the region size, the template and that every adaptive
// pixel in use lies before the pixel being decoded.
func (g *GenericRegion) Validate() error {
	if !validSize(g.Width, g.Height) {
		return fmt.Errorf("%w: size %dx%d", ErrInvalidRegion, g.Width, g.Height)
	}
	if g.MMR {
		return nil
	}
	if g.Template < 0 || g.Template > 3 {
		return fmt.Errorf("%w: template %d", ErrInvalidRegion, g.Template)
	}
	n := 1
	if g.Template == 0 {
		n = 4
	}
	for i, p := range g.AT[:n] {
		if p.X < -128 || p.X > 127 || p.Y < -128 || p.Y > 0 || (p.Y == 0 && p.X >= 0) {
			return fmt.Errorf("%w: adaptive pixel %d at (%d,%d)", ErrInvalidRegion, i, p.X, p.Y)
		}
	}
	return nil
}

// Option configures a RegionDecoder.
type Option func(*RegionDecoder)

// WithLogger routes decoding diagnostics to l.
func WithLogger(l *slog.Logger) Option {
	return func(d *RegionDecoder) {
		if l != nil {
			d.log = l
		}
	}
}

// coder returns the next coded decision for context ctx. x is the pixel
// column, or -1 for the row-repeat flag.
type coder func(ctx, x int) int

// RegionDecoder decodes a generic region one row at a time. Data running
// out never fails: the arithmetic decoder reads 0xFF past the end and MMR
// rows that are missing stay white.
type RegionDecoder struct {
	r   GenericRegion
	bm  *Bitmap
	log *slog.Logger

	arith *arith.Decoder
	cx    arith.Contexts
	code  coder
	ltp   int

	mmr    *fax.Decoder
	mmrEnd bool

	row int
}

// NewDecoder prepares the decoding of data, the coded region.
func (g *GenericRegion) NewDecoder(data []byte, opts ...Option) (*RegionDecoder, error) {
	if err := g.Validate(); err != nil {
		return nil, err
	}
	d := &RegionDecoder{
		r:   *g,
		bm:  NewBitmap(g.Width, g.Height),
		log: slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(d)
	}
	if g.MMR {
		p := fax.Params{K: -1, Columns: g.Width, Rows: g.Height}
		mmr, err := fax.NewDecoder(bytes.NewReader(data), p, fax.WithLogger(d.log))
		if err != nil {
			return nil, fmt.Errorf("jbig2: MMR region: %w", err)
		}
		d.mmr = mmr
		return d, nil
	}
	d.arith = arith.New(data, 0, len(data))
	d.cx = arith.NewContexts(contextSize[g.Template])
	d.code = func(ctx, _ int) int { return d.arith.ReadBit(d.cx, ctx) }
	return d, nil
}

// Decode decodes the whole region.
func (g *GenericRegion) Decode(data []byte, opts ...Option) (*Bitmap, error) {
	d, err := g.NewDecoder(data, opts...)
	if err != nil {
		return nil, err
	}
	for d.DecodeRow() {
	}
	return d.Bitmap(), nil
}

// Bitmap returns the region bitmap; rows not yet decoded are white.
func (d *RegionDecoder) Bitmap() *Bitmap { return d.bm }

// Rows returns the number of rows decoded so far.
func (d *RegionDecoder) Rows() int { return d.row }

// Done reports whether every row has been decoded.
func (d *RegionDecoder) Done() bool { return d.row >= d.r.Height }

// DecodeRow decodes the next row. It returns false once the region is
// complete.
func (d *RegionDecoder) DecodeRow() bool {
	if d.Done() {
		return false
	}
	switch {
	case d.mmr != nil:
		d.decodeMMRRow()
	case d.r.Template == 3:
		d.decodeTemplate3Row()
	default:
		d.decodeTemplateRow()
	}
	d.row++
	return true
}

// ReadBlock implements stream.BlockDecoder with up to RowsPerBlock packed
// rows per call.
func (d *RegionDecoder) ReadBlock(b *stream.Buffer) error {
	for i := 0; i < RowsPerBlock; i++ {
		y := d.row
		if !d.DecodeRow() {
			break
		}
		b.Append(d.bm.Row(y))
	}
	if d.Done() {
		b.SetEOF()
	}
	return nil
}

func (d *RegionDecoder) decodeMMRRow() {
	row := d.bm.Row(d.row)
	if d.mmrEnd {
		return
	}
	if !d.mmr.ReadRow(row) {
		d.mmrEnd = true
		clear(row)
		d.log.Debug("jbig2: MMR data ended early", slog.Int("row", d.row), slog.Int("height", d.r.Height))
		return
	}
	// the fax decoder writes 1 for white
	for i := range row {
		row[i] = ^row[i]
	}
	d.bm.clearPad(row)
}

// repeatRow decodes the row-repeat flag when TPGDON is set and reports
// whether the row is a copy of the previous one.
func (d *RegionDecoder) repeatRow() bool {
	if d.r.TPGDON {
		d.ltp ^= d.code(tpgdContext[d.r.Template], -1)
	}
	if d.ltp == 0 {
		return false
	}
	if d.row > 0 {
		d.bm.CopyRow(d.row, d.row-1)
	}
	return true
}

func (d *RegionDecoder) skipped(x, y int) bool {
	return d.r.Skip != nil && d.r.Skip.Pixel(x, y) != 0
}

func (d *RegionDecoder) at(i, x, y int) uint32 {
	return uint32(d.bm.Pixel(x+d.r.AT[i].X, y+d.r.AT[i].Y))
}

// decodeTemplateRow handles templates 0 to 2. line1 and line2 hold the
// pixels of the two rows above around x, line3 the pixels just decoded.
func (d *RegionDecoder) decodeTemplateRow() {
	if d.repeatRow() {
		return
	}
	t, h, bm := d.r.Template, d.row, d.bm
	mod2, div2 := t%2, t/2
	shift := uint(4 - t)

	line1 := uint32(bm.Pixel(1+mod2, h-2))
	line1 |= uint32(bm.Pixel(mod2, h-2)) << 1
	if t == 1 {
		line1 |= uint32(bm.Pixel(0, h-2)) << 2
	}
	line2 := uint32(bm.Pixel(2-div2, h-1))
	line2 |= uint32(bm.Pixel(1-div2, h-1)) << 1
	if t < 2 {
		line2 |= uint32(bm.Pixel(0, h-1)) << 2
	}
	var line3 uint32

	for w := 0; w < d.r.Width; w++ {
		v := 0
		if !d.skipped(w, h) {
			ctx := line3 | d.at(0, w, h)<<shift | line2<<(shift+1) | line1<<line1Shift[t]
			if t == 0 {
				ctx |= d.at(1, w, h)<<10 | d.at(2, w, h)<<11 | d.at(3, w, h)<<15
			}
			v = d.code(int(ctx), w)
		}
		if v != 0 {
			bm.SetPixel(w, h, 1)
		}
		line1 = (line1<<1 | uint32(bm.Pixel(w+2+mod2, h-2))) & line1Mask[t]
		line2 = (line2<<1 | uint32(bm.Pixel(w+3-div2, h-1))) & line2Mask[t]
		line3 = (line3<<1 | uint32(v)) & line3Mask[t]
	}
}

// decodeTemplate3Row handles the single-row-above template 3.
func (d *RegionDecoder) decodeTemplate3Row() {
	if d.repeatRow() {
		return
	}
	h, bm := d.row, d.bm
	line1 := uint32(bm.Pixel(1, h-1))
	line1 |= uint32(bm.Pixel(0, h-1)) << 1
	var line2 uint32

	for w := 0; w < d.r.Width; w++ {
		v := 0
		if !d.skipped(w, h) {
			ctx := line2 | d.at(0, w, h)<<4 | line1<<5
			v = d.code(int(ctx), w)
		}
		if v != 0 {
			bm.SetPixel(w, h, 1)
		}
		line1 = (line1<<1 | uint32(bm.Pixel(w+2, h-1))) & 0x1f
		line2 = (line2<<1 | uint32(v)) & 0x0f
	}
}
