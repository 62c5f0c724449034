package jbig2

import (
	"bytes"
	"fmt"
	"io"
	"log/slog"

	"github.com/jdeng/pdfstream/internal/arith"
	"github.com/jdeng/pdfstream/internal/fax"
)

// Encode codes bm as region data that NewDecoder reads back. Pixels marked
// in Skip are not coded. It is used to produce fixtures.
func (g *GenericRegion) Encode(bm *Bitmap) ([]byte, error) {
	if err := g.Validate(); err != nil {
		return nil, err
	}
	if bm.Width() != g.Width || bm.Height() != g.Height {
		return nil, fmt.Errorf("%w: bitmap is %dx%d, region %dx%d", ErrInvalidRegion, bm.Width(), bm.Height(), g.Width, g.Height)
	}
	if g.MMR {
		white := NewBitmap(g.Width, g.Height)
		copy(white.Data(), bm.Data())
		white.Invert()
		return fax.Encode(white.Data(), fax.Params{K: -1, Columns: g.Width, Rows: g.Height})
	}

	enc := arith.NewEncoder()
	d := &RegionDecoder{
		r:   *g,
		bm:  NewBitmap(g.Width, g.Height),
		log: slog.New(slog.NewTextHandler(io.Discard, nil)),
		cx:  arith.NewContexts(contextSize[g.Template]),
	}
	white := make([]byte, bm.Stride())
	d.code = func(ctx, x int) int {
		var v int
		if x < 0 {
			prev := white
			if d.row > 0 {
				prev = bm.Row(d.row - 1)
			}
			if bytes.Equal(prev, bm.Row(d.row)) {
				v = 1
			}
			v ^= d.ltp
		} else {
			v = bm.Pixel(x, d.row)
		}
		enc.Encode(d.cx, ctx, v)
		return v
	}
	for d.DecodeRow() {
	}
	return enc.Flush(), nil
}
