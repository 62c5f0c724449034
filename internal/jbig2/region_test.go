package jbig2

import (
	"bytes"
	"errors"
	"fmt"
	"math/rand"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/jdeng/pdfstream/internal/arith"
	"github.com/jdeng/pdfstream/internal/fax"
	"github.com/jdeng/pdfstream/internal/stream"
)

// contextPixel is one bit of a template context, LSB first. at > 0 takes the
// position from the region's adaptive pixel at-1.
type contextPixel struct{ x, y, at int }

var contextPixels = [4][]contextPixel{
	{
		{-1, 0, 0}, {-2, 0, 0}, {-3, 0, 0}, {-4, 0, 0}, {0, 0, 1},
		{2, -1, 0}, {1, -1, 0}, {0, -1, 0}, {-1, -1, 0}, {-2, -1, 0},
		{0, 0, 2}, {0, 0, 3},
		{1, -2, 0}, {0, -2, 0}, {-1, -2, 0}, {0, 0, 4},
	},
	{
		{-1, 0, 0}, {-2, 0, 0}, {-3, 0, 0}, {0, 0, 1},
		{2, -1, 0}, {1, -1, 0}, {0, -1, 0}, {-1, -1, 0}, {-2, -1, 0},
		{2, -2, 0}, {1, -2, 0}, {0, -2, 0}, {-1, -2, 0},
	},
	{
		{-1, 0, 0}, {-2, 0, 0}, {0, 0, 1},
		{1, -1, 0}, {0, -1, 0}, {-1, -1, 0}, {-2, -1, 0},
		{1, -2, 0}, {0, -2, 0}, {-1, -2, 0},
	},
	{
		{-1, 0, 0}, {-2, 0, 0}, {-3, 0, 0}, {-4, 0, 0}, {0, 0, 1},
		{1, -1, 0}, {0, -1, 0}, {-1, -1, 0}, {-2, -1, 0}, {-3, -1, 0},
	},
}

func referenceContext(g *GenericRegion, img *Bitmap, x, y int) int {
	ctx := 0
	for i, p := range contextPixels[g.Template] {
		dx, dy := p.x, p.y
		if p.at > 0 {
			dx, dy = g.AT[p.at-1].X, g.AT[p.at-1].Y
		}
		ctx |= img.Pixel(x+dx, y+dy) << uint(i)
	}
	return ctx
}

// encodeRegion codes img the way an encoder following the generic region
// procedure would.
func encodeRegion(g *GenericRegion, img *Bitmap) []byte {
	enc := arith.NewEncoder()
	cx := arith.NewContexts(1 << 16)
	white := make([]byte, img.Stride())
	ltp := 0
	for y := 0; y < g.Height; y++ {
		if g.TPGDON {
			prev := white
			if y > 0 {
				prev = img.Row(y - 1)
			}
			same := 0
			if bytes.Equal(prev, img.Row(y)) {
				same = 1
			}
			enc.Encode(cx, tpgdContext[g.Template], same^ltp)
			ltp = same
			if ltp != 0 {
				continue
			}
		}
		for x := 0; x < g.Width; x++ {
			if g.Skip != nil && g.Skip.Pixel(x, y) != 0 {
				continue
			}
			enc.Encode(cx, referenceContext(g, img, x, y), img.Pixel(x, y))
		}
	}
	return enc.Flush()
}

// testBitmap draws random black runs, repeating some rows.
func testBitmap(rng *rand.Rand, w, h int) *Bitmap {
	bm := NewBitmap(w, h)
	for y := 0; y < h; y++ {
		if y > 0 && rng.Intn(4) == 0 {
			bm.CopyRow(y, y-1)
			continue
		}
		if rng.Intn(6) == 0 {
			continue
		}
		black := rng.Intn(2) == 0
		for x := 0; x < w; {
			run := 1 + rng.Intn(12)
			for i := x; i < x+run && black; i++ {
				bm.SetPixel(i, y, 1)
			}
			x += run
			black = !black
		}
	}
	return bm
}

func TestGenericRegionTemplates(t *testing.T) {
	rng := rand.New(rand.NewSource(11))
	for template := 0; template < 4; template++ {
		for _, tpgdon := range []bool{false, true} {
			t.Run(fmt.Sprintf("template%d/tpgdon=%v", template, tpgdon), func(t *testing.T) {
				g := &GenericRegion{Width: 37, Height: 23, Template: template, TPGDON: tpgdon, AT: DefaultAT(template)}
				img := testBitmap(rng, g.Width, g.Height)
				got, err := g.Decode(encodeRegion(g, img))
				if err != nil {
					t.Fatalf("Decode failed: %v", err)
				}
				if diff := cmp.Diff(img.Data(), got.Data()); diff != "" {
					t.Errorf("region mismatch (-want +got):\n%s", diff)
				}
			})
		}
	}
}

func TestGenericRegionMovedAT(t *testing.T) {
	rng := rand.New(rand.NewSource(12))
	g := &GenericRegion{
		Width: 40, Height: 16, Template: 0,
		AT: [4]Point{{-1, 0}, {-5, -1}, {4, -3}, {0, -4}},
	}
	img := testBitmap(rng, g.Width, g.Height)
	got, err := g.Decode(encodeRegion(g, img))
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}
	if diff := cmp.Diff(img.Data(), got.Data()); diff != "" {
		t.Errorf("region mismatch (-want +got):\n%s", diff)
	}
}

func TestGenericRegionSkip(t *testing.T) {
	rng := rand.New(rand.NewSource(13))
	g := &GenericRegion{Width: 24, Height: 10, Template: 1, AT: DefaultAT(1), Skip: NewBitmap(24, 10)}
	img := testBitmap(rng, g.Width, g.Height)
	for y := 0; y < g.Height; y++ {
		for x := y; x < g.Width; x += 5 {
			g.Skip.SetPixel(x, y, 1)
			img.SetPixel(x, y, 0)
		}
	}
	got, err := g.Decode(encodeRegion(g, img))
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}
	if diff := cmp.Diff(img.Data(), got.Data()); diff != "" {
		t.Errorf("region mismatch (-want +got):\n%s", diff)
	}
}

func TestGenericRegionMMR(t *testing.T) {
	rng := rand.New(rand.NewSource(14))
	g := &GenericRegion{Width: 45, Height: 20, MMR: true}
	img := testBitmap(rng, g.Width, g.Height)

	white := NewBitmap(g.Width, g.Height)
	copy(white.Data(), img.Data())
	white.Invert()
	data, err := fax.Encode(white.Data(), fax.Params{K: -1, Columns: g.Width, Rows: g.Height})
	if err != nil {
		t.Fatalf("Encode failed: %v", err)
	}

	got, err := g.Decode(data)
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}
	if diff := cmp.Diff(img.Data(), got.Data()); diff != "" {
		t.Errorf("region mismatch (-want +got):\n%s", diff)
	}
}

func TestGenericRegionTruncated(t *testing.T) {
	rng := rand.New(rand.NewSource(15))
	g := &GenericRegion{Width: 30, Height: 12, Template: 2, AT: DefaultAT(2)}
	data := encodeRegion(g, testBitmap(rng, g.Width, g.Height))

	for _, n := range []int{0, 1, len(data) / 2} {
		d, err := g.NewDecoder(data[:n])
		if err != nil {
			t.Fatalf("NewDecoder failed: %v", err)
		}
		rows := 0
		for d.DecodeRow() {
			rows++
		}
		if rows != g.Height {
			t.Errorf("Expected %d rows from %d bytes, got %d", g.Height, n, rows)
		}
	}

	mmr := &GenericRegion{Width: 30, Height: 12, MMR: true}
	bm, err := mmr.Decode(nil)
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}
	if diff := cmp.Diff(make([]byte, len(bm.Data())), bm.Data()); diff != "" {
		t.Errorf("Expected white region from empty MMR data (-want +got):\n%s", diff)
	}
}

func TestGenericRegionValidate(t *testing.T) {
	tests := []struct {
		name string
		g    GenericRegion
	}{
		{"zero width", GenericRegion{Width: 0, Height: 4}},
		{"too tall", GenericRegion{Width: 4, Height: MaxBitmapSize + 1}},
		{"template", GenericRegion{Width: 4, Height: 4, Template: 4}},
		{"AT below", GenericRegion{Width: 4, Height: 4, Template: 3, AT: [4]Point{{-1, 1}}}},
		{"AT ahead", GenericRegion{Width: 4, Height: 4, Template: 2, AT: [4]Point{{0, 0}}}},
		{"AT range", GenericRegion{Width: 4, Height: 4, Template: 0, AT: [4]Point{{3, -1}, {-3, -1}, {2, -2}, {-200, -2}}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := tt.g.NewDecoder(nil); !errors.Is(err, ErrInvalidRegion) {
				t.Errorf("Expected ErrInvalidRegion, got %v", err)
			}
		})
	}

	// only the first adaptive pixel matters outside template 0
	g := GenericRegion{Width: 4, Height: 4, Template: 1, AT: [4]Point{{3, -1}, {5, 5}}}
	if err := g.Validate(); err != nil {
		t.Errorf("Expected valid region, got %v", err)
	}
}

func TestRegionStream(t *testing.T) {
	rng := rand.New(rand.NewSource(16))
	g := &GenericRegion{Width: 19, Height: 40, Template: 0, TPGDON: true, AT: DefaultAT(0)}
	img := testBitmap(rng, g.Width, g.Height)
	d, err := g.NewDecoder(encodeRegion(g, img))
	if err != nil {
		t.Fatalf("NewDecoder failed: %v", err)
	}

	s := stream.NewStream(d)
	if c := s.GetByte(); c != int(img.Data()[0]) {
		t.Errorf("Expected first byte %#x, got %#x", img.Data()[0], c)
	}
	if d.Rows() != RowsPerBlock {
		t.Errorf("Expected %d rows after the first block, got %d", RowsPerBlock, d.Rows())
	}
	s.Reset()
	if diff := cmp.Diff(img.Data(), s.GetBytes(0)); diff != "" {
		t.Errorf("stream output (-want +got):\n%s", diff)
	}
	if !d.Done() || !s.EOF() {
		t.Errorf("Expected a finished stream, got done=%v eof=%v", d.Done(), s.EOF())
	}
}

func TestGenericRegionEncode(t *testing.T) {
	rng := rand.New(rand.NewSource(17))
	regions := []*GenericRegion{
		{Width: 33, Height: 18, Template: 0, TPGDON: true, AT: DefaultAT(0)},
		{Width: 33, Height: 18, Template: 1, AT: DefaultAT(1)},
		{Width: 33, Height: 18, Template: 2, TPGDON: true, AT: DefaultAT(2)},
		{Width: 33, Height: 18, Template: 3, AT: [4]Point{{-3, 0}}},
	}
	for _, g := range regions {
		img := testBitmap(rng, g.Width, g.Height)
		data, err := g.Encode(img)
		if err != nil {
			t.Fatalf("Encode failed: %v", err)
		}
		if diff := cmp.Diff(encodeRegion(g, img), data); diff != "" {
			t.Errorf("template %d: coded data mismatch (-want +got):\n%s", g.Template, diff)
		}
	}

	mmr := &GenericRegion{Width: 50, Height: 9, MMR: true}
	img := testBitmap(rng, mmr.Width, mmr.Height)
	data, err := mmr.Encode(img)
	if err != nil {
		t.Fatalf("Encode failed: %v", err)
	}
	got, err := mmr.Decode(data)
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}
	if diff := cmp.Diff(img.Data(), got.Data()); diff != "" {
		t.Errorf("MMR round trip mismatch (-want +got):\n%s", diff)
	}

	if _, err := mmr.Encode(NewBitmap(4, 4)); !errors.Is(err, ErrInvalidRegion) {
		t.Errorf("Expected ErrInvalidRegion for a size mismatch, got %v", err)
	}
}
