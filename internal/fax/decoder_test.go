package fax

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"math/rand"
	"testing"

	"github.com/google/go-cmp/cmp"
	"golang.org/x/image/ccitt"

	"github.com/jdeng/pdfstream/internal/stream"
)

func decodeAll(t *testing.T, data []byte, p Params) ([]byte, *Decoder) {
	t.Helper()
	dec, err := NewDecoder(bytes.NewReader(data), p)
	if err != nil {
		t.Fatalf("NewDecoder failed: %v", err)
	}
	var out []byte
	row := make([]byte, dec.RowBytes())
	for dec.ReadRow(row) {
		out = append(out, row...)
	}
	return out, dec
}

// testImage builds a bitmap in decoder output layout (1 = white) made of
// random horizontal runs, so that consecutive rows share structure.
func testImage(rng *rand.Rand, cols, rows int) []byte {
	stride := (cols + 7) / 8
	img := make([]byte, stride*rows)
	for y := 0; y < rows; y++ {
		white := rng.Intn(2) == 0
		for x := 0; x < cols; {
			run := 1 + rng.Intn(40)
			if rng.Intn(8) == 0 {
				run = 1 + rng.Intn(3000)
			}
			for i := x; i < x+run && i < cols; i++ {
				if white {
					img[y*stride+i/8] |= 0x80 >> uint(i%8)
				}
			}
			x += run
			white = !white
		}
	}
	return img
}

func TestDecodeAllWhite(t *testing.T) {
	tests := []struct {
		name     string
		k        int
		data     []byte
		blackIs1 bool
		want     []byte
	}{
		{"1D", 0, []byte{0xBB}, false, []byte{0xF0, 0xF0}},
		{"1D black is 1", 0, []byte{0xBB}, true, []byte{0x0F, 0x0F}},
		{"2D", -1, []byte{0xC0}, false, []byte{0xF0, 0xF0}},
		{"2D black is 1", -1, []byte{0xC0}, true, []byte{0x0F, 0x0F}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := DefaultParams()
			p.K = tt.k
			p.Columns = 4
			p.Rows = 2
			p.BlackIs1 = tt.blackIs1

			got, dec := decodeAll(t, tt.data, p)
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("decoded rows (-want +got):\n%s", diff)
			}
			if dec.Rows() != 2 {
				t.Errorf("Expected 2 rows, got %d", dec.Rows())
			}
			if dec.Err() {
				t.Errorf("Expected no error flag")
			}
		})
	}
}

func TestDecodeUnknownRowCount(t *testing.T) {
	p := DefaultParams()
	p.Columns = 4
	got, dec := decodeAll(t, []byte{0xBB}, p)
	if diff := cmp.Diff([]byte{0xF0, 0xF0}, got); diff != "" {
		t.Errorf("decoded rows (-want +got):\n%s", diff)
	}
	if dec.Err() {
		t.Errorf("Expected a clean end of data")
	}
}

func TestDecodeEmptySource(t *testing.T) {
	for _, k := range []int{-1, 0, 1} {
		p := DefaultParams()
		p.K = k
		got, dec := decodeAll(t, nil, p)
		if len(got) != 0 || dec.Rows() != 0 {
			t.Errorf("K=%d: Expected no rows, got %d", k, dec.Rows())
		}
		if !dec.Err() {
			t.Errorf("K=%d: Expected the error flag", k)
		}
		if !dec.Done() {
			t.Errorf("K=%d: Expected the decoder to be done", k)
		}
	}
}

func TestDecodeTruncated(t *testing.T) {
	rng := rand.New(rand.NewSource(3))
	p := DefaultParams()
	p.K = -1
	p.Columns = 64
	p.Rows = 20
	img := testImage(rng, p.Columns, p.Rows)
	enc, err := Encode(img, p)
	if err != nil {
		t.Fatalf("Encode failed: %v", err)
	}

	got, dec := decodeAll(t, enc[:len(enc)/2], p)
	if !dec.Err() {
		t.Errorf("Expected the error flag for truncated data")
	}
	if dec.Rows() == 0 || dec.Rows() >= p.Rows {
		t.Errorf("Expected a partial image, got %d rows", dec.Rows())
	}
	if len(got) != dec.Rows()*dec.RowBytes() {
		t.Errorf("Expected whole rows, got %d bytes for %d rows", len(got), dec.Rows())
	}
}

func TestRoundTrip(t *testing.T) {
	tests := []Params{
		{K: 0, Columns: 1728},
		{K: -1, Columns: 1728},
		{K: 3, Columns: 1728},
		{K: 0, Columns: 100, EndOfLine: true},
		{K: -1, Columns: 100, EndOfBlock: true},
		{K: 0, Columns: 37, EndOfBlock: true},
		{K: 2, Columns: 37, EndOfLine: true, EndOfBlock: true},
		{K: 0, Columns: 61, EncodedByteAlign: true},
		{K: -1, Columns: 61, EncodedByteAlign: true, EndOfBlock: true},
		{K: 0, Columns: 61, EncodedByteAlign: true, EndOfLine: true, EndOfBlock: true},
		{K: 1, Columns: 53, EncodedByteAlign: true, EndOfBlock: true},
		{K: 4, Columns: 53, EncodedByteAlign: true, EndOfBlock: true},
		{K: -1, Columns: 200, BlackIs1: true},
		{K: 0, Columns: 5000},
	}
	for _, p := range tests {
		name := fmt.Sprintf("K=%d/cols=%d/eol=%v/align=%v/eob=%v/black=%v",
			p.K, p.Columns, p.EndOfLine, p.EncodedByteAlign, p.EndOfBlock, p.BlackIs1)
		t.Run(name, func(t *testing.T) {
			rng := rand.New(rand.NewSource(int64(p.Columns)))
			const rows = 30
			img := testImage(rng, p.Columns, rows)
			if pad := p.Columns % 8; pad != 0 {
				stride := p.RowBytes()
				for y := 0; y < rows; y++ {
					img[y*stride+stride-1] &^= 0xFF >> uint(pad)
				}
			}
			if p.BlackIs1 {
				for i := range img {
					img[i] ^= 0xFF
				}
			}

			enc, err := Encode(img, p)
			if err != nil {
				t.Fatalf("Encode failed: %v", err)
			}

			// Rows unknown: the decoder must find the end by itself
			got, dec := decodeAll(t, enc, p)
			if diff := cmp.Diff(img, got); diff != "" {
				t.Errorf("round trip mismatch (-want +got):\n%s", diff)
			}
			if dec.Rows() != rows {
				t.Errorf("Expected %d rows, got %d", rows, dec.Rows())
			}
			if dec.Err() {
				t.Errorf("Expected no error flag")
			}
		})
	}
}

func TestRoundTripAllModes(t *testing.T) {
	const cols, rows = 53, 17
	rng := rand.New(rand.NewSource(53))
	img := testImage(rng, cols, rows)
	for _, k := range []int{-1, 0, 1, 4} {
		for mode := 0; mode < 16; mode++ {
			p := Params{
				K:                k,
				Columns:          cols,
				EndOfLine:        mode&1 != 0,
				EncodedByteAlign: mode&2 != 0,
				EndOfBlock:       mode&4 != 0,
			}
			if mode&8 != 0 {
				p.Rows = rows
			}
			name := fmt.Sprintf("K=%d/eol=%v/align=%v/eob=%v/rows=%d", k, p.EndOfLine, p.EncodedByteAlign, p.EndOfBlock, p.Rows)
			t.Run(name, func(t *testing.T) {
				enc, err := Encode(img, p)
				if err != nil {
					t.Fatalf("Encode failed: %v", err)
				}
				got, dec := decodeAll(t, enc, p)
				if diff := cmp.Diff(img, got); diff != "" {
					t.Errorf("round trip mismatch (-want +got):\n%s", diff)
				}
				if dec.Rows() != rows {
					t.Errorf("Expected %d rows, got %d", rows, dec.Rows())
				}
				if dec.Err() {
					t.Errorf("Expected no error flag")
				}
			})
		}
	}
}

func TestBlackIs1Complements(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	p := DefaultParams()
	p.K = -1
	p.Columns = 48
	p.Rows = 10
	enc, err := Encode(testImage(rng, p.Columns, p.Rows), p)
	if err != nil {
		t.Fatalf("Encode failed: %v", err)
	}

	plain, _ := decodeAll(t, enc, p)
	p.BlackIs1 = true
	inverted, _ := decodeAll(t, enc, p)
	if len(plain) != len(inverted) {
		t.Fatalf("Expected equal lengths, got %d and %d", len(plain), len(inverted))
	}
	for i := range plain {
		if plain[i]^inverted[i] != 0xFF {
			t.Fatalf("byte %d: %#02x is not the complement of %#02x", i, inverted[i], plain[i])
		}
	}
}

func TestCrossCheck(t *testing.T) {
	tests := []struct {
		name string
		p    Params
		sf   ccitt.SubFormat
	}{
		{"group3", Params{K: 0, Columns: 256, EndOfLine: true}, ccitt.Group3},
		{"group4", Params{K: -1, Columns: 256}, ccitt.Group4},
		{"group4 wide", Params{K: -1, Columns: 1728}, ccitt.Group4},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rng := rand.New(rand.NewSource(11))
			const rows = 40
			img := testImage(rng, tt.p.Columns, rows)
			p := tt.p
			p.Rows = rows
			enc, err := Encode(img, p)
			if err != nil {
				t.Fatalf("Encode failed: %v", err)
			}

			r := ccitt.NewReader(bytes.NewReader(enc), ccitt.MSB, tt.sf, p.Columns, rows, &ccitt.Options{})
			ref, err := io.ReadAll(r)
			if err != nil {
				t.Fatalf("reference decoder failed: %v", err)
			}
			got, dec := decodeAll(t, enc, p)
			if diff := cmp.Diff(ref, got); diff != "" {
				t.Errorf("output differs from x/image/ccitt (-ref +got):\n%s", diff)
			}
			if dec.Err() {
				t.Errorf("Expected no error flag")
			}
		})
	}
}

func TestReadNextChar(t *testing.T) {
	p := DefaultParams()
	p.Columns = 4
	p.Rows = 2
	dec, err := NewDecoder(bytes.NewReader([]byte{0xBB}), p)
	if err != nil {
		t.Fatalf("NewDecoder failed: %v", err)
	}
	var got []byte
	for c := dec.ReadNextChar(); c >= 0; c = dec.ReadNextChar() {
		got = append(got, byte(c))
	}
	if diff := cmp.Diff([]byte{0xF0, 0xF0}, got); diff != "" {
		t.Errorf("ReadNextChar output (-want +got):\n%s", diff)
	}
}

func TestStreamRows(t *testing.T) {
	rng := rand.New(rand.NewSource(5))
	p := DefaultParams()
	p.K = -1
	p.Columns = 40
	img := testImage(rng, p.Columns, 12)
	enc, err := Encode(img, p)
	if err != nil {
		t.Fatalf("Encode failed: %v", err)
	}
	dec, err := NewDecoder(stream.NewSource(enc), p)
	if err != nil {
		t.Fatalf("NewDecoder failed: %v", err)
	}

	s := stream.NewStream(dec)
	if c := s.ByteAt(p.RowBytes()); c != int(img[p.RowBytes()]) {
		t.Errorf("Expected first byte of row 1 %#x, got %#x", img[p.RowBytes()], c)
	}
	if dec.Rows() != 2 {
		t.Errorf("Expected lazy decoding of 2 rows, got %d", dec.Rows())
	}
	if diff := cmp.Diff(img, s.GetBytes(0)); diff != "" {
		t.Errorf("stream output (-want +got):\n%s", diff)
	}
}

func TestParamsValidate(t *testing.T) {
	tests := []struct {
		name string
		p    Params
	}{
		{"zero columns", Params{Columns: 0}},
		{"too wide", Params{Columns: MaxColumns + 1}},
		{"negative rows", Params{Columns: 8, Rows: -1}},
		{"negative damaged rows", Params{Columns: 8, DamagedRowsBeforeError: -1}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewDecoder(bytes.NewReader(nil), tt.p)
			if !errors.Is(err, ErrInvalidParams) {
				t.Errorf("Expected ErrInvalidParams, got %v", err)
			}
		})
	}
}

func TestDamagedRowResync(t *testing.T) {
	rng := rand.New(rand.NewSource(9))
	p := Params{K: 0, Columns: 64, EndOfLine: true, EncodedByteAlign: true, DamagedRowsBeforeError: 5}
	stride := p.RowBytes()
	img := testImage(rng, p.Columns, 8)

	head, err := Encode(img[:4*stride], p)
	if err != nil {
		t.Fatalf("Encode failed: %v", err)
	}
	tail, err := Encode(img[4*stride:], p)
	if err != nil {
		t.Fatalf("Encode failed: %v", err)
	}
	// an aligned EOL followed by a row of zero bits, which is no valid code
	data := append(append(head, 0x00, 0x01, 0x00, 0x00), tail...)

	got, dec := decodeAll(t, data, p)
	if !dec.Err() {
		t.Errorf("Expected the error flag")
	}
	if dec.Rows() != 9 {
		t.Fatalf("Expected 9 rows, got %d", dec.Rows())
	}
	want := append(append([]byte(nil), img[:4*stride]...), bytes.Repeat([]byte{0xFF}, stride)...)
	want = append(want, img[4*stride:]...)
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("rows around the damaged one (-want +got):\n%s", diff)
	}
}
