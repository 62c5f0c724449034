package jbig2

// MaxBitmapSize bounds both bitmap dimensions, as region sizes are carried
// in 16 bits by the region decoders that build on this package.
const MaxBitmapSize = 65535

// Bitmap is a packed 1 bit per pixel image. Rows start on byte boundaries
// and 1 is black. Pad bits at the end of a row are kept at 0.
type Bitmap struct {
	width  int
	height int
	stride int
	data   []byte
}

// NewBitmap allocates a white bitmap. Dimensions outside 1..MaxBitmapSize
// give an empty bitmap on which every access is a no-op.
func NewBitmap(w, h int) *Bitmap {
	if !validSize(w, h) {
		return &Bitmap{}
	}
	stride := (w + 7) / 8
	return &Bitmap{width: w, height: h, stride: stride, data: make([]byte, stride*h)}
}

func validSize(w, h int) bool {
	return w > 0 && w <= MaxBitmapSize && h > 0 && h <= MaxBitmapSize
}

// Width returns the bitmap width in pixels.
func (b *Bitmap) Width() int { return b.width }

// Height returns the bitmap height in pixels.
func (b *Bitmap) Height() int { return b.height }

// Stride returns the number of bytes per row.
func (b *Bitmap) Stride() int { return b.stride }

// Data exposes the packed rows.
func (b *Bitmap) Data() []byte { return b.data }

// Row returns row y, or nil when y is outside the bitmap.
func (b *Bitmap) Row(y int) []byte {
	if b.data == nil || y < 0 || y >= b.height {
		return nil
	}
	return b.data[y*b.stride : (y+1)*b.stride]
}

// Pixel returns the bit at (x, y); pixels outside the bitmap read as 0.
func (b *Bitmap) Pixel(x, y int) int {
	if x < 0 || x >= b.width {
		return 0
	}
	row := b.Row(y)
	if row == nil {
		return 0
	}
	return int(row[x>>3]>>(7-uint(x&7))) & 1
}

// SetPixel sets the bit at (x, y). Writes outside the bitmap are ignored.
func (b *Bitmap) SetPixel(x, y, v int) {
	if x < 0 || x >= b.width {
		return
	}
	row := b.Row(y)
	if row == nil {
		return
	}
	mask := byte(0x80) >> uint(x&7)
	if v != 0 {
		row[x>>3] |= mask
	} else {
		row[x>>3] &^= mask
	}
}

// CopyRow copies row src over row dst. A missing source clears dst.
func (b *Bitmap) CopyRow(dst, src int) {
	d := b.Row(dst)
	if d == nil {
		return
	}
	s := b.Row(src)
	if s == nil {
		clear(d)
		return
	}
	copy(d, s)
}

// Fill sets every pixel to v.
func (b *Bitmap) Fill(v bool) {
	if !v {
		clear(b.data)
		return
	}
	for y := 0; y < b.height; y++ {
		row := b.Row(y)
		for i := range row {
			row[i] = 0xFF
		}
		b.clearPad(row)
	}
}

// Invert complements every pixel.
func (b *Bitmap) Invert() {
	for y := 0; y < b.height; y++ {
		row := b.Row(y)
		for i := range row {
			row[i] = ^row[i]
		}
		b.clearPad(row)
	}
}

func (b *Bitmap) clearPad(row []byte) {
	if n := b.width & 7; n != 0 {
		row[len(row)-1] &= 0xFF << uint(8-n)
	}
}
