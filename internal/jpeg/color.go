package jpeg

import (
	"fmt"
	"log/slog"
	"math"

	"golang.org/x/exp/constraints"
)

func clamp[T constraints.Integer | constraints.Float](v, lo, hi T) T {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func clampByte(v float64) byte { return byte(clamp(math.Round(v), 0, 255)) }

// invertCMYK is the decode transform applied to 4-component data that does
// not come from a PDF stream.
var invertCMYK = []int32{-256, 255, -256, 255, -256, 255, -256, 255}

// GetData returns the image resampled to width x height as interleaved
// samples. Gray images give 1 byte per pixel (3 with forceRGB), colour
// images 3 and CMYK images 4 (3 with forceRGB). Two-component frames
// decode but have no output form. When isSourcePDF is false
// and no decode transform is set, 4-component data is inverted, as written
// by Adobe applications.
func (d *Decoder) GetData(width, height int, forceRGB, isSourcePDF bool) ([]byte, error) {
	if width <= 0 || height <= 0 || width > MaxDimension || height > MaxDimension || width*height > MaxPixels {
		return nil, fmt.Errorf("%w: output size %dx%d", ErrFormat, width, height)
	}
	if n := len(d.comps); n == 2 {
		return nil, fmt.Errorf("%w: output of %d components", ErrUnsupported, n)
	}
	data := d.linearize(width, height, isSourcePDF)

	switch n := len(d.comps); {
	case n == 1 && forceRGB:
		rgb := make([]byte, 3*len(data))
		for i, v := range data {
			rgb[3*i], rgb[3*i+1], rgb[3*i+2] = v, v, v
		}
		return rgb, nil
	case n == 3 && d.colorConversionNeeded():
		yccToRGB(data)
	case n == 4:
		if d.colorConversionNeeded() {
			ycckToCMYK(data)
		}
		if forceRGB {
			return cmykToRGB(data), nil
		}
	}
	return data, nil
}

// linearize samples every component at the output grid (nearest neighbour)
// and applies the decode transform.
func (d *Decoder) linearize(width, height int, isSourcePDF bool) []byte {
	n := len(d.comps)
	out := make([]byte, width*height*n)
	scaleX := float64(d.width) / float64(width)
	scaleY := float64(d.height) / float64(height)

	xs := make([]int, width)
	for i, c := range d.comps {
		sx := float64(c.h) / float64(d.maxH) * scaleX
		sy := float64(c.v) / float64(d.maxV) * scaleY
		for x := range xs {
			xs[x] = int(float64(x) * sx)
		}
		stride := c.blocksPerLine * 8
		for y := 0; y < height; y++ {
			row := c.plane[int(float64(y)*sy)*stride:]
			o := y*width*n + i
			for _, px := range xs {
				out[o] = row[px]
				o += n
			}
		}
	}

	transform := d.opts.DecodeTransform
	if transform == nil && !isSourcePDF && n == 4 {
		transform = invertCMYK
	}
	if transform == nil {
		return out
	}
	if len(transform) < 2*n {
		d.log.Warn("jpeg: ignoring short decode transform", slog.Int("length", len(transform)), slog.Int("components", n))
		return out
	}
	for i, v := range out {
		k := 2 * (i % n)
		out[i] = byte(clamp((int32(v)*transform[k])>>8+transform[k+1], 0, 255))
	}
	return out
}

// colorConversionNeeded decides whether the samples are YCbCr (or YCCK).
// An Adobe marker decides on its own; otherwise the ColorTransform option,
// and for 3-component images anything but component ids 'R', 'G', 'B'.
func (d *Decoder) colorConversionNeeded() bool {
	if d.adobe {
		return d.adobeTransform != 0
	}
	ct := -1
	if d.opts.ColorTransform != nil {
		ct = *d.opts.ColorTransform
	}
	if len(d.comps) == 3 {
		if ct == 0 {
			return false
		}
		if d.comps[0].id == 'R' && d.comps[1].id == 'G' && d.comps[2].id == 'B' {
			return false
		}
		return true
	}
	return ct == 1
}

func yccToRGB(data []byte) {
	for i := 0; i+2 < len(data); i += 3 {
		data[i], data[i+1], data[i+2] = ycc(data[i], data[i+1], data[i+2])
	}
}

// ycckToCMYK converts in place; K is kept.
func ycckToCMYK(data []byte) {
	for i := 0; i+3 < len(data); i += 4 {
		r, g, b := ycc(data[i], data[i+1], data[i+2])
		data[i], data[i+1], data[i+2] = 255-r, 255-g, 255-b
	}
}

func ycc(y, cb, cr byte) (byte, byte, byte) {
	Y := float64(y)
	Cb := float64(int(cb) - 128)
	Cr := float64(int(cr) - 128)
	return clampByte(Y + 1.402*Cr), clampByte(Y - 0.344136*Cb - 0.714136*Cr), clampByte(Y + 1.772*Cb)
}

func cmykToRGB(data []byte) []byte {
	rgb := make([]byte, len(data)/4*3)
	for i, j := 0, 0; i+3 < len(data); i, j = i+4, j+3 {
		k := int(data[i+3])
		rgb[j] = byte(255 - min(255, int(data[i])+k))
		rgb[j+1] = byte(255 - min(255, int(data[i+1])+k))
		rgb[j+2] = byte(255 - min(255, int(data[i+2])+k))
	}
	return rgb
}
