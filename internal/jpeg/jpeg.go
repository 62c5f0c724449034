// Package jpeg decodes the Huffman coded JPEG data carried by DCTDecode
// streams: baseline, extended sequential (8-bit) and progressive frames.
//
// Decoding is tolerant in the way PDF consumers expect. Only input that is
// not a JPEG at all, or a frame this package cannot represent, is reported as
// an error. Truncated or corrupt entropy data ends the scan at the last
// complete MCU and the rest of the image keeps its zero coefficients.
package jpeg

import (
	"errors"
	"log/slog"
)

var (
	// ErrNotJPEG is returned when the data does not start with an SOI marker.
	ErrNotJPEG = errors.New("jpeg: missing SOI marker")
	// ErrUnsupported is wrapped for frame types this package cannot decode
	// (lossless, arithmetic coded, 12-bit, hierarchical).
	ErrUnsupported = errors.New("jpeg: unsupported")
	// ErrFormat is wrapped for malformed frame headers and output requests.
	ErrFormat = errors.New("jpeg: invalid format")
)

const (
	// MaxDimension is the largest width or height of a frame.
	MaxDimension = 65535
	// MaxPixels bounds width*height of a frame and of GetData output.
	MaxPixels = 1 << 28
)

// Options configures decoding and output conversion.
type Options struct {
	// DecodeTransform holds a [mul, add] pair per component. Every output
	// sample v becomes (v*mul)>>8 + add, clamped to [0, 255].
	DecodeTransform []int32
	// ColorTransform overrides the detected colour transform when no Adobe
	// marker is present: 0 disables YCbCr conversion, 1 forces it.
	ColorTransform *int
	// Logger receives diagnostics about skipped or damaged data.
	Logger *slog.Logger
}

const (
	markerSOF0  = 0xC0 // baseline
	markerSOF1  = 0xC1 // extended sequential
	markerSOF2  = 0xC2 // progressive
	markerDHT   = 0xC4
	markerDAC   = 0xCC
	markerRST0  = 0xD0
	markerRST7  = 0xD7
	markerSOI   = 0xD8
	markerEOI   = 0xD9
	markerSOS   = 0xDA
	markerDQT   = 0xDB
	markerDNL   = 0xDC
	markerDRI   = 0xDD
	markerAPP0  = 0xE0
	markerAPP14 = 0xEE
	markerCOM   = 0xFE
)

// zigzag maps the position of a coefficient in the entropy coded order to
// its natural (row-major) position in the 8x8 block.
var zigzag = [64]int{
	0, 1, 8, 16, 9, 2, 3, 10,
	17, 24, 32, 25, 18, 11, 4, 5,
	12, 19, 26, 33, 40, 48, 41, 34,
	27, 20, 13, 6, 7, 14, 21, 28,
	35, 42, 49, 56, 57, 50, 43, 36,
	29, 22, 15, 23, 30, 37, 44, 51,
	58, 59, 52, 45, 38, 31, 39, 46,
	53, 60, 61, 54, 47, 55, 62, 63,
}
