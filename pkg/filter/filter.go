// Package filter exposes the CCITT, DCT and JBIG2 generic region decoders
// as lazily decoded PDF filter streams configured from parameter
// dictionaries.
package filter

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math"

	"github.com/jdeng/pdfstream/internal/stream"
)

// ErrUnknownFilter is returned by Decode for filter names it does not handle.
var ErrUnknownFilter = errors.New("filter: unknown filter")

// Dict is a PDF dictionary with its values already converted to Go values:
// numbers as int or float64, booleans as bool, arrays as []any or typed
// slices.
type Dict map[string]any

// abbreviations used by inline images
var abbreviations = map[string]string{
	"BitsPerComponent": "BPC",
	"ColorSpace":       "CS",
	"Decode":           "D",
	"DecodeParms":      "DP",
	"Height":           "H",
	"Width":            "W",
}

func (d Dict) lookup(key string) (any, bool) {
	if d == nil {
		return nil, false
	}
	if v, ok := d[key]; ok {
		return v, true
	}
	if short, ok := abbreviations[key]; ok {
		v, ok := d[short]
		return v, ok
	}
	return nil, false
}

// getInt returns an integer entry, or def when it is missing or not an
// integer.
func (d Dict) getInt(key string, def int) int {
	v, ok := d.lookup(key)
	if !ok {
		return def
	}
	if n, ok := toInt(v); ok {
		return n
	}
	return def
}

func toInt(v any) (int, bool) {
	switch v := v.(type) {
	case int:
		return v, true
	case int64:
		return int(v), true
	case int32:
		return int(v), true
	case float64:
		if v == math.Trunc(v) && math.Abs(v) <= math.MaxInt32 {
			return int(v), true
		}
	}
	return 0, false
}

// getBool returns a boolean entry, or def when it is missing or not a
// boolean.
func (d Dict) getBool(key string, def bool) bool {
	v, ok := d.lookup(key)
	if !ok {
		return def
	}
	if b, ok := v.(bool); ok {
		return b
	}
	return def
}

// getNumbers returns a numeric array entry. A missing entry, or an array
// holding anything but numbers, gives nil.
func (d Dict) getNumbers(key string) []float64 {
	v, ok := d.lookup(key)
	if !ok {
		return nil
	}
	switch v := v.(type) {
	case []float64:
		return v
	case []int:
		out := make([]float64, len(v))
		for i, n := range v {
			out[i] = float64(n)
		}
		return out
	case []any:
		out := make([]float64, len(v))
		for i, e := range v {
			switch e := e.(type) {
			case int:
				out[i] = float64(e)
			case int64:
				out[i] = float64(e)
			case float64:
				out[i] = e
			default:
				return nil
			}
		}
		return out
	}
	return nil
}

// CodecStatus reports how far a stream has been decoded.
type CodecStatus int

const (
	// CodecStatusReady means nothing has been decoded yet.
	CodecStatusReady CodecStatus = iota
	// CodecStatusToBeContinued means part of the data has been decoded.
	CodecStatusToBeContinued
	// CodecStatusFinished means the decoder produced all of its data.
	CodecStatusFinished
	// CodecStatusError means the decoder stopped with an error.
	CodecStatusError
)

func (status CodecStatus) String() string {
	switch status {
	case CodecStatusReady:
		return "Ready"
	case CodecStatusToBeContinued:
		return "ToBeContinued"
	case CodecStatusFinished:
		return "Finished"
	case CodecStatusError:
		return "Error"
	default:
		return fmt.Sprintf("CodecStatus(%d)", int(status))
	}
}

// Options holds settings shared by every filter.
type Options struct {
	// Logger receives decoder diagnostics. Nil discards them.
	Logger *slog.Logger
}

func (o Options) logger() *slog.Logger {
	if o.Logger == nil {
		return slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return o.Logger
}

// Stream is a decoded filter stream. The embedded stream.Stream gives byte
// access (GetByte, GetBytes, ByteAt, Read, ...) that decodes on demand.
type Stream struct {
	*stream.Stream

	width      int
	height     int
	components int
	bpc        int
	damaged    func() bool
}

func newStream(dec stream.BlockDecoder) *Stream {
	return &Stream{Stream: stream.NewStream(dec), components: 1, bpc: 8}
}

// Status reports the decoding progress.
func (s *Stream) Status() CodecStatus {
	switch {
	case s.Err() != nil:
		return CodecStatusError
	case s.EOF():
		return CodecStatusFinished
	case len(s.Decoded()) > 0:
		return CodecStatusToBeContinued
	default:
		return CodecStatusReady
	}
}

// Damaged reports whether the decoder met corrupt or truncated data and
// filled in what was missing.
func (s *Stream) Damaged() bool { return s.damaged != nil && s.damaged() }

// Width returns the image width in pixels; 0 while unknown.
func (s *Stream) Width() int { return s.width }

// Height returns the image height in rows; 0 while unknown. Streams that
// do not know their height up front report the decoded row count at the
// end of the data.
func (s *Stream) Height() int {
	if s.height == 0 && s.EOF() {
		if n := s.RowBytes(); n > 0 {
			return len(s.Decoded()) / n
		}
	}
	return s.height
}

// Components returns the number of interleaved samples per pixel.
func (s *Stream) Components() int { return s.components }

// BitsPerComponent returns the sample size of the output.
func (s *Stream) BitsPerComponent() int { return s.bpc }

// RowBytes returns the size of one output row.
func (s *Stream) RowBytes() int { return (s.width*s.components*s.bpc + 7) / 8 }

type constructor func(src []byte, dict, parms Dict, opts Options) (*Stream, error)

var filters = map[string]constructor{
	"CCITTFaxDecode": newCCITTFax,
	"CCF":            newCCITTFax,
	"DCTDecode":      newDCT,
	"DCT":            newDCT,
	"GenericRegion":  newGenericRegion,
}

// Decode builds the stream for the named filter. dict is the image (or
// stream) dictionary and parms the filter's decode parameters.
func Decode(name string, src []byte, dict, parms Dict, opts Options) (*Stream, error) {
	newFilter, ok := filters[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownFilter, name)
	}
	return newFilter(src, dict, parms, opts)
}
