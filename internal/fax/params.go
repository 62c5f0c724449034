package fax

import (
	"errors"
	"fmt"
)

// MaxColumns bounds the row width accepted by NewDecoder and Encode.
const MaxColumns = 1 << 20

// ErrInvalidParams is wrapped by every parameter validation failure.
var ErrInvalidParams = errors.New("ccitt: invalid parameters")

// Params describes an encoded CCITT image. The fields follow the keys of the
// CCITTFaxDecode parameter dictionary.
type Params struct {
	// K selects the coding scheme: < 0 pure two-dimensional (Group 4),
	// 0 pure one-dimensional (Group 3), > 0 mixed with a tag bit per row.
	K int
	// Columns is the image width in pixels.
	Columns int
	// Rows is the image height; 0 means unknown and decoding runs until the
	// end-of-block code or the end of the data.
	Rows int
	// BlackIs1 makes 1 bits black in the output. The default output uses
	// 0 for black.
	BlackIs1 bool
	// EndOfBlock expects the data to be terminated by an end-of-block code.
	EndOfBlock bool
	// EndOfLine expects every row to be preceded by an EOL code.
	EndOfLine bool
	// EncodedByteAlign means every encoded row starts on a byte boundary.
	EncodedByteAlign bool
	// DamagedRowsBeforeError is the number of damaged rows tolerated when
	// EndOfLine is set and the decoder can resynchronise on EOL codes.
	DamagedRowsBeforeError int
}

// DefaultParams returns the PDF defaults.
func DefaultParams() Params {
	return Params{
		Columns:    1728,
		EndOfBlock: true,
	}
}

// Validate checks the parameters for values the decoder cannot handle.
func (p Params) Validate() error {
	switch {
	case p.Columns < 1:
		return fmt.Errorf("%w: columns %d", ErrInvalidParams, p.Columns)
	case p.Columns > MaxColumns:
		return fmt.Errorf("%w: columns %d exceeds %d", ErrInvalidParams, p.Columns, MaxColumns)
	case p.Rows < 0:
		return fmt.Errorf("%w: rows %d", ErrInvalidParams, p.Rows)
	case p.DamagedRowsBeforeError < 0:
		return fmt.Errorf("%w: damaged rows %d", ErrInvalidParams, p.DamagedRowsBeforeError)
	}
	return nil
}

// RowBytes returns the size of one packed output row.
func (p Params) RowBytes() int { return (p.Columns + 7) / 8 }
