package filter

import (
	"fmt"
	"io"

	"github.com/jdeng/pdfstream/internal/fax"
	"github.com/jdeng/pdfstream/internal/stream"
)

// NewCCITTFaxStream decodes CCITTFaxDecode data from src, configured from
// the K, Columns, Rows, BlackIs1, EndOfBlock, EndOfLine, EncodedByteAlign
// and DamagedRowsBeforeError entries of parms. One row is decoded per
// block.
func NewCCITTFaxStream(src io.ByteReader, parms Dict, opts Options) (*Stream, error) {
	p := fax.DefaultParams()
	p.K = parms.getInt("K", p.K)
	p.Columns = parms.getInt("Columns", p.Columns)
	p.Rows = parms.getInt("Rows", p.Rows)
	p.BlackIs1 = parms.getBool("BlackIs1", p.BlackIs1)
	p.EndOfBlock = parms.getBool("EndOfBlock", p.EndOfBlock)
	p.EndOfLine = parms.getBool("EndOfLine", p.EndOfLine)
	p.EncodedByteAlign = parms.getBool("EncodedByteAlign", p.EncodedByteAlign)
	p.DamagedRowsBeforeError = parms.getInt("DamagedRowsBeforeError", p.DamagedRowsBeforeError)

	dec, err := fax.NewDecoder(src, p, fax.WithLogger(opts.logger()))
	if err != nil {
		return nil, fmt.Errorf("filter: CCITTFaxDecode: %w", err)
	}
	s := newStream(dec)
	s.width, s.height, s.bpc = p.Columns, p.Rows, 1
	s.damaged = dec.Err
	return s, nil
}

func newCCITTFax(src []byte, _, parms Dict, opts Options) (*Stream, error) {
	return NewCCITTFaxStream(stream.NewSource(src), parms, opts)
}
