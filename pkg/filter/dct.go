package filter

import (
	"bytes"
	"fmt"
	"io"
	"log/slog"

	"github.com/jdeng/pdfstream/internal/jpeg"
	"github.com/jdeng/pdfstream/internal/stream"
)

// DCTOptions configures a DCTDecode stream.
type DCTOptions struct {
	Options
	// DrawWidth and DrawHeight give the output size. Zero takes the
	// dictionary's Width and Height, then the size of the frame.
	DrawWidth  int
	DrawHeight int
	// ForceRGB converts gray and CMYK output to RGB, applying the
	// dictionary's Decode array on the way.
	ForceRGB bool
}

type dctDecoder struct {
	s     *Stream
	src   io.Reader
	dict  Dict
	parms Dict
	opts  DCTOptions
	jpeg  *jpeg.Decoder
}

// NewDCTStream decodes DCTDecode data read from src. The whole image is
// decoded by the first read; a malformed frame is reported by that read
// and by Err.
func NewDCTStream(src io.Reader, dict, parms Dict, opts DCTOptions) *Stream {
	d := &dctDecoder{src: src, dict: dict, parms: parms, opts: opts}
	s := newStream(d)
	d.s = s
	s.width = firstPositive(opts.DrawWidth, dict.getInt("Width", 0))
	s.height = firstPositive(opts.DrawHeight, dict.getInt("Height", 0))
	s.damaged = func() bool { return d.jpeg != nil && d.jpeg.Truncated() }
	return s
}

func newDCT(src []byte, dict, parms Dict, opts Options) (*Stream, error) {
	return NewDCTStream(bytes.NewReader(src), dict, parms, DCTOptions{Options: opts}), nil
}

func firstPositive(vals ...int) int {
	for _, v := range vals {
		if v > 0 {
			return v
		}
	}
	return 0
}

// jpegOptions maps the dictionaries to decoder options. The Decode array is
// folded into the conversion only when RGB output is forced.
func (d *dctDecoder) jpegOptions() jpeg.Options {
	opts := jpeg.Options{Logger: d.opts.logger()}
	if decode := d.dict.getNumbers("Decode"); d.opts.ForceRGB && len(decode) > 0 {
		bpc := d.dict.getInt("BitsPerComponent", 8)
		maxValue := float64(int(1)<<uint(bpc) - 1)
		transform := make([]int32, len(decode)&^1)
		needed := false
		for i := 0; i+1 < len(decode); i += 2 {
			transform[i] = int32((decode[i+1] - decode[i]) * 256)
			transform[i+1] = int32(decode[i] * maxValue)
			if transform[i] != 256 || transform[i+1] != 0 {
				needed = true
			}
		}
		if needed {
			opts.DecodeTransform = transform
		}
	}
	if v, ok := d.parms.lookup("ColorTransform"); ok {
		if ct, ok := toInt(v); ok {
			opts.ColorTransform = &ct
		}
	}
	return opts
}

func (d *dctDecoder) ReadBlock(b *stream.Buffer) error {
	data, err := io.ReadAll(d.src)
	if err != nil {
		return fmt.Errorf("filter: DCTDecode: %w", err)
	}
	// some producers write junk before the SOI marker
	if i := bytes.Index(data, []byte{0xFF, 0xD8}); i > 0 {
		d.opts.logger().Debug("filter: skipping bytes before SOI", slog.Int("count", i))
		data = data[i:]
	}

	dec, err := jpeg.Parse(data, d.jpegOptions())
	if err != nil {
		return fmt.Errorf("filter: DCTDecode: %w", err)
	}
	d.jpeg = dec

	s := d.s
	s.width = firstPositive(s.width, dec.Width())
	s.height = firstPositive(s.height, dec.Height())
	s.components = dec.NumComponents()
	if d.opts.ForceRGB {
		s.components = 3
	}
	out, err := dec.GetData(s.width, s.height, d.opts.ForceRGB, true)
	if err != nil {
		return fmt.Errorf("filter: DCTDecode: %w", err)
	}
	b.Append(out)
	b.SetEOF()
	return nil
}
