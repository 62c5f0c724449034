package jpeg

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
	"log/slog"
)

type component struct {
	id   byte
	h, v int
	tq   int

	// block grid padded to whole MCUs
	blocksPerLine   int
	blocksPerColumn int
	// blocks covering the component itself, used by non-interleaved scans
	scanBlocksPerLine   int
	scanBlocksPerColumn int

	coeffs []int32 // natural order, not dequantized
	pred   int
	dc, ac *huffTable

	plane []byte // blocksPerLine*8 samples per row
}

// Decoder holds a parsed JPEG image.
type Decoder struct {
	opts Options
	log  *slog.Logger
	data []byte
	pos  int

	width, height int
	comps         []*component
	maxH, maxV    int
	mcusPerLine   int
	mcusPerColumn int
	progressive   bool
	frame         bool

	quant           [4]*[64]int32
	dcTables        [4]*huffTable
	acTables        [4]*huffTable
	restartInterval int

	jfif           bool
	adobe          bool
	adobeTransform int

	r         bitReader
	eobrun    int
	truncated bool
}

// Decode reads all of r and parses it as a JPEG image.
func Decode(r io.Reader, opts Options) (*Decoder, error) {
	data, err := io.ReadAll(r)
	if err != nil && len(data) == 0 {
		return nil, fmt.Errorf("jpeg: reading data: %w", err)
	}
	return Parse(data, opts)
}

// Parse decodes every scan of the JPEG image in data. The returned Decoder
// serves the pixels through GetData.
func Parse(data []byte, opts Options) (*Decoder, error) {
	if len(data) < 2 || data[0] != 0xFF || data[1] != markerSOI {
		return nil, ErrNotJPEG
	}
	d := &Decoder{
		opts: opts,
		log:  opts.Logger,
		data: data,
		pos:  2,
	}
	if d.log == nil {
		d.log = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	copy(d.dcTables[:], defaultDC[:])
	copy(d.acTables[:], defaultAC[:])

	if err := d.parse(); err != nil {
		return nil, err
	}
	if !d.frame {
		return nil, fmt.Errorf("%w: no frame header", ErrFormat)
	}
	d.buildPlanes()
	return d, nil
}

func (d *Decoder) parse() error {
	for {
		m, ok := d.nextMarker()
		if !ok {
			d.log.Debug("jpeg: data ends without EOI")
			return nil
		}
		switch {
		case m == markerEOI:
			return nil
		case m == markerSOI, m >= markerRST0 && m <= markerRST7:
			// no segment
		case m == markerSOF0, m == markerSOF1, m == markerSOF2:
			if err := d.readFrame(m, d.segment(m)); err != nil {
				return err
			}
		case m >= 0xC3 && m <= 0xCF && m != markerDHT && m != markerDAC:
			return fmt.Errorf("%w: SOF%d frame", ErrUnsupported, m-markerSOF0)
		case m == markerDHT:
			d.readDHT(d.segment(m))
		case m == markerDQT:
			d.readDQT(d.segment(m))
		case m == markerDRI:
			if seg := d.segment(m); len(seg) >= 2 {
				d.restartInterval = int(binary.BigEndian.Uint16(seg))
			}
		case m == markerAPP0:
			if seg := d.segment(m); bytes.HasPrefix(seg, []byte("JFIF\x00")) {
				d.jfif = true
			}
		case m == markerAPP14:
			if seg := d.segment(m); len(seg) >= 12 && bytes.HasPrefix(seg, []byte("Adobe")) {
				d.adobe = true
				d.adobeTransform = int(seg[11])
			}
		case m == markerSOS:
			if err := d.readScan(d.segment(m)); err != nil {
				return err
			}
		default:
			seg := d.segment(m)
			d.log.Debug("jpeg: skipping segment", slog.Int("marker", int(m)), slog.Int("length", len(seg)))
		}
	}
}

// nextMarker finds the next marker at or after pos, skipping fill bytes and
// stray data, and positions pos after it.
func (d *Decoder) nextMarker() (byte, bool) {
	start := d.pos
	for i := d.pos; i+1 < len(d.data); i++ {
		if d.data[i] != 0xFF {
			continue
		}
		m := d.data[i+1]
		if m == 0 || m == 0xFF {
			continue
		}
		if i > start {
			d.log.Debug("jpeg: skipped bytes before marker", slog.Int("count", i-start), slog.Int("marker", int(m)))
		}
		d.pos = i + 2
		return m, true
	}
	d.pos = len(d.data)
	return 0, false
}

// segment returns the payload of the segment at pos and moves past it. A
// segment cut off by the end of data is returned short.
func (d *Decoder) segment(m byte) []byte {
	if d.pos+2 > len(d.data) {
		d.pos = len(d.data)
		return nil
	}
	n := int(binary.BigEndian.Uint16(d.data[d.pos:]))
	if n < 2 {
		d.log.Warn("jpeg: bad segment length", slog.Int("marker", int(m)), slog.Int("length", n))
		d.pos += 2
		return nil
	}
	end := min(d.pos+n, len(d.data))
	seg := d.data[d.pos+2 : end]
	if end-d.pos < n {
		d.log.Debug("jpeg: truncated segment", slog.Int("marker", int(m)))
	}
	d.pos = end
	return seg
}

func (d *Decoder) readFrame(m byte, seg []byte) error {
	if d.frame {
		d.log.Warn("jpeg: ignoring second frame header")
		return nil
	}
	if len(seg) < 6 {
		return fmt.Errorf("%w: short frame header", ErrFormat)
	}
	if seg[0] != 8 {
		return fmt.Errorf("%w: %d-bit precision", ErrUnsupported, seg[0])
	}
	height := int(binary.BigEndian.Uint16(seg[1:]))
	width := int(binary.BigEndian.Uint16(seg[3:]))
	nc := int(seg[5])
	if height == 0 {
		height = d.dnlHeight()
		d.log.Debug("jpeg: frame height from DNL", slog.Int("height", height))
	}
	switch {
	case height == 0:
		return fmt.Errorf("%w: zero frame height and no DNL segment", ErrFormat)
	case width == 0:
		return fmt.Errorf("%w: zero frame width", ErrFormat)
	case width*height > MaxPixels:
		return fmt.Errorf("%w: frame of %dx%d pixels is too large", ErrFormat, width, height)
	case nc == 0:
		return fmt.Errorf("%w: no components", ErrFormat)
	case nc > 4:
		return fmt.Errorf("%w: %d components", ErrUnsupported, nc)
	case len(seg) < 6+3*nc:
		return fmt.Errorf("%w: short frame header", ErrFormat)
	}

	d.width, d.height = width, height
	d.progressive = m == markerSOF2
	d.maxH, d.maxV = 1, 1
	for i := 0; i < nc; i++ {
		p := seg[6+3*i:]
		c := &component{id: p[0], h: int(p[1] >> 4), v: int(p[1] & 0x0F), tq: int(p[2])}
		if c.h < 1 || c.h > 4 || c.v < 1 || c.v > 4 {
			return fmt.Errorf("%w: sampling factors %dx%d", ErrFormat, c.h, c.v)
		}
		if c.tq > 3 {
			return fmt.Errorf("%w: quantization table %d", ErrFormat, c.tq)
		}
		d.maxH = max(d.maxH, c.h)
		d.maxV = max(d.maxV, c.v)
		d.comps = append(d.comps, c)
	}

	d.mcusPerLine = ceilDiv(width, 8*d.maxH)
	d.mcusPerColumn = ceilDiv(height, 8*d.maxV)
	for _, c := range d.comps {
		c.scanBlocksPerLine = ceilDiv(ceilDiv(width*c.h, d.maxH), 8)
		c.scanBlocksPerColumn = ceilDiv(ceilDiv(height*c.v, d.maxV), 8)
		c.blocksPerLine = d.mcusPerLine * c.h
		c.blocksPerColumn = d.mcusPerColumn * c.v
		c.coeffs = make([]int32, c.blocksPerLine*c.blocksPerColumn*64)
	}
	d.frame = true
	d.log.Debug("jpeg: frame",
		slog.Int("width", width), slog.Int("height", height),
		slog.Int("components", nc), slog.Bool("progressive", d.progressive))
	return nil
}

// dnlHeight looks past the frame header for the DNL segment that gives the
// height of a frame declared with zero lines. Entropy coded data never holds
// an 0xFF byte followed by the DNL code, so a plain search is enough.
func (d *Decoder) dnlHeight() int {
	for i := d.pos; i+5 < len(d.data); i++ {
		if d.data[i] == 0xFF && d.data[i+1] == markerDNL && d.data[i+2] == 0 && d.data[i+3] == 4 {
			return int(binary.BigEndian.Uint16(d.data[i+4:]))
		}
	}
	return 0
}

func (d *Decoder) readDQT(seg []byte) {
	for len(seg) > 0 {
		pq, tq := seg[0]>>4, int(seg[0]&0x0F)
		size := 64
		if pq != 0 {
			size = 128
		}
		if tq > 3 || len(seg) < 1+size {
			d.log.Warn("jpeg: bad DQT segment", slog.Int("table", tq))
			return
		}
		t := new([64]int32)
		for i := 0; i < 64; i++ {
			if pq != 0 {
				t[zigzag[i]] = int32(binary.BigEndian.Uint16(seg[1+2*i:]))
			} else {
				t[zigzag[i]] = int32(seg[1+i])
			}
		}
		d.quant[tq] = t
		seg = seg[1+size:]
	}
}

func (d *Decoder) readDHT(seg []byte) {
	for len(seg) > 0 {
		if len(seg) < 17 {
			d.log.Warn("jpeg: short DHT segment")
			return
		}
		tc, th := seg[0]>>4, int(seg[0]&0x0F)
		var counts [16]byte
		copy(counts[:], seg[1:17])
		total := 0
		for _, c := range counts {
			total += int(c)
		}
		if len(seg) < 17+total {
			d.log.Warn("jpeg: short DHT segment")
			return
		}
		values := seg[17 : 17+total]
		seg = seg[17+total:]
		if tc > 1 || th > 3 {
			d.log.Warn("jpeg: bad Huffman table slot", slog.Int("class", int(tc)), slog.Int("slot", th))
			continue
		}
		h, err := newHuffTable(&counts, values)
		if err != nil {
			d.log.Warn("jpeg: skipping Huffman table", slog.Any("err", err))
			continue
		}
		if tc == 0 {
			d.dcTables[th] = h
		} else {
			d.acTables[th] = h
		}
	}
}

func (d *Decoder) readScan(seg []byte) error {
	if !d.frame {
		return fmt.Errorf("%w: scan before frame header", ErrFormat)
	}
	if len(seg) < 1 {
		d.log.Warn("jpeg: empty scan header")
		return nil
	}
	ns := int(seg[0])
	if ns < 1 || ns > len(d.comps) || len(seg) < 4+2*ns {
		d.log.Warn("jpeg: bad scan header", slog.Int("components", ns))
		return nil
	}

	comps := make([]*component, 0, ns)
	for i := 0; i < ns; i++ {
		id, sel := seg[1+2*i], seg[2+2*i]
		var c *component
		for _, fc := range d.comps {
			if fc.id == id {
				c = fc
			}
		}
		td, ta := int(sel>>4), int(sel&0x0F)
		if c == nil || td > 3 || ta > 3 {
			d.log.Warn("jpeg: skipping scan with bad component", slog.Int("id", int(id)))
			return nil
		}
		c.dc, c.ac = d.dcTables[td], d.acTables[ta]
		comps = append(comps, c)
	}
	p := seg[1+2*ns:]
	ss, se, ah, al := int(p[0]), int(p[1]), int(p[2]>>4), int(p[2]&0x0F)
	if !d.progressive {
		ss, se, ah, al = 0, 63, 0, 0
	}
	if ss > se || se > 63 || (ss == 0 && se != 0 && d.progressive) || (ss > 0 && ns != 1) {
		d.log.Warn("jpeg: bad spectral selection", slog.Int("ss", ss), slog.Int("se", se))
		return nil
	}

	d.r = bitReader{data: d.data, pos: d.pos}
	d.decodeScan(comps, ss, se, ah, al)
	d.pos = d.r.pos
	return nil
}

func (d *Decoder) buildPlanes() {
	var blk [64]int32
	for _, c := range d.comps {
		q := d.quant[c.tq]
		if q == nil {
			d.log.Warn("jpeg: missing quantization table", slog.Int("table", c.tq))
			q = new([64]int32)
			for i := range q {
				q[i] = 1
			}
		}
		stride := c.blocksPerLine * 8
		c.plane = make([]byte, stride*c.blocksPerColumn*8)
		for row := 0; row < c.blocksPerColumn; row++ {
			for col := 0; col < c.blocksPerLine; col++ {
				coef := c.block(row, col)
				for i := range blk {
					blk[i] = coef[i] * q[i]
				}
				idct(&blk, c.plane[row*8*stride+col*8:], stride)
			}
		}
		c.coeffs = nil
	}
}

func (c *component) block(row, col int) []int32 {
	off := (row*c.blocksPerLine + col) * 64
	return c.coeffs[off : off+64]
}

// Width returns the frame width.
func (d *Decoder) Width() int { return d.width }

// Height returns the frame height.
func (d *Decoder) Height() int { return d.height }

// NumComponents returns the number of colour components of the frame.
func (d *Decoder) NumComponents() int { return len(d.comps) }

// Progressive reports whether the frame is progressive.
func (d *Decoder) Progressive() bool { return d.progressive }

// Adobe returns the transform code of the Adobe APP14 marker, if present.
func (d *Decoder) Adobe() (int, bool) { return d.adobeTransform, d.adobe }

// JFIF reports whether a JFIF APP0 marker was seen.
func (d *Decoder) JFIF() bool { return d.jfif }

// Truncated reports whether a scan ended before all its MCUs were decoded.
func (d *Decoder) Truncated() bool { return d.truncated }

func ceilDiv(a, b int) int { return (a + b - 1) / b }
