package jpeg

import "log/slog"

type blockRef struct {
	c    *component
	coef []int32
}

type blockFunc func(c *component, coef []int32)

// decodeScan decodes the entropy coded segment of one scan. Sequential scans
// decode each MCU into scratch blocks and store them only once the whole MCU
// was read, so a scan cut short keeps its last complete MCU.
func (d *Decoder) decodeScan(comps []*component, ss, se, ah, al int) {
	defer func() {
		if e := recover(); e != nil {
			de, ok := e.(decodeError)
			if !ok {
				panic(e)
			}
			d.truncated = true
			d.log.Debug("jpeg: scan ended early", slog.Any("err", de.error))
		}
	}()

	for _, c := range comps {
		c.pred = 0
	}
	d.eobrun = 0

	var decode blockFunc
	switch {
	case !d.progressive:
		decode = d.decodeBaseline
	case ss == 0 && ah == 0:
		decode = func(c *component, coef []int32) { d.decodeDCFirst(c, coef, al) }
	case ss == 0:
		decode = func(c *component, coef []int32) { d.decodeDCRefine(coef, al) }
	case ah == 0:
		decode = func(c *component, coef []int32) { d.decodeACFirst(c, coef, ss, se, al) }
	default:
		decode = func(c *component, coef []int32) { d.decodeACRefine(c, coef, ss, se, al) }
	}
	for _, c := range comps {
		if (ss == 0 && ah == 0 && c.dc == nil) || (se > 0 && c.ac == nil) {
			d.log.Warn("jpeg: scan uses an undefined Huffman table", slog.Int("id", int(c.id)))
			return
		}
	}

	single := len(comps) == 1
	total := d.mcusPerLine * d.mcusPerColumn
	if single {
		total = comps[0].scanBlocksPerLine * comps[0].scanBlocksPerColumn
	}

	var refs []blockRef
	var scratch [][64]int32
	for mcu := 0; mcu < total; {
		for n := 0; mcu < total && (d.restartInterval == 0 || n < d.restartInterval); n++ {
			refs = d.mcuBlocks(refs[:0], comps, mcu, single)
			if d.progressive {
				for _, b := range refs {
					decode(b.c, b.coef)
				}
			} else {
				if len(scratch) < len(refs) {
					scratch = make([][64]int32, len(refs))
				}
				for i, b := range refs {
					scratch[i] = [64]int32{}
					decode(b.c, scratch[i][:])
				}
				for i, b := range refs {
					copy(b.coef, scratch[i][:])
				}
			}
			mcu++
		}
		if mcu >= total {
			break
		}

		m, ok := d.r.restart()
		if !ok {
			d.truncated = true
			d.log.Debug("jpeg: missing restart marker", slog.Int("mcu", mcu), slog.Int("marker", int(m)))
			return
		}
		for _, c := range comps {
			c.pred = 0
		}
		d.eobrun = 0
	}
}

func (d *Decoder) mcuBlocks(refs []blockRef, comps []*component, mcu int, single bool) []blockRef {
	if single {
		c := comps[0]
		row, col := mcu/c.scanBlocksPerLine, mcu%c.scanBlocksPerLine
		return append(refs, blockRef{c, c.block(row, col)})
	}
	mcuRow, mcuCol := mcu/d.mcusPerLine, mcu%d.mcusPerLine
	for _, c := range comps {
		for v := 0; v < c.v; v++ {
			for h := 0; h < c.h; h++ {
				refs = append(refs, blockRef{c, c.block(mcuRow*c.v+v, mcuCol*c.h+h)})
			}
		}
	}
	return refs
}

func (d *Decoder) decodeBaseline(c *component, coef []int32) {
	t := int(d.r.decodeHuffman(c.dc))
	c.pred += d.r.receiveExtend(t)
	coef[0] = int32(c.pred)

	for k := 1; k < 64; {
		rs := d.r.decodeHuffman(c.ac)
		r, s := int(rs>>4), int(rs&0x0F)
		if s == 0 {
			if r < 15 {
				break
			}
			k += 16
			continue
		}
		k += r
		if k > 63 {
			fail("coefficient index %d", k)
		}
		coef[zigzag[k]] = int32(d.r.receiveExtend(s))
		k++
	}
}

func (d *Decoder) decodeDCFirst(c *component, coef []int32, al int) {
	t := int(d.r.decodeHuffman(c.dc))
	c.pred += d.r.receiveExtend(t)
	coef[0] = int32(c.pred) << uint(al)
}

func (d *Decoder) decodeDCRefine(coef []int32, al int) {
	if d.r.bit() != 0 {
		coef[0] |= 1 << uint(al)
	}
}

func (d *Decoder) decodeACFirst(c *component, coef []int32, ss, se, al int) {
	if d.eobrun > 0 {
		d.eobrun--
		return
	}
	for k := ss; k <= se; {
		rs := d.r.decodeHuffman(c.ac)
		r, s := int(rs>>4), int(rs&0x0F)
		if s == 0 {
			if r < 15 {
				d.eobrun = 1<<uint(r) - 1
				if r > 0 {
					d.eobrun += d.r.bits(r)
				}
				return
			}
			k += 16
			continue
		}
		k += r
		if k > se {
			fail("coefficient index %d past %d", k, se)
		}
		coef[zigzag[k]] = int32(d.r.receiveExtend(s)) * (1 << uint(al))
		k++
	}
}

func (d *Decoder) decodeACRefine(c *component, coef []int32, ss, se, al int) {
	delta := int32(1) << uint(al)
	k := ss
	if d.eobrun == 0 {
	loop:
		for ; k <= se; k++ {
			rs := d.r.decodeHuffman(c.ac)
			r, s := int(rs>>4), int(rs&0x0F)
			var z int32
			switch s {
			case 0:
				if r < 15 {
					d.eobrun = 1 << uint(r)
					if r > 0 {
						d.eobrun += d.r.bits(r)
					}
					break loop
				}
			case 1:
				z = delta
				if d.r.bit() == 0 {
					z = -delta
				}
			default:
				fail("refinement magnitude %d", s)
			}

			k = d.refineNonZeros(coef, k, se, r, delta)
			if k > se {
				fail("too many coefficients")
			}
			if z != 0 {
				coef[zigzag[k]] = z
			}
		}
	}
	if d.eobrun > 0 {
		d.eobrun--
		d.refineNonZeros(coef, k, se, -1, delta)
	}
}

// refineNonZeros adds a correction bit to every non-zero coefficient from
// k on, stopping at the (nz+1)-th zero coefficient, whose index it returns.
func (d *Decoder) refineNonZeros(coef []int32, k, se, nz int, delta int32) int {
	for ; k <= se; k++ {
		u := zigzag[k]
		if coef[u] == 0 {
			if nz == 0 {
				break
			}
			nz--
			continue
		}
		if d.r.bit() == 0 {
			continue
		}
		if coef[u] >= 0 {
			coef[u] += delta
		} else {
			coef[u] -= delta
		}
	}
	return k
}
