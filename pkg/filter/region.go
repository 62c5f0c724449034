package filter

import (
	"fmt"

	"github.com/jdeng/pdfstream/internal/jbig2"
)

// NewGenericRegionStream decodes a JBIG2 generic region described by the
// Width, Height, Template, TPGDON, MMR and AT entries of parms. AT lists
// the adaptive pixels as x, y pairs; without it the nominal positions of
// the template are used. Rows are packed with 1 for black.
func NewGenericRegionStream(data []byte, parms Dict, opts Options) (*Stream, error) {
	g := &jbig2.GenericRegion{
		Width:    parms.getInt("Width", 0),
		Height:   parms.getInt("Height", 0),
		Template: parms.getInt("Template", 0),
		TPGDON:   parms.getBool("TPGDON", false),
		MMR:      parms.getBool("MMR", false),
	}
	g.AT = jbig2.DefaultAT(g.Template)
	if at := parms.getNumbers("AT"); len(at) > 0 {
		if len(at) != 8 {
			return nil, fmt.Errorf("filter: GenericRegion: AT holds %d numbers, need 8", len(at))
		}
		for i := range g.AT {
			g.AT[i] = jbig2.Point{X: int(at[2*i]), Y: int(at[2*i+1])}
		}
	}

	dec, err := g.NewDecoder(data, jbig2.WithLogger(opts.logger()))
	if err != nil {
		return nil, fmt.Errorf("filter: GenericRegion: %w", err)
	}
	s := newStream(dec)
	s.width, s.height, s.bpc = g.Width, g.Height, 1
	return s, nil
}

func newGenericRegion(src []byte, _, parms Dict, opts Options) (*Stream, error) {
	return NewGenericRegionStream(src, parms, opts)
}
