// Command mkfixtures writes sample CCITT, DCT and JBIG2 generic region
// streams, together with the streamdec command line that decodes each.
package main

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"image/jpeg"
	"os"
	"path/filepath"

	"github.com/jdeng/pdfstream/internal/fax"
	"github.com/jdeng/pdfstream/internal/jbig2"
)

const (
	pageWidth  = 200
	pageHeight = 120
)

type fixture struct {
	name   string
	filter string
	parms  string
	data   func() ([]byte, error)
}

var fixtures = []fixture{
	{"g4.ccitt", "CCITTFaxDecode", "K=-1,Columns=200,Rows=120", func() ([]byte, error) {
		return encodeFax(fax.Params{K: -1, Columns: pageWidth, Rows: pageHeight, EndOfBlock: true})
	}},
	{"g3-eol.ccitt", "CCITTFaxDecode", "K=0,Columns=200,EndOfLine=true,EncodedByteAlign=true", func() ([]byte, error) {
		return encodeFax(fax.Params{K: 0, Columns: pageWidth, EndOfLine: true, EncodedByteAlign: true, EndOfBlock: true})
	}},
	{"g3-2d.ccitt", "CCITTFaxDecode", "K=4,Columns=200,Rows=120,BlackIs1=true,EndOfBlock=false", func() ([]byte, error) {
		return encodeFax(fax.Params{K: 4, Columns: pageWidth, Rows: pageHeight, BlackIs1: true})
	}},
	{"gradient.jpg", "DCTDecode", "", encodeJPEG},
	{"template0.jb2", "GenericRegion", "Width=200,Height=120,Template=0,TPGDON=true", func() ([]byte, error) {
		g := &jbig2.GenericRegion{Width: pageWidth, Height: pageHeight, Template: 0, TPGDON: true, AT: jbig2.DefaultAT(0)}
		return g.Encode(drawPage())
	}},
	{"template3.jb2", "GenericRegion", "Width=200,Height=120,Template=3,AT=-2 -1 0 0 0 0 0 0", func() ([]byte, error) {
		g := &jbig2.GenericRegion{Width: pageWidth, Height: pageHeight, Template: 3, AT: [4]jbig2.Point{{X: -2, Y: -1}}}
		return g.Encode(drawPage())
	}},
	{"mmr.jb2", "GenericRegion", "Width=200,Height=120,MMR=true", func() ([]byte, error) {
		g := &jbig2.GenericRegion{Width: pageWidth, Height: pageHeight, MMR: true}
		return g.Encode(drawPage())
	}},
}

// drawPage draws a ring and a few lines of "text" bars, 1 = black.
func drawPage() *jbig2.Bitmap {
	bm := jbig2.NewBitmap(pageWidth, pageHeight)
	for y := 0; y < pageHeight; y++ {
		for x := 0; x < pageWidth; x++ {
			dx, dy := x-50, y-60
			if r := dx*dx + dy*dy; r >= 30*30 && r <= 38*38 {
				bm.SetPixel(x, y, 1)
			}
		}
	}
	for line := 0; line < 6; line++ {
		top := 20 + line*15
		for word := 0; word < 5; word++ {
			left := 100 + word*19 + line%3
			for y := top; y < top+7; y++ {
				for x := left; x < left+14-(word+line)%5; x++ {
					bm.SetPixel(x, y, 1)
				}
			}
		}
	}
	return bm
}

func encodeFax(p fax.Params) ([]byte, error) {
	bm := drawPage()
	img := bm.Data()
	if !p.BlackIs1 {
		bm.Invert()
	}
	return fax.Encode(img, p)
}

func encodeJPEG() ([]byte, error) {
	img := image.NewRGBA(image.Rect(0, 0, pageWidth, pageHeight))
	for y := 0; y < pageHeight; y++ {
		for x := 0; x < pageWidth; x++ {
			img.Set(x, y, color.RGBA{R: uint8(x * 255 / pageWidth), G: uint8(y * 255 / pageHeight), B: 128, A: 255})
		}
	}
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: 90}); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func main() {
	if len(os.Args) != 2 {
		fmt.Println("Usage: mkfixtures <output-dir>")
		os.Exit(1)
	}

	dir := os.Args[1]
	if err := os.MkdirAll(dir, 0o755); err != nil {
		fmt.Printf("Error creating output directory: %v\n", err)
		os.Exit(1)
	}
	for _, f := range fixtures {
		data, err := f.data()
		if err != nil {
			fmt.Printf("Error encoding %s: %v\n", f.name, err)
			os.Exit(1)
		}
		path := filepath.Join(dir, f.name)
		if err := os.WriteFile(path, data, 0o644); err != nil {
			fmt.Printf("Error writing %s: %v\n", path, err)
			os.Exit(1)
		}
		fmt.Printf("Created %s (%d bytes): streamdec -input %s -filter %s", path, len(data), path, f.filter)
		if f.parms != "" {
			fmt.Printf(" -parms %q", f.parms)
		}
		fmt.Println()
	}
}
