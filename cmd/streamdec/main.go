// Command streamdec decodes a raw CCITTFaxDecode, DCTDecode or JBIG2
// generic region stream, as extracted from a PDF file, into an image file.
package main

import (
	"bytes"
	"flag"
	"fmt"
	"image"
	"image/png"
	"io"
	"log"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/image/bmp"
	"golang.org/x/image/tiff"
	"golang.org/x/term"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/jdeng/pdfstream/pkg/filter"
)

func main() {
	var inputFile = flag.String("input", "", "Input stream file")
	var filterName = flag.String("filter", "", "PDF filter name: CCITTFaxDecode, DCTDecode or GenericRegion (defaults from the input extension)")
	var parmsFlag = flag.String("parms", "", "Decode parameters, e.g. \"K=-1,Columns=1728,BlackIs1=true\"; arrays are space separated")
	var outputFile = flag.String("output", "", "Output image (optional, defaults to input filename with .png extension, - for stdout)")
	var format = flag.String("format", "", "Output format: png, tiff or bmp (defaults from the output extension)")
	var width = flag.Int("width", 0, "DCT output width (defaults to the frame width)")
	var height = flag.Int("height", 0, "DCT output height (defaults to the frame height)")
	var forceRGB = flag.Bool("rgb", false, "Convert DCT output to RGB")
	var verbose = flag.Bool("v", false, "Log decoder diagnostics to stderr")
	flag.Parse()

	if *inputFile == "" {
		log.Fatal("Input file is required. Use -input flag.")
	}
	name := *filterName
	if name == "" {
		name = filterForExt(filepath.Ext(*inputFile))
	}
	parms, err := parseParms(*parmsFlag)
	if err != nil {
		log.Fatalf("Invalid -parms: %v", err)
	}

	data, err := os.ReadFile(*inputFile)
	if err != nil {
		log.Fatalf("Failed to read input file: %v", err)
	}

	opts := filter.Options{}
	if *verbose {
		opts.Logger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelDebug}))
	}

	var s *filter.Stream
	if name == "DCTDecode" || name == "DCT" {
		// a Decode array given with -parms belongs to the image dictionary
		dict := filter.Dict{}
		if decode, ok := parms["Decode"]; ok {
			dict["Decode"] = decode
		}
		dopts := filter.DCTOptions{Options: opts, DrawWidth: *width, DrawHeight: *height, ForceRGB: *forceRGB}
		s = filter.NewDCTStream(bytes.NewReader(data), dict, parms, dopts)
	} else {
		s, err = filter.Decode(name, data, nil, parms, opts)
		if err != nil {
			log.Fatalf("Failed to create %s stream: %v", name, err)
		}
	}

	samples, err := io.ReadAll(s)
	if err != nil {
		log.Fatalf("Failed to decode %s stream: %v", name, err)
	}
	if s.Damaged() {
		log.Printf("Warning: %s data is damaged or truncated", name)
	}

	img, err := toImage(samples, s.Width(), s.Height(), s.Components(), s.BitsPerComponent(), blackIs1(name, parms))
	if err != nil {
		log.Fatalf("Failed to build image: %v", err)
	}

	output := *outputFile
	if output == "" {
		ext := filepath.Ext(*inputFile)
		output = (*inputFile)[:len(*inputFile)-len(ext)] + ".png"
	}
	f := *format
	if f == "" {
		f = strings.TrimPrefix(strings.ToLower(filepath.Ext(output)), ".")
	}

	var w io.Writer
	if output == "-" {
		if term.IsTerminal(int(os.Stdout.Fd())) {
			log.Fatal("Refusing to write image data to a terminal")
		}
		w = os.Stdout
	} else {
		file, err := os.Create(output)
		if err != nil {
			log.Fatalf("Failed to create output file: %v", err)
		}
		defer file.Close()
		w = file
	}
	if err := encode(w, img, f); err != nil {
		log.Fatalf("Failed to encode %s: %v", f, err)
	}

	p := message.NewPrinter(language.English)
	p.Fprintf(os.Stderr, "Decoded %d bytes of %s data into %d bytes (%s)\n", len(data), name, len(samples), s.Status())
	p.Fprintf(os.Stderr, "Image size: %dx%d pixels, %d components\n", img.Bounds().Dx(), img.Bounds().Dy(), s.Components())
}

func filterForExt(ext string) string {
	switch strings.ToLower(ext) {
	case ".jpg", ".jpeg", ".dct":
		return "DCTDecode"
	case ".jb2", ".jbig2", ".gr":
		return "GenericRegion"
	default:
		return "CCITTFaxDecode"
	}
}

func encode(w io.Writer, img image.Image, format string) error {
	switch format {
	case "png", "":
		return png.Encode(w, img)
	case "tif", "tiff":
		return tiff.Encode(w, img, &tiff.Options{Compression: tiff.Deflate})
	case "bmp":
		return bmp.Encode(w, img)
	default:
		return fmt.Errorf("unknown format %q", format)
	}
}
