package main

import (
	"errors"
	"fmt"
	"image"
	"strconv"
	"strings"

	"github.com/jdeng/pdfstream/pkg/filter"
)

// parseParms reads "Key=value,Key=value". Values are booleans, integers,
// reals or space separated number arrays.
func parseParms(s string) (filter.Dict, error) {
	parms := filter.Dict{}
	if strings.TrimSpace(s) == "" {
		return parms, nil
	}
	for _, kv := range strings.Split(s, ",") {
		key, val, ok := strings.Cut(kv, "=")
		key, val = strings.TrimSpace(key), strings.TrimSpace(val)
		if !ok || key == "" {
			return nil, fmt.Errorf("malformed entry %q", kv)
		}
		v, err := parseValue(val)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", key, err)
		}
		parms[key] = v
	}
	return parms, nil
}

func parseValue(val string) (any, error) {
	switch val {
	case "true":
		return true, nil
	case "false":
		return false, nil
	}
	fields := strings.Fields(val)
	if len(fields) > 1 {
		arr := make([]any, len(fields))
		for i, f := range fields {
			v, err := parseNumber(f)
			if err != nil {
				return nil, err
			}
			arr[i] = v
		}
		return arr, nil
	}
	return parseNumber(val)
}

func parseNumber(s string) (any, error) {
	if n, err := strconv.Atoi(s); err == nil {
		return n, nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return nil, fmt.Errorf("not a number: %q", s)
	}
	return f, nil
}

// blackIs1 tells whether set bits of a 1-bit stream are black.
func blackIs1(name string, parms filter.Dict) bool {
	if name == "GenericRegion" {
		return true
	}
	b, _ := parms["BlackIs1"].(bool)
	return b
}

// toImage wraps decoded samples: 1-bit and 8-bit gray, RGB and CMYK.
func toImage(data []byte, width, height, comps, bpc int, blackIs1 bool) (image.Image, error) {
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("invalid image dimensions: %dx%d", width, height)
	}
	rect := image.Rect(0, 0, width, height)

	if bpc == 1 {
		stride := (width + 7) / 8
		if len(data) < stride*height {
			return nil, errors.New("short bitmap data")
		}
		gray := image.NewGray(rect)
		for y := 0; y < height; y++ {
			for x := 0; x < width; x++ {
				bit := data[y*stride+x/8]>>uint(7-x%8)&1 != 0
				if bit != blackIs1 {
					gray.Pix[y*gray.Stride+x] = 255
				}
			}
		}
		return gray, nil
	}

	if len(data) < width*height*comps {
		return nil, errors.New("short sample data")
	}
	switch comps {
	case 1:
		gray := image.NewGray(rect)
		copy(gray.Pix, data)
		return gray, nil
	case 3:
		rgba := image.NewRGBA(rect)
		for i, j := 0, 0; i < width*height*3; i, j = i+3, j+4 {
			rgba.Pix[j], rgba.Pix[j+1], rgba.Pix[j+2], rgba.Pix[j+3] = data[i], data[i+1], data[i+2], 255
		}
		return rgba, nil
	case 4:
		cmyk := image.NewCMYK(rect)
		copy(cmyk.Pix, data)
		return cmyk, nil
	default:
		return nil, fmt.Errorf("unsupported component count %d", comps)
	}
}
