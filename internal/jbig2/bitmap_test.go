package jbig2

import (
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestBitmapEmpty(t *testing.T) {
	bm := NewBitmap(0, 0)

	if bm.Width() != 0 {
		t.Errorf("Expected width 0, got %d", bm.Width())
	}
	if bm.Height() != 0 {
		t.Errorf("Expected height 0, got %d", bm.Height())
	}

	// every access is a no-op
	bm.SetPixel(0, 0, 1)
	bm.CopyRow(0, 1)
	bm.Fill(true)
	bm.Invert()
	if pixel := bm.Pixel(0, 0); pixel != 0 {
		t.Errorf("Expected pixel (0,0) to be 0, got %d", pixel)
	}
	if row := bm.Row(0); row != nil {
		t.Errorf("Expected nil row, got %v", row)
	}
}

func TestBitmapTooBig(t *testing.T) {
	bm := NewBitmap(80, MaxBitmapSize+1)
	if bm.Width() != 0 || bm.Data() != nil {
		t.Errorf("Expected empty bitmap, got %dx%d", bm.Width(), bm.Height())
	}
}

func TestBitmapPixels(t *testing.T) {
	width, height := 21, 5
	bm := NewBitmap(width, height)

	if bm.Stride() != 3 {
		t.Errorf("Expected stride 3, got %d", bm.Stride())
	}
	if len(bm.Data()) != 15 {
		t.Errorf("Expected 15 bytes, got %d", len(bm.Data()))
	}

	bm.SetPixel(0, 0, 1)
	bm.SetPixel(width-1, height-1, 1)
	bm.SetPixel(9, 2, 1)
	bm.SetPixel(-1, 0, 1)
	bm.SetPixel(width, 0, 1)

	if pixel := bm.Pixel(0, 0); pixel != 1 {
		t.Errorf("Expected pixel (0,0) to be 1, got %d", pixel)
	}
	if pixel := bm.Pixel(width-1, height-1); pixel != 1 {
		t.Errorf("Expected pixel (%d,%d) to be 1, got %d", width-1, height-1, pixel)
	}
	if pixel := bm.Pixel(-1, -1); pixel != 0 {
		t.Errorf("Expected out-of-bounds pixel to be 0, got %d", pixel)
	}
	if diff := cmp.Diff([]byte{0x00, 0x40, 0x00}, bm.Row(2)); diff != "" {
		t.Errorf("row 2 mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]byte{0x80, 0x00, 0x00}, bm.Row(0)); diff != "" {
		t.Errorf("row 0 mismatch (-want +got):\n%s", diff)
	}

	bm.SetPixel(0, 0, 0)
	if pixel := bm.Pixel(0, 0); pixel != 0 {
		t.Errorf("Expected pixel (0,0) to be cleared, got %d", pixel)
	}
}

func TestBitmapCopyRow(t *testing.T) {
	bm := NewBitmap(16, 3)
	bm.SetPixel(3, 0, 1)
	bm.SetPixel(12, 0, 1)
	bm.SetPixel(5, 2, 1)

	bm.CopyRow(1, 0)
	if diff := cmp.Diff(bm.Row(0), bm.Row(1)); diff != "" {
		t.Errorf("copied row mismatch (-want +got):\n%s", diff)
	}

	// a missing source clears the destination
	bm.CopyRow(2, -1)
	if diff := cmp.Diff([]byte{0, 0}, bm.Row(2)); diff != "" {
		t.Errorf("cleared row mismatch (-want +got):\n%s", diff)
	}
}

func TestBitmapFillKeepsPadBitsClear(t *testing.T) {
	bm := NewBitmap(10, 2)
	bm.Fill(true)
	if diff := cmp.Diff([]byte{0xFF, 0xC0, 0xFF, 0xC0}, bm.Data()); diff != "" {
		t.Errorf("filled data mismatch (-want +got):\n%s", diff)
	}

	bm.SetPixel(0, 1, 0)
	bm.Invert()
	if diff := cmp.Diff([]byte{0x00, 0x00, 0x80, 0x00}, bm.Data()); diff != "" {
		t.Errorf("inverted data mismatch (-want +got):\n%s", diff)
	}

	bm.Fill(false)
	if diff := cmp.Diff([]byte{0, 0, 0, 0}, bm.Data()); diff != "" {
		t.Errorf("cleared data mismatch (-want +got):\n%s", diff)
	}
}
