package main

import (
	"strconv"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/jdeng/pdfstream/pkg/filter"
)

// parms converts a fixture's parameter string; it only needs the value
// forms the fixtures use.
func parms(t *testing.T, s string) filter.Dict {
	t.Helper()
	d := filter.Dict{}
	if s == "" {
		return d
	}
	for _, kv := range strings.Split(s, ",") {
		key, val, _ := strings.Cut(kv, "=")
		switch fields := strings.Fields(val); {
		case val == "true" || val == "false":
			d[key] = val == "true"
		case len(fields) > 1:
			arr := make([]any, len(fields))
			for i, f := range fields {
				n, err := strconv.Atoi(f)
				if err != nil {
					t.Fatalf("bad array entry %q", f)
				}
				arr[i] = n
			}
			d[key] = arr
		default:
			n, err := strconv.Atoi(val)
			if err != nil {
				t.Fatalf("bad value %q", val)
			}
			d[key] = n
		}
	}
	return d
}

func TestFixturesDecode(t *testing.T) {
	black := drawPage()
	white := drawPage()
	white.Invert()

	for _, f := range fixtures {
		t.Run(f.name, func(t *testing.T) {
			data, err := f.data()
			if err != nil {
				t.Fatalf("encoding failed: %v", err)
			}
			p := parms(t, f.parms)
			s, err := filter.Decode(f.filter, data, nil, p, filter.Options{})
			if err != nil {
				t.Fatalf("Decode failed: %v", err)
			}
			got := s.GetBytes(0)
			if s.Err() != nil || s.Damaged() {
				t.Fatalf("unexpected decoding trouble: err=%v damaged=%v", s.Err(), s.Damaged())
			}
			if s.Width() != pageWidth || s.Height() != pageHeight {
				t.Errorf("Expected %dx%d, got %dx%d", pageWidth, pageHeight, s.Width(), s.Height())
			}

			var want []byte
			switch {
			case f.filter == "DCTDecode":
				if len(got) != pageWidth*pageHeight*3 {
					t.Errorf("Expected %d samples, got %d", pageWidth*pageHeight*3, len(got))
				}
				return
			case f.filter == "GenericRegion", p["BlackIs1"] == true:
				want = black.Data()
			default:
				want = white.Data()
			}
			if diff := cmp.Diff(want, got); diff != "" {
				t.Errorf("decoded page mismatch (-want +got):\n%s", diff)
			}
		})
	}
}
