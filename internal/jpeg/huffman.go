package jpeg

import "fmt"

// huffTable decodes one DHT table. Codes of up to 8 bits are resolved with
// a single lookup; longer codes walk maxCode per length (F.2.2.3).
type huffTable struct {
	lookup  [256]uint16 // value<<8 | code length, 0 for longer codes
	maxCode [17]int32   // -1 when there is no code of that length
	minCode [17]int32
	valPtr  [17]int32
	values  []byte
}

func newHuffTable(counts *[16]byte, values []byte) (*huffTable, error) {
	total := 0
	for _, c := range counts {
		total += int(c)
	}
	if total == 0 || total > 256 {
		return nil, fmt.Errorf("%w: Huffman table with %d codes", ErrFormat, total)
	}
	if len(values) < total {
		return nil, fmt.Errorf("%w: Huffman table needs %d values, has %d", ErrFormat, total, len(values))
	}

	h := &huffTable{values: append([]byte(nil), values[:total]...)}
	code, k := 0, 0
	for l := 1; l <= 16; l++ {
		n := int(counts[l-1])
		h.minCode[l] = int32(code)
		h.valPtr[l] = int32(k)
		h.maxCode[l] = -1
		if n > 0 {
			if code+n > 1<<uint(l) {
				return nil, fmt.Errorf("%w: over-subscribed Huffman table", ErrFormat)
			}
			if l <= 8 {
				shift := uint(8 - l)
				for i := 0; i < n; i++ {
					e := uint16(h.values[k+i])<<8 | uint16(l)
					base := (code + i) << shift
					for j := 0; j < 1<<shift; j++ {
						h.lookup[base+j] = e
					}
				}
			}
			code += n
			k += n
			h.maxCode[l] = int32(code - 1)
		}
		code <<= 1
	}
	return h, nil
}

// Tables K.3 to K.6, used for slots 0 and 1 when a scan starts without a
// DHT segment for them.
var (
	defaultDCLumaCounts = [16]byte{0, 1, 5, 1, 1, 1, 1, 1, 1, 0, 0, 0, 0, 0, 0, 0}
	defaultDCLumaValues = []byte{0, 1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11}

	defaultDCChromaCounts = [16]byte{0, 3, 1, 1, 1, 1, 1, 1, 1, 1, 1, 0, 0, 0, 0, 0}
	defaultDCChromaValues = []byte{0, 1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11}

	defaultACLumaCounts = [16]byte{0, 2, 1, 3, 3, 2, 4, 3, 5, 5, 4, 4, 0, 0, 1, 125}
	defaultACLumaValues = []byte{
		0x01, 0x02, 0x03, 0x00, 0x04, 0x11, 0x05, 0x12, 0x21, 0x31, 0x41, 0x06, 0x13, 0x51, 0x61, 0x07,
		0x22, 0x71, 0x14, 0x32, 0x81, 0x91, 0xa1, 0x08, 0x23, 0x42, 0xb1, 0xc1, 0x15, 0x52, 0xd1, 0xf0,
		0x24, 0x33, 0x62, 0x72, 0x82, 0x09, 0x0a, 0x16, 0x17, 0x18, 0x19, 0x1a, 0x25, 0x26, 0x27, 0x28,
		0x29, 0x2a, 0x34, 0x35, 0x36, 0x37, 0x38, 0x39, 0x3a, 0x43, 0x44, 0x45, 0x46, 0x47, 0x48, 0x49,
		0x4a, 0x53, 0x54, 0x55, 0x56, 0x57, 0x58, 0x59, 0x5a, 0x63, 0x64, 0x65, 0x66, 0x67, 0x68, 0x69,
		0x6a, 0x73, 0x74, 0x75, 0x76, 0x77, 0x78, 0x79, 0x7a, 0x83, 0x84, 0x85, 0x86, 0x87, 0x88, 0x89,
		0x8a, 0x92, 0x93, 0x94, 0x95, 0x96, 0x97, 0x98, 0x99, 0x9a, 0xa2, 0xa3, 0xa4, 0xa5, 0xa6, 0xa7,
		0xa8, 0xa9, 0xaa, 0xb2, 0xb3, 0xb4, 0xb5, 0xb6, 0xb7, 0xb8, 0xb9, 0xba, 0xc2, 0xc3, 0xc4, 0xc5,
		0xc6, 0xc7, 0xc8, 0xc9, 0xca, 0xd2, 0xd3, 0xd4, 0xd5, 0xd6, 0xd7, 0xd8, 0xd9, 0xda, 0xe1, 0xe2,
		0xe3, 0xe4, 0xe5, 0xe6, 0xe7, 0xe8, 0xe9, 0xea, 0xf1, 0xf2, 0xf3, 0xf4, 0xf5, 0xf6, 0xf7, 0xf8,
		0xf9, 0xfa,
	}

	defaultACChromaCounts = [16]byte{0, 2, 1, 2, 4, 4, 3, 4, 7, 5, 4, 4, 0, 1, 2, 119}
	defaultACChromaValues = []byte{
		0x00, 0x01, 0x02, 0x03, 0x11, 0x04, 0x05, 0x21, 0x31, 0x06, 0x12, 0x41, 0x51, 0x07, 0x61, 0x71,
		0x13, 0x22, 0x32, 0x81, 0x08, 0x14, 0x42, 0x91, 0xa1, 0xb1, 0xc1, 0x09, 0x23, 0x33, 0x52, 0xf0,
		0x15, 0x62, 0x72, 0xd1, 0x0a, 0x16, 0x24, 0x34, 0xe1, 0x25, 0xf1, 0x17, 0x18, 0x19, 0x1a, 0x26,
		0x27, 0x28, 0x29, 0x2a, 0x35, 0x36, 0x37, 0x38, 0x39, 0x3a, 0x43, 0x44, 0x45, 0x46, 0x47, 0x48,
		0x49, 0x4a, 0x53, 0x54, 0x55, 0x56, 0x57, 0x58, 0x59, 0x5a, 0x63, 0x64, 0x65, 0x66, 0x67, 0x68,
		0x69, 0x6a, 0x73, 0x74, 0x75, 0x76, 0x77, 0x78, 0x79, 0x7a, 0x82, 0x83, 0x84, 0x85, 0x86, 0x87,
		0x88, 0x89, 0x8a, 0x92, 0x93, 0x94, 0x95, 0x96, 0x97, 0x98, 0x99, 0x9a, 0xa2, 0xa3, 0xa4, 0xa5,
		0xa6, 0xa7, 0xa8, 0xa9, 0xaa, 0xb2, 0xb3, 0xb4, 0xb5, 0xb6, 0xb7, 0xb8, 0xb9, 0xba, 0xc2, 0xc3,
		0xc4, 0xc5, 0xc6, 0xc7, 0xc8, 0xc9, 0xca, 0xd2, 0xd3, 0xd4, 0xd5, 0xd6, 0xd7, 0xd8, 0xd9, 0xda,
		0xe2, 0xe3, 0xe4, 0xe5, 0xe6, 0xe7, 0xe8, 0xe9, 0xea, 0xf2, 0xf3, 0xf4, 0xf5, 0xf6, 0xf7, 0xf8,
		0xf9, 0xfa,
	}
)

var defaultDC, defaultAC [2]*huffTable

func init() {
	defaultDC[0] = mustHuffTable(&defaultDCLumaCounts, defaultDCLumaValues)
	defaultDC[1] = mustHuffTable(&defaultDCChromaCounts, defaultDCChromaValues)
	defaultAC[0] = mustHuffTable(&defaultACLumaCounts, defaultACLumaValues)
	defaultAC[1] = mustHuffTable(&defaultACChromaCounts, defaultACChromaValues)
}

func mustHuffTable(counts *[16]byte, values []byte) *huffTable {
	h, err := newHuffTable(counts, values)
	if err != nil {
		panic(err)
	}
	return h
}
