package fax

// oneLeadPos maps byte values to the position of the leading 1 bit.
var oneLeadPos = [256]uint8{
	8, 7, 6, 6, 5, 5, 5, 5, 4, 4, 4, 4, 4, 4, 4, 4, 3, 3, 3, 3, 3, 3, 3, 3,
	3, 3, 3, 3, 3, 3, 3, 3, 2, 2, 2, 2, 2, 2, 2, 2, 2, 2, 2, 2, 2, 2, 2, 2,
	2, 2, 2, 2, 2, 2, 2, 2, 2, 2, 2, 2, 2, 2, 2, 2, 1, 1, 1, 1, 1, 1, 1, 1,
	1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1,
	1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1,
	1, 1, 1, 1, 1, 1, 1, 1, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0,
	0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0,
	0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0,
	0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0,
	0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0,
	0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0,
}

// findBit returns the first position at or after startPos whose bit equals
// bit, or maxPos if there is none.
func findBit(row []byte, maxPos, startPos int, bit bool) int {
	if startPos >= maxPos {
		return maxPos
	}

	var flip byte
	if !bit {
		flip = 0xFF
	}

	if off := startPos % 8; off != 0 {
		bytePos := startPos / 8
		data := (row[bytePos] ^ flip) & (0xFF >> off)
		if data != 0 {
			return min(bytePos*8+int(oneLeadPos[data]), maxPos)
		}
		startPos += 8 - off
	}

	maxByte := (maxPos + 7) / 8
	for bytePos := startPos / 8; bytePos < maxByte; bytePos++ {
		if data := row[bytePos] ^ flip; data != 0 {
			return min(bytePos*8+int(oneLeadPos[data]), maxPos)
		}
	}
	return maxPos
}

// clearBits sets the bits [startPos, endPos) of row to zero.
func clearBits(row []byte, columns, startPos, endPos int) {
	startPos = max(startPos, 0)
	endPos = min(endPos, columns)
	if startPos >= endPos {
		return
	}

	firstByte := startPos / 8
	lastByte := (endPos - 1) / 8

	if firstByte == lastByte {
		for i := startPos % 8; i <= (endPos-1)%8; i++ {
			row[firstByte] &^= 1 << (7 - i)
		}
		return
	}

	for i := startPos % 8; i < 8; i++ {
		row[firstByte] &^= 1 << (7 - i)
	}
	for i := 0; i <= (endPos-1)%8; i++ {
		row[lastByte] &^= 1 << (7 - i)
	}
	for i := firstByte + 1; i < lastByte; i++ {
		row[i] = 0x00
	}
}
