package stream

const minBufferLength = 512

// Buffer is the growable output area shared by every block decoder. Only the
// first Len() bytes hold decoded data.
type Buffer struct {
	data   []byte
	filled int
	eof    bool
}

// EnsureCapacity guarantees room for at least n bytes and returns the backing
// storage. Growth doubles the allocation; the buffer never shrinks and the
// filled prefix is preserved.
func (b *Buffer) EnsureCapacity(n int) []byte {
	if n <= len(b.data) {
		return b.data
	}
	size := len(b.data)
	if size < minBufferLength {
		size = minBufferLength
	}
	for size < n {
		size <<= 1
	}
	grown := make([]byte, size)
	copy(grown, b.data[:b.filled])
	b.data = grown
	return b.data
}

// Grow returns a writable window of n bytes directly after the filled
// prefix. The window becomes visible once Commit is called.
func (b *Buffer) Grow(n int) []byte {
	b.EnsureCapacity(b.filled + n)
	w := b.data[b.filled : b.filled+n]
	clear(w)
	return w
}

// Commit marks n more bytes of the window returned by Grow as filled.
func (b *Buffer) Commit(n int) {
	if n < 0 {
		return
	}
	if b.filled+n > len(b.data) {
		n = len(b.data) - b.filled
	}
	b.filled += n
}

// Append copies p after the filled prefix.
func (b *Buffer) Append(p []byte) {
	copy(b.Grow(len(p)), p)
	b.filled += len(p)
}

// AppendByte appends a single byte.
func (b *Buffer) AppendByte(c byte) {
	b.EnsureCapacity(b.filled + 1)
	b.data[b.filled] = c
	b.filled++
}

// Len returns the number of decoded bytes.
func (b *Buffer) Len() int { return b.filled }

// Bytes returns the filled prefix.
func (b *Buffer) Bytes() []byte { return b.data[:b.filled] }

// EOF reports whether the producer has signalled that no more data follows.
func (b *Buffer) EOF() bool { return b.eof }

// SetEOF marks the end of the decoded data.
func (b *Buffer) SetEOF() { b.eof = true }
