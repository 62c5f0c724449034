package stream

import "io"

// BlockDecoder produces decoded data on demand. ReadBlock appends the next
// chunk to b (one row, one image, a group of rows) and calls b.SetEOF once
// nothing more follows. A returned error ends the stream; whatever was
// appended before stays readable.
type BlockDecoder interface {
	ReadBlock(b *Buffer) error
}

// Stream exposes the output of a BlockDecoder as a byte sequence, pulling
// blocks lazily as the reader advances.
type Stream struct {
	buf    Buffer
	dec    BlockDecoder
	pos    int
	err    error
	canUnr bool
}

// NewStream wraps dec.
func NewStream(dec BlockDecoder) *Stream {
	return &Stream{dec: dec}
}

// fill pulls blocks until at least n bytes are decoded or the producer ends.
// A block that adds nothing without signalling EOF also ends the stream.
func (s *Stream) fill(n int) {
	for s.buf.filled < n && !s.buf.eof {
		before := s.buf.filled
		if err := s.dec.ReadBlock(&s.buf); err != nil {
			if s.err == nil {
				s.err = err
			}
			s.buf.eof = true
			return
		}
		if s.buf.filled == before && !s.buf.eof {
			s.buf.eof = true
		}
	}
}

func (s *Stream) fillAll() {
	for !s.buf.eof {
		s.fill(s.buf.filled + 1)
	}
}

// GetByte returns the next decoded byte or -1 at the end of the data.
func (s *Stream) GetByte() int {
	if s.pos >= s.buf.filled {
		s.fill(s.pos + 1)
		if s.pos >= s.buf.filled {
			s.canUnr = false
			return -1
		}
	}
	c := s.buf.data[s.pos]
	s.pos++
	s.canUnr = true
	return int(c)
}

// GetBytes returns up to n decoded bytes, fewer at the end of the data.
// n <= 0 decodes and returns everything that remains. The result aliases the
// stream buffer and is valid until the next read.
func (s *Stream) GetBytes(n int) []byte {
	var end int
	if n <= 0 {
		s.fillAll()
		end = s.buf.filled
	} else {
		s.fill(s.pos + n)
		end = min(s.pos+n, s.buf.filled)
	}
	if end < s.pos {
		end = s.pos
	}
	out := s.buf.data[s.pos:end]
	s.pos = end
	s.canUnr = len(out) > 0
	return out
}

// PeekByte returns the next byte without consuming it, or -1.
func (s *Stream) PeekByte() int {
	c := s.GetByte()
	if c >= 0 {
		s.pos--
	}
	return c
}

// PeekBytes returns up to n bytes without consuming them.
func (s *Stream) PeekBytes(n int) []byte {
	pos := s.pos
	out := s.GetBytes(n)
	s.pos = pos
	return out
}

// Skip advances the read position by n bytes (backwards when negative).
func (s *Stream) Skip(n int) {
	s.pos += n
	if s.pos < 0 {
		s.pos = 0
	}
	s.canUnr = false
}

// Reset rewinds to the first decoded byte. Decoded data is kept.
func (s *Stream) Reset() {
	s.pos = 0
	s.canUnr = false
}

// Pos returns the current read position.
func (s *Stream) Pos() int { return s.pos }

// ByteAt returns the decoded byte at absolute offset i, decoding as far as
// necessary, or -1 when the data ends before i.
func (s *Stream) ByteAt(i int) int {
	if i < 0 {
		return -1
	}
	s.fill(i + 1)
	if i >= s.buf.filled {
		return -1
	}
	return int(s.buf.data[i])
}

// Length returns the total decoded length once it is known.
func (s *Stream) Length() (int, bool) {
	if !s.buf.eof {
		return 0, false
	}
	return s.buf.filled, true
}

// Decoded returns the bytes decoded so far without pulling new blocks.
func (s *Stream) Decoded() []byte { return s.buf.Bytes() }

// EOF reports whether the producer has finished.
func (s *Stream) EOF() bool { return s.buf.eof }

// Err returns the first error reported by the block decoder.
func (s *Stream) Err() error { return s.err }

// ReadByte implements io.ByteReader.
func (s *Stream) ReadByte() (byte, error) {
	c := s.GetByte()
	if c < 0 {
		return 0, s.endErr()
	}
	return byte(c), nil
}

// UnreadByte pushes back the last byte read. One level only.
func (s *Stream) UnreadByte() error {
	if !s.canUnr || s.pos == 0 {
		return errUnreadByte
	}
	s.pos--
	s.canUnr = false
	return nil
}

// Read implements io.Reader. A decoder error is returned once the data
// produced before it has been consumed.
func (s *Stream) Read(p []byte) (int, error) {
	if len(p) == 0 {
		return 0, nil
	}
	if s.pos >= s.buf.filled {
		s.fill(s.pos + 1)
	}
	if s.pos >= s.buf.filled {
		return 0, s.endErr()
	}
	n := copy(p, s.buf.data[s.pos:s.buf.filled])
	s.pos += n
	s.canUnr = false
	return n, nil
}

func (s *Stream) endErr() error {
	if s.err != nil {
		return s.err
	}
	return io.EOF
}

var _ io.ByteScanner = (*Stream)(nil)
var _ io.Reader = (*Stream)(nil)
