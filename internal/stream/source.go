package stream

import (
	"errors"
	"io"
)

const maxSpanSize = 256 * 1024 * 1024

var errUnreadByte = errors.New("stream: UnreadByte at start of data")

// Source is a read-only byte source over an in-memory span. Data larger than
// 256 MiB is ignored and results in an empty source.
type Source struct {
	buf    []byte
	pos    int
	canUnr bool
}

// NewSource constructs a source over the provided data.
func NewSource(data []byte) *Source {
	if len(data) > maxSpanSize {
		data = nil
	}
	return &Source{buf: data}
}

// GetByte returns the next byte, or -1 once the data is exhausted.
func (s *Source) GetByte() int {
	if s.pos >= len(s.buf) {
		s.canUnr = false
		return -1
	}
	b := s.buf[s.pos]
	s.pos++
	s.canUnr = true
	return int(b)
}

// GetBytes returns up to n bytes. n <= 0 returns everything that remains.
// The returned slice aliases the source and must not be modified.
func (s *Source) GetBytes(n int) []byte {
	end := len(s.buf)
	if n > 0 && s.pos+n < end {
		end = s.pos + n
	}
	out := s.buf[s.pos:end]
	s.pos = end
	s.canUnr = len(out) > 0
	return out
}

// PeekByte returns the next byte without consuming it, or -1.
func (s *Source) PeekByte() int {
	if s.pos >= len(s.buf) {
		return -1
	}
	return int(s.buf[s.pos])
}

// Skip advances the read position by n bytes, clamped to the data length.
func (s *Source) Skip(n int) {
	s.pos += n
	if s.pos > len(s.buf) {
		s.pos = len(s.buf)
	}
	if s.pos < 0 {
		s.pos = 0
	}
	s.canUnr = false
}

// Pos returns the current byte offset.
func (s *Source) Pos() int { return s.pos }

// Reset moves the read position back to the start.
func (s *Source) Reset() {
	s.pos = 0
	s.canUnr = false
}

// Remaining returns the number of unread bytes.
func (s *Source) Remaining() int { return len(s.buf) - s.pos }

// Bytes returns the whole underlying span (read-only view).
func (s *Source) Bytes() []byte { return s.buf }

// ReadByte implements io.ByteReader.
func (s *Source) ReadByte() (byte, error) {
	b := s.GetByte()
	if b < 0 {
		return 0, io.EOF
	}
	return byte(b), nil
}

// UnreadByte pushes back the byte most recently returned by ReadByte or
// GetByte. Only one level of push-back is supported.
func (s *Source) UnreadByte() error {
	if !s.canUnr || s.pos == 0 {
		return errUnreadByte
	}
	s.pos--
	s.canUnr = false
	return nil
}

// Read implements io.Reader.
func (s *Source) Read(p []byte) (int, error) {
	if len(p) == 0 {
		return 0, nil
	}
	if s.pos >= len(s.buf) {
		return 0, io.EOF
	}
	n := copy(p, s.buf[s.pos:])
	s.pos += n
	s.canUnr = false
	return n, nil
}
