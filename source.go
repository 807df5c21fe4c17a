package mxpack

import (
	"bufio"
	"io"
)

// Source is the minimal capability a Reader needs from its byte origin
// (spec §6): fill a caller-supplied buffer, skip forward, and close.
type Source interface {
	// Read fills buf from the source's current position and returns the
	// number of bytes actually placed, or -1 at end-of-stream. minHint is
	// a lower bound the caller would like satisfied in one call; the
	// source may return fewer bytes but must not block beyond necessity.
	Read(buf []byte, minHint int) (int, error)
	// Skip discards the next n bytes of the source. scratch, when
	// non-empty, may be used as the buffer the discarded bytes are read
	// into; bytes already held in scratch are not counted toward n.
	Skip(n int64, scratch []byte) error
	Close() error
}

// ChannelSource adapts an io.Reader that behaves like a streaming channel:
// each Read call may return fewer bytes than requested without that being
// an error, and the source does not require an array-backed working
// buffer (Go slices always are one, but the distinction is carried to
// mirror the channel/stream split of spec §4.3, rooted in the two
// non-blocking-vs-blocking read disciplines of the systems this format is
// commonly embedded in).
type ChannelSource struct {
	r io.Reader
}

// NewChannelSource wraps r as a ChannelSource.
func NewChannelSource(r io.Reader) *ChannelSource { return &ChannelSource{r: r} }

func (s *ChannelSource) Read(buf []byte, minHint int) (int, error) {
	if len(buf) == 0 {
		return 0, nil
	}
	n, err := s.r.Read(buf)
	if n == 0 && err == io.EOF {
		return -1, nil
	}
	if err != nil && err != io.EOF {
		return n, ioReadError(err)
	}
	return n, nil
}

func (s *ChannelSource) Skip(n int64, scratch []byte) error {
	return skipVia(s, n, scratch)
}

func (s *ChannelSource) Close() error {
	if c, ok := s.r.(io.Closer); ok {
		if err := c.Close(); err != nil {
			return ioCloseError(err)
		}
	}
	return nil
}

// StreamSource adapts a buffered io.Reader (e.g. a *bufio.Reader or an
// os.File) that is expected to satisfy minHint in as few calls as
// possible; it requires an array-backed buffer, matching spec §4.3's
// "input stream" variant.
type StreamSource struct {
	r io.Reader
}

// NewStreamSource wraps r as a StreamSource.
func NewStreamSource(r io.Reader) *StreamSource {
	if _, ok := r.(*bufio.Reader); !ok {
		r = bufio.NewReader(r)
	}
	return &StreamSource{r: r}
}

func (s *StreamSource) Read(buf []byte, minHint int) (int, error) {
	if len(buf) == 0 {
		return 0, nil
	}
	n, err := io.ReadAtLeast(s.r, buf, min(minHint, len(buf)))
	if n == 0 && (err == io.EOF || err == io.ErrUnexpectedEOF) {
		return -1, nil
	}
	if err != nil && err != io.ErrUnexpectedEOF {
		return n, ioReadError(err)
	}
	return n, nil
}

func (s *StreamSource) Skip(n int64, scratch []byte) error {
	return skipVia(s, n, scratch)
}

func (s *StreamSource) Close() error {
	if c, ok := s.r.(io.Closer); ok {
		if err := c.Close(); err != nil {
			return ioCloseError(err)
		}
	}
	return nil
}

// FixedSource reads from a pre-filled, in-memory byte slice. No I/O ever
// blocks; end-of-stream is reached once the slice is exhausted.
type FixedSource struct {
	buf []byte
	pos int
}

// NewFixedSource wraps buf as a FixedSource.
func NewFixedSource(buf []byte) *FixedSource { return &FixedSource{buf: buf} }

func (s *FixedSource) Read(buf []byte, minHint int) (int, error) {
	if s.pos >= len(s.buf) {
		return -1, nil
	}
	n := copy(buf, s.buf[s.pos:])
	s.pos += n
	return n, nil
}

func (s *FixedSource) Skip(n int64, scratch []byte) error {
	if n <= 0 {
		return nil
	}
	remaining := int64(len(s.buf) - s.pos)
	if n > remaining {
		return &PrematureEOFError{Expected: int(n), ActualRead: int(remaining)}
	}
	s.pos += int(n)
	return nil
}

func (s *FixedSource) Close() error { return nil }

// EmptySource always reports end-of-stream immediately. Useful as a
// deterministic stand-in in tests and as the zero value for an optional
// trailing source.
type EmptySource struct{}

func (EmptySource) Read([]byte, int) (int, error)  { return -1, nil }
func (EmptySource) Skip(n int64, _ []byte) error {
	if n > 0 {
		return &PrematureEOFError{Expected: int(n), ActualRead: 0}
	}
	return nil
}
func (EmptySource) Close() error { return nil }

// skipVia implements Skip generically for sources that only expose Read,
// by repeatedly reading into scratch (or a small stack buffer if scratch
// is empty) and discarding the result.
func skipVia(s Source, n int64, scratch []byte) error {
	if n <= 0 {
		return nil
	}
	if len(scratch) == 0 {
		scratch = make([]byte, 4096)
	}
	remaining := n
	for remaining > 0 {
		chunk := scratch
		if int64(len(chunk)) > remaining {
			chunk = chunk[:remaining]
		}
		read, err := s.Read(chunk, len(chunk))
		if read < 0 {
			return &PrematureEOFError{Expected: int(n), ActualRead: int(n - remaining)}
		}
		if err != nil {
			return err
		}
		remaining -= int64(read)
	}
	return nil
}
