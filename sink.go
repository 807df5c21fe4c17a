package mxpack

import (
	"bufio"
	"bytes"
	"io"
)

// Sink is the minimal capability a Writer needs from its byte destination
// (spec §6): push bytes, flush, and close.
type Sink interface {
	Write(buf []byte) (int, error)
	// WriteAll writes every buffer in order, as if by repeated Write calls,
	// but lets a sink batch them into fewer syscalls.
	WriteAll(bufs ...[]byte) (int, error)
	Flush() error
	Close() error
}

// ChannelSink adapts an io.Writer that behaves like a streaming channel
// (spec §4.4's "writable channel" variant): no internal buffering of its
// own, Flush is a no-op.
type ChannelSink struct {
	w io.Writer
}

// NewChannelSink wraps w as a ChannelSink.
func NewChannelSink(w io.Writer) *ChannelSink { return &ChannelSink{w: w} }

func (s *ChannelSink) Write(buf []byte) (int, error) {
	n, err := s.w.Write(buf)
	if err != nil {
		return n, ioWriteError(err)
	}
	return n, nil
}

func (s *ChannelSink) WriteAll(bufs ...[]byte) (int, error) {
	return writeAllVia(s, bufs...)
}

func (s *ChannelSink) Flush() error { return nil }

func (s *ChannelSink) Close() error {
	if c, ok := s.w.(io.Closer); ok {
		if err := c.Close(); err != nil {
			return ioCloseError(err)
		}
	}
	return nil
}

// StreamSink adapts a buffered io.Writer (spec §4.4's "output stream"
// variant): writes are staged through a *bufio.Writer and reach the
// underlying stream when its buffer fills or on Flush/Close.
type StreamSink struct {
	w *bufio.Writer
	c io.Writer
}

// NewStreamSink wraps w as a StreamSink.
func NewStreamSink(w io.Writer) *StreamSink {
	return &StreamSink{w: bufio.NewWriter(w), c: w}
}

func (s *StreamSink) Write(buf []byte) (int, error) {
	n, err := s.w.Write(buf)
	if err != nil {
		return n, ioWriteError(err)
	}
	return n, nil
}

func (s *StreamSink) WriteAll(bufs ...[]byte) (int, error) {
	return writeAllVia(s, bufs...)
}

func (s *StreamSink) Flush() error {
	if err := s.w.Flush(); err != nil {
		return ioWriteError(err)
	}
	return nil
}

func (s *StreamSink) Close() error {
	if err := s.Flush(); err != nil {
		return err
	}
	if c, ok := s.c.(io.Closer); ok {
		if err := c.Close(); err != nil {
			return ioCloseError(err)
		}
	}
	return nil
}

// DiscardSink accepts and drops every write, reporting success. Useful for
// measuring an encoded size without materializing the bytes.
type DiscardSink struct {
	n int64
}

func NewDiscardSink() *DiscardSink { return &DiscardSink{} }

func (s *DiscardSink) Write(buf []byte) (int, error) {
	s.n += int64(len(buf))
	return len(buf), nil
}

func (s *DiscardSink) WriteAll(bufs ...[]byte) (int, error) {
	return writeAllVia(s, bufs...)
}

func (s *DiscardSink) Flush() error { return nil }
func (s *DiscardSink) Close() error { return nil }

// Count returns the total number of bytes written so far.
func (s *DiscardSink) Count() int64 { return s.n }

// CollectorSink accumulates written bytes in memory, exposing them via
// Bytes. This is the sink used for the in-memory round-trip scenarios of
// spec §8.
type CollectorSink struct {
	buf bytes.Buffer
}

func NewCollectorSink() *CollectorSink { return &CollectorSink{} }

func (s *CollectorSink) Write(buf []byte) (int, error) {
	return s.buf.Write(buf)
}

func (s *CollectorSink) WriteAll(bufs ...[]byte) (int, error) {
	return writeAllVia(s, bufs...)
}

func (s *CollectorSink) Flush() error { return nil }
func (s *CollectorSink) Close() error { return nil }

// Bytes returns a view of the bytes written so far.
func (s *CollectorSink) Bytes() []byte { return s.buf.Bytes() }

func writeAllVia(s Sink, bufs ...[]byte) (int, error) {
	total := 0
	for _, buf := range bufs {
		n, err := s.Write(buf)
		total += n
		if err != nil {
			return total, err
		}
	}
	return total, nil
}
