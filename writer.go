package mxpack

import "math"

// Writer encodes values to MessagePack and flushes them to a Sink. Like
// Reader, it latches the first error and every subsequent operation
// becomes a no-op returning it (spec §4.6, teacher's error-latching
// discipline).
type Writer struct {
	sink Sink
	buf  []byte
	pos  int

	allocator   Allocator
	ownAlloc    bool
	stringCodec StringCodec
	identCodec  IdentifierCodec

	err    error
	closed bool
}

// NewWriter builds a Writer from the given options (spec §6).
func NewWriter(opts ...WriterOption) (*Writer, error) {
	var o WriterOptions
	for _, opt := range opts {
		opt(&o)
	}
	if o.Sink == nil {
		return nil, ErrSinkRequired
	}

	buf := o.Buffer
	if buf == nil {
		capc := o.WriteBufferCapacity
		if capc <= 0 {
			capc = DefaultWriteBufferCapacity
		}
		buf = make([]byte, capc)
	}
	if len(buf) < minWorkingBufferCapacity {
		return nil, ErrBufferTooSmall
	}

	alloc := o.Allocator
	ownAlloc := false
	if alloc == nil {
		a := NewUnpooledAllocator()
		if o.MaxAllocatorCapacity > 0 {
			a.MaxCapacity = o.MaxAllocatorCapacity
			a.MaxStringLen = o.MaxAllocatorCapacity
		}
		alloc = a
		ownAlloc = true
	}

	stringCodec := o.StringCodec
	if stringCodec == nil {
		stringCodec = DefaultStringCodec
	}
	identCodec := o.IdentifierCodec
	if identCodec == nil {
		identCodec = DefaultIdentifierCodec
	}

	return &Writer{
		sink:        o.Sink,
		buf:         buf,
		allocator:   alloc,
		ownAlloc:    ownAlloc,
		stringCodec: stringCodec,
		identCodec:  identCodec,
	}, nil
}

// WithStringCodec swaps the active StringCodec and returns the receiver
// for chaining, mirroring the teacher's WithByteOrder.
func (w *Writer) WithStringCodec(c StringCodec) *Writer {
	w.stringCodec = c
	return w
}

// WithIdentifierCodec swaps the active IdentifierCodec and returns the
// receiver for chaining, mirroring the teacher's WithByteOrder.
func (w *Writer) WithIdentifierCodec(c IdentifierCodec) *Writer {
	w.identCodec = c
	return w
}

func (w *Writer) setErr(err error) error {
	if err == nil {
		return nil
	}
	if w.err == nil {
		w.err = err
	}
	return err
}

// Err returns the first error latched by this Writer, if any.
func (w *Writer) Err() error { return w.err }

func (w *Writer) checkAlive() error {
	if w.err != nil {
		return w.err
	}
	if w.closed {
		return ErrClosed
	}
	return nil
}

// Flush writes any staged bytes in the working buffer to the sink.
func (w *Writer) Flush() error {
	if err := w.checkAlive(); err != nil {
		return err
	}
	if w.pos == 0 {
		return nil
	}
	if _, err := w.sink.Write(w.buf[:w.pos]); err != nil {
		return w.setErr(err)
	}
	w.pos = 0
	if err := w.sink.Flush(); err != nil {
		return w.setErr(err)
	}
	return nil
}

// Close flushes then closes the sink. Double-close is idempotent.
func (w *Writer) Close() error {
	if w.closed {
		return nil
	}
	flushErr := w.Flush()
	w.closed = true

	err := w.sink.Close()
	if err == nil {
		err = flushErr
	}
	if w.ownAlloc {
		if cerr := w.allocator.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}
	return err
}

// ensureCapacity flushes the working buffer if the next n bytes would not
// fit, per the flush policy of spec §4.6.
func (w *Writer) ensureCapacity(n int) error {
	if w.pos+n <= len(w.buf) {
		return nil
	}
	if err := w.Flush(); err != nil {
		return err
	}
	return nil
}

func (w *Writer) putByte(b byte) {
	w.buf[w.pos] = b
	w.pos++
}

func (w *Writer) putU16(v uint16) {
	w.buf[w.pos] = byte(v >> 8)
	w.buf[w.pos+1] = byte(v)
	w.pos += 2
}

func (w *Writer) putU32(v uint32) {
	w.buf[w.pos] = byte(v >> 24)
	w.buf[w.pos+1] = byte(v >> 16)
	w.buf[w.pos+2] = byte(v >> 8)
	w.buf[w.pos+3] = byte(v)
	w.pos += 4
}

func (w *Writer) putU64(v uint64) {
	w.putU32(uint32(v >> 32))
	w.putU32(uint32(v))
}

// writeRaw makes room for up to 9 bytes (a header's worth) in the working
// buffer, flushing first if necessary; the caller then puts the bytes.
// Callers must not request more than the buffer's capacity.
func (w *Writer) writeRaw(n int) error {
	return w.ensureCapacity(n)
}

// WriteNil writes a NIL tag.
func (w *Writer) WriteNil() error {
	if err := w.checkAlive(); err != nil {
		return err
	}
	if err := w.writeRaw(1); err != nil {
		return err
	}
	w.putByte(tagNil)
	return nil
}

// WriteBool writes a TRUE/FALSE tag.
func (w *Writer) WriteBool(v bool) error {
	if err := w.checkAlive(); err != nil {
		return err
	}
	if err := w.writeRaw(1); err != nil {
		return err
	}
	if v {
		w.putByte(tagTrue)
	} else {
		w.putByte(tagFalse)
	}
	return nil
}

// WriteInt writes a signed integer using the smallest tag that faithfully
// represents it (spec §4.6): positive/negative fixint, then INT8/16/32/64
// for negative values or UINT8/16/32/64 for non-negative values.
func (w *Writer) WriteInt(v int64) error {
	if err := w.checkAlive(); err != nil {
		return err
	}
	switch {
	case v >= 0:
		return w.writeUintMinimal(uint64(v))
	case v >= -32:
		if err := w.writeRaw(1); err != nil {
			return err
		}
		w.putByte(byte(int8(v)))
		return nil
	case v >= math.MinInt8:
		if err := w.writeRaw(2); err != nil {
			return err
		}
		w.putByte(tagInt8)
		w.putByte(byte(int8(v)))
		return nil
	case v >= math.MinInt16:
		if err := w.writeRaw(3); err != nil {
			return err
		}
		w.putByte(tagInt16)
		w.putU16(uint16(int16(v)))
		return nil
	case v >= math.MinInt32:
		if err := w.writeRaw(5); err != nil {
			return err
		}
		w.putByte(tagInt32)
		w.putU32(uint32(int32(v)))
		return nil
	default:
		if err := w.writeRaw(9); err != nil {
			return err
		}
		w.putByte(tagInt64)
		w.putU64(uint64(v))
		return nil
	}
}

func (w *Writer) writeUintMinimal(v uint64) error {
	switch {
	case v < 128:
		if err := w.writeRaw(1); err != nil {
			return err
		}
		w.putByte(byte(v))
	case v <= math.MaxUint8:
		if err := w.writeRaw(2); err != nil {
			return err
		}
		w.putByte(tagUint8)
		w.putByte(byte(v))
	case v <= math.MaxUint16:
		if err := w.writeRaw(3); err != nil {
			return err
		}
		w.putByte(tagUint16)
		w.putU16(uint16(v))
	case v <= math.MaxUint32:
		if err := w.writeRaw(5); err != nil {
			return err
		}
		w.putByte(tagUint32)
		w.putU32(uint32(v))
	default:
		if err := w.writeRaw(9); err != nil {
			return err
		}
		w.putByte(tagUint64)
		w.putU64(v)
	}
	return nil
}

// WriteUint writes an unsigned integer using the smallest UINT* (or
// positive fixint) tag that represents it.
func (w *Writer) WriteUint(v uint64) error {
	if err := w.checkAlive(); err != nil {
		return err
	}
	return w.writeUintMinimal(v)
}

// WriteInt8, WriteInt16, WriteInt32, WriteInt64 and their unsigned
// counterparts all route through the minimal-tag encoders above: the
// writer always emits the smallest faithful tag regardless of the static
// width of the value handed to it (spec §4.6).
func (w *Writer) WriteInt8(v int8) error   { return w.WriteInt(int64(v)) }
func (w *Writer) WriteInt16(v int16) error { return w.WriteInt(int64(v)) }
func (w *Writer) WriteInt32(v int32) error { return w.WriteInt(int64(v)) }
func (w *Writer) WriteInt64(v int64) error { return w.WriteInt(v) }

func (w *Writer) WriteUint8(v uint8) error   { return w.WriteUint(uint64(v)) }
func (w *Writer) WriteUint16(v uint16) error { return w.WriteUint(uint64(v)) }
func (w *Writer) WriteUint32(v uint32) error { return w.WriteUint(uint64(v)) }
func (w *Writer) WriteUint64(v uint64) error { return w.WriteUint(v) }

// WriteFloat writes a FLOAT32 value.
func (w *Writer) WriteFloat(v float32) error {
	if err := w.checkAlive(); err != nil {
		return err
	}
	if err := w.writeRaw(5); err != nil {
		return err
	}
	w.putByte(tagFloat32)
	w.putU32(math.Float32bits(v))
	return nil
}

// WriteDouble writes a FLOAT64 value.
func (w *Writer) WriteDouble(v float64) error {
	if err := w.checkAlive(); err != nil {
		return err
	}
	if err := w.writeRaw(9); err != nil {
		return err
	}
	w.putByte(tagFloat64)
	w.putU64(math.Float64bits(v))
	return nil
}

func (w *Writer) writeStringHeader(length int) error {
	switch {
	case length < 32:
		if err := w.writeRaw(1); err != nil {
			return err
		}
		w.putByte(tagFixStrMin | byte(length))
	case length <= math.MaxUint8:
		if err := w.writeRaw(2); err != nil {
			return err
		}
		w.putByte(tagStr8)
		w.putByte(byte(length))
	case length <= math.MaxUint16:
		if err := w.writeRaw(3); err != nil {
			return err
		}
		w.putByte(tagStr16)
		w.putU16(uint16(length))
	default:
		if err := w.writeRaw(5); err != nil {
			return err
		}
		w.putByte(tagStr32)
		w.putU32(uint32(length))
	}
	return nil
}

// WriteRawStringHeader writes a string length tag (fixstr/STR8/16/32)
// without its payload; the caller is responsible for writing exactly
// length bytes via WritePayload.
func (w *Writer) WriteRawStringHeader(length int) error {
	if err := w.checkAlive(); err != nil {
		return err
	}
	return w.writeStringHeader(length)
}

// writePayloadBytes stages p in the working buffer when it fits,
// otherwise flushes and writes it straight to the sink.
func (w *Writer) writePayloadBytes(p []byte) error {
	if len(p) == 0 {
		return nil
	}
	if len(p) <= len(w.buf) {
		if err := w.ensureCapacity(len(p)); err != nil {
			return err
		}
		w.pos += copy(w.buf[w.pos:], p)
		return nil
	}
	if err := w.Flush(); err != nil {
		return err
	}
	if _, err := w.sink.Write(p); err != nil {
		return w.setErr(err)
	}
	return nil
}

// WriteString encodes s with the minimal string tag, staging the payload
// in the working buffer when it fits and otherwise streaming it through an
// auxiliary allocator buffer (spec §4.6).
func (w *Writer) WriteString(s string) error {
	if err := w.checkAlive(); err != nil {
		return err
	}
	length := w.stringCodec.EncodedLen(s)
	if err := w.writeStringHeader(length); err != nil {
		return err
	}
	if length == 0 {
		return nil
	}
	if length <= len(w.buf) {
		return w.writePayloadBytes([]byte(s)[:length])
	}

	aux, err := w.allocator.CharBuffer(length)
	if err != nil {
		return w.setErr(err)
	}
	defer w.allocator.Release(aux)
	n := w.stringCodec.Encode(aux, s)
	return w.writePayloadBytes(aux[:n])
}

// WriteIdentifier is semantically equivalent to WriteString but takes the
// ASCII fast path for short (<=20 byte), all-ASCII identifiers such as map
// keys, writing the bytes without calling the identifier codec's
// EncodedLen/Encode (spec §4.6).
func (w *Writer) WriteIdentifier(s string) error {
	if err := w.checkAlive(); err != nil {
		return err
	}
	if len(s) <= identifierFastPathLen && isASCII(s) {
		if err := w.writeStringHeader(len(s)); err != nil {
			return err
		}
		return w.writePayloadBytes([]byte(s))
	}
	length := w.identCodec.EncodedLen(s)
	if err := w.writeStringHeader(length); err != nil {
		return err
	}
	if length == 0 {
		return nil
	}
	if length <= len(w.buf) {
		return w.writePayloadBytes([]byte(s)[:length])
	}
	aux, err := w.allocator.CharBuffer(length)
	if err != nil {
		return w.setErr(err)
	}
	defer w.allocator.Release(aux)
	n := w.identCodec.Encode(aux, s)
	return w.writePayloadBytes(aux[:n])
}

// WriteArrayHeader writes an array length tag; the caller must follow with
// exactly n child writes.
func (w *Writer) WriteArrayHeader(n uint32) error {
	if err := w.checkAlive(); err != nil {
		return err
	}
	switch {
	case n <= 15:
		if err := w.writeRaw(1); err != nil {
			return err
		}
		w.putByte(tagFixArrayMin | byte(n))
	case n <= math.MaxUint16:
		if err := w.writeRaw(3); err != nil {
			return err
		}
		w.putByte(tagArray16)
		w.putU16(uint16(n))
	default:
		if err := w.writeRaw(5); err != nil {
			return err
		}
		w.putByte(tagArray32)
		w.putU32(n)
	}
	return nil
}

// WriteMapHeader writes a map pair-count tag; the caller must follow with
// exactly 2n child writes.
func (w *Writer) WriteMapHeader(n uint32) error {
	if err := w.checkAlive(); err != nil {
		return err
	}
	switch {
	case n <= 15:
		if err := w.writeRaw(1); err != nil {
			return err
		}
		w.putByte(tagFixMapMin | byte(n))
	case n <= math.MaxUint16:
		if err := w.writeRaw(3); err != nil {
			return err
		}
		w.putByte(tagMap16)
		w.putU16(uint16(n))
	default:
		if err := w.writeRaw(5); err != nil {
			return err
		}
		w.putByte(tagMap32)
		w.putU32(n)
	}
	return nil
}

// WriteBinaryHeader writes a binary payload length tag (BIN8/16/32; there
// is no fix form for binary, spec §4.6). The caller must follow with
// exactly n payload bytes via WritePayload.
func (w *Writer) WriteBinaryHeader(n uint32) error {
	if err := w.checkAlive(); err != nil {
		return err
	}
	switch {
	case n <= math.MaxUint8:
		if err := w.writeRaw(2); err != nil {
			return err
		}
		w.putByte(tagBin8)
		w.putByte(byte(n))
	case n <= math.MaxUint16:
		if err := w.writeRaw(3); err != nil {
			return err
		}
		w.putByte(tagBin16)
		w.putU16(uint16(n))
	default:
		if err := w.writeRaw(5); err != nil {
			return err
		}
		w.putByte(tagBin32)
		w.putU32(n)
	}
	return nil
}

// WriteExtensionHeader writes an extension length and type tag, preferring
// the fixext forms for lengths of 1, 2, 4, 8, or 16 bytes. The caller must
// follow with exactly length payload bytes via WritePayload.
func (w *Writer) WriteExtensionHeader(length uint32, extType int8) error {
	if err := w.checkAlive(); err != nil {
		return err
	}
	switch length {
	case 1, 2, 4, 8, 16:
		if err := w.writeRaw(2); err != nil {
			return err
		}
		w.putByte(fixExtTag(length))
		w.putByte(byte(extType))
		return nil
	}

	switch {
	case length <= math.MaxUint8:
		if err := w.writeRaw(3); err != nil {
			return err
		}
		w.putByte(tagExt8)
		w.putByte(byte(length))
	case length <= math.MaxUint16:
		if err := w.writeRaw(4); err != nil {
			return err
		}
		w.putByte(tagExt16)
		w.putU16(uint16(length))
	default:
		if err := w.writeRaw(6); err != nil {
			return err
		}
		w.putByte(tagExt32)
		w.putU32(length)
	}
	w.putByte(byte(extType))
	return nil
}

func fixExtTag(length uint32) byte {
	switch length {
	case 1:
		return tagFixExt1
	case 2:
		return tagFixExt2
	case 4:
		return tagFixExt4
	case 8:
		return tagFixExt8
	default:
		return tagFixExt16
	}
}

// WritePayload writes raw bytes directly, bypassing tag selection. Used
// after a binary or extension header to emit its payload.
func (w *Writer) WritePayload(p []byte) error {
	if err := w.checkAlive(); err != nil {
		return err
	}
	return w.writePayloadBytes(p)
}
