package mxpack

import (
	"math"

	"golang.org/x/exp/constraints"
)

// Reader decodes MessagePack-encoded values from a Source. It maintains a
// fixed-capacity working buffer with a read position and a fill limit
// (0 <= position <= limit <= capacity, spec §3) and latches the first
// error encountered; every subsequent operation becomes a no-op that
// returns that same error, mirroring the teacher's Reader/Writer
// error-latching discipline.
type Reader struct {
	source Source
	buf    []byte
	pos    int
	limit  int

	allocator   Allocator
	ownAlloc    bool
	stringCodec StringCodec
	identCodec  IdentifierCodec

	err    error
	closed bool
}

// NewReader builds a Reader from the given options (spec §6). It fails if
// no Source is supplied or if the resolved working buffer capacity is
// below the 9-byte minimum.
func NewReader(opts ...ReaderOption) (*Reader, error) {
	var o ReaderOptions
	for _, opt := range opts {
		opt(&o)
	}
	if o.Source == nil {
		return nil, ErrSourceRequired
	}

	buf := o.Buffer
	if buf == nil {
		capc := o.ReadBufferCapacity
		if capc <= 0 {
			capc = DefaultReadBufferCapacity
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

	return &Reader{
		source:      o.Source,
		buf:         buf,
		allocator:   alloc,
		ownAlloc:    ownAlloc,
		stringCodec: stringCodec,
		identCodec:  identCodec,
	}, nil
}

// WithStringCodec swaps the active StringCodec and returns the receiver
// for chaining, mirroring the teacher's WithByteOrder.
func (r *Reader) WithStringCodec(c StringCodec) *Reader {
	r.stringCodec = c
	return r
}

// WithIdentifierCodec swaps the active IdentifierCodec and returns the
// receiver for chaining, mirroring the teacher's WithByteOrder.
func (r *Reader) WithIdentifierCodec(c IdentifierCodec) *Reader {
	r.identCodec = c
	return r
}

func (r *Reader) setErr(err error) error {
	if err == nil {
		return nil
	}
	if r.err == nil {
		r.err = err
	}
	return err
}

// Err returns the first error latched by this Reader, if any.
func (r *Reader) Err() error { return r.err }

// Close closes the underlying source. Subsequent operations fail with
// ErrClosed. Double-close is idempotent.
func (r *Reader) Close() error {
	if r.closed {
		return nil
	}
	r.closed = true
	err := r.source.Close()
	if r.ownAlloc {
		if cerr := r.allocator.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}
	return err
}

func (r *Reader) checkAlive() error {
	if r.err != nil {
		return r.err
	}
	if r.closed {
		return ErrClosed
	}
	return nil
}

// ensureRemaining guarantees at least n unread bytes sit in the working
// buffer at position, relocating the unread tail to the start and
// refilling from the source as needed (spec §4.5). n must not exceed the
// working buffer's capacity.
func (r *Reader) ensureRemaining(n int) error {
	if r.limit-r.pos >= n {
		return nil
	}
	if n > len(r.buf) {
		return r.setErr(ErrBufferTooSmall)
	}

	if r.pos > 0 {
		copy(r.buf, r.buf[r.pos:r.limit])
		r.limit -= r.pos
		r.pos = 0
	}

	for r.limit < n {
		read, err := r.source.Read(r.buf[r.limit:], n-r.limit)
		if err != nil {
			return r.setErr(err)
		}
		if read < 0 {
			return r.setErr(&PrematureEOFError{Expected: n, ActualRead: r.limit})
		}
		r.limit += read
	}
	return nil
}

// drainThenFill copies any already-buffered bytes into dst, then reads the
// remainder directly from the source, bypassing the working buffer. Used
// for payloads too large to stage in the working buffer.
func (r *Reader) drainThenFill(dst []byte) error {
	consumed := copy(dst, r.buf[r.pos:r.limit])
	r.pos += consumed
	for consumed < len(dst) {
		read, err := r.source.Read(dst[consumed:], len(dst)-consumed)
		if err != nil {
			return r.setErr(err)
		}
		if read < 0 {
			return r.setErr(&PrematureEOFError{Expected: len(dst), ActualRead: consumed})
		}
		consumed += read
	}
	return nil
}

func (r *Reader) readTagByte() (byte, error) {
	if err := r.ensureRemaining(1); err != nil {
		return 0, err
	}
	tag := r.buf[r.pos]
	r.pos++
	return tag, nil
}

func (r *Reader) peekTagByte() (byte, error) {
	if err := r.ensureRemaining(1); err != nil {
		return 0, err
	}
	return r.buf[r.pos], nil
}

// NextType peeks at the upcoming value's tag without consuming it.
func (r *Reader) NextType() (ValueType, error) {
	if err := r.checkAlive(); err != nil {
		return TypeInvalid, err
	}
	tag, err := r.peekTagByte()
	if err != nil {
		return TypeInvalid, err
	}
	if tag == tagNeverUsed {
		return TypeInvalid, r.setErr(&WrongTypeError{Tag: tag, RequestedType: TypeInvalid})
	}
	return toValueType(tag), nil
}

func be16(b []byte) uint16 { return uint16(b[0])<<8 | uint16(b[1]) }
func be32(b []byte) uint32 {
	return uint32(b[0])<<24 | uint32(b[1])<<16 | uint32(b[2])<<8 | uint32(b[3])
}
func be64(b []byte) uint64 {
	return uint64(be32(b[:4]))<<32 | uint64(be32(b[4:]))
}

func (r *Reader) readRawU8() (uint8, error) {
	if err := r.ensureRemaining(1); err != nil {
		return 0, err
	}
	v := r.buf[r.pos]
	r.pos++
	return v, nil
}

func (r *Reader) readRawU16() (uint16, error) {
	if err := r.ensureRemaining(2); err != nil {
		return 0, err
	}
	v := be16(r.buf[r.pos:])
	r.pos += 2
	return v, nil
}

func (r *Reader) readRawU32() (uint32, error) {
	if err := r.ensureRemaining(4); err != nil {
		return 0, err
	}
	v := be32(r.buf[r.pos:])
	r.pos += 4
	return v, nil
}

func (r *Reader) readRawU64() (uint64, error) {
	if err := r.ensureRemaining(8); err != nil {
		return 0, err
	}
	v := be64(r.buf[r.pos:])
	r.pos += 8
	return v, nil
}

// ReadNil consumes a NIL tag.
func (r *Reader) ReadNil() error {
	if err := r.checkAlive(); err != nil {
		return err
	}
	tag, err := r.readTagByte()
	if err != nil {
		return err
	}
	if tag != tagNil {
		return r.setErr(&WrongTypeError{Tag: tag, RequestedType: TypeNil})
	}
	return nil
}

// ReadBoolean consumes a TRUE/FALSE tag.
func (r *Reader) ReadBoolean() (bool, error) {
	if err := r.checkAlive(); err != nil {
		return false, err
	}
	tag, err := r.readTagByte()
	if err != nil {
		return false, err
	}
	switch tag {
	case tagTrue:
		return true, nil
	case tagFalse:
		return false, nil
	default:
		return false, r.setErr(&WrongTypeError{Tag: tag, RequestedType: TypeBoolean})
	}
}

// decodeIntegerWidest decodes any integer-encoding tag into the widest
// representation available. When the source tag is UINT64 and its value's
// high bit is set, big is true and u64 holds the exact value (it cannot be
// represented in int64; spec §4.5: "unsigned 64-bit values whose high bit
// is set always overflow long").
func (r *Reader) decodeIntegerWidest() (i64 int64, u64 uint64, big bool, tag byte, err error) {
	tag, err = r.readTagByte()
	if err != nil {
		return
	}
	if isFixInt(tag) {
		i64 = int64(int8(tag))
		return
	}
	switch tag {
	case tagUint8:
		var v uint8
		v, err = r.readRawU8()
		i64 = int64(v)
	case tagUint16:
		var v uint16
		v, err = r.readRawU16()
		i64 = int64(v)
	case tagUint32:
		var v uint32
		v, err = r.readRawU32()
		i64 = int64(v)
	case tagUint64:
		var v uint64
		v, err = r.readRawU64()
		if err == nil && v > math.MaxInt64 {
			big = true
			u64 = v
			return
		}
		i64 = int64(v)
	case tagInt8:
		var v uint8
		v, err = r.readRawU8()
		i64 = int64(int8(v))
	case tagInt16:
		var v uint16
		v, err = r.readRawU16()
		i64 = int64(int16(v))
	case tagInt32:
		var v uint32
		v, err = r.readRawU32()
		i64 = int64(int32(v))
	case tagInt64:
		var v uint64
		v, err = r.readRawU64()
		i64 = int64(v)
	default:
		err = r.setErr(&WrongTypeError{Tag: tag, RequestedType: TypeInteger})
	}
	return
}

func narrowSigned[T constraints.Signed](r *Reader, target string, min, max int64) (T, error) {
	i64, _, big, tag, err := r.decodeIntegerWidest()
	if err != nil {
		return 0, err
	}
	if big || i64 < min || i64 > max {
		value := i64
		if big {
			value = math.MaxInt64 // sentinel; exact value doesn't fit int64 either
		}
		return 0, r.setErr(&IntegerOverflowError{Value: value, Tag: tag, TargetType: target})
	}
	return T(i64), nil
}

func narrowUnsigned[T constraints.Unsigned](r *Reader, target string, max uint64) (T, error) {
	i64, u64, big, tag, err := r.decodeIntegerWidest()
	if err != nil {
		return 0, err
	}
	if big {
		if u64 > max {
			return 0, r.setErr(&IntegerOverflowError{Value: 0, Tag: tag, TargetType: target})
		}
		return T(u64), nil
	}
	if i64 < 0 || uint64(i64) > max {
		return 0, r.setErr(&IntegerOverflowError{Value: i64, Tag: tag, TargetType: target})
	}
	return T(i64), nil
}

// ReadByte decodes an integer-encoded value narrowed to int8.
func (r *Reader) ReadByte() (int8, error) {
	if err := r.checkAlive(); err != nil {
		return 0, err
	}
	return narrowSigned[int8](r, "BYTE", math.MinInt8, math.MaxInt8)
}

// ReadShort decodes an integer-encoded value narrowed to int16.
func (r *Reader) ReadShort() (int16, error) {
	if err := r.checkAlive(); err != nil {
		return 0, err
	}
	return narrowSigned[int16](r, "SHORT", math.MinInt16, math.MaxInt16)
}

// ReadInt decodes an integer-encoded value narrowed to int32.
func (r *Reader) ReadInt() (int32, error) {
	if err := r.checkAlive(); err != nil {
		return 0, err
	}
	return narrowSigned[int32](r, "INT", math.MinInt32, math.MaxInt32)
}

// ReadLong decodes an integer-encoded value narrowed to int64.
func (r *Reader) ReadLong() (int64, error) {
	if err := r.checkAlive(); err != nil {
		return 0, err
	}
	i64, _, big, tag, err := r.decodeIntegerWidest()
	if err != nil {
		return 0, err
	}
	if big {
		return 0, r.setErr(&IntegerOverflowError{Value: 0, Tag: tag, TargetType: "LONG"})
	}
	return i64, nil
}

// ReadUint8 decodes an integer-encoded value narrowed to uint8.
func (r *Reader) ReadUint8() (uint8, error) {
	if err := r.checkAlive(); err != nil {
		return 0, err
	}
	return narrowUnsigned[uint8](r, "UINT8", math.MaxUint8)
}

// ReadUint16 decodes an integer-encoded value narrowed to uint16.
func (r *Reader) ReadUint16() (uint16, error) {
	if err := r.checkAlive(); err != nil {
		return 0, err
	}
	return narrowUnsigned[uint16](r, "UINT16", math.MaxUint16)
}

// ReadUint32 decodes an integer-encoded value narrowed to uint32.
func (r *Reader) ReadUint32() (uint32, error) {
	if err := r.checkAlive(); err != nil {
		return 0, err
	}
	return narrowUnsigned[uint32](r, "UINT32", math.MaxUint32)
}

// ReadUint64 decodes an integer-encoded value narrowed to uint64.
func (r *Reader) ReadUint64() (uint64, error) {
	if err := r.checkAlive(); err != nil {
		return 0, err
	}
	i64, u64, big, tag, err := r.decodeIntegerWidest()
	if err != nil {
		return 0, err
	}
	if big {
		return u64, nil
	}
	if i64 < 0 {
		return 0, r.setErr(&IntegerOverflowError{Value: i64, Tag: tag, TargetType: "UINT64"})
	}
	return uint64(i64), nil
}

// ReadFloat decodes a FLOAT32-encoded value.
func (r *Reader) ReadFloat() (float32, error) {
	if err := r.checkAlive(); err != nil {
		return 0, err
	}
	tag, err := r.readTagByte()
	if err != nil {
		return 0, err
	}
	if tag != tagFloat32 {
		return 0, r.setErr(&WrongTypeError{Tag: tag, RequestedType: TypeFloat})
	}
	bits, err := r.readRawU32()
	if err != nil {
		return 0, err
	}
	return math.Float32frombits(bits), nil
}

// ReadDouble decodes a FLOAT64-encoded value, widening a FLOAT32 encoding
// if that is what was written.
func (r *Reader) ReadDouble() (float64, error) {
	if err := r.checkAlive(); err != nil {
		return 0, err
	}
	tag, err := r.readTagByte()
	if err != nil {
		return 0, err
	}
	switch tag {
	case tagFloat64:
		bits, err := r.readRawU64()
		if err != nil {
			return 0, err
		}
		return math.Float64frombits(bits), nil
	case tagFloat32:
		bits, err := r.readRawU32()
		if err != nil {
			return 0, err
		}
		return float64(math.Float32frombits(bits)), nil
	default:
		return 0, r.setErr(&WrongTypeError{Tag: tag, RequestedType: TypeFloat})
	}
}

func (r *Reader) readLength8(tag, want byte, valueType ValueType) (int, error) {
	if tag != want {
		return 0, r.setErr(&WrongTypeError{Tag: tag, RequestedType: valueType})
	}
	n, err := r.readRawU8()
	return int(n), err
}

func (r *Reader) readLength16(tag, want byte, valueType ValueType) (int, error) {
	if tag != want {
		return 0, r.setErr(&WrongTypeError{Tag: tag, RequestedType: valueType})
	}
	n, err := r.readRawU16()
	return int(n), err
}

func (r *Reader) readLength32(tag, want byte, valueType ValueType) (int, error) {
	if tag != want {
		return 0, r.setErr(&WrongTypeError{Tag: tag, RequestedType: valueType})
	}
	n, err := r.readRawU32()
	if err != nil {
		return 0, err
	}
	if n > maxInt32 {
		return 0, r.setErr(&LengthTooLargeError{Length: n, ValueType: valueType})
	}
	return int(n), nil
}

// ReadRawStringHeader decodes a string length (fixstr/STR8/16/32) without
// reading its payload.
func (r *Reader) ReadRawStringHeader() (int, error) {
	if err := r.checkAlive(); err != nil {
		return 0, err
	}
	tag, err := r.readTagByte()
	if err != nil {
		return 0, err
	}
	if isFixStr(tag) {
		return fixStrLen(tag), nil
	}
	switch tag {
	case tagStr8:
		return r.readLength8(tag, tagStr8, TypeString)
	case tagStr16:
		return r.readLength16(tag, tagStr16, TypeString)
	case tagStr32:
		return r.readLength32(tag, tagStr32, TypeString)
	default:
		return 0, r.setErr(&WrongTypeError{Tag: tag, RequestedType: TypeString})
	}
}

// ReadBinaryHeader decodes a binary payload length (BIN8/16/32).
func (r *Reader) ReadBinaryHeader() (int, error) {
	if err := r.checkAlive(); err != nil {
		return 0, err
	}
	tag, err := r.readTagByte()
	if err != nil {
		return 0, err
	}
	switch tag {
	case tagBin8:
		return r.readLength8(tag, tagBin8, TypeBinary)
	case tagBin16:
		return r.readLength16(tag, tagBin16, TypeBinary)
	case tagBin32:
		return r.readLength32(tag, tagBin32, TypeBinary)
	default:
		return 0, r.setErr(&WrongTypeError{Tag: tag, RequestedType: TypeBinary})
	}
}

// ReadArrayHeader decodes an array's element count without reading its
// children; the caller must issue exactly n subsequent reads.
func (r *Reader) ReadArrayHeader() (uint32, error) {
	if err := r.checkAlive(); err != nil {
		return 0, err
	}
	tag, err := r.readTagByte()
	if err != nil {
		return 0, err
	}
	if isFixArray(tag) {
		return uint32(fixArrayLen(tag)), nil
	}
	switch tag {
	case tagArray16:
		n, err := r.readLength16(tag, tagArray16, TypeArray)
		return uint32(n), err
	case tagArray32:
		n, err := r.readLength32(tag, tagArray32, TypeArray)
		return uint32(n), err
	default:
		// spec §9 REDESIGN FLAG: report the requested type as ARRAY, not MAP.
		return 0, r.setErr(&WrongTypeError{Tag: tag, RequestedType: TypeArray})
	}
}

// ReadMapHeader decodes a map's pair count without reading its children;
// the caller must issue exactly 2n subsequent reads.
func (r *Reader) ReadMapHeader() (uint32, error) {
	if err := r.checkAlive(); err != nil {
		return 0, err
	}
	tag, err := r.readTagByte()
	if err != nil {
		return 0, err
	}
	if isFixMap(tag) {
		return uint32(fixMapLen(tag)), nil
	}
	switch tag {
	case tagMap16:
		n, err := r.readLength16(tag, tagMap16, TypeMap)
		return uint32(n), err
	case tagMap32:
		n, err := r.readLength32(tag, tagMap32, TypeMap)
		return uint32(n), err
	default:
		return 0, r.setErr(&WrongTypeError{Tag: tag, RequestedType: TypeMap})
	}
}

// ReadExtensionHeader decodes an extension's length and type code without
// reading its payload.
func (r *Reader) ReadExtensionHeader() (ExtensionHeader, error) {
	if err := r.checkAlive(); err != nil {
		return ExtensionHeader{}, err
	}
	tag, err := r.readTagByte()
	if err != nil {
		return ExtensionHeader{}, err
	}

	var length uint32
	switch tag {
	case tagFixExt1:
		length = 1
	case tagFixExt2:
		length = 2
	case tagFixExt4:
		length = 4
	case tagFixExt8:
		length = 8
	case tagFixExt16:
		length = 16
	case tagExt8:
		n, err := r.readRawU8()
		if err != nil {
			return ExtensionHeader{}, err
		}
		length = uint32(n)
	case tagExt16:
		n, err := r.readRawU16()
		if err != nil {
			return ExtensionHeader{}, err
		}
		length = uint32(n)
	case tagExt32:
		n, err := r.readRawU32()
		if err != nil {
			return ExtensionHeader{}, err
		}
		if n > maxInt32 {
			return ExtensionHeader{}, r.setErr(&LengthTooLargeError{Length: n, ValueType: TypeExtension})
		}
		length = n
	default:
		return ExtensionHeader{}, r.setErr(&WrongTypeError{Tag: tag, RequestedType: TypeExtension})
	}

	typeByte, err := r.readRawU8()
	if err != nil {
		return ExtensionHeader{}, err
	}
	return ExtensionHeader{Length: length, Type: int8(typeByte)}, nil
}

// ReadString decodes a string header then its payload, choosing the
// zero-copy in-place path when the payload fits the working buffer and
// falling back to an allocator-provided auxiliary buffer otherwise (the
// single zero-copy decision function spec §9 calls out).
func (r *Reader) ReadString() (string, error) {
	if err := r.checkAlive(); err != nil {
		return "", err
	}
	length, err := r.ReadRawStringHeader()
	if err != nil {
		return "", err
	}
	if length == 0 {
		return "", nil
	}

	if length <= len(r.buf) {
		if err := r.ensureRemaining(length); err != nil {
			return "", err
		}
		s, err := r.stringCodec.Decode(r.buf[r.pos : r.pos+length])
		r.pos += length
		if err != nil {
			return "", r.setErr(err)
		}
		return s, nil
	}

	aux, err := r.allocator.CharBuffer(length)
	if err != nil {
		return "", r.setErr(err)
	}
	defer r.allocator.Release(aux)

	if err := r.drainThenFill(aux); err != nil {
		return "", err
	}
	s, err := r.stringCodec.Decode(aux)
	if err != nil {
		return "", r.setErr(err)
	}
	return s, nil
}

// ReadPayload pulls at least minBytes into buf directly, bypassing the
// working buffer (spec §4.5).
func (r *Reader) ReadPayload(buf []byte, minBytes int) (int, error) {
	if err := r.checkAlive(); err != nil {
		return 0, err
	}
	if minBytes <= 0 || minBytes > len(buf) {
		minBytes = len(buf)
	}
	if err := r.drainThenFill(buf[:minBytes]); err != nil {
		return 0, err
	}
	return minBytes, nil
}
