package mxpack

import (
	"encoding/binary"
	"reflect"

	"github.com/puzpuzpuz/xsync/v4"
)

// extSizeCache avoids the reflection cost of binary.Size on every call,
// adapted from the teacher's Fixed[T].Size() (fixed.go), which caches
// reflect.Type -> encoded size in a concurrent-safe xsync.Map for the same
// reason: struct layout never changes at runtime, so the size is safe to
// memoize globally across every Ext[T] instantiation.
var extSizeCache = xsync.NewMap[reflect.Type, int]()

// Ext provides a generic Codec for a fixed-layout struct Payload, encoded
// as a MessagePack extension value: an extension header (length + Type)
// followed by Payload's big-endian binary.Write/Read representation. This
// is the fixed-size convenience path for extension types such as
// timestamps; Payload must not contain variable-size fields (slices,
// maps, strings) since binary.Size cannot compute their length.
type Ext[Payload any] struct {
	Type    int8
	Payload Payload
}

var _ Codec = (*Ext[struct{}])(nil)

// payloadSize returns the fixed encoded size of Payload, from cache when
// possible.
func (e *Ext[Payload]) payloadSize() int {
	t := reflect.TypeOf((*Payload)(nil)).Elem()
	if size, ok := extSizeCache.Load(t); ok {
		return size
	}
	size := binary.Size(&e.Payload)
	extSizeCache.Store(t, size)
	return size
}

// Size returns the total encoded size: the extension header plus the
// fixed payload size.
func (e *Ext[Payload]) Size() int {
	length := e.payloadSize()
	return extHeaderSize(uint32(length)) + length
}

func extHeaderSize(length uint32) int {
	switch length {
	case 1, 2, 4, 8, 16:
		return 2
	}
	switch {
	case length <= 0xff:
		return 3
	case length <= 0xffff:
		return 4
	default:
		return 6
	}
}

// WriteTo writes the extension header then the payload's big-endian
// binary encoding via WritePayload, which stages it in w's working buffer
// when it fits and otherwise writes it straight to the sink.
func (e *Ext[Payload]) WriteTo(w *Writer) error {
	length := e.payloadSize()
	if err := w.WriteExtensionHeader(uint32(length), e.Type); err != nil {
		return err
	}
	buf := make([]byte, length)
	if _, err := binary.Encode(buf, binary.BigEndian, &e.Payload); err != nil {
		return err
	}
	return w.WritePayload(buf)
}

// ReadFrom reads an extension header then decodes the payload's
// big-endian binary encoding.
func (e *Ext[Payload]) ReadFrom(r *Reader) error {
	header, err := r.ReadExtensionHeader()
	if err != nil {
		return err
	}
	e.Type = header.Type
	buf := make([]byte, header.Length)
	if _, err := r.ReadPayload(buf, len(buf)); err != nil {
		return err
	}
	_, err = binary.Decode(buf, binary.BigEndian, &e.Payload)
	return err
}
