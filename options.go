package mxpack

// DefaultReadBufferCapacity is the Reader's working buffer size when none
// is supplied (spec §6).
const DefaultReadBufferCapacity = 8192

// DefaultWriteBufferCapacity is the Writer's working buffer size when none
// is supplied.
const DefaultWriteBufferCapacity = 8192

// minWorkingBufferCapacity is the smallest working buffer capacity that
// can hold the widest primitive header: a tag byte plus 8 bytes (spec §3).
const minWorkingBufferCapacity = 9

// ReaderOptions collects the builder-style knobs of spec §6. Finalized by
// NewReader, which validates the invariants (source present, buffer
// capacity >= 9).
type ReaderOptions struct {
	Source               Source
	Buffer               []byte
	Allocator            Allocator
	MaxAllocatorCapacity int
	ReadBufferCapacity   int
	StringCodec          StringCodec
	IdentifierCodec      IdentifierCodec
}

// ReaderOption configures a ReaderOptions in the teacher's chaining idiom.
type ReaderOption func(*ReaderOptions)

func WithSource(s Source) ReaderOption { return func(o *ReaderOptions) { o.Source = s } }
func WithReadBuffer(buf []byte) ReaderOption {
	return func(o *ReaderOptions) { o.Buffer = buf }
}
func WithReadAllocator(a Allocator) ReaderOption {
	return func(o *ReaderOptions) { o.Allocator = a }
}
func WithMaxAllocatorCapacity(n int) ReaderOption {
	return func(o *ReaderOptions) { o.MaxAllocatorCapacity = n }
}
func WithReadBufferCapacity(n int) ReaderOption {
	return func(o *ReaderOptions) { o.ReadBufferCapacity = n }
}
func WithStringDecoder(c StringCodec) ReaderOption {
	return func(o *ReaderOptions) { o.StringCodec = c }
}
func WithIdentifierDecoder(c IdentifierCodec) ReaderOption {
	return func(o *ReaderOptions) { o.IdentifierCodec = c }
}

// WriterOptions collects the builder-style knobs of spec §6. Finalized by
// NewWriter, which validates the invariants (sink present, buffer capacity
// >= 9).
type WriterOptions struct {
	Sink                 Sink
	Buffer               []byte
	Allocator            Allocator
	MaxAllocatorCapacity int
	WriteBufferCapacity  int
	StringCodec          StringCodec
	IdentifierCodec      IdentifierCodec
}

// WriterOption configures a WriterOptions in the teacher's chaining idiom.
type WriterOption func(*WriterOptions)

func WithSink(s Sink) WriterOption { return func(o *WriterOptions) { o.Sink = s } }
func WithWriteBuffer(buf []byte) WriterOption {
	return func(o *WriterOptions) { o.Buffer = buf }
}
func WithWriteAllocator(a Allocator) WriterOption {
	return func(o *WriterOptions) { o.Allocator = a }
}
func WithWriteMaxAllocatorCapacity(n int) WriterOption {
	return func(o *WriterOptions) { o.MaxAllocatorCapacity = n }
}
func WithWriteBufferCapacity(n int) WriterOption {
	return func(o *WriterOptions) { o.WriteBufferCapacity = n }
}
func WithStringEncoder(c StringCodec) WriterOption {
	return func(o *WriterOptions) { o.StringCodec = c }
}
func WithIdentifierEncoder(c IdentifierCodec) WriterOption {
	return func(o *WriterOptions) { o.IdentifierCodec = c }
}
