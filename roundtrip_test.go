//go:build test

package mxpack

import (
	"math"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
)

// RoundTripTestSuite exercises the concrete scenarios of spec §8 against an
// in-memory CollectorSink/FixedSource pair, mirroring the teacher's
// suite.Suite-per-concern test organization (codec_test.go).
type RoundTripTestSuite struct {
	suite.Suite
}

func TestRoundTripTestSuite(t *testing.T) {
	suite.Run(t, new(RoundTripTestSuite))
}

func (s *RoundTripTestSuite) newWriter(sink *CollectorSink) *Writer {
	w, err := NewWriter(WithSink(sink))
	s.Require().NoError(err)
	return w
}

func (s *RoundTripTestSuite) newReader(data []byte) *Reader {
	r, err := NewReader(WithSource(NewFixedSource(data)))
	s.Require().NoError(err)
	return r
}

// Scenario 1: Hello/42.
func (s *RoundTripTestSuite) TestHelloInt() {
	sink := NewCollectorSink()
	w := s.newWriter(sink)
	s.Require().NoError(w.WriteString("Hello, MxPack!"))
	s.Require().NoError(w.WriteInt(42))
	s.Require().NoError(w.Close())

	want := []byte{0xae, 0x48, 0x65, 0x6c, 0x6c, 0x6f, 0x2c, 0x20, 0x4d, 0x78, 0x50, 0x61, 0x63, 0x6b, 0x21, 0x2a}
	s.Assert().Equal(want, sink.Bytes())

	r := s.newReader(sink.Bytes())
	str, err := r.ReadString()
	s.Require().NoError(err)
	s.Assert().Equal("Hello, MxPack!", str)
	n, err := r.ReadInt()
	s.Require().NoError(err)
	s.Assert().EqualValues(42, n)
}

// Scenario 2: integer width narrowing.
func (s *RoundTripTestSuite) TestIntegerWidthNarrowing() {
	sink := NewCollectorSink()
	w := s.newWriter(sink)
	s.Require().NoError(w.WriteInt(-32769))
	s.Require().NoError(w.Close())

	want := []byte{0xd2, 0xff, 0xff, 0x7f, 0xff}
	s.Assert().Equal(want, sink.Bytes())

	r := s.newReader(sink.Bytes())
	_, err := r.ReadShort()
	var overflow *IntegerOverflowError
	s.Require().ErrorAs(err, &overflow)
	s.Assert().EqualValues(-32769, overflow.Value)
	s.Assert().Equal("SHORT", overflow.TargetType)

	r2 := s.newReader(sink.Bytes())
	v, err := r2.ReadInt()
	s.Require().NoError(err)
	s.Assert().EqualValues(-32769, v)
}

// Scenario 3: array header and children.
func (s *RoundTripTestSuite) TestArrayHeaderAndChildren() {
	sink := NewCollectorSink()
	w := s.newWriter(sink)
	s.Require().NoError(w.WriteArrayHeader(3))
	s.Require().NoError(w.WriteInt(1))
	s.Require().NoError(w.WriteString("a"))
	s.Require().NoError(w.WriteBool(true))
	s.Require().NoError(w.Close())

	want := []byte{0x93, 0x01, 0xa1, 0x61, 0xc3}
	s.Assert().Equal(want, sink.Bytes())

	r := s.newReader(sink.Bytes())
	n, err := r.ReadArrayHeader()
	s.Require().NoError(err)
	s.Assert().EqualValues(3, n)
	v, err := r.ReadInt()
	s.Require().NoError(err)
	s.Assert().EqualValues(1, v)
	str, err := r.ReadString()
	s.Require().NoError(err)
	s.Assert().Equal("a", str)
	b, err := r.ReadBoolean()
	s.Require().NoError(err)
	s.Assert().True(b)
}

// Scenario 4: large string forces the allocator fallback path.
func (s *RoundTripTestSuite) TestLargeStringUsesAuxiliaryBuffer() {
	text := strings.Repeat("x", 1<<20)
	sink := NewCollectorSink()
	w := s.newWriter(sink)
	s.Require().NoError(w.WriteString(text))
	s.Require().NoError(w.Close())

	r, err := NewReader(WithSource(NewFixedSource(sink.Bytes())), WithReadBufferCapacity(1024))
	s.Require().NoError(err)
	got, err := r.ReadString()
	s.Require().NoError(err)
	s.Assert().Equal(text, got)
}

// Scenario 5: premature EOF.
func (s *RoundTripTestSuite) TestPrematureEOF() {
	r, err := NewReader(WithSource(NewFixedSource([]byte{0xd2, 0x00, 0x00})))
	s.Require().NoError(err)
	_, err = r.ReadInt()
	var eof *PrematureEOFError
	require.ErrorAs(s.T(), err, &eof)
	s.Assert().Equal(4, eof.Expected)
	s.Assert().Equal(2, eof.ActualRead)
}

// Scenario 6: reserved tag.
func (s *RoundTripTestSuite) TestReservedTagFails() {
	r, err := NewReader(WithSource(NewFixedSource([]byte{0xc1})))
	s.Require().NoError(err)
	_, err = r.NextType()
	var wrong *WrongTypeError
	s.Require().ErrorAs(err, &wrong)
	s.Assert().EqualValues(0xc1, wrong.Tag)
}

// ReadArrayHeader's mismatch error must name ARRAY, not MAP (spec §9 open
// question / REDESIGN FLAG).
func (s *RoundTripTestSuite) TestArrayHeaderMismatchReportsArray() {
	r, err := NewReader(WithSource(NewFixedSource([]byte{tagNil})))
	s.Require().NoError(err)
	_, err = r.ReadArrayHeader()
	var wrong *WrongTypeError
	s.Require().ErrorAs(err, &wrong)
	s.Assert().Equal(TypeArray, wrong.RequestedType)
}

func (s *RoundTripTestSuite) TestFloatRoundTrip() {
	values := []float64{0, math.Copysign(0, -1), math.Inf(1), math.Inf(-1), math.NaN(), 1.5, -1.5e300}
	sink := NewCollectorSink()
	w := s.newWriter(sink)
	for _, v := range values {
		s.Require().NoError(w.WriteDouble(v))
	}
	s.Require().NoError(w.Close())

	r := s.newReader(sink.Bytes())
	for _, want := range values {
		got, err := r.ReadDouble()
		s.Require().NoError(err)
		if math.IsNaN(want) {
			s.Assert().True(math.IsNaN(got))
			continue
		}
		s.Assert().Equal(math.Float64bits(want), math.Float64bits(got))
	}
}

func (s *RoundTripTestSuite) TestIntegerRoundTripSampledBoundaries() {
	values := []int64{
		0, 1, -1, 127, 128, -32, -33, -128, -129,
		255, 256, 32767, 32768, -32768, -32769,
		65535, 65536, math.MaxInt32, math.MinInt32,
		math.MaxInt64, math.MinInt64,
	}
	sink := NewCollectorSink()
	w := s.newWriter(sink)
	for _, v := range values {
		s.Require().NoError(w.WriteInt(v))
	}
	s.Require().NoError(w.Close())

	r := s.newReader(sink.Bytes())
	for _, want := range values {
		got, err := r.ReadLong()
		s.Require().NoError(err)
		s.Assert().Equal(want, got)
	}
}

func (s *RoundTripTestSuite) TestUint64HighBitOverflowsLong() {
	sink := NewCollectorSink()
	w := s.newWriter(sink)
	s.Require().NoError(w.WriteUint(math.MaxUint64))
	s.Require().NoError(w.Close())

	r := s.newReader(sink.Bytes())
	_, err := r.ReadLong()
	var overflow *IntegerOverflowError
	s.Require().ErrorAs(err, &overflow)
	s.Assert().Equal("LONG", overflow.TargetType)

	r2 := s.newReader(sink.Bytes())
	v, err := r2.ReadUint64()
	s.Require().NoError(err)
	s.Assert().Equal(uint64(math.MaxUint64), v)
}

func (s *RoundTripTestSuite) TestMapHeaderAndPairs() {
	sink := NewCollectorSink()
	w := s.newWriter(sink)
	s.Require().NoError(w.WriteMapHeader(2))
	s.Require().NoError(w.WriteString("a"))
	s.Require().NoError(w.WriteInt(1))
	s.Require().NoError(w.WriteString("b"))
	s.Require().NoError(w.WriteInt(2))
	s.Require().NoError(w.Close())

	r := s.newReader(sink.Bytes())
	n, err := r.ReadMapHeader()
	s.Require().NoError(err)
	s.Assert().EqualValues(2, n)
	keys := []string{"a", "b"}
	for i := uint32(0); i < n; i++ {
		typ, err := r.NextType()
		s.Require().NoError(err)
		s.Assert().Equal(TypeString, typ)
		key, err := r.ReadString()
		s.Require().NoError(err)
		s.Assert().Equal(keys[i], key)
		val, err := r.ReadInt()
		s.Require().NoError(err)
		s.Assert().EqualValues(i+1, val)
	}
}

func (s *RoundTripTestSuite) TestBinaryRoundTrip() {
	payload := []byte{1, 2, 3, 4, 5}
	sink := NewCollectorSink()
	w := s.newWriter(sink)
	s.Require().NoError(w.WriteBinaryHeader(uint32(len(payload))))
	s.Require().NoError(w.WritePayload(payload))
	s.Require().NoError(w.Close())

	r := s.newReader(sink.Bytes())
	n, err := r.ReadBinaryHeader()
	s.Require().NoError(err)
	s.Assert().Equal(len(payload), n)
	got := make([]byte, n)
	read, err := r.ReadPayload(got, n)
	s.Require().NoError(err)
	s.Assert().Equal(n, read)
	s.Assert().Equal(payload, got)
}

func (s *RoundTripTestSuite) TestWithStringCodecChainsMidFlight() {
	sink := NewCollectorSink()
	w := s.newWriter(sink)
	s.Require().NoError(w.WriteString("hello"))
	w.WithStringCodec(DefaultStringCodec).WithIdentifierCodec(DefaultIdentifierCodec)
	s.Require().NoError(w.WriteIdentifier("id"))
	s.Require().NoError(w.Close())

	r := s.newReader(sink.Bytes())
	r.WithStringCodec(DefaultStringCodec)
	str, err := r.ReadString()
	s.Require().NoError(err)
	s.Assert().Equal("hello", str)
	id, err := r.ReadString()
	s.Require().NoError(err)
	s.Assert().Equal("id", id)
}

func (s *RoundTripTestSuite) TestExtensionRoundTrip() {
	payload := []byte{0xde, 0xad, 0xbe, 0xef}
	sink := NewCollectorSink()
	w := s.newWriter(sink)
	s.Require().NoError(w.WriteExtensionHeader(uint32(len(payload)), 5))
	s.Require().NoError(w.WritePayload(payload))
	s.Require().NoError(w.Close())

	r := s.newReader(sink.Bytes())
	hdr, err := r.ReadExtensionHeader()
	s.Require().NoError(err)
	s.Assert().EqualValues(4, hdr.Length)
	s.Assert().EqualValues(5, hdr.Type)
	got := make([]byte, hdr.Length)
	_, err = r.ReadPayload(got, int(hdr.Length))
	s.Require().NoError(err)
	s.Assert().Equal(payload, got)
}
