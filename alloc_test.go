//go:build test

package mxpack

import (
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
)

type AllocatorTestSuite struct {
	suite.Suite
}

func TestAllocatorTestSuite(t *testing.T) {
	suite.Run(t, new(AllocatorTestSuite))
}

func (s *AllocatorTestSuite) TestUnpooledByteBufferExceedsCapacity() {
	a := &UnpooledAllocator{MaxCapacity: 16, MaxStringLen: 16}
	buf, err := a.ByteBuffer(8)
	s.Require().NoError(err)
	s.Assert().Len(buf, 8)

	_, err = a.ByteBuffer(17)
	var exceeded *CapacityExceededError
	s.Require().ErrorAs(err, &exceeded)
	s.Assert().Equal(17, exceeded.Requested)
	s.Assert().Equal(16, exceeded.Max)
}

func (s *AllocatorTestSuite) TestUnpooledCharBufferExceedsStringLimit() {
	a := &UnpooledAllocator{MaxCapacity: 1024, MaxStringLen: 4}
	_, err := a.CharBuffer(5)
	var exceeded *CapacityExceededError
	s.Require().ErrorAs(err, &exceeded)
	s.Assert().Equal(4, exceeded.Max)
}

func (s *AllocatorTestSuite) TestUnpooledReleaseIsNoop() {
	a := NewUnpooledAllocator()
	buf, err := a.ByteBuffer(32)
	s.Require().NoError(err)
	a.Release(buf)
	s.Require().NoError(a.Close())
}

func (s *AllocatorTestSuite) TestUnpooledDefaultsApplyWhenUnset() {
	a := &UnpooledAllocator{}
	buf, err := a.ByteBuffer(DefaultMaxAllocatorCapacity)
	s.Require().NoError(err)
	s.Assert().Len(buf, DefaultMaxAllocatorCapacity)

	_, err = a.ByteBuffer(DefaultMaxAllocatorCapacity + 1)
	s.Require().Error(err)
}

func (s *AllocatorTestSuite) TestPooledAllocatorRoundTripsBuffers() {
	a := NewPooledAllocator()
	buf, err := a.ByteBuffer(100)
	s.Require().NoError(err)
	s.Assert().Len(buf, 100)
	s.Assert().GreaterOrEqual(cap(buf), 100)

	a.Release(buf)

	again, err := a.ByteBuffer(50)
	s.Require().NoError(err)
	s.Assert().Len(again, 50)
	s.Require().NoError(a.Close())
}

func (s *AllocatorTestSuite) TestPooledAllocatorCapacityExceeded() {
	a := NewPooledAllocator()
	a.MaxCapacity = 64
	a.MaxStringLen = 64
	_, err := a.ByteBuffer(65)
	var exceeded *CapacityExceededError
	require.ErrorAs(s.T(), err, &exceeded)
	s.Assert().Equal(65, exceeded.Requested)
	s.Assert().Equal(64, exceeded.Max)
}

func (s *AllocatorTestSuite) TestCapacityClassRoundsUp() {
	s.Assert().Equal(classStep, capacityClass(1))
	s.Assert().Equal(classStep, capacityClass(classStep))
	s.Assert().Equal(2*classStep, capacityClass(classStep+1))
}
