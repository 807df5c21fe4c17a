package mxpack

import (
	"sync"

	"github.com/puzpuzpuz/xsync/v4"
)

// DefaultMaxAllocatorCapacity is the allocator's default ceiling on any
// single buffer request (spec §6).
const DefaultMaxAllocatorCapacity = 1 << 20 // 1 MiB

// classStep is the granularity at which pooled buffer requests are rounded
// up before bucketing, so that nearby-sized requests share a free list
// instead of each minting its own pool.
const classStep = 256

// Allocator hands out and reclaims array-backed byte buffers used for
// auxiliary, off-working-buffer transfers: oversized strings (spec §4.5),
// oversized string encoding (spec §4.6), and similar staging. Requests
// above the configured maximum fail with CapacityExceededError.
type Allocator interface {
	// ByteBuffer returns a buffer with capacity at least minCapacity.
	ByteBuffer(minCapacity int) ([]byte, error)
	// CharBuffer returns a buffer sized for UTF-8 text staging. Go strings
	// are UTF-8 byte sequences, so this shares ByteBuffer's storage policy
	// but is tracked separately against MaxStringLen.
	CharBuffer(minCapacity int) ([]byte, error)
	// Release returns buf to the allocator. Unpooled allocators no-op;
	// pooled allocators return it to the matching free list.
	Release(buf []byte)
	// Close releases any resources held by the allocator. Idempotent.
	Close() error
}

// UnpooledAllocator mints a fresh buffer per request. Release is a no-op.
// Safe for concurrent use: it holds no mutable state beyond its limits.
type UnpooledAllocator struct {
	MaxCapacity  int
	MaxStringLen int
}

// NewUnpooledAllocator builds an UnpooledAllocator with spec-default limits.
func NewUnpooledAllocator() *UnpooledAllocator {
	return &UnpooledAllocator{MaxCapacity: DefaultMaxAllocatorCapacity, MaxStringLen: DefaultMaxAllocatorCapacity}
}

func (a *UnpooledAllocator) maxCapacity() int {
	if a.MaxCapacity <= 0 {
		return DefaultMaxAllocatorCapacity
	}
	return a.MaxCapacity
}

func (a *UnpooledAllocator) maxStringLen() int {
	if a.MaxStringLen <= 0 {
		return DefaultMaxAllocatorCapacity
	}
	return a.MaxStringLen
}

func (a *UnpooledAllocator) ByteBuffer(minCapacity int) ([]byte, error) {
	max := a.maxCapacity()
	if minCapacity > max {
		return nil, &CapacityExceededError{Requested: minCapacity, Max: max}
	}
	return make([]byte, minCapacity), nil
}

func (a *UnpooledAllocator) CharBuffer(minCapacity int) ([]byte, error) {
	max := a.maxStringLen()
	if minCapacity > max {
		return nil, &CapacityExceededError{Requested: minCapacity, Max: max}
	}
	return make([]byte, minCapacity), nil
}

func (a *UnpooledAllocator) Release([]byte) {}
func (a *UnpooledAllocator) Close() error   { return nil }

// PooledAllocator recycles released buffers through a size-segregated free
// list keyed by capacity class. The free-list index is an xsync.Map so
// many Reader/Writer instances sharing one allocator never contend on a
// single lock the way one sync.Pool-per-allocator would if the classes
// were managed by hand.
type PooledAllocator struct {
	MaxCapacity  int
	MaxStringLen int

	pools *xsync.Map[int, *sync.Pool]
}

// NewPooledAllocator builds a PooledAllocator with spec-default limits.
func NewPooledAllocator() *PooledAllocator {
	return &PooledAllocator{
		MaxCapacity:  DefaultMaxAllocatorCapacity,
		MaxStringLen: DefaultMaxAllocatorCapacity,
		pools:        xsync.NewMap[int, *sync.Pool](),
	}
}

func (a *PooledAllocator) maxCapacity() int {
	if a.MaxCapacity <= 0 {
		return DefaultMaxAllocatorCapacity
	}
	return a.MaxCapacity
}

func (a *PooledAllocator) maxStringLen() int {
	if a.MaxStringLen <= 0 {
		return DefaultMaxAllocatorCapacity
	}
	return a.MaxStringLen
}

func capacityClass(minCapacity int) int {
	if minCapacity <= 0 {
		return classStep
	}
	return Roundup(minCapacity, classStep)
}

func (a *PooledAllocator) poolFor(class int) *sync.Pool {
	if pool, ok := a.pools.Load(class); ok {
		return pool
	}
	pool := &sync.Pool{
		New: func() any {
			b := make([]byte, class)
			return &b
		},
	}
	// Racing callers may each install their own pool for the same class;
	// the loser's pool is simply never read again, same tradeoff the
	// teacher's sizeCache makes for its Load/Store pair.
	a.pools.Store(class, pool)
	return pool
}

func (a *PooledAllocator) get(minCapacity, max int) ([]byte, error) {
	if minCapacity > max {
		return nil, &CapacityExceededError{Requested: minCapacity, Max: max}
	}
	class := capacityClass(minCapacity)
	ptr := a.poolFor(class).Get().(*[]byte)
	buf := (*ptr)[:minCapacity]
	return buf, nil
}

func (a *PooledAllocator) ByteBuffer(minCapacity int) ([]byte, error) {
	return a.get(minCapacity, a.maxCapacity())
}

func (a *PooledAllocator) CharBuffer(minCapacity int) ([]byte, error) {
	return a.get(minCapacity, a.maxStringLen())
}

// Release returns buf to the free list matching its capacity class. Buffers
// whose capacity doesn't land on a class boundary (e.g. caller-trimmed
// slices) are simply dropped rather than risking polluting a pool with the
// wrong size.
func (a *PooledAllocator) Release(buf []byte) {
	if buf == nil {
		return
	}
	class := cap(buf)
	pool, ok := a.pools.Load(class)
	if !ok {
		return
	}
	full := buf[:class]
	pool.Put(&full)
}

func (a *PooledAllocator) Close() error {
	a.pools.Clear()
	return nil
}
