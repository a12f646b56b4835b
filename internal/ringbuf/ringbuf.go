// Package ringbuf provides a lock-free, single-producer single-consumer
// (SPSC) ring buffer for model.Tick. It is the bounded queue at the ingest
// boundary: the feed adapter produces, the instrument pipeline consumes, and
// a full buffer is resolved by an explicit policy rather than unbounded
// buffering.
package ringbuf

import (
	"sync/atomic"

	"trading-corev1/internal/model"
)

// cacheLine is the typical x86-64 cache line size used for padding.
const cacheLine = 64

// Ring is a lock-free SPSC ring buffer for Tick values.
// Size must be a power of two for fast bitwise modulo.
type Ring struct {
	buf  []model.Tick
	mask uint64

	// Separate cache lines to prevent false sharing between producer and consumer.
	_pad0 [cacheLine]byte
	head  atomic.Uint64 // written by producer
	_pad1 [cacheLine]byte
	tail  atomic.Uint64 // written by consumer
	_pad2 [cacheLine]byte

	dropped atomic.Uint64
}

// New creates a ring buffer. capacity is rounded up to the next power of two.
// Minimum capacity is 2.
func New(capacity int) *Ring {
	c := nextPow2(capacity)
	if c < 2 {
		c = 2
	}
	return &Ring{
		buf:  make([]model.Tick, c),
		mask: uint64(c - 1),
	}
}

// Push appends a tick. Returns false if the buffer is full (the tick is NOT
// written in that case; drop-newest policy). Non-blocking.
func (r *Ring) Push(t model.Tick) bool {
	head := r.head.Load()
	tail := r.tail.Load()

	if head-tail >= uint64(len(r.buf)) {
		r.dropped.Add(1)
		return false
	}

	r.buf[head&r.mask] = t
	r.head.Store(head + 1)
	return true
}

// PushEvict appends a tick, evicting the oldest entry when the buffer is
// full (drop-oldest policy). Returns true if an eviction happened.
// Must only be called from the producer while the consumer may run
// concurrently: eviction advances tail exactly like a consumer Pop.
func (r *Ring) PushEvict(t model.Tick) bool {
	evicted := false
	head := r.head.Load()
	tail := r.tail.Load()

	if head-tail >= uint64(len(r.buf)) {
		// consume the oldest slot; racing with Pop is benign because both
		// sides only ever advance tail by one past a published entry
		r.tail.CompareAndSwap(tail, tail+1)
		r.dropped.Add(1)
		evicted = true
	}

	r.buf[head&r.mask] = t
	r.head.Store(head + 1)
	return evicted
}

// Pop retrieves the next tick. Returns false if the buffer is empty.
// Non-blocking.
func (r *Ring) Pop() (model.Tick, bool) {
	tail := r.tail.Load()
	head := r.head.Load()

	if tail >= head {
		return model.Tick{}, false
	}

	t := r.buf[tail&r.mask]
	if !r.tail.CompareAndSwap(tail, tail+1) {
		// producer evicted this slot first; retry once on the next entry
		return r.Pop()
	}
	return t, true
}

// Len returns the current number of items in the buffer.
func (r *Ring) Len() int {
	return int(r.head.Load() - r.tail.Load())
}

// Cap returns the buffer capacity.
func (r *Ring) Cap() int {
	return len(r.buf)
}

// Dropped returns the total number of ticks dropped by either policy.
func (r *Ring) Dropped() uint64 {
	return r.dropped.Load()
}

// nextPow2 returns the smallest power of 2 >= n.
func nextPow2(n int) int {
	if n <= 0 {
		return 1
	}
	n--
	n |= n >> 1
	n |= n >> 2
	n |= n >> 4
	n |= n >> 8
	n |= n >> 16
	n |= n >> 32
	return n + 1
}
