// File: core/concurrency/spsc.go
// Package concurrency implements lock-free cross-thread handoff primitives.
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// OneToOneRing is a bounded single-producer/single-consumer ring with
// atomic head/tail, padded to prevent false sharing. It carries the
// admission commands from a receiver thread to the conductor thread;
// that handoff is the only queue crossing the thread boundary in the
// receive core.

package concurrency

import (
	"sync/atomic"

	"github.com/momentics/hioload-udp/api"
)

// Ensure compile-time interface compliance.
var _ api.Ring[any] = (*OneToOneRing[any])(nil)

// OneToOneRing is a lock-free ring buffer safe for exactly one producer
// and one consumer goroutine.
type OneToOneRing[T any] struct {
	data []T
	mask uint64
	head atomic.Uint64
	_    [64]byte // padding for hot/cold separation
	tail atomic.Uint64
	_    [64]byte // padding to separate tail from other data
}

// NewOneToOneRing allocates a ring with capacity rounded up to a power
// of two. Capacity must be positive.
func NewOneToOneRing[T any](capacity int) *OneToOneRing[T] {
	if capacity <= 0 {
		panic("ring capacity must be positive")
	}
	size := uint64(1)
	for size < uint64(capacity) {
		size <<= 1
	}
	return &OneToOneRing[T]{
		data: make([]T, size),
		mask: size - 1,
	}
}

// Enqueue adds item; returns false if full. Producer side only.
func (r *OneToOneRing[T]) Enqueue(item T) bool {
	tail := r.tail.Load()
	head := r.head.Load()
	if tail-head >= uint64(len(r.data)) {
		return false
	}
	r.data[tail&r.mask] = item
	r.tail.Store(tail + 1) // release: publishes the slot write
	return true
}

// Dequeue removes and returns the oldest item; ok false if empty.
// Consumer side only.
func (r *OneToOneRing[T]) Dequeue() (T, bool) {
	head := r.head.Load()
	tail := r.tail.Load() // acquire: pairs with the producer's tail store
	if head >= tail {
		var zero T
		return zero, false
	}
	item := r.data[head&r.mask]
	var zero T
	r.data[head&r.mask] = zero // release the reference for GC
	r.head.Store(head + 1)
	return item, true
}

// Len returns number of items currently in the ring.
func (r *OneToOneRing[T]) Len() int {
	head := r.head.Load()
	tail := r.tail.Load()
	return int(tail - head)
}

// Cap returns fixed ring capacity.
func (r *OneToOneRing[T]) Cap() int {
	return len(r.data)
}
