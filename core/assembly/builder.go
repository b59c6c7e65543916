// File: core/assembly/builder.go
// Package assembly reconstructs whole messages from ordered fragments.
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package assembly

import (
	"fmt"

	"github.com/momentics/hioload-udp/api"
)

const (
	// DefaultInitialCapacity is the starting capacity of a session buffer.
	DefaultInitialCapacity = 4096

	// DefaultMaxCapacity bounds how large one reassembled message may grow.
	DefaultMaxCapacity = 16 * 1024 * 1024
)

// BufferBuilder accumulates the fragments of one in-flight message for a
// single session. Reset keeps the backing capacity so steady-state
// reassembly does not allocate; capacity never shrinks automatically.
// Owned by exactly one thread, never shared.
type BufferBuilder struct {
	buf         []byte
	limit       int
	maxCapacity int
}

// NewBufferBuilder creates a builder with the given initial capacity,
// hard-capped at maxCapacity. Non-positive arguments select defaults.
func NewBufferBuilder(initialCapacity, maxCapacity int) *BufferBuilder {
	if initialCapacity <= 0 {
		initialCapacity = DefaultInitialCapacity
	}
	if maxCapacity <= 0 {
		maxCapacity = DefaultMaxCapacity
	}
	if initialCapacity > maxCapacity {
		initialCapacity = maxCapacity
	}
	return &BufferBuilder{
		buf:         make([]byte, initialCapacity),
		maxCapacity: maxCapacity,
	}
}

// Reset discards accumulated content, keeping capacity.
func (b *BufferBuilder) Reset() *BufferBuilder {
	b.limit = 0
	return b
}

// Append adds data to the accumulated message, growing capacity by
// doubling (or to the exact required size if larger). Exceeding the
// maximum capacity returns an error wrapping api.ErrMessageTooLarge and
// leaves the builder content untouched.
func (b *BufferBuilder) Append(data []byte) error {
	required := b.limit + len(data)
	if required > len(b.buf) {
		if err := b.ensureCapacity(required); err != nil {
			return err
		}
	}
	copy(b.buf[b.limit:], data)
	b.limit = required
	return nil
}

// Bytes returns the accumulated message content. The slice aliases the
// builder's backing array and is valid until the next Reset or Append.
func (b *BufferBuilder) Bytes() []byte {
	return b.buf[:b.limit]
}

// Limit returns the accumulated message length.
func (b *BufferBuilder) Limit() int {
	return b.limit
}

// Capacity returns the current backing capacity.
func (b *BufferBuilder) Capacity() int {
	return len(b.buf)
}

func (b *BufferBuilder) ensureCapacity(required int) error {
	if required > b.maxCapacity {
		return fmt.Errorf("%w: required %d > max %d",
			api.ErrMessageTooLarge, required, b.maxCapacity)
	}
	newCap := len(b.buf) * 2
	if newCap < required {
		newCap = required
	}
	if newCap > b.maxCapacity {
		newCap = b.maxCapacity
	}
	grown := make([]byte, newCap)
	copy(grown, b.buf[:b.limit])
	b.buf = grown
	return nil
}
