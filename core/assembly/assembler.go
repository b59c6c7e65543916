// File: core/assembly/assembler.go
// Package assembly
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// FragmentAssembler sits in the DataHandler chain and re-assembles
// fragmented messages so the next handler only sees whole ones.
// Unfragmented frames are delegated without copy. Fragmented messages
// are accumulated in per-session builders, allocated lazily and grown
// as needed.

package assembly

import (
	"fmt"

	"github.com/momentics/hioload-udp/api"
	"github.com/momentics/hioload-udp/core/collections"
)

// Ensure compile-time interface compliance.
var _ api.DataHandler = (*FragmentAssembler)(nil)

// FragmentAssembler decorates a DataHandler with fragment reassembly for
// one endpoint. Owned by the receiver thread of that endpoint; the
// builder map is accessed without locking and no method may run on any
// other thread.
type FragmentAssembler struct {
	delegate        api.DataHandler
	builders        *collections.Int32Map[*BufferBuilder]
	initialCapacity int
	maxCapacity     int
}

// NewFragmentAssembler creates an assembler delegating whole messages to
// delegate. Non-positive capacities select the package defaults.
func NewFragmentAssembler(delegate api.DataHandler, initialCapacity, maxCapacity int) *FragmentAssembler {
	return &FragmentAssembler{
		delegate:        delegate,
		builders:        collections.NewInt32Map[*BufferBuilder](16),
		initialCapacity: initialCapacity,
		maxCapacity:     maxCapacity,
	}
}

// OnData consumes one fragment. Whole messages pass straight through on
// the input slice; an end fragment delivers the accumulated message
// tagged unfragmented, merged with the application bits of the final
// fragment. A middle or end fragment with no message under reassembly
// is a protocol consistency violation and returns an error wrapping
// api.ErrNoInFlightMessage; a later begin fragment recovers normally.
func (a *FragmentAssembler) OnData(data []byte, offset, length int, sessionID int32, flags uint8) error {
	if api.IsUnfragmented(flags) {
		return a.delegate.OnData(data, offset, length, sessionID, flags)
	}

	if flags&api.FlagBegin != 0 {
		builder, ok := a.builders.Get(sessionID)
		if !ok {
			builder = NewBufferBuilder(a.initialCapacity, a.maxCapacity)
			a.builders.Put(sessionID, builder)
		}
		return a.append(builder.Reset(), data[offset:offset+length], sessionID)
	}

	builder, ok := a.builders.Get(sessionID)
	if !ok {
		return fmt.Errorf("%w: session %d", api.ErrNoInFlightMessage, sessionID)
	}
	if err := a.append(builder, data[offset:offset+length], sessionID); err != nil {
		return err
	}

	if flags&api.FlagEnd != 0 {
		// The builder content is consumed by this delivery; it stays valid
		// for the delegate until the next begin fragment reuses it.
		return a.delegate.OnData(builder.Bytes(), 0, builder.Limit(), sessionID, flags|api.FlagUnfragmented)
	}
	return nil
}

// FreeSessionBuffer releases the session's builder, reporting whether
// one existed. Idempotent. Like every other method here it must run on
// the owning receiver thread; teardown invokes it there when the
// connection retires or when its routing entry disappears.
func (a *FragmentAssembler) FreeSessionBuffer(sessionID int32) bool {
	_, removed := a.builders.Remove(sessionID)
	return removed
}

// SessionBufferCount returns how many sessions hold a builder.
func (a *FragmentAssembler) SessionBufferCount() int {
	return a.builders.Len()
}

// append grows-and-copies, discarding the partial message on capacity
// failure so later fragments of it hit the consistency error path
// instead of extending a truncated prefix.
func (a *FragmentAssembler) append(builder *BufferBuilder, data []byte, sessionID int32) error {
	if err := builder.Append(data); err != nil {
		a.builders.Remove(sessionID)
		return err
	}
	return nil
}
