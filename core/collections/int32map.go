// File: core/collections/int32map.go
// Package collections implements allocation-free scalar-keyed maps.
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Int32Map is an open-addressed, linear-probing map keyed by int32.
// Lookups on the receive hot path must not box keys or allocate, which
// rules out map[int32]V iteration-order churn and interface keys.

package collections

// Int32Map maps int32 keys to values without per-operation allocation.
// Not safe for concurrent use; each instance is owned by one thread.
type Int32Map[V any] struct {
	entries []entry[V]
	size    int
	mask    uint32
}

type entry[V any] struct {
	key     int32
	value   V
	present bool
}

// NewInt32Map creates a map with capacity rounded up to a power of two.
func NewInt32Map[V any](capacity int) *Int32Map[V] {
	if capacity < 8 {
		capacity = 8
	}
	n := nextPowerOfTwo(uint32(capacity))
	return &Int32Map[V]{
		entries: make([]entry[V], n),
		mask:    n - 1,
	}
}

// Get returns the value stored for key.
func (m *Int32Map[V]) Get(key int32) (V, bool) {
	i := hashInt32(key) & m.mask
	for m.entries[i].present {
		if m.entries[i].key == key {
			return m.entries[i].value, true
		}
		i = (i + 1) & m.mask
	}
	var zero V
	return zero, false
}

// Put stores value for key, replacing any previous value.
func (m *Int32Map[V]) Put(key int32, value V) {
	i := hashInt32(key) & m.mask
	for m.entries[i].present {
		if m.entries[i].key == key {
			m.entries[i].value = value
			return
		}
		i = (i + 1) & m.mask
	}
	m.entries[i] = entry[V]{key: key, value: value, present: true}
	m.size++
	if m.size*3 > len(m.entries)*2 {
		m.grow()
	}
}

// Remove deletes key and returns the removed value, if any. The probe
// chain after the removed slot is compacted so later lookups stay O(1).
func (m *Int32Map[V]) Remove(key int32) (V, bool) {
	var zero V
	i := hashInt32(key) & m.mask
	for m.entries[i].present {
		if m.entries[i].key == key {
			removed := m.entries[i].value
			m.entries[i] = entry[V]{}
			m.size--
			m.compactChain(i)
			return removed, true
		}
		i = (i + 1) & m.mask
	}
	return zero, false
}

// Len returns the number of stored entries.
func (m *Int32Map[V]) Len() int {
	return m.size
}

// Range applies fn to every entry until fn returns false.
func (m *Int32Map[V]) Range(fn func(key int32, value V) bool) {
	for i := range m.entries {
		if m.entries[i].present {
			if !fn(m.entries[i].key, m.entries[i].value) {
				return
			}
		}
	}
}

// compactChain relocates entries displaced past the freed slot i so no
// probe sequence is broken by the hole.
func (m *Int32Map[V]) compactChain(i uint32) {
	j := i
	for {
		j = (j + 1) & m.mask
		if !m.entries[j].present {
			return
		}
		h := hashInt32(m.entries[j].key) & m.mask
		// Move j down to i unless its home slot lies within (i, j].
		if (j > i && (h <= i || h > j)) || (j < i && h <= i && h > j) {
			m.entries[i] = m.entries[j]
			m.entries[j] = entry[V]{}
			i = j
		}
	}
}

func (m *Int32Map[V]) grow() {
	old := m.entries
	n := uint32(len(old)) * 2
	m.entries = make([]entry[V], n)
	m.mask = n - 1
	m.size = 0
	for i := range old {
		if old[i].present {
			m.Put(old[i].key, old[i].value)
		}
	}
}

// hashInt32 spreads key bits so sequential session ids do not cluster.
func hashInt32(key int32) uint32 {
	h := uint32(key) * 0x9E3779B9
	return h ^ (h >> 16)
}

// nextPowerOfTwo returns the next power-of-two >= v.
func nextPowerOfTwo(v uint32) uint32 {
	v--
	v |= v >> 1
	v |= v >> 2
	v |= v >> 4
	v |= v >> 8
	v |= v >> 16
	v++
	return v
}
