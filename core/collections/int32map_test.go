package collections_test

import (
	"testing"

	"github.com/momentics/hioload-udp/core/collections"
)

func TestInt32MapPutGetRemove(t *testing.T) {
	m := collections.NewInt32Map[string](8)
	m.Put(7, "seven")
	m.Put(-3, "minus three")
	m.Put(0, "zero")

	if v, ok := m.Get(7); !ok || v != "seven" {
		t.Fatalf("Get(7) = %q, %v", v, ok)
	}
	if v, ok := m.Get(0); !ok || v != "zero" {
		t.Fatalf("Get(0) = %q, %v", v, ok)
	}
	if _, ok := m.Get(99); ok {
		t.Fatal("Get(99) found a value for an absent key")
	}

	if v, ok := m.Remove(-3); !ok || v != "minus three" {
		t.Fatalf("Remove(-3) = %q, %v", v, ok)
	}
	if _, ok := m.Remove(-3); ok {
		t.Fatal("second Remove(-3) reported a value")
	}
	if m.Len() != 2 {
		t.Fatalf("Len = %d, want 2", m.Len())
	}
}

func TestInt32MapGrowthKeepsEntries(t *testing.T) {
	m := collections.NewInt32Map[int](8)
	const n = 1000
	for i := int32(0); i < n; i++ {
		m.Put(i, int(i)*2)
	}
	if m.Len() != n {
		t.Fatalf("Len = %d, want %d", m.Len(), n)
	}
	for i := int32(0); i < n; i++ {
		v, ok := m.Get(i)
		if !ok || v != int(i)*2 {
			t.Fatalf("Get(%d) = %d, %v", i, v, ok)
		}
	}
}

func TestInt32MapRemoveCompactsProbeChain(t *testing.T) {
	// Colliding keys share probe chains; removing one in the middle must
	// not hide the rest.
	m := collections.NewInt32Map[int](8)
	keys := []int32{1, 9, 17, 25, 33, 41}
	for i, k := range keys {
		m.Put(k, i)
	}
	m.Remove(9)
	for i, k := range keys {
		if k == 9 {
			continue
		}
		v, ok := m.Get(k)
		if !ok || v != i {
			t.Fatalf("Get(%d) after Remove = %d, %v", k, v, ok)
		}
	}
}

func TestInt32MapRange(t *testing.T) {
	m := collections.NewInt32Map[int](8)
	for i := int32(1); i <= 5; i++ {
		m.Put(i, 1)
	}
	sum := int32(0)
	m.Range(func(k int32, _ int) bool {
		sum += k
		return true
	})
	if sum != 15 {
		t.Fatalf("Range visited keys summing to %d, want 15", sum)
	}
}
