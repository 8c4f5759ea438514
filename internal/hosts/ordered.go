package hosts

import (
	"github.com/samber/lo"
)

// OrderedMap is an insertion-ordered map. Setting an existing key replaces
// its value without moving it.
type OrderedMap[K comparable, V any] struct {
	items []lo.Tuple2[K, V]
	index map[K]int
}

// NewOrderedMap returns an empty OrderedMap.
func NewOrderedMap[K comparable, V any]() *OrderedMap[K, V] {
	return &OrderedMap[K, V]{index: make(map[K]int)}
}

// Set stores value under key, appending key if it is new.
func (m *OrderedMap[K, V]) Set(key K, value V) {
	if m.index == nil {
		m.index = make(map[K]int)
	}
	if i, ok := m.index[key]; ok {
		m.items[i].B = value
		return
	}
	m.index[key] = len(m.items)
	m.items = append(m.items, lo.T2(key, value))
}

// Get returns the value stored under key and whether it was present.
func (m *OrderedMap[K, V]) Get(key K) (v V, ok bool) {
	if m == nil {
		return
	}
	i, ok := m.index[key]
	if !ok {
		return
	}
	return m.items[i].B, true
}

// Has reports whether key is present.
func (m *OrderedMap[K, V]) Has(key K) bool {
	_, ok := m.Get(key)
	return ok
}

// Len returns the number of entries.
func (m *OrderedMap[K, V]) Len() int {
	if m == nil {
		return 0
	}
	return len(m.items)
}

// Keys returns the keys in insertion order.
func (m *OrderedMap[K, V]) Keys() []K {
	if m == nil {
		return nil
	}
	return lo.Map(m.items, func(kv lo.Tuple2[K, V], _ int) K { return kv.A })
}

// ForEach calls fn for every entry in insertion order.
func (m *OrderedMap[K, V]) ForEach(fn func(k K, v V)) {
	if m == nil {
		return
	}
	for _, kv := range m.items {
		fn(kv.A, kv.B)
	}
}

// Clone returns a copy that can be modified independently.
func (m *OrderedMap[K, V]) Clone() *OrderedMap[K, V] {
	c := NewOrderedMap[K, V]()
	m.ForEach(c.Set)
	return c
}

// Reset removes all entries.
func (m *OrderedMap[K, V]) Reset() {
	m.items = m.items[:0]
	m.index = make(map[K]int)
}
