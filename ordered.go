package facet

import (
	"cmp"
	"fmt"
	"iter"
	"reflect"
	"slices"
)

// OrderedMap is a map that preserves the insertion order of its keys.
// Re-setting an existing key keeps its original position.
//
// The zero value is ready to use. An OrderedMap is not safe for concurrent
// mutation.
type OrderedMap[K comparable, V any] struct {
	keys   []K
	values map[K]V
}

// Object is the ordered map used for generic trees: walker output, decoded
// documents and auto-vivified map slots.
type Object = OrderedMap[string, any]

// NewOrderedMap returns an empty ordered map.
func NewOrderedMap[K comparable, V any]() *OrderedMap[K, V] {
	return &OrderedMap[K, V]{values: make(map[K]V)}
}

// NewObject returns an empty Object.
func NewObject() *Object {
	return NewOrderedMap[string, any]()
}

// Set stores value under key, appending the key if it is new.
func (m *OrderedMap[K, V]) Set(key K, value V) {
	if m.values == nil {
		m.values = make(map[K]V)
	}
	if _, ok := m.values[key]; !ok {
		m.keys = append(m.keys, key)
	}
	m.values[key] = value
}

// Get returns the value stored under key.
func (m *OrderedMap[K, V]) Get(key K) (V, bool) {
	if m == nil {
		var zero V
		return zero, false
	}
	v, ok := m.values[key]
	return v, ok
}

// Has reports whether key is present.
func (m *OrderedMap[K, V]) Has(key K) bool {
	_, ok := m.Get(key)
	return ok
}

// Delete removes key, reporting whether it was present.
func (m *OrderedMap[K, V]) Delete(key K) bool {
	if m == nil {
		return false
	}
	if _, ok := m.values[key]; !ok {
		return false
	}
	delete(m.values, key)
	for i, k := range m.keys {
		if k == key {
			m.keys = append(m.keys[:i], m.keys[i+1:]...)
			break
		}
	}
	return true
}

// Len returns the number of entries.
func (m *OrderedMap[K, V]) Len() int {
	if m == nil {
		return 0
	}
	return len(m.keys)
}

// Keys returns a copy of the keys in insertion order.
func (m *OrderedMap[K, V]) Keys() []K {
	if m == nil {
		return nil
	}
	out := make([]K, len(m.keys))
	copy(out, m.keys)
	return out
}

// Values returns the values in key order.
func (m *OrderedMap[K, V]) Values() []V {
	if m == nil {
		return nil
	}
	out := make([]V, 0, len(m.keys))
	for _, k := range m.keys {
		out = append(out, m.values[k])
	}
	return out
}

// All iterates over entries in insertion order.
func (m *OrderedMap[K, V]) All() iter.Seq2[K, V] {
	return func(yield func(K, V) bool) {
		if m == nil {
			return
		}
		for _, k := range m.keys {
			if !yield(k, m.values[k]) {
				return
			}
		}
	}
}

// Clone returns a shallow copy.
func (m *OrderedMap[K, V]) Clone() *OrderedMap[K, V] {
	out := NewOrderedMap[K, V]()
	if m == nil {
		return out
	}
	out.keys = append(out.keys, m.keys...)
	for k, v := range m.values {
		out.values[k] = v
	}
	return out
}

// String renders the map as {k: v, ...} in key order.
func (m *OrderedMap[K, V]) String() string {
	s := "{"
	i := 0
	for k, v := range m.All() {
		if i > 0 {
			s += ", "
		}
		s += fmt.Sprintf("%v: %v", k, v)
		i++
	}
	return s + "}"
}

// Ordered is the untyped view shared by every OrderedMap instantiation.
// Codecs use it to emit any ordered map in key order.
type Ordered interface {
	Len() int
	Range(fn func(key, value any) bool)
}

// orderedAccess extends Ordered with the typed access the resolver,
// converter and walker need.
type orderedAccess interface {
	Ordered
	keyType() reflect.Type
	valueType() reflect.Type
	lookup(key any) (any, bool)
	store(key, value any) error
}

func (m *OrderedMap[K, V]) keyType() reflect.Type   { return reflect.TypeFor[K]() }
func (m *OrderedMap[K, V]) valueType() reflect.Type { return reflect.TypeFor[V]() }

func (m *OrderedMap[K, V]) lookup(key any) (any, bool) {
	k, ok := key.(K)
	if !ok {
		return nil, false
	}
	v, ok := m.Get(k)
	if !ok {
		return nil, false
	}
	return v, true
}

func (m *OrderedMap[K, V]) store(key, value any) error {
	k, ok := key.(K)
	if !ok {
		return newConversionError(key, m.keyType(), nil)
	}
	if value == nil {
		var zero V
		m.Set(k, zero)
		return nil
	}
	v, ok := value.(V)
	if !ok {
		return newConversionError(value, m.valueType(), nil)
	}
	m.Set(k, v)
	return nil
}

// Range calls fn for each entry in insertion order until fn returns false.
func (m *OrderedMap[K, V]) Range(fn func(key, value any) bool) {
	for k, v := range m.All() {
		if !fn(k, v) {
			return
		}
	}
}

// asOrdered returns the untyped view of v if it is a non-nil ordered map.
func asOrdered(v reflect.Value) (orderedAccess, bool) {
	if !v.IsValid() || v.Kind() != reflect.Ptr || v.IsNil() || !v.CanInterface() {
		return nil, false
	}
	oa, ok := v.Interface().(orderedAccess)
	return oa, ok
}

// isOrderedType reports whether t is a pointer to an OrderedMap instantiation.
func isOrderedType(t reflect.Type) bool {
	return t != nil && t.Kind() == reflect.Ptr && t.Implements(orderedAccessType)
}

var orderedAccessType = reflect.TypeFor[orderedAccess]()

// entry is one key/value pair of a map-like value.
type entry struct {
	key, value reflect.Value
}

// mapEntries lists the entries of an ordered map in insertion order, or of a
// Go map in sorted key order.
func mapEntries(v reflect.Value) ([]entry, bool) {
	if om, ok := asOrdered(v); ok {
		out := make([]entry, 0, om.Len())
		om.Range(func(k, val any) bool {
			out = append(out, entry{key: reflect.ValueOf(k), value: reflect.ValueOf(val)})
			return true
		})
		return out, true
	}
	if v.Kind() != reflect.Map {
		return nil, false
	}
	keys := sortedKeys(v)
	out := make([]entry, len(keys))
	for i, k := range keys {
		out[i] = entry{key: k, value: v.MapIndex(k)}
	}
	return out, true
}

// sortedKeys returns the keys of a Go map in a deterministic order: numeric
// keys by value, everything else by its printed form.
func sortedKeys(v reflect.Value) []reflect.Value {
	keys := v.MapKeys()
	slices.SortFunc(keys, compareKeys)
	return keys
}

func compareKeys(a, b reflect.Value) int {
	if a.Kind() == b.Kind() {
		switch a.Kind() {
		case reflect.String:
			return cmp.Compare(a.String(), b.String())
		case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
			return cmp.Compare(a.Int(), b.Int())
		case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
			return cmp.Compare(a.Uint(), b.Uint())
		case reflect.Float32, reflect.Float64:
			return cmp.Compare(a.Float(), b.Float())
		case reflect.Bool:
			return cmp.Compare(boolRank(a.Bool()), boolRank(b.Bool()))
		}
	}
	return cmp.Compare(fmt.Sprint(a.Interface()), fmt.Sprint(b.Interface()))
}

func boolRank(b bool) int {
	if b {
		return 1
	}
	return 0
}
