// Package testing provides fixtures and helpers for facet tests.
package testing

import (
	"reflect"
	"testing"
	"time"

	"github.com/zoobzio/facet"
)

// Address is a nested value type.
type Address struct {
	Street string
	City   string
}

// Order is a line item; its SKU is renamed through the facet tag.
type Order struct {
	SKU   string `facet:"sku"`
	Qty   int
	Price float64
}

// Customer is a representative object graph with nested objects, lists,
// maps, times and an excluded field.
type Customer struct {
	ID       string
	Name     string
	Email    string `facet:"-"`
	Active   bool
	Tags     []string
	Address  *Address
	Orders   []Order
	Notes    map[string]string
	Joined   time.Time
	nickname string
}

// Nickname is an accessor-only property.
func (c *Customer) Nickname() string { return c.nickname }

// SetNickname pairs with Nickname.
func (c *Customer) SetNickname(n string) { c.nickname = n }

// SampleCustomer returns a fully populated Customer. Times are whole
// seconds in UTC so every codec can carry them exactly.
func SampleCustomer() *Customer {
	c := &Customer{
		ID:      "c-42",
		Name:    "Alice",
		Email:   "alice@example.com",
		Active:  true,
		Tags:    []string{"gold", "early"},
		Address: &Address{Street: "1 Main St", City: "Springfield"},
		Orders: []Order{
			{SKU: "A-1", Qty: 2, Price: 9.5},
			{SKU: "B-7", Qty: 1, Price: 120},
		},
		Notes:  map[string]string{"tier": "gold", "source": "web"},
		Joined: time.Date(2023, 5, 17, 8, 30, 0, 0, time.UTC),
	}
	c.SetNickname("al")
	return c
}

// Link is a singly linked list node.
type Link struct {
	Value int
	Next  *Link
}

// Chain builds a list of n links.
func Chain(n int) *Link {
	var head *Link
	for i := n; i > 0; i-- {
		head = &Link{Value: i, Next: head}
	}
	return head
}

// TreeEqual reports whether two generic trees hold the same data in the
// same key order. Numbers compare by value whatever their width, and
// RFC 3339 strings compare equal to the instant they name.
func TreeEqual(a, b any) bool {
	a, b = normalize(a), normalize(b)
	switch x := a.(type) {
	case nil:
		return b == nil
	case *facet.Object:
		y, ok := b.(*facet.Object)
		if !ok || x.Len() != y.Len() {
			return false
		}
		yk := y.Keys()
		for i, k := range x.Keys() {
			if yk[i] != k {
				return false
			}
			xv, _ := x.Get(k)
			yv, _ := y.Get(k)
			if !TreeEqual(xv, yv) {
				return false
			}
		}
		return true
	case []any:
		y, ok := b.([]any)
		if !ok || len(x) != len(y) {
			return false
		}
		for i := range x {
			if !TreeEqual(x[i], y[i]) {
				return false
			}
		}
		return true
	case time.Time:
		y, ok := b.(time.Time)
		return ok && x.Equal(y)
	}
	return reflect.DeepEqual(a, b)
}

func normalize(v any) any {
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return float64(rv.Int())
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return float64(rv.Uint())
	case reflect.Float32, reflect.Float64:
		return rv.Float()
	case reflect.String:
		if t, err := time.Parse(time.RFC3339Nano, rv.String()); err == nil {
			return t
		}
	}
	return v
}

// RoundTrip walks v, marshals the snapshot root with codec and decodes the
// result back into a generic tree.
func RoundTrip(tb testing.TB, codec facet.Codec, v any) (*facet.Snapshot, any) {
	tb.Helper()
	snap, err := facet.Walk(v, facet.DefaultMaxDepth, nil, false)
	if err != nil {
		tb.Fatalf("Walk() error = %v", err)
	}
	data, err := codec.Marshal(snap.Root)
	if err != nil {
		tb.Fatalf("%s Marshal() error = %v", codec.ContentType(), err)
	}
	var tree any
	if err := codec.Unmarshal(data, &tree); err != nil {
		tb.Fatalf("%s Unmarshal() error = %v", codec.ContentType(), err)
	}
	return snap, tree
}
