package bson

import (
	"errors"
	"reflect"
	"testing"
	"time"

	"github.com/zoobzio/facet"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func TestNew(t *testing.T) {
	c := New()
	if c == nil {
		t.Error("New() should return non-nil codec")
	}
}

func TestContentType(t *testing.T) {
	c := New()
	if c.ContentType() != "application/bson" {
		t.Errorf("ContentType() = %q, want %q", c.ContentType(), "application/bson")
	}
}

func TestMarshalUnmarshal(t *testing.T) {
	c := New()

	type TestStruct struct {
		Name  string `bson:"name"`
		Value int    `bson:"value"`
	}

	original := TestStruct{Name: "test", Value: 42}

	data, err := c.Marshal(original)
	if err != nil {
		t.Fatalf("Marshal() error: %v", err)
	}

	var restored TestStruct
	if err := c.Unmarshal(data, &restored); err != nil {
		t.Fatalf("Unmarshal() error: %v", err)
	}

	if restored.Name != original.Name || restored.Value != original.Value {
		t.Errorf("round-trip failed: got %+v, want %+v", restored, original)
	}
}

func TestMarshalKeepsKeyOrder(t *testing.T) {
	c := New()

	inner := facet.NewObject()
	inner.Set("y", "why")
	inner.Set("x", int64(7))
	obj := facet.NewObject()
	obj.Set("zeta", int64(1))
	obj.Set("alpha", []any{"a", inner})

	data, err := c.Marshal(obj)
	if err != nil {
		t.Fatalf("Marshal() error: %v", err)
	}

	var raw bson.D
	if err := bson.Unmarshal(data, &raw); err != nil {
		t.Fatalf("bson.Unmarshal() error: %v", err)
	}
	if raw[0].Key != "zeta" || raw[1].Key != "alpha" {
		t.Errorf("document keys = %v, want [zeta alpha]", raw)
	}

	var tree any
	if err := c.Unmarshal(data, &tree); err != nil {
		t.Fatalf("Unmarshal() error: %v", err)
	}
	alpha, _ := tree.(*facet.Object).Get("alpha")
	list, ok := alpha.([]any)
	if !ok || len(list) != 2 {
		t.Fatalf("alpha = %#v", alpha)
	}
	in, ok := list[1].(*facet.Object)
	if !ok {
		t.Fatalf("alpha[1] = %T, want *facet.Object", list[1])
	}
	if got := in.Keys(); !reflect.DeepEqual(got, []string{"y", "x"}) {
		t.Errorf("inner keys = %v, want [y x]", got)
	}
}

func TestUnmarshalNormalizesValues(t *testing.T) {
	c := New()

	when := time.Date(2024, 5, 6, 7, 8, 9, 0, time.UTC)
	id := primitive.NewObjectID()
	data, err := bson.Marshal(bson.D{
		{Key: "small", Value: int32(5)},
		{Key: "when", Value: primitive.NewDateTimeFromTime(when)},
		{Key: "blob", Value: primitive.Binary{Data: []byte("raw")}},
		{Key: "id", Value: id},
		{Key: "none", Value: nil},
	})
	if err != nil {
		t.Fatalf("bson.Marshal() error: %v", err)
	}

	var tree any
	if err := c.Unmarshal(data, &tree); err != nil {
		t.Fatalf("Unmarshal() error: %v", err)
	}
	obj := tree.(*facet.Object)

	if v, _ := obj.Get("small"); v != int64(5) {
		t.Errorf("small = %#v, want int64(5)", v)
	}
	if v, _ := obj.Get("when"); !v.(time.Time).Equal(when) {
		t.Errorf("when = %#v, want %v", v, when)
	}
	if v, _ := obj.Get("blob"); !reflect.DeepEqual(v, []byte("raw")) {
		t.Errorf("blob = %#v", v)
	}
	if v, _ := obj.Get("id"); v != id.Hex() {
		t.Errorf("id = %#v, want %s", v, id.Hex())
	}
	if v, ok := obj.Get("none"); !ok || v != nil {
		t.Errorf("none = %#v, %v; want nil, true", v, ok)
	}
}

func TestMarshalNil(t *testing.T) {
	c := New()

	data, err := c.Marshal(nil)
	if err != nil {
		t.Fatalf("Marshal(nil) error: %v", err)
	}

	var obj facet.Object
	if err := c.Unmarshal(data, &obj); err != nil {
		t.Fatalf("Unmarshal() error: %v", err)
	}
	if obj.Len() != 0 {
		t.Errorf("Unmarshal(nil document) has %d keys, want 0", obj.Len())
	}
}

func TestMarshalScalarFails(t *testing.T) {
	c := New()

	_, err := c.Marshal("not a document")
	if err == nil {
		t.Fatal("Marshal(string) should return error")
	}
	if !errors.Is(err, facet.ErrMarshal) {
		t.Errorf("Marshal(string) error = %v, want ErrMarshal", err)
	}
}

func TestUnmarshalInvalid(t *testing.T) {
	c := New()

	var v struct{}
	err := c.Unmarshal([]byte("invalid bson"), &v)
	if err == nil {
		t.Error("Unmarshal(invalid) should return error")
	}
}
