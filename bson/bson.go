// Package bson provides a BSON codec implementation.
package bson

import (
	"fmt"
	"sort"

	"github.com/zoobzio/facet"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// bsonCodec implements facet.Codec for BSON.
type bsonCodec struct{}

// New returns a BSON codec.
func New() facet.Codec {
	return &bsonCodec{}
}

// ContentType returns the MIME type for BSON.
func (c *bsonCodec) ContentType() string {
	return "application/bson"
}

// Marshal encodes v as a BSON document. Ordered maps become bson.D in key
// order. A nil value encodes as an empty document; BSON has no top-level
// null.
func (c *bsonCodec) Marshal(v any) ([]byte, error) {
	if v == nil {
		v = bson.D{}
	}
	data, err := bson.Marshal(toBSON(v))
	if err != nil {
		return nil, facet.NewCodecError(facet.ErrMarshal, err)
	}
	return data, nil
}

// Unmarshal decodes a BSON document into v through a *facet.Object tree.
func (c *bsonCodec) Unmarshal(data []byte, v any) error {
	var doc bson.D
	if err := bson.Unmarshal(data, &doc); err != nil {
		return facet.NewCodecError(facet.ErrUnmarshal, err)
	}
	if err := facet.Assign(v, fromBSON(doc)); err != nil {
		return facet.NewCodecError(facet.ErrUnmarshal, err)
	}
	return nil
}

func toBSON(v any) any {
	switch t := v.(type) {
	case facet.Ordered:
		d := make(bson.D, 0, t.Len())
		t.Range(func(key, value any) bool {
			d = append(d, bson.E{Key: fmt.Sprint(key), Value: toBSON(value)})
			return true
		})
		return d
	case []any:
		a := make(bson.A, len(t))
		for i, e := range t {
			a[i] = toBSON(e)
		}
		return a
	case map[string]any:
		keys := make([]string, 0, len(t))
		for k := range t {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		d := make(bson.D, 0, len(keys))
		for _, k := range keys {
			d = append(d, bson.E{Key: k, Value: toBSON(t[k])})
		}
		return d
	}
	return v
}

// fromBSON maps decoded BSON values onto the generic tree types shared by
// every codec.
func fromBSON(v any) any {
	switch t := v.(type) {
	case bson.D:
		obj := facet.NewObject()
		for _, e := range t {
			obj.Set(e.Key, fromBSON(e.Value))
		}
		return obj
	case bson.M:
		keys := make([]string, 0, len(t))
		for k := range t {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		obj := facet.NewObject()
		for _, k := range keys {
			obj.Set(k, fromBSON(t[k]))
		}
		return obj
	case bson.A:
		list := make([]any, len(t))
		for i, e := range t {
			list[i] = fromBSON(e)
		}
		return list
	case int32:
		return int64(t)
	case primitive.DateTime:
		return t.Time().UTC()
	case primitive.Binary:
		return t.Data
	case primitive.ObjectID:
		return t.Hex()
	case primitive.Decimal128:
		return t.String()
	case primitive.Null, primitive.Undefined:
		return nil
	}
	return v
}
