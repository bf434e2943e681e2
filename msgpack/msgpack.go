// Package msgpack provides a MessagePack codec implementation.
package msgpack

import (
	"bytes"
	"fmt"
	"sort"

	"github.com/vmihailenco/msgpack/v5"
	"github.com/zoobzio/facet"
)

// msgpackCodec implements facet.Codec for MessagePack.
type msgpackCodec struct{}

// New returns a MessagePack codec.
func New() facet.Codec {
	return &msgpackCodec{}
}

// ContentType returns the MIME type for MessagePack.
func (c *msgpackCodec) ContentType() string {
	return "application/msgpack"
}

// Marshal encodes v as MessagePack. Ordered maps are written as maps in key
// order; other values use the msgpack encoder.
func (c *msgpackCodec) Marshal(v any) ([]byte, error) {
	var buf bytes.Buffer
	enc := msgpack.NewEncoder(&buf)
	if err := encode(enc, v); err != nil {
		return nil, facet.NewCodecError(facet.ErrMarshal, err)
	}
	return buf.Bytes(), nil
}

// Unmarshal decodes MessagePack data into v. Maps decode as *facet.Object
// with their wire order; integers decode as int64 or uint64.
func (c *msgpackCodec) Unmarshal(data []byte, v any) error {
	dec := msgpack.NewDecoder(bytes.NewReader(data))
	dec.UseLooseInterfaceDecoding(true)
	dec.SetMapDecoder(decodeObject)

	tree, err := dec.DecodeInterfaceLoose()
	if err != nil {
		return facet.NewCodecError(facet.ErrUnmarshal, err)
	}
	if err := facet.Assign(v, tree); err != nil {
		return facet.NewCodecError(facet.ErrUnmarshal, err)
	}
	return nil
}

func encode(enc *msgpack.Encoder, v any) error {
	switch t := v.(type) {
	case nil:
		return enc.EncodeNil()
	case facet.Ordered:
		if err := enc.EncodeMapLen(t.Len()); err != nil {
			return err
		}
		var err error
		t.Range(func(key, value any) bool {
			if err = enc.EncodeString(keyString(key)); err != nil {
				return false
			}
			err = encode(enc, value)
			return err == nil
		})
		return err
	case []any:
		if err := enc.EncodeArrayLen(len(t)); err != nil {
			return err
		}
		for _, e := range t {
			if err := encode(enc, e); err != nil {
				return err
			}
		}
		return nil
	case map[string]any:
		keys := make([]string, 0, len(t))
		for k := range t {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		if err := enc.EncodeMapLen(len(keys)); err != nil {
			return err
		}
		for _, k := range keys {
			if err := enc.EncodeString(k); err != nil {
				return err
			}
			if err := encode(enc, t[k]); err != nil {
				return err
			}
		}
		return nil
	}
	return enc.Encode(v)
}

func decodeObject(dec *msgpack.Decoder) (any, error) {
	n, err := dec.DecodeMapLen()
	if err != nil {
		return nil, err
	}
	if n == -1 {
		return nil, nil
	}
	obj := facet.NewObject()
	for i := 0; i < n; i++ {
		k, err := dec.DecodeInterfaceLoose()
		if err != nil {
			return nil, err
		}
		v, err := dec.DecodeInterfaceLoose()
		if err != nil {
			return nil, err
		}
		obj.Set(keyString(k), v)
	}
	return obj, nil
}

func keyString(k any) string {
	switch t := k.(type) {
	case string:
		return t
	case []byte:
		return string(t)
	}
	return fmt.Sprint(k)
}
