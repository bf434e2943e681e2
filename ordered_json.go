package facet

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"reflect"

	"github.com/goccy/go-json"
)

// MarshalJSON encodes the map as a JSON object in insertion order.
// Non-string keys are rendered with fmt.
func (m *OrderedMap[K, V]) MarshalJSON() ([]byte, error) {
	if m == nil {
		return []byte("null"), nil
	}

	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, k := range m.keys {
		if i > 0 {
			buf.WriteByte(',')
		}
		kb, err := json.Marshal(keyString(k))
		if err != nil {
			return nil, err
		}
		buf.Write(kb)
		buf.WriteByte(':')
		vb, err := json.Marshal(m.values[k])
		if err != nil {
			return nil, fmt.Errorf("key %v: %w", k, err)
		}
		buf.Write(vb)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// UnmarshalJSON decodes a JSON object, keeping key order. Keys and values
// are converted to K and V; nested objects under an any V become *Object.
func (m *OrderedMap[K, V]) UnmarshalJSON(data []byte) error {
	tree, err := ParseJSON(data)
	if err != nil {
		return err
	}
	obj, ok := tree.(*Object)
	if !ok {
		return fmt.Errorf("%w: JSON value is not an object", ErrInvalidArgument)
	}

	m.keys = nil
	m.values = make(map[K]V, obj.Len())
	for k, v := range obj.All() {
		key, err := defaultConverter.convertValue(reflect.ValueOf(k), m.keyType())
		if err != nil {
			return err
		}
		var val any
		if v != nil {
			cv, err := defaultConverter.convertValue(reflect.ValueOf(v), m.valueType())
			if err != nil {
				return fmt.Errorf("key %s: %w", k, err)
			}
			val = cv.Interface()
		}
		if err := m.store(key.Interface(), val); err != nil {
			return err
		}
	}
	return nil
}

// ParseJSON decodes a JSON document into a generic tree of *Object, []any
// and scalars. Object key order is preserved. Integral numbers decode as
// int64, other numbers as float64.
func ParseJSON(data []byte) (any, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	v, err := readJSONValue(dec)
	if err != nil {
		return nil, err
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("%w: trailing data after JSON value", ErrInvalidArgument)
	}
	return v, nil
}

func readJSONValue(dec *json.Decoder) (any, error) {
	tok, err := dec.Token()
	if err != nil {
		return nil, err
	}
	return readJSONToken(dec, tok)
}

func readJSONToken(dec *json.Decoder, tok any) (any, error) {
	switch t := tok.(type) {
	case json.Delim:
		switch t {
		case '{':
			obj := NewObject()
			for dec.More() {
				kt, err := dec.Token()
				if err != nil {
					return nil, err
				}
				key, ok := kt.(string)
				if !ok {
					return nil, fmt.Errorf("%w: object key %v is not a string", ErrInvalidArgument, kt)
				}
				v, err := readJSONValue(dec)
				if err != nil {
					return nil, err
				}
				obj.Set(key, v)
			}
			if _, err := dec.Token(); err != nil {
				return nil, err
			}
			return obj, nil
		case '[':
			list := []any{}
			for dec.More() {
				v, err := readJSONValue(dec)
				if err != nil {
					return nil, err
				}
				list = append(list, v)
			}
			if _, err := dec.Token(); err != nil {
				return nil, err
			}
			return list, nil
		}
		return nil, fmt.Errorf("%w: unexpected delimiter %v", ErrInvalidArgument, t)
	case json.Number:
		if i, err := t.Int64(); err == nil {
			return i, nil
		}
		f, err := t.Float64()
		if err != nil {
			return nil, err
		}
		return f, nil
	default:
		// string, bool, float64, nil
		return t, nil
	}
}

func keyString(k any) string {
	if s, ok := k.(string); ok {
		return s
	}
	return fmt.Sprint(k)
}
