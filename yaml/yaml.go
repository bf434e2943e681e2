// Package yaml provides a YAML codec implementation.
package yaml

import (
	"fmt"
	"reflect"
	"sort"

	"github.com/zoobzio/facet"
	"gopkg.in/yaml.v3"
)

// yamlCodec implements facet.Codec for YAML.
type yamlCodec struct{}

// New returns a YAML codec.
func New() facet.Codec {
	return &yamlCodec{}
}

// ContentType returns the MIME type for YAML.
func (c *yamlCodec) ContentType() string {
	return "application/yaml"
}

// Marshal encodes v as YAML. Ordered maps become mapping nodes in key order.
func (c *yamlCodec) Marshal(v any) ([]byte, error) {
	node, err := toNode(v)
	if err != nil {
		return nil, facet.NewCodecError(facet.ErrMarshal, err)
	}
	data, err := yaml.Marshal(node)
	if err != nil {
		return nil, facet.NewCodecError(facet.ErrMarshal, err)
	}
	return data, nil
}

// Unmarshal decodes YAML data into v through a node tree, so mapping key
// order survives into *facet.Object.
func (c *yamlCodec) Unmarshal(data []byte, v any) error {
	var doc yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return facet.NewCodecError(facet.ErrUnmarshal, err)
	}
	tree, err := fromNode(&doc)
	if err != nil {
		return facet.NewCodecError(facet.ErrUnmarshal, err)
	}
	if err := facet.Assign(v, tree); err != nil {
		return facet.NewCodecError(facet.ErrUnmarshal, err)
	}
	return nil
}

func toNode(v any) (*yaml.Node, error) {
	switch t := v.(type) {
	case nil:
		return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!null", Value: "null"}, nil
	case facet.Ordered:
		n := &yaml.Node{Kind: yaml.MappingNode, Tag: "!!map"}
		var err error
		t.Range(func(key, value any) bool {
			var vn *yaml.Node
			if vn, err = toNode(value); err != nil {
				return false
			}
			n.Content = append(n.Content, keyNode(key), vn)
			return true
		})
		return n, err
	case []any:
		n := &yaml.Node{Kind: yaml.SequenceNode, Tag: "!!seq"}
		for _, e := range t {
			en, err := toNode(e)
			if err != nil {
				return nil, err
			}
			n.Content = append(n.Content, en)
		}
		return n, nil
	case map[string]any:
		keys := make([]string, 0, len(t))
		for k := range t {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		n := &yaml.Node{Kind: yaml.MappingNode, Tag: "!!map"}
		for _, k := range keys {
			vn, err := toNode(t[k])
			if err != nil {
				return nil, err
			}
			n.Content = append(n.Content, keyNode(k), vn)
		}
		return n, nil
	}

	n := &yaml.Node{}
	if err := n.Encode(v); err != nil {
		return nil, err
	}
	return n, nil
}

func keyNode(k any) *yaml.Node {
	s, ok := k.(string)
	if !ok {
		s = fmt.Sprint(k)
	}
	return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: s}
}

func fromNode(n *yaml.Node) (any, error) {
	switch n.Kind {
	case 0:
		// empty input
		return nil, nil
	case yaml.DocumentNode:
		if len(n.Content) == 0 {
			return nil, nil
		}
		return fromNode(n.Content[0])
	case yaml.MappingNode:
		obj := facet.NewObject()
		for i := 0; i+1 < len(n.Content); i += 2 {
			k, v := n.Content[i], n.Content[i+1]
			if k.Tag == "!!merge" {
				if err := merge(obj, v); err != nil {
					return nil, err
				}
				continue
			}
			val, err := fromNode(v)
			if err != nil {
				return nil, err
			}
			obj.Set(k.Value, val)
		}
		return obj, nil
	case yaml.SequenceNode:
		list := make([]any, 0, len(n.Content))
		for _, c := range n.Content {
			val, err := fromNode(c)
			if err != nil {
				return nil, err
			}
			list = append(list, val)
		}
		return list, nil
	case yaml.AliasNode:
		return fromNode(n.Alias)
	case yaml.ScalarNode:
		var out any
		if err := n.Decode(&out); err != nil {
			return nil, err
		}
		return normalizeScalar(out), nil
	}
	return nil, fmt.Errorf("unsupported yaml node kind %d", n.Kind)
}

// merge applies a "<<" merge key: entries of the merged mappings that the
// mapping does not set itself.
func merge(obj *facet.Object, n *yaml.Node) error {
	if n.Kind == yaml.AliasNode {
		n = n.Alias
	}
	sources := []*yaml.Node{n}
	if n.Kind == yaml.SequenceNode {
		sources = n.Content
	}
	for _, src := range sources {
		val, err := fromNode(src)
		if err != nil {
			return err
		}
		m, ok := val.(*facet.Object)
		if !ok {
			return fmt.Errorf("merge value is not a mapping")
		}
		for k, v := range m.All() {
			if !obj.Has(k) {
				obj.Set(k, v)
			}
		}
	}
	return nil
}

// normalizeScalar widens yaml's int to int64 so every codec yields the same
// scalar types.
func normalizeScalar(v any) any {
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32:
		return rv.Int()
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		if u := rv.Uint(); u <= 1<<63-1 {
			return int64(u)
		}
	}
	return v
}
