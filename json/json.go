// Package json provides a JSON codec implementation.
package json

import (
	"github.com/goccy/go-json"
	"github.com/zoobzio/facet"
)

// jsonCodec implements facet.Codec for JSON.
type jsonCodec struct{}

// New returns a JSON codec.
func New() facet.Codec {
	return &jsonCodec{}
}

// ContentType returns the MIME type for JSON.
func (c *jsonCodec) ContentType() string {
	return "application/json"
}

// Marshal encodes v as JSON. Ordered maps keep their key order.
func (c *jsonCodec) Marshal(v any) ([]byte, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, facet.NewCodecError(facet.ErrMarshal, err)
	}
	return data, nil
}

// Unmarshal decodes JSON data into v. *facet.Object and *any receive the
// generic tree with object key order preserved; any other target is
// populated from that tree.
func (c *jsonCodec) Unmarshal(data []byte, v any) error {
	tree, err := facet.ParseJSON(data)
	if err != nil {
		return facet.NewCodecError(facet.ErrUnmarshal, err)
	}
	if err := facet.Assign(v, tree); err != nil {
		return facet.NewCodecError(facet.ErrUnmarshal, err)
	}
	return nil
}
