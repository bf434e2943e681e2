// Package facet provides reflection-driven introspection and conversion of
// object graphs.
//
// The package discovers the named attributes of arbitrary Go values, reads
// and writes them through path expressions, coerces values between
// representations, and walks object graphs into generic trees of ordered
// maps, lists and scalars that any encoder can render.
//
// # Descriptors
//
// Describe analyses a type once per discovery mode and caches the result:
//
//	desc, _ := facet.Describe(reflect.TypeFor[User](), facet.ModeHybrid)
//	for name, p := range desc.Properties.All() {
//	    fmt.Println(name, p.Type, p.Gettable, p.Settable)
//	}
//
// Three modes decide which members count as attributes:
//
//   - ModeField: exported struct fields
//   - ModeProperty: accessor methods (GetX, IsX, SetX, and X paired with SetX
//     or an unexported x field)
//   - ModeHybrid: both, accessors taking precedence
//
// # Tag Syntax
//
// Fields are renamed, excluded or flagged with the facet tag:
//
//	type User struct {
//	    ID       string `facet:"id,readonly"`
//	    Name     string
//	    Password string `facet:"-"`
//	    Cache    []byte `facet:",transient"`
//	}
//
// Every struct tag on a field is kept as a property annotation. Types can
// add type-level markers by implementing Marked.
//
// # Paths
//
// Paths are dot-separated names with [n] index and (key) map suffixes:
//
//	facet.Get(order, "lines[0].sku")
//	facet.Set(&order, "customer.tags(tier)", "gold", false)
//
// Set creates missing intermediate values: nil pointers are allocated, nil
// maps and slices are made, slices grow to fit an index.
//
// # Conversion
//
// A Converter coerces values between scalars, strings, sequences, sets,
// maps, objects and times. Custom rules are registered by target type or
// by predicate:
//
//	c := facet.NewConverter()
//	c.Register(reflect.TypeFor[Money](), parseMoney)
//	facet.RegisterEnum(c, Red, Green, Blue)
//
// # Walking
//
// A Walker converts any value into a Snapshot bounded by depth, node count
// and estimated size, and safe against cycles and generative getters:
//
//	snap, _ := facet.NewWalker(facet.WithMaxDepth(3)).Walk(ctx, user)
//
// # Codec Providers
//
// Processors pair a walker with a codec. The following codec implementations
// are available as subpackages:
//
//   - json - JSON encoding (application/json)
//   - xml - XML encoding (application/xml)
//   - yaml - YAML encoding (application/yaml)
//   - msgpack - MessagePack encoding (application/msgpack)
//   - bson - BSON encoding (application/bson)
//
// Each provider keeps the key order of ordered maps on the way out and
// decodes documents into *Object trees on the way in.
package facet

// Codec provides content-type aware marshaling.
type Codec interface {
	// ContentType returns the MIME type for this codec (e.g., "application/json").
	ContentType() string

	// Marshal encodes v into bytes.
	Marshal(v any) ([]byte, error)

	// Unmarshal decodes data into v. Decoding into *any or *Object yields a
	// generic tree; other targets are populated from that tree.
	Unmarshal(data []byte, v any) error
}
