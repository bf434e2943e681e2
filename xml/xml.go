// Package xml provides an XML codec implementation.
//
// Generic trees (ordered maps, []any, map[string]any and scalars) are written
// as a <root> element with one child element per key. Lists use <item>
// children, keys that are not valid element names use <entry key="...">,
// and a type attribute records non-string scalars so they decode back to
// the same kind:
//
//	<root type="object">
//	  <name>Ada</name>
//	  <age type="int">36</age>
//	  <tags type="list"><item>x</item></tags>
//	  <entry key="first name">Ada</entry>
//	  <manager nil="true"></manager>
//	</root>
//
// Other values are encoded with their own xml struct tags. Decoding into
// *any or *facet.Object yields a generic tree; other targets are decoded
// with encoding/xml directly.
package xml

import (
	"bytes"
	"encoding/base64"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"reflect"
	"sort"
	"strconv"
	"strings"
	"time"
	"unicode"

	"github.com/zoobzio/facet"
)

// element and attribute names of the generic document.
const (
	rootName  = "root"
	itemName  = "item"
	entryName = "entry"
	keyAttr   = "key"
	typeAttr  = "type"
	nilAttr   = "nil"
)

// type attribute values.
const (
	typeObject = "object"
	typeList   = "list"
	typeInt    = "int"
	typeUint   = "uint"
	typeFloat  = "float"
	typeBool   = "bool"
	typeTime   = "time"
	typeBytes  = "bytes"
)

// xmlCodec implements facet.Codec for XML.
type xmlCodec struct{}

// New returns an XML codec.
func New() facet.Codec {
	return &xmlCodec{}
}

// ContentType returns the MIME type for XML.
func (c *xmlCodec) ContentType() string {
	return "application/xml"
}

// Marshal encodes v as XML.
func (c *xmlCodec) Marshal(v any) ([]byte, error) {
	if !isTree(v) {
		data, err := xml.Marshal(v)
		if err != nil {
			return nil, facet.NewCodecError(facet.ErrMarshal, err)
		}
		return data, nil
	}

	var buf bytes.Buffer
	enc := xml.NewEncoder(&buf)
	if err := writeValue(enc, xml.StartElement{Name: xml.Name{Local: rootName}}, v); err != nil {
		return nil, facet.NewCodecError(facet.ErrMarshal, err)
	}
	if err := enc.Flush(); err != nil {
		return nil, facet.NewCodecError(facet.ErrMarshal, err)
	}
	return buf.Bytes(), nil
}

// Unmarshal decodes XML data into v.
func (c *xmlCodec) Unmarshal(data []byte, v any) error {
	switch v.(type) {
	case *any, *facet.Object:
	default:
		if err := xml.Unmarshal(data, v); err != nil {
			return facet.NewCodecError(facet.ErrUnmarshal, err)
		}
		return nil
	}

	tree, err := readDocument(xml.NewDecoder(bytes.NewReader(data)))
	if err != nil {
		return facet.NewCodecError(facet.ErrUnmarshal, err)
	}
	if err := facet.Assign(v, tree); err != nil {
		return facet.NewCodecError(facet.ErrUnmarshal, err)
	}
	return nil
}

// isTree reports whether v is written in the generic document form.
func isTree(v any) bool {
	switch v.(type) {
	case nil, facet.Ordered, []any, map[string]any:
		return true
	}
	_, ok := scalarText(v)
	return ok
}

func writeValue(enc *xml.Encoder, start xml.StartElement, v any) error {
	switch t := v.(type) {
	case nil:
		start.Attr = append(start.Attr, attr(nilAttr, "true"))
		return writeText(enc, start, "")
	case facet.Ordered:
		start.Attr = append(start.Attr, attr(typeAttr, typeObject))
		if err := enc.EncodeToken(start); err != nil {
			return err
		}
		var err error
		t.Range(func(key, value any) bool {
			err = writeValue(enc, keyElement(fmt.Sprint(key)), value)
			return err == nil
		})
		if err != nil {
			return err
		}
		return enc.EncodeToken(start.End())
	case map[string]any:
		obj := facet.NewObject()
		keys := make([]string, 0, len(t))
		for k := range t {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			obj.Set(k, t[k])
		}
		return writeValue(enc, start, obj)
	case []any:
		start.Attr = append(start.Attr, attr(typeAttr, typeList))
		if err := enc.EncodeToken(start); err != nil {
			return err
		}
		for _, e := range t {
			if err := writeValue(enc, xml.StartElement{Name: xml.Name{Local: itemName}}, e); err != nil {
				return err
			}
		}
		return enc.EncodeToken(start.End())
	}

	st, ok := scalarText(v)
	if !ok {
		// a leaf the walker left opaque: render its string form
		s, err := facet.ConvertToString(v)
		if err != nil {
			return err
		}
		return writeText(enc, start, s)
	}
	if st.typ != "" {
		start.Attr = append(start.Attr, attr(typeAttr, st.typ))
	}
	return writeText(enc, start, st.text)
}

func writeText(enc *xml.Encoder, start xml.StartElement, text string) error {
	if err := enc.EncodeToken(start); err != nil {
		return err
	}
	if text != "" {
		if err := enc.EncodeToken(xml.CharData(text)); err != nil {
			return err
		}
	}
	return enc.EncodeToken(start.End())
}

func attr(name, value string) xml.Attr {
	return xml.Attr{Name: xml.Name{Local: name}, Value: value}
}

// keyElement names the element for a map key.
func keyElement(key string) xml.StartElement {
	if validName(key) {
		return xml.StartElement{Name: xml.Name{Local: key}}
	}
	return xml.StartElement{Name: xml.Name{Local: entryName}, Attr: []xml.Attr{attr(keyAttr, key)}}
}

// validName reports whether key can be used as an element name as is.
// Names with a colon are refused since they would read back as namespaced.
func validName(key string) bool {
	if key == "" || key == entryName || strings.HasPrefix(strings.ToLower(key), "xml") {
		return false
	}
	for i, r := range key {
		switch {
		case r == '_' || unicode.IsLetter(r):
		case i > 0 && (r == '-' || r == '.' || unicode.IsDigit(r)):
		default:
			return false
		}
	}
	return true
}

type scalar struct {
	typ  string
	text string
}

func scalarText(v any) (scalar, bool) {
	switch t := v.(type) {
	case string:
		return scalar{text: t}, true
	case []byte:
		return scalar{typ: typeBytes, text: base64.StdEncoding.EncodeToString(t)}, true
	case time.Time:
		return scalar{typ: typeTime, text: t.Format(time.RFC3339Nano)}, true
	}

	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Bool:
		return scalar{typ: typeBool, text: strconv.FormatBool(rv.Bool())}, true
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return scalar{typ: typeInt, text: strconv.FormatInt(rv.Int(), 10)}, true
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		return scalar{typ: typeUint, text: strconv.FormatUint(rv.Uint(), 10)}, true
	case reflect.Float32, reflect.Float64:
		return scalar{typ: typeFloat, text: strconv.FormatFloat(rv.Float(), 'g', -1, 64)}, true
	}
	return scalar{}, false
}

// readDocument reads the single root element of a generic document.
func readDocument(dec *xml.Decoder) (any, error) {
	var (
		tree  any
		found bool
	)
	for {
		tok, err := dec.Token()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, err
		}
		switch t := tok.(type) {
		case xml.StartElement:
			if found {
				return nil, fmt.Errorf("multiple root elements")
			}
			if tree, err = readElement(dec, t); err != nil {
				return nil, err
			}
			found = true
		case xml.CharData:
			if len(bytes.TrimSpace(t)) > 0 {
				return nil, fmt.Errorf("text outside the root element")
			}
		}
	}
	if !found {
		return nil, fmt.Errorf("no root element")
	}
	return tree, nil
}

type child struct {
	name  string
	item  bool
	value any
}

func readElement(dec *xml.Decoder, start xml.StartElement) (any, error) {
	var typ string
	null := false
	for _, a := range start.Attr {
		switch a.Name.Local {
		case typeAttr:
			typ = a.Value
		case nilAttr:
			null = a.Value == "true"
		}
	}

	var (
		text     strings.Builder
		children []child
	)
loop:
	for {
		tok, err := dec.Token()
		if err != nil {
			return nil, err
		}
		switch t := tok.(type) {
		case xml.StartElement:
			v, err := readElement(dec, t)
			if err != nil {
				return nil, err
			}
			children = append(children, child{name: childName(t), item: t.Name.Local == itemName, value: v})
		case xml.CharData:
			text.Write(t)
		case xml.EndElement:
			break loop
		}
	}

	if null {
		return nil, nil
	}
	switch typ {
	case typeObject:
		obj := facet.NewObject()
		for _, c := range children {
			obj.Set(c.name, c.value)
		}
		return obj, nil
	case typeList:
		list := make([]any, len(children))
		for i, c := range children {
			list[i] = c.value
		}
		return list, nil
	case "":
		if len(children) > 0 {
			return group(children), nil
		}
		return text.String(), nil
	}
	return parseScalar(typ, strings.TrimSpace(text.String()))
}

func childName(start xml.StartElement) string {
	if start.Name.Local == entryName {
		for _, a := range start.Attr {
			if a.Name.Local == keyAttr {
				return a.Value
			}
		}
	}
	return start.Name.Local
}

// group builds an untyped element's value from its children: a list when
// every child is an <item>, otherwise an object whose repeated names
// collect into lists.
func group(children []child) any {
	items := true
	for _, c := range children {
		items = items && c.item
	}
	if items {
		list := make([]any, len(children))
		for i, c := range children {
			list[i] = c.value
		}
		return list
	}

	obj := facet.NewObject()
	repeated := make(map[string]bool)
	for _, c := range children {
		prev, ok := obj.Get(c.name)
		switch {
		case !ok:
			obj.Set(c.name, c.value)
		case repeated[c.name]:
			obj.Set(c.name, append(prev.([]any), c.value))
		default:
			repeated[c.name] = true
			obj.Set(c.name, []any{prev, c.value})
		}
	}
	return obj
}

func parseScalar(typ, text string) (any, error) {
	switch typ {
	case typeInt:
		return strconv.ParseInt(text, 10, 64)
	case typeUint:
		return strconv.ParseUint(text, 10, 64)
	case typeFloat:
		return strconv.ParseFloat(text, 64)
	case typeBool:
		return strconv.ParseBool(text)
	case typeTime:
		return time.Parse(time.RFC3339Nano, text)
	case typeBytes:
		return base64.StdEncoding.DecodeString(text)
	}
	return nil, fmt.Errorf("unknown value type %q", typ)
}
