package facet

import (
	"fmt"
	"reflect"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/zoobzio/sentinel"
)

func init() {
	// Register the facet tag with sentinel
	sentinel.Tag(TagName)
}

var (
	errorType       = reflect.TypeFor[error]()
	markedType      = reflect.TypeFor[Marked]()
	snapshotterType = reflect.TypeFor[Snapshotter]()
)

// storage is the result of scanning a struct's fields.
type storage struct {
	meta   sentinel.Metadata
	tags   map[string]facetTag // Go field name -> parsed facet tag
	hidden map[string]bool     // decapitalized names of unexported fields
}

// accessor pairs the getter and setter found for one canonical name.
type accessor struct {
	name       string
	getter     string
	getterType reflect.Type
	getterErr  bool
	bare       bool // getter has no Get/Is prefix
	setter     string
	setterType reflect.Type
	setterErr  bool
}

// analyze builds the descriptor of t under mode. t is never a pointer.
func analyze(t reflect.Type, mode Mode) (*TypeDescriptor, error) {
	switch t.Kind() {
	case reflect.Invalid, reflect.Func, reflect.Chan, reflect.UnsafePointer:
		return nil, newDescribeError(ErrInvalidArgument, t, "type cannot carry attributes")
	}

	desc := &TypeDescriptor{
		Type:       t,
		Mode:       mode,
		Properties: NewOrderedMap[string, *PropertyDescriptor](),
		Markers:    collectMarkers(t),
	}

	var st storage
	if t.Kind() == reflect.Struct {
		var err error
		st, err = scanStorage(t)
		if err != nil {
			return nil, err
		}
		desc.Storage = st.meta
	}

	var accessors *OrderedMap[string, *accessor]
	if mode != ModeField {
		accessors = scanAccessors(t)
	}

	if mode != ModeProperty {
		for _, fm := range st.meta.Fields {
			tag := st.tags[fm.Name]
			name := tag.name
			if name == "" {
				name = Decapitalize(fm.Name)
			}
			if desc.Markers.excludes(name, fm.Name) {
				continue
			}

			p := &PropertyDescriptor{
				Name:          name,
				Type:          fm.ReflectType,
				Kind:          fm.Kind,
				Gettable:      true,
				Settable:      !tag.has(OptReadOnly),
				PublicStorage: true,
				StorageBacked: true,
				Final:         tag.has(OptReadOnly),
				Transient:     tag.has(OptTransient) || desc.Markers.transient(name, fm.Name),
				Annotations:   copyTags(fm.Tags),
				field:         fm.Index,
				fieldType:     fm.ReflectType,
			}

			if accessors != nil {
				if acc, ok := accessors.Get(Decapitalize(fm.Name)); ok {
					applyAccessor(p, acc)
					accessors.Delete(acc.name)
				}
			}
			finish(p, desc.Markers)
			desc.Properties.Set(name, p)
		}
	}

	if accessors != nil {
		for name, acc := range accessors.All() {
			if acc.bare && acc.setter == "" && !st.hidden[name] && t.Kind() != reflect.Interface {
				// X() alone is not an accessor on a concrete type: it needs a
				// SetX or an x field.
				continue
			}
			if acc.getter == "" && acc.setter == "" {
				continue
			}
			if desc.Markers.excludes(name) || desc.Properties.Has(name) {
				continue
			}
			p := &PropertyDescriptor{
				Name:      name,
				Transient: desc.Markers.transient(name),
			}
			applyAccessor(p, acc)
			finish(p, desc.Markers)
			desc.Properties.Set(name, p)
		}
	}

	return desc, nil
}

// scanStorage scans the visible fields of a struct into sentinel metadata,
// flattening embedded structs the way Go promotes their fields. Metadata
// sentinel already holds for the type contributes its relationships and
// the kinds and tags of the fields it knows.
func scanStorage(rt reflect.Type) (storage, error) {
	st := storage{
		meta: sentinel.Metadata{
			ReflectType: rt,
			FQDN:        fqdnOf(rt),
			TypeName:    rt.Name(),
			PackageName: rt.PkgPath(),
			Fields:      make([]sentinel.FieldMetadata, 0, rt.NumField()),
		},
		tags:   make(map[string]facetTag),
		hidden: make(map[string]bool),
	}

	known := make(map[string]sentinel.FieldMetadata)
	if cached, ok := sentinel.Lookup(st.meta.FQDN); ok && cached.ReflectType == rt {
		st.meta.Relationships = cached.Relationships
		for _, fm := range cached.Fields {
			known[fm.Name] = fm
		}
	}

	for _, sf := range reflect.VisibleFields(rt) {
		if sf.Anonymous {
			// embedded types contribute their promoted fields, not themselves
			continue
		}
		if !sf.IsExported() {
			if len(sf.Index) == 1 {
				st.hidden[Decapitalize(sf.Name)] = true
			}
			continue
		}

		tag, err := parseFacetTag(sf.Tag)
		if err != nil {
			return storage{}, newDescribeError(ErrInvalidArgument, rt, fmt.Sprintf("field %s: %v", sf.Name, err))
		}
		if tag.skip {
			continue
		}

		if !promotedReachable(rt, sf.Index) {
			continue
		}

		fm := sentinel.FieldMetadata{
			Name:        sf.Name,
			Type:        sf.Type.String(),
			ReflectType: sf.Type,
			Index:       sf.Index,
			Kind:        fieldKind(sf.Type),
			Tags:        parseStructTags(sf.Tag),
		}
		if k, ok := known[sf.Name]; ok && len(sf.Index) == 1 && k.ReflectType == sf.Type {
			fm.Kind = k.Kind
			for name, v := range k.Tags {
				if _, dup := fm.Tags[name]; !dup {
					fm.Tags[name] = v
				}
			}
		}
		st.meta.Fields = append(st.meta.Fields, fm)
		st.tags[sf.Name] = tag
	}

	return st, nil
}

// promotedReachable reports whether the field at index can be read and
// written through the chain of embedded fields leading to it. An unexported
// embedded pointer cannot be allocated through reflection.
func promotedReachable(rt reflect.Type, index []int) bool {
	t := rt
	for _, x := range index[:len(index)-1] {
		sf := t.Field(x)
		ft := sf.Type
		if ft.Kind() == reflect.Ptr {
			if !sf.IsExported() {
				return false
			}
			ft = ft.Elem()
		}
		t = ft
	}
	return true
}

// scanAccessors collects getter/setter methods keyed by canonical name.
func scanAccessors(rt reflect.Type) *OrderedMap[string, *accessor] {
	out := NewOrderedMap[string, *accessor]()

	mt := rt
	offset := 0
	if rt.Kind() != reflect.Interface {
		mt = reflect.PointerTo(rt)
		offset = 1
	}

	for i := 0; i < mt.NumMethod(); i++ {
		m := mt.Method(i)
		if m.Name == "FacetMarkers" || m.Name == "FacetSnapshot" {
			continue
		}
		ft := m.Type
		in := ft.NumIn() - offset

		switch {
		case in == 0 && isGetterResult(ft):
			name, bare, ok := getterName(m.Name, ft.Out(0))
			if !ok {
				continue
			}
			acc := accessorFor(out, name)
			if acc.getter != "" && !acc.bare {
				continue
			}
			acc.getter = m.Name
			acc.getterType = ft.Out(0)
			acc.getterErr = ft.NumOut() == 2
			acc.bare = bare

		case in == 1 && isSetterResult(ft) && hasPrefixWord(m.Name, "Set"):
			acc := accessorFor(out, CanonicalName(m.Name))
			acc.setter = m.Name
			acc.setterType = ft.In(offset)
			acc.setterErr = ft.NumOut() == 1
		}
	}

	for _, acc := range out.All() {
		if acc.getter != "" && acc.setter != "" && acc.setterType != acc.getterType && acc.bare {
			// a bare getter only pairs with a setter of its own type
			acc.getter = ""
		}
	}
	return out
}

func accessorFor(m *OrderedMap[string, *accessor], name string) *accessor {
	if acc, ok := m.Get(name); ok {
		return acc
	}
	acc := &accessor{name: name}
	m.Set(name, acc)
	return acc
}

// getterName derives the attribute name of a zero-argument method.
func getterName(method string, out reflect.Type) (name string, bare, ok bool) {
	switch {
	case hasPrefixWord(method, "Get"):
		return CanonicalName(method), false, true
	case hasPrefixWord(method, "Is"):
		if out.Kind() != reflect.Bool {
			return "", false, false
		}
		return CanonicalName(method), false, true
	case hasPrefixWord(method, "Set"):
		return "", false, false
	}
	return Decapitalize(method), true, true
}

// hasPrefixWord reports whether name starts with prefix followed by an
// uppercase letter.
func hasPrefixWord(name, prefix string) bool {
	if !strings.HasPrefix(name, prefix) || len(name) == len(prefix) {
		return false
	}
	r, _ := utf8.DecodeRuneInString(name[len(prefix):])
	return unicode.IsUpper(r)
}

func isGetterResult(ft reflect.Type) bool {
	switch ft.NumOut() {
	case 1:
		return ft.Out(0) != errorType
	case 2:
		return ft.Out(0) != errorType && ft.Out(1) == errorType
	}
	return false
}

func isSetterResult(ft reflect.Type) bool {
	switch ft.NumOut() {
	case 0:
		return true
	case 1:
		return ft.Out(0) == errorType
	}
	return false
}

// applyAccessor merges accessor metadata into p. Accessor types win over the
// field type.
func applyAccessor(p *PropertyDescriptor, acc *accessor) {
	if acc.getter != "" {
		p.getter = acc.getter
		p.getterErr = acc.getterErr
		p.Type = acc.getterType
		p.Gettable = true
	}
	if acc.setter != "" {
		p.setter = acc.setter
		p.setterType = acc.setterType
		p.setterErr = acc.setterErr
		if p.Type == nil {
			p.Type = acc.setterType
		}
		if !p.Final {
			p.Settable = true
		}
	}
	p.AccessorBacked = p.getter != "" || p.setter != ""
}

// finish derives the flags that depend on the final type and access paths.
// An accessor that changes the type also changes the kind.
func finish(p *PropertyDescriptor, markers Markers) {
	t := p.Type
	if p.Kind == "" || p.fieldType != t {
		p.Kind = fieldKind(t)
	}
	p.Indexed = p.Kind == sentinel.KindSlice
	p.ArrayLike = p.Indexed && t.Kind() == reflect.Array
	p.Mapped = p.Kind == sentinel.KindMap
	p.Complete = p.StorageBacked && p.getter != "" && p.setter != "" && !p.Final &&
		p.getterType() == p.fieldType && p.setterType == p.fieldType

	if extra := markers.Annotations[p.Name]; len(extra) > 0 {
		if p.Annotations == nil {
			p.Annotations = make(map[string]string, len(extra))
		}
		for k, v := range extra {
			p.Annotations[k] = v
		}
	}
}

// getterType is the declared result type of the getter, nil without one.
func (p *PropertyDescriptor) getterType() reflect.Type {
	if p.getter == "" {
		return nil
	}
	return p.Type
}

func copyTags(tags map[string]string) map[string]string {
	out := make(map[string]string, len(tags))
	for k, v := range tags {
		out[k] = v
	}
	return out
}

// collectMarkers merges the markers of t and the types it embeds, inner
// types first.
func collectMarkers(t reflect.Type) Markers {
	return collectMarkersSeen(t, make(map[reflect.Type]bool))
}

func collectMarkersSeen(t reflect.Type, seen map[reflect.Type]bool) Markers {
	if seen[t] {
		return Markers{}
	}
	seen[t] = true

	var out Markers
	if t.Kind() == reflect.Struct {
		for i := 0; i < t.NumField(); i++ {
			sf := t.Field(i)
			if !sf.Anonymous {
				continue
			}
			et := sf.Type
			if et.Kind() == reflect.Ptr {
				et = et.Elem()
			}
			out = out.merge(collectMarkersSeen(et, seen))
		}
	}
	if own, ok := markersOf(t); ok {
		out = out.merge(own)
	}
	return out
}

// markersOf calls FacetMarkers on a zero value of t when t or *t implements
// Marked.
func markersOf(t reflect.Type) (m Markers, ok bool) {
	defer func() {
		if recover() != nil {
			m, ok = Markers{}, false
		}
	}()
	switch {
	case t.Kind() == reflect.Interface:
		return Markers{}, false
	case t.Implements(markedType):
		return reflect.Zero(t).Interface().(Marked).FacetMarkers(), true
	case reflect.PointerTo(t).Implements(markedType):
		return reflect.New(t).Interface().(Marked).FacetMarkers(), true
	}
	return Markers{}, false
}

// fieldKind classifies a type with sentinel's kinds. Ordered maps count as
// maps, not pointers.
func fieldKind(t reflect.Type) sentinel.FieldKind {
	if isOrderedType(t) {
		return sentinel.KindMap
	}
	switch t.Kind() {
	case reflect.Struct:
		return sentinel.KindStruct
	case reflect.Ptr:
		return sentinel.KindPointer
	case reflect.Slice, reflect.Array:
		return sentinel.KindSlice
	case reflect.Map:
		return sentinel.KindMap
	case reflect.Interface:
		return sentinel.KindInterface
	}
	return sentinel.KindScalar
}

// fqdnOf names a type the way sentinel keys its cache.
func fqdnOf(t reflect.Type) string {
	if t.PkgPath() == "" {
		return t.Name()
	}
	return t.PkgPath() + "." + t.Name()
}
