package facet

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/zoobzio/sentinel"
)

// Resolver reads and writes values along attribute paths.
// A Resolver is immutable and safe for concurrent use; the values it writes
// to are not synchronised.
type Resolver struct {
	mode      Mode
	converter *Converter
}

// ResolverOption configures a Resolver.
type ResolverOption func(*Resolver)

// WithResolverMode sets the discovery mode used to find properties.
// The default is ModeHybrid.
func WithResolverMode(m Mode) ResolverOption {
	return func(r *Resolver) {
		if IsValidMode(m) {
			r.mode = m
		}
	}
}

// WithResolverConverter sets the converter used for keys and written values.
func WithResolverConverter(c *Converter) ResolverOption {
	return func(r *Resolver) {
		if c != nil {
			r.converter = c
		}
	}
}

// NewResolver creates a Resolver.
func NewResolver(opts ...ResolverOption) *Resolver {
	r := &Resolver{mode: ModeHybrid, converter: defaultConverter}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

var defaultResolver = NewResolver()

// Get reads path from root with the default resolver.
func Get(root any, path string) (any, error) {
	return defaultResolver.Get(root, path)
}

// Set writes value at path under root with the default resolver.
func Set(root any, path string, value any, strict bool) error {
	return defaultResolver.Set(root, path, value, strict)
}

// Paths lists the readable leaf paths of v with the default resolver.
func Paths(v any) ([]string, error) {
	return defaultResolver.Paths(v)
}

// Populate writes a generic tree into target with the default resolver.
func Populate(target, tree any) error {
	return defaultResolver.Populate(target, tree)
}

// Get reads the value at path. Missing map keys read as nil; a nil value
// in the middle of the path cannot be descended through.
func (r *Resolver) Get(root any, path string) (any, error) {
	p, err := ParsePath(path)
	if err != nil {
		return nil, err
	}
	return r.GetPath(root, p)
}

// GetPath is Get for a parsed path.
func (r *Resolver) GetPath(root any, p Path) (any, error) {
	raw := p.String()
	cur := reflect.ValueOf(root)
	for _, seg := range p {
		next, err := r.read(cur, seg, raw)
		if err != nil {
			return nil, err
		}
		cur = next
	}
	return valueOrNil(cur), nil
}

// read applies one segment to cur.
func (r *Resolver) read(cur reflect.Value, seg Segment, raw string) (reflect.Value, error) {
	holder := cur
	for holder.IsValid() && holder.Kind() == reflect.Interface && !holder.IsNil() {
		holder = holder.Elem()
	}
	if om, ok := asOrdered(holder); ok {
		if seg.Kind == SegmentIndex {
			return reflect.Value{}, newPathError(ErrInvalidArgument, raw, seg.String(), holder.Type(), errors.New("not indexable"))
		}
		return r.readOrdered(om, seg, raw, holder.Type())
	}

	v := indirect(holder)
	if !v.IsValid() {
		return reflect.Value{}, newPathError(ErrInvalidArgument, raw, seg.String(), typeOrNil(cur), errors.New("cannot descend through nil"))
	}

	switch seg.Kind {
	case SegmentName:
		switch v.Kind() {
		case reflect.Map:
			return r.readMap(v, seg.Name, seg, raw)
		case reflect.Struct:
			return r.readProperty(holder, v, seg, raw)
		}
	case SegmentKey:
		if v.Kind() == reflect.Map {
			return r.readMap(v, seg.Key, seg, raw)
		}
	case SegmentIndex:
		if v.Kind() == reflect.Slice || v.Kind() == reflect.Array {
			if seg.Index >= v.Len() {
				return reflect.Value{}, newPathError(ErrInvalidArgument, raw, seg.String(), v.Type(),
					fmt.Errorf("index out of range [0,%d)", v.Len()))
			}
			return v.Index(seg.Index), nil
		}
	}
	return reflect.Value{}, newPathError(ErrInvalidArgument, raw, seg.String(), v.Type(), errors.New("not a container"))
}

func (r *Resolver) readOrdered(om orderedAccess, seg Segment, raw string, typ reflect.Type) (reflect.Value, error) {
	key := seg.Name
	if seg.Kind == SegmentKey {
		key = seg.Key
	}
	k, err := r.converter.convertValue(reflectString(key), om.keyType())
	if err != nil {
		return reflect.Value{}, newPathError(ErrConversion, raw, seg.String(), typ, err)
	}
	val, ok := om.lookup(k.Interface())
	if !ok {
		return reflect.Value{}, nil
	}
	return reflect.ValueOf(val), nil
}

func (r *Resolver) readMap(v reflect.Value, key string, seg Segment, raw string) (reflect.Value, error) {
	k, err := r.converter.convertValue(reflectString(key), v.Type().Key())
	if err != nil {
		return reflect.Value{}, newPathError(ErrConversion, raw, seg.String(), v.Type(), err)
	}
	return v.MapIndex(k), nil
}

func (r *Resolver) readProperty(holder, v reflect.Value, seg Segment, raw string) (reflect.Value, error) {
	p, err := r.property(v.Type(), seg, raw)
	if err != nil {
		return reflect.Value{}, err
	}
	if !p.Gettable {
		return reflect.Value{}, newPathError(ErrAccessDenied, raw, seg.String(), v.Type(), errors.New("property is write-only"))
	}
	out, err := p.Get(holder)
	if err != nil {
		return reflect.Value{}, newPathError(classify(err), raw, seg.String(), v.Type(), err)
	}
	return out, nil
}

func (r *Resolver) property(t reflect.Type, seg Segment, raw string) (*PropertyDescriptor, error) {
	desc, err := Describe(t, r.mode)
	if err != nil {
		return nil, newPathError(ErrInvalidArgument, raw, seg.String(), t, err)
	}
	p, ok := desc.Property(seg.Name)
	if !ok {
		return nil, newPathError(ErrNotFound, raw, seg.String(), t, nil)
	}
	return p, nil
}

// Set writes value at path, creating missing intermediate values. root must
// be a non-nil pointer, map or ordered map. Unless strict, value is converted
// to the type of the destination; in strict mode it must be assignable.
func (r *Resolver) Set(root any, path string, value any, strict bool) error {
	p, err := ParsePath(path)
	if err != nil {
		return err
	}
	return r.SetPath(root, p, value, strict)
}

// SetPath is Set for a parsed path.
func (r *Resolver) SetPath(root any, p Path, value any, strict bool) error {
	raw := p.String()
	rv := reflect.ValueOf(root)
	switch {
	case !rv.IsValid():
		return newPathError(ErrInvalidArgument, raw, "", nil, errors.New("nil root"))
	case rv.Kind() == reflect.Ptr, rv.Kind() == reflect.Map:
		if rv.IsNil() {
			return newPathError(ErrInvalidArgument, raw, "", rv.Type(), errors.New("nil root"))
		}
	default:
		return newPathError(ErrInvalidArgument, raw, "", rv.Type(), errors.New("root must be a pointer, map or ordered map"))
	}

	w := writer{r: r, path: p, raw: raw, value: value, strict: strict}
	_, err := w.set(rv, 0)
	return err
}

// writer carries one Set call down the path. Each level returns its
// possibly replaced value so the parent can store it back.
type writer struct {
	r      *Resolver
	path   Path
	raw    string
	value  any
	strict bool
}

func (w *writer) fail(sentinel error, i int, t reflect.Type, cause error) error {
	return newPathError(sentinel, w.raw, w.path[i].String(), t, cause)
}

func (w *writer) set(v reflect.Value, i int) (reflect.Value, error) {
	seg := w.path[i]

	switch {
	case v.Kind() == reflect.Interface:
		inner := v.Elem()
		if !inner.IsValid() {
			inner = vivifyAny(seg)
		}
		return w.set(inner, i)

	case isOrderedType(v.Type()):
		if v.IsNil() {
			v = reflect.New(v.Type().Elem())
		}
		om, _ := asOrdered(v)
		if seg.Kind == SegmentIndex {
			return reflect.Value{}, w.fail(ErrInvalidArgument, i, v.Type(), errors.New("not indexable"))
		}
		return v, w.setOrdered(om, i, v.Type())

	case v.Kind() == reflect.Ptr:
		if v.IsNil() {
			v = reflect.New(v.Type().Elem())
		}
		elem := v.Elem()
		out, err := w.set(elem, i)
		if err != nil {
			return reflect.Value{}, err
		}
		elem.Set(out)
		return v, nil
	}

	switch seg.Kind {
	case SegmentName:
		switch v.Kind() {
		case reflect.Map:
			return w.setMap(v, seg.Name, i)
		case reflect.Struct:
			return w.setProperty(v, i)
		}
	case SegmentKey:
		if v.Kind() == reflect.Map {
			return w.setMap(v, seg.Key, i)
		}
	case SegmentIndex:
		switch v.Kind() {
		case reflect.Slice, reflect.Array:
			return w.setIndex(v, i)
		}
	}
	return reflect.Value{}, w.fail(ErrInvalidArgument, i, v.Type(), errors.New("not a container"))
}

// child descends into cur for the segments after i, or converts the value
// being written when i is the last segment.
func (w *writer) child(cur reflect.Value, t reflect.Type, i int) (reflect.Value, error) {
	if i == len(w.path)-1 {
		return w.leaf(t, i)
	}
	if !cur.IsValid() {
		cur = reflect.Zero(t)
	}
	return w.set(cur, i+1)
}

// leaf converts the value being written to t.
func (w *writer) leaf(t reflect.Type, i int) (reflect.Value, error) {
	if w.value == nil {
		return reflect.Zero(t), nil
	}
	rv := reflect.ValueOf(w.value)
	if w.strict {
		if !rv.Type().AssignableTo(t) {
			return reflect.Value{}, w.fail(ErrConversion, i, t, newConversionError(w.value, t, errors.New("strict assignment")))
		}
		return rv, nil
	}
	out, err := w.r.converter.convertValue(rv, t)
	if err != nil {
		return reflect.Value{}, w.fail(ErrConversion, i, t, err)
	}
	return out, nil
}

func (w *writer) setMap(v reflect.Value, key string, i int) (reflect.Value, error) {
	if v.IsNil() {
		v = reflect.MakeMap(v.Type())
	}
	k, err := w.r.converter.convertValue(reflectString(key), v.Type().Key())
	if err != nil {
		return reflect.Value{}, w.fail(ErrConversion, i, v.Type(), err)
	}
	val, err := w.child(v.MapIndex(k), v.Type().Elem(), i)
	if err != nil {
		return reflect.Value{}, err
	}
	v.SetMapIndex(k, val)
	return v, nil
}

func (w *writer) setOrdered(om orderedAccess, i int, typ reflect.Type) error {
	seg := w.path[i]
	key := seg.Name
	if seg.Kind == SegmentKey {
		key = seg.Key
	}
	k, err := w.r.converter.convertValue(reflectString(key), om.keyType())
	if err != nil {
		return w.fail(ErrConversion, i, typ, err)
	}

	var cur reflect.Value
	if existing, ok := om.lookup(k.Interface()); ok && existing != nil {
		cur = reflect.ValueOf(existing)
	}
	val, err := w.child(cur, om.valueType(), i)
	if err != nil {
		return err
	}
	if err := om.store(k.Interface(), valueOrNil(val)); err != nil {
		return w.fail(ErrConversion, i, typ, err)
	}
	return nil
}

func (w *writer) setIndex(v reflect.Value, i int) (reflect.Value, error) {
	idx := w.path[i].Index
	if v.Kind() == reflect.Array {
		if idx >= v.Len() {
			return reflect.Value{}, w.fail(ErrInvalidArgument, i, v.Type(), fmt.Errorf("index %d beyond array length %d", idx, v.Len()))
		}
		v = addressable(v)
	} else if idx >= v.Len() {
		// pad with zero values up to idx
		grown := reflect.MakeSlice(v.Type(), idx+1, idx+1)
		reflect.Copy(grown, v)
		v = grown
	}

	slot := v.Index(idx)
	val, err := w.child(slot, v.Type().Elem(), i)
	if err != nil {
		return reflect.Value{}, err
	}
	slot.Set(val)
	return v, nil
}

func (w *writer) setProperty(v reflect.Value, i int) (reflect.Value, error) {
	v = addressable(v)
	p, err := w.r.property(v.Type(), w.path[i], w.raw)
	if err != nil {
		return reflect.Value{}, err
	}

	if i == len(w.path)-1 {
		if !p.Settable {
			return reflect.Value{}, w.fail(ErrAccessDenied, i, v.Type(), errors.New("property is read-only"))
		}
		val, err := w.leaf(p.WriteType(), i)
		if err != nil {
			return reflect.Value{}, err
		}
		if err := p.Set(v.Addr(), val); err != nil {
			return reflect.Value{}, w.fail(classify(err), i, v.Type(), err)
		}
		return v, nil
	}

	if !p.Gettable {
		return reflect.Value{}, w.fail(ErrAccessDenied, i, v.Type(), errors.New("property is write-only"))
	}
	cur, err := p.Get(v.Addr())
	if err != nil {
		return reflect.Value{}, w.fail(classify(err), i, v.Type(), err)
	}
	// A read-only property can only be written through a live reference;
	// anything else would be modified in place or lost.
	if !p.Settable && !writesThrough(p.Kind, cur) {
		return reflect.Value{}, w.fail(ErrAccessDenied, i, v.Type(), errors.New("property is read-only"))
	}
	next, err := w.child(cur, p.Type, i)
	if err != nil {
		return reflect.Value{}, err
	}

	if sameReference(cur, next) {
		// modified in place
		return v, nil
	}
	if !p.Settable {
		return reflect.Value{}, w.fail(ErrAccessDenied, i, v.Type(), errors.New("property is read-only"))
	}
	if !next.Type().AssignableTo(p.WriteType()) {
		next, err = w.r.converter.convertValue(next, p.WriteType())
		if err != nil {
			return reflect.Value{}, w.fail(ErrConversion, i, v.Type(), err)
		}
	}
	if err := p.Set(v.Addr(), next); err != nil {
		return reflect.Value{}, w.fail(classify(err), i, v.Type(), err)
	}
	return v, nil
}

// sameReference reports whether next is the same pointer or map as cur, so
// writing it back is unnecessary.
func sameReference(cur, next reflect.Value) bool {
	if !cur.IsValid() || !next.IsValid() || cur.Kind() != next.Kind() {
		return false
	}
	switch cur.Kind() {
	case reflect.Ptr, reflect.Map:
		return !cur.IsNil() && cur.Pointer() == next.Pointer()
	}
	return false
}

// writesThrough reports whether a write beneath a property of the given
// kind lands in memory shared with its owner. Structs, sequences and
// scalars are copied out of their owner and never write through.
func writesThrough(kind sentinel.FieldKind, cur reflect.Value) bool {
	switch kind {
	case sentinel.KindPointer, sentinel.KindMap, sentinel.KindInterface:
		return liveReference(cur)
	}
	return false
}

// liveReference reports whether v holds a non-nil pointer or map.
func liveReference(v reflect.Value) bool {
	for v.IsValid() && v.Kind() == reflect.Interface && !v.IsNil() {
		v = v.Elem()
	}
	if !v.IsValid() {
		return false
	}
	switch v.Kind() {
	case reflect.Ptr, reflect.Map:
		return !v.IsNil()
	}
	return false
}

// addressable returns v itself if it can be set, or a settable copy.
func addressable(v reflect.Value) reflect.Value {
	if v.CanSet() {
		return v
	}
	c := reflect.New(v.Type()).Elem()
	c.Set(v)
	return c
}

// vivifyAny creates the container an empty untyped slot needs for seg.
func vivifyAny(seg Segment) reflect.Value {
	if seg.Kind == SegmentIndex {
		return reflect.ValueOf([]any{})
	}
	return reflect.ValueOf(NewObject())
}

// classify picks the sentinel reported for an accessor failure.
func classify(err error) error {
	for _, s := range []error{ErrConversion, ErrInvalidArgument, ErrNotFound} {
		if errors.Is(err, s) {
			return s
		}
	}
	return ErrAccessDenied
}

// Paths lists the path of every readable leaf under v: scalars, nils and
// empty containers. Map keys that are not plain names are written as keyed
// segments. Pointers already on the current branch are not revisited.
func (r *Resolver) Paths(v any) ([]string, error) {
	var out []string
	err := r.collectPaths(reflect.ValueOf(v), nil, make(map[uintptr]bool), &out)
	return out, err
}

func (r *Resolver) collectPaths(v reflect.Value, prefix Path, onPath map[uintptr]bool, out *[]string) error {
	for v.IsValid() && v.Kind() == reflect.Interface && !v.IsNil() {
		v = v.Elem()
	}
	leaf := func() {
		if len(prefix) > 0 {
			*out = append(*out, prefix.String())
		}
	}
	if !v.IsValid() {
		leaf()
		return nil
	}

	if v.Kind() == reflect.Ptr || v.Kind() == reflect.Map {
		if v.IsNil() {
			leaf()
			return nil
		}
		ptr := v.Pointer()
		if onPath[ptr] {
			return nil
		}
		onPath[ptr] = true
		defer delete(onPath, ptr)
	}

	if entries, ok := mapEntries(v); ok {
		if len(entries) == 0 {
			leaf()
		}
		for _, e := range entries {
			if err := r.collectPaths(e.value, appendKey(prefix, keyString(e.key.Interface())), onPath, out); err != nil {
				return err
			}
		}
		return nil
	}

	if v.Kind() == reflect.Ptr {
		return r.collectPaths(v.Elem(), prefix, onPath, out)
	}

	switch v.Kind() {
	case reflect.Struct:
		if v.Type() == timeType {
			break
		}
		desc, err := Describe(v.Type(), r.mode)
		if err != nil {
			return err
		}
		props := desc.Filter(Persistent)
		if len(props) == 0 {
			leaf()
		}
		for _, p := range props {
			val, err := p.Get(v)
			if err != nil {
				return newPathError(classify(err), append(prefix, Segment{Kind: SegmentName, Name: p.Name}).String(), p.Name, v.Type(), err)
			}
			next := append(prefix[:len(prefix):len(prefix)], Segment{Kind: SegmentName, Name: p.Name})
			if p.Kind == sentinel.KindScalar {
				*out = append(*out, next.String())
				continue
			}
			if err := r.collectPaths(val, next, onPath, out); err != nil {
				return err
			}
		}
		return nil

	case reflect.Slice, reflect.Array:
		if isByteSlice(v.Type()) || v.Len() == 0 {
			break
		}
		for i := 0; i < v.Len(); i++ {
			next := append(prefix[:len(prefix):len(prefix)], Segment{Kind: SegmentIndex, Index: i})
			if err := r.collectPaths(v.Index(i), next, onPath, out); err != nil {
				return err
			}
		}
		return nil
	}

	leaf()
	return nil
}

// appendKey extends prefix with a name segment when key is a plain name,
// or a keyed segment otherwise.
func appendKey(prefix Path, key string) Path {
	next := prefix[:len(prefix):len(prefix)]
	if key != "" && !strings.ContainsAny(key, ".[]()") {
		return append(next, Segment{Kind: SegmentName, Name: key})
	}
	return append(next, Segment{Kind: SegmentKey, Key: key})
}

// Populate writes a generic tree of maps, slices and scalars into target, a
// non-nil pointer. Struct targets keep properties the tree does not name;
// other targets are replaced by the converted tree.
func (r *Resolver) Populate(target, tree any) error {
	rv := reflect.ValueOf(target)
	if !rv.IsValid() || rv.Kind() != reflect.Ptr || rv.IsNil() {
		return fmt.Errorf("%w: populate target must be a non-nil pointer", ErrInvalidArgument)
	}
	dst := rv.Elem()

	if dst.Kind() == reflect.Struct && dst.Type() != timeType {
		src := reflect.ValueOf(tree)
		if src.IsValid() && src.Kind() == reflect.Ptr && !isOrderedType(src.Type()) {
			src = indirect(src)
		}
		if !src.IsValid() {
			return nil
		}
		entries, ok, err := r.converter.entriesOf(src)
		if err != nil {
			return err
		}
		if !ok {
			return newConversionError(tree, dst.Type(), errors.New("not a map or object"))
		}
		return r.converter.fill(dst, entries, r.mode)
	}

	out, err := r.converter.convertValue(reflect.ValueOf(tree), dst.Type())
	if err != nil {
		return err
	}
	dst.Set(out)
	return nil
}

func reflectString(s string) reflect.Value { return reflect.ValueOf(s) }

func typeOrNil(v reflect.Value) reflect.Type {
	if !v.IsValid() {
		return nil
	}
	return v.Type()
}

// Assign stores a decoded generic tree into target. *any receives the tree
// as is, *Object receives an object tree, and any other pointer is
// populated from the tree.
func Assign(target, tree any) error {
	switch t := target.(type) {
	case *any:
		*t = tree
		return nil
	case *Object:
		obj, ok := tree.(*Object)
		if !ok {
			return newConversionError(tree, objectType, errors.New("document is not an object"))
		}
		*t = *obj.Clone()
		return nil
	}
	return defaultResolver.Populate(target, tree)
}
