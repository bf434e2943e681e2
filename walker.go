package facet

import (
	"context"
	"fmt"
	"reflect"
	"strconv"
	"time"
)

// RootKey is the key under which a walked value that is not a map or
// object is stored in the snapshot root.
const RootKey = "value"

const (
	// DefaultMaxDepth is the object nesting a Walker expands by default.
	DefaultMaxDepth = 10

	// DefaultMaxNodes bounds the nodes a single walk may emit.
	DefaultMaxNodes = 100000
)

// Walker converts values into generic trees of *Object, []any and scalars.
// A Walker is immutable and safe for concurrent use.
type Walker struct {
	maxDepth     int
	exclude      map[string]bool
	includeNulls bool
	maxNodes     int
	maxSize      int
	mode         Mode
	converter    *Converter
	err          error
}

// WalkOption configures a Walker.
type WalkOption func(*Walker)

// WithMaxDepth sets how many levels of object nesting below the root are
// expanded. Deeper objects keep their key with a nil value.
func WithMaxDepth(depth int) WalkOption {
	return func(w *Walker) {
		if depth < 0 {
			w.err = fmt.Errorf("%w: negative max depth %d", ErrInvalidArgument, depth)
			return
		}
		w.maxDepth = depth
	}
}

// WithExclude skips properties and map keys with the given names at every
// depth.
func WithExclude(names ...string) WalkOption {
	return func(w *Walker) {
		for _, n := range names {
			w.exclude[n] = true
		}
	}
}

// WithNulls keeps nil leaves in maps and objects instead of omitting them.
func WithNulls(include bool) WalkOption {
	return func(w *Walker) {
		w.includeNulls = include
	}
}

// WithMaxNodes bounds the number of nodes a walk emits.
func WithMaxNodes(n int) WalkOption {
	return func(w *Walker) {
		if n <= 0 {
			w.err = fmt.Errorf("%w: max nodes must be positive, got %d", ErrInvalidArgument, n)
			return
		}
		w.maxNodes = n
	}
}

// WithMaxSize bounds the estimated serialized size of a walk in bytes.
// Zero disables the bound.
func WithMaxSize(bytes int) WalkOption {
	return func(w *Walker) {
		if bytes < 0 {
			w.err = fmt.Errorf("%w: negative max size %d", ErrInvalidArgument, bytes)
			return
		}
		w.maxSize = bytes
	}
}

// WithMode sets the discovery mode used for objects.
func WithMode(m Mode) WalkOption {
	return func(w *Walker) {
		if !IsValidMode(m) {
			w.err = fmt.Errorf("%w: invalid mode %s", ErrInvalidArgument, m)
			return
		}
		w.mode = m
	}
}

// WithConverter sets the converter used for map keys and enum names.
func WithConverter(c *Converter) WalkOption {
	return func(w *Walker) {
		if c != nil {
			w.converter = c
		}
	}
}

// NewWalker creates a Walker. Invalid options are reported by Walk.
func NewWalker(opts ...WalkOption) *Walker {
	w := &Walker{
		maxDepth:  DefaultMaxDepth,
		exclude:   make(map[string]bool),
		maxNodes:  DefaultMaxNodes,
		mode:      ModeHybrid,
		converter: defaultConverter,
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Walk converts v into a snapshot with a walker configured by the
// arguments.
func Walk(v any, maxDepth int, excluded []string, includeNulls bool) (*Snapshot, error) {
	return NewWalker(
		WithMaxDepth(maxDepth),
		WithExclude(excluded...),
		WithNulls(includeNulls),
	).Walk(context.Background(), v)
}

// Walk converts v into a snapshot. Property read failures and ceiling
// breaches are not errors: failing properties are omitted and a breached
// ceiling yields a well-formed partial tree marked Truncated.
func (w *Walker) Walk(ctx context.Context, v any) (*Snapshot, error) {
	if w.err != nil {
		return nil, w.err
	}

	typeName := "nil"
	if v != nil {
		typeName = reflect.TypeOf(v).String()
	}
	start := time.Now()
	emitWalkStart(ctx, typeName, w.maxDepth)

	st := &walkState{
		w:        w,
		ctx:      ctx,
		typeName: typeName,
		onPath:   make(map[visitKey]bool),
	}
	node, res := st.value(reflect.ValueOf(v), w.maxDepth)

	root, ok := node.(*Object)
	if !ok {
		root = NewObject()
		if res != resultStop {
			root.Set(RootKey, node)
		}
	}

	snap := &Snapshot{Root: root, Nodes: st.nodes, Truncated: st.truncated}
	emitWalkComplete(ctx, typeName, st.nodes, time.Since(start), nil)
	return snap, nil
}

// result tells a container what to do with a walked node.
type result int

const (
	resultValue       result = iota
	resultNull               // nil leaf, omitted unless nulls are included
	resultPlaceholder        // depth or cycle cut, kept as nil
	resultStop               // ceiling reached, nothing emitted
)

// visitKey identifies a reference on the current descent path.
type visitKey struct {
	ptr uintptr
	typ reflect.Type
	n   int
}

type walkState struct {
	w         *Walker
	ctx       context.Context
	typeName  string
	nodes     int
	size      int
	truncated bool
	onPath    map[visitKey]bool
}

// admit accounts for one node of the given estimated size, reporting false
// once a ceiling is reached.
func (s *walkState) admit(size int) bool {
	if s.truncated {
		return false
	}
	if s.nodes+1 > s.w.maxNodes {
		s.stop("nodes")
		return false
	}
	if s.w.maxSize > 0 && s.size+size > s.w.maxSize {
		s.stop("size")
		return false
	}
	s.nodes++
	s.size += size
	return true
}

func (s *walkState) stop(reason string) {
	s.truncated = true
	emitWalkTruncated(s.ctx, s.typeName, reason, s.nodes)
}

// enter marks a reference as on the current path, reporting false for a
// cycle.
func (s *walkState) enter(k visitKey) bool {
	if s.onPath[k] {
		return false
	}
	s.onPath[k] = true
	return true
}

func (s *walkState) leave(k visitKey) { delete(s.onPath, k) }

func (s *walkState) value(v reflect.Value, depth int) (any, result) {
	if s.truncated {
		return nil, resultStop
	}
	for v.IsValid() && v.Kind() == reflect.Interface {
		if v.IsNil() {
			v = reflect.Value{}
			break
		}
		v = v.Elem()
	}
	if !v.IsValid() {
		if !s.admit(4) {
			return nil, resultStop
		}
		return nil, resultNull
	}

	if custom, ok := snapshotOf(v); ok {
		return s.plain(reflect.ValueOf(custom), depth)
	}
	return s.plain(v, depth)
}

// plain walks v without consulting Snapshotter.
func (s *walkState) plain(v reflect.Value, depth int) (any, result) {
	for v.IsValid() && v.Kind() == reflect.Interface && !v.IsNil() {
		v = v.Elem()
	}
	if !v.IsValid() || (v.Kind() == reflect.Interface && v.IsNil()) {
		if !s.admit(4) {
			return nil, resultStop
		}
		return nil, resultNull
	}

	if isOrderedType(v.Type()) {
		if v.IsNil() {
			return s.null()
		}
		return s.mapping(v, depth)
	}

	switch v.Kind() {
	case reflect.Ptr:
		if v.IsNil() {
			return s.null()
		}
		k := visitKey{ptr: v.Pointer(), typ: v.Type()}
		if !s.enter(k) {
			return s.placeholder()
		}
		defer s.leave(k)
		return s.plain(v.Elem(), depth)
	case reflect.Func, reflect.Chan, reflect.UnsafePointer:
		return s.null()
	}

	if v.Type() == timeType || isByteSlice(v.Type()) {
		if isByteSlice(v.Type()) && v.IsNil() {
			return s.null()
		}
		if !s.admit(scalarSize(v)) {
			return nil, resultStop
		}
		return v.Interface(), resultValue
	}
	if name, ok := s.w.converter.enumName(v); ok {
		return s.scalar(name)
	}
	if m, ok := textMarshaler(v); ok {
		if b, err := m.MarshalText(); err == nil {
			return s.scalar(string(b))
		}
	}

	switch v.Kind() {
	case reflect.Bool:
		return s.scalar(v.Bool())
	case reflect.String:
		return s.scalar(v.String())
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr,
		reflect.Float32, reflect.Float64:
		return s.scalar(baseScalar(v))
	case reflect.Complex64, reflect.Complex128:
		return s.scalar(fmt.Sprint(v.Complex()))
	case reflect.Slice, reflect.Array:
		return s.sequence(v, depth)
	case reflect.Map:
		if v.IsNil() {
			return s.null()
		}
		return s.mapping(v, depth)
	case reflect.Struct:
		return s.object(v, depth)
	}
	return s.null()
}

func (s *walkState) null() (any, result) {
	if !s.admit(4) {
		return nil, resultStop
	}
	return nil, resultNull
}

func (s *walkState) placeholder() (any, result) {
	if !s.admit(4) {
		return nil, resultStop
	}
	return nil, resultPlaceholder
}

func (s *walkState) scalar(x any) (any, result) {
	if !s.admit(scalarSize(reflect.ValueOf(x))) {
		return nil, resultStop
	}
	return x, resultValue
}

func (s *walkState) sequence(v reflect.Value, depth int) (any, result) {
	if v.Kind() == reflect.Slice {
		if v.IsNil() {
			return s.null()
		}
		if v.Len() > 0 {
			k := visitKey{ptr: v.Pointer(), typ: v.Type(), n: v.Len()}
			if !s.enter(k) {
				return s.placeholder()
			}
			defer s.leave(k)
		}
	}
	if !s.admit(2) {
		return nil, resultStop
	}

	out := make([]any, 0, v.Len())
	for i := 0; i < v.Len(); i++ {
		node, res := s.value(v.Index(i), depth)
		if res == resultStop {
			break
		}
		out = append(out, node)
	}
	return out, resultValue
}

// mapping walks a Go map in sorted key order or an ordered map in insertion
// order.
func (s *walkState) mapping(v reflect.Value, depth int) (any, result) {
	k := visitKey{ptr: v.Pointer(), typ: v.Type()}
	if !s.enter(k) {
		return s.placeholder()
	}
	defer s.leave(k)
	if !s.admit(2) {
		return nil, resultStop
	}

	out := NewObject()
	entries, _ := mapEntries(v)
	for _, e := range entries {
		key := s.keyName(e.key)
		if s.w.exclude[key] {
			continue
		}
		if !s.put(out, key, e.value, depth) {
			break
		}
	}
	return out, resultValue
}

func (s *walkState) keyName(k reflect.Value) string {
	for k.Kind() == reflect.Interface && !k.IsNil() {
		k = k.Elem()
	}
	if k.Kind() == reflect.String {
		return k.String()
	}
	if str, err := s.w.converter.ConvertToString(k.Interface()); err == nil {
		return str
	}
	return fmt.Sprint(k.Interface())
}

// put walks val and stores it under key, reporting false once the walk has
// stopped.
func (s *walkState) put(out *Object, key string, val reflect.Value, depth int) bool {
	node, res := s.value(val, depth)
	switch res {
	case resultStop:
		return false
	case resultNull:
		if !s.w.includeNulls {
			return true
		}
	}
	if !s.admit(len(key) + 3) {
		return false
	}
	out.Set(key, node)
	return true
}

func (s *walkState) object(v reflect.Value, depth int) (any, result) {
	if depth < 0 {
		return s.placeholder()
	}
	desc, err := Describe(v.Type(), s.w.mode)
	if err != nil {
		emitPropertySkipped(s.ctx, v.Type().String(), "", err)
		return s.placeholder()
	}
	if !s.admit(2) {
		return nil, resultStop
	}

	holder := v
	if v.CanAddr() {
		holder = v.Addr()
	}
	out := NewObject()
	for _, p := range desc.Filter(Persistent) {
		if s.w.exclude[p.Name] {
			continue
		}
		val, err := p.Get(holder)
		if err != nil {
			emitPropertySkipped(s.ctx, v.Type().String(), p.Name, err)
			continue
		}
		if !s.put(out, p.Name, val, depth-1) {
			break
		}
	}
	return out, resultValue
}

// snapshotOf calls FacetSnapshot when v provides one. A panic inside it
// reads as nil.
func snapshotOf(v reflect.Value) (out any, ok bool) {
	if !v.CanInterface() {
		return nil, false
	}
	var s Snapshotter
	switch {
	case v.Type().Implements(snapshotterType):
		if v.Kind() == reflect.Ptr && v.IsNil() {
			return nil, false
		}
		s = v.Interface().(Snapshotter)
	case v.Kind() != reflect.Ptr && reflect.PointerTo(v.Type()).Implements(snapshotterType):
		p := reflect.New(v.Type())
		p.Elem().Set(v)
		s = p.Interface().(Snapshotter)
	default:
		return nil, false
	}
	defer func() {
		if recover() != nil {
			out, ok = nil, true
		}
	}()
	return s.FacetSnapshot(), true
}

var baseKinds = map[reflect.Kind]reflect.Type{
	reflect.Int:     reflect.TypeFor[int](),
	reflect.Int8:    reflect.TypeFor[int8](),
	reflect.Int16:   reflect.TypeFor[int16](),
	reflect.Int32:   reflect.TypeFor[int32](),
	reflect.Int64:   reflect.TypeFor[int64](),
	reflect.Uint:    reflect.TypeFor[uint](),
	reflect.Uint8:   reflect.TypeFor[uint8](),
	reflect.Uint16:  reflect.TypeFor[uint16](),
	reflect.Uint32:  reflect.TypeFor[uint32](),
	reflect.Uint64:  reflect.TypeFor[uint64](),
	reflect.Uintptr: reflect.TypeFor[uintptr](),
	reflect.Float32: reflect.TypeFor[float32](),
	reflect.Float64: reflect.TypeFor[float64](),
}

// baseScalar converts a named numeric type to its unnamed base type.
func baseScalar(v reflect.Value) any {
	return v.Convert(baseKinds[v.Kind()]).Interface()
}

// scalarSize estimates the serialized size of a scalar.
func scalarSize(v reflect.Value) int {
	switch v.Kind() {
	case reflect.String:
		return len(v.String()) + 2
	case reflect.Bool:
		return 5
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return len(strconv.FormatInt(v.Int(), 10))
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		return len(strconv.FormatUint(v.Uint(), 10))
	case reflect.Float32, reflect.Float64:
		return len(formatFloat(v.Float(), 64))
	case reflect.Slice:
		// []byte, base64 encoded
		return (v.Len()+2)/3*4 + 2
	}
	// time.Time in RFC 3339
	return 32
}
