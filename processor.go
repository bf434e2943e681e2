package facet

import (
	"context"
	"fmt"
	"reflect"
	"time"

	"github.com/zoobzio/sentinel"
)

// Processor pairs a codec with a walker for one type.
// Encode walks a value into a snapshot and marshals the snapshot root;
// Decode unmarshals into a generic tree and populates a new value from it.
//
// Processors are safe for concurrent use.
type Processor[T any] struct {
	codec    Codec
	walker   *Walker
	resolver *Resolver
	typeName string
	wrapped  bool // T is walked under RootKey
}

// NewProcessor creates a Processor for type T. The walk options configure
// Encode; Decode discovers properties with the walker's mode.
func NewProcessor[T any](codec Codec, opts ...WalkOption) (*Processor[T], error) {
	if codec == nil {
		return nil, fmt.Errorf("%w: nil codec", ErrInvalidArgument)
	}
	walker := NewWalker(opts...)
	if walker.err != nil {
		return nil, walker.err
	}

	t := reflect.TypeFor[T]()

	// Warm sentinel with T and the types it relates to; descriptors built
	// afterwards reuse what it found.
	if t.Kind() == reflect.Struct || (t.Kind() == reflect.Ptr && t.Elem().Kind() == reflect.Struct) {
		sentinel.Scan[T]()
	}
	if _, err := Describe(t, walker.mode); err != nil {
		return nil, err
	}

	p := &Processor[T]{
		codec:    codec,
		walker:   walker,
		resolver: NewResolver(WithResolverMode(walker.mode), WithResolverConverter(walker.converter)),
		typeName: t.String(),
		wrapped:  !rootsAtMap(t),
	}

	emitProcessorCreated(context.Background(), codec.ContentType(), p.typeName)
	return p, nil
}

// rootsAtMap reports whether values of t walk to a map, so the snapshot root
// is the value itself rather than a RootKey wrapper.
func rootsAtMap(t reflect.Type) bool {
	if isOrderedType(t) {
		return true
	}
	for t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	if t == timeType || t.Implements(textMarshalerType) || reflect.PointerTo(t).Implements(textMarshalerType) {
		return false
	}
	return t.Kind() == reflect.Struct || t.Kind() == reflect.Map
}

// ContentType returns the codec's content type.
func (p *Processor[T]) ContentType() string {
	return p.codec.ContentType()
}

// Snapshot walks obj without encoding it.
func (p *Processor[T]) Snapshot(ctx context.Context, obj *T) (*Snapshot, error) {
	if obj == nil {
		return p.walker.Walk(ctx, nil)
	}
	return p.walker.Walk(ctx, obj)
}

// Encode walks obj and marshals the snapshot root. A nil obj marshals nil.
func (p *Processor[T]) Encode(ctx context.Context, obj *T) ([]byte, error) {
	start := time.Now()
	emitEncodeStart(ctx, p.codec.ContentType(), p.typeName)

	var retErr error
	var retData []byte
	nodes := 0
	defer func() {
		emitEncodeComplete(ctx, p.codec.ContentType(), p.typeName,
			len(retData), nodes, time.Since(start), retErr)
	}()

	if obj == nil {
		retData, retErr = p.codec.Marshal(nil)
		return retData, retErr
	}

	snap, err := p.walker.Walk(ctx, obj)
	if err != nil {
		retErr = fmt.Errorf("walk: %w", err)
		return nil, retErr
	}
	nodes = snap.Nodes

	retData, retErr = p.codec.Marshal(snap.Root)
	return retData, retErr
}

// Decode unmarshals data into a generic tree and populates a new T from it.
func (p *Processor[T]) Decode(ctx context.Context, data []byte) (*T, error) {
	start := time.Now()
	emitDecodeStart(ctx, p.codec.ContentType(), p.typeName, len(data))

	var retErr error
	defer func() {
		emitDecodeComplete(ctx, p.codec.ContentType(), p.typeName, time.Since(start), retErr)
	}()

	var tree any
	if err := p.codec.Unmarshal(data, &tree); err != nil {
		retErr = fmt.Errorf("unmarshal: %w", err)
		return nil, retErr
	}

	if p.wrapped {
		if root, ok := tree.(*Object); ok {
			if v, ok := root.Get(RootKey); ok && root.Len() == 1 {
				tree = v
			}
		}
	}

	var obj T
	if tree == nil {
		return &obj, nil
	}
	if err := p.resolver.Populate(&obj, tree); err != nil {
		retErr = fmt.Errorf("populate: %w", err)
		return nil, retErr
	}
	return &obj, nil
}
