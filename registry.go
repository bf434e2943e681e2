package facet

import (
	"context"
	"reflect"
	"sync"
	"time"
)

// descriptorKey combines type and discovery mode for cache lookup.
type descriptorKey struct {
	typ  reflect.Type
	mode Mode
}

var (
	descriptors   = make(map[descriptorKey]*TypeDescriptor)
	descriptorsMu sync.RWMutex
)

// Describe returns the cached descriptor of t under mode, analysing the type
// on first use. Pointer types are described by their element type.
//
// Concurrent first calls for the same key may both analyse the type; the
// first descriptor published wins and every caller receives it.
func Describe(t reflect.Type, mode Mode) (*TypeDescriptor, error) {
	if t == nil {
		return nil, newDescribeError(ErrInvalidArgument, nil, "nil type")
	}
	if !IsValidMode(mode) {
		return nil, newDescribeError(ErrInvalidArgument, t, "invalid mode "+mode.String())
	}
	for t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	key := descriptorKey{typ: t, mode: mode}

	// Fast path: read-lock cache check
	descriptorsMu.RLock()
	if cached, ok := descriptors[key]; ok {
		descriptorsMu.RUnlock()
		return cached, nil
	}
	descriptorsMu.RUnlock()

	// Analysis runs unlocked; it may call FacetMarkers on user types.
	start := time.Now()
	desc, err := analyze(t, mode)
	if err != nil {
		return nil, err
	}

	descriptorsMu.Lock()
	// Double-check pattern
	if cached, ok := descriptors[key]; ok {
		descriptorsMu.Unlock()
		return cached, nil
	}
	descriptors[key] = desc
	descriptorsMu.Unlock()

	emitDescribeComplete(context.Background(), t.String(), mode, desc.Properties.Len(), time.Since(start))
	return desc, nil
}

// DescribeOf describes the dynamic type of v.
func DescribeOf(v any, mode Mode) (*TypeDescriptor, error) {
	return Describe(reflect.TypeOf(v), mode)
}

// IsAttributeValid reports whether t has an attribute called name that passes
// filter under hybrid discovery. A nil filter accepts any attribute.
func IsAttributeValid(t reflect.Type, name string, filter PropertyFilter) bool {
	desc, err := Describe(t, ModeHybrid)
	if err != nil {
		return false
	}
	p, ok := desc.Property(name)
	if !ok {
		return false
	}
	return filter == nil || filter(p)
}

// ResetDescriptors clears the descriptor cache.
// This is primarily useful for test isolation.
func ResetDescriptors() {
	descriptorsMu.Lock()
	defer descriptorsMu.Unlock()
	descriptors = make(map[descriptorKey]*TypeDescriptor)
}

// cachedDescriptors returns the number of cached descriptors.
func cachedDescriptors() int {
	descriptorsMu.RLock()
	defer descriptorsMu.RUnlock()
	return len(descriptors)
}

// processorKey combines type and codec for cache lookup.
type processorKey struct {
	typ         reflect.Type
	contentType string
}

var (
	processors   = make(map[processorKey]any)
	processorsMu sync.RWMutex
)

// Use returns a cached processor or builds a new one.
// The processor is cached by type and codec content type; options only
// apply when the processor is first built.
func Use[T any](codec Codec, opts ...WalkOption) (*Processor[T], error) {
	if codec == nil {
		return nil, newDescribeError(ErrInvalidArgument, reflect.TypeFor[T](), "nil codec")
	}
	key := processorKey{typ: reflect.TypeFor[T](), contentType: codec.ContentType()}

	// Fast path: read-lock cache check
	processorsMu.RLock()
	if cached, ok := processors[key]; ok {
		processorsMu.RUnlock()
		return cached.(*Processor[T]), nil
	}
	processorsMu.RUnlock()

	// Slow path: build and cache with write-lock
	processorsMu.Lock()
	defer processorsMu.Unlock()

	// Double-check pattern
	if cached, ok := processors[key]; ok {
		return cached.(*Processor[T]), nil
	}

	p, err := NewProcessor[T](codec, opts...)
	if err != nil {
		return nil, err
	}
	processors[key] = p
	return p, nil
}

// Reset clears the processor and descriptor caches.
// This is primarily useful for test isolation.
func Reset() {
	processorsMu.Lock()
	processors = make(map[processorKey]any)
	processorsMu.Unlock()
	ResetDescriptors()
}
