package facet

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"strings"
	"sync"
)

// ConvertFunc converts value to target. Returning ErrSkip refuses the
// conversion so the next rule is tried.
type ConvertFunc func(value any, target reflect.Type) (any, error)

// Predicate decides whether a ConvertFunc applies to a value/target pair.
type Predicate func(value any, target reflect.Type) bool

// Priority places a predicate-driven rule relative to the built-in rules.
type Priority int

const (
	// PriorityFirst rules run before exact-type converters and built-ins.
	PriorityFirst Priority = iota

	// PriorityLast rules run only after every built-in rule refused.
	PriorityLast
)

type rule struct {
	applies Predicate
	fn      ConvertFunc
}

// Converter coerces values between representations. Rules are tried in this
// order: identity, PriorityFirst rules, exact-type converters, built-ins,
// PriorityLast rules.
//
// Converters are safe for concurrent use. Registration may happen at any
// time; registration order is preserved.
type Converter struct {
	mu    sync.RWMutex
	first []rule
	exact map[reflect.Type][]ConvertFunc
	last  []rule
	enums map[reflect.Type]*enumTable

	// mode is the discovery mode for object <-> map conversions.
	mode Mode
}

// ConverterOption configures a Converter.
type ConverterOption func(*Converter)

// WithConversionMode sets the discovery mode used when objects are converted
// to and from maps. The default is ModeHybrid.
func WithConversionMode(m Mode) ConverterOption {
	return func(c *Converter) {
		if IsValidMode(m) {
			c.mode = m
		}
	}
}

// NewConverter returns a converter with only the built-in rules.
func NewConverter(opts ...ConverterOption) *Converter {
	c := &Converter{
		exact: make(map[reflect.Type][]ConvertFunc),
		enums: make(map[reflect.Type]*enumTable),
		mode:  ModeHybrid,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

var defaultConverter = NewConverter()

// DefaultConverter returns the process-wide converter used by the package
// level helpers, the default Resolver and the default Walker.
func DefaultConverter() *Converter {
	return defaultConverter
}

// Register adds an exact-type converter for target. Converters registered
// for the same target are tried in registration order.
func (c *Converter) Register(target reflect.Type, fn ConvertFunc) {
	c.mu.Lock()
	c.exact[target] = append(c.exact[target], fn)
	c.mu.Unlock()
	emitConverterRegistered(context.Background(), target.String())
}

// RegisterFunc adds a predicate-driven rule at the given priority.
func (c *Converter) RegisterFunc(applies Predicate, fn ConvertFunc, priority Priority) {
	r := rule{applies: applies, fn: fn}
	c.mu.Lock()
	if priority == PriorityFirst {
		c.first = append(c.first, r)
	} else {
		c.last = append(c.last, r)
	}
	c.mu.Unlock()
	emitConverterRegistered(context.Background(), "*")
}

// Convert coerces value to target. The result's dynamic type is target, or
// for interface targets a type implementing it. nil converts to the zero
// value of target.
func (c *Converter) Convert(value any, target reflect.Type) (any, error) {
	if target == nil {
		return nil, fmt.Errorf("%w: nil conversion target", ErrInvalidArgument)
	}
	if value == nil {
		return reflect.Zero(target).Interface(), nil
	}

	vt := reflect.TypeOf(value)
	if vt == target {
		return value, nil
	}
	if vt.AssignableTo(target) {
		if target.Kind() == reflect.Interface {
			return value, nil
		}
		return reflect.ValueOf(value).Convert(target).Interface(), nil
	}

	c.mu.RLock()
	first, exact, last := c.first, c.exact[target], c.last
	c.mu.RUnlock()

	for _, r := range first {
		if r.applies != nil && !r.applies(value, target) {
			continue
		}
		if out, err := r.fn(value, target); !errors.Is(err, ErrSkip) {
			return finishRule(value, target, out, err)
		}
	}

	for _, fn := range exact {
		if out, err := fn(value, target); !errors.Is(err, ErrSkip) {
			return finishRule(value, target, out, err)
		}
	}

	out, err := c.builtin(reflect.ValueOf(value), target)
	if err == nil {
		return out.Interface(), nil
	}
	if !errors.Is(err, ErrSkip) {
		return nil, wrapConversion(value, target, err)
	}

	for _, r := range last {
		if r.applies != nil && !r.applies(value, target) {
			continue
		}
		if out, err := r.fn(value, target); !errors.Is(err, ErrSkip) {
			return finishRule(value, target, out, err)
		}
	}

	return nil, newConversionError(value, target, nil)
}

func finishRule(value any, target reflect.Type, out any, err error) (any, error) {
	if err != nil {
		return nil, wrapConversion(value, target, err)
	}
	return out, nil
}

// wrapConversion keeps a ConversionError raised for the same value and
// target as is, and wraps anything else.
func wrapConversion(value any, target reflect.Type, err error) error {
	var ce *ConversionError
	if errors.As(err, &ce) && ce.Target == target {
		return err
	}
	return newConversionError(value, target, err)
}

// ConvertToString converts value to a string. nil converts to "".
func (c *Converter) ConvertToString(value any) (string, error) {
	out, err := c.Convert(value, stringType)
	if err != nil {
		return "", err
	}
	return out.(string), nil
}

// ConvertTo converts value to T. A nil converter uses DefaultConverter.
func ConvertTo[T any](c *Converter, value any) (T, error) {
	var zero T
	if c == nil {
		c = defaultConverter
	}
	out, err := c.Convert(value, reflect.TypeFor[T]())
	if err != nil || out == nil {
		return zero, err
	}
	return out.(T), nil
}

// Convert converts value to target with DefaultConverter.
func Convert(value any, target reflect.Type) (any, error) {
	return defaultConverter.Convert(value, target)
}

// ConvertToString converts value to a string with DefaultConverter.
func ConvertToString(value any) (string, error) {
	return defaultConverter.ConvertToString(value)
}

// convertValue is the reflect-level entry used by built-ins, the resolver and
// the walker.
func (c *Converter) convertValue(v reflect.Value, target reflect.Type) (reflect.Value, error) {
	if !v.IsValid() {
		return reflect.Zero(target), nil
	}
	out, err := c.Convert(v.Interface(), target)
	if err != nil {
		return reflect.Value{}, err
	}
	if out == nil {
		return reflect.Zero(target), nil
	}
	return reflect.ValueOf(out), nil
}

// enumTable maps the values of one enum type to their names and back.
// Names keep registration order so case-insensitive lookups are stable.
type enumTable struct {
	byName *OrderedMap[string, reflect.Value]
	names  map[any]string
}

// RegisterEnum registers the values of an enum type. Registered values
// convert to their String() names and back; the walker emits them as names.
// A nil converter registers with DefaultConverter.
func RegisterEnum[T interface {
	comparable
	fmt.Stringer
}](c *Converter, values ...T) {
	if c == nil {
		c = defaultConverter
	}
	t := reflect.TypeFor[T]()

	c.mu.Lock()
	table, ok := c.enums[t]
	if !ok {
		table = &enumTable{
			byName: NewOrderedMap[string, reflect.Value](),
			names:  make(map[any]string),
		}
		c.enums[t] = table
	}
	for _, v := range values {
		name := v.String()
		table.byName.Set(name, reflect.ValueOf(v))
		table.names[v] = name
	}
	c.mu.Unlock()

	emitConverterRegistered(context.Background(), t.String())
}

// enumName returns the registered name of v, if its type is a registered
// enum.
func (c *Converter) enumName(v reflect.Value) (string, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	table, ok := c.enums[v.Type()]
	if !ok || !v.CanInterface() {
		return "", false
	}
	if name, ok := table.names[v.Interface()]; ok {
		return name, true
	}
	if s, ok := v.Interface().(fmt.Stringer); ok {
		return s.String(), true
	}
	return "", false
}

// enumValue looks up an enum value by name. Exact names win over
// case-insensitive matches, which go to the first name registered.
func (c *Converter) enumValue(t reflect.Type, name string) (reflect.Value, bool, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	table, ok := c.enums[t]
	if !ok {
		return reflect.Value{}, false, nil
	}
	if v, ok := table.byName.Get(name); ok {
		return v, true, nil
	}
	for n, v := range table.byName.All() {
		if strings.EqualFold(n, name) {
			return v, true, nil
		}
	}
	return reflect.Value{}, true, fmt.Errorf("unknown %s value %q", t, name)
}

// DefaultImplementation returns the concrete type used where an abstract
// container must be created: []any for sequences, *Object for maps and
// objects. Other kinds return nil.
func DefaultImplementation(kind reflect.Kind) reflect.Type {
	switch kind {
	case reflect.Slice, reflect.Array:
		return anySliceType
	case reflect.Map, reflect.Struct:
		return objectType
	}
	return nil
}

var (
	stringType   = reflect.TypeFor[string]()
	anyType      = reflect.TypeFor[any]()
	anySliceType = reflect.TypeFor[[]any]()
	objectType   = reflect.TypeFor[*Object]()
)
