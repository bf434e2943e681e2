package facet

import (
	"fmt"
	"reflect"

	"github.com/zoobzio/sentinel"
)

// TypeDescriptor describes the attributes of one type under one discovery
// mode. Descriptors are built once, cached for the life of the process and
// shared between goroutines; callers must not mutate them.
type TypeDescriptor struct {
	// Type is the described type. Pointer types are described by their
	// element type.
	Type reflect.Type

	// Mode is the discovery mode the descriptor was built with.
	Mode Mode

	// Properties maps attribute names to descriptors in discovery order:
	// storage fields in declaration order, then accessor-only attributes.
	Properties *OrderedMap[string, *PropertyDescriptor]

	// Markers are the merged type-level markers of the type and the types it
	// embeds.
	Markers Markers

	// Storage is the sentinel metadata of a struct's fields. Zero for
	// non-struct types.
	Storage sentinel.Metadata
}

// Property returns the named attribute.
func (d *TypeDescriptor) Property(name string) (*PropertyDescriptor, bool) {
	return d.Properties.Get(name)
}

// Filter returns the attributes accepted by f, in descriptor order.
func (d *TypeDescriptor) Filter(f PropertyFilter) []*PropertyDescriptor {
	out := make([]*PropertyDescriptor, 0, d.Properties.Len())
	for _, p := range d.Properties.All() {
		if f == nil || f(p) {
			out = append(out, p)
		}
	}
	return out
}

// Names returns the names of the attributes accepted by f.
func (d *TypeDescriptor) Names(f PropertyFilter) []string {
	props := d.Filter(f)
	out := make([]string, len(props))
	for i, p := range props {
		out[i] = p.Name
	}
	return out
}

// PropertyDescriptor describes one named attribute.
type PropertyDescriptor struct {
	Name string
	Type reflect.Type
	Kind sentinel.FieldKind

	Gettable       bool
	Settable       bool
	PublicStorage  bool // backed by an exported field
	Final          bool // tagged readonly
	Transient      bool
	ArrayLike      bool // fixed-size Go array
	Indexed        bool // slice or array
	Mapped         bool // Go map or ordered map
	AccessorBacked bool // has a getter or a setter
	StorageBacked  bool // has a field
	Complete       bool // field plus getter and setter of the same type

	// Annotations merges the field's struct tags with annotations from
	// type-level markers.
	Annotations map[string]string

	field      []int
	fieldType  reflect.Type
	getter     string
	getterErr  bool
	setter     string
	setterType reflect.Type
	setterErr  bool
}

// Annotation returns the value of one annotation.
func (p *PropertyDescriptor) Annotation(key string) (string, bool) {
	v, ok := p.Annotations[key]
	return v, ok
}

// WriteType is the type a value must have to be passed to Set: the setter
// parameter type, or the field type.
func (p *PropertyDescriptor) WriteType() reflect.Type {
	if p.setter != "" {
		return p.setterType
	}
	return p.fieldType
}

// Get reads the attribute from obj, a struct value or a pointer to one.
// The getter is preferred over the field. Errors returned by the getter and
// panics raised inside it are reported as errors.
func (p *PropertyDescriptor) Get(obj reflect.Value) (reflect.Value, error) {
	if !p.Gettable {
		return reflect.Value{}, fmt.Errorf("%w: %s is not readable", ErrAccessDenied, p.Name)
	}

	if p.getter != "" {
		m, err := methodOf(obj, p.getter)
		if err != nil {
			return reflect.Value{}, err
		}
		out, err := invoke(m, nil)
		if err != nil {
			return reflect.Value{}, err
		}
		if p.getterErr {
			if e, _ := out[1].Interface().(error); e != nil {
				return reflect.Value{}, e
			}
		}
		return out[0], nil
	}

	v := indirect(obj)
	if !v.IsValid() {
		return reflect.Value{}, fmt.Errorf("%w: nil receiver reading %s", ErrInvalidArgument, p.Name)
	}
	f, err := v.FieldByIndexErr(p.field)
	if err != nil {
		// nil embedded pointer: the promoted field reads as its zero value
		return reflect.Zero(p.fieldType), nil
	}
	return f, nil
}

// Set writes val to the attribute of obj, which must be a pointer to a
// struct or an addressable struct. val must be assignable to WriteType.
func (p *PropertyDescriptor) Set(obj, val reflect.Value) error {
	if !p.Settable {
		return fmt.Errorf("%w: %s is not writable", ErrAccessDenied, p.Name)
	}
	if !val.IsValid() {
		val = reflect.Zero(p.WriteType())
	}
	if !val.Type().AssignableTo(p.WriteType()) {
		return newConversionError(val.Interface(), p.WriteType(), nil)
	}

	if p.setter != "" {
		m, err := methodOf(obj, p.setter)
		if err != nil {
			return err
		}
		out, err := invoke(m, []reflect.Value{val})
		if err != nil {
			return err
		}
		if p.setterErr {
			if e, _ := out[0].Interface().(error); e != nil {
				return e
			}
		}
		return nil
	}

	v := indirect(obj)
	if !v.IsValid() || !v.CanAddr() {
		return fmt.Errorf("%w: %s written on a non-addressable value", ErrInvalidArgument, p.Name)
	}
	f, err := fieldForWrite(v, p.field)
	if err != nil {
		return err
	}
	f.Set(val)
	return nil
}

// indirect dereferences pointers and interfaces down to a concrete value.
// A nil pointer yields the invalid Value.
func indirect(v reflect.Value) reflect.Value {
	for v.IsValid() && (v.Kind() == reflect.Ptr || v.Kind() == reflect.Interface) {
		if v.IsNil() {
			return reflect.Value{}
		}
		v = v.Elem()
	}
	return v
}

// methodOf finds the named method on obj, taking the address of (or copying)
// struct values so pointer-receiver methods are reachable.
func methodOf(obj reflect.Value, name string) (reflect.Value, error) {
	recv := obj
	for recv.Kind() == reflect.Interface && !recv.IsNil() {
		recv = recv.Elem()
	}
	if recv.Kind() == reflect.Ptr && recv.IsNil() {
		return reflect.Value{}, fmt.Errorf("%w: nil receiver calling %s", ErrInvalidArgument, name)
	}
	if recv.Kind() != reflect.Ptr {
		if recv.CanAddr() {
			recv = recv.Addr()
		} else if m := recv.MethodByName(name); m.IsValid() {
			return m, nil
		} else {
			tmp := reflect.New(recv.Type())
			tmp.Elem().Set(recv)
			recv = tmp
		}
	}
	m := recv.MethodByName(name)
	if !m.IsValid() {
		return reflect.Value{}, fmt.Errorf("%w: method %s on %s", ErrNotFound, name, recv.Type())
	}
	return m, nil
}

// invoke calls m, turning a panic into an error.
func invoke(m reflect.Value, args []reflect.Value) (out []reflect.Value, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: panic in accessor: %v", ErrAccessDenied, r)
		}
	}()
	return m.Call(args), nil
}

// fieldForWrite walks a field index path, allocating nil embedded struct
// pointers on the way.
func fieldForWrite(v reflect.Value, index []int) (reflect.Value, error) {
	for i, x := range index {
		if i > 0 && v.Kind() == reflect.Ptr {
			if v.IsNil() {
				if !v.CanSet() {
					return reflect.Value{}, fmt.Errorf("%w: cannot allocate embedded %s", ErrAccessDenied, v.Type())
				}
				v.Set(reflect.New(v.Type().Elem()))
			}
			v = v.Elem()
		}
		v = v.Field(x)
	}
	if !v.CanSet() {
		return reflect.Value{}, fmt.Errorf("%w: field is not settable", ErrAccessDenied)
	}
	return v, nil
}
