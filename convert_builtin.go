package facet

import (
	"encoding"
	"errors"
	"fmt"
	"math"
	"reflect"
	"strconv"
	"strings"
	"time"
)

var (
	timeType            = reflect.TypeFor[time.Time]()
	bytesType           = reflect.TypeFor[[]byte]()
	textMarshalerType   = reflect.TypeFor[encoding.TextMarshaler]()
	textUnmarshalerType = reflect.TypeFor[encoding.TextUnmarshaler]()

	errFraction = errors.New("value has a fractional part")
)

// builtinFunc is one built-in rule. It returns ErrSkip when it does not
// apply.
type builtinFunc func(c *Converter, v reflect.Value, target reflect.Type) (reflect.Value, error)

// builtins in priority order. Assigned in init since the rules recurse
// through Convert.
var builtins []builtinFunc

func init() {
	builtins = []builtinFunc{
		convertPointer,
		convertEnum,
		convertTime,
		convertText,
		convertBytes,
		convertSequence,
		convertMap,
		convertOrdered,
		convertStruct,
		convertScalar,
	}
}

func (c *Converter) builtin(v reflect.Value, target reflect.Type) (reflect.Value, error) {
	for _, fn := range builtins {
		out, err := fn(c, v, target)
		if errors.Is(err, ErrSkip) {
			continue
		}
		return out, err
	}
	return reflect.Value{}, ErrSkip
}

func convertPointer(c *Converter, v reflect.Value, target reflect.Type) (reflect.Value, error) {
	if v.Kind() == reflect.Ptr && !isOrderedType(v.Type()) {
		if v.IsNil() {
			return reflect.Zero(target), nil
		}
		return c.convertValue(v.Elem(), target)
	}
	if target.Kind() == reflect.Ptr && !isOrderedType(target) {
		elem, err := c.convertValue(v, target.Elem())
		if err != nil {
			return reflect.Value{}, err
		}
		p := reflect.New(target.Elem())
		p.Elem().Set(elem)
		return p, nil
	}
	return reflect.Value{}, ErrSkip
}

func convertEnum(c *Converter, v reflect.Value, target reflect.Type) (reflect.Value, error) {
	if target.Kind() == reflect.String {
		if name, ok := c.enumName(v); ok {
			return reflect.ValueOf(name).Convert(target), nil
		}
		return reflect.Value{}, ErrSkip
	}
	if v.Kind() != reflect.String {
		return reflect.Value{}, ErrSkip
	}
	ev, ok, err := c.enumValue(target, strings.TrimSpace(v.String()))
	if !ok {
		return reflect.Value{}, ErrSkip
	}
	return ev, err
}

// convertTime handles time.Time on either side. Times convert to epoch
// milliseconds; they are read from epoch milliseconds, compact yyyyMMdd or
// yyyyMMddHHmmss digits, or RFC 3339. Results are in UTC.
func convertTime(c *Converter, v reflect.Value, target reflect.Type) (reflect.Value, error) {
	if v.Type() == timeType {
		ms := v.Interface().(time.Time).UnixMilli()
		switch target.Kind() {
		case reflect.String:
			return reflect.ValueOf(strconv.FormatInt(ms, 10)).Convert(target), nil
		case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
			reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
			reflect.Float32, reflect.Float64:
			return convertScalar(c, reflect.ValueOf(ms), target)
		}
		return reflect.Value{}, ErrSkip
	}
	if target != timeType {
		return reflect.Value{}, ErrSkip
	}

	switch v.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return reflect.ValueOf(time.UnixMilli(v.Int()).UTC()), nil
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		u := v.Uint()
		if u > math.MaxInt64 {
			return reflect.Value{}, strconv.ErrRange
		}
		return reflect.ValueOf(time.UnixMilli(int64(u)).UTC()), nil
	case reflect.Float32, reflect.Float64:
		return reflect.ValueOf(time.UnixMilli(int64(v.Float())).UTC()), nil
	case reflect.String:
		t, err := parseTime(strings.TrimSpace(v.String()))
		if err != nil {
			return reflect.Value{}, err
		}
		return reflect.ValueOf(t), nil
	case reflect.Slice, reflect.Array, reflect.Map:
		if elems, ok := collectionElements(v); ok {
			return firstElement(c, elems, target)
		}
	}
	return reflect.Value{}, ErrSkip
}

func parseTime(s string) (time.Time, error) {
	if isDigits(s) {
		switch len(s) {
		case 8:
			return time.ParseInLocation("20060102", s, time.UTC)
		case 14:
			return time.ParseInLocation("20060102150405", s, time.UTC)
		}
		ms, err := strconv.ParseInt(s, 10, 64)
		if err != nil {
			return time.Time{}, err
		}
		return time.UnixMilli(ms).UTC(), nil
	}
	if strings.HasPrefix(s, "-") && isDigits(s[1:]) {
		ms, err := strconv.ParseInt(s, 10, 64)
		if err != nil {
			return time.Time{}, err
		}
		return time.UnixMilli(ms).UTC(), nil
	}
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}, err
	}
	return t.UTC(), nil
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}

// convertText uses encoding.TextMarshaler and TextUnmarshaler for string
// conversions.
func convertText(c *Converter, v reflect.Value, target reflect.Type) (reflect.Value, error) {
	if target.Kind() == reflect.String {
		if m, ok := textMarshaler(v); ok {
			b, err := m.MarshalText()
			if err != nil {
				return reflect.Value{}, err
			}
			return reflect.ValueOf(string(b)).Convert(target), nil
		}
	}

	if !reflect.PointerTo(target).Implements(textUnmarshalerType) {
		return reflect.Value{}, ErrSkip
	}
	var text []byte
	switch {
	case v.Kind() == reflect.String:
		text = []byte(v.String())
	case v.Type() == bytesType:
		text = v.Bytes()
	default:
		return reflect.Value{}, ErrSkip
	}
	p := reflect.New(target)
	if err := p.Interface().(encoding.TextUnmarshaler).UnmarshalText(text); err != nil {
		return reflect.Value{}, err
	}
	return p.Elem(), nil
}

func textMarshaler(v reflect.Value) (encoding.TextMarshaler, bool) {
	if !v.CanInterface() {
		return nil, false
	}
	if v.Type().Implements(textMarshalerType) {
		if v.Kind() == reflect.Ptr && v.IsNil() {
			return nil, false
		}
		return v.Interface().(encoding.TextMarshaler), true
	}
	if reflect.PointerTo(v.Type()).Implements(textMarshalerType) {
		p := reflect.New(v.Type())
		p.Elem().Set(v)
		return p.Interface().(encoding.TextMarshaler), true
	}
	return nil, false
}

// convertBytes treats []byte as raw text rather than a sequence of numbers.
func convertBytes(c *Converter, v reflect.Value, target reflect.Type) (reflect.Value, error) {
	switch {
	case isByteSlice(v.Type()) && target.Kind() == reflect.String:
		return reflect.ValueOf(string(v.Bytes())).Convert(target), nil
	case v.Kind() == reflect.String && isByteSlice(target):
		return reflect.ValueOf([]byte(v.String())).Convert(target), nil
	}
	return reflect.Value{}, ErrSkip
}

func isByteSlice(t reflect.Type) bool {
	return t.Kind() == reflect.Slice && t.Elem().Kind() == reflect.Uint8
}

// convertSequence produces slices and arrays.
func convertSequence(c *Converter, v reflect.Value, target reflect.Type) (reflect.Value, error) {
	if target.Kind() != reflect.Slice && target.Kind() != reflect.Array {
		return reflect.Value{}, ErrSkip
	}

	elems, ok := sequenceElements(v)
	if !ok {
		return reflect.Value{}, ErrSkip
	}

	var out reflect.Value
	if target.Kind() == reflect.Array {
		if len(elems) > target.Len() {
			return reflect.Value{}, fmt.Errorf("%d elements do not fit %s", len(elems), target)
		}
		out = reflect.New(target).Elem()
	} else {
		out = reflect.MakeSlice(target, len(elems), len(elems))
	}
	for i, e := range elems {
		ev, err := c.convertValue(e, target.Elem())
		if err != nil {
			return reflect.Value{}, fmt.Errorf("element %d: %w", i, err)
		}
		out.Index(i).Set(ev)
	}
	return out, nil
}

// sequenceElements lists the elements v contributes to a sequence: the
// elements of a slice or array, the members of a set in sorted order, the
// comma-separated parts of a string, or v itself for other scalars.
func sequenceElements(v reflect.Value) ([]reflect.Value, bool) {
	if elems, ok := collectionElements(v); ok {
		return elems, true
	}
	switch v.Kind() {
	case reflect.Map:
		return nil, false
	case reflect.String:
		s := strings.TrimSpace(v.String())
		if s == "" {
			return nil, true
		}
		parts := strings.Split(s, ",")
		out := make([]reflect.Value, len(parts))
		for i, p := range parts {
			out[i] = reflect.ValueOf(strings.TrimSpace(p))
		}
		return out, true
	case reflect.Struct:
		if _, ok := textMarshaler(v); ok || v.Type() == timeType {
			return []reflect.Value{v}, true
		}
		return nil, false
	case reflect.Ptr, reflect.Interface, reflect.Func, reflect.Chan, reflect.UnsafePointer:
		return nil, false
	}
	return []reflect.Value{v}, true
}

// collectionElements lists the elements of a slice, array or set.
func collectionElements(v reflect.Value) ([]reflect.Value, bool) {
	switch v.Kind() {
	case reflect.Slice, reflect.Array:
		out := make([]reflect.Value, v.Len())
		for i := range out {
			out[i] = v.Index(i)
		}
		return out, true
	case reflect.Map:
		if isSetType(v.Type()) {
			return setMembers(v), true
		}
	}
	return nil, false
}

// isSetType reports whether t is map[K]struct{} or map[K]bool.
func isSetType(t reflect.Type) bool {
	if t.Kind() != reflect.Map {
		return false
	}
	e := t.Elem()
	return e.Kind() == reflect.Bool || (e.Kind() == reflect.Struct && e.NumField() == 0)
}

// setMembers returns the members of a set in sorted key order. Keys mapped
// to false are not members.
func setMembers(v reflect.Value) []reflect.Value {
	keys := sortedKeys(v)
	if v.Type().Elem().Kind() != reflect.Bool {
		return keys
	}
	out := keys[:0]
	for _, k := range keys {
		if v.MapIndex(k).Bool() {
			out = append(out, k)
		}
	}
	return out
}

// convertMap produces Go maps from maps, ordered maps and objects, and sets
// from sequences.
func convertMap(c *Converter, v reflect.Value, target reflect.Type) (reflect.Value, error) {
	if target.Kind() != reflect.Map {
		return reflect.Value{}, ErrSkip
	}

	entries, ok, err := c.entriesOf(v)
	if err != nil {
		return reflect.Value{}, err
	}
	out := reflect.MakeMap(target)
	if ok {
		for _, e := range entries {
			if err := c.putEntry(out, e); err != nil {
				return reflect.Value{}, err
			}
		}
		return out, nil
	}

	if !isSetType(target) {
		return reflect.Value{}, ErrSkip
	}
	elems, ok := sequenceElements(v)
	if !ok {
		return reflect.Value{}, ErrSkip
	}
	member := reflect.Zero(target.Elem())
	if target.Elem().Kind() == reflect.Bool {
		member = reflect.ValueOf(true).Convert(target.Elem())
	}
	for i, e := range elems {
		k, err := c.convertValue(e, target.Key())
		if err != nil {
			return reflect.Value{}, fmt.Errorf("element %d: %w", i, err)
		}
		out.SetMapIndex(k, member)
	}
	return out, nil
}

func (c *Converter) putEntry(m reflect.Value, e entry) error {
	k, err := c.convertValue(e.key, m.Type().Key())
	if err != nil {
		return fmt.Errorf("key %v: %w", e.key, err)
	}
	val, err := c.convertValue(e.value, m.Type().Elem())
	if err != nil {
		return fmt.Errorf("key %v: %w", e.key, err)
	}
	m.SetMapIndex(k, val)
	return nil
}

// convertOrdered produces ordered maps from maps, ordered maps and objects.
func convertOrdered(c *Converter, v reflect.Value, target reflect.Type) (reflect.Value, error) {
	if !isOrderedType(target) {
		return reflect.Value{}, ErrSkip
	}
	entries, ok, err := c.entriesOf(v)
	if err != nil {
		return reflect.Value{}, err
	}
	if !ok {
		return reflect.Value{}, ErrSkip
	}

	out := reflect.New(target.Elem())
	om, _ := asOrdered(out)
	for _, e := range entries {
		k, err := c.convertValue(e.key, om.keyType())
		if err != nil {
			return reflect.Value{}, fmt.Errorf("key %v: %w", e.key, err)
		}
		val, err := c.convertValue(e.value, om.valueType())
		if err != nil {
			return reflect.Value{}, fmt.Errorf("key %v: %w", e.key, err)
		}
		if err := om.store(k.Interface(), valueOrNil(val)); err != nil {
			return reflect.Value{}, err
		}
	}
	return out, nil
}

// convertStruct produces objects from maps, ordered maps and other objects.
// Keys naming settable properties are written; other keys are ignored.
func convertStruct(c *Converter, v reflect.Value, target reflect.Type) (reflect.Value, error) {
	if target.Kind() != reflect.Struct || target == timeType {
		return reflect.Value{}, ErrSkip
	}
	entries, ok, err := c.entriesOf(v)
	if err != nil {
		return reflect.Value{}, err
	}
	if !ok {
		return reflect.Value{}, ErrSkip
	}
	out := reflect.New(target).Elem()
	if err := c.fill(out, entries, c.mode); err != nil {
		return reflect.Value{}, err
	}
	return out, nil
}

// fill writes entries into the settable properties of dst, an addressable
// struct value, discovered under mode.
func (c *Converter) fill(dst reflect.Value, entries []entry, mode Mode) error {
	desc, err := Describe(dst.Type(), mode)
	if err != nil {
		return err
	}
	for _, e := range entries {
		name := keyString(e.key.Interface())
		p, ok := desc.Property(name)
		if !ok || !p.Settable {
			continue
		}
		val, err := c.convertValue(e.value, p.WriteType())
		if err != nil {
			return fmt.Errorf("property %s: %w", name, err)
		}
		if err := p.Set(dst.Addr(), val); err != nil {
			return fmt.Errorf("property %s: %w", name, err)
		}
	}
	return nil
}

// entriesOf lists the key/value pairs of a map, an ordered map or an
// object. Go maps are listed in sorted key order; objects list their
// readable, non-transient properties in descriptor order.
func (c *Converter) entriesOf(v reflect.Value) ([]entry, bool, error) {
	if entries, ok := mapEntries(v); ok {
		return entries, true, nil
	}
	if v.Kind() != reflect.Struct || v.Type() == timeType {
		return nil, false, nil
	}
	desc, err := Describe(v.Type(), c.mode)
	if err != nil {
		return nil, false, err
	}
	props := desc.Filter(Persistent)
	out := make([]entry, 0, len(props))
	for _, p := range props {
		val, err := p.Get(v)
		if err != nil {
			return nil, false, fmt.Errorf("property %s: %w", p.Name, err)
		}
		out = append(out, entry{key: reflect.ValueOf(p.Name), value: val})
	}
	return out, true, nil
}

// firstElement converts the first element of a collection, or returns the
// zero value for an empty one.
func firstElement(c *Converter, elems []reflect.Value, target reflect.Type) (reflect.Value, error) {
	if len(elems) == 0 {
		return reflect.Zero(target), nil
	}
	return c.convertValue(elems[0], target)
}

// convertScalar converts between strings, booleans and numbers.
func convertScalar(c *Converter, v reflect.Value, target reflect.Type) (reflect.Value, error) {
	if elems, ok := collectionElements(v); ok {
		if target.Kind() == reflect.String {
			return joinElements(c, elems, target)
		}
		if isScalarKind(target.Kind()) {
			return firstElement(c, elems, target)
		}
		return reflect.Value{}, ErrSkip
	}
	out := reflect.New(target).Elem()
	switch target.Kind() {
	case reflect.String:
		s, ok := scalarString(v)
		if !ok {
			return reflect.Value{}, ErrSkip
		}
		out.SetString(s)

	case reflect.Bool:
		b, err := toBool(v)
		if err != nil {
			return reflect.Value{}, err
		}
		out.SetBool(b)

	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		i, err := toInt64(v)
		if err != nil {
			return reflect.Value{}, err
		}
		if out.OverflowInt(i) {
			return reflect.Value{}, strconv.ErrRange
		}
		out.SetInt(i)

	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		u, err := toUint64(v)
		if err != nil {
			return reflect.Value{}, err
		}
		if out.OverflowUint(u) {
			return reflect.Value{}, strconv.ErrRange
		}
		out.SetUint(u)

	case reflect.Float32, reflect.Float64:
		f, err := toFloat64(v)
		if err != nil {
			return reflect.Value{}, err
		}
		if out.OverflowFloat(f) {
			return reflect.Value{}, strconv.ErrRange
		}
		out.SetFloat(f)

	default:
		return reflect.Value{}, ErrSkip
	}
	return out, nil
}

func isScalarKind(k reflect.Kind) bool {
	switch k {
	case reflect.Bool, reflect.String,
		reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr,
		reflect.Float32, reflect.Float64:
		return true
	}
	return false
}

// joinElements renders a collection as its comma-joined element strings.
func joinElements(c *Converter, elems []reflect.Value, target reflect.Type) (reflect.Value, error) {
	parts := make([]string, len(elems))
	for i := range parts {
		s, err := c.convertValue(elems[i], stringType)
		if err != nil {
			return reflect.Value{}, fmt.Errorf("element %d: %w", i, err)
		}
		parts[i] = s.String()
	}
	return reflect.ValueOf(strings.Join(parts, ",")).Convert(target), nil
}

func scalarString(v reflect.Value) (string, bool) {
	switch v.Kind() {
	case reflect.String:
		return v.String(), true
	case reflect.Bool:
		return strconv.FormatBool(v.Bool()), true
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return strconv.FormatInt(v.Int(), 10), true
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		return strconv.FormatUint(v.Uint(), 10), true
	case reflect.Float32, reflect.Float64:
		return formatFloat(v.Float(), v.Type().Bits()), true
	}
	return "", false
}

func formatFloat(f float64, bits int) string {
	if math.Abs(f) >= 1e21 {
		return strconv.FormatFloat(f, 'g', -1, bits)
	}
	return strconv.FormatFloat(f, 'f', -1, bits)
}

func toBool(v reflect.Value) (bool, error) {
	switch v.Kind() {
	case reflect.Bool:
		return v.Bool(), nil
	case reflect.String:
		return strconv.ParseBool(strings.TrimSpace(v.String()))
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return v.Int() != 0, nil
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		return v.Uint() != 0, nil
	case reflect.Float32, reflect.Float64:
		return v.Float() != 0, nil
	}
	return false, ErrSkip
}

func toInt64(v reflect.Value) (int64, error) {
	switch v.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return v.Int(), nil
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		u := v.Uint()
		if u > math.MaxInt64 {
			return 0, strconv.ErrRange
		}
		return int64(u), nil
	case reflect.Float32, reflect.Float64:
		return floatToInt(v.Float())
	case reflect.Bool:
		if v.Bool() {
			return 1, nil
		}
		return 0, nil
	case reflect.String:
		s := strings.TrimSpace(v.String())
		if i, err := strconv.ParseInt(s, 10, 64); err == nil {
			return i, nil
		}
		f, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return 0, err
		}
		return floatToInt(f)
	}
	return 0, ErrSkip
}

func floatToInt(f float64) (int64, error) {
	if math.IsNaN(f) || math.IsInf(f, 0) || f < math.MinInt64 || f >= math.MaxInt64 {
		return 0, strconv.ErrRange
	}
	if f != math.Trunc(f) {
		return 0, errFraction
	}
	return int64(f), nil
}

func toUint64(v reflect.Value) (uint64, error) {
	switch v.Kind() {
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		return v.Uint(), nil
	case reflect.String:
		s := strings.TrimSpace(v.String())
		if u, err := strconv.ParseUint(s, 10, 64); err == nil {
			return u, nil
		}
	case reflect.Bool:
		if v.Bool() {
			return 1, nil
		}
		return 0, nil
	}
	i, err := toInt64(v)
	if err != nil {
		return 0, err
	}
	if i < 0 {
		return 0, strconv.ErrRange
	}
	return uint64(i), nil
}

func toFloat64(v reflect.Value) (float64, error) {
	switch v.Kind() {
	case reflect.Float32, reflect.Float64:
		return v.Float(), nil
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return float64(v.Int()), nil
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		return float64(v.Uint()), nil
	case reflect.Bool:
		if v.Bool() {
			return 1, nil
		}
		return 0, nil
	case reflect.String:
		return strconv.ParseFloat(strings.TrimSpace(v.String()), 64)
	}
	return 0, ErrSkip
}

// valueOrNil unwraps v for storage in an untyped slot.
func valueOrNil(v reflect.Value) any {
	if !v.IsValid() || (v.Kind() == reflect.Interface && v.IsNil()) {
		return nil
	}
	return v.Interface()
}
