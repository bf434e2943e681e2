package facet

import (
	"errors"
	"fmt"
	"reflect"
)

// Sentinel errors for programmatic error handling.
// Use errors.Is() to check for these error types.
var (
	// ErrNotFound indicates an attribute name does not exist on a type.
	ErrNotFound = errors.New("attribute not found")

	// ErrAccessDenied indicates an attribute exists but cannot be read or written.
	ErrAccessDenied = errors.New("access denied")

	// ErrConversion indicates a value could not be coerced to a target type.
	ErrConversion = errors.New("conversion failed")

	// ErrInvalidArgument indicates malformed input: a bad path, a nil type,
	// or indexed/keyed access on a non-container.
	ErrInvalidArgument = errors.New("invalid argument")

	// ErrUnmarshal indicates the codec failed to unmarshal input data.
	ErrUnmarshal = errors.New("unmarshal failed")

	// ErrMarshal indicates the codec failed to marshal output data.
	ErrMarshal = errors.New("marshal failed")

	// ErrSkip is returned by a ConvertFunc to refuse a conversion and let the
	// next rule try. It never escapes Convert.
	ErrSkip = errors.New("conversion not applicable")
)

// PathError represents a failure while resolving an attribute path.
// It wraps a sentinel error with the path, the failing segment and the type
// the segment was applied to.
type PathError struct {
	Err     error        // Underlying sentinel error (ErrNotFound, ErrAccessDenied, ...)
	Path    string       // Full path being resolved
	Segment string       // Segment that failed
	Type    reflect.Type // Type the segment was applied to, nil when unknown
	Cause   error        // Original error, e.g. a *ConversionError
}

func (e *PathError) Error() string {
	msg := fmt.Sprintf("%s: segment %q of path %q", e.Err.Error(), e.Segment, e.Path)
	if e.Type != nil {
		msg += fmt.Sprintf(" on %s", e.Type)
	}
	if e.Cause != nil {
		msg += ": " + e.Cause.Error()
	}
	return msg
}

func (e *PathError) Unwrap() []error {
	if e.Cause != nil {
		return []error{e.Err, e.Cause}
	}
	return []error{e.Err}
}

// ConversionError represents a value that could not be coerced.
type ConversionError struct {
	Value  any          // Value that was being converted
	Target reflect.Type // Requested target type
	Cause  error        // Parse or rule failure, nil when no rule applied
}

func (e *ConversionError) Error() string {
	src := "nil"
	if e.Value != nil {
		src = reflect.TypeOf(e.Value).String()
	}
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s (%v) to %s: %v", ErrConversion.Error(), src, e.Value, e.Target, e.Cause)
	}
	return fmt.Sprintf("%s: %s (%v) to %s", ErrConversion.Error(), src, e.Value, e.Target)
}

func (e *ConversionError) Unwrap() []error {
	if e.Cause != nil {
		return []error{ErrConversion, e.Cause}
	}
	return []error{ErrConversion}
}

// DescribeError represents a type that could not be analysed.
type DescribeError struct {
	Err    error        // Underlying sentinel error
	Type   reflect.Type // Type being described, may be nil
	Detail string       // What was wrong
}

func (e *DescribeError) Error() string {
	if e.Type == nil {
		return fmt.Sprintf("%s: %s", e.Err.Error(), e.Detail)
	}
	return fmt.Sprintf("%s: %s: %s", e.Err.Error(), e.Type, e.Detail)
}

func (e *DescribeError) Unwrap() error {
	return e.Err
}

// CodecError represents a marshal/unmarshal error.
type CodecError struct {
	Err   error // Underlying sentinel error (ErrMarshal, ErrUnmarshal)
	Cause error // Original error from the codec
}

func (e *CodecError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Err.Error(), e.Cause)
	}
	return e.Err.Error()
}

func (e *CodecError) Unwrap() []error {
	if e.Cause != nil {
		return []error{e.Err, e.Cause}
	}
	return []error{e.Err}
}

// newPathError creates a PathError for a failed segment.
func newPathError(sentinel error, path, segment string, typ reflect.Type, cause error) error {
	return &PathError{
		Err:     sentinel,
		Path:    path,
		Segment: segment,
		Type:    typ,
		Cause:   cause,
	}
}

// newConversionError creates a ConversionError.
func newConversionError(value any, target reflect.Type, cause error) error {
	return &ConversionError{
		Value:  value,
		Target: target,
		Cause:  cause,
	}
}

// newDescribeError creates a DescribeError.
func newDescribeError(sentinel error, typ reflect.Type, detail string) error {
	return &DescribeError{
		Err:    sentinel,
		Type:   typ,
		Detail: detail,
	}
}

// NewCodecError creates a CodecError for marshal/unmarshal failures.
// Codec providers use it to report failures of the underlying encoder.
func NewCodecError(sentinel error, cause error) error {
	return &CodecError{
		Err:   sentinel,
		Cause: cause,
	}
}
