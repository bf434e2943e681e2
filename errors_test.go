package facet

import (
	"errors"
	"io"
	"reflect"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPathError_Is(t *testing.T) {
	err := newPathError(ErrNotFound, "home.street", "home", reflect.TypeFor[Person](), nil)

	assert.ErrorIs(t, err, ErrNotFound)
	assert.NotErrorIs(t, err, ErrAccessDenied)

	var pe *PathError
	require.ErrorAs(t, err, &pe)
	assert.Equal(t, "home", pe.Segment)
	assert.Equal(t, "home.street", pe.Path)
}

func TestPathError_Cause(t *testing.T) {
	cause := newConversionError("x", reflect.TypeFor[int](), strconv.ErrSyntax)
	err := newPathError(ErrConversion, "age", "age", reflect.TypeFor[Person](), cause)

	assert.ErrorIs(t, err, ErrConversion)
	assert.ErrorIs(t, err, strconv.ErrSyntax, "the conversion cause stays reachable")

	var ce *ConversionError
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, reflect.TypeFor[int](), ce.Target)
}

func TestPathError_Message(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{
			name: "with type",
			err:  newPathError(ErrNotFound, "a.b", "b", reflect.TypeFor[Address](), nil),
			want: `attribute not found: segment "b" of path "a.b" on facet.Address`,
		},
		{
			name: "without type",
			err:  newPathError(ErrInvalidArgument, "a[", "a[", nil, nil),
			want: `invalid argument: segment "a[" of path "a["`,
		},
		{
			name: "with cause",
			err:  newPathError(ErrAccessDenied, "fuse", "fuse", nil, io.EOF),
			want: `access denied: segment "fuse" of path "fuse": EOF`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.EqualError(t, tt.err, tt.want)
		})
	}
}

func TestConversionError(t *testing.T) {
	err := newConversionError("abc", reflect.TypeFor[int](), strconv.ErrSyntax)

	assert.ErrorIs(t, err, ErrConversion)
	assert.ErrorIs(t, err, strconv.ErrSyntax)
	assert.EqualError(t, err, `conversion failed: string (abc) to int: invalid syntax`)

	bare := newConversionError(nil, reflect.TypeFor[bool](), nil)
	assert.EqualError(t, bare, `conversion failed: nil (<nil>) to bool`)
}

func TestDescribeError(t *testing.T) {
	err := newDescribeError(ErrInvalidArgument, reflect.TypeFor[BadOption](), `unknown option "bogus"`)

	assert.ErrorIs(t, err, ErrInvalidArgument)
	assert.EqualError(t, err, `invalid argument: facet.BadOption: unknown option "bogus"`)

	untyped := newDescribeError(ErrInvalidArgument, nil, "nil type")
	assert.EqualError(t, untyped, "invalid argument: nil type")
}

func TestCodecError(t *testing.T) {
	cause := errors.New("unexpected end of input")
	err := NewCodecError(ErrUnmarshal, cause)

	assert.ErrorIs(t, err, ErrUnmarshal)
	assert.NotErrorIs(t, err, ErrMarshal)
	assert.ErrorIs(t, err, cause)

	assert.EqualError(t, err, "unmarshal failed: unexpected end of input")
	assert.EqualError(t, NewCodecError(ErrMarshal, nil), "marshal failed")
}

func TestSentinelsDistinct(t *testing.T) {
	sentinels := []error{
		ErrNotFound, ErrAccessDenied, ErrConversion, ErrInvalidArgument,
		ErrUnmarshal, ErrMarshal, ErrSkip,
	}
	for i, a := range sentinels {
		for j, b := range sentinels {
			if i != j {
				assert.NotErrorIs(t, a, b)
			}
		}
	}
}
