package facet

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func segName(n string) Segment { return Segment{Kind: SegmentName, Name: n} }
func segIndex(i int) Segment   { return Segment{Kind: SegmentIndex, Index: i} }
func segKey(k string) Segment  { return Segment{Kind: SegmentKey, Key: k} }

func TestParsePath(t *testing.T) {
	tests := []struct {
		input string
		want  Path
		str   string
	}{
		{"name", Path{segName("name")}, "name"},
		{"home.street", Path{segName("home"), segName("street")}, "home.street"},
		{"friends[0].name", Path{segName("friends"), segIndex(0), segName("name")}, "friends[0].name"},
		{"meta(a.b).c", Path{segName("meta"), segKey("a.b"), segName("c")}, "meta(a.b).c"},
		{"[1][2]", Path{segIndex(1), segIndex(2)}, "[1][2]"},
		{"(key)", Path{segKey("key")}, "(key)"},
		{"grid[0](k)[12]", Path{segName("grid"), segIndex(0), segKey("k"), segIndex(12)}, "grid[0](k)[12]"},
		{"rows.[3]", Path{segName("rows"), segIndex(3)}, "rows[3]"},
		{"m()", Path{segName("m"), segKey("")}, "m()"},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ParsePath(tt.input)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.str, got.String())
		})
	}
}

func TestParsePath_Invalid(t *testing.T) {
	inputs := []string{
		"",
		".a",
		"a.",
		"a..b",
		"a[",
		"a[x]",
		"a[-1]",
		"a[ 1]",
		"a(k",
		"a]b",
		"a)b",
	}

	for _, in := range inputs {
		t.Run(in, func(t *testing.T) {
			_, err := ParsePath(in)
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrInvalidArgument)

			var pe *PathError
			require.True(t, errors.As(err, &pe))
			assert.Equal(t, in, pe.Path)
		})
	}
}

func TestSegment_String(t *testing.T) {
	assert.Equal(t, "x", segName("x").String())
	assert.Equal(t, "[4]", segIndex(4).String())
	assert.Equal(t, "(k)", segKey("k").String())
}
