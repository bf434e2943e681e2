package facet

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zoobzio/sentinel"
)

func newPersonProcessor(t *testing.T, opts ...WalkOption) *Processor[Person] {
	t.Helper()
	proc, err := NewProcessor[Person](&testCodec{}, opts...)
	require.NoError(t, err)
	return proc
}

func TestNewProcessor(t *testing.T) {
	proc := newPersonProcessor(t)
	assert.Equal(t, "application/json", proc.ContentType())
	assert.False(t, proc.wrapped, "struct processors do not wrap the root")
}

func TestNewProcessor_ScansWithSentinel(t *testing.T) {
	_, err := NewProcessor[Invoice](&testCodec{})
	require.NoError(t, err)

	meta, ok := sentinel.Lookup("github.com/zoobzio/facet.Invoice")
	require.True(t, ok)
	assert.Equal(t, "Invoice", meta.TypeName)

	_, err = NewProcessor[[]int](&testCodec{})
	require.NoError(t, err, "non-struct roots skip the scan")
}

func TestNewProcessor_Errors(t *testing.T) {
	_, err := NewProcessor[Person](nil)
	assert.ErrorIs(t, err, ErrInvalidArgument, "nil codec")

	_, err = NewProcessor[BadOption](&testCodec{})
	assert.ErrorIs(t, err, ErrInvalidArgument, "bad tag")

	_, err = NewProcessor[Person](&testCodec{}, WithMaxNodes(-1))
	assert.ErrorIs(t, err, ErrInvalidArgument, "bad option")
}

func TestProcessor_Encode(t *testing.T) {
	proc := newPersonProcessor(t)

	data, err := proc.Encode(context.Background(), samplePerson())
	require.NoError(t, err)

	out := string(data)
	assert.True(t, strings.HasPrefix(out, `{"name":"Ada","age":36,"tags":["math","engines"]`), "property order: %s", out)
	assert.NotContains(t, out, "email")
	assert.NotContains(t, out, "cache")
	assert.Contains(t, out, `"nickname":"enchantress"`)
}

func TestProcessor_RoundTrip(t *testing.T) {
	proc := newPersonProcessor(t)
	ctx := context.Background()
	original := samplePerson()

	data, err := proc.Encode(ctx, original)
	require.NoError(t, err)
	got, err := proc.Decode(ctx, data)
	require.NoError(t, err)

	assert.Equal(t, original.Name, got.Name)
	assert.Equal(t, original.Age, got.Age)
	assert.Equal(t, "enchantress", got.Nickname())
	require.NotNil(t, got.Home)
	assert.Equal(t, "London", got.Home.City)
	require.Len(t, got.Friends, 1)
	assert.Equal(t, "Charles", got.Friends[0].Name)
	assert.Equal(t, 99, got.Scores["math"])
	assert.True(t, got.Joined.Equal(original.Joined), "Joined = %v", got.Joined)
	assert.Equal(t, "victorian", got.Meta["era"])
	assert.Equal(t, int64(1), got.Meta["a.b"])
}

func TestProcessor_Nil(t *testing.T) {
	proc := newPersonProcessor(t)
	ctx := context.Background()

	data, err := proc.Encode(ctx, nil)
	require.NoError(t, err)
	assert.Equal(t, "null", string(data))

	got, err := proc.Decode(ctx, data)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Empty(t, got.Name)
}

func TestProcessor_ScalarRoot(t *testing.T) {
	proc, err := NewProcessor[int](&testCodec{})
	require.NoError(t, err)
	ctx := context.Background()

	n := 5
	data, err := proc.Encode(ctx, &n)
	require.NoError(t, err)
	assert.Equal(t, `{"value":5}`, string(data))

	got, err := proc.Decode(ctx, data)
	require.NoError(t, err)
	assert.Equal(t, 5, *got)
}

func TestProcessor_MapRoot(t *testing.T) {
	proc, err := NewProcessor[map[string]int](&testCodec{})
	require.NoError(t, err)
	ctx := context.Background()

	m := map[string]int{"b": 2, "a": 1}
	data, err := proc.Encode(ctx, &m)
	require.NoError(t, err)
	assert.Equal(t, `{"a":1,"b":2}`, string(data))

	got, err := proc.Decode(ctx, data)
	require.NoError(t, err)
	assert.Equal(t, 2, (*got)["b"])
}

func TestProcessor_TimeRoot(t *testing.T) {
	proc, err := NewProcessor[time.Time](&testCodec{})
	require.NoError(t, err)
	assert.True(t, proc.wrapped, "time processors wrap the root")
}

func TestProcessor_Options(t *testing.T) {
	proc := newPersonProcessor(t, WithMaxDepth(0), WithExclude("tags"))

	snap, err := proc.Snapshot(context.Background(), samplePerson())
	require.NoError(t, err)
	assert.False(t, snap.Root.Has("tags"), "excluded property was walked")
	home, _ := snap.Root.Get("home")
	assert.Nil(t, home, "past the depth limit")
}

func TestProcessor_DecodeErrors(t *testing.T) {
	proc := newPersonProcessor(t)
	ctx := context.Background()

	_, err := proc.Decode(ctx, []byte(`{"name":`))
	assert.Error(t, err, "truncated input")

	_, err = proc.Decode(ctx, []byte(`{"age":"old"}`))
	assert.ErrorIs(t, err, ErrConversion)
}

func TestProcessor_Concurrent(t *testing.T) {
	proc := newPersonProcessor(t)
	ctx := context.Background()

	done := make(chan error, 16)
	for i := 0; i < 16; i++ {
		go func() {
			data, err := proc.Encode(ctx, samplePerson())
			if err == nil {
				_, err = proc.Decode(ctx, data)
			}
			done <- err
		}()
	}
	for i := 0; i < 16; i++ {
		assert.NoError(t, <-done)
	}
}
