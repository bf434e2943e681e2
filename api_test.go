package facet_test

import (
	"context"
	"reflect"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zoobzio/facet"
	"github.com/zoobzio/facet/json"
)

type account struct {
	ID      string `facet:"id,readonly"`
	Owner   string
	Balance float64
	Limits  map[string]int
}

func TestUse_JSON(t *testing.T) {
	defer facet.Reset()

	proc, err := facet.Use[account](json.New())
	require.NoError(t, err)
	again, err := facet.Use[account](json.New())
	require.NoError(t, err)
	assert.Same(t, proc, again, "Use returns the cached processor")

	ctx := context.Background()
	data, err := proc.Encode(ctx, &account{ID: "a1", Owner: "Ada", Balance: 12.5, Limits: map[string]int{"daily": 100}})
	require.NoError(t, err)
	assert.Equal(t, `{"id":"a1","owner":"Ada","balance":12.5,"limits":{"daily":100}}`, string(data))

	got, err := proc.Decode(ctx, data)
	require.NoError(t, err)
	assert.Empty(t, got.ID, "read-only id was written")
	assert.Equal(t, "Ada", got.Owner)
	assert.Equal(t, 12.5, got.Balance)
	assert.Equal(t, 100, got.Limits["daily"])
}

func TestPublicPaths(t *testing.T) {
	acct := &account{}

	require.NoError(t, facet.Set(acct, "limits(weekly)", "500", false))
	v, err := facet.Get(acct, "limits.weekly")
	require.NoError(t, err)
	assert.Equal(t, 500, v)

	err = facet.Set(acct, "id", "x", false)
	assert.ErrorIs(t, err, facet.ErrAccessDenied)

	var pe *facet.PathError
	require.ErrorAs(t, err, &pe)
	assert.Equal(t, "id", pe.Segment)
}

func TestPublicConvert(t *testing.T) {
	n, err := facet.ConvertTo[int](nil, "42")
	require.NoError(t, err)
	assert.Equal(t, 42, n)

	out, err := facet.Convert("a,b", reflect.TypeFor[[]string]())
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, out)
}

func TestJSONCodec_GenericTree(t *testing.T) {
	var tree any
	require.NoError(t, json.New().Unmarshal([]byte(`{"b":1,"a":{"y":2,"x":3}}`), &tree))

	obj, ok := tree.(*facet.Object)
	require.True(t, ok, "tree is %T", tree)
	assert.Equal(t, []string{"b", "a"}, obj.Keys())

	paths, err := facet.Paths(tree)
	require.NoError(t, err)
	assert.Equal(t, []string{"b", "a.y", "a.x"}, paths)
}
