package facet

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSnapshot_Get(t *testing.T) {
	snap := walk(t, samplePerson())

	town, err := snap.Get("home.town")
	require.NoError(t, err)
	assert.Equal(t, "London", town)

	name, err := snap.Get("friends[0].name")
	require.NoError(t, err)
	assert.Equal(t, "Charles", name)

	_, err = snap.Get("friends[3]")
	assert.ErrorIs(t, err, ErrInvalidArgument)
}

func TestSnapshot_MarshalJSON(t *testing.T) {
	snap := walk(t, Address{Street: "Main", City: "X"})

	data, err := snap.MarshalJSON()
	require.NoError(t, err)
	assert.Equal(t, `{"street":"Main","town":"X","zip":""}`, string(data))
}

func TestSnapshot_Fingerprint(t *testing.T) {
	a, err := walk(t, samplePerson()).Fingerprint()
	require.NoError(t, err)
	b, err := walk(t, samplePerson()).Fingerprint()
	require.NoError(t, err)
	assert.Equal(t, a, b)
	assert.Len(t, a, 64)

	other := samplePerson()
	other.Age++
	c, err := walk(t, other).Fingerprint()
	require.NoError(t, err)
	assert.NotEqual(t, a, c)
}
