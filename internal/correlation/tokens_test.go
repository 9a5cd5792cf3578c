package correlation

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHandleTokens(t *testing.T) {
	tok, err := HandleTokens{}.Issue("+5511999990000")
	require.NoError(t, err)
	assert.Equal(t, "+5511999990000", tok)
	assert.False(t, HandleTokens{}.Opaque())

	_, err = HandleTokens{}.Issue("")
	assert.Error(t, err)
}

func TestOpaqueTokens(t *testing.T) {
	a, err := OpaqueTokens{}.Issue("+5511999990000")
	require.NoError(t, err)
	b, err := OpaqueTokens{}.Issue("+5511999990000")
	require.NoError(t, err)

	assert.NotEqual(t, a, b)
	assert.NotContains(t, a, "5511999990000")
	_, err = uuid.Parse(a)
	assert.NoError(t, err)
	assert.True(t, OpaqueTokens{}.Opaque())
}

func TestIssuerFor(t *testing.T) {
	iss, err := IssuerFor("opaque")
	require.NoError(t, err)
	assert.True(t, iss.Opaque())

	iss, err = IssuerFor("")
	require.NoError(t, err)
	assert.False(t, iss.Opaque())

	_, err = IssuerFor("other")
	assert.Error(t, err)
}
