package crypto

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSealer_RoundTrip(t *testing.T) {
	s, err := NewSealer("top-secret")
	require.NoError(t, err)

	sealed, err := s.Seal("EAAB-token")
	require.NoError(t, err)
	assert.NotEqual(t, "EAAB-token", sealed)
	assert.Contains(t, sealed, sealedPrefix)

	plain, err := s.Open(sealed)
	require.NoError(t, err)
	assert.Equal(t, "EAAB-token", plain)
}

func TestSealer_Disabled(t *testing.T) {
	s, err := NewSealer("")
	require.NoError(t, err)
	assert.False(t, s.Enabled())

	v, err := s.Seal("plain")
	require.NoError(t, err)
	assert.Equal(t, "plain", v)

	sealed, _ := mustSealer(t, "k").Seal("x")
	_, err = s.Open(sealed)
	assert.Error(t, err)
}

func TestSealer_LegacyPlainValue(t *testing.T) {
	v, err := mustSealer(t, "k").Open("not-sealed")
	require.NoError(t, err)
	assert.Equal(t, "not-sealed", v)
}

func TestSealer_WrongKey(t *testing.T) {
	sealed, err := mustSealer(t, "a").Seal("secret")
	require.NoError(t, err)
	_, err = mustSealer(t, "b").Open(sealed)
	assert.Error(t, err)
}

func TestSign(t *testing.T) {
	// echo -n 'hello' | openssl dgst -sha256 -hmac key
	assert.Equal(t, "9307b3b915efb5171ff14d8cb55fbcc798c6c0ef1456d66ded1a6aa723a58b7b", Sign([]byte("hello"), "key"))
}

func mustSealer(t *testing.T, key string) *Sealer {
	t.Helper()
	s, err := NewSealer(key)
	require.NoError(t, err)
	return s
}
