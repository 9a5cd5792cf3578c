package signing

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSign(t *testing.T) {
	secret := []byte("shared-secret")
	body := []byte(`{"verification":{"vendorData":"+5511999990000"}}`)

	t.Run("matches reference HMAC-SHA256 hex", func(t *testing.T) {
		mac := hmac.New(sha256.New, secret)
		mac.Write(body)
		want := hex.EncodeToString(mac.Sum(nil))

		got, err := Sign(body, secret)
		require.NoError(t, err)
		assert.Equal(t, want, got)
		assert.Len(t, got, 64)
	})

	t.Run("is deterministic", func(t *testing.T) {
		a, err := Sign(body, secret)
		require.NoError(t, err)
		b, err := Sign(body, secret)
		require.NoError(t, err)
		assert.Equal(t, a, b)
	})

	t.Run("changes with every byte of the body", func(t *testing.T) {
		base, _ := Sign(body, secret)
		for i := range body {
			mutated := append([]byte(nil), body...)
			mutated[i] ^= 0x01
			got, _ := Sign(mutated, secret)
			assert.NotEqual(t, base, got, "flipping byte %d should change signature", i)
		}
	})

	t.Run("whitespace is significant", func(t *testing.T) {
		compact, _ := Sign([]byte(`{"a":1}`), secret)
		spaced, _ := Sign([]byte(`{"a": 1}`), secret)
		assert.NotEqual(t, compact, spaced)
	})

	t.Run("changes with the secret", func(t *testing.T) {
		a, _ := Sign(body, []byte("secret-one"))
		b, _ := Sign(body, []byte("secret-two"))
		assert.NotEqual(t, a, b)
	})

	t.Run("empty secret is a configuration error", func(t *testing.T) {
		_, err := Sign(body, nil)
		assert.ErrorIs(t, err, ErrEmptySecret)
	})
}

func TestVerify(t *testing.T) {
	secret := []byte("shared-secret")
	body := []byte(`{"status":"approved"}`)
	sig, err := Sign(body, secret)
	require.NoError(t, err)

	t.Run("accepts valid signature", func(t *testing.T) {
		assert.NoError(t, Verify(body, secret, sig))
	})

	t.Run("accepts upper case and prefixed values", func(t *testing.T) {
		assert.NoError(t, Verify(body, secret, strings.ToUpper(sig)))
		assert.NoError(t, Verify(body, secret, " sha256="+sig+" "))
	})

	t.Run("prefix is case-insensitive", func(t *testing.T) {
		assert.NoError(t, Verify(body, secret, "SHA256="+sig))
		assert.NoError(t, Verify(body, secret, "Sha256="+strings.ToUpper(sig)))
	})

	t.Run("rejects tampered body", func(t *testing.T) {
		err := Verify([]byte(`{"status":"declined"}`), secret, sig)
		assert.ErrorIs(t, err, ErrSignatureMismatch)
	})

	t.Run("rejects wrong secret", func(t *testing.T) {
		err := Verify(body, []byte("other"), sig)
		assert.ErrorIs(t, err, ErrSignatureMismatch)
	})

	t.Run("rejects missing and malformed signatures", func(t *testing.T) {
		assert.ErrorIs(t, Verify(body, secret, ""), ErrMissingSignature)
		assert.ErrorIs(t, Verify(body, secret, "not-hex"), ErrMalformedSignature)
	})

	t.Run("requires a secret", func(t *testing.T) {
		assert.ErrorIs(t, Verify(body, nil, sig), ErrEmptySecret)
	})
}

func TestSigner(t *testing.T) {
	s := NewSigner("k")
	assert.True(t, s.Configured())
	assert.False(t, NewSigner("").Configured())

	sig, err := s.Sign([]byte("payload"))
	require.NoError(t, err)
	assert.NoError(t, s.Verify([]byte("payload"), sig))
}
