package auth

import (
	"encoding/base64"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRandomCode_UniqueAndSized(t *testing.T) {
	const n = 10000
	want := base64.RawURLEncoding.EncodedLen(DesktopCodeBytes)

	seen := make(map[string]struct{}, n)
	for i := 0; i < n; i++ {
		code, err := RandomCode()
		require.NoError(t, err)
		require.Len(t, code, want)

		_, dup := seen[code]
		require.False(t, dup, "duplicate code after %d draws", i)
		seen[code] = struct{}{}
	}
}

func TestRandomCode_URLSafe(t *testing.T) {
	code, err := RandomCode()
	require.NoError(t, err)

	assert.NotContains(t, code, "+")
	assert.NotContains(t, code, "/")
	assert.NotContains(t, code, "=")

	raw, err := base64.RawURLEncoding.DecodeString(code)
	require.NoError(t, err)
	assert.Len(t, raw, DesktopCodeBytes)
}

func TestHashCode(t *testing.T) {
	a := HashCode("code-a")
	assert.Equal(t, a, HashCode("code-a"))
	assert.NotEqual(t, a, HashCode("code-b"))
	assert.Len(t, a, 64)
	assert.NotEqual(t, "code-a", a)
}
