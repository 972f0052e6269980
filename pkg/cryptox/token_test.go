package cryptox

import (
	"encoding/base64"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestGenerateToken(t *testing.T) {
	token, err := GenerateToken(ResetTokenSize)
	require.NoError(t, err)

	raw, err := base64.RawURLEncoding.DecodeString(token)
	require.NoError(t, err, "token must be URL-safe base64")
	require.Len(t, raw, ResetTokenSize)

	other, err := GenerateToken(ResetTokenSize)
	require.NoError(t, err)
	require.NotEqual(t, token, other)
}

func TestGenerateTokenRejectsBadSize(t *testing.T) {
	for _, size := range []int{0, -4} {
		token, err := GenerateToken(size)
		require.Error(t, err)
		require.Empty(t, token)
	}
}

func TestFingerprintToken(t *testing.T) {
	a := FingerprintToken("reset-a")
	require.Equal(t, a, FingerprintToken("reset-a"))
	require.NotEqual(t, a, FingerprintToken("reset-b"))
	require.Len(t, a, 43)
}
