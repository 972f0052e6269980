package cryptox_test

import (
	"encoding/base64"
	"testing"

	"github.com/conychips/auth/pkg/cryptox"
	"github.com/stretchr/testify/require"
)

const fingerprint = "3f1a9c0b7e2d4f6a8b1c3d5e7f9a0b2c4d6e8f0a1b3c5d7e9f1a2b4c6d8e0f2a"

func TestEncryptDecrypt(t *testing.T) {
	enc := cryptox.NewEncryptor(fingerprint)

	tests := []struct {
		name      string
		plaintext []byte
	}{
		{"short", []byte("caja-01")},
		{"empty", []byte{}},
		{"binary", []byte{0, 1, 2, 0xff, 0xfe}},
		{"long", make([]byte, 4096)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sealed, err := enc.Encrypt(tt.plaintext)
			require.NoError(t, err)

			opened, ok := enc.Decrypt(sealed)
			require.True(t, ok)
			require.Equal(t, tt.plaintext, opened)
		})
	}
}

func TestEncryptIsNotDeterministic(t *testing.T) {
	enc := cryptox.NewEncryptor(fingerprint)

	a, err := enc.Encrypt([]byte("same input"))
	require.NoError(t, err)
	b, err := enc.Encrypt([]byte("same input"))
	require.NoError(t, err)
	require.NotEqual(t, a, b)

	raw, err := base64.StdEncoding.DecodeString(a)
	require.NoError(t, err)
	require.Len(t, raw, cryptox.SaltSize+cryptox.NonceSize+len("same input")+16)
}

func TestDecryptWithOtherSecretFails(t *testing.T) {
	sealed, err := cryptox.NewEncryptor(fingerprint).Encrypt([]byte("secret"))
	require.NoError(t, err)

	out, ok := cryptox.NewEncryptor("another-device").Decrypt(sealed)
	require.False(t, ok)
	require.Nil(t, out)
}

func TestDecryptRejectsBadInput(t *testing.T) {
	enc := cryptox.NewEncryptor(fingerprint)

	sealed, err := enc.Encrypt([]byte("original-data"))
	require.NoError(t, err)
	raw, err := base64.StdEncoding.DecodeString(sealed)
	require.NoError(t, err)
	raw[len(raw)-1] ^= 0xff

	tests := []struct {
		name    string
		encoded string
	}{
		{"not base64", "%%%not-base64%%%"},
		{"truncated", base64.StdEncoding.EncodeToString([]byte("short"))},
		{"tampered", base64.StdEncoding.EncodeToString(raw)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, ok := enc.Decrypt(tt.encoded)
			require.False(t, ok)
			require.Nil(t, out)
		})
	}
}

func TestHash(t *testing.T) {
	enc := cryptox.NewEncryptor(fingerprint)
	require.Equal(t,
		"e3b0c44298fc1c149afbf4c8996fb92427ae41e4649b934ca495991b7852b855",
		enc.Hash(nil),
	)
	require.Equal(t, cryptox.Hash([]byte("abc")), enc.Hash([]byte("abc")))
}
