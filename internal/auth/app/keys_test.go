package app

import (
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func keyConfig(t *testing.T, secret string) Config {
	dir := t.TempDir()
	return Config{
		PrivateKeyPath:   filepath.Join(dir, "keys", "private.pem"),
		PublicKeyPath:    filepath.Join(dir, "keys", "public.pem"),
		PrivateKeySecret: secret,
	}
}

func TestKeyPairRoundTrip(t *testing.T) {
	for name, secret := range map[string]string{"plain": "", "encrypted": "correct horse"} {
		t.Run(name, func(t *testing.T) {
			cfg := keyConfig(t, secret)
			require.NoError(t, WriteKeyPair(cfg, 2048))

			onDisk, err := os.ReadFile(cfg.PrivateKeyPath)
			require.NoError(t, err)
			require.Equal(t, secret == "", string(onDisk[:10]) == "-----BEGIN")

			priv, pub, err := LoadKeyPair(cfg, quietLogger())
			require.NoError(t, err)
			require.Contains(t, string(priv), "PRIVATE KEY")
			require.Contains(t, string(pub), "PUBLIC KEY")

			// Never overwrites.
			require.Error(t, WriteKeyPair(cfg, 2048))
		})
	}
}

func TestLoadKeyPairErrors(t *testing.T) {
	cfg := keyConfig(t, "")
	_, _, err := LoadKeyPair(cfg, quietLogger())
	require.Error(t, err)

	enc := keyConfig(t, "right")
	require.NoError(t, WriteKeyPair(enc, 2048))
	enc.PrivateKeySecret = "wrong"
	_, _, err = LoadKeyPair(enc, quietLogger())
	require.ErrorContains(t, err, "decrypt private key")
}
