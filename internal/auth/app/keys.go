package app

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/conychips/auth/pkg/cryptox"
)

// LoadKeyPair reads the signing key pair. A missing or unreadable file is
// fatal: the service never generates keys on its own, so tokens survive
// restarts and every replica signs with the same key.
//
// When secret is set the private key file holds the Encryptor output for
// the PEM rather than the PEM itself.
func LoadKeyPair(cfg Config, logger *slog.Logger) (privatePEM, publicPEM []byte, err error) {
	privatePEM, err = os.ReadFile(cfg.PrivateKeyPath)
	if err != nil {
		return nil, nil, fmt.Errorf("read private key: %w", err)
	}
	publicPEM, err = os.ReadFile(cfg.PublicKeyPath)
	if err != nil {
		return nil, nil, fmt.Errorf("read public key: %w", err)
	}

	if cfg.PrivateKeySecret != "" {
		plain, ok := cryptox.NewEncryptor(cfg.PrivateKeySecret).Decrypt(string(privatePEM))
		if !ok {
			return nil, nil, errors.New("decrypt private key: wrong secret or corrupt file")
		}
		privatePEM = plain
	}

	logger.Info("signing keys loaded",
		"private_key", cfg.PrivateKeyPath,
		"public_key", cfg.PublicKeyPath,
		"encrypted", cfg.PrivateKeySecret != "",
	)
	return privatePEM, publicPEM, nil
}

// WriteKeyPair generates a fresh RSA pair and writes it where cfg expects
// it, encrypting the private key when a secret is configured. Existing
// files are never overwritten.
func WriteKeyPair(cfg Config, bits int) error {
	privatePEM, publicPEM, err := cryptox.GenerateRSAKeyPair(bits)
	if err != nil {
		return err
	}

	if cfg.PrivateKeySecret != "" {
		sealed, err := cryptox.NewEncryptor(cfg.PrivateKeySecret).Encrypt(privatePEM)
		if err != nil {
			return fmt.Errorf("encrypt private key: %w", err)
		}
		privatePEM = []byte(sealed)
	}

	if err := writeNew(cfg.PrivateKeyPath, privatePEM, 0o600); err != nil {
		return fmt.Errorf("write private key: %w", err)
	}
	if err := writeNew(cfg.PublicKeyPath, publicPEM, 0o644); err != nil {
		return fmt.Errorf("write public key: %w", err)
	}
	return nil
}

func writeNew(path string, data []byte, perm os.FileMode) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, perm)
	if err != nil {
		return err
	}
	if _, err := f.Write(data); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}
