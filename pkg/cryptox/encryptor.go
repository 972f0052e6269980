package cryptox

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"io"

	"golang.org/x/crypto/pbkdf2"
)

// Packet layout and key derivation parameters for Encryptor.
const (
	SaltSize         = 32
	NonceSize        = 12
	KeySize          = 32
	PBKDF2Iterations = 100_000
)

// Encryptor protects secrets at rest with a key derived from a password
// (usually the device fingerprint). Output format is
// base64(salt || nonce || ciphertext+tag). Every call draws a fresh salt
// and nonce, so encrypting the same input twice gives different output.
type Encryptor struct {
	secret []byte
}

// NewEncryptor creates an Encryptor keyed by secret.
func NewEncryptor(secret string) *Encryptor {
	return &Encryptor{secret: []byte(secret)}
}

// Encrypt seals plaintext with AES-256-GCM under a PBKDF2-derived key.
func (e *Encryptor) Encrypt(plaintext []byte) (string, error) {
	buf := make([]byte, SaltSize+NonceSize)
	if _, err := io.ReadFull(rand.Reader, buf); err != nil {
		return "", fmt.Errorf("cryptox: read random: %w", err)
	}
	salt, nonce := buf[:SaltSize], buf[SaltSize:]

	gcm, err := e.aead(salt)
	if err != nil {
		return "", err
	}

	// Seal appends ciphertext and tag after salt||nonce.
	packet := gcm.Seal(buf, nonce, plaintext, nil)
	return base64.StdEncoding.EncodeToString(packet), nil
}

// Decrypt reverses Encrypt. It reports false for malformed base64, a
// truncated packet, or an authentication failure (tampering or wrong key).
func (e *Encryptor) Decrypt(encoded string) ([]byte, bool) {
	packet, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return nil, false
	}
	if len(packet) < SaltSize+NonceSize+16 {
		return nil, false
	}

	salt := packet[:SaltSize]
	nonce := packet[SaltSize : SaltSize+NonceSize]
	ciphertext := packet[SaltSize+NonceSize:]

	gcm, err := e.aead(salt)
	if err != nil {
		return nil, false
	}

	plaintext, err := gcm.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return nil, false
	}
	if plaintext == nil {
		plaintext = []byte{}
	}
	return plaintext, true
}

// Hash is a one-way SHA-256 hex digest, unrelated to Encrypt/Decrypt.
func (e *Encryptor) Hash(data []byte) string {
	return Hash(data)
}

// Hash returns the SHA-256 hex digest of data.
func Hash(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

func (e *Encryptor) aead(salt []byte) (cipher.AEAD, error) {
	key := pbkdf2.Key(e.secret, salt, PBKDF2Iterations, KeySize, sha256.New)

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("cryptox: create cipher: %w", err)
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("cryptox: create GCM: %w", err)
	}
	return gcm, nil
}
