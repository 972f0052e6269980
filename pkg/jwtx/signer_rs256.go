package jwtx

import (
	"crypto/rsa"
	"crypto/sha256"
	"crypto/x509"
	"encoding/base64"
	"encoding/pem"
	"errors"
	"fmt"

	"github.com/golang-jwt/jwt/v5"
)

// MinRSABits is the smallest modulus accepted for signing.
const MinRSABits = 2048

var ErrWeakKey = errors.New("jwtx: RSA key shorter than 2048 bits")

var _ Signer = (*RS256Signer)(nil)

// RS256Signer signs every token kind with one RSA private key.
type RS256Signer struct {
	kid string
	key *rsa.PrivateKey
}

func newRS256Signer(kid string, pemKey []byte) (*RS256Signer, error) {
	key, err := ParseRSAPrivateKeyPEM(pemKey)
	if err != nil {
		return nil, err
	}
	if key.N.BitLen() < MinRSABits {
		return nil, ErrWeakKey
	}
	if kid == "" {
		kid = Thumbprint(&key.PublicKey)
	}
	return &RS256Signer{kid: kid, key: key}, nil
}

// ParseRSAPrivateKeyPEM decodes a PKCS1 ("RSA PRIVATE KEY") or PKCS8
// ("PRIVATE KEY") block. openssl genrsa and genpkey disagree on which one
// they write.
func ParseRSAPrivateKeyPEM(pemKey []byte) (*rsa.PrivateKey, error) {
	block, _ := pem.Decode(pemKey)
	if block == nil {
		return nil, errors.New("jwtx: invalid PEM for RSA private key")
	}

	switch block.Type {
	case "RSA PRIVATE KEY":
		key, err := x509.ParsePKCS1PrivateKey(block.Bytes)
		if err != nil {
			return nil, fmt.Errorf("jwtx: parse PKCS1: %w", err)
		}
		return key, nil
	case "PRIVATE KEY":
		parsed, err := x509.ParsePKCS8PrivateKey(block.Bytes)
		if err != nil {
			return nil, fmt.Errorf("jwtx: parse PKCS8: %w", err)
		}
		key, ok := parsed.(*rsa.PrivateKey)
		if !ok {
			return nil, errors.New("jwtx: not an RSA private key")
		}
		return key, nil
	default:
		return nil, fmt.Errorf("jwtx: unsupported PEM type %q", block.Type)
	}
}

func (s *RS256Signer) KID() string { return s.kid }

func (s *RS256Signer) Sign(claims Claims) (string, error) {
	t := jwt.NewWithClaims(jwt.SigningMethodRS256, claims)
	t.Header["kid"] = s.kid
	return t.SignedString(s.key)
}

func (s *RS256Signer) PublicJWK() JWK {
	return NewRSAJWK(s.kid, "sig", jwt.SigningMethodRS256.Alg(), &s.key.PublicKey)
}

// Validate signs a probe and checks it against the public key.
func (s *RS256Signer) Validate() error {
	if s.key == nil {
		return errors.New("jwtx: nil RSA key")
	}

	probe := []byte("readiness")
	sig, err := jwt.SigningMethodRS256.Sign(string(probe), s.key)
	if err != nil {
		return fmt.Errorf("jwtx: probe sign: %w", err)
	}
	if err := jwt.SigningMethodRS256.Verify(string(probe), sig, &s.key.PublicKey); err != nil {
		return fmt.Errorf("jwtx: probe verify: %w", err)
	}
	return nil
}

// Thumbprint derives a short stable key id from the DER encoding of pub.
func Thumbprint(pub *rsa.PublicKey) string {
	der, err := x509.MarshalPKIXPublicKey(pub)
	if err != nil {
		return ""
	}
	sum := sha256.Sum256(der)
	return base64.RawURLEncoding.EncodeToString(sum[:12])
}
