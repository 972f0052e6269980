package jwtx

import (
	"crypto/rsa"
	"crypto/x509"
	"encoding/pem"
	"errors"
	"fmt"

	"github.com/golang-jwt/jwt/v5"
)

var _ Verifier = (*RS256Verifier)(nil)

// RS256Verifier validates JWTs signed with a single RSA key pair.
type RS256Verifier struct {
	pub  *rsa.PublicKey
	opts VerifyOptions
}

// NewVerifierRS256 creates a verifier for the given public key.
func NewVerifierRS256(pub *rsa.PublicKey, opts VerifyOptions) *RS256Verifier {
	return &RS256Verifier{pub: pub, opts: opts}
}

// NewVerifierRS256FromPEM parses a PEM public key (PKIX or PKCS1) and
// returns a verifier for it.
func NewVerifierRS256FromPEM(pemKey []byte, opts VerifyOptions) (*RS256Verifier, error) {
	pub, err := ParseRSAPublicKeyPEM(pemKey)
	if err != nil {
		return nil, err
	}
	return NewVerifierRS256(pub, opts), nil
}

// ParseRSAPublicKeyPEM decodes an RSA public key from PEM bytes.
func ParseRSAPublicKeyPEM(pemKey []byte) (*rsa.PublicKey, error) {
	block, _ := pem.Decode(pemKey)
	if block == nil {
		return nil, errors.New("jwtx: invalid PEM for RSA public key")
	}

	switch block.Type {
	case "PUBLIC KEY":
		pk, err := x509.ParsePKIXPublicKey(block.Bytes)
		if err != nil {
			return nil, fmt.Errorf("jwtx: parse PKIX: %w", err)
		}
		rsaPub, ok := pk.(*rsa.PublicKey)
		if !ok {
			return nil, errors.New("jwtx: not RSA public key")
		}
		return rsaPub, nil
	case "RSA PUBLIC KEY":
		pk, err := x509.ParsePKCS1PublicKey(block.Bytes)
		if err != nil {
			return nil, fmt.Errorf("jwtx: parse PKCS1: %w", err)
		}
		return pk, nil
	default:
		return nil, fmt.Errorf("jwtx: unsupported PEM type %q", block.Type)
	}
}

// PublicKey returns the key used for verification.
func (v *RS256Verifier) PublicKey() *rsa.PublicKey { return v.pub }

// Verify checks signature, time claims, required claims, issuer and
// audience, in that order.
func (v *RS256Verifier) Verify(tokenStr string) (*Claims, error) {
	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodRS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithIssuedAt(),
		jwt.WithLeeway(v.opts.Leeway),
		jwt.WithTimeFunc(v.opts.now),
	)

	claims := &Claims{}
	token, err := parser.ParseWithClaims(tokenStr, claims, v.keyFunc)
	if err != nil {
		return nil, mapParseError(err)
	}
	if !token.Valid {
		return nil, ErrInvalidClaim
	}

	if err := claims.ValidateRequired(); err != nil {
		return nil, err
	}
	if err := claims.ValidateIssuer(v.opts.Issuer); err != nil {
		return nil, err
	}
	if err := claims.ValidateAudience(v.opts.Audience); err != nil {
		return nil, err
	}

	return claims, nil
}

// VerifySignature checks only the signature and algorithm. Time based
// claims are ignored, so the result must never be used to authorize a
// request. It exists for revocation of tokens that may already be expired.
func (v *RS256Verifier) VerifySignature(tokenStr string) (*Claims, error) {
	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodRS256.Alg()}),
		jwt.WithoutClaimsValidation(),
	)

	claims := &Claims{}
	if _, err := parser.ParseWithClaims(tokenStr, claims, v.keyFunc); err != nil {
		return nil, mapParseError(err)
	}
	return claims, nil
}

func (v *RS256Verifier) keyFunc(t *jwt.Token) (any, error) {
	if v.pub == nil {
		return nil, errors.New("jwtx: verifier has no public key")
	}
	return v.pub, nil
}

func mapParseError(err error) error {
	switch {
	case errors.Is(err, jwt.ErrTokenMalformed):
		return fmt.Errorf("%w: %w", ErrMalformed, err)
	case errors.Is(err, jwt.ErrTokenSignatureInvalid):
		return fmt.Errorf("%w: %w", ErrInvalidSig, err)
	case errors.Is(err, jwt.ErrTokenUnverifiable):
		return fmt.Errorf("%w: %w", ErrAlgMismatch, err)
	case errors.Is(err, jwt.ErrTokenExpired):
		return ErrExpired
	case errors.Is(err, jwt.ErrTokenNotValidYet), errors.Is(err, jwt.ErrTokenUsedBeforeIssued):
		return ErrNotYetValid
	case errors.Is(err, jwt.ErrTokenRequiredClaimMissing):
		return ErrInvalidClaim
	default:
		return fmt.Errorf("jwtx: parse or verify: %w", err)
	}
}
