// Package jwtx signs and verifies the RS256 tokens of the auth service.
//
// Verification is strict: RS256 only, exp and jti required, issuer and
// audience pinned. Decode reads a token without any of that, for logging
// and for deriving a blacklist TTL. It returns Unverified, which cannot be
// passed where verified *Claims are expected.
package jwtx

import (
	"errors"
	"time"
)

// Signer turns claims into a compact JWT.
type Signer interface {
	KID() string
	Sign(Claims) (string, error)
	PublicJWK() JWK

	// Validate signs and verifies a probe token, for readiness checks.
	Validate() error
}

// NewSignerRS256 creates an RS256 signer from PEM bytes. An empty kid is
// replaced by the thumbprint of the public key.
func NewSignerRS256(kid string, pemKey []byte) (Signer, error) {
	return newRS256Signer(kid, pemKey)
}

// Verifier checks a token and returns its claims.
type Verifier interface {
	// Verify runs every check, time claims included.
	Verify(token string) (*Claims, error)

	// VerifySignature checks the signature and the algorithm only, so an
	// expired token can still be revoked.
	VerifySignature(token string) (*Claims, error)
}

// VerifyOptions pins what a verifier accepts. Empty Issuer or Audience
// disables that check.
type VerifyOptions struct {
	Issuer   string
	Audience []string

	// Leeway absorbs clock skew on exp, nbf and iat.
	Leeway time.Duration

	// Now defaults to time.Now.
	Now func() time.Time
}

func (o VerifyOptions) now() time.Time {
	if o.Now != nil {
		return o.Now().UTC()
	}
	return time.Now().UTC()
}

var (
	ErrMalformed   = errors.New("jwtx: malformed token")
	ErrAlgMismatch = errors.New("jwtx: algorithm mismatch")
	ErrInvalidSig  = errors.New("jwtx: invalid signature")

	ErrIssuer       = errors.New("jwtx: issuer mismatch")
	ErrAudience     = errors.New("jwtx: audience mismatch")
	ErrExpired      = errors.New("jwtx: token expired")
	ErrNotYetValid  = errors.New("jwtx: token not yet valid")
	ErrInvalidClaim = errors.New("jwtx: invalid claims")
)
