package jwtx

import (
	"slices"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// Default token lifetimes. Each can be overridden through configuration.
const (
	// DefaultAccessTokenTTL keeps a leaked access token useful for a short window only.
	DefaultAccessTokenTTL = 15 * time.Minute

	// DefaultRefreshTokenTTL is the lifetime of a refresh token before a full login is needed.
	DefaultRefreshTokenTTL = 7 * 24 * time.Hour

	// DefaultAppTokenTTL is the lifetime of a device registration.
	DefaultAppTokenTTL = 30 * 24 * time.Hour
)

// Kind is the value of the "tipo" claim.
type Kind string

const (
	KindApp     Kind = "app"
	KindAccess  Kind = "access"
	KindRefresh Kind = "refresh"
)

// Valid reports whether k is one of the known token kinds.
func (k Kind) Valid() bool {
	switch k {
	case KindApp, KindAccess, KindRefresh:
		return true
	default:
		return false
	}
}

// Claims is the flat payload shared by the three token kinds. Kind specific
// fields are omitted from the wire when empty.
type Claims struct {
	jwt.RegisteredClaims

	Kind Kind `json:"tipo"`

	/* app tokens */

	// DeviceID is the device fingerprint the token is bound to.
	DeviceID string         `json:"dispositivo_id,omitempty"`
	Metadata map[string]any `json:"metadata,omitempty"`

	/* access and refresh tokens */

	UserID      string   `json:"usuario_id,omitempty"`
	Email       string   `json:"email,omitempty"`
	Roles       []string `json:"roles,omitempty"`
	Permissions []string `json:"permisos,omitempty"`

	// AppTokenID is the jti of the app token the session was opened from.
	AppTokenID string `json:"app_token_id,omitempty"`
}

// NewClaims fills the registered claims for a token of the given kind
// issued at now and valid for ttl.
func NewClaims(kind Kind, issuer string, audience []string, ttl time.Duration, now time.Time) Claims {
	now = now.UTC()
	return Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    issuer,
			Audience:  jwt.ClaimStrings(audience),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			ID:        NewJTI(),
		},
		Kind: kind,
	}
}

// NewJTI returns a fresh random token identifier.
func NewJTI() string {
	return uuid.NewString()
}

// ValidateIssuer checks if the issuer matches expected value.
func (c *Claims) ValidateIssuer(expected string) error {
	if expected == "" {
		return nil
	}
	if c.Issuer != expected {
		return ErrIssuer
	}
	return nil
}

// ValidateAudience checks if at least one expected audience is present.
func (c *Claims) ValidateAudience(expected []string) error {
	if len(expected) == 0 {
		return nil
	}
	for _, want := range expected {
		if slices.Contains(c.Audience, want) {
			return nil
		}
	}
	return ErrAudience
}

// ValidateRequired ensures every claim the service relies on is present.
func (c *Claims) ValidateRequired() error {
	switch {
	case c.ExpiresAt == nil,
		c.IssuedAt == nil,
		c.NotBefore == nil,
		c.Issuer == "",
		len(c.Audience) == 0,
		c.ID == "",
		!c.Kind.Valid():
		return ErrInvalidClaim
	}
	return nil
}

// ValidateExpiryAt ensures the token is inside its validity window at now.
func (c *Claims) ValidateExpiryAt(now time.Time, leeway time.Duration) error {
	if c.ExpiresAt != nil && !now.Before(c.ExpiresAt.Add(leeway)) {
		return ErrExpired
	}
	if c.NotBefore != nil && now.Before(c.NotBefore.Add(-leeway)) {
		return ErrNotYetValid
	}
	return nil
}

// Remaining returns how long the token has left at now. Zero when expired
// or when the token carries no expiry.
func (c *Claims) Remaining(now time.Time) time.Duration {
	if c.ExpiresAt == nil {
		return 0
	}
	d := c.ExpiresAt.Sub(now)
	if d < 0 {
		return 0
	}
	return d
}
