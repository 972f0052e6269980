package jwtx

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Unverified holds claims decoded WITHOUT checking the signature. It is a
// separate type on purpose: nothing that makes an authorization decision
// accepts it. Use it for logging and TTL bookkeeping only.
type Unverified struct {
	c Claims
}

// Decode parses the token payload without verifying anything.
func Decode(tokenStr string) (Unverified, error) {
	var c Claims
	if _, _, err := jwt.NewParser().ParseUnverified(tokenStr, &c); err != nil {
		return Unverified{}, ErrMalformed
	}
	return Unverified{c: c}, nil
}

func (u Unverified) UserID() string { return u.c.UserID }
func (u Unverified) JTI() string    { return u.c.ID }
func (u Unverified) Kind() Kind     { return u.c.Kind }

// ExpiresAt returns the exp claim, or the zero time if absent.
func (u Unverified) ExpiresAt() time.Time {
	if u.c.ExpiresAt == nil {
		return time.Time{}
	}
	return u.c.ExpiresAt.Time
}

// Remaining returns the time left before exp at now.
func (u Unverified) Remaining(now time.Time) time.Duration {
	return u.c.Remaining(now)
}
