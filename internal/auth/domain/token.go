package domain

import "time"

// TokenPair is what login and refresh hand back to the client.
type TokenPair struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	TokenType    string `json:"token_type"`
	ExpiresIn    int64  `json:"expires_in"` // seconds until the access token expires
}

// Session is the persisted record of one login on one device. It is keyed by
// the jti of the refresh token that currently represents it; refresh closes
// the row and opens a new one.
type Session struct {
	ID         string
	UserID     string
	RefreshJTI string
	AccessJTI  string
	AppTokenID string // jti of the app token the login came from, may be empty
	DeviceID   string
	ExpiresAt  time.Time
	ClosedAt   *time.Time
	CreatedAt  time.Time
}

// Active reports whether the session is open and unexpired at now.
func (s Session) Active(now time.Time) bool {
	return s.ClosedAt == nil && now.Before(s.ExpiresAt)
}

// CachedSession is the metadata kept in Redis for a live access token.
type CachedSession struct {
	SessionID  string    `json:"session_id"`
	UserID     string    `json:"usuario_id"`
	Email      string    `json:"email"`
	AccessJTI  string    `json:"jti"`
	RefreshJTI string    `json:"refresh_jti"`
	AppTokenID string    `json:"app_token_id,omitempty"`
	DeviceID   string    `json:"dispositivo_id"`
	Roles      []string  `json:"roles"`
	CreatedAt  time.Time `json:"created_at"`
}
