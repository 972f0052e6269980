package authsdk

import "time"

type RegisterRequest struct {
	Email    string `json:"email"`
	Username string `json:"username"`
	Password string `json:"password"`
}

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	AppToken string `json:"app_token,omitempty"`
}

type RegisterDeviceRequest struct {
	DeviceID string         `json:"dispositivo_id,omitempty"`
	Metadata map[string]any `json:"metadata,omitempty"`
}

// User is the account view returned by the service.
type User struct {
	ID          string     `json:"id"`
	Email       string     `json:"email"`
	Username    string     `json:"username"`
	Active      bool       `json:"active"`
	Roles       []string   `json:"roles"`
	Permissions []string   `json:"permisos"`
	LastLoginAt *time.Time `json:"last_login_at,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
}

type RegisterResponse struct {
	UserID string `json:"user_id"`
	User   User   `json:"user"`
}

// SessionResponse is returned by login and refresh.
type SessionResponse struct {
	AccessToken  string   `json:"access_token"`
	RefreshToken string   `json:"refresh_token"`
	TokenType    string   `json:"token_type"`
	ExpiresIn    int64    `json:"expires_in"`
	SessionID    string   `json:"session_id"`
	User         User     `json:"user"`
	Roles        []string `json:"roles"`
	Permissions  []string `json:"permisos"`
}

type DeviceResponse struct {
	AppToken  string    `json:"app_token"`
	DeviceID  string    `json:"dispositivo_id"`
	ExpiresAt time.Time `json:"expires_at"`
}

type MessageResponse struct {
	Message string `json:"message"`
}

type LogoutAllResponse struct {
	Message        string `json:"message"`
	SessionsClosed int    `json:"sessions_closed"`
}

type Role struct {
	Name        string   `json:"name"`
	Permissions []string `json:"permisos"`
}

type VerifyResponse struct {
	Valid            bool       `json:"valid"`
	Kind             string     `json:"tipo,omitempty"`
	JTI              string     `json:"jti,omitempty"`
	UserID           string     `json:"usuario_id,omitempty"`
	Email            string     `json:"email,omitempty"`
	DeviceID         string     `json:"dispositivo_id,omitempty"`
	Roles            []string   `json:"roles,omitempty"`
	Permissions      []string   `json:"permisos,omitempty"`
	ExpiresAt        *time.Time `json:"expires_at,omitempty"`
	RemainingSeconds int64      `json:"remaining_seconds,omitempty"`
}

type JWK struct {
	Kty string `json:"kty"`
	Use string `json:"use,omitempty"`
	Alg string `json:"alg,omitempty"`
	Kid string `json:"kid,omitempty"`
	N   string `json:"n,omitempty"`
	E   string `json:"e,omitempty"`
}

type JWKSResponse struct {
	Keys []JWK `json:"keys"`
}

type HealthChecks struct {
	Database string `json:"database"`
	Signer   string `json:"signer"`
	Redis    string `json:"redis"`
}

type HealthResponse struct {
	Status  string        `json:"status"`
	Uptime  string        `json:"uptime"`
	Version string        `json:"version"`
	Checks  *HealthChecks `json:"checks,omitempty"`
}
