package http

import (
	"time"

	"github.com/conychips/auth/internal/auth/service"
	"github.com/conychips/auth/pkg/httpx"
)

// ErrorResponse documents the failure envelope for swagger.
type ErrorResponse = httpx.ErrorBody

// MessageResponse documents the message-only success envelope for swagger.
type MessageResponse = httpx.MessageBody

type SessionResponse struct {
	httpx.OK
	*service.SessionResult
}

type RegisterResponse struct {
	httpx.OK
	UserID string           `json:"user_id"`
	User   service.UserView `json:"user"`
}

type DeviceResponse struct {
	httpx.OK
	*service.DeviceResult
}

type MeResponse struct {
	httpx.OK
	User service.UserView `json:"user"`
}

type LogoutAllResponse struct {
	httpx.OK
	Message        string `json:"message"`
	SessionsClosed int    `json:"sessions_closed"`
}

type RolesResponse struct {
	httpx.OK
	Roles []service.RoleInfo `json:"roles"`
}

type RefreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

type LogoutRequest struct {
	RefreshToken string `json:"refresh_token,omitempty"`
}

type PasswordForgotRequest struct {
	Email string `json:"email"`
}

type PasswordResetRequest struct {
	Token       string `json:"token"`
	NewPassword string `json:"new_password"`
}

type TokenRequest struct {
	Token string `json:"token"`
}

// VerifyResponse reports whether a token is currently usable. Claims are
// only present when it is.
type VerifyResponse struct {
	httpx.OK
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
