package authsdk

import (
	"context"
	"net/http"
)

// Register creates an account. It does not log in.
func (c *SDKClient) Register(ctx context.Context, req RegisterRequest) (*RegisterResponse, error) {
	var resp RegisterResponse
	if err := c.postJSON(ctx, "/v1/auth/register", req, &resp, http.StatusCreated); err != nil {
		return nil, err
	}
	return &resp, nil
}

// RegisterDevice obtains an app token for a device.
func (c *SDKClient) RegisterDevice(ctx context.Context, req RegisterDeviceRequest) (*DeviceResponse, error) {
	var resp DeviceResponse
	if err := c.postJSON(ctx, "/v1/devices", req, &resp, http.StatusCreated); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Refresh rotates a refresh token. The one passed in stops working.
func (c *SDKClient) Refresh(ctx context.Context, refreshToken string) (*SessionResponse, error) {
	var resp SessionResponse
	err := c.postJSON(ctx, "/v1/auth/refresh", map[string]string{"refresh_token": refreshToken}, &resp, http.StatusOK)
	if err != nil {
		return nil, err
	}
	return &resp, nil
}

// ForgotPassword asks for a reset token to be sent. It succeeds whether or
// not the email is known.
func (c *SDKClient) ForgotPassword(ctx context.Context, email string) error {
	var resp MessageResponse
	return c.postJSON(ctx, "/v1/auth/password/forgot", map[string]string{"email": email}, &resp, http.StatusOK)
}

// ResetPassword consumes a reset token. Every session of the account ends.
func (c *SDKClient) ResetPassword(ctx context.Context, token, newPassword string) error {
	var resp MessageResponse
	return c.postJSON(ctx, "/v1/auth/password/reset", map[string]string{
		"token":        token,
		"new_password": newPassword,
	}, &resp, http.StatusOK)
}
