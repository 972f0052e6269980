package authsdk

import (
	"context"
	"net/http"
	"strings"
	"time"
)

// SDKClient is a client for the Cony Chips authentication service.
// It provides access to unauthenticated operations and can create authenticated Sessions.
type SDKClient struct {
	BaseURL    string
	HTTPClient *http.Client

	// CheckPermissions makes a Session refuse calls its permissions cannot
	// cover before sending them. Default: true
	CheckPermissions bool
}

// NewSDKClient creates a new auth service client with permission checking enabled.
func NewSDKClient(baseURL string) *SDKClient {
	return &SDKClient{
		BaseURL: strings.TrimSuffix(baseURL, "/"),
		HTTPClient: &http.Client{
			Timeout: 10 * time.Second,
		},
		CheckPermissions: true,
	}
}

// Login opens a session with email and password.
func (c *SDKClient) Login(ctx context.Context, email, password string) (*Session, error) {
	return c.LoginWithDevice(ctx, email, password, "")
}

// LoginWithDevice opens a session bound to the device behind appToken.
func (c *SDKClient) LoginWithDevice(ctx context.Context, email, password, appToken string) (*Session, error) {
	var resp SessionResponse
	err := c.postJSON(ctx, "/v1/auth/login", LoginRequest{
		Email:    email,
		Password: password,
		AppToken: appToken,
	}, &resp, http.StatusOK)
	if err != nil {
		return nil, err
	}
	return newSession(c, &resp), nil
}

// AuthenticateWithRefreshToken creates a session from a stored refresh
// token. The token is rotated in the process.
func (c *SDKClient) AuthenticateWithRefreshToken(ctx context.Context, refreshToken string) (*Session, error) {
	resp, err := c.Refresh(ctx, refreshToken)
	if err != nil {
		return nil, err
	}
	return newSession(c, resp), nil
}
