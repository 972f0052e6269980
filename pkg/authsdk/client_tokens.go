package authsdk

import (
	"context"
	"net/http"
)

// VerifyToken asks the service whether token is usable right now. An
// unusable token is not an error: it comes back with Valid false.
func (c *SDKClient) VerifyToken(ctx context.Context, token string) (*VerifyResponse, error) {
	var resp VerifyResponse
	if err := c.postJSON(ctx, "/v1/tokens/verify", map[string]string{"token": token}, &resp, http.StatusOK); err != nil {
		return nil, err
	}
	return &resp, nil
}

// RevokeToken blacklists token until its expiry.
func (c *SDKClient) RevokeToken(ctx context.Context, token string) error {
	var resp MessageResponse
	return c.postJSON(ctx, "/v1/tokens/revoke", map[string]string{"token": token}, &resp, http.StatusOK)
}

// GetJWKS fetches the public keys used to sign tokens.
func (c *SDKClient) GetJWKS(ctx context.Context) (*JWKSResponse, error) {
	resp, err := c.doRequest(ctx, http.MethodGet, "/.well-known/jwks.json", nil, nil)
	if err != nil {
		return nil, err
	}

	var jwks JWKSResponse
	if err := decodeJSON(resp, &jwks, http.StatusOK); err != nil {
		return nil, err
	}
	return &jwks, nil
}
