package http

import (
	"errors"
	"net/http"

	"github.com/conychips/auth/internal/auth/revocation"
	"github.com/conychips/auth/internal/auth/service"
	"github.com/conychips/auth/pkg/httpx"
	"github.com/conychips/auth/pkg/slogx"
)

// TokensHandler lets other services check and revoke tokens they were
// handed.
type TokensHandler struct {
	TokenService *service.TokenService
}

// HandleVerify godoc
//
//	@Summary		Verify a token
//	@Description	Reports whether a token of any kind is currently usable. An unusable token yields valid=false without a reason.
//	@Tags			Tokens
//	@Accept			json
//	@Produce		json
//	@Param			body	body		TokenRequest	true	"token"
//	@Success		200		{object}	VerifyResponse
//	@Failure		400		{object}	ErrorResponse
//	@Router			/v1/tokens/verify [post].
func (h *TokensHandler) HandleVerify(w http.ResponseWriter, r *http.Request) {
	var req TokenRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if req.Token == "" {
		httpx.WriteError(w, http.StatusBadRequest, "token is required")
		return
	}

	claims, err := h.TokenService.Verify(r.Context(), req.Token)
	if err != nil {
		httpx.WriteJSON(w, http.StatusOK, VerifyResponse{OK: httpx.Success, Valid: false})
		return
	}

	resp := VerifyResponse{
		OK:               httpx.Success,
		Valid:            true,
		Kind:             string(claims.Kind),
		JTI:              claims.ID,
		UserID:           claims.UserID,
		Email:            claims.Email,
		DeviceID:         claims.DeviceID,
		Roles:            claims.Roles,
		Permissions:      claims.Permissions,
		RemainingSeconds: h.TokenService.RemainingSeconds(req.Token),
	}
	if claims.ExpiresAt != nil {
		exp := claims.ExpiresAt.UTC()
		resp.ExpiresAt = &exp
	}
	httpx.WriteJSON(w, http.StatusOK, resp)
}

// HandleRevoke godoc
//
//	@Summary		Revoke a token
//	@Description	Blacklists a token until it would have expired. Unknown or malformed tokens are answered the same way as valid ones.
//	@Tags			Tokens
//	@Accept			json
//	@Produce		json
//	@Param			body	body		TokenRequest	true	"token"
//	@Success		200		{object}	MessageResponse
//	@Failure		400		{object}	ErrorResponse
//	@Failure		503		{object}	ErrorResponse	"revocation store unavailable"
//	@Router			/v1/tokens/revoke [post].
func (h *TokensHandler) HandleRevoke(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req TokenRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if req.Token == "" {
		httpx.WriteError(w, http.StatusBadRequest, "token is required")
		return
	}

	_, err := h.TokenService.Revoke(ctx, req.Token)
	switch {
	case err == nil, errors.Is(err, service.ErrInvalidToken):
		httpx.WriteMessage(w, http.StatusOK, "token revoked")
	case errors.Is(err, revocation.ErrUnavailable):
		slogx.FromContext(ctx).Warn("revoke failed", "error", err)
		httpx.WriteError(w, http.StatusServiceUnavailable, "revocation store unavailable")
	default:
		writeServiceError(w, r, err)
	}
}
