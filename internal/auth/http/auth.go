package http

import (
	"net/http"

	"github.com/conychips/auth/internal/auth/service"
	"github.com/conychips/auth/pkg/httpx"
)

// AuthHandler serves the account and session endpoints under /v1/auth.
type AuthHandler struct {
	AuthService *service.AuthService
}

// HandleRegister godoc
//
//	@Summary		Register a user
//	@Description	Creates an account with the CLIENTE role. Does not log the user in.
//	@Tags			Auth
//	@Accept			json
//	@Produce		json
//	@Param			body	body		service.RegisterInput	true	"email, username, password"
//	@Success		201		{object}	RegisterResponse
//	@Failure		400		{object}	ErrorResponse
//	@Failure		409		{object}	ErrorResponse	"email or username taken"
//	@Router			/v1/auth/register [post].
func (h *AuthHandler) HandleRegister(w http.ResponseWriter, r *http.Request) {
	var req service.RegisterInput
	if !decodeBody(w, r, &req) {
		return
	}

	user, err := h.AuthService.RegisterUser(r.Context(), req)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	httpx.WriteJSON(w, http.StatusCreated, RegisterResponse{OK: httpx.Success, UserID: user.ID, User: user})
}

// HandleLogin godoc
//
//	@Summary		Log in
//	@Description	Checks email and password and opens a session. Presenting an app token binds the session to that device.
//	@Tags			Auth
//	@Accept			json
//	@Produce		json
//	@Param			body	body		service.LoginInput	true	"email, password, optional app_token"
//	@Success		200		{object}	SessionResponse
//	@Failure		400		{object}	ErrorResponse
//	@Failure		401		{object}	ErrorResponse	"invalid credentials or app token"
//	@Failure		403		{object}	ErrorResponse	"account inactive"
//	@Failure		429		{object}	ErrorResponse
//	@Router			/v1/auth/login [post].
func (h *AuthHandler) HandleLogin(w http.ResponseWriter, r *http.Request) {
	var req service.LoginInput
	if !decodeBody(w, r, &req) {
		return
	}

	res, err := h.AuthService.Login(r.Context(), req)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	httpx.WriteJSON(w, http.StatusOK, SessionResponse{OK: httpx.Success, SessionResult: res})
}

// HandleRefresh godoc
//
//	@Summary		Rotate a refresh token
//	@Description	Exchanges a refresh token for a new pair. The presented refresh token is revoked.
//	@Tags			Auth
//	@Accept			json
//	@Produce		json
//	@Param			body	body		RefreshRequest	true	"refresh_token"
//	@Success		200		{object}	SessionResponse
//	@Failure		401		{object}	ErrorResponse
//	@Failure		403		{object}	ErrorResponse	"user inactive or removed"
//	@Router			/v1/auth/refresh [post].
func (h *AuthHandler) HandleRefresh(w http.ResponseWriter, r *http.Request) {
	var req RefreshRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if req.RefreshToken == "" {
		httpx.WriteError(w, http.StatusBadRequest, "refresh_token is required")
		return
	}

	res, err := h.AuthService.Refresh(r.Context(), req.RefreshToken)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	httpx.WriteJSON(w, http.StatusOK, SessionResponse{OK: httpx.Success, SessionResult: res})
}

// HandleLogout godoc
//
//	@Summary		Log out
//	@Description	Revokes the bearer access token and, when given, the refresh token of the same session. The device app token stays valid.
//	@Tags			Auth
//	@Security		BearerAuth
//	@Accept			json
//	@Produce		json
//	@Param			body	body		LogoutRequest	false	"refresh_token"
//	@Success		200		{object}	MessageResponse
//	@Failure		401		{object}	ErrorResponse
//	@Failure		403		{object}	ErrorResponse	"refresh token of another user"
//	@Router			/v1/auth/logout [post].
func (h *AuthHandler) HandleLogout(w http.ResponseWriter, r *http.Request) {
	var req LogoutRequest
	if !decodeOptionalBody(w, r, &req) {
		return
	}

	if err := h.AuthService.Logout(r.Context(), httpx.BearerFromContext(r.Context()), req.RefreshToken); err != nil {
		writeServiceError(w, r, err)
		return
	}

	httpx.WriteMessage(w, http.StatusOK, "logged out")
}

// HandleLogoutAll godoc
//
//	@Summary		Log out everywhere
//	@Description	Ends every session of the caller.
//	@Tags			Auth
//	@Security		BearerAuth
//	@Produce		json
//	@Success		200	{object}	LogoutAllResponse
//	@Failure		401	{object}	ErrorResponse
//	@Router			/v1/auth/logout-all [post].
func (h *AuthHandler) HandleLogoutAll(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	// The current access token is not part of any session row once it has
	// been rotated away from, so it is revoked explicitly as well.
	if err := h.AuthService.Logout(ctx, httpx.BearerFromContext(ctx), ""); err != nil {
		writeServiceError(w, r, err)
		return
	}

	n, err := h.AuthService.LogoutAll(ctx, httpx.UserIDFromContext(ctx))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	httpx.WriteJSON(w, http.StatusOK, LogoutAllResponse{
		OK:             httpx.Success,
		Message:        "all sessions closed",
		SessionsClosed: n,
	})
}

// HandlePasswordForgot godoc
//
//	@Summary		Request a password reset
//	@Description	Sends a single-use reset token when the email belongs to an active account. The answer is the same either way.
//	@Tags			Auth
//	@Accept			json
//	@Produce		json
//	@Param			body	body		PasswordForgotRequest	true	"email"
//	@Success		200		{object}	MessageResponse
//	@Failure		429		{object}	ErrorResponse
//	@Router			/v1/auth/password/forgot [post].
func (h *AuthHandler) HandlePasswordForgot(w http.ResponseWriter, r *http.Request) {
	var req PasswordForgotRequest
	if !decodeBody(w, r, &req) {
		return
	}

	if err := h.AuthService.RequestPasswordReset(r.Context(), req.Email); err != nil {
		writeServiceError(w, r, err)
		return
	}

	httpx.WriteMessage(w, http.StatusOK, "if the account exists, a reset token has been sent")
}

// HandlePasswordReset godoc
//
//	@Summary		Reset a password
//	@Description	Consumes a reset token, sets the new password and ends every session of the account.
//	@Tags			Auth
//	@Accept			json
//	@Produce		json
//	@Param			body	body		PasswordResetRequest	true	"token, new_password"
//	@Success		200		{object}	MessageResponse
//	@Failure		400		{object}	ErrorResponse	"invalid or expired token, weak password"
//	@Router			/v1/auth/password/reset [post].
func (h *AuthHandler) HandlePasswordReset(w http.ResponseWriter, r *http.Request) {
	var req PasswordResetRequest
	if !decodeBody(w, r, &req) {
		return
	}

	if err := h.AuthService.ConfirmPasswordReset(r.Context(), req.Token, req.NewPassword); err != nil {
		writeServiceError(w, r, err)
		return
	}

	httpx.WriteMessage(w, http.StatusOK, "password updated")
}
