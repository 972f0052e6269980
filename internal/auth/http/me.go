package http

import (
	"net/http"

	"github.com/conychips/auth/internal/auth/service"
	"github.com/conychips/auth/pkg/httpx"
)

// MeHandler serves GET /v1/me. Roles and permissions are read from the
// store, so they can be newer than the ones in the presented token.
type MeHandler struct {
	UserService *service.UserService
}

// ServeHTTP godoc
//
//	@Summary		Current user
//	@Description	Returns the profile of the bearer of the access token.
//	@Tags			Users
//	@Security		BearerAuth
//	@Produce		json
//	@Success		200	{object}	MeResponse
//	@Failure		401	{object}	ErrorResponse
//	@Failure		404	{object}	ErrorResponse
//	@Router			/v1/me [get].
func (h *MeHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	user, err := h.UserService.Profile(r.Context(), httpx.UserIDFromContext(r.Context()))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	httpx.WriteJSON(w, http.StatusOK, MeResponse{OK: httpx.Success, User: user})
}
