package http

import (
	"net/http"

	"github.com/conychips/auth/internal/auth/service"
	"github.com/conychips/auth/pkg/httpx"
)

type RolesHandler struct {
	RolesService *service.RolesService
}

// HandleList godoc
//
//	@Summary		List roles
//	@Description	Every role with the permissions it grants.
//	@Tags			Roles
//	@Security		BearerAuth
//	@Produce		json
//	@Success		200	{object}	RolesResponse
//	@Failure		401	{object}	ErrorResponse
//	@Failure		403	{object}	ErrorResponse
//	@Router			/v1/roles [get].
func (h *RolesHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	httpx.WriteJSON(w, http.StatusOK, RolesResponse{OK: httpx.Success, Roles: h.RolesService.Catalog()})
}

// HandleAssign godoc
//
//	@Summary		Grant a role
//	@Description	Takes effect in the user's tokens from the next refresh.
//	@Tags			Roles
//	@Security		BearerAuth
//	@Produce		json
//	@Param			id		path		string	true	"user id"
//	@Param			role	path		string	true	"role name"
//	@Success		200		{object}	MessageResponse
//	@Failure		400		{object}	ErrorResponse	"unknown role"
//	@Failure		403		{object}	ErrorResponse
//	@Failure		404		{object}	ErrorResponse
//	@Router			/v1/users/{id}/roles/{role} [post].
func (h *RolesHandler) HandleAssign(w http.ResponseWriter, r *http.Request) {
	if err := h.RolesService.AssignRole(r.Context(), r.PathValue("id"), r.PathValue("role")); err != nil {
		writeServiceError(w, r, err)
		return
	}
	httpx.WriteMessage(w, http.StatusOK, "role assigned")
}

// HandleRemove godoc
//
//	@Summary		Revoke a role
//	@Tags			Roles
//	@Security		BearerAuth
//	@Produce		json
//	@Param			id		path		string	true	"user id"
//	@Param			role	path		string	true	"role name"
//	@Success		200		{object}	MessageResponse
//	@Failure		400		{object}	ErrorResponse	"unknown role"
//	@Failure		403		{object}	ErrorResponse
//	@Failure		404		{object}	ErrorResponse
//	@Router			/v1/users/{id}/roles/{role} [delete].
func (h *RolesHandler) HandleRemove(w http.ResponseWriter, r *http.Request) {
	if err := h.RolesService.RemoveRole(r.Context(), r.PathValue("id"), r.PathValue("role")); err != nil {
		writeServiceError(w, r, err)
		return
	}
	httpx.WriteMessage(w, http.StatusOK, "role removed")
}
