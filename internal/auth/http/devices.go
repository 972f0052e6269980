package http

import (
	"net/http"

	"github.com/conychips/auth/internal/auth/service"
	"github.com/conychips/auth/pkg/httpx"
)

type DeviceHandler struct {
	AuthService *service.AuthService
}

// ServeHTTP godoc
//
//	@Summary		Register a device
//	@Description	Issues an app token bound to a device. Without dispositivo_id the fingerprint of the host running the service is used.
//	@Tags			Devices
//	@Accept			json
//	@Produce		json
//	@Param			body	body		service.RegisterDeviceInput	false	"dispositivo_id, metadata"
//	@Success		201		{object}	DeviceResponse
//	@Failure		400		{object}	ErrorResponse
//	@Router			/v1/devices [post].
func (h *DeviceHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	var req service.RegisterDeviceInput
	if !decodeOptionalBody(w, r, &req) {
		return
	}

	res, err := h.AuthService.RegisterDevice(r.Context(), req)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	httpx.WriteJSON(w, http.StatusCreated, DeviceResponse{OK: httpx.Success, DeviceResult: res})
}
