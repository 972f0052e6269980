package http

import (
	"errors"
	"net/http"

	"github.com/conychips/auth/internal/auth/service"
	"github.com/conychips/auth/pkg/httpx"
	"github.com/conychips/auth/pkg/slogx"
)

// writeServiceError renders a use case error as the failure envelope.
func writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	var se *service.Error
	if !errors.As(err, &se) {
		slogx.FromContext(r.Context()).Error("unhandled error", "error", err)
		se = service.ErrInternal
	}
	httpx.WriteError(w, se.Code, se.Message)
}

// decodeBody reads the JSON body into dst and answers 400 on failure.
func decodeBody(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := httpx.DecodeJSON(r, dst); err != nil {
		httpx.WriteError(w, http.StatusBadRequest, err.Error())
		return false
	}
	return true
}

// decodeOptionalBody is decodeBody for endpoints where the body may be
// omitted entirely.
func decodeOptionalBody(w http.ResponseWriter, r *http.Request, dst any) bool {
	err := httpx.DecodeJSON(r, dst)
	if err == nil || errors.Is(err, httpx.ErrEmptyBody) {
		return true
	}
	httpx.WriteError(w, http.StatusBadRequest, err.Error())
	return false
}
