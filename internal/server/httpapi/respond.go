// Package httpapi exposes the service core over HTTP: a chi router, bearer
// authentication middleware, and JSON handlers for the auth and media
// endpoints.
package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/mvasilyev/mediavault/internal/common"
)

// errorResponse is the JSON error body returned to clients.
type errorResponse struct {
	Detail string `json:"detail"`
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if body != nil {
		_ = json.NewEncoder(w).Encode(body)
	}
}

func writeError(w http.ResponseWriter, status int, detail string) {
	writeJSON(w, status, errorResponse{Detail: detail})
}

// writeServiceError maps the core error taxonomy to HTTP statuses:
// validation 400, auth 401, forbidden 403, not found 404, everything
// else 500. Internal details never leak into 500 bodies.
func writeServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, common.ErrEmailTaken),
		errors.Is(err, common.ErrUnsupportedType),
		errors.Is(err, common.ErrFileTooLarge),
		errors.Is(err, common.ErrBadTagFormat):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, common.ErrorUnauthorized),
		errors.Is(err, common.ErrInvalidToken),
		errors.Is(err, common.ErrMissingSubject):
		writeError(w, http.StatusUnauthorized, "could not validate credentials")
	case errors.Is(err, common.ErrForbidden):
		writeError(w, http.StatusForbidden, "you don't have permission to access this media")
	case errors.Is(err, common.ErrorNotFound):
		writeError(w, http.StatusNotFound, "media not found")
	default:
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}
