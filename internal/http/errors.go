// Package httpapi exposes the storefront REST API.
package httpapi

import (
	"encoding/json"
	"net/http"

	"github.com/fairyhunter13/storefront-api/internal/apperr"
	"github.com/fairyhunter13/storefront-api/internal/obs"
)

// jsonError is the error envelope of every failed request.
type jsonError struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

// WriteJSONError writes a JSON error payload with the given status code.
func WriteJSONError(w http.ResponseWriter, status int, message, details string) {
	writeJSON(w, status, jsonError{Error: message, Details: details})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// StatusOf maps an error kind to its HTTP status.
func StatusOf(k apperr.Kind) int {
	switch k {
	case apperr.KindValidation, apperr.KindConflict:
		return http.StatusBadRequest
	case apperr.KindAuth:
		return http.StatusUnauthorized
	case apperr.KindForbidden:
		return http.StatusForbidden
	case apperr.KindNotFound:
		return http.StatusNotFound
	case apperr.KindRateLimit:
		return http.StatusTooManyRequests
	default:
		return http.StatusInternalServerError
	}
}

// writeError renders err. Internal causes are logged and only echoed back in development.
func (a *App) writeError(w http.ResponseWriter, r *http.Request, err error) {
	kind := apperr.KindOf(err)
	if kind != apperr.KindInternal {
		WriteJSONError(w, StatusOf(kind), apperr.Message(err, ""), "")
		return
	}
	obs.Logger.Error("request_failed",
		"request_id", RequestIDFromContext(r.Context()),
		"method", r.Method,
		"path", r.URL.Path,
		"error", err,
	)
	details := ""
	if a.Cfg.Development() {
		details = err.Error()
	}
	WriteJSONError(w, http.StatusInternalServerError, "Internal server error", details)
}
