package httpapi

import (
	"errors"
	"net/http"

	json "github.com/goccy/go-json"

	"edgegen/internal/manager"
	"edgegen/internal/session"
	"edgegen/pkg/types"
)

// HTTPError allows services to provide an HTTP status code for an error.
type HTTPError interface {
	error
	StatusCode() int
}

// statusFor maps service errors to HTTP status codes.
func statusFor(err error) int {
	var he HTTPError
	switch {
	case manager.IsModelNotFound(err):
		return http.StatusNotFound
	case manager.IsTooBusy(err):
		IncrementBackpressure("busy")
		return http.StatusTooManyRequests
	case manager.IsDependencyUnavailable(err):
		return http.StatusServiceUnavailable
	case manager.IsNotLoaded(err), manager.IsModelInUse(err), manager.IsModelExists(err), manager.IsDownloadInProgress(err):
		return http.StatusConflict
	case manager.IsInvalidRequest(err):
		return http.StatusBadRequest
	case errors.Is(err, session.ErrTokenization):
		return http.StatusBadRequest
	case errors.Is(err, session.ErrModelLoad):
		return http.StatusUnprocessableEntity
	case errors.As(err, &he):
		return he.StatusCode()
	}
	return http.StatusInternalServerError
}

// writeJSONError writes a consistent JSON error payload.
func writeJSONError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(types.ErrorResponse{Error: msg, Code: status})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil && zlog != nil {
		zlog.Warn().Err(err).Msg("encode response")
	}
}
