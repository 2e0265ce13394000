package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"

	"checkoutsdk/internal/connector"
	"checkoutsdk/internal/manager"
	"checkoutsdk/pkg/checkout"
	"checkoutsdk/pkg/types"
)

// HTTPError allows services to provide an HTTP status code for an error.
type HTTPError interface {
	error
	StatusCode() int
}

// writeJSONError writes a consistent JSON error payload.
func writeJSONError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(types.ErrorResponse{Error: msg, Code: status})
}

// statusFor maps well-known session errors to HTTP status codes.
func statusFor(err error) int {
	var he HTTPError
	switch {
	case manager.IsSessionNotFound(err), errors.Is(err, connector.ErrUnknownInstance):
		return http.StatusNotFound
	case manager.IsTooBusy(err):
		IncrementBackpressure("sessions")
		return http.StatusTooManyRequests
	case errors.Is(err, manager.ErrShuttingDown):
		return http.StatusServiceUnavailable
	case errors.Is(err, connector.ErrAlreadyAttached):
		return http.StatusConflict
	case errors.Is(err, checkout.ErrContainerRequired),
		errors.Is(err, checkout.ErrContainerDetached),
		checkout.IsContainerTooSmall(err):
		return http.StatusBadRequest
	case errors.As(err, &he):
		return he.StatusCode()
	default:
		return http.StatusInternalServerError
	}
}

func writeServiceError(w http.ResponseWriter, err error) {
	writeJSONError(w, statusFor(err), err.Error())
}
