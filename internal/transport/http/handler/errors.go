package handler

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-verify-api/internal/domain"
)

// writeServiceError maps a domain error to a status code and a fixed client message.
// Upstream bodies and internal detail stay in the server log.
func writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, domain.ErrInvalidInput):
		writeError(w, http.StatusBadRequest, "invalid input")
	case errors.Is(err, domain.ErrRateLimited):
		writeError(w, http.StatusTooManyRequests, "verification already requested recently, try again later")
	case errors.Is(err, domain.ErrExternalClient), errors.Is(err, domain.ErrServiceUnavailable):
		slog.Warn("verification upstream failure", "path", r.URL.Path, "err", err)
		writeError(w, http.StatusBadGateway, "verification service unavailable")
	case errors.Is(err, domain.ErrNotFound):
		writeError(w, http.StatusNotFound, "not found")
	case errors.Is(err, domain.ErrUnauthorized):
		writeError(w, http.StatusUnauthorized, "unauthorized")
	case errors.Is(err, domain.ErrForbidden):
		writeError(w, http.StatusForbidden, "forbidden")
	case errors.Is(err, domain.ErrPersistence):
		slog.Error("verification store failure", "path", r.URL.Path, "err", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
	default:
		slog.Error("unexpected error", "path", r.URL.Path, "err", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
	}
}
