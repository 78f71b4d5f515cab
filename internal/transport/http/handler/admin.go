package handler

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-verify-api/internal/application/verification"
)

const (
	defaultStatsWindow = 24 * time.Hour
	maxStatsWindow     = 90 * 24 * time.Hour
)

// AdminHandler serves read-only views over stored verifications.
type AdminHandler struct {
	svc verification.Service
}

func NewAdminHandler(svc verification.Service) *AdminHandler { return &AdminHandler{svc: svc} }

func (h *AdminHandler) GetVerification(w http.ResponseWriter, r *http.Request) {
	rec, err := h.svc.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, RecordEnvelope{Verification: rec})
}

func (h *AdminHandler) Stats(w http.ResponseWriter, r *http.Request) {
	window := defaultStatsWindow
	if raw := r.URL.Query().Get("window"); raw != "" {
		d, err := time.ParseDuration(raw)
		if err != nil || d <= 0 || d > maxStatsWindow {
			writeError(w, http.StatusBadRequest, "window must be a positive duration up to 2160h")
			return
		}
		window = d
	}
	counts, err := h.svc.Stats(r.Context(), window)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, StatsEnvelope{Window: window.String(), Counts: counts})
}
