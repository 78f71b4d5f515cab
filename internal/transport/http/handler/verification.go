package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-verify-api/internal/application/verification"
	"github.com/go-verify-api/internal/domain"
	"github.com/go-verify-api/internal/transport/http/middleware"
)

const maxBodyBytes = 4 << 10

// VerificationHandler serves the public email and phone verification endpoints.
type VerificationHandler struct {
	svc verification.Service
}

func NewVerificationHandler(svc verification.Service) *VerificationHandler {
	return &VerificationHandler{svc: svc}
}

type verifyEmailRequest struct {
	Email string `json:"email"`
}

type verifyPhoneRequest struct {
	Phone string `json:"phone"`
}

func (h *VerificationHandler) VerifyEmail(w http.ResponseWriter, r *http.Request) {
	var body verifyEmailRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	out, err := h.svc.VerifyEmail(r.Context(), requestFrom(r, body.Email))
	if err != nil {
		if errors.Is(err, domain.ErrInvalidInput) {
			writeError(w, http.StatusBadRequest, "a non-empty email is required")
			return
		}
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toVerificationEnvelope(out, "Email verification completed"))
}

func (h *VerificationHandler) VerifyPhone(w http.ResponseWriter, r *http.Request) {
	var body verifyPhoneRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	out, err := h.svc.VerifyPhone(r.Context(), requestFrom(r, body.Phone))
	if err != nil {
		if errors.Is(err, domain.ErrInvalidInput) {
			writeError(w, http.StatusBadRequest, "a valid phone number is required")
			return
		}
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toVerificationEnvelope(out, "Phone verification completed"))
}

func requestFrom(r *http.Request, value string) verification.Request {
	return verification.Request{
		Value:          value,
		RequesterIP:    middleware.RealIP(r),
		RequesterAgent: r.UserAgent(),
	}
}

func toVerificationEnvelope(out *verification.Outcome, msg string) VerificationEnvelope {
	return VerificationEnvelope{
		Success:          true,
		Message:          msg,
		RequestID:        out.Record.VerificationID,
		VerificationCode: out.Record.VerificationCode,
		Validation:       out.Validation,
		QualityScore:     out.Score.Quality,
		RiskLevel:        out.Score.Tier,
		ResponseTime:     out.LatencyMs,
		Timestamp:        out.CompletedAt.UTC(),
	}
}
