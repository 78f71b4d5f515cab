package handler

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-verify-api/internal/domain"
)

// MessageEnvelope is the generic response wrapper.
type MessageEnvelope struct {
	Message string `json:"message,omitempty"`
	Error   string `json:"error,omitempty"`
}

// VerificationEnvelope is returned by the public verify endpoints on success.
type VerificationEnvelope struct {
	Success          bool            `json:"success"`
	Message          string          `json:"message"`
	RequestID        string          `json:"requestId"`
	VerificationCode string          `json:"verificationCode"`
	Validation       json.RawMessage `json:"validation"`
	QualityScore     float64         `json:"qualityScore"`
	RiskLevel        domain.RiskTier `json:"riskLevel"`
	ResponseTime     int64           `json:"responseTime"`
	Timestamp        time.Time       `json:"timestamp"`
}

// RecordEnvelope wraps a stored verification for admin reads.
type RecordEnvelope struct {
	Verification *domain.VerificationRecord `json:"verification"`
}

// StatsEnvelope wraps status counts for admin reads.
type StatsEnvelope struct {
	Window string               `json:"window"`
	Counts *domain.StatusCounts `json:"counts"`
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, MessageEnvelope{Error: msg})
}
