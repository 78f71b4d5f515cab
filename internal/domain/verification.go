package domain

import (
	"encoding/json"
	"time"
)

// Kind selects which verification domain a request concerns.
type Kind string

const (
	KindEmail Kind = "email"
	KindPhone Kind = "phone"
)

// Status is the lifecycle state of a VerificationRecord.
type Status string

const (
	StatusPending  Status = "pending"
	StatusVerified Status = "verified"
	StatusFailed   Status = "failed"
)

// RiskTier is the coarse risk bucket assigned by scoring.
type RiskTier string

const (
	RiskLow    RiskTier = "low"
	RiskMedium RiskTier = "medium"
	RiskHigh   RiskTier = "high"
)

// rank orders tiers so escalation can compare them.
func (t RiskTier) rank() int {
	switch t {
	case RiskLow:
		return 0
	case RiskMedium:
		return 1
	default:
		return 2
	}
}

// AtLeast returns the higher of t and floor.
func (t RiskTier) AtLeast(floor RiskTier) RiskTier {
	if floor.rank() > t.rank() {
		return floor
	}
	return t
}

// Escalate raises the tier by one step; high stays high.
func (t RiskTier) Escalate() RiskTier {
	switch t {
	case RiskLow:
		return RiskMedium
	default:
		return RiskHigh
	}
}

// VerificationRecord is one verification attempt.
// PK: verification_id. GSIs: kind_value + created_at_ms, status + created_at_ms.
// Everything except status, payload, score, tier, latency and updated_at is
// written once at insert.
type VerificationRecord struct {
	VerificationID    string          `json:"id" dynamodbav:"verification_id"`
	Kind              Kind            `json:"kind" dynamodbav:"kind"`
	Value             string          `json:"value" dynamodbav:"value"`
	KindValue         string          `json:"-" dynamodbav:"kind_value"`
	Status            Status          `json:"status" dynamodbav:"status"`
	VerificationCode  string          `json:"verification_code" dynamodbav:"verification_code"`
	RequesterIP       string          `json:"requester_ip" dynamodbav:"requester_ip"`
	RequesterAgent    string          `json:"requester_agent" dynamodbav:"requester_agent"`
	ValidationPayload json.RawMessage `json:"validation_payload,omitempty" dynamodbav:"validation_payload,omitempty"`
	ResponseLatencyMs *int64          `json:"response_latency_ms,omitempty" dynamodbav:"response_latency_ms,omitempty"`
	QualityScore      *float64        `json:"quality_score,omitempty" dynamodbav:"quality_score,omitempty"`
	RiskTier          *RiskTier       `json:"risk_tier,omitempty" dynamodbav:"risk_tier,omitempty"`
	CreatedAtMs       int64           `json:"-" dynamodbav:"created_at_ms"`
	CreatedAt         time.Time       `json:"created_at" dynamodbav:"created_at"`
	UpdatedAt         time.Time       `json:"updated_at" dynamodbav:"updated_at"`
}

// KindValueKey is the secondary-index key for (kind, value) lookups.
func KindValueKey(kind Kind, value string) string {
	return string(kind) + "#" + value
}

// RecordUpdate is the partial update applied once the upstream call resolves.
// Nil fields are left untouched.
type RecordUpdate struct {
	Status            *Status
	ValidationPayload json.RawMessage
	ResponseLatencyMs *int64
	QualityScore      *float64
	RiskTier          *RiskTier
}

// StatusCounts aggregates records by status over a window.
type StatusCounts struct {
	Since    time.Time `json:"since"`
	Pending  int       `json:"pending"`
	Verified int       `json:"verified"`
	Failed   int       `json:"failed"`
	Total    int       `json:"total"`
}
