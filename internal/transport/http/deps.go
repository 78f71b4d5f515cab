package http

import (
	"context"
	"time"

	"github.com/go-verify-api/internal/domain"
	jwtinfra "github.com/go-verify-api/internal/infrastructure/jwt"
	"github.com/go-verify-api/internal/infrastructure/metrics"
	"github.com/prometheus/client_golang/prometheus"
)

// RecordStore is the minimal interface the router requires from the verification store.
type RecordStore interface {
	Insert(ctx context.Context, kind domain.Kind, value, requesterIP, requesterAgent string) (*domain.VerificationRecord, error)
	FindRecent(ctx context.Context, kind domain.Kind, value string, since time.Time) ([]domain.VerificationRecord, error)
	Update(ctx context.Context, verificationID string, upd domain.RecordUpdate) error
	GetByID(ctx context.Context, verificationID string) (*domain.VerificationRecord, error)
	CountByStatus(ctx context.Context, status domain.Status, since time.Time) (int, error)
}

// Validator is the minimal interface the router requires from the external validation client.
type Validator interface {
	Validate(ctx context.Context, kind domain.Kind, value string) (*domain.ValidationResult, error)
}

// PayloadArchive stores raw validation payloads.
type PayloadArchive interface {
	StorePayload(ctx context.Context, rec *domain.VerificationRecord, payload []byte) (string, error)
}

// EventPublisher announces completed verifications.
type EventPublisher interface {
	PublishCompleted(ctx context.Context, rec *domain.VerificationRecord) error
}

// Deps holds all infrastructure dependencies for the router.
// Archive, Events and JWTProvider may be nil.
type Deps struct {
	Records     RecordStore
	Validator   Validator
	Archive     PayloadArchive
	Events      EventPublisher
	JWTProvider *jwtinfra.Provider
	Metrics     *metrics.Metrics
	Gatherer    prometheus.Gatherer
}
