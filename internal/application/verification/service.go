package verification

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/go-verify-api/internal/application/scoring"
	"github.com/go-verify-api/internal/domain"
	"github.com/go-verify-api/internal/pkg/validate"
)

const defaultWindow = 5 * time.Minute

// Outcome results reported to metrics.
const (
	resultInvalidInput  = "invalid_input"
	resultRateLimited   = "rate_limited"
	resultUpstreamError = "upstream_error"
	resultStoreError    = "persistence_error"
)

// Request is one inbound verification.
type Request struct {
	Value          string
	RequesterIP    string
	RequesterAgent string
}

// Outcome is a completed (persisted) verification.
type Outcome struct {
	Record      *domain.VerificationRecord
	Validation  json.RawMessage
	Score       scoring.Score
	LatencyMs   int64
	CompletedAt time.Time
}

type Service interface {
	VerifyEmail(ctx context.Context, req Request) (*Outcome, error)
	VerifyPhone(ctx context.Context, req Request) (*Outcome, error)
	Get(ctx context.Context, verificationID string) (*domain.VerificationRecord, error)
	Stats(ctx context.Context, window time.Duration) (*domain.StatusCounts, error)
}

type recordStore interface {
	Insert(ctx context.Context, kind domain.Kind, value, requesterIP, requesterAgent string) (*domain.VerificationRecord, error)
	FindRecent(ctx context.Context, kind domain.Kind, value string, since time.Time) ([]domain.VerificationRecord, error)
	Update(ctx context.Context, verificationID string, upd domain.RecordUpdate) error
	GetByID(ctx context.Context, verificationID string) (*domain.VerificationRecord, error)
	CountByStatus(ctx context.Context, status domain.Status, since time.Time) (int, error)
}

type validator interface {
	Validate(ctx context.Context, kind domain.Kind, value string) (*domain.ValidationResult, error)
}

type payloadArchive interface {
	StorePayload(ctx context.Context, rec *domain.VerificationRecord, payload []byte) (string, error)
}

type eventPublisher interface {
	PublishCompleted(ctx context.Context, rec *domain.VerificationRecord) error
}

type outcomeRecorder interface {
	IncVerification(kind domain.Kind, result string)
}

type service struct {
	records   recordStore
	validator validator
	archive   payloadArchive
	events    eventPublisher
	recorder  outcomeRecorder
	window    time.Duration
	now       func() time.Time
}

// ServiceDeps wires the orchestrator. Archive, Events and Recorder are optional.
type ServiceDeps struct {
	Records   recordStore
	Validator validator
	Archive   payloadArchive
	Events    eventPublisher
	Recorder  outcomeRecorder
	Window    time.Duration
	Now       func() time.Time
}

func NewService(deps ServiceDeps) Service {
	s := &service{
		records:   deps.Records,
		validator: deps.Validator,
		archive:   deps.Archive,
		events:    deps.Events,
		recorder:  deps.Recorder,
		window:    deps.Window,
		now:       deps.Now,
	}
	if s.window <= 0 {
		s.window = defaultWindow
	}
	if s.now == nil {
		s.now = func() time.Time { return time.Now().UTC() }
	}
	return s
}

type emailInput struct {
	Email string `validate:"required"`
}

type phoneInput struct {
	Phone string `validate:"required,loosephone"`
}

func (s *service) VerifyEmail(ctx context.Context, req Request) (*Outcome, error) {
	req.Value = strings.TrimSpace(req.Value)
	if err := validate.Struct(emailInput{Email: req.Value}); err != nil {
		s.record(domain.KindEmail, resultInvalidInput)
		return nil, fmt.Errorf("email: %v: %w", err, domain.ErrInvalidInput)
	}
	return s.verify(ctx, domain.KindEmail, req)
}

func (s *service) VerifyPhone(ctx context.Context, req Request) (*Outcome, error) {
	req.Value = strings.TrimSpace(req.Value)
	if err := validate.Struct(phoneInput{Phone: req.Value}); err != nil {
		s.record(domain.KindPhone, resultInvalidInput)
		return nil, fmt.Errorf("phone: %v: %w", err, domain.ErrInvalidInput)
	}
	return s.verify(ctx, domain.KindPhone, req)
}

// verify checks the window, inserts a pending record, calls upstream, scores and updates.
// An upstream failure leaves the inserted record pending.
func (s *service) verify(ctx context.Context, kind domain.Kind, req Request) (*Outcome, error) {
	recent, err := s.records.FindRecent(ctx, kind, req.Value, s.now().Add(-s.window))
	if err != nil {
		s.record(kind, resultStoreError)
		return nil, err
	}
	if len(recent) > 0 {
		s.record(kind, resultRateLimited)
		return nil, fmt.Errorf("%s verified %s ago: %w", kind, s.now().Sub(recent[0].CreatedAt).Round(time.Second), domain.ErrRateLimited)
	}

	start := s.now()
	rec, err := s.records.Insert(ctx, kind, req.Value, req.RequesterIP, req.RequesterAgent)
	if err != nil {
		if errors.Is(err, domain.ErrRateLimited) {
			s.record(kind, resultRateLimited)
		} else {
			s.record(kind, resultStoreError)
		}
		return nil, err
	}

	res, err := s.validator.Validate(ctx, kind, req.Value)
	if err != nil {
		slog.Warn("upstream validation failed; record left pending",
			"verification_id", rec.VerificationID, "kind", kind, "err", err)
		s.record(kind, resultUpstreamError)
		return nil, err
	}

	score := scoring.Result(res)
	status := domain.StatusFailed
	if res.Valid() {
		status = domain.StatusVerified
	}
	completed := s.now()
	latency := completed.Sub(start).Milliseconds()

	if err := s.records.Update(ctx, rec.VerificationID, domain.RecordUpdate{
		Status:            &status,
		ValidationPayload: res.Raw,
		ResponseLatencyMs: &latency,
		QualityScore:      &score.Quality,
		RiskTier:          &score.Tier,
	}); err != nil {
		s.record(kind, resultStoreError)
		return nil, err
	}
	rec.Status = status
	rec.ValidationPayload = res.Raw
	rec.ResponseLatencyMs = &latency
	rec.QualityScore = &score.Quality
	rec.RiskTier = &score.Tier
	rec.UpdatedAt = completed
	s.record(kind, string(status))

	s.afterPersist(ctx, rec)

	return &Outcome{
		Record:      rec,
		Validation:  res.Raw,
		Score:       score,
		LatencyMs:   latency,
		CompletedAt: completed,
	}, nil
}

// afterPersist archives the payload and publishes the completion event.
// Both are best effort.
func (s *service) afterPersist(ctx context.Context, rec *domain.VerificationRecord) {
	if s.archive != nil {
		if _, err := s.archive.StorePayload(ctx, rec, rec.ValidationPayload); err != nil {
			slog.Warn("failed to archive validation payload", "verification_id", rec.VerificationID, "err", err)
		}
	}
	if s.events != nil {
		if err := s.events.PublishCompleted(ctx, rec); err != nil {
			slog.Warn("failed to publish verification event", "verification_id", rec.VerificationID, "err", err)
		}
	}
}

func (s *service) record(kind domain.Kind, result string) {
	if s.recorder != nil {
		s.recorder.IncVerification(kind, result)
	}
}

func (s *service) Get(ctx context.Context, verificationID string) (*domain.VerificationRecord, error) {
	return s.records.GetByID(ctx, verificationID)
}

// Stats counts records by status created within window.
func (s *service) Stats(ctx context.Context, window time.Duration) (*domain.StatusCounts, error) {
	if window <= 0 {
		return nil, fmt.Errorf("window must be positive: %w", domain.ErrInvalidInput)
	}
	since := s.now().Add(-window)
	counts := &domain.StatusCounts{Since: since}
	for _, st := range []domain.Status{domain.StatusPending, domain.StatusVerified, domain.StatusFailed} {
		n, err := s.records.CountByStatus(ctx, st, since)
		if err != nil {
			return nil, err
		}
		switch st {
		case domain.StatusPending:
			counts.Pending = n
		case domain.StatusVerified:
			counts.Verified = n
		case domain.StatusFailed:
			counts.Failed = n
		}
		counts.Total += n
	}
	return counts, nil
}
