package verification

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/go-verify-api/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// --- mocks ---

type mockRecordStore struct{ mock.Mock }

func (m *mockRecordStore) Insert(ctx context.Context, kind domain.Kind, value, ip, agent string) (*domain.VerificationRecord, error) {
	args := m.Called(ctx, kind, value, ip, agent)
	if r, _ := args.Get(0).(*domain.VerificationRecord); r != nil {
		return r, args.Error(1)
	}
	return nil, args.Error(1)
}
func (m *mockRecordStore) FindRecent(ctx context.Context, kind domain.Kind, value string, since time.Time) ([]domain.VerificationRecord, error) {
	args := m.Called(ctx, kind, value, since)
	recs, _ := args.Get(0).([]domain.VerificationRecord)
	return recs, args.Error(1)
}
func (m *mockRecordStore) Update(ctx context.Context, id string, upd domain.RecordUpdate) error {
	return m.Called(ctx, id, upd).Error(0)
}
func (m *mockRecordStore) GetByID(ctx context.Context, id string) (*domain.VerificationRecord, error) {
	args := m.Called(ctx, id)
	if r, _ := args.Get(0).(*domain.VerificationRecord); r != nil {
		return r, args.Error(1)
	}
	return nil, args.Error(1)
}
func (m *mockRecordStore) CountByStatus(ctx context.Context, status domain.Status, since time.Time) (int, error) {
	args := m.Called(ctx, status, since)
	return args.Int(0), args.Error(1)
}

type mockValidator struct{ mock.Mock }

func (m *mockValidator) Validate(ctx context.Context, kind domain.Kind, value string) (*domain.ValidationResult, error) {
	args := m.Called(ctx, kind, value)
	if r, _ := args.Get(0).(*domain.ValidationResult); r != nil {
		return r, args.Error(1)
	}
	return nil, args.Error(1)
}

type mockArchive struct{ mock.Mock }

func (m *mockArchive) StorePayload(ctx context.Context, rec *domain.VerificationRecord, payload []byte) (string, error) {
	args := m.Called(ctx, rec, payload)
	return args.String(0), args.Error(1)
}

type mockEvents struct{ mock.Mock }

func (m *mockEvents) PublishCompleted(ctx context.Context, rec *domain.VerificationRecord) error {
	return m.Called(ctx, rec).Error(0)
}

type countingRecorder struct{ results map[string]int }

func (c *countingRecorder) IncVerification(kind domain.Kind, result string) {
	if c.results == nil {
		c.results = map[string]int{}
	}
	c.results[string(kind)+":"+result]++
}

// --- fixtures ---

var t0 = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

// steppingClock advances by step on every call.
func steppingClock(step time.Duration) func() time.Time {
	now := t0
	return func() time.Time {
		cur := now
		now = now.Add(step)
		return cur
	}
}

func pendingRecord(kind domain.Kind, value string) *domain.VerificationRecord {
	return &domain.VerificationRecord{
		VerificationID:   "01HZXVERIFY",
		Kind:             kind,
		Value:            value,
		KindValue:        domain.KindValueKey(kind, value),
		Status:           domain.StatusPending,
		VerificationCode: "123456",
		RequesterIP:      "203.0.113.7",
		RequesterAgent:   "test-agent",
		CreatedAt:        t0,
		UpdatedAt:        t0,
	}
}

const rawEmail = `{"email_address":"test@example.com","email_deliverability":{"status":"deliverable"},"email_quality":{"score":0.85}}`

func emailResult(status string, score float64) *domain.ValidationResult {
	return &domain.ValidationResult{
		Kind: domain.KindEmail,
		Email: &domain.EmailValidationResult{
			EmailAddress:   "test@example.com",
			Deliverability: &domain.EmailDeliverability{Status: status},
			Quality:        domain.EmailQuality{Score: score},
			Risk:           domain.EmailRisk{AddressRiskStatus: "low", DomainRiskStatus: "low"},
		},
		Raw: json.RawMessage(rawEmail),
	}
}

type fixture struct {
	store    *mockRecordStore
	val      *mockValidator
	archive  *mockArchive
	events   *mockEvents
	recorder *countingRecorder
	svc      Service
}

func newFixture() *fixture {
	f := &fixture{
		store:    &mockRecordStore{},
		val:      &mockValidator{},
		archive:  &mockArchive{},
		events:   &mockEvents{},
		recorder: &countingRecorder{},
	}
	f.svc = NewService(ServiceDeps{
		Records:   f.store,
		Validator: f.val,
		Archive:   f.archive,
		Events:    f.events,
		Recorder:  f.recorder,
		Window:    5 * time.Minute,
		Now:       steppingClock(100 * time.Millisecond),
	})
	return f
}

func (f *fixture) assertAll(t *testing.T) {
	f.store.AssertExpectations(t)
	f.val.AssertExpectations(t)
	f.archive.AssertExpectations(t)
	f.events.AssertExpectations(t)
}

func req(value string) Request {
	return Request{Value: value, RequesterIP: "203.0.113.7", RequesterAgent: "test-agent"}
}

// --- VerifyEmail ---

func TestVerifyEmail_Success(t *testing.T) {
	f := newFixture()
	rec := pendingRecord(domain.KindEmail, "test@example.com")
	f.store.On("FindRecent", mock.Anything, domain.KindEmail, "test@example.com", t0.Add(-5*time.Minute)).
		Return([]domain.VerificationRecord(nil), nil)
	f.store.On("Insert", mock.Anything, domain.KindEmail, "test@example.com", "203.0.113.7", "test-agent").Return(rec, nil)
	f.val.On("Validate", mock.Anything, domain.KindEmail, "test@example.com").Return(emailResult("deliverable", 0.85), nil)
	f.store.On("Update", mock.Anything, rec.VerificationID, mock.MatchedBy(func(u domain.RecordUpdate) bool {
		return *u.Status == domain.StatusVerified &&
			*u.QualityScore == 0.85 &&
			*u.RiskTier == domain.RiskLow &&
			*u.ResponseLatencyMs == 100 &&
			string(u.ValidationPayload) == rawEmail
	})).Return(nil)
	f.archive.On("StorePayload", mock.Anything, rec, []byte(rawEmail)).Return("validations/email/key.json", nil)
	f.events.On("PublishCompleted", mock.Anything, rec).Return(nil)

	out, err := f.svc.VerifyEmail(context.Background(), req("  test@example.com "))
	require.NoError(t, err)
	assert.Equal(t, domain.StatusVerified, out.Record.Status)
	assert.Equal(t, "123456", out.Record.VerificationCode)
	assert.Equal(t, 0.85, out.Score.Quality)
	assert.Equal(t, domain.RiskLow, out.Score.Tier)
	assert.Equal(t, int64(100), out.LatencyMs)
	assert.JSONEq(t, rawEmail, string(out.Validation))
	assert.Equal(t, 1, f.recorder.results["email:verified"])
	f.assertAll(t)
}

func TestVerifyEmail_UndeliverableIsFailed(t *testing.T) {
	f := newFixture()
	rec := pendingRecord(domain.KindEmail, "nobody@example.com")
	f.store.On("FindRecent", mock.Anything, domain.KindEmail, "nobody@example.com", mock.Anything).
		Return([]domain.VerificationRecord(nil), nil)
	f.store.On("Insert", mock.Anything, domain.KindEmail, "nobody@example.com", mock.Anything, mock.Anything).Return(rec, nil)
	f.val.On("Validate", mock.Anything, domain.KindEmail, "nobody@example.com").Return(emailResult("undeliverable", 0.9), nil)
	f.store.On("Update", mock.Anything, rec.VerificationID, mock.MatchedBy(func(u domain.RecordUpdate) bool {
		return *u.Status == domain.StatusFailed && *u.QualityScore == 0.1 && *u.RiskTier == domain.RiskHigh
	})).Return(nil)
	f.archive.On("StorePayload", mock.Anything, rec, mock.Anything).Return("k", nil)
	f.events.On("PublishCompleted", mock.Anything, rec).Return(nil)

	out, err := f.svc.VerifyEmail(context.Background(), req("nobody@example.com"))
	require.NoError(t, err)
	assert.Equal(t, domain.StatusFailed, out.Record.Status)
	assert.Equal(t, domain.RiskHigh, out.Score.Tier)
	f.assertAll(t)
}

func TestVerifyEmail_Empty(t *testing.T) {
	f := newFixture()
	_, err := f.svc.VerifyEmail(context.Background(), req("   "))
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
	f.store.AssertNotCalled(t, "FindRecent", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	f.val.AssertNotCalled(t, "Validate", mock.Anything, mock.Anything, mock.Anything)
	assert.Equal(t, 1, f.recorder.results["email:invalid_input"])
}

func TestVerifyEmail_RateLimited(t *testing.T) {
	f := newFixture()
	prior := *pendingRecord(domain.KindEmail, "test@example.com")
	prior.CreatedAt = t0.Add(-time.Minute)
	f.store.On("FindRecent", mock.Anything, domain.KindEmail, "test@example.com", mock.Anything).
		Return([]domain.VerificationRecord{prior}, nil)

	_, err := f.svc.VerifyEmail(context.Background(), req("test@example.com"))
	assert.ErrorIs(t, err, domain.ErrRateLimited)
	f.store.AssertNotCalled(t, "Insert", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	f.val.AssertNotCalled(t, "Validate", mock.Anything, mock.Anything, mock.Anything)
	assert.Equal(t, 1, f.recorder.results["email:rate_limited"])
	f.assertAll(t)
}

func TestVerifyEmail_InsertGuardConflict(t *testing.T) {
	f := newFixture()
	f.store.On("FindRecent", mock.Anything, domain.KindEmail, "test@example.com", mock.Anything).
		Return([]domain.VerificationRecord(nil), nil)
	f.store.On("Insert", mock.Anything, domain.KindEmail, "test@example.com", mock.Anything, mock.Anything).
		Return(nil, fmt.Errorf("concurrent insert: %w", domain.ErrRateLimited))

	_, err := f.svc.VerifyEmail(context.Background(), req("test@example.com"))
	assert.ErrorIs(t, err, domain.ErrRateLimited)
	f.val.AssertNotCalled(t, "Validate", mock.Anything, mock.Anything, mock.Anything)
	f.assertAll(t)
}

func TestVerifyEmail_FindRecentFails(t *testing.T) {
	f := newFixture()
	f.store.On("FindRecent", mock.Anything, domain.KindEmail, "test@example.com", mock.Anything).
		Return([]domain.VerificationRecord(nil), fmt.Errorf("query: %w", domain.ErrPersistence))

	_, err := f.svc.VerifyEmail(context.Background(), req("test@example.com"))
	assert.ErrorIs(t, err, domain.ErrPersistence)
	f.store.AssertNotCalled(t, "Insert", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestVerifyEmail_UpstreamFailureLeavesPending(t *testing.T) {
	f := newFixture()
	rec := pendingRecord(domain.KindEmail, "test@example.com")
	f.store.On("FindRecent", mock.Anything, domain.KindEmail, "test@example.com", mock.Anything).
		Return([]domain.VerificationRecord(nil), nil)
	f.store.On("Insert", mock.Anything, domain.KindEmail, "test@example.com", mock.Anything, mock.Anything).Return(rec, nil)
	f.val.On("Validate", mock.Anything, domain.KindEmail, "test@example.com").
		Return(nil, fmt.Errorf("%w after 3 attempts", domain.ErrServiceUnavailable))

	_, err := f.svc.VerifyEmail(context.Background(), req("test@example.com"))
	assert.ErrorIs(t, err, domain.ErrServiceUnavailable)
	f.store.AssertNotCalled(t, "Update", mock.Anything, mock.Anything, mock.Anything)
	f.archive.AssertNotCalled(t, "StorePayload", mock.Anything, mock.Anything, mock.Anything)
	f.events.AssertNotCalled(t, "PublishCompleted", mock.Anything, mock.Anything)
	assert.Equal(t, 1, f.recorder.results["email:upstream_error"])
}

func TestVerifyEmail_UpdateFails(t *testing.T) {
	f := newFixture()
	rec := pendingRecord(domain.KindEmail, "test@example.com")
	f.store.On("FindRecent", mock.Anything, domain.KindEmail, "test@example.com", mock.Anything).
		Return([]domain.VerificationRecord(nil), nil)
	f.store.On("Insert", mock.Anything, domain.KindEmail, "test@example.com", mock.Anything, mock.Anything).Return(rec, nil)
	f.val.On("Validate", mock.Anything, domain.KindEmail, "test@example.com").Return(emailResult("deliverable", 0.85), nil)
	f.store.On("Update", mock.Anything, rec.VerificationID, mock.Anything).
		Return(fmt.Errorf("update: %w", domain.ErrPersistence))

	_, err := f.svc.VerifyEmail(context.Background(), req("test@example.com"))
	assert.ErrorIs(t, err, domain.ErrPersistence)
	f.archive.AssertNotCalled(t, "StorePayload", mock.Anything, mock.Anything, mock.Anything)
	f.events.AssertNotCalled(t, "PublishCompleted", mock.Anything, mock.Anything)
}

func TestVerifyEmail_SideEffectFailuresIgnored(t *testing.T) {
	f := newFixture()
	rec := pendingRecord(domain.KindEmail, "test@example.com")
	f.store.On("FindRecent", mock.Anything, domain.KindEmail, "test@example.com", mock.Anything).
		Return([]domain.VerificationRecord(nil), nil)
	f.store.On("Insert", mock.Anything, domain.KindEmail, "test@example.com", mock.Anything, mock.Anything).Return(rec, nil)
	f.val.On("Validate", mock.Anything, domain.KindEmail, "test@example.com").Return(emailResult("deliverable", 0.85), nil)
	f.store.On("Update", mock.Anything, rec.VerificationID, mock.Anything).Return(nil)
	f.archive.On("StorePayload", mock.Anything, rec, mock.Anything).Return("", errors.New("access denied"))
	f.events.On("PublishCompleted", mock.Anything, rec).Return(errors.New("topic gone"))

	out, err := f.svc.VerifyEmail(context.Background(), req("test@example.com"))
	require.NoError(t, err)
	assert.Equal(t, domain.StatusVerified, out.Record.Status)
	f.assertAll(t)
}

func TestVerify_OptionalDepsMayBeNil(t *testing.T) {
	store, val := &mockRecordStore{}, &mockValidator{}
	svc := NewService(ServiceDeps{Records: store, Validator: val})
	rec := pendingRecord(domain.KindEmail, "test@example.com")
	store.On("FindRecent", mock.Anything, domain.KindEmail, "test@example.com", mock.Anything).
		Return([]domain.VerificationRecord(nil), nil)
	store.On("Insert", mock.Anything, domain.KindEmail, "test@example.com", mock.Anything, mock.Anything).Return(rec, nil)
	val.On("Validate", mock.Anything, domain.KindEmail, "test@example.com").Return(emailResult("deliverable", 0.85), nil)
	store.On("Update", mock.Anything, rec.VerificationID, mock.Anything).Return(nil)

	_, err := svc.VerifyEmail(context.Background(), req("test@example.com"))
	require.NoError(t, err)
	store.AssertExpectations(t)
}

// --- VerifyPhone ---

func TestVerifyPhone_Success(t *testing.T) {
	f := newFixture()
	yes := true
	rec := pendingRecord(domain.KindPhone, "+1 555 123 4567")
	raw := json.RawMessage(`{"phone":"15551234567","valid":true,"type":"Mobile"}`)
	f.store.On("FindRecent", mock.Anything, domain.KindPhone, "+1 555 123 4567", mock.Anything).
		Return([]domain.VerificationRecord(nil), nil)
	f.store.On("Insert", mock.Anything, domain.KindPhone, "+1 555 123 4567", mock.Anything, mock.Anything).Return(rec, nil)
	f.val.On("Validate", mock.Anything, domain.KindPhone, "+1 555 123 4567").Return(&domain.ValidationResult{
		Kind:  domain.KindPhone,
		Phone: &domain.PhoneValidationResult{Phone: "15551234567", Valid: &yes, Type: domain.PhoneTypeMobile},
		Raw:   raw,
	}, nil)
	f.store.On("Update", mock.Anything, rec.VerificationID, mock.MatchedBy(func(u domain.RecordUpdate) bool {
		return *u.Status == domain.StatusVerified && *u.QualityScore == 0.9 && *u.RiskTier == domain.RiskLow
	})).Return(nil)
	f.archive.On("StorePayload", mock.Anything, rec, mock.Anything).Return("k", nil)
	f.events.On("PublishCompleted", mock.Anything, rec).Return(nil)

	out, err := f.svc.VerifyPhone(context.Background(), req("+1 555 123 4567"))
	require.NoError(t, err)
	assert.Equal(t, domain.StatusVerified, out.Record.Status)
	assert.Equal(t, 0.9, out.Score.Quality)
	f.assertAll(t)
}

func TestVerifyPhone_InvalidFormat(t *testing.T) {
	for _, in := range []string{"", "abc", "12345", "+1 (555) abc-defg"} {
		t.Run(in, func(t *testing.T) {
			f := newFixture()
			_, err := f.svc.VerifyPhone(context.Background(), req(in))
			assert.ErrorIs(t, err, domain.ErrInvalidInput)
			f.store.AssertNotCalled(t, "FindRecent", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
			f.val.AssertNotCalled(t, "Validate", mock.Anything, mock.Anything, mock.Anything)
		})
	}
}

// --- Get / Stats ---

func TestGet_DelegatesToStore(t *testing.T) {
	f := newFixture()
	rec := pendingRecord(domain.KindEmail, "test@example.com")
	f.store.On("GetByID", mock.Anything, "01HZXVERIFY").Return(rec, nil)
	f.store.On("GetByID", mock.Anything, "missing").Return(nil, domain.ErrNotFound)

	got, err := f.svc.Get(context.Background(), "01HZXVERIFY")
	require.NoError(t, err)
	assert.Equal(t, rec, got)

	_, err = f.svc.Get(context.Background(), "missing")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestStats_SumsStatuses(t *testing.T) {
	f := newFixture()
	since := t0.Add(-24 * time.Hour)
	f.store.On("CountByStatus", mock.Anything, domain.StatusPending, since).Return(2, nil)
	f.store.On("CountByStatus", mock.Anything, domain.StatusVerified, since).Return(7, nil)
	f.store.On("CountByStatus", mock.Anything, domain.StatusFailed, since).Return(3, nil)

	got, err := f.svc.Stats(context.Background(), 24*time.Hour)
	require.NoError(t, err)
	assert.Equal(t, &domain.StatusCounts{Since: since, Pending: 2, Verified: 7, Failed: 3, Total: 12}, got)
}

func TestStats_RejectsNonPositiveWindow(t *testing.T) {
	f := newFixture()
	_, err := f.svc.Stats(context.Background(), 0)
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestStats_StoreError(t *testing.T) {
	f := newFixture()
	f.store.On("CountByStatus", mock.Anything, domain.StatusPending, mock.Anything).
		Return(0, fmt.Errorf("count: %w", domain.ErrPersistence))

	_, err := f.svc.Stats(context.Background(), time.Hour)
	assert.ErrorIs(t, err, domain.ErrPersistence)
}
