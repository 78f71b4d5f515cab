package dynamo

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/go-verify-api/internal/domain"
	"github.com/go-verify-api/internal/pkg/id"
	"github.com/go-verify-api/internal/pkg/token"
)

// verificationGuard claims a (kind, value, window bucket) slot.
// ExpiresAt is a Unix timestamp used as DynamoDB TTL.
type verificationGuard struct {
	GuardKey       string `dynamodbav:"guard_key"`
	VerificationID string `dynamodbav:"verification_id"`
	ExpiresAt      int64  `dynamodbav:"expires_at"`
}

// VerificationRepo provides typed DynamoDB operations for verification records.
// PK: verification_id. Records are never deleted.
type VerificationRepo struct {
	client     API
	tableName  string
	guardTable string
	window     time.Duration
	now        func() time.Time
}

// NewVerificationRepo creates a repo over the records table and its guard table.
// window is the rate-limit window used to bucket guard items.
func NewVerificationRepo(client API, tableName, guardTable string, window time.Duration) *VerificationRepo {
	return &VerificationRepo{
		client:     client,
		tableName:  tableName,
		guardTable: guardTable,
		window:     window,
		now:        func() time.Time { return time.Now().UTC() },
	}
}

// Insert creates a pending record with a fresh id and verification code.
// The record and a guard item for the current window bucket are written in one
// transaction; if the guard already exists the insert fails with ErrRateLimited.
func (r *VerificationRepo) Insert(ctx context.Context, kind domain.Kind, value, requesterIP, requesterAgent string) (*domain.VerificationRecord, error) {
	code, err := token.NewVerificationCode()
	if err != nil {
		return nil, err
	}
	now := r.now()
	rec := &domain.VerificationRecord{
		VerificationID:   id.NewAt(now),
		Kind:             kind,
		Value:            value,
		KindValue:        domain.KindValueKey(kind, value),
		Status:           domain.StatusPending,
		VerificationCode: code,
		RequesterIP:      requesterIP,
		RequesterAgent:   requesterAgent,
		CreatedAtMs:      now.UnixMilli(),
		CreatedAt:        now,
		UpdatedAt:        now,
	}
	item, err := attributevalue.MarshalMap(rec)
	if err != nil {
		return nil, fmt.Errorf("marshal verification: %w", err)
	}
	guard, err := attributevalue.MarshalMap(r.guardFor(rec, now))
	if err != nil {
		return nil, fmt.Errorf("marshal verification guard: %w", err)
	}

	_, err = r.client.TransactWriteItems(ctx, &dynamodb.TransactWriteItemsInput{
		TransactItems: []types.TransactWriteItem{
			{Put: &types.Put{
				TableName:           aws.String(r.guardTable),
				Item:                guard,
				ConditionExpression: aws.String("attribute_not_exists(" + fieldGuardKey + ")"),
			}},
			{Put: &types.Put{
				TableName: aws.String(r.tableName),
				Item:      item,
			}},
		},
	})
	if err != nil {
		if isConditionalCancel(err) {
			return nil, fmt.Errorf("%s already requested in this window: %w", kind, domain.ErrRateLimited)
		}
		return nil, fmt.Errorf("insert verification: %v: %w", err, domain.ErrPersistence)
	}
	return rec, nil
}

func (r *VerificationRepo) guardFor(rec *domain.VerificationRecord, now time.Time) verificationGuard {
	bucket := now.UnixMilli() / r.window.Milliseconds()
	return verificationGuard{
		GuardKey:       rec.KindValue + "#" + strconv.FormatInt(bucket, 10),
		VerificationID: rec.VerificationID,
		ExpiresAt:      now.Add(2 * r.window).Unix(),
	}
}

// FindRecent returns records for (kind, value) created at or after since,
// newest first.
func (r *VerificationRepo) FindRecent(ctx context.Context, kind domain.Kind, value string, since time.Time) ([]domain.VerificationRecord, error) {
	in := &dynamodb.QueryInput{
		TableName:              aws.String(r.tableName),
		IndexName:              aws.String(indexKindValueCreatedAt),
		KeyConditionExpression: aws.String("kind_value = :kv AND created_at_ms >= :since"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":kv":    &types.AttributeValueMemberS{Value: domain.KindValueKey(kind, value)},
			":since": &types.AttributeValueMemberN{Value: strconv.FormatInt(since.UnixMilli(), 10)},
		},
		ScanIndexForward: aws.Bool(false),
	}
	var records []domain.VerificationRecord
	for {
		out, err := r.client.Query(ctx, in)
		if err != nil {
			return nil, fmt.Errorf("query recent verifications: %v: %w", err, domain.ErrPersistence)
		}
		var page []domain.VerificationRecord
		if err := attributevalue.UnmarshalListOfMaps(out.Items, &page); err != nil {
			return nil, fmt.Errorf("unmarshal verifications: %w", err)
		}
		records = append(records, page...)
		if len(out.LastEvaluatedKey) == 0 {
			return records, nil
		}
		in.ExclusiveStartKey = out.LastEvaluatedKey
	}
}

// Update applies a partial update and advances updated_at. An unknown id is
// ignored.
func (r *VerificationRepo) Update(ctx context.Context, verificationID string, upd domain.RecordUpdate) error {
	updates := map[string]interface{}{
		fieldUpdatedAt: r.now(),
	}
	if upd.Status != nil {
		updates[fieldStatus] = *upd.Status
	}
	if upd.ValidationPayload != nil {
		updates[fieldValidationPayload] = []byte(upd.ValidationPayload)
	}
	if upd.ResponseLatencyMs != nil {
		updates[fieldResponseLatencyMs] = *upd.ResponseLatencyMs
	}
	if upd.QualityScore != nil {
		updates[fieldQualityScore] = *upd.QualityScore
	}
	if upd.RiskTier != nil {
		updates[fieldRiskTier] = *upd.RiskTier
	}
	ue, err := buildUpdateExpr(updates)
	if err != nil {
		return err
	}
	_, err = r.client.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName:                 aws.String(r.tableName),
		Key:                       strKey(fieldVerificationID, verificationID),
		UpdateExpression:          aws.String(ue.Expr),
		ConditionExpression:       aws.String("attribute_exists(" + fieldVerificationID + ")"),
		ExpressionAttributeNames:  ue.Names,
		ExpressionAttributeValues: ue.Values,
	})
	if err != nil {
		var ccf *types.ConditionalCheckFailedException
		if errors.As(err, &ccf) {
			slog.Warn("update skipped for unknown verification", "verification_id", verificationID)
			return nil
		}
		return fmt.Errorf("update verification: %v: %w", err, domain.ErrPersistence)
	}
	return nil
}

// GetByID returns the record or an ErrNotFound-wrapped error.
func (r *VerificationRepo) GetByID(ctx context.Context, verificationID string) (*domain.VerificationRecord, error) {
	out, err := r.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(r.tableName),
		Key:       strKey(fieldVerificationID, verificationID),
	})
	if err != nil {
		return nil, fmt.Errorf("get verification: %v: %w", err, domain.ErrPersistence)
	}
	if out.Item == nil {
		return nil, fmt.Errorf("verification not found: %w", domain.ErrNotFound)
	}
	var rec domain.VerificationRecord
	if err := attributevalue.UnmarshalMap(out.Item, &rec); err != nil {
		return nil, err
	}
	return &rec, nil
}

// CountByStatus counts records with status created at or after since.
func (r *VerificationRepo) CountByStatus(ctx context.Context, status domain.Status, since time.Time) (int, error) {
	in := &dynamodb.QueryInput{
		TableName:              aws.String(r.tableName),
		IndexName:              aws.String(indexStatusCreatedAt),
		KeyConditionExpression: aws.String("#s = :s AND created_at_ms >= :since"),
		ExpressionAttributeNames: map[string]string{
			"#s": fieldStatus, // reserved word
		},
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":s":     &types.AttributeValueMemberS{Value: string(status)},
			":since": &types.AttributeValueMemberN{Value: strconv.FormatInt(since.UnixMilli(), 10)},
		},
		Select: types.SelectCount,
	}
	total := 0
	for {
		out, err := r.client.Query(ctx, in)
		if err != nil {
			return 0, fmt.Errorf("count verifications: %v: %w", err, domain.ErrPersistence)
		}
		total += int(out.Count)
		if len(out.LastEvaluatedKey) == 0 {
			return total, nil
		}
		in.ExclusiveStartKey = out.LastEvaluatedKey
	}
}

// isConditionalCancel reports whether a transaction was cancelled because a
// condition check failed.
func isConditionalCancel(err error) bool {
	var tce *types.TransactionCanceledException
	if !errors.As(err, &tce) {
		return false
	}
	for _, reason := range tce.CancellationReasons {
		if aws.ToString(reason.Code) == "ConditionalCheckFailed" {
			return true
		}
	}
	return false
}
