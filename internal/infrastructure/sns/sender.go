package sns

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/sns"
	"github.com/aws/aws-sdk-go-v2/service/sns/types"
	"github.com/go-verify-api/internal/config"
	"github.com/go-verify-api/internal/domain"
)

const eventVerificationCompleted = "verification.completed"

// Publisher emits verification lifecycle events.
type Publisher interface {
	PublishCompleted(ctx context.Context, rec *domain.VerificationRecord) error
}

type publishAPI interface {
	Publish(ctx context.Context, in *sns.PublishInput, optFns ...func(*sns.Options)) (*sns.PublishOutput, error)
}

type publisher struct {
	client   publishAPI
	topicARN string
}

// CompletedEvent is the JSON message body. It never includes the validation
// payload or the verification code.
type CompletedEvent struct {
	Event          string           `json:"event"`
	VerificationID string           `json:"verification_id"`
	Kind           domain.Kind      `json:"kind"`
	Status         domain.Status    `json:"status"`
	QualityScore   *float64         `json:"quality_score,omitempty"`
	RiskTier       *domain.RiskTier `json:"risk_tier,omitempty"`
	LatencyMs      *int64           `json:"latency_ms,omitempty"`
}

func NewPublisher(cfg *config.Config) (Publisher, error) {
	awsCfg, err := awsconfig.LoadDefaultConfig(context.Background(),
		awsconfig.WithRegion(cfg.SNSRegion),
	)
	if err != nil {
		return nil, err
	}
	return newPublisher(sns.NewFromConfig(awsCfg), cfg.SNSTopicARN), nil
}

func newPublisher(client publishAPI, topicARN string) *publisher {
	return &publisher{client: client, topicARN: topicARN}
}

func (p *publisher) PublishCompleted(ctx context.Context, rec *domain.VerificationRecord) error {
	body, err := json.Marshal(CompletedEvent{
		Event:          eventVerificationCompleted,
		VerificationID: rec.VerificationID,
		Kind:           rec.Kind,
		Status:         rec.Status,
		QualityScore:   rec.QualityScore,
		RiskTier:       rec.RiskTier,
		LatencyMs:      rec.ResponseLatencyMs,
	})
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}
	_, err = p.client.Publish(ctx, &sns.PublishInput{
		TopicArn: aws.String(p.topicARN),
		Message:  aws.String(string(body)),
		MessageAttributes: map[string]types.MessageAttributeValue{
			"event": {DataType: aws.String("String"), StringValue: aws.String(eventVerificationCompleted)},
			"kind":  {DataType: aws.String("String"), StringValue: aws.String(string(rec.Kind))},
		},
	})
	return err
}
