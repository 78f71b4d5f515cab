package s3infra

import (
	"bytes"
	"context"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/go-verify-api/internal/config"
	"github.com/go-verify-api/internal/domain"
)

type putObjectAPI interface {
	PutObject(ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// Archive writes raw validation payloads to S3 for long-term audit.
type Archive struct {
	client putObjectAPI
	bucket string
}

// NewClient creates an S3 client. When cfg.AWSEndpointURL is set (LocalStack),
// it overrides the endpoint and enables path-style addressing.
func NewClient(cfg *config.Config) *s3.Client {
	opts := []func(*awsconfig.LoadOptions) error{
		awsconfig.WithRegion(cfg.AWSRegion),
	}

	if cfg.AWSAccessKeyID != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AWSAccessKeyID, cfg.AWSSecretKey, ""),
		))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(context.Background(), opts...)
	if err != nil {
		panic("failed to load AWS config for S3: " + err.Error())
	}

	clientOpts := []func(*s3.Options){}
	if cfg.AWSEndpointURL != "" {
		clientOpts = append(clientOpts, func(o *s3.Options) {
			o.BaseEndpoint = aws.String(cfg.AWSEndpointURL)
			o.UsePathStyle = true
		})
	}

	return s3.NewFromConfig(awsCfg, clientOpts...)
}

// NewArchive creates an Archive with the given S3 client and bucket name.
func NewArchive(client putObjectAPI, bucket string) *Archive {
	return &Archive{client: client, bucket: bucket}
}

// PayloadKey is validations/<kind>/<yyyy>/<mm>/<dd>/<id>.json, partitioned by creation day.
func PayloadKey(kind domain.Kind, verificationID string, createdAt time.Time) string {
	return fmt.Sprintf("validations/%s/%s/%s.json", kind, createdAt.UTC().Format("2006/01/02"), verificationID)
}

// StorePayload uploads payload for the record and returns the object URL.
func (a *Archive) StorePayload(ctx context.Context, rec *domain.VerificationRecord, payload []byte) (string, error) {
	key := PayloadKey(rec.Kind, rec.VerificationID, rec.CreatedAt)
	_, err := a.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(a.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(payload),
		ContentType: aws.String("application/json"),
	})
	if err != nil {
		return "", fmt.Errorf("s3 put object: %w", err)
	}
	return fmt.Sprintf("s3://%s/%s", a.bucket, key), nil
}
