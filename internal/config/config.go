package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all runtime configuration loaded from environment variables.
type Config struct {
	AppPort        string
	AppEnv         string
	AWSRegion      string
	AWSEndpointURL string // empty in prod, set to LocalStack URL in dev
	AWSAccessKeyID string
	AWSSecretKey   string
	DynamoTables   DynamoTables

	EmailValidationAPIKey string
	PhoneValidationAPIKey string
	EmailValidationURL    string
	PhoneValidationURL    string
	AttemptTimeout        time.Duration // per upstream attempt
	MaxAttempts           int
	RequestTimeout        time.Duration // end-to-end deadline on verify routes
	RateLimitWindow       time.Duration

	S3ArchiveBucket string // optional, disables the payload archive when empty
	SNSRegion       string
	SNSTopicARN     string // optional, disables completion events when empty

	JWTPrivateKeyPath string
	JWTPublicKeyPath  string
	JWTExpiry         time.Duration

	AllowedOrigins []string // CORS allowed origins
}

// DynamoTables holds the DynamoDB table name for each entity.
type DynamoTables struct {
	Verifications      string
	VerificationGuards string
}

// Load reads all configuration from environment variables.
func Load() *Config {
	return &Config{
		AppPort:        getEnv("APP_PORT", "3000"),
		AppEnv:         getEnv("APP_ENV", "development"),
		AWSRegion:      getEnv("AWS_REGION", "us-east-1"),
		AWSEndpointURL: getEnv("AWS_ENDPOINT_URL", ""),
		AWSAccessKeyID: getEnv("AWS_ACCESS_KEY_ID", ""),
		AWSSecretKey:   getEnv("AWS_SECRET_ACCESS_KEY", ""),
		DynamoTables: DynamoTables{
			Verifications:      getEnv("DYNAMO_TABLE_VERIFICATIONS", "verifications"),
			VerificationGuards: getEnv("DYNAMO_TABLE_VERIFICATION_GUARDS", "verification_guards"),
		},
		EmailValidationAPIKey: getEnv("EMAIL_VALIDATION_API_KEY", ""),
		PhoneValidationAPIKey: getEnv("PHONE_VALIDATION_API_KEY", ""),
		EmailValidationURL:    getEnv("EMAIL_VALIDATION_URL", "https://emailreputation.abstractapi.com/v1/"),
		PhoneValidationURL:    getEnv("PHONE_VALIDATION_URL", "https://phonevalidation.abstractapi.com/v1/"),
		AttemptTimeout:        getEnvDuration("VALIDATION_ATTEMPT_TIMEOUT", 10*time.Second),
		MaxAttempts:           getEnvInt("VALIDATION_MAX_ATTEMPTS", 3),
		RequestTimeout:        getEnvDuration("VERIFY_REQUEST_TIMEOUT", 15*time.Second),
		RateLimitWindow:       getEnvDuration("RATE_LIMIT_WINDOW", 5*time.Minute),
		S3ArchiveBucket:       getEnv("S3_ARCHIVE_BUCKET", ""),
		SNSRegion:             getEnv("SNS_REGION", "us-east-1"),
		SNSTopicARN:           getEnv("SNS_TOPIC_ARN", ""),
		JWTPrivateKeyPath:     getEnv("JWT_PRIVATE_KEY_PATH", "./private_key.pem"),
		JWTPublicKeyPath:      getEnv("JWT_PUBLIC_KEY_PATH", "./public_key.pem"),
		JWTExpiry:             getEnvDuration("JWT_EXPIRY", 24*time.Hour),
		AllowedOrigins:        strings.Split(getEnv("ALLOWED_ORIGINS", "*"), ","),
	}
}

// Warnings lists configuration faults that do not prevent startup.
// Verification calls for a kind with a missing key fail at first use.
func (c *Config) Warnings() []string {
	var out []string
	if c.EmailValidationAPIKey == "" {
		out = append(out, "EMAIL_VALIDATION_API_KEY is not set; email verification will fail")
	}
	if c.PhoneValidationAPIKey == "" {
		out = append(out, "PHONE_VALIDATION_API_KEY is not set; phone verification will fail")
	}
	return out
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}
