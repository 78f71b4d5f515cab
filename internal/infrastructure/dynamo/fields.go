package dynamo

// DynamoDB attribute names used in keys, indexes and update expressions.
// Using constants prevents silent runtime bugs caused by key typos.
const (
	fieldVerificationID    = "verification_id"
	fieldKindValue         = "kind_value"
	fieldCreatedAtMs       = "created_at_ms"
	fieldStatus            = "status"
	fieldValidationPayload = "validation_payload"
	fieldResponseLatencyMs = "response_latency_ms"
	fieldQualityScore      = "quality_score"
	fieldRiskTier          = "risk_tier"
	fieldUpdatedAt         = "updated_at"
	fieldGuardKey          = "guard_key"
	fieldExpiresAt         = "expires_at"
)

// Secondary index names on the verifications table.
const (
	indexKindValueCreatedAt = "kind_value-created_at_ms-index"
	indexStatusCreatedAt    = "status-created_at_ms-index"
)
