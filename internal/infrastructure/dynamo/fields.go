package dynamo

// DynamoDB attribute names of the push table.
const (
	fieldKey       = "kv_key"
	fieldExpiresAt = "expires_at"
)
