package dynamo

// DynamoDB attribute names used in keys and update expressions across all repos.
// Using constants prevents silent runtime bugs caused by key typos.
const (
	fieldSetupID      = "setup_id"
	fieldUserID       = "user_id"
	fieldProvider     = "provider"
	fieldAccessToken  = "access_token"
	fieldRefreshToken = "refresh_token"
	fieldExpiry       = "expiry"
	fieldUpdatedAt    = "updated_at"

	indexUserID = "user_id-index"
)
