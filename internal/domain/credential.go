package domain

import "time"

// ProviderCredential is an OAuth token set obtained by the connect flow.
// PK: user_id, SK: provider. Token fields hold secretbox-sealed, base64 text.
type ProviderCredential struct {
	UserID       string    `json:"user_id" dynamodbav:"user_id"`
	Provider     Provider  `json:"provider" dynamodbav:"provider"`
	AccessToken  string    `json:"-" dynamodbav:"access_token"`
	RefreshToken string    `json:"-" dynamodbav:"refresh_token"`
	Expiry       time.Time `json:"expiry" dynamodbav:"expiry"`
	UpdatedAt    time.Time `json:"updated" dynamodbav:"updated_at"`
}
