package domain

import "time"

// EmailSetup is the durable record of a completed setup attempt.
// PK: setup_id. GSI user_id-index for listing.
type EmailSetup struct {
	SetupID      string    `json:"id" dynamodbav:"setup_id"`
	UserID       string    `json:"user_id" dynamodbav:"user_id"`
	Domain       string    `json:"domain" dynamodbav:"domain"`
	Provider     Provider  `json:"provider" dynamodbav:"provider"`
	EmailName    string    `json:"email_name" dynamodbav:"email_name"`
	PrimaryEmail string    `json:"primary_email" dynamodbav:"primary_email"`
	AddUsers     bool      `json:"add_users" dynamodbav:"add_users"`
	CreatedAt    time.Time `json:"created" dynamodbav:"created_at"`
	UpdatedAt    time.Time `json:"updated" dynamodbav:"updated_at"`
}

// StartSetupRequest is the body of POST /v1/domain-setup.
type StartSetupRequest struct {
	Domain         string `json:"domain" validate:"required,domainname"`
	Provider       string `json:"provider" validate:"required,oneof=google microsoft aws"`
	EmailLocalPart string `json:"email_local_part" validate:"required,localpart"`
	GivenName      string `json:"given_name" validate:"required,max=60"`
	FamilyName     string `json:"family_name" validate:"required,max=60"`
	Password       string `json:"password" validate:"required,min=8,max=100"`
	AddUsers       bool   `json:"add_users"`
	HostedZoneID   string `json:"hosted_zone_id"`
}
