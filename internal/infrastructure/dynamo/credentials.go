package dynamo

import (
	"context"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/go-mail-setup/internal/domain"
)

// CredentialRepo stores provider OAuth tokens per (user, provider).
// PK: user_id, SK: provider. Token values arrive already sealed.
type CredentialRepo struct {
	client    *dynamodb.Client
	tableName string
}

func NewCredentialRepo(client *dynamodb.Client, tableName string) *CredentialRepo {
	return &CredentialRepo{client: client, tableName: tableName}
}

func (r *CredentialRepo) Put(ctx context.Context, c *domain.ProviderCredential) error {
	item, err := attributevalue.MarshalMap(c)
	if err != nil {
		return fmt.Errorf("marshal credential: %w", err)
	}
	_, err = r.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(r.tableName),
		Item:      item,
	})
	return err
}

func (r *CredentialRepo) Get(ctx context.Context, userID string, provider domain.Provider) (*domain.ProviderCredential, error) {
	out, err := r.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(r.tableName),
		Key:       compositeKey(fieldUserID, userID, fieldProvider, string(provider)),
	})
	if err != nil {
		return nil, err
	}
	if out.Item == nil {
		return nil, fmt.Errorf("credential not found: %w", domain.ErrNotFound)
	}
	var c domain.ProviderCredential
	if err := attributevalue.UnmarshalMap(out.Item, &c); err != nil {
		return nil, err
	}
	return &c, nil
}

// UpdateTokens records a refreshed (sealed) access token and its expiry. An
// empty sealedRefresh keeps the stored refresh token.
func (r *CredentialRepo) UpdateTokens(ctx context.Context, userID string, provider domain.Provider, sealedAccess, sealedRefresh string, expiry time.Time) error {
	fields := map[string]interface{}{
		fieldAccessToken: sealedAccess,
		fieldExpiry:      expiry.UTC(),
		fieldUpdatedAt:   time.Now().UTC(),
	}
	if sealedRefresh != "" {
		fields[fieldRefreshToken] = sealedRefresh
	}
	ue, err := buildUpdateExpr(fields)
	if err != nil {
		return err
	}
	_, err = r.client.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName:                 aws.String(r.tableName),
		Key:                       compositeKey(fieldUserID, userID, fieldProvider, string(provider)),
		UpdateExpression:          aws.String(ue.Expr),
		ExpressionAttributeNames:  ue.Names,
		ExpressionAttributeValues: ue.Values,
	})
	return err
}
