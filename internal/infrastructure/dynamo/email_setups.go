package dynamo

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/go-mail-setup/internal/domain"
)

// EmailSetupRepo provides typed DynamoDB operations for the email_setups table.
// PK: setup_id. GSI: user_id-index.
type EmailSetupRepo struct {
	client    *dynamodb.Client
	tableName string
}

func NewEmailSetupRepo(client *dynamodb.Client, tableName string) *EmailSetupRepo {
	return &EmailSetupRepo{client: client, tableName: tableName}
}

// Put writes s. The setup ID is the attempt ID, so repeating a put after an
// ambiguous failure overwrites the same item instead of duplicating it.
func (r *EmailSetupRepo) Put(ctx context.Context, s *domain.EmailSetup) error {
	item, err := attributevalue.MarshalMap(s)
	if err != nil {
		return fmt.Errorf("marshal email setup: %w", err)
	}
	_, err = r.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(r.tableName),
		Item:      item,
	})
	return err
}

// Ping confirms the table is reachable and active.
func (r *EmailSetupRepo) Ping(ctx context.Context) error {
	out, err := r.client.DescribeTable(ctx, &dynamodb.DescribeTableInput{TableName: aws.String(r.tableName)})
	if err != nil {
		return err
	}
	if out.Table.TableStatus != types.TableStatusActive {
		return fmt.Errorf("table %s is %s", r.tableName, out.Table.TableStatus)
	}
	return nil
}

func (r *EmailSetupRepo) Get(ctx context.Context, setupID string) (*domain.EmailSetup, error) {
	out, err := r.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(r.tableName),
		Key:       strKey(fieldSetupID, setupID),
	})
	if err != nil {
		return nil, err
	}
	if out.Item == nil {
		return nil, fmt.Errorf("email setup not found: %w", domain.ErrNotFound)
	}
	var s domain.EmailSetup
	if err := attributevalue.UnmarshalMap(out.Item, &s); err != nil {
		return nil, err
	}
	return &s, nil
}

// ListByUser returns every setup owned by userID via the user_id-index GSI.
func (r *EmailSetupRepo) ListByUser(ctx context.Context, userID string) ([]domain.EmailSetup, error) {
	p := dynamodb.NewQueryPaginator(r.client, &dynamodb.QueryInput{
		TableName:              aws.String(r.tableName),
		IndexName:              aws.String(indexUserID),
		KeyConditionExpression: aws.String("user_id = :uid"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":uid": &types.AttributeValueMemberS{Value: userID},
		},
	})
	setups := []domain.EmailSetup{}
	for p.HasMorePages() {
		out, err := p.NextPage(ctx)
		if err != nil {
			return nil, err
		}
		var page []domain.EmailSetup
		if err := attributevalue.UnmarshalListOfMaps(out.Items, &page); err != nil {
			return nil, err
		}
		setups = append(setups, page...)
	}
	return setups, nil
}
