package dynamo

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/go-mail-setup/internal/config"
)

// tableActiveWait bounds how long Bootstrap waits for a new table to become ACTIVE.
const tableActiveWait = 2 * time.Minute

// Bootstrap creates all DynamoDB tables and GSIs if they don't already exist
// and waits until each is ACTIVE. Safe to call on every startup; existing
// tables are skipped. Returns the joined per-table failures.
func Bootstrap(ctx context.Context, client *dynamodb.Client, tables config.DynamoTables) error {
	errSetups := createTable(ctx, client, &dynamodb.CreateTableInput{
		TableName:   aws.String(tables.EmailSetups),
		BillingMode: types.BillingModePayPerRequest,
		AttributeDefinitions: []types.AttributeDefinition{
			{AttributeName: aws.String(fieldSetupID), AttributeType: types.ScalarAttributeTypeS},
			{AttributeName: aws.String(fieldUserID), AttributeType: types.ScalarAttributeTypeS},
		},
		KeySchema: []types.KeySchemaElement{
			{AttributeName: aws.String(fieldSetupID), KeyType: types.KeyTypeHash},
		},
		GlobalSecondaryIndexes: []types.GlobalSecondaryIndex{
			gsi(indexUserID, fieldUserID, ""),
		},
	})

	errCreds := createTable(ctx, client, &dynamodb.CreateTableInput{
		TableName:   aws.String(tables.ProviderCredentials),
		BillingMode: types.BillingModePayPerRequest,
		AttributeDefinitions: []types.AttributeDefinition{
			{AttributeName: aws.String(fieldUserID), AttributeType: types.ScalarAttributeTypeS},
			{AttributeName: aws.String(fieldProvider), AttributeType: types.ScalarAttributeTypeS},
		},
		KeySchema: []types.KeySchemaElement{
			{AttributeName: aws.String(fieldUserID), KeyType: types.KeyTypeHash},
			{AttributeName: aws.String(fieldProvider), KeyType: types.KeyTypeRange},
		},
	})
	return errors.Join(errSetups, errCreds)
}

// gsi builds a GSI descriptor. If sortKey is empty, only a hash key is added.
func gsi(indexName, hashKey, sortKey string) types.GlobalSecondaryIndex {
	ks := []types.KeySchemaElement{
		{AttributeName: aws.String(hashKey), KeyType: types.KeyTypeHash},
	}
	if sortKey != "" {
		ks = append(ks, types.KeySchemaElement{
			AttributeName: aws.String(sortKey), KeyType: types.KeyTypeRange,
		})
	}
	return types.GlobalSecondaryIndex{
		IndexName:  aws.String(indexName),
		KeySchema:  ks,
		Projection: &types.Projection{ProjectionType: types.ProjectionTypeAll},
	}
}

func createTable(ctx context.Context, client *dynamodb.Client, input *dynamodb.CreateTableInput) error {
	name := aws.ToString(input.TableName)
	if _, err := client.CreateTable(ctx, input); err != nil {
		// ResourceInUseException means the table already exists.
		var riue *types.ResourceInUseException
		if errors.As(err, &riue) {
			return nil
		}
		slog.Warn("could not create table", "table", name, "err", err)
		return fmt.Errorf("create table %s: %w", name, err)
	}
	waiter := dynamodb.NewTableExistsWaiter(client)
	if err := waiter.Wait(ctx, &dynamodb.DescribeTableInput{TableName: input.TableName}, tableActiveWait); err != nil {
		return fmt.Errorf("wait for table %s: %w", name, err)
	}
	slog.Info("created table", "table", name)
	return nil
}
