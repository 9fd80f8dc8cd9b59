package dynamo

import (
	"context"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/go-mail-setup/internal/config"
	"github.com/go-mail-setup/internal/infrastructure/awscfg"
)

// NewClient creates a DynamoDB client. When cfg.AWSEndpointURL is set (LocalStack),
// it overrides the endpoint so all traffic goes to the local instance.
func NewClient(cfg *config.Config) *dynamodb.Client {
	awsCfg, err := awscfg.Load(context.Background(), cfg, "")
	if err != nil {
		panic("failed to load AWS config: " + err.Error())
	}
	return dynamodb.NewFromConfig(awsCfg, func(o *dynamodb.Options) {
		o.BaseEndpoint = awscfg.Endpoint(cfg)
	})
}
