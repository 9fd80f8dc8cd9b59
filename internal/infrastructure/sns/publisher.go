package sns

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sns"
	"github.com/aws/aws-sdk-go-v2/service/sns/types"
	"github.com/go-mail-setup/internal/config"
	"github.com/go-mail-setup/internal/domain"
	"github.com/go-mail-setup/internal/infrastructure/awscfg"
)

type publishAPI interface {
	Publish(ctx context.Context, in *sns.PublishInput, optFns ...func(*sns.Options)) (*sns.PublishOutput, error)
}

// EventPublisher fans setup status events out to an SNS topic so other
// services (notifications, billing) can follow a rollout.
type EventPublisher struct {
	api      publishAPI
	topicARN string
}

func NewClient(ctx context.Context, cfg *config.Config) (*sns.Client, error) {
	awsCfg, err := awscfg.Load(ctx, cfg, "")
	if err != nil {
		return nil, err
	}
	return sns.NewFromConfig(awsCfg, func(o *sns.Options) {
		o.BaseEndpoint = awscfg.Endpoint(cfg)
	}), nil
}

func NewEventPublisher(api publishAPI, topicARN string) *EventPublisher {
	return &EventPublisher{api: api, topicARN: topicARN}
}

// Publish sends ev as JSON. Stage and status travel as message attributes so
// subscribers can filter without parsing the body.
func (p *EventPublisher) Publish(ctx context.Context, ev domain.StatusEvent) error {
	body, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("marshal status event: %w", err)
	}
	_, err = p.api.Publish(ctx, &sns.PublishInput{
		TopicArn: aws.String(p.topicARN),
		Message:  aws.String(string(body)),
		Subject:  aws.String("email setup " + string(ev.Stage)),
		MessageAttributes: map[string]types.MessageAttributeValue{
			"stage":  {DataType: aws.String("String"), StringValue: aws.String(string(ev.Stage))},
			"status": {DataType: aws.String("String"), StringValue: aws.String(string(ev.Status))},
		},
	})
	if err != nil {
		return fmt.Errorf("sns publish: %w", err)
	}
	return nil
}
