package sns

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sns"
	"github.com/go-mail-setup/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSNS struct {
	inputs []*sns.PublishInput
	err    error
}

func (f *fakeSNS) Publish(_ context.Context, in *sns.PublishInput, _ ...func(*sns.Options)) (*sns.PublishOutput, error) {
	f.inputs = append(f.inputs, in)
	if f.err != nil {
		return nil, f.err
	}
	return &sns.PublishOutput{MessageId: aws.String("m-1")}, nil
}

func TestPublish_SendsEventWithAttributes(t *testing.T) {
	api := &fakeSNS{}
	p := NewEventPublisher(api, "arn:aws:sns:us-east-1:123:setup-events")
	ev := domain.StatusEvent{AttemptID: "a1", Stage: domain.StagePollingVerification, Status: domain.EventProcessing, At: time.Now()}

	require.NoError(t, p.Publish(context.Background(), ev))
	require.Len(t, api.inputs, 1)

	in := api.inputs[0]
	assert.Equal(t, "arn:aws:sns:us-east-1:123:setup-events", aws.ToString(in.TopicArn))
	assert.Equal(t, "verification", aws.ToString(in.MessageAttributes["stage"].StringValue))
	assert.Equal(t, "processing", aws.ToString(in.MessageAttributes["status"].StringValue))

	var got domain.StatusEvent
	require.NoError(t, json.Unmarshal([]byte(aws.ToString(in.Message)), &got))
	assert.Equal(t, "a1", got.AttemptID)
}

func TestPublish_WrapsError(t *testing.T) {
	api := &fakeSNS{err: errors.New("boom")}
	err := NewEventPublisher(api, "arn").Publish(context.Background(), domain.StatusEvent{})
	assert.ErrorContains(t, err, "sns publish")
}
