package s3infra

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/go-mail-setup/internal/config"
	"github.com/go-mail-setup/internal/domain"
	"github.com/go-mail-setup/internal/infrastructure/awscfg"
)

type objectAPI interface {
	PutObject(ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// RolloutArchive keeps an audit copy of every record set written to a zone.
type RolloutArchive struct {
	client objectAPI
	bucket string
}

// Rollout is the archived document.
type Rollout struct {
	AttemptID string                  `json:"attempt_id"`
	Domain    string                  `json:"domain"`
	Provider  domain.Provider         `json:"provider"`
	ZoneID    string                  `json:"zone_id"`
	Records   []domain.ResourceRecord `json:"records"`
	Receipt   domain.ChangeReceipt    `json:"receipt"`
}

// NewClient creates an S3 client. When cfg.AWSEndpointURL is set (LocalStack),
// it overrides the endpoint and enables path-style addressing.
func NewClient(ctx context.Context, cfg *config.Config) (*s3.Client, error) {
	awsCfg, err := awscfg.Load(ctx, cfg, "")
	if err != nil {
		return nil, fmt.Errorf("load AWS config for S3: %w", err)
	}
	clientOpts := []func(*s3.Options){}
	if cfg.AWSEndpointURL != "" {
		clientOpts = append(clientOpts, func(o *s3.Options) {
			o.BaseEndpoint = aws.String(cfg.AWSEndpointURL)
			o.UsePathStyle = true
		})
	}
	return s3.NewFromConfig(awsCfg, clientOpts...), nil
}

func NewRolloutArchive(client objectAPI, bucket string) *RolloutArchive {
	return &RolloutArchive{client: client, bucket: bucket}
}

// Key is rollouts/<domain>/<attempt>.json.
func Key(r Rollout) string {
	return fmt.Sprintf("rollouts/%s/%s.json", r.Domain, r.AttemptID)
}

// Store writes r and returns its s3:// location.
func (a *RolloutArchive) Store(ctx context.Context, r Rollout) (string, error) {
	body, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshal rollout: %w", err)
	}
	key := Key(r)
	_, err = a.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(a.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(body),
		ContentType: aws.String("application/json"),
		Metadata: map[string]string{
			"provider":    string(r.Provider),
			"archived-at": time.Now().UTC().Format(time.RFC3339),
		},
	})
	if err != nil {
		return "", fmt.Errorf("s3 put object: %w", err)
	}
	return fmt.Sprintf("s3://%s/%s", a.bucket, key), nil
}
