package route53infra

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/route53"
	"github.com/aws/aws-sdk-go-v2/service/route53/types"
	"github.com/aws/smithy-go"
	"github.com/go-mail-setup/internal/config"
	"github.com/go-mail-setup/internal/domain"
	"github.com/go-mail-setup/internal/infrastructure/awscfg"
	"golang.org/x/time/rate"
)

// maxTXTChunk is the longest character-string a TXT record may carry.
const maxTXTChunk = 255

type changeAPI interface {
	ChangeResourceRecordSets(ctx context.Context, in *route53.ChangeResourceRecordSetsInput, optFns ...func(*route53.Options)) (*route53.ChangeResourceRecordSetsOutput, error)
}

// Publisher upserts record sets into a Route53 hosted zone. Every call is one
// atomic change batch, so record order inside a rollout cannot be observed.
type Publisher struct {
	api         changeAPI
	limiter     *rate.Limiter
	callTimeout time.Duration
}

// NewClient creates a Route53 client with SDK retries disabled; the setup
// pipeline owns retry and backoff for zone changes.
func NewClient(ctx context.Context, cfg *config.Config) (*route53.Client, error) {
	awsCfg, err := awscfg.Load(ctx, cfg, "")
	if err != nil {
		return nil, fmt.Errorf("load AWS config: %w", err)
	}
	return route53.NewFromConfig(awsCfg, func(o *route53.Options) {
		o.RetryMaxAttempts = 1
		o.BaseEndpoint = awscfg.Endpoint(cfg)
	}), nil
}

// NewPublisher paces change requests at perSecond (Route53 allows five per
// second per account) and bounds each call by callTimeout.
func NewPublisher(api changeAPI, perSecond float64, callTimeout time.Duration) *Publisher {
	if perSecond <= 0 {
		perSecond = 5
	}
	if callTimeout <= 0 {
		callTimeout = 10 * time.Second
	}
	return &Publisher{
		api:         api,
		limiter:     rate.NewLimiter(rate.Limit(perSecond), 1),
		callTimeout: callTimeout,
	}
}

// Upsert applies recs to zoneID with UPSERT semantics per (name, type).
func (p *Publisher) Upsert(ctx context.Context, zoneID string, recs []domain.ResourceRecord) (domain.ChangeReceipt, error) {
	if zoneID == "" {
		return domain.ChangeReceipt{}, &domain.DNSProviderError{Kind: domain.DNSErrorPermanent, Op: "upsert", Err: errors.New("no hosted zone configured")}
	}
	if len(recs) == 0 {
		return domain.ChangeReceipt{}, nil
	}
	if err := p.limiter.Wait(ctx); err != nil {
		return domain.ChangeReceipt{}, &domain.DNSProviderError{Kind: domain.DNSErrorTransient, Op: "upsert", Err: err}
	}

	callCtx, cancel := context.WithTimeout(ctx, p.callTimeout)
	defer cancel()

	recs = dedupe(recs)
	out, err := p.api.ChangeResourceRecordSets(callCtx, &route53.ChangeResourceRecordSetsInput{
		HostedZoneId: aws.String(zoneID),
		ChangeBatch: &types.ChangeBatch{
			Comment: aws.String(comment(recs)),
			Changes: toChanges(recs),
		},
	})
	if err != nil {
		return domain.ChangeReceipt{}, classify("upsert", err)
	}
	receipt := domain.ChangeReceipt{Records: len(recs), SubmittedAt: time.Now().UTC()}
	if ci := out.ChangeInfo; ci != nil {
		receipt.ChangeID = aws.ToString(ci.Id)
		receipt.Status = string(ci.Status)
		if ci.SubmittedAt != nil {
			receipt.SubmittedAt = *ci.SubmittedAt
		}
	}
	return receipt, nil
}

// dedupe keeps the last record for each (name, type); Route53 rejects a batch
// that touches the same record set twice.
func dedupe(recs []domain.ResourceRecord) []domain.ResourceRecord {
	idx := make(map[string]int, len(recs))
	out := make([]domain.ResourceRecord, 0, len(recs))
	for _, r := range recs {
		if i, ok := idx[r.Key()]; ok {
			out[i] = r
			continue
		}
		idx[r.Key()] = len(out)
		out = append(out, r)
	}
	return out
}

func comment(recs []domain.ResourceRecord) string {
	for _, r := range recs {
		if r.Family != domain.FamilyVerification {
			return "Email DNS records"
		}
	}
	return "Domain verification record"
}

func toChanges(recs []domain.ResourceRecord) []types.Change {
	changes := make([]types.Change, 0, len(recs))
	for _, r := range recs {
		values := make([]types.ResourceRecord, 0, len(r.Values))
		for _, v := range r.Values {
			if r.Type == domain.RecordTXT {
				v = quoteTXT(v)
			}
			values = append(values, types.ResourceRecord{Value: aws.String(v)})
		}
		changes = append(changes, types.Change{
			Action: types.ChangeActionUpsert,
			ResourceRecordSet: &types.ResourceRecordSet{
				Name:            aws.String(fqdn(r.Name)),
				Type:            types.RRType(r.Type),
				TTL:             aws.Int64(r.TTL),
				ResourceRecords: values,
			},
		})
	}
	return changes
}

// quoteTXT renders v as one or more quoted character-strings of at most 255 bytes.
func quoteTXT(v string) string {
	if strings.HasPrefix(v, `"`) && strings.HasSuffix(v, `"`) && len(v) <= maxTXTChunk+2 {
		return v
	}
	var parts []string
	for len(v) > maxTXTChunk {
		parts = append(parts, v[:maxTXTChunk])
		v = v[maxTXTChunk:]
	}
	parts = append(parts, v)
	for i, p := range parts {
		p = strings.ReplaceAll(p, `\`, `\\`)
		parts[i] = `"` + strings.ReplaceAll(p, `"`, `\"`) + `"`
	}
	return strings.Join(parts, " ")
}

func fqdn(name string) string {
	if strings.HasSuffix(name, ".") {
		return name
	}
	return name + "."
}

var transientCodes = map[string]bool{
	"Throttling":               true,
	"ThrottlingException":      true,
	"PriorRequestNotComplete":  true,
	"ConcurrentModification":   true,
	"ServiceUnavailable":       true,
	"InternalFailure":          true,
	"RequestTimeout":           true,
	"RequestLimitExceeded":     true,
	"TooManyRequestsException": true,
}

// classify maps SDK errors onto transient (retry) or permanent (stop) zone errors.
func classify(op string, err error) error {
	kind := domain.DNSErrorPermanent

	var apiErr smithy.APIError
	var netErr net.Error
	var sc interface{ HTTPStatusCode() int }
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		kind = domain.DNSErrorTransient
	case errors.As(err, &apiErr):
		if transientCodes[apiErr.ErrorCode()] {
			kind = domain.DNSErrorTransient
		}
	case errors.As(err, &netErr):
		kind = domain.DNSErrorTransient
	}
	if kind == domain.DNSErrorPermanent && errors.As(err, &sc) && sc.HTTPStatusCode() >= 500 {
		kind = domain.DNSErrorTransient
	}
	return &domain.DNSProviderError{Kind: kind, Op: op, Err: err}
}
