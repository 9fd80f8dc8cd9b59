package route53infra

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/route53"
	"github.com/aws/aws-sdk-go-v2/service/route53/types"
	"github.com/aws/smithy-go"
	"github.com/go-mail-setup/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeZone applies change batches to an in-memory record map.
type fakeZone struct {
	records map[string][]string
	batches int
	err     error
}

func newFakeZone() *fakeZone { return &fakeZone{records: map[string][]string{}} }

func (z *fakeZone) ChangeResourceRecordSets(_ context.Context, in *route53.ChangeResourceRecordSetsInput, _ ...func(*route53.Options)) (*route53.ChangeResourceRecordSetsOutput, error) {
	if z.err != nil {
		return nil, z.err
	}
	z.batches++
	for _, c := range in.ChangeBatch.Changes {
		set := c.ResourceRecordSet
		var vals []string
		for _, rr := range set.ResourceRecords {
			vals = append(vals, aws.ToString(rr.Value))
		}
		z.records[aws.ToString(set.Name)+"/"+string(set.Type)] = vals
	}
	return &route53.ChangeResourceRecordSetsOutput{ChangeInfo: &types.ChangeInfo{
		Id:          aws.String("/change/C1"),
		Status:      types.ChangeStatusPending,
		SubmittedAt: aws.Time(time.Unix(1700000000, 0).UTC()),
	}}, nil
}

func snapshot(m map[string][]string) map[string][]string {
	out := make(map[string][]string, len(m))
	for k, v := range m {
		out[k] = append([]string(nil), v...)
	}
	return out
}

func googleRecords() []domain.ResourceRecord {
	return []domain.ResourceRecord{
		{Name: "example.com", Type: domain.RecordMX, TTL: 3600, Values: []string{"1 ASPMX.L.GOOGLE.COM.", "5 ALT1.ASPMX.L.GOOGLE.COM."}},
		{Name: "example.com", Type: domain.RecordTXT, TTL: 3600, Values: []string{"v=spf1 include:_spf.google.com ~all"}, Family: domain.FamilySPF},
		{Name: "_dmarc.example.com", Type: domain.RecordTXT, TTL: 3600, Values: []string{"v=DMARC1; p=quarantine"}, Family: domain.FamilyDMARC},
	}
}

func TestUpsert_SingleBatchWithFQDNAndQuoting(t *testing.T) {
	z := newFakeZone()
	p := NewPublisher(z, 1000, time.Second)

	receipt, err := p.Upsert(context.Background(), "Z1", googleRecords())
	require.NoError(t, err)

	assert.Equal(t, 1, z.batches)
	assert.Equal(t, "/change/C1", receipt.ChangeID)
	assert.Equal(t, "PENDING", receipt.Status)
	assert.Equal(t, 3, receipt.Records)
	assert.Equal(t, []string{"1 ASPMX.L.GOOGLE.COM.", "5 ALT1.ASPMX.L.GOOGLE.COM."}, z.records["example.com./MX"])
	assert.Equal(t, []string{`"v=spf1 include:_spf.google.com ~all"`}, z.records["example.com./TXT"])
}

func TestUpsert_Idempotent(t *testing.T) {
	z := newFakeZone()
	p := NewPublisher(z, 1000, time.Second)

	_, err := p.Upsert(context.Background(), "Z1", googleRecords())
	require.NoError(t, err)
	once := snapshot(z.records)

	_, err = p.Upsert(context.Background(), "Z1", googleRecords())
	require.NoError(t, err)
	assert.Equal(t, once, z.records)
}

func TestUpsert_DuplicateKeysLastWins(t *testing.T) {
	z := newFakeZone()
	p := NewPublisher(z, 1000, time.Second)
	recs := []domain.ResourceRecord{
		{Name: "example.com", Type: domain.RecordTXT, TTL: 300, Values: []string{"old"}},
		{Name: "example.com", Type: domain.RecordTXT, TTL: 300, Values: []string{"new"}},
	}
	receipt, err := p.Upsert(context.Background(), "Z1", recs)
	require.NoError(t, err)
	assert.Equal(t, 1, receipt.Records)
	assert.Equal(t, []string{`"new"`}, z.records["example.com./TXT"])
}

func TestUpsert_NoZoneIsPermanent(t *testing.T) {
	_, err := NewPublisher(newFakeZone(), 1000, time.Second).Upsert(context.Background(), "", googleRecords())
	var dpe *domain.DNSProviderError
	require.True(t, errors.As(err, &dpe))
	assert.Equal(t, domain.DNSErrorPermanent, dpe.Kind)
}

func TestUpsert_ClassifiesAPIErrors(t *testing.T) {
	cases := []struct {
		code      string
		transient bool
	}{
		{"Throttling", true},
		{"PriorRequestNotComplete", true},
		{"NoSuchHostedZone", false},
		{"AccessDenied", false},
		{"InvalidChangeBatch", false},
	}
	for _, tc := range cases {
		t.Run(tc.code, func(t *testing.T) {
			z := newFakeZone()
			z.err = &smithy.GenericAPIError{Code: tc.code, Message: "boom"}
			_, err := NewPublisher(z, 1000, time.Second).Upsert(context.Background(), "Z1", googleRecords())
			require.Error(t, err)
			assert.Equal(t, tc.transient, domain.IsTransient(err))
		})
	}
}

func TestClassify_DeadlineIsTransient(t *testing.T) {
	assert.True(t, domain.IsTransient(classify("upsert", context.DeadlineExceeded)))
}

func TestQuoteTXT_SplitsLongValues(t *testing.T) {
	long := strings.Repeat("k", 300)
	got := quoteTXT(long)
	assert.Equal(t, `"`+strings.Repeat("k", 255)+`" "`+strings.Repeat("k", 45)+`"`, got)
	assert.Equal(t, `"say \"hi\""`, quoteTXT(`say "hi"`))
}

func TestComment(t *testing.T) {
	assert.Equal(t, "Domain verification record",
		comment([]domain.ResourceRecord{{Family: domain.FamilyVerification}}))
	assert.Equal(t, "Email DNS records", comment(googleRecords()))
}
