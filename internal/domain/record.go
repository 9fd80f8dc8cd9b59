package domain

import "time"

// RecordType is the subset of DNS resource record types this system writes.
type RecordType string

const (
	RecordMX    RecordType = "MX"
	RecordTXT   RecordType = "TXT"
	RecordCNAME RecordType = "CNAME"
)

// RecordFamily classifies a record by purpose; it fixes the rollout order
// for zones that cannot apply a change batch atomically.
type RecordFamily int

const (
	FamilyMX RecordFamily = iota
	FamilySPF
	FamilyDKIM
	FamilyDMARC
	FamilyCNAME
	FamilyVerification
)

const (
	// DefaultRecordTTL applies to every provider rollout record.
	DefaultRecordTTL = 3600
	// VerificationRecordTTL is short so a re-issued token converges quickly.
	VerificationRecordTTL = 300
)

// ResourceRecord is an immutable DNS record set identified by (Name, Type).
// Values are unquoted; for MX the priority prefix is part of each value and
// the order is preserved on write.
type ResourceRecord struct {
	Name   string       `json:"name" yaml:"name" dynamodbav:"name"`
	Type   RecordType   `json:"type" yaml:"type" dynamodbav:"type"`
	TTL    int64        `json:"ttl" yaml:"ttl" dynamodbav:"ttl"`
	Values []string     `json:"values" yaml:"values" dynamodbav:"values"`
	Family RecordFamily `json:"-" yaml:"-" dynamodbav:"-"`
}

// Key identifies the record set for upsert purposes.
func (r ResourceRecord) Key() string {
	return r.Name + "/" + string(r.Type)
}

// ProviderRecordSet is the ordered list of records one provider requires.
type ProviderRecordSet struct {
	Domain   DomainName       `json:"domain" yaml:"domain"`
	Provider Provider         `json:"provider" yaml:"provider"`
	Records  []ResourceRecord `json:"records" yaml:"records"`
}

// ChangeReceipt is returned by a zone publisher once a change batch is accepted.
type ChangeReceipt struct {
	ChangeID    string    `json:"change_id" dynamodbav:"change_id"`
	Status      string    `json:"status" dynamodbav:"status"`
	SubmittedAt time.Time `json:"submitted_at" dynamodbav:"submitted_at"`
	Records     int       `json:"records" dynamodbav:"records"`
}
