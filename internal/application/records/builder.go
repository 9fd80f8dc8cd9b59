package records

import (
	"fmt"

	"github.com/go-mail-setup/internal/domain"
)

// PlaceholderGoogleDKIMKey is the truncated key the wizard has always shipped.
// Real deployments must configure the key issued in the Google Admin console.
const PlaceholderGoogleDKIMKey = "MIIBIjANBgkqhkiG9w0BAQEFAAOCAQ8AMIIBCgKCAQEA..."

// Builder maps (domain, provider) to the records that provider needs. It does no I/O.
type Builder struct {
	region        string
	googleDKIMKey string
}

func NewBuilder(awsRegion, googleDKIMKey string) *Builder {
	if awsRegion == "" {
		awsRegion = "us-east-1"
	}
	if googleDKIMKey == "" {
		googleDKIMKey = PlaceholderGoogleDKIMKey
	}
	return &Builder{region: awsRegion, googleDKIMKey: googleDKIMKey}
}

// Build returns a fresh record set ordered MX, SPF, DKIM, DMARC, CNAME.
func (b *Builder) Build(d domain.DomainName, p domain.Provider) (domain.ProviderRecordSet, error) {
	var recs []domain.ResourceRecord
	switch p {
	case domain.ProviderGoogle:
		recs = []domain.ResourceRecord{
			rr(d.String(), domain.RecordMX, domain.FamilyMX,
				"1 ASPMX.L.GOOGLE.COM.",
				"5 ALT1.ASPMX.L.GOOGLE.COM.",
				"5 ALT2.ASPMX.L.GOOGLE.COM.",
				"10 ALT3.ASPMX.L.GOOGLE.COM.",
				"10 ALT4.ASPMX.L.GOOGLE.COM.",
			),
			spf(d, "v=spf1 include:_spf.google.com ~all"),
			rr(d.Sub("google._domainkey"), domain.RecordTXT, domain.FamilyDKIM,
				"v=DKIM1; k=rsa; p="+b.googleDKIMKey),
			dmarc(d),
		}
	case domain.ProviderMicrosoft:
		recs = []domain.ResourceRecord{
			rr(d.String(), domain.RecordMX, domain.FamilyMX, "0 "+d.String()+".mail.protection.outlook.com."),
			spf(d, "v=spf1 include:spf.protection.outlook.com -all"),
			dmarc(d),
			rr(d.Sub("autodiscover"), domain.RecordCNAME, domain.FamilyCNAME, "autodiscover.outlook.com."),
		}
	case domain.ProviderAWS:
		recs = []domain.ResourceRecord{
			rr(d.String(), domain.RecordMX, domain.FamilyMX, fmt.Sprintf("10 inbound-smtp.%s.amazonaws.com.", b.region)),
			spf(d, "v=spf1 include:amazonses.com ~all"),
			dmarc(d),
			rr(d.Sub("autodiscover"), domain.RecordCNAME, domain.FamilyCNAME,
				fmt.Sprintf("autodiscover.mail.%s.awsapps.com.", b.region)),
		}
	default:
		return domain.ProviderRecordSet{}, fmt.Errorf("build records for %q: %w", p, domain.ErrUnsupportedProvider)
	}
	return domain.ProviderRecordSet{Domain: d, Provider: p, Records: recs}, nil
}

func rr(name string, typ domain.RecordType, fam domain.RecordFamily, values ...string) domain.ResourceRecord {
	return domain.ResourceRecord{Name: name, Type: typ, TTL: domain.DefaultRecordTTL, Values: values, Family: fam}
}

func spf(d domain.DomainName, policy string) domain.ResourceRecord {
	return rr(d.String(), domain.RecordTXT, domain.FamilySPF, policy)
}

func dmarc(d domain.DomainName) domain.ResourceRecord {
	return rr(d.Sub("_dmarc"), domain.RecordTXT, domain.FamilyDMARC,
		"v=DMARC1; p=quarantine; rua=mailto:dmarc-reports@"+d.String())
}
