package verification

import (
	"github.com/go-mail-setup/internal/domain"
	pkgtoken "github.com/go-mail-setup/internal/pkg/token"
)

// Token is bound to the domain it was issued for and is never reused across attempts.
type Token struct {
	Value     string
	Domain    domain.DomainName
	Namespace string
}

// RecordValue is the TXT content proving control, e.g. "lovable-verify=<token>".
func (t Token) RecordValue() string {
	return t.Namespace + "-verify=" + t.Value
}

// Issuer generates verification tokens and the TXT record that carries them.
type Issuer struct {
	namespace string
	generate  func() (string, error)
}

func NewIssuer(namespace string) *Issuer {
	return &Issuer{namespace: namespace, generate: pkgtoken.NewVerificationToken}
}

// Issue creates a new token for d together with its apex TXT record. It does not publish anything.
func (i *Issuer) Issue(d domain.DomainName) (Token, domain.ResourceRecord, error) {
	v, err := i.generate()
	if err != nil {
		return Token{}, domain.ResourceRecord{}, err
	}
	tok := Token{Value: v, Domain: d, Namespace: i.namespace}
	rec := domain.ResourceRecord{
		Name:   d.String(),
		Type:   domain.RecordTXT,
		TTL:    domain.VerificationRecordTTL,
		Values: []string{tok.RecordValue()},
		Family: domain.FamilyVerification,
	}
	return tok, rec, nil
}
