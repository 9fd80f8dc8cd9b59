package domain

import (
	"strings"
)

// DomainName is a validated, lowercased, fully-qualified domain without a trailing dot.
type DomainName string

// ParseDomainName normalises raw and validates it against RFC 1035 label syntax:
// labels of 1-63 letters, digits or hyphens, not starting or ending with a hyphen,
// at least two labels, at most 253 characters overall.
func ParseDomainName(raw string) (DomainName, error) {
	d := strings.ToLower(strings.TrimSpace(raw))
	d = strings.TrimSuffix(d, ".")
	if d == "" {
		return "", &ValidationError{Field: "domain", Reason: "empty"}
	}
	if len(d) > 253 {
		return "", &ValidationError{Field: "domain", Reason: "longer than 253 characters"}
	}
	labels := strings.Split(d, ".")
	if len(labels) < 2 {
		return "", &ValidationError{Field: "domain", Reason: "must contain at least two labels"}
	}
	for _, l := range labels {
		if !validLabel(l) {
			return "", &ValidationError{Field: "domain", Reason: "bad label " + `"` + l + `"`}
		}
	}
	return DomainName(d), nil
}

func validLabel(l string) bool {
	if len(l) == 0 || len(l) > 63 {
		return false
	}
	if l[0] == '-' || l[len(l)-1] == '-' {
		return false
	}
	for i := 0; i < len(l); i++ {
		c := l[i]
		if (c < 'a' || c > 'z') && (c < '0' || c > '9') && c != '-' {
			return false
		}
	}
	return true
}

func (d DomainName) String() string { return string(d) }

// Sub returns the name label.d, e.g. "_dmarc.example.com".
func (d DomainName) Sub(label string) string {
	return label + "." + string(d)
}
