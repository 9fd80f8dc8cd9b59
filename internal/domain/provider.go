package domain

import (
	"fmt"
	"strings"
)

// Provider identifies a hosted email back end.
type Provider string

const (
	ProviderGoogle    Provider = "google"
	ProviderMicrosoft Provider = "microsoft"
	ProviderAWS       Provider = "aws"
)

// Providers lists every supported provider in display order.
var Providers = []Provider{ProviderGoogle, ProviderMicrosoft, ProviderAWS}

// ParseProvider accepts a provider identifier case-insensitively.
func ParseProvider(s string) (Provider, error) {
	p := Provider(strings.ToLower(strings.TrimSpace(s)))
	switch p {
	case ProviderGoogle, ProviderMicrosoft, ProviderAWS:
		return p, nil
	}
	return "", fmt.Errorf("%q: %w", s, ErrUnsupportedProvider)
}

// DisplayName is the product name shown to users.
func (p Provider) DisplayName() string {
	switch p {
	case ProviderGoogle:
		return "Google Workspace"
	case ProviderMicrosoft:
		return "Microsoft 365"
	case ProviderAWS:
		return "AWS WorkMail"
	}
	return string(p)
}
