package domain

import (
	"errors"
	"fmt"
)

// Sentinel errors for domain-level error discrimination.
// Services wrap these so handlers can map to HTTP status codes without leaking infrastructure details.
var (
	ErrNotFound   = errors.New("not found")
	ErrConflict   = errors.New("conflict")
	ErrBadRequest = errors.New("bad request")

	ErrUnsupportedProvider = errors.New("unsupported provider")
	// ErrAuthRequired means the provider OAuth token is missing or can no longer be refreshed.
	ErrAuthRequired = errors.New("provider authorization required")
	// ErrAccountExists is returned by account creators when the mailbox is already provisioned.
	ErrAccountExists = errors.New("account already exists")

	// ErrNoRecords means the name exists but has no records of the queried type (yet).
	ErrNoRecords = errors.New("no records")
	// ErrNXDomain means the resolver answered that the name does not exist.
	ErrNXDomain = errors.New("domain does not exist")
)

// DNSErrorKind separates retryable zone/resolver failures from fatal ones.
type DNSErrorKind string

const (
	DNSErrorTransient DNSErrorKind = "transient"
	DNSErrorPermanent DNSErrorKind = "permanent"
)

// DNSProviderError is returned by zone publishers. Transient errors (throttling,
// network, concurrent modification) may be retried; permanent ones (auth, missing
// zone, rejected change batch) may not.
type DNSProviderError struct {
	Kind DNSErrorKind
	Op   string
	Err  error
}

func (e *DNSProviderError) Error() string {
	return fmt.Sprintf("dns provider %s (%s): %v", e.Op, e.Kind, e.Err)
}

func (e *DNSProviderError) Unwrap() error { return e.Err }

// IsTransient reports whether err carries a transient DNSProviderError.
func IsTransient(err error) bool {
	var dpe *DNSProviderError
	return errors.As(err, &dpe) && dpe.Kind == DNSErrorTransient
}

// ValidationError reports malformed input caught before any external call.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

func (e *ValidationError) Unwrap() error { return ErrBadRequest }
