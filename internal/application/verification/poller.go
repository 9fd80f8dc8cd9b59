package verification

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode"

	"github.com/go-mail-setup/internal/domain"
)

// TXTResolver looks up TXT records through public resolvers.
type TXTResolver interface {
	LookupTXT(ctx context.Context, name string) ([]string, error)
}

// Result is the outcome class of a verification check.
type Result int

const (
	NotYetPropagated Result = iota
	Verified
	Failed
)

func (r Result) String() string {
	switch r {
	case Verified:
		return "verified"
	case Failed:
		return "failed"
	}
	return "notYetPropagated"
}

// Outcome is returned by Check and Poll. Reason is set only when Result is Failed.
type Outcome struct {
	Result   Result
	Reason   domain.FailureReason
	Detail   string
	Attempts int
}

// Budget bounds a polling run.
type Budget struct {
	MaxAttempts int
	Interval    time.Duration
}

// Poller checks that a verification token is visible from public DNS.
type Poller struct {
	resolver    TXTResolver
	callTimeout time.Duration
}

func NewPoller(resolver TXTResolver, callTimeout time.Duration) *Poller {
	if callTimeout <= 0 {
		callTimeout = 5 * time.Second
	}
	return &Poller{resolver: resolver, callTimeout: callTimeout}
}

// Check performs a single TXT lookup for d. Missing records and resolver
// timeouts are NotYetPropagated; NXDOMAIN and token/domain mismatches are Failed.
func (p *Poller) Check(ctx context.Context, d domain.DomainName, tok Token) Outcome {
	if tok.Domain != d {
		return Outcome{Result: Failed, Reason: domain.ReasonUnresolvable,
			Detail: fmt.Sprintf("token was issued for %s, not %s", tok.Domain, d)}
	}
	callCtx, cancel := context.WithTimeout(ctx, p.callTimeout)
	defer cancel()

	values, err := p.resolver.LookupTXT(callCtx, d.String())
	switch {
	case err == nil:
	case errors.Is(err, domain.ErrNXDomain):
		return Outcome{Result: Failed, Reason: domain.ReasonUnresolvable, Detail: d.String() + " does not exist in public DNS"}
	case errors.Is(err, domain.ErrNoRecords):
		return Outcome{Result: NotYetPropagated, Detail: "no TXT records visible yet"}
	case ctx.Err() != nil:
		return Outcome{Result: Failed, Reason: domain.ReasonCancelled, Detail: ctx.Err().Error()}
	default:
		return Outcome{Result: NotYetPropagated, Detail: "resolver error: " + err.Error()}
	}

	expected := tok.RecordValue()
	for _, v := range values {
		if matches(v, expected) {
			return Outcome{Result: Verified, Detail: "found " + expected}
		}
	}
	return Outcome{Result: NotYetPropagated, Detail: "verification record not found or not propagated yet"}
}

// Poll repeats Check up to budget.MaxAttempts times, sleeping budget.Interval
// between attempts. progress, when non-nil, sees every not-yet outcome.
// Exhausting the budget yields Failed with ReasonTimeout.
func (p *Poller) Poll(ctx context.Context, d domain.DomainName, tok Token, budget Budget, progress func(Outcome)) Outcome {
	if budget.MaxAttempts < 1 {
		budget.MaxAttempts = 1
	}
	var last Outcome
	for attempt := 1; attempt <= budget.MaxAttempts; attempt++ {
		last = p.Check(ctx, d, tok)
		last.Attempts = attempt
		if last.Result != NotYetPropagated {
			return last
		}
		if progress != nil {
			progress(last)
		}
		if attempt == budget.MaxAttempts {
			break
		}
		t := time.NewTimer(budget.Interval)
		select {
		case <-ctx.Done():
			t.Stop()
			return Outcome{Result: Failed, Reason: domain.ReasonCancelled, Detail: ctx.Err().Error(), Attempts: attempt}
		case <-t.C:
		}
	}
	return Outcome{
		Result:   Failed,
		Reason:   domain.ReasonTimeout,
		Detail:   fmt.Sprintf("not visible after %d attempts: %s", budget.MaxAttempts, last.Detail),
		Attempts: budget.MaxAttempts,
	}
}

// matches reports whether a TXT value carries expected as a whole field, so a
// token never matches a longer token that merely starts with it.
func matches(value, expected string) bool {
	v := strings.Trim(strings.TrimSpace(value), `"`)
	if v == expected {
		return true
	}
	for _, f := range strings.FieldsFunc(v, func(r rune) bool { return unicode.IsSpace(r) || r == ';' }) {
		if f == expected {
			return true
		}
	}
	return false
}
