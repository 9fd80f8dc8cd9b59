package resolver

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-mail-setup/internal/domain"
	mdns "github.com/miekg/dns"
)

// Errors for answers that are neither success nor NXDOMAIN. Callers treat them as transient.
var (
	ErrServFail = errors.New("dns: server failure")
	ErrRefused  = errors.New("dns: query refused")
)

// exchanger is the part of *dns.Client the resolver uses.
type exchanger interface {
	ExchangeContext(ctx context.Context, m *mdns.Msg, address string) (*mdns.Msg, time.Duration, error)
}

// Resolver queries public recursive resolvers directly rather than the zone's
// authoritative servers, to see what remote mail senders would see.
type Resolver struct {
	servers []string
	retries int
	client  exchanger
}

// New creates a resolver for servers ("host:port"). An empty list falls back
// to Google and Cloudflare public DNS.
func New(servers []string, timeout time.Duration) *Resolver {
	if len(servers) == 0 {
		servers = []string{"8.8.8.8:53", "1.1.1.1:53"}
	}
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	norm := make([]string, 0, len(servers))
	for _, s := range servers {
		if !strings.Contains(s, ":") {
			s += ":53"
		}
		norm = append(norm, s)
	}
	return &Resolver{servers: norm, retries: 1, client: &mdns.Client{Timeout: timeout}}
}

// LookupTXT returns the TXT strings at name, joining multi-string records.
// It returns domain.ErrNXDomain for NXDOMAIN and domain.ErrNoRecords for an empty answer.
func (r *Resolver) LookupTXT(ctx context.Context, name string) ([]string, error) {
	resp, err := r.query(ctx, name, mdns.TypeTXT)
	if err != nil {
		return nil, err
	}
	var records []string
	for _, rr := range resp.Answer {
		if txt, ok := rr.(*mdns.TXT); ok {
			records = append(records, strings.Join(txt.Txt, ""))
		}
	}
	if len(records) == 0 {
		return nil, domain.ErrNoRecords
	}
	return records, nil
}

func (r *Resolver) query(ctx context.Context, name string, qtype uint16) (*mdns.Msg, error) {
	m := new(mdns.Msg)
	m.SetQuestion(mdns.Fqdn(name), qtype)
	m.RecursionDesired = true

	var lastErr error
	for i := 0; i <= r.retries; i++ {
		for _, server := range r.servers {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
			resp, _, err := r.client.ExchangeContext(ctx, m, server)
			if err != nil {
				lastErr = fmt.Errorf("dns query %s via %s: %w", name, server, err)
				continue
			}
			switch resp.Rcode {
			case mdns.RcodeSuccess:
				return resp, nil
			case mdns.RcodeNameError:
				return nil, domain.ErrNXDomain
			case mdns.RcodeServerFailure:
				lastErr = ErrServFail
			case mdns.RcodeRefused:
				lastErr = ErrRefused
			default:
				lastErr = fmt.Errorf("dns: unexpected rcode %s", mdns.RcodeToString[resp.Rcode])
			}
		}
	}
	if lastErr == nil {
		lastErr = ErrServFail
	}
	return nil, lastErr
}
