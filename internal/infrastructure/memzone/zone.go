package memzone

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/go-mail-setup/internal/domain"
)

// Zone is an in-process DNS zone for development and tests. It applies
// records one at a time, like a provider without atomic change batches, and
// answers TXT lookups for the names it holds.
type Zone struct {
	mu      sync.RWMutex
	records map[string]domain.ResourceRecord
	applied []string
	changes int
}

func New() *Zone {
	return &Zone{records: make(map[string]domain.ResourceRecord)}
}

// Upsert applies recs in rollout order: MX, SPF, DKIM, DMARC, CNAME. Mail
// routing lands before policy records.
func (z *Zone) Upsert(ctx context.Context, zoneID string, recs []domain.ResourceRecord) (domain.ChangeReceipt, error) {
	ordered := append([]domain.ResourceRecord(nil), recs...)
	sort.SliceStable(ordered, func(i, j int) bool { return ordered[i].Family < ordered[j].Family })

	z.mu.Lock()
	defer z.mu.Unlock()
	for _, r := range ordered {
		if err := ctx.Err(); err != nil {
			return domain.ChangeReceipt{}, &domain.DNSProviderError{Kind: domain.DNSErrorTransient, Op: "upsert", Err: err}
		}
		r.Name = strings.ToLower(strings.TrimSuffix(r.Name, "."))
		r.Values = append([]string(nil), r.Values...)
		z.records[r.Key()] = r
		z.applied = append(z.applied, r.Key())
	}
	z.changes++
	return domain.ChangeReceipt{
		ChangeID:    fmt.Sprintf("%s/memory-%d", zoneID, z.changes),
		Status:      "INSYNC",
		SubmittedAt: time.Now().UTC(),
		Records:     len(ordered),
	}, nil
}

// LookupTXT serves TXT values as a resolver would.
func (z *Zone) LookupTXT(_ context.Context, name string) ([]string, error) {
	name = strings.ToLower(strings.TrimSuffix(name, "."))
	z.mu.RLock()
	defer z.mu.RUnlock()
	r, ok := z.records[name+"/"+string(domain.RecordTXT)]
	if !ok || len(r.Values) == 0 {
		return nil, domain.ErrNoRecords
	}
	return append([]string(nil), r.Values...), nil
}

// Records returns a copy of the zone contents keyed by name/type.
func (z *Zone) Records() map[string]domain.ResourceRecord {
	z.mu.RLock()
	defer z.mu.RUnlock()
	out := make(map[string]domain.ResourceRecord, len(z.records))
	for k, v := range z.records {
		out[k] = v
	}
	return out
}

// Applied lists record keys in the order they were written.
func (z *Zone) Applied() []string {
	z.mu.RLock()
	defer z.mu.RUnlock()
	return append([]string(nil), z.applied...)
}
