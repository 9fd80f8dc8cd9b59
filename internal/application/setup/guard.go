package setup

import (
	"context"
	"fmt"
	"sync"

	"github.com/go-mail-setup/internal/domain"
)

// MemoryGuard is the single-process DomainGuard used when no Redis is configured.
type MemoryGuard struct {
	mu      sync.Mutex
	holders map[domain.DomainName]string
}

func NewMemoryGuard() *MemoryGuard {
	return &MemoryGuard{holders: make(map[domain.DomainName]string)}
}

func (g *MemoryGuard) Acquire(_ context.Context, d domain.DomainName, owner string) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if h, ok := g.holders[d]; ok && h != owner {
		return fmt.Errorf("%s has a setup in progress: %w", d, domain.ErrConflict)
	}
	g.holders[d] = owner
	return nil
}

func (g *MemoryGuard) Release(_ context.Context, d domain.DomainName, owner string) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.holders[d] == owner {
		delete(g.holders, d)
	}
	return nil
}
