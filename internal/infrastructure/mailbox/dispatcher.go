package mailbox

import (
	"context"
	"fmt"

	"github.com/go-mail-setup/internal/domain"
)

// Creator creates the first mailbox on one provider.
type Creator interface {
	Create(ctx context.Context, req domain.AccountRequest) (domain.Account, error)
}

// Dispatcher routes account creation to the creator registered for the request's provider.
type Dispatcher struct {
	creators map[domain.Provider]Creator
}

func NewDispatcher(creators map[domain.Provider]Creator) *Dispatcher {
	return &Dispatcher{creators: creators}
}

// CreateAccount returns domain.ErrAuthRequired when the provider is not
// connected and domain.ErrAccountExists when the mailbox is already there.
func (d *Dispatcher) CreateAccount(ctx context.Context, req domain.AccountRequest) (domain.Account, error) {
	c, ok := d.creators[req.Provider]
	if !ok {
		return domain.Account{}, fmt.Errorf("%s: %w", req.Provider, domain.ErrUnsupportedProvider)
	}
	return c.Create(ctx, req)
}
