package setup

import (
	"context"

	"github.com/go-mail-setup/internal/application/verification"
	"github.com/go-mail-setup/internal/domain"
	s3infra "github.com/go-mail-setup/internal/infrastructure/s3"
)

// ZonePublisher upserts records into an authoritative zone.
type ZonePublisher interface {
	Upsert(ctx context.Context, zoneID string, recs []domain.ResourceRecord) (domain.ChangeReceipt, error)
}

type TokenIssuer interface {
	Issue(d domain.DomainName) (verification.Token, domain.ResourceRecord, error)
}

type VerificationPoller interface {
	Poll(ctx context.Context, d domain.DomainName, tok verification.Token, budget verification.Budget, progress func(verification.Outcome)) verification.Outcome
}

type RecordBuilder interface {
	Build(d domain.DomainName, p domain.Provider) (domain.ProviderRecordSet, error)
}

// AccountCreator returns domain.ErrAuthRequired when the provider is not
// connected and domain.ErrAccountExists when the mailbox already exists.
type AccountCreator interface {
	CreateAccount(ctx context.Context, req domain.AccountRequest) (domain.Account, error)
}

// SetupStore persists completed setups. Put must be idempotent per SetupID.
type SetupStore interface {
	Put(ctx context.Context, s *domain.EmailSetup) error
}

// DomainGuard admits one in-flight attempt per domain. Acquire returns
// domain.ErrConflict when another owner holds d; the current owner calling
// Acquire again extends its hold.
type DomainGuard interface {
	Acquire(ctx context.Context, d domain.DomainName, owner string) error
	Release(ctx context.Context, d domain.DomainName, owner string) error
}

// RolloutArchive keeps an audit copy of published record sets. Optional.
type RolloutArchive interface {
	Store(ctx context.Context, r s3infra.Rollout) (string, error)
}
