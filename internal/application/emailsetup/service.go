package emailsetup

import (
	"context"
	"fmt"
	"sort"

	"github.com/go-mail-setup/internal/domain"
)

type setupStore interface {
	Get(ctx context.Context, setupID string) (*domain.EmailSetup, error)
	ListByUser(ctx context.Context, userID string) ([]domain.EmailSetup, error)
}

type Service interface {
	List(ctx context.Context, userID string) ([]domain.EmailSetup, error)
	// Get returns ErrNotFound for setups owned by another user.
	Get(ctx context.Context, userID, setupID string) (*domain.EmailSetup, error)
}

type service struct {
	repo setupStore
}

func NewService(repo setupStore) Service {
	return &service{repo: repo}
}

// List returns the user's setups, newest first.
func (s *service) List(ctx context.Context, userID string) ([]domain.EmailSetup, error) {
	setups, err := s.repo.ListByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	sort.SliceStable(setups, func(i, j int) bool { return setups[i].CreatedAt.After(setups[j].CreatedAt) })
	return setups, nil
}

func (s *service) Get(ctx context.Context, userID, setupID string) (*domain.EmailSetup, error) {
	setup, err := s.repo.Get(ctx, setupID)
	if err != nil {
		return nil, err
	}
	if setup.UserID != userID {
		return nil, fmt.Errorf("email setup not found: %w", domain.ErrNotFound)
	}
	return setup, nil
}
