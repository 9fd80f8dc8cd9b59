package emailsetup

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/go-mail-setup/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockSetupStore struct{ mock.Mock }

func (m *mockSetupStore) ListByUser(ctx context.Context, userID string) ([]domain.EmailSetup, error) {
	args := m.Called(ctx, userID)
	if s, _ := args.Get(0).([]domain.EmailSetup); s != nil {
		return s, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockSetupStore) Get(ctx context.Context, setupID string) (*domain.EmailSetup, error) {
	args := m.Called(ctx, setupID)
	if s, _ := args.Get(0).(*domain.EmailSetup); s != nil {
		return s, args.Error(1)
	}
	return nil, args.Error(1)
}

func TestList_NewestFirst(t *testing.T) {
	old := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	repo := &mockSetupStore{}
	repo.On("ListByUser", mock.Anything, "u1").Return([]domain.EmailSetup{
		{SetupID: "a", CreatedAt: old},
		{SetupID: "b", CreatedAt: old.Add(time.Hour)},
	}, nil)

	got, err := NewService(repo).List(context.Background(), "u1")
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "b", got[0].SetupID)
}

func TestList_PropagatesError(t *testing.T) {
	repo := &mockSetupStore{}
	repo.On("ListByUser", mock.Anything, "u1").Return(nil, errors.New("throttled"))

	_, err := NewService(repo).List(context.Background(), "u1")
	assert.Error(t, err)
}

func TestGet_Owner(t *testing.T) {
	repo := &mockSetupStore{}
	repo.On("Get", mock.Anything, "s1").Return(&domain.EmailSetup{SetupID: "s1", UserID: "u1"}, nil)

	got, err := NewService(repo).Get(context.Background(), "u1", "s1")
	require.NoError(t, err)
	assert.Equal(t, "s1", got.SetupID)
}

func TestGet_OtherUserIsNotFound(t *testing.T) {
	repo := &mockSetupStore{}
	repo.On("Get", mock.Anything, "s1").Return(&domain.EmailSetup{SetupID: "s1", UserID: "u2"}, nil)

	_, err := NewService(repo).Get(context.Background(), "u1", "s1")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}
