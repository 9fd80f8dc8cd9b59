package credential

import (
	"context"
	"fmt"
	"time"

	"github.com/go-mail-setup/internal/domain"
)

type credentialStore interface {
	Put(ctx context.Context, c *domain.ProviderCredential) error
}

type sealer interface {
	Seal(plaintext string) (string, error)
}

// ConnectRequest carries tokens obtained by a provider's OAuth consent flow.
type ConnectRequest struct {
	Provider     string
	AccessToken  string
	RefreshToken string
	Expiry       time.Time
}

type Service interface {
	// Connect stores tokens for (userID, provider), replacing earlier ones.
	Connect(ctx context.Context, userID string, req ConnectRequest) error
}

type service struct {
	repo   credentialStore
	sealer sealer
}

func NewService(repo credentialStore, s sealer) Service {
	return &service{repo: repo, sealer: s}
}

func (s *service) Connect(ctx context.Context, userID string, req ConnectRequest) error {
	if userID == "" {
		return &domain.ValidationError{Field: "user_id", Reason: "required"}
	}
	p, err := domain.ParseProvider(req.Provider)
	if err != nil {
		return err
	}
	if p == domain.ProviderAWS {
		return &domain.ValidationError{Field: "provider", Reason: "AWS WorkMail uses deployment credentials, not OAuth"}
	}
	if req.AccessToken == "" && req.RefreshToken == "" {
		return &domain.ValidationError{Field: "token", Reason: "an access or refresh token is required"}
	}
	access, err := s.seal(req.AccessToken)
	if err != nil {
		return err
	}
	refresh, err := s.seal(req.RefreshToken)
	if err != nil {
		return err
	}
	return s.repo.Put(ctx, &domain.ProviderCredential{
		UserID:       userID,
		Provider:     p,
		AccessToken:  access,
		RefreshToken: refresh,
		Expiry:       req.Expiry.UTC(),
		UpdatedAt:    time.Now().UTC(),
	})
}

func (s *service) seal(v string) (string, error) {
	if v == "" {
		return "", nil
	}
	sealed, err := s.sealer.Seal(v)
	if err != nil {
		return "", fmt.Errorf("seal token: %w", err)
	}
	return sealed, nil
}
