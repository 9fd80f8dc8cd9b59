package mailbox

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/go-mail-setup/internal/domain"
	"golang.org/x/oauth2"
)

// CredentialStore reads and refreshes the OAuth tokens saved by the connect flow.
type CredentialStore interface {
	Get(ctx context.Context, userID string, provider domain.Provider) (*domain.ProviderCredential, error)
	// UpdateTokens stores a refreshed access token; an empty sealedRefresh
	// leaves the stored refresh token as is.
	UpdateTokens(ctx context.Context, userID string, provider domain.Provider, sealedAccess, sealedRefresh string, expiry time.Time) error
}

// Sealer encrypts tokens at rest.
type Sealer interface {
	Seal(plaintext string) (string, error)
	Open(sealed string) (string, error)
}

// Tokens turns a stored (user, provider) credential into an authorized HTTP
// client. Refreshed tokens, including a rotated refresh token, are written
// back sealed.
type Tokens struct {
	store   CredentialStore
	sealer  Sealer
	configs map[domain.Provider]*oauth2.Config
}

func NewTokens(store CredentialStore, sealer Sealer, configs map[domain.Provider]*oauth2.Config) *Tokens {
	return &Tokens{store: store, sealer: sealer, configs: configs}
}

// Client returns an HTTP client for userID's provider account. A missing or
// unrefreshable token yields domain.ErrAuthRequired.
func (t *Tokens) Client(ctx context.Context, userID string, provider domain.Provider) (*http.Client, error) {
	conf, ok := t.configs[provider]
	if !ok {
		return nil, fmt.Errorf("%s has no oauth config: %w", provider, domain.ErrUnsupportedProvider)
	}
	cred, err := t.store.Get(ctx, userID, provider)
	if errors.Is(err, domain.ErrNotFound) {
		return nil, fmt.Errorf("%s is not connected: %w", provider.DisplayName(), domain.ErrAuthRequired)
	}
	if err != nil {
		return nil, fmt.Errorf("load %s credential: %w", provider, err)
	}

	tok := &oauth2.Token{Expiry: cred.Expiry, TokenType: "Bearer"}
	if tok.AccessToken, err = t.open(cred.AccessToken); err != nil {
		return nil, err
	}
	if tok.RefreshToken, err = t.open(cred.RefreshToken); err != nil {
		return nil, err
	}

	refresh := tok.RefreshToken
	ts := &savingSource{
		base: conf.TokenSource(ctx, tok),
		last: tok.AccessToken,
		persist: func(nt *oauth2.Token) {
			var rotated string
			if nt.RefreshToken != "" && nt.RefreshToken != refresh {
				rotated, refresh = nt.RefreshToken, nt.RefreshToken
			}
			t.save(ctx, userID, provider, nt, rotated)
		},
	}
	if _, err := ts.Token(); err != nil {
		return nil, fmt.Errorf("%s token refresh failed, reconnect the account: %w", provider.DisplayName(), domain.ErrAuthRequired)
	}
	return oauth2.NewClient(ctx, ts), nil
}

func (t *Tokens) open(sealed string) (string, error) {
	if sealed == "" {
		return "", nil
	}
	v, err := t.sealer.Open(sealed)
	if err != nil {
		return "", fmt.Errorf("open stored token: %w", err)
	}
	return v, nil
}

// save persists tok. rotatedRefresh is set only when the provider issued a
// new refresh token.
func (t *Tokens) save(ctx context.Context, userID string, provider domain.Provider, tok *oauth2.Token, rotatedRefresh string) {
	sealed, err := t.sealer.Seal(tok.AccessToken)
	var sealedRefresh string
	if err == nil && rotatedRefresh != "" {
		sealedRefresh, err = t.sealer.Seal(rotatedRefresh)
	}
	if err == nil {
		err = t.store.UpdateTokens(ctx, userID, provider, sealed, sealedRefresh, tok.Expiry)
	}
	if err != nil {
		slog.Warn("could not store refreshed token", "provider", provider, "user_id", userID, "err", err)
	}
}

// savingSource calls persist whenever the wrapped source hands out a new access token.
type savingSource struct {
	mu      sync.Mutex
	base    oauth2.TokenSource
	last    string
	persist func(*oauth2.Token)
}

func (s *savingSource) Token() (*oauth2.Token, error) {
	tok, err := s.base.Token()
	if err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if tok.AccessToken != s.last {
		s.last = tok.AccessToken
		s.persist(tok)
	}
	return tok, nil
}
