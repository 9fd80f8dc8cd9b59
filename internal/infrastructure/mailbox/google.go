package mailbox

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/go-mail-setup/internal/domain"
	admin "google.golang.org/api/admin/directory/v1"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
)

// ClientSource yields an authorized HTTP client for a user's provider account.
type ClientSource interface {
	Client(ctx context.Context, userID string, provider domain.Provider) (*http.Client, error)
}

// GoogleCreator provisions Google Workspace users through the Admin SDK Directory API.
type GoogleCreator struct {
	clients  ClientSource
	endpoint string // empty uses the public API
}

func NewGoogleCreator(clients ClientSource, endpoint string) *GoogleCreator {
	return &GoogleCreator{clients: clients, endpoint: endpoint}
}

func (c *GoogleCreator) Create(ctx context.Context, req domain.AccountRequest) (domain.Account, error) {
	hc, err := c.clients.Client(ctx, req.UserID, domain.ProviderGoogle)
	if err != nil {
		return domain.Account{}, err
	}
	opts := []option.ClientOption{option.WithHTTPClient(hc)}
	if c.endpoint != "" {
		opts = append(opts, option.WithEndpoint(c.endpoint))
	}
	svc, err := admin.NewService(ctx, opts...)
	if err != nil {
		return domain.Account{}, fmt.Errorf("google directory client: %w", err)
	}

	u, err := svc.Users.Insert(&admin.User{
		PrimaryEmail:              req.PrimaryEmail(),
		Name:                      &admin.UserName{GivenName: req.GivenName, FamilyName: req.FamilyName},
		Password:                  req.Password,
		ChangePasswordAtNextLogin: true,
	}).Context(ctx).Do()
	if err != nil {
		return domain.Account{}, googleError(err)
	}
	return domain.Account{PrimaryEmail: u.PrimaryEmail, ProviderID: u.Id}, nil
}

func googleError(err error) error {
	var gerr *googleapi.Error
	if errors.As(err, &gerr) {
		switch gerr.Code {
		case http.StatusUnauthorized, http.StatusForbidden:
			return fmt.Errorf("google rejected the workspace token: %w", domain.ErrAuthRequired)
		case http.StatusConflict:
			return fmt.Errorf("google: %w", domain.ErrAccountExists)
		}
	}
	return fmt.Errorf("google create user: %w", err)
}
