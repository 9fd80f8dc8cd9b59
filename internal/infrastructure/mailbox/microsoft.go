package mailbox

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/go-mail-setup/internal/domain"
)

const graphEndpoint = "https://graph.microsoft.com/v1.0"

// MicrosoftCreator provisions Microsoft 365 users through Microsoft Graph.
type MicrosoftCreator struct {
	clients  ClientSource
	endpoint string
}

func NewMicrosoftCreator(clients ClientSource, endpoint string) *MicrosoftCreator {
	if endpoint == "" {
		endpoint = graphEndpoint
	}
	return &MicrosoftCreator{clients: clients, endpoint: strings.TrimSuffix(endpoint, "/")}
}

type graphPasswordProfile struct {
	ForceChangePasswordNextSignIn bool   `json:"forceChangePasswordNextSignIn"`
	Password                      string `json:"password"`
}

type graphUser struct {
	ID                string                `json:"id,omitempty"`
	AccountEnabled    bool                  `json:"accountEnabled"`
	DisplayName       string                `json:"displayName"`
	MailNickname      string                `json:"mailNickname"`
	UserPrincipalName string                `json:"userPrincipalName"`
	GivenName         string                `json:"givenName,omitempty"`
	Surname           string                `json:"surname,omitempty"`
	PasswordProfile   *graphPasswordProfile `json:"passwordProfile,omitempty"`
}

type graphError struct {
	Error struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

func (c *MicrosoftCreator) Create(ctx context.Context, req domain.AccountRequest) (domain.Account, error) {
	hc, err := c.clients.Client(ctx, req.UserID, domain.ProviderMicrosoft)
	if err != nil {
		return domain.Account{}, err
	}
	body, err := json.Marshal(graphUser{
		AccountEnabled:    true,
		DisplayName:       strings.TrimSpace(req.GivenName + " " + req.FamilyName),
		MailNickname:      req.LocalPart,
		UserPrincipalName: req.PrimaryEmail(),
		GivenName:         req.GivenName,
		Surname:           req.FamilyName,
		PasswordProfile:   &graphPasswordProfile{ForceChangePasswordNextSignIn: true, Password: req.Password},
	})
	if err != nil {
		return domain.Account{}, err
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint+"/users", bytes.NewReader(body))
	if err != nil {
		return domain.Account{}, err
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := hc.Do(httpReq)
	if err != nil {
		return domain.Account{}, fmt.Errorf("graph create user: %w", err)
	}
	defer resp.Body.Close()
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<20))

	switch {
	case resp.StatusCode == http.StatusCreated || resp.StatusCode == http.StatusOK:
		var u graphUser
		if err := json.Unmarshal(raw, &u); err != nil {
			return domain.Account{}, fmt.Errorf("decode graph user: %w", err)
		}
		return domain.Account{PrimaryEmail: u.UserPrincipalName, ProviderID: u.ID}, nil
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return domain.Account{}, fmt.Errorf("microsoft rejected the tenant token: %w", domain.ErrAuthRequired)
	}

	var ge graphError
	_ = json.Unmarshal(raw, &ge)
	// Graph reports duplicate principals as a 400 with this message.
	if resp.StatusCode == http.StatusBadRequest && strings.Contains(ge.Error.Message, "already exists") {
		return domain.Account{}, fmt.Errorf("microsoft: %w", domain.ErrAccountExists)
	}
	return domain.Account{}, fmt.Errorf("graph create user: %d %s: %s", resp.StatusCode, ge.Error.Code, ge.Error.Message)
}
