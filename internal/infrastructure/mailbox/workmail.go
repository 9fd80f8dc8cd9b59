package mailbox

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/workmail"
	"github.com/aws/aws-sdk-go-v2/service/workmail/types"
	"github.com/aws/smithy-go"
	"github.com/go-mail-setup/internal/config"
	"github.com/go-mail-setup/internal/domain"
	"github.com/go-mail-setup/internal/infrastructure/awscfg"
)

type workmailAPI interface {
	CreateUser(ctx context.Context, in *workmail.CreateUserInput, optFns ...func(*workmail.Options)) (*workmail.CreateUserOutput, error)
	RegisterToWorkMail(ctx context.Context, in *workmail.RegisterToWorkMailInput, optFns ...func(*workmail.Options)) (*workmail.RegisterToWorkMailOutput, error)
	ListUsers(ctx context.Context, in *workmail.ListUsersInput, optFns ...func(*workmail.Options)) (*workmail.ListUsersOutput, error)
}

// WorkMailCreator provisions AWS WorkMail users with the deployment's AWS
// credentials; no per-user OAuth token is involved.
type WorkMailCreator struct {
	api   workmailAPI
	orgID string
}

func NewWorkMailClient(ctx context.Context, cfg *config.Config) (*workmail.Client, error) {
	awsCfg, err := awscfg.Load(ctx, cfg, cfg.WorkMailRegion)
	if err != nil {
		return nil, err
	}
	return workmail.NewFromConfig(awsCfg, func(o *workmail.Options) {
		o.BaseEndpoint = awscfg.Endpoint(cfg)
	}), nil
}

func NewWorkMailCreator(api workmailAPI, orgID string) *WorkMailCreator {
	return &WorkMailCreator{api: api, orgID: orgID}
}

var workmailAuth = map[string]bool{
	"AccessDeniedException":       true,
	"UnrecognizedClientException": true,
	"ExpiredTokenException":       true,
}

// Create adds the user and registers its mailbox. A user left unregistered
// by an earlier failed call is registered rather than reported as existing.
func (c *WorkMailCreator) Create(ctx context.Context, req domain.AccountRequest) (domain.Account, error) {
	if c.orgID == "" {
		return domain.Account{}, errors.New("workmail organization is not configured")
	}
	out, err := c.api.CreateUser(ctx, &workmail.CreateUserInput{
		OrganizationId: aws.String(c.orgID),
		Name:           aws.String(req.LocalPart),
		DisplayName:    aws.String(strings.TrimSpace(req.GivenName + " " + req.FamilyName)),
		Password:       aws.String(req.Password),
	})
	var userID string
	switch {
	case err == nil:
		userID = aws.ToString(out.UserId)
	case errorCode(err) == "NameAvailabilityException":
		u, err := c.findUser(ctx, req.LocalPart)
		if err != nil {
			return domain.Account{}, err
		}
		if u.State == types.EntityStateEnabled {
			if strings.EqualFold(aws.ToString(u.Email), req.PrimaryEmail()) {
				return domain.Account{}, fmt.Errorf("workmail user %s: %w", req.LocalPart, domain.ErrAccountExists)
			}
			return domain.Account{}, fmt.Errorf("workmail user %s is registered as %s", req.LocalPart, aws.ToString(u.Email))
		}
		userID = aws.ToString(u.Id)
	default:
		return domain.Account{}, workmailError("create user", err)
	}

	_, err = c.api.RegisterToWorkMail(ctx, &workmail.RegisterToWorkMailInput{
		OrganizationId: aws.String(c.orgID),
		EntityId:       aws.String(userID),
		Email:          aws.String(req.PrimaryEmail()),
	})
	if err != nil {
		return domain.Account{}, workmailError("register user", err)
	}
	return domain.Account{PrimaryEmail: req.PrimaryEmail(), ProviderID: userID}, nil
}

// findUser returns the organization user whose name is exactly name.
func (c *WorkMailCreator) findUser(ctx context.Context, name string) (types.User, error) {
	pages := workmail.NewListUsersPaginator(c.api, &workmail.ListUsersInput{
		OrganizationId: aws.String(c.orgID),
		Filters:        &types.ListUsersFilters{UsernamePrefix: aws.String(name)},
	})
	for pages.HasMorePages() {
		page, err := pages.NextPage(ctx)
		if err != nil {
			return types.User{}, workmailError("list users", err)
		}
		for _, u := range page.Users {
			if strings.EqualFold(aws.ToString(u.Name), name) && u.State != types.EntityStateDeleted {
				return u, nil
			}
		}
	}
	return types.User{}, fmt.Errorf("workmail user name %s is unavailable", name)
}

func errorCode(err error) string {
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		return apiErr.ErrorCode()
	}
	return ""
}

func workmailError(op string, err error) error {
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) && workmailAuth[apiErr.ErrorCode()] {
		return fmt.Errorf("workmail %s: %s: %w", op, apiErr.ErrorMessage(), domain.ErrAuthRequired)
	}
	return fmt.Errorf("workmail %s: %w", op, err)
}
