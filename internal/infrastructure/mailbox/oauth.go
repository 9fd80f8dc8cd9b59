package mailbox

import (
	"github.com/go-mail-setup/internal/config"
	"github.com/go-mail-setup/internal/domain"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"golang.org/x/oauth2/microsoft"
	admin "google.golang.org/api/admin/directory/v1"
)

// OAuthConfigs returns the client configuration used to refresh each
// provider's tokens. Providers without a client ID are left out.
func OAuthConfigs(cfg *config.Config) map[domain.Provider]*oauth2.Config {
	out := make(map[domain.Provider]*oauth2.Config)
	if cfg.GoogleClientID != "" {
		out[domain.ProviderGoogle] = &oauth2.Config{
			ClientID:     cfg.GoogleClientID,
			ClientSecret: cfg.GoogleClientSecret,
			Endpoint:     google.Endpoint,
			Scopes:       []string{admin.AdminDirectoryUserScope},
		}
	}
	if cfg.MicrosoftClientID != "" {
		out[domain.ProviderMicrosoft] = &oauth2.Config{
			ClientID:     cfg.MicrosoftClientID,
			ClientSecret: cfg.MicrosoftClientSecret,
			Endpoint:     microsoft.AzureADEndpoint(cfg.MicrosoftTenant),
			Scopes:       []string{"https://graph.microsoft.com/User.ReadWrite.All", "offline_access"},
		}
	}
	return out
}
