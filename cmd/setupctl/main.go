package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/go-mail-setup/internal/application/credential"
	"github.com/go-mail-setup/internal/application/records"
	"github.com/go-mail-setup/internal/application/verification"
	"github.com/go-mail-setup/internal/config"
	"github.com/go-mail-setup/internal/domain"
	"github.com/go-mail-setup/internal/infrastructure/dynamo"
	jwtinfra "github.com/go-mail-setup/internal/infrastructure/jwt"
	"github.com/go-mail-setup/internal/infrastructure/resolver"
	"github.com/go-mail-setup/internal/pkg/sealbox"
	"github.com/joho/godotenv"
	"github.com/urfave/cli/v2"
	"gopkg.in/yaml.v3"
)

func main() {
	_ = godotenv.Load()

	app := &cli.App{
		Name:  "setupctl",
		Usage: "operator tooling for the email setup service",
		Commands: []*cli.Command{
			{
				Name:  "records",
				Usage: "print the DNS records a provider requires for a domain",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "domain", Required: true, Usage: "domain to set up"},
					&cli.StringFlag{Name: "provider", Required: true, Usage: "google, microsoft or aws"},
					&cli.StringFlag{Name: "format", Value: "yaml", Usage: "yaml or json"},
				},
				Action: previewRecords,
			},
			{
				Name:  "check",
				Usage: "check once whether a verification token is visible in public DNS",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "domain", Required: true},
					&cli.StringFlag{Name: "token", Required: true, Usage: "token value without the namespace prefix"},
				},
				Action: checkVerification,
			},
			{
				Name:   "bootstrap",
				Usage:  "create the DynamoDB tables if they do not exist",
				Action: bootstrapTables,
			},
			{
				Name:  "credential",
				Usage: "store OAuth tokens for a user and provider",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "user", Required: true},
					&cli.StringFlag{Name: "provider", Required: true, Usage: "google or microsoft"},
					&cli.StringFlag{Name: "access-token"},
					&cli.StringFlag{Name: "refresh-token"},
					&cli.DurationFlag{Name: "expires-in", Value: time.Hour, Usage: "remaining lifetime of the access token"},
				},
				Action: storeCredential,
			},
			{
				Name:  "token",
				Usage: "sign an API token for a user (needs JWT_PRIVATE_KEY_PATH)",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "user", Required: true},
				},
				Action: signToken,
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		_, _ = fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func previewRecords(c *cli.Context) error {
	cfg := config.Load()
	d, err := domain.ParseDomainName(c.String("domain"))
	if err != nil {
		return err
	}
	p, err := domain.ParseProvider(c.String("provider"))
	if err != nil {
		return err
	}
	set, err := records.NewBuilder(cfg.AWSRegion, cfg.GoogleDKIMPublicKey).Build(d, p)
	if err != nil {
		return err
	}
	return writeRecords(c.App.Writer, c.String("format"), set)
}

func writeRecords(w io.Writer, format string, set domain.ProviderRecordSet) error {
	switch strings.ToLower(format) {
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(set)
	case "yaml":
		enc := yaml.NewEncoder(w)
		defer enc.Close()
		return enc.Encode(set)
	}
	return fmt.Errorf("unknown format %q", format)
}

func checkVerification(c *cli.Context) error {
	cfg := config.Load()
	d, err := domain.ParseDomainName(c.String("domain"))
	if err != nil {
		return err
	}
	tok := verification.Token{Value: c.String("token"), Domain: d, Namespace: cfg.VerificationNamespace}
	poller := verification.NewPoller(resolver.New(cfg.DNSResolvers, cfg.DNSCallTimeout), cfg.DNSCallTimeout)

	out := poller.Check(c.Context, d, tok)
	_, _ = fmt.Fprintf(c.App.Writer, "%s: %s (%s)\n", d, out.Result, out.Detail)
	if out.Result != verification.Verified {
		return cli.Exit("", 2)
	}
	return nil
}

func bootstrapTables(c *cli.Context) error {
	cfg := config.Load()
	if err := dynamo.Bootstrap(c.Context, dynamo.NewClient(cfg), cfg.DynamoTables); err != nil {
		return err
	}
	_, _ = fmt.Fprintf(c.App.Writer, "tables ready: %s, %s\n", cfg.DynamoTables.EmailSetups, cfg.DynamoTables.ProviderCredentials)
	return nil
}

func storeCredential(c *cli.Context) error {
	cfg := config.Load()
	if cfg.CredentialsKey == "" {
		return cli.Exit("CREDENTIALS_KEY is not set", 1)
	}
	box, err := sealbox.New(cfg.CredentialsKey)
	if err != nil {
		return err
	}
	repo := dynamo.NewCredentialRepo(dynamo.NewClient(cfg), cfg.DynamoTables.ProviderCredentials)
	svc := credential.NewService(repo, box)

	ctx, cancel := context.WithTimeout(c.Context, 30*time.Second)
	defer cancel()
	err = svc.Connect(ctx, c.String("user"), credential.ConnectRequest{
		Provider:     c.String("provider"),
		AccessToken:  c.String("access-token"),
		RefreshToken: c.String("refresh-token"),
		Expiry:       time.Now().Add(c.Duration("expires-in")),
	})
	if err != nil {
		return err
	}
	_, _ = fmt.Fprintf(c.App.Writer, "stored %s credentials for %s\n", c.String("provider"), c.String("user"))
	return nil
}

func signToken(c *cli.Context) error {
	p, err := jwtinfra.NewProvider(config.Load())
	if err != nil {
		return err
	}
	tok, err := p.Sign(c.String("user"))
	if err != nil {
		return err
	}
	_, _ = fmt.Fprintln(c.App.Writer, tok)
	return nil
}
