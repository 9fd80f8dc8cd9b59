package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-mail-setup/internal/application/emailsetup"
	"github.com/go-mail-setup/internal/application/records"
	"github.com/go-mail-setup/internal/application/setup"
	"github.com/go-mail-setup/internal/application/verification"
	"github.com/go-mail-setup/internal/config"
	"github.com/go-mail-setup/internal/domain"
	"github.com/go-mail-setup/internal/infrastructure/dynamo"
	jwtinfra "github.com/go-mail-setup/internal/infrastructure/jwt"
	"github.com/go-mail-setup/internal/infrastructure/mailbox"
	"github.com/go-mail-setup/internal/infrastructure/memzone"
	"github.com/go-mail-setup/internal/infrastructure/redislock"
	"github.com/go-mail-setup/internal/infrastructure/resolver"
	route53infra "github.com/go-mail-setup/internal/infrastructure/route53"
	s3infra "github.com/go-mail-setup/internal/infrastructure/s3"
	"github.com/go-mail-setup/internal/infrastructure/sns"
	"github.com/go-mail-setup/internal/pkg/sealbox"
	transporthttp "github.com/go-mail-setup/internal/transport/http"
	"github.com/go-mail-setup/internal/transport/http/handler"
	"github.com/joho/godotenv"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, reading from environment")
	}

	cfg := config.Load()
	ctx := context.Background()

	// Bootstrap DynamoDB tables (creates them if they don't exist).
	dynamoClient := dynamo.NewClient(cfg)
	if err := dynamo.Bootstrap(ctx, dynamoClient, cfg.DynamoTables); err != nil {
		log.Printf("WARN: table bootstrap incomplete: %v", err)
	}
	setupRepo := dynamo.NewEmailSetupRepo(dynamoClient, cfg.DynamoTables.EmailSetups)
	credentialRepo := dynamo.NewCredentialRepo(dynamoClient, cfg.DynamoTables.ProviderCredentials)

	checks := map[string]handler.Check{"dynamo": setupRepo.Ping}

	zone, txt, defaultZoneID := dnsBackend(ctx, cfg)

	var guard setup.DomainGuard = setup.NewMemoryGuard()
	if cfg.RedisURL != "" {
		client, err := redislock.NewClient(ctx, cfg.RedisURL)
		if err != nil {
			log.Fatalf("redis: %v", err)
		}
		defer client.Close()
		redisGuard := redislock.NewGuard(client, cfg.DomainLockTTL)
		checks["redis"] = redisGuard.Ping
		guard = redisGuard
	}

	sinks := setup.Sinks{setup.LogSink{}}
	if cfg.SNSTopicARN != "" {
		snsClient, err := sns.NewClient(ctx, cfg)
		if err != nil {
			log.Fatalf("sns: %v", err)
		}
		sinks = append(sinks, setup.PublisherSink{Publisher: sns.NewEventPublisher(snsClient, cfg.SNSTopicARN)})
	}

	var archive setup.RolloutArchive
	if cfg.S3BucketName != "" {
		s3Client, err := s3infra.NewClient(ctx, cfg)
		if err != nil {
			log.Fatalf("s3: %v", err)
		}
		archive = s3infra.NewRolloutArchive(s3Client, cfg.S3BucketName)
	}

	creators := map[domain.Provider]mailbox.Creator{}
	if cfg.CredentialsKey != "" {
		box, err := sealbox.New(cfg.CredentialsKey)
		if err != nil {
			log.Fatalf("credentials key: %v", err)
		}
		tokens := mailbox.NewTokens(credentialRepo, box, mailbox.OAuthConfigs(cfg))
		creators[domain.ProviderGoogle] = mailbox.NewGoogleCreator(tokens, "")
		creators[domain.ProviderMicrosoft] = mailbox.NewMicrosoftCreator(tokens, "")
	} else {
		log.Println("WARN: CREDENTIALS_KEY not set, Google and Microsoft account creation disabled")
	}
	wmClient, err := mailbox.NewWorkMailClient(ctx, cfg)
	if err != nil {
		log.Fatalf("workmail: %v", err)
	}
	creators[domain.ProviderAWS] = mailbox.NewWorkMailCreator(wmClient, cfg.WorkMailOrgID)

	builder := records.NewBuilder(cfg.AWSRegion, cfg.GoogleDKIMPublicKey)
	if cfg.GoogleDKIMPublicKey == "" {
		slog.Warn("GOOGLE_DKIM_PUBLIC_KEY not set, Google DKIM record carries a placeholder key")
	}

	setupSvc := setup.NewService(setup.Deps{
		Issuer:   verification.NewIssuer(cfg.VerificationNamespace),
		Poller:   verification.NewPoller(txt, cfg.DNSCallTimeout),
		Builder:  builder,
		Zone:     zone,
		Accounts: mailbox.NewDispatcher(creators),
		Store:    setupRepo,
		Guard:    guard,
		Archive:  archive,
		Sink:     sinks,
	}, setup.Options{
		Budget: verification.Budget{
			MaxAttempts: cfg.VerificationPollAttempts,
			Interval:    cfg.VerificationPollInterval,
		},
		PublishMaxRetries: cfg.PublishMaxRetries,
		PublishRetryBase:  cfg.PublishRetryBase,
		DefaultZoneID:     defaultZoneID,
	})

	deps := &transporthttp.Deps{
		Setup:       setupSvc,
		EmailSetups: emailsetup.NewService(setupRepo),
		Records:     builder,
		Checks:      checks,
	}
	// JWT verification is mandatory outside development.
	if p, err := jwtinfra.NewProvider(cfg); err == nil {
		deps.Verifier = p
	} else if cfg.AppEnv == "development" {
		log.Printf("WARN: JWT provider not available, all requests run as dev-user: %v", err)
		deps.DevUserID = "dev-user"
	} else {
		log.Fatalf("jwt: %v", err)
	}

	router := transporthttp.NewRouter(cfg, deps)

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%s", cfg.AppPort),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Printf("Server starting on :%s (env=%s, dns=%s)", cfg.AppPort, cfg.AppEnv, cfg.DNSBackend)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("server error: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down server...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("forced shutdown: %v", err)
	}
	if err := setupSvc.Shutdown(shutdownCtx); err != nil {
		log.Printf("setup attempts still running: %v", err)
	}
	log.Println("Server stopped")
}

// dnsBackend selects the zone publisher and the resolver the poller checks.
// The memory backend answers its own lookups so the wizard runs offline.
func dnsBackend(ctx context.Context, cfg *config.Config) (setup.ZonePublisher, verification.TXTResolver, string) {
	switch cfg.DNSBackend {
	case "memory":
		z := memzone.New()
		zoneID := cfg.Route53HostedZoneID
		if zoneID == "" {
			zoneID = "memory"
		}
		return z, z, zoneID
	case "route53":
		client, err := route53infra.NewClient(ctx, cfg)
		if err != nil {
			log.Fatalf("route53: %v", err)
		}
		pub := route53infra.NewPublisher(client, cfg.Route53RateLimit, cfg.DNSCallTimeout)
		return pub, resolver.New(cfg.DNSResolvers, cfg.DNSCallTimeout), cfg.Route53HostedZoneID
	}
	log.Fatalf("unknown DNS_BACKEND %q (want route53 or memory)", cfg.DNSBackend)
	return nil, nil, ""
}
