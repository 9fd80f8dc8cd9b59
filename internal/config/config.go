package config

import (
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds all runtime configuration loaded from environment variables.
type Config struct {
	AppPort        string
	AppEnv         string
	AWSRegion      string
	AWSEndpointURL string // empty in prod, set to LocalStack URL in dev
	AWSAccessKeyID string
	AWSSecretKey   string
	DynamoTables   DynamoTables

	DNSBackend          string // "route53" | "memory"
	Route53HostedZoneID string
	Route53RateLimit    float64 // change requests per second
	DNSResolvers        []string
	DNSCallTimeout      time.Duration

	VerificationNamespace    string
	VerificationPollAttempts int
	VerificationPollInterval time.Duration
	PublishMaxRetries        int
	PublishRetryBase         time.Duration
	GoogleDKIMPublicKey      string

	RedisURL      string // empty selects the in-process domain guard
	DomainLockTTL time.Duration

	SNSTopicARN  string
	S3BucketName string

	CredentialsKey        string // hex-encoded 32-byte secretbox key
	GoogleClientID        string
	GoogleClientSecret    string
	MicrosoftClientID     string
	MicrosoftClientSecret string
	MicrosoftTenant       string
	WorkMailOrgID         string
	WorkMailRegion        string

	JWTPrivateKeyPath string
	JWTPublicKeyPath  string
	JWTExpiry         time.Duration
	AllowedOrigins    []string // CORS allowed origins
}

// DynamoTables holds the DynamoDB table name for each entity.
type DynamoTables struct {
	EmailSetups         string
	ProviderCredentials string
}

// fileValues holds KEY: value pairs read from CONFIG_FILE. They sit below
// real environment variables and above compiled-in defaults.
var fileValues map[string]string

// Load reads all configuration from environment variables, optionally
// seeded by the YAML file named in CONFIG_FILE.
func Load() *Config {
	fileValues = readFile(os.Getenv("CONFIG_FILE"))

	appEnv := getEnv("APP_ENV", "development")
	defaultBackend := "route53"
	if appEnv == "development" {
		defaultBackend = "memory"
	}
	region := getEnv("AWS_REGION", "us-east-1")

	return &Config{
		AppPort:        getEnv("APP_PORT", "3000"),
		AppEnv:         appEnv,
		AWSRegion:      region,
		AWSEndpointURL: getEnv("AWS_ENDPOINT_URL", ""),
		AWSAccessKeyID: getEnv("AWS_ACCESS_KEY_ID", ""),
		AWSSecretKey:   getEnv("AWS_SECRET_ACCESS_KEY", ""),
		DynamoTables: DynamoTables{
			EmailSetups:         getEnv("DYNAMO_TABLE_EMAIL_SETUPS", "email_setups"),
			ProviderCredentials: getEnv("DYNAMO_TABLE_PROVIDER_CREDENTIALS", "provider_credentials"),
		},
		DNSBackend:               getEnv("DNS_BACKEND", defaultBackend),
		Route53HostedZoneID:      getEnv("ROUTE53_HOSTED_ZONE_ID", ""),
		Route53RateLimit:         getEnvFloat("ROUTE53_RATE_LIMIT", 5),
		DNSResolvers:             splitList(getEnv("DNS_RESOLVERS", "8.8.8.8:53,1.1.1.1:53")),
		DNSCallTimeout:           getEnvDuration("DNS_CALL_TIMEOUT", 5*time.Second),
		VerificationNamespace:    getEnv("VERIFICATION_NAMESPACE", "lovable"),
		VerificationPollAttempts: getEnvInt("VERIFICATION_POLL_ATTEMPTS", 30),
		VerificationPollInterval: getEnvDuration("VERIFICATION_POLL_INTERVAL", 10*time.Second),
		PublishMaxRetries:        getEnvInt("PUBLISH_MAX_RETRIES", 3),
		PublishRetryBase:         getEnvDuration("PUBLISH_RETRY_BASE", 500*time.Millisecond),
		GoogleDKIMPublicKey:      getEnv("GOOGLE_DKIM_PUBLIC_KEY", ""),
		RedisURL:                 getEnv("REDIS_URL", ""),
		DomainLockTTL:            getEnvDuration("DOMAIN_LOCK_TTL", 30*time.Minute),
		SNSTopicARN:              getEnv("SNS_TOPIC_ARN", ""),
		S3BucketName:             getEnv("S3_BUCKET_NAME", ""),
		CredentialsKey:           getEnv("CREDENTIALS_KEY", ""),
		GoogleClientID:           getEnv("GOOGLE_CLIENT_ID", ""),
		GoogleClientSecret:       getEnv("GOOGLE_CLIENT_SECRET", ""),
		MicrosoftClientID:        getEnv("MICROSOFT_CLIENT_ID", ""),
		MicrosoftClientSecret:    getEnv("MICROSOFT_CLIENT_SECRET", ""),
		MicrosoftTenant:          getEnv("MICROSOFT_TENANT", "common"),
		WorkMailOrgID:            getEnv("WORKMAIL_ORGANIZATION_ID", ""),
		WorkMailRegion:           getEnv("WORKMAIL_REGION", region),
		JWTPrivateKeyPath:        getEnv("JWT_PRIVATE_KEY_PATH", "./private_key.pem"),
		JWTPublicKeyPath:         getEnv("JWT_PUBLIC_KEY_PATH", "./public_key.pem"),
		JWTExpiry:                getEnvDuration("JWT_EXPIRY", 7*24*time.Hour),
		AllowedOrigins:           splitList(getEnv("ALLOWED_ORIGINS", "*")),
	}
}

func readFile(path string) map[string]string {
	if path == "" {
		return nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		slog.Warn("could not read config file", "path", path, "err", err)
		return nil
	}
	var values map[string]string
	if err := yaml.Unmarshal(data, &values); err != nil {
		slog.Warn("could not parse config file", "path", path, "err", err)
		return nil
	}
	return values
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	if v, ok := fileValues[key]; ok && v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v := getEnv(key, ""); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func getEnvFloat(key string, fallback float64) float64 {
	if v := getEnv(key, ""); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if v := getEnv(key, ""); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}

func splitList(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
