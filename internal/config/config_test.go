package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("CONFIG_FILE", "")
	t.Setenv("APP_ENV", "")
	cfg := Load()

	assert.Equal(t, "3000", cfg.AppPort)
	assert.Equal(t, "memory", cfg.DNSBackend)
	assert.Equal(t, "lovable", cfg.VerificationNamespace)
	assert.Equal(t, []string{"8.8.8.8:53", "1.1.1.1:53"}, cfg.DNSResolvers)
	assert.Equal(t, 10*time.Second, cfg.VerificationPollInterval)
	assert.Equal(t, "email_setups", cfg.DynamoTables.EmailSetups)
}

func TestLoad_ProductionDefaultsToRoute53(t *testing.T) {
	t.Setenv("CONFIG_FILE", "")
	t.Setenv("APP_ENV", "production")
	assert.Equal(t, "route53", Load().DNSBackend)
}

func TestLoad_FileValuesSitBelowEnvironment(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "setup.yaml")
	require.NoError(t, os.WriteFile(path, []byte(
		"VERIFICATION_POLL_ATTEMPTS: \"12\"\nROUTE53_HOSTED_ZONE_ID: Z123\nAPP_PORT: \"9000\"\n"), 0600))

	t.Setenv("CONFIG_FILE", path)
	t.Setenv("APP_PORT", "8080")
	cfg := Load()

	assert.Equal(t, 12, cfg.VerificationPollAttempts)
	assert.Equal(t, "Z123", cfg.Route53HostedZoneID)
	assert.Equal(t, "8080", cfg.AppPort)
}

func TestLoad_BadDurationFallsBack(t *testing.T) {
	t.Setenv("CONFIG_FILE", "")
	t.Setenv("DNS_CALL_TIMEOUT", "soon")
	assert.Equal(t, 5*time.Second, Load().DNSCallTimeout)
}
