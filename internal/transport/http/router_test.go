package http

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-mail-setup/internal/application/records"
	"github.com/go-mail-setup/internal/config"
	jwtinfra "github.com/go-mail-setup/internal/infrastructure/jwt"
	"github.com/stretchr/testify/assert"
)

func TestRouter_HealthAndAuth(t *testing.T) {
	cfg := &config.Config{AllowedOrigins: []string{"*"}}
	router := NewRouter(cfg, &Deps{
		Records:  records.NewBuilder("us-east-1", ""),
		Verifier: rejectAll{},
	})

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/v1/health-check/ping", nil))
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), "pong")

	rr = httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/v1/providers/google/records?domain=example.com", nil))
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), "ASPMX.L.GOOGLE.COM.")

	rr = httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/v1/email-setups", nil))
	assert.Equal(t, http.StatusUnauthorized, rr.Code)
}

type rejectAll struct{}

func (rejectAll) Verify(string) (*jwtinfra.Claims, error) { return nil, errors.New("no") }
