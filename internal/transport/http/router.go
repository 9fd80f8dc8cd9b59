package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-mail-setup/internal/config"
	jwtinfra "github.com/go-mail-setup/internal/infrastructure/jwt"
	"github.com/go-mail-setup/internal/transport/http/handler"
	appmiddleware "github.com/go-mail-setup/internal/transport/http/middleware"
	"golang.org/x/time/rate"
)

// NewRouter builds and returns the application router.
func NewRouter(cfg *config.Config, deps *Deps) http.Handler {
	r := chi.NewRouter()
	r.Use(chimiddleware.Logger)
	r.Use(chimiddleware.Recoverer)
	r.Use(chimiddleware.RequestID)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders:   []string{"Location"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	var authMw func(http.Handler) http.Handler
	if deps.Verifier != nil {
		authMw = appmiddleware.Auth(deps.Verifier)
	} else {
		devClaims := &jwtinfra.Claims{UserID: deps.DevUserID}
		authMw = func(next http.Handler) http.Handler {
			return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				next.ServeHTTP(w, r.WithContext(appmiddleware.WithClaims(r.Context(), devClaims)))
			})
		}
	}

	// Starting a setup touches live DNS; 1 request/second, burst of 5 per client.
	startRL := appmiddleware.NewRateLimiter(rate.Limit(1), 5)

	healthH := handler.NewHealthHandler(deps.Checks)
	setupH := handler.NewDomainSetupHandler(deps.Setup)
	emailH := handler.NewEmailSetupHandler(deps.EmailSetups)
	recordsH := handler.NewRecordsHandler(deps.Records)

	r.Route("/v1", func(r chi.Router) {
		// ── Public routes (no auth) ──────────────────────────────────────────
		r.Get("/health-check/{action}", healthH.Ping)
		r.Post("/health-check/{action}", healthH.Ping)
		r.Get("/providers/{provider}/records", recordsH.Preview)

		// ── Authenticated routes ─────────────────────────────────────────────
		r.Group(func(r chi.Router) {
			r.Use(authMw)

			r.With(startRL.Limit).Post("/domain-setup", setupH.Start)
			r.Get("/domain-setup/{id}", setupH.Get)
			r.Post("/domain-setup/{id}/retry", setupH.Retry)
			r.Post("/domain-setup/{id}/cancel", setupH.Cancel)
			r.Get("/email-setups", emailH.List)
			r.Get("/email-setups/{id}", emailH.Get)
		})
	})

	return r
}
