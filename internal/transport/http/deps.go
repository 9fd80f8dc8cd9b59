package http

import (
	"github.com/go-mail-setup/internal/application/emailsetup"
	"github.com/go-mail-setup/internal/application/setup"
	"github.com/go-mail-setup/internal/transport/http/handler"
	appmiddleware "github.com/go-mail-setup/internal/transport/http/middleware"
)

// Deps holds the application services the router exposes.
type Deps struct {
	Setup       setup.Service
	EmailSetups emailsetup.Service
	Records     handler.RecordBuilder
	// Checks back the readiness probe, keyed by dependency name.
	Checks map[string]handler.Check
	// Verifier authenticates bearer tokens. Nil disables auth (development only).
	Verifier appmiddleware.TokenVerifier
	// DevUserID is the identity assumed when Verifier is nil.
	DevUserID string
}
