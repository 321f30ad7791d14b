package http

import (
	"log/slog"

	"github.com/go-push-relay/internal/application/push"
	jwtinfra "github.com/go-push-relay/internal/infrastructure/jwt"
)

// Deps holds the services the router wires into handlers.
type Deps struct {
	Push push.Service
	// Tokens verifies bearer tokens on operator and recipient routes. Nil
	// disables both.
	Tokens *jwtinfra.Provider
	Logger *slog.Logger
}
