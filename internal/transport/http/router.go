package http

import (
	"log/slog"
	"net/http"

	"github.com/flashbots/go-utils/httplogger"
	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-push-relay/internal/config"
	jwtinfra "github.com/go-push-relay/internal/infrastructure/jwt"
	"github.com/go-push-relay/internal/transport/http/handler"
	appmiddleware "github.com/go-push-relay/internal/transport/http/middleware"
	"golang.org/x/time/rate"
)

// NewRouter builds and returns the application router.
func NewRouter(cfg *config.Config, deps *Deps) http.Handler {
	log := deps.Logger
	if log == nil {
		log = slog.Default()
	}

	r := chi.NewRouter()
	if cfg.TrustProxyHeaders {
		r.Use(chimiddleware.RealIP)
	}
	r.Use(chimiddleware.RequestID)
	r.Use(func(next http.Handler) http.Handler { return httplogger.LoggingMiddlewareSlog(log, next) })
	r.Use(chimiddleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	// 5 requests/second, burst of 10, applied to subscription writes.
	subscribeRL := appmiddleware.NewRateLimiter(rate.Limit(5), 10)
	recipientAuth := appmiddleware.Auth(deps.Tokens, jwtinfra.ScopeRecipient)
	operatorAuth := appmiddleware.Auth(deps.Tokens, jwtinfra.ScopeOperator)

	healthH := handler.NewHealthHandler(deps.Push)
	pushH := handler.NewPushHandler(deps.Push)

	r.Route("/v1", func(r chi.Router) {
		// ── Public routes (no auth) ──────────────────────────────────────────
		r.Get("/health-check/{action}", healthH.Ping)
		r.Get("/push/public-key", pushH.PublicKey)

		// ── Recipient routes (token subject is the recipient id) ─────────────
		r.Group(func(r chi.Router) {
			r.Use(subscribeRL.Limit)
			r.Use(recipientAuth)

			r.Post("/push/subscriptions", pushH.Subscribe)
			r.Delete("/push/subscriptions/{id}", pushH.Unsubscribe)
		})

		// ── Operator routes ──────────────────────────────────────────────────
		r.Group(func(r chi.Router) {
			r.Use(operatorAuth)

			r.Get("/push/subscriptions/{id}", pushH.GetSubscription)
			r.Post("/push/send/{id}", pushH.Send)
			r.Post("/push/broadcast", pushH.Broadcast)
		})
	})

	return r
}
