package handler

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-push-relay/internal/domain"
)

type healthChecker interface {
	HealthCheck(ctx context.Context) domain.Health
}

// HealthHandler handles health-check endpoints.
type HealthHandler struct {
	svc healthChecker
}

func NewHealthHandler(svc healthChecker) *HealthHandler { return &HealthHandler{svc: svc} }

func (h *HealthHandler) Ping(w http.ResponseWriter, r *http.Request) {
	switch chi.URLParam(r, "action") {
	case "ping":
		writeJSON(w, http.StatusOK, MessageEnvelope{Message: "pong"})
	case "status":
		health := h.svc.HealthCheck(r.Context())
		status := http.StatusOK
		if !health.KeysConfigured || !health.StoreConfigured {
			status = http.StatusServiceUnavailable
		}
		writeJSON(w, status, health)
	default:
		writeError(w, http.StatusBadRequest, "unknown action")
	}
}
