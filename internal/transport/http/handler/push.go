package handler

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-push-relay/internal/application/push"
	"github.com/go-push-relay/internal/domain"
	"github.com/go-push-relay/internal/pkg/validate"
	"github.com/go-push-relay/internal/transport/http/middleware"
)

// PushHandler serves subscription management and delivery endpoints.
type PushHandler struct {
	svc push.Service
}

func NewPushHandler(svc push.Service) *PushHandler { return &PushHandler{svc: svc} }

func (h *PushHandler) PublicKey(w http.ResponseWriter, r *http.Request) {
	key, err := h.svc.PublicKey()
	if err != nil {
		httpError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, PublicKeyEnvelope{PublicKey: key})
}

func (h *PushHandler) Subscribe(w http.ResponseWriter, r *http.Request) {
	var req domain.SubscribeRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := validate.Struct(&req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	recipientID, ok := h.caller(w, r, req.RecipientID)
	if !ok {
		return
	}
	if err := h.svc.Register(r.Context(), recipientID, req.Subscription.ToDomain()); err != nil {
		httpError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, MessageEnvelope{Message: "subscribed"})
}

func (h *PushHandler) Unsubscribe(w http.ResponseWriter, r *http.Request) {
	recipientID, ok := h.caller(w, r, chi.URLParam(r, "id"))
	if !ok {
		return
	}
	if err := h.svc.Unregister(r.Context(), recipientID); err != nil {
		httpError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, MessageEnvelope{Message: "unsubscribed"})
}

func (h *PushHandler) GetSubscription(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	rec, err := h.svc.GetSubscription(r.Context(), id)
	if err != nil {
		httpError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, SubscriptionEnvelope{RecipientID: id, Record: rec})
}

func (h *PushHandler) Send(w http.ResponseWriter, r *http.Request) {
	fields, ok := decodeFields(w, r)
	if !ok {
		return
	}
	id := chi.URLParam(r, "id")
	if err := h.svc.SendToOne(r.Context(), id, fields); err != nil {
		httpError(w, r, err)
		return
	}
	slog.InfoContext(r.Context(), "notification sent", "recipient", id, "operator", operator(r))
	writeJSON(w, http.StatusOK, MessageEnvelope{Message: "sent"})
}

func (h *PushHandler) Broadcast(w http.ResponseWriter, r *http.Request) {
	fields, ok := decodeFields(w, r)
	if !ok {
		return
	}
	report, err := h.svc.SendToAll(r.Context(), fields)
	if err != nil {
		httpError(w, r, err)
		return
	}
	slog.InfoContext(r.Context(), "broadcast requested", "id", report.ID, "operator", operator(r))
	writeJSON(w, http.StatusOK, report)
}

// decodeFields reads optional notification fields; an empty body means
// all defaults.
func decodeFields(w http.ResponseWriter, r *http.Request) (domain.NotificationFields, bool) {
	var f domain.NotificationFields
	if err := decodeJSON(w, r, &f); err != nil && !errors.Is(err, io.EOF) {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid request body: %v", err))
		return f, false
	}
	return f, true
}

// caller resolves the recipient a request acts for. The token subject is the
// recipient; a requested id that names anyone else is refused.
func (h *PushHandler) caller(w http.ResponseWriter, r *http.Request, requested string) (string, bool) {
	c, ok := middleware.ClaimsFromContext(r.Context())
	if !ok || c.Subject == "" {
		writeError(w, http.StatusUnauthorized, "recipient token required")
		return "", false
	}
	if requested != "" && requested != c.Subject {
		writeError(w, http.StatusForbidden, "token does not belong to this recipient")
		return "", false
	}
	return c.Subject, true
}

func operator(r *http.Request) string {
	if c, ok := middleware.ClaimsFromContext(r.Context()); ok {
		return c.Subject
	}
	return ""
}
