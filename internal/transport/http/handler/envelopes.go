package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-push-relay/internal/domain"
)

// maxBodyBytes bounds every JSON request body.
const maxBodyBytes = 64 << 10

// MessageEnvelope is the generic response wrapper.
type MessageEnvelope struct {
	Message   string `json:"message,omitempty"`
	Error     string `json:"error,omitempty"`
	ErrorCode int    `json:"error_code,omitempty"`
}

// PublicKeyEnvelope carries the sender key browsers pass as applicationServerKey.
type PublicKeyEnvelope struct {
	PublicKey string `json:"publicKey"`
}

// SubscriptionEnvelope wraps a stored subscription for operators.
type SubscriptionEnvelope struct {
	RecipientID string                     `json:"recipient_id"`
	Record      *domain.SubscriptionRecord `json:"record"`
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, MessageEnvelope{Error: msg, ErrorCode: status})
}

func decodeJSON(w http.ResponseWriter, r *http.Request, v interface{}) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	return json.NewDecoder(r.Body).Decode(v)
}

// httpError maps domain errors to status codes. Unclassified errors are
// logged and answered with a generic 500.
func httpError(w http.ResponseWriter, r *http.Request, err error) {
	var de *domain.DeliveryError
	switch {
	case errors.Is(err, domain.ErrInvalidSubscription),
		errors.Is(err, domain.ErrInvalidKeyMaterial),
		errors.Is(err, domain.ErrBadRequest):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, domain.ErrUnauthorized):
		writeError(w, http.StatusUnauthorized, "unauthorized")
	case errors.Is(err, domain.ErrNotFound):
		writeError(w, http.StatusNotFound, "subscription not found")
	case errors.Is(err, domain.ErrExpired):
		writeError(w, http.StatusGone, "subscription expired and was removed")
	case errors.Is(err, domain.ErrPayloadTooLarge):
		writeError(w, http.StatusRequestEntityTooLarge, err.Error())
	case errors.As(err, &de):
		writeError(w, http.StatusBadGateway, de.Error())
	case errors.Is(err, domain.ErrDeliveryFailed):
		writeError(w, http.StatusBadGateway, err.Error())
	case errors.Is(err, domain.ErrMissingServerKeys):
		slog.ErrorContext(r.Context(), "push keys not configured", "path", r.URL.Path)
		writeError(w, http.StatusInternalServerError, "push service is not configured")
	default:
		slog.ErrorContext(r.Context(), "request failed", "path", r.URL.Path, "err", err)
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}
