package domain

import (
	"errors"
	"fmt"
)

// Sentinel errors for domain-level error discrimination.
// Services wrap these so handlers can map to HTTP status codes without leaking infrastructure details.
var (
	ErrNotFound            = errors.New("not found")
	ErrUnauthorized        = errors.New("unauthorized")
	ErrBadRequest          = errors.New("bad request")
	ErrInvalidSubscription = errors.New("invalid subscription")
	ErrInvalidKeyMaterial  = errors.New("invalid key material")
	ErrMissingServerKeys   = errors.New("server keys not configured")
	ErrPayloadTooLarge     = errors.New("payload too large")
	ErrExpired             = errors.New("subscription expired")
	ErrDeliveryFailed      = errors.New("delivery failed")
)

// DeliveryError carries the relay's answer for a non-success, non-gone response.
type DeliveryError struct {
	StatusCode int
	Body       string
}

func (e *DeliveryError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("delivery failed: relay status %d", e.StatusCode)
	}
	return fmt.Sprintf("delivery failed: relay status %d: %s", e.StatusCode, e.Body)
}

// Is reports a match against ErrDeliveryFailed so callers can use errors.Is.
func (e *DeliveryError) Is(target error) bool {
	return target == ErrDeliveryFailed
}
