package webpush

import (
	"fmt"
	"net/url"
	"time"

	"github.com/go-push-relay/internal/domain"
	"github.com/golang-jwt/jwt/v5"
)

// tokenLifetime bounds the assertion lifetime; relays reject exp beyond 24h.
const tokenLifetime = 12 * time.Hour

// Token is a signed VAPID assertion plus the key that verifies it.
type Token struct {
	Value     string
	PublicKey string
}

// Authorization renders the value of the Authorization request header.
func (t *Token) Authorization() string {
	return fmt.Sprintf("vapid t=%s, k=%s", t.Value, t.PublicKey)
}

// IssueToken signs a fresh ES256 assertion scoped to audience (a relay
// origin). subject is the sender contact, a mailto: or https: URI.
func (k *Keys) IssueToken(audience, subject string, now time.Time) (*Token, error) {
	if k == nil || k.private == nil {
		return nil, domain.ErrMissingServerKeys
	}
	claims := jwt.MapClaims{
		"aud": audience,
		"exp": now.Add(tokenLifetime).Unix(),
		"sub": subject,
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodES256, claims).SignedString(k.private)
	if err != nil {
		return nil, fmt.Errorf("sign vapid token: %w", domain.ErrMissingServerKeys)
	}
	return &Token{Value: signed, PublicKey: k.publicB64}, nil
}

// Origin returns scheme://host of a subscription endpoint.
func Origin(endpoint string) (string, error) {
	u, err := url.Parse(endpoint)
	if err != nil {
		return "", fmt.Errorf("parse endpoint: %w", domain.ErrInvalidSubscription)
	}
	if u.Scheme == "" || u.Host == "" {
		return "", fmt.Errorf("endpoint is not absolute: %w", domain.ErrInvalidSubscription)
	}
	return u.Scheme + "://" + u.Host, nil
}
