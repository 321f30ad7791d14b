// Package webpush implements the sender side of Web Push: VAPID assertions,
// payload encryption and the POST to the push relay.
package webpush

import (
	"bytes"
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"strings"

	"github.com/go-push-relay/internal/domain"
)

// Keys is the sender's P-256 key pair used to sign VAPID assertions.
type Keys struct {
	private   *ecdsa.PrivateKey
	publicB64 string
}

// LoadKeys parses a base64url raw private scalar and the matching base64url
// uncompressed public point. Both are required and must belong together.
func LoadKeys(publicKey, privateKey string) (*Keys, error) {
	if publicKey == "" || privateKey == "" {
		return nil, domain.ErrMissingServerKeys
	}
	d, err := decodeBase64URL(privateKey)
	if err != nil {
		return nil, fmt.Errorf("decode private key: %w", domain.ErrMissingServerKeys)
	}
	priv, err := ecdsa.ParseRawPrivateKey(elliptic.P256(), d)
	if err != nil {
		return nil, fmt.Errorf("parse private key: %w", domain.ErrMissingServerKeys)
	}
	pub, err := decodeBase64URL(publicKey)
	if err != nil {
		return nil, fmt.Errorf("decode public key: %w", domain.ErrMissingServerKeys)
	}
	derived, err := priv.PublicKey.Bytes()
	if err != nil {
		return nil, fmt.Errorf("encode public key: %w", domain.ErrMissingServerKeys)
	}
	if !bytes.Equal(pub, derived) {
		return nil, fmt.Errorf("public key does not match private key: %w", domain.ErrMissingServerKeys)
	}
	return &Keys{private: priv, publicB64: base64.RawURLEncoding.EncodeToString(derived)}, nil
}

// GenerateKeys creates a fresh sender key pair and returns it base64url encoded.
func GenerateKeys() (publicKey, privateKey string, err error) {
	priv, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	if err != nil {
		return "", "", fmt.Errorf("generate key: %w", err)
	}
	d, err := priv.Bytes()
	if err != nil {
		return "", "", fmt.Errorf("encode private key: %w", err)
	}
	pub, err := priv.PublicKey.Bytes()
	if err != nil {
		return "", "", fmt.Errorf("encode public key: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(pub), base64.RawURLEncoding.EncodeToString(d), nil
}

// PublicKey returns the sender's public key, base64url without padding.
func (k *Keys) PublicKey() string {
	return k.publicB64
}

// decodeBase64URL accepts padded or unpadded input, and tolerates the
// standard alphabet some clients still emit.
func decodeBase64URL(s string) ([]byte, error) {
	s = strings.TrimRight(strings.TrimSpace(s), "=")
	s = strings.NewReplacer("+", "-", "/", "_").Replace(s)
	return base64.RawURLEncoding.DecodeString(s)
}
