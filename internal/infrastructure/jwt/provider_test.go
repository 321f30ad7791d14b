package jwtinfra

import (
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/pem"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// writeKeys writes a fresh RSA key pair as PEM files and returns their paths.
func writeKeys(t *testing.T) (privPath, pubPath string) {
	t.Helper()
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)
	dir := t.TempDir()

	privPath = filepath.Join(dir, "operator.pem")
	privPEM := pem.EncodeToMemory(&pem.Block{Type: "RSA PRIVATE KEY", Bytes: x509.MarshalPKCS1PrivateKey(key)})
	require.NoError(t, os.WriteFile(privPath, privPEM, 0o600))

	pubDER, err := x509.MarshalPKIXPublicKey(&key.PublicKey)
	require.NoError(t, err)
	pubPath = filepath.Join(dir, "operator.pub.pem")
	require.NoError(t, os.WriteFile(pubPath, pem.EncodeToMemory(&pem.Block{Type: "PUBLIC KEY", Bytes: pubDER}), 0o644))
	return privPath, pubPath
}

func TestSignVerify(t *testing.T) {
	privPath, pubPath := writeKeys(t)
	signer, err := NewProvider(privPath, "", time.Hour)
	require.NoError(t, err)
	verifier, err := NewProvider("", pubPath, time.Hour)
	require.NoError(t, err)

	tok, err := signer.Sign("cron", ScopeOperator)
	require.NoError(t, err)
	claims, err := verifier.Verify(tok)

	require.NoError(t, err)
	assert.Equal(t, "cron", claims.Subject)
	assert.Equal(t, Issuer, claims.Issuer)
	assert.Equal(t, ScopeOperator, claims.Scope)
}

func TestSign_RecipientScope(t *testing.T) {
	privPath, _ := writeKeys(t)
	p, err := NewProvider(privPath, "", time.Hour)
	require.NoError(t, err)

	tok, err := p.Sign("u1", ScopeRecipient)
	require.NoError(t, err)
	claims, err := p.Verify(tok)

	require.NoError(t, err)
	assert.Equal(t, "u1", claims.Subject)
	assert.Equal(t, ScopeRecipient, claims.Scope)
}

func TestVerify_Expired(t *testing.T) {
	privPath, _ := writeKeys(t)
	p, err := NewProvider(privPath, "", time.Minute)
	require.NoError(t, err)
	p.now = func() time.Time { return time.Now().Add(-time.Hour) }
	tok, err := p.Sign("cron", ScopeOperator)
	require.NoError(t, err)

	p.now = time.Now
	_, err = p.Verify(tok)
	assert.Error(t, err)
}

func TestVerify_WrongKey(t *testing.T) {
	privPath, _ := writeKeys(t)
	_, otherPub := writeKeys(t)
	signer, err := NewProvider(privPath, "", time.Hour)
	require.NoError(t, err)
	verifier, err := NewProvider("", otherPub, time.Hour)
	require.NoError(t, err)

	tok, err := signer.Sign("cron", ScopeOperator)
	require.NoError(t, err)
	_, err = verifier.Verify(tok)
	assert.Error(t, err)
}

func TestNewProvider_Errors(t *testing.T) {
	_, err := NewProvider("", "", time.Hour)
	assert.Error(t, err)

	_, err = NewProvider(filepath.Join(t.TempDir(), "missing.pem"), "", time.Hour)
	assert.Error(t, err)

	_, pubPath := writeKeys(t)
	p, err := NewProvider("", pubPath, time.Hour)
	require.NoError(t, err)
	_, err = p.Sign("cron", ScopeOperator)
	assert.Error(t, err)
}
