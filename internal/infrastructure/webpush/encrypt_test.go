package webpush

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/ecdh"
	"crypto/rand"
	"encoding/base64"
	"encoding/binary"
	"errors"
	"strings"
	"testing"

	"github.com/go-push-relay/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recipient struct {
	priv   *ecdh.PrivateKey
	auth   []byte
	p256dh string
	secret string
}

func newRecipient(t *testing.T) recipient {
	t.Helper()
	priv, err := ecdh.P256().GenerateKey(rand.Reader)
	require.NoError(t, err)
	auth := make([]byte, 16)
	_, err = rand.Read(auth)
	require.NoError(t, err)
	return recipient{
		priv:   priv,
		auth:   auth,
		p256dh: base64.RawURLEncoding.EncodeToString(priv.PublicKey().Bytes()),
		secret: base64.RawURLEncoding.EncodeToString(auth),
	}
}

// open plays the browser side: parse the frame and decrypt the record.
func (r recipient) open(t *testing.T, body []byte) []byte {
	t.Helper()
	require.Greater(t, len(body), headerLen)
	salt := body[:saltLen]
	assert.Equal(t, uint32(4096), binary.BigEndian.Uint32(body[saltLen:saltLen+4]))
	idLen := int(body[saltLen+4])
	require.Equal(t, 65, idLen)
	ephRaw := body[saltLen+5 : saltLen+5+idLen]
	ciphertext := body[saltLen+5+idLen:]

	ephPub, err := ecdh.P256().NewPublicKey(ephRaw)
	require.NoError(t, err)
	shared, err := r.priv.ECDH(ephPub)
	require.NoError(t, err)
	cek, nonce, err := deriveKeys(shared, r.auth, salt, r.priv.PublicKey().Bytes(), ephRaw)
	require.NoError(t, err)

	block, err := aes.NewCipher(cek)
	require.NoError(t, err)
	gcm, err := cipher.NewGCM(block)
	require.NoError(t, err)
	padded, err := gcm.Open(nil, nonce, ciphertext, nil)
	require.NoError(t, err)
	require.NotEmpty(t, padded)
	assert.Equal(t, byte(2), padded[len(padded)-1], "padding delimiter")
	return padded[:len(padded)-1]
}

func TestEncrypt_RoundTrip(t *testing.T) {
	r := newRecipient(t)
	plaintext := []byte(`{"title":"Hi","body":"Test"}`)

	body, err := Encrypt(plaintext, r.p256dh, r.secret)

	require.NoError(t, err)
	assert.Len(t, body, headerLen+len(plaintext)+1+16)
	assert.Equal(t, plaintext, r.open(t, body))
}

func TestEncrypt_IsNonDeterministic(t *testing.T) {
	r := newRecipient(t)
	plaintext := []byte(`{"title":"same"}`)

	a, err := Encrypt(plaintext, r.p256dh, r.secret)
	require.NoError(t, err)
	b, err := Encrypt(plaintext, r.p256dh, r.secret)
	require.NoError(t, err)

	assert.NotEqual(t, a, b)
	assert.NotEqual(t, a[:saltLen], b[:saltLen], "salt must be fresh")
	assert.NotEqual(t, a[saltLen+5:headerLen], b[saltLen+5:headerLen], "ephemeral key must be fresh")
}

func TestEncrypt_AcceptsPaddedKeys(t *testing.T) {
	r := newRecipient(t)
	padded := base64.URLEncoding.EncodeToString(r.auth)
	require.True(t, strings.HasSuffix(padded, "="))

	body, err := Encrypt([]byte("x"), r.p256dh, padded)

	require.NoError(t, err)
	assert.Equal(t, []byte("x"), r.open(t, body))
}

func TestEncrypt_InvalidKeyMaterial(t *testing.T) {
	r := newRecipient(t)
	cases := map[string][2]string{
		"malformed p256dh":  {"***", r.secret},
		"malformed auth":    {r.p256dh, "***"},
		"short auth":        {r.p256dh, base64.RawURLEncoding.EncodeToString([]byte("short"))},
		"not a curve point": {base64.RawURLEncoding.EncodeToString(make([]byte, 65)), r.secret},
	}
	for name, c := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := Encrypt([]byte("x"), c[0], c[1])
			require.Error(t, err)
			assert.True(t, errors.Is(err, domain.ErrInvalidKeyMaterial))
		})
	}
}

func TestEncrypt_PayloadTooLarge(t *testing.T) {
	r := newRecipient(t)

	_, err := Encrypt(make([]byte, MaxPayloadSize+1), r.p256dh, r.secret)
	assert.True(t, errors.Is(err, domain.ErrPayloadTooLarge))

	_, err = Encrypt(make([]byte, MaxPayloadSize), r.p256dh, r.secret)
	assert.NoError(t, err)
}

func TestKeyContext_Layout(t *testing.T) {
	ua := make([]byte, 65)
	eph := make([]byte, 65)
	ua[0], eph[0] = 0x04, 0x04
	eph[64] = 0xff

	ctx := keyContext(ua, eph)

	assert.Equal(t, "P-256\x00", string(ctx[:6]))
	assert.Equal(t, []byte{0x00, 0x41}, ctx[6:8])
	assert.Equal(t, ua, ctx[8:73])
	assert.Equal(t, []byte{0x00, 0x41}, ctx[73:75])
	assert.Equal(t, eph, ctx[75:])
	assert.Equal(t, "Content-Encoding: nonce\x00P-256\x00", string(infoFor("nonce", ctx)[:30]))
}
