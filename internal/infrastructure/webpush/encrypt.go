package webpush

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/ecdh"
	"crypto/rand"
	"crypto/sha256"
	"encoding/binary"
	"fmt"
	"io"

	"github.com/go-push-relay/internal/domain"
	"golang.org/x/crypto/hkdf"
)

// ContentEncoding is the Content-Encoding token of the framed body.
const ContentEncoding = "aes128gcm"

const (
	recordSize    = 4096
	saltLen       = 16
	keyLen        = 16
	nonceLen      = 12
	authSecretLen = 16
	pointLen      = 65
	paddingDelim  = 0x02
	headerLen     = saltLen + 4 + 1 + pointLen

	// MaxPayloadSize is the largest plaintext that fits a single record.
	MaxPayloadSize = recordSize - aes.BlockSize - 1
)

var (
	authInfo = []byte("Content-Encoding: auth\x00")
	curveTag = []byte("P-256\x00")
)

// Encrypt seals plaintext for the subscription owning p256dh and authSecret
// and returns the framed request body. Every call uses a fresh ephemeral key
// and salt, so two calls never produce the same output.
func Encrypt(plaintext []byte, p256dh, authSecret string) ([]byte, error) {
	return encrypt(rand.Reader, plaintext, p256dh, authSecret)
}

func encrypt(random io.Reader, plaintext []byte, p256dh, authSecret string) ([]byte, error) {
	uaRaw, err := decodeBase64URL(p256dh)
	if err != nil {
		return nil, fmt.Errorf("decode p256dh: %w", domain.ErrInvalidKeyMaterial)
	}
	auth, err := decodeBase64URL(authSecret)
	if err != nil {
		return nil, fmt.Errorf("decode auth secret: %w", domain.ErrInvalidKeyMaterial)
	}
	if len(auth) != authSecretLen {
		return nil, fmt.Errorf("auth secret must be %d bytes, got %d: %w", authSecretLen, len(auth), domain.ErrInvalidKeyMaterial)
	}
	uaPub, err := ecdh.P256().NewPublicKey(uaRaw)
	if err != nil {
		return nil, fmt.Errorf("parse p256dh: %w", domain.ErrInvalidKeyMaterial)
	}
	if len(plaintext) > MaxPayloadSize {
		return nil, fmt.Errorf("%d bytes exceeds %d: %w", len(plaintext), MaxPayloadSize, domain.ErrPayloadTooLarge)
	}

	eph, err := ecdh.P256().GenerateKey(random)
	if err != nil {
		return nil, fmt.Errorf("generate ephemeral key: %w", err)
	}
	shared, err := eph.ECDH(uaPub)
	if err != nil {
		return nil, fmt.Errorf("ecdh: %w", err)
	}
	ephRaw := eph.PublicKey().Bytes()

	salt := make([]byte, saltLen)
	if _, err := io.ReadFull(random, salt); err != nil {
		return nil, fmt.Errorf("generate salt: %w", err)
	}

	cek, nonce, err := deriveKeys(shared, auth, salt, uaRaw, ephRaw)
	if err != nil {
		return nil, err
	}

	block, err := aes.NewCipher(cek)
	if err != nil {
		return nil, fmt.Errorf("aes: %w", err)
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("gcm: %w", err)
	}

	padded := make([]byte, len(plaintext)+1)
	copy(padded, plaintext)
	padded[len(plaintext)] = paddingDelim

	out := make([]byte, headerLen, headerLen+len(padded)+gcm.Overhead())
	copy(out, salt)
	binary.BigEndian.PutUint32(out[saltLen:], recordSize)
	out[saltLen+4] = pointLen
	copy(out[saltLen+5:], ephRaw)
	return gcm.Seal(out, nonce, padded, nil), nil
}

// deriveKeys runs the two HKDF stages: the auth-bound PRK, then the content
// encryption key and nonce under the per-message salt.
func deriveKeys(shared, auth, salt, uaPub, ephPub []byte) (cek, nonce []byte, err error) {
	prk := make([]byte, sha256.Size)
	if _, err := io.ReadFull(hkdf.New(sha256.New, shared, auth, authInfo), prk); err != nil {
		return nil, nil, fmt.Errorf("derive prk: %w", err)
	}
	context := keyContext(uaPub, ephPub)

	cek = make([]byte, keyLen)
	if _, err := io.ReadFull(hkdf.New(sha256.New, prk, salt, infoFor("aesgcm", context)), cek); err != nil {
		return nil, nil, fmt.Errorf("derive content key: %w", err)
	}
	nonce = make([]byte, nonceLen)
	if _, err := io.ReadFull(hkdf.New(sha256.New, prk, salt, infoFor("nonce", context)), nonce); err != nil {
		return nil, nil, fmt.Errorf("derive nonce: %w", err)
	}
	return cek, nonce, nil
}

// keyContext is "P-256\0" || len(ua) || ua || len(eph) || eph with 2-byte
// big-endian lengths.
func keyContext(uaPub, ephPub []byte) []byte {
	ctx := make([]byte, 0, len(curveTag)+2+len(uaPub)+2+len(ephPub))
	ctx = append(ctx, curveTag...)
	ctx = binary.BigEndian.AppendUint16(ctx, uint16(len(uaPub)))
	ctx = append(ctx, uaPub...)
	ctx = binary.BigEndian.AppendUint16(ctx, uint16(len(ephPub)))
	ctx = append(ctx, ephPub...)
	return ctx
}

func infoFor(encoding string, context []byte) []byte {
	info := make([]byte, 0, 18+len(encoding)+1+len(context))
	info = append(info, "Content-Encoding: "...)
	info = append(info, encoding...)
	info = append(info, 0)
	return append(info, context...)
}
