package auth

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"strings"

	"golang.org/x/crypto/chacha20poly1305"
	"golang.org/x/crypto/hkdf"
)

const sealedPrefix = "v1:"

// Sealer encrypts stored API keys with XChaCha20-Poly1305 under a key
// derived from the configured secret.
type Sealer struct {
	key []byte
}

func NewSealer(secret string) (*Sealer, error) {
	if secret == "" {
		return nil, errors.New("empty credential secret")
	}
	key := make([]byte, chacha20poly1305.KeySize)
	kdf := hkdf.New(sha256.New, []byte(secret), nil, []byte("subbot credential v1"))
	if _, err := io.ReadFull(kdf, key); err != nil {
		return nil, fmt.Errorf("derive key: %w", err)
	}
	return &Sealer{key: key}, nil
}

func (s *Sealer) Seal(plaintext string) (string, error) {
	aead, err := chacha20poly1305.NewX(s.key)
	if err != nil {
		return "", err
	}
	nonce := make([]byte, aead.NonceSize(), aead.NonceSize()+len(plaintext)+aead.Overhead())
	if _, err := rand.Read(nonce); err != nil {
		return "", err
	}
	sealed := aead.Seal(nonce, nonce, []byte(plaintext), nil)
	return sealedPrefix + base64.RawStdEncoding.EncodeToString(sealed), nil
}

func (s *Sealer) Open(sealed string) (string, error) {
	if !strings.HasPrefix(sealed, sealedPrefix) {
		// Written before a secret was configured
		return sealed, nil
	}
	data, err := base64.RawStdEncoding.DecodeString(strings.TrimPrefix(sealed, sealedPrefix))
	if err != nil {
		return "", fmt.Errorf("decode sealed value: %w", err)
	}
	aead, err := chacha20poly1305.NewX(s.key)
	if err != nil {
		return "", err
	}
	if len(data) < aead.NonceSize() {
		return "", errors.New("sealed value too short")
	}
	plain, err := aead.Open(nil, data[:aead.NonceSize()], data[aead.NonceSize():], nil)
	if err != nil {
		return "", fmt.Errorf("decrypt: %w", err)
	}
	return string(plain), nil
}
