// Package vault provides authenticated encryption for long-lived secrets
// at rest (platform access tokens, OAuth state) plus timing-safe
// comparison for anywhere a secret is checked.
package vault

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
)

const keySize = 32 // AES-256

var (
	// ErrKeyConfig means the encryption key is missing or malformed.
	// Operator-fixable; nothing stored with a valid key is lost.
	ErrKeyConfig = errors.New("vault: encryption key missing or invalid")
	// ErrTokenTooShort means the input is structurally not a vault token.
	ErrTokenTooShort = errors.New("vault: token too short")
	// ErrTamper means the authentication tag did not verify: the token was
	// corrupted or tampered with. The stored secret must be re-obtained.
	ErrTamper = errors.New("vault: token failed authentication")
)

// Vault seals and opens secrets with AES-256-GCM. A fresh random nonce per
// Encrypt call guarantees identical plaintexts never produce identical
// tokens. Tokens are base64(nonce || ciphertext || tag).
type Vault struct {
	aead cipher.AEAD
}

// New builds a Vault from a key string, accepted as 64 hex chars or
// standard base64 decoding to 32 bytes.
func New(key string) (*Vault, error) {
	raw, err := decodeKey(key)
	if err != nil {
		return nil, err
	}

	block, err := aes.NewCipher(raw)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrKeyConfig, err)
	}
	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrKeyConfig, err)
	}
	return &Vault{aead: aead}, nil
}

func decodeKey(key string) ([]byte, error) {
	if key == "" {
		return nil, ErrKeyConfig
	}
	if raw, err := hex.DecodeString(key); err == nil && len(raw) == keySize {
		return raw, nil
	}
	if raw, err := base64.StdEncoding.DecodeString(key); err == nil && len(raw) == keySize {
		return raw, nil
	}
	return nil, fmt.Errorf("%w: expected 32 bytes as hex or base64", ErrKeyConfig)
}

// Encrypt seals plaintext into a self-describing token.
func (v *Vault) Encrypt(plaintext string) (string, error) {
	if v == nil || v.aead == nil {
		return "", ErrKeyConfig
	}

	nonce := make([]byte, v.aead.NonceSize())
	if _, err := rand.Read(nonce); err != nil {
		return "", fmt.Errorf("failed to generate nonce: %w", err)
	}

	sealed := v.aead.Seal(nonce, nonce, []byte(plaintext), nil)
	return base64.StdEncoding.EncodeToString(sealed), nil
}

// Decrypt opens a token produced by Encrypt. Failure modes are distinct:
// ErrKeyConfig (wrong deployment), ErrTokenTooShort (not a token), and
// ErrTamper (corruption or tampering; ask the user to reconnect).
func (v *Vault) Decrypt(token string) (string, error) {
	if v == nil || v.aead == nil {
		return "", ErrKeyConfig
	}

	raw, err := base64.StdEncoding.DecodeString(token)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrTokenTooShort, err)
	}
	if len(raw) < v.aead.NonceSize()+v.aead.Overhead() {
		return "", ErrTokenTooShort
	}

	nonce, ciphertext := raw[:v.aead.NonceSize()], raw[v.aead.NonceSize():]
	plaintext, err := v.aead.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return "", ErrTamper
	}
	return string(plaintext), nil
}

// ConstantTimeEquals compares two secrets without leaking where they
// diverge. Mandatory wherever a secret is compared.
func ConstantTimeEquals(a, b string) bool {
	return subtle.ConstantTimeCompare([]byte(a), []byte(b)) == 1
}
