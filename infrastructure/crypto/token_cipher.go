package crypto

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"io"
	"strings"

	"social-ops/infrastructure/logger"
)

// TokenCipher encrypts OAuth tokens at rest using AES-256-GCM. Values are
// stored as iv:authTag:ciphertext hex triples. When no key is configured the
// cipher degrades to plaintext passthrough with a logged warning; this is a
// development fallback, not a security feature.
type TokenCipher struct {
	key []byte
}

// NewTokenCipher builds a cipher from a 64-hex-char key. An empty or
// malformed key yields a passthrough cipher.
func NewTokenCipher(hexKey string) *TokenCipher {
	if hexKey == "" {
		return &TokenCipher{}
	}
	key, err := hex.DecodeString(hexKey)
	if err != nil || len(key) != 32 {
		logger.GetLogger().WithField("keyLen", len(hexKey)).Warn("Token encryption key invalid (expect 64 hex chars); storing tokens in plaintext")
		return &TokenCipher{}
	}
	return &TokenCipher{key: key}
}

// Enabled reports whether a usable key is loaded.
func (c *TokenCipher) Enabled() bool { return len(c.key) == 32 }

// Encrypt returns iv:authTag:ciphertext in hex, or the plaintext unchanged
// when no key is configured.
func (c *TokenCipher) Encrypt(plaintext string) (string, error) {
	if plaintext == "" {
		return "", nil
	}
	if !c.Enabled() {
		logger.GetLogger().Warn("Encrypting without key; storing token as plaintext")
		return plaintext, nil
	}
	block, err := aes.NewCipher(c.key)
	if err != nil {
		return "", fmt.Errorf("cipher init failed: %w", err)
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return "", fmt.Errorf("gcm init failed: %w", err)
	}
	iv := make([]byte, gcm.NonceSize())
	if _, err := io.ReadFull(rand.Reader, iv); err != nil {
		return "", fmt.Errorf("iv generation failed: %w", err)
	}
	sealed := gcm.Seal(nil, iv, []byte(plaintext), nil)
	// gcm.Seal appends the 16-byte auth tag to the ciphertext
	tagStart := len(sealed) - 16
	return fmt.Sprintf("%s:%s:%s",
		hex.EncodeToString(iv),
		hex.EncodeToString(sealed[tagStart:]),
		hex.EncodeToString(sealed[:tagStart]),
	), nil
}

// Decrypt reverses Encrypt. A value that does not look like an
// iv:authTag:ciphertext triple is returned unchanged so plaintext rows
// written during the no-key fallback keep working.
func (c *TokenCipher) Decrypt(value string) (string, error) {
	if value == "" {
		return "", nil
	}
	parts := strings.Split(value, ":")
	if len(parts) != 3 || !c.Enabled() {
		return value, nil
	}
	iv, err := hex.DecodeString(parts[0])
	if err != nil {
		return value, nil
	}
	tag, err := hex.DecodeString(parts[1])
	if err != nil {
		return value, nil
	}
	ct, err := hex.DecodeString(parts[2])
	if err != nil {
		return value, nil
	}
	block, err := aes.NewCipher(c.key)
	if err != nil {
		return "", fmt.Errorf("cipher init failed: %w", err)
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return "", fmt.Errorf("gcm init failed: %w", err)
	}
	if len(iv) != gcm.NonceSize() {
		return value, nil
	}
	plain, err := gcm.Open(nil, iv, append(ct, tag...), nil)
	if err != nil {
		return "", fmt.Errorf("token decryption failed: %w", err)
	}
	return string(plain), nil
}
