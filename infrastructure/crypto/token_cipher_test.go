package crypto

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

const testKey = "6368616e676520746869732070617373776f726420746f206120736563726574"

func TestTokenCipher_RoundTrip(t *testing.T) {
	cipher := NewTokenCipher(testKey)
	require.True(t, cipher.Enabled())

	encrypted, err := cipher.Encrypt("ya29.a0AfH6SMBx")
	require.NoError(t, err)
	require.NotEqual(t, "ya29.a0AfH6SMBx", encrypted)

	parts := strings.Split(encrypted, ":")
	require.Len(t, parts, 3, "format is iv:authTag:ciphertext")
	require.Len(t, parts[0], 24, "12-byte iv in hex")
	require.Len(t, parts[1], 32, "16-byte auth tag in hex")

	decrypted, err := cipher.Decrypt(encrypted)
	require.NoError(t, err)
	require.Equal(t, "ya29.a0AfH6SMBx", decrypted)
}

func TestTokenCipher_UniqueIVPerEncryption(t *testing.T) {
	cipher := NewTokenCipher(testKey)

	first, err := cipher.Encrypt("same-token")
	require.NoError(t, err)
	second, err := cipher.Encrypt("same-token")
	require.NoError(t, err)
	require.NotEqual(t, first, second)
}

func TestTokenCipher_TamperedCiphertextFails(t *testing.T) {
	cipher := NewTokenCipher(testKey)

	encrypted, err := cipher.Encrypt("secret")
	require.NoError(t, err)

	parts := strings.Split(encrypted, ":")
	lead := "00"
	if strings.HasPrefix(parts[2], "00") {
		lead = "11"
	}
	tampered := lead + parts[2][2:]
	_, err = cipher.Decrypt(parts[0] + ":" + parts[1] + ":" + tampered)
	require.Error(t, err)
}

func TestTokenCipher_EmptyValue(t *testing.T) {
	cipher := NewTokenCipher(testKey)

	encrypted, err := cipher.Encrypt("")
	require.NoError(t, err)
	require.Empty(t, encrypted)

	decrypted, err := cipher.Decrypt("")
	require.NoError(t, err)
	require.Empty(t, decrypted)
}

func TestTokenCipher_NoKeyPassesThrough(t *testing.T) {
	cipher := NewTokenCipher("")
	require.False(t, cipher.Enabled())

	encrypted, err := cipher.Encrypt("plaintext-token")
	require.NoError(t, err)
	require.Equal(t, "plaintext-token", encrypted)

	decrypted, err := cipher.Decrypt("plaintext-token")
	require.NoError(t, err)
	require.Equal(t, "plaintext-token", decrypted)
}

func TestTokenCipher_InvalidKeyFallsBack(t *testing.T) {
	cipher := NewTokenCipher("not-hex")
	require.False(t, cipher.Enabled())

	cipher = NewTokenCipher("abcd")
	require.False(t, cipher.Enabled())
}

func TestTokenCipher_PlaintextRowsStillReadable(t *testing.T) {
	// Rows written during the no-key fallback must survive a key rollout.
	cipher := NewTokenCipher(testKey)

	decrypted, err := cipher.Decrypt("legacy-plaintext-token")
	require.NoError(t, err)
	require.Equal(t, "legacy-plaintext-token", decrypted)
}
