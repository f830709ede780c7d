package crypto

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncryptDecryptRoundTrip(t *testing.T) {
	aead, err := NewAESGCM(bytes.Repeat([]byte{0x01}, 32))
	require.NoError(t, err)

	plaintext := []byte("+1 (555) 010-2345")
	ciphertext, err := Encrypt(aead, plaintext)
	require.NoError(t, err)
	assert.NotEqual(t, plaintext, ciphertext)

	decrypted, err := Decrypt(aead, ciphertext)
	require.NoError(t, err)
	assert.Equal(t, plaintext, decrypted)
}

func TestEncryptUsesFreshNonce(t *testing.T) {
	aead, err := NewAESGCM(bytes.Repeat([]byte{0x01}, 32))
	require.NoError(t, err)

	a, err := Encrypt(aead, []byte("same input"))
	require.NoError(t, err)
	b, err := Encrypt(aead, []byte("same input"))
	require.NoError(t, err)
	assert.NotEqual(t, a, b)
}

func TestNewAESGCMRejectsBadKey(t *testing.T) {
	_, err := NewAESGCM([]byte("too short"))
	assert.ErrorIs(t, err, ErrInvalidKeySize)
}

func TestDecryptRejectsTamperedCiphertext(t *testing.T) {
	aead, err := NewAESGCM(bytes.Repeat([]byte{0x01}, 32))
	require.NoError(t, err)

	ciphertext, err := Encrypt(aead, []byte("secret"))
	require.NoError(t, err)
	ciphertext[len(ciphertext)-1] ^= 0xFF

	_, err = Decrypt(aead, ciphertext)
	assert.ErrorIs(t, err, ErrAuthenticationFailed)

	_, err = Decrypt(aead, []byte{0x01})
	assert.ErrorIs(t, err, ErrInvalidCiphertext)
}
