// Package sec protects secrets kept in configuration files.
package sec

import (
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"os"
	"strings"

	"golang.org/x/crypto/chacha20poly1305"
)

// SealedPrefix marks a config value produced by Seal.
const SealedPrefix = "enc:"

var ErrCiphertextTooShort = errors.New("ciphertext too short")

// Cipher is XChaCha20-Poly1305 with a random nonce prepended to every ciphertext.
type Cipher struct {
	aead       cipher.AEAD
	encodeFunc func([]byte) string          // e.g. base64.RawURLEncoding.EncodeToString, hex.EncodeToString
	decodeFunc func(string) ([]byte, error) // e.g. base64.RawURLEncoding.DecodeString, hex.DecodeString
}

func NewCipher(
	key []byte,
	encodeFunc func([]byte) string,
	decodeFunc func(string) ([]byte, error),
) (*Cipher, error) {
	if len(key) != chacha20poly1305.KeySize {
		return nil, fmt.Errorf("key must be %d bytes, got %d", chacha20poly1305.KeySize, len(key))
	}
	aead, err := chacha20poly1305.NewX(key)
	if err != nil {
		return nil, err
	}
	return &Cipher{
		aead:       aead,
		encodeFunc: encodeFunc,
		decodeFunc: decodeFunc,
	}, nil
}

// NewCipherBase64 encodes ciphertexts as unpadded base64url.
func NewCipherBase64(key []byte) (*Cipher, error) {
	return NewCipher(
		key,
		base64.RawURLEncoding.EncodeToString,
		base64.RawURLEncoding.DecodeString,
	)
}

// NewCipherFromEnv reads a 32-byte key from the environment variable name.
// An unset variable returns a nil Cipher and no error.
func NewCipherFromEnv(name string) (*Cipher, error) {
	key, ok := os.LookupEnv(name)
	if !ok || key == "" {
		return nil, nil
	}
	c, err := NewCipherBase64([]byte(key))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", name, err)
	}
	return c, nil
}

func (c *Cipher) EncryptEncode(plaintext []byte) (string, error) {
	// Generate a random nonce every time, and leave capacity for the ciphertext
	nonce := make([]byte, c.aead.NonceSize(), c.aead.NonceSize()+len(plaintext)+c.aead.Overhead())
	if _, err := rand.Read(nonce); err != nil {
		return "", err
	}
	ciphertext := c.aead.Seal(nonce, nonce, plaintext, nil)
	return c.encodeFunc(ciphertext), nil
}

func (c *Cipher) DecodeDecrypt(encodedCiphertext string) ([]byte, error) {
	data, err := c.decodeFunc(encodedCiphertext)
	if err != nil {
		return nil, err
	}
	nonceSize := c.aead.NonceSize()
	if len(data) < nonceSize {
		return nil, ErrCiphertextTooShort
	}
	// Split nonce and ciphertext
	nonce, ciphertext := data[:nonceSize], data[nonceSize:]
	// Decrypt the message and check it wasn't tampered with
	return c.aead.Open(nil, nonce, ciphertext, nil)
}

// Seal returns secret encrypted and marked with SealedPrefix.
func (c *Cipher) Seal(secret string) (string, error) {
	s, err := c.EncryptEncode([]byte(secret))
	if err != nil {
		return "", err
	}
	return SealedPrefix + s, nil
}

// Reveal decrypts a value produced by Seal. Values without SealedPrefix are
// returned as they are. A nil Cipher cannot reveal sealed values.
func (c *Cipher) Reveal(value string) (string, error) {
	enc, ok := strings.CutPrefix(value, SealedPrefix)
	if !ok {
		return value, nil
	}
	if c == nil {
		return "", errors.New("sealed value found but no key is configured")
	}
	plain, err := c.DecodeDecrypt(enc)
	if err != nil {
		return "", fmt.Errorf("failed to reveal sealed value: %w", err)
	}
	return string(plain), nil
}
