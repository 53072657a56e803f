// Package crypto cifra el contenido de los mensajes en reposo.
package crypto

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

const (
	encodedPrefix = "enc:v1:"
	// plainPrefix marca texto guardado sin cifrar que podria confundirse con un valor cifrado.
	plainPrefix = "plain:"
	keyInfo     = "unsent/message-content"
)

var ErrDecrypt = errors.New("decrypt message content")

// ContentCipher cifra y descifra texto. Decrypt acepta texto plano sin prefijo y
// texto escapado con "plain:".
type ContentCipher interface {
	Encrypt(plain string) (string, error)
	Decrypt(stored string) (string, error)
	Enabled() bool
}

type aeadCipher struct {
	key []byte
}

// NewContentCipher deriva la clave con HKDF-SHA256. Un secreto vacio devuelve un cifrador
// que no cifra.
func NewContentCipher(secret string) (ContentCipher, error) {
	if strings.TrimSpace(secret) == "" {
		return passthroughCipher{}, nil
	}
	key := make([]byte, chacha20poly1305.KeySize)
	kdf := hkdf.New(sha256.New, []byte(secret), nil, []byte(keyInfo))
	if _, err := io.ReadFull(kdf, key); err != nil {
		return nil, fmt.Errorf("derive key: %w", err)
	}
	return &aeadCipher{key: key}, nil
}

func (c *aeadCipher) Enabled() bool { return true }

func (c *aeadCipher) Encrypt(plain string) (string, error) {
	aead, err := chacha20poly1305.NewX(c.key)
	if err != nil {
		return "", fmt.Errorf("init aead: %w", err)
	}
	nonce := make([]byte, aead.NonceSize(), aead.NonceSize()+len(plain)+aead.Overhead())
	if _, err := rand.Read(nonce); err != nil {
		return "", fmt.Errorf("nonce: %w", err)
	}
	sealed := aead.Seal(nonce, nonce, []byte(plain), nil)
	return encodedPrefix + base64.StdEncoding.EncodeToString(sealed), nil
}

func (c *aeadCipher) Decrypt(stored string) (string, error) {
	if plain, ok := unescapePlain(stored); ok {
		return plain, nil
	}
	raw, err := base64.StdEncoding.DecodeString(strings.TrimPrefix(stored, encodedPrefix))
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrDecrypt, err)
	}
	aead, err := chacha20poly1305.NewX(c.key)
	if err != nil {
		return "", fmt.Errorf("init aead: %w", err)
	}
	if len(raw) < aead.NonceSize()+aead.Overhead() {
		return "", fmt.Errorf("%w: ciphertext too short", ErrDecrypt)
	}
	nonce, ciphertext := raw[:aead.NonceSize()], raw[aead.NonceSize():]
	plain, err := aead.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrDecrypt, err)
	}
	return string(plain), nil
}

type passthroughCipher struct{}

func (passthroughCipher) Enabled() bool { return false }

func (passthroughCipher) Encrypt(plain string) (string, error) {
	if strings.HasPrefix(plain, "enc:") || strings.HasPrefix(plain, plainPrefix) {
		return plainPrefix + plain, nil
	}
	return plain, nil
}

func (passthroughCipher) Decrypt(stored string) (string, error) {
	if plain, ok := unescapePlain(stored); ok {
		return plain, nil
	}
	return "", fmt.Errorf("%w: no secret configured", ErrDecrypt)
}

// unescapePlain devuelve el texto en claro si stored no es un valor cifrado.
func unescapePlain(stored string) (string, bool) {
	if strings.HasPrefix(stored, plainPrefix) {
		return strings.TrimPrefix(stored, plainPrefix), true
	}
	if strings.HasPrefix(stored, encodedPrefix) {
		return "", false
	}
	return stored, true
}
