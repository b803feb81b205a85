// Package crypto seals queue snapshots at rest with AES-256-GCM.
package crypto

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"errors"
	"io"

	"golang.org/x/crypto/hkdf"
)

var (
	// ErrInvalidCiphertext is returned when data cannot be opened.
	ErrInvalidCiphertext = errors.New("invalid ciphertext")
	// ErrInvalidKey is returned for an empty passphrase.
	ErrInvalidKey = errors.New("invalid key")
)

// magic prefixes every sealed blob so plaintext snapshots can be told apart.
var magic = []byte("FSQ1")

const keyInfo = "fieldsync queue snapshot"

// Sealer encrypts and decrypts blobs with a key derived from a passphrase.
type Sealer struct {
	aead cipher.AEAD
}

// NewSealer derives a 32-byte key from passphrase and salt.
func NewSealer(passphrase, salt string) (*Sealer, error) {
	if passphrase == "" {
		return nil, ErrInvalidKey
	}

	key := make([]byte, 32)
	kdf := hkdf.New(sha256.New, []byte(passphrase), []byte(salt), []byte(keyInfo))
	if _, err := io.ReadFull(kdf, key); err != nil {
		return nil, err
	}

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, err
	}
	return &Sealer{aead: aead}, nil
}

// Seal returns magic || nonce || ciphertext.
func (s *Sealer) Seal(plaintext []byte) ([]byte, error) {
	nonce := make([]byte, s.aead.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return nil, err
	}

	out := make([]byte, 0, len(magic)+len(nonce)+len(plaintext)+s.aead.Overhead())
	out = append(out, magic...)
	out = append(out, nonce...)
	return s.aead.Seal(out, nonce, plaintext, magic), nil
}

// Open reverses Seal.
func (s *Sealer) Open(data []byte) ([]byte, error) {
	if !IsSealed(data) {
		return nil, ErrInvalidCiphertext
	}
	data = data[len(magic):]

	nonceSize := s.aead.NonceSize()
	if len(data) < nonceSize {
		return nil, ErrInvalidCiphertext
	}
	nonce, body := data[:nonceSize], data[nonceSize:]

	plaintext, err := s.aead.Open(nil, nonce, body, magic)
	if err != nil {
		return nil, ErrInvalidCiphertext
	}
	return plaintext, nil
}

// IsSealed reports whether data carries the sealed-blob prefix.
func IsSealed(data []byte) bool {
	if len(data) < len(magic) {
		return false
	}
	for i := range magic {
		if data[i] != magic[i] {
			return false
		}
	}
	return true
}
