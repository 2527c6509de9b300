// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package sec

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"
	"io"

	"golang.org/x/crypto/hkdf"
)

// # Refresh Token Encryption

const (
	encryptionKeySize = 32
	encryptionInfo    = "gatekeeper-refresh-token-v1"
)

var (
	// ErrInvalidCiphertext is returned when a payload is not valid base64 or too short.
	ErrInvalidCiphertext = errors.New("sec: invalid ciphertext format")

	// ErrDecryptionFailed is returned when authentication of the payload fails.
	ErrDecryptionFailed = errors.New("sec: decryption failed")
)

// Encrypter seals opaque payloads with AES-256-GCM.
//
// The key is derived from the application key with HKDF-SHA-256. The nonce
// is prepended to the ciphertext and the result is base64url encoded.
type Encrypter struct {
	aead cipher.AEAD
}

// NewEncrypter derives the encryption key from secret.
func NewEncrypter(secret string) (*Encrypter, error) {
	if secret == "" {
		return nil, fmt.Errorf("sec: encryption secret is empty")
	}

	key := make([]byte, encryptionKeySize)
	reader := hkdf.New(sha256.New, []byte(secret), nil, []byte(encryptionInfo))
	if _, err := io.ReadFull(reader, key); err != nil {
		return nil, fmt.Errorf("sec: key derivation failed: %w", err)
	}

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("sec: failed to create cipher: %w", err)
	}

	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("sec: failed to create gcm: %w", err)
	}

	return &Encrypter{aead: aead}, nil
}

// Encrypt seals plaintext and returns the encoded payload.
func (encrypter *Encrypter) Encrypt(plaintext []byte) (string, error) {
	nonce := make([]byte, encrypter.aead.NonceSize())
	if _, err := rand.Read(nonce); err != nil {
		return "", fmt.Errorf("sec: failed to read nonce: %w", err)
	}

	sealed := encrypter.aead.Seal(nonce, nonce, plaintext, nil)
	return base64.RawURLEncoding.EncodeToString(sealed), nil
}

// Decrypt opens an encoded payload produced by [Encrypter.Encrypt].
func (encrypter *Encrypter) Decrypt(payload string) ([]byte, error) {
	sealed, err := base64.RawURLEncoding.DecodeString(payload)
	if err != nil {
		return nil, ErrInvalidCiphertext
	}

	nonceSize := encrypter.aead.NonceSize()
	if len(sealed) < nonceSize+encrypter.aead.Overhead() {
		return nil, ErrInvalidCiphertext
	}

	plaintext, err := encrypter.aead.Open(nil, sealed[:nonceSize], sealed[nonceSize:], nil)
	if err != nil {
		return nil, ErrDecryptionFailed
	}
	return plaintext, nil
}
