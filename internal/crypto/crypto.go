// Package crypto seals, signs and key-exchanges simulation snapshots.
package crypto

import (
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"errors"
	"fmt"
	"io"

	"golang.org/x/crypto/chacha20poly1305"
	"golang.org/x/crypto/hkdf"
)

const (
	KeySize   = chacha20poly1305.KeySize
	NonceSize = chacha20poly1305.NonceSizeX
	// Overhead is what Encrypt adds to the plaintext length.
	Overhead = chacha20poly1305.Overhead
)

var (
	ErrKeySize   = errors.New("crypto: invalid key size")
	ErrNonceSize = errors.New("crypto: invalid nonce size")
	ErrShort     = errors.New("crypto: sealed data too short")
	ErrOpen      = errors.New("crypto: message authentication failed")
)

// Encrypt encrypts plaintext with XChaCha20-Poly1305 under an explicit nonce.
func Encrypt(key, nonce, plaintext []byte) ([]byte, error) {
	aead, err := newXChaCha(key)
	if err != nil {
		return nil, err
	}
	if len(nonce) != NonceSize {
		return nil, ErrNonceSize
	}
	return aead.Seal(nil, nonce, plaintext, nil), nil
}

// Decrypt reverses Encrypt.
func Decrypt(key, nonce, ciphertext []byte) ([]byte, error) {
	aead, err := newXChaCha(key)
	if err != nil {
		return nil, err
	}
	if len(nonce) != NonceSize {
		return nil, ErrNonceSize
	}
	out, err := aead.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return nil, ErrOpen
	}
	return out, nil
}

// Seal encrypts plaintext under a random nonce, which prefixes the result.
func Seal(key, plaintext []byte) ([]byte, error) {
	aead, err := newXChaCha(key)
	if err != nil {
		return nil, err
	}
	out := make([]byte, NonceSize, NonceSize+len(plaintext)+Overhead)
	if _, err := io.ReadFull(rand.Reader, out); err != nil {
		return nil, fmt.Errorf("crypto: read nonce: %w", err)
	}
	return aead.Seal(out, out[:NonceSize], plaintext, nil), nil
}

// Open reverses Seal.
func Open(key, sealed []byte) ([]byte, error) {
	aead, err := newXChaCha(key)
	if err != nil {
		return nil, err
	}
	if len(sealed) < NonceSize+Overhead {
		return nil, ErrShort
	}
	out, err := aead.Open(nil, sealed[:NonceSize], sealed[NonceSize:], nil)
	if err != nil {
		return nil, ErrOpen
	}
	return out, nil
}

// DeriveKey stretches secret into a KeySize key with HKDF-SHA256.
func DeriveKey(secret, salt []byte, info string) ([]byte, error) {
	key := make([]byte, KeySize)
	if _, err := io.ReadFull(hkdf.New(sha256.New, secret, salt, []byte(info)), key); err != nil {
		return nil, fmt.Errorf("crypto: derive key: %w", err)
	}
	return key, nil
}

func newXChaCha(key []byte) (cipher.AEAD, error) {
	if len(key) != KeySize {
		return nil, ErrKeySize
	}
	return chacha20poly1305.NewX(key)
}
