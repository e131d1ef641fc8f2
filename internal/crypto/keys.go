package crypto

import (
	"crypto/rand"
	"errors"
	"fmt"

	"golang.org/x/crypto/curve25519"
	"golang.org/x/crypto/ed25519"
)

var ErrSignature = errors.New("crypto: signature verification failed")

// SigningKeyPair is an Ed25519 key pair used to sign exported snapshots.
type SigningKeyPair struct {
	Public  ed25519.PublicKey
	Private ed25519.PrivateKey
}

func GenerateSigningKey() (SigningKeyPair, error) {
	pub, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		return SigningKeyPair{}, fmt.Errorf("crypto: generate signing key: %w", err)
	}
	return SigningKeyPair{Public: pub, Private: priv}, nil
}

// SigningKeyFromSeed rebuilds a key pair from a 32-byte seed.
func SigningKeyFromSeed(seed []byte) (SigningKeyPair, error) {
	if len(seed) != ed25519.SeedSize {
		return SigningKeyPair{}, ErrKeySize
	}
	priv := ed25519.NewKeyFromSeed(seed)
	return SigningKeyPair{Public: priv.Public().(ed25519.PublicKey), Private: priv}, nil
}

func Sign(priv ed25519.PrivateKey, msg []byte) []byte {
	return ed25519.Sign(priv, msg)
}

func Verify(pub ed25519.PublicKey, msg, sig []byte) error {
	if len(pub) != ed25519.PublicKeySize || !ed25519.Verify(pub, msg, sig) {
		return ErrSignature
	}
	return nil
}

// ExchangeKeyPair is an X25519 key pair for agreeing on a snapshot sealing key.
type ExchangeKeyPair struct {
	Public  []byte
	Private []byte
}

func GenerateExchangeKey() (ExchangeKeyPair, error) {
	priv := make([]byte, curve25519.ScalarSize)
	if _, err := rand.Read(priv); err != nil {
		return ExchangeKeyPair{}, fmt.Errorf("crypto: generate exchange key: %w", err)
	}
	pub, err := curve25519.X25519(priv, curve25519.Basepoint)
	if err != nil {
		return ExchangeKeyPair{}, fmt.Errorf("crypto: derive public key: %w", err)
	}
	return ExchangeKeyPair{Public: pub, Private: priv}, nil
}

// SharedKey computes the X25519 shared secret with a peer and derives a sealing key
// from it.
func SharedKey(priv, peerPublic []byte, info string) ([]byte, error) {
	secret, err := curve25519.X25519(priv, peerPublic)
	if err != nil {
		return nil, fmt.Errorf("crypto: x25519: %w", err)
	}
	return DeriveKey(secret, nil, info)
}
