// Package ephemeral provides short-lived X25519 key pairs and the
// ECDH-derived symmetric boxes built from them. Used to transport DKG
// Round 2 secret shares (keys.SigningShare material) point-to-point
// between participants before a noisechannel session is established,
// mirroring GJKR's own use of ephemeral ECDH keys for the same
// purpose in the teacher repo.
package ephemeral

import (
	"crypto/rand"

	"golang.org/x/crypto/curve25519"
)

// PrivateKey is an X25519 scalar.
type PrivateKey [32]byte

// PublicKey is an X25519 curve point.
type PublicKey [32]byte

// KeyPair is one generated (PrivateKey, PublicKey) pair.
type KeyPair struct {
	PrivateKey *PrivateKey
	PublicKey  *PublicKey
}

// GenerateKeyPair samples a fresh X25519 key pair.
func GenerateKeyPair() (*KeyPair, error) {
	var priv PrivateKey
	if _, err := rand.Read(priv[:]); err != nil {
		return nil, err
	}

	pub, err := curve25519.X25519(priv[:], curve25519.Basepoint)
	if err != nil {
		return nil, err
	}
	var pubKey PublicKey
	copy(pubKey[:], pub)

	return &KeyPair{PrivateKey: &priv, PublicKey: &pubKey}, nil
}
