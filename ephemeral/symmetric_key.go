package ephemeral

import (
	"crypto/sha256"

	"golang.org/x/crypto/curve25519"
)

// SymmetricEcdhKey is an ephemeral Elliptic Curve key created with
// Diffie-Hellman key exchange, offering Encrypt and Decrypt.
type SymmetricEcdhKey struct {
	box *box
}

// Ecdh performs an X25519 Diffie-Hellman operation between public and
// private key. The returned value is `SymmetricEcdhKey` that can be used
// for encryption and decryption.
func (pk *PrivateKey) Ecdh(publicKey *PublicKey) *SymmetricEcdhKey {
	shared, err := curve25519.X25519(pk[:], publicKey[:])
	if err != nil {
		// Only non-contributory (low-order) public keys reach here;
		// such a key has no business being accepted as a peer's
		// identity in the first place.
		panic(err)
	}

	return &SymmetricEcdhKey{
		box: newBox(sha256.Sum256(shared)),
	}
}

// Encrypt plaintext.
func (sek *SymmetricEcdhKey) Encrypt(plaintext []byte) ([]byte, error) {
	return sek.box.encrypt(plaintext)
}

// Decrypt ciphertext.
func (sek *SymmetricEcdhKey) Decrypt(ciphertext []byte) (plaintext []byte, err error) {
	return sek.box.decrypt(ciphertext)
}
