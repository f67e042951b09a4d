package ephemeral

import (
	"crypto/rand"
	"errors"

	"golang.org/x/crypto/nacl/secretbox"
)

// box is a symmetric AEAD keyed by a 32-byte secret, used as the
// building block for SymmetricEcdhKey. Wire format is
// nonce(24) || secretbox-sealed(plaintext); a fresh random nonce is
// drawn for every call to encrypt so repeated encryptions of the same
// plaintext never produce the same ciphertext.
type box struct {
	key [32]byte
}

func newBox(key [32]byte) *box {
	return &box{key: key}
}

func (b *box) encrypt(plaintext []byte) ([]byte, error) {
	var nonce [24]byte
	if _, err := rand.Read(nonce[:]); err != nil {
		return nil, err
	}
	return secretbox.Seal(nonce[:], plaintext, &nonce, &b.key), nil
}

func (b *box) decrypt(ciphertext []byte) ([]byte, error) {
	if len(ciphertext) < 24 {
		return nil, errors.New("symmetric key decryption failed")
	}
	var nonce [24]byte
	copy(nonce[:], ciphertext[:24])
	plaintext, ok := secretbox.Open(nil, ciphertext[24:], &nonce, &b.key)
	if !ok {
		return nil, errors.New("symmetric key decryption failed")
	}
	return plaintext, nil
}
