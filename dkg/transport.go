package dkg

import (
	"github.com/threshold-network/frost-relay/ciphersuite"
	"github.com/threshold-network/frost-relay/ephemeral"
	"github.com/threshold-network/frost-relay/frosterr"
	"github.com/threshold-network/frost-relay/keys"
)

// SealedRound2Package is the file-transportable form of a Round2Package
// (spec.md §6 CLI surface: part-2/part-3 exchange round state through
// files the operator carries between machines, rather than over a live
// noisechannel session). The share is sealed under a fresh ephemeral
// X25519 key ECDH'd against the recipient's long-term DKG public key
// from the address book, mirroring GJKR's own ephemeral-ECDH secret
// transport (ephemeral package) repurposed for this simpler protocol.
type SealedRound2Package struct {
	Sender       keys.Identifier
	Recipient    keys.Identifier
	EphemeralPub ephemeral.PublicKey
	Ciphertext   []byte
}

// SealRound2Package encrypts pkg.Share to recipientPub so the resulting
// bytes are safe to write to a file or hand to an untrusted courier.
func SealRound2Package(suite ciphersuite.Suite, pkg Round2Package, recipientPub *ephemeral.PublicKey) (*SealedRound2Package, error) {
	eph, err := ephemeral.GenerateKeyPair()
	if err != nil {
		return nil, frosterr.Wrap(frosterr.NetworkFailure, err, "generate ephemeral key pair")
	}
	key := eph.PrivateKey.Ecdh(recipientPub)
	ciphertext, err := key.Encrypt(suite.SerializeScalar(pkg.Share))
	if err != nil {
		return nil, frosterr.Wrap(frosterr.MalformedEncoding, err, "seal round 2 share")
	}
	return &SealedRound2Package{
		Sender:       pkg.Sender,
		Recipient:    pkg.Recipient,
		EphemeralPub: *eph.PublicKey,
		Ciphertext:   ciphertext,
	}, nil
}

// OpenRound2Package reverses SealRound2Package using the recipient's
// long-term DKG private key.
func OpenRound2Package(suite ciphersuite.Suite, sealed *SealedRound2Package, recipientPriv *ephemeral.PrivateKey) (Round2Package, error) {
	key := recipientPriv.Ecdh(&sealed.EphemeralPub)
	plaintext, err := key.Decrypt(sealed.Ciphertext)
	if err != nil {
		return Round2Package{}, frosterr.WithOffender(frosterr.InvalidShare, sealed.Sender.Hex(), "open sealed round 2 share: %v", err)
	}
	share, err := suite.DeserializeScalar(plaintext)
	if err != nil {
		return Round2Package{}, frosterr.Wrap(frosterr.MalformedEncoding, err, "decode opened round 2 share")
	}
	return Round2Package{Sender: sealed.Sender, Recipient: sealed.Recipient, Share: share}, nil
}
