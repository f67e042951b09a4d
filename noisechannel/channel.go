// Package noisechannel implements the Noise IK end-to-end channel
// every FROST message is sealed under while in transit through
// relayserver (spec.md §4.6): one handshake per (Coordinator,
// Participant) pair per session, using long-term static keys looked
// up via the store package's address book. No teacher precedent
// exists for this component (the teacher ships no transport layer);
// grounded directly on github.com/flynn/noise's documented API, the
// same library other_examples/manifests/drand-drand and
// .../gordian-engine-gordian declare for their own Noise transports.
package noisechannel

import (
	"bytes"
	"io"

	"github.com/flynn/noise"

	"github.com/threshold-network/frost-relay/frosterr"
)

var cipherSuite = noise.NewCipherSuite(noise.DH25519, noise.CipherChaChaPoly, noise.HashSHA256)

const staticKeyLen = 32

// StaticKey is a long-term Curve25519 Noise identity keypair.
type StaticKey noise.DHKey

// GenerateStaticKey samples a fresh long-term Noise identity.
func GenerateStaticKey(rnd io.Reader) (StaticKey, error) {
	kp, err := cipherSuite.GenerateKeypair(rnd)
	if err != nil {
		return StaticKey{}, err
	}
	return StaticKey(kp), nil
}

// Channel is one IK handshake, and subsequently one transport session,
// with a single peer. Not safe for concurrent use: FROST protocol
// traffic for one participant is single-goroutine per spec.md §5.
type Channel struct {
	self        StaticKey
	initiator   bool
	peerStatic  []byte
	hs          *noise.HandshakeState
	send, recv  *noise.CipherState
	established bool
}

// NewInitiator begins an IK handshake as the party who already knows
// the peer's static public key (looked up via store.Port's contacts).
func NewInitiator(self StaticKey, peerStatic []byte) (*Channel, error) {
	hs, err := noise.NewHandshakeState(noise.Config{
		CipherSuite:   cipherSuite,
		Pattern:       noise.HandshakeIK,
		Initiator:     true,
		StaticKeypair: noise.DHKey(self),
		PeerStatic:    peerStatic,
	})
	if err != nil {
		return nil, frosterr.Wrap(frosterr.UnauthenticatedPeer, err, "start noise initiator")
	}
	return &Channel{self: self, initiator: true, peerStatic: peerStatic, hs: hs}, nil
}

// NewResponder begins an IK handshake as the party waiting for the
// peer's static key to arrive in the first handshake message.
func NewResponder(self StaticKey) (*Channel, error) {
	hs, err := noise.NewHandshakeState(noise.Config{
		CipherSuite:   cipherSuite,
		Pattern:       noise.HandshakeIK,
		Initiator:     false,
		StaticKeypair: noise.DHKey(self),
	})
	if err != nil {
		return nil, frosterr.Wrap(frosterr.UnauthenticatedPeer, err, "start noise responder")
	}
	return &Channel{self: self, initiator: false, hs: hs}, nil
}

// WriteHandshakeMessage produces the next handshake message, prefixed
// with this party's static public key so the recipient, routed only by
// opaque bytes through relayserver, can select the right per-pair
// channel (spec.md §6 Noise payload shape).
func (c *Channel) WriteHandshakeMessage(payload []byte) ([]byte, error) {
	msg, cs0, cs1, err := c.hs.WriteMessage(nil, payload)
	if err != nil {
		return nil, frosterr.Wrap(frosterr.UnauthenticatedPeer, err, "write noise handshake message")
	}
	c.completeIfSplit(cs0, cs1)
	return c.frame(msg), nil
}

// ReadHandshakeMessage consumes a framed handshake message, recording
// the sender's static public key from its prefix for subsequent Open
// calls to authenticate against.
func (c *Channel) ReadHandshakeMessage(framed []byte) ([]byte, error) {
	sender, body, err := unframe(framed)
	if err != nil {
		return nil, err
	}
	if c.peerStatic == nil {
		c.peerStatic = sender
	} else if !bytes.Equal(c.peerStatic, sender) {
		return nil, frosterr.New(frosterr.UnauthenticatedPeer, "handshake message from unexpected static key")
	}

	payload, cs0, cs1, err := c.hs.ReadMessage(nil, body)
	if err != nil {
		return nil, frosterr.Wrap(frosterr.UnauthenticatedPeer, err, "read noise handshake message")
	}
	c.completeIfSplit(cs0, cs1)
	return payload, nil
}

// completeIfSplit records the transport CipherStates once the
// handshake produces them, following flynn/noise's convention that
// the first returned CipherState encrypts for the initiator (and
// decrypts for the responder), and the second does the reverse.
func (c *Channel) completeIfSplit(cs0, cs1 *noise.CipherState) {
	if cs0 == nil {
		return
	}
	if c.initiator {
		c.send, c.recv = cs0, cs1
	} else {
		c.send, c.recv = cs1, cs0
	}
	c.established = true
}

// Established reports whether the handshake has completed and
// transport Seal/Open are available.
func (c *Channel) Established() bool { return c.established }

// Seal encrypts plaintext as a transport message, prefixed with this
// party's static public key.
func (c *Channel) Seal(plaintext []byte) ([]byte, error) {
	if !c.established {
		return nil, frosterr.New(frosterr.UnauthenticatedPeer, "handshake not complete")
	}
	ciphertext := c.send.Encrypt(nil, nil, plaintext)
	return c.frame(ciphertext), nil
}

// Open decrypts a framed transport message, rejecting it if its
// static-key prefix does not match the peer this channel authenticated
// during the handshake, or if Noise's own replay/integrity check fails.
func (c *Channel) Open(framed []byte) ([]byte, error) {
	if !c.established {
		return nil, frosterr.New(frosterr.UnauthenticatedPeer, "handshake not complete")
	}
	sender, body, err := unframe(framed)
	if err != nil {
		return nil, err
	}
	if !bytes.Equal(sender, c.peerStatic) {
		return nil, frosterr.New(frosterr.UnauthenticatedPeer, "transport message from unexpected static key")
	}
	plaintext, err := c.recv.Decrypt(nil, nil, body)
	if err != nil {
		return nil, frosterr.Wrap(frosterr.UnauthenticatedPeer, err, "open noise transport message")
	}
	return plaintext, nil
}

func (c *Channel) frame(msg []byte) []byte {
	out := make([]byte, 0, staticKeyLen+len(msg))
	out = append(out, c.self.Public...)
	out = append(out, msg...)
	return out
}

func unframe(framed []byte) (sender, body []byte, err error) {
	if len(framed) < staticKeyLen {
		return nil, nil, frosterr.New(frosterr.MalformedEncoding, "noise frame shorter than a static key")
	}
	return framed[:staticKeyLen], framed[staticKeyLen:], nil
}
