package noisechannel

import (
	"crypto/rand"
	"testing"

	"github.com/threshold-network/frost-relay/frosterr"
)

func handshake(t *testing.T) (*Channel, *Channel) {
	t.Helper()
	initiatorKey, err := GenerateStaticKey(rand.Reader)
	if err != nil {
		t.Fatalf("GenerateStaticKey: %v", err)
	}
	responderKey, err := GenerateStaticKey(rand.Reader)
	if err != nil {
		t.Fatalf("GenerateStaticKey: %v", err)
	}

	initiator, err := NewInitiator(initiatorKey, responderKey.Public)
	if err != nil {
		t.Fatalf("NewInitiator: %v", err)
	}
	responder, err := NewResponder(responderKey)
	if err != nil {
		t.Fatalf("NewResponder: %v", err)
	}

	msg1, err := initiator.WriteHandshakeMessage(nil)
	if err != nil {
		t.Fatalf("WriteHandshakeMessage(1): %v", err)
	}
	if _, err := responder.ReadHandshakeMessage(msg1); err != nil {
		t.Fatalf("ReadHandshakeMessage(1): %v", err)
	}

	msg2, err := responder.WriteHandshakeMessage(nil)
	if err != nil {
		t.Fatalf("WriteHandshakeMessage(2): %v", err)
	}
	if _, err := initiator.ReadHandshakeMessage(msg2); err != nil {
		t.Fatalf("ReadHandshakeMessage(2): %v", err)
	}

	if !initiator.Established() || !responder.Established() {
		t.Fatalf("expected both sides established")
	}
	return initiator, responder
}

func TestIKHandshakeAndTransport(t *testing.T) {
	initiator, responder := handshake(t)

	sealed, err := initiator.Seal([]byte("coordinator to participant"))
	if err != nil {
		t.Fatalf("Seal: %v", err)
	}
	plain, err := responder.Open(sealed)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if string(plain) != "coordinator to participant" {
		t.Fatalf("unexpected plaintext: %q", plain)
	}

	reply, err := responder.Seal([]byte("participant to coordinator"))
	if err != nil {
		t.Fatalf("Seal reply: %v", err)
	}
	plainReply, err := initiator.Open(reply)
	if err != nil {
		t.Fatalf("Open reply: %v", err)
	}
	if string(plainReply) != "participant to coordinator" {
		t.Fatalf("unexpected reply plaintext: %q", plainReply)
	}
}

func TestOpenRejectsTamperedCiphertext(t *testing.T) {
	initiator, responder := handshake(t)

	sealed, err := initiator.Seal([]byte("message"))
	if err != nil {
		t.Fatalf("Seal: %v", err)
	}
	sealed[len(sealed)-1] ^= 0xFF

	_, err = responder.Open(sealed)
	code, ok := frosterr.CodeOf(err)
	if !ok || code != frosterr.UnauthenticatedPeer {
		t.Fatalf("expected UnauthenticatedPeer, got %v", err)
	}
}

func TestOpenRejectsWrongSenderPrefix(t *testing.T) {
	initiator, responder := handshake(t)
	_, impostor := handshake(t)

	sealed, err := initiator.Seal([]byte("message"))
	if err != nil {
		t.Fatalf("Seal: %v", err)
	}
	// Splice in an unrelated party's static-key prefix.
	forged, err := impostor.Seal([]byte("message"))
	if err != nil {
		t.Fatalf("Seal: %v", err)
	}
	copy(sealed[:staticKeyLen], forged[:staticKeyLen])

	_, err = responder.Open(sealed)
	code, ok := frosterr.CodeOf(err)
	if !ok || code != frosterr.UnauthenticatedPeer {
		t.Fatalf("expected UnauthenticatedPeer, got %v", err)
	}
}
