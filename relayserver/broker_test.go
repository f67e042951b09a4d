package relayserver

import (
	"crypto/rand"
	"encoding/hex"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/threshold-network/frost-relay/ciphersuite"
	"github.com/threshold-network/frost-relay/ciphersuite/ed25519"
	"github.com/threshold-network/frost-relay/frost"
	"github.com/threshold-network/frost-relay/frosterr"
)

// schnorrIdentity is a long-term signing key used only to exercise
// the broker's login challenge/response flow; unrelated to any FROST
// signing share.
type schnorrIdentity struct {
	suite ciphersuite.Suite
	x     ciphersuite.Scalar
	pub   ciphersuite.Element
}

func newSchnorrIdentity(t *testing.T, suite ciphersuite.Suite) *schnorrIdentity {
	t.Helper()
	x, err := suite.RandomScalar(rand.Reader)
	if err != nil {
		t.Fatalf("RandomScalar: %v", err)
	}
	return &schnorrIdentity{suite: suite, x: x, pub: suite.ScalarBaseMul(x)}
}

func (id *schnorrIdentity) pubKeyHex() PubKey {
	return PubKey(hex.EncodeToString(id.suite.SerializeElement(id.pub)))
}

func (id *schnorrIdentity) sign(message []byte) frost.Signature {
	k, err := id.suite.RandomScalar(rand.Reader)
	if err != nil {
		panic(err)
	}
	r := id.suite.ScalarBaseMul(k)
	c := id.suite.Challenge(r, id.pub, message)
	z := k.Add(c.Mul(id.x))
	return frost.Signature{R: r, Z: z}
}

func loginAs(t *testing.T, b *Broker, id *schnorrIdentity) string {
	t.Helper()
	nonce, err := b.Challenge(id.pubKeyHex())
	if err != nil {
		t.Fatalf("Challenge: %v", err)
	}
	sig := id.sign(nonce)
	token, err := b.Login(id.pubKeyHex(), sig)
	if err != nil {
		t.Fatalf("Login: %v", err)
	}
	return token
}

func TestLoginRejectsBadSignature(t *testing.T) {
	suite := ed25519.New()
	b := NewBroker(suite, zap.NewNop(), 0)
	defer b.Close()

	id := newSchnorrIdentity(t, suite)
	other := newSchnorrIdentity(t, suite)

	if _, err := b.Challenge(id.pubKeyHex()); err != nil {
		t.Fatalf("Challenge: %v", err)
	}
	badSig := other.sign([]byte("wrong message entirely"))
	_, err := b.Login(id.pubKeyHex(), badSig)
	code, ok := frosterr.CodeOf(err)
	if !ok || code != frosterr.Unauthorized {
		t.Fatalf("expected Unauthorized, got %v", err)
	}
}

func TestSessionLifecycle(t *testing.T) {
	suite := ed25519.New()
	b := NewBroker(suite, zap.NewNop(), 0)
	defer b.Close()

	owner := newSchnorrIdentity(t, suite)
	member := newSchnorrIdentity(t, suite)

	ownerToken := loginAs(t, b, owner)
	memberToken := loginAs(t, b, member)

	sessionID, err := b.CreateSession(ownerToken, []PubKey{owner.pubKeyHex(), member.pubKeyHex()}, owner.pubKeyHex(), 4)
	if err != nil {
		t.Fatalf("CreateSession: %v", err)
	}

	if err := b.Send(ownerToken, sessionID, []PubKey{member.pubKeyHex()}, []byte("hello")); err != nil {
		t.Fatalf("Send: %v", err)
	}

	msgs, err := b.Receive(memberToken, sessionID)
	if err != nil {
		t.Fatalf("Receive: %v", err)
	}
	if len(msgs) != 1 || string(msgs[0].Msg) != "hello" || msgs[0].Sender != owner.pubKeyHex() {
		t.Fatalf("unexpected received messages: %+v", msgs)
	}

	// A second receive with nothing queued returns empty, not an error.
	empty, err := b.Receive(memberToken, sessionID)
	if err != nil || len(empty) != 0 {
		t.Fatalf("expected empty receive, got %+v, %v", empty, err)
	}

	ids, err := b.ListSessions(memberToken)
	if err != nil || len(ids) != 1 || ids[0] != sessionID {
		t.Fatalf("ListSessions: %v, %v", ids, err)
	}

	// Non-owner may not close.
	if err := b.CloseSession(memberToken, sessionID); err == nil {
		t.Fatalf("expected non-owner close to fail")
	}

	if err := b.CloseSession(ownerToken, sessionID); err != nil {
		t.Fatalf("CloseSession: %v", err)
	}
	if _, err := b.Receive(memberToken, sessionID); err == nil {
		t.Fatalf("expected NotFound after close")
	}
}

// TestReceiveDrainsInFIFOOrder checks spec.md §8 testable property 7:
// a send(m1)...send(mk) sequence to a fixed recipient is delivered by
// a single Receive call in the exact order it was sent.
func TestReceiveDrainsInFIFOOrder(t *testing.T) {
	suite := ed25519.New()
	b := NewBroker(suite, zap.NewNop(), 0)
	defer b.Close()

	owner := newSchnorrIdentity(t, suite)
	member := newSchnorrIdentity(t, suite)
	ownerToken := loginAs(t, b, owner)
	memberToken := loginAs(t, b, member)

	sessionID, err := b.CreateSession(ownerToken, []PubKey{owner.pubKeyHex(), member.pubKeyHex()}, owner.pubKeyHex(), 8)
	if err != nil {
		t.Fatalf("CreateSession: %v", err)
	}

	want := []string{"first", "second", "third"}
	for _, m := range want {
		if err := b.Send(ownerToken, sessionID, []PubKey{member.pubKeyHex()}, []byte(m)); err != nil {
			t.Fatalf("Send(%s): %v", m, err)
		}
	}

	msgs, err := b.Receive(memberToken, sessionID)
	if err != nil {
		t.Fatalf("Receive: %v", err)
	}
	if len(msgs) != len(want) {
		t.Fatalf("expected %d queued messages, got %d", len(want), len(msgs))
	}
	for i, m := range msgs {
		if string(m.Msg) != want[i] {
			t.Fatalf("message %d out of order: got %q, want %q", i, m.Msg, want[i])
		}
	}
}

// TestSessionsWithOverlappingMembershipDoNotCrossDeliver checks spec.md
// §8 testable property 8 / scenario S6: two sessions sharing a member
// must not leak a message sent in one into the other's queue.
func TestSessionsWithOverlappingMembershipDoNotCrossDeliver(t *testing.T) {
	suite := ed25519.New()
	b := NewBroker(suite, zap.NewNop(), 0)
	defer b.Close()

	a := newSchnorrIdentity(t, suite)
	bb := newSchnorrIdentity(t, suite)
	c := newSchnorrIdentity(t, suite)
	aToken := loginAs(t, b, a)
	bToken := loginAs(t, b, bb)
	cToken := loginAs(t, b, c)

	session1, err := b.CreateSession(aToken, []PubKey{a.pubKeyHex(), bb.pubKeyHex()}, a.pubKeyHex(), 4)
	if err != nil {
		t.Fatalf("CreateSession(1): %v", err)
	}
	session2, err := b.CreateSession(aToken, []PubKey{a.pubKeyHex(), c.pubKeyHex()}, a.pubKeyHex(), 4)
	if err != nil {
		t.Fatalf("CreateSession(2): %v", err)
	}

	if err := b.Send(aToken, session1, []PubKey{bb.pubKeyHex()}, []byte("session1 only")); err != nil {
		t.Fatalf("Send: %v", err)
	}

	// a is a member of both sessions; a's queue in session2 must stay
	// empty even though a belongs to session1 where the message went.
	msgs2, err := b.Receive(aToken, session2)
	if err != nil {
		t.Fatalf("Receive(a, session2): %v", err)
	}
	if len(msgs2) != 0 {
		t.Fatalf("expected no cross-session delivery into session2, got %+v", msgs2)
	}
	if _, err := b.Receive(cToken, session2); err != nil {
		t.Fatalf("Receive(c, session2): %v", err)
	}

	msgs1, err := b.Receive(bToken, session1)
	if err != nil {
		t.Fatalf("Receive(b, session1): %v", err)
	}
	if len(msgs1) != 1 || string(msgs1[0].Msg) != "session1 only" {
		t.Fatalf("expected the message delivered within session1, got %+v", msgs1)
	}
}

// TestIdleSessionIsEvicted checks spec.md §8 testable property 9: a
// session with no activity for longer than idleTimeout is garbage
// collected by the background eviction loop, independent of any owner
// action.
func TestIdleSessionIsEvicted(t *testing.T) {
	suite := ed25519.New()
	const idleTimeout = 40 * time.Millisecond
	b := NewBroker(suite, zap.NewNop(), idleTimeout)
	defer b.Close()

	owner := newSchnorrIdentity(t, suite)
	ownerToken := loginAs(t, b, owner)

	sessionID, err := b.CreateSession(ownerToken, []PubKey{owner.pubKeyHex()}, owner.pubKeyHex(), 0)
	if err != nil {
		t.Fatalf("CreateSession: %v", err)
	}

	// Do not poll the session in the meantime: Receive/Send both touch
	// lastActivity, which would keep the session alive forever. The
	// eviction ticker runs every idleTimeout/2, so a few multiples of
	// idleTimeout is enough margin for at least one tick to observe
	// the session past its cutoff.
	time.Sleep(5 * idleTimeout)

	_, err = b.Receive(ownerToken, sessionID)
	code, ok := frosterr.CodeOf(err)
	if !ok || code != frosterr.NotFound {
		t.Fatalf("expected NotFound for an evicted session, got %v", err)
	}
}

func TestSendRejectsNonMemberRecipient(t *testing.T) {
	suite := ed25519.New()
	b := NewBroker(suite, zap.NewNop(), 0)
	defer b.Close()

	owner := newSchnorrIdentity(t, suite)
	outsider := newSchnorrIdentity(t, suite)
	ownerToken := loginAs(t, b, owner)

	sessionID, err := b.CreateSession(ownerToken, []PubKey{owner.pubKeyHex()}, owner.pubKeyHex(), 0)
	if err != nil {
		t.Fatalf("CreateSession: %v", err)
	}

	err = b.Send(ownerToken, sessionID, []PubKey{outsider.pubKeyHex()}, []byte("x"))
	code, ok := frosterr.CodeOf(err)
	if !ok || code != frosterr.NotAMember {
		t.Fatalf("expected NotAMember, got %v", err)
	}
}
