package dkg

import (
	"crypto/rand"
	"testing"

	"github.com/threshold-network/frost-relay/ciphersuite/ed25519"
	"github.com/threshold-network/frost-relay/ephemeral"
	"github.com/threshold-network/frost-relay/frosterr"
	"github.com/threshold-network/frost-relay/internal/testutils"
	"github.com/threshold-network/frost-relay/keys"
)

func TestSealedRound2PackageRoundTrip(t *testing.T) {
	suite := ed25519.New()
	sender, err := keys.NewIdentifier(suite, 1)
	if err != nil {
		t.Fatalf("NewIdentifier: %v", err)
	}
	recipient, err := keys.NewIdentifier(suite, 2)
	if err != nil {
		t.Fatalf("NewIdentifier: %v", err)
	}
	share, err := suite.RandomScalar(rand.Reader)
	if err != nil {
		t.Fatalf("RandomScalar: %v", err)
	}
	pkg := Round2Package{Sender: sender, Recipient: recipient, Share: share}

	recipientKeys, err := ephemeral.GenerateKeyPair()
	if err != nil {
		t.Fatalf("GenerateKeyPair: %v", err)
	}

	sealed, err := SealRound2Package(suite, pkg, recipientKeys.PublicKey)
	if err != nil {
		t.Fatalf("SealRound2Package: %v", err)
	}

	wire, err := SerializeSealedRound2Package(suite, sealed)
	if err != nil {
		t.Fatalf("SerializeSealedRound2Package: %v", err)
	}
	decoded, err := DeserializeSealedRound2Package(suite, wire)
	if err != nil {
		t.Fatalf("DeserializeSealedRound2Package: %v", err)
	}

	opened, err := OpenRound2Package(suite, decoded, recipientKeys.PrivateKey)
	if err != nil {
		t.Fatalf("OpenRound2Package: %v", err)
	}
	if !opened.Share.Equal(share) {
		t.Errorf("opened share does not match original")
	}
	if !opened.Sender.Equal(sender) || !opened.Recipient.Equal(recipient) {
		t.Errorf("opened package has wrong sender/recipient")
	}
}

func TestOpenRound2PackageWrongKeyFails(t *testing.T) {
	suite := ed25519.New()
	sender, _ := keys.NewIdentifier(suite, 1)
	recipient, _ := keys.NewIdentifier(suite, 2)
	share, _ := suite.RandomScalar(rand.Reader)
	pkg := Round2Package{Sender: sender, Recipient: recipient, Share: share}

	recipientKeys, _ := ephemeral.GenerateKeyPair()
	attackerKeys, err := ephemeral.GenerateKeyPair()
	if err != nil {
		t.Fatalf("GenerateKeyPair: %v", err)
	}

	sealed, err := SealRound2Package(suite, pkg, recipientKeys.PublicKey)
	if err != nil {
		t.Fatalf("SealRound2Package: %v", err)
	}

	if _, err := OpenRound2Package(suite, sealed, attackerKeys.PrivateKey); err == nil {
		t.Fatalf("expected OpenRound2Package to fail under the wrong private key")
	} else if code, ok := frosterr.CodeOf(err); !ok || code != frosterr.InvalidShare {
		t.Fatalf("expected InvalidShare, got %v", err)
	}
}

func TestRound1PackageWireRoundTrip(t *testing.T) {
	suite := ed25519.New()
	const n, threshold = 3, 2
	members := make([]keys.Identifier, n)
	for i := 0; i < n; i++ {
		id, err := keys.NewIdentifier(suite, uint16(i+1))
		if err != nil {
			t.Fatalf("NewIdentifier: %v", err)
		}
		members[i] = id
	}
	p, err := NewParticipant(suite, members[0], threshold, members)
	if err != nil {
		t.Fatalf("NewParticipant: %v", err)
	}
	pkg, err := p.Part1(rand.Reader)
	if err != nil {
		t.Fatalf("Part1: %v", err)
	}

	wire, err := SerializeRound1Package(suite, pkg)
	if err != nil {
		t.Fatalf("SerializeRound1Package: %v", err)
	}
	decoded, err := DeserializeRound1Package(suite, wire)
	if err != nil {
		t.Fatalf("DeserializeRound1Package: %v", err)
	}
	if !decoded.Sender.Equal(pkg.Sender) {
		t.Errorf("sender mismatch after round-trip")
	}
	if len(decoded.Commitments) != len(pkg.Commitments) {
		t.Fatalf("commitment count mismatch: got %d, want %d", len(decoded.Commitments), len(pkg.Commitments))
	}
	for i := range pkg.Commitments {
		testutils.AssertEqual(t, "commitment", pkg.Commitments[i], decoded.Commitments[i])
	}
}

// TestSnapshotRoundTrip exercises a full three-phase DKG run where each
// participant is torn down and Restore-d from a Snapshot between
// phases, the way the part-1/part-2/part-3 CLI subcommands operate
// across separate process invocations.
func TestSnapshotRoundTrip(t *testing.T) {
	suite := ed25519.New()
	const n, threshold = 3, 2

	members := make([]keys.Identifier, n)
	for i := 0; i < n; i++ {
		id, err := keys.NewIdentifier(suite, uint16(i+1))
		if err != nil {
			t.Fatalf("NewIdentifier: %v", err)
		}
		members[i] = id
	}

	participants := make([]*Participant, n)
	for i, id := range members {
		p, err := NewParticipant(suite, id, threshold, members)
		if err != nil {
			t.Fatalf("NewParticipant: %v", err)
		}
		participants[i] = p
	}

	round1 := make([]Round1Package, n)
	for i, p := range participants {
		pkg, err := p.Part1(rand.Reader)
		if err != nil {
			t.Fatalf("Part1[%d]: %v", i, err)
		}
		round1[i] = pkg
		participants[i] = reloadParticipant(t, suite, p)
	}

	round2 := make([][]Round2Package, n)
	for i, p := range participants {
		out, err := p.Part2(round1)
		if err != nil {
			t.Fatalf("Part2[%d]: %v", i, err)
		}
		round2[i] = out
		participants[i] = reloadParticipant(t, suite, p)
	}

	incoming := make([][]Round2Package, n)
	for _, out := range round2 {
		for _, pkg := range out {
			for i, p := range participants {
				if pkg.Recipient.Equal(p.self) {
					incoming[i] = append(incoming[i], pkg)
				}
			}
		}
	}

	for i, p := range participants {
		kp, pub, err := p.Part3(incoming[i])
		if err != nil {
			t.Fatalf("Part3[%d]: %v", i, err)
		}
		if kp.Threshold != threshold || pub.Threshold != threshold {
			t.Errorf("unexpected threshold after restored Part3")
		}
	}
}

func reloadParticipant(t *testing.T, suite *ed25519.Suite, p *Participant) *Participant {
	t.Helper()
	snap, err := p.Snapshot()
	if err != nil {
		t.Fatalf("Snapshot: %v", err)
	}
	wire, err := SerializeSnapshot(snap)
	if err != nil {
		t.Fatalf("SerializeSnapshot: %v", err)
	}
	decoded, err := DeserializeSnapshot(wire)
	if err != nil {
		t.Fatalf("DeserializeSnapshot: %v", err)
	}
	restored, err := Restore(suite, decoded)
	if err != nil {
		t.Fatalf("Restore: %v", err)
	}
	return restored
}
