package dkg

import (
	"crypto/rand"
	"testing"

	"github.com/threshold-network/frost-relay/ciphersuite"
	"github.com/threshold-network/frost-relay/ciphersuite/ed25519"
	"github.com/threshold-network/frost-relay/frosterr"
	"github.com/threshold-network/frost-relay/internal/testutils"
	"github.com/threshold-network/frost-relay/keys"
)

func runDKG(t *testing.T, suite ciphersuite.Suite, n, threshold int) ([]*keys.KeyPackage, []*keys.PublicKeyPackage) {
	t.Helper()

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
	}

	round2 := make([][]Round2Package, n)
	for i, p := range participants {
		out, err := p.Part2(round1)
		if err != nil {
			t.Fatalf("Part2[%d]: %v", i, err)
		}
		round2[i] = out
	}

	// Gather every Round2Package addressed to participant i across all
	// senders' outgoing slices.
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

	keyPackages := make([]*keys.KeyPackage, n)
	pubPackages := make([]*keys.PublicKeyPackage, n)
	for i, p := range participants {
		kp, pub, err := p.Part3(incoming[i])
		if err != nil {
			t.Fatalf("Part3[%d]: %v", i, err)
		}
		keyPackages[i] = kp
		pubPackages[i] = pub
		testutils.AssertStringsEqual(t, "final state", Part3Done.String(), p.State().String())
	}

	return keyPackages, pubPackages
}

func TestDKGRoundTrip(t *testing.T) {
	suite := ed25519.New()
	const n, threshold = 5, 3

	keyPackages, pubPackages := runDKG(t, suite, n, threshold)

	// Every honest participant must derive bit-identical
	// PublicKeyPackages (spec.md §3 invariant).
	first, err := keys.SerializePublicKeyPackage(pubPackages[0])
	if err != nil {
		t.Fatalf("SerializePublicKeyPackage: %v", err)
	}
	for i := 1; i < n; i++ {
		other, err := keys.SerializePublicKeyPackage(pubPackages[i])
		if err != nil {
			t.Fatalf("SerializePublicKeyPackage[%d]: %v", i, err)
		}
		testutils.AssertBytesEqual(t, first, other)
	}

	// I1: Lagrange-combining any threshold-sized subset of
	// SigningShares must reproduce the group VerifyingKey.
	subset := keyPackages[:threshold]
	ids := make([]keys.Identifier, threshold)
	for i, kp := range subset {
		ids[i] = kp.Identifier
	}
	var sum ciphersuite.Scalar
	for _, kp := range subset {
		lambda := keys.LagrangeCoefficient(suite, kp.Identifier, ids)
		term := kp.SigningShare.Scalar().Mul(lambda)
		if sum == nil {
			sum = term
		} else {
			sum = sum.Add(term)
		}
	}
	reconstructed := suite.ScalarBaseMul(sum)
	if !reconstructed.Equal(pubPackages[0].VerifyingKey.Element()) {
		t.Errorf("Lagrange-reconstructed key does not match group verifying key")
	}
}

func TestDKGRejectsBadProofOfKnowledge(t *testing.T) {
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
	round1 := make([]Round1Package, n)
	for i, id := range members {
		p, err := NewParticipant(suite, id, threshold, members)
		if err != nil {
			t.Fatalf("NewParticipant: %v", err)
		}
		participants[i] = p
		pkg, err := p.Part1(rand.Reader)
		if err != nil {
			t.Fatalf("Part1[%d]: %v", i, err)
		}
		round1[i] = pkg
	}

	// Tamper with participant 1's proof.
	badNonce, err := suite.RandomScalar(rand.Reader)
	if err != nil {
		t.Fatalf("RandomScalar: %v", err)
	}
	round1[1].Proof.Z = badNonce

	_, err = participants[0].Part2(round1)
	code, ok := frosterr.CodeOf(err)
	if !ok || code != frosterr.InvalidProofOfKnowledge {
		t.Fatalf("expected InvalidProofOfKnowledge, got %v", err)
	}
	testutils.AssertStringsEqual(t, "state after abort", Aborted.String(), participants[0].State().String())
}
