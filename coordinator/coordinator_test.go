package coordinator

import (
	"crypto/rand"
	"testing"

	"github.com/threshold-network/frost-relay/ciphersuite/ed25519"
	"github.com/threshold-network/frost-relay/dealer"
	"github.com/threshold-network/frost-relay/frost"
	"github.com/threshold-network/frost-relay/frosterr"
	"github.com/threshold-network/frost-relay/keys"
)

func setupGroup(t *testing.T, n, threshold int) (*ed25519.Suite, []*keys.KeyPackage, *keys.PublicKeyPackage) {
	t.Helper()
	suite := ed25519.New()
	ids := make([]keys.Identifier, n)
	for i := 0; i < n; i++ {
		id, err := keys.NewIdentifier(suite, uint16(i+1))
		if err != nil {
			t.Fatalf("NewIdentifier: %v", err)
		}
		ids[i] = id
	}
	packages, pub, err := dealer.GenerateKeyShares(suite, rand.Reader, threshold, n, ids)
	if err != nil {
		t.Fatalf("GenerateKeyShares: %v", err)
	}
	return suite, packages, pub
}

func TestAttemptRoundTrip(t *testing.T) {
	const n, threshold = 5, 3
	suite, packages, pub := setupGroup(t, n, threshold)
	signers := packages[:threshold]

	signerIDs := make([]keys.Identifier, threshold)
	for i, kp := range signers {
		signerIDs[i] = kp.Identifier
	}
	message := []byte("attempt round trip")

	attempt, err := NewAttempt(suite, pub, signerIDs, message, nil)
	if err != nil {
		t.Fatalf("NewAttempt: %v", err)
	}

	chs := make(map[string]SignerChannels, threshold)
	for _, kp := range signers {
		ch := NewSignerChannels()
		chs[kp.Identifier.Hex()] = ch
		go RunSimulatedSigner(suite, kp.Identifier, kp.SigningShare, pub.VerifyingKey, rand.Reader, ch)
	}
	defer func() {
		for _, ch := range chs {
			close(ch.Done)
		}
	}()

	sig, err := RunSimulatedAttempt(attempt, chs)
	if err != nil {
		t.Fatalf("RunSimulatedAttempt: %v", err)
	}
	if attempt.State() != Aggregated {
		t.Fatalf("expected state Aggregated, got %s", attempt.State())
	}
	if !frost.VerifySignature(suite, *sig, pub.VerifyingKey.Element(), message) {
		t.Fatalf("aggregated signature failed verification")
	}
}

func TestAttemptRejectsUnknownSigner(t *testing.T) {
	const n, threshold = 3, 2
	suite, packages, pub := setupGroup(t, n, threshold)
	signers := packages[:threshold]
	signerIDs := []keys.Identifier{signers[0].Identifier, signers[1].Identifier}

	attempt, err := NewAttempt(suite, pub, signerIDs, []byte("m"), nil)
	if err != nil {
		t.Fatalf("NewAttempt: %v", err)
	}

	_, cc, err := frost.Round1(suite, packages[2].Identifier, packages[2].SigningShare, rand.Reader)
	if err != nil {
		t.Fatalf("Round1: %v", err)
	}
	err = attempt.ReceiveCommitment(cc)
	code, ok := frosterr.CodeOf(err)
	if !ok || code != frosterr.UnknownIdentifier {
		t.Fatalf("expected UnknownIdentifier, got %v", err)
	}
}

func TestAttemptDetectsBadShare(t *testing.T) {
	const n, threshold = 3, 2
	suite, packages, pub := setupGroup(t, n, threshold)
	signers := packages[:threshold]
	signerIDs := []keys.Identifier{signers[0].Identifier, signers[1].Identifier}
	message := []byte("detect bad share")

	attempt, err := NewAttempt(suite, pub, signerIDs, message, nil)
	if err != nil {
		t.Fatalf("NewAttempt: %v", err)
	}

	nonces := make([]*frost.SigningNonces, threshold)
	for i, kp := range signers {
		nn, cc, err := frost.Round1(suite, kp.Identifier, kp.SigningShare, rand.Reader)
		if err != nil {
			t.Fatalf("Round1[%d]: %v", i, err)
		}
		nonces[i] = &nn
		if err := attempt.ReceiveCommitment(cc); err != nil {
			t.Fatalf("ReceiveCommitment[%d]: %v", i, err)
		}
	}

	if _, err := attempt.IssueSigningPackage(); err != nil {
		t.Fatalf("IssueSigningPackage: %v", err)
	}

	share0, err := frost.Round2(suite, signers[0].Identifier, signers[0].SigningShare, pub.VerifyingKey, nonces[0], *attempt.pkg)
	if err != nil {
		t.Fatalf("Round2[0]: %v", err)
	}
	if _, err := attempt.ReceiveShare(share0); err != nil {
		t.Fatalf("ReceiveShare[0]: %v", err)
	}

	share1, err := frost.Round2(suite, signers[1].Identifier, signers[1].SigningShare, pub.VerifyingKey, nonces[1], *attempt.pkg)
	if err != nil {
		t.Fatalf("Round2[1]: %v", err)
	}
	share1.Share = share0.Share // corrupt: substitute the wrong scalar

	_, err = attempt.ReceiveShare(share1)
	code, ok := frosterr.CodeOf(err)
	if !ok || code != frosterr.InvalidSignatureShare {
		t.Fatalf("expected InvalidSignatureShare, got %v", err)
	}
	if attempt.State() != Failed {
		t.Fatalf("expected state Failed, got %s", attempt.State())
	}
}

// TestAttemptDeadlineFailsOnIncompleteSignerSet exercises spec.md §8
// testable property 2 / scenario S2: t=2, n=3, only one of the two
// required signers submits a Round 2 share. An orchestrator that
// stops waiting calls Deadline, which must fail with InvalidAggregate
// rather than stall forever or report a bare timeout.
func TestAttemptDeadlineFailsOnIncompleteSignerSet(t *testing.T) {
	const n, threshold = 3, 2
	suite, packages, pub := setupGroup(t, n, threshold)
	signers := []*keys.KeyPackage{packages[0], packages[2]} // {1, 3}
	signerIDs := []keys.Identifier{signers[0].Identifier, signers[1].Identifier}
	message := []byte{0xDE, 0xAD, 0xBE, 0xEF}

	attempt, err := NewAttempt(suite, pub, signerIDs, message, nil)
	if err != nil {
		t.Fatalf("NewAttempt: %v", err)
	}

	nonces := make([]*frost.SigningNonces, len(signers))
	for i, kp := range signers {
		nn, cc, err := frost.Round1(suite, kp.Identifier, kp.SigningShare, rand.Reader)
		if err != nil {
			t.Fatalf("Round1[%d]: %v", i, err)
		}
		nonces[i] = &nn
		if err := attempt.ReceiveCommitment(cc); err != nil {
			t.Fatalf("ReceiveCommitment[%d]: %v", i, err)
		}
	}

	if _, err := attempt.IssueSigningPackage(); err != nil {
		t.Fatalf("IssueSigningPackage: %v", err)
	}

	// Only signer {1} attempts Round 2; signer {3} never responds.
	share0, err := frost.Round2(suite, signers[0].Identifier, signers[0].SigningShare, pub.VerifyingKey, nonces[0], *attempt.pkg)
	if err != nil {
		t.Fatalf("Round2[0]: %v", err)
	}
	if sig, err := attempt.ReceiveShare(share0); err != nil {
		t.Fatalf("ReceiveShare[0]: %v", err)
	} else if sig != nil {
		t.Fatalf("expected no signature until every signer's share arrives")
	}
	if attempt.State() != PackageIssued {
		t.Fatalf("expected state PackageIssued while waiting on signer {3}, got %s", attempt.State())
	}

	_, err = attempt.Deadline()
	code, ok := frosterr.CodeOf(err)
	if !ok || code != frosterr.InvalidAggregate {
		t.Fatalf("expected InvalidAggregate, got %v", err)
	}
	if attempt.State() != Failed {
		t.Fatalf("expected state Failed after Deadline, got %s", attempt.State())
	}

	// A second Deadline call on the now-terminal attempt must not
	// re-attempt aggregation or change the error kind.
	_, err = attempt.Deadline()
	code, ok = frosterr.CodeOf(err)
	if !ok || code != frosterr.InvalidAggregate {
		t.Fatalf("expected InvalidAggregate on repeat Deadline call, got %v", err)
	}
}
