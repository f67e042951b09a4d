// Package coordinator implements the Coordinator side of one FROST
// signing attempt (spec.md §4.4): collecting Round 1 commitments,
// assembling and freezing the SigningPackage, collecting Round 2
// signature shares with per-signer fault attribution, and producing
// the final aggregated Signature. Generalizes
// threshold-network-roast-go/frost/coordinator.go's Aggregate off
// *big.Int onto ciphersuite.Suite, and adopts the ROAST-flavored
// top-level coordinator.go's bad-share identification
// (ReceiveShare/verifySignatureShare) before aggregating.
package coordinator

import (
	"sort"

	"github.com/threshold-network/frost-relay/ciphersuite"
	"github.com/threshold-network/frost-relay/frost"
	"github.com/threshold-network/frost-relay/frosterr"
	"github.com/threshold-network/frost-relay/keys"
)

// State is an attempt's position in the per-attempt state machine.
// A failed attempt never repairs: spec.md requires a fresh attempt
// with fresh nonces.
type State int

const (
	Fresh State = iota
	CommitmentsCollected
	PackageIssued
	SharesCollected
	Aggregated
	Failed
)

func (s State) String() string {
	switch s {
	case Fresh:
		return "Fresh"
	case CommitmentsCollected:
		return "CommitmentsCollected"
	case PackageIssued:
		return "PackageIssued"
	case SharesCollected:
		return "SharesCollected"
	case Aggregated:
		return "Aggregated"
	case Failed:
		return "Failed"
	default:
		return "Unknown"
	}
}

// Attempt tracks one signing attempt for a fixed set of signers S.
// Not safe for concurrent use without external synchronization; the
// relayserver/cmd layer is expected to serialize access per session
// (spec.md §5).
type Attempt struct {
	suite      ciphersuite.Suite
	pub        *keys.PublicKeyPackage
	message    []byte
	randomizer ciphersuite.Scalar
	signers    []keys.Identifier // the fixed S for this attempt

	state       State
	commitments map[string]frost.SigningCommitments
	pkg         *frost.SigningPackage
	shares      map[string]frost.SignatureShare
	signature   *frost.Signature
}

// NewAttempt begins a signing attempt over message for the given
// signer set. randomizer is non-nil only for rerandomized FROST.
func NewAttempt(suite ciphersuite.Suite, pub *keys.PublicKeyPackage, signers []keys.Identifier, message []byte, randomizer ciphersuite.Scalar) (*Attempt, error) {
	if len(signers) < pub.Threshold {
		return nil, frosterr.New(frosterr.InvalidArgument, "signer set of size %d below threshold %d", len(signers), pub.Threshold)
	}
	return &Attempt{
		suite:       suite,
		pub:         pub,
		message:     message,
		randomizer:  randomizer,
		signers:     keys.SortIdentifiers(signers),
		state:       Fresh,
		commitments: map[string]frost.SigningCommitments{},
		shares:      map[string]frost.SignatureShare{},
	}, nil
}

// ReceiveCommitment records a signer's Round 1 commitments. Once every
// signer in S has contributed, the attempt moves to
// CommitmentsCollected; partial sets leave the state unchanged.
func (a *Attempt) ReceiveCommitment(c frost.SigningCommitments) error {
	if a.state != Fresh {
		return frosterr.New(frosterr.InvalidArgument, "ReceiveCommitment called in state %s", a.state)
	}
	if !a.isSigner(c.Identifier) {
		return frosterr.WithOffender(frosterr.UnknownIdentifier, c.Identifier.Hex(), "commitment from non-signer")
	}
	a.commitments[c.Identifier.Hex()] = c
	if len(a.commitments) == len(a.signers) {
		a.state = CommitmentsCollected
	}
	return nil
}

func (a *Attempt) isSigner(id keys.Identifier) bool {
	for _, s := range a.signers {
		if s.Equal(id) {
			return true
		}
	}
	return false
}

// IssueSigningPackage freezes the SigningPackage for the remainder of
// the attempt. Valid only once every signer's commitments have
// arrived.
func (a *Attempt) IssueSigningPackage() (*frost.SigningPackage, error) {
	if a.state != CommitmentsCollected {
		return nil, frosterr.New(frosterr.InvalidArgument, "IssueSigningPackage called in state %s", a.state)
	}

	ordered := make([]frost.SigningCommitments, 0, len(a.signers))
	for _, id := range a.signers {
		ordered = append(ordered, a.commitments[id.Hex()])
	}
	sort.Slice(ordered, func(i, j int) bool {
		return ordered[i].Identifier.Less(ordered[j].Identifier)
	})

	pkg := &frost.SigningPackage{Message: a.message, Commitments: ordered, Randomizer: a.randomizer}
	a.pkg = pkg
	a.state = PackageIssued
	return pkg, nil
}

// ReceiveShare records and immediately verifies a signer's Round 2
// SignatureShare against its own Round 1 commitment and verifying
// share. A bad share aborts the attempt and identifies the offender
// via frosterr.InvalidSignatureShare(i), following the ROAST-flavored
// fault-attribution path in top-level coordinator.go's ReceiveShare.
// Once every signer's share has verified, the attempt aggregates and
// returns the final Signature.
func (a *Attempt) ReceiveShare(s frost.SignatureShare) (*frost.Signature, error) {
	if a.state != PackageIssued {
		return nil, frosterr.New(frosterr.InvalidArgument, "ReceiveShare called in state %s", a.state)
	}
	if !a.isSigner(s.Identifier) {
		return nil, frosterr.WithOffender(frosterr.UnknownIdentifier, s.Identifier.Hex(), "share from non-signer")
	}

	commitment, ok := a.commitments[s.Identifier.Hex()]
	if !ok {
		return nil, frosterr.WithOffender(frosterr.MissingCommitments, s.Identifier.Hex(), "no commitment on file for signer")
	}
	verifyingShare, err := a.pub.VerifyingShareFor(s.Identifier)
	if err != nil {
		return nil, err
	}
	if !frost.VerifySignatureShare(a.suite, s, commitment, verifyingShare, a.pub.VerifyingKey, *a.pkg, a.signers) {
		a.state = Failed
		return nil, frosterr.WithOffender(frosterr.InvalidSignatureShare, s.Identifier.Hex(), "signature share failed verification")
	}

	a.shares[s.Identifier.Hex()] = s
	if len(a.shares) != len(a.signers) {
		return nil, nil
	}
	a.state = SharesCollected

	return a.aggregate()
}

// aggregate sums whatever shares have been collected so far, recovers
// R, and verifies the resulting signature against the (possibly
// randomized) VerifyingKey before ever emitting it (spec.md §4.4). It
// does not require a.shares to cover every signer in S: called with
// an incomplete set (via Deadline) it still runs the same
// verification, which an undersized z cannot pass, so the attempt
// fails with InvalidAggregate rather than panicking on a missing
// entry (spec.md §8 testable property 2).
func (a *Attempt) aggregate() (*frost.Signature, error) {
	var z ciphersuite.Scalar
	for _, id := range a.signers {
		share, ok := a.shares[id.Hex()]
		if !ok {
			continue
		}
		if z == nil {
			z = share.Share
		} else {
			z = z.Add(share.Share)
		}
	}
	if z == nil {
		a.state = Failed
		return nil, frosterr.New(frosterr.InvalidAggregate, "no signature shares were collected")
	}

	groupCommitment := frost.GroupCommitment(a.suite, a.pub.VerifyingKey, *a.pkg)
	sig := &frost.Signature{R: groupCommitment, Z: z}

	effectiveKey := a.pub.VerifyingKey.Element()
	if a.randomizer != nil {
		effectiveKey = a.suite.RandomizeVerifyingKey(effectiveKey, a.randomizer)
	}

	if !frost.VerifySignature(a.suite, *sig, effectiveKey, a.message) {
		a.state = Failed
		return nil, frosterr.New(frosterr.InvalidAggregate, "aggregated signature failed verification")
	}

	a.signature = sig
	a.state = Aggregated
	return sig, nil
}

// Deadline forces the attempt to a terminal state using whatever
// Round 2 shares have arrived so far, for an orchestrator that has
// given up waiting on the rest of the signer set. It does not retry
// or repair the attempt — per spec.md §7, a failed attempt is never
// repaired — it only runs the same verification ReceiveShare would
// have run on a complete set. An incomplete signer set therefore
// surfaces frosterr.InvalidAggregate rather than a bare timeout
// (spec.md §8 testable property 2, scenario S2). Calling Deadline on
// an Aggregated attempt returns the same Signature again; on a Failed
// attempt it returns InvalidAggregate, whichever error first failed
// the attempt.
func (a *Attempt) Deadline() (*frost.Signature, error) {
	switch a.state {
	case Aggregated:
		return a.signature, nil
	case Failed:
		return nil, frosterr.New(frosterr.InvalidAggregate, "attempt already failed")
	case PackageIssued, SharesCollected:
		return a.aggregate()
	default:
		return nil, frosterr.New(frosterr.InvalidArgument, "Deadline called before a signing package was issued, in state %s", a.state)
	}
}

// State reports the attempt's current phase.
func (a *Attempt) State() State { return a.state }

// Suite reports the ciphersuite this attempt was constructed with, so
// callers relaying wire-encoded Round 1/Round 2 messages don't need to
// carry a second copy of it.
func (a *Attempt) Suite() ciphersuite.Suite { return a.suite }
