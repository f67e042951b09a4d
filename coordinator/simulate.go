package coordinator

import (
	"github.com/threshold-network/frost-relay/ciphersuite"
	"github.com/threshold-network/frost-relay/frost"
	"github.com/threshold-network/frost-relay/keys"
)

// RequestKind distinguishes the two things a Coordinator asks a
// simulated signer to do, mirroring top-level coordinator.go's
// CommitRequest/SignRequest pair.
type RequestKind int

const (
	RequestCommitment RequestKind = iota
	RequestShare
)

// SignerRequest is sent to a simulated signer. Package is populated
// only for RequestShare, carrying the Coordinator's frozen
// SigningPackage.
type SignerRequest struct {
	Kind    RequestKind
	Package frost.SigningPackage
}

// SignerChannels is the pair of channels one simulated signer
// communicates over, grounded on threshold-network-roast-go/member.go's
// CoordinatorCh/MemberCh split: requests flow in, responses flow out,
// Done tears the goroutine down.
type SignerChannels struct {
	Requests    chan SignerRequest
	Commitments chan frost.SigningCommitments
	Shares      chan frost.SignatureShare
	Done        chan struct{}
}

// NewSignerChannels allocates a SignerChannels with buffering wide
// enough that a simulated signer never blocks sending its one response
// per request.
func NewSignerChannels() SignerChannels {
	return SignerChannels{
		Requests:    make(chan SignerRequest, 1),
		Commitments: make(chan frost.SigningCommitments, 1),
		Shares:      make(chan frost.SignatureShare, 1),
		Done:        make(chan struct{}),
	}
}

// RunSimulatedSigner drives one participant's Round1/Round2 calls in
// response to Coordinator requests. Grounded on member.go's
// RunMember/RespondC/RespondS select loop, simplified since this
// harness only simulates honest signers (spec.md's fault-handling
// paths are exercised directly against Attempt in coordinator_test.go,
// not through misbehaving simulated signers).
func RunSimulatedSigner(suite ciphersuite.Suite, self keys.Identifier, share keys.SigningShare, verifyingKey keys.VerifyingKey, rnd ciphersuite.RandReader, ch SignerChannels) {
	var nonces *frost.SigningNonces
	for {
		select {
		case req := <-ch.Requests:
			switch req.Kind {
			case RequestCommitment:
				nn, cc, err := frost.Round1(suite, self, share, rnd)
				if err != nil {
					continue
				}
				nonces = &nn
				ch.Commitments <- cc
			case RequestShare:
				if nonces == nil {
					continue
				}
				used := nonces
				nonces = nil
				s, err := frost.Round2(suite, self, share, verifyingKey, used, req.Package)
				if err != nil {
					continue
				}
				ch.Shares <- s
			}
		case <-ch.Done:
			return
		}
	}
}

// RunSimulatedAttempt drives attempt end-to-end against a set of
// already-running simulated signers, grounded on top-level
// coordinator.go's RunCoordinator/SendSignRequests orchestration: send
// commitment requests, assemble and distribute the SigningPackage, send
// share requests, and aggregate.
func RunSimulatedAttempt(attempt *Attempt, signerChs map[string]SignerChannels) (*frost.Signature, error) {
	for _, ch := range signerChs {
		ch.Requests <- SignerRequest{Kind: RequestCommitment}
	}
	for _, ch := range signerChs {
		commitment := <-ch.Commitments
		if err := attempt.ReceiveCommitment(commitment); err != nil {
			return nil, err
		}
	}

	pkg, err := attempt.IssueSigningPackage()
	if err != nil {
		return nil, err
	}

	for _, ch := range signerChs {
		ch.Requests <- SignerRequest{Kind: RequestShare, Package: *pkg}
	}

	var signature *frost.Signature
	for _, ch := range signerChs {
		share := <-ch.Shares
		signature, err = attempt.ReceiveShare(share)
		if err != nil {
			return nil, err
		}
	}
	return signature, nil
}
