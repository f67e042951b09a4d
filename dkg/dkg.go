// Package dkg implements the three-phase Pedersen verifiable DKG of
// spec.md §4.3: Round 1 broadcasts Feldman commitments plus a
// proof-of-knowledge; Round 2 exchanges pairwise secret shares; Round 3
// verifies those shares against the broadcast commitments and derives
// the final KeyPackage/PublicKeyPackage. It generalizes
// threshold-network-roast-go/gjkr's phase-struct shape off GJKR's
// ephemeral-ECDH complaint-resolution design down to this simpler
// abort-is-terminal protocol, and reuses f3rmion-fy/frost/dkg.go's
// Feldman-VSS share check for Round 3 verification.
package dkg

import (
	"github.com/threshold-network/frost-relay/ciphersuite"
	"github.com/threshold-network/frost-relay/frosterr"
	"github.com/threshold-network/frost-relay/keys"
)

// State is this participant's position in the three-phase protocol.
type State int

const (
	Idle State = iota
	Part1Done
	Part2Done
	Part3Done
	Aborted
)

func (s State) String() string {
	switch s {
	case Idle:
		return "Idle"
	case Part1Done:
		return "Part1Done"
	case Part2Done:
		return "Part2Done"
	case Part3Done:
		return "Part3Done"
	case Aborted:
		return "Aborted"
	default:
		return "Unknown"
	}
}

// schnorrProof is a Schnorr signature (R, z) over a committed scalar,
// used as the Round 1 proof-of-knowledge of f_i(0).
type schnorrProof struct {
	R ciphersuite.Element
	Z ciphersuite.Scalar
}

// Round1Package is participant i's public Round 1 broadcast: the
// Feldman commitments to their secret polynomial's coefficients, and a
// proof they know the constant term.
type Round1Package struct {
	Sender      keys.Identifier
	Commitments []ciphersuite.Element // C_i[0]=f_i(0)*B, ..., C_i[t-1]
	Proof       schnorrProof
}

// SenderID satisfies the sender-keyed generics in message_filter.go.
func (p Round1Package) SenderID() keys.Identifier { return p.Sender }

// Round2Package is the pairwise share participant i sends to
// participant j: f_i(id_j).
type Round2Package struct {
	Sender    keys.Identifier
	Recipient keys.Identifier
	Share     ciphersuite.Scalar
}

// SenderID satisfies the sender-keyed generics in message_filter.go.
func (p Round2Package) SenderID() keys.Identifier { return p.Sender }

// Participant holds one member's running DKG state across the three
// phases. Not safe for concurrent use; spec.md requires all state
// transitions for one participant to be serialized.
type Participant struct {
	suite ciphersuite.Suite
	self  keys.Identifier
	t, n  int
	group *group
	state State

	ownPoly      *keys.Polynomial
	round1ByPeer map[string]Round1Package // keyed by sender Identifier.Hex(), includes self
}

// NewParticipant begins a DKG run for self among members, with
// threshold t. members must include self.
func NewParticipant(suite ciphersuite.Suite, self keys.Identifier, t int, members []keys.Identifier) (*Participant, error) {
	n := len(members)
	if t < 2 || t > n {
		return nil, frosterr.New(frosterr.InvalidThreshold, "threshold must satisfy 2 <= t <= n, got t=%d n=%d", t, n)
	}
	g := newGroup(self, members)
	if !g.isMember(self) {
		return nil, frosterr.New(frosterr.InvalidArgument, "self identifier is not a member of the group")
	}
	return &Participant{suite: suite, self: self, t: t, n: n, group: g, state: Idle}, nil
}

// Part1 samples this participant's secret polynomial f_i, computes its
// Feldman commitments, and a Schnorr proof-of-knowledge of f_i(0).
// Output is the package to broadcast; the polynomial is retained as
// secret state until Part3 completes or the run aborts.
func (p *Participant) Part1(rnd ciphersuite.RandReader) (Round1Package, error) {
	if p.state != Idle {
		return Round1Package{}, frosterr.New(frosterr.InvalidArgument, "Part1 called in state %s", p.state)
	}

	secret, err := p.suite.RandomScalar(rnd)
	if err != nil {
		return Round1Package{}, err
	}
	poly, err := keys.GeneratePolynomial(p.suite, rnd, p.t, secret)
	if err != nil {
		return Round1Package{}, err
	}

	commitments := make([]ciphersuite.Element, p.t)
	for i, c := range poly.Coefficients {
		commitments[i] = p.suite.ScalarBaseMul(c)
	}

	proof, err := p.proveKnowledge(rnd, secret, commitments[0])
	if err != nil {
		return Round1Package{}, err
	}

	p.ownPoly = poly
	p.round1ByPeer = map[string]Round1Package{}
	p.state = Part1Done

	pkg := Round1Package{Sender: p.self, Commitments: commitments, Proof: proof}
	p.round1ByPeer[p.self.Hex()] = pkg
	return pkg, nil
}

// proveKnowledge produces a Schnorr proof that the prover knows x such
// that X = x*B, binding the prover's own identifier into the challenge
// (standard FROST DKG practice, preventing rogue-key substitution of
// another participant's commitment).
func (p *Participant) proveKnowledge(rnd ciphersuite.RandReader, x ciphersuite.Scalar, X ciphersuite.Element) (schnorrProof, error) {
	k, err := p.suite.RandomScalar(rnd)
	if err != nil {
		return schnorrProof{}, err
	}
	R := p.suite.ScalarBaseMul(k)
	c := p.suite.H3(p.self.Bytes(), p.suite.SerializeElement(R), p.suite.SerializeElement(X))
	z := k.Add(c.Mul(x))
	return schnorrProof{R: R, Z: z}, nil
}

func (p *Participant) verifyKnowledge(sender keys.Identifier, proof schnorrProof, X ciphersuite.Element) bool {
	c := p.suite.H3(sender.Bytes(), p.suite.SerializeElement(proof.R), p.suite.SerializeElement(X))
	lhs := p.suite.ScalarBaseMul(proof.Z)
	rhs := proof.R.Add(X.Mul(c))
	return lhs.Equal(rhs)
}

// Part2 consumes every peer's Round1Package, verifies each
// proof-of-knowledge, and computes the pairwise shares this
// participant owes every peer. Returns frosterr.MissingCommitments if
// the received set is incomplete (spec.md: partial sets leave state
// unchanged) and frosterr.InvalidProofOfKnowledge(sender) — aborting
// the run — on the first bad proof.
func (p *Participant) Part2(received []Round1Package) ([]Round2Package, error) {
	if p.state != Part1Done {
		return nil, frosterr.New(frosterr.InvalidArgument, "Part2 called in state %s", p.state)
	}

	deduped := deduplicateBySender(received)
	byPeer := map[string]Round1Package{}
	for _, pkg := range deduped {
		byPeer[pkg.Sender.Hex()] = pkg
	}
	if missing := findMissing(p.group.peers(), deduped); len(missing) > 0 {
		return nil, frosterr.New(frosterr.MissingCommitments, "Round 1 packages missing from %d peer(s)", len(missing))
	}

	for _, peer := range p.group.peers() {
		pkg := byPeer[peer.Hex()]
		if len(pkg.Commitments) != p.t {
			p.abort()
			return nil, frosterr.WithOffender(frosterr.InvalidProofOfKnowledge, peer.Hex(), "wrong commitment count: got %d, want %d", len(pkg.Commitments), p.t)
		}
		if !p.verifyKnowledge(peer, pkg.Proof, pkg.Commitments[0]) {
			p.abort()
			return nil, frosterr.WithOffender(frosterr.InvalidProofOfKnowledge, peer.Hex(), "proof-of-knowledge verification failed")
		}
		p.round1ByPeer[peer.Hex()] = pkg
	}

	outgoing := make([]Round2Package, 0, len(p.group.peers()))
	for _, peer := range p.group.peers() {
		share := p.ownPoly.Evaluate(peer.Scalar())
		outgoing = append(outgoing, Round2Package{Sender: p.self, Recipient: peer, Share: share})
	}

	p.state = Part2Done
	return outgoing, nil
}

// Part3 consumes every peer's Round2Package addressed to this
// participant, verifies each share against the sender's Round 1
// commitments via the Feldman-VSS check share*B == sum(id^k * C[k])
// (f3rmion-fy/frost/dkg.go's Round2ReceiveShare), and derives the final
// KeyPackage and the full group PublicKeyPackage. Returns
// frosterr.InvalidShare(sender) — aborting the run — on the first
// mismatch.
func (p *Participant) Part3(received []Round2Package) (*keys.KeyPackage, *keys.PublicKeyPackage, error) {
	if p.state != Part2Done {
		return nil, nil, frosterr.New(frosterr.InvalidArgument, "Part3 called in state %s", p.state)
	}

	addressedToSelf := make([]Round2Package, 0, len(received))
	for _, pkg := range received {
		if pkg.Recipient.Equal(p.self) {
			addressedToSelf = append(addressedToSelf, pkg)
		}
	}
	deduped := deduplicateBySender(addressedToSelf)
	byPeer := map[string]Round2Package{}
	for _, pkg := range deduped {
		byPeer[pkg.Sender.Hex()] = pkg
	}
	if missing := findMissing(p.group.peers(), deduped); len(missing) > 0 {
		return nil, nil, frosterr.New(frosterr.MissingCommitments, "Round 2 shares missing from %d peer(s)", len(missing))
	}

	secretShare := p.ownPoly.Evaluate(p.self.Scalar())
	for _, peer := range p.group.peers() {
		pkg := byPeer[peer.Hex()]
		commitments := p.round1ByPeer[peer.Hex()].Commitments
		expected := evaluateCommitments(p.suite, commitments, p.self.Scalar())
		if !p.suite.ScalarBaseMul(pkg.Share).Equal(expected) {
			p.abort()
			return nil, nil, frosterr.WithOffender(frosterr.InvalidShare, peer.Hex(), "share fails Feldman-VSS check")
		}
		secretShare = secretShare.Add(pkg.Share)
	}

	verifyingShare := keys.NewVerifyingShare(p.suite, p.suite.ScalarBaseMul(secretShare))

	groupKey := p.suite.IdentityElement()
	for _, member := range p.group.members {
		groupKey = groupKey.Add(p.round1ByPeer[member.Hex()].Commitments[0])
	}
	verifyingKey := keys.NewVerifyingKey(p.suite, groupKey)

	pubShares := make(map[string]keys.VerifyingShare, len(p.group.members))
	for _, target := range p.group.members {
		acc := p.suite.IdentityElement()
		for _, member := range p.group.members {
			acc = acc.Add(evaluateCommitments(p.suite, p.round1ByPeer[member.Hex()].Commitments, target.Scalar()))
		}
		pubShares[target.Hex()] = keys.NewVerifyingShare(p.suite, acc)
	}

	// Self-consistency check (spec.md §4.3): the share derived locally
	// must agree with the same value derived purely from the broadcast
	// commitment set.
	if selfShare, ok := pubShares[p.self.Hex()]; !ok || !selfShare.Equal(verifyingShare) {
		p.abort()
		return nil, nil, frosterr.New(frosterr.InconsistentPublicKeyPackage, "own verifying share disagrees with commitment-derived value")
	}

	p.ownPoly.Zeroize()
	p.state = Part3Done

	kp := &keys.KeyPackage{
		Suite:          p.suite,
		Identifier:     p.self,
		SigningShare:   keys.NewSigningShare(p.suite, secretShare),
		VerifyingShare: verifyingShare,
		VerifyingKey:   verifyingKey,
		Threshold:      p.t,
		MaxSigners:     p.n,
	}
	pub := &keys.PublicKeyPackage{
		Suite:           p.suite,
		VerifyingKey:    verifyingKey,
		VerifyingShares: pubShares,
		Threshold:       p.t,
	}
	return kp, pub, nil
}

func (p *Participant) abort() {
	if p.ownPoly != nil {
		p.ownPoly.Zeroize()
	}
	p.state = Aborted
}

// State reports the participant's current phase.
func (p *Participant) State() State { return p.state }

// evaluateCommitments computes sum_k x^k * commitments[k] by Horner's
// method over group elements, the point-domain analogue of
// keys.EvaluatePolynomial: it evaluates the commitment polynomial at x
// without ever reconstructing the underlying scalar coefficients.
func evaluateCommitments(suite ciphersuite.Suite, commitments []ciphersuite.Element, x ciphersuite.Scalar) ciphersuite.Element {
	result := commitments[len(commitments)-1]
	for i := len(commitments) - 2; i >= 0; i-- {
		result = result.Mul(x).Add(commitments[i])
	}
	return result
}
