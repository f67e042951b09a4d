package dkg

import (
	"github.com/fxamacker/cbor/v2"

	"github.com/threshold-network/frost-relay/ciphersuite"
	"github.com/threshold-network/frost-relay/ephemeral"
	"github.com/threshold-network/frost-relay/frosterr"
	"github.com/threshold-network/frost-relay/keys"
)

// Wire shadows: every ciphersuite.Scalar/Element field is flattened to
// its canonical byte encoding, the same approach keys/package.go uses
// for KeyPackage/PublicKeyPackage, since cbor cannot encode the
// interface-typed fields directly and decoding needs a caller-supplied
// Suite to re-hydrate them.

type wireSchnorrProof struct {
	R []byte
	Z []byte
}

type wireRound1Package struct {
	Sender      []byte
	Commitments [][]byte
	Proof       wireSchnorrProof
}

// SerializeRound1Package encodes pkg for broadcast to peers (file or
// relayserver transport).
func SerializeRound1Package(suite ciphersuite.Suite, pkg Round1Package) ([]byte, error) {
	w := wireRound1Package{
		Sender: pkg.Sender.Bytes(),
		Proof: wireSchnorrProof{
			R: suite.SerializeElement(pkg.Proof.R),
			Z: suite.SerializeScalar(pkg.Proof.Z),
		},
	}
	for _, c := range pkg.Commitments {
		w.Commitments = append(w.Commitments, suite.SerializeElement(c))
	}
	b, err := cbor.Marshal(w)
	if err != nil {
		return nil, frosterr.Wrap(frosterr.MalformedEncoding, err, "encode round 1 package")
	}
	return b, nil
}

// DeserializeRound1Package decodes a package produced by
// SerializeRound1Package.
func DeserializeRound1Package(suite ciphersuite.Suite, data []byte) (Round1Package, error) {
	var w wireRound1Package
	if err := cbor.Unmarshal(data, &w); err != nil {
		return Round1Package{}, frosterr.Wrap(frosterr.MalformedEncoding, err, "decode round 1 package")
	}
	senderScalar, err := suite.DeserializeScalar(w.Sender)
	if err != nil {
		return Round1Package{}, frosterr.Wrap(frosterr.MalformedEncoding, err, "decode round 1 sender")
	}
	sender, err := keys.IdentifierFromScalar(suite, senderScalar)
	if err != nil {
		return Round1Package{}, err
	}
	commitments := make([]ciphersuite.Element, len(w.Commitments))
	for i, c := range w.Commitments {
		elem, err := suite.DeserializeElement(c)
		if err != nil {
			return Round1Package{}, frosterr.Wrap(frosterr.MalformedEncoding, err, "decode round 1 commitment %d", i)
		}
		commitments[i] = elem
	}
	r, err := suite.DeserializeElement(w.Proof.R)
	if err != nil {
		return Round1Package{}, frosterr.Wrap(frosterr.MalformedEncoding, err, "decode round 1 proof R")
	}
	z, err := suite.DeserializeScalar(w.Proof.Z)
	if err != nil {
		return Round1Package{}, frosterr.Wrap(frosterr.MalformedEncoding, err, "decode round 1 proof Z")
	}
	return Round1Package{Sender: sender, Commitments: commitments, Proof: schnorrProof{R: r, Z: z}}, nil
}

type wireSealedRound2Package struct {
	Sender       []byte
	Recipient    []byte
	EphemeralPub [32]byte
	Ciphertext   []byte
}

// SerializeSealedRound2Package encodes a sealed share for writing to
// the per-recipient output file part-2 produces.
func SerializeSealedRound2Package(suite ciphersuite.Suite, sealed *SealedRound2Package) ([]byte, error) {
	w := wireSealedRound2Package{
		Sender:       sealed.Sender.Bytes(),
		Recipient:    sealed.Recipient.Bytes(),
		EphemeralPub: sealed.EphemeralPub,
		Ciphertext:   sealed.Ciphertext,
	}
	b, err := cbor.Marshal(w)
	if err != nil {
		return nil, frosterr.Wrap(frosterr.MalformedEncoding, err, "encode sealed round 2 package")
	}
	return b, nil
}

// DeserializeSealedRound2Package decodes a file produced by
// SerializeSealedRound2Package.
func DeserializeSealedRound2Package(suite ciphersuite.Suite, data []byte) (*SealedRound2Package, error) {
	var w wireSealedRound2Package
	if err := cbor.Unmarshal(data, &w); err != nil {
		return nil, frosterr.Wrap(frosterr.MalformedEncoding, err, "decode sealed round 2 package")
	}
	senderScalar, err := suite.DeserializeScalar(w.Sender)
	if err != nil {
		return nil, frosterr.Wrap(frosterr.MalformedEncoding, err, "decode sealed sender")
	}
	sender, err := keys.IdentifierFromScalar(suite, senderScalar)
	if err != nil {
		return nil, err
	}
	recipientScalar, err := suite.DeserializeScalar(w.Recipient)
	if err != nil {
		return nil, frosterr.Wrap(frosterr.MalformedEncoding, err, "decode sealed recipient")
	}
	recipient, err := keys.IdentifierFromScalar(suite, recipientScalar)
	if err != nil {
		return nil, err
	}
	return &SealedRound2Package{
		Sender:       sender,
		Recipient:    recipient,
		EphemeralPub: ephemeral.PublicKey(w.EphemeralPub),
		Ciphertext:   w.Ciphertext,
	}, nil
}

// Snapshot is a serializable image of a Participant's secret state,
// letting the CLI orchestrator persist a run across the separate
// part-1/part-2/part-3 process invocations spec.md §6 describes. Only
// exists to cross a process boundary; unlike KeyPackage it is not a
// long-term secret and the operator is expected to delete it once
// Part3 completes.
type Snapshot struct {
	Self        []byte
	Threshold   int
	Members     [][]byte
	State       State
	PolyCoeffs  [][]byte // nil once the run has passed Part3 or aborted
	Round1Peers []wireRound1Package
}

// Snapshot captures p's current state for serialization.
func (p *Participant) Snapshot() (*Snapshot, error) {
	snap := &Snapshot{
		Self:      p.self.Bytes(),
		Threshold: p.t,
		State:     p.state,
	}
	for _, m := range p.group.members {
		snap.Members = append(snap.Members, m.Bytes())
	}
	if p.ownPoly != nil && p.state != Part3Done && p.state != Aborted {
		for _, c := range p.ownPoly.Coefficients {
			snap.PolyCoeffs = append(snap.PolyCoeffs, p.suite.SerializeScalar(c))
		}
	}
	for _, pkg := range p.round1ByPeer {
		w := wireRound1Package{
			Sender: pkg.Sender.Bytes(),
			Proof: wireSchnorrProof{
				R: p.suite.SerializeElement(pkg.Proof.R),
				Z: p.suite.SerializeScalar(pkg.Proof.Z),
			},
		}
		for _, c := range pkg.Commitments {
			w.Commitments = append(w.Commitments, p.suite.SerializeElement(c))
		}
		snap.Round1Peers = append(snap.Round1Peers, w)
	}
	return snap, nil
}

// SerializeSnapshot encodes snap to CBOR for the part-N state file.
func SerializeSnapshot(snap *Snapshot) ([]byte, error) {
	b, err := cbor.Marshal(snap)
	if err != nil {
		return nil, frosterr.Wrap(frosterr.MalformedEncoding, err, "encode dkg snapshot")
	}
	return b, nil
}

// DeserializeSnapshot decodes a snapshot written by SerializeSnapshot.
func DeserializeSnapshot(data []byte) (*Snapshot, error) {
	var snap Snapshot
	if err := cbor.Unmarshal(data, &snap); err != nil {
		return nil, frosterr.Wrap(frosterr.MalformedEncoding, err, "decode dkg snapshot")
	}
	return &snap, nil
}

// Restore rebuilds a Participant from a Snapshot under suite, picking
// up exactly where the process that called Snapshot left off.
func Restore(suite ciphersuite.Suite, snap *Snapshot) (*Participant, error) {
	selfScalar, err := suite.DeserializeScalar(snap.Self)
	if err != nil {
		return nil, frosterr.Wrap(frosterr.MalformedEncoding, err, "decode snapshot self")
	}
	self, err := keys.IdentifierFromScalar(suite, selfScalar)
	if err != nil {
		return nil, err
	}
	members := make([]keys.Identifier, len(snap.Members))
	for i, m := range snap.Members {
		ms, err := suite.DeserializeScalar(m)
		if err != nil {
			return nil, frosterr.Wrap(frosterr.MalformedEncoding, err, "decode snapshot member %d", i)
		}
		members[i], err = keys.IdentifierFromScalar(suite, ms)
		if err != nil {
			return nil, err
		}
	}

	p := &Participant{
		suite: suite,
		self:  self,
		t:     snap.Threshold,
		n:     len(members),
		group: newGroup(self, members),
		state: snap.State,
	}

	if len(snap.PolyCoeffs) > 0 {
		coeffs := make([]ciphersuite.Scalar, len(snap.PolyCoeffs))
		for i, c := range snap.PolyCoeffs {
			cs, err := suite.DeserializeScalar(c)
			if err != nil {
				return nil, frosterr.Wrap(frosterr.MalformedEncoding, err, "decode snapshot poly coefficient %d", i)
			}
			coeffs[i] = cs
		}
		p.ownPoly = &keys.Polynomial{Coefficients: coeffs}
	}

	if len(snap.Round1Peers) > 0 {
		p.round1ByPeer = make(map[string]Round1Package, len(snap.Round1Peers))
		for _, w := range snap.Round1Peers {
			pkg, err := decodeWireRound1(suite, w)
			if err != nil {
				return nil, err
			}
			p.round1ByPeer[pkg.Sender.Hex()] = pkg
		}
	}

	return p, nil
}

func decodeWireRound1(suite ciphersuite.Suite, w wireRound1Package) (Round1Package, error) {
	senderScalar, err := suite.DeserializeScalar(w.Sender)
	if err != nil {
		return Round1Package{}, frosterr.Wrap(frosterr.MalformedEncoding, err, "decode round 1 sender")
	}
	sender, err := keys.IdentifierFromScalar(suite, senderScalar)
	if err != nil {
		return Round1Package{}, err
	}
	commitments := make([]ciphersuite.Element, len(w.Commitments))
	for i, c := range w.Commitments {
		elem, err := suite.DeserializeElement(c)
		if err != nil {
			return Round1Package{}, frosterr.Wrap(frosterr.MalformedEncoding, err, "decode round 1 commitment %d", i)
		}
		commitments[i] = elem
	}
	r, err := suite.DeserializeElement(w.Proof.R)
	if err != nil {
		return Round1Package{}, frosterr.Wrap(frosterr.MalformedEncoding, err, "decode round 1 proof R")
	}
	z, err := suite.DeserializeScalar(w.Proof.Z)
	if err != nil {
		return Round1Package{}, frosterr.Wrap(frosterr.MalformedEncoding, err, "decode round 1 proof Z")
	}
	return Round1Package{Sender: sender, Commitments: commitments, Proof: schnorrProof{R: r, Z: z}}, nil
}
