// Package frost implements the participant side of the two-round FROST
// signing protocol (spec.md §4.4): nonce/commitment generation in
// Round 1, signing-package validation and signature-share generation
// in Round 2, with optional rerandomization for Orchard/Sapling-style
// shielded signing. Generalizes
// threshold-network-roast-go/frost/signer.go off a fixed
// secp256k1/BIP-340 ciphersuite onto ciphersuite.Suite.
package frost

import (
	"github.com/threshold-network/frost-relay/ciphersuite"
	"github.com/threshold-network/frost-relay/frosterr"
	"github.com/threshold-network/frost-relay/internal/zeroize"
	"github.com/threshold-network/frost-relay/keys"
)

// SigningNonces is the secret pair (hiding, binding) a participant
// samples in Round 1. Single-use: Zeroize must be called immediately
// after the share is emitted in Round 2 (spec.md §3).
type SigningNonces struct {
	Hiding  ciphersuite.Scalar
	Binding ciphersuite.Scalar
}

// Zeroize overwrites the nonce pair's own backing storage in place via
// ciphersuite.Scalar.Zeroize, then drops the references so the nonces
// cannot be reused (spec.md §3 invariant I2, §9).
func (n *SigningNonces) Zeroize(suite ciphersuite.Suite) {
	if n.Hiding != nil {
		n.Hiding.Zeroize()
	}
	if n.Binding != nil {
		n.Binding.Zeroize()
	}
	n.Hiding, n.Binding = nil, nil
}

// SigningCommitments is the public image of SigningNonces one
// participant contributes to an attempt.
type SigningCommitments struct {
	Identifier keys.Identifier
	Hiding     ciphersuite.Element
	Binding    ciphersuite.Element
}

// SigningPackage is the frozen attempt state the Coordinator builds
// after collecting Round 1 commitments from every signer in S and
// distributes unchanged for the remainder of the attempt.
type SigningPackage struct {
	Message     []byte
	Commitments []SigningCommitments // sorted ascending by Identifier
	// Randomizer is non-nil for a rerandomized-FROST attempt.
	Randomizer ciphersuite.Scalar
}

// SignatureShare is one signer's Round 2 contribution.
type SignatureShare struct {
	Identifier keys.Identifier
	Share      ciphersuite.Scalar
}

// Signature is the final aggregated Schnorr signature (R, z).
type Signature struct {
	R ciphersuite.Element
	Z ciphersuite.Scalar
}

// Round1 samples fresh SigningNonces seeded by the participant's own
// SigningShare plus CSPRNG randomness, so nonce generation remains
// safe even against a low-quality RNG (spec.md §4.4), and returns the
// corresponding public SigningCommitments.
func Round1(suite ciphersuite.Suite, self keys.Identifier, share keys.SigningShare, rnd ciphersuite.RandReader) (SigningNonces, SigningCommitments, error) {
	hiding, err := generateNonce(suite, share, rnd)
	if err != nil {
		return SigningNonces{}, SigningCommitments{}, err
	}
	binding, err := generateNonce(suite, share, rnd)
	if err != nil {
		return SigningNonces{}, SigningCommitments{}, err
	}

	nonces := SigningNonces{Hiding: hiding, Binding: binding}
	commitments := SigningCommitments{
		Identifier: self,
		Hiding:     suite.ScalarBaseMul(hiding),
		Binding:    suite.ScalarBaseMul(binding),
	}
	return nonces, commitments, nil
}

// generateNonce computes H3(random_bytes || secret_enc), mixing the
// participant's own SigningShare into the derivation. Both the fresh
// randomness and the share's serialized copy are secret-lifetime
// scratch buffers, acquired via zeroize.WithSecret so they are wiped
// on every exit path, including an error return from rnd.Read.
func generateNonce(suite ciphersuite.Suite, share keys.SigningShare, rnd ciphersuite.RandReader) (ciphersuite.Scalar, error) {
	var out ciphersuite.Scalar
	err := zeroize.WithSecret(32, func(randBuf zeroize.Bytes) error {
		if _, err := rnd.Read(randBuf); err != nil {
			return err
		}
		shareBuf := zeroize.Bytes(share.Bytes())
		defer shareBuf.Zeroize()
		out = suite.H3(randBuf, shareBuf)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// Round2 validates the Coordinator's SigningPackage and emits this
// signer's SignatureShare. nonces is consumed and zeroized before
// returning, win or lose: a failed validation still discards the
// single-use nonces.
func Round2(suite ciphersuite.Suite, self keys.Identifier, share keys.SigningShare, verifyingKey keys.VerifyingKey, nonces *SigningNonces, pkg SigningPackage) (SignatureShare, error) {
	defer nonces.Zeroize(suite)

	participants, err := validateSigningPackage(self, pkg)
	if err != nil {
		return SignatureShare{}, err
	}

	bindingFactors := computeBindingFactors(suite, verifyingKey, pkg)
	bindingFactor := bindingFactors[self.Hex()]
	groupCommitment := computeGroupCommitment(suite, pkg.Commitments, bindingFactors)
	lambda := keys.LagrangeCoefficient(suite, self, participants)

	effectiveKey := verifyingKey.Element()
	effectiveShare := share.Scalar()
	if pkg.Randomizer != nil {
		effectiveKey = suite.RandomizeVerifyingKey(effectiveKey, pkg.Randomizer)
		isFirst := self.Equal(participants[0])
		effectiveShare = suite.RandomizeSigningShare(lambda, effectiveShare, pkg.Randomizer, isFirst)
	}

	challenge := suite.Challenge(groupCommitment, effectiveKey, pkg.Message)

	z := nonces.Hiding.
		Add(nonces.Binding.Mul(bindingFactor)).
		Add(lambda.Mul(effectiveShare).Mul(challenge))

	return SignatureShare{Identifier: self, Share: z}, nil
}

// validateSigningPackage implements validateGroupCommitments
// (threshold-network-roast-go/frost/signer.go): commitments must be
// sorted ascending by Identifier, contain no duplicates, include
// self, and reject the identity element. Returns the participant set
// S on success.
func validateSigningPackage(self keys.Identifier, pkg SigningPackage) ([]keys.Identifier, error) {
	if len(pkg.Commitments) == 0 {
		return nil, frosterr.New(frosterr.MissingCommitments, "signing package has no commitments")
	}
	participants := make([]keys.Identifier, len(pkg.Commitments))
	found := false
	for i, c := range pkg.Commitments {
		if i > 0 && !pkg.Commitments[i-1].Identifier.Less(c.Identifier) {
			return nil, frosterr.New(frosterr.InvalidSigningPackage, "commitments not strictly sorted in ascending order")
		}
		if c.Hiding.IsIdentity() || c.Binding.IsIdentity() {
			return nil, frosterr.WithOffender(frosterr.InvalidSigningPackage, c.Identifier.Hex(), "commitment is the identity element")
		}
		if c.Identifier.Equal(self) {
			found = true
		}
		participants[i] = c.Identifier
	}
	if !found {
		return nil, frosterr.New(frosterr.InvalidSigningPackage, "signing package does not include this participant's commitments")
	}
	return participants, nil
}

// GroupCommitment recomputes the FROST 4.5 group commitment R for a
// frozen SigningPackage, exported so the coordinator can recover R at
// aggregation time without duplicating binding-factor computation.
func GroupCommitment(suite ciphersuite.Suite, verifyingKey keys.VerifyingKey, pkg SigningPackage) ciphersuite.Element {
	bindingFactors := computeBindingFactors(suite, verifyingKey, pkg)
	return computeGroupCommitment(suite, pkg.Commitments, bindingFactors)
}

// computeBindingFactors implements the FROST 4.4 Binding Factors
// Computation, keyed by Identifier.Hex() rather than teacher's numeric
// signerIndex.
func computeBindingFactors(suite ciphersuite.Suite, verifyingKey keys.VerifyingKey, pkg SigningPackage) map[string]ciphersuite.Scalar {
	groupKeyEnc := suite.SerializeElement(verifyingKey.Element())
	msgHash := suite.H4(pkg.Message)
	encodedCommitments := encodeGroupCommitment(suite, pkg.Commitments)
	comHash := suite.H5(encodedCommitments)

	factors := make(map[string]ciphersuite.Scalar, len(pkg.Commitments))
	for _, c := range pkg.Commitments {
		rhoInput := concatBytes(groupKeyEnc, msgHash, comHash, suite.SerializeScalar(c.Identifier.Scalar()))
		factors[c.Identifier.Hex()] = suite.H1(rhoInput)
	}
	return factors
}

// computeGroupCommitment implements the FROST 4.5 Group Commitment
// Computation: sum_i (D_i + rho_i*E_i).
func computeGroupCommitment(suite ciphersuite.Suite, commitments []SigningCommitments, bindingFactors map[string]ciphersuite.Scalar) ciphersuite.Element {
	result := suite.IdentityElement()
	for _, c := range commitments {
		rho := bindingFactors[c.Identifier.Hex()]
		result = result.Add(c.Hiding).Add(c.Binding.Mul(rho))
	}
	return result
}

// encodeGroupCommitment implements the FROST 4.3 List Operations
// encode_group_commitment_list function.
func encodeGroupCommitment(suite ciphersuite.Suite, commitments []SigningCommitments) []byte {
	var b []byte
	for _, c := range commitments {
		b = append(b, suite.SerializeScalar(c.Identifier.Scalar())...)
		b = append(b, suite.SerializeElement(c.Hiding)...)
		b = append(b, suite.SerializeElement(c.Binding)...)
	}
	return b
}

func concatBytes(parts ...[]byte) []byte {
	var total int
	for _, p := range parts {
		total += len(p)
	}
	out := make([]byte, 0, total)
	for _, p := range parts {
		out = append(out, p...)
	}
	return out
}

// VerifySignatureShare checks z_i*B == D_i + rho_i*E_i + lambda_i*c*Y_i,
// the per-signer check the Coordinator uses to attribute a bad share
// to its sender before aggregation (spec.md §4.4).
func VerifySignatureShare(suite ciphersuite.Suite, share SignatureShare, commitment SigningCommitments, verifyingShare keys.VerifyingShare, verifyingKey keys.VerifyingKey, pkg SigningPackage, participants []keys.Identifier) bool {
	bindingFactors := computeBindingFactors(suite, verifyingKey, pkg)
	rho := bindingFactors[commitment.Identifier.Hex()]
	lambda := keys.LagrangeCoefficient(suite, commitment.Identifier, participants)

	effectiveKey := verifyingKey.Element()
	effectiveShareKey := verifyingShare.Element()
	if pkg.Randomizer != nil {
		effectiveKey = suite.RandomizeVerifyingKey(effectiveKey, pkg.Randomizer)
		isFirst := commitment.Identifier.Equal(participants[0])
		if isFirst {
			effectiveShareKey = effectiveShareKey.Add(suite.ScalarBaseMul(pkg.Randomizer.Mul(lambda.Invert())))
		}
	}

	groupCommitment := computeGroupCommitment(suite, pkg.Commitments, bindingFactors)
	challenge := suite.Challenge(groupCommitment, effectiveKey, pkg.Message)

	lhs := suite.ScalarBaseMul(share.Share)
	rhs := commitment.Hiding.
		Add(commitment.Binding.Mul(rho)).
		Add(effectiveShareKey.Mul(lambda.Mul(challenge)))
	return lhs.Equal(rhs)
}

// VerifySignature checks a Schnorr signature (R, z) against
// verifyingKey: z*B == R + c*Y where c = Challenge(R, Y, msg).
func VerifySignature(suite ciphersuite.Suite, sig Signature, verifyingKey ciphersuite.Element, message []byte) bool {
	challenge := suite.Challenge(sig.R, verifyingKey, message)
	lhs := suite.ScalarBaseMul(sig.Z)
	rhs := sig.R.Add(verifyingKey.Mul(challenge))
	return lhs.Equal(rhs)
}
