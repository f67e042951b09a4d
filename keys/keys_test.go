package keys

import (
	"crypto/rand"
	"testing"

	"github.com/threshold-network/frost-relay/ciphersuite"
	"github.com/threshold-network/frost-relay/ciphersuite/ed25519"
	"github.com/threshold-network/frost-relay/ciphersuite/redpallas"
)

// TestLagrangeReconstructsSecret checks invariant I1 (spec.md §3):
// sum_{i in S} lambda_i(S) * s_i == s for a freshly sampled
// polynomial, across both ciphersuites.
func TestLagrangeReconstructsSecret(t *testing.T) {
	for _, suite := range []ciphersuite.Suite{ed25519.New(), redpallas.New()} {
		const n, threshold = 5, 3
		secret, err := suite.RandomScalar(rand.Reader)
		if err != nil {
			t.Fatalf("RandomScalar: %v", err)
		}
		poly, err := GeneratePolynomial(suite, rand.Reader, threshold, secret)
		if err != nil {
			t.Fatalf("GeneratePolynomial: %v", err)
		}

		ids := make([]Identifier, n)
		for i := 0; i < n; i++ {
			id, err := NewIdentifier(suite, uint16(i+1))
			if err != nil {
				t.Fatalf("NewIdentifier: %v", err)
			}
			ids[i] = id
		}

		set := ids[1:4] // any subset of size >= threshold
		var recovered ciphersuite.Scalar
		for _, id := range set {
			share := poly.Evaluate(id.Scalar())
			lambda := LagrangeCoefficient(suite, id, set)
			term := lambda.Mul(share)
			if recovered == nil {
				recovered = term
			} else {
				recovered = recovered.Add(term)
			}
		}
		if !recovered.Equal(secret) {
			t.Fatalf("%v: Lagrange-combined shares did not recover the secret", suite.ID())
		}
	}
}

// TestSigningShareZeroizeClearsBackingScalar confirms
// SigningShare.Zeroize erases the underlying ciphersuite.Scalar's own
// storage (spec.md §9), not just a throwaway serialized copy.
func TestSigningShareZeroizeClearsBackingScalar(t *testing.T) {
	suite := ed25519.New()
	secret, err := suite.RandomScalar(rand.Reader)
	if err != nil {
		t.Fatalf("RandomScalar: %v", err)
	}
	share := NewSigningShare(suite, secret)
	share.Zeroize()
	if !secret.IsZero() {
		t.Fatalf("Zeroize did not clear the scalar backing the SigningShare")
	}
}

// TestPolynomialZeroizeClearsCoefficients confirms Polynomial.Zeroize
// clears every coefficient's own backing storage, including the
// constant term (the secret), not just the slice of references.
func TestPolynomialZeroizeClearsCoefficients(t *testing.T) {
	suite := ed25519.New()
	secret, err := suite.RandomScalar(rand.Reader)
	if err != nil {
		t.Fatalf("RandomScalar: %v", err)
	}
	poly, err := GeneratePolynomial(suite, rand.Reader, 3, secret)
	if err != nil {
		t.Fatalf("GeneratePolynomial: %v", err)
	}
	poly.Zeroize()
	if !secret.IsZero() {
		t.Fatalf("Polynomial.Zeroize did not clear the constant term's backing scalar")
	}
	if poly.Coefficients != nil {
		for _, c := range poly.Coefficients {
			if c != nil {
				t.Fatalf("Polynomial.Zeroize left a non-nil coefficient reference")
			}
		}
	}
}

func TestIdentifierOrderingTotal(t *testing.T) {
	suite := ed25519.New()
	a, _ := NewIdentifier(suite, 1)
	b, _ := NewIdentifier(suite, 2)
	c, _ := NewIdentifier(suite, 3)

	sorted := SortIdentifiers([]Identifier{c, a, b})
	if !sorted[0].Equal(a) || !sorted[1].Equal(b) || !sorted[2].Equal(c) {
		t.Fatalf("expected ascending order a,b,c")
	}
	if !a.Less(b) || !b.Less(c) || a.Less(a) {
		t.Fatalf("Less is not a strict total order")
	}
}

func TestNewIdentifierRejectsZero(t *testing.T) {
	suite := ed25519.New()
	if _, err := NewIdentifier(suite, 0); err == nil {
		t.Fatalf("expected error constructing identifier 0")
	}
}

func TestKeyPackageSerializationRoundTrip(t *testing.T) {
	suite := ed25519.New()
	id, err := NewIdentifier(suite, 7)
	if err != nil {
		t.Fatalf("NewIdentifier: %v", err)
	}
	secret, err := suite.RandomScalar(rand.Reader)
	if err != nil {
		t.Fatalf("RandomScalar: %v", err)
	}
	signingShare := NewSigningShare(suite, secret)
	verifyingShare := FromSigningShare(suite, signingShare)
	verifyingKey := NewVerifyingKey(suite, suite.ScalarBaseMul(secret))

	kp := &KeyPackage{
		Suite:          suite,
		Identifier:     id,
		SigningShare:   signingShare,
		VerifyingShare: verifyingShare,
		VerifyingKey:   verifyingKey,
		Threshold:      2,
		MaxSigners:     3,
	}

	enc, err := SerializeKeyPackage(kp)
	if err != nil {
		t.Fatalf("SerializeKeyPackage: %v", err)
	}
	got, err := DeserializeKeyPackage(suite, enc)
	if err != nil {
		t.Fatalf("DeserializeKeyPackage: %v", err)
	}

	if !got.Identifier.Equal(kp.Identifier) ||
		!got.SigningShare.Scalar().Equal(kp.SigningShare.Scalar()) ||
		!got.VerifyingShare.Equal(kp.VerifyingShare) ||
		!got.VerifyingKey.Equal(kp.VerifyingKey) ||
		got.Threshold != kp.Threshold || got.MaxSigners != kp.MaxSigners {
		t.Fatalf("round trip did not reproduce original KeyPackage")
	}
}

func TestDeserializeKeyPackageRejectsWrongCiphersuite(t *testing.T) {
	ed := ed25519.New()
	rp := redpallas.New()

	id, err := NewIdentifier(ed, 1)
	if err != nil {
		t.Fatalf("NewIdentifier: %v", err)
	}
	secret, err := ed.RandomScalar(rand.Reader)
	if err != nil {
		t.Fatalf("RandomScalar: %v", err)
	}
	signingShare := NewSigningShare(ed, secret)
	kp := &KeyPackage{
		Suite:          ed,
		Identifier:     id,
		SigningShare:   signingShare,
		VerifyingShare: FromSigningShare(ed, signingShare),
		VerifyingKey:   NewVerifyingKey(ed, ed.ScalarBaseMul(secret)),
		Threshold:      2,
		MaxSigners:     3,
	}
	enc, err := SerializeKeyPackage(kp)
	if err != nil {
		t.Fatalf("SerializeKeyPackage: %v", err)
	}

	_, err = DeserializeKeyPackage(rp, enc)
	if err == nil {
		t.Fatalf("expected WrongCiphersuite error decoding an Ed25519 package under RedPallas")
	}
}

func TestPublicKeyPackageSerializationRoundTrip(t *testing.T) {
	suite := ed25519.New()
	secret, err := suite.RandomScalar(rand.Reader)
	if err != nil {
		t.Fatalf("RandomScalar: %v", err)
	}
	vk := NewVerifyingKey(suite, suite.ScalarBaseMul(secret))

	shares := map[string]VerifyingShare{}
	for i := uint16(1); i <= 3; i++ {
		id, err := NewIdentifier(suite, i)
		if err != nil {
			t.Fatalf("NewIdentifier: %v", err)
		}
		s, err := suite.RandomScalar(rand.Reader)
		if err != nil {
			t.Fatalf("RandomScalar: %v", err)
		}
		shares[id.Hex()] = NewVerifyingShare(suite, suite.ScalarBaseMul(s))
	}

	pub := &PublicKeyPackage{
		Suite:           suite,
		VerifyingKey:    vk,
		VerifyingShares: shares,
		Threshold:       3,
	}

	enc, err := SerializePublicKeyPackage(pub)
	if err != nil {
		t.Fatalf("SerializePublicKeyPackage: %v", err)
	}
	got, err := DeserializePublicKeyPackage(suite, enc)
	if err != nil {
		t.Fatalf("DeserializePublicKeyPackage: %v", err)
	}

	if !got.VerifyingKey.Equal(pub.VerifyingKey) || got.Threshold != pub.Threshold {
		t.Fatalf("round trip mismatch on VerifyingKey/Threshold")
	}
	if len(got.VerifyingShares) != len(pub.VerifyingShares) {
		t.Fatalf("round trip lost verifying shares: got %d want %d", len(got.VerifyingShares), len(pub.VerifyingShares))
	}
	for hexID, want := range pub.VerifyingShares {
		gotShare, ok := got.VerifyingShares[hexID]
		if !ok || !gotShare.Equal(want) {
			t.Fatalf("verifying share for %s did not round trip", hexID)
		}
	}
}

// TestPublicKeyPackageSerializationIsDeterministic guards the
// byte-identical invariant (spec.md §3 invariant I3): encoding the
// same PublicKeyPackage twice, built from maps with different
// iteration orders, must produce identical bytes.
func TestPublicKeyPackageSerializationIsDeterministic(t *testing.T) {
	suite := ed25519.New()
	vk := NewVerifyingKey(suite, suite.ScalarBaseMul(suite.ScalarFromUint16(42)))

	ids := make([]Identifier, 0, 4)
	for i := uint16(1); i <= 4; i++ {
		id, err := NewIdentifier(suite, i)
		if err != nil {
			t.Fatalf("NewIdentifier: %v", err)
		}
		ids = append(ids, id)
	}

	build := func(order []int) *PublicKeyPackage {
		shares := map[string]VerifyingShare{}
		for _, i := range order {
			shares[ids[i].Hex()] = NewVerifyingShare(suite, suite.ScalarBaseMul(suite.ScalarFromUint16(uint16(i+1))))
		}
		return &PublicKeyPackage{Suite: suite, VerifyingKey: vk, VerifyingShares: shares, Threshold: 2}
	}

	a, err := SerializePublicKeyPackage(build([]int{0, 1, 2, 3}))
	if err != nil {
		t.Fatalf("SerializePublicKeyPackage: %v", err)
	}
	b, err := SerializePublicKeyPackage(build([]int{3, 2, 1, 0}))
	if err != nil {
		t.Fatalf("SerializePublicKeyPackage: %v", err)
	}
	if string(a) != string(b) {
		t.Fatalf("serialization is not deterministic across map iteration orders")
	}
}
