// Package ciphersuite abstracts the algebraic operations [FROST] needs
// behind a single interface so that protocol code (dealer, dkg, frost,
// coordinator) never branches on which prime-order group is in use.
//
// [FROST]
//
//	Connolly, D., Komlo, C., Goldberg, I., and C. A. Wood, "Two-Round
//	Threshold Schnorr Signatures with FROST", Work in Progress,
//	Internet-Draft, draft-irtf-cfrg-frost-15, 5 December 2023.
package ciphersuite

import "github.com/threshold-network/frost-relay/frosterr"

// ID tags a ciphersuite for on-disk/wire serialization so that
// deserializing a KeyPackage under the wrong ciphersuite parser is
// rejected rather than silently misinterpreted.
type ID uint8

const (
	// Unknown is the zero value and never a valid, serialized ID.
	Unknown ID = iota
	// Ed25519 identifies FROST(Ed25519, SHA-512).
	Ed25519
	// RedPallas identifies the RedPallas ciphersuite used by Zcash
	// Orchard/Sapling rerandomized FROST.
	RedPallas
)

func (id ID) String() string {
	switch id {
	case Ed25519:
		return "ed25519"
	case RedPallas:
		return "redpallas"
	default:
		return "unknown"
	}
}

// Scalar is a field element of the group's scalar field, i.e. an
// integer modulo the group order q. Implementations must provide
// constant-time equality.
type Scalar interface {
	// Bytes returns the canonical little- or big-endian encoding used
	// by this ciphersuite (the ciphersuite, not the caller, decides
	// the endianness; callers must not assume one across suites).
	Bytes() []byte
	// Equal reports whether two scalars are the same field element,
	// in constant time with respect to the values (not the types).
	Equal(other Scalar) bool
	// IsZero reports whether the scalar is the additive identity.
	IsZero() bool
	// Add, Sub, Mul return freshly allocated results; receivers are
	// never mutated.
	Add(other Scalar) Scalar
	Sub(other Scalar) Scalar
	Mul(other Scalar) Scalar
	// Invert returns the multiplicative inverse. Panics on the zero
	// scalar; callers must check IsZero first.
	Invert() Scalar
	// Zeroize overwrites the scalar's own backing storage with zeros in
	// place (not a copy obtained via Bytes), and leaves the receiver
	// reading as the zero scalar. Required for every holder of secret
	// material (spec.md §9): a SerializeScalar copy zeroized afterward
	// does not erase the original, still-referenced representation.
	Zeroize()
}

// Element is a point of the prime-order group.
type Element interface {
	// Bytes returns the canonical compressed encoding of the element.
	Bytes() []byte
	Equal(other Element) bool
	Add(other Element) Element
	// Mul returns scalar*element.
	Mul(scalar Scalar) Element
	// IsIdentity reports whether this is the group identity element.
	IsIdentity() bool
}

// Suite is the capability set every ciphersuite-parametric algorithm in
// this module threads as an explicit parameter. Adding a third suite
// means implementing this interface; it must never require touching
// dealer/dkg/frost/coordinator code.
type Suite interface {
	ID() ID

	// ScalarBaseMul returns scalar*B where B is the suite's generator.
	ScalarBaseMul(s Scalar) Element

	// RandomScalar draws a uniform nonzero scalar using the provided
	// entropy source.
	RandomScalar(rnd RandReader) (Scalar, error)

	// ScalarFromUint16 maps a small positive integer (a participant
	// Identifier) onto a scalar. Used pervasively since group sizes in
	// this system are bounded by 255 per spec.
	ScalarFromUint16(v uint16) Scalar

	// SerializeScalar / DeserializeScalar implement the canonical,
	// fixed-length encoding required by RFC 9591. DeserializeScalar
	// rejects any encoding that is not the unique canonical one, or
	// that represents a value >= the group order.
	SerializeScalar(s Scalar) []byte
	DeserializeScalar(b []byte) (Scalar, error)

	// SerializeElement / DeserializeElement. DeserializeElement
	// rejects the identity element and non-canonical encodings.
	SerializeElement(e Element) []byte
	DeserializeElement(b []byte) (Element, error)

	// IdentityElement returns the group identity (used as an
	// accumulator seed; never returned by DeserializeElement).
	IdentityElement() Element

	// H1 computes the binding-factor input hash (rho).
	H1(msg []byte) Scalar
	// H2 computes the Schnorr challenge hash.
	H2(msg ...[]byte) Scalar
	// H3 computes the nonce-generation / proof-of-knowledge hash.
	H3(msg ...[]byte) Scalar
	// H4 computes the message-commitment hash used in binding factors.
	H4(msg []byte) []byte
	// H5 computes the group-commitment-list hash used in binding
	// factors.
	H5(msg []byte) []byte

	// Challenge computes the Schnorr challenge c = H2(R || Y || msg)
	// using this suite's domain separation and point encoding rules
	// (which, for some suites, differ from SerializeElement).
	Challenge(R, Y Element, msg []byte) Scalar

	// RandomizeVerifyingKey returns Y + rho*B, the group public key
	// shifted by randomizer rho, as used by rerandomized FROST.
	RandomizeVerifyingKey(y Element, rho Scalar) Element

	// RandomizeSigningShare adjusts a signer's effective share so
	// that it is consistent with RandomizeVerifyingKey. The exact
	// rule is suite-specific and MUST NOT be inferred from another
	// suite (spec Open Question); each suite implements its own.
	RandomizeSigningShare(lambda, share Scalar, rho Scalar, isFirstSigner bool) Scalar
}

// RandReader is the minimal entropy source Suite implementations
// require; satisfied by crypto/rand.Reader.
type RandReader interface {
	Read(p []byte) (n int, err error)
}

// ErrWrongCiphersuite is returned by deserializers of higher-level
// types (KeyPackage, PublicKeyPackage, ...) when the encoded
// ciphersuite tag does not match the parser's suite.
func ErrWrongCiphersuite(want, got ID) error {
	return frosterr.New(frosterr.WrongCiphersuite, "expected ciphersuite %s, got %s", want, got)
}
