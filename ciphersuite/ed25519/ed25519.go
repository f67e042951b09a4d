// Package ed25519 implements the FROST(Ed25519, SHA-512) ciphersuite
// (RFC 9591 section 6.3) on top of filippo.io/edwards25519, generalizing
// the ciphersuite shape of
// threshold-network-roast-go/frost/bip340.go (a math/big, Weierstrass
// ciphersuite) onto a twisted-Edwards group with its own native scalar
// and point types.
package ed25519

import (
	"crypto/sha512"
	"fmt"

	"filippo.io/edwards25519"

	"github.com/threshold-network/frost-relay/ciphersuite"
	"github.com/threshold-network/frost-relay/frosterr"
)

const contextString = "FROST-ED25519-SHA512-v1"

// Suite is the FROST(Ed25519, SHA-512) ciphersuite.
type Suite struct{}

// New returns the Ed25519 ciphersuite.
func New() *Suite { return &Suite{} }

func init() {
	ciphersuite.Register(ciphersuite.Ed25519, New())
}

func (Suite) ID() ciphersuite.ID { return ciphersuite.Ed25519 }

// scalar wraps *edwards25519.Scalar to satisfy ciphersuite.Scalar.
type scalar struct{ s *edwards25519.Scalar }

// element wraps *edwards25519.Point to satisfy ciphersuite.Element.
type element struct{ p *edwards25519.Point }

func wrapScalar(s *edwards25519.Scalar) scalar { return scalar{s} }
func wrapElement(p *edwards25519.Point) element { return element{p} }

func (s scalar) Bytes() []byte { return s.s.Bytes() }

func (s scalar) Equal(other ciphersuite.Scalar) bool {
	o, ok := other.(scalar)
	if !ok {
		return false
	}
	return s.s.Equal(o.s) == 1
}

func (s scalar) IsZero() bool {
	zero := edwards25519.NewScalar()
	return s.s.Equal(zero) == 1
}

func (s scalar) Add(other ciphersuite.Scalar) ciphersuite.Scalar {
	o := other.(scalar)
	return wrapScalar(edwards25519.NewScalar().Add(s.s, o.s))
}

func (s scalar) Sub(other ciphersuite.Scalar) ciphersuite.Scalar {
	o := other.(scalar)
	return wrapScalar(edwards25519.NewScalar().Subtract(s.s, o.s))
}

func (s scalar) Mul(other ciphersuite.Scalar) ciphersuite.Scalar {
	o := other.(scalar)
	return wrapScalar(edwards25519.NewScalar().Multiply(s.s, o.s))
}

func (s scalar) Invert() ciphersuite.Scalar {
	if s.IsZero() {
		panic("ed25519: Invert called on zero scalar")
	}
	return wrapScalar(edwards25519.NewScalar().Invert(s.s))
}

// Zeroize overwrites the underlying *edwards25519.Scalar's own limbs in
// place by re-setting it from an all-zero canonical encoding (the
// canonical encoding of the scalar 0), rather than zeroizing a
// throwaway copy obtained via Bytes.
func (s scalar) Zeroize() {
	var zero [32]byte
	if _, err := s.s.SetCanonicalBytes(zero[:]); err != nil {
		panic(fmt.Sprintf("ed25519: unreachable zeroize failure: %v", err))
	}
}

func (e element) Bytes() []byte { return e.p.Bytes() }

func (e element) Equal(other ciphersuite.Element) bool {
	o, ok := other.(element)
	if !ok {
		return false
	}
	return e.p.Equal(o.p) == 1
}

func (e element) Add(other ciphersuite.Element) ciphersuite.Element {
	o := other.(element)
	return wrapElement(edwards25519.NewIdentityPoint().Add(e.p, o.p))
}

func (e element) Mul(s ciphersuite.Scalar) ciphersuite.Element {
	return wrapElement(edwards25519.NewIdentityPoint().ScalarMult(s.(scalar).s, e.p))
}

func (e element) IsIdentity() bool {
	return e.p.Equal(edwards25519.NewIdentityPoint()) == 1
}

func (Suite) ScalarBaseMul(s ciphersuite.Scalar) ciphersuite.Element {
	return wrapElement(edwards25519.NewIdentityPoint().ScalarBaseMult(s.(scalar).s))
}

func (Suite) RandomScalar(rnd ciphersuite.RandReader) (ciphersuite.Scalar, error) {
	for {
		buf := make([]byte, 64)
		if _, err := rnd.Read(buf); err != nil {
			return nil, err
		}
		s, err := edwards25519.NewScalar().SetUniformBytes(buf)
		if err != nil {
			return nil, err
		}
		if wrapScalar(s).IsZero() {
			continue
		}
		return wrapScalar(s), nil
	}
}

func (Suite) ScalarFromUint16(v uint16) ciphersuite.Scalar {
	buf := make([]byte, 32)
	buf[0] = byte(v)
	buf[1] = byte(v >> 8)
	s, err := edwards25519.NewScalar().SetCanonicalBytes(buf)
	if err != nil {
		// v < 2^16 is always < group order for Ed25519; unreachable.
		panic(err)
	}
	return wrapScalar(s)
}

func (Suite) SerializeScalar(s ciphersuite.Scalar) []byte {
	return s.(scalar).s.Bytes()
}

func (Suite) DeserializeScalar(b []byte) (ciphersuite.Scalar, error) {
	if len(b) != 32 {
		return nil, frosterr.New(frosterr.MalformedEncoding, "ed25519 scalar must be 32 bytes, got %d", len(b))
	}
	s, err := edwards25519.NewScalar().SetCanonicalBytes(b)
	if err != nil {
		return nil, frosterr.Wrap(frosterr.NonCanonicalScalar, err, "non-canonical ed25519 scalar encoding")
	}
	return wrapScalar(s), nil
}

func (Suite) SerializeElement(e ciphersuite.Element) []byte {
	return e.(element).p.Bytes()
}

func (Suite) DeserializeElement(b []byte) (ciphersuite.Element, error) {
	if len(b) != 32 {
		return nil, frosterr.New(frosterr.MalformedEncoding, "ed25519 element must be 32 bytes, got %d", len(b))
	}
	p, err := edwards25519.NewIdentityPoint().SetBytes(b)
	if err != nil {
		return nil, frosterr.Wrap(frosterr.NonCanonicalElement, err, "non-canonical ed25519 point encoding")
	}
	el := wrapElement(p)
	if el.IsIdentity() {
		return nil, frosterr.New(frosterr.IdentityElement, "ed25519 element is the identity")
	}
	return el, nil
}

func (Suite) IdentityElement() ciphersuite.Element {
	return wrapElement(edwards25519.NewIdentityPoint())
}

func hashToScalar(tag string, msgs ...[]byte) scalar {
	h := sha512.New()
	h.Write([]byte(contextString))
	h.Write([]byte(tag))
	for _, m := range msgs {
		h.Write(m)
	}
	sum := h.Sum(nil)
	s, err := edwards25519.NewScalar().SetUniformBytes(sum)
	if err != nil {
		panic(fmt.Sprintf("ed25519: unreachable uniform-bytes failure: %v", err))
	}
	return wrapScalar(s)
}

func hashRaw(tag string, msgs ...[]byte) []byte {
	h := sha512.New()
	h.Write([]byte(contextString))
	h.Write([]byte(tag))
	for _, m := range msgs {
		h.Write(m)
	}
	return h.Sum(nil)
}

func (Suite) H1(msg []byte) ciphersuite.Scalar { return hashToScalar("rho", msg) }

// H2 is the RFC 9591 challenge hash for this suite: SHA-512 over the
// inputs alone, with no context string or tag, so that the resulting
// signatures verify as plain Ed25519 signatures.
func (Suite) H2(msg ...[]byte) ciphersuite.Scalar {
	h := sha512.New()
	for _, m := range msg {
		h.Write(m)
	}
	s, err := edwards25519.NewScalar().SetUniformBytes(h.Sum(nil))
	if err != nil {
		panic(fmt.Sprintf("ed25519: unreachable uniform-bytes failure: %v", err))
	}
	return wrapScalar(s)
}

func (Suite) H3(msg ...[]byte) ciphersuite.Scalar { return hashToScalar("nonce", msg...) }

func (Suite) H4(msg []byte) []byte { return hashRaw("msg", msg) }

func (Suite) H5(msg []byte) []byte { return hashRaw("com", msg) }

func (s Suite) Challenge(R, Y ciphersuite.Element, msg []byte) ciphersuite.Scalar {
	return s.H2(s.SerializeElement(R), s.SerializeElement(Y), msg)
}

func (s Suite) RandomizeVerifyingKey(y ciphersuite.Element, rho ciphersuite.Scalar) ciphersuite.Element {
	return y.Add(s.ScalarBaseMul(rho))
}

// RandomizeSigningShare implements the FROST-Ed25519 rerandomized
// variant used for Sapling-style shielded signing: the randomizer is
// added, pre-divided by the Lagrange coefficient, to exactly one
// signer's effective share so that summing lambda_i*share~_i over the
// signer set reproduces s + rho. This rule is specific to Ed25519's
// rerandomization scheme and must not be reused for RedPallas.
func (Suite) RandomizeSigningShare(lambda, share, rho ciphersuite.Scalar, isFirstSigner bool) ciphersuite.Scalar {
	if !isFirstSigner {
		return share
	}
	rhoOverLambda := rho.Mul(lambda.Invert())
	return share.Add(rhoOverLambda)
}
