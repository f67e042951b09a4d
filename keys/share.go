package keys

import (
	"github.com/threshold-network/frost-relay/ciphersuite"
)

// SigningShare is a participant's share s_i of the joint secret. It
// must never be logged, compared non-constant-time, or serialized to
// a non-owner (spec.md §3). Zeroize must be called once the share's
// lifetime ends (operator-driven key destruction).
type SigningShare struct {
	suite ciphersuite.Suite
	value ciphersuite.Scalar
}

// NewSigningShare wraps a scalar as a SigningShare.
func NewSigningShare(suite ciphersuite.Suite, value ciphersuite.Scalar) SigningShare {
	return SigningShare{suite: suite, value: value}
}

// Scalar exposes the underlying scalar for use in protocol math. It
// is the caller's responsibility not to log or leak the result.
func (s SigningShare) Scalar() ciphersuite.Scalar { return s.value }

// Bytes returns the canonical serialization. Callers handling this
// value must treat it as secret.
func (s SigningShare) Bytes() []byte { return s.suite.SerializeScalar(s.value) }

// Zeroize overwrites the share's own backing storage in place via
// ciphersuite.Scalar.Zeroize, then drops the reference so the share
// cannot be used again.
func (s *SigningShare) Zeroize() {
	if s.value != nil {
		s.value.Zeroize()
	}
	s.value = nil
}

// VerifyingShare is the public image Y_i = s_i * B of a SigningShare.
type VerifyingShare struct {
	suite ciphersuite.Suite
	value ciphersuite.Element
}

// NewVerifyingShare wraps an element as a VerifyingShare.
func NewVerifyingShare(suite ciphersuite.Suite, value ciphersuite.Element) VerifyingShare {
	return VerifyingShare{suite: suite, value: value}
}

// FromSigningShare derives Y_i = s_i * B.
func FromSigningShare(suite ciphersuite.Suite, share SigningShare) VerifyingShare {
	return VerifyingShare{suite: suite, value: suite.ScalarBaseMul(share.value)}
}

func (v VerifyingShare) Element() ciphersuite.Element { return v.value }
func (v VerifyingShare) Bytes() []byte                { return v.suite.SerializeElement(v.value) }
func (v VerifyingShare) Equal(other VerifyingShare) bool {
	return v.value.Equal(other.value)
}

// VerifyingKey is the group's public key Y = s * B. By invariant I1 it
// equals the Lagrange-combined sum of any t VerifyingShares.
type VerifyingKey struct {
	suite ciphersuite.Suite
	value ciphersuite.Element
}

// NewVerifyingKey wraps an element as a VerifyingKey.
func NewVerifyingKey(suite ciphersuite.Suite, value ciphersuite.Element) VerifyingKey {
	return VerifyingKey{suite: suite, value: value}
}

func (v VerifyingKey) Element() ciphersuite.Element { return v.value }
func (v VerifyingKey) Bytes() []byte                { return v.suite.SerializeElement(v.value) }
func (v VerifyingKey) Equal(other VerifyingKey) bool {
	return v.value.Equal(other.value)
}

// Randomize returns Y + rho*B, the key rerandomized FROST signs under.
func (v VerifyingKey) Randomize(rho ciphersuite.Scalar) VerifyingKey {
	return VerifyingKey{suite: v.suite, value: v.suite.RandomizeVerifyingKey(v.value, rho)}
}
