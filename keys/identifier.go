// Package keys holds the FROST key material types — Identifier,
// SigningShare, VerifyingShare, VerifyingKey, KeyPackage,
// PublicKeyPackage — and the Shamir/Lagrange math they are built from.
// It generalizes the KeyShare/Participant shapes of
// f3rmion-fy/frost/dkg.go and f3rmion-fy/frost/frost.go off a single
// concrete group onto ciphersuite.Suite.
package keys

import (
	"bytes"
	"encoding/hex"

	"github.com/threshold-network/frost-relay/ciphersuite"
	"github.com/threshold-network/frost-relay/frosterr"
)

// Identifier is a nonzero scalar naming a participant within one
// group. Group sizes in this system are bounded by 255 (spec.md §8),
// so Identifier is usually constructed from a small integer, but the
// underlying value is a full scalar so it composes directly with
// Shamir/Lagrange arithmetic.
type Identifier struct {
	suite ciphersuite.Suite
	value ciphersuite.Scalar
}

// NewIdentifier builds an Identifier from a participant number. Zero is
// rejected since the identifier must be nonzero; every value from 1 to
// 65535 is accepted.
func NewIdentifier(suite ciphersuite.Suite, n uint16) (Identifier, error) {
	if n == 0 {
		return Identifier{}, frosterr.New(frosterr.InvalidArgument, "identifier must be nonzero")
	}
	return Identifier{suite: suite, value: suite.ScalarFromUint16(n)}, nil
}

// IdentifierFromScalar wraps an already-validated nonzero scalar.
func IdentifierFromScalar(suite ciphersuite.Suite, s ciphersuite.Scalar) (Identifier, error) {
	if s.IsZero() {
		return Identifier{}, frosterr.New(frosterr.InvalidArgument, "identifier must be nonzero")
	}
	return Identifier{suite: suite, value: s}, nil
}

// Scalar returns the identifier's underlying scalar value.
func (id Identifier) Scalar() ciphersuite.Scalar { return id.value }

// Bytes returns the canonical serialization of the identifier.
func (id Identifier) Bytes() []byte { return id.suite.SerializeScalar(id.value) }

// Hex returns a hex string suitable for use as a map key or log field.
func (id Identifier) Hex() string { return hex.EncodeToString(id.Bytes()) }

// Equal reports whether two identifiers name the same participant.
func (id Identifier) Equal(other Identifier) bool { return id.value.Equal(other.value) }

// Less gives Identifier a total order for deterministic sorting of
// commitment/share lists (spec.md requires commitment lists sorted in
// ascending order by identifier).
func (id Identifier) Less(other Identifier) bool {
	return bytes.Compare(id.Bytes(), other.Bytes()) < 0
}

// SortIdentifiers returns a new, ascending-sorted copy of ids.
func SortIdentifiers(ids []Identifier) []Identifier {
	out := make([]Identifier, len(ids))
	copy(out, ids)
	for i := 1; i < len(out); i++ {
		for j := i; j > 0 && out[j].Less(out[j-1]); j-- {
			out[j], out[j-1] = out[j-1], out[j]
		}
	}
	return out
}
