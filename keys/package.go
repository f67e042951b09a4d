package keys

import (
	"sort"

	"github.com/fxamacker/cbor/v2"

	"github.com/threshold-network/frost-relay/ciphersuite"
	"github.com/threshold-network/frost-relay/frosterr"
)

// KeyPackage is one participant's private output of the Trusted Dealer
// or DKG: their signing share plus the public material (their own
// verifying share and the group verifying key) needed to take part in
// signing without further lookups. Analogous to f3rmion-fy/frost's
// Participant, generalized onto ciphersuite.Suite and given a stable
// wire encoding.
type KeyPackage struct {
	Suite          ciphersuite.Suite
	Identifier     Identifier
	SigningShare   SigningShare
	VerifyingShare VerifyingShare
	VerifyingKey   VerifyingKey
	Threshold      int
	MaxSigners     int
}

// PublicKeyPackage is the public output shared with every participant
// and with the coordinator: the group verifying key and every
// participant's verifying share, used to check signature shares and
// the final aggregate without access to any secret.
type PublicKeyPackage struct {
	Suite           ciphersuite.Suite
	VerifyingKey    VerifyingKey
	VerifyingShares map[string]VerifyingShare // keyed by Identifier.Hex()
	Threshold       int
}

// wireKeyPackage is the CBOR-serializable shadow of KeyPackage.
// ciphersuite.Scalar/Element are interfaces backed by suite-specific
// concrete types that cbor cannot encode directly, so every field is
// flattened to its canonical byte encoding alongside an explicit
// SuiteID tag; Deserialize then re-hydrates each field through the
// caller-supplied Suite.
type wireKeyPackage struct {
	SuiteID        ciphersuite.ID
	Identifier     []byte
	SigningShare   []byte
	VerifyingShare []byte
	VerifyingKey   []byte
	Threshold      int
	MaxSigners     int
}

type wireVerifyingShareEntry struct {
	Identifier []byte
	Share      []byte
}

type wirePublicKeyPackage struct {
	SuiteID         ciphersuite.ID
	VerifyingKey    []byte
	VerifyingShares []wireVerifyingShareEntry
	Threshold       int
}

// SerializeKeyPackage encodes kp to CBOR, tagged with its ciphersuite
// ID so DeserializeKeyPackage can reject cross-suite decoding attempts.
func SerializeKeyPackage(kp *KeyPackage) ([]byte, error) {
	w := wireKeyPackage{
		SuiteID:        kp.Suite.ID(),
		Identifier:     kp.Identifier.Bytes(),
		SigningShare:   kp.SigningShare.Bytes(),
		VerifyingShare: kp.VerifyingShare.Bytes(),
		VerifyingKey:   kp.VerifyingKey.Bytes(),
		Threshold:      kp.Threshold,
		MaxSigners:     kp.MaxSigners,
	}
	b, err := cbor.Marshal(w)
	if err != nil {
		return nil, frosterr.Wrap(frosterr.MalformedEncoding, err, "encode key package")
	}
	return b, nil
}

// DeserializeKeyPackage decodes data under the given suite, rejecting
// the decode with ciphersuite.ErrWrongCiphersuite if the stored tag
// does not match suite.ID() (spec.md §8 testable property 5).
func DeserializeKeyPackage(suite ciphersuite.Suite, data []byte) (*KeyPackage, error) {
	var w wireKeyPackage
	if err := cbor.Unmarshal(data, &w); err != nil {
		return nil, frosterr.Wrap(frosterr.MalformedEncoding, err, "decode key package")
	}
	if w.SuiteID != suite.ID() {
		return nil, ciphersuite.ErrWrongCiphersuite(suite.ID(), w.SuiteID)
	}

	idScalar, err := suite.DeserializeScalar(w.Identifier)
	if err != nil {
		return nil, frosterr.Wrap(frosterr.MalformedEncoding, err, "decode identifier")
	}
	id, err := IdentifierFromScalar(suite, idScalar)
	if err != nil {
		return nil, err
	}

	ssScalar, err := suite.DeserializeScalar(w.SigningShare)
	if err != nil {
		return nil, frosterr.Wrap(frosterr.MalformedEncoding, err, "decode signing share")
	}
	vsElem, err := suite.DeserializeElement(w.VerifyingShare)
	if err != nil {
		return nil, frosterr.Wrap(frosterr.MalformedEncoding, err, "decode verifying share")
	}
	vkElem, err := suite.DeserializeElement(w.VerifyingKey)
	if err != nil {
		return nil, frosterr.Wrap(frosterr.MalformedEncoding, err, "decode verifying key")
	}

	return &KeyPackage{
		Suite:          suite,
		Identifier:     id,
		SigningShare:   NewSigningShare(suite, ssScalar),
		VerifyingShare: NewVerifyingShare(suite, vsElem),
		VerifyingKey:   NewVerifyingKey(suite, vkElem),
		Threshold:      w.Threshold,
		MaxSigners:     w.MaxSigners,
	}, nil
}

// SerializePublicKeyPackage encodes pkg to CBOR, tagged with its
// ciphersuite ID.
func SerializePublicKeyPackage(pkg *PublicKeyPackage) ([]byte, error) {
	w := wirePublicKeyPackage{
		SuiteID:      pkg.Suite.ID(),
		VerifyingKey: pkg.VerifyingKey.Bytes(),
		Threshold:    pkg.Threshold,
	}
	for hexID, share := range pkg.VerifyingShares {
		w.VerifyingShares = append(w.VerifyingShares, wireVerifyingShareEntry{
			Identifier: []byte(hexID),
			Share:      share.Bytes(),
		})
	}
	// Deterministic ordering: every honest DKG participant must produce
	// bit-identical PublicKeyPackage encodings (spec.md §3 invariant),
	// which a map-iteration-order-dependent encoding would violate.
	sort.Slice(w.VerifyingShares, func(i, j int) bool {
		return string(w.VerifyingShares[i].Identifier) < string(w.VerifyingShares[j].Identifier)
	})
	b, err := cbor.Marshal(w)
	if err != nil {
		return nil, frosterr.Wrap(frosterr.MalformedEncoding, err, "encode public key package")
	}
	return b, nil
}

// DeserializePublicKeyPackage decodes data under the given suite,
// rejecting a mismatched ciphersuite tag the same way
// DeserializeKeyPackage does.
func DeserializePublicKeyPackage(suite ciphersuite.Suite, data []byte) (*PublicKeyPackage, error) {
	var w wirePublicKeyPackage
	if err := cbor.Unmarshal(data, &w); err != nil {
		return nil, frosterr.Wrap(frosterr.MalformedEncoding, err, "decode public key package")
	}
	if w.SuiteID != suite.ID() {
		return nil, ciphersuite.ErrWrongCiphersuite(suite.ID(), w.SuiteID)
	}

	vkElem, err := suite.DeserializeElement(w.VerifyingKey)
	if err != nil {
		return nil, frosterr.Wrap(frosterr.MalformedEncoding, err, "decode verifying key")
	}

	shares := make(map[string]VerifyingShare, len(w.VerifyingShares))
	for _, entry := range w.VerifyingShares {
		elem, err := suite.DeserializeElement(entry.Share)
		if err != nil {
			return nil, frosterr.Wrap(frosterr.MalformedEncoding, err, "decode verifying share for %s", entry.Identifier)
		}
		shares[string(entry.Identifier)] = NewVerifyingShare(suite, elem)
	}

	return &PublicKeyPackage{
		Suite:           suite,
		VerifyingKey:    NewVerifyingKey(suite, vkElem),
		VerifyingShares: shares,
		Threshold:       w.Threshold,
	}, nil
}

// VerifyingShareFor looks up a participant's verifying share by
// Identifier, returning frosterr.UnknownIdentifier if absent.
func (pkg *PublicKeyPackage) VerifyingShareFor(id Identifier) (VerifyingShare, error) {
	share, ok := pkg.VerifyingShares[id.Hex()]
	if !ok {
		return VerifyingShare{}, frosterr.WithOffender(frosterr.UnknownIdentifier, id.Hex(), "no verifying share for identifier")
	}
	return share, nil
}
