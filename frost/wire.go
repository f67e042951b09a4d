package frost

import (
	"github.com/fxamacker/cbor/v2"

	"github.com/threshold-network/frost-relay/ciphersuite"
	"github.com/threshold-network/frost-relay/frosterr"
	"github.com/threshold-network/frost-relay/keys"
)

// Wire shadows for the signing-round messages, flattening the
// interface-typed Scalar/Element fields the same way
// keys/package.go and dkg/wire.go do, so a coordinator/participant
// orchestrator can carry these over the relayserver transport (C6/C7)
// without either side reaching into package internals.

type wireSigningCommitments struct {
	Identifier []byte
	Hiding     []byte
	Binding    []byte
}

// SerializeSigningCommitments encodes a participant's Round 1 output
// for transport to the coordinator.
func SerializeSigningCommitments(suite ciphersuite.Suite, c SigningCommitments) ([]byte, error) {
	w := wireSigningCommitments{
		Identifier: c.Identifier.Bytes(),
		Hiding:     suite.SerializeElement(c.Hiding),
		Binding:    suite.SerializeElement(c.Binding),
	}
	b, err := cbor.Marshal(w)
	if err != nil {
		return nil, frosterr.Wrap(frosterr.MalformedEncoding, err, "encode signing commitments")
	}
	return b, nil
}

// DeserializeSigningCommitments decodes a message produced by
// SerializeSigningCommitments.
func DeserializeSigningCommitments(suite ciphersuite.Suite, data []byte) (SigningCommitments, error) {
	var w wireSigningCommitments
	if err := cbor.Unmarshal(data, &w); err != nil {
		return SigningCommitments{}, frosterr.Wrap(frosterr.MalformedEncoding, err, "decode signing commitments")
	}
	idScalar, err := suite.DeserializeScalar(w.Identifier)
	if err != nil {
		return SigningCommitments{}, frosterr.Wrap(frosterr.MalformedEncoding, err, "decode commitment identifier")
	}
	id, err := keys.IdentifierFromScalar(suite, idScalar)
	if err != nil {
		return SigningCommitments{}, err
	}
	hiding, err := suite.DeserializeElement(w.Hiding)
	if err != nil {
		return SigningCommitments{}, frosterr.Wrap(frosterr.MalformedEncoding, err, "decode commitment hiding")
	}
	binding, err := suite.DeserializeElement(w.Binding)
	if err != nil {
		return SigningCommitments{}, frosterr.Wrap(frosterr.MalformedEncoding, err, "decode commitment binding")
	}
	return SigningCommitments{Identifier: id, Hiding: hiding, Binding: binding}, nil
}

type wireSigningPackage struct {
	Message     []byte
	Commitments []wireSigningCommitments
	Randomizer  []byte // empty when not a rerandomized attempt
}

// SerializeSigningPackage encodes the coordinator's frozen
// SigningPackage for distribution to every signer.
func SerializeSigningPackage(suite ciphersuite.Suite, pkg SigningPackage) ([]byte, error) {
	w := wireSigningPackage{Message: pkg.Message}
	for _, c := range pkg.Commitments {
		w.Commitments = append(w.Commitments, wireSigningCommitments{
			Identifier: c.Identifier.Bytes(),
			Hiding:     suite.SerializeElement(c.Hiding),
			Binding:    suite.SerializeElement(c.Binding),
		})
	}
	if pkg.Randomizer != nil {
		w.Randomizer = suite.SerializeScalar(pkg.Randomizer)
	}
	b, err := cbor.Marshal(w)
	if err != nil {
		return nil, frosterr.Wrap(frosterr.MalformedEncoding, err, "encode signing package")
	}
	return b, nil
}

// DeserializeSigningPackage decodes a message produced by
// SerializeSigningPackage.
func DeserializeSigningPackage(suite ciphersuite.Suite, data []byte) (SigningPackage, error) {
	var w wireSigningPackage
	if err := cbor.Unmarshal(data, &w); err != nil {
		return SigningPackage{}, frosterr.Wrap(frosterr.MalformedEncoding, err, "decode signing package")
	}
	pkg := SigningPackage{Message: w.Message}
	for i, c := range w.Commitments {
		idScalar, err := suite.DeserializeScalar(c.Identifier)
		if err != nil {
			return SigningPackage{}, frosterr.Wrap(frosterr.MalformedEncoding, err, "decode package commitment %d identifier", i)
		}
		id, err := keys.IdentifierFromScalar(suite, idScalar)
		if err != nil {
			return SigningPackage{}, err
		}
		hiding, err := suite.DeserializeElement(c.Hiding)
		if err != nil {
			return SigningPackage{}, frosterr.Wrap(frosterr.MalformedEncoding, err, "decode package commitment %d hiding", i)
		}
		binding, err := suite.DeserializeElement(c.Binding)
		if err != nil {
			return SigningPackage{}, frosterr.Wrap(frosterr.MalformedEncoding, err, "decode package commitment %d binding", i)
		}
		pkg.Commitments = append(pkg.Commitments, SigningCommitments{Identifier: id, Hiding: hiding, Binding: binding})
	}
	if len(w.Randomizer) > 0 {
		rho, err := suite.DeserializeScalar(w.Randomizer)
		if err != nil {
			return SigningPackage{}, frosterr.Wrap(frosterr.MalformedEncoding, err, "decode package randomizer")
		}
		pkg.Randomizer = rho
	}
	return pkg, nil
}

type wireSignatureShare struct {
	Identifier []byte
	Share      []byte
}

// SerializeSignatureShare encodes a signer's Round 2 output for
// transport back to the coordinator.
func SerializeSignatureShare(suite ciphersuite.Suite, s SignatureShare) ([]byte, error) {
	w := wireSignatureShare{Identifier: s.Identifier.Bytes(), Share: suite.SerializeScalar(s.Share)}
	b, err := cbor.Marshal(w)
	if err != nil {
		return nil, frosterr.Wrap(frosterr.MalformedEncoding, err, "encode signature share")
	}
	return b, nil
}

// DeserializeSignatureShare decodes a message produced by
// SerializeSignatureShare.
func DeserializeSignatureShare(suite ciphersuite.Suite, data []byte) (SignatureShare, error) {
	var w wireSignatureShare
	if err := cbor.Unmarshal(data, &w); err != nil {
		return SignatureShare{}, frosterr.Wrap(frosterr.MalformedEncoding, err, "decode signature share")
	}
	idScalar, err := suite.DeserializeScalar(w.Identifier)
	if err != nil {
		return SignatureShare{}, frosterr.Wrap(frosterr.MalformedEncoding, err, "decode share identifier")
	}
	id, err := keys.IdentifierFromScalar(suite, idScalar)
	if err != nil {
		return SignatureShare{}, err
	}
	share, err := suite.DeserializeScalar(w.Share)
	if err != nil {
		return SignatureShare{}, frosterr.Wrap(frosterr.MalformedEncoding, err, "decode share value")
	}
	return SignatureShare{Identifier: id, Share: share}, nil
}

type wireSignature struct {
	R []byte
	Z []byte
}

// SerializeSignature encodes the final aggregated Signature, e.g. for
// writing to an output file.
func SerializeSignature(suite ciphersuite.Suite, sig Signature) ([]byte, error) {
	w := wireSignature{R: suite.SerializeElement(sig.R), Z: suite.SerializeScalar(sig.Z)}
	b, err := cbor.Marshal(w)
	if err != nil {
		return nil, frosterr.Wrap(frosterr.MalformedEncoding, err, "encode signature")
	}
	return b, nil
}

// DeserializeSignature decodes a message produced by
// SerializeSignature.
func DeserializeSignature(suite ciphersuite.Suite, data []byte) (Signature, error) {
	var w wireSignature
	if err := cbor.Unmarshal(data, &w); err != nil {
		return Signature{}, frosterr.Wrap(frosterr.MalformedEncoding, err, "decode signature")
	}
	r, err := suite.DeserializeElement(w.R)
	if err != nil {
		return Signature{}, frosterr.Wrap(frosterr.MalformedEncoding, err, "decode signature R")
	}
	z, err := suite.DeserializeScalar(w.Z)
	if err != nil {
		return Signature{}, frosterr.Wrap(frosterr.MalformedEncoding, err, "decode signature Z")
	}
	return Signature{R: r, Z: z}, nil
}
