// Package frosterr defines the tagged error kinds surfaced across the
// FROST core (ciphersuite, keys, dealer, dkg, frost, coordinator,
// relayserver). Callers branch on the Code values below, read back
// with CodeOf, rather than matching error strings.
package frosterr

import (
	"errors"
	"fmt"
)

// Code identifies a kind of failure, grouped the way spec.md groups
// them: config/input, serialization, DKG, signing, transport.
type Code int

const (
	_ Code = iota

	// Config / input.
	InvalidThreshold
	InvalidArgument
	UnknownIdentifier
	DuplicateIdentifier

	// Serialization.
	MalformedEncoding
	WrongCiphersuite
	NonCanonicalScalar
	NonCanonicalElement
	IdentityElement

	// DKG.
	InvalidProofOfKnowledge
	InvalidShare
	InconsistentPublicKeyPackage

	// Signing.
	NonceReuse
	MissingCommitments
	InvalidSigningPackage
	InvalidSignatureShare
	InvalidAggregate

	// Transport.
	Unauthorized
	NotFound
	NotAMember
	SessionExpired
	UnauthenticatedPeer
	NetworkFailure
)

func (c Code) String() string {
	switch c {
	case InvalidThreshold:
		return "InvalidThreshold"
	case InvalidArgument:
		return "InvalidArgument"
	case UnknownIdentifier:
		return "UnknownIdentifier"
	case DuplicateIdentifier:
		return "DuplicateIdentifier"
	case MalformedEncoding:
		return "MalformedEncoding"
	case WrongCiphersuite:
		return "WrongCiphersuite"
	case NonCanonicalScalar:
		return "NonCanonicalScalar"
	case NonCanonicalElement:
		return "NonCanonicalElement"
	case IdentityElement:
		return "IdentityElement"
	case InvalidProofOfKnowledge:
		return "InvalidProofOfKnowledge"
	case InvalidShare:
		return "InvalidShare"
	case InconsistentPublicKeyPackage:
		return "InconsistentPublicKeyPackage"
	case NonceReuse:
		return "NonceReuse"
	case MissingCommitments:
		return "MissingCommitments"
	case InvalidSigningPackage:
		return "InvalidSigningPackage"
	case InvalidSignatureShare:
		return "InvalidSignatureShare"
	case InvalidAggregate:
		return "InvalidAggregate"
	case Unauthorized:
		return "Unauthorized"
	case NotFound:
		return "NotFound"
	case NotAMember:
		return "NotAMember"
	case SessionExpired:
		return "SessionExpired"
	case UnauthenticatedPeer:
		return "UnauthenticatedPeer"
	case NetworkFailure:
		return "NetworkFailure"
	default:
		return "Unknown"
	}
}

// Error is the concrete error type returned across the module. It
// optionally names the offending participant Identifier, as several
// error kinds (InvalidProofOfKnowledge(id), InvalidShare(id),
// InvalidSignatureShare(i)) require attributing the failure to one
// party.
type Error struct {
	Code    Code
	Offender string // hex-encoded identifier, empty if not applicable
	msg     string
	wrapped error
}

func (e *Error) Error() string {
	if e.Offender != "" {
		return fmt.Sprintf("%s(%s): %s", e.Code, e.Offender, e.msg)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.msg)
}

func (e *Error) Unwrap() error { return e.wrapped }

// Is reports equality by Code, so errors.Is(err, frosterr.New(InvalidShare, ""))
// matches any InvalidShare error; the simpler form is
// CodeOf(err) returning frosterr.InvalidShare.
func (e *Error) Is(target error) bool {
	var other *Error
	if errors.As(target, &other) {
		return e.Code == other.Code
	}
	return false
}

// New builds an Error of the given code with a formatted message.
func New(code Code, format string, args ...any) error {
	return &Error{Code: code, msg: fmt.Sprintf(format, args...)}
}

// WithOffender builds an Error naming the offending participant.
func WithOffender(code Code, offender string, format string, args ...any) error {
	return &Error{Code: code, Offender: offender, msg: fmt.Sprintf(format, args...)}
}

// Wrap builds an Error of the given code that also chains err via
// errors.Unwrap/errors.Is.
func Wrap(code Code, err error, format string, args ...any) error {
	return &Error{Code: code, msg: fmt.Sprintf(format, args...), wrapped: err}
}

// CodeOf extracts the Code from err if it (or something in its chain)
// is a *Error, returning ok=false otherwise.
func CodeOf(err error) (Code, bool) {
	var fe *Error
	if errors.As(err, &fe) {
		return fe.Code, true
	}
	return 0, false
}
