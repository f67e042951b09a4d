// Package store implements the persistence port of spec.md §4.7: an
// abstract document holding long-term identities, an address book of
// contacts, and completed group key material, so the coordinator and
// participant orchestrators (C9) have somewhere durable to keep state
// between process invocations. No teacher precedent exists for this
// component (the teacher never persists anything); the document is
// CBOR-encoded with github.com/fxamacker/cbor/v2, matching the wire
// format keys.KeyPackage/PublicKeyPackage already use, which gives it
// the same stable, self-describing, length-prefixed-at-the-wire-level
// shape spec.md §6 requires of on-disk key material. Encryption at
// rest is out of scope, exactly as spec.md documents as a risk.
package store

import (
	"bytes"
	"io"
	"os"

	"github.com/fxamacker/cbor/v2"

	"github.com/threshold-network/frost-relay/ciphersuite"
	"github.com/threshold-network/frost-relay/frosterr"
)

// Identity is one local long-term actor: a Schnorr keypair used to
// authenticate against a relayserver via its challenge/login exchange,
// plus a Noise static keypair used for the E2E channel (C7) and an
// X25519 keypair used to seal DKG Round 2 shares written to disk
// (dkg.SealRound2Package). A single operator may hold several
// Identities (e.g. one per group they participate in).
type Identity struct {
	Name            string
	SuiteID         ciphersuite.ID
	SigningPrivate  []byte // serialized scalar; never logged
	SigningPublic   []byte // serialized element; doubles as the account pubkey
	NoiseStaticPriv []byte // 32-byte X25519 scalar
	NoiseStaticPub  []byte // 32-byte X25519 point
	DKGPriv         [32]byte
	DKGPub          [32]byte
}

// Contact is another party's public identity, as recorded in the local
// address book.
type Contact struct {
	Name       string
	PubKey     string // hex-encoded SigningPublic, the relayserver account id
	NoiseStatic []byte
	DKGPub     [32]byte
}

// Group is one completed key-generation run's public output plus the
// caller's own private share, keyed by a human-chosen name.
type Group struct {
	Name             string
	PublicKeyPackage []byte // keys.SerializePublicKeyPackage output
	MyIdentifier     []byte // serialized Identifier scalar
	MyKeyPackage     []byte // keys.SerializeKeyPackage output
	ServerURL        string
}

// Document is the full persisted state one operator's local store
// holds (spec.md §4.7).
type Document struct {
	Identities []Identity
	Contacts   []Contact
	Groups     []Group
}

// Port is the abstract persistence interface the orchestrators (C9)
// consume, so they never depend on a concrete storage mechanism.
type Port interface {
	Load(r io.Reader) (*Document, error)
	Save(w io.Writer, doc *Document) error
}

// cborPort implements Port over CBOR.
type cborPort struct{}

// NewPort returns the CBOR-backed Port implementation.
func NewPort() Port { return cborPort{} }

func (cborPort) Load(r io.Reader) (*Document, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, frosterr.Wrap(frosterr.MalformedEncoding, err, "read store document")
	}
	if len(data) == 0 {
		return &Document{}, nil
	}
	var doc Document
	if err := cbor.Unmarshal(data, &doc); err != nil {
		return nil, frosterr.Wrap(frosterr.MalformedEncoding, err, "decode store document")
	}
	return &doc, nil
}

func (cborPort) Save(w io.Writer, doc *Document) error {
	data, err := cbor.Marshal(doc)
	if err != nil {
		return frosterr.Wrap(frosterr.MalformedEncoding, err, "encode store document")
	}
	if _, err := w.Write(data); err != nil {
		return frosterr.Wrap(frosterr.MalformedEncoding, err, "write store document")
	}
	return nil
}

// FileStore wraps Port with os.ReadFile/os.WriteFile, the on-disk
// container the CLI orchestrators use by default.
type FileStore struct {
	path string
	port Port
}

// NewFileStore opens a FileStore rooted at path; the file need not
// exist yet, Load returns an empty Document in that case.
func NewFileStore(path string) *FileStore {
	return &FileStore{path: path, port: NewPort()}
}

// Load reads and decodes the document at f.path.
func (f *FileStore) Load() (*Document, error) {
	data, err := os.ReadFile(f.path)
	if os.IsNotExist(err) {
		return &Document{}, nil
	}
	if err != nil {
		return nil, frosterr.Wrap(frosterr.MalformedEncoding, err, "read store file %s", f.path)
	}
	return f.port.Load(bytes.NewReader(data))
}

// Save encodes doc and writes it to f.path with owner-only
// permissions, since it may contain Identity.SigningPrivate material.
func (f *FileStore) Save(doc *Document) error {
	var buf bytes.Buffer
	if err := f.port.Save(&buf, doc); err != nil {
		return err
	}
	if err := os.WriteFile(f.path, buf.Bytes(), 0o600); err != nil {
		return frosterr.Wrap(frosterr.MalformedEncoding, err, "write store file %s", f.path)
	}
	return nil
}

// ContactByName looks up a contact by name, returning
// frosterr.UnknownIdentifier if absent.
func (d *Document) ContactByName(name string) (*Contact, error) {
	for i := range d.Contacts {
		if d.Contacts[i].Name == name {
			return &d.Contacts[i], nil
		}
	}
	return nil, frosterr.New(frosterr.UnknownIdentifier, "no contact named %q", name)
}

// GroupByName looks up a completed key-generation run by name.
func (d *Document) GroupByName(name string) (*Group, error) {
	for i := range d.Groups {
		if d.Groups[i].Name == name {
			return &d.Groups[i], nil
		}
	}
	return nil, frosterr.New(frosterr.UnknownIdentifier, "no group named %q", name)
}

// IdentityByName looks up a local identity by name.
func (d *Document) IdentityByName(name string) (*Identity, error) {
	for i := range d.Identities {
		if d.Identities[i].Name == name {
			return &d.Identities[i], nil
		}
	}
	return nil, frosterr.New(frosterr.UnknownIdentifier, "no identity named %q", name)
}
