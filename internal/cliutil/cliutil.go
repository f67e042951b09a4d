// Package cliutil holds the small bits of plumbing every cmd/
// orchestrator needs (resolving a ciphersuite by name, parsing
// comma-separated identifier lists) so that no single binary package
// owns it and none of it drifts. It carries no FROST protocol logic of
// its own.
package cliutil

import (
	"strconv"
	"strings"

	"github.com/threshold-network/frost-relay/ciphersuite"
	"github.com/threshold-network/frost-relay/frosterr"
	"github.com/threshold-network/frost-relay/keys"
)

// ResolveSuite looks up a ciphersuite by its CLI name ("ed25519" or
// "redpallas"), the --suite flag value every cmd/ binary accepts.
// Suite packages register themselves via init(), so the caller need
// only blank-import the ones it wants available.
func ResolveSuite(name string) (ciphersuite.Suite, error) {
	var id ciphersuite.ID
	switch strings.ToLower(name) {
	case "ed25519":
		id = ciphersuite.Ed25519
	case "redpallas":
		id = ciphersuite.RedPallas
	default:
		return nil, frosterr.New(frosterr.InvalidArgument, "unknown ciphersuite %q, want ed25519 or redpallas", name)
	}
	suite, ok := ciphersuite.Lookup(id)
	if !ok {
		return nil, frosterr.New(frosterr.InvalidArgument, "ciphersuite %q is not registered (missing blank import?)", name)
	}
	return suite, nil
}

// ParseMembers parses a comma-separated list of participant numbers
// ("1,2,3") into Identifiers under suite.
func ParseMembers(suite ciphersuite.Suite, csv string) ([]keys.Identifier, error) {
	parts := strings.Split(csv, ",")
	members := make([]keys.Identifier, 0, len(parts))
	for _, part := range parts {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		n, err := strconv.ParseUint(part, 10, 16)
		if err != nil {
			return nil, frosterr.Wrap(frosterr.InvalidArgument, err, "parsing member %q", part)
		}
		id, err := keys.NewIdentifier(suite, uint16(n))
		if err != nil {
			return nil, err
		}
		members = append(members, id)
	}
	return members, nil
}

// ParseIdentifier parses a single participant number into an
// Identifier under suite.
func ParseIdentifier(suite ciphersuite.Suite, s string) (keys.Identifier, error) {
	n, err := strconv.ParseUint(strings.TrimSpace(s), 10, 16)
	if err != nil {
		return keys.Identifier{}, frosterr.Wrap(frosterr.InvalidArgument, err, "parsing identifier %q", s)
	}
	return keys.NewIdentifier(suite, uint16(n))
}
