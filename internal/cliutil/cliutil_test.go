package cliutil

import (
	"testing"

	_ "github.com/threshold-network/frost-relay/ciphersuite/ed25519"
)

func TestResolveSuite(t *testing.T) {
	suite, err := ResolveSuite("ed25519")
	if err != nil {
		t.Fatalf("ResolveSuite: %v", err)
	}
	if suite == nil {
		t.Fatalf("expected a suite")
	}

	if _, err := ResolveSuite("bogus"); err == nil {
		t.Fatalf("expected error for unknown suite name")
	}
}

func TestParseMembers(t *testing.T) {
	suite, err := ResolveSuite("ed25519")
	if err != nil {
		t.Fatalf("ResolveSuite: %v", err)
	}
	members, err := ParseMembers(suite, "1, 2,3")
	if err != nil {
		t.Fatalf("ParseMembers: %v", err)
	}
	if len(members) != 3 {
		t.Fatalf("expected 3 members, got %d", len(members))
	}
}
