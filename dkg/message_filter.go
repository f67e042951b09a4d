package dkg

import "github.com/threshold-network/frost-relay/keys"

// senderKeyed is satisfied by Round1Package and Round2Package, letting
// the helpers below work generically across both message types.
// Generalizes gjkr/message_filter.go's getSenderIndex-based constraint
// off a fixed memberIndex onto keys.Identifier.
type senderKeyed interface {
	SenderID() keys.Identifier
}

// deduplicateBySender keeps the first message seen for each sender,
// dropping any later resends (duplicate delivery through the relay
// server, or a malicious peer replaying an old package).
func deduplicateBySender[T senderKeyed](list []T) []T {
	seen := make(map[string]bool, len(list))
	result := make([]T, 0, len(list))
	for _, msg := range list {
		key := msg.SenderID().Hex()
		if seen[key] {
			continue
		}
		seen[key] = true
		result = append(result, msg)
	}
	return result
}

// findMissing reports which of the group's peers contributed no
// message in list, generalizing gjkr/message_filter.go's findInactive
// off a numeric memberIndex range onto an explicit peer list.
func findMissing[T senderKeyed](peers []keys.Identifier, list []T) []keys.Identifier {
	present := make(map[string]bool, len(list))
	for _, msg := range list {
		present[msg.SenderID().Hex()] = true
	}
	missing := make([]keys.Identifier, 0)
	for _, peer := range peers {
		if !present[peer.Hex()] {
			missing = append(missing, peer)
		}
	}
	return missing
}
