package ciphersuite

import "sync"

var (
	registryMu sync.RWMutex
	registry   = map[ID]Suite{}
)

// Register makes a Suite implementation available for lookup by ID.
// Concrete suite packages (ciphersuite/ed25519, ciphersuite/redpallas)
// call this from an init function so that generic code (key package
// deserialization, CLI suite selection) can resolve a Suite from the
// tag stored alongside serialized key material without every caller
// importing every suite package directly.
func Register(id ID, suite Suite) {
	registryMu.Lock()
	defer registryMu.Unlock()
	registry[id] = suite
}

// Lookup resolves a previously Register-ed Suite by its ID.
func Lookup(id ID) (Suite, bool) {
	registryMu.RLock()
	defer registryMu.RUnlock()
	s, ok := registry[id]
	return s, ok
}
