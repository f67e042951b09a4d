package dkg

import "github.com/threshold-network/frost-relay/keys"

// group tracks the fixed membership of one DKG run and which peers
// have contributed a complete message set at the current phase.
// Adapted from gjkr/group.go's inactive/disqualified member
// bookkeeping, simplified for this protocol's abort-is-terminal design
// (spec.md §4.3): there is no complaint-resolution voting, so group
// only needs to decide whether a phase's message set is complete, not
// track per-member fault history across rounds.
type group struct {
	self    keys.Identifier
	members []keys.Identifier
}

func newGroup(self keys.Identifier, members []keys.Identifier) *group {
	return &group{self: self, members: keys.SortIdentifiers(members)}
}

// peers returns every member other than self, in ascending order.
func (g *group) peers() []keys.Identifier {
	out := make([]keys.Identifier, 0, len(g.members)-1)
	for _, m := range g.members {
		if !m.Equal(g.self) {
			out = append(out, m)
		}
	}
	return out
}

// isMember reports whether id belongs to this DKG run.
func (g *group) isMember(id keys.Identifier) bool {
	for _, m := range g.members {
		if m.Equal(id) {
			return true
		}
	}
	return false
}
