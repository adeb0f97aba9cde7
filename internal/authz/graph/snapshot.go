// Package graph presents one scope's inclusion and membership edges as an
// immutable directed graph queryable by either endpoint. Snapshots are built
// from a single transactional read, so every view reflects a state that
// already passed the write-time acyclicity check.
package graph

import (
	"context"
	"time"

	"github.com/aussiebroadwan/secgroups/internal/authz/store"
)

// Snapshot is a point-in-time view of one scope's graph. It is never
// mutated after construction and is safe for concurrent readers. Returned
// slices are shared; callers must not modify them.
type Snapshot struct {
	ScopeID string
	BuiltAt time.Time

	forward    map[string][]string // container -> included subgroups
	reverse    map[string][]string // subgroup -> containing groups
	members    map[string][]string // group -> direct user ids
	userGroups map[string][]string // user -> direct group ids
}

// Load builds a snapshot of the scope from one read-only transaction.
func Load(ctx context.Context, st store.Store, scopeID string) (*Snapshot, error) {
	tx, err := st.Tx(ctx)
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback() }() // read-only, nothing to commit

	inclusions, err := tx.Inclusions().ListByScope(ctx, scopeID)
	if err != nil {
		return nil, err
	}

	memberships, err := tx.Memberships().ListByScope(ctx, scopeID)
	if err != nil {
		return nil, err
	}

	snap := &Snapshot{
		ScopeID:    scopeID,
		BuiltAt:    time.Now().UTC(),
		forward:    make(map[string][]string, len(inclusions)),
		reverse:    make(map[string][]string, len(inclusions)),
		members:    make(map[string][]string, len(memberships)),
		userGroups: make(map[string][]string, len(memberships)),
	}

	for _, inc := range inclusions {
		snap.forward[inc.ContainerID] = append(snap.forward[inc.ContainerID], inc.SubgroupID)
		snap.reverse[inc.SubgroupID] = append(snap.reverse[inc.SubgroupID], inc.ContainerID)
	}

	for _, m := range memberships {
		snap.members[m.GroupID] = append(snap.members[m.GroupID], m.UserID)
		snap.userGroups[m.UserID] = append(snap.userGroups[m.UserID], m.GroupID)
	}

	return snap, nil
}

// NeighborsOf returns the groups directly included by groupID.
// Unknown ids yield nil.
func (s *Snapshot) NeighborsOf(groupID string) []string {
	return s.forward[groupID]
}

// ContainersOf returns the groups that directly include groupID (the
// reverse edge, used for upward resolution and delete impact analysis).
func (s *Snapshot) ContainersOf(groupID string) []string {
	return s.reverse[groupID]
}

// DirectMembersOf returns the users placed directly into groupID.
func (s *Snapshot) DirectMembersOf(groupID string) []string {
	return s.members[groupID]
}

// DirectGroupsOf returns the groups userID was placed into directly.
func (s *Snapshot) DirectGroupsOf(userID string) []string {
	return s.userGroups[userID]
}
