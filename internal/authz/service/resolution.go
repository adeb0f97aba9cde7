package service

import (
	"context"
	"sort"

	"github.com/aussiebroadwan/secgroups/internal/authz/graph"
)

// ResolutionService answers the two questions authorization middleware asks:
// which groups does a user effectively belong to, and who are a group's
// effective members. Pure reads over one graph snapshot; no locks taken.
type ResolutionService struct {
	Cache   *graph.Cache
	MaxHops int
}

// EffectiveGroupsOf returns the user's direct groups plus every group
// reachable by following "is included in" edges upward, to fixpoint.
// The result is sorted by raw key bytes for stable ordering.
func (s *ResolutionService) EffectiveGroupsOf(ctx context.Context, scopeID, userID string) ([]string, error) {
	snap, err := s.Cache.Snapshot(ctx, scopeID)
	if err != nil {
		return nil, err
	}

	direct := snap.DirectGroupsOf(userID)
	if len(direct) == 0 {
		return nil, nil
	}

	groups, err := snap.TransitiveContainers(direct, s.MaxHops)
	if err != nil {
		return nil, err // fail closed, never a partial set
	}

	return sortedKeys(groups), nil
}

// EffectiveMembersOf returns the direct members of the group and of every
// subgroup reachable via include edges, to fixpoint, sorted by raw key bytes.
func (s *ResolutionService) EffectiveMembersOf(ctx context.Context, scopeID, groupID string) ([]string, error) {
	snap, err := s.Cache.Snapshot(ctx, scopeID)
	if err != nil {
		return nil, err
	}

	groups, err := snap.TransitiveSubgroups([]string{groupID}, s.MaxHops)
	if err != nil {
		return nil, err
	}

	users := make(map[string]struct{})
	for g := range groups {
		for _, u := range snap.DirectMembersOf(g) {
			users[u] = struct{}{}
		}
	}
	if len(users) == 0 {
		return nil, nil
	}

	return sortedKeys(users), nil
}

func sortedKeys(set map[string]struct{}) []string {
	out := make([]string, 0, len(set))
	for k := range set {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
