package graph

import (
	"errors"
	"fmt"
)

// ErrBoundExceeded reports that a traversal hit its defensive hop bound.
// The write path keeps the graph acyclic, so this firing means a latent
// construction bug; callers fail closed rather than return a partial set.
var ErrBoundExceeded = errors.New("graph: traversal bound exceeded")

// DefaultMaxHops is generous: real inclusion chains are a handful of levels
// deep, the bound exists only to catch invariant violations.
const DefaultMaxHops = 512

// TransitiveContainers returns the start groups plus every group reachable
// by following containing-group edges upward, to fixpoint. Breadth-first
// with a visited set, so diamond-shaped inclusion patterns cost O(V+E).
func (s *Snapshot) TransitiveContainers(start []string, maxHops int) (map[string]struct{}, error) {
	return s.walk(start, s.ContainersOf, maxHops)
}

// TransitiveSubgroups returns the start groups plus every group reachable by
// following include edges downward, to fixpoint.
func (s *Snapshot) TransitiveSubgroups(start []string, maxHops int) (map[string]struct{}, error) {
	return s.walk(start, s.NeighborsOf, maxHops)
}

func (s *Snapshot) walk(start []string, next func(string) []string, maxHops int) (map[string]struct{}, error) {
	if maxHops <= 0 {
		maxHops = DefaultMaxHops
	}

	visited := make(map[string]struct{}, len(start))
	frontier := make([]string, 0, len(start))
	for _, id := range start {
		if _, seen := visited[id]; !seen {
			visited[id] = struct{}{}
			frontier = append(frontier, id)
		}
	}

	for hops := 0; len(frontier) > 0; hops++ {
		if hops >= maxHops {
			return nil, fmt.Errorf("%w: scope %s after %d hops", ErrBoundExceeded, s.ScopeID, hops)
		}

		var discovered []string
		for _, id := range frontier {
			for _, n := range next(id) {
				if _, seen := visited[n]; seen {
					continue
				}
				visited[n] = struct{}{}
				discovered = append(discovered, n)
			}
		}
		frontier = discovered
	}

	return visited, nil
}
