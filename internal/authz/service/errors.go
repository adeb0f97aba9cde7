package service

import (
	"errors"

	"github.com/aussiebroadwan/secgroups/internal/authz/graph"
	"github.com/aussiebroadwan/secgroups/internal/authz/guard"
)

var (
	// ErrRevisionConflict: concurrent modification, caller re-reads and retries.
	ErrRevisionConflict = guard.ErrRevisionConflict

	// ErrResolutionBound: traversal hit the defensive hop cap. Internal
	// invariant violation; fail closed, never a partial result.
	ErrResolutionBound = graph.ErrBoundExceeded

	// ErrSelfInclusion: a group can never include itself.
	ErrSelfInclusion = errors.New("group cannot include itself")

	// ErrCycleDetected: the requested inclusion would close a loop.
	// Permanent rejection, not retryable.
	ErrCycleDetected = errors.New("inclusion would create a cycle")

	// ErrDuplicateEdge: the edge already exists. Explicit conflict rather
	// than a silent no-op.
	ErrDuplicateEdge = errors.New("edge already exists")

	// ErrGroupReferenced: the group still has inclusion or membership edges
	// and cannot be deleted.
	ErrGroupReferenced = errors.New("group is still referenced by edges")

	// ErrScopeMismatch: the entity exists but belongs to a different scope.
	ErrScopeMismatch = errors.New("entity belongs to a different scope")
)
