package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/aussiebroadwan/secgroups/internal/authz/domain"
	"github.com/aussiebroadwan/secgroups/internal/authz/graph"
	"github.com/aussiebroadwan/secgroups/internal/authz/guard"
	"github.com/aussiebroadwan/secgroups/internal/authz/store"
	"github.com/aussiebroadwan/secgroups/pkg/slogx"
)

// InclusionsService owns the only write path allowed to touch group-include
// edges. Acyclicity is enforced here, at write time, under the scope lock.
type InclusionsService struct {
	Store    store.Store
	Cache    *graph.Cache
	Recorder *Recorder
	Locks    *ScopeLocks
	MaxHops  int
}

// AddInclusion makes subgroup a direct subgroup of container.
// expectedRevision is the container group's revision: the container is
// revision-bumped alongside the edge insert, so a concurrent structural edit
// of the same container surfaces as ErrRevisionConflict. Returns the new
// edge and the container's new revision.
//
// The cycle check and the insert span multiple keys, which is why the whole
// sequence runs under the scope lock; the fresh snapshot below can therefore
// not go stale between check and write.
func (s *InclusionsService) AddInclusion(
	ctx context.Context,
	scopeID, containerID, subgroupID string,
	expectedRevision int64,
	sessionID string,
) (domain.Inclusion, int64, error) {
	log := slogx.FromContext(ctx)

	// 1. No self-inclusion, ever.
	if containerID == subgroupID {
		return domain.Inclusion{}, 0, fmt.Errorf("%w: group %s", ErrSelfInclusion, containerID)
	}

	unlock := s.Locks.Lock(scopeID)
	defer unlock()

	// 2. Both groups must exist in this scope.
	if err := s.requireGroupInScope(ctx, scopeID, containerID); err != nil {
		return domain.Inclusion{}, 0, err
	}
	if err := s.requireGroupInScope(ctx, scopeID, subgroupID); err != nil {
		return domain.Inclusion{}, 0, err
	}

	// 3. Duplicate edges are an explicit conflict.
	if _, err := s.Store.Inclusions().Find(ctx, scopeID, containerID, subgroupID); err == nil {
		return domain.Inclusion{}, 0, fmt.Errorf("%w: %s already includes %s", ErrDuplicateEdge, containerID, subgroupID)
	} else if !errors.Is(err, store.ErrNotFound) {
		return domain.Inclusion{}, 0, err
	}

	// 4. Walk upward from the container: if the subgroup already contains
	// the container (directly or transitively), this edge would close a
	// loop. The snapshot is loaded fresh, never from the TTL cache.
	snap, err := s.Cache.Fresh(ctx, scopeID)
	if err != nil {
		return domain.Inclusion{}, 0, err
	}

	containers, err := snap.TransitiveContainers([]string{containerID}, s.MaxHops)
	if err != nil {
		log.Error("cycle check traversal failed closed",
			slog.String("scope_id", scopeID),
			slog.String("container_id", containerID),
			slog.Any("error", err),
		)
		return domain.Inclusion{}, 0, err
	}
	if _, reachable := containers[subgroupID]; reachable {
		log.Warn("inclusion rejected: would create cycle",
			slog.String("scope_id", scopeID),
			slog.String("container_id", containerID),
			slog.String("subgroup_id", subgroupID),
		)
		return domain.Inclusion{}, 0, fmt.Errorf("%w: %s is already (transitively) a container of %s",
			ErrCycleDetected, subgroupID, containerID)
	}

	// 5. Guarded writes and audit rows in one transaction.
	var (
		edge   domain.Inclusion
		newRev int64
	)
	err = s.Store.WithTx(ctx, func(tx store.Tx) error {
		now := time.Now().UTC()

		container, err := guard.Update[domain.Group](ctx, tx.Groups(), containerID, expectedRevision, sessionID, now, nil)
		if err != nil {
			return err
		}
		newRev = container.Revision

		if _, err := s.Recorder.Record(ctx, tx.Audit(), domain.ActionUpdate, &container, sessionID); err != nil {
			return err
		}

		edge = domain.Inclusion{
			Versioned:   domain.Versioned{ScopeID: scopeID},
			ContainerID: containerID,
			SubgroupID:  subgroupID,
		}
		edge, _, err = guard.Create[domain.Inclusion](ctx, tx.Inclusions(), edge, sessionID, now)
		if err != nil {
			if errors.Is(err, store.ErrAlreadyExists) {
				return fmt.Errorf("%w: %s already includes %s", ErrDuplicateEdge, containerID, subgroupID)
			}
			return err
		}

		_, err = s.Recorder.Record(ctx, tx.Audit(), domain.ActionCreate, &edge, sessionID)
		return err
	})
	if err != nil {
		return domain.Inclusion{}, 0, err
	}

	s.Cache.Invalidate(scopeID)
	return edge, newRev, nil
}

// RemoveInclusion deletes the (scope, container, subgroup) edge.
// expectedRevision is the edge's revision; no cycle check is needed on
// removal. The audit row carries the pre-delete snapshot.
func (s *InclusionsService) RemoveInclusion(
	ctx context.Context,
	scopeID, containerID, subgroupID string,
	expectedRevision int64,
	sessionID string,
) error {
	unlock := s.Locks.Lock(scopeID)
	defer unlock()

	edge, err := s.Store.Inclusions().Find(ctx, scopeID, containerID, subgroupID)
	if err != nil {
		return err
	}

	err = s.Store.WithTx(ctx, func(tx store.Tx) error {
		snapshot, err := guard.Delete[domain.Inclusion](ctx, tx.Inclusions(), edge.ID, expectedRevision)
		if err != nil {
			return err
		}

		_, err = s.Recorder.Record(ctx, tx.Audit(), domain.ActionDelete, &snapshot, sessionID)
		return err
	})
	if err != nil {
		return err
	}

	s.Cache.Invalidate(scopeID)
	return nil
}

func (s *InclusionsService) requireGroupInScope(ctx context.Context, scopeID, groupID string) error {
	g, err := s.Store.Groups().Get(ctx, groupID)
	if err != nil {
		return fmt.Errorf("group %s: %w", groupID, err)
	}
	if g.ScopeID != scopeID {
		return fmt.Errorf("%w: group %s is in scope %s, not %s", ErrScopeMismatch, groupID, g.ScopeID, scopeID)
	}
	return nil
}
