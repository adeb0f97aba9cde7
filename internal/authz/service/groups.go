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

type GroupsService struct {
	Store    store.Store
	Cache    *graph.Cache
	Recorder *Recorder
	Locks    *ScopeLocks
}

// GetGroup fetches a group by id.
func (s *GroupsService) GetGroup(ctx context.Context, groupID string) (domain.Group, error) {
	return s.Store.Groups().Get(ctx, groupID)
}

// ListGroups returns every group of the scope ordered by raw key bytes.
func (s *GroupsService) ListGroups(ctx context.Context, scopeID string) ([]domain.Group, error) {
	return s.Store.Groups().ListByScope(ctx, scopeID)
}

// CreateGroup creates a group in the scope. An empty id means the store
// assigns one. A caller-supplied id that already exists returns the stored
// row unchanged and appends no audit record (find-or-return create).
func (s *GroupsService) CreateGroup(
	ctx context.Context,
	scopeID, id, name string,
	visible bool,
	sessionID string,
) (domain.Group, error) {
	log := slogx.FromContext(ctx)

	unlock := s.Locks.Lock(scopeID)
	defer unlock()

	group := domain.Group{
		Versioned: domain.Versioned{ID: id, ScopeID: scopeID},
		Name:      name,
		Visible:   visible,
	}

	var created bool
	err := s.Store.WithTx(ctx, func(tx store.Tx) error {
		var err error
		group, created, err = guard.Create[domain.Group](ctx, tx.Groups(), group, sessionID, time.Now().UTC())
		if err != nil {
			return err
		}
		if !created {
			return nil // idempotent return, nothing mutated
		}

		_, err = s.Recorder.Record(ctx, tx.Audit(), domain.ActionCreate, &group, sessionID)
		return err
	})
	if err != nil {
		log.Error("failed to create group",
			slog.String("scope_id", scopeID),
			slog.String("name", name),
			slog.Any("error", err),
		)
		return domain.Group{}, err
	}

	if created {
		s.Cache.Invalidate(scopeID)
	}
	return group, nil
}

// RenameGroup changes the display name under the group's revision guard.
func (s *GroupsService) RenameGroup(
	ctx context.Context,
	groupID string,
	expectedRevision int64,
	newName, sessionID string,
) (domain.Group, error) {
	return s.updateGroup(ctx, groupID, expectedRevision, sessionID, func(g *domain.Group) error {
		g.Name = newName
		return nil
	})
}

// SetGroupVisibility flips the visibility flag under the revision guard.
func (s *GroupsService) SetGroupVisibility(
	ctx context.Context,
	groupID string,
	expectedRevision int64,
	visible bool,
	sessionID string,
) (domain.Group, error) {
	return s.updateGroup(ctx, groupID, expectedRevision, sessionID, func(g *domain.Group) error {
		g.Visible = visible
		return nil
	})
}

func (s *GroupsService) updateGroup(
	ctx context.Context,
	groupID string,
	expectedRevision int64,
	sessionID string,
	mutate func(*domain.Group) error,
) (domain.Group, error) {
	log := slogx.FromContext(ctx)

	// Resolve the scope first so the write runs under its lock.
	current, err := s.Store.Groups().Get(ctx, groupID)
	if err != nil {
		return domain.Group{}, err
	}
	scopeID := current.ScopeID

	unlock := s.Locks.Lock(scopeID)
	defer unlock()

	var updated domain.Group
	err = s.Store.WithTx(ctx, func(tx store.Tx) error {
		var err error
		updated, err = guard.Update[domain.Group](ctx, tx.Groups(), groupID, expectedRevision, sessionID, time.Now().UTC(), mutate)
		if err != nil {
			return err
		}

		_, err = s.Recorder.Record(ctx, tx.Audit(), domain.ActionUpdate, &updated, sessionID)
		return err
	})
	if err != nil {
		log.Warn("group update rejected",
			slog.String("group_id", groupID),
			slog.Int64("expected_revision", expectedRevision),
			slog.Any("error", err),
		)
		return domain.Group{}, err
	}

	s.Cache.Invalidate(scopeID)
	return updated, nil
}

// DeleteGroup removes a group under its revision guard. Groups still
// referenced by any inclusion or membership edge are never deleted.
func (s *GroupsService) DeleteGroup(
	ctx context.Context,
	groupID string,
	expectedRevision int64,
	sessionID string,
) error {
	log := slogx.FromContext(ctx)

	current, err := s.Store.Groups().Get(ctx, groupID)
	if err != nil {
		return err
	}
	scopeID := current.ScopeID

	unlock := s.Locks.Lock(scopeID)
	defer unlock()

	err = s.Store.WithTx(ctx, func(tx store.Tx) error {
		refs, err := tx.Groups().CountReferences(ctx, groupID)
		if err != nil {
			return err
		}
		if refs > 0 {
			return fmt.Errorf("%w: group %s has %d edges", ErrGroupReferenced, groupID, refs)
		}

		snapshot, err := guard.Delete[domain.Group](ctx, tx.Groups(), groupID, expectedRevision)
		if err != nil {
			return err
		}

		// Audit carries the pre-delete snapshot at its final revision.
		_, err = s.Recorder.Record(ctx, tx.Audit(), domain.ActionDelete, &snapshot, sessionID)
		return err
	})
	if err != nil {
		if !errors.Is(err, ErrGroupReferenced) {
			log.Warn("group delete rejected",
				slog.String("group_id", groupID),
				slog.Any("error", err),
			)
		}
		return err
	}

	s.Cache.Invalidate(scopeID)
	return nil
}
