package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/aussiebroadwan/secgroups/internal/authz/domain"
	"github.com/aussiebroadwan/secgroups/internal/authz/graph"
	"github.com/aussiebroadwan/secgroups/internal/authz/guard"
	"github.com/aussiebroadwan/secgroups/internal/authz/store"
)

type MembershipsService struct {
	Store    store.Store
	Cache    *graph.Cache
	Recorder *Recorder
	Locks    *ScopeLocks
}

// AddMembership places user directly into the group. expectedRevision is the
// group's revision; the group is revision-bumped alongside the edge insert.
// Returns the new edge and the group's new revision.
func (s *MembershipsService) AddMembership(
	ctx context.Context,
	scopeID, groupID, userID string,
	expectedRevision int64,
	sessionID string,
) (domain.Membership, int64, error) {
	unlock := s.Locks.Lock(scopeID)
	defer unlock()

	g, err := s.Store.Groups().Get(ctx, groupID)
	if err != nil {
		return domain.Membership{}, 0, fmt.Errorf("group %s: %w", groupID, err)
	}
	if g.ScopeID != scopeID {
		return domain.Membership{}, 0, fmt.Errorf("%w: group %s is in scope %s, not %s",
			ErrScopeMismatch, groupID, g.ScopeID, scopeID)
	}

	if _, err := s.Store.Memberships().Find(ctx, scopeID, groupID, userID); err == nil {
		return domain.Membership{}, 0, fmt.Errorf("%w: user %s is already a member of %s",
			ErrDuplicateEdge, userID, groupID)
	} else if !errors.Is(err, store.ErrNotFound) {
		return domain.Membership{}, 0, err
	}

	var (
		edge   domain.Membership
		newRev int64
	)
	err = s.Store.WithTx(ctx, func(tx store.Tx) error {
		now := time.Now().UTC()

		group, err := guard.Update[domain.Group](ctx, tx.Groups(), groupID, expectedRevision, sessionID, now, nil)
		if err != nil {
			return err
		}
		newRev = group.Revision

		if _, err := s.Recorder.Record(ctx, tx.Audit(), domain.ActionUpdate, &group, sessionID); err != nil {
			return err
		}

		edge = domain.Membership{
			Versioned: domain.Versioned{ScopeID: scopeID},
			GroupID:   groupID,
			UserID:    userID,
		}
		edge, _, err = guard.Create[domain.Membership](ctx, tx.Memberships(), edge, sessionID, now)
		if err != nil {
			if errors.Is(err, store.ErrAlreadyExists) {
				return fmt.Errorf("%w: user %s is already a member of %s", ErrDuplicateEdge, userID, groupID)
			}
			return err
		}

		_, err = s.Recorder.Record(ctx, tx.Audit(), domain.ActionCreate, &edge, sessionID)
		return err
	})
	if err != nil {
		return domain.Membership{}, 0, err
	}

	s.Cache.Invalidate(scopeID)
	return edge, newRev, nil
}

// RemoveMembership deletes the (scope, group, user) edge. expectedRevision
// is the edge's revision; the audit row carries the pre-delete snapshot.
func (s *MembershipsService) RemoveMembership(
	ctx context.Context,
	scopeID, groupID, userID string,
	expectedRevision int64,
	sessionID string,
) error {
	unlock := s.Locks.Lock(scopeID)
	defer unlock()

	edge, err := s.Store.Memberships().Find(ctx, scopeID, groupID, userID)
	if err != nil {
		return err
	}

	err = s.Store.WithTx(ctx, func(tx store.Tx) error {
		snapshot, err := guard.Delete[domain.Membership](ctx, tx.Memberships(), edge.ID, expectedRevision)
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
