// Package guard implements optimistic concurrency for versioned entities.
// Every mutation loads the current row, checks the caller's expected revision
// against the stored monotonic counter, and only then writes. Conflicts are
// never merged or retried here; the caller re-reads and decides.
package guard

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/aussiebroadwan/secgroups/internal/authz/store"
	"github.com/aussiebroadwan/secgroups/pkg/idx"
)

// ErrRevisionConflict reports a concurrent modification: the stored revision
// no longer matches what the caller read. Recoverable by re-read and retry.
var ErrRevisionConflict = errors.New("guard: revision conflict")

// Entity is the pointer-side contract a versioned entity satisfies via its
// embedded domain.Versioned.
type Entity[T any] interface {
	*T
	EntityID() string
	EntityScope() string
	EntityRevision() int64
	SetID(id string)
	Init(by string, at time.Time)
	Stamp(rev int64, by string, at time.Time)
}

// Storage is the per-entity slice of the store the guard drives. The store
// sub-repositories (store.Groups, store.Inclusions, store.Memberships)
// satisfy it directly.
type Storage[T any] interface {
	Get(ctx context.Context, id string) (T, error)
	Insert(ctx context.Context, v T) error
	Update(ctx context.Context, v T) error
	Delete(ctx context.Context, id string) error
}

// Create inserts v with revision 1, assigning a fresh key when the caller
// supplied none. If the caller-supplied id already exists the stored row is
// returned unchanged with created=false: create is find-or-return, not a
// conflict. A uniqueness violation on anything other than the primary key
// still surfaces as store.ErrAlreadyExists.
func Create[T any, P Entity[T]](ctx context.Context, s Storage[T], v T, session string, now time.Time) (T, bool, error) {
	p := P(&v)
	if p.EntityID() == "" {
		p.SetID(idx.New().String())
	}
	p.Init(session, now)

	if err := s.Insert(ctx, v); err != nil {
		if errors.Is(err, store.ErrAlreadyExists) {
			existing, getErr := s.Get(ctx, p.EntityID())
			if getErr == nil {
				return existing, false, nil
			}
		}
		var zero T
		return zero, false, err
	}

	return v, true, nil
}

// Update loads the entity, verifies expected against the stored revision,
// applies mutate, bumps the revision by exactly one, stamps the updated
// by/at columns and writes back. Returns the entity at its new revision.
func Update[T any, P Entity[T]](
	ctx context.Context,
	s Storage[T],
	id string,
	expected int64,
	session string,
	now time.Time,
	mutate func(P) error,
) (T, error) {
	var zero T

	current, err := s.Get(ctx, id)
	if err != nil {
		return zero, err // store.ErrNotFound passes through
	}

	p := P(&current)
	if p.EntityRevision() != expected {
		return zero, fmt.Errorf("%w: entity %s scope %s: expected revision %d, have %d",
			ErrRevisionConflict, id, p.EntityScope(), expected, p.EntityRevision())
	}

	if mutate != nil {
		if err := mutate(p); err != nil {
			return zero, err
		}
	}

	p.Stamp(expected+1, session, now)
	if err := s.Update(ctx, current); err != nil {
		return zero, err
	}

	return current, nil
}

// Delete verifies the expected revision then removes the row, returning the
// pre-delete snapshot so the caller can audit it.
func Delete[T any, P Entity[T]](
	ctx context.Context,
	s Storage[T],
	id string,
	expected int64,
) (T, error) {
	var zero T

	current, err := s.Get(ctx, id)
	if err != nil {
		return zero, err
	}

	p := P(&current)
	if p.EntityRevision() != expected {
		return zero, fmt.Errorf("%w: entity %s scope %s: expected revision %d, have %d",
			ErrRevisionConflict, id, p.EntityScope(), expected, p.EntityRevision())
	}

	if err := s.Delete(ctx, id); err != nil {
		return zero, err
	}

	return current, nil
}
