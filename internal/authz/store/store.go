package store

import (
	"context"
	"errors"

	"github.com/aussiebroadwan/secgroups/internal/authz/domain"
)

var (
	ErrNotFound      = errors.New("store: not found")
	ErrAlreadyExists = errors.New("store: already exists")
)

// Store is the root data access interface over the entity store. Concrete
// drivers (sqlite today) implement this. It exposes sub-repositories to keep
// concerns tidy and testable, and a Tx-scoped variant so multi-key sequences
// (guarded write + audit append) stay atomic.
type Store interface {
	Groups() Groups
	Inclusions() Inclusions
	Memberships() Memberships
	Audit() Audit

	ApplyMigrations() error

	// Tx starts a read/write transaction and returns a Tx-scoped Store.
	// The caller MUST call Commit() or Rollback() on the returned Tx.
	Tx(ctx context.Context) (Tx, error)

	// WithTx executes a function within a transaction.
	// If fn returns an error, the transaction is rolled back.
	// If fn returns nil, the transaction is committed.
	WithTx(ctx context.Context, fn func(tx Tx) error) error

	// Close releases any underlying resources (optional for sqlite).
	Close() error

	// Ping verifies the database connection is still alive.
	Ping(ctx context.Context) error
}

// Tx is a transactional store. It embeds the same repos but adds Commit/Rollback.
type Tx interface {
	Store
	Commit() error
	Rollback() error
}

// Groups accesses group rows. Get/Insert/Update/Delete follow the shape the
// revision guard expects; the remaining methods are secondary-index reads.
type Groups interface {
	Get(ctx context.Context, id string) (domain.Group, error)
	Insert(ctx context.Context, g domain.Group) error
	Update(ctx context.Context, g domain.Group) error
	Delete(ctx context.Context, id string) error

	// GetByName fetches a group by its per-scope unique display name.
	GetByName(ctx context.Context, scopeID, name string) (domain.Group, error)

	// ListByScope returns every group of a scope ordered by raw key bytes.
	ListByScope(ctx context.Context, scopeID string) ([]domain.Group, error)

	// CountReferences counts inclusion and membership edges still touching
	// the group. Deletion is refused while this is non-zero.
	CountReferences(ctx context.Context, groupID string) (int64, error)
}

// Inclusions accesses group-include edges.
type Inclusions interface {
	Get(ctx context.Context, id string) (domain.Inclusion, error)
	Insert(ctx context.Context, inc domain.Inclusion) error
	Update(ctx context.Context, inc domain.Inclusion) error
	Delete(ctx context.Context, id string) error

	// Find locates the edge by its natural key.
	Find(ctx context.Context, scopeID, containerID, subgroupID string) (domain.Inclusion, error)

	// ListByScope returns every inclusion edge of a scope.
	ListByScope(ctx context.Context, scopeID string) ([]domain.Inclusion, error)
}

// Memberships accesses direct user-to-group edges.
type Memberships interface {
	Get(ctx context.Context, id string) (domain.Membership, error)
	Insert(ctx context.Context, m domain.Membership) error
	Update(ctx context.Context, m domain.Membership) error
	Delete(ctx context.Context, id string) error

	// Find locates the edge by its natural key.
	Find(ctx context.Context, scopeID, groupID, userID string) (domain.Membership, error)

	// ListByScope returns every membership edge of a scope.
	ListByScope(ctx context.Context, scopeID string) ([]domain.Membership, error)
}

// Audit is append-only; rows are never mutated or deleted through this
// interface. Retention is an external policy concern.
type Audit interface {
	// Append inserts one audit row. Returns ErrAlreadyExists when the
	// composite key collides so the recorder can advance the timestamp.
	Append(ctx context.Context, rec domain.AuditRecord) error

	// ListBySubject returns all audit rows for a subject ordered by
	// recorded_at ascending.
	ListBySubject(ctx context.Context, subjectID string) ([]domain.AuditRecord, error)
}
