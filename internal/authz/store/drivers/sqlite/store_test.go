package sqlite_test

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/aussiebroadwan/secgroups/internal/authz/domain"
	"github.com/aussiebroadwan/secgroups/internal/authz/store"
	"github.com/aussiebroadwan/secgroups/internal/authz/store/drivers/sqlite"
	"github.com/aussiebroadwan/secgroups/pkg/idx"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *sqlite.Store {
	t.Helper()

	st, err := sqlite.NewStore(filepath.Join(t.TempDir(), "store_test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })

	require.NoError(t, st.ApplyMigrations())
	return st
}

func testGroup(id, scope, name string) domain.Group {
	now := time.Now().UTC()
	return domain.Group{
		Versioned: domain.Versioned{
			ID: id, ScopeID: scope, Revision: domain.InitialRevision,
			CreatedBy: "sess-1", CreatedAt: now, UpdatedBy: "sess-1", UpdatedAt: now,
		},
		Name:    name,
		Visible: true,
	}
}

func TestMigrationsAreIdempotent(t *testing.T) {
	st := newTestStore(t)
	require.NoError(t, st.ApplyMigrations())
	require.NoError(t, st.Ping(context.Background()))
}

func TestGroupsConflictMapping(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, st.Groups().Insert(ctx, testGroup("g1", "tenant-1", "admins")))

	t.Run("duplicate id", func(t *testing.T) {
		err := st.Groups().Insert(ctx, testGroup("g1", "tenant-1", "other"))
		require.ErrorIs(t, err, store.ErrAlreadyExists)
	})

	t.Run("duplicate name in scope", func(t *testing.T) {
		err := st.Groups().Insert(ctx, testGroup("g2", "tenant-1", "admins"))
		require.ErrorIs(t, err, store.ErrAlreadyExists)
	})

	t.Run("same name in another scope", func(t *testing.T) {
		require.NoError(t, st.Groups().Insert(ctx, testGroup("g3", "tenant-2", "admins")))
	})

	t.Run("missing row maps to not found", func(t *testing.T) {
		_, err := st.Groups().Get(ctx, "never-created")
		require.ErrorIs(t, err, store.ErrNotFound)
	})
}

func TestGetByNameScopesLookups(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, st.Groups().Insert(ctx, testGroup("g1", "tenant-1", "admins")))
	require.NoError(t, st.Groups().Insert(ctx, testGroup("g2", "tenant-2", "admins")))

	g, err := st.Groups().GetByName(ctx, "tenant-2", "admins")
	require.NoError(t, err)
	require.Equal(t, "g2", g.ID)

	_, err = st.Groups().GetByName(ctx, "tenant-3", "admins")
	require.ErrorIs(t, err, store.ErrNotFound)
}

func TestInclusionsNaturalKey(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, st.Groups().Insert(ctx, testGroup("g1", "tenant-1", "admins")))
	require.NoError(t, st.Groups().Insert(ctx, testGroup("g2", "tenant-1", "ops")))

	now := time.Now().UTC()
	edge := domain.Inclusion{
		Versioned: domain.Versioned{
			ID: idx.New().String(), ScopeID: "tenant-1", Revision: domain.InitialRevision,
			CreatedBy: "sess-1", CreatedAt: now, UpdatedBy: "sess-1", UpdatedAt: now,
		},
		ContainerID: "g1",
		SubgroupID:  "g2",
	}
	require.NoError(t, st.Inclusions().Insert(ctx, edge))

	found, err := st.Inclusions().Find(ctx, "tenant-1", "g1", "g2")
	require.NoError(t, err)
	require.Equal(t, edge.ID, found.ID)

	_, err = st.Inclusions().Find(ctx, "tenant-1", "g2", "g1")
	require.ErrorIs(t, err, store.ErrNotFound)

	// The natural key is unique even under a fresh surrogate id.
	dup := edge
	dup.ID = idx.New().String()
	require.ErrorIs(t, st.Inclusions().Insert(ctx, dup), store.ErrAlreadyExists)
}

func TestWithTxRollsBackOnError(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	err := st.WithTx(ctx, func(tx store.Tx) error {
		require.NoError(t, tx.Groups().Insert(ctx, testGroup("g1", "tenant-1", "admins")))
		return context.Canceled // any error aborts the tx
	})
	require.ErrorIs(t, err, context.Canceled)

	_, err = st.Groups().Get(ctx, "g1")
	require.ErrorIs(t, err, store.ErrNotFound)
}

func TestAuditCompositeKey(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	rec := domain.AuditRecord{
		ScopeID:     "tenant-1",
		RecordedAt:  time.Now().UTC().UnixMicro(),
		Action:      domain.ActionCreate,
		Revision:    1,
		SessionID:   "sess-1",
		SubjectID:   "g1",
		SubjectKind: domain.KindGroup,
		Snapshot:    `{"name":"admins","visible":true}`,
		Fingerprint: "fp",
	}
	require.NoError(t, st.Audit().Append(ctx, rec))
	require.ErrorIs(t, st.Audit().Append(ctx, rec), store.ErrAlreadyExists)

	// Any key component differing is a distinct row.
	next := rec
	next.RecordedAt++
	require.NoError(t, st.Audit().Append(ctx, next))

	records, err := st.Audit().ListBySubject(ctx, "g1")
	require.NoError(t, err)
	require.Len(t, records, 2)
	require.Equal(t, rec.RecordedAt, records[0].RecordedAt)
	require.Equal(t, next.RecordedAt, records[1].RecordedAt)
}
