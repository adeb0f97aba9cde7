package service_test

import (
	"context"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/aussiebroadwan/secgroups/internal/authz/domain"
	"github.com/aussiebroadwan/secgroups/internal/authz/graph"
	"github.com/aussiebroadwan/secgroups/internal/authz/service"
	"github.com/aussiebroadwan/secgroups/internal/authz/store"
	"github.com/aussiebroadwan/secgroups/internal/authz/store/drivers/sqlite"
	"github.com/stretchr/testify/require"
)

const (
	testScope   = "tenant-1"
	testSession = "sess-test"
)

type fixture struct {
	store       store.Store
	groups      *service.GroupsService
	inclusions  *service.InclusionsService
	memberships *service.MembershipsService
	resolution  *service.ResolutionService
	audit       *service.AuditService
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	st, err := sqlite.NewStore(filepath.Join(t.TempDir(), "service_test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })
	require.NoError(t, st.ApplyMigrations())

	cache := graph.NewCache(st, time.Minute)
	recorder := &service.Recorder{}
	locks := service.NewScopeLocks()

	return &fixture{
		store:       st,
		groups:      &service.GroupsService{Store: st, Cache: cache, Recorder: recorder, Locks: locks},
		inclusions:  &service.InclusionsService{Store: st, Cache: cache, Recorder: recorder, Locks: locks, MaxHops: graph.DefaultMaxHops},
		memberships: &service.MembershipsService{Store: st, Cache: cache, Recorder: recorder, Locks: locks},
		resolution:  &service.ResolutionService{Cache: cache, MaxHops: graph.DefaultMaxHops},
		audit:       &service.AuditService{Store: st},
	}
}

func (f *fixture) createGroup(t *testing.T, id string) domain.Group {
	t.Helper()

	g, err := f.groups.CreateGroup(context.Background(), testScope, id, id, true, testSession)
	require.NoError(t, err)
	return g
}

func TestCreateGroupIsIdempotent(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	first, err := f.groups.CreateGroup(ctx, testScope, "admins", "Administrators", true, testSession)
	require.NoError(t, err)
	require.Equal(t, "admins", first.ID)
	require.Equal(t, domain.InitialRevision, first.Revision)
	require.Equal(t, testSession, first.CreatedBy)

	// Create again with the same id: the stored row comes back unchanged,
	// regardless of what the retry asked for.
	again, err := f.groups.CreateGroup(ctx, testScope, "admins", "Renamed On Retry", false, "sess-other")
	require.NoError(t, err)
	require.Equal(t, first.ID, again.ID)
	require.Equal(t, "Administrators", again.Name)
	require.True(t, again.Visible)
	require.Equal(t, first.Revision, again.Revision)
	require.Equal(t, testSession, again.CreatedBy)

	// The retry mutated nothing, so it left no trail.
	records, err := f.audit.RecordsFor(ctx, "admins")
	require.NoError(t, err)
	require.Len(t, records, 1)
	require.Equal(t, domain.ActionCreate, records[0].Action)
}

func TestRenameGroupGuardsRevision(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.createGroup(t, "admins")

	renamed, err := f.groups.RenameGroup(ctx, "admins", 1, "Platform Admins", testSession)
	require.NoError(t, err)
	require.Equal(t, "Platform Admins", renamed.Name)
	require.Equal(t, int64(2), renamed.Revision)

	// A writer still holding revision 1 lost the race.
	_, err = f.groups.RenameGroup(ctx, "admins", 1, "Stale Rename", testSession)
	require.ErrorIs(t, err, service.ErrRevisionConflict)

	current, err := f.groups.GetGroup(ctx, "admins")
	require.NoError(t, err)
	require.Equal(t, "Platform Admins", current.Name)
	require.Equal(t, int64(2), current.Revision)
}

func TestSetGroupVisibility(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.createGroup(t, "admins")

	hidden, err := f.groups.SetGroupVisibility(ctx, "admins", 1, false, testSession)
	require.NoError(t, err)
	require.False(t, hidden.Visible)
	require.Equal(t, int64(2), hidden.Revision)

	_, err = f.groups.SetGroupVisibility(ctx, "admins", 1, true, testSession)
	require.ErrorIs(t, err, service.ErrRevisionConflict)
}

func TestConcurrentUpdatesExactlyOneWins(t *testing.T) {
	f := newFixture(t)
	f.createGroup(t, "admins")

	names := []string{"Writer A", "Writer B"}
	errs := make([]error, len(names))

	var wg sync.WaitGroup
	for i, name := range names {
		wg.Add(1)
		go func(i int, name string) {
			defer wg.Done()
			_, errs[i] = f.groups.RenameGroup(context.Background(), "admins", 1, name, testSession)
		}(i, name)
	}
	wg.Wait()

	var wins, conflicts int
	for _, err := range errs {
		switch {
		case err == nil:
			wins++
		default:
			require.ErrorIs(t, err, service.ErrRevisionConflict)
			conflicts++
		}
	}
	require.Equal(t, 1, wins)
	require.Equal(t, 1, conflicts)

	current, err := f.groups.GetGroup(context.Background(), "admins")
	require.NoError(t, err)
	require.Equal(t, int64(2), current.Revision)
}

func TestAddInclusionRejectsSelf(t *testing.T) {
	f := newFixture(t)
	f.createGroup(t, "admins")

	_, _, err := f.inclusions.AddInclusion(context.Background(), testScope, "admins", "admins", 1, testSession)
	require.ErrorIs(t, err, service.ErrSelfInclusion)
}

func TestAddInclusionRejectsDuplicate(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.createGroup(t, "admins")
	f.createGroup(t, "ops")

	_, rev, err := f.inclusions.AddInclusion(ctx, testScope, "admins", "ops", 1, testSession)
	require.NoError(t, err)
	require.Equal(t, int64(2), rev)

	_, _, err = f.inclusions.AddInclusion(ctx, testScope, "admins", "ops", rev, testSession)
	require.ErrorIs(t, err, service.ErrDuplicateEdge)
}

func TestAddInclusionRejectsUnknownAndForeignGroups(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.createGroup(t, "admins")

	_, _, err := f.inclusions.AddInclusion(ctx, testScope, "admins", "ghost", 1, testSession)
	require.ErrorIs(t, err, store.ErrNotFound)

	// Same group id existing in another scope does not count.
	_, err = f.groups.CreateGroup(ctx, "tenant-2", "foreign", "Foreign", true, testSession)
	require.NoError(t, err)

	_, _, err = f.inclusions.AddInclusion(ctx, testScope, "admins", "foreign", 1, testSession)
	require.ErrorIs(t, err, service.ErrScopeMismatch)
}

func TestAddInclusionRejectsCycles(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.createGroup(t, "admins")
	f.createGroup(t, "ops")
	f.createGroup(t, "eng")

	_, _, err := f.inclusions.AddInclusion(ctx, testScope, "admins", "ops", 1, testSession)
	require.NoError(t, err)
	_, _, err = f.inclusions.AddInclusion(ctx, testScope, "ops", "eng", 1, testSession)
	require.NoError(t, err)

	// eng -> admins would close admins -> ops -> eng -> admins.
	eng, err := f.groups.GetGroup(ctx, "eng")
	require.NoError(t, err)
	_, _, err = f.inclusions.AddInclusion(ctx, testScope, "eng", "admins", eng.Revision, testSession)
	require.ErrorIs(t, err, service.ErrCycleDetected)

	// The rejected edge left no trace in the graph.
	_, err = f.store.Inclusions().Find(ctx, testScope, "eng", "admins")
	require.ErrorIs(t, err, store.ErrNotFound)
}

func TestEffectiveGroupsFollowsInclusionChain(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.createGroup(t, "admins")
	f.createGroup(t, "ops")
	f.createGroup(t, "eng")

	_, _, err := f.inclusions.AddInclusion(ctx, testScope, "admins", "ops", 1, testSession)
	require.NoError(t, err)
	_, _, err = f.inclusions.AddInclusion(ctx, testScope, "ops", "eng", 1, testSession)
	require.NoError(t, err)
	_, _, err = f.memberships.AddMembership(ctx, testScope, "eng", "alice", 1, testSession)
	require.NoError(t, err)

	groups, err := f.resolution.EffectiveGroupsOf(ctx, testScope, "alice")
	require.NoError(t, err)
	require.Equal(t, []string{"admins", "eng", "ops"}, groups)

	// No direct memberships means no effective groups.
	none, err := f.resolution.EffectiveGroupsOf(ctx, testScope, "nobody")
	require.NoError(t, err)
	require.Empty(t, none)
}

func TestEffectiveMembersUnionsSubgroups(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.createGroup(t, "admins")
	f.createGroup(t, "ops")
	f.createGroup(t, "eng")

	_, _, err := f.inclusions.AddInclusion(ctx, testScope, "admins", "ops", 1, testSession)
	require.NoError(t, err)
	_, _, err = f.inclusions.AddInclusion(ctx, testScope, "ops", "eng", 1, testSession)
	require.NoError(t, err)

	_, _, err = f.memberships.AddMembership(ctx, testScope, "admins", "carol", 2, testSession)
	require.NoError(t, err)
	_, _, err = f.memberships.AddMembership(ctx, testScope, "ops", "bob", 2, testSession)
	require.NoError(t, err)
	_, _, err = f.memberships.AddMembership(ctx, testScope, "eng", "alice", 1, testSession)
	require.NoError(t, err)

	// bob shows up once even though he is reachable through two groups.
	_, _, err = f.memberships.AddMembership(ctx, testScope, "eng", "bob", 2, testSession)
	require.NoError(t, err)

	members, err := f.resolution.EffectiveMembersOf(ctx, testScope, "admins")
	require.NoError(t, err)
	require.Equal(t, []string{"alice", "bob", "carol"}, members)

	engOnly, err := f.resolution.EffectiveMembersOf(ctx, testScope, "eng")
	require.NoError(t, err)
	require.Equal(t, []string{"alice", "bob"}, engOnly)
}

func TestResolutionBoundFailsClosed(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.createGroup(t, "a")
	f.createGroup(t, "b")
	f.createGroup(t, "c")
	f.createGroup(t, "d")

	_, _, err := f.inclusions.AddInclusion(ctx, testScope, "a", "b", 1, testSession)
	require.NoError(t, err)
	_, _, err = f.inclusions.AddInclusion(ctx, testScope, "b", "c", 1, testSession)
	require.NoError(t, err)
	_, _, err = f.inclusions.AddInclusion(ctx, testScope, "c", "d", 1, testSession)
	require.NoError(t, err)
	_, _, err = f.memberships.AddMembership(ctx, testScope, "d", "alice", 1, testSession)
	require.NoError(t, err)

	f.resolution.MaxHops = 2

	groups, err := f.resolution.EffectiveGroupsOf(ctx, testScope, "alice")
	require.ErrorIs(t, err, service.ErrResolutionBound)
	require.Nil(t, groups)

	f.resolution.MaxHops = graph.DefaultMaxHops
	groups, err = f.resolution.EffectiveGroupsOf(ctx, testScope, "alice")
	require.NoError(t, err)
	require.Len(t, groups, 4)
}

func TestRemoveInclusionRestoresDirectView(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.createGroup(t, "admins")
	f.createGroup(t, "ops")

	edge, _, err := f.inclusions.AddInclusion(ctx, testScope, "admins", "ops", 1, testSession)
	require.NoError(t, err)
	_, _, err = f.memberships.AddMembership(ctx, testScope, "ops", "bob", 1, testSession)
	require.NoError(t, err)

	require.NoError(t, f.inclusions.RemoveInclusion(ctx, testScope, "admins", "ops", edge.Revision, testSession))

	members, err := f.resolution.EffectiveMembersOf(ctx, testScope, "admins")
	require.NoError(t, err)
	require.Empty(t, members)

	require.ErrorIs(t,
		f.inclusions.RemoveInclusion(ctx, testScope, "admins", "ops", edge.Revision, testSession),
		store.ErrNotFound)
}

func TestRemoveMembership(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.createGroup(t, "ops")

	edge, _, err := f.memberships.AddMembership(ctx, testScope, "ops", "bob", 1, testSession)
	require.NoError(t, err)

	// A stale edge revision is rejected before anything changes.
	err = f.memberships.RemoveMembership(ctx, testScope, "ops", "bob", edge.Revision+1, testSession)
	require.ErrorIs(t, err, service.ErrRevisionConflict)

	require.NoError(t, f.memberships.RemoveMembership(ctx, testScope, "ops", "bob", edge.Revision, testSession))

	groups, err := f.resolution.EffectiveGroupsOf(ctx, testScope, "bob")
	require.NoError(t, err)
	require.Empty(t, groups)
}

func TestDeleteGroupRejectsReferenced(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.createGroup(t, "admins")
	f.createGroup(t, "ops")

	_, rev, err := f.inclusions.AddInclusion(ctx, testScope, "admins", "ops", 1, testSession)
	require.NoError(t, err)

	// Referenced as container.
	err = f.groups.DeleteGroup(ctx, "admins", rev, testSession)
	require.ErrorIs(t, err, service.ErrGroupReferenced)

	// Referenced as subgroup.
	err = f.groups.DeleteGroup(ctx, "ops", 1, testSession)
	require.ErrorIs(t, err, service.ErrGroupReferenced)

	edge, err := f.store.Inclusions().Find(ctx, testScope, "admins", "ops")
	require.NoError(t, err)
	require.NoError(t, f.inclusions.RemoveInclusion(ctx, testScope, "admins", "ops", edge.Revision, testSession))

	require.NoError(t, f.groups.DeleteGroup(ctx, "ops", 1, testSession))
	_, err = f.groups.GetGroup(ctx, "ops")
	require.ErrorIs(t, err, store.ErrNotFound)
}

func TestAuditTrailCoversEveryMutation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	f.createGroup(t, "admins")
	_, err := f.groups.RenameGroup(ctx, "admins", 1, "Platform Admins", testSession)
	require.NoError(t, err)

	// A rejected write leaves no trail.
	_, err = f.groups.RenameGroup(ctx, "admins", 1, "Stale", testSession)
	require.ErrorIs(t, err, service.ErrRevisionConflict)

	records, err := f.audit.RecordsFor(ctx, "admins")
	require.NoError(t, err)
	require.Len(t, records, 2)

	require.Equal(t, domain.ActionCreate, records[0].Action)
	require.Equal(t, int64(1), records[0].Revision)
	require.Equal(t, domain.ActionUpdate, records[1].Action)
	require.Equal(t, int64(2), records[1].Revision)
	require.LessOrEqual(t, records[0].RecordedAt, records[1].RecordedAt)
	for _, rec := range records {
		require.Equal(t, testScope, rec.ScopeID)
		require.Equal(t, testSession, rec.SessionID)
		require.Equal(t, "group", rec.SubjectKind)
	}

	require.NoError(t, f.audit.VerifyTrail(ctx, "admins"))
}

func TestAddInclusionAuditsContainerAndEdge(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.createGroup(t, "admins")
	f.createGroup(t, "ops")

	edge, rev, err := f.inclusions.AddInclusion(ctx, testScope, "admins", "ops", 1, testSession)
	require.NoError(t, err)
	require.Equal(t, int64(2), rev)

	containerTrail, err := f.audit.RecordsFor(ctx, "admins")
	require.NoError(t, err)
	require.Len(t, containerTrail, 2) // create + structural bump
	require.Equal(t, domain.ActionUpdate, containerTrail[1].Action)
	require.Equal(t, int64(2), containerTrail[1].Revision)

	edgeTrail, err := f.audit.RecordsFor(ctx, edge.ID)
	require.NoError(t, err)
	require.Len(t, edgeTrail, 1)
	require.Equal(t, domain.ActionCreate, edgeTrail[0].Action)
	require.Equal(t, "inclusion", edgeTrail[0].SubjectKind)
	require.NoError(t, f.audit.VerifyTrail(ctx, edge.ID))
}

func TestDeleteAuditCarriesFinalSnapshot(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.createGroup(t, "temp")

	require.NoError(t, f.groups.DeleteGroup(ctx, "temp", 1, testSession))

	records, err := f.audit.RecordsFor(ctx, "temp")
	require.NoError(t, err)
	require.Len(t, records, 2)
	require.Equal(t, domain.ActionDelete, records[1].Action)
	require.Equal(t, int64(1), records[1].Revision)
	require.Contains(t, records[1].Snapshot, `"name":"temp"`)
	require.NoError(t, f.audit.VerifyTrail(ctx, "temp"))
}
