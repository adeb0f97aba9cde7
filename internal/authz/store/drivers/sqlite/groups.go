package sqlite

import (
	"context"

	"github.com/aussiebroadwan/secgroups/internal/authz/domain"
)

type groupsRepo struct {
	db dbtx
}

const groupColumns = `id, scope_id, name, visible, revision, created_by, created_at, updated_by, updated_at`

func scanGroup(row interface{ Scan(...any) error }) (domain.Group, error) {
	var g domain.Group
	err := row.Scan(
		&g.ID, &g.ScopeID, &g.Name, &g.Visible, &g.Revision,
		&g.CreatedBy, &g.CreatedAt, &g.UpdatedBy, &g.UpdatedAt,
	)
	return g, err
}

func (r *groupsRepo) Get(ctx context.Context, id string) (domain.Group, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+groupColumns+` FROM sec_groups WHERE id = ?`, id)

	g, err := scanGroup(row)
	if err != nil {
		return domain.Group{}, mapNotFound(err)
	}
	return g, nil
}

func (r *groupsRepo) GetByName(ctx context.Context, scopeID, name string) (domain.Group, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+groupColumns+` FROM sec_groups WHERE scope_id = ? AND name = ?`, scopeID, name)

	g, err := scanGroup(row)
	if err != nil {
		return domain.Group{}, mapNotFound(err)
	}
	return g, nil
}

func (r *groupsRepo) ListByScope(ctx context.Context, scopeID string) ([]domain.Group, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+groupColumns+` FROM sec_groups WHERE scope_id = ? ORDER BY id`, scopeID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var groups []domain.Group
	for rows.Next() {
		g, err := scanGroup(rows)
		if err != nil {
			return nil, err
		}
		groups = append(groups, g)
	}
	return groups, rows.Err()
}

func (r *groupsRepo) Insert(ctx context.Context, g domain.Group) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO sec_groups (`+groupColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		g.ID, g.ScopeID, g.Name, g.Visible, g.Revision,
		g.CreatedBy, g.CreatedAt, g.UpdatedBy, g.UpdatedAt,
	)
	return mapConflict(err)
}

func (r *groupsRepo) Update(ctx context.Context, g domain.Group) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE sec_groups
		    SET name = ?, visible = ?, revision = ?, updated_by = ?, updated_at = ?
		  WHERE id = ?`,
		g.Name, g.Visible, g.Revision, g.UpdatedBy, g.UpdatedAt, g.ID,
	)
	return mapConflict(err)
}

func (r *groupsRepo) Delete(ctx context.Context, id string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM sec_groups WHERE id = ?`, id)
	return err
}

func (r *groupsRepo) CountReferences(ctx context.Context, groupID string) (int64, error) {
	var count int64
	err := r.db.QueryRowContext(ctx,
		`SELECT
		   (SELECT COUNT(*) FROM group_includes WHERE container_id = ?1 OR subgroup_id = ?1)
		 + (SELECT COUNT(*) FROM group_members WHERE group_id = ?1)`,
		groupID,
	).Scan(&count)
	if err != nil {
		return 0, err
	}
	return count, nil
}
