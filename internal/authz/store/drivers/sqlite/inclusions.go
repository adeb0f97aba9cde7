package sqlite

import (
	"context"

	"github.com/aussiebroadwan/secgroups/internal/authz/domain"
)

type inclusionsRepo struct {
	db dbtx
}

const inclusionColumns = `id, scope_id, container_id, subgroup_id, revision, created_by, created_at, updated_by, updated_at`

func scanInclusion(row interface{ Scan(...any) error }) (domain.Inclusion, error) {
	var inc domain.Inclusion
	err := row.Scan(
		&inc.ID, &inc.ScopeID, &inc.ContainerID, &inc.SubgroupID, &inc.Revision,
		&inc.CreatedBy, &inc.CreatedAt, &inc.UpdatedBy, &inc.UpdatedAt,
	)
	return inc, err
}

func (r *inclusionsRepo) Get(ctx context.Context, id string) (domain.Inclusion, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+inclusionColumns+` FROM group_includes WHERE id = ?`, id)

	inc, err := scanInclusion(row)
	if err != nil {
		return domain.Inclusion{}, mapNotFound(err)
	}
	return inc, nil
}

func (r *inclusionsRepo) Find(ctx context.Context, scopeID, containerID, subgroupID string) (domain.Inclusion, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+inclusionColumns+` FROM group_includes
		  WHERE scope_id = ? AND container_id = ? AND subgroup_id = ?`,
		scopeID, containerID, subgroupID)

	inc, err := scanInclusion(row)
	if err != nil {
		return domain.Inclusion{}, mapNotFound(err)
	}
	return inc, nil
}

func (r *inclusionsRepo) ListByScope(ctx context.Context, scopeID string) ([]domain.Inclusion, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+inclusionColumns+` FROM group_includes WHERE scope_id = ? ORDER BY id`, scopeID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var edges []domain.Inclusion
	for rows.Next() {
		inc, err := scanInclusion(rows)
		if err != nil {
			return nil, err
		}
		edges = append(edges, inc)
	}
	return edges, rows.Err()
}

func (r *inclusionsRepo) Insert(ctx context.Context, inc domain.Inclusion) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO group_includes (`+inclusionColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		inc.ID, inc.ScopeID, inc.ContainerID, inc.SubgroupID, inc.Revision,
		inc.CreatedBy, inc.CreatedAt, inc.UpdatedBy, inc.UpdatedAt,
	)
	return mapConflict(err)
}

func (r *inclusionsRepo) Update(ctx context.Context, inc domain.Inclusion) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE group_includes
		    SET container_id = ?, subgroup_id = ?, revision = ?, updated_by = ?, updated_at = ?
		  WHERE id = ?`,
		inc.ContainerID, inc.SubgroupID, inc.Revision, inc.UpdatedBy, inc.UpdatedAt, inc.ID,
	)
	return mapConflict(err)
}

func (r *inclusionsRepo) Delete(ctx context.Context, id string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM group_includes WHERE id = ?`, id)
	return err
}
