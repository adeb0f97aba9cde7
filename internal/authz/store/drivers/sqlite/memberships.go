package sqlite

import (
	"context"

	"github.com/aussiebroadwan/secgroups/internal/authz/domain"
)

type membershipsRepo struct {
	db dbtx
}

const membershipColumns = `id, scope_id, group_id, user_id, revision, created_by, created_at, updated_by, updated_at`

func scanMembership(row interface{ Scan(...any) error }) (domain.Membership, error) {
	var m domain.Membership
	err := row.Scan(
		&m.ID, &m.ScopeID, &m.GroupID, &m.UserID, &m.Revision,
		&m.CreatedBy, &m.CreatedAt, &m.UpdatedBy, &m.UpdatedAt,
	)
	return m, err
}

func (r *membershipsRepo) Get(ctx context.Context, id string) (domain.Membership, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+membershipColumns+` FROM group_members WHERE id = ?`, id)

	m, err := scanMembership(row)
	if err != nil {
		return domain.Membership{}, mapNotFound(err)
	}
	return m, nil
}

func (r *membershipsRepo) Find(ctx context.Context, scopeID, groupID, userID string) (domain.Membership, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+membershipColumns+` FROM group_members
		  WHERE scope_id = ? AND group_id = ? AND user_id = ?`,
		scopeID, groupID, userID)

	m, err := scanMembership(row)
	if err != nil {
		return domain.Membership{}, mapNotFound(err)
	}
	return m, nil
}

func (r *membershipsRepo) ListByScope(ctx context.Context, scopeID string) ([]domain.Membership, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+membershipColumns+` FROM group_members WHERE scope_id = ? ORDER BY id`, scopeID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var edges []domain.Membership
	for rows.Next() {
		m, err := scanMembership(rows)
		if err != nil {
			return nil, err
		}
		edges = append(edges, m)
	}
	return edges, rows.Err()
}

func (r *membershipsRepo) Insert(ctx context.Context, m domain.Membership) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO group_members (`+membershipColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		m.ID, m.ScopeID, m.GroupID, m.UserID, m.Revision,
		m.CreatedBy, m.CreatedAt, m.UpdatedBy, m.UpdatedAt,
	)
	return mapConflict(err)
}

func (r *membershipsRepo) Update(ctx context.Context, m domain.Membership) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE group_members
		    SET group_id = ?, user_id = ?, revision = ?, updated_by = ?, updated_at = ?
		  WHERE id = ?`,
		m.GroupID, m.UserID, m.Revision, m.UpdatedBy, m.UpdatedAt, m.ID,
	)
	return mapConflict(err)
}

func (r *membershipsRepo) Delete(ctx context.Context, id string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM group_members WHERE id = ?`, id)
	return err
}
