package sqlite

import (
	"context"

	"github.com/aussiebroadwan/secgroups/internal/authz/domain"
)

type auditRepo struct {
	db dbtx
}

func (r *auditRepo) Append(ctx context.Context, rec domain.AuditRecord) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO audit_records
		   (scope_id, recorded_at, action, revision, session_id, subject_id, subject_kind, snapshot, fingerprint)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.ScopeID, rec.RecordedAt, string(rec.Action), rec.Revision,
		rec.SessionID, rec.SubjectID, rec.SubjectKind, rec.Snapshot, rec.Fingerprint,
	)
	return mapConflict(err)
}

func (r *auditRepo) ListBySubject(ctx context.Context, subjectID string) ([]domain.AuditRecord, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT scope_id, recorded_at, action, revision, session_id, subject_id, subject_kind, snapshot, fingerprint
		   FROM audit_records
		  WHERE subject_id = ?
		  ORDER BY recorded_at ASC, revision ASC`, subjectID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []domain.AuditRecord
	for rows.Next() {
		var rec domain.AuditRecord
		var action string
		if err := rows.Scan(
			&rec.ScopeID, &rec.RecordedAt, &action, &rec.Revision,
			&rec.SessionID, &rec.SubjectID, &rec.SubjectKind, &rec.Snapshot, &rec.Fingerprint,
		); err != nil {
			return nil, err
		}
		rec.Action = domain.AuditAction(action)
		records = append(records, rec)
	}
	return records, rows.Err()
}
