package service

import (
	"context"
	"fmt"

	"github.com/aussiebroadwan/secgroups/internal/authz/domain"
	"github.com/aussiebroadwan/secgroups/internal/authz/store"
	"github.com/aussiebroadwan/secgroups/pkg/snapshot"
)

// AuditService is the read side of the audit trail, exposed to compliance
// tooling. It never writes; appends happen exclusively through Recorder
// inside mutation transactions.
type AuditService struct {
	Store store.Store
}

// RecordsFor returns every audit row for the subject ordered by timestamp.
func (s *AuditService) RecordsFor(ctx context.Context, subjectID string) ([]domain.AuditRecord, error) {
	return s.Store.Audit().ListBySubject(ctx, subjectID)
}

// VerifyTrail re-fingerprints every snapshot in the subject's trail and
// reports the first record whose stored fingerprint no longer matches.
// Returns nil when the whole trail is intact.
func (s *AuditService) VerifyTrail(ctx context.Context, subjectID string) error {
	records, err := s.Store.Audit().ListBySubject(ctx, subjectID)
	if err != nil {
		return err
	}

	for _, rec := range records {
		if !snapshot.Verify(rec.Snapshot, rec.Fingerprint) {
			return fmt.Errorf("audit trail for %s: record at %d (%s rev %d) failed fingerprint check",
				subjectID, rec.RecordedAt, rec.Action, rec.Revision)
		}
	}
	return nil
}
