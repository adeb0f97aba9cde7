package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/aussiebroadwan/secgroups/internal/authz/domain"
	"github.com/aussiebroadwan/secgroups/internal/authz/store"
	"github.com/aussiebroadwan/secgroups/pkg/snapshot"
)

// maxAppendAttempts bounds how many microsecond advances the recorder will
// try before giving up on a pathological timestamp collision run.
const maxAppendAttempts = 128

// Subject is what the recorder needs from a mutated entity. The domain
// entity pointer types satisfy it.
type Subject interface {
	EntityID() string
	EntityScope() string
	EntityRevision() int64
	Kind() string
	Columns() map[string]any
}

// Recorder appends one immutable audit row per successful mutation. Always
// called inside the mutation's transaction: if the write rolls back, so does
// the audit row, and a failed mutation leaves no trail.
type Recorder struct {
	// Now is injectable for tests; defaults to time.Now.
	Now func() time.Time
}

// Record builds and appends the audit row for one mutation of subject. If
// the composite key collides with an existing row the timestamp advances to
// the next representable microsecond and the append retries; audit rows are
// never overwritten.
func (r *Recorder) Record(
	ctx context.Context,
	audit store.Audit,
	action domain.AuditAction,
	subject Subject,
	sessionID string,
) (domain.AuditRecord, error) {
	now := time.Now
	if r != nil && r.Now != nil {
		now = r.Now
	}

	snap, err := snapshot.Marshal(subject.Columns())
	if err != nil {
		return domain.AuditRecord{}, err
	}

	rec := domain.AuditRecord{
		ScopeID:     subject.EntityScope(),
		RecordedAt:  now().UTC().UnixMicro(),
		Action:      action,
		Revision:    subject.EntityRevision(),
		SessionID:   sessionID,
		SubjectID:   subject.EntityID(),
		SubjectKind: subject.Kind(),
		Snapshot:    snap,
		Fingerprint: snapshot.Fingerprint(snap),
	}

	for attempt := 0; attempt < maxAppendAttempts; attempt++ {
		err := audit.Append(ctx, rec)
		if err == nil {
			return rec, nil
		}
		if !errors.Is(err, store.ErrAlreadyExists) {
			return domain.AuditRecord{}, err
		}
		rec.RecordedAt++ // next representable instant
	}

	return domain.AuditRecord{}, fmt.Errorf(
		"audit append for %s %s: composite key still colliding after %d attempts",
		rec.SubjectKind, rec.SubjectID, maxAppendAttempts)
}
