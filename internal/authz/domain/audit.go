package domain

import "time"

// AuditAction is the kind of mutation an audit record captures.
type AuditAction string

const (
	ActionCreate AuditAction = "create"
	ActionUpdate AuditAction = "update"
	ActionDelete AuditAction = "delete"
)

// AuditRecord is one immutable row of the audit trail. The composite key
// (scope, recorded_at, action, revision, session, subject) must be unique;
// on a collision the recorder advances RecordedAt to the next microsecond
// and retries rather than ever overwriting.
type AuditRecord struct {
	ScopeID    string
	RecordedAt int64 // unix microseconds; part of the composite key
	Action     AuditAction
	Revision   int64 // subject's revision after the action (pre-delete revision for deletes)
	SessionID  string
	SubjectID  string

	SubjectKind string
	Snapshot    string // canonical JSON of the subject's mutable columns
	Fingerprint string // BLAKE2b-256 of Snapshot
}

// Time returns RecordedAt as a time.Time in UTC.
func (r AuditRecord) Time() time.Time {
	return time.UnixMicro(r.RecordedAt).UTC()
}
