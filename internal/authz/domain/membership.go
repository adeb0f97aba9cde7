package domain

// Membership places a user directly into a group. Unique per (scope, group,
// user). User ids are opaque identifiers owned by the wider identity service.
type Membership struct {
	Versioned

	GroupID string
	UserID  string
}

// KindMembership identifies membership subjects in audit records.
const KindMembership = "membership"

func (m *Membership) Kind() string { return KindMembership }

// Columns returns the mutable columns captured in audit snapshots.
func (m *Membership) Columns() map[string]any {
	return map[string]any{
		"group_id": m.GroupID,
		"user_id":  m.UserID,
	}
}
