package domain

import "time"

// InitialRevision is the revision every freshly created entity starts at.
const InitialRevision int64 = 1

// Versioned carries the identity, scope and optimistic-concurrency columns
// shared by every versioned entity. Embed it; the pointer methods are what
// the revision guard works against.
type Versioned struct {
	ID        string
	ScopeID   string // cluster or tenant; partitions the graph
	Revision  int64
	CreatedBy string
	CreatedAt time.Time
	UpdatedBy string
	UpdatedAt time.Time
}

func (v *Versioned) EntityID() string      { return v.ID }
func (v *Versioned) EntityScope() string   { return v.ScopeID }
func (v *Versioned) EntityRevision() int64 { return v.Revision }

func (v *Versioned) SetID(id string) { v.ID = id }

// Init stamps a brand new entity: revision 1, created and updated both set.
func (v *Versioned) Init(by string, at time.Time) {
	v.Revision = InitialRevision
	v.CreatedBy = by
	v.CreatedAt = at
	v.UpdatedBy = by
	v.UpdatedAt = at
}

// Stamp records a successful mutation at the given revision.
func (v *Versioned) Stamp(rev int64, by string, at time.Time) {
	v.Revision = rev
	v.UpdatedBy = by
	v.UpdatedAt = at
}
