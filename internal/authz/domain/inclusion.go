package domain

// Inclusion is a directed group-include edge: the container group pulls in
// every effective member of the subgroup. Unique per (scope, container,
// subgroup); container and subgroup are always distinct, and the per-scope
// edge set stays acyclic. Both invariants are enforced at write time.
type Inclusion struct {
	Versioned

	ContainerID string // the including group
	SubgroupID  string // the included group
}

// KindInclusion identifies inclusion subjects in audit records.
const KindInclusion = "inclusion"

func (i *Inclusion) Kind() string { return KindInclusion }

// Columns returns the mutable columns captured in audit snapshots.
func (i *Inclusion) Columns() map[string]any {
	return map[string]any{
		"container_id": i.ContainerID,
		"subgroup_id":  i.SubgroupID,
	}
}
