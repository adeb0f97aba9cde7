package domain

// Group is a security group within one scope. Groups may include other
// groups as subgroups (Inclusion) and hold users directly (Membership).
// A group is never physically deleted while any edge still references it.
type Group struct {
	Versioned

	Name    string // display name, unique per scope
	Visible bool
}

// KindGroup identifies group subjects in audit records.
const KindGroup = "group"

func (g *Group) Kind() string { return KindGroup }

// Columns returns the mutable columns captured in audit snapshots.
func (g *Group) Columns() map[string]any {
	return map[string]any{
		"name":    g.Name,
		"visible": g.Visible,
	}
}
