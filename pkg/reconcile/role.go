package reconcile

//go:generate go run github.com/dmarkham/enumer -type Role -trimprefix Role -transform snake -yaml -output role.gen.go

// Role names the slot a directory relationship attribute resolves into.
type Role int

const (
	// RoleMemberOf holds the groups a record belongs to
	RoleMemberOf Role = iota
	// RoleMemberUsers holds the users a record contains
	RoleMemberUsers
	// RoleMemberGroups holds the groups a record contains
	RoleMemberGroups
)

// Containment reports whether the role is filled from the member attribute
// rather than the member-of attribute.
func (r Role) Containment() bool {
	return r == RoleMemberUsers || r == RoleMemberGroups
}
