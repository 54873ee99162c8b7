// Package directory defines the view the reconciliation engine has of an
// external directory service (Active Directory or any LDAP-style server).
//
// A directory is reached through a Gateway. A Gateway runs attribute-filter
// searches scoped to a directory class ("user", "group") and returns Objects:
// attribute bags addressed by a stable external identifier.
//
// # Gateways
//
//   - ldap.Gateway: a go-ldap backed gateway for Active Directory, see
//     [github.com/doodlesbykumbi/directory-sync/pkg/directory/ldap]
//   - Static: an in-memory directory loaded from YAML fixtures, used for
//     offline runs and the feature test suite
//
// # Memberships
//
// Relationship attributes ("member", "memberOf") carry the external
// identifiers of other objects. Object.Membership reports them as a
// three-state value so callers can tell an absent attribute from an empty
// one:
//
//	switch m := obj.Membership("member"); m.State {
//	case directory.MembershipAbsent:
//	    // leave the local field alone
//	case directory.MembershipEmpty, directory.MembershipPopulated:
//	    // overwrite the local field with m.IDs
//	}
package directory
