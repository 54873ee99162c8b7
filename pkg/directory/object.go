package directory

import (
	"fmt"
	"strings"
)

// Object is a directory entry returned by a Gateway search.
// It is transient: fetched on demand and discarded after reconciliation.
type Object struct {
	// ExternalID is the immutable identifier correlating the entry with a local record
	ExternalID string
	// DN is the distinguished name of the entry, if the directory has one
	DN string
	// Attributes holds single values as string and multi values as []string
	Attributes map[string]any
}

// MembershipState distinguishes an absent relationship attribute from an empty one.
type MembershipState int

const (
	MembershipAbsent MembershipState = iota
	MembershipEmpty
	MembershipPopulated
)

func (s MembershipState) String() string {
	switch s {
	case MembershipEmpty:
		return "empty"
	case MembershipPopulated:
		return "populated"
	default:
		return "absent"
	}
}

// Membership is the value of a relationship attribute.
type Membership struct {
	State MembershipState
	IDs   []string
}

// Present reports whether the relationship attribute was returned as a sequence.
func (m Membership) Present() bool {
	return m.State != MembershipAbsent
}

// Get returns the value of attr, or nil when the entry does not carry it.
// Attribute names are matched case-insensitively as LDAP does.
func (o *Object) Get(attr string) any {
	v, _ := o.lookup(attr)
	return v
}

// Has reports whether the entry carries attr.
func (o *Object) Has(attr string) bool {
	_, ok := o.lookup(attr)
	return ok
}

// Membership returns the relationship attribute attr as a three-state value.
// A missing attribute, or one whose value is not a sequence, is absent.
func (o *Object) Membership(attr string) Membership {
	v, ok := o.lookup(attr)
	if !ok {
		return Membership{State: MembershipAbsent}
	}

	ids, ok := stringSlice(v)
	if !ok {
		return Membership{State: MembershipAbsent}
	}
	if len(ids) == 0 {
		return Membership{State: MembershipEmpty, IDs: []string{}}
	}
	return Membership{State: MembershipPopulated, IDs: ids}
}

func (o *Object) String() string {
	if o == nil {
		return "<nil>"
	}
	if o.DN != "" {
		return fmt.Sprintf("%s (%s)", o.ExternalID, o.DN)
	}
	return o.ExternalID
}

func (o *Object) lookup(attr string) (any, bool) {
	if o == nil || o.Attributes == nil {
		return nil, false
	}
	if v, ok := o.Attributes[attr]; ok {
		return v, true
	}
	for name, v := range o.Attributes {
		if strings.EqualFold(name, attr) {
			return v, true
		}
	}
	return nil, false
}

// stringSlice copies v into a []string when it is a sequence of strings.
func stringSlice(v any) ([]string, bool) {
	switch vs := v.(type) {
	case []string:
		out := make([]string, len(vs))
		copy(out, vs)
		return out, true
	case []any:
		out := make([]string, 0, len(vs))
		for _, item := range vs {
			s, ok := item.(string)
			if !ok {
				return nil, false
			}
			out = append(out, s)
		}
		return out, true
	default:
		return nil, false
	}
}
