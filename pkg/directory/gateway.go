package directory

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"time"
)

// ErrConnection is returned when the directory cannot be reached or the bind
// credentials are rejected. Reconciliation cannot proceed without a session.
var ErrConnection = errors.New("directory connection failed")

// ErrInvalidFilter is returned when a filter cannot be expressed as a
// directory query, e.g. an attribute name that is not a valid description.
var ErrInvalidFilter = errors.New("invalid directory filter")

// Filter is a set of directory attribute constraints, all of which must match.
// An empty filter selects every object of the searched class.
type Filter map[string]any

// attributeName matches an attribute description: a descriptor or a numeric
// OID, optionally followed by options such as ";binary" or ";range=0-*".
var attributeName = regexp.MustCompile(`^(?:[A-Za-z][A-Za-z0-9-]*|[0-9]+(?:\.[0-9]+)+)(?:;[A-Za-z0-9=*-]+)*$`)

// ValidateAttributeName rejects names that are not attribute descriptions.
func ValidateAttributeName(name string) error {
	if !attributeName.MatchString(name) {
		return fmt.Errorf("%w: %q is not an attribute name", ErrInvalidFilter, name)
	}
	return nil
}

// Validate checks every attribute name of f.
func (f Filter) Validate() error {
	for name := range f {
		if err := ValidateAttributeName(name); err != nil {
			return err
		}
	}
	return nil
}

// Gateway executes attribute-filter searches against a directory service.
type Gateway interface {
	// Connect establishes and authenticates the directory session
	Connect(ctx context.Context) error

	// Connected reports whether a live session exists
	Connected() bool

	// Search returns the objects of class matching filter, in directory order
	Search(ctx context.Context, class string, filter Filter) ([]*Object, error)
}

// Config holds the connection settings for a directory gateway.
// Fields a gateway does not understand are passed through untouched.
type Config struct {
	URL          string
	BindDN       string
	BindPassword string
	BaseDN       string

	// IDAttribute is the attribute holding the external identifier
	IDAttribute string
	// MemberAttribute lists the objects a group contains
	MemberAttribute string
	// MemberOfAttribute lists the groups an object belongs to
	MemberOfAttribute string

	PageSize     uint32
	Caching      bool
	CacheSize    int
	CacheTTL     time.Duration
	InsecureTLS  bool
	ClassFilters map[string]string
	DialTimeout  time.Duration
}

// Default attribute names used by Active Directory.
const (
	DefaultIDAttribute       = "objectGUID"
	DefaultMemberAttribute   = "member"
	DefaultMemberOfAttribute = "memberOf"
)

// WithDefaults returns a copy of c with empty settings filled in.
func (c Config) WithDefaults() Config {
	if c.IDAttribute == "" {
		c.IDAttribute = DefaultIDAttribute
	}
	if c.MemberAttribute == "" {
		c.MemberAttribute = DefaultMemberAttribute
	}
	if c.MemberOfAttribute == "" {
		c.MemberOfAttribute = DefaultMemberOfAttribute
	}
	if c.PageSize == 0 {
		c.PageSize = 500
	}
	if c.CacheSize == 0 {
		c.CacheSize = 1024
	}
	if c.CacheTTL == 0 {
		c.CacheTTL = 5 * time.Minute
	}
	if c.DialTimeout == 0 {
		c.DialTimeout = 10 * time.Second
	}
	return c
}

// WithCredentials returns a copy of c with the bind credentials replaced by
// any non-empty values given.
func (c Config) WithCredentials(bindDN, bindPassword string) Config {
	if bindDN != "" {
		c.BindDN = bindDN
	}
	if bindPassword != "" {
		c.BindPassword = bindPassword
	}
	return c
}
