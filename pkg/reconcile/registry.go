package reconcile

import (
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/doodlesbykumbi/directory-sync/pkg/directory"
	"github.com/doodlesbykumbi/directory-sync/pkg/mapping"
)

// ModelSpec declares a local model taking part in directory sync.
type ModelSpec struct {
	// Name identifies the model, e.g. "user"
	Name string
	// DirectoryClass is the class searched in the directory; defaults to Name
	DirectoryClass string
	// ExternalIDField is the local field holding the external identifier
	ExternalIDField string
	// Store persists records of the model
	Store Store
}

// Relationship declares which local field and target model a role fills.
type Relationship struct {
	Role   Role
	Field  string
	Target string
}

// Model is a registered ModelSpec with its relationships.
type Model struct {
	ModelSpec
	relationships map[Role]Relationship
}

// Relationship returns the declaration for role, if any.
func (m *Model) Relationship(role Role) (Relationship, bool) {
	rel, ok := m.relationships[role]
	return rel, ok
}

// Relationships returns the declared relationships ordered by role.
func (m *Model) Relationships() []Relationship {
	out := make([]Relationship, 0, len(m.relationships))
	for _, role := range RoleValues() {
		if rel, ok := m.relationships[role]; ok {
			out = append(out, rel)
		}
	}
	return out
}

// Registry holds the models and relationship declarations of a process.
// Declarations happen once at startup; afterwards the registry is read-only.
type Registry struct {
	mu                sync.RWMutex
	models            map[string]*Model
	mappings          *mapping.Set
	idAttribute       string
	memberAttribute   string
	memberOfAttribute string
}

// NewRegistry creates a registry using mappings for attribute translation.
// A nil set translates every model by identity.
func NewRegistry(mappings *mapping.Set) *Registry {
	if mappings == nil {
		mappings = mapping.NewSet(nil)
	}
	return &Registry{
		models:            make(map[string]*Model),
		mappings:          mappings,
		idAttribute:       directory.DefaultIDAttribute,
		memberAttribute:   directory.DefaultMemberAttribute,
		memberOfAttribute: directory.DefaultMemberOfAttribute,
	}
}

// WithIDAttribute sets the directory attribute searched when a record is
// looked up by its external identifier.
func (r *Registry) WithIDAttribute(attr string) *Registry {
	r.mu.Lock()
	defer r.mu.Unlock()
	if attr != "" {
		r.idAttribute = attr
	}
	return r
}

// IDAttribute returns the directory attribute holding external identifiers.
func (r *Registry) IDAttribute() string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.idAttribute
}

// WithMembershipAttributes sets the directory attributes holding the
// contained objects and the containing groups.
func (r *Registry) WithMembershipAttributes(member, memberOf string) *Registry {
	r.mu.Lock()
	defer r.mu.Unlock()
	if member != "" {
		r.memberAttribute = member
	}
	if memberOf != "" {
		r.memberOfAttribute = memberOf
	}
	return r
}

// MembershipAttributes returns the member and member-of attribute names.
func (r *Registry) MembershipAttributes() (member, memberOf string) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.memberAttribute, r.memberOfAttribute
}

// Register adds a model. Mapped fields are checked against the record schema
// when the model's records implement Schema.
func (r *Registry) Register(spec ModelSpec) error {
	if spec.Name == "" {
		return fmt.Errorf("%w: model name is required", ErrConfiguration)
	}
	if spec.Store == nil {
		return fmt.Errorf("%w: model %q has no store", ErrConfiguration, spec.Name)
	}
	if spec.DirectoryClass == "" {
		spec.DirectoryClass = spec.Name
	}

	attrs, err := r.mappings.For(spec.Name)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrConfiguration, err)
	}
	if schema, ok := spec.Store.New().(Schema); ok {
		for _, pair := range attrs.Pairs() {
			if !schema.HasField(pair.Local) {
				return fmt.Errorf("%w: model %q has no field %q mapped from %q",
					ErrConfiguration, spec.Name, pair.Local, pair.Directory)
			}
		}
		if spec.ExternalIDField != "" && !schema.HasField(spec.ExternalIDField) {
			return fmt.Errorf("%w: model %q has no external id field %q",
				ErrConfiguration, spec.Name, spec.ExternalIDField)
		}
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.models[spec.Name]; exists {
		return fmt.Errorf("%w: model %q registered twice", ErrConfiguration, spec.Name)
	}
	r.models[spec.Name] = &Model{
		ModelSpec:     spec,
		relationships: make(map[Role]Relationship),
	}
	return nil
}

// Relate declares that model fills field with records of target for role.
// The target must already be registered, which is how it declares support
// for directory sync. An empty target is derived from field with DefaultTarget.
func (r *Registry) Relate(model string, role Role, field, target string) error {
	if !role.IsARole() {
		return fmt.Errorf("%w: invalid relationship role %v", ErrConfiguration, role)
	}
	if field == "" {
		return fmt.Errorf("%w: %s of %q needs a field", ErrConfiguration, role, model)
	}
	if target == "" {
		target = DefaultTarget(field)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	m, ok := r.models[model]
	if !ok {
		return fmt.Errorf("%w: %s declared on unregistered model %q", ErrConfiguration, role, model)
	}
	if _, ok := r.models[target]; !ok {
		return fmt.Errorf("%w: %q does not support directory sync (target of %s.%s)",
			ErrConfiguration, target, model, role)
	}
	if schema, ok := m.Store.New().(Schema); ok && !schema.HasRelation(field) {
		return fmt.Errorf("%w: model %q has no relationship field %q", ErrConfiguration, model, field)
	}

	m.relationships[role] = Relationship{Role: role, Field: field, Target: target}
	return nil
}

// Model returns a registered model.
func (r *Registry) Model(name string) (*Model, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	m, ok := r.models[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownModel, name)
	}
	return m, nil
}

// Models returns the registered model names in sorted order.
func (r *Registry) Models() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.models))
	for name := range r.models {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// AttributeMap returns the attribute map of a model.
func (r *Registry) AttributeMap(name string) (*mapping.AttributeMap, error) {
	return r.mappings.For(name)
}

// DefaultTarget derives a model name from a relationship field by
// singularizing it: "groups" gives "group", "policies" gives "policy".
func DefaultTarget(field string) string {
	name := strings.ToLower(field)
	switch {
	case strings.HasSuffix(name, "ies") && len(name) > 3:
		return strings.TrimSuffix(name, "ies") + "y"
	case strings.HasSuffix(name, "sses"), strings.HasSuffix(name, "xes"),
		strings.HasSuffix(name, "ches"), strings.HasSuffix(name, "shes"):
		return strings.TrimSuffix(name, "es")
	case strings.HasSuffix(name, "s") && !strings.HasSuffix(name, "ss"):
		return strings.TrimSuffix(name, "s")
	}
	return name
}
