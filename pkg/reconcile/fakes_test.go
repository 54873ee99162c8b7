package reconcile

import (
	"context"
	"fmt"
	"sync"

	"github.com/doodlesbykumbi/directory-sync/pkg/directory"
	"github.com/doodlesbykumbi/directory-sync/pkg/mapping"
)

type fakeRecord struct {
	model     string
	idField   string
	fields    map[string]any
	relations map[string][]Record
	schema    map[string]bool
	relSchema map[string]bool
}

var (
	_ Record = (*fakeRecord)(nil)
	_ Schema = (*fakeRecord)(nil)
)

func (r *fakeRecord) ModelName() string { return r.model }

func (r *fakeRecord) ExternalID() string {
	id, _ := r.fields[r.idField].(string)
	return id
}

func (r *fakeRecord) Field(name string) (any, bool) {
	v, ok := r.fields[name]
	return v, ok
}

func (r *fakeRecord) SetField(name string, value any) error {
	if r.schema != nil && !r.schema[name] {
		return fmt.Errorf("no field %q", name)
	}
	r.fields[name] = value
	return nil
}

func (r *fakeRecord) SetRelation(field string, refs []Record) error {
	r.relations[field] = refs
	return nil
}

func (r *fakeRecord) HasField(name string) bool {
	return r.schema == nil || r.schema[name]
}

func (r *fakeRecord) HasRelation(field string) bool {
	return r.relSchema == nil || r.relSchema[field]
}

func (r *fakeRecord) externalIDs(field string) []string {
	out := make([]string, 0, len(r.relations[field]))
	for _, ref := range r.relations[field] {
		out = append(out, ref.ExternalID())
	}
	return out
}

type fakeStore struct {
	mu        sync.Mutex
	model     string
	idField   string
	records   []*fakeRecord
	lookups   [][]string
	err       error
	schema    map[string]bool
	relSchema map[string]bool
}

var _ Store = (*fakeStore)(nil)

func newFakeStore(model string) *fakeStore {
	return &fakeStore{model: model, idField: "object_guid"}
}

func (s *fakeStore) FindByExternalIDs(ctx context.Context, ids []string) ([]Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lookups = append(s.lookups, append([]string(nil), ids...))
	if s.err != nil {
		return nil, s.err
	}

	wanted := make(map[string]bool, len(ids))
	for _, id := range ids {
		wanted[id] = true
	}
	var out []Record
	// Reverse order so callers cannot rely on store order.
	for i := len(s.records) - 1; i >= 0; i-- {
		if wanted[s.records[i].ExternalID()] {
			out = append(out, s.records[i])
		}
	}
	return out, nil
}

func (s *fakeStore) New() Record {
	return &fakeRecord{
		model:     s.model,
		idField:   s.idField,
		fields:    make(map[string]any),
		relations: make(map[string][]Record),
		schema:    s.schema,
		relSchema: s.relSchema,
	}
}

func (s *fakeStore) add(id string, fields map[string]any) *fakeRecord {
	rec := s.New().(*fakeRecord)
	for k, v := range fields {
		rec.fields[k] = v
	}
	rec.fields[s.idField] = id
	s.records = append(s.records, rec)
	return rec
}

func (s *fakeStore) lookupCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.lookups)
}

var testMappings = map[string]map[string]string{
	"user": {
		"login":       "sAMAccountName",
		"email":       "mail",
		"object_guid": "objectGUID",
	},
	"group": {
		"name": "cn",
	},
}

type fixture struct {
	registry *Registry
	users    *fakeStore
	groups   *fakeStore
	dir      *directory.Static
}

// newFixture registers user and group with the usual AD relationships.
func newFixture() (*fixture, error) {
	f := &fixture{
		registry: NewRegistry(mapping.NewSet(testMappings)),
		users:    newFakeStore("user"),
		groups:   newFakeStore("group"),
		dir:      directory.NewStatic(),
	}
	if err := f.registry.Register(ModelSpec{Name: "user", ExternalIDField: "object_guid", Store: f.users}); err != nil {
		return nil, err
	}
	if err := f.registry.Register(ModelSpec{Name: "group", ExternalIDField: "object_guid", Store: f.groups}); err != nil {
		return nil, err
	}
	for _, rel := range []struct {
		model  string
		role   Role
		field  string
		target string
	}{
		{"user", RoleMemberOf, "groups", "group"},
		{"group", RoleMemberOf, "parent_groups", "group"},
		{"group", RoleMemberUsers, "users", "user"},
		{"group", RoleMemberGroups, "subgroups", "group"},
	} {
		if err := f.registry.Relate(rel.model, rel.role, rel.field, rel.target); err != nil {
			return nil, err
		}
	}
	return f, nil
}

func userObject(id, login string, attrs map[string]any) *directory.Object {
	all := map[string]any{"sAMAccountName": login, "objectGUID": id}
	for k, v := range attrs {
		all[k] = v
	}
	return &directory.Object{
		ExternalID: id,
		DN:         "CN=" + login + ",OU=People,DC=example,DC=com",
		Attributes: all,
	}
}
