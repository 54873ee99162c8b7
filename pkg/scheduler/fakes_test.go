package scheduler

import (
	"context"
	"errors"
	"sync"

	"github.com/doodlesbykumbi/directory-sync/pkg/audit"
	"github.com/doodlesbykumbi/directory-sync/pkg/directory"
	"github.com/doodlesbykumbi/directory-sync/pkg/mapping"
	"github.com/doodlesbykumbi/directory-sync/pkg/model"
	"github.com/doodlesbykumbi/directory-sync/pkg/reconcile"
	"github.com/doodlesbykumbi/directory-sync/pkg/store"
)

var _ store.RecordStore = (*memStore)(nil)

// memStore keeps saved records by external id.
type memStore struct {
	mu      sync.Mutex
	model   string
	records map[string]reconcile.Record
	saves   int
	saveErr error
}

func newMemStore(model string) *memStore {
	return &memStore{model: model, records: make(map[string]reconcile.Record)}
}

func (s *memStore) FindByExternalIDs(ctx context.Context, ids []string) ([]reconcile.Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]reconcile.Record, 0, len(ids))
	for _, id := range ids {
		if rec, ok := s.records[id]; ok {
			out = append(out, rec)
		}
	}
	return out, nil
}

func (s *memStore) New() reconcile.Record {
	if s.model == model.GroupModel {
		return &model.Group{}
	}
	return &model.User{}
}

func (s *memStore) Save(ctx context.Context, recs ...reconcile.Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.saveErr != nil {
		return s.saveErr
	}
	s.saves++
	for _, rec := range recs {
		if rec.ModelName() != s.model {
			return store.ErrRecordType
		}
		s.records[rec.ExternalID()] = rec
	}
	return nil
}

func (s *memStore) Count(ctx context.Context) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return int64(len(s.records)), nil
}

type auditRecorder struct {
	mu     sync.Mutex
	events []audit.Event
}

func (a *auditRecorder) log(e audit.Event) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.events = append(a.events, e)
}

func (a *auditRecorder) all() []audit.Event {
	a.mu.Lock()
	defer a.mu.Unlock()
	out := make([]audit.Event, len(a.events))
	copy(out, a.events)
	return out
}

type fixture struct {
	dir      *directory.Static
	registry *reconcile.Registry
	users    *memStore
	groups   *memStore
	audit    *auditRecorder
}

func newFixture(opts ...reconcile.Option) (*fixture, []Job, error) {
	f := &fixture{
		dir: directory.NewStatic(),
		registry: reconcile.NewRegistry(mapping.NewSet(map[string]map[string]string{
			"user":  {"object_guid": "objectGUID", "login": "sAMAccountName", "email": "mail"},
			"group": {"object_guid": "objectGUID", "name": "cn"},
		})),
		users:  newMemStore(model.UserModel),
		groups: newMemStore(model.GroupModel),
		audit:  &auditRecorder{},
	}
	for _, spec := range []reconcile.ModelSpec{
		{Name: model.GroupModel, ExternalIDField: "object_guid", Store: f.groups},
		{Name: model.UserModel, ExternalIDField: "object_guid", Store: f.users},
	} {
		if err := f.registry.Register(spec); err != nil {
			return nil, nil, err
		}
	}
	if err := f.registry.Relate(model.UserModel, reconcile.RoleMemberOf, "groups", model.GroupModel); err != nil {
		return nil, nil, err
	}
	if err := f.registry.Relate(model.GroupModel, reconcile.RoleMemberUsers, "users", model.UserModel); err != nil {
		return nil, nil, err
	}

	f.dir.Add("group", &directory.Object{
		ExternalID: "g-1",
		DN:         "CN=Admins,OU=Groups,DC=example,DC=com",
		Attributes: map[string]any{"cn": "Admins", "member": []string{"u-1"}},
	})
	f.dir.Add("user",
		&directory.Object{
			ExternalID: "u-1",
			DN:         "CN=alice,OU=People,DC=example,DC=com",
			Attributes: map[string]any{"sAMAccountName": "alice", "mail": "alice@example.com", "memberOf": []string{"g-1"}},
		},
		&directory.Object{
			ExternalID: "u-2",
			DN:         "CN=bob,OU=People,DC=example,DC=com",
			Attributes: map[string]any{"sAMAccountName": "bob"},
		},
	)

	var jobs []Job
	for _, name := range []string{model.GroupModel, model.UserModel} {
		runner, err := reconcile.NewRunner(f.registry, f.dir, name, opts...)
		if err != nil {
			return nil, nil, err
		}
		st := f.users
		if name == model.GroupModel {
			st = f.groups
		}
		jobs = append(jobs, Job{Runner: runner, Store: st})
	}
	return f, jobs, nil
}

var errBoom = errors.New("boom")
