package endpoints

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/doodlesbykumbi/directory-sync/pkg/audit"
	"github.com/doodlesbykumbi/directory-sync/pkg/bootstrap"
	"github.com/doodlesbykumbi/directory-sync/pkg/config"
	"github.com/doodlesbykumbi/directory-sync/pkg/model"
	"github.com/doodlesbykumbi/directory-sync/pkg/reconcile"
	"github.com/doodlesbykumbi/directory-sync/pkg/server"
	"github.com/doodlesbykumbi/directory-sync/pkg/store"
)

const testDirectory = `
group:
  - id: g-1
    dn: CN=Admins,OU=Groups,DC=example,DC=com
    attributes:
      cn: Admins
      member: [u-1, u-2]
user:
  - id: u-1
    dn: CN=alice,OU=People,DC=example,DC=com
    attributes:
      sAMAccountName: alice
      mail: alice@example.com
      givenName: Alice
      memberOf: [g-1]
  - id: u-2
    dn: CN=bob,OU=People,DC=example,DC=com
    attributes:
      sAMAccountName: bob
      mail: bob@example.com
      memberOf: [g-1]
`

type memStore struct {
	mu      sync.Mutex
	model   string
	records map[string]reconcile.Record
	saveErr error
}

func (s *memStore) FindByExternalIDs(ctx context.Context, ids []string) ([]reconcile.Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []reconcile.Record
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
	for _, rec := range recs {
		s.records[rec.ExternalID()] = rec
	}
	return nil
}

func (s *memStore) Count(ctx context.Context) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return int64(len(s.records)), nil
}

type healthStore struct {
	err error
}

func (h *healthStore) CheckConnectivity(ctx context.Context) error {
	return h.err
}

type testEnv struct {
	srv    *server.Server
	users  *memStore
	groups *memStore
	health *healthStore
	events []audit.Event
}

func newTestEnv(t *testing.T, configure ...func(*config.Config)) *testEnv {
	t.Helper()

	path := filepath.Join(t.TempDir(), "directory.yml")
	require.NoError(t, os.WriteFile(path, []byte(testDirectory), 0o600))
	cfg := config.Default()
	cfg.Directory.Fixture = path
	for _, fn := range configure {
		fn(cfg)
	}

	env := &testEnv{
		users:  &memStore{model: model.UserModel, records: map[string]reconcile.Record{}},
		groups: &memStore{model: model.GroupModel, records: map[string]reconcile.Record{}},
		health: &healthStore{},
	}
	app, err := bootstrap.New(cfg, bootstrap.Options{
		Stores: map[string]store.RecordStore{
			model.UserModel:  env.users,
			model.GroupModel: env.groups,
		},
		Health: env.health,
		Audit:  func(e audit.Event) { env.events = append(env.events, e) },
	})
	require.NoError(t, err)

	env.srv = server.NewServer(app, "127.0.0.1", "0")
	RegisterAll(env.srv)
	return env
}

func (e *testEnv) do(method, target, body string, header ...string) *httptest.ResponseRecorder {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, target, nil)
	} else {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	for i := 0; i+1 < len(header); i += 2 {
		req.Header.Set(header[i], header[i+1])
	}
	w := httptest.NewRecorder()
	e.srv.Handler().ServeHTTP(w, req)
	return w
}

var errDatabaseDown = errors.New("connection refused")
