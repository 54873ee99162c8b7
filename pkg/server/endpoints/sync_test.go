package endpoints

import (
	"encoding/json"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/doodlesbykumbi/directory-sync/pkg/audit"
	"github.com/doodlesbykumbi/directory-sync/pkg/config"
	"github.com/doodlesbykumbi/directory-sync/pkg/model"
	"github.com/doodlesbykumbi/directory-sync/pkg/scheduler"
	"github.com/doodlesbykumbi/directory-sync/pkg/server/middleware"
)

func TestHandleSync(t *testing.T) {
	tests := []struct {
		name        string
		target      string
		body        string
		wantCode    int
		wantFound   int
		wantCreated int
		wantSaved   int
	}{
		{"all users", "/sync/user", "", http.StatusOK, 2, 2, 2},
		{"filtered by local field", "/sync/user", `{"params":{"login":"alice"}}`, http.StatusOK, 1, 1, 1},
		{"dry run in body", "/sync/user", `{"dry_run":true}`, http.StatusOK, 2, 2, 0},
		{"dry run in query", "/sync/user?dry_run=true", "", http.StatusOK, 2, 2, 0},
		{"groups", "/sync/group", "", http.StatusOK, 1, 1, 0},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			env := newTestEnv(t)

			w := env.do("POST", tc.target, tc.body)
			require.Equal(t, tc.wantCode, w.Code, w.Body.String())

			var resp SyncResponse
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
			assert.Equal(t, tc.wantFound, resp.Found)
			assert.Equal(t, tc.wantCreated, resp.Created)
			assert.Equal(t, 0, resp.Updated)
			assert.Len(t, env.users.records, tc.wantSaved)
		})
	}
}

func TestHandleSync_SecondRunUpdates(t *testing.T) {
	env := newTestEnv(t)
	require.Equal(t, http.StatusOK, env.do("POST", "/sync/user", "").Code)

	w := env.do("POST", "/sync/user", "")
	require.Equal(t, http.StatusOK, w.Code)
	var resp SyncResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, 0, resp.Created)
	assert.Equal(t, 2, resp.Updated)

	alice := env.users.records["u-1"].(*model.User)
	require.NotNil(t, alice.Login)
	assert.Equal(t, "alice", *alice.Login)

	last := env.events[len(env.events)-1].(audit.ReconcileEvent)
	assert.Equal(t, scheduler.TriggerAPI, last.Trigger)
	assert.True(t, last.Success)
}

func TestHandleSync_Errors(t *testing.T) {
	t.Run("unknown model", func(t *testing.T) {
		env := newTestEnv(t)
		w := env.do("POST", "/sync/computer", "")
		assert.Equal(t, http.StatusNotFound, w.Code)
		assert.Contains(t, w.Body.String(), "error")
	})

	t.Run("invalid body", func(t *testing.T) {
		env := newTestEnv(t)
		w := env.do("POST", "/sync/user", `{"params":`)
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("invalid dry_run", func(t *testing.T) {
		env := newTestEnv(t)
		w := env.do("POST", "/sync/user?dry_run=maybe", "")
		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Contains(t, w.Body.String(), "dry_run")
		assert.Empty(t, env.users.records)
	})

	t.Run("invalid attribute name in params", func(t *testing.T) {
		env := newTestEnv(t)
		w := env.do("POST", "/sync/user", `{"params":{"mail=*)(cn":"x"}}`)
		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Empty(t, env.users.records)
	})

	t.Run("save failure", func(t *testing.T) {
		env := newTestEnv(t)
		env.users.saveErr = errors.New("disk full")
		w := env.do("POST", "/sync/user", "")
		assert.Equal(t, http.StatusInternalServerError, w.Code)
		assert.Contains(t, w.Body.String(), "disk full")
	})

	t.Run("requires a token when a secret is set", func(t *testing.T) {
		env := newTestEnv(t, func(c *config.Config) { c.TokenSecret = "s3cr3t" })
		assert.Equal(t, http.StatusUnauthorized, env.do("POST", "/sync/user", "").Code)

		token, err := middleware.IssueToken("s3cr3t", "ops", time.Minute)
		require.NoError(t, err)
		w := env.do("POST", "/sync/user", "", "Authorization", "Bearer "+token)
		assert.Equal(t, http.StatusOK, w.Code)

		w = env.do("GET", "/whoami", "", "Authorization", "Bearer "+token)
		require.Equal(t, http.StatusOK, w.Code)
		var who WhoamiResponse
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &who))
		assert.Equal(t, WhoamiResponse{Subject: "ops", Authenticated: true}, who)
	})
}

func TestHandleSyncRecord(t *testing.T) {
	env := newTestEnv(t)

	w := env.do("POST", "/sync/user/u-2", "")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var resp RecordSyncResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "u-2", resp.ExternalID)
	assert.True(t, resp.Created)
	assert.Equal(t, "bob", resp.Fields["login"])
	assert.Equal(t, "bob@example.com", resp.Fields["email"])
	assert.Len(t, env.users.records, 1)

	w = env.do("POST", "/sync/user/u-2", "")
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.False(t, resp.Created)

	last := env.events[len(env.events)-1].(audit.RecordSyncEvent)
	assert.Equal(t, "u-2", last.ExternalID)
	assert.True(t, last.Found)
}

func TestHandleSyncRecord_NotFound(t *testing.T) {
	env := newTestEnv(t)

	w := env.do("POST", "/sync/user/u-404", "")
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Contains(t, w.Body.String(), "not found in directory")
	assert.Empty(t, env.users.records)
}
