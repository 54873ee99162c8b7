package mapping

import (
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var userFields = map[string]string{
	"login":       "sAMAccountName",
	"email":       "mail",
	"object_guid": "objectGUID",
}

func TestAttributeMap_RoundTrip(t *testing.T) {
	m, err := New(userFields)
	require.NoError(t, err)

	local := map[string]any{
		"login":       "alice",
		"email":       "alice@example.com",
		"object_guid": "5f1d",
	}

	dir := m.ToDirectory(local)
	assert.Equal(t, map[string]any{
		"sAMAccountName": "alice",
		"mail":           "alice@example.com",
		"objectGUID":     "5f1d",
	}, dir)
	assert.Equal(t, local, m.ToLocal(dir))
}

func TestAttributeMap_PassThrough(t *testing.T) {
	m, err := New(userFields)
	require.NoError(t, err)

	assert.Equal(t, map[string]any{"sAMAccountName": "alice", "title": "CTO"},
		m.ToDirectory(map[string]any{"login": "alice", "title": "CTO"}))
	assert.Equal(t, map[string]any{"login": "alice", "department": "R&D"},
		m.ToLocal(map[string]any{"samaccountname": "alice", "department": "R&D"}))
}

func TestAttributeMap_Identity(t *testing.T) {
	params := map[string]any{"login": "alice", "mail": "a@example.com"}

	for name, m := range map[string]*AttributeMap{"empty": Empty(), "nil": nil} {
		t.Run(name, func(t *testing.T) {
			assert.Equal(t, params, m.ToDirectory(params))
			assert.Equal(t, params, m.ToLocal(params))
			assert.Equal(t, 0, m.Len())
			assert.Empty(t, m.Pairs())
		})
	}
}

func TestAttributeMap_MappedKeyWinsTranslationClash(t *testing.T) {
	m, err := New(map[string]string{"login": "sAMAccountName"})
	require.NoError(t, err)

	for i := 0; i < 20; i++ {
		dir := m.ToDirectory(map[string]any{"login": "mapped", "sAMAccountName": "raw"})
		assert.Equal(t, map[string]any{"sAMAccountName": "mapped"}, dir)
	}
}

func TestNew_Collision(t *testing.T) {
	_, err := New(map[string]string{
		"login":    "sAMAccountName",
		"username": "samaccountname",
	})
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrCollision))
	assert.Contains(t, err.Error(), `"login" and "username"`)
}

func TestNew_EmptyNames(t *testing.T) {
	_, err := New(map[string]string{"login": ""})
	assert.Error(t, err)
}

func TestAttributeMap_Pairs(t *testing.T) {
	m, err := New(userFields)
	require.NoError(t, err)

	assert.Equal(t, []Pair{
		{Local: "email", Directory: "mail"},
		{Local: "login", Directory: "sAMAccountName"},
		{Local: "object_guid", Directory: "objectGUID"},
	}, m.Pairs())
	assert.Equal(t, 3, m.Len())
}

func TestSet_For(t *testing.T) {
	raw := map[string]map[string]string{"user": userFields}
	s := NewSet(raw)

	m, err := s.For("user")
	require.NoError(t, err)
	assert.Equal(t, "mail", m.DirectoryName("email"))

	again, err := s.For("user")
	require.NoError(t, err)
	assert.Same(t, m, again, "maps are cached per model")

	raw["user"]["email"] = "changed"
	assert.Equal(t, "mail", again.DirectoryName("email"), "set copies its input")

	unconfigured, err := s.For("computer")
	require.NoError(t, err)
	assert.Equal(t, "anything", unconfigured.DirectoryName("anything"))
	assert.True(t, s.Configured("user"))
	assert.False(t, s.Configured("computer"))
}

func TestSet_ConcurrentFirstUse(t *testing.T) {
	s := NewSet(map[string]map[string]string{"user": userFields})

	var wg sync.WaitGroup
	results := make([]*AttributeMap, 16)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			m, err := s.For("user")
			assert.NoError(t, err)
			results[i] = m
		}(i)
	}
	wg.Wait()

	for _, m := range results {
		assert.Same(t, results[0], m)
	}
}

func TestSet_Validate(t *testing.T) {
	ok := NewSet(map[string]map[string]string{"user": userFields})
	assert.NoError(t, ok.Validate())

	bad := NewSet(map[string]map[string]string{
		"group": {"name": "cn", "title": "CN"},
	})
	err := bad.Validate()
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrCollision))
	assert.Contains(t, err.Error(), `model "group"`)
}
