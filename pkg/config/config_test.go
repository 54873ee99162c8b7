package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/doodlesbykumbi/directory-sync/pkg/reconcile"
)

const sampleConfig = `
directory:
  url: ldaps://dc.example.com
  bind_dn: CN=sync,DC=example,DC=com
  bind_password: s3cret
  base_dn: DC=example,DC=com
  caching: true
  cache_ttl: 2m
attribute_mapping:
  user:
    login: uid
models:
  user:
    class: person
    relationships:
      - {role: member_of, field: groups, target: group}
  group:
    relationships:
      - {role: member_users, field: users, target: user}
resolve_memberships_in_batch: true
sync_interval: 15m
`

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, ConfigFileName), []byte(content), 0o600))
	return dir
}

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("ADSYNC_CONFIG_PATH", t.TempDir())

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "objectGUID", cfg.Directory.IDAttribute)
	assert.Equal(t, uint32(500), cfg.Directory.PageSize)
	assert.Equal(t, "sAMAccountName", cfg.AttributeMapping["user"]["login"])
	assert.Equal(t, []string{"group", "user"}, cfg.ModelNames())
	assert.False(t, cfg.ResolveMembershipsInBatch)
	assert.Equal(t, SourceDefault, cfg.Source("directory.url"))
}

func TestLoad_File(t *testing.T) {
	t.Setenv("ADSYNC_CONFIG_PATH", writeConfig(t, sampleConfig))

	cfg, err := Load()
	require.NoError(t, err)
	require.NoError(t, cfg.Validate())

	assert.Equal(t, "ldaps://dc.example.com", cfg.Directory.URL)
	assert.True(t, cfg.Directory.Caching)
	assert.Equal(t, 2*time.Minute, cfg.Directory.CacheTTL)
	assert.Equal(t, 15*time.Minute, cfg.SyncInterval)
	assert.True(t, cfg.ResolveMembershipsInBatch)
	assert.Equal(t, map[string]string{"login": "uid"}, cfg.AttributeMapping["user"])
	assert.Equal(t, "cn", cfg.AttributeMapping["group"]["name"], "unmentioned models keep their defaults")
	assert.Equal(t, "person", cfg.Models["user"].Class)
	assert.Equal(t, []RelationshipConfig{{Role: reconcile.RoleMemberUsers, Field: "users", Target: "user"}},
		cfg.Models["group"].Relationships)
	assert.Equal(t, SourceFile, cfg.Source("directory.url"))
	assert.True(t, strings.HasSuffix(cfg.ConfigFilePath(), ConfigFileName))
}

func TestLoad_EnvironmentWins(t *testing.T) {
	t.Setenv("ADSYNC_CONFIG_PATH", writeConfig(t, sampleConfig))
	t.Setenv("ADSYNC_DIRECTORY_URL", "ldap://other.example.com:389")
	t.Setenv("ADSYNC_DIRECTORY_CACHING", "false")
	t.Setenv("ADSYNC_SYNC_MODELS", "user, group")
	t.Setenv("ADSYNC_SYNC_INTERVAL", "1h")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "ldap://other.example.com:389", cfg.Directory.URL)
	assert.False(t, cfg.Directory.Caching)
	assert.Equal(t, []string{"user", "group"}, cfg.SyncModels)
	assert.Equal(t, time.Hour, cfg.SyncInterval)
	assert.Equal(t, SourceEnvironment, cfg.Source("directory.url"))
	assert.Equal(t, SourceEnvironment, cfg.Source("directory.caching"))
}

func TestLoad_InvalidEnvironment(t *testing.T) {
	t.Setenv("ADSYNC_CONFIG_PATH", t.TempDir())
	t.Setenv("ADSYNC_SYNC_INTERVAL", "soon")

	_, err := Load()
	assert.Error(t, err)
}

func TestLoad_InvalidRole(t *testing.T) {
	_, err := LoadFile(filepath.Join(writeConfig(t, `
models:
  user:
    relationships:
      - {role: manager_of, field: reports, target: user}
`), ConfigFileName))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "manager_of")
}

func TestWithCredentials(t *testing.T) {
	t.Setenv("ADSYNC_CONFIG_PATH", writeConfig(t, sampleConfig))
	cfg, err := Load()
	require.NoError(t, err)

	cfg.WithCredentials("CN=admin,DC=example,DC=com", "")
	assert.Equal(t, "CN=admin,DC=example,DC=com", cfg.Directory.BindDN)
	assert.Equal(t, "s3cret", cfg.Directory.BindPassword)
	assert.Equal(t, SourceOverride, cfg.Source("directory.bind_dn"))
	assert.Equal(t, SourceFile, cfg.Source("directory.bind_password"))

	dc := cfg.DirectoryConfig()
	assert.Equal(t, "CN=admin,DC=example,DC=com", dc.BindDN)
	assert.Equal(t, "memberOf", dc.MemberOfAttribute)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		modify func(*Config)
		errMsg string
	}{
		{"missing url", func(c *Config) {}, "directory.url is required"},
		{"bad scheme", func(c *Config) { c.Directory.URL = "http://dc" }, "invalid directory.url"},
		{"fixture needs no url", func(c *Config) { c.Directory.Fixture = "dir.yml" }, ""},
		{"collision", func(c *Config) {
			c.Directory.URL = "ldap://dc"
			c.AttributeMapping["group"] = map[string]string{"name": "cn", "title": "CN"}
		}, "attribute mapping collision"},
		{"unknown target", func(c *Config) {
			c.Directory.URL = "ldap://dc"
			c.Models["user"] = ModelConfig{Relationships: []RelationshipConfig{
				{Role: reconcile.RoleMemberOf, Field: "teams", Target: "team"},
			}}
		}, `target "team"`},
		{"target derived from field", func(c *Config) {
			c.Directory.URL = "ldap://dc"
			c.Models["user"] = ModelConfig{Relationships: []RelationshipConfig{
				{Role: reconcile.RoleMemberOf, Field: "groups"},
			}}
		}, ""},
		{"derived target unknown", func(c *Config) {
			c.Directory.URL = "ldap://dc"
			c.Models["user"] = ModelConfig{Relationships: []RelationshipConfig{
				{Role: reconcile.RoleMemberOf, Field: "teams"},
			}}
		}, `target "team"`},
		{"unknown sync model", func(c *Config) {
			c.Directory.URL = "ldap://dc"
			c.SyncModels = []string{"computer"}
		}, `"computer"`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.modify(cfg)
			err := cfg.Validate()
			if tt.errMsg == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.errMsg)
		})
	}
}

func TestFormat(t *testing.T) {
	t.Setenv("ADSYNC_CONFIG_PATH", writeConfig(t, sampleConfig))
	cfg, err := Load()
	require.NoError(t, err)

	text := cfg.FormatText()
	assert.Contains(t, text, "directory.url")
	assert.Contains(t, text, "ldaps://dc.example.com")
	assert.NotContains(t, text, "s3cret")

	js, err := cfg.FormatJSON()
	require.NoError(t, err)
	assert.Contains(t, js, `"config_file"`)
	assert.NotContains(t, js, "s3cret")
}
