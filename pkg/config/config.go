package config

import (
	"encoding/json"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/doodlesbykumbi/directory-sync/pkg/directory"
	"github.com/doodlesbykumbi/directory-sync/pkg/mapping"
	"github.com/doodlesbykumbi/directory-sync/pkg/reconcile"
)

const (
	DefaultConfigPath      = "/etc/adsync/config"
	ConfigFileName         = "adsync.yml"
	DefaultExternalIDField = "object_guid"
)

// Sources of configuration values
const (
	SourceDefault     = "default"
	SourceFile        = "file"
	SourceEnvironment = "environment"
	SourceOverride    = "override"
)

// Config holds all directory sync settings
type Config struct {
	// Directory holds the connection settings of the directory
	Directory DirectoryConfig `yaml:"directory" json:"directory"`

	// AttributeMapping maps model name -> local field -> directory attribute
	AttributeMapping map[string]map[string]string `yaml:"attribute_mapping" json:"attribute_mapping"`

	// Models declares the synchronized models and their relationships
	Models map[string]ModelConfig `yaml:"models" json:"models"`

	// ResolveMembershipsInBatch makes batch runs resolve memberships
	ResolveMembershipsInBatch bool `yaml:"resolve_memberships_in_batch" json:"resolve_memberships_in_batch"`

	// SyncInterval is the period of scheduled reconciliation; zero disables it
	SyncInterval time.Duration `yaml:"sync_interval" json:"sync_interval"`

	// SyncModels lists the models reconciled by the scheduler, in order
	SyncModels []string `yaml:"sync_models" json:"sync_models"`

	// TokenSecret is the HS256 secret for API bearer tokens
	TokenSecret string `yaml:"token_secret" json:"-"`

	sources        map[string]string
	configFilePath string
}

// DirectoryConfig holds the directory connection settings
type DirectoryConfig struct {
	URL               string            `yaml:"url" json:"url"`
	BindDN            string            `yaml:"bind_dn" json:"bind_dn"`
	BindPassword      string            `yaml:"bind_password" json:"-"`
	BaseDN            string            `yaml:"base_dn" json:"base_dn"`
	IDAttribute       string            `yaml:"id_attribute" json:"id_attribute"`
	MemberAttribute   string            `yaml:"member_attribute" json:"member_attribute"`
	MemberOfAttribute string            `yaml:"member_of_attribute" json:"member_of_attribute"`
	PageSize          uint32            `yaml:"page_size" json:"page_size"`
	Caching           bool              `yaml:"caching" json:"caching"`
	CacheSize         int               `yaml:"cache_size" json:"cache_size"`
	CacheTTL          time.Duration     `yaml:"cache_ttl" json:"cache_ttl"`
	InsecureTLS       bool              `yaml:"insecure_tls" json:"insecure_tls"`
	ClassFilters      map[string]string `yaml:"class_filters" json:"class_filters"`

	// Fixture is a YAML file served by an in-memory directory instead of LDAP
	Fixture string `yaml:"fixture" json:"fixture"`
}

// ModelConfig declares one synchronized model
type ModelConfig struct {
	// Class is the directory class searched for the model
	Class string `yaml:"class" json:"class"`

	// ExternalIDField is the local field holding the external identifier
	ExternalIDField string `yaml:"external_id_field" json:"external_id_field"`

	// Relationships lists the roles the model takes part in
	Relationships []RelationshipConfig `yaml:"relationships" json:"relationships"`
}

// RelationshipConfig declares one relationship role
type RelationshipConfig struct {
	Role   reconcile.Role `yaml:"role" json:"role"`
	Field  string         `yaml:"field" json:"field"`
	Target string         `yaml:"target" json:"target"`
}

// Attribute represents a configuration attribute with its value and source
type Attribute struct {
	Name   string `json:"name"`
	Value  string `json:"value"`
	Source string `json:"source"`
}

// Default returns the built-in configuration for Active Directory users and groups.
func Default() *Config {
	return &Config{
		Directory: DirectoryConfig{
			IDAttribute:       directory.DefaultIDAttribute,
			MemberAttribute:   directory.DefaultMemberAttribute,
			MemberOfAttribute: directory.DefaultMemberOfAttribute,
			PageSize:          500,
			CacheSize:         1024,
			CacheTTL:          5 * time.Minute,
		},
		AttributeMapping: map[string]map[string]string{
			"user": {
				"object_guid":  "objectGUID",
				"login":        "sAMAccountName",
				"email":        "mail",
				"first_name":   "givenName",
				"last_name":    "sn",
				"display_name": "displayName",
				"dn":           "distinguishedName",
			},
			"group": {
				"object_guid": "objectGUID",
				"name":        "cn",
				"description": "description",
				"dn":          "distinguishedName",
			},
		},
		Models: map[string]ModelConfig{
			"user": {
				Relationships: []RelationshipConfig{
					{Role: reconcile.RoleMemberOf, Field: "groups", Target: "group"},
				},
			},
			"group": {
				Relationships: []RelationshipConfig{
					{Role: reconcile.RoleMemberOf, Field: "parent_groups", Target: "group"},
					{Role: reconcile.RoleMemberUsers, Field: "users", Target: "user"},
					{Role: reconcile.RoleMemberGroups, Field: "subgroups", Target: "group"},
				},
			},
		},
		SyncModels: []string{"group", "user"},
		sources:    make(map[string]string),
	}
}

// Load loads configuration from $ADSYNC_CONFIG_PATH and environment variables.
// Environment variables take precedence over file values.
func Load() (*Config, error) {
	configPath := os.Getenv("ADSYNC_CONFIG_PATH")
	if configPath == "" {
		configPath = DefaultConfigPath
	}
	return LoadFile(filepath.Join(configPath, ConfigFileName))
}

// LoadFile loads configuration from path and environment variables.
// A missing file leaves the defaults in place.
func LoadFile(path string) (*Config, error) {
	config := Default()
	for _, name := range attributeNames() {
		config.sources[name] = SourceDefault
	}
	config.configFilePath = path

	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		var fileConfig Config
		if err := yaml.Unmarshal(data, &fileConfig); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
		}
		config.applyFileConfig(&fileConfig)
	case !os.IsNotExist(err):
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	if err := config.applyEnvConfig(); err != nil {
		return nil, err
	}
	return config, nil
}

func attributeNames() []string {
	return []string{
		"directory.url", "directory.bind_dn", "directory.bind_password", "directory.base_dn",
		"directory.id_attribute", "directory.member_attribute", "directory.member_of_attribute",
		"directory.page_size", "directory.caching", "directory.cache_size", "directory.cache_ttl",
		"directory.insecure_tls", "directory.class_filters", "directory.fixture",
		"attribute_mapping", "models", "resolve_memberships_in_batch",
		"sync_interval", "sync_models", "token_secret",
	}
}

func (c *Config) setString(dst *string, value, name, source string) {
	if value != "" {
		*dst = value
		c.sources[name] = source
	}
}

func (c *Config) applyFileConfig(file *Config) {
	d := &file.Directory
	c.setString(&c.Directory.URL, d.URL, "directory.url", SourceFile)
	c.setString(&c.Directory.BindDN, d.BindDN, "directory.bind_dn", SourceFile)
	c.setString(&c.Directory.BindPassword, d.BindPassword, "directory.bind_password", SourceFile)
	c.setString(&c.Directory.BaseDN, d.BaseDN, "directory.base_dn", SourceFile)
	c.setString(&c.Directory.IDAttribute, d.IDAttribute, "directory.id_attribute", SourceFile)
	c.setString(&c.Directory.MemberAttribute, d.MemberAttribute, "directory.member_attribute", SourceFile)
	c.setString(&c.Directory.MemberOfAttribute, d.MemberOfAttribute, "directory.member_of_attribute", SourceFile)
	c.setString(&c.Directory.Fixture, d.Fixture, "directory.fixture", SourceFile)
	if d.PageSize != 0 {
		c.Directory.PageSize = d.PageSize
		c.sources["directory.page_size"] = SourceFile
	}
	if d.Caching {
		c.Directory.Caching = true
		c.sources["directory.caching"] = SourceFile
	}
	if d.CacheSize != 0 {
		c.Directory.CacheSize = d.CacheSize
		c.sources["directory.cache_size"] = SourceFile
	}
	if d.CacheTTL != 0 {
		c.Directory.CacheTTL = d.CacheTTL
		c.sources["directory.cache_ttl"] = SourceFile
	}
	if d.InsecureTLS {
		c.Directory.InsecureTLS = true
		c.sources["directory.insecure_tls"] = SourceFile
	}
	if len(d.ClassFilters) > 0 {
		c.Directory.ClassFilters = d.ClassFilters
		c.sources["directory.class_filters"] = SourceFile
	}

	// Mappings are merged per model so a file can override one model only.
	if len(file.AttributeMapping) > 0 {
		for model, fields := range file.AttributeMapping {
			c.AttributeMapping[model] = fields
		}
		c.sources["attribute_mapping"] = SourceFile
	}
	if len(file.Models) > 0 {
		c.Models = file.Models
		c.sources["models"] = SourceFile
	}
	if file.ResolveMembershipsInBatch {
		c.ResolveMembershipsInBatch = true
		c.sources["resolve_memberships_in_batch"] = SourceFile
	}
	if file.SyncInterval != 0 {
		c.SyncInterval = file.SyncInterval
		c.sources["sync_interval"] = SourceFile
	}
	if len(file.SyncModels) > 0 {
		c.SyncModels = file.SyncModels
		c.sources["sync_models"] = SourceFile
	}
	c.setString(&c.TokenSecret, file.TokenSecret, "token_secret", SourceFile)
}

func (c *Config) applyEnvConfig() error {
	c.setString(&c.Directory.URL, os.Getenv("ADSYNC_DIRECTORY_URL"), "directory.url", SourceEnvironment)
	c.setString(&c.Directory.BindDN, os.Getenv("ADSYNC_BIND_DN"), "directory.bind_dn", SourceEnvironment)
	c.setString(&c.Directory.BindPassword, os.Getenv("ADSYNC_BIND_PASSWORD"), "directory.bind_password", SourceEnvironment)
	c.setString(&c.Directory.BaseDN, os.Getenv("ADSYNC_BASE_DN"), "directory.base_dn", SourceEnvironment)
	c.setString(&c.Directory.Fixture, os.Getenv("ADSYNC_DIRECTORY_FIXTURE"), "directory.fixture", SourceEnvironment)
	c.setString(&c.TokenSecret, os.Getenv("ADSYNC_TOKEN_SECRET"), "token_secret", SourceEnvironment)

	if val := os.Getenv("ADSYNC_DIRECTORY_CACHING"); val != "" {
		c.Directory.Caching = val == "true" || val == "1"
		c.sources["directory.caching"] = SourceEnvironment
	}
	if val := os.Getenv("ADSYNC_RESOLVE_MEMBERSHIPS_IN_BATCH"); val != "" {
		c.ResolveMembershipsInBatch = val == "true" || val == "1"
		c.sources["resolve_memberships_in_batch"] = SourceEnvironment
	}
	if val := os.Getenv("ADSYNC_PAGE_SIZE"); val != "" {
		n, err := strconv.ParseUint(val, 10, 32)
		if err != nil {
			return fmt.Errorf("invalid ADSYNC_PAGE_SIZE %q: %w", val, err)
		}
		c.Directory.PageSize = uint32(n)
		c.sources["directory.page_size"] = SourceEnvironment
	}
	if val := os.Getenv("ADSYNC_SYNC_INTERVAL"); val != "" {
		d, err := time.ParseDuration(val)
		if err != nil {
			return fmt.Errorf("invalid ADSYNC_SYNC_INTERVAL %q: %w", val, err)
		}
		c.SyncInterval = d
		c.sources["sync_interval"] = SourceEnvironment
	}
	if val := os.Getenv("ADSYNC_SYNC_MODELS"); val != "" {
		c.SyncModels = splitAndTrim(val)
		c.sources["sync_models"] = SourceEnvironment
	}
	return nil
}

// WithCredentials overrides the bind credentials. Empty values are ignored.
func (c *Config) WithCredentials(bindDN, bindPassword string) *Config {
	c.setString(&c.Directory.BindDN, bindDN, "directory.bind_dn", SourceOverride)
	c.setString(&c.Directory.BindPassword, bindPassword, "directory.bind_password", SourceOverride)
	return c
}

// ConfigFilePath returns the path to the config file
func (c *Config) ConfigFilePath() string {
	return c.configFilePath
}

// Source returns the source of a configuration attribute
func (c *Config) Source(name string) string {
	if c.sources == nil {
		return SourceDefault
	}
	if s, ok := c.sources[name]; ok {
		return s
	}
	return SourceDefault
}

// DirectoryConfig returns the settings handed to directory gateways.
func (c *Config) DirectoryConfig() directory.Config {
	d := c.Directory
	return directory.Config{
		URL:               d.URL,
		BindDN:            d.BindDN,
		BindPassword:      d.BindPassword,
		BaseDN:            d.BaseDN,
		IDAttribute:       d.IDAttribute,
		MemberAttribute:   d.MemberAttribute,
		MemberOfAttribute: d.MemberOfAttribute,
		PageSize:          d.PageSize,
		Caching:           d.Caching,
		CacheSize:         d.CacheSize,
		CacheTTL:          d.CacheTTL,
		InsecureTLS:       d.InsecureTLS,
		ClassFilters:      d.ClassFilters,
	}.WithDefaults()
}

// ModelNames returns the configured model names in sorted order.
func (c *Config) ModelNames() []string {
	names := make([]string, 0, len(c.Models))
	for name := range c.Models {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.Directory.Fixture == "" {
		if c.Directory.URL == "" {
			return fmt.Errorf("directory.url is required")
		}
		u, err := url.Parse(c.Directory.URL)
		if err != nil || (u.Scheme != "ldap" && u.Scheme != "ldaps") || u.Host == "" {
			return fmt.Errorf("invalid directory.url: %s", c.Directory.URL)
		}
	}

	if err := mapping.NewSet(c.AttributeMapping).Validate(); err != nil {
		return fmt.Errorf("invalid attribute_mapping: %w", err)
	}

	for _, name := range c.ModelNames() {
		for _, rel := range c.Models[name].Relationships {
			if !rel.Role.IsARole() {
				return fmt.Errorf("models.%s: invalid relationship role %v", name, rel.Role)
			}
			if rel.Field == "" {
				return fmt.Errorf("models.%s: %s relationship needs a field", name, rel.Role)
			}
			target := rel.Target
			if target == "" {
				target = reconcile.DefaultTarget(rel.Field)
			}
			if _, ok := c.Models[target]; !ok {
				return fmt.Errorf("models.%s: %s target %q is not a configured model", name, rel.Role, target)
			}
		}
	}
	for _, name := range c.SyncModels {
		if _, ok := c.Models[name]; !ok {
			return fmt.Errorf("sync_models: %q is not a configured model", name)
		}
	}
	if c.SyncInterval < 0 {
		return fmt.Errorf("sync_interval must not be negative")
	}
	return nil
}

// Attributes returns all configuration attributes with their values and sources
func (c *Config) Attributes() []Attribute {
	d := c.Directory
	attr := func(name, value string) Attribute {
		return Attribute{Name: name, Value: value, Source: c.Source(name)}
	}
	return []Attribute{
		attr("directory.url", d.URL),
		attr("directory.bind_dn", d.BindDN),
		attr("directory.bind_password", mask(d.BindPassword)),
		attr("directory.base_dn", d.BaseDN),
		attr("directory.id_attribute", d.IDAttribute),
		attr("directory.member_attribute", d.MemberAttribute),
		attr("directory.member_of_attribute", d.MemberOfAttribute),
		attr("directory.page_size", strconv.FormatUint(uint64(d.PageSize), 10)),
		attr("directory.caching", strconv.FormatBool(d.Caching)),
		attr("directory.cache_size", strconv.Itoa(d.CacheSize)),
		attr("directory.cache_ttl", d.CacheTTL.String()),
		attr("directory.insecure_tls", strconv.FormatBool(d.InsecureTLS)),
		attr("directory.class_filters", formatMap(d.ClassFilters)),
		attr("directory.fixture", d.Fixture),
		attr("attribute_mapping", strings.Join(sortedKeys(c.AttributeMapping), ",")),
		attr("models", strings.Join(c.ModelNames(), ",")),
		attr("resolve_memberships_in_batch", strconv.FormatBool(c.ResolveMembershipsInBatch)),
		attr("sync_interval", c.SyncInterval.String()),
		attr("sync_models", strings.Join(c.SyncModels, ",")),
		attr("token_secret", mask(c.TokenSecret)),
	}
}

// FormatText returns a text representation of the configuration
func (c *Config) FormatText() string {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Config file: %s\n\n", c.configFilePath))
	sb.WriteString(fmt.Sprintf("%-32s %-40s %s\n", "NAME", "VALUE", "SOURCE"))
	sb.WriteString(fmt.Sprintf("%-32s %-40s %s\n", "----", "-----", "------"))

	for _, attr := range c.Attributes() {
		value := attr.Value
		if value == "" {
			value = "(not set)"
		}
		sb.WriteString(fmt.Sprintf("%-32s %-40s %s\n", attr.Name, value, attr.Source))
	}
	return sb.String()
}

// FormatJSON returns a JSON representation of the configuration
func (c *Config) FormatJSON() (string, error) {
	result := map[string]interface{}{
		"config_file": c.configFilePath,
		"attributes":  c.Attributes(),
	}
	data, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return "", err
	}
	return string(data), nil
}

func mask(secret string) string {
	if secret == "" {
		return ""
	}
	return "********"
}

func formatMap(m map[string]string) string {
	parts := make([]string, 0, len(m))
	for _, k := range sortedKeys(m) {
		parts = append(parts, k+"="+m[k])
	}
	return strings.Join(parts, ",")
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func splitAndTrim(s string) []string {
	parts := strings.Split(s, ",")
	result := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			result = append(result, p)
		}
	}
	return result
}
