package ldap

import (
	"context"
	"crypto/tls"
	"fmt"
	"net"
	"sort"
	"strings"
	"sync"

	goldap "github.com/go-ldap/ldap/v3"
	"github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/rs/zerolog"

	"github.com/doodlesbykumbi/directory-sync/pkg/directory"
)

// Ensure Gateway implements directory.Gateway
var _ directory.Gateway = (*Gateway)(nil)

// dnBatchSize bounds the number of DNs resolved by one search.
const dnBatchSize = 200

// conn is the part of *ldap.Conn the gateway uses.
type conn interface {
	Bind(username, password string) error
	SearchWithPaging(req *goldap.SearchRequest, pagingSize uint32) (*goldap.SearchResult, error)
}

type dialFunc func(ctx context.Context, cfg directory.Config) (conn, func(), error)

// Gateway searches an LDAP directory.
type Gateway struct {
	cfg    directory.Config
	dial   dialFunc
	logger zerolog.Logger

	mu    sync.Mutex
	conn  conn
	close func()

	dns     *expirable.LRU[string, string]
	results *expirable.LRU[string, []*directory.Object]
}

// Option configures a Gateway.
type Option func(*Gateway)

// WithLogger sets the gateway logger.
func WithLogger(logger zerolog.Logger) Option {
	return func(g *Gateway) {
		g.logger = logger
	}
}

func withDialer(dial dialFunc) Option {
	return func(g *Gateway) {
		g.dial = dial
	}
}

// New creates a gateway. No connection is made until Connect or Search.
func New(cfg directory.Config, opts ...Option) *Gateway {
	cfg = cfg.WithDefaults()
	g := &Gateway{
		cfg:    cfg,
		dial:   dial,
		logger: zerolog.Nop(),
		dns:    expirable.NewLRU[string, string](cfg.CacheSize, nil, cfg.CacheTTL),
	}
	if cfg.Caching {
		g.results = expirable.NewLRU[string, []*directory.Object](cfg.CacheSize, nil, cfg.CacheTTL)
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

func dial(ctx context.Context, cfg directory.Config) (conn, func(), error) {
	dialer := &net.Dialer{Timeout: cfg.DialTimeout}
	opts := []goldap.DialOpt{goldap.DialWithDialer(dialer)}
	if strings.HasPrefix(strings.ToLower(cfg.URL), "ldaps://") {
		opts = append(opts, goldap.DialWithTLSConfig(&tls.Config{
			InsecureSkipVerify: cfg.InsecureTLS, //nolint:gosec // opt-in for lab directories
		}))
	}
	c, err := goldap.DialURL(cfg.URL, opts...)
	if err != nil {
		return nil, nil, err
	}
	return c, func() { c.Close() }, nil
}

// Connect dials the directory and binds with the configured credentials.
func (g *Gateway) Connect(ctx context.Context) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.connectLocked(ctx)
}

func (g *Gateway) connectLocked(ctx context.Context) error {
	if g.conn != nil {
		return nil
	}
	if g.cfg.URL == "" {
		return fmt.Errorf("%w: no directory url configured", directory.ErrConnection)
	}

	c, closeFn, err := g.dial(ctx, g.cfg)
	if err != nil {
		return fmt.Errorf("%w: %v", directory.ErrConnection, err)
	}
	if err := c.Bind(g.cfg.BindDN, g.cfg.BindPassword); err != nil {
		closeFn()
		if goldap.IsErrorWithCode(err, goldap.LDAPResultInvalidCredentials) {
			return fmt.Errorf("%w: invalid username or password", directory.ErrConnection)
		}
		return fmt.Errorf("%w: %v", directory.ErrConnection, err)
	}

	g.conn = c
	g.close = closeFn
	g.logger.Debug().Str("url", g.cfg.URL).Str("bind_dn", g.cfg.BindDN).Msg("bound to directory")
	return nil
}

// Connected reports whether a bound session exists.
func (g *Gateway) Connected() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.conn != nil
}

// Close ends the session.
func (g *Gateway) Close() error {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.dropLocked()
	return nil
}

func (g *Gateway) dropLocked() {
	if g.close != nil {
		g.close()
	}
	g.conn = nil
	g.close = nil
}

// Search returns the objects of class matching filter. Relationship
// attributes hold external identifiers.
func (g *Gateway) Search(ctx context.Context, class string, filter directory.Filter) ([]*directory.Object, error) {
	query, err := buildFilter(class, filter, g.cfg)
	if err != nil {
		return nil, err
	}
	if g.results != nil {
		if objs, ok := g.results.Get(query); ok {
			return objs, nil
		}
	}

	g.mu.Lock()
	defer g.mu.Unlock()
	if err := g.connectLocked(ctx); err != nil {
		return nil, err
	}

	entries, err := g.searchLocked(ctx, query, nil)
	if err != nil {
		return nil, err
	}

	objs := make([]*directory.Object, 0, len(entries))
	known := make(map[string]string, len(entries))
	for _, entry := range entries {
		id := externalID(entry, g.cfg.IDAttribute)
		if id == "" {
			g.logger.Warn().Str("dn", entry.DN).Msg("directory entry has no identifier, skipped")
			continue
		}
		known[strings.ToLower(entry.DN)] = id
		g.dns.Add(strings.ToLower(entry.DN), id)
		objs = append(objs, toObject(entry, id, g.cfg))
	}

	if err := g.rewriteRelationshipsLocked(ctx, objs, known); err != nil {
		return nil, err
	}

	if g.results != nil {
		g.results.Add(query, objs)
	}
	return objs, nil
}

func (g *Gateway) searchLocked(ctx context.Context, query string, attributes []string) ([]*goldap.Entry, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	req := goldap.NewSearchRequest(
		g.cfg.BaseDN,
		goldap.ScopeWholeSubtree, goldap.NeverDerefAliases, 0, 0, false,
		query,
		attributes,
		nil,
	)
	res, err := g.conn.SearchWithPaging(req, g.cfg.PageSize)
	if err != nil {
		if goldap.IsErrorWithCode(err, goldap.ErrorNetwork) {
			g.dropLocked()
			return nil, fmt.Errorf("%w: %v", directory.ErrConnection, err)
		}
		return nil, fmt.Errorf("ldap search %s: %w", query, err)
	}
	return res.Entries, nil
}

// rewriteRelationshipsLocked replaces DN values of relationship attributes
// with external identifiers. DNs outside the search base are dropped.
func (g *Gateway) rewriteRelationshipsLocked(ctx context.Context, objs []*directory.Object, known map[string]string) error {
	var unknown []string
	seen := make(map[string]bool)
	for _, obj := range objs {
		for name, v := range obj.Attributes {
			if !isRelationship(name, g.cfg) {
				continue
			}
			for _, dn := range v.([]string) {
				key := strings.ToLower(dn)
				if _, ok := known[key]; ok || seen[key] {
					continue
				}
				if id, ok := g.dns.Get(key); ok {
					known[key] = id
					continue
				}
				seen[key] = true
				unknown = append(unknown, dn)
			}
		}
	}

	sort.Strings(unknown)
	for start := 0; start < len(unknown); start += dnBatchSize {
		end := start + dnBatchSize
		if end > len(unknown) {
			end = len(unknown)
		}
		entries, err := g.searchLocked(ctx, dnFilter(unknown[start:end]), []string{g.cfg.IDAttribute})
		if err != nil {
			return fmt.Errorf("resolve member DNs: %w", err)
		}
		for _, entry := range entries {
			if id := externalID(entry, g.cfg.IDAttribute); id != "" {
				key := strings.ToLower(entry.DN)
				known[key] = id
				g.dns.Add(key, id)
			}
		}
	}

	for _, obj := range objs {
		for name, v := range obj.Attributes {
			if !isRelationship(name, g.cfg) {
				continue
			}
			dns := v.([]string)
			ids := make([]string, 0, len(dns))
			for _, dn := range dns {
				if id, ok := known[strings.ToLower(dn)]; ok {
					ids = append(ids, id)
				}
			}
			obj.Attributes[name] = ids
		}
	}
	return nil
}
