package bootstrap

import (
	"context"
	"fmt"
	"os"

	"github.com/rs/zerolog"

	"github.com/doodlesbykumbi/directory-sync/pkg/audit"
	"github.com/doodlesbykumbi/directory-sync/pkg/config"
	"github.com/doodlesbykumbi/directory-sync/pkg/directory"
	"github.com/doodlesbykumbi/directory-sync/pkg/directory/ldap"
	"github.com/doodlesbykumbi/directory-sync/pkg/metrics"
)

// NewGateway returns the directory gateway configured in cfg: an in-memory
// directory loaded from the fixture file when one is set, LDAP otherwise.
func NewGateway(cfg *config.Config, logger zerolog.Logger) (directory.Gateway, error) {
	dcfg := cfg.DirectoryConfig()
	if cfg.Directory.Fixture == "" {
		return ldap.New(dcfg, ldap.WithLogger(logger)), nil
	}

	f, err := os.Open(cfg.Directory.Fixture)
	if err != nil {
		return nil, fmt.Errorf("failed to open directory fixture: %w", err)
	}
	defer f.Close()

	static, err := directory.LoadStatic(f)
	if err != nil {
		return nil, err
	}
	logger.Info().Str("fixture", cfg.Directory.Fixture).Msg("using in-memory directory")
	return static.WithIDAttribute(dcfg.IDAttribute), nil
}

var _ directory.Gateway = (*observedGateway)(nil)

// observedGateway audits binds and tracks the connection gauge.
type observedGateway struct {
	directory.Gateway
	url     string
	bindDN  string
	metrics *metrics.Metrics
	audit   func(audit.Event)
}

func observe(gw directory.Gateway, cfg directory.Config, m *metrics.Metrics, auditFn func(audit.Event)) *observedGateway {
	if auditFn == nil {
		auditFn = audit.Log
	}
	return &observedGateway{Gateway: gw, url: cfg.URL, bindDN: cfg.BindDN, metrics: m, audit: auditFn}
}

func (g *observedGateway) Connect(ctx context.Context) error {
	err := g.Gateway.Connect(ctx)
	event := audit.ConnectEvent{URL: g.url, BindDN: g.bindDN, Success: err == nil}
	if err != nil {
		event.ErrorMessage = err.Error()
	}
	g.audit(event)
	g.metrics.SetDirectoryConnected(g.Gateway.Connected())
	return err
}

func (g *observedGateway) Search(ctx context.Context, class string, filter directory.Filter) ([]*directory.Object, error) {
	if !g.Gateway.Connected() {
		if err := g.Connect(ctx); err != nil {
			return nil, err
		}
	}
	objs, err := g.Gateway.Search(ctx, class, filter)
	g.metrics.SetDirectoryConnected(g.Gateway.Connected())
	return objs, err
}

// Close closes the wrapped gateway when it holds a connection.
func (g *observedGateway) Close() error {
	if c, ok := g.Gateway.(interface{ Close() error }); ok {
		return c.Close()
	}
	return nil
}
