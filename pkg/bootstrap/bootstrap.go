package bootstrap

import (
	"fmt"

	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/doodlesbykumbi/directory-sync/pkg/audit"
	"github.com/doodlesbykumbi/directory-sync/pkg/config"
	"github.com/doodlesbykumbi/directory-sync/pkg/directory"
	"github.com/doodlesbykumbi/directory-sync/pkg/mapping"
	"github.com/doodlesbykumbi/directory-sync/pkg/metrics"
	"github.com/doodlesbykumbi/directory-sync/pkg/model"
	"github.com/doodlesbykumbi/directory-sync/pkg/reconcile"
	"github.com/doodlesbykumbi/directory-sync/pkg/scheduler"
	"github.com/doodlesbykumbi/directory-sync/pkg/store"
	storegorm "github.com/doodlesbykumbi/directory-sync/pkg/store/gorm"
)

// Options supplies the pieces New does not build from configuration.
type Options struct {
	// DB backs the GORM stores; required unless Stores is set
	DB *gorm.DB
	// Stores replaces the GORM stores, keyed by model name
	Stores map[string]store.RecordStore
	// Health checks the local database; defaults to a GORM health check on DB
	Health store.HealthStore
	// Gateway replaces the gateway built from configuration
	Gateway directory.Gateway
	Logger  *zerolog.Logger
	Metrics *metrics.Metrics
	// Audit replaces audit.Log as the audit sink
	Audit func(audit.Event)
}

// App is an assembled directory sync.
type App struct {
	Config    *config.Config
	Registry  *reconcile.Registry
	Gateway   directory.Gateway
	Stores    map[string]store.RecordStore
	Health    store.HealthStore
	Scheduler *scheduler.Scheduler
	Metrics   *metrics.Metrics
	Logger    zerolog.Logger
}

// New validates cfg and assembles an App.
func New(cfg *config.Config, opts Options) (*App, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	logger := zerolog.Nop()
	if opts.Logger != nil {
		logger = *opts.Logger
	}
	m := opts.Metrics
	if m == nil {
		m = metrics.New()
	}

	stores := opts.Stores
	if stores == nil {
		if opts.DB == nil {
			return nil, fmt.Errorf("a database connection is required")
		}
		stores = GormStores(opts.DB)
	}
	health := opts.Health
	if health == nil && opts.DB != nil {
		health = storegorm.NewHealthStore(opts.DB)
	}

	registry, err := NewRegistry(cfg, stores)
	if err != nil {
		return nil, err
	}

	gw := opts.Gateway
	if gw == nil {
		gw, err = NewGateway(cfg, logger)
		if err != nil {
			return nil, err
		}
	}
	gw = observe(gw, cfg.DirectoryConfig(), m, opts.Audit)

	app := &App{
		Config:   cfg,
		Registry: registry,
		Gateway:  gw,
		Stores:   stores,
		Health:   health,
		Metrics:  m,
		Logger:   logger,
	}

	jobs := make([]scheduler.Job, 0, len(cfg.SyncModels))
	for _, name := range cfg.SyncModels {
		runner, err := app.Runner(name, cfg.ResolveMembershipsInBatch)
		if err != nil {
			return nil, err
		}
		jobs = append(jobs, scheduler.Job{Runner: runner, Store: stores[name]})
	}
	schedOpts := []scheduler.Option{
		scheduler.WithLogger(logger),
		scheduler.WithMetrics(m),
		scheduler.WithInterval(cfg.SyncInterval),
	}
	if opts.Audit != nil {
		schedOpts = append(schedOpts, scheduler.WithAudit(opts.Audit))
	}
	app.Scheduler, err = scheduler.New(jobs, schedOpts...)
	if err != nil {
		return nil, err
	}
	return app, nil
}

// GormStores returns the GORM stores of the built-in models.
func GormStores(db *gorm.DB) map[string]store.RecordStore {
	return map[string]store.RecordStore{
		model.UserModel:  storegorm.NewUserStore(db),
		model.GroupModel: storegorm.NewGroupStore(db),
	}
}

// NewRegistry registers every configured model with its store, then
// declares the configured relationships.
func NewRegistry(cfg *config.Config, stores map[string]store.RecordStore) (*reconcile.Registry, error) {
	dcfg := cfg.DirectoryConfig()
	registry := reconcile.NewRegistry(mapping.NewSet(cfg.AttributeMapping)).
		WithIDAttribute(dcfg.IDAttribute).
		WithMembershipAttributes(dcfg.MemberAttribute, dcfg.MemberOfAttribute)

	names := cfg.ModelNames()
	for _, name := range names {
		st, ok := stores[name]
		if !ok {
			return nil, fmt.Errorf("%w: no local store for model %q", reconcile.ErrConfiguration, name)
		}
		mc := cfg.Models[name]
		idField := mc.ExternalIDField
		if idField == "" {
			idField = config.DefaultExternalIDField
		}
		if err := registry.Register(reconcile.ModelSpec{
			Name:            name,
			DirectoryClass:  mc.Class,
			ExternalIDField: idField,
			Store:           st,
		}); err != nil {
			return nil, err
		}
	}

	for _, name := range names {
		for _, rel := range cfg.Models[name].Relationships {
			if err := registry.Relate(name, rel.Role, rel.Field, rel.Target); err != nil {
				return nil, err
			}
		}
	}
	return registry, nil
}

// Runner returns a batch runner for model. batchMemberships makes it resolve
// memberships as part of the run.
func (a *App) Runner(model string, batchMemberships bool) (*reconcile.Runner, error) {
	return reconcile.NewRunner(a.Registry, a.Gateway, model,
		reconcile.WithLogger(a.Logger),
		reconcile.WithBatchMemberships(batchMemberships),
	)
}

// Store returns the local store of model.
func (a *App) Store(model string) (store.RecordStore, error) {
	st, ok := a.Stores[model]
	if !ok {
		return nil, fmt.Errorf("%w: %q", reconcile.ErrUnknownModel, model)
	}
	return st, nil
}

// Close releases the directory connection.
func (a *App) Close() error {
	if c, ok := a.Gateway.(interface{ Close() error }); ok {
		return c.Close()
	}
	return nil
}
