package scheduler

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/doodlesbykumbi/directory-sync/pkg/audit"
	"github.com/doodlesbykumbi/directory-sync/pkg/metrics"
	"github.com/doodlesbykumbi/directory-sync/pkg/reconcile"
	"github.com/doodlesbykumbi/directory-sync/pkg/store"
)

// Triggers recorded on audit events.
const (
	TriggerScheduler = "scheduler"
	TriggerAPI       = "api"
	TriggerCLI       = "cli"
	TriggerWatch     = "watch"
)

// ErrUnknownJob is returned when no job reconciles the requested model.
var ErrUnknownJob = errors.New("model is not scheduled for sync")

// Job reconciles one model.
type Job struct {
	Runner *reconcile.Runner
	Store  store.RecordStore
	// Params narrows the scheduled directory search; empty lists the whole class
	Params map[string]any
}

// Request asks for one batch run.
type Request struct {
	Model   string
	Params  map[string]any
	DryRun  bool
	Trigger string
}

// Result describes a finished batch run.
type Result struct {
	Model    string
	Found    int
	Created  int
	Updated  int
	DryRun   bool
	Duration time.Duration
	Records  []reconcile.Record
}

// RecordResult describes a single record sync.
type RecordResult struct {
	Model      string
	ExternalID string
	Record     reconcile.Record
	Found      bool
	Created    bool
}

// Scheduler reconciles models on demand and periodically.
type Scheduler struct {
	jobs     map[string]Job
	order    []string
	interval time.Duration
	logger   zerolog.Logger
	metrics  *metrics.Metrics
	audit    func(audit.Event)

	// runs of the same model never overlap
	locks map[string]*sync.Mutex

	cancel context.CancelFunc
	done   chan struct{}
}

// Option configures a Scheduler.
type Option func(*Scheduler)

// WithLogger sets the logger.
func WithLogger(logger zerolog.Logger) Option {
	return func(s *Scheduler) {
		s.logger = logger
	}
}

// WithMetrics sets the collectors runs are observed in.
func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Scheduler) {
		s.metrics = m
	}
}

// WithAudit replaces audit.Log as the audit sink.
func WithAudit(fn func(audit.Event)) Option {
	return func(s *Scheduler) {
		s.audit = fn
	}
}

// WithInterval sets the period of Start. Zero disables periodic runs.
func WithInterval(d time.Duration) Option {
	return func(s *Scheduler) {
		s.interval = d
	}
}

// New creates a Scheduler for jobs, run in the given order.
func New(jobs []Job, opts ...Option) (*Scheduler, error) {
	s := &Scheduler{
		jobs:   make(map[string]Job, len(jobs)),
		locks:  make(map[string]*sync.Mutex, len(jobs)),
		logger: zerolog.Nop(),
		audit:  audit.Log,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = s.logger.With().Str("component", "scheduler").Logger()

	for _, job := range jobs {
		if job.Runner == nil || job.Store == nil {
			return nil, errors.New("scheduler job needs a runner and a store")
		}
		name := job.Runner.Model().Name
		if _, dup := s.jobs[name]; dup {
			return nil, fmt.Errorf("model %q scheduled twice", name)
		}
		s.jobs[name] = job
		s.locks[name] = &sync.Mutex{}
		s.order = append(s.order, name)
	}
	return s, nil
}

// Models returns the scheduled models in run order.
func (s *Scheduler) Models() []string {
	out := make([]string, len(s.order))
	copy(out, s.order)
	return out
}

// Job returns the job of model.
func (s *Scheduler) Job(model string) (Job, error) {
	job, ok := s.jobs[model]
	if !ok {
		return Job{}, fmt.Errorf("%w: %q", ErrUnknownJob, model)
	}
	return job, nil
}

// Sync reconciles the directory objects matching req.Params into local
// records of req.Model and saves them unless req.DryRun is set.
func (s *Scheduler) Sync(ctx context.Context, req Request) (*Result, error) {
	job, err := s.Job(req.Model)
	if err != nil {
		return nil, err
	}
	if req.Trigger == "" {
		req.Trigger = TriggerCLI
	}

	lock := s.locks[req.Model]
	lock.Lock()
	defer lock.Unlock()

	started := time.Now()
	res, err := s.reconcile(ctx, job, req)
	elapsed := time.Since(started)

	event := audit.ReconcileEvent{
		Model:   req.Model,
		Trigger: req.Trigger,
		Params:  req.Params,
		DryRun:  req.DryRun,
		Success: err == nil,
	}
	if err != nil {
		event.ErrorMessage = err.Error()
		s.metrics.ObserveRun(req.Model, 0, 0, elapsed, err)
		s.audit(event)
		return nil, err
	}

	res.Duration = elapsed
	event.Found, event.Created, event.Updated = res.Found, res.Created, res.Updated
	if !req.DryRun {
		s.metrics.ObserveRun(req.Model, res.Created, res.Updated, elapsed, nil)
	}
	s.audit(event)

	s.logger.Info().
		Str("model", req.Model).
		Str("trigger", req.Trigger).
		Int("found", res.Found).
		Int("created", res.Created).
		Int("updated", res.Updated).
		Bool("dry_run", req.DryRun).
		Dur("duration", elapsed).
		Msg("reconciliation finished")
	return res, nil
}

func (s *Scheduler) reconcile(ctx context.Context, job Job, req Request) (*Result, error) {
	batch, err := job.Runner.Reconcile(ctx, req.Params)
	if err != nil {
		return nil, err
	}
	if !req.DryRun {
		if err := job.Store.Save(ctx, batch.Records...); err != nil {
			return nil, fmt.Errorf("save %s records: %w", req.Model, err)
		}
	}
	return &Result{
		Model:   batch.Model,
		Found:   len(batch.Objects),
		Created: batch.Created,
		Updated: batch.Updated,
		DryRun:  req.DryRun,
		Records: batch.Records,
	}, nil
}

// SyncRecord fully syncs the record of model carrying externalID, creating
// it when it does not exist yet. A record the directory does not know is
// left alone and reported with Found false.
func (s *Scheduler) SyncRecord(ctx context.Context, model, externalID, trigger string) (*RecordResult, error) {
	job, err := s.Job(model)
	if err != nil {
		return nil, err
	}
	if trigger == "" {
		trigger = TriggerCLI
	}

	lock := s.locks[model]
	lock.Lock()
	defer lock.Unlock()

	res, err := s.syncRecord(ctx, job, externalID)
	event := audit.RecordSyncEvent{
		Model:      model,
		ExternalID: externalID,
		Trigger:    trigger,
		Success:    err == nil,
	}
	if err != nil {
		event.ErrorMessage = err.Error()
		s.audit(event)
		return nil, err
	}
	event.Found, event.Created = res.Found, res.Created
	s.audit(event)

	s.logger.Info().
		Str("model", model).
		Str("external_id", externalID).
		Bool("found", res.Found).
		Bool("created", res.Created).
		Msg("record synced")
	return res, nil
}

func (s *Scheduler) syncRecord(ctx context.Context, job Job, externalID string) (*RecordResult, error) {
	model := job.Runner.Model().Name
	res := &RecordResult{Model: model, ExternalID: externalID}

	obj, err := job.Runner.FindByExternalID(ctx, externalID)
	if err != nil {
		return nil, err
	}
	if obj == nil {
		return res, nil
	}
	res.Found = true

	existing, err := job.Runner.FindLocalByDirectory(ctx, obj)
	if err != nil {
		return nil, err
	}
	if len(existing) > 0 {
		res.Record = existing[0]
	} else {
		res.Record = job.Store.New()
		res.Created = true
	}

	if err := job.Runner.Synchronizer().SyncFromDirectory(ctx, res.Record, reconcile.Lookup{Object: obj}); err != nil {
		return nil, err
	}
	if err := job.Store.Save(ctx, res.Record); err != nil {
		return nil, fmt.Errorf("save %s %s: %w", model, externalID, err)
	}
	return res, nil
}

// RunOnce reconciles every scheduled model with its job params. A failing
// model does not stop the others; their errors are joined.
func (s *Scheduler) RunOnce(ctx context.Context) ([]*Result, error) {
	results := make([]*Result, 0, len(s.order))
	var errs []error
	for _, name := range s.order {
		if err := ctx.Err(); err != nil {
			errs = append(errs, err)
			break
		}
		res, err := s.Sync(ctx, Request{
			Model:   name,
			Params:  s.jobs[name].Params,
			Trigger: TriggerScheduler,
		})
		if err != nil {
			s.logger.Error().Err(err).Str("model", name).Msg("reconciliation failed")
			errs = append(errs, fmt.Errorf("%s: %w", name, err))
			continue
		}
		results = append(results, res)
	}
	return results, errors.Join(errs...)
}

// Start runs RunOnce immediately and then every interval in a background
// goroutine. With no interval configured it does nothing.
func (s *Scheduler) Start(ctx context.Context) {
	if s.interval <= 0 {
		s.logger.Info().Msg("periodic reconciliation disabled")
		return
	}
	ctx, s.cancel = context.WithCancel(ctx)
	s.done = make(chan struct{})

	go func() {
		defer close(s.done)

		s.logger.Info().
			Dur("interval", s.interval).
			Strs("models", s.order).
			Msg("periodic reconciliation started")

		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()

		for {
			_, _ = s.RunOnce(ctx)

			select {
			case <-ctx.Done():
				s.logger.Info().Msg("periodic reconciliation stopped")
				return
			case <-ticker.C:
			}
		}
	}()
}

// Stop cancels periodic runs and waits for the running one to finish.
func (s *Scheduler) Stop() {
	if s.cancel != nil {
		s.cancel()
	}
	if s.done != nil {
		<-s.done
	}
}
