package reconcile

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/doodlesbykumbi/directory-sync/pkg/directory"
)

// Runner reconciles the records of one model in batches.
type Runner struct {
	registry     *Registry
	gateway      directory.Gateway
	model        *Model
	synchronizer *Synchronizer
	logger       zerolog.Logger

	// ResolveMembershipsInBatch makes FindOrCreateFromDirectory resolve the
	// memberships of every record it returns.
	ResolveMembershipsInBatch bool
}

// Result describes a batch run.
type Result struct {
	Model   string
	Records []Record
	Objects []*directory.Object
	Created int
	Updated int
}

// NewRunner creates a Runner for a registered model.
func NewRunner(registry *Registry, gateway directory.Gateway, model string, opts ...Option) (*Runner, error) {
	m, err := registry.Model(model)
	if err != nil {
		return nil, err
	}
	o := newOptions(opts)
	return &Runner{
		registry:                  registry,
		gateway:                   gateway,
		model:                     m,
		synchronizer:              NewSynchronizer(registry, gateway, opts...),
		logger:                    o.logger.With().Str("model", model).Logger(),
		ResolveMembershipsInBatch: o.batchMemberships,
	}, nil
}

// Model returns the model the runner reconciles.
func (r *Runner) Model() *Model {
	return r.model
}

// Synchronizer returns the synchronizer used for single records.
func (r *Runner) Synchronizer() *Synchronizer {
	return r.synchronizer
}

// FindOrCreateFromDirectory searches the directory with params and returns a
// local record for every object found, in directory order. Existing records
// are updated in place, missing ones are created unsaved.
func (r *Runner) FindOrCreateFromDirectory(ctx context.Context, params map[string]any) ([]Record, error) {
	res, err := r.Reconcile(ctx, params)
	if err != nil {
		return nil, err
	}
	return res.Records, nil
}

// Reconcile is FindOrCreateFromDirectory reporting what it did.
func (r *Runner) Reconcile(ctx context.Context, params map[string]any) (*Result, error) {
	objs, err := r.FindInDirectory(ctx, params)
	if err != nil {
		return nil, err
	}

	existing, err := r.FindLocalByDirectory(ctx, objs...)
	if err != nil {
		return nil, err
	}
	index := make(map[string]Record, len(existing))
	for _, rec := range existing {
		index[rec.ExternalID()] = rec
	}

	res := &Result{
		Model:   r.model.Name,
		Records: make([]Record, 0, len(objs)),
		Objects: objs,
	}
	items := make([]Reconciled, 0, len(objs))
	for _, obj := range objs {
		rec, ok := index[obj.ExternalID]
		if ok {
			res.Updated++
		} else {
			rec = r.model.Store.New()
			res.Created++
		}

		if err := r.synchronizer.UpdateFromDirectory(ctx, rec, Lookup{Object: obj}); err != nil {
			return nil, err
		}
		// Duplicate objects in one result share a record.
		index[obj.ExternalID] = rec

		res.Records = append(res.Records, rec)
		items = append(items, Reconciled{Record: rec, Object: obj})
	}

	if r.ResolveMembershipsInBatch {
		if err := r.synchronizer.Resolver().ResolveBatch(ctx, items); err != nil {
			return nil, err
		}
	}

	r.logger.Debug().
		Int("found", len(objs)).
		Int("created", res.Created).
		Int("updated", res.Updated).
		Bool("memberships", r.ResolveMembershipsInBatch).
		Msg("reconciled batch")
	return res, nil
}

// FindAllInDirectory lists every directory object of the model's class.
func (r *Runner) FindAllInDirectory(ctx context.Context) ([]*directory.Object, error) {
	return search(ctx, r.gateway, r.model, nil)
}

// FindInDirectory translates params to directory names and searches.
// Empty params list the whole class.
func (r *Runner) FindInDirectory(ctx context.Context, params map[string]any) ([]*directory.Object, error) {
	return findInDirectory(ctx, r.registry, r.gateway, r.model, params)
}

// FindLocalByDirectory returns the local records matching the external
// identifiers of objs with one store lookup. No identifiers, no lookup.
func (r *Runner) FindLocalByDirectory(ctx context.Context, objs ...*directory.Object) ([]Record, error) {
	ids := make([]string, 0, len(objs))
	seen := make(map[string]bool, len(objs))
	for _, obj := range objs {
		if obj == nil || obj.ExternalID == "" || seen[obj.ExternalID] {
			continue
		}
		seen[obj.ExternalID] = true
		ids = append(ids, obj.ExternalID)
	}
	if len(ids) == 0 {
		return []Record{}, nil
	}

	recs, err := r.model.Store.FindByExternalIDs(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("find %s by external id: %w", r.model.Name, err)
	}
	return recs, nil
}

// FindByExternalID returns the directory object carrying id, or nil.
func (r *Runner) FindByExternalID(ctx context.Context, id string) (*directory.Object, error) {
	if id == "" {
		return nil, nil
	}
	objs, err := search(ctx, r.gateway, r.model, directory.Filter{r.registry.IDAttribute(): id})
	if err != nil || len(objs) == 0 {
		return nil, err
	}
	return objs[0], nil
}
