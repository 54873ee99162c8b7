package reconcile

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/doodlesbykumbi/directory-sync/pkg/directory"
)

// Synchronizer copies directory attributes onto single records.
type Synchronizer struct {
	registry *Registry
	gateway  directory.Gateway
	resolver *Resolver
	logger   zerolog.Logger
}

// NewSynchronizer creates a Synchronizer searching gateway.
func NewSynchronizer(registry *Registry, gateway directory.Gateway, opts ...Option) *Synchronizer {
	o := newOptions(opts)
	return &Synchronizer{
		registry: registry,
		gateway:  gateway,
		resolver: NewResolver(registry, opts...),
		logger:   o.logger,
	}
}

// CopyFromDirectory sets every mapped field of rec to the value of its
// directory attribute on obj. Attributes the object lacks are written as nil.
// The external identifier field always receives obj.ExternalID.
func (s *Synchronizer) CopyFromDirectory(rec Record, obj *directory.Object) error {
	if obj == nil {
		return nil
	}
	model, err := s.registry.Model(rec.ModelName())
	if err != nil {
		return err
	}
	attrs, err := s.registry.AttributeMap(model.Name)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrConfiguration, err)
	}

	for _, pair := range attrs.Pairs() {
		if pair.Local == model.ExternalIDField {
			continue
		}
		if err := rec.SetField(pair.Local, obj.Get(pair.Directory)); err != nil {
			return fmt.Errorf("copy %s.%s from %s: %w", model.Name, pair.Local, pair.Directory, err)
		}
	}
	if model.ExternalIDField != "" {
		if err := rec.SetField(model.ExternalIDField, obj.ExternalID); err != nil {
			return fmt.Errorf("copy %s.%s: %w", model.Name, model.ExternalIDField, err)
		}
	}
	return nil
}

// SyncFromDirectory fetches the directory object of rec once, copies its
// attributes and resolves its memberships. A record with no directory
// object is left unchanged.
func (s *Synchronizer) SyncFromDirectory(ctx context.Context, rec Record, lookup Lookup) error {
	obj, err := s.fetch(ctx, rec, lookup)
	if err != nil || obj == nil {
		return err
	}
	if err := s.CopyFromDirectory(rec, obj); err != nil {
		return err
	}
	return s.resolver.ResolveMemberships(ctx, rec, obj)
}

// UpdateFromDirectory is SyncFromDirectory without membership resolution.
func (s *Synchronizer) UpdateFromDirectory(ctx context.Context, rec Record, lookup Lookup) error {
	obj, err := s.fetch(ctx, rec, lookup)
	if err != nil || obj == nil {
		return err
	}
	return s.CopyFromDirectory(rec, obj)
}

// Resolver returns the resolver used by SyncFromDirectory.
func (s *Synchronizer) Resolver() *Resolver {
	return s.resolver
}

func (s *Synchronizer) fetch(ctx context.Context, rec Record, lookup Lookup) (*directory.Object, error) {
	if lookup.Object != nil {
		return lookup.Object, nil
	}
	model, err := s.registry.Model(rec.ModelName())
	if err != nil {
		return nil, err
	}

	var objs []*directory.Object
	if len(lookup.Params) > 0 {
		objs, err = findInDirectory(ctx, s.registry, s.gateway, model, lookup.Params)
	} else {
		id := rec.ExternalID()
		if id == "" {
			s.logger.Debug().Str("model", model.Name).Msg("record has no external id, nothing to look up")
			return nil, nil
		}
		objs, err = search(ctx, s.gateway, model, directory.Filter{s.registry.IDAttribute(): id})
	}
	if err != nil {
		return nil, err
	}

	if len(objs) == 0 {
		s.logger.Debug().
			Str("model", model.Name).
			Str("external_id", rec.ExternalID()).
			Msg("no directory object, record left unchanged")
		return nil, nil
	}
	return objs[0], nil
}

// findInDirectory translates params to directory names and searches. An
// empty translation lists every object of the model's class.
func findInDirectory(ctx context.Context, reg *Registry, gw directory.Gateway, model *Model, params map[string]any) ([]*directory.Object, error) {
	attrs, err := reg.AttributeMap(model.Name)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrConfiguration, err)
	}
	filter := attrs.ToDirectory(params)
	if len(filter) == 0 {
		return search(ctx, gw, model, nil)
	}
	return search(ctx, gw, model, directory.Filter(filter))
}

func search(ctx context.Context, gw directory.Gateway, model *Model, filter directory.Filter) ([]*directory.Object, error) {
	objs, err := gw.Search(ctx, model.DirectoryClass, filter)
	if err != nil {
		return nil, fmt.Errorf("search %s: %w", model.DirectoryClass, err)
	}
	return objs, nil
}
