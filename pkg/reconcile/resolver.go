package reconcile

import (
	"context"
	"fmt"
	"sort"

	"github.com/rs/zerolog"

	"github.com/doodlesbykumbi/directory-sync/pkg/directory"
)

// Resolver overwrites relationship fields from the directory's membership
// attributes.
type Resolver struct {
	registry *Registry
	logger   zerolog.Logger
}

// NewResolver creates a Resolver for the models of registry.
func NewResolver(registry *Registry, opts ...Option) *Resolver {
	o := newOptions(opts)
	return &Resolver{registry: registry, logger: o.logger}
}

// ResolveMemberships fills the relationship fields of rec from obj.
//
// Containment roles read the member attribute, member_of reads the member-of
// attribute. An absent attribute leaves the field untouched, an empty one
// clears it. Identifiers with no local record are dropped.
func (r *Resolver) ResolveMemberships(ctx context.Context, rec Record, obj *directory.Object) error {
	return r.ResolveBatch(ctx, []Reconciled{{Record: rec, Object: obj}})
}

type lookupKey struct {
	role   Role
	target string
}

type assignment struct {
	record Record
	field  string
	ids    []string
}

type pendingLookup struct {
	ids         []string
	seen        map[string]bool
	assignments []assignment
}

// ResolveBatch resolves the memberships of many records with one local lookup
// per relationship role and target model.
func (r *Resolver) ResolveBatch(ctx context.Context, items []Reconciled) error {
	memberAttr, memberOfAttr := r.registry.MembershipAttributes()
	pending := make(map[lookupKey]*pendingLookup)

	for _, item := range items {
		if item.Record == nil || item.Object == nil {
			continue
		}
		model, err := r.registry.Model(item.Record.ModelName())
		if err != nil {
			return err
		}

		for _, rel := range model.Relationships() {
			attr := memberOfAttr
			if rel.Role.Containment() {
				attr = memberAttr
			}

			membership := item.Object.Membership(attr)
			switch membership.State {
			case directory.MembershipAbsent:
				continue
			case directory.MembershipEmpty:
				if err := item.Record.SetRelation(rel.Field, []Record{}); err != nil {
					return fmt.Errorf("clear %s.%s: %w", model.Name, rel.Field, err)
				}
				continue
			}

			key := lookupKey{role: rel.Role, target: rel.Target}
			p, ok := pending[key]
			if !ok {
				p = &pendingLookup{seen: make(map[string]bool)}
				pending[key] = p
			}
			for _, id := range membership.IDs {
				if !p.seen[id] {
					p.seen[id] = true
					p.ids = append(p.ids, id)
				}
			}
			p.assignments = append(p.assignments, assignment{
				record: item.Record,
				field:  rel.Field,
				ids:    membership.IDs,
			})
		}
	}

	keys := make([]lookupKey, 0, len(pending))
	for key := range pending {
		keys = append(keys, key)
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].role != keys[j].role {
			return keys[i].role < keys[j].role
		}
		return keys[i].target < keys[j].target
	})

	for _, key := range keys {
		if err := r.resolve(ctx, key, pending[key]); err != nil {
			return err
		}
	}
	return nil
}

func (r *Resolver) resolve(ctx context.Context, key lookupKey, p *pendingLookup) error {
	target, err := r.registry.Model(key.target)
	if err != nil {
		return err
	}
	found, err := target.Store.FindByExternalIDs(ctx, p.ids)
	if err != nil {
		return fmt.Errorf("resolve %s against %s: %w", key.role, key.target, err)
	}

	index := make(map[string]Record, len(found))
	for _, rec := range found {
		index[rec.ExternalID()] = rec
	}

	for _, a := range p.assignments {
		refs := make([]Record, 0, len(a.ids))
		added := make(map[string]bool, len(a.ids))
		for _, id := range a.ids {
			if ref, ok := index[id]; ok && !added[id] {
				added[id] = true
				refs = append(refs, ref)
			}
		}
		if dropped := len(a.ids) - len(added); dropped > 0 {
			r.logger.Debug().
				Str("role", key.role.String()).
				Str("target", key.target).
				Str("external_id", a.record.ExternalID()).
				Int("dropped", dropped).
				Msg("related objects not found locally")
		}
		if err := a.record.SetRelation(a.field, refs); err != nil {
			return fmt.Errorf("set %s.%s: %w", a.record.ModelName(), a.field, err)
		}
	}
	return nil
}
