// Package reconcile brings local account and group records into agreement
// with an external directory.
//
// The engine is made of four parts that share one Registry:
//
//   - Registry: the declared models, their local stores, and the
//     relationship roles (member_of, member_users, member_groups) each model
//     takes part in
//   - Synchronizer: copies mapped directory attributes onto a single record
//   - Resolver: overwrites a record's relationship fields from the
//     directory's member / memberOf attributes
//   - Runner: the batch "search directory, look up locally, create or update"
//     cycle for one model
//
// # Usage
//
//	reg := reconcile.NewRegistry(mapping.NewSet(cfg.AttributeMapping))
//	_ = reg.Register(reconcile.ModelSpec{Name: "user", ExternalIDField: "object_guid", Store: users})
//	_ = reg.Register(reconcile.ModelSpec{Name: "group", ExternalIDField: "object_guid", Store: groups})
//	_ = reg.Relate("user", reconcile.RoleMemberOf, "groups", "group")
//
//	runner, _ := reconcile.NewRunner(reg, gateway, "user")
//	records, err := runner.FindOrCreateFromDirectory(ctx, map[string]any{"department": "R&D"})
//
// The engine never persists records. Callers save the returned records with
// their store.
//
// # Batching
//
// A batch run issues one directory search and one local lookup by external
// identifier, whatever the number of objects found. Membership resolution,
// when enabled for batch runs, adds one lookup per relationship role.
package reconcile
