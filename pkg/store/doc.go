// Package store provides storage abstractions for synchronized records.
//
// This package defines the interfaces the server and scheduler use to persist
// reconciled records, decoupling them from the database implementation. The
// GORM implementations live in the gorm subpackage.
//
// # Available Stores
//
//   - RecordStore: lookup by external identifier plus batched saves, one per
//     synchronized model (users, groups)
//   - HealthStore: database connectivity check
//
// # Usage
//
//	users := gorm.NewUserStore(db)
//	records, err := runner.FindOrCreateFromDirectory(ctx, nil)
//	if err != nil {
//	    return err
//	}
//	if err := users.Save(ctx, records...); err != nil {
//	    if errors.Is(err, store.ErrRecordType) {
//	        // record of another model passed to the store
//	    }
//	}
package store
