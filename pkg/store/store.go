package store

import (
	"context"
	"errors"

	"github.com/doodlesbykumbi/directory-sync/pkg/reconcile"
)

// ErrRecordType is returned when a store is asked to save a record of another model.
var ErrRecordType = errors.New("record belongs to another model")

// RecordStore persists the records of one synchronized model
type RecordStore interface {
	reconcile.Store

	// Save writes records and the relationships overwritten on them in one transaction
	Save(ctx context.Context, recs ...reconcile.Record) error

	// Count returns the number of stored records
	Count(ctx context.Context) (int64, error)
}

// HealthStore provides health check operations
type HealthStore interface {
	// CheckConnectivity verifies database connectivity
	CheckConnectivity(ctx context.Context) error
}
