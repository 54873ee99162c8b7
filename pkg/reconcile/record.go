package reconcile

import (
	"context"

	"github.com/doodlesbykumbi/directory-sync/pkg/directory"
)

// Record is a local entity that can be synchronized from the directory.
// Implementing it is how a model type declares the directory sync capability.
type Record interface {
	// ModelName returns the registered model the record belongs to
	ModelName() string

	// ExternalID returns the directory identifier stored on the record
	ExternalID() string

	// Field returns the value of a local field
	Field(name string) (any, bool)

	// SetField assigns a directory value to a local field.
	// A nil value means the directory does not carry the attribute.
	SetField(name string, value any) error

	// SetRelation overwrites a relationship field with the given records
	SetRelation(field string, refs []Record) error
}

// Schema is implemented by records that can describe their fields.
// When available, registration rejects mappings onto unknown fields.
type Schema interface {
	HasField(name string) bool
	HasRelation(field string) bool
}

// Store is the local persistence of one model type.
type Store interface {
	// FindByExternalIDs returns the records whose external identifier is in ids.
	// Identifiers without a record are skipped. Order is not significant.
	FindByExternalIDs(ctx context.Context, ids []string) ([]Record, error)

	// New returns an unsaved record
	New() Record
}

// Lookup selects the directory object a record is synchronized from.
// Object wins over Params. With neither, the record's external identifier is used.
type Lookup struct {
	Object *directory.Object
	Params map[string]any
}

// Reconciled pairs a record with the directory object it was updated from.
type Reconciled struct {
	Record Record
	Object *directory.Object
}
