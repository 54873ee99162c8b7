package gorm

import (
	"context"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/doodlesbykumbi/directory-sync/pkg/reconcile"
	"github.com/doodlesbykumbi/directory-sync/pkg/store"
)

// changeTracker is implemented by models that remember overwritten associations.
type changeTracker interface {
	ChangedAssociations() []string
	ResetChanges()
}

// saveRecords writes recs in one transaction. check rejects records of other models.
func saveRecords(ctx context.Context, db *gorm.DB, recs []reconcile.Record, check func(reconcile.Record) (any, bool)) error {
	if len(recs) == 0 {
		return nil
	}

	rows := make([]any, 0, len(recs))
	for _, rec := range recs {
		row, ok := check(rec)
		if !ok {
			return fmt.Errorf("%w: %s %q", store.ErrRecordType, rec.ModelName(), rec.ExternalID())
		}
		rows = append(rows, row)
	}

	err := db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, row := range rows {
			if err := tx.Omit(clause.Associations).Save(row).Error; err != nil {
				return err
			}
		}
		// Second pass so that records created in this batch can reference each other.
		for _, row := range rows {
			tracker, ok := row.(changeTracker)
			if !ok {
				continue
			}
			for _, name := range tracker.ChangedAssociations() {
				if err := replaceAssociation(tx, row, name); err != nil {
					return fmt.Errorf("replace %s: %w", name, err)
				}
			}
		}
		return nil
	})
	if err != nil {
		return err
	}

	for _, row := range rows {
		if tracker, ok := row.(changeTracker); ok {
			tracker.ResetChanges()
		}
	}
	return nil
}

func replaceAssociation(tx *gorm.DB, row any, name string) error {
	assoc := tx.Model(row).Association(name)
	if assoc.Error != nil {
		return assoc.Error
	}
	current, err := associationValue(row, name)
	if err != nil {
		return err
	}
	if current == nil {
		return assoc.Clear()
	}
	return assoc.Replace(current)
}
