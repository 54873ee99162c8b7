package gorm

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"github.com/doodlesbykumbi/directory-sync/pkg/model"
	"github.com/doodlesbykumbi/directory-sync/pkg/reconcile"
	"github.com/doodlesbykumbi/directory-sync/pkg/store"
)

// Ensure GroupStore implements store.RecordStore
var _ store.RecordStore = (*GroupStore)(nil)

// GroupStore implements store.RecordStore for groups using GORM
type GroupStore struct {
	db *gorm.DB
}

// NewGroupStore creates a new GroupStore
func NewGroupStore(db *gorm.DB) *GroupStore {
	return &GroupStore{db: db}
}

// FindByExternalIDs returns the groups whose object GUID is in ids
func (s *GroupStore) FindByExternalIDs(ctx context.Context, ids []string) ([]reconcile.Record, error) {
	if len(ids) == 0 {
		return []reconcile.Record{}, nil
	}

	var groups []*model.Group
	if err := s.db.WithContext(ctx).Where("object_guid IN ?", ids).Find(&groups).Error; err != nil {
		return nil, fmt.Errorf("failed to find groups: %w", err)
	}

	recs := make([]reconcile.Record, 0, len(groups))
	for _, g := range groups {
		recs = append(recs, g)
	}
	return recs, nil
}

// New returns an unsaved group
func (s *GroupStore) New() reconcile.Record {
	return &model.Group{}
}

// Save writes groups and their overwritten members, subgroups and parents
func (s *GroupStore) Save(ctx context.Context, recs ...reconcile.Record) error {
	return saveRecords(ctx, s.db, recs, func(rec reconcile.Record) (any, bool) {
		g, ok := rec.(*model.Group)
		return g, ok
	})
}

// Count returns the number of groups
func (s *GroupStore) Count(ctx context.Context) (int64, error) {
	var count int64
	err := s.db.WithContext(ctx).Model(&model.Group{}).Count(&count).Error
	return count, err
}
