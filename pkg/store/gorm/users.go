package gorm

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"github.com/doodlesbykumbi/directory-sync/pkg/model"
	"github.com/doodlesbykumbi/directory-sync/pkg/reconcile"
	"github.com/doodlesbykumbi/directory-sync/pkg/store"
)

// Ensure UserStore implements store.RecordStore
var _ store.RecordStore = (*UserStore)(nil)

// UserStore implements store.RecordStore for users using GORM
type UserStore struct {
	db *gorm.DB
}

// NewUserStore creates a new UserStore
func NewUserStore(db *gorm.DB) *UserStore {
	return &UserStore{db: db}
}

// FindByExternalIDs returns the users whose object GUID is in ids
func (s *UserStore) FindByExternalIDs(ctx context.Context, ids []string) ([]reconcile.Record, error) {
	if len(ids) == 0 {
		return []reconcile.Record{}, nil
	}

	var users []*model.User
	if err := s.db.WithContext(ctx).Where("object_guid IN ?", ids).Find(&users).Error; err != nil {
		return nil, fmt.Errorf("failed to find users: %w", err)
	}

	recs := make([]reconcile.Record, 0, len(users))
	for _, u := range users {
		recs = append(recs, u)
	}
	return recs, nil
}

// New returns an unsaved user
func (s *UserStore) New() reconcile.Record {
	return &model.User{}
}

// Save writes users and their overwritten group memberships
func (s *UserStore) Save(ctx context.Context, recs ...reconcile.Record) error {
	return saveRecords(ctx, s.db, recs, func(rec reconcile.Record) (any, bool) {
		u, ok := rec.(*model.User)
		return u, ok
	})
}

// Count returns the number of users
func (s *UserStore) Count(ctx context.Context) (int64, error) {
	var count int64
	err := s.db.WithContext(ctx).Model(&model.User{}).Count(&count).Error
	return count, err
}
