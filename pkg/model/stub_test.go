package model

import (
	"context"

	"github.com/doodlesbykumbi/directory-sync/pkg/reconcile"
)

type stubStore struct {
	model string
}

func newStub(model string) *stubStore {
	return &stubStore{model: model}
}

func (s *stubStore) FindByExternalIDs(ctx context.Context, ids []string) ([]reconcile.Record, error) {
	return nil, nil
}

func (s *stubStore) New() reconcile.Record {
	if s.model == GroupModel {
		return &Group{}
	}
	return &User{}
}
