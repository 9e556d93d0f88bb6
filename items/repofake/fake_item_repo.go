package repofake

import (
	"context"
	"sort"
	"sync"

	apperrors "github.com/listkeeper/listkeeper/internal/errors"
	"github.com/listkeeper/listkeeper/items"
)

var _ items.Repo = (*FakeItemRepo)(nil)

type FakeItemRepo struct {
	byID map[string]*items.Item
	lock sync.RWMutex
}

func NewFakeItemRepo() *FakeItemRepo {
	return &FakeItemRepo{byID: make(map[string]*items.Item)}
}

func (r *FakeItemRepo) Create(_ context.Context, item *items.Item) error {
	r.lock.Lock()
	defer r.lock.Unlock()

	copied := *item
	r.byID[item.ID] = &copied
	return nil
}

func (r *FakeItemRepo) ListByUser(_ context.Context, userID string) ([]*items.Item, error) {
	r.lock.RLock()
	defer r.lock.RUnlock()

	result := make([]*items.Item, 0)
	for _, item := range r.byID {
		if item.UserID == userID {
			copied := *item
			result = append(result, &copied)
		}
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].CreatedAt.After(result[j].CreatedAt)
	})
	return result, nil
}

func (r *FakeItemRepo) Delete(_ context.Context, userID, itemID string) error {
	r.lock.Lock()
	defer r.lock.Unlock()

	item, ok := r.byID[itemID]
	if !ok || item.UserID != userID {
		return apperrors.ErrNotFound
	}
	delete(r.byID, itemID)
	return nil
}
