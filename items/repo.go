package items

import "context"

// Repo is scoped by owner on every operation: an item is only ever visible
// to the user it belongs to, so a delete for another user's item reports
// ErrNotFound rather than revealing the item exists.
type Repo interface {
	Create(ctx context.Context, item *Item) error
	ListByUser(ctx context.Context, userID string) ([]*Item, error)
	Delete(ctx context.Context, userID, itemID string) error
}
