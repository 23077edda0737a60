package repository

import (
	"context"
	"errors"
	"fmt"

	"secret-santa-wishlist/internal/codec"
	"secret-santa-wishlist/internal/domain"
)

// ErrPositionOutOfRange reports a delete position outside [1, list length].
// It is a user-input error: the wishlist is left unchanged.
var ErrPositionOutOfRange = errors.New("no wish at that position")

// WishlistRepository reads and mutates the encoded wishlist cell of a
// participant. Every operation re-reads the whole sheet; there is no cache.
type WishlistRepository struct {
	store domain.RowStore
}

func NewWishlistRepository(store domain.RowStore) *WishlistRepository {
	return &WishlistRepository{store: store}
}

// List returns the wishes of identity in order. An unknown identity or a
// malformed cell reads as an empty list.
func (r *WishlistRepository) List(ctx context.Context, identity string) ([]string, error) {
	records, err := r.store.FetchAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch records: %w", err)
	}

	rec, ok := domain.FindByIdentity(records, identity)
	if !ok {
		return []string{}, nil
	}
	return decodeWishes(rec.Gifts), nil
}

// Add appends wish to the identity's wishlist and writes the whole
// re-encoded list back.
func (r *WishlistRepository) Add(ctx context.Context, identity, wish string) error {
	records, err := r.store.FetchAll(ctx)
	if err != nil {
		return fmt.Errorf("failed to fetch records: %w", err)
	}

	rec, ok := domain.FindByIdentity(records, identity)
	if !ok {
		return fmt.Errorf("add wish for %q: %w", identity, domain.ErrNotFound)
	}

	items := append(decodeWishes(rec.Gifts), wish)
	rec.Gifts = codec.JoinList(items)

	if err := r.store.Save(ctx, rec); err != nil {
		return fmt.Errorf("failed to save wishlist: %w", err)
	}
	return nil
}

// Delete removes the wish at the 1-based position. Positions outside the
// current list yield ErrPositionOutOfRange without touching the sheet.
func (r *WishlistRepository) Delete(ctx context.Context, identity string, position int) error {
	records, err := r.store.FetchAll(ctx)
	if err != nil {
		return fmt.Errorf("failed to fetch records: %w", err)
	}

	rec, ok := domain.FindByIdentity(records, identity)
	if !ok {
		return fmt.Errorf("delete wish for %q: %w", identity, domain.ErrNotFound)
	}

	items := decodeWishes(rec.Gifts)
	if position < 1 || position > len(items) {
		return ErrPositionOutOfRange
	}

	items = append(items[:position-1], items[position:]...)
	rec.Gifts = codec.JoinList(items)

	if err := r.store.Save(ctx, rec); err != nil {
		return fmt.Errorf("failed to save wishlist: %w", err)
	}
	return nil
}

// decodeWishes fails closed: a cell that does not decode is treated as an
// empty wishlist rather than corrupting further writes.
func decodeWishes(token string) []string {
	items, err := codec.SplitList(token)
	if err != nil {
		return []string{}
	}
	return items
}
