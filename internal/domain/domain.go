package domain

import (
	"context"
	"errors"
)

// Record is one participant row in the wishlist sheet. Gifts and
// SecretSantaFor hold the encoded cell values exactly as stored.
type Record struct {
	Row            int // 1-based sheet row
	Identity       string
	Gifts          string
	SecretSantaFor string
}

var ErrNotFound = errors.New("record not found")

// FindByIdentity returns the first record with the given identity.
// Identities are assumed unique; on a collision the first row wins.
func FindByIdentity(records []Record, identity string) (Record, bool) {
	for _, rec := range records {
		if rec.Identity == identity {
			return rec, true
		}
	}
	return Record{}, false
}

// State is the conversation scene a chat is currently in.
type State string

const (
	StateMenu       State = "menu"
	StateAddWish    State = "add_wish"
	StateDeleteWish State = "delete_wish"
)

type RowStore interface {
	FetchAll(ctx context.Context) ([]Record, error)
	Save(ctx context.Context, rec Record) error
}

type SessionStore interface {
	Get(ctx context.Context, chatID int64) (State, error)
	Set(ctx context.Context, chatID int64, state State) error
	Clear(ctx context.Context, chatID int64) error
}
