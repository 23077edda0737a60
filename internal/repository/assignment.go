package repository

import (
	"context"
	"fmt"

	"secret-santa-wishlist/internal/codec"
	"secret-santa-wishlist/internal/domain"
)

// AssignmentRepository stores the "I am Secret Santa for X" relation on the
// assigner's row. Nothing validates that assignments form a permutation;
// that stays a manual setup responsibility.
type AssignmentRepository struct {
	store domain.RowStore
}

func NewAssignmentRepository(store domain.RowStore) *AssignmentRepository {
	return &AssignmentRepository{store: store}
}

// AssigneeFor returns the identity the given user gifts, or "" when no
// assignment is stored, the user is unknown, or the cell is malformed.
func (r *AssignmentRepository) AssigneeFor(ctx context.Context, identity string) (string, error) {
	records, err := r.store.FetchAll(ctx)
	if err != nil {
		return "", fmt.Errorf("failed to fetch records: %w", err)
	}

	rec, ok := domain.FindByIdentity(records, identity)
	if !ok || rec.SecretSantaFor == "" {
		return "", nil
	}

	assignee, err := codec.Decode(rec.SecretSantaFor)
	if err != nil {
		return "", nil
	}
	return assignee, nil
}

// SetAssignment records assignee on the assigner's row. Repeated calls
// overwrite the previous value.
func (r *AssignmentRepository) SetAssignment(ctx context.Context, assigner, assignee string) error {
	records, err := r.store.FetchAll(ctx)
	if err != nil {
		return fmt.Errorf("failed to fetch records: %w", err)
	}

	rec, ok := domain.FindByIdentity(records, assigner)
	if !ok {
		return fmt.Errorf("set assignment for %q: %w", assigner, domain.ErrNotFound)
	}

	rec.SecretSantaFor = codec.Encode(assignee)
	if err := r.store.Save(ctx, rec); err != nil {
		return fmt.Errorf("failed to save assignment: %w", err)
	}
	return nil
}

// Identities lists every known participant in sheet order.
func (r *AssignmentRepository) Identities(ctx context.Context) ([]string, error) {
	records, err := r.store.FetchAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch records: %w", err)
	}

	identities := make([]string, 0, len(records))
	for _, rec := range records {
		identities = append(identities, rec.Identity)
	}
	return identities, nil
}

// Participants returns the full record list for building selection
// keyboards, where the sheet row doubles as an opaque callback token.
func (r *AssignmentRepository) Participants(ctx context.Context) ([]domain.Record, error) {
	records, err := r.store.FetchAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch records: %w", err)
	}
	return records, nil
}

// IdentityAt resolves a sheet row back to an identity against a fresh fetch.
func (r *AssignmentRepository) IdentityAt(ctx context.Context, row int) (string, error) {
	records, err := r.store.FetchAll(ctx)
	if err != nil {
		return "", fmt.Errorf("failed to fetch records: %w", err)
	}

	for _, rec := range records {
		if rec.Row == row {
			return rec.Identity, nil
		}
	}
	return "", fmt.Errorf("row %d: %w", row, domain.ErrNotFound)
}
