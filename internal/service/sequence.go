package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/restropos/api/internal/database"
)

// SequenceStore defines the DB methods used by the sequence allocator.
// Must be backed by the enclosing transaction: the row lock the upsert
// takes serializes concurrent allocations per tenant until commit.
type SequenceStore interface {
	NextTokenValue(ctx context.Context, arg database.NextTokenValueParams) (int32, error)
	NextSequenceValue(ctx context.Context, arg database.SequenceParams) (int64, error)
}

// nextTokenNo allocates the next kitchen token for the tenant. Tokens
// restart at 1 the first time a token is requested on a new calendar
// day.
func nextTokenNo(ctx context.Context, store SequenceStore, tenantID uuid.UUID, today time.Time) (int32, error) {
	tokenNo, err := store.NextTokenValue(ctx, database.NextTokenValueParams{
		TenantID: tenantID,
		Today:    pgtype.Date{Time: today, Valid: true},
	})
	if err != nil {
		return 0, fmt.Errorf("advance token sequence: %w", err)
	}
	return tokenNo, nil
}

// nextSequence allocates the next value of a generic per-tenant counter
// (invoice numbers, PO numbers).
func nextSequence(ctx context.Context, store SequenceStore, tenantID uuid.UUID, kind string) (int64, error) {
	value, err := store.NextSequenceValue(ctx, database.SequenceParams{TenantID: tenantID, Kind: kind})
	if err != nil {
		return 0, fmt.Errorf("advance %s sequence: %w", kind, err)
	}
	return value, nil
}
