package database

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
)

type NextTokenValueParams struct {
	TenantID uuid.UUID
	Today    pgtype.Date
}

// NextTokenValue advances the tenant's kitchen token counter in one
// atomic upsert and returns the new value. The counter restarts at 1 on
// the first allocation of a calendar day. A SELECT ... FOR UPDATE on an
// absent row takes no lock, so two first allocations could both read
// zero; the single INSERT ... ON CONFLICT serializes them on the
// primary key instead, and the row lock it takes holds until commit.
func (q *Queries) NextTokenValue(ctx context.Context, arg NextTokenValueParams) (int32, error) {
	row := q.db.QueryRow(ctx, `
		INSERT INTO token_sequences (tenant_id, current_value, last_updated)
		VALUES ($1, 1, $2)
		ON CONFLICT (tenant_id) DO UPDATE SET
			current_value = CASE
				WHEN token_sequences.last_updated = EXCLUDED.last_updated
					THEN token_sequences.current_value + 1
				ELSE 1
			END,
			last_updated = EXCLUDED.last_updated
		RETURNING current_value`,
		arg.TenantID, arg.Today)
	var value int32
	err := row.Scan(&value)
	return value, err
}

type SequenceParams struct {
	TenantID uuid.UUID
	Kind     string
}

// NextSequenceValue advances a generic per-tenant counter (invoice
// numbers, PO numbers) atomically and returns the new value. These
// counters never reset.
func (q *Queries) NextSequenceValue(ctx context.Context, arg SequenceParams) (int64, error) {
	row := q.db.QueryRow(ctx, `
		INSERT INTO sequences (tenant_id, kind, current_value)
		VALUES ($1, $2, 1)
		ON CONFLICT (tenant_id, kind)
		DO UPDATE SET current_value = sequences.current_value + 1
		RETURNING current_value`,
		arg.TenantID, arg.Kind)
	var value int64
	err := row.Scan(&value)
	return value, err
}
