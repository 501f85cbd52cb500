// Package sequence hands out per-partition sequence numbers for outgoing
// events so consumers can detect duplicates and gaps.
package sequence

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/pkg/errors"
)

type Store interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

type Repository struct {
	store Store
}

func NewRepository(store Store) *Repository {
	return &Repository{store: store}
}

// Next increments and returns the sequence for partitionKey. The first call
// for a partition returns 1.
func (r *Repository) Next(ctx context.Context, partitionKey string) (int64, error) {
	var seq int64
	err := r.store.QueryRow(ctx, `
		INSERT INTO event_sequence (partition_key, last_sequence)
		VALUES ($1, 1)
		ON CONFLICT (partition_key)
		DO UPDATE SET last_sequence = event_sequence.last_sequence + 1, updated_at = now()
		RETURNING last_sequence
	`, partitionKey).Scan(&seq)
	if err != nil {
		return 0, errors.Wrapf(err, "next sequence for %s", partitionKey)
	}
	return seq, nil
}
