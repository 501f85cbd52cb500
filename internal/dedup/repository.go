// Package dedup stores how far each consumer has read each partition, so a
// redelivered event can be recognised and skipped.
package dedup

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/pkg/errors"
)

// Executor is satisfied by a pool, a connection or a transaction.
type Executor interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
}

type Repository struct {
	executor Executor
}

func NewRepository(exec Executor) *Repository {
	return &Repository{executor: exec}
}

// WithExecutor returns a copy bound to exec, typically a transaction.
func (r *Repository) WithExecutor(exec Executor) *Repository {
	return &Repository{executor: exec}
}

// LastSequence returns the checkpoint for a consumer and partition. ok is
// false when none has been written yet.
func (r *Repository) LastSequence(ctx context.Context, consumer, partitionKey string) (last int64, ok bool, err error) {
	err = r.executor.QueryRow(ctx, `
		SELECT last_sequence
		FROM event_dedup_checkpoint
		WHERE consumer_name=$1 AND partition_key=$2
	`, consumer, partitionKey).Scan(&last)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, errors.Wrap(err, "select checkpoint")
	}
	return last, true, nil
}

// Advance moves the checkpoint forward. It never moves it back.
func (r *Repository) Advance(ctx context.Context, consumer, partitionKey string, seq int64) error {
	_, err := r.executor.Exec(ctx, `
		INSERT INTO event_dedup_checkpoint (consumer_name, partition_key, last_sequence)
		VALUES ($1, $2, $3)
		ON CONFLICT (consumer_name, partition_key)
		DO UPDATE SET
			last_sequence = GREATEST(event_dedup_checkpoint.last_sequence, EXCLUDED.last_sequence),
			updated_at = now()
	`, consumer, partitionKey, seq)
	if err != nil {
		return errors.Wrap(err, "upsert checkpoint")
	}
	return nil
}

// Verdict classifies an incoming sequence against a checkpoint.
type Verdict int

const (
	Fresh Verdict = iota
	Duplicate
	Gap
)

// Classify compares seq with the stored checkpoint. Sequence 0 means the
// producer did not number the event, which is always treated as fresh.
func Classify(seq, last int64, ok bool) Verdict {
	if !ok || seq == 0 {
		return Fresh
	}
	if seq <= last {
		return Duplicate
	}
	if seq > last+1 {
		return Gap
	}
	return Fresh
}
