package events

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
)

var ErrEmptyPartitionKey = errors.New("partition key is required")

type SequenceRepository interface {
	NextSequence(ctx context.Context, partitionKey string) (int64, error)
}

type rowQuerier interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// PostgresSequenceRepository hands out gap-free, strictly increasing
// sequence numbers per partition key.
type PostgresSequenceRepository struct {
	db rowQuerier
}

func NewSequenceRepository(db rowQuerier) *PostgresSequenceRepository {
	return &PostgresSequenceRepository{db: db}
}

func (r *PostgresSequenceRepository) NextSequence(ctx context.Context, partitionKey string) (int64, error) {
	if partitionKey == "" {
		return 0, ErrEmptyPartitionKey
	}

	const query = `
INSERT INTO event_sequence (partition_key, last_sequence, updated_at)
VALUES ($1, 1, now())
ON CONFLICT (partition_key) DO UPDATE
SET last_sequence = event_sequence.last_sequence + 1,
    updated_at = now()
RETURNING last_sequence
`

	var next int64
	if err := r.db.QueryRow(ctx, query, partitionKey).Scan(&next); err != nil {
		return 0, fmt.Errorf("increment sequence: %w", err)
	}
	return next, nil
}
