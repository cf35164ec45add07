package events

import (
	"context"
	"errors"
	"testing"

	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNextSequence(t *testing.T) {
	ctx := context.Background()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectQuery(`INSERT INTO event_sequence`).
		WithArgs("cart-1").
		WillReturnRows(pgxmock.NewRows([]string{"last_sequence"}).AddRow(int64(1)))
	mock.ExpectQuery(`INSERT INTO event_sequence`).
		WithArgs("cart-1").
		WillReturnRows(pgxmock.NewRows([]string{"last_sequence"}).AddRow(int64(2)))
	mock.ExpectQuery(`INSERT INTO event_sequence`).
		WithArgs("cart-2").
		WillReturnError(errors.New("connection refused"))

	repo := NewSequenceRepository(mock)

	seq, err := repo.NextSequence(ctx, "cart-1")
	require.NoError(t, err)
	assert.EqualValues(t, 1, seq)

	seq, err = repo.NextSequence(ctx, "cart-1")
	require.NoError(t, err)
	assert.EqualValues(t, 2, seq)

	_, err = repo.NextSequence(ctx, "cart-2")
	assert.ErrorContains(t, err, "increment sequence")

	_, err = repo.NextSequence(ctx, "")
	assert.ErrorIs(t, err, ErrEmptyPartitionKey)

	require.NoError(t, mock.ExpectationsWereMet())
}
