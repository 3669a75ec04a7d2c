package db

import (
	"context"
	"errors"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newMockPool(t *testing.T) pgxmock.PgxPoolIface {
	t.Helper()
	mock, err := pgxmock.NewPool(pgxmock.QueryMatcherOption(pgxmock.QueryMatcherRegexp))
	require.NoError(t, err)
	t.Cleanup(func() { mock.Close() })
	return mock
}

func TestBulkUpsertEmptyRows(t *testing.T) {
	n, err := BulkUpsert(context.Background(), nil, UpsertConfig{
		Table:        "evidence",
		Columns:      []string{"a"},
		ConflictKeys: []string{"a"},
	}, nil)
	assert.NoError(t, err)
	assert.Equal(t, int64(0), n)
}

func TestBulkUpsertValidation(t *testing.T) {
	rows := [][]any{{1}}

	_, err := BulkUpsert(context.Background(), nil, UpsertConfig{Table: "t", ConflictKeys: []string{"a"}}, rows)
	assert.ErrorContains(t, err, "no columns")

	_, err = BulkUpsert(context.Background(), nil, UpsertConfig{Table: "t", Columns: []string{"a"}}, rows)
	assert.ErrorContains(t, err, "no conflict keys")
}

func TestBulkUpsertSuccess(t *testing.T) {
	mock := newMockPool(t)

	mock.ExpectBegin()
	mock.ExpectExec(`CREATE TEMP TABLE`).WillReturnResult(pgxmock.NewResult("CREATE", 0))
	mock.ExpectCopyFrom(pgx.Identifier{"_tmp_upsert_evidence"}, []string{"subject_id", "field", "value"}).
		WillReturnResult(2)
	mock.ExpectExec(`INSERT INTO "evidence" .* ON CONFLICT`).WillReturnResult(pgxmock.NewResult("INSERT", 2))
	mock.ExpectCommit()
	mock.ExpectRollback()

	rows := [][]any{
		{"hamilton", "capitalization", "20000000"},
		{"wicked", "weekly_gross", "2100000"},
	}
	n, err := BulkUpsert(context.Background(), mock, UpsertConfig{
		Table:        "evidence",
		Columns:      []string{"subject_id", "field", "value"},
		ConflictKeys: []string{"subject_id", "field"},
	}, rows)

	require.NoError(t, err)
	assert.Equal(t, int64(2), n)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestBulkUpsertCopyError(t *testing.T) {
	mock := newMockPool(t)

	mock.ExpectBegin()
	mock.ExpectExec(`CREATE TEMP TABLE`).WillReturnResult(pgxmock.NewResult("CREATE", 0))
	mock.ExpectCopyFrom(pgx.Identifier{"_tmp_upsert_evidence"}, []string{"a"}).
		WillReturnError(errors.New("copy failed"))
	mock.ExpectRollback()

	_, err := BulkUpsert(context.Background(), mock, UpsertConfig{
		Table:        "evidence",
		Columns:      []string{"a"},
		ConflictKeys: []string{"a"},
	}, [][]any{{1}})

	assert.ErrorContains(t, err, "COPY into temp table")
	assert.NoError(t, mock.ExpectationsWereMet())
}
