package dbx

import (
	"context"
	"database/sql"
	"errors"
	"regexp"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newMockDB(t *testing.T) (*sql.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db, mock
}

func TestWithTx_CommitError(t *testing.T) {
	db, mock := newMockDB(t)
	commitErr := errors.New("disk I/O error")

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta(`INSERT INTO items`)).WillReturnResult(sqlmock.NewResult(10, 2))
	mock.ExpectExec(regexp.QuoteMeta(`INSERT INTO cursors`)).WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit().WillReturnError(commitErr)

	err := WithTx(context.Background(), db, nil, insertBatch)
	require.Error(t, err)
	assert.ErrorIs(t, err, commitErr)
	assert.Contains(t, err.Error(), "commit tx")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestWithTx_FailedStatementRollsBackWithoutCommit(t *testing.T) {
	db, mock := newMockDB(t)
	execErr := errors.New("constraint failed")

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta(`INSERT INTO items`)).WillReturnResult(sqlmock.NewResult(10, 2))
	mock.ExpectExec(regexp.QuoteMeta(`INSERT INTO cursors`)).WillReturnError(execErr)
	mock.ExpectRollback()

	err := WithTx(context.Background(), db, nil, insertBatch)
	assert.ErrorIs(t, err, execErr)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestWithTx_RollbackErrorKeepsFnError(t *testing.T) {
	db, mock := newMockDB(t)
	fnErr := errors.New("fn failed")

	mock.ExpectBegin()
	mock.ExpectRollback().WillReturnError(errors.New("rollback failed"))

	err := WithTx(context.Background(), db, nil, func(ctx context.Context, tx DBTX) error {
		return fnErr
	})
	assert.Same(t, fnErr, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}
