package database

import (
	"context"
	"errors"
	"testing"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestMigrateAppliesAllSteps(t *testing.T) {
	raw, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	defer raw.Close()
	db := sqlx.NewDb(raw, "sqlmock")

	mock.ExpectBegin()
	for range migrations {
		mock.ExpectExec(".+").WillReturnResult(sqlmock.NewResult(0, 0))
	}
	mock.ExpectCommit()

	require.NoError(t, Migrate(context.Background(), db, zap.NewNop()))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestMigrateRollsBackOnFailure(t *testing.T) {
	raw, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	defer raw.Close()
	db := sqlx.NewDb(raw, "sqlmock")

	mock.ExpectBegin()
	mock.ExpectExec("CREATE TABLE IF NOT EXISTS users").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec("CREATE TABLE IF NOT EXISTS refresh_tokens").WillReturnError(errors.New("permission denied"))
	mock.ExpectRollback()

	err = Migrate(context.Background(), db, nil)
	require.Error(t, err)
	require.Contains(t, err.Error(), "create refresh_tokens")
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestTransactionsGuardCoversWriteOnceColumns(t *testing.T) {
	var guard string
	for _, m := range migrations {
		if m.name == "transactions guard function" {
			guard = m.stmt
		}
	}
	require.NotEmpty(t, guard)
	for _, column := range []string{"student_id", "amount", "type", "date", "payment_mode", "recorded_by", "receipt_number"} {
		require.Contains(t, guard, "NEW."+column+" IS DISTINCT FROM OLD."+column)
	}
	require.Contains(t, guard, "append-only")
}
