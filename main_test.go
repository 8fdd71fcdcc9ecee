package main

import (
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/require"
)

func TestDataSQLDB_RequiresPostgres(t *testing.T) {
	// The account and publish tables use Postgres-only SQL, so a missing
	// connection is fatal rather than silently swapped for another vendor.
	db, err := dataSQLDB(nil)
	require.Error(t, err)
	require.Nil(t, db)
}

func TestDataSQLDB_PassesThroughPostgres(t *testing.T) {
	mockDb, _, err := sqlmock.New()
	require.NoError(t, err)
	defer mockDb.Close()

	db, err := dataSQLDB(mockDb)
	require.NoError(t, err)
	require.Same(t, mockDb, db)
}

func TestMssqlSelected(t *testing.T) {
	t.Setenv("ENV", "")
	t.Setenv("DB_VENDOR", "")
	require.False(t, mssqlSelected())

	t.Setenv("DB_VENDOR", "mssql")
	require.True(t, mssqlSelected())

	t.Setenv("DB_VENDOR", "")
	t.Setenv("ENV", "production")
	require.True(t, mssqlSelected())
}
