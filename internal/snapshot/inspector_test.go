package snapshot

import (
	"context"
	"errors"
	"testing"

	"db-snapshot/internal/database"
	"db-snapshot/internal/logging"
	"db-snapshot/internal/migration"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestInspector_Inspect(t *testing.T) {
	service := newSQLiteService(t)
	execAll(t, service,
		`CREATE TABLE accounts (id INTEGER)`,
		`CREATE TABLE "with space" (id INTEGER)`,
		`INSERT INTO accounts VALUES (1), (2), (3)`,
	)

	source := &mockMigrationSource{}
	source.On("ExecutedMigrations", mock.Anything, mock.Anything).
		Return([]migration.Record{{ID: 1, Name: "001_init", ExecutedAt: "2025-01-01T00:00:00Z"}}, nil)

	inspection, err := NewInspector(service, staticSchema{"accounts", "ghost", "with space"}, source).
		Inspect(context.Background())
	require.NoError(t, err)

	assert.Equal(t, database.DriverSQLite, inspection.Engine)
	require.Len(t, inspection.Tables, 3)
	assert.Equal(t, TableSummary{Name: "accounts", Rows: 3}, inspection.Tables[0])
	assert.Equal(t, "ghost", inspection.Tables[1].Name)
	assert.Equal(t, int64(-1), inspection.Tables[1].Rows)
	assert.Contains(t, inspection.Tables[1].Error, "no such table")
	assert.Equal(t, TableSummary{Name: "with space", Rows: 0}, inspection.Tables[2])
	assert.Len(t, inspection.Migrations, 1)
	assert.Empty(t, inspection.MigrationsError)
	source.AssertExpectations(t)
}

func TestInspector_MissingLedger(t *testing.T) {
	service := newSQLiteService(t)

	inspection, err := NewInspector(service, NewIntrospector(service.Dialect()), migration.NewLedger(logging.NewNopLogger())).
		Inspect(context.Background())
	require.NoError(t, err)

	assert.Empty(t, inspection.Tables)
	assert.NotNil(t, inspection.Migrations)
	assert.Empty(t, inspection.Migrations)
	assert.NotEmpty(t, inspection.MigrationsError)
}

func TestInspector_SchemaFailure(t *testing.T) {
	service := newSQLiteService(t)

	_, err := NewInspector(service, failingSchema{}, &mockMigrationSource{}).Inspect(context.Background())
	require.Error(t, err)

	var snapErr *SnapshotError
	require.ErrorAs(t, err, &snapErr)
	assert.Equal(t, SnapshotErrorTypeDatabase, snapErr.Type)
}

func TestInspector_MySQLCounts(t *testing.T) {
	db, dbMock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	service := database.NewServiceFromDB(sqlx.NewDb(db, "sqlmock"), database.MySQLDialect{}, logging.NewNopLogger())

	dbMock.ExpectBegin()
	dbMock.ExpectQuery("SELECT COUNT\\(\\*\\) AS count FROM `orders`").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow([]byte("42")))
	dbMock.ExpectCommit()

	source := &mockMigrationSource{}
	source.On("ExecutedMigrations", mock.Anything, mock.Anything).Return(nil, errors.New("table doesn't exist"))

	inspection, err := NewInspector(service, staticSchema{"orders"}, source).Inspect(context.Background())
	require.NoError(t, err)

	assert.Equal(t, database.DriverMySQL, inspection.Engine)
	assert.Equal(t, []TableSummary{{Name: "orders", Rows: 42}}, inspection.Tables)
	assert.Equal(t, "table doesn't exist", inspection.MigrationsError)
	assert.NoError(t, dbMock.ExpectationsWereMet())
}

func TestToCount(t *testing.T) {
	tests := []struct {
		in      interface{}
		want    int64
		wantErr bool
	}{
		{int64(7), 7, false},
		{7, 7, false},
		{float64(7), 7, false},
		{[]byte("7"), 7, false},
		{"7", 7, false},
		{"seven", 0, true},
		{nil, 0, true},
	}

	for _, tt := range tests {
		got, err := toCount(tt.in)
		if tt.wantErr {
			assert.Error(t, err, "%v", tt.in)
			continue
		}
		require.NoError(t, err)
		assert.Equal(t, tt.want, got)
	}
}
