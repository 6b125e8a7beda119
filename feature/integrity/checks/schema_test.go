package checks

import (
	"testing"

	"api-poller/core/database"
	pollerModels "api-poller/feature/poller/models"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"
)

func setupMockDB(t *testing.T) (*gorm.DB, sqlmock.Sqlmock) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("Failed to open mock sql db: %v", err)
	}

	dialector := mysql.New(mysql.Config{
		Conn:                      db,
		SkipInitializeWithVersion: true,
	})

	gormDB, err := gorm.Open(dialector, &gorm.Config{})
	if err != nil {
		t.Fatalf("Failed to open gorm db: %v", err)
	}

	return gormDB, mock
}

func setupSQLite(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := database.Connect(database.Config{Driver: "sqlite", Name: ":memory:"})
	require.NoError(t, err)
	return db
}

func TestCheckSchema_NilDB(t *testing.T) {
	report, err := CheckSchema(nil, &pollerModels.Job{})
	assert.Error(t, err)
	assert.Nil(t, report)
}

func TestCheckSchema_Migrated(t *testing.T) {
	db := setupSQLite(t)
	require.NoError(t, FixSchema(db, pollerModels.All()...))

	report, err := CheckSchema(db, pollerModels.All()...)
	require.NoError(t, err)
	assert.True(t, report.Matched)
	assert.Len(t, report.Tables, 3)
	assert.Equal(t, "ok", report.Tables["api_poller_job"].Status)
}

func TestCheckSchema_MissingColumns(t *testing.T) {
	db := setupSQLite(t)
	require.NoError(t, db.Exec("CREATE TABLE api_poller_job (id varchar(36) PRIMARY KEY, client_id varchar(191))").Error)

	report, err := CheckSchema(db, &pollerModels.Job{})
	require.NoError(t, err)
	assert.False(t, report.Matched)

	tbl := report.Tables["api_poller_job"]
	assert.Equal(t, "error", tbl.Status)
	assert.Equal(t, []string{"batch_id", "created_at", "job_id", "job_index", "purge_at", "status", "total_jobs"}, tbl.MissingColumns)
}

func TestCheckSchema_InspectFailure(t *testing.T) {
	db, mock := setupMockDB(t)
	mock.ExpectQuery("SHOW COLUMNS").WillReturnError(assert.AnError)

	report, err := CheckSchema(db, &pollerModels.Job{})
	require.NoError(t, err)
	assert.False(t, report.Matched)
	require.Len(t, report.Errors, 1)
	assert.Contains(t, report.Errors[0], "api_poller_job")
}

func TestCheckSchema_TypeMismatch(t *testing.T) {
	db, mock := setupMockDB(t)
	rows := sqlmock.NewRows([]string{"Field", "Type", "Null", "Key", "Default", "Extra"}).
		AddRow("notes", "varchar(32)", "YES", "", nil, "")
	mock.ExpectQuery("SHOW COLUMNS").WillReturnRows(rows)

	report, err := CheckSchema(db, &typedTable{})
	require.NoError(t, err)
	assert.False(t, report.Matched)
	assert.Equal(t, []string{"notes: expected text, got varchar(32)"}, report.Tables["typed"].TypeMismatches)
}

type typedTable struct {
	Notes string `gorm:"column:notes;type:text"`
}

func (typedTable) TableName() string { return "typed" }

func TestParseGormTags(t *testing.T) {
	assert.Equal(t, "changed_fields", parseGormColumn("column:changed_fields;type:text"))
	assert.Equal(t, "text", parseGormType("column:changed_fields;type:text"))
	assert.Empty(t, parseGormColumn("primaryKey"))
}
