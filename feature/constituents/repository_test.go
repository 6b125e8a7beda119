package constituents

import (
	"context"
	"testing"
	"time"

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

func TestRepository_FindByIdentity(t *testing.T) {
	db, mock := setupMockDB(t)
	repo := NewRepository(db)

	now := time.Now()
	mock.ExpectQuery("SELECT \\* FROM `constituents` WHERE external_id = \\? AND client_id = \\? ORDER BY updated_at DESC").
		WillReturnRows(sqlmock.NewRows([]string{"id", "client_id", "external_id", "full_name", "active", "hash", "created_at", "updated_at"}).
			AddRow("id-1", "c1", "x1", "Jane", true, "abc", now, now))
	mock.ExpectQuery("SELECT \\* FROM `constituents_hash` WHERE id = \\?").
		WillReturnRows(sqlmock.NewRows([]string{"id", "next_action", "hash"}).AddRow("id-1", "put", "abc"))

	got, err := repo.FindByIdentity(context.Background(), "c1", "x1")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "id-1", got.ID)
	assert.Equal(t, "abc", got.Fingerprint)
	assert.EqualValues(t, "put", got.NextAction)
	assert.Equal(t, "Jane", got.Fields["full_name"])
	assert.Equal(t, true, got.Fields["active"])

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRepository_FindByFingerprint_NotFound(t *testing.T) {
	db, mock := setupMockDB(t)
	repo := NewRepository(db)

	mock.ExpectQuery("SELECT \\* FROM `constituents` WHERE hash = \\?").
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	got, err := repo.FindByFingerprint(context.Background(), "missing")
	require.NoError(t, err)
	assert.Nil(t, got)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRepository_ListAccreditations(t *testing.T) {
	db, mock := setupMockDB(t)
	repo := NewRepository(db)

	mock.ExpectQuery("SELECT `id`,`hash`,`active` FROM `accreditations` WHERE external_emp_id = \\? AND client_id = \\?").
		WillReturnRows(sqlmock.NewRows([]string{"id", "hash", "active"}).
			AddRow("a1", "h1", true).
			AddRow("a2", "h2", false))

	got, err := repo.ListAccreditations(context.Background(), "c1", "E1")
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "h1", got[0].Fingerprint)
	assert.False(t, got[1].Active)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestEncodeChangedFields(t *testing.T) {
	got, err := encodeChangedFields(nil)
	require.NoError(t, err)
	assert.Nil(t, got)

	got, err = encodeChangedFields([]string{"email", "full_name"})
	require.NoError(t, err)
	assert.Equal(t, `["email","full_name"]`, *got)
}
