package repository

import (
	"context"
	"database/sql"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/civicnet/civicconnect-api/internal/models"
)

func districtRows(now time.Time) *sqlmock.Rows {
	return sqlmock.NewRows([]string{"id", "name", "state", "verified", "admin_id", "admin_name", "admin_username", "admin_email", "admin_phone_number", "admin_aadhar_number", "admin_password_hash", "lat", "lng", "country", "pincode", "address", "source_application_id", "is_active", "created_at", "updated_at"}).
		AddRow("d1", "Pune", "Maharashtra", true, nil, "Ravi", "ravi", "ravi@example.com", "8888888888", "444455556666", "hash", 18.52, 73.85, "India", "411001", "Collector Office", "app1", true, now, now)
}

func TestDistrictCreate(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewDistrictRepository(db)

	mock.ExpectExec("INSERT INTO districts").WillReturnResult(sqlmock.NewResult(1, 1))

	district := &models.District{Name: "Pune", State: "Maharashtra", IsActive: true}
	err := repo.Create(context.Background(), district)
	require.NoError(t, err)
	assert.NotEmpty(t, district.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDistrictFindByAdminUsername(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewDistrictRepository(db)

	mock.ExpectQuery("SELECT (.+) FROM districts WHERE admin_username = \\$1 LIMIT 1").
		WithArgs("ravi").
		WillReturnRows(districtRows(time.Now()))

	district, err := repo.FindByAdminUsername(context.Background(), "ravi")
	require.NoError(t, err)
	require.NotNil(t, district.AdminEmail)
	assert.Equal(t, "ravi@example.com", *district.AdminEmail)
	assert.Equal(t, models.BindingEmbedded, district.AdminBinding().Kind)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDistrictFindByAdminEmailRequiresVerified(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewDistrictRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("WHERE LOWER(admin_email) = LOWER($1) AND verified = TRUE LIMIT 1")).
		WithArgs("ravi@example.com").
		WillReturnRows(districtRows(time.Now()))

	district, err := repo.FindByAdminEmail(context.Background(), "ravi@example.com")
	require.NoError(t, err)
	assert.Equal(t, "d1", district.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDistrictFindByNameAndState(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewDistrictRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("WHERE LOWER(name) = LOWER($1) AND LOWER(state) = LOWER($2) LIMIT 1")).
		WithArgs("pune", "maharashtra").
		WillReturnRows(districtRows(time.Now()))

	district, err := repo.FindByNameAndState(context.Background(), "pune", "maharashtra")
	require.NoError(t, err)
	assert.Equal(t, "Pune", district.Name)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDistrictFindBySourceApplication(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewDistrictRepository(db)

	mock.ExpectQuery("SELECT (.+) FROM districts WHERE source_application_id = \\$1 LIMIT 1").
		WithArgs("app1").
		WillReturnRows(districtRows(time.Now()))

	district, err := repo.FindBySourceApplication(context.Background(), "app1")
	require.NoError(t, err)
	assert.Equal(t, "d1", district.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDistrictFindBySourceApplicationNotFound(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewDistrictRepository(db)

	mock.ExpectQuery("SELECT (.+) FROM districts WHERE source_application_id = \\$1 LIMIT 1").
		WithArgs("missing").
		WillReturnError(sql.ErrNoRows)

	_, err := repo.FindBySourceApplication(context.Background(), "missing")
	assert.ErrorIs(t, err, sql.ErrNoRows)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDistrictSetReferencedAdmin(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewDistrictRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("UPDATE districts SET admin_id = $2, updated_at = $3 WHERE id = $1")).
		WithArgs("d1", "u1", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := repo.SetReferencedAdmin(context.Background(), "d1", "u1")
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDistrictStats(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewDistrictRepository(db)

	rows := sqlmock.NewRows([]string{"total_users", "total_issues", "resolved_issues", "pending_issues"}).
		AddRow(40, 10, 4, 5)
	mock.ExpectQuery("SELECT").WithArgs("d1").WillReturnRows(rows)

	stats, err := repo.Stats(context.Background(), "d1")
	require.NoError(t, err)
	assert.Equal(t, 40, stats.TotalUsers)
	assert.InDelta(t, 40.0, stats.ResolutionRate, 0.001)
	assert.NoError(t, mock.ExpectationsWereMet())
}
