package repository

import (
	"context"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/civicnet/civicconnect-api/internal/models"
)

func issueRows(now time.Time) *sqlmock.Rows {
	return sqlmock.NewRows([]string{"id", "title", "description", "category", "priority", "status", "reporter_id", "district_id", "lat", "lng", "address", "image_url", "upvotes", "resolved_at", "resolved_by", "created_at", "updated_at", "reporter_name"}).
		AddRow("i1", "Pothole on MG Road", "Deep pothole near the signal", string(models.IssueRoads), string(models.PriorityMedium), string(models.IssuePending), "u1", "d1", 18.52, 73.85, "MG Road", nil, 3, nil, nil, now, now, "Asha")
}

func TestIssueCreateDefaultsPending(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewIssueRepository(db)

	mock.ExpectExec("INSERT INTO issues").WillReturnResult(sqlmock.NewResult(1, 1))

	issue := &models.Issue{Title: "Pothole on MG Road", Description: "Deep pothole", Category: models.IssueRoads, ReporterID: "u1"}
	err := repo.Create(context.Background(), issue)
	require.NoError(t, err)
	assert.Equal(t, models.IssuePending, issue.Status)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestIssueFindByIDJoinsReporter(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewIssueRepository(db)

	mock.ExpectQuery("SELECT (.+) FROM issues i JOIN users u ON u.id = i.reporter_id WHERE i.id = \\$1 LIMIT 1").
		WithArgs("i1").
		WillReturnRows(issueRows(time.Now()))

	issue, err := repo.FindByID(context.Background(), "i1")
	require.NoError(t, err)
	assert.Equal(t, "Asha", issue.ReporterName)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestIssueUpdateStatusResolvedStampsMetadata(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewIssueRepository(db)

	resolver := "admin1"
	mock.ExpectExec(regexp.QuoteMeta("UPDATE issues SET status = $2, resolved_at = $3, resolved_by = $4, updated_at = $3 WHERE id = $1")).
		WithArgs("i1", models.IssueResolved, sqlmock.AnyArg(), &resolver).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := repo.UpdateStatus(context.Background(), "i1", models.IssueResolved, &resolver)
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestIssueUpvoteTransaction(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewIssueRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO issue_upvotes").
		WithArgs("i1", "u2", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec(regexp.QuoteMeta("UPDATE issues SET upvotes = upvotes + 1, updated_at = $2 WHERE id = $1")).
		WithArgs("i1", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	err := repo.Upvote(context.Background(), "i1", "u2")
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestIssueStatusCounts(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewIssueRepository(db)

	rows := sqlmock.NewRows([]string{"total", "pending", "in_progress", "resolved", "rejected"}).
		AddRow(10, 4, 2, 3, 1)
	mock.ExpectQuery("SELECT").WithArgs("d1").WillReturnRows(rows)

	stats, err := repo.StatusCounts(context.Background(), "d1")
	require.NoError(t, err)
	assert.Equal(t, 10, stats.Total)
	assert.Equal(t, 3, stats.Resolved)
	assert.NoError(t, mock.ExpectationsWereMet())
}
