package repository

import (
	"context"
	"database/sql"
	"errors"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roadready/coachplan-api/internal/models"
	appErrors "github.com/roadready/coachplan-api/pkg/errors"
)

func sessionTestColumns() []string {
	return []string{"id", "coach_id", "classroom_id", "scheduled_date", "start_time", "end_time", "duration_minutes", "type", "status", "recurrence_group_id", "title", "description", "opened_at", "closed_at", "created_at", "updated_at"}
}

func sessionRows() *sqlmock.Rows {
	return sqlmock.NewRows(sessionTestColumns())
}

func addSessionRow(rows *sqlmock.Rows, id, status string) *sqlmock.Rows {
	now := time.Now().UTC()
	return rows.AddRow(id, "coach-1", nil, time.Date(2025, time.April, 7, 0, 0, 0, 0, time.UTC),
		"10:00", "11:30", 90, "COURSE", status, nil, "Highway driving", "", nil, nil, now, now)
}

func TestSessionRepositoryListWithFilters(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewSessionRepository(db)

	status := models.SessionStatusScheduled
	now := time.Now().UTC()
	listRows := sqlmock.NewRows(append(sessionTestColumns(), "coach_name", "attendance_count")).
		AddRow("sess-1", "coach-1", nil, time.Date(2025, time.April, 7, 0, 0, 0, 0, time.UTC),
			"10:00", "11:30", 90, "COURSE", "SCHEDULED", nil, "Highway driving", "", nil, nil, now, now,
			"Coach One", 0)

	mock.ExpectQuery("SELECT s.id, .+ FROM sessions s JOIN coaches c ON c.id = s.coach_id WHERE 1=1 AND s.coach_id = \\$1 AND s.status = \\$2").
		WithArgs("coach-1", "SCHEDULED").
		WillReturnRows(listRows)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM sessions s JOIN coaches c ON c.id = s.coach_id WHERE 1=1 AND s.coach_id = $1 AND s.status = $2")).
		WithArgs("coach-1", "SCHEDULED").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))

	records, total, err := repo.List(context.Background(), models.SessionFilter{CoachID: "coach-1", Status: &status})
	require.NoError(t, err)
	assert.Len(t, records, 1)
	assert.Equal(t, 1, total)
	assert.Equal(t, "Coach One", records[0].CoachName)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSessionRepositoryCreateBatchConflictOnCommit(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewSessionRepository(db)

	sessions := []models.Session{{
		CoachID:       "coach-1",
		ScheduledDate: time.Date(2025, time.April, 7, 0, 0, 0, 0, time.UTC),
		StartTime:     "10:00",
		EndTime:       "11:30",
		Type:          models.SessionTypeCourse,
		Status:        models.SessionStatusScheduled,
		Title:         "Highway driving",
	}}

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM (")).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))
	mock.ExpectRollback()

	err := repo.CreateBatch(context.Background(), sessions)
	var appErr *appErrors.Error
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, appErrors.ErrConflictOnCommit.Code, appErr.Code)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSessionRepositoryCreateBatchUniqueViolation(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewSessionRepository(db)

	sessions := []models.Session{{
		CoachID:       "coach-1",
		ScheduledDate: time.Date(2025, time.April, 7, 0, 0, 0, 0, time.UTC),
		StartTime:     "10:00",
		EndTime:       "11:30",
		Type:          models.SessionTypeCourse,
		Status:        models.SessionStatusScheduled,
		Title:         "Highway driving",
	}}

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM (")).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(0))
	mock.ExpectExec("INSERT INTO sessions").
		WillReturnError(&pq.Error{Code: "23505"})
	mock.ExpectRollback()

	err := repo.CreateBatch(context.Background(), sessions)
	var appErr *appErrors.Error
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, appErrors.ErrConflictOnCommit.Code, appErr.Code)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSessionRepositoryCreateBatchCommits(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewSessionRepository(db)

	sessions := []models.Session{{
		CoachID:       "coach-1",
		ScheduledDate: time.Date(2025, time.April, 7, 0, 0, 0, 0, time.UTC),
		StartTime:     "10:00",
		EndTime:       "11:30",
		Type:          models.SessionTypeCourse,
		Status:        models.SessionStatusScheduled,
		Title:         "Highway driving",
	}}

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM (")).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(0))
	mock.ExpectExec("INSERT INTO sessions").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	require.NoError(t, repo.CreateBatch(context.Background(), sessions))
	assert.NotEmpty(t, sessions[0].ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSessionRepositoryOpen(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewSessionRepository(db)

	mock.ExpectQuery("UPDATE sessions SET status = \\$1, opened_at = \\$2, updated_at = \\$2").
		WithArgs("OPEN", sqlmock.AnyArg(), "sess-1", "SCHEDULED").
		WillReturnRows(addSessionRow(sessionRows(), "sess-1", "OPEN"))

	session, err := repo.Open(context.Background(), "sess-1")
	require.NoError(t, err)
	assert.Equal(t, models.SessionStatusOpen, session.Status)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSessionRepositoryOpenWrongState(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewSessionRepository(db)

	// The status predicate filters out the row, so the UPDATE returns nothing.
	mock.ExpectQuery("UPDATE sessions SET status = \\$1, opened_at = \\$2, updated_at = \\$2").
		WithArgs("OPEN", sqlmock.AnyArg(), "sess-1", "SCHEDULED").
		WillReturnError(sql.ErrNoRows)

	_, err := repo.Open(context.Background(), "sess-1")
	assert.True(t, errors.Is(err, sql.ErrNoRows))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSessionRepositoryCancelFromOpen(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewSessionRepository(db)

	mock.ExpectQuery("UPDATE sessions SET status = \\$1, updated_at = \\$2").
		WithArgs("CANCELLED", sqlmock.AnyArg(), "sess-1", sqlmock.AnyArg()).
		WillReturnRows(addSessionRow(sessionRows(), "sess-1", "CANCELLED"))

	session, err := repo.Cancel(context.Background(), "sess-1")
	require.NoError(t, err)
	assert.Equal(t, models.SessionStatusCancelled, session.Status)
	assert.NoError(t, mock.ExpectationsWereMet())
}
