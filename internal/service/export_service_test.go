package service

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/roadready/coachplan-api/internal/models"
	appErrors "github.com/roadready/coachplan-api/pkg/errors"
)

type sessionReaderStub struct {
	session *models.Session
	rows    []models.Attendance
}

func (s *sessionReaderStub) Get(ctx context.Context, id string) (*models.Session, error) {
	if s.session == nil {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "session not found")
	}
	return s.session, nil
}

func (s *sessionReaderStub) ListAttendance(ctx context.Context, sessionID string, actor *models.JWTClaims) ([]models.Attendance, error) {
	return s.rows, nil
}

func exportFixture() *sessionReaderStub {
	return &sessionReaderStub{
		session: &models.Session{
			ID: "sess-1", CoachID: "coach-1",
			ScheduledDate: time.Date(2025, time.April, 7, 0, 0, 0, 0, time.UTC),
			StartTime:     "10:00", EndTime: "11:30",
			Type: models.SessionTypeCourse, Status: models.SessionStatusCompleted,
			Title: "Highway driving",
		},
		rows: []models.Attendance{
			{ID: "att-1", SessionID: "sess-1", CandidateID: "cand-1", SignedAt: time.Date(2025, time.April, 7, 10, 5, 0, 0, time.UTC)},
			{ID: "att-2", SessionID: "sess-1", CandidateID: "cand-2", SignedAt: time.Date(2025, time.April, 7, 10, 7, 0, 0, time.UTC)},
		},
	}
}

func TestExportServiceAttendanceSheetCSV(t *testing.T) {
	svc := NewExportService(exportFixture(), zap.NewNop())

	result, err := svc.AttendanceSheet(context.Background(), "sess-1", ExportFormatCSV, adminClaims())
	require.NoError(t, err)
	assert.Equal(t, "text/csv", result.ContentType)
	assert.Equal(t, "attendance-sess-1.csv", result.Filename)

	body := string(result.Payload)
	assert.True(t, strings.HasPrefix(body, "candidate_id,signed_at"))
	assert.Contains(t, body, "cand-1,2025-04-07 10:05")
	assert.Contains(t, body, "cand-2,2025-04-07 10:07")
}

func TestExportServiceAttendanceSheetPDF(t *testing.T) {
	svc := NewExportService(exportFixture(), zap.NewNop())

	result, err := svc.AttendanceSheet(context.Background(), "sess-1", ExportFormatPDF, adminClaims())
	require.NoError(t, err)
	assert.Equal(t, "application/pdf", result.ContentType)
	assert.Equal(t, "attendance-sess-1.pdf", result.Filename)
	assert.True(t, strings.HasPrefix(string(result.Payload), "%PDF"))
}

func TestExportServiceUnknownFormat(t *testing.T) {
	svc := NewExportService(exportFixture(), zap.NewNop())

	_, err := svc.AttendanceSheet(context.Background(), "sess-1", ExportFormat("xlsx"), adminClaims())
	var appErr *appErrors.Error
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, appErrors.ErrValidation.Code, appErr.Code)
}

func TestExportServiceMissingSession(t *testing.T) {
	svc := NewExportService(&sessionReaderStub{}, zap.NewNop())

	_, err := svc.AttendanceSheet(context.Background(), "sess-404", ExportFormatCSV, adminClaims())
	var appErr *appErrors.Error
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErr.Code)
}
