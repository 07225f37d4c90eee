package handler

import (
	"context"
	"database/sql"
	"encoding/json"
	"net/http"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/roadready/coachplan-api/internal/models"
	"github.com/roadready/coachplan-api/internal/service"
	"github.com/roadready/coachplan-api/pkg/response"
)

type sessStoreStub struct {
	sessions map[string]*models.Session
	created  []models.Session
}

func (s *sessStoreStub) List(ctx context.Context, filter models.SessionFilter) ([]models.SessionRecord, int, error) {
	var records []models.SessionRecord
	for _, sess := range s.sessions {
		records = append(records, models.SessionRecord{Session: *sess, CoachName: "Coach One"})
	}
	return records, len(records), nil
}

func (s *sessStoreStub) FindByID(ctx context.Context, id string) (*models.Session, error) {
	sess, ok := s.sessions[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	cp := *sess
	return &cp, nil
}

func (s *sessStoreStub) CreateBatch(ctx context.Context, sessions []models.Session) error {
	s.created = append(s.created, sessions...)
	return nil
}

func (s *sessStoreStub) Open(ctx context.Context, id string) (*models.Session, error) {
	sess, ok := s.sessions[id]
	if !ok || !sess.Status.CanOpen() {
		return nil, sql.ErrNoRows
	}
	sess.Status = models.SessionStatusOpen
	cp := *sess
	return &cp, nil
}

func (s *sessStoreStub) Close(ctx context.Context, id string) (*models.Session, error) {
	sess, ok := s.sessions[id]
	if !ok || !sess.Status.CanClose() {
		return nil, sql.ErrNoRows
	}
	sess.Status = models.SessionStatusCompleted
	cp := *sess
	return &cp, nil
}

func (s *sessStoreStub) Cancel(ctx context.Context, id string) (*models.Session, error) {
	sess, ok := s.sessions[id]
	if !ok || !sess.Status.CanCancel() {
		return nil, sql.ErrNoRows
	}
	sess.Status = models.SessionStatusCancelled
	cp := *sess
	return &cp, nil
}

type attStoreStub struct {
	rows []models.Attendance
}

func (s *attStoreStub) Insert(ctx context.Context, att *models.Attendance) error {
	att.ID = "att-1"
	att.SignedAt = time.Now().UTC()
	s.rows = append(s.rows, *att)
	return nil
}

func (s *attStoreStub) ListBySession(ctx context.Context, sessionID string) ([]models.Attendance, error) {
	return s.rows, nil
}

type coachesStub struct{}

func (coachesStub) FindByID(ctx context.Context, id string) (*models.Coach, error) {
	return &models.Coach{ID: id, FullName: "Coach One", Active: true}, nil
}

type roomsStub struct{}

func (roomsStub) Exists(ctx context.Context, id string) (bool, error) { return true, nil }

type checkerStub struct{}

func (checkerStub) Check(ctx context.Context, proposal service.Proposal) (*models.ConflictReport, error) {
	return &models.ConflictReport{}, nil
}

type notifyStub struct{}

func (notifyStub) SessionOpened(session models.Session)    {}
func (notifyStub) SessionCancelled(session models.Session) {}

type sessionHandlerFixture struct {
	store      *sessStoreStub
	attendance *attStoreStub
	handler    *SessionHandler
}

func newSessionHandlerFixture() *sessionHandlerFixture {
	f := &sessionHandlerFixture{
		store:      &sessStoreStub{sessions: map[string]*models.Session{}},
		attendance: &attStoreStub{},
	}
	svc := service.NewSessionService(service.SessionServiceParams{
		Store:      f.store,
		Attendance: f.attendance,
		Coaches:    coachesStub{},
		Classrooms: roomsStub{},
		Conflicts:  checkerStub{},
		Notifier:   notifyStub{},
		Calendars:  noopInvalidator{},
		Logger:     zap.NewNop(),
	})
	f.handler = NewSessionHandler(svc, service.NewExportService(svc, zap.NewNop()))
	return f
}

func openSession(id string) *models.Session {
	return &models.Session{
		ID: id, CoachID: "coach-1",
		ScheduledDate: time.Date(2025, time.April, 7, 0, 0, 0, 0, time.UTC),
		StartTime:     "10:00", EndTime: "11:30",
		Type: models.SessionTypeCourse, Status: models.SessionStatusOpen,
		Title: "Highway driving",
	}
}

func TestSessionHandlerListInvalidDateFilter(t *testing.T) {
	f := newSessionHandlerFixture()

	c, w := testContext(t, http.MethodGet, "/sessions?dateFrom=april", nil,
		&models.JWTClaims{UserID: "admin", Role: models.RoleAdmin})

	f.handler.List(c)
	require.Equal(t, http.StatusBadRequest, w.Code)
}

func TestSessionHandlerCreate(t *testing.T) {
	f := newSessionHandlerFixture()

	payload, _ := json.Marshal(service.CreateSessionsRequest{
		Title:         "Highway driving",
		ScheduledDate: "2025-04-07",
		StartTime:     "10:00",
		EndTime:       "11:30",
		Type:          "COURSE",
		CoachID:       "coach-1",
	})
	c, w := testContext(t, http.MethodPost, "/sessions", payload,
		&models.JWTClaims{UserID: "coach-1", Role: models.RoleCoach})

	f.handler.Create(c)
	require.Equal(t, http.StatusCreated, w.Code)
	assert.Len(t, f.store.created, 1)
}

func TestSessionHandlerGetNotFound(t *testing.T) {
	f := newSessionHandlerFixture()

	c, w := testContext(t, http.MethodGet, "/sessions/sess-404", nil,
		&models.JWTClaims{UserID: "admin", Role: models.RoleAdmin})
	c.Params = gin.Params{{Key: "id", Value: "sess-404"}}

	f.handler.Get(c)
	require.Equal(t, http.StatusNotFound, w.Code)

	var envelope response.Envelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &envelope))
	require.NotNil(t, envelope.Error)
	assert.Equal(t, "NOT_FOUND", envelope.Error.Code)
}

func TestSessionHandlerSignAttendanceUsesCandidateClaims(t *testing.T) {
	f := newSessionHandlerFixture()
	f.store.sessions["sess-1"] = openSession("sess-1")

	c, w := testContext(t, http.MethodPost, "/sessions/sess-1/attendance", nil,
		&models.JWTClaims{UserID: "cand-1", Role: models.RoleCandidate})
	c.Params = gin.Params{{Key: "id", Value: "sess-1"}}

	f.handler.SignAttendance(c)
	require.Equal(t, http.StatusCreated, w.Code)
	require.Len(t, f.attendance.rows, 1)
	assert.Equal(t, "cand-1", f.attendance.rows[0].CandidateID)
}

func TestSessionHandlerSignAttendanceCandidateCannotSignForOthers(t *testing.T) {
	f := newSessionHandlerFixture()
	f.store.sessions["sess-1"] = openSession("sess-1")

	body := []byte(`{"candidate_id":"cand-2"}`)
	c, w := testContext(t, http.MethodPost, "/sessions/sess-1/attendance", body,
		&models.JWTClaims{UserID: "cand-1", Role: models.RoleCandidate})
	c.Params = gin.Params{{Key: "id", Value: "sess-1"}}

	f.handler.SignAttendance(c)
	require.Equal(t, http.StatusCreated, w.Code)
	require.Len(t, f.attendance.rows, 1)
	assert.Equal(t, "cand-1", f.attendance.rows[0].CandidateID)
}

func TestSessionHandlerSignAttendanceOnScheduledSession(t *testing.T) {
	f := newSessionHandlerFixture()
	sess := openSession("sess-1")
	sess.Status = models.SessionStatusScheduled
	f.store.sessions["sess-1"] = sess

	c, w := testContext(t, http.MethodPost, "/sessions/sess-1/attendance", nil,
		&models.JWTClaims{UserID: "cand-1", Role: models.RoleCandidate})
	c.Params = gin.Params{{Key: "id", Value: "sess-1"}}

	f.handler.SignAttendance(c)
	require.Equal(t, http.StatusConflict, w.Code)
	assert.Empty(t, f.attendance.rows)
}

func TestSessionHandlerOpenForbiddenForOtherCoach(t *testing.T) {
	f := newSessionHandlerFixture()
	sess := openSession("sess-1")
	sess.Status = models.SessionStatusScheduled
	f.store.sessions["sess-1"] = sess

	c, w := testContext(t, http.MethodPost, "/sessions/sess-1/open", nil,
		&models.JWTClaims{UserID: "coach-2", Role: models.RoleCoach})
	c.Params = gin.Params{{Key: "id", Value: "sess-1"}}

	f.handler.Open(c)
	require.Equal(t, http.StatusForbidden, w.Code)
}

func TestSessionHandlerExportAttendanceCSV(t *testing.T) {
	f := newSessionHandlerFixture()
	f.store.sessions["sess-1"] = openSession("sess-1")
	f.attendance.rows = []models.Attendance{
		{ID: "att-1", SessionID: "sess-1", CandidateID: "cand-1", SignedAt: time.Now().UTC()},
	}

	c, w := testContext(t, http.MethodGet, "/sessions/sess-1/attendance/export?format=csv", nil,
		&models.JWTClaims{UserID: "coach-1", Role: models.RoleCoach})
	c.Params = gin.Params{{Key: "id", Value: "sess-1"}}

	f.handler.ExportAttendance(c)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "text/csv", w.Header().Get("Content-Type"))
	assert.Contains(t, w.Header().Get("Content-Disposition"), "attendance-sess-1.csv")
	assert.Contains(t, w.Body.String(), "cand-1")
}
