package service

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/roadready/coachplan-api/internal/models"
	"github.com/roadready/coachplan-api/internal/schedule"
	appErrors "github.com/roadready/coachplan-api/pkg/errors"
)

type sessionStore interface {
	List(ctx context.Context, filter models.SessionFilter) ([]models.SessionRecord, int, error)
	FindByID(ctx context.Context, id string) (*models.Session, error)
	CreateBatch(ctx context.Context, sessions []models.Session) error
	Open(ctx context.Context, id string) (*models.Session, error)
	Close(ctx context.Context, id string) (*models.Session, error)
	Cancel(ctx context.Context, id string) (*models.Session, error)
}

type attendanceStore interface {
	Insert(ctx context.Context, att *models.Attendance) error
	ListBySession(ctx context.Context, sessionID string) ([]models.Attendance, error)
}

type coachDirectory interface {
	FindByID(ctx context.Context, id string) (*models.Coach, error)
}

type classroomDirectory interface {
	Exists(ctx context.Context, id string) (bool, error)
}

type conflictChecker interface {
	Check(ctx context.Context, proposal Proposal) (*models.ConflictReport, error)
}

type sessionNotifier interface {
	SessionOpened(session models.Session)
	SessionCancelled(session models.Session)
}

// CreateSessionsRequest creates one session, or a weekly-repeating batch
// when weeks > 1.
type CreateSessionsRequest struct {
	Title         string  `json:"title" validate:"required"`
	Description   string  `json:"description"`
	ScheduledDate string  `json:"scheduled_date" validate:"required,datetime=2006-01-02"`
	StartTime     string  `json:"start_time" validate:"required"`
	EndTime       string  `json:"end_time" validate:"required"`
	Type          string  `json:"type" validate:"required"`
	Weeks         int     `json:"weeks" validate:"gte=0,lte=52"`
	CoachID       string  `json:"coach_id" validate:"required"`
	ClassroomID   *string `json:"classroom_id"`
}

// CreateSessionRangeRequest creates sessions over a date range filtered by
// weekdays, all sharing one recurrence group.
type CreateSessionRangeRequest struct {
	StartDate   string  `json:"start_date" validate:"required,datetime=2006-01-02"`
	EndDate     string  `json:"end_date" validate:"required,datetime=2006-01-02"`
	DaysOfWeek  []int   `json:"days_of_week" validate:"required,min=1,dive,gte=0,lte=6"`
	StartTime   string  `json:"start_time" validate:"required"`
	EndTime     string  `json:"end_time" validate:"required"`
	CoachID     string  `json:"coach_id" validate:"required"`
	ClassroomID *string `json:"classroom_id"`
	Title       string  `json:"title" validate:"required"`
	Description string  `json:"description"`
	Type        string  `json:"type" validate:"required"`
}

// CreateSessionsResult carries the persisted sessions plus the advisory
// conflict report computed before commit.
type CreateSessionsResult struct {
	Created   []models.Session       `json:"created"`
	Conflicts []models.ConflictEntry `json:"conflicts,omitempty"`
}

// SessionService owns the session lifecycle and attendance capture.
type SessionService struct {
	store              sessionStore
	attendance         attendanceStore
	coaches            coachDirectory
	classrooms         classroomDirectory
	conflicts          conflictChecker
	notifier           sessionNotifier
	calendars          calendarInvalidator
	metrics            *MetricsService
	validator          *validator.Validate
	logger             *zap.Logger
	blockHardConflicts bool
}

// SessionServiceParams bundles the collaborators for NewSessionService.
type SessionServiceParams struct {
	Store              sessionStore
	Attendance         attendanceStore
	Coaches            coachDirectory
	Classrooms         classroomDirectory
	Conflicts          conflictChecker
	Notifier           sessionNotifier
	Calendars          calendarInvalidator
	Metrics            *MetricsService
	Validator          *validator.Validate
	Logger             *zap.Logger
	BlockHardConflicts bool
}

// NewSessionService instantiates SessionService.
func NewSessionService(p SessionServiceParams) *SessionService {
	if p.Validator == nil {
		p.Validator = validator.New()
	}
	if p.Logger == nil {
		p.Logger = zap.NewNop()
	}
	return &SessionService{
		store:              p.Store,
		attendance:         p.Attendance,
		coaches:            p.Coaches,
		classrooms:         p.Classrooms,
		conflicts:          p.Conflicts,
		notifier:           p.Notifier,
		calendars:          p.Calendars,
		metrics:            p.Metrics,
		validator:          p.Validator,
		logger:             p.Logger,
		blockHardConflicts: p.BlockHardConflicts,
	}
}

// List returns sessions with nested coach summaries and pagination metadata.
func (s *SessionService) List(ctx context.Context, filter models.SessionFilter) ([]models.SessionRecord, *models.Pagination, error) {
	records, total, err := s.store.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list sessions")
	}
	for i := range records {
		records[i].Coach = &models.CoachSummary{ID: records[i].CoachID, FullName: records[i].CoachName}
	}
	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 {
		size = 50
	}
	pagination := &models.Pagination{Page: page, PageSize: size, TotalCount: total}
	return records, pagination, nil
}

// Get loads one session.
func (s *SessionService) Get(ctx context.Context, id string) (*models.Session, error) {
	session, err := s.store.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "session not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load session")
	}
	return session, nil
}

// Create persists a single session or a weekly-repeating batch. The conflict
// check runs first and is advisory unless hard-conflict blocking is enabled
// by configuration.
func (s *SessionService) Create(ctx context.Context, req CreateSessionsRequest, actor *models.JWTClaims) (*CreateSessionsResult, error) {
	if err := requireCoachOrAdmin(actor, req.CoachID); err != nil {
		return nil, err
	}
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid session payload")
	}

	first, err := time.Parse("2006-01-02", req.ScheduledDate)
	if err != nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, "invalid scheduled date")
	}

	weeks := req.Weeks
	if weeks < 1 {
		weeks = 1
	}
	dates := make([]time.Time, 0, weeks)
	for i := 0; i < weeks; i++ {
		dates = append(dates, schedule.DateOnly(first).AddDate(0, 0, 7*i))
	}

	return s.createBatch(ctx, batchSpec{
		coachID:     req.CoachID,
		classroomID: req.ClassroomID,
		dates:       dates,
		startTime:   req.StartTime,
		endTime:     req.EndTime,
		sessionType: models.SessionType(req.Type),
		title:       req.Title,
		description: req.Description,
	})
}

// CreateRange persists one session per matching weekday in the range, all
// sharing a recurrence group.
func (s *SessionService) CreateRange(ctx context.Context, req CreateSessionRangeRequest, actor *models.JWTClaims) (*CreateSessionsResult, error) {
	if err := requireCoachOrAdmin(actor, req.CoachID); err != nil {
		return nil, err
	}
	dates, err := s.expandRange(req)
	if err != nil {
		return nil, err
	}

	return s.createBatch(ctx, batchSpec{
		coachID:     req.CoachID,
		classroomID: req.ClassroomID,
		dates:       dates,
		startTime:   req.StartTime,
		endTime:     req.EndTime,
		sessionType: models.SessionType(req.Type),
		title:       req.Title,
		description: req.Description,
	})
}

// CheckConflicts runs the detector for a range proposal without persisting.
func (s *SessionService) CheckConflicts(ctx context.Context, req CreateSessionRangeRequest, actor *models.JWTClaims) (*models.ConflictReport, error) {
	if actor == nil {
		return nil, appErrors.ErrUnauthorized
	}
	dates, err := s.expandRange(req)
	if err != nil {
		return nil, err
	}
	report, err := s.conflicts.Check(ctx, Proposal{
		CoachID:     req.CoachID,
		ClassroomID: req.ClassroomID,
		Dates:       dates,
		StartTime:   req.StartTime,
		EndTime:     req.EndTime,
	})
	if err != nil {
		return nil, err
	}
	return report, nil
}

func (s *SessionService) expandRange(req CreateSessionRangeRequest) ([]time.Time, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid session range payload")
	}
	start, err := time.Parse("2006-01-02", req.StartDate)
	if err != nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, "invalid start date")
	}
	end, err := time.Parse("2006-01-02", req.EndDate)
	if err != nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, "invalid end date")
	}
	return schedule.Expand(start, end, req.DaysOfWeek)
}

type batchSpec struct {
	coachID     string
	classroomID *string
	dates       []time.Time
	startTime   string
	endTime     string
	sessionType models.SessionType
	title       string
	description string
}

func (s *SessionService) createBatch(ctx context.Context, spec batchSpec) (*CreateSessionsResult, error) {
	startMin, endMin, err := schedule.ParseWindow(spec.startTime, spec.endTime)
	if err != nil {
		return nil, err
	}
	if !spec.sessionType.Valid() {
		return nil, appErrors.Clone(appErrors.ErrValidation, "unknown session type")
	}

	if _, err := s.coaches.FindByID(ctx, spec.coachID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "coach not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load coach")
	}
	if spec.classroomID != nil && *spec.classroomID != "" {
		exists, err := s.classrooms.Exists(ctx, *spec.classroomID)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check classroom")
		}
		if !exists {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "classroom not found")
		}
	}

	report, err := s.conflicts.Check(ctx, Proposal{
		CoachID:     spec.coachID,
		ClassroomID: spec.classroomID,
		Dates:       spec.dates,
		StartTime:   spec.startTime,
		EndTime:     spec.endTime,
	})
	if err != nil {
		return nil, err
	}
	if s.blockHardConflicts && report.HasHard() {
		return nil, appErrors.Clone(appErrors.ErrConflict, "hard scheduling conflicts detected")
	}

	var groupID *string
	if len(spec.dates) > 1 {
		id := uuid.NewString()
		groupID = &id
	}

	sessions := make([]models.Session, 0, len(spec.dates))
	for _, date := range spec.dates {
		sessions = append(sessions, models.Session{
			CoachID:           spec.coachID,
			ClassroomID:       spec.classroomID,
			ScheduledDate:     schedule.DateOnly(date),
			StartTime:         spec.startTime,
			EndTime:           spec.endTime,
			DurationMinutes:   endMin - startMin,
			Type:              spec.sessionType,
			Status:            models.SessionStatusScheduled,
			RecurrenceGroupID: groupID,
			Title:             spec.title,
			Description:       spec.description,
		})
	}

	if err := s.store.CreateBatch(ctx, sessions); err != nil {
		var appErr *appErrors.Error
		if errors.As(err, &appErr) {
			return nil, appErr
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create sessions")
	}

	s.metrics.RecordSessionsCreated(len(sessions))
	s.calendars.InvalidateRange(ctx, spec.coachID, spec.dates[0], spec.dates[len(spec.dates)-1])
	s.logger.Info("sessions created",
		zap.String("coach_id", spec.coachID),
		zap.Int("count", len(sessions)),
		zap.Int("conflicts", len(report.Conflicts)),
	)
	return &CreateSessionsResult{Created: sessions, Conflicts: report.Conflicts}, nil
}

// Open advances a SCHEDULED session to OPEN and stamps openedAt.
func (s *SessionService) Open(ctx context.Context, id string, actor *models.JWTClaims) (*models.Session, error) {
	session, err := s.authorizedSession(ctx, id, actor)
	if err != nil {
		return nil, err
	}
	if !session.Status.CanOpen() {
		return nil, appErrors.StateError(string(session.Status), "open")
	}

	updated, err := s.store.Open(ctx, id)
	if err != nil {
		return nil, s.transitionError(ctx, id, "open", err)
	}

	s.notifier.SessionOpened(*updated)
	s.calendars.InvalidateRange(ctx, updated.CoachID, updated.ScheduledDate, updated.ScheduledDate)
	return updated, nil
}

// Close advances an OPEN session to COMPLETED and stamps closedAt.
func (s *SessionService) Close(ctx context.Context, id string, actor *models.JWTClaims) (*models.Session, error) {
	session, err := s.authorizedSession(ctx, id, actor)
	if err != nil {
		return nil, err
	}
	if !session.Status.CanClose() {
		return nil, appErrors.StateError(string(session.Status), "close")
	}

	updated, err := s.store.Close(ctx, id)
	if err != nil {
		return nil, s.transitionError(ctx, id, "close", err)
	}

	s.calendars.InvalidateRange(ctx, updated.CoachID, updated.ScheduledDate, updated.ScheduledDate)
	return updated, nil
}

// Cancel moves a SCHEDULED or OPEN session to the terminal CANCELLED state.
// The row is retained for audit and excluded from calendars.
func (s *SessionService) Cancel(ctx context.Context, id string, actor *models.JWTClaims) (*models.Session, error) {
	session, err := s.authorizedSession(ctx, id, actor)
	if err != nil {
		return nil, err
	}
	if !session.Status.CanCancel() {
		return nil, appErrors.StateError(string(session.Status), "cancel")
	}

	updated, err := s.store.Cancel(ctx, id)
	if err != nil {
		return nil, s.transitionError(ctx, id, "cancel", err)
	}

	s.notifier.SessionCancelled(*updated)
	s.calendars.InvalidateRange(ctx, updated.CoachID, updated.ScheduledDate, updated.ScheduledDate)
	return updated, nil
}

// SignAttendance records a candidate's presence at an OPEN session. The
// unique constraint on (session, candidate) rejects duplicates.
func (s *SessionService) SignAttendance(ctx context.Context, sessionID, candidateID string) (*models.Attendance, error) {
	if candidateID == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "candidate id is required")
	}
	session, err := s.Get(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if session.Status != models.SessionStatusOpen {
		return nil, appErrors.StateError(string(session.Status), "sign attendance for")
	}

	att := &models.Attendance{SessionID: sessionID, CandidateID: candidateID}
	if err := s.attendance.Insert(ctx, att); err != nil {
		var appErr *appErrors.Error
		if errors.As(err, &appErr) {
			return nil, appErr
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to record attendance")
	}
	return att, nil
}

// ListAttendance returns the signatures for a session.
func (s *SessionService) ListAttendance(ctx context.Context, sessionID string, actor *models.JWTClaims) ([]models.Attendance, error) {
	session, err := s.authorizedSession(ctx, sessionID, actor)
	if err != nil {
		return nil, err
	}
	rows, err := s.attendance.ListBySession(ctx, session.ID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list attendance")
	}
	return rows, nil
}

func (s *SessionService) authorizedSession(ctx context.Context, id string, actor *models.JWTClaims) (*models.Session, error) {
	session, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := requireCoachOrAdmin(actor, session.CoachID); err != nil {
		return nil, err
	}
	return session, nil
}

// transitionError distinguishes a vanished session from a transition lost to
// a concurrent caller: the status-guarded UPDATE returns no row either way.
func (s *SessionService) transitionError(ctx context.Context, id, attempted string, err error) error {
	if !errors.Is(err, sql.ErrNoRows) {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update session")
	}
	current, findErr := s.store.FindByID(ctx, id)
	if findErr != nil {
		return appErrors.Clone(appErrors.ErrNotFound, "session not found")
	}
	return appErrors.StateError(string(current.Status), attempted)
}
