package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/roadready/coachplan-api/internal/models"
	appErrors "github.com/roadready/coachplan-api/pkg/errors"
)

const sessionColumns = "id, coach_id, classroom_id, scheduled_date, start_time, end_time, duration_minutes, type, status, recurrence_group_id, title, description, opened_at, closed_at, created_at, updated_at"

const pqUniqueViolation = "23505"

// SessionRepository provides persistence for sessions.
type SessionRepository struct {
	db *sqlx.DB
}

// NewSessionRepository creates a new session repository.
func NewSessionRepository(db *sqlx.DB) *SessionRepository {
	return &SessionRepository{db: db}
}

// List returns sessions with the coach summary and attendance count joined in.
func (r *SessionRepository) List(ctx context.Context, filter models.SessionFilter) ([]models.SessionRecord, int, error) {
	base := `FROM sessions s JOIN coaches c ON c.id = s.coach_id WHERE 1=1`
	var conditions []string
	var args []interface{}

	if filter.CoachID != "" {
		conditions = append(conditions, fmt.Sprintf("s.coach_id = $%d", len(args)+1))
		args = append(args, filter.CoachID)
	}
	if filter.ClassroomID != "" {
		conditions = append(conditions, fmt.Sprintf("s.classroom_id = $%d", len(args)+1))
		args = append(args, filter.ClassroomID)
	}
	if filter.Status != nil {
		conditions = append(conditions, fmt.Sprintf("s.status = $%d", len(args)+1))
		args = append(args, string(*filter.Status))
	}
	if filter.DateFrom != nil {
		conditions = append(conditions, fmt.Sprintf("s.scheduled_date >= $%d", len(args)+1))
		args = append(args, *filter.DateFrom)
	}
	if filter.DateTo != nil {
		conditions = append(conditions, fmt.Sprintf("s.scheduled_date <= $%d", len(args)+1))
		args = append(args, *filter.DateTo)
	}

	if len(conditions) > 0 {
		base += " AND " + strings.Join(conditions, " AND ")
	}

	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 || size > 200 {
		size = 50
	}
	offset := (page - 1) * size

	selectCols := strings.ReplaceAll(sessionColumns, ", ", ", s.")
	query := fmt.Sprintf(`SELECT s.%s, c.full_name AS coach_name,
		(SELECT COUNT(*) FROM attendances a WHERE a.session_id = s.id) AS attendance_count
		%s ORDER BY s.scheduled_date ASC, s.start_time ASC LIMIT %d OFFSET %d`, selectCols, base, size, offset)
	var records []models.SessionRecord
	if err := r.db.SelectContext(ctx, &records, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list sessions: %w", err)
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) %s", base)
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count sessions: %w", err)
	}

	return records, total, nil
}

// FindByID loads a session by id.
func (r *SessionRepository) FindByID(ctx context.Context, id string) (*models.Session, error) {
	query := fmt.Sprintf("SELECT %s FROM sessions WHERE id = $1", sessionColumns)
	var session models.Session
	if err := r.db.GetContext(ctx, &session, query, id); err != nil {
		return nil, err
	}
	return &session, nil
}

// ListByCoachDates returns the coach's non-CANCELLED sessions in [from, to].
func (r *SessionRepository) ListByCoachDates(ctx context.Context, coachID string, from, to time.Time) ([]models.Session, error) {
	query := fmt.Sprintf(`SELECT %s FROM sessions WHERE coach_id = $1 AND scheduled_date >= $2 AND scheduled_date <= $3 AND status != $4 ORDER BY scheduled_date ASC, start_time ASC`, sessionColumns)
	var sessions []models.Session
	if err := r.db.SelectContext(ctx, &sessions, query, coachID, from, to, string(models.SessionStatusCancelled)); err != nil {
		return nil, fmt.Errorf("list sessions by coach: %w", err)
	}
	return sessions, nil
}

// ListByClassroomDates returns the classroom's non-CANCELLED sessions in [from, to].
func (r *SessionRepository) ListByClassroomDates(ctx context.Context, classroomID string, from, to time.Time) ([]models.Session, error) {
	query := fmt.Sprintf(`SELECT %s FROM sessions WHERE classroom_id = $1 AND scheduled_date >= $2 AND scheduled_date <= $3 AND status != $4 ORDER BY scheduled_date ASC, start_time ASC`, sessionColumns)
	var sessions []models.Session
	if err := r.db.SelectContext(ctx, &sessions, query, classroomID, from, to, string(models.SessionStatusCancelled)); err != nil {
		return nil, fmt.Errorf("list sessions by classroom: %w", err)
	}
	return sessions, nil
}

// CreateBatch inserts all sessions in one transaction, re-checking for
// overlapping bookings inside the transaction so two concurrent batches
// cannot both commit conflicting sessions. The coach's rows for each date
// are locked before the overlap re-check. Aborts with CONFLICT_ON_COMMIT
// when an overlap or the (coach, date, start) uniqueness guard trips.
func (r *SessionRepository) CreateBatch(ctx context.Context, sessions []models.Session) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin create sessions: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	now := time.Now().UTC()
	for i := range sessions {
		payload := sessions[i]
		if payload.ID == "" {
			payload.ID = uuid.NewString()
		}
		payload.CreatedAt = now
		payload.UpdatedAt = now

		var overlaps int
		err = tx.GetContext(ctx, &overlaps, `SELECT COUNT(*) FROM (
			SELECT id FROM sessions
			WHERE coach_id = $1 AND scheduled_date = $2 AND status != $3
			AND start_time < $4 AND end_time > $5
			FOR UPDATE) locked`,
			payload.CoachID, payload.ScheduledDate, string(models.SessionStatusCancelled), payload.EndTime, payload.StartTime)
		if err != nil {
			return fmt.Errorf("recheck session overlap: %w", err)
		}
		if overlaps > 0 {
			err = appErrors.Clone(appErrors.ErrConflictOnCommit, "overlapping session committed concurrently")
			return err
		}

		if _, err = sqlx.NamedExecContext(ctx, tx, `INSERT INTO sessions (id, coach_id, classroom_id, scheduled_date, start_time, end_time, duration_minutes, type, status, recurrence_group_id, title, description, opened_at, closed_at, created_at, updated_at) VALUES (:id, :coach_id, :classroom_id, :scheduled_date, :start_time, :end_time, :duration_minutes, :type, :status, :recurrence_group_id, :title, :description, :opened_at, :closed_at, :created_at, :updated_at)`, &payload); err != nil {
			if isUniqueViolation(err) {
				err = appErrors.Wrap(err, appErrors.ErrConflictOnCommit.Code, appErrors.ErrConflictOnCommit.Status, appErrors.ErrConflictOnCommit.Message)
			} else {
				err = fmt.Errorf("insert session: %w", err)
			}
			return err
		}
		sessions[i] = payload
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit create sessions: %w", err)
	}
	return nil
}

// Open advances SCHEDULED -> OPEN. The status predicate makes the update
// atomic; sql.ErrNoRows means the session is missing or not SCHEDULED.
func (r *SessionRepository) Open(ctx context.Context, id string) (*models.Session, error) {
	query := fmt.Sprintf(`UPDATE sessions SET status = $1, opened_at = $2, updated_at = $2 WHERE id = $3 AND status = $4 RETURNING %s`, sessionColumns)
	var session models.Session
	err := r.db.GetContext(ctx, &session, query, string(models.SessionStatusOpen), time.Now().UTC(), id, string(models.SessionStatusScheduled))
	if err != nil {
		return nil, err
	}
	return &session, nil
}

// Close advances OPEN -> COMPLETED.
func (r *SessionRepository) Close(ctx context.Context, id string) (*models.Session, error) {
	query := fmt.Sprintf(`UPDATE sessions SET status = $1, closed_at = $2, updated_at = $2 WHERE id = $3 AND status = $4 RETURNING %s`, sessionColumns)
	var session models.Session
	err := r.db.GetContext(ctx, &session, query, string(models.SessionStatusCompleted), time.Now().UTC(), id, string(models.SessionStatusOpen))
	if err != nil {
		return nil, err
	}
	return &session, nil
}

// Cancel moves SCHEDULED or OPEN to the terminal CANCELLED state.
func (r *SessionRepository) Cancel(ctx context.Context, id string) (*models.Session, error) {
	query := fmt.Sprintf(`UPDATE sessions SET status = $1, updated_at = $2 WHERE id = $3 AND status = ANY($4) RETURNING %s`, sessionColumns)
	var session models.Session
	err := r.db.GetContext(ctx, &session, query, string(models.SessionStatusCancelled), time.Now().UTC(), id,
		pq.Array([]string{string(models.SessionStatusScheduled), string(models.SessionStatusOpen)}))
	if err != nil {
		return nil, err
	}
	return &session, nil
}

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return string(pqErr.Code) == pqUniqueViolation
	}
	return false
}
