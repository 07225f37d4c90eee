package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/roadready/coachplan-api/internal/models"
	appErrors "github.com/roadready/coachplan-api/pkg/errors"
)

// AttendanceRepository provides persistence for attendance records.
type AttendanceRepository struct {
	db *sqlx.DB
}

// NewAttendanceRepository creates a new attendance repository.
func NewAttendanceRepository(db *sqlx.DB) *AttendanceRepository {
	return &AttendanceRepository{db: db}
}

// Insert stores a signature. The (session_id, candidate_id) unique
// constraint is the concurrency guard: a concurrent duplicate sign races
// safely to exactly one success, the loser gets DUPLICATE.
func (r *AttendanceRepository) Insert(ctx context.Context, att *models.Attendance) error {
	if att.ID == "" {
		att.ID = uuid.NewString()
	}
	if att.SignedAt.IsZero() {
		att.SignedAt = time.Now().UTC()
	}
	_, err := r.db.NamedExecContext(ctx, `INSERT INTO attendances (id, session_id, candidate_id, signed_at) VALUES (:id, :session_id, :candidate_id, :signed_at)`, att)
	if err != nil {
		if isUniqueViolation(err) {
			return appErrors.Clone(appErrors.ErrDuplicate, "attendance already signed for this session")
		}
		return fmt.Errorf("insert attendance: %w", err)
	}
	return nil
}

// ListBySession returns all signatures for a session, oldest first.
func (r *AttendanceRepository) ListBySession(ctx context.Context, sessionID string) ([]models.Attendance, error) {
	var rows []models.Attendance
	if err := r.db.SelectContext(ctx, &rows, `SELECT id, session_id, candidate_id, signed_at FROM attendances WHERE session_id = $1 ORDER BY signed_at ASC`, sessionID); err != nil {
		return nil, fmt.Errorf("list attendance: %w", err)
	}
	return rows, nil
}
