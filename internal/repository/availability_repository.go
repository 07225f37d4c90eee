package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/roadready/coachplan-api/internal/models"
)

const availabilityColumns = "id, coach_id, is_recurring, day_of_week, valid_from, valid_to, date, start_time, end_time, created_at"

// AvailabilityRepository provides persistence for availability slots.
type AvailabilityRepository struct {
	db *sqlx.DB
}

// NewAvailabilityRepository creates a new availability repository.
func NewAvailabilityRepository(db *sqlx.DB) *AvailabilityRepository {
	return &AvailabilityRepository{db: db}
}

// ListByCoach returns every slot declared by a coach.
func (r *AvailabilityRepository) ListByCoach(ctx context.Context, coachID string) ([]models.AvailabilitySlot, error) {
	query := fmt.Sprintf("SELECT %s FROM availability_slots WHERE coach_id = $1 ORDER BY created_at ASC", availabilityColumns)
	var slots []models.AvailabilitySlot
	if err := r.db.SelectContext(ctx, &slots, query, coachID); err != nil {
		return nil, fmt.Errorf("list availability slots: %w", err)
	}
	return slots, nil
}

// ListCovering returns the slots that can apply to any day in [from, to]:
// specific-date slots inside the range plus recurring slots whose validity
// window intersects it.
func (r *AvailabilityRepository) ListCovering(ctx context.Context, coachID string, from, to time.Time) ([]models.AvailabilitySlot, error) {
	query := fmt.Sprintf(`SELECT %s FROM availability_slots
		WHERE coach_id = $1
		AND ((is_recurring = FALSE AND date >= $2 AND date <= $3)
			OR (is_recurring = TRUE AND valid_from <= $3 AND valid_to >= $2))
		ORDER BY start_time ASC`, availabilityColumns)
	var slots []models.AvailabilitySlot
	if err := r.db.SelectContext(ctx, &slots, query, coachID, from, to); err != nil {
		return nil, fmt.Errorf("list covering availability slots: %w", err)
	}
	return slots, nil
}

// FindByID loads a slot by id.
func (r *AvailabilityRepository) FindByID(ctx context.Context, id string) (*models.AvailabilitySlot, error) {
	query := fmt.Sprintf("SELECT %s FROM availability_slots WHERE id = $1", availabilityColumns)
	var slot models.AvailabilitySlot
	if err := r.db.GetContext(ctx, &slot, query, id); err != nil {
		return nil, err
	}
	return &slot, nil
}

// BulkCreate inserts a batch of slots in a single transaction.
func (r *AvailabilityRepository) BulkCreate(ctx context.Context, slots []models.AvailabilitySlot) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin bulk create availability: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	now := time.Now().UTC()
	for i := range slots {
		payload := slots[i]
		if payload.ID == "" {
			payload.ID = uuid.NewString()
		}
		if payload.CreatedAt.IsZero() {
			payload.CreatedAt = now
		}
		if _, err = sqlx.NamedExecContext(ctx, tx, `INSERT INTO availability_slots (id, coach_id, is_recurring, day_of_week, valid_from, valid_to, date, start_time, end_time, created_at) VALUES (:id, :coach_id, :is_recurring, :day_of_week, :valid_from, :valid_to, :date, :start_time, :end_time, :created_at)`, &payload); err != nil {
			return fmt.Errorf("bulk insert availability slot: %w", err)
		}
		slots[i] = payload
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit bulk create availability: %w", err)
	}
	return nil
}

// Delete removes a slot owned by the given coach. Missing rows surface as
// sql.ErrNoRows so the service can map them to a not-found error.
func (r *AvailabilityRepository) Delete(ctx context.Context, coachID, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM availability_slots WHERE id = $1 AND coach_id = $2`, id, coachID)
	if err != nil {
		return fmt.Errorf("delete availability slot: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete availability slot affected rows: %w", err)
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}
