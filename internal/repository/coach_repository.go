package repository

import (
	"context"

	"github.com/jmoiron/sqlx"

	"github.com/roadready/coachplan-api/internal/models"
)

// CoachRepository reads the coach roster owned by the identity system.
// The engine never writes to it.
type CoachRepository struct {
	db *sqlx.DB
}

// NewCoachRepository creates a new coach repository.
func NewCoachRepository(db *sqlx.DB) *CoachRepository {
	return &CoachRepository{db: db}
}

// FindByID loads a coach by id.
func (r *CoachRepository) FindByID(ctx context.Context, id string) (*models.Coach, error) {
	var coach models.Coach
	if err := r.db.GetContext(ctx, &coach, `SELECT id, full_name, email, active, created_at FROM coaches WHERE id = $1`, id); err != nil {
		return nil, err
	}
	return &coach, nil
}
