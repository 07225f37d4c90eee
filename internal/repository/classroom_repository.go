package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
)

// ClassroomRepository answers existence checks against the shared classroom
// registry. Classrooms are owned by the facilities system; this engine only
// references them for overlap checks.
type ClassroomRepository struct {
	db *sqlx.DB
}

// NewClassroomRepository creates a new classroom repository.
func NewClassroomRepository(db *sqlx.DB) *ClassroomRepository {
	return &ClassroomRepository{db: db}
}

// Exists reports whether the classroom id is registered.
func (r *ClassroomRepository) Exists(ctx context.Context, id string) (bool, error) {
	var exists bool
	if err := r.db.GetContext(ctx, &exists, `SELECT EXISTS (SELECT 1 FROM classrooms WHERE id = $1)`, id); err != nil {
		return false, fmt.Errorf("check classroom: %w", err)
	}
	return exists, nil
}
