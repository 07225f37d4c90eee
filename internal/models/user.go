package models

import "time"

// UserRole represents the available roles for the RBAC system.
type UserRole string

const (
	RoleAdmin     UserRole = "ADMIN"
	RoleCoach     UserRole = "COACH"
	RoleCandidate UserRole = "CANDIDATE"
)

// Coach is a read-only projection of the identity system's coach record,
// used for ownership checks and nested summaries in session listings.
type Coach struct {
	ID        string    `db:"id" json:"id"`
	FullName  string    `db:"full_name" json:"full_name"`
	Email     string    `db:"email" json:"email"`
	Active    bool      `db:"active" json:"active"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// CoachSummary is the trimmed coach shape nested in session responses.
type CoachSummary struct {
	ID       string `db:"coach_id" json:"id"`
	FullName string `db:"coach_name" json:"full_name"`
}

// Pagination contains pagination metadata returned in list responses.
type Pagination struct {
	Page       int `json:"page"`
	PageSize   int `json:"page_size"`
	TotalCount int `json:"total_count"`
}
