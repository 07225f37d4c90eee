package models

import "time"

// SessionType classifies a session.
type SessionType string

const (
	SessionTypeCourse   SessionType = "COURSE"
	SessionTypeMockExam SessionType = "MOCK_EXAM"
)

// Valid returns true when the type is a supported value.
func (t SessionType) Valid() bool {
	switch t {
	case SessionTypeCourse, SessionTypeMockExam:
		return true
	default:
		return false
	}
}

// SessionStatus tracks the session lifecycle.
type SessionStatus string

const (
	SessionStatusScheduled SessionStatus = "SCHEDULED"
	SessionStatusOpen      SessionStatus = "OPEN"
	SessionStatusCompleted SessionStatus = "COMPLETED"
	SessionStatusCancelled SessionStatus = "CANCELLED"
)

// CanOpen reports whether the session may transition to OPEN.
func (s SessionStatus) CanOpen() bool { return s == SessionStatusScheduled }

// CanClose reports whether the session may transition to COMPLETED.
func (s SessionStatus) CanClose() bool { return s == SessionStatusOpen }

// CanCancel reports whether the session may transition to CANCELLED.
func (s SessionStatus) CanCancel() bool {
	return s == SessionStatusScheduled || s == SessionStatusOpen
}

// Session is a concrete, dated course or mock-exam instance. Sessions are
// never physically deleted; CANCELLED is a terminal soft state kept for audit.
type Session struct {
	ID                string        `db:"id" json:"id"`
	CoachID           string        `db:"coach_id" json:"coach_id"`
	ClassroomID       *string       `db:"classroom_id" json:"classroom_id,omitempty"`
	ScheduledDate     time.Time     `db:"scheduled_date" json:"scheduled_date"`
	StartTime         string        `db:"start_time" json:"start_time"`
	EndTime           string        `db:"end_time" json:"end_time"`
	DurationMinutes   int           `db:"duration_minutes" json:"duration_minutes"`
	Type              SessionType   `db:"type" json:"type"`
	Status            SessionStatus `db:"status" json:"status"`
	RecurrenceGroupID *string       `db:"recurrence_group_id" json:"recurrence_group_id,omitempty"`
	Title             string        `db:"title" json:"title"`
	Description       string        `db:"description" json:"description"`
	OpenedAt          *time.Time    `db:"opened_at" json:"opened_at,omitempty"`
	ClosedAt          *time.Time    `db:"closed_at" json:"closed_at,omitempty"`
	CreatedAt         time.Time     `db:"created_at" json:"created_at"`
	UpdatedAt         time.Time     `db:"updated_at" json:"updated_at"`
}

// SessionRecord extends a session with the coach summary and attendance count
// for list responses.
type SessionRecord struct {
	Session
	CoachName       string `db:"coach_name" json:"-"`
	AttendanceCount int    `db:"attendance_count" json:"attendance_count"`
	Coach           *CoachSummary `db:"-" json:"coach,omitempty"`
}

// SessionFilter scopes session listing queries.
type SessionFilter struct {
	CoachID     string
	ClassroomID string
	Status      *SessionStatus
	DateFrom    *time.Time
	DateTo      *time.Time
	Page        int
	PageSize    int
}

// Attendance is a timestamped proof of a candidate's presence, insertable
// only while the parent session is OPEN and unique per (session, candidate).
type Attendance struct {
	ID          string    `db:"id" json:"id"`
	SessionID   string    `db:"session_id" json:"session_id"`
	CandidateID string    `db:"candidate_id" json:"candidate_id"`
	SignedAt    time.Time `db:"signed_at" json:"signed_at"`
}
