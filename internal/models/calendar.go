package models

import "time"

// CalendarEntryKind marks the origin of a merged calendar entry.
type CalendarEntryKind string

const (
	CalendarKindAvailability CalendarEntryKind = "AVAILABILITY"
	CalendarKindSession      CalendarEntryKind = "SESSION"
)

// CalendarEntry is one row of the merged per-coach monthly view. Session
// fields are populated only for SESSION entries, SlotID only for
// AVAILABILITY entries.
type CalendarEntry struct {
	Kind      CalendarEntryKind `json:"kind"`
	Date      time.Time         `json:"date"`
	StartTime string            `json:"start_time"`
	EndTime   string            `json:"end_time"`
	SlotID    string            `json:"slot_id,omitempty"`
	SessionID string            `json:"session_id,omitempty"`
	Title     string            `json:"title,omitempty"`
	Type      SessionType       `json:"type,omitempty"`
	Status    SessionStatus     `json:"status,omitempty"`
}
