package models

import "time"

// AvailabilitySlot declares when a coach can be booked. A slot is either
// recurring (day_of_week within a bounded validity window) or pinned to a
// specific date. Slots are never edited in place; changes are delete+recreate.
type AvailabilitySlot struct {
	ID          string     `db:"id" json:"id"`
	CoachID     string     `db:"coach_id" json:"coach_id"`
	IsRecurring bool       `db:"is_recurring" json:"is_recurring"`
	DayOfWeek   *int       `db:"day_of_week" json:"day_of_week,omitempty"`
	ValidFrom   *time.Time `db:"valid_from" json:"valid_from,omitempty"`
	ValidTo     *time.Time `db:"valid_to" json:"valid_to,omitempty"`
	Date        *time.Time `db:"date" json:"date,omitempty"`
	StartTime   string     `db:"start_time" json:"start_time"`
	EndTime     string     `db:"end_time" json:"end_time"`
	CreatedAt   time.Time  `db:"created_at" json:"created_at"`
}

// Covers reports whether the slot applies to the given day.
func (s AvailabilitySlot) Covers(day time.Time) bool {
	day = dateOnly(day)
	if !s.IsRecurring {
		return s.Date != nil && dateOnly(*s.Date).Equal(day)
	}
	if s.DayOfWeek == nil || s.ValidFrom == nil || s.ValidTo == nil {
		return false
	}
	if int(day.Weekday()) != *s.DayOfWeek {
		return false
	}
	return !day.Before(dateOnly(*s.ValidFrom)) && !day.After(dateOnly(*s.ValidTo))
}

func dateOnly(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// AvailabilityInstance is a concrete expanded occurrence of a slot.
type AvailabilityInstance struct {
	SlotID    string    `json:"slot_id"`
	CoachID   string    `json:"coach_id"`
	Date      time.Time `json:"date"`
	StartTime string    `json:"start_time"`
	EndTime   string    `json:"end_time"`
}
