package models

import "time"

// ConflictSeverity grades a detected scheduling conflict.
type ConflictSeverity string

const (
	// ConflictSeveritySoft flags a window outside declared availability.
	ConflictSeveritySoft ConflictSeverity = "SOFT"
	// ConflictSeverityHard flags a real double booking of a coach or classroom.
	ConflictSeverityHard ConflictSeverity = "HARD"
)

// ConflictEntry is one detected conflict for one proposed instance.
type ConflictEntry struct {
	Date     time.Time        `json:"date"`
	Reason   string           `json:"reason"`
	Severity ConflictSeverity `json:"severity"`
}

// ConflictReport is the computed, never-persisted result of a conflict check.
// An empty report means the proposal is clean.
type ConflictReport struct {
	Conflicts []ConflictEntry `json:"conflicts"`
}

// Clean reports whether no conflicts were found.
func (r ConflictReport) Clean() bool { return len(r.Conflicts) == 0 }

// HasHard reports whether any entry is a HARD conflict.
func (r ConflictReport) HasHard() bool {
	for _, c := range r.Conflicts {
		if c.Severity == ConflictSeverityHard {
			return true
		}
	}
	return false
}
