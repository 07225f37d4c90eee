package service

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/roadready/coachplan-api/internal/models"
	"github.com/roadready/coachplan-api/internal/schedule"
	appErrors "github.com/roadready/coachplan-api/pkg/errors"
)

const (
	reasonCoachDoubleBooking     = "double booking with coach session"
	reasonClassroomDoubleBooking = "double booking with classroom session"
	reasonOutsideAvailability    = "outside declared availability"
)

type conflictSessionStore interface {
	ListByCoachDates(ctx context.Context, coachID string, from, to time.Time) ([]models.Session, error)
	ListByClassroomDates(ctx context.Context, classroomID string, from, to time.Time) ([]models.Session, error)
}

type conflictAvailabilityStore interface {
	ListCovering(ctx context.Context, coachID string, from, to time.Time) ([]models.AvailabilitySlot, error)
}

// Proposal is a batch of concrete instances to be checked before commit.
// All instances share one time window and one coach.
type Proposal struct {
	CoachID     string
	ClassroomID *string
	Dates       []time.Time
	StartTime   string
	EndTime     string
}

// ConflictService composes the recurrence expander, the overlap checker and
// the resource store into an advisory conflict report. It never mutates
// state and never blocks a proposal by itself.
type ConflictService struct {
	sessions     conflictSessionStore
	availability conflictAvailabilityStore
	metrics      *MetricsService
	logger       *zap.Logger
}

// NewConflictService instantiates ConflictService.
func NewConflictService(sessions conflictSessionStore, availability conflictAvailabilityStore, metrics *MetricsService, logger *zap.Logger) *ConflictService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ConflictService{sessions: sessions, availability: availability, metrics: metrics, logger: logger}
}

// Check produces the conflict report for a proposed batch. HARD entries are
// real double bookings of the coach or classroom; SOFT entries flag windows
// not fully covered by declared availability.
func (s *ConflictService) Check(ctx context.Context, proposal Proposal) (*models.ConflictReport, error) {
	report := &models.ConflictReport{}
	if len(proposal.Dates) == 0 {
		return report, nil
	}

	startMin, endMin, err := schedule.ParseWindow(proposal.StartTime, proposal.EndTime)
	if err != nil {
		return nil, err
	}

	from := schedule.DateOnly(proposal.Dates[0])
	to := schedule.DateOnly(proposal.Dates[len(proposal.Dates)-1])

	coachSessions, err := s.sessions.ListByCoachDates(ctx, proposal.CoachID, from, to)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load coach sessions")
	}

	var classroomSessions []models.Session
	if proposal.ClassroomID != nil && *proposal.ClassroomID != "" {
		classroomSessions, err = s.sessions.ListByClassroomDates(ctx, *proposal.ClassroomID, from, to)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load classroom sessions")
		}
	}

	slots, err := s.availability.ListCovering(ctx, proposal.CoachID, from, to)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load availability slots")
	}

	for _, date := range proposal.Dates {
		proposed := schedule.Window{Date: date, StartMin: startMin, EndMin: endMin}

		if overlapsAny(proposed, coachSessions) {
			report.Conflicts = append(report.Conflicts, models.ConflictEntry{
				Date: schedule.DateOnly(date), Reason: reasonCoachDoubleBooking, Severity: models.ConflictSeverityHard,
			})
			s.metrics.RecordConflict(string(models.ConflictSeverityHard))
		}

		if overlapsAny(proposed, classroomSessions) {
			report.Conflicts = append(report.Conflicts, models.ConflictEntry{
				Date: schedule.DateOnly(date), Reason: reasonClassroomDoubleBooking, Severity: models.ConflictSeverityHard,
			})
			s.metrics.RecordConflict(string(models.ConflictSeverityHard))
		}

		if !coveredByAvailability(proposed, slots) {
			report.Conflicts = append(report.Conflicts, models.ConflictEntry{
				Date: schedule.DateOnly(date), Reason: reasonOutsideAvailability, Severity: models.ConflictSeveritySoft,
			})
			s.metrics.RecordConflict(string(models.ConflictSeveritySoft))
		}
	}

	if !report.Clean() {
		s.logger.Debug("conflicts detected",
			zap.String("coach_id", proposal.CoachID),
			zap.Int("entries", len(report.Conflicts)),
		)
	}
	return report, nil
}

func overlapsAny(proposed schedule.Window, sessions []models.Session) bool {
	for _, sess := range sessions {
		start, end, err := schedule.ParseWindow(sess.StartTime, sess.EndTime)
		if err != nil {
			continue
		}
		existing := schedule.Window{Date: sess.ScheduledDate, StartMin: start, EndMin: end}
		if proposed.Overlaps(existing) {
			return true
		}
	}
	return false
}

// coveredByAvailability requires the proposed window to sit fully inside a
// single covering slot; two adjacent slots do not combine.
func coveredByAvailability(proposed schedule.Window, slots []models.AvailabilitySlot) bool {
	for _, slot := range slots {
		if !slot.Covers(proposed.Date) {
			continue
		}
		start, end, err := schedule.ParseWindow(slot.StartTime, slot.EndTime)
		if err != nil {
			continue
		}
		window := schedule.Window{Date: proposed.Date, StartMin: start, EndMin: end}
		if window.Contains(proposed) {
			return true
		}
	}
	return false
}
