package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/roadready/coachplan-api/internal/models"
)

type conflictSessionsStub struct {
	coachSessions     []models.Session
	classroomSessions []models.Session
}

func (s *conflictSessionsStub) ListByCoachDates(ctx context.Context, coachID string, from, to time.Time) ([]models.Session, error) {
	return s.coachSessions, nil
}

func (s *conflictSessionsStub) ListByClassroomDates(ctx context.Context, classroomID string, from, to time.Time) ([]models.Session, error) {
	return s.classroomSessions, nil
}

type conflictSlotsStub struct {
	slots []models.AvailabilitySlot
}

func (s *conflictSlotsStub) ListCovering(ctx context.Context, coachID string, from, to time.Time) ([]models.AvailabilitySlot, error) {
	return s.slots, nil
}

func testDay(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func coveringSlot(day time.Time, start, end string) models.AvailabilitySlot {
	d := day
	return models.AvailabilitySlot{
		ID:        "slot-1",
		CoachID:   "coach-1",
		Date:      &d,
		StartTime: start,
		EndTime:   end,
	}
}

func TestConflictServiceCleanProposal(t *testing.T) {
	monday := testDay(2025, time.April, 7)
	svc := NewConflictService(
		&conflictSessionsStub{},
		&conflictSlotsStub{slots: []models.AvailabilitySlot{coveringSlot(monday, "09:00", "12:00")}},
		nil,
		zap.NewNop(),
	)

	report, err := svc.Check(context.Background(), Proposal{
		CoachID:   "coach-1",
		Dates:     []time.Time{monday},
		StartTime: "09:00",
		EndTime:   "10:30",
	})
	require.NoError(t, err)
	assert.True(t, report.Clean())
	assert.False(t, report.HasHard())
}

func TestConflictServiceCoachDoubleBookingIsHard(t *testing.T) {
	monday := testDay(2025, time.April, 7)
	existing := models.Session{
		ID: "sess-1", CoachID: "coach-1", ScheduledDate: monday,
		StartTime: "10:00", EndTime: "11:30", Status: models.SessionStatusScheduled,
	}
	svc := NewConflictService(
		&conflictSessionsStub{coachSessions: []models.Session{existing}},
		&conflictSlotsStub{slots: []models.AvailabilitySlot{coveringSlot(monday, "09:00", "13:00")}},
		nil,
		zap.NewNop(),
	)

	report, err := svc.Check(context.Background(), Proposal{
		CoachID:   "coach-1",
		Dates:     []time.Time{monday},
		StartTime: "11:00",
		EndTime:   "12:00",
	})
	require.NoError(t, err)
	require.Len(t, report.Conflicts, 1)
	assert.Equal(t, models.ConflictSeverityHard, report.Conflicts[0].Severity)
	assert.True(t, report.HasHard())
}

func TestConflictServiceTouchingWindowsDoNotConflict(t *testing.T) {
	monday := testDay(2025, time.April, 7)
	existing := models.Session{
		ID: "sess-1", CoachID: "coach-1", ScheduledDate: monday,
		StartTime: "09:00", EndTime: "11:00", Status: models.SessionStatusScheduled,
	}
	svc := NewConflictService(
		&conflictSessionsStub{coachSessions: []models.Session{existing}},
		&conflictSlotsStub{slots: []models.AvailabilitySlot{coveringSlot(monday, "09:00", "13:00")}},
		nil,
		zap.NewNop(),
	)

	report, err := svc.Check(context.Background(), Proposal{
		CoachID:   "coach-1",
		Dates:     []time.Time{monday},
		StartTime: "11:00",
		EndTime:   "12:00",
	})
	require.NoError(t, err)
	assert.True(t, report.Clean())
}

func TestConflictServiceClassroomDoubleBookingIsHard(t *testing.T) {
	monday := testDay(2025, time.April, 7)
	occupied := models.Session{
		ID: "sess-9", CoachID: "coach-2", ScheduledDate: monday,
		StartTime: "10:00", EndTime: "12:00", Status: models.SessionStatusScheduled,
	}
	svc := NewConflictService(
		&conflictSessionsStub{classroomSessions: []models.Session{occupied}},
		&conflictSlotsStub{slots: []models.AvailabilitySlot{coveringSlot(monday, "09:00", "13:00")}},
		nil,
		zap.NewNop(),
	)

	room := "room-1"
	report, err := svc.Check(context.Background(), Proposal{
		CoachID:     "coach-1",
		ClassroomID: &room,
		Dates:       []time.Time{monday},
		StartTime:   "11:00",
		EndTime:     "12:30",
	})
	require.NoError(t, err)
	require.Len(t, report.Conflicts, 1)
	assert.Equal(t, models.ConflictSeverityHard, report.Conflicts[0].Severity)
}

func TestConflictServiceOutsideAvailabilityIsSoft(t *testing.T) {
	monday := testDay(2025, time.April, 7)
	svc := NewConflictService(
		&conflictSessionsStub{},
		&conflictSlotsStub{},
		nil,
		zap.NewNop(),
	)

	report, err := svc.Check(context.Background(), Proposal{
		CoachID:   "coach-1",
		Dates:     []time.Time{monday},
		StartTime: "09:00",
		EndTime:   "10:00",
	})
	require.NoError(t, err)
	require.Len(t, report.Conflicts, 1)
	assert.Equal(t, models.ConflictSeveritySoft, report.Conflicts[0].Severity)
	assert.False(t, report.HasHard())
}

func TestConflictServiceAdjacentSlotsDoNotCombine(t *testing.T) {
	monday := testDay(2025, time.April, 7)
	slots := []models.AvailabilitySlot{
		coveringSlot(monday, "09:00", "11:00"),
		coveringSlot(monday, "11:00", "13:00"),
	}
	svc := NewConflictService(&conflictSessionsStub{}, &conflictSlotsStub{slots: slots}, nil, zap.NewNop())

	// The proposal spans both slots but fits inside neither.
	report, err := svc.Check(context.Background(), Proposal{
		CoachID:   "coach-1",
		Dates:     []time.Time{monday},
		StartTime: "10:00",
		EndTime:   "12:00",
	})
	require.NoError(t, err)
	require.Len(t, report.Conflicts, 1)
	assert.Equal(t, models.ConflictSeveritySoft, report.Conflicts[0].Severity)
}

func TestConflictServiceCancelledSessionsIgnored(t *testing.T) {
	// The repository filters CANCELLED rows out; the detector simply checks
	// whatever it is given, so an empty result means a clean report.
	monday := testDay(2025, time.April, 7)
	svc := NewConflictService(
		&conflictSessionsStub{},
		&conflictSlotsStub{slots: []models.AvailabilitySlot{coveringSlot(monday, "09:00", "13:00")}},
		nil,
		zap.NewNop(),
	)

	report, err := svc.Check(context.Background(), Proposal{
		CoachID:   "coach-1",
		Dates:     []time.Time{monday},
		StartTime: "10:00",
		EndTime:   "11:00",
	})
	require.NoError(t, err)
	assert.True(t, report.Clean())
}

func TestConflictServiceEmptyDates(t *testing.T) {
	svc := NewConflictService(&conflictSessionsStub{}, &conflictSlotsStub{}, nil, zap.NewNop())

	report, err := svc.Check(context.Background(), Proposal{CoachID: "coach-1"})
	require.NoError(t, err)
	assert.True(t, report.Clean())
}
