package service

import (
	"context"
	"database/sql"
	"errors"
	"sort"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/roadready/coachplan-api/internal/models"
	"github.com/roadready/coachplan-api/internal/schedule"
	appErrors "github.com/roadready/coachplan-api/pkg/errors"
)

type availabilityStore interface {
	ListCovering(ctx context.Context, coachID string, from, to time.Time) ([]models.AvailabilitySlot, error)
	FindByID(ctx context.Context, id string) (*models.AvailabilitySlot, error)
	BulkCreate(ctx context.Context, slots []models.AvailabilitySlot) error
	Delete(ctx context.Context, coachID, id string) error
}

// CreateAvailabilityRangeRequest declares recurring availability over a
// bounded date range, one slot per requested weekday.
type CreateAvailabilityRangeRequest struct {
	StartDate  string `json:"start_date" validate:"required,datetime=2006-01-02"`
	EndDate    string `json:"end_date" validate:"required,datetime=2006-01-02"`
	DaysOfWeek []int  `json:"days_of_week" validate:"required,min=1,dive,gte=0,lte=6"`
	StartTime  string `json:"start_time" validate:"required"`
	EndTime    string `json:"end_time" validate:"required"`
}

// AvailabilityService manages a coach's declared availability. Slots are
// declarative: recurring slots are expanded on read rather than stored per
// occurrence.
type AvailabilityService struct {
	store     availabilityStore
	calendars calendarInvalidator
	validator *validator.Validate
	logger    *zap.Logger
}

// NewAvailabilityService instantiates AvailabilityService.
func NewAvailabilityService(store availabilityStore, calendars calendarInvalidator, validate *validator.Validate, logger *zap.Logger) *AvailabilityService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AvailabilityService{store: store, calendars: calendars, validator: validate, logger: logger}
}

// ListMonth expands the coach's slots over the given month and returns the
// concrete instances in date then start-time order.
func (s *AvailabilityService) ListMonth(ctx context.Context, coachID string, year int, month time.Month) ([]models.AvailabilityInstance, error) {
	first, last := schedule.MonthBounds(year, month)
	slots, err := s.store.ListCovering(ctx, coachID, first, last)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load availability slots")
	}
	instances := ExpandSlots(slots, first, last)
	return instances, nil
}

// ExpandSlots turns slots into concrete instances within [from, to].
func ExpandSlots(slots []models.AvailabilitySlot, from, to time.Time) []models.AvailabilityInstance {
	instances := make([]models.AvailabilityInstance, 0, len(slots))
	for _, slot := range slots {
		var dates []time.Time
		if slot.IsRecurring {
			if slot.DayOfWeek == nil || slot.ValidFrom == nil || slot.ValidTo == nil {
				continue
			}
			start := laterDate(from, *slot.ValidFrom)
			end := earlierDate(to, *slot.ValidTo)
			expanded, err := schedule.Expand(start, end, []int{*slot.DayOfWeek})
			if err != nil {
				// Validity window lies outside the visible range.
				continue
			}
			dates = expanded
		} else if slot.Date != nil {
			day := schedule.DateOnly(*slot.Date)
			if !day.Before(schedule.DateOnly(from)) && !day.After(schedule.DateOnly(to)) {
				dates = []time.Time{day}
			}
		}
		for _, date := range dates {
			instances = append(instances, models.AvailabilityInstance{
				SlotID:    slot.ID,
				CoachID:   slot.CoachID,
				Date:      date,
				StartTime: slot.StartTime,
				EndTime:   slot.EndTime,
			})
		}
	}
	sort.Slice(instances, func(i, j int) bool {
		if !instances[i].Date.Equal(instances[j].Date) {
			return instances[i].Date.Before(instances[j].Date)
		}
		return instances[i].StartTime < instances[j].StartTime
	})
	return instances
}

// CreateRange declares recurring availability: one bounded recurring slot
// per requested weekday. Only the owning coach or an admin may call it.
func (s *AvailabilityService) CreateRange(ctx context.Context, coachID string, req CreateAvailabilityRangeRequest, actor *models.JWTClaims) ([]models.AvailabilitySlot, error) {
	if err := requireCoachOrAdmin(actor, coachID); err != nil {
		return nil, err
	}
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid availability payload")
	}
	if _, _, err := schedule.ParseWindow(req.StartTime, req.EndTime); err != nil {
		return nil, err
	}

	start, err := time.Parse("2006-01-02", req.StartDate)
	if err != nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, "invalid start date")
	}
	end, err := time.Parse("2006-01-02", req.EndDate)
	if err != nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, "invalid end date")
	}

	// Expansion doubles as range validation: inverted ranges and empty or
	// out-of-range weekday sets are rejected before any write.
	if _, err := schedule.Expand(start, end, req.DaysOfWeek); err != nil {
		return nil, err
	}

	seen := make(map[int]struct{}, len(req.DaysOfWeek))
	slots := make([]models.AvailabilitySlot, 0, len(req.DaysOfWeek))
	for _, dayOfWeek := range req.DaysOfWeek {
		if _, dup := seen[dayOfWeek]; dup {
			continue
		}
		seen[dayOfWeek] = struct{}{}
		day := dayOfWeek
		validFrom := schedule.DateOnly(start)
		validTo := schedule.DateOnly(end)
		slots = append(slots, models.AvailabilitySlot{
			CoachID:     coachID,
			IsRecurring: true,
			DayOfWeek:   &day,
			ValidFrom:   &validFrom,
			ValidTo:     &validTo,
			StartTime:   req.StartTime,
			EndTime:     req.EndTime,
		})
	}

	if err := s.store.BulkCreate(ctx, slots); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create availability slots")
	}

	s.calendars.InvalidateRange(ctx, coachID, schedule.DateOnly(start), schedule.DateOnly(end))
	s.logger.Info("availability range created",
		zap.String("coach_id", coachID),
		zap.Int("slots", len(slots)),
	)
	return slots, nil
}

// Delete removes a slot. Slots are never edited in place; a change is a
// delete followed by a new range declaration.
func (s *AvailabilityService) Delete(ctx context.Context, coachID, slotID string, actor *models.JWTClaims) error {
	if err := requireCoachOrAdmin(actor, coachID); err != nil {
		return err
	}

	slot, err := s.store.FindByID(ctx, slotID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "availability slot not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load availability slot")
	}

	if err := s.store.Delete(ctx, coachID, slotID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "availability slot not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete availability slot")
	}

	from, to := slotSpan(slot)
	s.calendars.InvalidateRange(ctx, coachID, from, to)
	return nil
}

func slotSpan(slot *models.AvailabilitySlot) (time.Time, time.Time) {
	if slot.IsRecurring && slot.ValidFrom != nil && slot.ValidTo != nil {
		return *slot.ValidFrom, *slot.ValidTo
	}
	if slot.Date != nil {
		return *slot.Date, *slot.Date
	}
	now := time.Now().UTC()
	return now, now
}

func requireCoachOrAdmin(actor *models.JWTClaims, coachID string) error {
	if actor == nil {
		return appErrors.ErrUnauthorized
	}
	if actor.Role == models.RoleAdmin {
		return nil
	}
	if actor.Role == models.RoleCoach && actor.UserID == coachID {
		return nil
	}
	return appErrors.ErrForbidden
}

func laterDate(a, b time.Time) time.Time {
	if schedule.DateOnly(a).After(schedule.DateOnly(b)) {
		return a
	}
	return b
}

func earlierDate(a, b time.Time) time.Time {
	if schedule.DateOnly(a).Before(schedule.DateOnly(b)) {
		return a
	}
	return b
}
