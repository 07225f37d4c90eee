package service

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/roadready/coachplan-api/internal/models"
	"github.com/roadready/coachplan-api/internal/schedule"
	appErrors "github.com/roadready/coachplan-api/pkg/errors"
	"github.com/roadready/coachplan-api/pkg/export"
)

// calendarInvalidator drops cached calendar months touched by a write.
type calendarInvalidator interface {
	InvalidateRange(ctx context.Context, coachID string, from, to time.Time)
}

type calendarSessionStore interface {
	ListByCoachDates(ctx context.Context, coachID string, from, to time.Time) ([]models.Session, error)
}

// CalendarService merges expanded availability and materialized sessions
// into a per-coach monthly view. Reads are lock-free; the optional Redis
// cache is invalidated by the mutating services.
type CalendarService struct {
	availability availabilityStore
	sessions     calendarSessionStore
	redis        *redis.Client
	metrics      *MetricsService
	logger       *zap.Logger
	cacheEnabled bool
	cacheTTL     time.Duration
	csv          *export.CSVExporter
}

// NewCalendarService instantiates CalendarService. redisClient may be nil;
// caching is then disabled regardless of configuration.
func NewCalendarService(availability availabilityStore, sessions calendarSessionStore, redisClient *redis.Client, metrics *MetricsService, logger *zap.Logger, cacheEnabled bool, cacheTTL time.Duration) *CalendarService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CalendarService{
		availability: availability,
		sessions:     sessions,
		redis:        redisClient,
		metrics:      metrics,
		logger:       logger,
		cacheEnabled: cacheEnabled && redisClient != nil,
		cacheTTL:     cacheTTL,
		csv:          export.NewCSVExporter(),
	}
}

// MonthView returns the merged calendar for a coach and month, ordered by
// date then start time. CANCELLED sessions never appear.
func (s *CalendarService) MonthView(ctx context.Context, coachID string, year int, month time.Month) ([]models.CalendarEntry, error) {
	key := calendarKey(coachID, year, month)
	if s.cacheEnabled {
		if cached, err := s.redis.Get(ctx, key).Bytes(); err == nil {
			var entries []models.CalendarEntry
			if err := json.Unmarshal(cached, &entries); err == nil {
				s.metrics.RecordCacheLookup(true)
				return entries, nil
			}
		}
		s.metrics.RecordCacheLookup(false)
	}

	first, last := schedule.MonthBounds(year, month)

	slots, err := s.availability.ListCovering(ctx, coachID, first, last)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load availability slots")
	}
	sessions, err := s.sessions.ListByCoachDates(ctx, coachID, first, last)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load sessions")
	}

	entries := make([]models.CalendarEntry, 0, len(slots)+len(sessions))
	for _, inst := range ExpandSlots(slots, first, last) {
		entries = append(entries, models.CalendarEntry{
			Kind:      models.CalendarKindAvailability,
			Date:      inst.Date,
			StartTime: inst.StartTime,
			EndTime:   inst.EndTime,
			SlotID:    inst.SlotID,
		})
	}
	for _, sess := range sessions {
		if sess.Status == models.SessionStatusCancelled {
			continue
		}
		entries = append(entries, models.CalendarEntry{
			Kind:      models.CalendarKindSession,
			Date:      schedule.DateOnly(sess.ScheduledDate),
			StartTime: sess.StartTime,
			EndTime:   sess.EndTime,
			SessionID: sess.ID,
			Title:     sess.Title,
			Type:      sess.Type,
			Status:    sess.Status,
		})
	}

	sort.SliceStable(entries, func(i, j int) bool {
		if !entries[i].Date.Equal(entries[j].Date) {
			return entries[i].Date.Before(entries[j].Date)
		}
		return entries[i].StartTime < entries[j].StartTime
	})

	if s.cacheEnabled {
		if payload, err := json.Marshal(entries); err == nil {
			if err := s.redis.Set(ctx, key, payload, s.cacheTTL).Err(); err != nil {
				s.logger.Warn("calendar cache write failed", zap.Error(err))
			}
		}
	}
	return entries, nil
}

// ExportMonthCSV renders the monthly view as CSV.
func (s *CalendarService) ExportMonthCSV(ctx context.Context, coachID string, year int, month time.Month) ([]byte, string, error) {
	entries, err := s.MonthView(ctx, coachID, year, month)
	if err != nil {
		return nil, "", err
	}

	dataset := export.Dataset{
		Headers: []string{"date", "start_time", "end_time", "kind", "title", "status"},
	}
	for _, entry := range entries {
		dataset.Rows = append(dataset.Rows, map[string]string{
			"date":       entry.Date.Format("2006-01-02"),
			"start_time": entry.StartTime,
			"end_time":   entry.EndTime,
			"kind":       string(entry.Kind),
			"title":      entry.Title,
			"status":     string(entry.Status),
		})
	}

	payload, err := s.csv.Render(dataset)
	if err != nil {
		return nil, "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render calendar export")
	}
	filename := fmt.Sprintf("calendar-%s-%d-%02d.csv", coachID, year, int(month))
	return payload, filename, nil
}

// InvalidateRange drops every cached month the given date span touches.
func (s *CalendarService) InvalidateRange(ctx context.Context, coachID string, from, to time.Time) {
	if !s.cacheEnabled {
		return
	}
	from = schedule.DateOnly(from)
	to = schedule.DateOnly(to)
	for cursor := time.Date(from.Year(), from.Month(), 1, 0, 0, 0, 0, time.UTC); !cursor.After(to); cursor = cursor.AddDate(0, 1, 0) {
		key := calendarKey(coachID, cursor.Year(), cursor.Month())
		if err := s.redis.Del(ctx, key).Err(); err != nil {
			s.logger.Warn("calendar cache invalidation failed", zap.String("key", key), zap.Error(err))
		}
	}
}

func calendarKey(coachID string, year int, month time.Month) string {
	return fmt.Sprintf("calendar:%s:%d-%02d", coachID, year, int(month))
}
