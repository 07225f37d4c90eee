package service

import (
	"context"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/roadready/coachplan-api/internal/models"
	"github.com/roadready/coachplan-api/pkg/jobs"
)

const (
	eventSessionOpened    = "session.opened"
	eventSessionCancelled = "session.cancelled"
)

// SessionEvent is the payload handed to the notification dispatcher.
type SessionEvent struct {
	Event     string `json:"event"`
	SessionID string `json:"session_id"`
	CoachID   string `json:"coach_id"`
	Title     string `json:"title"`
	Date      string `json:"date"`
	StartTime string `json:"start_time"`
}

// EventDispatcher delivers a session event to the external notification
// system. Delivery failures are retried by the queue, never surfaced to the
// request that produced the event.
type EventDispatcher interface {
	Dispatch(ctx context.Context, event SessionEvent) error
}

// LogDispatcher is the default dispatcher: it only records the event. The
// production deployment swaps in the notification gateway client.
type LogDispatcher struct {
	logger *zap.Logger
}

// NewLogDispatcher builds a logging dispatcher.
func NewLogDispatcher(logger *zap.Logger) *LogDispatcher {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LogDispatcher{logger: logger}
}

// Dispatch logs the event.
func (d *LogDispatcher) Dispatch(_ context.Context, event SessionEvent) error {
	d.logger.Info("notification dispatched",
		zap.String("event", event.Event),
		zap.String("session_id", event.SessionID),
		zap.String("coach_id", event.CoachID),
	)
	return nil
}

// NotifierService fans session lifecycle events out through the background
// queue, fire-and-forget: enqueue failures are logged and dropped.
type NotifierService struct {
	queue  *jobs.Queue
	logger *zap.Logger
}

// NewNotifierService wires the dispatcher behind a worker queue.
func NewNotifierService(dispatcher EventDispatcher, cfg jobs.QueueConfig, logger *zap.Logger) *NotifierService {
	if logger == nil {
		logger = zap.NewNop()
	}
	handler := func(ctx context.Context, job jobs.Job) error {
		event, ok := job.Payload.(SessionEvent)
		if !ok {
			return nil
		}
		return dispatcher.Dispatch(ctx, event)
	}
	return &NotifierService{
		queue:  jobs.NewQueue("notifications", handler, cfg),
		logger: logger,
	}
}

// Start launches the queue workers.
func (s *NotifierService) Start(ctx context.Context) {
	s.queue.Start(ctx)
}

// Stop drains the queue workers.
func (s *NotifierService) Stop() {
	s.queue.Stop()
}

// SessionOpened queues an opened notification.
func (s *NotifierService) SessionOpened(session models.Session) {
	s.enqueue(eventSessionOpened, session)
}

// SessionCancelled queues a cancelled notification.
func (s *NotifierService) SessionCancelled(session models.Session) {
	s.enqueue(eventSessionCancelled, session)
}

func (s *NotifierService) enqueue(event string, session models.Session) {
	job := jobs.Job{
		ID:   uuid.NewString(),
		Type: event,
		Payload: SessionEvent{
			Event:     event,
			SessionID: session.ID,
			CoachID:   session.CoachID,
			Title:     session.Title,
			Date:      session.ScheduledDate.Format("2006-01-02"),
			StartTime: session.StartTime,
		},
	}
	if err := s.queue.Enqueue(job); err != nil {
		s.logger.Warn("notification enqueue failed",
			zap.String("event", event),
			zap.String("session_id", session.ID),
			zap.Error(err),
		)
	}
}
