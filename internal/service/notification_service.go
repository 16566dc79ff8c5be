package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/noah-isme/timetable-api/pkg/jobs"
)

// Event types published after a commit.
const (
	EventTimetableGenerated   = "timetable.generated"
	EventTimetableRescheduled = "timetable.rescheduled"
	EventLeaveSubmitted       = "leave.submitted"
	EventLeaveReviewed        = "leave.reviewed"
)

// Event is a post-commit notification.
type Event struct {
	ID         string         `json:"id"`
	Type       string         `json:"type"`
	OccurredAt time.Time      `json:"occurred_at"`
	Payload    map[string]any `json:"payload,omitempty"`
}

type eventPublisher interface {
	Publish(ctx context.Context, channel string, payload []byte) error
}

// NotificationConfig tunes the notification fan-out.
type NotificationConfig struct {
	Enabled    bool
	Channel    string
	Workers    int
	MaxRetries int
	RetryDelay time.Duration
}

// NotificationService publishes events to Redis pub/sub from a background
// queue. Delivery is best effort: a full queue drops the event.
type NotificationService struct {
	publisher eventPublisher
	queue     *jobs.Queue
	cfg       NotificationConfig
	logger    *zap.Logger
	now       func() time.Time
}

// NewNotificationService constructs the service. Start must be called before
// events are delivered.
func NewNotificationService(publisher eventPublisher, cfg NotificationConfig, logger *zap.Logger) *NotificationService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.Channel == "" {
		cfg.Channel = "timetable.events"
	}
	s := &NotificationService{
		publisher: publisher,
		cfg:       cfg,
		logger:    logger,
		now:       func() time.Time { return time.Now().UTC() },
	}
	s.queue = jobs.NewQueue("notifications", s.handle, jobs.QueueConfig{
		Workers:    cfg.Workers,
		MaxRetries: cfg.MaxRetries,
		RetryDelay: cfg.RetryDelay,
		Logger:     logger,
	})
	return s
}

// Enabled reports whether events are published at all.
func (s *NotificationService) Enabled() bool {
	return s != nil && s.cfg.Enabled && s.publisher != nil
}

// Start launches the workers.
func (s *NotificationService) Start(ctx context.Context) {
	if !s.Enabled() {
		return
	}
	s.queue.Start(ctx)
}

// Stop halts the workers, dropping undelivered events.
func (s *NotificationService) Stop() {
	if s == nil {
		return
	}
	s.queue.Stop()
}

// Notify enqueues the event without blocking the caller.
func (s *NotificationService) Notify(event Event) {
	if !s.Enabled() {
		return
	}
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if event.OccurredAt.IsZero() {
		event.OccurredAt = s.now()
	}
	err := s.queue.TryEnqueue(jobs.Job{ID: event.ID, Type: event.Type, Payload: event})
	switch {
	case err == nil:
	case errors.Is(err, jobs.ErrQueueFull):
		s.logger.Warn("notification dropped, queue full", zap.String("event", event.Type), zap.String("event_id", event.ID))
	default:
		s.logger.Warn("notification not queued", zap.String("event", event.Type), zap.Error(err))
	}
}

func (s *NotificationService) handle(ctx context.Context, job jobs.Job) error {
	event, ok := job.Payload.(Event)
	if !ok {
		return fmt.Errorf("job %s carries %T, not an event", job.ID, job.Payload)
	}
	body, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("encode event %s: %w", event.ID, err)
	}
	if err := s.publisher.Publish(ctx, s.cfg.Channel, body); err != nil {
		return err
	}
	s.logger.Debug("notification published", zap.String("event", event.Type), zap.String("event_id", event.ID))
	return nil
}
