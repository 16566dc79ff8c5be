package service

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/timetable-api/pkg/jobs"
)

type publisherStub struct {
	mu       sync.Mutex
	failures int
	messages map[string][][]byte
	received chan struct{}
}

func newPublisherStub(failures int) *publisherStub {
	return &publisherStub{failures: failures, messages: map[string][][]byte{}, received: make(chan struct{}, 8)}
}

func (p *publisherStub) Publish(ctx context.Context, channel string, payload []byte) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.failures > 0 {
		p.failures--
		return errors.New("redis unavailable")
	}
	p.messages[channel] = append(p.messages[channel], payload)
	p.received <- struct{}{}
	return nil
}

func TestNotificationServicePublishesEvents(t *testing.T) {
	publisher := newPublisherStub(1)
	svc := NewNotificationService(publisher, NotificationConfig{
		Enabled:    true,
		Channel:    "events",
		Workers:    1,
		MaxRetries: 2,
		RetryDelay: 5 * time.Millisecond,
	}, nil)
	svc.Start(context.Background())
	defer svc.Stop()

	svc.Notify(Event{Type: EventTimetableGenerated, Payload: map[string]any{"scheduled": 3}})

	select {
	case <-publisher.received:
	case <-time.After(2 * time.Second):
		t.Fatal("event was not published")
	}

	publisher.mu.Lock()
	defer publisher.mu.Unlock()
	require.Len(t, publisher.messages["events"], 1)
	var event Event
	require.NoError(t, json.Unmarshal(publisher.messages["events"][0], &event))
	assert.Equal(t, EventTimetableGenerated, event.Type)
	assert.NotEmpty(t, event.ID)
	assert.False(t, event.OccurredAt.IsZero())
	assert.EqualValues(t, 3, event.Payload["scheduled"])
}

func TestNotificationServiceDisabledIsNoop(t *testing.T) {
	publisher := newPublisherStub(0)
	svc := NewNotificationService(publisher, NotificationConfig{Enabled: false}, nil)
	svc.Start(context.Background())
	defer svc.Stop()

	svc.Notify(Event{Type: EventLeaveSubmitted})
	assert.Equal(t, 0, svc.queue.Pending())
	assert.Empty(t, publisher.messages)

	var nilSvc *NotificationService
	assert.NotPanics(t, func() { nilSvc.Notify(Event{Type: EventLeaveSubmitted}) })
}

func TestNotificationServiceRejectsForeignPayload(t *testing.T) {
	svc := NewNotificationService(newPublisherStub(0), NotificationConfig{Enabled: true}, nil)
	err := svc.handle(context.Background(), jobs.Job{ID: "job-1", Payload: "not-an-event"})
	assert.Error(t, err)
}
