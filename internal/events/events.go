// Package events publishes analytics notifications to Redis Streams, MQTT and webhooks.
package events

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Type event name
type Type string

const (
	TypeVarianceDetected Type = "measurement.variance_detected"
	TypeJobFailed        Type = "job.failed"
	TypeHealthReport     Type = "health.report"
	TypeHealthDegraded   Type = "health.degraded"
)

// Event notification envelope
type Event struct {
	Type          Type                   `json:"type"`
	DeviceID      string                 `json:"device_id,omitempty"`
	CorrelationID string                 `json:"correlation_id"`
	OccurredAt    time.Time              `json:"occurred_at"`
	Payload       map[string]interface{} `json:"payload,omitempty"`
}

// NewEvent stamps a fresh correlation id and the current time
func NewEvent(eventType Type, deviceID string, payload map[string]interface{}) Event {
	return Event{
		Type:          eventType,
		DeviceID:      deviceID,
		CorrelationID: uuid.NewString(),
		OccurredAt:    time.Now().UTC(),
		Payload:       payload,
	}
}

// Publisher sink for events
type Publisher interface {
	Publish(ctx context.Context, event Event) error
}

// NopPublisher drops everything
type NopPublisher struct{}

func (NopPublisher) Publish(context.Context, Event) error { return nil }

// MultiPublisher fans out to every sink; a failing sink is logged and the rest still run
type MultiPublisher struct {
	publishers []Publisher
	logger     *zap.Logger
}

// NewMultiPublisher nil publishers are skipped
func NewMultiPublisher(logger *zap.Logger, publishers ...Publisher) *MultiPublisher {
	m := &MultiPublisher{logger: logger}
	for _, p := range publishers {
		if p != nil {
			m.publishers = append(m.publishers, p)
		}
	}
	return m
}

// Publish returns the joined sink errors
func (m *MultiPublisher) Publish(ctx context.Context, event Event) error {
	var errs []error
	for _, p := range m.publishers {
		if err := p.Publish(ctx, event); err != nil {
			m.logger.Warn("Failed to publish event",
				zap.String("event_type", string(event.Type)),
				zap.String("correlation_id", event.CorrelationID),
				zap.String("sink", fmt.Sprintf("%T", p)),
				zap.Error(err),
			)
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Len number of sinks
func (m *MultiPublisher) Len() int {
	return len(m.publishers)
}
