package events

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	commonredis "github.com/naufalrf4/backend-simonair4-sub000/common/redis"

	"go.uber.org/zap"
)

// StreamPublisher appends events to a Redis stream
type StreamPublisher struct {
	client *commonredis.Client
	stream string
	maxLen int64
	logger *zap.Logger
}

// NewStreamPublisher maxLen <= 0 leaves the stream untrimmed
func NewStreamPublisher(client *commonredis.Client, stream string, maxLen int64, logger *zap.Logger) *StreamPublisher {
	return &StreamPublisher{
		client: client,
		stream: stream,
		maxLen: maxLen,
		logger: logger,
	}
}

// Publish XADD type/device_id/correlation_id/occurred_at/payload
func (p *StreamPublisher) Publish(ctx context.Context, event Event) error {
	payload, err := json.Marshal(event.Payload)
	if err != nil {
		return fmt.Errorf("failed to marshal event payload: %w", err)
	}

	id, err := commonredis.PublishToStream(ctx, p.client, p.stream, p.maxLen, map[string]interface{}{
		"type":           string(event.Type),
		"device_id":      event.DeviceID,
		"correlation_id": event.CorrelationID,
		"occurred_at":    event.OccurredAt.Unix(),
		"payload":        payload,
	})
	if err != nil {
		return fmt.Errorf("failed to publish event to stream %s: %w", p.stream, err)
	}

	p.logger.Debug("Published event to stream",
		zap.String("stream", p.stream),
		zap.String("message_id", id),
		zap.String("event_type", string(event.Type)),
	)
	return nil
}

// Recent replays up to limit events of eventType from the stream, oldest first.
// An empty eventType matches every type; limit <= 0 returns all retained entries.
func (p *StreamPublisher) Recent(ctx context.Context, eventType Type, limit int) ([]Event, error) {
	msgs, err := commonredis.ReadRange(ctx, p.client, p.stream, "-", "+")
	if err != nil {
		return nil, fmt.Errorf("failed to read stream %s: %w", p.stream, err)
	}

	out := make([]Event, 0, len(msgs))
	for _, msg := range msgs {
		event, err := decodeStreamEvent(msg.Values)
		if err != nil {
			p.logger.Warn("Skipping malformed stream entry",
				zap.String("stream", p.stream),
				zap.String("message_id", msg.ID),
				zap.Error(err),
			)
			continue
		}
		if eventType != "" && event.Type != eventType {
			continue
		}
		out = append(out, event)
	}

	if limit > 0 && len(out) > limit {
		out = out[len(out)-limit:]
	}
	return out, nil
}

func decodeStreamEvent(values map[string]interface{}) (Event, error) {
	str := func(k string) string {
		v, _ := values[k].(string)
		return v
	}

	event := Event{
		Type:          Type(str("type")),
		DeviceID:      str("device_id"),
		CorrelationID: str("correlation_id"),
	}
	if event.Type == "" {
		return Event{}, fmt.Errorf("missing event type")
	}

	if ts := str("occurred_at"); ts != "" {
		secs, err := strconv.ParseInt(ts, 10, 64)
		if err != nil {
			return Event{}, fmt.Errorf("invalid occurred_at %q: %w", ts, err)
		}
		event.OccurredAt = time.Unix(secs, 0).UTC()
	}

	if raw := str("payload"); raw != "" && raw != "null" {
		if err := json.Unmarshal([]byte(raw), &event.Payload); err != nil {
			return Event{}, fmt.Errorf("invalid payload: %w", err)
		}
	}
	return event, nil
}
