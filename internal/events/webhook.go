package events

import (
	"context"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"
)

// DefaultWebhookTypes alert-worthy events
var DefaultWebhookTypes = []Type{TypeJobFailed, TypeHealthDegraded, TypeVarianceDetected}

// WebhookPublisher POSTs selected events as JSON to an alert endpoint
type WebhookPublisher struct {
	httpClient *resty.Client
	url        string
	types      map[Type]bool
	logger     *zap.Logger
}

// NewWebhookPublisher types nil means DefaultWebhookTypes
func NewWebhookPublisher(url string, timeout time.Duration, types []Type, logger *zap.Logger) *WebhookPublisher {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	if types == nil {
		types = DefaultWebhookTypes
	}

	client := resty.New().
		SetTimeout(timeout).
		SetRetryCount(2).
		SetRetryWaitTime(500*time.Millisecond).
		SetRetryMaxWaitTime(2*time.Second).
		SetHeader("Content-Type", "application/json").
		SetHeader("Accept", "application/json")

	selected := make(map[Type]bool, len(types))
	for _, t := range types {
		selected[t] = true
	}

	return &WebhookPublisher{
		httpClient: client,
		url:        url,
		types:      selected,
		logger:     logger,
	}
}

// Publish ignores event types not selected for this webhook
func (p *WebhookPublisher) Publish(ctx context.Context, event Event) error {
	if !p.types[event.Type] {
		return nil
	}

	resp, err := p.httpClient.R().
		SetContext(ctx).
		SetHeader("X-Correlation-ID", event.CorrelationID).
		SetBody(event).
		Post(p.url)
	if err != nil {
		return fmt.Errorf("failed to call alert webhook: %w", err)
	}
	if resp.IsError() {
		p.logger.Error("Alert webhook returned error",
			zap.Int("status_code", resp.StatusCode()),
			zap.String("event_type", string(event.Type)),
		)
		return fmt.Errorf("alert webhook error: status %d", resp.StatusCode())
	}

	p.logger.Info("Delivered alert webhook",
		zap.String("event_type", string(event.Type)),
		zap.String("correlation_id", event.CorrelationID),
	)
	return nil
}
