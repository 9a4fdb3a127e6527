package events

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"go.uber.org/zap"
)

// mqttClient satisfied by *common/mqtt.Client
type mqttClient interface {
	Publish(topic string, retained bool, payload []byte) error
}

// MQTTPublisher publishes each event as JSON on <prefix>/<type>.
// Health reports are retained so late subscribers see the last one.
type MQTTPublisher struct {
	client      mqttClient
	topicPrefix string
	logger      *zap.Logger
}

// NewMQTTPublisher creates an MQTT event sink
func NewMQTTPublisher(client mqttClient, topicPrefix string, logger *zap.Logger) *MQTTPublisher {
	return &MQTTPublisher{
		client:      client,
		topicPrefix: strings.TrimSuffix(topicPrefix, "/"),
		logger:      logger,
	}
}

// Topic for an event type
func (p *MQTTPublisher) Topic(eventType Type) string {
	return p.topicPrefix + "/" + string(eventType)
}

// Publish see Publisher
func (p *MQTTPublisher) Publish(_ context.Context, event Event) error {
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	topic := p.Topic(event.Type)
	if err := p.client.Publish(topic, event.Type == TypeHealthReport, data); err != nil {
		return fmt.Errorf("failed to publish event to %s: %w", topic, err)
	}

	p.logger.Debug("Published event to MQTT",
		zap.String("topic", topic),
		zap.String("event_type", string(event.Type)),
	)
	return nil
}
