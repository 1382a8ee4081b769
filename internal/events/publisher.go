package events

import (
	"encoding/json"
	"fmt"
	"time"

	"storda-registry/internal/logger"
	"storda-registry/pkg/mqtt"

	"go.uber.org/zap"
)

// Event is one registry occurrence pushed to the mobile clients.
type Event struct {
	Type       string                 `json:"type"`
	OccurredAt time.Time              `json:"occurred_at"`
	Payload    map[string]interface{} `json:"payload,omitempty"`
}

const (
	TypeDeviceRegistered = "device.registered"
	TypeDeviceVerified   = "device.verified"
	TypeDeviceReported   = "device.reported"
	TypeDeviceRecovered  = "device.recovered"
	TypeDeviceFlagHit    = "device.blacklist_hit"

	TypeTransferInitiated = "transfer.initiated"
	TypeTransferAccepted  = "transfer.accepted"
	TypeTransferRejected  = "transfer.rejected"
	TypeTransferExpired   = "transfer.expired"
)

// Publisher pushes registry events to interested clients. Publishing is
// best-effort: a failed publish is logged, never surfaced to the caller.
type Publisher interface {
	Publish(eventType string, deviceCode string, payload map[string]interface{})
}

// MQTTPublisher publishes events on <prefix>/devices/<code>/events.
type MQTTPublisher struct {
	client *mqtt.Client
	prefix string
}

func NewMQTTPublisher(client *mqtt.Client, prefix string) *MQTTPublisher {
	return &MQTTPublisher{client: client, prefix: prefix}
}

func (p *MQTTPublisher) Publish(eventType string, deviceCode string, payload map[string]interface{}) {
	event := Event{
		Type:       eventType,
		OccurredAt: time.Now(),
		Payload:    payload,
	}

	data, err := json.Marshal(event)
	if err != nil {
		logger.Error("failed to encode event", zap.String("type", eventType), zap.Error(err))
		return
	}

	topic := fmt.Sprintf("%s/devices/%s/events", p.prefix, deviceCode)
	if err := p.client.Publish(topic, 1, false, data); err != nil {
		logger.Warn("failed to publish event",
			zap.String("type", eventType),
			zap.String("topic", topic),
			zap.Error(err),
		)
	}
}

// NopPublisher discards events. Used when no broker is configured.
type NopPublisher struct{}

func (NopPublisher) Publish(string, string, map[string]interface{}) {}
