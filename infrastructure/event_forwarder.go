package infrastructure

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"pulp/events"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
)

// Publisher publishes raw bytes to a subject
type Publisher interface {
	Publish(ctx context.Context, subject string, data []byte) error
}

// EventEnvelope wraps a domain event for external consumers
type EventEnvelope struct {
	EventID       string          `json:"event_id"`
	EventType     string          `json:"event_type"`
	Timestamp     time.Time       `json:"timestamp"`
	SourceService string          `json:"source_service"`
	Payload       json.RawMessage `json:"payload"`
}

// EventForwarder republishes committed domain events to NATS
type EventForwarder struct {
	publisher     Publisher
	mapper        *EventSubjectMapper
	sourceService string
	now           func() time.Time
}

// NewEventForwarder creates a forwarder that publishes through publisher
func NewEventForwarder(publisher Publisher, sourceService string) *EventForwarder {
	return &EventForwarder{
		publisher:     publisher,
		mapper:        NewEventSubjectMapper(),
		sourceService: sourceService,
		now:           func() time.Time { return time.Now().UTC() },
	}
}

// SubscribeToBus registers the forwarder for every domain event type
func (f *EventForwarder) SubscribeToBus(bus *events.Bus) {
	for _, eventType := range f.mapper.EventTypes() {
		bus.Subscribe(eventType, f.handle)
	}
}

func (f *EventForwarder) handle(ctx context.Context, event events.Event) {
	if err := f.Forward(ctx, event); err != nil {
		log.WithFields(log.Fields{
			"eventType": event.Type(),
			"error":     err,
		}).Error("Failed to forward domain event")
	}
}

// Forward publishes a single event wrapped in an envelope
func (f *EventForwarder) Forward(ctx context.Context, event events.Event) error {
	data, err := f.Envelope(event)
	if err != nil {
		return err
	}

	subject := f.mapper.MapEventToSubject(event.Type())
	if err := f.publisher.Publish(ctx, subject, data); err != nil {
		// No stream bound to the subject is not worth a retry
		if strings.Contains(err.Error(), "no response from stream") {
			log.WithField("subject", subject).Debug("No stream for subject, event dropped")
			return nil
		}
		return err
	}
	return nil
}

// Envelope serializes an event with a fresh id and timestamp
func (f *EventForwarder) Envelope(event events.Event) ([]byte, error) {
	payload, err := json.Marshal(event)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal %s payload: %w", event.Type(), err)
	}

	envelope := EventEnvelope{
		EventID:       uuid.New().String(),
		EventType:     string(event.Type()),
		Timestamp:     f.now(),
		SourceService: f.sourceService,
		Payload:       payload,
	}
	data, err := json.Marshal(envelope)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal event envelope: %w", err)
	}
	return data, nil
}
