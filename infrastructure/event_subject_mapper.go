package infrastructure

import (
	"fmt"

	"pulp/events"
)

// Subject names for domain events published to NATS
const (
	SubjectBalanceChanged     = "pulp.ledger.balance_changed"
	SubjectWindowStateChanged = "pulp.windows.state_changed"
	SubjectBlessingResolved   = "pulp.blessings.resolved"
	SubjectChallengeResolved  = "pulp.challenges.resolved"
	SubjectRoundProcessed     = "pulp.rounds.processed"

	// DomainEventStream captures every subject above
	DomainEventStream = "PULP_DOMAIN_EVENTS"
)

// EventSubjectMapper maps domain event types to NATS subjects
type EventSubjectMapper struct{}

// NewEventSubjectMapper creates a new event subject mapper
func NewEventSubjectMapper() *EventSubjectMapper {
	return &EventSubjectMapper{}
}

// MapEventToSubject returns the subject an event type is published on
func (m *EventSubjectMapper) MapEventToSubject(eventType events.EventType) string {
	switch eventType {
	case events.EventTypeBalanceChanged:
		return SubjectBalanceChanged
	case events.EventTypeWindowStateChanged:
		return SubjectWindowStateChanged
	case events.EventTypeBlessingResolved:
		return SubjectBlessingResolved
	case events.EventTypeChallengeResolved:
		return SubjectChallengeResolved
	case events.EventTypeRoundProcessed:
		return SubjectRoundProcessed
	default:
		return fmt.Sprintf("pulp.unknown.%s", eventType)
	}
}

// EventTypes lists every event type that is forwarded
func (m *EventSubjectMapper) EventTypes() []events.EventType {
	return []events.EventType{
		events.EventTypeBalanceChanged,
		events.EventTypeWindowStateChanged,
		events.EventTypeBlessingResolved,
		events.EventTypeChallengeResolved,
		events.EventTypeRoundProcessed,
	}
}

// GetAllSubjects returns the subjects of every forwarded event type
func (m *EventSubjectMapper) GetAllSubjects() []string {
	types := m.EventTypes()
	subjects := make([]string, 0, len(types))
	for _, t := range types {
		subjects = append(subjects, m.MapEventToSubject(t))
	}
	return subjects
}
