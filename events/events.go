package events

import (
	"context"
	"sync"

	"pulp/domain/entities"

	log "github.com/sirupsen/logrus"
)

// EventType represents different types of events in the system
type EventType string

const (
	EventTypeBalanceChanged     EventType = "balance_changed"
	EventTypeWindowStateChanged EventType = "window_state_changed"
	EventTypeBlessingResolved   EventType = "blessing_resolved"
	EventTypeChallengeResolved  EventType = "challenge_resolved"
	EventTypeRoundProcessed     EventType = "round_processed"
)

// Event is the base interface for all events
type Event interface {
	Type() EventType
}

// BalanceChangedEvent is emitted for every ledger entry
type BalanceChangedEvent struct {
	PlayerID        int64                    `json:"player_id"`
	TransactionID   int64                    `json:"transaction_id"`
	OldBalance      int64                    `json:"old_balance"`
	NewBalance      int64                    `json:"new_balance"`
	Amount          int64                    `json:"amount"`
	TransactionType entities.TransactionType `json:"transaction_type"`
}

func (e BalanceChangedEvent) Type() EventType {
	return EventTypeBalanceChanged
}

// WindowStateChangedEvent represents a window lifecycle transition
type WindowStateChangedEvent struct {
	WindowID  int64                 `json:"window_id"`
	OldStatus entities.WindowStatus `json:"old_status,omitempty"`
	NewStatus entities.WindowStatus `json:"new_status"`
	RoundID   *int64                `json:"round_id,omitempty"`
}

func (e WindowStateChangedEvent) Type() EventType {
	return EventTypeWindowStateChanged
}

// BlessingResolvedEvent represents a blessing reaching a terminal status
type BlessingResolvedEvent struct {
	BlessingID int64                   `json:"blessing_id"`
	PlayerID   int64                   `json:"player_id"`
	WindowID   int64                   `json:"window_id"`
	Status     entities.BlessingStatus `json:"status"`
	Payout     int64                   `json:"payout"`
}

func (e BlessingResolvedEvent) Type() EventType {
	return EventTypeBlessingResolved
}

// ChallengeResolvedEvent represents a challenge reaching a terminal status
type ChallengeResolvedEvent struct {
	ChallengeID int64                     `json:"challenge_id"`
	WindowID    int64                     `json:"window_id"`
	Status      entities.ChallengeStatus  `json:"status"`
	Outcome     entities.ChallengeOutcome `json:"outcome,omitempty"`
	WinnerID    *int64                    `json:"winner_id,omitempty"`
}

func (e ChallengeResolvedEvent) Type() EventType {
	return EventTypeChallengeResolved
}

// RoundProcessedEvent is emitted once a round's awards are paid
type RoundProcessedEvent struct {
	RoundID         int64  `json:"round_id"`
	PlayersAwarded  int    `json:"players_awarded"`
	TotalAwarded    int64  `json:"total_awarded"`
	SettledWindowID *int64 `json:"settled_window_id,omitempty"`
}

func (e RoundProcessedEvent) Type() EventType {
	return EventTypeRoundProcessed
}

// Handler is a function that handles events
type Handler func(ctx context.Context, event Event)

// Bus manages event subscriptions and dispatching
type Bus struct {
	mu       sync.RWMutex
	handlers map[EventType][]Handler
}

// NewBus creates a new event bus
func NewBus() *Bus {
	return &Bus{
		handlers: make(map[EventType][]Handler),
	}
}

// Subscribe adds a handler for a specific event type
func (b *Bus) Subscribe(eventType EventType, handler Handler) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.handlers[eventType] = append(b.handlers[eventType], handler)

	log.WithFields(log.Fields{
		"eventType":    eventType,
		"handlerCount": len(b.handlers[eventType]),
	}).Debug("Subscribed handler to event type")
}

// Emit publishes an event to all registered handlers
func (b *Bus) Emit(ctx context.Context, event Event) {
	b.mu.RLock()
	handlers := make([]Handler, len(b.handlers[event.Type()]))
	copy(handlers, b.handlers[event.Type()])
	b.mu.RUnlock()

	log.WithFields(log.Fields{
		"eventType":    event.Type(),
		"handlerCount": len(handlers),
	}).Debug("Emitting event")

	// Handlers run asynchronously so a slow subscriber never blocks a request
	for i, handler := range handlers {
		go func(h Handler, handlerIndex int) {
			defer func() {
				if r := recover(); r != nil {
					log.WithFields(log.Fields{
						"eventType":    event.Type(),
						"handlerIndex": handlerIndex,
						"panic":        r,
					}).Error("Event handler panicked")
				}
			}()
			h(ctx, event)
		}(handler, i)
	}
}

// TransactionalBus holds events raised inside a unit of work until it commits
type TransactionalBus struct {
	real    *Bus
	pending []Event
}

func NewTransactionalBus(real *Bus) *TransactionalBus {
	return &TransactionalBus{real: real}
}

// Publish stashes an event until Flush
func (b *TransactionalBus) Publish(e Event) error {
	b.pending = append(b.pending, e)
	return nil
}

// Flush is called after a successful commit
func (b *TransactionalBus) Flush() {
	log.WithFields(log.Fields{
		"pendingEventCount": len(b.pending),
	}).Debug("Flushing pending events")

	// The transaction context may already be cancelled by the time handlers run
	eventCtx := context.Background()
	for _, ev := range b.pending {
		if b.real != nil {
			b.real.Emit(eventCtx, ev)
		}
	}
	b.pending = nil
}

// Discard drops pending events after a rollback
func (b *TransactionalBus) Discard() {
	b.pending = nil
}

// Pending returns the number of events waiting for Flush
func (b *TransactionalBus) Pending() int {
	return len(b.pending)
}
