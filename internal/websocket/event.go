package websocket

import (
	"encoding/json"
	"fmt"
	"time"
)

// EventType is the lifecycle verb of a ledger event pushed to a user's
// connected clients.
type EventType string

const (
	EventTypeCreditPaid   EventType = "credit_paid"
	EventTypeCreditFree   EventType = "credit_free"
	EventTypeDebitCreated EventType = "debit_created"
	EventTypeTipCreated   EventType = "tip_created"
	EventTypeHoldCreated  EventType = "hold_created"
	EventTypeHoldCaptured EventType = "hold_captured"
	EventTypeHoldReversed EventType = "hold_reversed"
	EventTypeHoldExtended EventType = "hold_extended"
	EventTypeHoldExpired  EventType = "hold_expired"
)

// EntityType identifies the kind of record an Event's payload carries.
type EntityType string

// EntityTypeTransaction is the only entity type the ledger ever publishes.
const EntityTypeTransaction EntityType = "transaction"

// Event is a WebSocket event message sent to clients watching a user's
// token activity. Format: { type, entity, payload, timestamp }.
type Event struct {
	Type      string      `json:"type"`      // combined type e.g. "transaction.hold_captured"
	Entity    EntityType  `json:"entity"`    // entity type e.g. "transaction"
	Payload   interface{} `json:"payload"`   // the domain.Transaction row
	Timestamp time.Time   `json:"timestamp"` // event timestamp
}

// NewEvent creates a new event with the given type, entity, and payload.
func NewEvent(eventType EventType, entityType EntityType, payload interface{}) Event {
	return Event{
		Type:      fmt.Sprintf("%s.%s", entityType, eventType),
		Entity:    entityType,
		Payload:   payload,
		Timestamp: time.Now().UTC(),
	}
}

// ToJSON serializes the event to JSON bytes.
func (e Event) ToJSON() ([]byte, error) {
	return json.Marshal(e)
}

// TransactionEvent creates a transaction.<eventType> event for payload.
func TransactionEvent(eventType EventType, payload interface{}) Event {
	return NewEvent(eventType, EntityTypeTransaction, payload)
}
