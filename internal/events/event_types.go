package events

import (
	"time"

	"github.com/google/uuid"
)

// EventType enumerates supported event identifiers.
type EventType string

const (
	EventTicketCreated EventType = "ticket_created"
	EventTicketUpdated EventType = "ticket_updated"
)

// Event represents a domain event emitted by services.
type Event struct {
	ID        string      `json:"id"`
	Type      EventType   `json:"type"`
	TicketID  string      `json:"ticket_id"`
	ActorID   *string     `json:"actor_id,omitempty"`
	Timestamp time.Time   `json:"timestamp"`
	Payload   interface{} `json:"payload"`
}

// NewEvent stamps an event with a fresh id.
func NewEvent(eventType EventType, ticketID string, at time.Time, payload interface{}) Event {
	return Event{
		ID:        uuid.NewString(),
		Type:      eventType,
		TicketID:  ticketID,
		Timestamp: at,
		Payload:   payload,
	}
}

// TicketCreatedPayload carries what the intake notification needs.
type TicketCreatedPayload struct {
	Title string `json:"title"`
	Email string `json:"email"`
	Name  string `json:"name"`
}

// TicketUpdatedPayload describes what one update call did. Changes holds the
// new value of every applied field; Dropped lists fields outside the actor's role.
type TicketUpdatedPayload struct {
	Fields  []string       `json:"fields"`
	Changes map[string]any `json:"changes"`
	Dropped []string       `json:"dropped,omitempty"`
}
