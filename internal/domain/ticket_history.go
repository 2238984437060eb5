package domain

import "time"

// TicketHistory is an immutable audit entry written for every update call,
// including calls where the caller's role let nothing through.
type TicketHistory struct {
	ID       string
	TicketID string
	ActorID  string
	// Changes maps each applied field to its new value. An unassignment is
	// recorded as a nil assigned_to.
	Changes map[string]any
	// Dropped lists fields the actor asked for but may not change.
	Dropped   []string
	CreatedAt time.Time
}
