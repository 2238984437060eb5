package domain

import "time"

// TicketStatus enumerates lifecycle states for tickets.
type TicketStatus string

const (
	TicketStatusOpen       TicketStatus = "open"
	TicketStatusAssigned   TicketStatus = "assigned"
	TicketStatusInProgress TicketStatus = "in_progress"
	TicketStatusClosed     TicketStatus = "closed"
)

// Valid reports whether the status belongs to the closed set.
func (s TicketStatus) Valid() bool {
	switch s {
	case TicketStatusOpen, TicketStatusAssigned, TicketStatusInProgress, TicketStatusClosed:
		return true
	}
	return false
}

// TicketPriority enumerates urgency.
type TicketPriority string

const (
	TicketPriorityLow    TicketPriority = "low"
	TicketPriorityMedium TicketPriority = "medium"
	TicketPriorityHigh   TicketPriority = "high"
	TicketPriorityUrgent TicketPriority = "urgent"
)

func (p TicketPriority) Valid() bool {
	switch p {
	case TicketPriorityLow, TicketPriorityMedium, TicketPriorityHigh, TicketPriorityUrgent:
		return true
	}
	return false
}

// Ticket is a support request submitted through the public intake.
type Ticket struct {
	ID          string
	Title       string
	Description string
	Name        string
	Email       string
	Status      TicketStatus
	Priority    TicketPriority
	AssignedTo  *string
	ImageURLs   []string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// TicketPatch carries the fields an update may touch. A nil pointer means
// the field is left alone; AssignedTo set with a nil target clears it.
type TicketPatch struct {
	Status     *TicketStatus
	Priority   *TicketPriority
	AssignedTo *Assignment
}

// Assignment is the new assignee for a ticket; a nil ProfileID unassigns.
type Assignment struct {
	ProfileID *string
}

// Empty reports whether the patch carries no substantive field.
func (p TicketPatch) Empty() bool {
	return p.Status == nil && p.Priority == nil && p.AssignedTo == nil
}
