package dto

import (
	"bytes"
	"encoding/json"
	"time"

	"github.com/spec-kit/helpdesk/internal/domain"
)

// CreateTicketRequest is the public intake payload.
type CreateTicketRequest struct {
	Name        string   `json:"name"`
	Email       string   `json:"email"`
	Title       string   `json:"title"`
	Description string   `json:"description"`
	ImageURLs   []string `json:"image_urls,omitempty"`
}

// NullableString tells an absent JSON member apart from an explicit null.
type NullableString struct {
	Set   bool
	Value *string
}

// UnmarshalJSON is only invoked when the member is present, including null.
func (n *NullableString) UnmarshalJSON(data []byte) error {
	n.Set = true
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		n.Value = nil
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	n.Value = &s
	return nil
}

// MarshalJSON writes the value or null.
func (n NullableString) MarshalJSON() ([]byte, error) {
	if n.Value == nil {
		return []byte("null"), nil
	}
	return json.Marshal(*n.Value)
}

// UpdateTicketRequest is the partial update payload. Absent members are left
// untouched; assigned_to may be null to unassign.
type UpdateTicketRequest struct {
	Status     *string        `json:"status,omitempty"`
	Priority   *string        `json:"priority,omitempty"`
	AssignedTo NullableString `json:"assigned_to"`
}

// Patch converts the request into the domain patch.
func (r UpdateTicketRequest) Patch() domain.TicketPatch {
	var patch domain.TicketPatch
	if r.Status != nil {
		status := domain.TicketStatus(*r.Status)
		patch.Status = &status
	}
	if r.Priority != nil {
		priority := domain.TicketPriority(*r.Priority)
		patch.Priority = &priority
	}
	if r.AssignedTo.Set {
		patch.AssignedTo = &domain.Assignment{ProfileID: r.AssignedTo.Value}
	}
	return patch
}

// TicketResponse is the wire shape of a ticket.
type TicketResponse struct {
	ID          string                `json:"id"`
	Title       string                `json:"title"`
	Description string                `json:"description"`
	Name        string                `json:"name"`
	Email       string                `json:"email"`
	Status      domain.TicketStatus   `json:"status"`
	Priority    domain.TicketPriority `json:"priority"`
	AssignedTo  *string               `json:"assigned_to"`
	ImageURLs   []string              `json:"image_urls"`
	CreatedAt   time.Time             `json:"created_at"`
	UpdatedAt   time.Time             `json:"updated_at"`
}

// NewTicketResponse maps a domain ticket.
func NewTicketResponse(t *domain.Ticket) TicketResponse {
	return TicketResponse{
		ID:          t.ID,
		Title:       t.Title,
		Description: t.Description,
		Name:        t.Name,
		Email:       t.Email,
		Status:      t.Status,
		Priority:    t.Priority,
		AssignedTo:  t.AssignedTo,
		ImageURLs:   t.ImageURLs,
		CreatedAt:   t.CreatedAt,
		UpdatedAt:   t.UpdatedAt,
	}
}

// NewTicketList maps tickets, never returning nil.
func NewTicketList(tickets []domain.Ticket) []TicketResponse {
	items := make([]TicketResponse, 0, len(tickets))
	for i := range tickets {
		items = append(items, NewTicketResponse(&tickets[i]))
	}
	return items
}

// CreateTicketResponse wraps the created ticket.
type CreateTicketResponse struct {
	Success bool           `json:"success"`
	Ticket  TicketResponse `json:"ticket"`
}

// TicketEnvelope wraps a single ticket.
type TicketEnvelope struct {
	Ticket TicketResponse `json:"ticket"`
}

// TicketListResponse wraps a ticket listing.
type TicketListResponse struct {
	Tickets []TicketResponse `json:"tickets"`
}

// ErrorResponse is the body of every failed request.
type ErrorResponse struct {
	Error string `json:"error"`
}

// HistoryEntryResponse is one audit entry of a ticket.
type HistoryEntryResponse struct {
	ID        string         `json:"id"`
	TicketID  string         `json:"ticket_id"`
	ActorID   string         `json:"actor_id"`
	Changes   map[string]any `json:"changes"`
	Dropped   []string       `json:"dropped"`
	CreatedAt time.Time      `json:"created_at"`
}

// HistoryListResponse wraps a ticket's audit trail.
type HistoryListResponse struct {
	History []HistoryEntryResponse `json:"history"`
}

// NewHistoryList maps audit entries, never returning nil collections.
func NewHistoryList(entries []domain.TicketHistory) []HistoryEntryResponse {
	items := make([]HistoryEntryResponse, 0, len(entries))
	for _, e := range entries {
		changes := e.Changes
		if changes == nil {
			changes = map[string]any{}
		}
		dropped := e.Dropped
		if dropped == nil {
			dropped = []string{}
		}
		items = append(items, HistoryEntryResponse{
			ID:        e.ID,
			TicketID:  e.TicketID,
			ActorID:   e.ActorID,
			Changes:   changes,
			Dropped:   dropped,
			CreatedAt: e.CreatedAt,
		})
	}
	return items
}
