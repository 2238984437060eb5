// Package dashboard is the headless model behind the staff ticket list.
package dashboard

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"

	"github.com/spec-kit/helpdesk/internal/api/dto"
	"github.com/spec-kit/helpdesk/internal/client"
	"github.com/spec-kit/helpdesk/internal/domain"
)

// EntryPoint is where a signed-out user is sent.
const EntryPoint = "/"

var (
	ErrNotAuthenticated = errors.New("not signed in")
	ErrAdminOnly        = errors.New("only admins can change this")
	ErrUnknownFilter    = errors.New("unknown filter")
)

// Filter narrows the fetched tickets by status.
type Filter string

const (
	FilterAll        Filter = "all"
	FilterOpen       Filter = Filter(domain.TicketStatusOpen)
	FilterAssigned   Filter = Filter(domain.TicketStatusAssigned)
	FilterInProgress Filter = Filter(domain.TicketStatusInProgress)
	FilterClosed     Filter = Filter(domain.TicketStatusClosed)
)

// Filters lists the selectable filters in display order.
var Filters = []Filter{FilterAll, FilterOpen, FilterAssigned, FilterInProgress, FilterClosed}

// ParseFilter accepts one of Filters. The empty string means all.
func ParseFilter(s string) (Filter, error) {
	if s == "" {
		return FilterAll, nil
	}
	for _, f := range Filters {
		if string(f) == s {
			return f, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownFilter, s)
}

func (f Filter) matches(t dto.TicketResponse) bool {
	return f == FilterAll || string(t.Status) == string(f)
}

// API is what the dashboard needs from the server. *client.Client satisfies it.
type API interface {
	Me(ctx context.Context) (*dto.MeResponse, error)
	ListTickets(ctx context.Context) ([]dto.TicketResponse, error)
	Profiles(ctx context.Context) ([]dto.ProfileResponse, error)
	UpdateTicket(ctx context.Context, id string, update client.TicketUpdate) (*dto.TicketResponse, error)
	Logout(ctx context.Context) error
}

// Dashboard holds one staff session's view of the ticket list.
type Dashboard struct {
	api   API
	me    dto.MeResponse
	admin bool

	mu      sync.RWMutex
	tickets []dto.TicketResponse
	roster  []dto.ProfileResponse
	filter  Filter
}

// Open resolves the current session. Without one the caller should go to
// the login screen.
func Open(ctx context.Context, api API) (*Dashboard, error) {
	me, err := api.Me(ctx)
	if err != nil {
		if client.IsStatus(err, http.StatusUnauthorized) {
			return nil, ErrNotAuthenticated
		}
		return nil, err
	}
	return &Dashboard{
		api:    api,
		me:     *me,
		admin:  me.Profile.Role == domain.RoleAdmin,
		filter: FilterAll,
	}, nil
}

// Mount loads the tickets and, for admins, the staff roster.
func (d *Dashboard) Mount(ctx context.Context) error {
	if err := d.Reload(ctx); err != nil {
		return err
	}
	if !d.admin {
		return nil
	}
	roster, err := d.api.Profiles(ctx)
	if err != nil {
		return err
	}
	d.mu.Lock()
	d.roster = roster
	d.mu.Unlock()
	return nil
}

// Reload fetches the full ticket list again.
func (d *Dashboard) Reload(ctx context.Context) error {
	tickets, err := d.api.ListTickets(ctx)
	if err != nil {
		return err
	}
	d.mu.Lock()
	d.tickets = tickets
	d.mu.Unlock()
	return nil
}

// IsAdmin reports whether the session may change priority and assignee.
func (d *Dashboard) IsAdmin() bool { return d.admin }

// Profile is the signed-in staff member.
func (d *Dashboard) Profile() dto.ProfileResponse { return d.me.Profile }

// Title is the page heading.
func (d *Dashboard) Title() string {
	if d.admin {
		return "Admin Dashboard"
	}
	return "Agent Dashboard"
}

// SetFilter changes the filter without contacting the server.
func (d *Dashboard) SetFilter(f Filter) {
	d.mu.Lock()
	d.filter = f
	d.mu.Unlock()
}

// Filter returns the active filter.
func (d *Dashboard) Filter() Filter {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.filter
}

// Tickets returns the fetched tickets that pass the filter, newest first.
func (d *Dashboard) Tickets() []dto.TicketResponse {
	d.mu.RLock()
	defer d.mu.RUnlock()
	visible := make([]dto.TicketResponse, 0, len(d.tickets))
	for _, t := range d.tickets {
		if d.filter.matches(t) {
			visible = append(visible, t)
		}
	}
	return visible
}

// Summary is the count line under the heading.
func (d *Dashboard) Summary() string {
	return fmt.Sprintf("%d ticket(s)", len(d.Tickets()))
}

// Roster returns the staff profiles an admin can assign to.
func (d *Dashboard) Roster() []dto.ProfileResponse {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return append([]dto.ProfileResponse(nil), d.roster...)
}

// AssigneeLabel names the assignee by full name, falling back to email.
func (d *Dashboard) AssigneeLabel(t dto.TicketResponse) string {
	if t.AssignedTo == nil {
		return "Unassigned"
	}
	if *t.AssignedTo == d.me.Profile.ID {
		return label(d.me.Profile)
	}
	d.mu.RLock()
	defer d.mu.RUnlock()
	for _, p := range d.roster {
		if p.ID == *t.AssignedTo {
			return label(p)
		}
	}
	return *t.AssignedTo
}

func label(p dto.ProfileResponse) string {
	if p.FullName != nil && *p.FullName != "" {
		return *p.FullName
	}
	return p.Email
}

// UpdateStatus is available to every role.
func (d *Dashboard) UpdateStatus(ctx context.Context, ticketID, status string) error {
	return d.update(ctx, ticketID, client.TicketUpdate{Status: &status})
}

// UpdatePriority is admin only.
func (d *Dashboard) UpdatePriority(ctx context.Context, ticketID, priority string) error {
	if !d.admin {
		return ErrAdminOnly
	}
	return d.update(ctx, ticketID, client.TicketUpdate{Priority: &priority})
}

// Assign is admin only. An empty profileID unassigns the ticket.
func (d *Dashboard) Assign(ctx context.Context, ticketID, profileID string) error {
	if !d.admin {
		return ErrAdminOnly
	}
	if profileID == "" {
		return d.update(ctx, ticketID, client.TicketUpdate{Unassign: true})
	}
	return d.update(ctx, ticketID, client.TicketUpdate{Assign: &profileID})
}

// update sends the change and then reloads the whole list.
func (d *Dashboard) update(ctx context.Context, ticketID string, update client.TicketUpdate) error {
	if _, err := d.api.UpdateTicket(ctx, ticketID, update); err != nil {
		return err
	}
	return d.Reload(ctx)
}

// SignOut revokes the session and returns where to navigate next.
func (d *Dashboard) SignOut(ctx context.Context) (string, error) {
	if err := d.api.Logout(ctx); err != nil {
		return "", err
	}
	return EntryPoint, nil
}
