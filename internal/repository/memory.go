package repository

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/spec-kit/helpdesk/internal/domain"
)

// MemoryStore keeps tickets, profiles, identities and ticket history in
// process memory. It
// backs local runs without Postgres and the HTTP tests; it reports missing
// rows with pgx.ErrNoRows like the Postgres repositories.
type MemoryStore struct {
	mu         sync.RWMutex
	seq        int64
	tickets    map[string]memoryTicket
	profiles   map[string]domain.Profile
	identities map[string]domain.Identity
	history    map[string][]domain.TicketHistory
}

type memoryTicket struct {
	ticket domain.Ticket
	seq    int64
}

// NewMemoryStore returns an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		tickets:    make(map[string]memoryTicket),
		profiles:   make(map[string]domain.Profile),
		identities: make(map[string]domain.Identity),
		history:    make(map[string][]domain.TicketHistory),
	}
}

// Tickets returns the ticket repository view.
func (m *MemoryStore) Tickets() TicketRepository { return memoryTickets{m} }

// Profiles returns the profile repository view.
func (m *MemoryStore) Profiles() ProfileRepository { return memoryProfiles{m} }

// Identities returns the identity repository view.
func (m *MemoryStore) Identities() IdentityRepository { return memoryIdentities{m} }

// History returns the ticket history repository view.
func (m *MemoryStore) History() TicketHistoryRepository { return memoryHistory{m} }

type memoryTickets struct{ m *MemoryStore }

func (r memoryTickets) Create(_ context.Context, ticket *domain.Ticket) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	ticket.ID = uuid.NewString()
	r.m.seq++
	r.m.tickets[ticket.ID] = memoryTicket{ticket: cloneTicket(*ticket), seq: r.m.seq}
	return nil
}

func (r memoryTickets) GetByID(_ context.Context, id string) (*domain.Ticket, error) {
	r.m.mu.RLock()
	defer r.m.mu.RUnlock()
	row, ok := r.m.tickets[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	ticket := cloneTicket(row.ticket)
	return &ticket, nil
}

func (r memoryTickets) List(_ context.Context, filter TicketFilter) ([]domain.Ticket, error) {
	r.m.mu.RLock()
	rows := make([]memoryTicket, 0, len(r.m.tickets))
	for _, row := range r.m.tickets {
		if filter.AssignedTo != nil && (row.ticket.AssignedTo == nil || *row.ticket.AssignedTo != *filter.AssignedTo) {
			continue
		}
		rows = append(rows, row)
	}
	r.m.mu.RUnlock()

	sort.Slice(rows, func(i, j int) bool {
		a, b := rows[i], rows[j]
		if !a.ticket.CreatedAt.Equal(b.ticket.CreatedAt) {
			return a.ticket.CreatedAt.After(b.ticket.CreatedAt)
		}
		return a.seq > b.seq
	})

	result := make([]domain.Ticket, len(rows))
	for i, row := range rows {
		result[i] = cloneTicket(row.ticket)
	}
	return result, nil
}

func (r memoryTickets) ApplyPatch(_ context.Context, id string, patch domain.TicketPatch, now time.Time) (*domain.Ticket, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	row, ok := r.m.tickets[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	if patch.Status != nil {
		row.ticket.Status = *patch.Status
	}
	if patch.Priority != nil {
		row.ticket.Priority = *patch.Priority
	}
	if patch.AssignedTo != nil {
		row.ticket.AssignedTo = clonePtr(patch.AssignedTo.ProfileID)
	}
	row.ticket.UpdatedAt = now
	// Key by the stored id; callers may pass strings backed by reused buffers.
	r.m.tickets[row.ticket.ID] = row
	ticket := cloneTicket(row.ticket)
	return &ticket, nil
}

type memoryProfiles struct{ m *MemoryStore }

func (r memoryProfiles) GetByID(_ context.Context, id string) (*domain.Profile, error) {
	r.m.mu.RLock()
	defer r.m.mu.RUnlock()
	profile, ok := r.m.profiles[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	return &profile, nil
}

func (r memoryProfiles) ListByRoles(_ context.Context, roles []domain.Role) ([]domain.Profile, error) {
	wanted := make(map[domain.Role]bool, len(roles))
	for _, role := range roles {
		wanted[role] = true
	}

	r.m.mu.RLock()
	result := []domain.Profile{}
	for _, profile := range r.m.profiles {
		if wanted[profile.Role] {
			result = append(result, profile)
		}
	}
	r.m.mu.RUnlock()

	sort.Slice(result, func(i, j int) bool {
		if !result[i].CreatedAt.Equal(result[j].CreatedAt) {
			return result[i].CreatedAt.Before(result[j].CreatedAt)
		}
		return result[i].Email < result[j].Email
	})
	return result, nil
}

func (r memoryProfiles) CreateWithIdentity(_ context.Context, identity *domain.Identity, profile *domain.Profile) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	for _, existing := range r.m.identities {
		if strings.EqualFold(existing.Email, identity.Email) {
			return ErrDuplicateEmail
		}
	}
	now := time.Now().UTC()
	identity.ID = uuid.NewString()
	identity.CreatedAt = now
	profile.ID = identity.ID
	profile.CreatedAt = now
	r.m.identities[identity.ID] = *identity
	r.m.profiles[profile.ID] = *profile
	return nil
}

type memoryIdentities struct{ m *MemoryStore }

func (r memoryIdentities) GetByID(_ context.Context, id string) (*domain.Identity, error) {
	r.m.mu.RLock()
	defer r.m.mu.RUnlock()
	identity, ok := r.m.identities[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	return &identity, nil
}

func (r memoryIdentities) GetByEmail(_ context.Context, email string) (*domain.Identity, error) {
	r.m.mu.RLock()
	defer r.m.mu.RUnlock()
	for _, identity := range r.m.identities {
		if strings.EqualFold(identity.Email, email) {
			found := identity
			return &found, nil
		}
	}
	return nil, pgx.ErrNoRows
}

type memoryHistory struct{ m *MemoryStore }

func (r memoryHistory) Create(_ context.Context, history *domain.TicketHistory) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	if _, ok := r.m.tickets[history.TicketID]; !ok {
		return pgx.ErrNoRows
	}
	history.ID = uuid.NewString()
	key := strings.Clone(history.TicketID)
	r.m.history[key] = append(r.m.history[key], cloneHistory(*history))
	return nil
}

func (r memoryHistory) ListByTicket(_ context.Context, ticketID string) ([]domain.TicketHistory, error) {
	r.m.mu.RLock()
	defer r.m.mu.RUnlock()
	entries := r.m.history[ticketID]
	result := make([]domain.TicketHistory, len(entries))
	for i, entry := range entries {
		result[i] = cloneHistory(entry)
	}
	return result, nil
}

func cloneHistory(h domain.TicketHistory) domain.TicketHistory {
	if h.Changes != nil {
		changes := make(map[string]any, len(h.Changes))
		for k, v := range h.Changes {
			changes[k] = v
		}
		h.Changes = changes
	}
	if h.Dropped != nil {
		h.Dropped = append([]string(nil), h.Dropped...)
	}
	return h
}

func cloneTicket(t domain.Ticket) domain.Ticket {
	t.AssignedTo = clonePtr(t.AssignedTo)
	if t.ImageURLs != nil {
		t.ImageURLs = append([]string(nil), t.ImageURLs...)
	}
	return t
}

func clonePtr(s *string) *string {
	if s == nil {
		return nil
	}
	v := *s
	return &v
}
