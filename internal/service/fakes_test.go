package service

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/spec-kit/helpdesk/internal/domain"
	"github.com/spec-kit/helpdesk/internal/notify"
	"github.com/spec-kit/helpdesk/internal/repository"
)

var errStoreDown = errors.New("store unavailable")

func ptr[T any](v T) *T { return &v }

type fakeTicketRepo struct {
	mu      sync.Mutex
	tickets map[string]domain.Ticket
	err     error
	patches int
}

func newFakeTicketRepo() *fakeTicketRepo {
	return &fakeTicketRepo{tickets: map[string]domain.Ticket{}}
}

func (r *fakeTicketRepo) Create(_ context.Context, t *domain.Ticket) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return r.err
	}
	t.ID = uuid.NewString()
	r.tickets[t.ID] = *t
	return nil
}

func (r *fakeTicketRepo) GetByID(_ context.Context, id string) (*domain.Ticket, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return nil, r.err
	}
	t, ok := r.tickets[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	return &t, nil
}

func (r *fakeTicketRepo) List(_ context.Context, filter repository.TicketFilter) ([]domain.Ticket, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return nil, r.err
	}
	result := []domain.Ticket{}
	for _, t := range r.tickets {
		if filter.AssignedTo != nil && (t.AssignedTo == nil || *t.AssignedTo != *filter.AssignedTo) {
			continue
		}
		result = append(result, t)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].CreatedAt.After(result[j].CreatedAt) })
	return result, nil
}

func (r *fakeTicketRepo) ApplyPatch(_ context.Context, id string, patch domain.TicketPatch, now time.Time) (*domain.Ticket, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.patches++
	if r.err != nil {
		return nil, r.err
	}
	t, ok := r.tickets[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	if patch.Status != nil {
		t.Status = *patch.Status
	}
	if patch.Priority != nil {
		t.Priority = *patch.Priority
	}
	if patch.AssignedTo != nil {
		t.AssignedTo = patch.AssignedTo.ProfileID
	}
	t.UpdatedAt = now
	r.tickets[id] = t
	return &t, nil
}

func (r *fakeTicketRepo) put(t domain.Ticket) domain.Ticket {
	r.mu.Lock()
	defer r.mu.Unlock()
	if t.ID == "" {
		t.ID = uuid.NewString()
	}
	r.tickets[t.ID] = t
	return t
}

type fakeProfileRepo struct {
	profiles   map[string]domain.Profile
	identities map[string]domain.Identity
	err        error
}

func newFakeProfileRepo(profiles ...domain.Profile) *fakeProfileRepo {
	r := &fakeProfileRepo{profiles: map[string]domain.Profile{}, identities: map[string]domain.Identity{}}
	for _, p := range profiles {
		r.profiles[p.ID] = p
	}
	return r
}

func (r *fakeProfileRepo) GetByID(_ context.Context, id string) (*domain.Profile, error) {
	if r.err != nil {
		return nil, r.err
	}
	p, ok := r.profiles[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	return &p, nil
}

func (r *fakeProfileRepo) ListByRoles(_ context.Context, roles []domain.Role) ([]domain.Profile, error) {
	if r.err != nil {
		return nil, r.err
	}
	result := []domain.Profile{}
	for _, p := range r.profiles {
		for _, role := range roles {
			if p.Role == role {
				result = append(result, p)
			}
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Email < result[j].Email })
	return result, nil
}

func (r *fakeProfileRepo) CreateWithIdentity(_ context.Context, identity *domain.Identity, profile *domain.Profile) error {
	if r.err != nil {
		return r.err
	}
	identity.ID = uuid.NewString()
	identity.CreatedAt = time.Now()
	profile.ID = identity.ID
	profile.CreatedAt = identity.CreatedAt
	r.identities[identity.Email] = *identity
	r.profiles[profile.ID] = *profile
	return nil
}

type fakeIdentityRepo struct {
	byEmail map[string]domain.Identity
	err     error
}

func (r *fakeIdentityRepo) GetByID(_ context.Context, id string) (*domain.Identity, error) {
	for _, identity := range r.byEmail {
		if identity.ID == id {
			return &identity, nil
		}
	}
	return nil, pgx.ErrNoRows
}

func (r *fakeIdentityRepo) GetByEmail(_ context.Context, email string) (*domain.Identity, error) {
	if r.err != nil {
		return nil, r.err
	}
	identity, ok := r.byEmail[email]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	return &identity, nil
}

type fakeRevocations struct {
	mu      sync.Mutex
	revoked map[string]time.Time
}

func (f *fakeRevocations) Revoke(_ context.Context, id string, until time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.revoked[id] = until
	return nil
}

func (f *fakeRevocations) IsRevoked(_ context.Context, id string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	_, ok := f.revoked[id]
	return ok, nil
}

type fakeRelay struct {
	mu    sync.Mutex
	sent  []notify.TicketNotification
	err   error
	block chan struct{}
}

func (f *fakeRelay) Notify(ctx context.Context, n notify.TicketNotification) error {
	if f.block != nil {
		select {
		case <-f.block:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, n)
	return f.err
}

func (f *fakeRelay) delivered() []notify.TicketNotification {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]notify.TicketNotification{}, f.sent...)
}
