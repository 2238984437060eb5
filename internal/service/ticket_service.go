package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/spec-kit/helpdesk/internal/config"
	"github.com/spec-kit/helpdesk/internal/domain"
	"github.com/spec-kit/helpdesk/internal/events"
	"github.com/spec-kit/helpdesk/internal/repository"
	apperrors "github.com/spec-kit/helpdesk/pkg/util/errorutil"
)

const (
	msgCreateFailed = "Failed to create ticket in database"
	msgFetchFailed  = "Failed to fetch tickets"
	msgUpdateFailed = "Failed to update ticket"
)

// TicketService coordinates ticket intake, listing and updates.
type TicketService struct {
	tickets    repository.TicketRepository
	profiles   repository.ProfileRepository
	dispatcher events.Dispatcher
	logger     *zap.Logger
	policy     config.TicketsConfig
	now        func() time.Time
}

// TicketDependencies bundles collaborators for the ticket service.
type TicketDependencies struct {
	TicketRepo  repository.TicketRepository
	ProfileRepo repository.ProfileRepository
	Dispatcher  events.Dispatcher
	Logger      *zap.Logger
	Policy      config.TicketsConfig
	// Clock defaults to time.Now.
	Clock func() time.Time
}

// TicketCreateInput describes an intake submission.
type TicketCreateInput struct {
	Name        string
	Email       string
	Title       string
	Description string
	ImageURLs   []string
}

// NewTicketService constructs the service.
func NewTicketService(deps TicketDependencies) *TicketService {
	s := &TicketService{
		tickets:    deps.TicketRepo,
		profiles:   deps.ProfileRepo,
		dispatcher: deps.Dispatcher,
		logger:     deps.Logger,
		policy:     deps.Policy,
		now:        deps.Clock,
	}
	if s.now == nil {
		s.now = time.Now
	}
	if s.logger == nil {
		s.logger = zap.NewNop()
	}
	return s
}

// CreateTicket stores a new ticket from the public intake and announces it.
func (s *TicketService) CreateTicket(ctx context.Context, input TicketCreateInput) (*domain.Ticket, error) {
	name := strings.TrimSpace(input.Name)
	email := strings.TrimSpace(input.Email)
	title := strings.TrimSpace(input.Title)
	description := strings.TrimSpace(input.Description)
	if name == "" || email == "" || title == "" || description == "" {
		return nil, apperrors.NewValidationError("All fields are required", nil)
	}

	var images []string
	for _, u := range input.ImageURLs {
		if u = strings.TrimSpace(u); u != "" {
			images = append(images, u)
		}
	}

	now := s.now().UTC()
	ticket := &domain.Ticket{
		Title:       title,
		Description: description,
		Name:        name,
		Email:       email,
		Status:      domain.TicketStatusOpen,
		Priority:    domain.TicketPriorityMedium,
		ImageURLs:   images,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.tickets.Create(ctx, ticket); err != nil {
		return nil, apperrors.NewStorageError(msgCreateFailed, err)
	}

	s.publish(ctx, events.NewEvent(events.EventTicketCreated, ticket.ID, now, events.TicketCreatedPayload{
		Title: ticket.Title,
		Email: ticket.Email,
		Name:  ticket.Name,
	}))
	return ticket, nil
}

// ListTickets returns the caller's visible tickets, newest first. Admins see
// everything; any other role sees only tickets assigned to it.
func (s *TicketService) ListTickets(ctx context.Context, callerID string) ([]domain.Ticket, error) {
	caller, err := loadCallerProfile(ctx, s.profiles, callerID, msgFetchFailed)
	if err != nil {
		return nil, err
	}

	filter := repository.TicketFilter{}
	if !caller.IsAdmin() {
		filter.AssignedTo = &caller.ID
	}
	tickets, err := s.tickets.List(ctx, filter)
	if err != nil {
		return nil, apperrors.NewStorageError(msgFetchFailed, err)
	}
	return tickets, nil
}

// UpdateTicket applies the subset of patch the caller's role permits and
// always refreshes updated_at.
func (s *TicketService) UpdateTicket(ctx context.Context, callerID, ticketID string, patch domain.TicketPatch) (*domain.Ticket, error) {
	caller, err := loadCallerProfile(ctx, s.profiles, callerID, msgUpdateFailed)
	if err != nil {
		return nil, err
	}
	if _, err := uuid.Parse(ticketID); err != nil {
		return nil, apperrors.NewNotFound("Ticket", nil)
	}

	applied, dropped := domain.FilterPatch(caller.Role, normalizePatch(patch))
	if len(dropped) > 0 {
		s.logger.Info("ignoring fields outside role",
			zap.String("profile_id", caller.ID),
			zap.String("role", string(caller.Role)),
			zap.String("ticket_id", ticketID),
			zap.Any("fields", dropped))
		if s.policy.RejectForbiddenFields {
			return nil, apperrors.NewForbidden("Not allowed to change: " + joinFields(dropped))
		}
	}

	if s.policy.AgentAssignedOnly && !caller.IsAdmin() {
		current, err := s.tickets.GetByID(ctx, ticketID)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return nil, apperrors.NewNotFound("Ticket", nil)
			}
			return nil, apperrors.NewStorageError(msgUpdateFailed, err)
		}
		if current.AssignedTo == nil || *current.AssignedTo != caller.ID {
			return nil, apperrors.NewForbidden("Ticket is not assigned to you")
		}
	}

	if err := s.validatePatch(ctx, applied); err != nil {
		return nil, err
	}

	ticket, err := s.tickets.ApplyPatch(ctx, ticketID, applied, s.now().UTC())
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFound("Ticket", nil)
		}
		return nil, apperrors.NewStorageError(msgUpdateFailed, err)
	}

	event := events.NewEvent(events.EventTicketUpdated, ticket.ID, ticket.UpdatedAt, events.TicketUpdatedPayload{
		Fields:  fieldNames(applied.Fields()),
		Changes: patchValues(applied),
		Dropped: fieldNames(dropped),
	})
	event.ActorID = &caller.ID
	s.publish(ctx, event)
	return ticket, nil
}

func (s *TicketService) validatePatch(ctx context.Context, patch domain.TicketPatch) error {
	if patch.Status != nil && !patch.Status.Valid() {
		return apperrors.NewValidationError("Invalid status", map[string]any{"status": *patch.Status})
	}
	if patch.Priority != nil && !patch.Priority.Valid() {
		return apperrors.NewValidationError("Invalid priority", map[string]any{"priority": *patch.Priority})
	}
	if patch.AssignedTo != nil && patch.AssignedTo.ProfileID != nil {
		id := *patch.AssignedTo.ProfileID
		if _, err := uuid.Parse(id); err != nil {
			return apperrors.NewValidationError("Assignee not found", nil)
		}
		if _, err := s.profiles.GetByID(ctx, id); err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return apperrors.NewValidationError("Assignee not found", nil)
			}
			return apperrors.NewStorageError(msgUpdateFailed, err)
		}
	}
	return nil
}

func (s *TicketService) publish(ctx context.Context, event events.Event) {
	if s.dispatcher == nil {
		return
	}
	if err := s.dispatcher.Publish(ctx, event); err != nil {
		s.logger.Warn("event handler failed",
			zap.String("event_type", string(event.Type)),
			zap.String("ticket_id", event.TicketID),
			zap.Error(err))
	}
}

// normalizePatch treats blank status/priority as absent and a blank assignee
// as an explicit unassignment.
func normalizePatch(patch domain.TicketPatch) domain.TicketPatch {
	if patch.Status != nil && strings.TrimSpace(string(*patch.Status)) == "" {
		patch.Status = nil
	}
	if patch.Priority != nil && strings.TrimSpace(string(*patch.Priority)) == "" {
		patch.Priority = nil
	}
	if patch.AssignedTo != nil && patch.AssignedTo.ProfileID != nil && strings.TrimSpace(*patch.AssignedTo.ProfileID) == "" {
		patch.AssignedTo = &domain.Assignment{}
	}
	return patch
}

// patchValues renders the applied patch as field name to new value.
func patchValues(patch domain.TicketPatch) map[string]any {
	values := map[string]any{}
	if patch.Status != nil {
		values[string(domain.FieldStatus)] = string(*patch.Status)
	}
	if patch.Priority != nil {
		values[string(domain.FieldPriority)] = string(*patch.Priority)
	}
	if patch.AssignedTo != nil {
		if patch.AssignedTo.ProfileID == nil {
			values[string(domain.FieldAssignedTo)] = nil
		} else {
			values[string(domain.FieldAssignedTo)] = *patch.AssignedTo.ProfileID
		}
	}
	return values
}

func fieldNames(fields []domain.TicketField) []string {
	names := make([]string, len(fields))
	for i, f := range fields {
		names[i] = string(f)
	}
	return names
}

func joinFields(fields []domain.TicketField) string {
	return strings.Join(fieldNames(fields), ", ")
}
