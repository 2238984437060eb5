package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/spec-kit/helpdesk/internal/domain"
	"github.com/spec-kit/helpdesk/internal/events"
	"github.com/spec-kit/helpdesk/internal/repository"
	apperrors "github.com/spec-kit/helpdesk/pkg/util/errorutil"
)

const msgHistoryFailed = "Failed to fetch ticket history"

// HistoryService records an audit entry for every ticket update and serves
// the trail to admins.
type HistoryService struct {
	dispatcher events.Dispatcher
	history    repository.TicketHistoryRepository
	tickets    repository.TicketRepository
	profiles   repository.ProfileRepository
	logger     *zap.Logger
}

// HistoryDependencies bundles collaborators for the history service.
type HistoryDependencies struct {
	Dispatcher  events.Dispatcher
	HistoryRepo repository.TicketHistoryRepository
	TicketRepo  repository.TicketRepository
	ProfileRepo repository.ProfileRepository
	Logger      *zap.Logger
}

// NewHistoryService constructs the service.
func NewHistoryService(deps HistoryDependencies) *HistoryService {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &HistoryService{
		dispatcher: deps.Dispatcher,
		history:    deps.HistoryRepo,
		tickets:    deps.TicketRepo,
		profiles:   deps.ProfileRepo,
		logger:     logger,
	}
}

// RegisterHandlers subscribes to ticket updates.
func (h *HistoryService) RegisterHandlers() {
	if h.dispatcher == nil {
		return
	}
	h.dispatcher.Subscribe(events.EventTicketUpdated, h.record)
}

// record runs inside the update request. A failure is reported to the
// publisher, which logs it; the update itself stands.
func (h *HistoryService) record(ctx context.Context, event events.Event) error {
	payload, ok := event.Payload.(events.TicketUpdatedPayload)
	if !ok {
		return errors.New("ticket_updated: unexpected payload")
	}
	if event.ActorID == nil {
		return errors.New("ticket_updated: missing actor")
	}

	entry := &domain.TicketHistory{
		TicketID:  event.TicketID,
		ActorID:   *event.ActorID,
		Changes:   payload.Changes,
		Dropped:   payload.Dropped,
		CreatedAt: event.Timestamp,
	}
	if err := h.history.Create(ctx, entry); err != nil {
		return fmt.Errorf("record history for ticket %s: %w", event.TicketID, err)
	}
	if len(entry.Dropped) > 0 {
		h.logger.Debug("history recorded dropped fields",
			zap.String("ticket_id", entry.TicketID),
			zap.Strings("dropped", entry.Dropped))
	}
	return nil
}

// List returns the audit trail of one ticket, oldest first. Admin only.
func (h *HistoryService) List(ctx context.Context, callerID, ticketID string) ([]domain.TicketHistory, error) {
	caller, err := loadCallerProfile(ctx, h.profiles, callerID, msgHistoryFailed)
	if err != nil {
		return nil, err
	}
	if !caller.IsAdmin() {
		return nil, apperrors.NewForbidden("Admin role required")
	}
	if _, err := uuid.Parse(ticketID); err != nil {
		return nil, apperrors.NewNotFound("Ticket", nil)
	}
	if _, err := h.tickets.GetByID(ctx, ticketID); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFound("Ticket", nil)
		}
		return nil, apperrors.NewStorageError(msgHistoryFailed, err)
	}

	entries, err := h.history.ListByTicket(ctx, ticketID)
	if err != nil {
		return nil, apperrors.NewStorageError(msgHistoryFailed, err)
	}
	return entries, nil
}
