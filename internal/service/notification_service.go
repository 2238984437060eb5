package service

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/spec-kit/helpdesk/internal/config"
	"github.com/spec-kit/helpdesk/internal/events"
	"github.com/spec-kit/helpdesk/internal/notify"
	"github.com/spec-kit/helpdesk/internal/observability"
)

// NotificationService forwards new tickets to the notification relay. Each
// delivery is a single best-effort attempt that runs off the request path.
type NotificationService struct {
	dispatcher events.Dispatcher
	relay      notify.Relay
	logger     *zap.Logger
	metrics    *observability.Metrics
	timeout    time.Duration
	wg         sync.WaitGroup
}

// NewNotificationService creates the service. A nil relay disables delivery.
func NewNotificationService(dispatcher events.Dispatcher, relay notify.Relay, logger *zap.Logger, metrics *observability.Metrics, cfg config.NotificationConfig) *NotificationService {
	return &NotificationService{
		dispatcher: dispatcher,
		relay:      relay,
		logger:     logger,
		metrics:    metrics,
		timeout:    cfg.Timeout(),
	}
}

// RegisterHandlers subscribes to events.
func (n *NotificationService) RegisterHandlers() {
	if n.dispatcher == nil {
		return
	}
	n.dispatcher.Subscribe(events.EventTicketCreated, n.handleTicketCreated)
	n.dispatcher.Subscribe(events.EventTicketUpdated, n.handleTicketUpdated)
}

// Wait blocks until in-flight deliveries finish or ctx is done.
func (n *NotificationService) Wait(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		n.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (n *NotificationService) handleTicketCreated(ctx context.Context, event events.Event) error {
	payload, ok := event.Payload.(events.TicketCreatedPayload)
	if !ok {
		return errors.New("ticket_created: unexpected payload")
	}
	if n.relay == nil {
		n.logger.Debug("notification relay not configured", zap.String("ticket_id", event.TicketID))
		n.metrics.RecordNotification("skipped")
		return nil
	}

	msg := notify.TicketNotification{
		TicketID: event.TicketID,
		Title:    payload.Title,
		Email:    payload.Email,
		Name:     payload.Name,
	}

	// The request context ends with the response; the delivery must not.
	deliveryCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), n.timeout)
	n.wg.Add(1)
	go func() {
		defer n.wg.Done()
		defer cancel()
		if err := n.relay.Notify(deliveryCtx, msg); err != nil {
			n.logger.Warn("ticket notification failed", zap.String("ticket_id", msg.TicketID), zap.Error(err))
			n.metrics.RecordNotification("failed")
			return
		}
		n.logger.Info("ticket notification sent", zap.String("ticket_id", msg.TicketID))
		n.metrics.RecordNotification("sent")
	}()
	return nil
}

func (n *NotificationService) handleTicketUpdated(_ context.Context, event events.Event) error {
	n.logger.Info("TicketUpdated", zap.String("ticket_id", event.TicketID), zap.Any("payload", event.Payload))
	return nil
}
