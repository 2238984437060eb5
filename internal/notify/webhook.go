// Package notify delivers new-ticket notifications to an external relay.
package notify

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/gofiber/fiber/v2"
)

// TicketNotification is the body posted to the relay for every new ticket.
type TicketNotification struct {
	TicketID string `json:"ticketId"`
	Title    string `json:"title"`
	Email    string `json:"email"`
	Name     string `json:"name"`
}

// Relay forwards ticket notifications to a downstream system.
type Relay interface {
	Notify(ctx context.Context, n TicketNotification) error
}

// WebhookRelay posts notifications as JSON to a fixed URL.
type WebhookRelay struct {
	url     string
	timeout time.Duration
}

// NewWebhookRelay builds a relay for url.
func NewWebhookRelay(url string, timeout time.Duration) *WebhookRelay {
	return &WebhookRelay{url: url, timeout: timeout}
}

// Notify performs a single delivery attempt. Any non-2xx answer is an error.
func (w *WebhookRelay) Notify(ctx context.Context, n TicketNotification) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	agent := fiber.Post(w.url).JSON(n).Timeout(effectiveTimeout(ctx, w.timeout))
	status, body, errs := agent.Bytes()
	if len(errs) > 0 {
		return fmt.Errorf("post webhook: %w", errors.Join(errs...))
	}
	if status < 200 || status > 299 {
		return fmt.Errorf("webhook answered %d: %s", status, truncate(body, 200))
	}
	return nil
}

func effectiveTimeout(ctx context.Context, fallback time.Duration) time.Duration {
	if deadline, ok := ctx.Deadline(); ok {
		if remaining := time.Until(deadline); fallback <= 0 || remaining < fallback {
			return remaining
		}
	}
	return fallback
}

func truncate(b []byte, n int) string {
	if len(b) <= n {
		return string(b)
	}
	return string(b[:n]) + "..."
}
