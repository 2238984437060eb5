// Package client is a typed HTTP client for the helpdesk API, used by the
// submission and dashboard views and the helpdesk CLI.
package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/helpdesk/internal/api/dto"
)

const defaultTimeout = 15 * time.Second

// APIError is a non-2xx answer from the server carrying its error message.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("%d: %s", e.Status, e.Message)
}

// NetworkError means the server could not be reached or answered garbage.
type NetworkError struct {
	Op  string
	Err error
}

func (e *NetworkError) Error() string {
	return e.Op + ": " + e.Err.Error()
}

func (e *NetworkError) Unwrap() error { return e.Err }

// IsStatus reports whether err is an APIError with the given status.
func IsStatus(err error, status int) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.Status == status
}

// Client talks to one helpdesk server. The zero token means anonymous.
type Client struct {
	baseURL string
	token   string
	timeout time.Duration
}

// Option customizes a Client.
type Option func(*Client)

// WithToken starts the client with an existing session token.
func WithToken(token string) Option {
	return func(c *Client) { c.token = token }
}

// WithTimeout bounds every request when the context has no earlier deadline.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.timeout = d }
}

// New builds a client for baseURL, for example http://localhost:8080.
func New(baseURL string, opts ...Option) *Client {
	c := &Client{baseURL: strings.TrimRight(baseURL, "/"), timeout: defaultTimeout}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Token returns the current session token.
func (c *Client) Token() string { return c.token }

// SetToken replaces the session token.
func (c *Client) SetToken(token string) { c.token = token }

// TicketUpdate is a PATCH request. Nil fields are left out of the body;
// Unassign sends an explicit null assignee and wins over Assign.
type TicketUpdate struct {
	Status   *string
	Priority *string
	Assign   *string
	Unassign bool
}

func (u TicketUpdate) body() map[string]any {
	body := map[string]any{}
	if u.Status != nil {
		body["status"] = *u.Status
	}
	if u.Priority != nil {
		body["priority"] = *u.Priority
	}
	switch {
	case u.Unassign:
		body["assigned_to"] = nil
	case u.Assign != nil:
		body["assigned_to"] = *u.Assign
	}
	return body
}

// Login exchanges credentials for a session and keeps its token.
func (c *Client) Login(ctx context.Context, email, password string) (*dto.LoginResponse, error) {
	var out dto.LoginResponse
	agent := fiber.Post(c.url("/auth/login")).JSON(dto.LoginRequest{Email: email, Password: password})
	if err := c.do(ctx, "login", agent, &out); err != nil {
		return nil, err
	}
	c.token = out.Token
	return &out, nil
}

// Logout revokes the session and forgets the token.
func (c *Client) Logout(ctx context.Context) error {
	if err := c.do(ctx, "logout", fiber.Post(c.url("/auth/logout")), nil); err != nil {
		return err
	}
	c.token = ""
	return nil
}

// Me describes the current session.
func (c *Client) Me(ctx context.Context) (*dto.MeResponse, error) {
	var out dto.MeResponse
	if err := c.do(ctx, "me", fiber.Get(c.url("/auth/me")), &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// CreateTicket submits a ticket without a session.
func (c *Client) CreateTicket(ctx context.Context, req dto.CreateTicketRequest) (*dto.TicketResponse, error) {
	var out dto.CreateTicketResponse
	if err := c.do(ctx, "create ticket", fiber.Post(c.url("/tickets")).JSON(req), &out); err != nil {
		return nil, err
	}
	return &out.Ticket, nil
}

// ListTickets returns the tickets visible to the session, newest first.
func (c *Client) ListTickets(ctx context.Context) ([]dto.TicketResponse, error) {
	var out dto.TicketListResponse
	if err := c.do(ctx, "list tickets", fiber.Get(c.url("/tickets")), &out); err != nil {
		return nil, err
	}
	return out.Tickets, nil
}

// UpdateTicket sends a partial update.
func (c *Client) UpdateTicket(ctx context.Context, id string, update TicketUpdate) (*dto.TicketResponse, error) {
	var out dto.TicketEnvelope
	agent := fiber.Patch(c.url("/tickets/" + url.PathEscape(id))).JSON(update.body())
	if err := c.do(ctx, "update ticket", agent, &out); err != nil {
		return nil, err
	}
	return &out.Ticket, nil
}

// TicketHistory returns a ticket's audit trail, oldest first. Admin sessions only.
func (c *Client) TicketHistory(ctx context.Context, id string) ([]dto.HistoryEntryResponse, error) {
	var out dto.HistoryListResponse
	if err := c.do(ctx, "ticket history", fiber.Get(c.url("/tickets/"+url.PathEscape(id)+"/history")), &out); err != nil {
		return nil, err
	}
	return out.History, nil
}

// Profiles returns the staff roster. Admin sessions only.
func (c *Client) Profiles(ctx context.Context) ([]dto.ProfileResponse, error) {
	var out dto.ProfileListResponse
	if err := c.do(ctx, "list profiles", fiber.Get(c.url("/profiles")), &out); err != nil {
		return nil, err
	}
	return out.Profiles, nil
}

// Upload stores one file in bucket and returns its public location.
func (c *Client) Upload(ctx context.Context, bucket, fileName string, data []byte) (*dto.UploadResponse, error) {
	var out dto.UploadResponse
	agent := fiber.Post(c.url("/storage/" + url.PathEscape(bucket))).
		FileData(&fiber.FormFile{Fieldname: "file", Name: fileName, Content: data}).
		MultipartForm(nil)
	if err := c.do(ctx, "upload "+fileName, agent, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) url(path string) string {
	return c.baseURL + path
}

func (c *Client) do(ctx context.Context, op string, agent *fiber.Agent, out any) error {
	if err := ctx.Err(); err != nil {
		fiber.ReleaseAgent(agent)
		return &NetworkError{Op: op, Err: err}
	}
	if c.token != "" {
		agent.Set(fiber.HeaderAuthorization, "Bearer "+c.token)
	}
	agent.Timeout(c.effectiveTimeout(ctx))

	status, body, errs := agent.Bytes()
	if len(errs) > 0 {
		return &NetworkError{Op: op, Err: errors.Join(errs...)}
	}
	if status < 200 || status > 299 {
		return decodeError(status, body)
	}
	if out == nil || len(body) == 0 {
		return nil
	}
	if err := json.Unmarshal(body, out); err != nil {
		return &NetworkError{Op: op, Err: fmt.Errorf("decode response: %w", err)}
	}
	return nil
}

func (c *Client) effectiveTimeout(ctx context.Context) time.Duration {
	if deadline, ok := ctx.Deadline(); ok {
		if remaining := time.Until(deadline); c.timeout <= 0 || remaining < c.timeout {
			return remaining
		}
	}
	return c.timeout
}

func decodeError(status int, body []byte) error {
	var payload dto.ErrorResponse
	if err := json.Unmarshal(body, &payload); err != nil || payload.Error == "" {
		payload.Error = strings.TrimSpace(string(body))
	}
	if payload.Error == "" {
		payload.Error = fiber.NewError(status).Message
	}
	return &APIError{Status: status, Message: payload.Error}
}
