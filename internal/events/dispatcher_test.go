package events

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPublishRunsAllHandlers(t *testing.T) {
	d := NewInMemoryDispatcher()
	var calls []string

	d.Subscribe(EventTicketCreated, func(context.Context, Event) error {
		calls = append(calls, "first")
		return errors.New("boom")
	})
	d.Subscribe(EventTicketCreated, func(_ context.Context, e Event) error {
		calls = append(calls, "second:"+e.TicketID)
		return nil
	})
	d.Subscribe(EventTicketUpdated, func(context.Context, Event) error {
		calls = append(calls, "other")
		return nil
	})

	err := d.Publish(context.Background(), NewEvent(EventTicketCreated, "t-1", time.Now(), nil))
	require.Error(t, err)
	assert.ErrorContains(t, err, "boom")
	assert.Equal(t, []string{"first", "second:t-1"}, calls)
}

func TestPublishWithoutSubscribers(t *testing.T) {
	event := NewEvent(EventTicketUpdated, "t-2", time.Now(), TicketUpdatedPayload{Fields: []string{"status"}})
	assert.NotEmpty(t, event.ID)
	assert.NoError(t, NewInMemoryDispatcher().Publish(context.Background(), event))
}

func TestPublishRecoversPanickingHandler(t *testing.T) {
	d := NewInMemoryDispatcher()
	recorded := false
	d.Subscribe(EventTicketUpdated, func(context.Context, Event) error {
		panic("history store exploded")
	})
	d.Subscribe(EventTicketUpdated, func(context.Context, Event) error {
		recorded = true
		return nil
	})

	err := d.Publish(context.Background(), NewEvent(EventTicketUpdated, "t-3", time.Now(), TicketUpdatedPayload{}))
	require.Error(t, err)
	assert.True(t, recorded, "later handlers still run")

	var handlerErr *HandlerError
	require.ErrorAs(t, err, &handlerErr)
	assert.Equal(t, EventTicketUpdated, handlerErr.Type)
	assert.Equal(t, "t-3", handlerErr.TicketID)
	assert.Equal(t, 0, handlerErr.Index)
	assert.ErrorContains(t, err, "panic: history store exploded")
}
