package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func ptr[T any](v T) *T { return &v }

func fullPatch() TicketPatch {
	return TicketPatch{
		Status:     ptr(TicketStatusClosed),
		Priority:   ptr(TicketPriorityUrgent),
		AssignedTo: &Assignment{ProfileID: ptr("p-1")},
	}
}

func TestFilterPatchByRole(t *testing.T) {
	cases := []struct {
		role    Role
		applied []TicketField
		dropped []TicketField
	}{
		{RoleAdmin, []TicketField{FieldStatus, FieldPriority, FieldAssignedTo}, nil},
		{RoleAgent, []TicketField{FieldStatus}, []TicketField{FieldPriority, FieldAssignedTo}},
		{Role("viewer"), nil, []TicketField{FieldStatus, FieldPriority, FieldAssignedTo}},
	}
	for _, tc := range cases {
		t.Run(string(tc.role), func(t *testing.T) {
			applied, dropped := FilterPatch(tc.role, fullPatch())
			assert.Equal(t, tc.applied, applied.Fields())
			assert.Equal(t, tc.dropped, dropped)
		})
	}
}

func TestFilterPatchEmpty(t *testing.T) {
	applied, dropped := FilterPatch(RoleAgent, TicketPatch{})
	assert.True(t, applied.Empty())
	assert.Empty(t, dropped)
}

func TestEnumsValid(t *testing.T) {
	for _, s := range []TicketStatus{"open", "assigned", "in_progress", "closed"} {
		assert.True(t, s.Valid(), s)
	}
	assert.False(t, TicketStatus("resolved").Valid())
	assert.False(t, TicketStatus("OPEN").Valid())

	for _, p := range []TicketPriority{"low", "medium", "high", "urgent"} {
		assert.True(t, p.Valid(), p)
	}
	assert.False(t, TicketPriority("critical").Valid())

	assert.True(t, RoleAgent.Valid())
	assert.False(t, Role("owner").Valid())
}

func TestProfileDisplayName(t *testing.T) {
	p := &Profile{Email: "a@example.com"}
	assert.Equal(t, "a@example.com", p.DisplayName())
	p.FullName = ptr("")
	assert.Equal(t, "a@example.com", p.DisplayName())
	p.FullName = ptr("Ana Lima")
	assert.Equal(t, "Ana Lima", p.DisplayName())
	assert.False(t, p.IsAdmin())
}
