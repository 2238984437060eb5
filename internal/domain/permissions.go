package domain

// TicketField names a ticket attribute that staff may change.
type TicketField string

const (
	FieldStatus     TicketField = "status"
	FieldPriority   TicketField = "priority"
	FieldAssignedTo TicketField = "assigned_to"
)

// mutableFields is the field-level authorization table. Roles missing from
// the table may change nothing.
var mutableFields = map[Role]map[TicketField]bool{
	RoleAdmin: {FieldStatus: true, FieldPriority: true, FieldAssignedTo: true},
	RoleAgent: {FieldStatus: true},
}

// CanEdit reports whether the role may change the field.
func (r Role) CanEdit(field TicketField) bool {
	return mutableFields[r][field]
}

// FilterPatch keeps the fields the role may change and returns the names of
// the fields it removed, in a stable order.
func FilterPatch(role Role, patch TicketPatch) (TicketPatch, []TicketField) {
	var (
		applied TicketPatch
		dropped []TicketField
	)
	if patch.Status != nil {
		if role.CanEdit(FieldStatus) {
			applied.Status = patch.Status
		} else {
			dropped = append(dropped, FieldStatus)
		}
	}
	if patch.Priority != nil {
		if role.CanEdit(FieldPriority) {
			applied.Priority = patch.Priority
		} else {
			dropped = append(dropped, FieldPriority)
		}
	}
	if patch.AssignedTo != nil {
		if role.CanEdit(FieldAssignedTo) {
			applied.AssignedTo = patch.AssignedTo
		} else {
			dropped = append(dropped, FieldAssignedTo)
		}
	}
	return applied, dropped
}

// Fields lists the fields present in the patch.
func (p TicketPatch) Fields() []TicketField {
	var fields []TicketField
	if p.Status != nil {
		fields = append(fields, FieldStatus)
	}
	if p.Priority != nil {
		fields = append(fields, FieldPriority)
	}
	if p.AssignedTo != nil {
		fields = append(fields, FieldAssignedTo)
	}
	return fields
}
