// Package policy holds the role table and row-level scoping rules.
// Everything here is pure; callers resolve the caller's role first.
package policy

import "rentflow/internal/domain"

// Caller is an already-authenticated principal.
type Caller struct {
	UserID int64
	Role   domain.Role
}

type Operation string

const (
	// identity administration
	OpListStaff  Operation = "users.list"
	OpViewUser   Operation = "users.view"
	OpCreateUser Operation = "users.create"
	OpUpdateUser Operation = "users.update"
	OpDeleteUser Operation = "users.delete"

	// inventory
	OpListProperties     Operation = "properties.list"
	OpViewProperty       Operation = "properties.view"
	OpCreateProperty     Operation = "properties.create"
	OpUpdateProperty     Operation = "properties.update"
	OpDeleteProperty     Operation = "properties.delete"
	OpListApartments     Operation = "apartments.list"
	OpCreateApartment    Operation = "apartments.create"
	OpUpdateApartment    Operation = "apartments.update"
	OpDeleteApartment    Operation = "apartments.delete"
	OpSetApartmentStatus Operation = "apartments.status"
	OpBrowseAvailable    Operation = "apartments.available"
	OpExportInventory    Operation = "inventory.export"

	// appointments
	OpBookAppointment       Operation = "appointments.book"
	OpViewAppointment       Operation = "appointments.view"
	OpConfirmAppointment    Operation = "appointments.confirm"
	OpRescheduleAppointment Operation = "appointments.reschedule"
	OpCancelAppointment     Operation = "appointments.cancel"
	OpListAppointments      Operation = "appointments.list"

	// messaging
	OpSendMessage  Operation = "messages.send"
	OpReplyMessage Operation = "messages.reply"
	OpViewMessage  Operation = "messages.view"
	OpInbox        Operation = "messages.inbox"
	OpSentMessages Operation = "messages.sent"
	OpMarkRead     Operation = "messages.read"
	OpReport       Operation = "messages.report"
	OpListReports  Operation = "messages.reports"
)

// Permission is one role's grant on an operation. AssignedOnly limits the
// grant to rows the caller participates in.
type Permission struct {
	AssignedOnly bool
}

var (
	all      = Permission{}
	assigned = Permission{AssignedOnly: true}
)

var permissions = map[Operation]map[domain.Role]Permission{
	OpListStaff:  {domain.RoleOwner: all},
	OpViewUser:   {domain.RoleOwner: all},
	OpCreateUser: {domain.RoleOwner: all},
	OpUpdateUser: {domain.RoleOwner: all},
	OpDeleteUser: {domain.RoleOwner: all},

	OpListProperties:     {domain.RoleOwner: all, domain.RoleManager: all},
	OpViewProperty:       {domain.RoleOwner: all, domain.RoleManager: all},
	OpCreateProperty:     {domain.RoleOwner: all, domain.RoleManager: all},
	OpUpdateProperty:     {domain.RoleOwner: all, domain.RoleManager: all},
	OpDeleteProperty:     {domain.RoleOwner: all, domain.RoleManager: all},
	OpListApartments:     {domain.RoleOwner: all, domain.RoleManager: all},
	OpCreateApartment:    {domain.RoleOwner: all, domain.RoleManager: all},
	OpUpdateApartment:    {domain.RoleOwner: all, domain.RoleManager: all},
	OpDeleteApartment:    {domain.RoleOwner: all, domain.RoleManager: all},
	OpSetApartmentStatus: {domain.RoleOwner: all, domain.RoleManager: all},
	OpBrowseAvailable:    {domain.RoleOwner: all, domain.RoleManager: all, domain.RoleTenant: all},
	OpExportInventory:    {domain.RoleOwner: all, domain.RoleManager: all},

	OpBookAppointment:       {domain.RoleTenant: all},
	OpViewAppointment:       {domain.RoleOwner: all, domain.RoleManager: assigned, domain.RoleTenant: assigned},
	OpConfirmAppointment:    {domain.RoleOwner: all, domain.RoleManager: assigned},
	OpRescheduleAppointment: {domain.RoleOwner: all, domain.RoleManager: assigned},
	OpCancelAppointment:     {domain.RoleOwner: all, domain.RoleManager: assigned, domain.RoleTenant: assigned},
	OpListAppointments:      {domain.RoleOwner: all, domain.RoleManager: assigned, domain.RoleTenant: assigned},

	OpSendMessage:  {domain.RoleOwner: all, domain.RoleManager: all, domain.RoleTenant: all},
	OpReplyMessage: {domain.RoleOwner: assigned, domain.RoleManager: assigned, domain.RoleTenant: assigned},
	OpViewMessage:  {domain.RoleOwner: assigned, domain.RoleManager: assigned, domain.RoleTenant: assigned},
	OpInbox:        {domain.RoleOwner: assigned, domain.RoleManager: assigned, domain.RoleTenant: assigned},
	OpSentMessages: {domain.RoleOwner: assigned, domain.RoleManager: assigned, domain.RoleTenant: assigned},
	OpMarkRead:     {domain.RoleOwner: assigned, domain.RoleManager: assigned, domain.RoleTenant: assigned},
	OpReport:       {domain.RoleManager: all},
	OpListReports:  {domain.RoleOwner: assigned},
}

// Lookup returns the grant for role on op; ok is false when the role has none.
func Lookup(role domain.Role, op Operation) (Permission, bool) {
	p, ok := permissions[op][role]
	return p, ok
}

func Authorize(role domain.Role, op Operation) bool {
	_, ok := Lookup(role, op)
	return ok
}

// Operations lists every operation in the table.
func Operations() []Operation {
	ops := make([]Operation, 0, len(permissions))
	for op := range permissions {
		ops = append(ops, op)
	}
	return ops
}

func allowedOn(c Caller, op Operation, participant func() bool) bool {
	p, ok := Lookup(c.Role, op)
	if !ok {
		return false
	}
	return !p.AssignedOnly || participant()
}

func inAppointment(c Caller, a *domain.Appointment) bool {
	switch c.Role {
	case domain.RoleManager:
		return a.ManagerID == c.UserID
	case domain.RoleTenant:
		return a.TenantID == c.UserID
	}
	return false
}

func CanSeeAppointment(c Caller, a *domain.Appointment) bool {
	return a != nil && allowedOn(c, OpViewAppointment, func() bool { return inAppointment(c, a) })
}

// CanCancelAppointment: the booking tenant, the assigned manager, or an owner.
func CanCancelAppointment(c Caller, a *domain.Appointment) bool {
	return a != nil && allowedOn(c, OpCancelAppointment, func() bool { return inAppointment(c, a) })
}

// CanManageAppointment covers confirm and reschedule.
func CanManageAppointment(c Caller, a *domain.Appointment) bool {
	return a != nil && allowedOn(c, OpConfirmAppointment, func() bool { return inAppointment(c, a) })
}

// CanSeeMessage is true for the sender and the receiver, whatever the role.
func CanSeeMessage(c Caller, m *domain.Message) bool {
	return m != nil && allowedOn(c, OpViewMessage, func() bool {
		return m.SenderID == c.UserID || m.ReceiverID == c.UserID
	})
}

// CanListFor reports whether c may list op-scoped rows belonging to userID
// (an inbox, a manager's calendar, a tenant's bookings).
func CanListFor(c Caller, op Operation, userID int64) bool {
	return allowedOn(c, op, func() bool { return c.UserID == userID })
}
