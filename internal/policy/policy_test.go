package policy

import (
	"testing"

	"rentflow/internal/domain"

	"github.com/stretchr/testify/assert"
)

func TestAuthorize_Table(t *testing.T) {
	tests := []struct {
		op      Operation
		owner   bool
		manager bool
		tenant  bool
	}{
		{OpCreateUser, true, false, false},
		{OpDeleteUser, true, false, false},
		{OpListStaff, true, false, false},
		{OpCreateProperty, true, true, false},
		{OpDeleteProperty, true, true, false},
		{OpSetApartmentStatus, true, true, false},
		{OpBrowseAvailable, true, true, true},
		{OpBookAppointment, false, false, true},
		{OpConfirmAppointment, true, true, false},
		{OpRescheduleAppointment, true, true, false},
		{OpCancelAppointment, true, true, true},
		{OpSendMessage, true, true, true},
		{OpReplyMessage, true, true, true},
		{OpReport, false, true, false},
		{OpListReports, true, false, false},
	}
	for _, tt := range tests {
		t.Run(string(tt.op), func(t *testing.T) {
			assert.Equal(t, tt.owner, Authorize(domain.RoleOwner, tt.op))
			assert.Equal(t, tt.manager, Authorize(domain.RoleManager, tt.op))
			assert.Equal(t, tt.tenant, Authorize(domain.RoleTenant, tt.op))
		})
	}
}

func TestAuthorize_UnknownRoleAndOperation(t *testing.T) {
	assert.False(t, Authorize(domain.Role("Admin"), OpListProperties))
	assert.False(t, Authorize(domain.RoleOwner, Operation("nope")))
	for _, op := range Operations() {
		assert.False(t, Authorize("", op), op)
	}
}

func TestCanSeeAppointment(t *testing.T) {
	a := &domain.Appointment{ID: 1, TenantID: 3, ManagerID: 2}

	assert.True(t, CanSeeAppointment(Caller{UserID: 1, Role: domain.RoleOwner}, a))
	assert.True(t, CanSeeAppointment(Caller{UserID: 2, Role: domain.RoleManager}, a))
	assert.False(t, CanSeeAppointment(Caller{UserID: 9, Role: domain.RoleManager}, a))
	assert.True(t, CanSeeAppointment(Caller{UserID: 3, Role: domain.RoleTenant}, a))
	assert.False(t, CanSeeAppointment(Caller{UserID: 2, Role: domain.RoleTenant}, a))
	assert.False(t, CanSeeAppointment(Caller{UserID: 3, Role: domain.RoleTenant}, nil))
}

func TestCanCancelAndManageAppointment(t *testing.T) {
	a := &domain.Appointment{ID: 1, TenantID: 3, ManagerID: 2}
	tenant := Caller{UserID: 3, Role: domain.RoleTenant}
	manager := Caller{UserID: 2, Role: domain.RoleManager}
	otherManager := Caller{UserID: 5, Role: domain.RoleManager}

	assert.True(t, CanCancelAppointment(tenant, a))
	assert.True(t, CanCancelAppointment(manager, a))
	assert.False(t, CanCancelAppointment(otherManager, a))

	assert.False(t, CanManageAppointment(tenant, a))
	assert.True(t, CanManageAppointment(manager, a))
	assert.False(t, CanManageAppointment(otherManager, a))
	assert.True(t, CanManageAppointment(Caller{UserID: 1, Role: domain.RoleOwner}, a))
}

func TestCanSeeMessage(t *testing.T) {
	m := &domain.Message{ID: 1, SenderID: 2, ReceiverID: 1}

	assert.True(t, CanSeeMessage(Caller{UserID: 1, Role: domain.RoleOwner}, m))
	assert.True(t, CanSeeMessage(Caller{UserID: 2, Role: domain.RoleManager}, m))
	assert.False(t, CanSeeMessage(Caller{UserID: 7, Role: domain.RoleOwner}, m))
	assert.False(t, CanSeeMessage(Caller{UserID: 3, Role: domain.RoleTenant}, m))
}

func TestCanListFor(t *testing.T) {
	owner := Caller{UserID: 1, Role: domain.RoleOwner}
	manager := Caller{UserID: 2, Role: domain.RoleManager}

	assert.True(t, CanListFor(owner, OpListAppointments, 2))
	assert.True(t, CanListFor(manager, OpListAppointments, 2))
	assert.False(t, CanListFor(manager, OpListAppointments, 3))
	assert.True(t, CanListFor(owner, OpListReports, 1))
	assert.False(t, CanListFor(owner, OpListReports, 4))
	assert.False(t, CanListFor(manager, OpListReports, 2))
}
