package service

import (
	"context"
	"fmt"
	"io"
	"time"

	"rentflow/internal/domain"
	"rentflow/internal/export"
	"rentflow/internal/policy"

	"go.uber.org/zap"
)

// Portal is the single entry point for authenticated callers. It checks
// the policy table, applies row scoping and then dispatches.
type Portal struct {
	Identity     IdentityService
	Inventory    InventoryService
	Appointments AppointmentService
	Messaging    MessagingService
	logger       *zap.Logger
}

func NewPortal(identity IdentityService, inventory InventoryService, appointments AppointmentService, messaging MessagingService, logger *zap.Logger) *Portal {
	return &Portal{
		Identity:     identity,
		Inventory:    inventory,
		Appointments: appointments,
		Messaging:    messaging,
		logger:       logger,
	}
}

func (p *Portal) authorize(c policy.Caller, op policy.Operation) error {
	if !policy.Authorize(c.Role, op) {
		p.logger.Warn("Operation denied",
			zap.Int64("user_id", c.UserID),
			zap.String("role", string(c.Role)),
			zap.String("operation", string(op)))
		return fmt.Errorf("%w: role %q may not %s", domain.ErrUnauthorized, c.Role, op)
	}
	return nil
}

func (p *Portal) denyRow(c policy.Caller, op policy.Operation, id int64) error {
	p.logger.Warn("Row access denied",
		zap.Int64("user_id", c.UserID),
		zap.String("operation", string(op)),
		zap.Int64("row_id", id))
	return fmt.Errorf("%w: %s on %d", domain.ErrUnauthorized, op, id)
}

// ============================================
// users (Owner only)
// ============================================

func (p *Portal) ListStaff(ctx context.Context, c policy.Caller, search string) ([]*domain.User, error) {
	if err := p.authorize(c, policy.OpListStaff); err != nil {
		return nil, err
	}
	return p.Identity.ListStaff(ctx, search)
}

func (p *Portal) GetUser(ctx context.Context, c policy.Caller, userID int64) (*domain.User, error) {
	if err := p.authorize(c, policy.OpViewUser); err != nil {
		return nil, err
	}
	return p.Identity.GetUser(ctx, userID)
}

func (p *Portal) CreateUser(ctx context.Context, c policy.Caller, req CreateUserRequest) (*domain.User, error) {
	if err := p.authorize(c, policy.OpCreateUser); err != nil {
		return nil, err
	}
	return p.Identity.AdminCreateUser(ctx, req)
}

func (p *Portal) UpdateUser(ctx context.Context, c policy.Caller, userID int64, patch UserPatch) (*domain.User, error) {
	if err := p.authorize(c, policy.OpUpdateUser); err != nil {
		return nil, err
	}
	return p.Identity.AdminUpdateUser(ctx, userID, patch)
}

func (p *Portal) DeleteUser(ctx context.Context, c policy.Caller, userID int64) error {
	if err := p.authorize(c, policy.OpDeleteUser); err != nil {
		return err
	}
	return p.Identity.AdminDeleteUser(ctx, userID)
}

// ============================================
// inventory
// ============================================

func (p *Portal) ListProperties(ctx context.Context, c policy.Caller, filter string) ([]*domain.Property, error) {
	if err := p.authorize(c, policy.OpListProperties); err != nil {
		return nil, err
	}
	return p.Inventory.ListProperties(ctx, filter)
}

func (p *Portal) GetProperty(ctx context.Context, c policy.Caller, propertyID int64) (*domain.Property, error) {
	if err := p.authorize(c, policy.OpViewProperty); err != nil {
		return nil, err
	}
	return p.Inventory.GetProperty(ctx, propertyID)
}

func (p *Portal) CreateProperty(ctx context.Context, c policy.Caller, name, address, city string, ownerID int64) (*domain.Property, error) {
	if err := p.authorize(c, policy.OpCreateProperty); err != nil {
		return nil, err
	}
	return p.Inventory.CreateProperty(ctx, name, address, city, ownerID)
}

func (p *Portal) UpdateProperty(ctx context.Context, c policy.Caller, propertyID, version int64, patch PropertyPatch) (*domain.Property, error) {
	if err := p.authorize(c, policy.OpUpdateProperty); err != nil {
		return nil, err
	}
	return p.Inventory.UpdateProperty(ctx, propertyID, version, patch)
}

func (p *Portal) DeleteProperty(ctx context.Context, c policy.Caller, propertyID int64) error {
	if err := p.authorize(c, policy.OpDeleteProperty); err != nil {
		return err
	}
	return p.Inventory.DeleteProperty(ctx, propertyID)
}

func (p *Portal) ListApartments(ctx context.Context, c policy.Caller, propertyID *int64) ([]*domain.Apartment, error) {
	if err := p.authorize(c, policy.OpListApartments); err != nil {
		return nil, err
	}
	return p.Inventory.ListApartments(ctx, propertyID)
}

func (p *Portal) CreateApartment(ctx context.Context, c policy.Caller, number string, rent domain.Money, status domain.ApartmentStatus, propertyID int64) (*domain.Apartment, error) {
	if err := p.authorize(c, policy.OpCreateApartment); err != nil {
		return nil, err
	}
	return p.Inventory.CreateApartment(ctx, number, rent, status, propertyID)
}

func (p *Portal) UpdateApartment(ctx context.Context, c policy.Caller, apartmentID, version int64, patch ApartmentPatch) (*domain.Apartment, error) {
	if err := p.authorize(c, policy.OpUpdateApartment); err != nil {
		return nil, err
	}
	return p.Inventory.UpdateApartment(ctx, apartmentID, version, patch)
}

func (p *Portal) DeleteApartment(ctx context.Context, c policy.Caller, apartmentID int64) error {
	if err := p.authorize(c, policy.OpDeleteApartment); err != nil {
		return err
	}
	return p.Inventory.DeleteApartment(ctx, apartmentID)
}

func (p *Portal) SetApartmentStatus(ctx context.Context, c policy.Caller, apartmentID int64, status domain.ApartmentStatus) error {
	if err := p.authorize(c, policy.OpSetApartmentStatus); err != nil {
		return err
	}
	return p.Inventory.SetApartmentStatus(ctx, apartmentID, status)
}

func (p *Portal) ListAvailable(ctx context.Context, c policy.Caller, filter AvailabilityFilter) ([]*domain.Apartment, error) {
	if err := p.authorize(c, policy.OpBrowseAvailable); err != nil {
		return nil, err
	}
	return p.Inventory.ListAvailable(ctx, filter)
}

// ExportInventory writes every apartment, across all properties, as XLSX.
func (p *Portal) ExportInventory(ctx context.Context, c policy.Caller, w io.Writer) error {
	if err := p.authorize(c, policy.OpExportInventory); err != nil {
		return err
	}
	apartments, err := p.Inventory.ListApartments(ctx, nil)
	if err != nil {
		return err
	}
	if err := export.WriteInventory(w, apartments); err != nil {
		p.logger.Error("Inventory export failed", zap.Error(err))
		return err
	}
	p.logger.Info("Inventory exported", zap.Int64("user_id", c.UserID), zap.Int("apartments", len(apartments)))
	return nil
}

// ============================================
// appointments
// ============================================

// Book always books for the calling tenant.
func (p *Portal) Book(ctx context.Context, c policy.Caller, apartmentID, managerID int64, date time.Time, notes string) (*domain.Appointment, error) {
	if err := p.authorize(c, policy.OpBookAppointment); err != nil {
		return nil, err
	}
	return p.Appointments.Book(ctx, BookRequest{
		ApartmentID: apartmentID,
		TenantID:    c.UserID,
		ManagerID:   managerID,
		Date:        date,
		Notes:       notes,
	})
}

// loadAppointment fetches the row and applies the row check for op.
func (p *Portal) loadAppointment(ctx context.Context, c policy.Caller, op policy.Operation, id int64,
	allowed func(policy.Caller, *domain.Appointment) bool) (*domain.Appointment, error) {
	if err := p.authorize(c, op); err != nil {
		return nil, err
	}
	a, err := p.Appointments.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if !allowed(c, a) {
		return nil, p.denyRow(c, op, id)
	}
	return a, nil
}

func (p *Portal) GetAppointment(ctx context.Context, c policy.Caller, appointmentID int64) (*domain.Appointment, error) {
	return p.loadAppointment(ctx, c, policy.OpViewAppointment, appointmentID, policy.CanSeeAppointment)
}

func (p *Portal) ConfirmAppointment(ctx context.Context, c policy.Caller, appointmentID int64) error {
	if _, err := p.loadAppointment(ctx, c, policy.OpConfirmAppointment, appointmentID, policy.CanManageAppointment); err != nil {
		return err
	}
	return p.Appointments.Confirm(ctx, appointmentID)
}

func (p *Portal) RescheduleAppointment(ctx context.Context, c policy.Caller, appointmentID int64, newDate time.Time) error {
	if _, err := p.loadAppointment(ctx, c, policy.OpRescheduleAppointment, appointmentID, policy.CanManageAppointment); err != nil {
		return err
	}
	return p.Appointments.Reschedule(ctx, appointmentID, newDate)
}

func (p *Portal) CancelAppointment(ctx context.Context, c policy.Caller, appointmentID int64) error {
	if _, err := p.loadAppointment(ctx, c, policy.OpCancelAppointment, appointmentID, policy.CanCancelAppointment); err != nil {
		return err
	}
	return p.Appointments.Cancel(ctx, appointmentID)
}

// MyAppointments lists the caller's own calendar: a manager's assigned
// viewings or a tenant's bookings.
func (p *Portal) MyAppointments(ctx context.Context, c policy.Caller) ([]*domain.Appointment, error) {
	if err := p.authorize(c, policy.OpListAppointments); err != nil {
		return nil, err
	}
	switch c.Role {
	case domain.RoleManager:
		return p.Appointments.ListForManager(ctx, c.UserID)
	case domain.RoleTenant:
		return p.Appointments.ListForTenant(ctx, c.UserID)
	}
	return nil, fmt.Errorf("%w: role %q has no own appointments", domain.ErrValidation, c.Role)
}

func (p *Portal) AppointmentsForManager(ctx context.Context, c policy.Caller, managerID int64) ([]*domain.Appointment, error) {
	if c.Role == domain.RoleTenant || !policy.CanListFor(c, policy.OpListAppointments, managerID) {
		return nil, p.denyRow(c, policy.OpListAppointments, managerID)
	}
	return p.Appointments.ListForManager(ctx, managerID)
}

func (p *Portal) AppointmentsForTenant(ctx context.Context, c policy.Caller, tenantID int64) ([]*domain.Appointment, error) {
	if c.Role == domain.RoleManager || !policy.CanListFor(c, policy.OpListAppointments, tenantID) {
		return nil, p.denyRow(c, policy.OpListAppointments, tenantID)
	}
	return p.Appointments.ListForTenant(ctx, tenantID)
}

// ============================================
// messaging
// ============================================

func (p *Portal) SendMessage(ctx context.Context, c policy.Caller, receiverID int64, content string, propertyID *int64) (*domain.Message, error) {
	if err := p.authorize(c, policy.OpSendMessage); err != nil {
		return nil, err
	}
	return p.Messaging.Send(ctx, c.UserID, receiverID, content, propertyID)
}

func (p *Portal) Report(ctx context.Context, c policy.Caller, propertyID int64, content string) (*domain.Message, error) {
	if err := p.authorize(c, policy.OpReport); err != nil {
		return nil, err
	}
	return p.Messaging.Report(ctx, c.UserID, propertyID, content)
}

func (p *Portal) Reply(ctx context.Context, c policy.Caller, originalID int64, content string, propertyID *int64) (*domain.Message, error) {
	if err := p.authorize(c, policy.OpReplyMessage); err != nil {
		return nil, err
	}
	return p.Messaging.Reply(ctx, originalID, c.UserID, content, propertyID)
}

func (p *Portal) GetMessage(ctx context.Context, c policy.Caller, messageID int64) (*domain.Message, error) {
	if err := p.authorize(c, policy.OpViewMessage); err != nil {
		return nil, err
	}
	m, err := p.Messaging.Get(ctx, messageID)
	if err != nil {
		return nil, err
	}
	if !policy.CanSeeMessage(c, m) {
		return nil, p.denyRow(c, policy.OpViewMessage, messageID)
	}
	return m, nil
}

func (p *Portal) Inbox(ctx context.Context, c policy.Caller) ([]*domain.Message, error) {
	if err := p.authorize(c, policy.OpInbox); err != nil {
		return nil, err
	}
	return p.Messaging.InboxFor(ctx, c.UserID)
}

// Unread is the caller's inbox restricted to unread messages.
func (p *Portal) Unread(ctx context.Context, c policy.Caller) ([]*domain.Message, error) {
	if err := p.authorize(c, policy.OpInbox); err != nil {
		return nil, err
	}
	return p.Messaging.UnreadFor(ctx, c.UserID)
}

func (p *Portal) Sent(ctx context.Context, c policy.Caller) ([]*domain.Message, error) {
	if err := p.authorize(c, policy.OpSentMessages); err != nil {
		return nil, err
	}
	return p.Messaging.SentBy(ctx, c.UserID)
}

func (p *Portal) MarkRead(ctx context.Context, c policy.Caller, messageID int64) error {
	if err := p.authorize(c, policy.OpMarkRead); err != nil {
		return err
	}
	return p.Messaging.MarkRead(ctx, messageID, c.UserID)
}

func (p *Portal) Reports(ctx context.Context, c policy.Caller) ([]*domain.Message, error) {
	if err := p.authorize(c, policy.OpListReports); err != nil {
		return nil, err
	}
	return p.Messaging.ReportsFor(ctx, c.UserID)
}
