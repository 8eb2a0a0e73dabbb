package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"rentflow/internal/domain"
	"rentflow/internal/events"
	"rentflow/internal/repository"

	"go.uber.org/zap"
)

// DefaultBookingLead is used when a booking request carries no date.
const DefaultBookingLead = 24 * time.Hour

// AppointmentService schedules viewings. An appointment is Pending or
// Confirmed; cancelling deletes it.
type AppointmentService interface {
	Book(ctx context.Context, req BookRequest) (*domain.Appointment, error)
	Confirm(ctx context.Context, appointmentID int64) error
	Reschedule(ctx context.Context, appointmentID int64, newDate time.Time) error
	Cancel(ctx context.Context, appointmentID int64) error
	Get(ctx context.Context, appointmentID int64) (*domain.Appointment, error)
	ListForManager(ctx context.Context, managerID int64) ([]*domain.Appointment, error)
	ListForTenant(ctx context.Context, tenantID int64) ([]*domain.Appointment, error)
}

type BookRequest struct {
	ApartmentID int64
	TenantID    int64
	ManagerID   int64
	Date        time.Time // zero means now + DefaultBookingLead
	Notes       string
}

type appointmentService struct {
	store     repository.Store
	clock     Clock
	publisher events.Publisher
	logger    *zap.Logger
}

func NewAppointmentService(store repository.Store, clock Clock, publisher events.Publisher, logger *zap.Logger) AppointmentService {
	return &appointmentService{
		store:     store,
		clock:     clock,
		publisher: publisher,
		logger:    logger,
	}
}

func (s *appointmentService) emit(ctx context.Context, t events.Type, id int64, data map[string]any) {
	events.Emit(ctx, s.publisher, s.logger, events.New(t, id, s.clock.Now(), data))
}

// participant loads userID and checks its role, reporting absence and a
// wrong role the same way.
func participant(ctx context.Context, tx repository.Repos, userID int64, role domain.Role, notFound error) error {
	u, err := tx.Users().GetUser(ctx, userID)
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			return fmt.Errorf("%w: user_id=%d", notFound, userID)
		}
		return err
	}
	if u.Role != role {
		return fmt.Errorf("%w: user %d has role %s", notFound, userID, u.Role)
	}
	return nil
}

// Book creates a Pending appointment on an Available apartment. The
// apartment's status is left alone, and overlapping bookings are allowed.
func (s *appointmentService) Book(ctx context.Context, req BookRequest) (*domain.Appointment, error) {
	if err := maxText("notes", req.Notes, domain.MaxAppointmentNotesLen); err != nil {
		return nil, err
	}
	now := s.clock.Now()
	date := req.Date
	if date.IsZero() {
		date = now.Add(DefaultBookingLead)
	}
	if date.Before(now) {
		return nil, fmt.Errorf("%w: %s", domain.ErrDateInPast, date.Format(time.RFC3339))
	}

	a := &domain.Appointment{
		Date:        date.UTC(),
		Notes:       req.Notes,
		TenantID:    req.TenantID,
		ManagerID:   req.ManagerID,
		ApartmentID: req.ApartmentID,
	}
	err := s.store.WithinTx(ctx, func(tx repository.Repos) error {
		apt, err := tx.Apartments().GetApartment(ctx, req.ApartmentID)
		if err != nil {
			return err
		}
		if apt.Status != domain.StatusAvailable {
			return fmt.Errorf("%w: apartment %d is %s", domain.ErrApartmentNotAvailable, apt.ID, apt.Status)
		}
		if err := participant(ctx, tx, req.TenantID, domain.RoleTenant, domain.ErrTenantNotFound); err != nil {
			return err
		}
		if err := participant(ctx, tx, req.ManagerID, domain.RoleManager, domain.ErrManagerNotFound); err != nil {
			return err
		}
		_, err = tx.Appointments().CreateAppointment(ctx, a)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("Appointment booked",
		zap.Int64("appointment_id", a.ID),
		zap.Int64("apartment_id", a.ApartmentID),
		zap.Int64("tenant_id", a.TenantID),
		zap.Int64("manager_id", a.ManagerID))
	s.emit(ctx, events.AppointmentBooked, a.ID, map[string]any{
		"apartment_id": a.ApartmentID, "tenant_id": a.TenantID, "manager_id": a.ManagerID,
		"date": a.Date.Format(time.RFC3339),
	})
	return a, nil
}

// Confirm is idempotent: confirming a Confirmed appointment succeeds
// without change.
func (s *appointmentService) Confirm(ctx context.Context, appointmentID int64) error {
	changed := false
	err := s.store.WithinTx(ctx, func(tx repository.Repos) error {
		a, err := tx.Appointments().GetAppointment(ctx, appointmentID)
		if err != nil {
			return err
		}
		if a.Confirmed {
			return nil
		}
		changed = true
		return tx.Appointments().SetConfirmed(ctx, appointmentID, true)
	})
	if err != nil {
		return err
	}
	if changed {
		s.logger.Info("Appointment confirmed", zap.Int64("appointment_id", appointmentID))
		s.emit(ctx, events.AppointmentConfirmed, appointmentID, nil)
	}
	return nil
}

// Reschedule moves the appointment and returns it to Pending. A date
// strictly before now is rejected and nothing changes.
func (s *appointmentService) Reschedule(ctx context.Context, appointmentID int64, newDate time.Time) error {
	now := s.clock.Now()
	err := s.store.WithinTx(ctx, func(tx repository.Repos) error {
		if _, err := tx.Appointments().GetAppointment(ctx, appointmentID); err != nil {
			return err
		}
		if newDate.Before(now) {
			return fmt.Errorf("%w: %s", domain.ErrDateInPast, newDate.Format(time.RFC3339))
		}
		return tx.Appointments().Reschedule(ctx, appointmentID, newDate.UTC())
	})
	if err != nil {
		return err
	}

	s.logger.Info("Appointment rescheduled", zap.Int64("appointment_id", appointmentID), zap.Time("date", newDate))
	s.emit(ctx, events.AppointmentRescheduled, appointmentID, map[string]any{"date": newDate.UTC().Format(time.RFC3339)})
	return nil
}

func (s *appointmentService) Cancel(ctx context.Context, appointmentID int64) error {
	if err := s.store.Appointments().DeleteAppointment(ctx, appointmentID); err != nil {
		return err
	}
	s.logger.Info("Appointment cancelled", zap.Int64("appointment_id", appointmentID))
	s.emit(ctx, events.AppointmentCancelled, appointmentID, nil)
	return nil
}

func (s *appointmentService) Get(ctx context.Context, appointmentID int64) (*domain.Appointment, error) {
	return s.store.Appointments().GetAppointment(ctx, appointmentID)
}

func (s *appointmentService) ListForManager(ctx context.Context, managerID int64) ([]*domain.Appointment, error) {
	return s.store.Appointments().ListAppointments(ctx, repository.AppointmentFilters{ManagerID: managerID})
}

func (s *appointmentService) ListForTenant(ctx context.Context, tenantID int64) ([]*domain.Appointment, error) {
	return s.store.Appointments().ListAppointments(ctx, repository.AppointmentFilters{TenantID: tenantID})
}
