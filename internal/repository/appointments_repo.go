package repository

import (
	"context"
	"time"

	"rentflow/internal/domain"
)

type AppointmentsRepository interface {
	GetAppointment(ctx context.Context, appointmentID int64) (*domain.Appointment, error)
	// ListAppointments orders by appointment_date, then appointment_id.
	ListAppointments(ctx context.Context, filters AppointmentFilters) ([]*domain.Appointment, error)
	CreateAppointment(ctx context.Context, appointment *domain.Appointment) (int64, error)
	SetConfirmed(ctx context.Context, appointmentID int64, confirmed bool) error
	// Reschedule moves the appointment and always clears confirmation.
	Reschedule(ctx context.Context, appointmentID int64, date time.Time) error
	DeleteAppointment(ctx context.Context, appointmentID int64) error

	// Bulk deletes used by the inventory deletion flows. Deleting an
	// empty set is not an error.
	DeleteByApartment(ctx context.Context, apartmentID int64) (int64, error)
	DeleteByProperty(ctx context.Context, propertyID int64) (int64, error)

	CountByUser(ctx context.Context, userID int64) (int, error)
}

// AppointmentFilters are ANDed; zero values are ignored.
type AppointmentFilters struct {
	TenantID  int64
	ManagerID int64
}
