package domain

import "time"

const MaxAppointmentNotesLen = 500

const (
	AppointmentPending   = "Pending"
	AppointmentConfirmed = "Confirmed"
)

// Appointment maps the appointments table. A row exists only while the
// viewing is pending or confirmed; cancellation deletes it.
type Appointment struct {
	ID          int64     `db:"appointment_id"` // BIGSERIAL, PRIMARY KEY
	Date        time.Time `db:"appointment_date"`
	Notes       string    `db:"notes"`        // VARCHAR(500), nullable
	TenantID    int64     `db:"tenant_id"`    // FK users, ON DELETE RESTRICT
	ManagerID   int64     `db:"manager_id"`   // FK users, ON DELETE RESTRICT
	ApartmentID int64     `db:"apartment_id"` // FK apartments, ON DELETE RESTRICT
	Confirmed   bool      `db:"is_confirmed"` // NOT NULL DEFAULT FALSE
}

// State reports the scheduler state name.
func (a *Appointment) State() string {
	if a.Confirmed {
		return AppointmentConfirmed
	}
	return AppointmentPending
}
