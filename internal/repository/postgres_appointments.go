package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"rentflow/internal/domain"
)

// PostgresAppointmentsRepository implements AppointmentsRepository.
type PostgresAppointmentsRepository struct {
	db DBTX
}

func NewPostgresAppointmentsRepository(db DBTX) *PostgresAppointmentsRepository {
	return &PostgresAppointmentsRepository{db: db}
}

var _ AppointmentsRepository = (*PostgresAppointmentsRepository)(nil)

const appointmentColumns = `appointment_id, appointment_date, COALESCE(notes, '') AS notes, tenant_id, manager_id, apartment_id, is_confirmed`

func scanAppointment(row rowScanner) (*domain.Appointment, error) {
	var a domain.Appointment
	if err := row.Scan(&a.ID, &a.Date, &a.Notes, &a.TenantID, &a.ManagerID, &a.ApartmentID, &a.Confirmed); err != nil {
		return nil, err
	}
	return &a, nil
}

func (r *PostgresAppointmentsRepository) GetAppointment(ctx context.Context, appointmentID int64) (*domain.Appointment, error) {
	a, err := scanAppointment(r.db.QueryRowContext(ctx,
		`SELECT `+appointmentColumns+` FROM appointments WHERE appointment_id = $1`, appointmentID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: appointment_id=%d", domain.ErrAppointmentNotFound, appointmentID)
		}
		return nil, fmt.Errorf("failed to get appointment: %w", err)
	}
	return a, nil
}

func (r *PostgresAppointmentsRepository) ListAppointments(ctx context.Context, filters AppointmentFilters) ([]*domain.Appointment, error) {
	where := []string{}
	args := []any{}
	argIdx := 1

	if filters.TenantID > 0 {
		where = append(where, fmt.Sprintf("tenant_id = $%d", argIdx))
		args = append(args, filters.TenantID)
		argIdx++
	}
	if filters.ManagerID > 0 {
		where = append(where, fmt.Sprintf("manager_id = $%d", argIdx))
		args = append(args, filters.ManagerID)
		argIdx++
	}

	whereClause := ""
	if len(where) > 0 {
		whereClause = "WHERE " + strings.Join(where, " AND ")
	}

	rows, err := r.db.QueryContext(ctx,
		fmt.Sprintf(`SELECT %s FROM appointments %s ORDER BY appointment_date, appointment_id`, appointmentColumns, whereClause),
		args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list appointments: %w", err)
	}
	defer rows.Close()

	appointments := []*domain.Appointment{}
	for rows.Next() {
		a, err := scanAppointment(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan appointment: %w", err)
		}
		appointments = append(appointments, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate appointments: %w", err)
	}
	return appointments, nil
}

func (r *PostgresAppointmentsRepository) CreateAppointment(ctx context.Context, appointment *domain.Appointment) (int64, error) {
	if appointment == nil {
		return 0, fmt.Errorf("appointment is required")
	}
	err := r.db.QueryRowContext(ctx,
		`INSERT INTO appointments (appointment_date, notes, tenant_id, manager_id, apartment_id, is_confirmed)
		 VALUES ($1, NULLIF($2, ''), $3, $4, $5, $6)
		 RETURNING appointment_id`,
		appointment.Date, appointment.Notes, appointment.TenantID, appointment.ManagerID,
		appointment.ApartmentID, appointment.Confirmed,
	).Scan(&appointment.ID)
	if err != nil {
		return 0, fmt.Errorf("failed to create appointment: %w", err)
	}
	return appointment.ID, nil
}

func (r *PostgresAppointmentsRepository) SetConfirmed(ctx context.Context, appointmentID int64, confirmed bool) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE appointments SET is_confirmed = $2 WHERE appointment_id = $1`, appointmentID, confirmed)
	if err != nil {
		return fmt.Errorf("failed to set appointment confirmation: %w", err)
	}
	return expectOne(res, domain.ErrAppointmentNotFound, appointmentID)
}

func (r *PostgresAppointmentsRepository) Reschedule(ctx context.Context, appointmentID int64, date time.Time) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE appointments SET appointment_date = $2, is_confirmed = FALSE WHERE appointment_id = $1`,
		appointmentID, date)
	if err != nil {
		return fmt.Errorf("failed to reschedule appointment: %w", err)
	}
	return expectOne(res, domain.ErrAppointmentNotFound, appointmentID)
}

func (r *PostgresAppointmentsRepository) DeleteAppointment(ctx context.Context, appointmentID int64) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM appointments WHERE appointment_id = $1`, appointmentID)
	if err != nil {
		return fmt.Errorf("failed to delete appointment: %w", err)
	}
	return expectOne(res, domain.ErrAppointmentNotFound, appointmentID)
}

func (r *PostgresAppointmentsRepository) DeleteByApartment(ctx context.Context, apartmentID int64) (int64, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM appointments WHERE apartment_id = $1`, apartmentID)
	if err != nil {
		return 0, fmt.Errorf("failed to delete appointments by apartment: %w", err)
	}
	return rowsAffected(res)
}

func (r *PostgresAppointmentsRepository) DeleteByProperty(ctx context.Context, propertyID int64) (int64, error) {
	res, err := r.db.ExecContext(ctx,
		`DELETE FROM appointments
		 WHERE apartment_id IN (SELECT apartment_id FROM apartments WHERE property_id = $1)`,
		propertyID)
	if err != nil {
		return 0, fmt.Errorf("failed to delete appointments by property: %w", err)
	}
	return rowsAffected(res)
}

func (r *PostgresAppointmentsRepository) CountByUser(ctx context.Context, userID int64) (int, error) {
	var n int
	if err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM appointments WHERE tenant_id = $1 OR manager_id = $1`, userID).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count appointments: %w", err)
	}
	return n, nil
}

func expectOne(res sql.Result, notFound error, id int64) error {
	n, err := rowsAffected(res)
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("%w: id=%d", notFound, id)
	}
	return nil
}
