package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"rentflow/internal/domain"
)

const apartmentsNumberKey = "apartments_property_id_number_key"

// PostgresApartmentsRepository implements ApartmentsRepository. Reads join
// properties so listings carry the property name and city.
type PostgresApartmentsRepository struct {
	db DBTX
}

func NewPostgresApartmentsRepository(db DBTX) *PostgresApartmentsRepository {
	return &PostgresApartmentsRepository{db: db}
}

var _ ApartmentsRepository = (*PostgresApartmentsRepository)(nil)

const apartmentSelect = `
	SELECT a.apartment_id, a.number, a.rent, a.status, a.property_id, a.version, p.name, p.city
	FROM apartments a
	JOIN properties p ON p.property_id = a.property_id`

func scanApartment(row rowScanner) (*domain.Apartment, error) {
	var a domain.Apartment
	var status string
	if err := row.Scan(&a.ID, &a.Number, &a.Rent, &status, &a.PropertyID, &a.Version, &a.PropertyName, &a.PropertyCity); err != nil {
		return nil, err
	}
	a.Status = domain.ApartmentStatus(status)
	return &a, nil
}

func (r *PostgresApartmentsRepository) GetApartment(ctx context.Context, apartmentID int64) (*domain.Apartment, error) {
	a, err := scanApartment(r.db.QueryRowContext(ctx, apartmentSelect+` WHERE a.apartment_id = $1`, apartmentID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: apartment_id=%d", domain.ErrApartmentNotFound, apartmentID)
		}
		return nil, fmt.Errorf("failed to get apartment: %w", err)
	}
	return a, nil
}

func (r *PostgresApartmentsRepository) ListApartments(ctx context.Context, filters ApartmentFilters) ([]*domain.Apartment, error) {
	where := []string{}
	args := []any{}
	argIdx := 1

	if filters.PropertyID != nil {
		where = append(where, fmt.Sprintf("a.property_id = $%d", argIdx))
		args = append(args, *filters.PropertyID)
		argIdx++
	}
	if filters.Status != "" {
		where = append(where, fmt.Sprintf("a.status = $%d", argIdx))
		args = append(args, string(filters.Status))
		argIdx++
	}
	if s := strings.TrimSpace(filters.Search); s != "" {
		where = append(where, fmt.Sprintf("(p.name ILIKE $%d OR p.city ILIKE $%d)", argIdx, argIdx))
		args = append(args, containsPattern(s))
		argIdx++
	}
	if filters.MinRent != nil {
		where = append(where, fmt.Sprintf("a.rent >= $%d", argIdx))
		args = append(args, *filters.MinRent)
		argIdx++
	}
	if filters.MaxRent != nil {
		where = append(where, fmt.Sprintf("a.rent <= $%d", argIdx))
		args = append(args, *filters.MaxRent)
		argIdx++
	}

	whereClause := ""
	if len(where) > 0 {
		whereClause = " WHERE " + strings.Join(where, " AND ")
	}

	rows, err := r.db.QueryContext(ctx, apartmentSelect+whereClause+` ORDER BY a.apartment_id`, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list apartments: %w", err)
	}
	defer rows.Close()

	apartments := []*domain.Apartment{}
	for rows.Next() {
		a, err := scanApartment(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan apartment: %w", err)
		}
		apartments = append(apartments, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate apartments: %w", err)
	}
	return apartments, nil
}

func (r *PostgresApartmentsRepository) CreateApartment(ctx context.Context, apartment *domain.Apartment) (int64, error) {
	if apartment == nil {
		return 0, fmt.Errorf("apartment is required")
	}
	err := r.db.QueryRowContext(ctx,
		`INSERT INTO apartments (number, rent, status, property_id)
		 VALUES ($1, $2, $3, $4)
		 RETURNING apartment_id, version`,
		apartment.Number, apartment.Rent, string(apartment.Status), apartment.PropertyID,
	).Scan(&apartment.ID, &apartment.Version)
	if err != nil {
		if isUniqueViolation(err, apartmentsNumberKey) {
			return 0, fmt.Errorf("%w: number=%s property_id=%d", domain.ErrDuplicateUnitNumber, apartment.Number, apartment.PropertyID)
		}
		if pqCode(err) == pqForeignKeyViolation {
			return 0, fmt.Errorf("%w: property_id=%d", domain.ErrPropertyNotFound, apartment.PropertyID)
		}
		return 0, fmt.Errorf("failed to create apartment: %w", err)
	}
	return apartment.ID, nil
}

// UpdateApartment never touches property_id: apartments are not transferable.
func (r *PostgresApartmentsRepository) UpdateApartment(ctx context.Context, apartment *domain.Apartment, expectedVersion int64) (int64, error) {
	if apartment == nil {
		return 0, fmt.Errorf("apartment is required")
	}
	var version int64
	err := r.db.QueryRowContext(ctx,
		`UPDATE apartments
		 SET number = $2, rent = $3, status = $4, version = version + 1
		 WHERE apartment_id = $1 AND version = $5
		 RETURNING version`,
		apartment.ID, apartment.Number, apartment.Rent, string(apartment.Status), expectedVersion,
	).Scan(&version)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, fmt.Errorf("%w: apartment_id=%d version=%d", domain.ErrConcurrentModification, apartment.ID, expectedVersion)
		}
		if isUniqueViolation(err, apartmentsNumberKey) {
			return 0, fmt.Errorf("%w: number=%s", domain.ErrDuplicateUnitNumber, apartment.Number)
		}
		return 0, fmt.Errorf("failed to update apartment: %w", err)
	}
	apartment.Version = version
	return version, nil
}

func (r *PostgresApartmentsRepository) SetApartmentStatus(ctx context.Context, apartmentID int64, status domain.ApartmentStatus) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE apartments SET status = $2, version = version + 1 WHERE apartment_id = $1`,
		apartmentID, string(status),
	)
	if err != nil {
		return fmt.Errorf("failed to set apartment status: %w", err)
	}
	n, err := rowsAffected(res)
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("%w: apartment_id=%d", domain.ErrApartmentNotFound, apartmentID)
	}
	return nil
}

func (r *PostgresApartmentsRepository) DeleteApartment(ctx context.Context, apartmentID int64) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM apartments WHERE apartment_id = $1`, apartmentID)
	if err != nil {
		return fmt.Errorf("failed to delete apartment: %w", err)
	}
	n, err := rowsAffected(res)
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("%w: apartment_id=%d", domain.ErrApartmentNotFound, apartmentID)
	}
	return nil
}
