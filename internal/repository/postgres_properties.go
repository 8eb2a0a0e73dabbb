package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"rentflow/internal/domain"
)

// PostgresPropertiesRepository implements PropertiesRepository.
type PostgresPropertiesRepository struct {
	db DBTX
}

func NewPostgresPropertiesRepository(db DBTX) *PostgresPropertiesRepository {
	return &PostgresPropertiesRepository{db: db}
}

var _ PropertiesRepository = (*PostgresPropertiesRepository)(nil)

const propertyColumns = `property_id, name, address, city, owner_id, version`

func scanProperty(row rowScanner) (*domain.Property, error) {
	var p domain.Property
	if err := row.Scan(&p.ID, &p.Name, &p.Address, &p.City, &p.OwnerID, &p.Version); err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *PostgresPropertiesRepository) GetProperty(ctx context.Context, propertyID int64) (*domain.Property, error) {
	p, err := scanProperty(r.db.QueryRowContext(ctx,
		`SELECT `+propertyColumns+` FROM properties WHERE property_id = $1`, propertyID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: property_id=%d", domain.ErrPropertyNotFound, propertyID)
		}
		return nil, fmt.Errorf("failed to get property: %w", err)
	}
	return p, nil
}

func (r *PostgresPropertiesRepository) ListProperties(ctx context.Context, filters PropertyFilters) ([]*domain.Property, error) {
	where := []string{}
	args := []any{}
	argIdx := 1

	if s := strings.TrimSpace(filters.Search); s != "" {
		where = append(where, fmt.Sprintf("(name ILIKE $%d OR address ILIKE $%d OR city ILIKE $%d)", argIdx, argIdx, argIdx))
		args = append(args, containsPattern(s))
		argIdx++
	}
	if filters.OwnerID > 0 {
		where = append(where, fmt.Sprintf("owner_id = $%d", argIdx))
		args = append(args, filters.OwnerID)
		argIdx++
	}

	whereClause := ""
	if len(where) > 0 {
		whereClause = "WHERE " + strings.Join(where, " AND ")
	}

	rows, err := r.db.QueryContext(ctx,
		fmt.Sprintf(`SELECT %s FROM properties %s ORDER BY property_id`, propertyColumns, whereClause), args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list properties: %w", err)
	}
	defer rows.Close()

	properties := []*domain.Property{}
	for rows.Next() {
		p, err := scanProperty(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan property: %w", err)
		}
		properties = append(properties, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate properties: %w", err)
	}
	return properties, nil
}

func (r *PostgresPropertiesRepository) CreateProperty(ctx context.Context, property *domain.Property) (int64, error) {
	if property == nil {
		return 0, fmt.Errorf("property is required")
	}
	err := r.db.QueryRowContext(ctx,
		`INSERT INTO properties (name, address, city, owner_id)
		 VALUES ($1, $2, $3, $4)
		 RETURNING property_id, version`,
		property.Name, property.Address, property.City, property.OwnerID,
	).Scan(&property.ID, &property.Version)
	if err != nil {
		if pqCode(err) == pqForeignKeyViolation {
			return 0, fmt.Errorf("%w: owner_id=%d", domain.ErrOwnerNotFound, property.OwnerID)
		}
		return 0, fmt.Errorf("failed to create property: %w", err)
	}
	return property.ID, nil
}

// UpdateProperty writes all editable columns when the stored version still
// equals expectedVersion. A row that changed or vanished yields
// domain.ErrConcurrentModification.
func (r *PostgresPropertiesRepository) UpdateProperty(ctx context.Context, property *domain.Property, expectedVersion int64) (int64, error) {
	if property == nil {
		return 0, fmt.Errorf("property is required")
	}
	var version int64
	err := r.db.QueryRowContext(ctx,
		`UPDATE properties
		 SET name = $2, address = $3, city = $4, owner_id = $5, version = version + 1
		 WHERE property_id = $1 AND version = $6
		 RETURNING version`,
		property.ID, property.Name, property.Address, property.City, property.OwnerID, expectedVersion,
	).Scan(&version)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, fmt.Errorf("%w: property_id=%d version=%d", domain.ErrConcurrentModification, property.ID, expectedVersion)
		}
		if pqCode(err) == pqForeignKeyViolation {
			return 0, fmt.Errorf("%w: owner_id=%d", domain.ErrOwnerNotFound, property.OwnerID)
		}
		return 0, fmt.Errorf("failed to update property: %w", err)
	}
	property.Version = version
	return version, nil
}

func (r *PostgresPropertiesRepository) DeleteProperty(ctx context.Context, propertyID int64) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM properties WHERE property_id = $1`, propertyID)
	if err != nil {
		return fmt.Errorf("failed to delete property: %w", err)
	}
	n, err := rowsAffected(res)
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("%w: property_id=%d", domain.ErrPropertyNotFound, propertyID)
	}
	return nil
}
