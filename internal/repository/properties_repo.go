package repository

import (
	"context"

	"rentflow/internal/domain"
)

// PropertiesRepository is the data access for properties.
// UpdateProperty is optimistic: it only applies when the stored version
// equals expectedVersion.
type PropertiesRepository interface {
	GetProperty(ctx context.Context, propertyID int64) (*domain.Property, error)
	ListProperties(ctx context.Context, filters PropertyFilters) ([]*domain.Property, error)
	CreateProperty(ctx context.Context, property *domain.Property) (int64, error)
	UpdateProperty(ctx context.Context, property *domain.Property, expectedVersion int64) (int64, error)
	// DeleteProperty removes the row; apartments go with it (ON DELETE CASCADE).
	DeleteProperty(ctx context.Context, propertyID int64) error
}

type PropertyFilters struct {
	Search  string // name, address or city, case-insensitive substring
	OwnerID int64  // 0 = any
}
