package repository

import (
	"context"

	"rentflow/internal/domain"
)

type ApartmentsRepository interface {
	GetApartment(ctx context.Context, apartmentID int64) (*domain.Apartment, error)
	ListApartments(ctx context.Context, filters ApartmentFilters) ([]*domain.Apartment, error)
	CreateApartment(ctx context.Context, apartment *domain.Apartment) (int64, error)
	UpdateApartment(ctx context.Context, apartment *domain.Apartment, expectedVersion int64) (int64, error)
	// SetApartmentStatus is last-write-wins; it still bumps version so
	// editors holding an older copy get a conflict.
	SetApartmentStatus(ctx context.Context, apartmentID int64, status domain.ApartmentStatus) error
	DeleteApartment(ctx context.Context, apartmentID int64) error
}

// ApartmentFilters are ANDed; nil/zero fields are ignored.
type ApartmentFilters struct {
	PropertyID *int64
	Status     domain.ApartmentStatus
	Search     string // property name or city, case-insensitive substring
	MinRent    *domain.Money
	MaxRent    *domain.Money
}
