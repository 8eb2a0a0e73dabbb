package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"rentflow/internal/domain"
	"rentflow/internal/events"
	"rentflow/internal/repository"

	"go.uber.org/zap"
)

// InventoryService manages properties and apartments.
type InventoryService interface {
	ListProperties(ctx context.Context, filter string) ([]*domain.Property, error)
	GetProperty(ctx context.Context, propertyID int64) (*domain.Property, error)
	CreateProperty(ctx context.Context, name, address, city string, ownerID int64) (*domain.Property, error)
	UpdateProperty(ctx context.Context, propertyID, version int64, patch PropertyPatch) (*domain.Property, error)
	DeleteProperty(ctx context.Context, propertyID int64) error

	ListApartments(ctx context.Context, propertyID *int64) ([]*domain.Apartment, error)
	GetApartment(ctx context.Context, apartmentID int64) (*domain.Apartment, error)
	CreateApartment(ctx context.Context, number string, rent domain.Money, status domain.ApartmentStatus, propertyID int64) (*domain.Apartment, error)
	UpdateApartment(ctx context.Context, apartmentID, version int64, patch ApartmentPatch) (*domain.Apartment, error)
	DeleteApartment(ctx context.Context, apartmentID int64) error
	SetApartmentStatus(ctx context.Context, apartmentID int64, status domain.ApartmentStatus) error
	ListAvailable(ctx context.Context, filter AvailabilityFilter) ([]*domain.Apartment, error)
}

type PropertyPatch struct {
	Name    *string
	Address *string
	City    *string
	OwnerID *int64
}

// ApartmentPatch has no PropertyID: apartments never move between properties.
type ApartmentPatch struct {
	Number *string
	Rent   *domain.Money
	Status *domain.ApartmentStatus
}

// AvailabilityFilter fields are optional and combined with AND.
type AvailabilityFilter struct {
	Text    string // property name or city
	MinRent *domain.Money
	MaxRent *domain.Money
}

type inventoryService struct {
	store     repository.Store
	clock     Clock
	publisher events.Publisher
	logger    *zap.Logger
}

func NewInventoryService(store repository.Store, clock Clock, publisher events.Publisher, logger *zap.Logger) InventoryService {
	return &inventoryService{
		store:     store,
		clock:     clock,
		publisher: publisher,
		logger:    logger,
	}
}

func (s *inventoryService) emit(ctx context.Context, t events.Type, id int64, data map[string]any) {
	events.Emit(ctx, s.publisher, s.logger, events.New(t, id, s.clock.Now(), data))
}

// ============================================
// properties
// ============================================

func (s *inventoryService) ListProperties(ctx context.Context, filter string) ([]*domain.Property, error) {
	return s.store.Properties().ListProperties(ctx, repository.PropertyFilters{Search: filter})
}

func (s *inventoryService) GetProperty(ctx context.Context, propertyID int64) (*domain.Property, error) {
	return s.store.Properties().GetProperty(ctx, propertyID)
}

func validateProperty(p *domain.Property) error {
	if err := requireText("name", p.Name, domain.MaxPropertyNameLen); err != nil {
		return err
	}
	if err := requireText("address", p.Address, domain.MaxPropertyAddressLen); err != nil {
		return err
	}
	return requireText("city", p.City, domain.MaxPropertyCityLen)
}

// checkOwner enforces that ownerID names a user whose role is Owner now.
func checkOwner(ctx context.Context, tx repository.Repos, ownerID int64) error {
	owner, err := tx.Users().GetUser(ctx, ownerID)
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			return fmt.Errorf("%w: owner_id=%d", domain.ErrOwnerNotFound, ownerID)
		}
		return err
	}
	if owner.Role != domain.RoleOwner {
		return fmt.Errorf("%w: user %d has role %s", domain.ErrOwnerWrongRole, ownerID, owner.Role)
	}
	return nil
}

func (s *inventoryService) CreateProperty(ctx context.Context, name, address, city string, ownerID int64) (*domain.Property, error) {
	p := &domain.Property{
		Name:    strings.TrimSpace(name),
		Address: strings.TrimSpace(address),
		City:    strings.TrimSpace(city),
		OwnerID: ownerID,
	}
	if err := validateProperty(p); err != nil {
		return nil, err
	}

	err := s.store.WithinTx(ctx, func(tx repository.Repos) error {
		if err := checkOwner(ctx, tx, ownerID); err != nil {
			return err
		}
		_, err := tx.Properties().CreateProperty(ctx, p)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("Property created", zap.Int64("property_id", p.ID), zap.Int64("owner_id", ownerID))
	s.emit(ctx, events.PropertyCreated, p.ID, map[string]any{"name": p.Name, "owner_id": ownerID})
	return p, nil
}

// UpdateProperty applies patch when the stored version still equals
// version. A property missing at load is NotFound; one changed or removed
// after load is ConcurrentModification.
func (s *inventoryService) UpdateProperty(ctx context.Context, propertyID, version int64, patch PropertyPatch) (*domain.Property, error) {
	var updated *domain.Property
	err := s.store.WithinTx(ctx, func(tx repository.Repos) error {
		p, err := tx.Properties().GetProperty(ctx, propertyID)
		if err != nil {
			return err
		}
		if p.Version != version {
			return fmt.Errorf("%w: property_id=%d has version %d, caller loaded %d",
				domain.ErrConcurrentModification, propertyID, p.Version, version)
		}

		if patch.Name != nil {
			p.Name = strings.TrimSpace(*patch.Name)
		}
		if patch.Address != nil {
			p.Address = strings.TrimSpace(*patch.Address)
		}
		if patch.City != nil {
			p.City = strings.TrimSpace(*patch.City)
		}
		if err := validateProperty(p); err != nil {
			return err
		}
		if patch.OwnerID != nil && *patch.OwnerID != p.OwnerID {
			if err := checkOwner(ctx, tx, *patch.OwnerID); err != nil {
				return err
			}
			p.OwnerID = *patch.OwnerID
		}

		if _, err := tx.Properties().UpdateProperty(ctx, p, version); err != nil {
			return err
		}
		updated = p
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("Property updated", zap.Int64("property_id", propertyID), zap.Int64("version", updated.Version))
	s.emit(ctx, events.PropertyUpdated, propertyID, map[string]any{"version": updated.Version})
	return updated, nil
}

// DeleteProperty runs three committed phases: drop appointments on the
// property's apartments, detach messages, delete the property (apartments
// cascade). Every phase is idempotent, so a failed run can be repeated.
func (s *inventoryService) DeleteProperty(ctx context.Context, propertyID int64) error {
	if _, err := s.store.Properties().GetProperty(ctx, propertyID); err != nil {
		return err
	}
	log := s.logger.With(zap.Int64("property_id", propertyID))

	var appointments, messages int64
	if err := s.store.WithinTx(ctx, func(tx repository.Repos) error {
		n, err := tx.Appointments().DeleteByProperty(ctx, propertyID)
		appointments = n
		return err
	}); err != nil {
		log.Error("Property delete failed in appointments phase", zap.Error(err))
		return fmt.Errorf("failed to delete appointments of property %d: %w", propertyID, err)
	}

	if err := s.store.WithinTx(ctx, func(tx repository.Repos) error {
		n, err := tx.Messages().ClearProperty(ctx, propertyID)
		messages = n
		return err
	}); err != nil {
		log.Error("Property delete failed in messages phase", zap.Error(err))
		return fmt.Errorf("failed to detach messages of property %d: %w", propertyID, err)
	}

	if err := s.store.WithinTx(ctx, func(tx repository.Repos) error {
		return tx.Properties().DeleteProperty(ctx, propertyID)
	}); err != nil {
		// gone already: a concurrent or earlier run finished the job
		if !errors.Is(err, domain.ErrPropertyNotFound) {
			log.Error("Property delete failed in final phase", zap.Error(err))
			return fmt.Errorf("failed to delete property %d: %w", propertyID, err)
		}
	}

	log.Info("Property deleted",
		zap.Int64("appointments_removed", appointments),
		zap.Int64("messages_detached", messages))
	s.emit(ctx, events.PropertyDeleted, propertyID, map[string]any{
		"appointments_removed": appointments,
		"messages_detached":    messages,
	})
	return nil
}

// ============================================
// apartments
// ============================================

func (s *inventoryService) ListApartments(ctx context.Context, propertyID *int64) ([]*domain.Apartment, error) {
	return s.store.Apartments().ListApartments(ctx, repository.ApartmentFilters{PropertyID: propertyID})
}

func (s *inventoryService) GetApartment(ctx context.Context, apartmentID int64) (*domain.Apartment, error) {
	return s.store.Apartments().GetApartment(ctx, apartmentID)
}

func validateApartment(a *domain.Apartment) error {
	if err := requireText("number", a.Number, domain.MaxApartmentNumberLen); err != nil {
		return err
	}
	if err := validateRent(a.Rent); err != nil {
		return err
	}
	return validateStatus(a.Status)
}

func (s *inventoryService) CreateApartment(ctx context.Context, number string, rent domain.Money, status domain.ApartmentStatus, propertyID int64) (*domain.Apartment, error) {
	a := &domain.Apartment{
		Number:     strings.TrimSpace(number),
		Rent:       rent,
		Status:     status,
		PropertyID: propertyID,
	}
	if a.Status == "" {
		a.Status = domain.StatusAvailable
	}
	if err := validateApartment(a); err != nil {
		return nil, err
	}

	err := s.store.WithinTx(ctx, func(tx repository.Repos) error {
		p, err := tx.Properties().GetProperty(ctx, propertyID)
		if err != nil {
			return err
		}
		if _, err := tx.Apartments().CreateApartment(ctx, a); err != nil {
			return err
		}
		a.PropertyName, a.PropertyCity = p.Name, p.City
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("Apartment created", zap.Int64("apartment_id", a.ID), zap.Int64("property_id", propertyID))
	s.emit(ctx, events.ApartmentCreated, a.ID, map[string]any{
		"property_id": propertyID, "number": a.Number, "rent": a.Rent.String(), "status": string(a.Status),
	})
	return a, nil
}

func (s *inventoryService) UpdateApartment(ctx context.Context, apartmentID, version int64, patch ApartmentPatch) (*domain.Apartment, error) {
	var updated *domain.Apartment
	err := s.store.WithinTx(ctx, func(tx repository.Repos) error {
		a, err := tx.Apartments().GetApartment(ctx, apartmentID)
		if err != nil {
			return err
		}
		if a.Version != version {
			return fmt.Errorf("%w: apartment_id=%d has version %d, caller loaded %d",
				domain.ErrConcurrentModification, apartmentID, a.Version, version)
		}

		if patch.Number != nil {
			a.Number = strings.TrimSpace(*patch.Number)
		}
		if patch.Rent != nil {
			a.Rent = *patch.Rent
		}
		if patch.Status != nil {
			a.Status = *patch.Status
		}
		if err := validateApartment(a); err != nil {
			return err
		}

		if _, err := tx.Apartments().UpdateApartment(ctx, a, version); err != nil {
			return err
		}
		updated = a
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("Apartment updated", zap.Int64("apartment_id", apartmentID), zap.Int64("version", updated.Version))
	s.emit(ctx, events.ApartmentUpdated, apartmentID, map[string]any{"version": updated.Version})
	return updated, nil
}

// DeleteApartment removes the apartment's appointments and then the
// apartment, in one transaction.
func (s *inventoryService) DeleteApartment(ctx context.Context, apartmentID int64) error {
	var removed int64
	err := s.store.WithinTx(ctx, func(tx repository.Repos) error {
		if _, err := tx.Apartments().GetApartment(ctx, apartmentID); err != nil {
			return err
		}
		n, err := tx.Appointments().DeleteByApartment(ctx, apartmentID)
		if err != nil {
			return err
		}
		removed = n
		return tx.Apartments().DeleteApartment(ctx, apartmentID)
	})
	if err != nil {
		return err
	}

	s.logger.Info("Apartment deleted", zap.Int64("apartment_id", apartmentID), zap.Int64("appointments_removed", removed))
	s.emit(ctx, events.ApartmentDeleted, apartmentID, map[string]any{"appointments_removed": removed})
	return nil
}

// SetApartmentStatus moves between any two statuses; the last write wins.
func (s *inventoryService) SetApartmentStatus(ctx context.Context, apartmentID int64, status domain.ApartmentStatus) error {
	if err := validateStatus(status); err != nil {
		return err
	}
	if err := s.store.Apartments().SetApartmentStatus(ctx, apartmentID, status); err != nil {
		return err
	}
	s.logger.Info("Apartment status changed", zap.Int64("apartment_id", apartmentID), zap.String("status", string(status)))
	s.emit(ctx, events.ApartmentStatusChanged, apartmentID, map[string]any{"status": string(status)})
	return nil
}

func (s *inventoryService) ListAvailable(ctx context.Context, filter AvailabilityFilter) ([]*domain.Apartment, error) {
	return s.store.Apartments().ListApartments(ctx, repository.ApartmentFilters{
		Status:  domain.StatusAvailable,
		Search:  filter.Text,
		MinRent: filter.MinRent,
		MaxRent: filter.MaxRent,
	})
}
