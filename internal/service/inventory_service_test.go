package service

import (
	"context"
	"testing"

	"rentflow/internal/domain"
	"rentflow/internal/events"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateProperty_ListedOnce(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	p, err := e.inventory.CreateProperty(ctx, "Harbour View", "9 Quay St", "Québec", e.owner.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), p.Version)

	props, err := e.inventory.ListProperties(ctx, "")
	require.NoError(t, err)
	seen := 0
	for _, got := range props {
		if got.ID == p.ID {
			seen++
			assert.Equal(t, "Harbour View", got.Name)
		}
	}
	assert.Equal(t, 1, seen)

	filtered, err := e.inventory.ListProperties(ctx, "québec")
	require.NoError(t, err)
	require.Len(t, filtered, 1)
	assert.Equal(t, p.ID, filtered[0].ID)
}

func TestCreateProperty_OwnerChecks(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	_, err := e.inventory.CreateProperty(ctx, "P", "A", "C", e.manager.ID)
	assert.ErrorIs(t, err, domain.ErrOwnerWrongRole)

	_, err = e.inventory.CreateProperty(ctx, "P", "A", "C", 999)
	assert.ErrorIs(t, err, domain.ErrOwnerNotFound)
	assert.ErrorIs(t, err, domain.ErrNotFound)

	_, err = e.inventory.CreateProperty(ctx, "", "A", "C", e.owner.ID)
	assert.ErrorIs(t, err, domain.ErrValidation)
}

func TestUpdateProperty_Versioning(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	updated, err := e.inventory.UpdateProperty(ctx, e.property.ID, 1, PropertyPatch{Name: ptr("Tower Two")})
	require.NoError(t, err)
	assert.Equal(t, int64(2), updated.Version)
	assert.Equal(t, "Tower Two", updated.Name)

	// second editor still holds version 1
	_, err = e.inventory.UpdateProperty(ctx, e.property.ID, 1, PropertyPatch{City: ptr("Laval")})
	assert.ErrorIs(t, err, domain.ErrConcurrentModification)

	stored, err := e.inventory.GetProperty(ctx, e.property.ID)
	require.NoError(t, err)
	assert.Equal(t, "Montréal", stored.City)

	_, err = e.inventory.UpdateProperty(ctx, 999, 1, PropertyPatch{})
	assert.ErrorIs(t, err, domain.ErrPropertyNotFound)

	_, err = e.inventory.UpdateProperty(ctx, e.property.ID, 2, PropertyPatch{OwnerID: ptr(e.tenant.ID)})
	assert.ErrorIs(t, err, domain.ErrOwnerWrongRole)
}

func TestDeleteProperty_CascadesAndDetaches(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	a2, err := e.inventory.CreateApartment(ctx, "202", domain.MustMoney("3500.00"), domain.StatusAvailable, e.property.ID)
	require.NoError(t, err)
	a3, err := e.inventory.CreateApartment(ctx, "303", domain.MustMoney("4500.00"), domain.StatusAvailable, e.property.ID)
	require.NoError(t, err)

	other, err := e.inventory.CreateProperty(ctx, "Elsewhere", "1 Other Rd", "Laval", e.owner.ID)
	require.NoError(t, err)
	otherApt, err := e.inventory.CreateApartment(ctx, "101", domain.MustMoney("1000.00"), domain.StatusAvailable, other.ID)
	require.NoError(t, err)

	when := testNow.AddDate(0, 0, 2)
	e.book(t, e.apartment.ID, when)
	e.book(t, a2.ID, when)
	e.book(t, a3.ID, when)
	e.book(t, a3.ID, when.Add(1))
	kept := e.book(t, otherApt.ID, when)

	pid := e.property.ID
	m1, err := e.messaging.Send(ctx, e.tenant.ID, e.manager.ID, "about the tower", &pid)
	require.NoError(t, err)
	m2, err := e.messaging.Report(ctx, e.manager.ID, pid, "roof leak")
	require.NoError(t, err)

	require.NoError(t, e.inventory.DeleteProperty(ctx, pid))

	_, err = e.inventory.GetProperty(ctx, pid)
	assert.ErrorIs(t, err, domain.ErrPropertyNotFound)
	for _, id := range []int64{e.apartment.ID, a2.ID, a3.ID} {
		_, err = e.inventory.GetApartment(ctx, id)
		assert.ErrorIs(t, err, domain.ErrApartmentNotFound)
	}

	appts, err := e.appointments.ListForTenant(ctx, e.tenant.ID)
	require.NoError(t, err)
	require.Len(t, appts, 1)
	assert.Equal(t, kept.ID, appts[0].ID)

	for _, id := range []int64{m1.ID, m2.ID} {
		m, err := e.messaging.Get(ctx, id)
		require.NoError(t, err)
		assert.Nil(t, m.PropertyID)
	}

	_, err = e.inventory.GetApartment(ctx, otherApt.ID)
	assert.NoError(t, err)

	assert.ErrorIs(t, e.inventory.DeleteProperty(ctx, pid), domain.ErrPropertyNotFound)
	assert.Contains(t, e.events.types(), events.PropertyDeleted)
}

func TestCreateApartment(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	a, err := e.inventory.CreateApartment(ctx, "202", domain.MustMoney("0.00"), "", e.property.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusAvailable, a.Status)
	assert.Equal(t, "Tower", a.PropertyName)

	_, err = e.inventory.CreateApartment(ctx, "101", domain.MustMoney("100.00"), domain.StatusRented, e.property.ID)
	assert.ErrorIs(t, err, domain.ErrDuplicateUnitNumber)
	assert.ErrorIs(t, err, domain.ErrValidation)

	_, err = e.inventory.CreateApartment(ctx, "404", domain.Money(-1), domain.StatusAvailable, e.property.ID)
	assert.ErrorIs(t, err, domain.ErrValidation)

	_, err = e.inventory.CreateApartment(ctx, "404", domain.MustMoney("1.00"), domain.ApartmentStatus("Sold"), e.property.ID)
	assert.ErrorIs(t, err, domain.ErrValidation)

	_, err = e.inventory.CreateApartment(ctx, "404", domain.MustMoney("1.00"), domain.StatusAvailable, 999)
	assert.ErrorIs(t, err, domain.ErrPropertyNotFound)

	other, err := e.inventory.CreateProperty(ctx, "Other", "2 Rd", "Laval", e.owner.ID)
	require.NoError(t, err)
	_, err = e.inventory.CreateApartment(ctx, "101", domain.MustMoney("1.00"), domain.StatusAvailable, other.ID)
	assert.NoError(t, err, "unit numbers are unique per property only")
}

func TestUpdateApartment(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	rent := domain.MustMoney("2750.50")
	a, err := e.inventory.UpdateApartment(ctx, e.apartment.ID, e.apartment.Version, ApartmentPatch{Rent: &rent})
	require.NoError(t, err)
	assert.Equal(t, "2750.50", a.Rent.String())
	assert.Equal(t, e.apartment.Version+1, a.Version)

	_, err = e.inventory.UpdateApartment(ctx, e.apartment.ID, e.apartment.Version, ApartmentPatch{Number: ptr("102")})
	assert.ErrorIs(t, err, domain.ErrConcurrentModification)

	// SetApartmentStatus bumps the version too
	require.NoError(t, e.inventory.SetApartmentStatus(ctx, e.apartment.ID, domain.StatusRented))
	_, err = e.inventory.UpdateApartment(ctx, e.apartment.ID, a.Version, ApartmentPatch{Number: ptr("102")})
	assert.ErrorIs(t, err, domain.ErrConcurrentModification)
}

func TestSetApartmentStatus_AnyTransition(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	for _, s := range []domain.ApartmentStatus{domain.StatusUnderMaintenance, domain.StatusRented, domain.StatusAvailable, domain.StatusRented} {
		require.NoError(t, e.inventory.SetApartmentStatus(ctx, e.apartment.ID, s))
		a, err := e.inventory.GetApartment(ctx, e.apartment.ID)
		require.NoError(t, err)
		assert.Equal(t, s, a.Status)
	}

	assert.ErrorIs(t, e.inventory.SetApartmentStatus(ctx, e.apartment.ID, "Vacant"), domain.ErrValidation)
	assert.ErrorIs(t, e.inventory.SetApartmentStatus(ctx, 999, domain.StatusRented), domain.ErrApartmentNotFound)
}

func TestDeleteApartment_RemovesAppointments(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	e.book(t, e.apartment.ID, testNow.Add(DefaultBookingLead))
	require.NoError(t, e.inventory.DeleteApartment(ctx, e.apartment.ID))

	appts, err := e.appointments.ListForManager(ctx, e.manager.ID)
	require.NoError(t, err)
	assert.Empty(t, appts)

	assert.ErrorIs(t, e.inventory.DeleteApartment(ctx, e.apartment.ID), domain.ErrApartmentNotFound)
}

func TestListAvailable_Filters(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	_, err := e.inventory.CreateApartment(ctx, "202", domain.MustMoney("3500.00"), domain.StatusAvailable, e.property.ID)
	require.NoError(t, err)
	_, err = e.inventory.CreateApartment(ctx, "303", domain.MustMoney("4500.00"), domain.StatusRented, e.property.ID)
	require.NoError(t, err)
	laval, err := e.inventory.CreateProperty(ctx, "Suburb", "5 Elm", "Laval", e.owner.ID)
	require.NoError(t, err)
	_, err = e.inventory.CreateApartment(ctx, "1", domain.MustMoney("900.00"), domain.StatusAvailable, laval.ID)
	require.NoError(t, err)

	all, err := e.inventory.ListAvailable(ctx, AvailabilityFilter{})
	require.NoError(t, err)
	assert.Len(t, all, 3)

	minRent, maxRent := domain.MustMoney("2000.00"), domain.MustMoney("4000.00")
	ranged, err := e.inventory.ListAvailable(ctx, AvailabilityFilter{Text: "montréal", MinRent: &minRent, MaxRent: &maxRent})
	require.NoError(t, err)
	require.Len(t, ranged, 2)
	for _, a := range ranged {
		assert.Equal(t, "Montréal", a.PropertyCity)
		assert.Equal(t, domain.StatusAvailable, a.Status)
	}

	byName, err := e.inventory.ListAvailable(ctx, AvailabilityFilter{Text: "suburb"})
	require.NoError(t, err)
	require.Len(t, byName, 1)
	assert.Equal(t, "Laval", byName[0].PropertyCity)
}
