package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"rentflow/internal/domain"
	"rentflow/internal/events"
	"rentflow/internal/policy"
	"rentflow/internal/repository"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

type capture struct {
	mu  sync.Mutex
	got []events.Event
}

func (c *capture) Publish(_ context.Context, ev events.Event) error {
	c.mu.Lock()
	c.got = append(c.got, ev)
	c.mu.Unlock()
	return nil
}

func (c *capture) types() []events.Type {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]events.Type, 0, len(c.got))
	for _, ev := range c.got {
		out = append(out, ev.Type)
	}
	return out
}

type env struct {
	store        *repository.MemoryStore
	clock        *fakeClock
	events       *capture
	identity     IdentityService
	inventory    InventoryService
	appointments AppointmentService
	messaging    MessagingService
	portal       *Portal

	owner, manager, tenant *domain.User
	property               *domain.Property
	apartment              *domain.Apartment // "101", Available, 2500.00
}

var testNow = time.Date(2030, 1, 1, 12, 0, 0, 0, time.UTC)

func newEnv(t *testing.T) *env {
	t.Helper()
	ctx := context.Background()
	logger := zap.NewNop()

	e := &env{
		store:  repository.NewMemoryStore(),
		clock:  &fakeClock{now: testNow},
		events: &capture{},
	}
	verifier := BcryptVerifier{Cost: bcrypt.MinCost}
	e.identity = NewIdentityService(e.store, verifier, e.clock, e.events, logger)
	e.inventory = NewInventoryService(e.store, e.clock, e.events, logger)
	e.appointments = NewAppointmentService(e.store, e.clock, e.events, logger)
	e.messaging = NewMessagingService(e.store, e.clock, e.events, logger)
	e.portal = NewPortal(e.identity, e.inventory, e.appointments, e.messaging, logger)

	var err error
	e.owner, err = e.identity.CreateAccount(ctx, "Olivia Owner", "owner@rent.com", "123", domain.RoleOwner)
	require.NoError(t, err)
	e.manager, err = e.identity.CreateAccount(ctx, "Mark Manager", "manager@rent.com", "123", domain.RoleManager)
	require.NoError(t, err)
	e.tenant, err = e.identity.CreateAccount(ctx, "Tina Tenant", "tenant@rent.com", "123", domain.RoleTenant)
	require.NoError(t, err)

	e.property, err = e.inventory.CreateProperty(ctx, "Tower", "123 Luxury Blvd", "Montréal", e.owner.ID)
	require.NoError(t, err)
	e.apartment, err = e.inventory.CreateApartment(ctx, "101", domain.MustMoney("2500.00"), domain.StatusAvailable, e.property.ID)
	require.NoError(t, err)
	return e
}

func (e *env) caller(u *domain.User) policy.Caller {
	return policy.Caller{UserID: u.ID, Role: u.Role}
}

func (e *env) book(t *testing.T, apartmentID int64, at time.Time) *domain.Appointment {
	t.Helper()
	a, err := e.appointments.Book(context.Background(), BookRequest{
		ApartmentID: apartmentID, TenantID: e.tenant.ID, ManagerID: e.manager.ID, Date: at,
	})
	require.NoError(t, err)
	return a
}

func ptr[T any](v T) *T { return &v }
