// Package seed loads the demo data set. Each stage runs only while its
// table is empty, so Run can be repeated safely.
package seed

import (
	"context"
	"fmt"
	"time"

	"rentflow/internal/domain"
	"rentflow/internal/repository"
	"rentflow/internal/service"

	"go.uber.org/zap"
)

const (
	DemoPassword = "123"
	DemoProperty = "Executive Tower One"
)

type demoUser struct {
	name  string
	email string
	role  domain.Role
}

var demoUsers = []demoUser{
	{"Owner User", "owner@rent.com", domain.RoleOwner},
	{"Manager Mike", "manager@rent.com", domain.RoleManager},
	{"Tenant Tom", "tenant@rent.com", domain.RoleTenant},
}

var demoUnits = []struct {
	number string
	rent   string
}{
	{"101", "2500.00"},
	{"202", "3500.00"},
	{"303", "4500.00"},
}

// Result counts what Run created.
type Result struct {
	Users        int
	Properties   int
	Apartments   int
	Appointments int
	Messages     int
}

func (r Result) Empty() bool { return r == Result{} }

type Seeder struct {
	store  repository.Store
	portal *service.Portal
	clock  service.Clock
	logger *zap.Logger
}

func New(store repository.Store, portal *service.Portal, clock service.Clock, logger *zap.Logger) *Seeder {
	return &Seeder{store: store, portal: portal, clock: clock, logger: logger}
}

func (s *Seeder) Run(ctx context.Context) (Result, error) {
	var res Result

	users, err := s.store.Users().ListUsers(ctx, repository.UserFilters{})
	if err != nil {
		return res, fmt.Errorf("failed to list users: %w", err)
	}
	if len(users) == 0 {
		for _, u := range demoUsers {
			if _, err := s.portal.Identity.CreateAccount(ctx, u.name, u.email, DemoPassword, u.role); err != nil {
				return res, fmt.Errorf("failed to seed user %s: %w", u.email, err)
			}
			res.Users++
		}
	}

	owner, err := s.firstWithRole(ctx, domain.RoleOwner)
	if err != nil {
		return res, err
	}
	manager, err := s.firstWithRole(ctx, domain.RoleManager)
	if err != nil {
		return res, err
	}
	tenant, err := s.firstWithRole(ctx, domain.RoleTenant)
	if err != nil {
		return res, err
	}

	props, err := s.store.Properties().ListProperties(ctx, repository.PropertyFilters{})
	if err != nil {
		return res, fmt.Errorf("failed to list properties: %w", err)
	}
	if len(props) == 0 {
		if owner == nil {
			s.logger.Warn("No owner account, skipping demo property")
			return res, nil
		}
		p, err := s.portal.Inventory.CreateProperty(ctx, DemoProperty, "123 Luxury Blvd", "Montréal", owner.ID)
		if err != nil {
			return res, fmt.Errorf("failed to seed property: %w", err)
		}
		props = append(props, p)
		res.Properties++
	}

	apts, err := s.store.Apartments().ListApartments(ctx, repository.ApartmentFilters{})
	if err != nil {
		return res, fmt.Errorf("failed to list apartments: %w", err)
	}
	if len(apts) == 0 {
		for _, u := range demoUnits {
			a, err := s.portal.Inventory.CreateApartment(ctx, u.number, domain.MustMoney(u.rent), domain.StatusAvailable, props[0].ID)
			if err != nil {
				return res, fmt.Errorf("failed to seed apartment %s: %w", u.number, err)
			}
			apts = append(apts, a)
			res.Apartments++
		}
	}

	appts, err := s.store.Appointments().ListAppointments(ctx, repository.AppointmentFilters{})
	if err != nil {
		return res, fmt.Errorf("failed to list appointments: %w", err)
	}
	if len(appts) == 0 && tenant != nil && manager != nil {
		apt := firstAvailable(apts)
		if apt == nil {
			s.logger.Warn("No available apartment, skipping demo appointment")
			return res, s.seedMessage(ctx, &res, tenant, manager)
		}
		_, err := s.portal.Appointments.Book(ctx, service.BookRequest{
			ApartmentID: apt.ID,
			TenantID:    tenant.ID,
			ManagerID:   manager.ID,
			Date:        s.clock.Now().Add(48 * time.Hour),
			Notes:       "Demo appointment",
		})
		if err != nil {
			return res, fmt.Errorf("failed to seed appointment: %w", err)
		}
		res.Appointments++
	}

	return res, s.seedMessage(ctx, &res, tenant, manager)
}

func (s *Seeder) seedMessage(ctx context.Context, res *Result, tenant, manager *domain.User) error {
	msgs, err := s.store.Messages().ListMessages(ctx, repository.MessageFilters{})
	if err != nil {
		return fmt.Errorf("failed to list messages: %w", err)
	}
	if len(msgs) == 0 && tenant != nil && manager != nil {
		if _, err := s.portal.Messaging.Send(ctx, tenant.ID, manager.ID, "Hello, I am interested in unit 101.", nil); err != nil {
			return fmt.Errorf("failed to seed message: %w", err)
		}
		res.Messages++
	}

	s.logger.Info("Demo data seeded",
		zap.Int("users", res.Users),
		zap.Int("properties", res.Properties),
		zap.Int("apartments", res.Apartments),
		zap.Int("appointments", res.Appointments),
		zap.Int("messages", res.Messages))
	return nil
}

func firstAvailable(apts []*domain.Apartment) *domain.Apartment {
	for _, a := range apts {
		if a.Status == domain.StatusAvailable {
			return a
		}
	}
	return nil
}

// firstWithRole returns the lowest-id user with role, or nil.
func (s *Seeder) firstWithRole(ctx context.Context, role domain.Role) (*domain.User, error) {
	users, err := s.store.Users().ListUsers(ctx, repository.UserFilters{Roles: []domain.Role{role}})
	if err != nil {
		return nil, fmt.Errorf("failed to list %s users: %w", role, err)
	}
	if len(users) == 0 {
		return nil, nil
	}
	first := users[0]
	for _, u := range users[1:] {
		if u.ID < first.ID {
			first = u
		}
	}
	return first, nil
}
