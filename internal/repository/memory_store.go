package repository

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"rentflow/internal/domain"
)

// MemoryStore is an in-process Store used when DB is disabled and in
// tests. It enforces the same constraints as the PostgreSQL schema:
// unique email, unique (property, number), RESTRICT on users and
// apartments, CASCADE from properties to apartments, SET NULL on
// messages.property_id.
//
// WithinTx works on a copy of the data and swaps it in on success. The
// store lock is held for the whole transaction, so fn must only use the
// repositories it is given.
type MemoryStore struct {
	mu    sync.Mutex
	state *memState
	memRepos
}

var _ Store = (*MemoryStore)(nil)

func NewMemoryStore() *MemoryStore {
	s := &MemoryStore{state: newMemState()}
	s.memRepos = memRepos{run: func(fn func(st *memState) error) error {
		s.mu.Lock()
		defer s.mu.Unlock()
		return fn(s.state)
	}}
	return s
}

func (s *MemoryStore) WithinTx(ctx context.Context, fn func(tx Repos) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	work := s.state.clone()
	tx := memRepos{run: func(f func(st *memState) error) error { return f(work) }}
	if err := fn(tx); err != nil {
		return err
	}
	s.state = work
	return nil
}

type memState struct {
	users        map[int64]domain.User
	properties   map[int64]domain.Property
	apartments   map[int64]domain.Apartment
	appointments map[int64]domain.Appointment
	messages     map[int64]domain.Message

	// sequences never go backwards, matching BIGSERIAL
	userSeq, propertySeq, apartmentSeq, appointmentSeq, messageSeq int64
}

func newMemState() *memState {
	return &memState{
		users:        map[int64]domain.User{},
		properties:   map[int64]domain.Property{},
		apartments:   map[int64]domain.Apartment{},
		appointments: map[int64]domain.Appointment{},
		messages:     map[int64]domain.Message{},
	}
}

func (st *memState) clone() *memState {
	c := *st
	c.users = make(map[int64]domain.User, len(st.users))
	for k, v := range st.users {
		c.users[k] = v
	}
	c.properties = make(map[int64]domain.Property, len(st.properties))
	for k, v := range st.properties {
		c.properties[k] = v
	}
	c.apartments = make(map[int64]domain.Apartment, len(st.apartments))
	for k, v := range st.apartments {
		c.apartments[k] = v
	}
	c.appointments = make(map[int64]domain.Appointment, len(st.appointments))
	for k, v := range st.appointments {
		c.appointments[k] = v
	}
	c.messages = make(map[int64]domain.Message, len(st.messages))
	for k, v := range st.messages {
		c.messages[k] = v
	}
	return &c
}

type memRepos struct {
	run func(fn func(st *memState) error) error
}

func (r memRepos) Users() UsersRepository               { return memUsers(r) }
func (r memRepos) Properties() PropertiesRepository     { return memProperties(r) }
func (r memRepos) Apartments() ApartmentsRepository     { return memApartments(r) }
func (r memRepos) Appointments() AppointmentsRepository { return memAppointments(r) }
func (r memRepos) Messages() MessagesRepository         { return memMessages(r) }

func containsFold(s, sub string) bool {
	return strings.Contains(strings.ToLower(s), strings.ToLower(sub))
}

// --- users ---

type memUsers memRepos

func (r memUsers) GetUser(_ context.Context, userID int64) (*domain.User, error) {
	var out *domain.User
	err := r.run(func(st *memState) error {
		u, ok := st.users[userID]
		if !ok {
			return fmt.Errorf("%w: user_id=%d", domain.ErrUserNotFound, userID)
		}
		out = &u
		return nil
	})
	return out, err
}

func (r memUsers) GetUserByEmail(_ context.Context, email string) (*domain.User, error) {
	var out *domain.User
	err := r.run(func(st *memState) error {
		for _, u := range st.users {
			if u.Email == email {
				u := u
				out = &u
				return nil
			}
		}
		return fmt.Errorf("%w: email=%s", domain.ErrUserNotFound, email)
	})
	return out, err
}

func (r memUsers) ListUsers(_ context.Context, filters UserFilters) ([]*domain.User, error) {
	out := []*domain.User{}
	err := r.run(func(st *memState) error {
		search := strings.TrimSpace(filters.Search)
		for _, u := range st.users {
			if len(filters.Roles) > 0 && !hasRole(filters.Roles, u.Role) {
				continue
			}
			if search != "" && !containsFold(u.FullName, search) && !containsFold(u.Email, search) {
				continue
			}
			u := u
			out = append(out, &u)
		}
		return nil
	})
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, err
}

func hasRole(roles []domain.Role, role domain.Role) bool {
	for _, r := range roles {
		if r == role {
			return true
		}
	}
	return false
}

func (r memUsers) CreateUser(_ context.Context, user *domain.User) (int64, error) {
	if user == nil {
		return 0, fmt.Errorf("user is required")
	}
	if len(user.PasswordHash) == 0 {
		return 0, fmt.Errorf("%w: password_hash is required", domain.ErrValidation)
	}
	err := r.run(func(st *memState) error {
		for _, u := range st.users {
			if u.Email == user.Email {
				return fmt.Errorf("%w: %s", domain.ErrDuplicateEmail, user.Email)
			}
		}
		st.userSeq++
		user.ID = st.userSeq
		user.CreatedAt = time.Now().UTC()
		st.users[user.ID] = *user
		return nil
	})
	if err != nil {
		return 0, err
	}
	return user.ID, nil
}

func (r memUsers) UpdateUser(_ context.Context, user *domain.User) error {
	if user == nil {
		return fmt.Errorf("user is required")
	}
	return r.run(func(st *memState) error {
		existing, ok := st.users[user.ID]
		if !ok {
			return fmt.Errorf("%w: user_id=%d", domain.ErrUserNotFound, user.ID)
		}
		for id, u := range st.users {
			if id != user.ID && u.Email == user.Email {
				return fmt.Errorf("%w: %s", domain.ErrDuplicateEmail, user.Email)
			}
		}
		existing.FullName = user.FullName
		existing.Email = user.Email
		existing.PasswordHash = user.PasswordHash
		existing.Role = user.Role
		st.users[user.ID] = existing
		return nil
	})
}

func (r memUsers) DeleteUser(_ context.Context, userID int64) error {
	return r.run(func(st *memState) error {
		if _, ok := st.users[userID]; !ok {
			return fmt.Errorf("%w: user_id=%d", domain.ErrUserNotFound, userID)
		}
		for _, p := range st.properties {
			if p.OwnerID == userID {
				return fmt.Errorf("%w: properties.owner_id references user %d", ErrForeignKeyViolation, userID)
			}
		}
		for _, a := range st.appointments {
			if a.TenantID == userID || a.ManagerID == userID {
				return fmt.Errorf("%w: appointments reference user %d", ErrForeignKeyViolation, userID)
			}
		}
		for _, m := range st.messages {
			if m.SenderID == userID || m.ReceiverID == userID {
				return fmt.Errorf("%w: messages reference user %d", ErrForeignKeyViolation, userID)
			}
		}
		delete(st.users, userID)
		return nil
	})
}

// --- properties ---

type memProperties memRepos

func (r memProperties) GetProperty(_ context.Context, propertyID int64) (*domain.Property, error) {
	var out *domain.Property
	err := r.run(func(st *memState) error {
		p, ok := st.properties[propertyID]
		if !ok {
			return fmt.Errorf("%w: property_id=%d", domain.ErrPropertyNotFound, propertyID)
		}
		out = &p
		return nil
	})
	return out, err
}

func (r memProperties) ListProperties(_ context.Context, filters PropertyFilters) ([]*domain.Property, error) {
	out := []*domain.Property{}
	err := r.run(func(st *memState) error {
		search := strings.TrimSpace(filters.Search)
		for _, p := range st.properties {
			if filters.OwnerID > 0 && p.OwnerID != filters.OwnerID {
				continue
			}
			if search != "" && !containsFold(p.Name, search) && !containsFold(p.Address, search) && !containsFold(p.City, search) {
				continue
			}
			p := p
			out = append(out, &p)
		}
		return nil
	})
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, err
}

func (r memProperties) CreateProperty(_ context.Context, property *domain.Property) (int64, error) {
	if property == nil {
		return 0, fmt.Errorf("property is required")
	}
	err := r.run(func(st *memState) error {
		if _, ok := st.users[property.OwnerID]; !ok {
			return fmt.Errorf("%w: owner_id=%d", domain.ErrOwnerNotFound, property.OwnerID)
		}
		st.propertySeq++
		property.ID = st.propertySeq
		property.Version = 1
		st.properties[property.ID] = *property
		return nil
	})
	if err != nil {
		return 0, err
	}
	return property.ID, nil
}

func (r memProperties) UpdateProperty(_ context.Context, property *domain.Property, expectedVersion int64) (int64, error) {
	if property == nil {
		return 0, fmt.Errorf("property is required")
	}
	err := r.run(func(st *memState) error {
		existing, ok := st.properties[property.ID]
		if !ok || existing.Version != expectedVersion {
			return fmt.Errorf("%w: property_id=%d version=%d", domain.ErrConcurrentModification, property.ID, expectedVersion)
		}
		if _, ok := st.users[property.OwnerID]; !ok {
			return fmt.Errorf("%w: owner_id=%d", domain.ErrOwnerNotFound, property.OwnerID)
		}
		property.Version = existing.Version + 1
		st.properties[property.ID] = *property
		return nil
	})
	if err != nil {
		return 0, err
	}
	return property.Version, nil
}

func (r memProperties) DeleteProperty(_ context.Context, propertyID int64) error {
	return r.run(func(st *memState) error {
		if _, ok := st.properties[propertyID]; !ok {
			return fmt.Errorf("%w: property_id=%d", domain.ErrPropertyNotFound, propertyID)
		}
		// cascading to apartments is blocked by their appointments
		for _, ap := range st.appointments {
			if a, ok := st.apartments[ap.ApartmentID]; ok && a.PropertyID == propertyID {
				return fmt.Errorf("%w: appointments reference apartment %d", ErrForeignKeyViolation, a.ID)
			}
		}
		for id, a := range st.apartments {
			if a.PropertyID == propertyID {
				delete(st.apartments, id)
			}
		}
		for id, m := range st.messages {
			if m.PropertyID != nil && *m.PropertyID == propertyID {
				m.PropertyID = nil
				st.messages[id] = m
			}
		}
		delete(st.properties, propertyID)
		return nil
	})
}

// --- apartments ---

type memApartments memRepos

func withProperty(st *memState, a domain.Apartment) *domain.Apartment {
	if p, ok := st.properties[a.PropertyID]; ok {
		a.PropertyName = p.Name
		a.PropertyCity = p.City
	}
	return &a
}

func (r memApartments) GetApartment(_ context.Context, apartmentID int64) (*domain.Apartment, error) {
	var out *domain.Apartment
	err := r.run(func(st *memState) error {
		a, ok := st.apartments[apartmentID]
		if !ok {
			return fmt.Errorf("%w: apartment_id=%d", domain.ErrApartmentNotFound, apartmentID)
		}
		out = withProperty(st, a)
		return nil
	})
	return out, err
}

func (r memApartments) ListApartments(_ context.Context, filters ApartmentFilters) ([]*domain.Apartment, error) {
	out := []*domain.Apartment{}
	err := r.run(func(st *memState) error {
		search := strings.TrimSpace(filters.Search)
		for _, a := range st.apartments {
			if filters.PropertyID != nil && a.PropertyID != *filters.PropertyID {
				continue
			}
			if filters.Status != "" && a.Status != filters.Status {
				continue
			}
			if filters.MinRent != nil && a.Rent < *filters.MinRent {
				continue
			}
			if filters.MaxRent != nil && a.Rent > *filters.MaxRent {
				continue
			}
			full := withProperty(st, a)
			if search != "" && !containsFold(full.PropertyName, search) && !containsFold(full.PropertyCity, search) {
				continue
			}
			out = append(out, full)
		}
		return nil
	})
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, err
}

func numberTaken(st *memState, propertyID int64, number string, exceptID int64) bool {
	for id, a := range st.apartments {
		if id != exceptID && a.PropertyID == propertyID && a.Number == number {
			return true
		}
	}
	return false
}

func (r memApartments) CreateApartment(_ context.Context, apartment *domain.Apartment) (int64, error) {
	if apartment == nil {
		return 0, fmt.Errorf("apartment is required")
	}
	err := r.run(func(st *memState) error {
		if _, ok := st.properties[apartment.PropertyID]; !ok {
			return fmt.Errorf("%w: property_id=%d", domain.ErrPropertyNotFound, apartment.PropertyID)
		}
		if apartment.Rent < 0 {
			return fmt.Errorf("%w: rent must not be negative", domain.ErrValidation)
		}
		if numberTaken(st, apartment.PropertyID, apartment.Number, 0) {
			return fmt.Errorf("%w: number=%s property_id=%d", domain.ErrDuplicateUnitNumber, apartment.Number, apartment.PropertyID)
		}
		st.apartmentSeq++
		apartment.ID = st.apartmentSeq
		apartment.Version = 1
		stored := *apartment
		stored.PropertyName, stored.PropertyCity = "", ""
		st.apartments[apartment.ID] = stored
		return nil
	})
	if err != nil {
		return 0, err
	}
	return apartment.ID, nil
}

func (r memApartments) UpdateApartment(_ context.Context, apartment *domain.Apartment, expectedVersion int64) (int64, error) {
	if apartment == nil {
		return 0, fmt.Errorf("apartment is required")
	}
	err := r.run(func(st *memState) error {
		existing, ok := st.apartments[apartment.ID]
		if !ok || existing.Version != expectedVersion {
			return fmt.Errorf("%w: apartment_id=%d version=%d", domain.ErrConcurrentModification, apartment.ID, expectedVersion)
		}
		if apartment.Rent < 0 {
			return fmt.Errorf("%w: rent must not be negative", domain.ErrValidation)
		}
		if numberTaken(st, existing.PropertyID, apartment.Number, existing.ID) {
			return fmt.Errorf("%w: number=%s", domain.ErrDuplicateUnitNumber, apartment.Number)
		}
		existing.Number = apartment.Number
		existing.Rent = apartment.Rent
		existing.Status = apartment.Status
		existing.Version++
		st.apartments[existing.ID] = existing
		apartment.PropertyID = existing.PropertyID
		apartment.Version = existing.Version
		return nil
	})
	if err != nil {
		return 0, err
	}
	return apartment.Version, nil
}

func (r memApartments) SetApartmentStatus(_ context.Context, apartmentID int64, status domain.ApartmentStatus) error {
	return r.run(func(st *memState) error {
		a, ok := st.apartments[apartmentID]
		if !ok {
			return fmt.Errorf("%w: apartment_id=%d", domain.ErrApartmentNotFound, apartmentID)
		}
		a.Status = status
		a.Version++
		st.apartments[apartmentID] = a
		return nil
	})
}

func (r memApartments) DeleteApartment(_ context.Context, apartmentID int64) error {
	return r.run(func(st *memState) error {
		if _, ok := st.apartments[apartmentID]; !ok {
			return fmt.Errorf("%w: apartment_id=%d", domain.ErrApartmentNotFound, apartmentID)
		}
		for _, ap := range st.appointments {
			if ap.ApartmentID == apartmentID {
				return fmt.Errorf("%w: appointments reference apartment %d", ErrForeignKeyViolation, apartmentID)
			}
		}
		delete(st.apartments, apartmentID)
		return nil
	})
}

// --- appointments ---

type memAppointments memRepos

func (r memAppointments) GetAppointment(_ context.Context, appointmentID int64) (*domain.Appointment, error) {
	var out *domain.Appointment
	err := r.run(func(st *memState) error {
		a, ok := st.appointments[appointmentID]
		if !ok {
			return fmt.Errorf("%w: appointment_id=%d", domain.ErrAppointmentNotFound, appointmentID)
		}
		out = &a
		return nil
	})
	return out, err
}

func (r memAppointments) ListAppointments(_ context.Context, filters AppointmentFilters) ([]*domain.Appointment, error) {
	out := []*domain.Appointment{}
	err := r.run(func(st *memState) error {
		for _, a := range st.appointments {
			if filters.TenantID > 0 && a.TenantID != filters.TenantID {
				continue
			}
			if filters.ManagerID > 0 && a.ManagerID != filters.ManagerID {
				continue
			}
			a := a
			out = append(out, &a)
		}
		return nil
	})
	sort.Slice(out, func(i, j int) bool {
		if !out[i].Date.Equal(out[j].Date) {
			return out[i].Date.Before(out[j].Date)
		}
		return out[i].ID < out[j].ID
	})
	return out, err
}

func (r memAppointments) CreateAppointment(_ context.Context, appointment *domain.Appointment) (int64, error) {
	if appointment == nil {
		return 0, fmt.Errorf("appointment is required")
	}
	err := r.run(func(st *memState) error {
		if _, ok := st.users[appointment.TenantID]; !ok {
			return fmt.Errorf("%w: tenant_id=%d", ErrForeignKeyViolation, appointment.TenantID)
		}
		if _, ok := st.users[appointment.ManagerID]; !ok {
			return fmt.Errorf("%w: manager_id=%d", ErrForeignKeyViolation, appointment.ManagerID)
		}
		if _, ok := st.apartments[appointment.ApartmentID]; !ok {
			return fmt.Errorf("%w: apartment_id=%d", ErrForeignKeyViolation, appointment.ApartmentID)
		}
		st.appointmentSeq++
		appointment.ID = st.appointmentSeq
		st.appointments[appointment.ID] = *appointment
		return nil
	})
	if err != nil {
		return 0, err
	}
	return appointment.ID, nil
}

func (r memAppointments) SetConfirmed(_ context.Context, appointmentID int64, confirmed bool) error {
	return r.run(func(st *memState) error {
		a, ok := st.appointments[appointmentID]
		if !ok {
			return fmt.Errorf("%w: id=%d", domain.ErrAppointmentNotFound, appointmentID)
		}
		a.Confirmed = confirmed
		st.appointments[appointmentID] = a
		return nil
	})
}

func (r memAppointments) Reschedule(_ context.Context, appointmentID int64, date time.Time) error {
	return r.run(func(st *memState) error {
		a, ok := st.appointments[appointmentID]
		if !ok {
			return fmt.Errorf("%w: id=%d", domain.ErrAppointmentNotFound, appointmentID)
		}
		a.Date = date
		a.Confirmed = false
		st.appointments[appointmentID] = a
		return nil
	})
}

func (r memAppointments) DeleteAppointment(_ context.Context, appointmentID int64) error {
	return r.run(func(st *memState) error {
		if _, ok := st.appointments[appointmentID]; !ok {
			return fmt.Errorf("%w: id=%d", domain.ErrAppointmentNotFound, appointmentID)
		}
		delete(st.appointments, appointmentID)
		return nil
	})
}

func (r memAppointments) DeleteByApartment(_ context.Context, apartmentID int64) (int64, error) {
	var n int64
	err := r.run(func(st *memState) error {
		for id, a := range st.appointments {
			if a.ApartmentID == apartmentID {
				delete(st.appointments, id)
				n++
			}
		}
		return nil
	})
	return n, err
}

func (r memAppointments) DeleteByProperty(_ context.Context, propertyID int64) (int64, error) {
	var n int64
	err := r.run(func(st *memState) error {
		for id, a := range st.appointments {
			if ap, ok := st.apartments[a.ApartmentID]; ok && ap.PropertyID == propertyID {
				delete(st.appointments, id)
				n++
			}
		}
		return nil
	})
	return n, err
}

func (r memAppointments) CountByUser(_ context.Context, userID int64) (int, error) {
	n := 0
	err := r.run(func(st *memState) error {
		for _, a := range st.appointments {
			if a.TenantID == userID || a.ManagerID == userID {
				n++
			}
		}
		return nil
	})
	return n, err
}

// --- messages ---

type memMessages memRepos

func copyMessage(m domain.Message) *domain.Message {
	if m.PropertyID != nil {
		id := *m.PropertyID
		m.PropertyID = &id
	}
	return &m
}

func (r memMessages) GetMessage(_ context.Context, messageID int64) (*domain.Message, error) {
	var out *domain.Message
	err := r.run(func(st *memState) error {
		m, ok := st.messages[messageID]
		if !ok {
			return fmt.Errorf("%w: message_id=%d", domain.ErrMessageNotFound, messageID)
		}
		out = copyMessage(m)
		return nil
	})
	return out, err
}

func (r memMessages) ListMessages(_ context.Context, filters MessageFilters) ([]*domain.Message, error) {
	out := []*domain.Message{}
	err := r.run(func(st *memState) error {
		for _, m := range st.messages {
			if filters.SenderID > 0 && m.SenderID != filters.SenderID {
				continue
			}
			if filters.ReceiverID > 0 && m.ReceiverID != filters.ReceiverID {
				continue
			}
			if filters.PropertyID > 0 && (m.PropertyID == nil || *m.PropertyID != filters.PropertyID) {
				continue
			}
			if filters.UnreadOnly && m.Read {
				continue
			}
			if filters.ReportsOnly && !m.Report {
				continue
			}
			out = append(out, copyMessage(m))
		}
		return nil
	})
	sort.Slice(out, func(i, j int) bool {
		if !out[i].Timestamp.Equal(out[j].Timestamp) {
			return out[i].Timestamp.After(out[j].Timestamp)
		}
		return out[i].ID > out[j].ID
	})
	return out, err
}

func (r memMessages) CreateMessage(_ context.Context, message *domain.Message) (int64, error) {
	if message == nil {
		return 0, fmt.Errorf("message is required")
	}
	err := r.run(func(st *memState) error {
		if _, ok := st.users[message.SenderID]; !ok {
			return fmt.Errorf("%w: sender_id=%d", ErrForeignKeyViolation, message.SenderID)
		}
		if _, ok := st.users[message.ReceiverID]; !ok {
			return fmt.Errorf("%w: receiver_id=%d", ErrForeignKeyViolation, message.ReceiverID)
		}
		if message.PropertyID != nil {
			if _, ok := st.properties[*message.PropertyID]; !ok {
				return fmt.Errorf("%w: property_id=%d", ErrForeignKeyViolation, *message.PropertyID)
			}
		}
		st.messageSeq++
		message.ID = st.messageSeq
		st.messages[message.ID] = *copyMessage(*message)
		return nil
	})
	if err != nil {
		return 0, err
	}
	return message.ID, nil
}

func (r memMessages) MarkRead(_ context.Context, messageID int64) error {
	return r.run(func(st *memState) error {
		m, ok := st.messages[messageID]
		if !ok {
			return fmt.Errorf("%w: id=%d", domain.ErrMessageNotFound, messageID)
		}
		m.Read = true
		st.messages[messageID] = m
		return nil
	})
}

func (r memMessages) ClearProperty(_ context.Context, propertyID int64) (int64, error) {
	var n int64
	err := r.run(func(st *memState) error {
		for id, m := range st.messages {
			if m.PropertyID != nil && *m.PropertyID == propertyID {
				m.PropertyID = nil
				st.messages[id] = m
				n++
			}
		}
		return nil
	})
	return n, err
}

func (r memMessages) CountByUser(_ context.Context, userID int64) (int, error) {
	n := 0
	err := r.run(func(st *memState) error {
		for _, m := range st.messages {
			if m.SenderID == userID || m.ReceiverID == userID {
				n++
			}
		}
		return nil
	})
	return n, err
}
