package repository

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"rentflow/internal/domain"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupMockDB(t *testing.T) (*sql.DB, sqlmock.Sqlmock) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db, mock
}

// ============================================
// users
// ============================================

func TestGetUser_Success(t *testing.T) {
	db, mock := setupMockDB(t)
	repo := NewPostgresUsersRepository(db)
	created := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)

	mock.ExpectQuery(`SELECT user_id, full_name, email, password_hash, role, created_at FROM users WHERE user_id = \$1`).
		WithArgs(int64(3)).
		WillReturnRows(sqlmock.NewRows([]string{"user_id", "full_name", "email", "password_hash", "role", "created_at"}).
			AddRow(int64(3), "Tina Tenant", "tenant@rent.com", []byte("hash"), "Tenant", created))

	u, err := repo.GetUser(context.Background(), 3)
	require.NoError(t, err)
	assert.Equal(t, int64(3), u.ID)
	assert.Equal(t, domain.RoleTenant, u.Role)
	assert.Equal(t, []byte("hash"), u.PasswordHash)
	assert.Equal(t, created, u.CreatedAt)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestGetUser_NotFound(t *testing.T) {
	db, mock := setupMockDB(t)
	repo := NewPostgresUsersRepository(db)

	mock.ExpectQuery(`SELECT .* FROM users WHERE user_id = \$1`).
		WithArgs(int64(99)).
		WillReturnRows(sqlmock.NewRows([]string{"user_id"}))

	_, err := repo.GetUser(context.Background(), 99)
	assert.ErrorIs(t, err, domain.ErrUserNotFound)
	assert.ErrorIs(t, err, domain.ErrNotFound)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestListUsers_RoleAndSearch(t *testing.T) {
	db, mock := setupMockDB(t)
	repo := NewPostgresUsersRepository(db)

	mock.ExpectQuery(`FROM users WHERE role = ANY\(\$1\) AND \(full_name ILIKE \$2 OR email ILIKE \$2\) ORDER BY user_id`).
		WithArgs(pq.Array([]string{"Manager", "Tenant"}), "%ann%").
		WillReturnRows(sqlmock.NewRows([]string{"user_id", "full_name", "email", "password_hash", "role", "created_at"}).
			AddRow(int64(2), "Anna Manager", "anna@rent.com", []byte("h"), "Manager", time.Now()))

	users, err := repo.ListUsers(context.Background(), UserFilters{
		Roles:  []domain.Role{domain.RoleManager, domain.RoleTenant},
		Search: " ann ",
	})
	require.NoError(t, err)
	require.Len(t, users, 1)
	assert.Equal(t, domain.RoleManager, users[0].Role)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateUser_DuplicateEmail(t *testing.T) {
	db, mock := setupMockDB(t)
	repo := NewPostgresUsersRepository(db)

	mock.ExpectQuery(`INSERT INTO users`).
		WithArgs("Dup", "dup@rent.com", []byte("h"), "Tenant").
		WillReturnError(&pq.Error{Code: "23505", Constraint: "users_email_key"})

	_, err := repo.CreateUser(context.Background(), &domain.User{
		FullName: "Dup", Email: "dup@rent.com", PasswordHash: []byte("h"), Role: domain.RoleTenant,
	})
	assert.ErrorIs(t, err, domain.ErrDuplicateEmail)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateUser_RequiresHash(t *testing.T) {
	db, _ := setupMockDB(t)
	repo := NewPostgresUsersRepository(db)

	_, err := repo.CreateUser(context.Background(), &domain.User{Email: "x@rent.com", Role: domain.RoleTenant})
	assert.ErrorIs(t, err, domain.ErrValidation)
}

func TestDeleteUser_RestrictViolation(t *testing.T) {
	db, mock := setupMockDB(t)
	repo := NewPostgresUsersRepository(db)

	mock.ExpectExec(`DELETE FROM users WHERE user_id = \$1`).
		WithArgs(int64(4)).
		WillReturnError(&pq.Error{Code: "23503", Constraint: "appointments_tenant_id_fkey"})

	err := repo.DeleteUser(context.Background(), 4)
	require.Error(t, err)
	assert.True(t, IsForeignKeyViolation(err))
	require.NoError(t, mock.ExpectationsWereMet())
}

// ============================================
// properties
// ============================================

func TestCreateProperty_MissingOwner(t *testing.T) {
	db, mock := setupMockDB(t)
	repo := NewPostgresPropertiesRepository(db)

	mock.ExpectQuery(`INSERT INTO properties`).
		WithArgs("Tower", "1 Main", "Montréal", int64(42)).
		WillReturnError(&pq.Error{Code: "23503"})

	_, err := repo.CreateProperty(context.Background(), &domain.Property{
		Name: "Tower", Address: "1 Main", City: "Montréal", OwnerID: 42,
	})
	assert.ErrorIs(t, err, domain.ErrOwnerNotFound)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestContainsPattern_EscapesWildcards(t *testing.T) {
	assert.Equal(t, "%ann%", containsPattern("ann"))
	assert.Equal(t, `%50\%\_off%`, containsPattern("50%_off"))
	assert.Equal(t, `%a\\b%`, containsPattern(`a\b`))
}

func TestListProperties_SearchIsLiteral(t *testing.T) {
	db, mock := setupMockDB(t)
	repo := NewPostgresPropertiesRepository(db)

	mock.ExpectQuery(`FROM properties WHERE \(name ILIKE \$1 OR address ILIKE \$1 OR city ILIKE \$1\) ORDER BY property_id`).
		WithArgs(`%\%%`).
		WillReturnRows(sqlmock.NewRows([]string{"property_id", "name", "address", "city", "owner_id", "version"}))

	props, err := repo.ListProperties(context.Background(), PropertyFilters{Search: "%"})
	require.NoError(t, err)
	assert.Empty(t, props)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestListUsers_SearchEscapesUnderscore(t *testing.T) {
	db, mock := setupMockDB(t)
	repo := NewPostgresUsersRepository(db)

	mock.ExpectQuery(`FROM users WHERE \(full_name ILIKE \$1 OR email ILIKE \$1\) ORDER BY user_id`).
		WithArgs(`%a\_b%`).
		WillReturnRows(sqlmock.NewRows([]string{"user_id", "full_name", "email", "password_hash", "role", "created_at"}))

	users, err := repo.ListUsers(context.Background(), UserFilters{Search: "a_b"})
	require.NoError(t, err)
	assert.Empty(t, users)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestUpdateProperty_Success(t *testing.T) {
	db, mock := setupMockDB(t)
	repo := NewPostgresPropertiesRepository(db)

	mock.ExpectQuery(`UPDATE properties\s+SET .* version = version \+ 1\s+WHERE property_id = \$1 AND version = \$6\s+RETURNING version`).
		WithArgs(int64(7), "New", "Addr", "Laval", int64(1), int64(3)).
		WillReturnRows(sqlmock.NewRows([]string{"version"}).AddRow(int64(4)))

	p := &domain.Property{ID: 7, Name: "New", Address: "Addr", City: "Laval", OwnerID: 1}
	v, err := repo.UpdateProperty(context.Background(), p, 3)
	require.NoError(t, err)
	assert.Equal(t, int64(4), v)
	assert.Equal(t, int64(4), p.Version)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestUpdateProperty_VersionConflict(t *testing.T) {
	db, mock := setupMockDB(t)
	repo := NewPostgresPropertiesRepository(db)

	mock.ExpectQuery(`UPDATE properties`).
		WithArgs(int64(7), "New", "Addr", "Laval", int64(1), int64(3)).
		WillReturnRows(sqlmock.NewRows([]string{"version"}))

	_, err := repo.UpdateProperty(context.Background(),
		&domain.Property{ID: 7, Name: "New", Address: "Addr", City: "Laval", OwnerID: 1}, 3)
	assert.ErrorIs(t, err, domain.ErrConcurrentModification)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestDeleteProperty_NotFound(t *testing.T) {
	db, mock := setupMockDB(t)
	repo := NewPostgresPropertiesRepository(db)

	mock.ExpectExec(`DELETE FROM properties WHERE property_id = \$1`).
		WithArgs(int64(5)).
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.DeleteProperty(context.Background(), 5)
	assert.ErrorIs(t, err, domain.ErrPropertyNotFound)
	require.NoError(t, mock.ExpectationsWereMet())
}

// ============================================
// apartments
// ============================================

func TestListApartments_AllFilters(t *testing.T) {
	db, mock := setupMockDB(t)
	repo := NewPostgresApartmentsRepository(db)

	propertyID := int64(1)
	minRent, maxRent := domain.MustMoney("2000"), domain.MustMoney("4000")

	mock.ExpectQuery(`WHERE a.property_id = \$1 AND a.status = \$2 AND \(p.name ILIKE \$3 OR p.city ILIKE \$3\) AND a.rent >= \$4 AND a.rent <= \$5 ORDER BY a.apartment_id`).
		WithArgs(int64(1), "Available", "%montr%", "2000.00", "4000.00").
		WillReturnRows(sqlmock.NewRows([]string{"apartment_id", "number", "rent", "status", "property_id", "version", "name", "city"}).
			AddRow(int64(1), "101", "2500.00", "Available", int64(1), int64(1), "Executive Tower One", "Montréal").
			AddRow(int64(2), "202", []byte("3500.00"), "Available", int64(1), int64(2), "Executive Tower One", "Montréal"))

	apartments, err := repo.ListApartments(context.Background(), ApartmentFilters{
		PropertyID: &propertyID,
		Status:     domain.StatusAvailable,
		Search:     "montr",
		MinRent:    &minRent,
		MaxRent:    &maxRent,
	})
	require.NoError(t, err)
	require.Len(t, apartments, 2)
	assert.Equal(t, domain.MustMoney("2500"), apartments[0].Rent)
	assert.Equal(t, domain.MustMoney("3500"), apartments[1].Rent)
	assert.Equal(t, "Executive Tower One", apartments[1].PropertyName)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateApartment_DuplicateNumber(t *testing.T) {
	db, mock := setupMockDB(t)
	repo := NewPostgresApartmentsRepository(db)

	mock.ExpectQuery(`INSERT INTO apartments`).
		WithArgs("101", "2500.00", "Available", int64(1)).
		WillReturnError(&pq.Error{Code: "23505", Constraint: "apartments_property_id_number_key"})

	_, err := repo.CreateApartment(context.Background(), &domain.Apartment{
		Number: "101", Rent: domain.MustMoney("2500"), Status: domain.StatusAvailable, PropertyID: 1,
	})
	assert.ErrorIs(t, err, domain.ErrDuplicateUnitNumber)
	assert.ErrorIs(t, err, domain.ErrValidation)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestUpdateApartment_VersionConflict(t *testing.T) {
	db, mock := setupMockDB(t)
	repo := NewPostgresApartmentsRepository(db)

	mock.ExpectQuery(`UPDATE apartments\s+SET number = \$2, rent = \$3, status = \$4, version = version \+ 1`).
		WithArgs(int64(3), "303", "4600.00", "Rented", int64(1)).
		WillReturnError(sql.ErrNoRows)

	_, err := repo.UpdateApartment(context.Background(), &domain.Apartment{
		ID: 3, Number: "303", Rent: domain.MustMoney("4600"), Status: domain.StatusRented,
	}, 1)
	assert.ErrorIs(t, err, domain.ErrConcurrentModification)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSetApartmentStatus_NotFound(t *testing.T) {
	db, mock := setupMockDB(t)
	repo := NewPostgresApartmentsRepository(db)

	mock.ExpectExec(`UPDATE apartments SET status = \$2, version = version \+ 1 WHERE apartment_id = \$1`).
		WithArgs(int64(9), "Rented").
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.SetApartmentStatus(context.Background(), 9, domain.StatusRented)
	assert.ErrorIs(t, err, domain.ErrApartmentNotFound)
	require.NoError(t, mock.ExpectationsWereMet())
}

// ============================================
// appointments
// ============================================

func TestDeleteByProperty_RemovesThroughApartments(t *testing.T) {
	db, mock := setupMockDB(t)
	repo := NewPostgresAppointmentsRepository(db)

	mock.ExpectExec(`DELETE FROM appointments\s+WHERE apartment_id IN \(SELECT apartment_id FROM apartments WHERE property_id = \$1\)`).
		WithArgs(int64(2)).
		WillReturnResult(sqlmock.NewResult(0, 3))

	n, err := repo.DeleteByProperty(context.Background(), 2)
	require.NoError(t, err)
	assert.Equal(t, int64(3), n)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestListAppointments_OrderedByDate(t *testing.T) {
	db, mock := setupMockDB(t)
	repo := NewPostgresAppointmentsRepository(db)
	day := time.Date(2030, 5, 1, 10, 0, 0, 0, time.UTC)

	mock.ExpectQuery(`FROM appointments WHERE manager_id = \$1 ORDER BY appointment_date, appointment_id`).
		WithArgs(int64(2)).
		WillReturnRows(sqlmock.NewRows([]string{"appointment_id", "appointment_date", "notes", "tenant_id", "manager_id", "apartment_id", "is_confirmed"}).
			AddRow(int64(1), day, "", int64(3), int64(2), int64(1), false).
			AddRow(int64(2), day.Add(time.Hour), "bring ID", int64(3), int64(2), int64(1), true))

	list, err := repo.ListAppointments(context.Background(), AppointmentFilters{ManagerID: 2})
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, domain.AppointmentPending, list[0].State())
	assert.Equal(t, domain.AppointmentConfirmed, list[1].State())
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestReschedule_ClearsConfirmation(t *testing.T) {
	db, mock := setupMockDB(t)
	repo := NewPostgresAppointmentsRepository(db)
	when := time.Date(2030, 6, 1, 9, 0, 0, 0, time.UTC)

	mock.ExpectExec(`UPDATE appointments SET appointment_date = \$2, is_confirmed = FALSE WHERE appointment_id = \$1`).
		WithArgs(int64(1), when).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, repo.Reschedule(context.Background(), 1, when))
	require.NoError(t, mock.ExpectationsWereMet())
}

// ============================================
// messages
// ============================================

func TestListMessages_NullableProperty(t *testing.T) {
	db, mock := setupMockDB(t)
	repo := NewPostgresMessagesRepository(db)
	now := time.Now().UTC()

	mock.ExpectQuery(`FROM messages WHERE receiver_id = \$1 AND is_read = FALSE ORDER BY sent_at DESC, message_id DESC`).
		WithArgs(int64(1)).
		WillReturnRows(sqlmock.NewRows([]string{"message_id", "content", "sent_at", "sender_id", "receiver_id", "property_id", "is_read", "is_report"}).
			AddRow(int64(2), "hi", now, int64(3), int64(1), nil, false, false).
			AddRow(int64(1), "about 101", now.Add(-time.Minute), int64(3), int64(1), int64(1), false, false))

	msgs, err := repo.ListMessages(context.Background(), MessageFilters{ReceiverID: 1, UnreadOnly: true})
	require.NoError(t, err)
	require.Len(t, msgs, 2)
	assert.Nil(t, msgs[0].PropertyID)
	require.NotNil(t, msgs[1].PropertyID)
	assert.Equal(t, int64(1), *msgs[1].PropertyID)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestListMessages_ReportsOnly(t *testing.T) {
	db, mock := setupMockDB(t)
	repo := NewPostgresMessagesRepository(db)
	now := time.Now().UTC()

	mock.ExpectQuery(`FROM messages WHERE receiver_id = \$1 AND is_report = TRUE ORDER BY sent_at DESC, message_id DESC`).
		WithArgs(int64(1)).
		WillReturnRows(sqlmock.NewRows([]string{"message_id", "content", "sent_at", "sender_id", "receiver_id", "property_id", "is_read", "is_report"}).
			AddRow(int64(4), domain.ReportPrefix+"leak", now, int64(2), int64(1), nil, false, true))

	msgs, err := repo.ListMessages(context.Background(), MessageFilters{ReceiverID: 1, ReportsOnly: true})
	require.NoError(t, err)
	require.Len(t, msgs, 1)
	assert.True(t, msgs[0].IsReport())
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateMessage_PersistsReportFlag(t *testing.T) {
	db, mock := setupMockDB(t)
	repo := NewPostgresMessagesRepository(db)
	now := time.Now().UTC()

	mock.ExpectQuery(`INSERT INTO messages \(content, sent_at, sender_id, receiver_id, property_id, is_read, is_report\)`).
		WithArgs(domain.ReportPrefix+"leak", now, int64(2), int64(1), nil, false, true).
		WillReturnRows(sqlmock.NewRows([]string{"message_id"}).AddRow(int64(9)))

	id, err := repo.CreateMessage(context.Background(), &domain.Message{
		Content: domain.ReportPrefix + "leak", Timestamp: now, SenderID: 2, ReceiverID: 1, Report: true,
	})
	require.NoError(t, err)
	assert.Equal(t, int64(9), id)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestClearProperty(t *testing.T) {
	db, mock := setupMockDB(t)
	repo := NewPostgresMessagesRepository(db)

	mock.ExpectExec(`UPDATE messages SET property_id = NULL WHERE property_id = \$1`).
		WithArgs(int64(1)).
		WillReturnResult(sqlmock.NewResult(0, 2))

	n, err := repo.ClearProperty(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)
	require.NoError(t, mock.ExpectationsWereMet())
}

// ============================================
// store
// ============================================

func TestPostgresStore_WithinTxCommits(t *testing.T) {
	db, mock := setupMockDB(t)
	store := NewPostgresStore(db)

	mock.ExpectBegin()
	mock.ExpectExec(`UPDATE messages SET is_read = TRUE`).WithArgs(int64(1)).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	err := store.WithinTx(context.Background(), func(tx Repos) error {
		return tx.Messages().MarkRead(context.Background(), 1)
	})
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_WithinTxRollsBack(t *testing.T) {
	db, mock := setupMockDB(t)
	store := NewPostgresStore(db)
	boom := errors.New("boom")

	mock.ExpectBegin()
	mock.ExpectExec(`UPDATE messages SET is_read = TRUE`).WithArgs(int64(1)).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectRollback()

	err := store.WithinTx(context.Background(), func(tx Repos) error {
		if err := tx.Messages().MarkRead(context.Background(), 1); err != nil {
			return err
		}
		return boom
	})
	assert.ErrorIs(t, err, boom)
	require.NoError(t, mock.ExpectationsWereMet())
}
