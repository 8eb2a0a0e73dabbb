package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
)

// PostgresStore implements Store on lib/pq. Repositories returned by the
// accessor methods run on the pool; those handed to WithinTx run on the tx.
type PostgresStore struct {
	db *sql.DB
	postgresRepos
}

var _ Store = (*PostgresStore)(nil)

func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db, postgresRepos: newPostgresRepos(db)}
}

func (s *PostgresStore) WithinTx(ctx context.Context, fn func(tx Repos) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if err := fn(newPostgresRepos(tx)); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

type postgresRepos struct {
	users        *PostgresUsersRepository
	properties   *PostgresPropertiesRepository
	apartments   *PostgresApartmentsRepository
	appointments *PostgresAppointmentsRepository
	messages     *PostgresMessagesRepository
}

func newPostgresRepos(db DBTX) postgresRepos {
	return postgresRepos{
		users:        NewPostgresUsersRepository(db),
		properties:   NewPostgresPropertiesRepository(db),
		apartments:   NewPostgresApartmentsRepository(db),
		appointments: NewPostgresAppointmentsRepository(db),
		messages:     NewPostgresMessagesRepository(db),
	}
}

func (r postgresRepos) Users() UsersRepository               { return r.users }
func (r postgresRepos) Properties() PropertiesRepository     { return r.properties }
func (r postgresRepos) Apartments() ApartmentsRepository     { return r.apartments }
func (r postgresRepos) Appointments() AppointmentsRepository { return r.appointments }
func (r postgresRepos) Messages() MessagesRepository         { return r.messages }

type rowScanner interface {
	Scan(dest ...any) error
}

func rowsAffected(res sql.Result) (int64, error) {
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get rows affected: %w", err)
	}
	return n, nil
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// containsPattern builds an ILIKE argument matching s literally anywhere in
// the column. Backslash is the default LIKE escape character in PostgreSQL.
func containsPattern(s string) string {
	return "%" + likeEscaper.Replace(s) + "%"
}
