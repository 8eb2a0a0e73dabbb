package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"rentflow/internal/domain"

	"github.com/lib/pq"
)

const usersEmailKey = "users_email_key"

// PostgresUsersRepository implements UsersRepository.
type PostgresUsersRepository struct {
	db DBTX
}

func NewPostgresUsersRepository(db DBTX) *PostgresUsersRepository {
	return &PostgresUsersRepository{db: db}
}

var _ UsersRepository = (*PostgresUsersRepository)(nil)

const userColumns = `user_id, full_name, email, password_hash, role, created_at`

func scanUser(row rowScanner) (*domain.User, error) {
	var u domain.User
	var role string
	if err := row.Scan(&u.ID, &u.FullName, &u.Email, &u.PasswordHash, &role, &u.CreatedAt); err != nil {
		return nil, err
	}
	u.Role = domain.Role(role)
	return &u, nil
}

func (r *PostgresUsersRepository) GetUser(ctx context.Context, userID int64) (*domain.User, error) {
	if userID <= 0 {
		return nil, fmt.Errorf("%w: user_id=%d", domain.ErrUserNotFound, userID)
	}
	u, err := scanUser(r.db.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE user_id = $1`, userID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: user_id=%d", domain.ErrUserNotFound, userID)
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return u, nil
}

func (r *PostgresUsersRepository) GetUserByEmail(ctx context.Context, email string) (*domain.User, error) {
	u, err := scanUser(r.db.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE email = $1`, email))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: email=%s", domain.ErrUserNotFound, email)
		}
		return nil, fmt.Errorf("failed to get user by email: %w", err)
	}
	return u, nil
}

func (r *PostgresUsersRepository) ListUsers(ctx context.Context, filters UserFilters) ([]*domain.User, error) {
	where := []string{}
	args := []any{}
	argIdx := 1

	if len(filters.Roles) > 0 {
		roles := make([]string, 0, len(filters.Roles))
		for _, role := range filters.Roles {
			roles = append(roles, string(role))
		}
		where = append(where, fmt.Sprintf("role = ANY($%d)", argIdx))
		args = append(args, pq.Array(roles))
		argIdx++
	}
	if s := strings.TrimSpace(filters.Search); s != "" {
		where = append(where, fmt.Sprintf("(full_name ILIKE $%d OR email ILIKE $%d)", argIdx, argIdx))
		args = append(args, containsPattern(s))
		argIdx++
	}

	whereClause := ""
	if len(where) > 0 {
		whereClause = "WHERE " + strings.Join(where, " AND ")
	}

	rows, err := r.db.QueryContext(ctx,
		fmt.Sprintf(`SELECT %s FROM users %s ORDER BY user_id`, userColumns, whereClause), args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}
	defer rows.Close()

	users := []*domain.User{}
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan user: %w", err)
		}
		users = append(users, u)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate users: %w", err)
	}
	return users, nil
}

func (r *PostgresUsersRepository) CreateUser(ctx context.Context, user *domain.User) (int64, error) {
	if user == nil {
		return 0, fmt.Errorf("user is required")
	}
	if len(user.PasswordHash) == 0 {
		return 0, fmt.Errorf("%w: password_hash is required", domain.ErrValidation)
	}

	var id int64
	err := r.db.QueryRowContext(ctx,
		`INSERT INTO users (full_name, email, password_hash, role)
		 VALUES ($1, $2, $3, $4)
		 RETURNING user_id, created_at`,
		user.FullName, user.Email, user.PasswordHash, string(user.Role),
	).Scan(&id, &user.CreatedAt)
	if err != nil {
		if isUniqueViolation(err, usersEmailKey) {
			return 0, fmt.Errorf("%w: %s", domain.ErrDuplicateEmail, user.Email)
		}
		return 0, fmt.Errorf("failed to create user: %w", err)
	}
	user.ID = id
	return id, nil
}

func (r *PostgresUsersRepository) UpdateUser(ctx context.Context, user *domain.User) error {
	if user == nil {
		return fmt.Errorf("user is required")
	}
	res, err := r.db.ExecContext(ctx,
		`UPDATE users
		 SET full_name = $2, email = $3, password_hash = $4, role = $5
		 WHERE user_id = $1`,
		user.ID, user.FullName, user.Email, user.PasswordHash, string(user.Role),
	)
	if err != nil {
		if isUniqueViolation(err, usersEmailKey) {
			return fmt.Errorf("%w: %s", domain.ErrDuplicateEmail, user.Email)
		}
		return fmt.Errorf("failed to update user: %w", err)
	}
	n, err := rowsAffected(res)
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("%w: user_id=%d", domain.ErrUserNotFound, user.ID)
	}
	return nil
}

func (r *PostgresUsersRepository) DeleteUser(ctx context.Context, userID int64) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM users WHERE user_id = $1`, userID)
	if err != nil {
		return fmt.Errorf("failed to delete user: %w", err)
	}
	n, err := rowsAffected(res)
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("%w: user_id=%d", domain.ErrUserNotFound, userID)
	}
	return nil
}
