package repository

import (
	"context"

	"rentflow/internal/domain"
)

// UsersRepository is the data access for users. Uniqueness of email is
// enforced by the store (users_email_key), not by callers.
type UsersRepository interface {
	GetUser(ctx context.Context, userID int64) (*domain.User, error)
	GetUserByEmail(ctx context.Context, email string) (*domain.User, error)
	ListUsers(ctx context.Context, filters UserFilters) ([]*domain.User, error)
	CreateUser(ctx context.Context, user *domain.User) (int64, error)
	UpdateUser(ctx context.Context, user *domain.User) error
	DeleteUser(ctx context.Context, userID int64) error
}

// UserFilters narrows ListUsers. An empty Roles slice means all roles.
type UserFilters struct {
	Roles  []domain.Role
	Search string // full_name or email, case-insensitive
}
