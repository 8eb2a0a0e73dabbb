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

// IdentityService is the user directory: lookup, accounts, credentials
// and Owner-protected administration.
type IdentityService interface {
	FindByEmail(ctx context.Context, email string) (*domain.User, error)
	VerifyCredential(user *domain.User, secret string) bool
	CreateAccount(ctx context.Context, fullName, email, secret string, role domain.Role) (*domain.User, error)
	HasRole(user *domain.User, role domain.Role) bool

	Register(ctx context.Context, fullName, email, secret string) (*domain.User, error)
	Authenticate(ctx context.Context, email, secret string) (*domain.User, error)

	ListStaff(ctx context.Context, search string) ([]*domain.User, error)
	GetUser(ctx context.Context, userID int64) (*domain.User, error)
	AdminCreateUser(ctx context.Context, req CreateUserRequest) (*domain.User, error)
	AdminUpdateUser(ctx context.Context, userID int64, patch UserPatch) (*domain.User, error)
	AdminDeleteUser(ctx context.Context, userID int64) error
}

type CreateUserRequest struct {
	FullName string
	Email    string
	Secret   string
	Role     domain.Role
}

// UserPatch carries the fields to change; nil leaves a field as is.
type UserPatch struct {
	FullName *string
	Email    *string
	Secret   *string
	Role     *domain.Role
}

type identityService struct {
	store     repository.Store
	verifier  CredentialVerifier
	clock     Clock
	publisher events.Publisher
	logger    *zap.Logger
}

func NewIdentityService(store repository.Store, verifier CredentialVerifier, clock Clock, publisher events.Publisher, logger *zap.Logger) IdentityService {
	return &identityService{
		store:     store,
		verifier:  verifier,
		clock:     clock,
		publisher: publisher,
		logger:    logger,
	}
}

func (s *identityService) FindByEmail(ctx context.Context, email string) (*domain.User, error) {
	return s.store.Users().GetUserByEmail(ctx, strings.TrimSpace(email))
}

func (s *identityService) VerifyCredential(user *domain.User, secret string) bool {
	if user == nil {
		return false
	}
	return s.verifier.Verify(user.PasswordHash, secret)
}

func (s *identityService) HasRole(user *domain.User, role domain.Role) bool {
	return user.HasRole(role)
}

// CreateAccount validates, hashes the secret and inserts the user. The
// email pre-check only gives an early answer; users_email_key decides races.
func (s *identityService) CreateAccount(ctx context.Context, fullName, email, secret string, role domain.Role) (*domain.User, error) {
	fullName = strings.TrimSpace(fullName)
	email = strings.TrimSpace(email)

	if err := requireText("full_name", fullName, domain.MaxFullNameLen); err != nil {
		return nil, err
	}
	if err := validateEmail(email); err != nil {
		return nil, err
	}
	if secret == "" {
		return nil, fmt.Errorf("%w: password is required", domain.ErrValidation)
	}
	if !role.Valid() {
		return nil, fmt.Errorf("%w: unknown role %q", domain.ErrValidation, role)
	}

	if _, err := s.store.Users().GetUserByEmail(ctx, email); err == nil {
		return nil, fmt.Errorf("%w: %s", domain.ErrDuplicateEmail, email)
	} else if !errors.Is(err, domain.ErrUserNotFound) {
		return nil, fmt.Errorf("failed to check email: %w", err)
	}

	hash, err := s.verifier.Hash(secret)
	if err != nil {
		return nil, err
	}
	user := &domain.User{FullName: fullName, Email: email, PasswordHash: hash, Role: role}
	if _, err := s.store.Users().CreateUser(ctx, user); err != nil {
		if errors.Is(err, domain.ErrDuplicateEmail) {
			return nil, err
		}
		s.logger.Error("CreateUser failed", zap.String("email", email), zap.Error(err))
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	s.logger.Info("User created", zap.Int64("user_id", user.ID), zap.String("role", string(role)))
	events.Emit(ctx, s.publisher, s.logger, events.New(events.UserCreated, user.ID, s.clock.Now(),
		map[string]any{"role": string(role)}))
	return user, nil
}

// Register is self-service sign-up; it always creates a Tenant.
func (s *identityService) Register(ctx context.Context, fullName, email, secret string) (*domain.User, error) {
	return s.CreateAccount(ctx, fullName, email, secret, domain.RoleTenant)
}

func (s *identityService) Authenticate(ctx context.Context, email, secret string) (*domain.User, error) {
	user, err := s.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			return nil, domain.ErrInvalidCredentials
		}
		return nil, err
	}
	if !s.VerifyCredential(user, secret) {
		s.logger.Warn("Authentication failed", zap.Int64("user_id", user.ID))
		return nil, domain.ErrInvalidCredentials
	}
	return user, nil
}

// ListStaff lists Managers and Tenants; Owners are not administrable.
func (s *identityService) ListStaff(ctx context.Context, search string) ([]*domain.User, error) {
	return s.store.Users().ListUsers(ctx, repository.UserFilters{
		Roles:  []domain.Role{domain.RoleManager, domain.RoleTenant},
		Search: search,
	})
}

func (s *identityService) GetUser(ctx context.Context, userID int64) (*domain.User, error) {
	return s.store.Users().GetUser(ctx, userID)
}

func (s *identityService) AdminCreateUser(ctx context.Context, req CreateUserRequest) (*domain.User, error) {
	if req.Role == domain.RoleOwner {
		return nil, domain.ErrOwnerProtected
	}
	return s.CreateAccount(ctx, req.FullName, req.Email, req.Secret, req.Role)
}

func (s *identityService) AdminUpdateUser(ctx context.Context, userID int64, patch UserPatch) (*domain.User, error) {
	if patch.Role != nil && *patch.Role == domain.RoleOwner {
		return nil, domain.ErrOwnerProtected
	}

	var updated *domain.User
	err := s.store.WithinTx(ctx, func(tx repository.Repos) error {
		user, err := tx.Users().GetUser(ctx, userID)
		if err != nil {
			return err
		}
		if user.Role == domain.RoleOwner {
			return domain.ErrOwnerProtected
		}

		if patch.FullName != nil {
			user.FullName = strings.TrimSpace(*patch.FullName)
			if err := requireText("full_name", user.FullName, domain.MaxFullNameLen); err != nil {
				return err
			}
		}
		if patch.Email != nil {
			user.Email = strings.TrimSpace(*patch.Email)
			if err := validateEmail(user.Email); err != nil {
				return err
			}
		}
		if patch.Role != nil {
			if !patch.Role.Valid() {
				return fmt.Errorf("%w: unknown role %q", domain.ErrValidation, *patch.Role)
			}
			user.Role = *patch.Role
		}
		if patch.Secret != nil {
			if *patch.Secret == "" {
				return fmt.Errorf("%w: password is required", domain.ErrValidation)
			}
			hash, err := s.verifier.Hash(*patch.Secret)
			if err != nil {
				return err
			}
			user.PasswordHash = hash
		}

		if err := tx.Users().UpdateUser(ctx, user); err != nil {
			return err
		}
		updated = user
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("User updated", zap.Int64("user_id", userID))
	events.Emit(ctx, s.publisher, s.logger, events.New(events.UserUpdated, userID, s.clock.Now(), nil))
	return updated, nil
}

// AdminDeleteUser removes a Manager or Tenant who no longer appears in any
// appointment or message.
func (s *identityService) AdminDeleteUser(ctx context.Context, userID int64) error {
	err := s.store.WithinTx(ctx, func(tx repository.Repos) error {
		user, err := tx.Users().GetUser(ctx, userID)
		if err != nil {
			return err
		}
		if user.Role == domain.RoleOwner {
			return domain.ErrOwnerProtected
		}

		appointments, err := tx.Appointments().CountByUser(ctx, userID)
		if err != nil {
			return err
		}
		messages, err := tx.Messages().CountByUser(ctx, userID)
		if err != nil {
			return err
		}
		if appointments > 0 || messages > 0 {
			return fmt.Errorf("%w: user_id=%d appointments=%d messages=%d",
				domain.ErrUserInUse, userID, appointments, messages)
		}

		if err := tx.Users().DeleteUser(ctx, userID); err != nil {
			if repository.IsForeignKeyViolation(err) {
				return fmt.Errorf("%w: %v", domain.ErrUserInUse, err)
			}
			return err
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, domain.ErrUserInUse) {
			s.logger.Warn("User delete blocked", zap.Int64("user_id", userID), zap.Error(err))
		}
		return err
	}

	s.logger.Info("User deleted", zap.Int64("user_id", userID))
	events.Emit(ctx, s.publisher, s.logger, events.New(events.UserDeleted, userID, s.clock.Now(), nil))
	return nil
}
