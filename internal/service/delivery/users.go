package delivery

import (
	"context"
	"strings"

	"github.com/mugz-josh/Deliverieseasy/internal/domain/user"
	apperrors "github.com/mugz-josh/Deliverieseasy/pkg/errors"
	"github.com/mugz-josh/Deliverieseasy/pkg/logger"
	"golang.org/x/crypto/bcrypt"
)

// CreateUserInput carries an admin created account
type CreateUserInput struct {
	Name     string
	Email    string
	Phone    string
	Password string
	Role     string
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func optional(s string) *string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	return &s
}

// FindOrCreateCustomer returns the id of the user registered under email,
// creating a customer when none exists. Concurrent calls for one email
// resolve to a single user.
func (s *Service) FindOrCreateCustomer(ctx context.Context, name, email string, phone *string) (int64, error) {
	name = strings.TrimSpace(name)
	email = normalizeEmail(email)
	if name == "" || email == "" {
		return 0, apperrors.Validation("Name and email are required", nil)
	}
	if !validEmail(email) {
		return 0, apperrors.Validation("Invalid email address", nil)
	}
	if phone != nil {
		phone = optional(*phone)
	}

	id, err := s.users.FindOrCreate(ctx, name, email, phone)
	if err != nil {
		return 0, mapError(err)
	}
	return id, nil
}

// CreateUser registers an account directly, hashing the password if given
func (s *Service) CreateUser(ctx context.Context, in CreateUserInput) (*user.User, error) {
	name := strings.TrimSpace(in.Name)
	email := normalizeEmail(in.Email)
	if name == "" || email == "" {
		return nil, apperrors.Validation("Name and email are required", nil)
	}
	if !validEmail(email) {
		return nil, apperrors.Validation("Invalid email address", nil)
	}

	role := user.Role(in.Role)
	if role == "" {
		role = user.RoleCustomer
	}
	if !role.IsValid() {
		return nil, apperrors.Validation("Invalid role", nil)
	}

	u := &user.User{
		Name:  name,
		Email: email,
		Phone: optional(in.Phone),
		Role:  role,
	}
	if in.Password != "" {
		hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), bcrypt.DefaultCost)
		if err != nil {
			return nil, apperrors.Validation("Password cannot be used", err)
		}
		h := string(hash)
		u.PasswordHash = &h
	}

	if err := s.users.Create(ctx, u); err != nil {
		return nil, mapError(err)
	}

	s.logger.Info("User created",
		logger.UserID(u.ID),
		logger.String("role", string(u.Role)),
	)
	return u, nil
}

func (s *Service) ListUsers(ctx context.Context) ([]*user.User, error) {
	users, err := s.users.List(ctx)
	if err != nil {
		return nil, mapError(err)
	}
	return users, nil
}

func (s *Service) GetUser(ctx context.Context, id int64) (*user.User, error) {
	u, err := s.users.GetByID(ctx, id)
	if err != nil {
		return nil, mapError(err)
	}
	return u, nil
}

// ListRiders returns users with the rider role ordered by name
func (s *Service) ListRiders(ctx context.Context) ([]*user.User, error) {
	riders, err := s.users.ListByRole(ctx, user.RoleRider)
	if err != nil {
		return nil, mapError(err)
	}
	return riders, nil
}

func (s *Service) UpdateUserRole(ctx context.Context, id int64, role string) (*user.User, error) {
	r := user.Role(role)
	if !r.IsValid() {
		return nil, apperrors.Validation("Invalid role", nil)
	}

	u, err := s.users.UpdateRole(ctx, id, r)
	if err != nil {
		return nil, mapError(err)
	}

	s.logger.Info("User role updated",
		logger.UserID(id),
		logger.String("role", role),
	)
	return u, nil
}

// DeleteUser removes a user no delivery refers to
func (s *Service) DeleteUser(ctx context.Context, id int64) error {
	if err := s.users.Delete(ctx, id); err != nil {
		return mapError(err)
	}
	s.logger.Info("User deleted", logger.UserID(id))
	return nil
}
