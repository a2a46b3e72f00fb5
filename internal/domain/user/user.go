package user

import (
	"context"
	"errors"
	"time"
)

// Role represents what a user is allowed to do
type Role string

const (
	RoleCustomer Role = "customer"
	RoleRider    Role = "rider"
	RoleAdmin    Role = "admin"
)

// IsValid checks if the role is one of the fixed values
func (r Role) IsValid() bool {
	switch r {
	case RoleCustomer, RoleRider, RoleAdmin:
		return true
	}
	return false
}

// User is a customer, rider or admin account
type User struct {
	ID           int64     `json:"id" db:"id"`
	Name         string    `json:"name" db:"name"`
	Email        string    `json:"email" db:"email"`
	Phone        *string   `json:"phone" db:"phone"`
	PasswordHash *string   `json:"-" db:"password_hash"`
	Role         Role      `json:"role" db:"role"`
	CreatedAt    time.Time `json:"created_at" db:"created_at"`
	UpdatedAt    time.Time `json:"updated_at" db:"updated_at"`
}

// Repository defines the interface for user data access
type Repository interface {
	// FindOrCreate returns the id of the user with email, inserting a customer if absent
	FindOrCreate(ctx context.Context, name, email string, phone *string) (int64, error)

	Create(ctx context.Context, u *User) error
	GetByID(ctx context.Context, id int64) (*User, error)
	List(ctx context.Context) ([]*User, error)

	// ListByRole returns users with the role ordered by name
	ListByRole(ctx context.Context, role Role) ([]*User, error)

	UpdateRole(ctx context.Context, id int64, role Role) (*User, error)

	// Delete removes a user that no delivery references
	Delete(ctx context.Context, id int64) error
}

var (
	ErrUserNotFound      = errors.New("user not found")
	ErrDuplicateEmail    = errors.New("email already registered")
	ErrUserHasDeliveries = errors.New("user has deliveries")
)
