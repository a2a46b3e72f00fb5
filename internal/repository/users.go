package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/mugz-josh/Deliverieseasy/internal/domain/user"
	"github.com/mugz-josh/Deliverieseasy/pkg/database"
)

var userColumns = []string{
	"id", "name", "email", "phone", "password_hash", "role", "created_at", "updated_at",
}

// UserRepository stores users through the database gateway
type UserRepository struct {
	db *database.DB
}

var _ user.Repository = (*UserRepository)(nil)

// NewUserRepository creates a user repository
func NewUserRepository(db *database.DB) *UserRepository {
	return &UserRepository{db: db}
}

// FindOrCreate upserts on the unique email so concurrent bookings for the
// same address resolve to one row.
func (r *UserRepository) FindOrCreate(ctx context.Context, name, email string, phone *string) (int64, error) {
	now := time.Now().UTC()
	var id int64
	err := r.db.Get(ctx, &id, sq.Insert("users").
		Columns("name", "email", "phone", "role", "created_at", "updated_at").
		Values(name, email, phone, user.RoleCustomer, now, now).
		Suffix("ON CONFLICT (email) DO UPDATE SET email = excluded.email RETURNING id"))
	if err != nil {
		return 0, fmt.Errorf("find or create user: %w", err)
	}
	return id, nil
}

func (r *UserRepository) Create(ctx context.Context, u *user.User) error {
	now := time.Now().UTC()
	u.CreatedAt, u.UpdatedAt = now, now

	err := r.db.Get(ctx, &u.ID, sq.Insert("users").
		Columns("name", "email", "phone", "password_hash", "role", "created_at", "updated_at").
		Values(u.Name, u.Email, u.Phone, u.PasswordHash, u.Role, now, now).
		Suffix("RETURNING id"))
	if err != nil {
		if database.IsUniqueViolation(err) {
			return user.ErrDuplicateEmail
		}
		return fmt.Errorf("create user: %w", err)
	}
	return nil
}

func (r *UserRepository) GetByID(ctx context.Context, id int64) (*user.User, error) {
	return getUser(ctx, r.db, id)
}

func getUser(ctx context.Context, run database.Runner, id int64) (*user.User, error) {
	var u user.User
	err := run.Get(ctx, &u, sq.Select(userColumns...).From("users").Where(sq.Eq{"id": id}))
	if errors.Is(err, database.ErrNoRows) {
		return nil, user.ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get user %d: %w", id, err)
	}
	return &u, nil
}

func (r *UserRepository) List(ctx context.Context) ([]*user.User, error) {
	users := []*user.User{}
	err := r.db.Select(ctx, &users, sq.Select(userColumns...).From("users").OrderBy("created_at DESC", "id DESC"))
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	return users, nil
}

func (r *UserRepository) ListByRole(ctx context.Context, role user.Role) ([]*user.User, error) {
	users := []*user.User{}
	err := r.db.Select(ctx, &users, sq.Select(userColumns...).
		From("users").
		Where(sq.Eq{"role": role}).
		OrderBy("name", "id"))
	if err != nil {
		return nil, fmt.Errorf("list users by role: %w", err)
	}
	return users, nil
}

func (r *UserRepository) UpdateRole(ctx context.Context, id int64, role user.Role) (*user.User, error) {
	res, err := r.db.Exec(ctx, sq.Update("users").
		Set("role", role).
		Set("updated_at", time.Now().UTC()).
		Where(sq.Eq{"id": id}))
	if err != nil {
		return nil, fmt.Errorf("update user role: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return nil, user.ErrUserNotFound
	}
	return r.GetByID(ctx, id)
}

// Delete refuses while any delivery references the user as customer or rider.
func (r *UserRepository) Delete(ctx context.Context, id int64) error {
	return r.db.WithTx(ctx, func(tx *database.Tx) error {
		var refs int
		err := tx.Get(ctx, &refs, sq.Select("COUNT(*)").
			From("deliveries").
			Where(sq.Or{sq.Eq{"customer_id": id}, sq.Eq{"rider_id": id}}))
		if err != nil {
			return fmt.Errorf("count user deliveries: %w", err)
		}
		if refs > 0 {
			if _, err := getUser(ctx, tx, id); err != nil {
				return err
			}
			return user.ErrUserHasDeliveries
		}

		res, err := tx.Exec(ctx, sq.Delete("users").Where(sq.Eq{"id": id}))
		if err != nil {
			if database.IsForeignKeyViolation(err) {
				return user.ErrUserHasDeliveries
			}
			return fmt.Errorf("delete user: %w", err)
		}
		if n, err := res.RowsAffected(); err == nil && n == 0 {
			return user.ErrUserNotFound
		}
		return nil
	})
}
