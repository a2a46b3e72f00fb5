package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/mugz-josh/Deliverieseasy/internal/domain/delivery"
	"github.com/mugz-josh/Deliverieseasy/internal/domain/user"
	"github.com/mugz-josh/Deliverieseasy/pkg/database"
)

// DeliveryRepository stores deliveries and their audit trail
type DeliveryRepository struct {
	db *database.DB
}

var _ delivery.Repository = (*DeliveryRepository)(nil)

// NewDeliveryRepository creates a delivery repository
func NewDeliveryRepository(db *database.DB) *DeliveryRepository {
	return &DeliveryRepository{db: db}
}

func selectDeliveries() sq.SelectBuilder {
	return sq.Select(
		"d.id", "d.customer_id", "d.rider_id",
		"d.pickup_address", "d.delivery_address", "d.package_description",
		"d.package_weight", "d.delivery_fee", "d.payment_method", "d.status",
		"d.current_location_lat", "d.current_location_lng",
		"d.estimated_delivery_time", "d.actual_delivery_time",
		"d.created_at", "d.updated_at",
		"c.name AS customer_name", "c.phone AS customer_phone",
		"r.name AS rider_name", "r.phone AS rider_phone",
	).
		From("deliveries d").
		LeftJoin("users c ON c.id = d.customer_id").
		LeftJoin("users r ON r.id = d.rider_id")
}

func insertLog(ctx context.Context, run database.Runner, deliveryID int64, old *delivery.Status, change delivery.StatusChange) error {
	var notes *string
	if change.Notes != "" {
		notes = &change.Notes
	}
	_, err := run.Exec(ctx, sq.Insert("delivery_logs").
		Columns("delivery_id", "old_status", "new_status", "changed_by", "notes", "created_at").
		Values(deliveryID, old, change.Status, change.ChangedBy, notes, change.At))
	if err != nil {
		return fmt.Errorf("write delivery log: %w", err)
	}
	return nil
}

// Create inserts d with status pending and records the creation in the
// audit trail within one transaction.
func (r *DeliveryRepository) Create(ctx context.Context, d *delivery.Delivery) error {
	now := time.Now().UTC()
	d.Status = delivery.StatusPending
	d.CreatedAt, d.UpdatedAt = now, now
	if d.PaymentMethod == "" {
		d.PaymentMethod = delivery.PaymentCash
	}

	return r.db.WithTx(ctx, func(tx *database.Tx) error {
		err := tx.Get(ctx, &d.ID, sq.Insert("deliveries").
			Columns(
				"customer_id", "pickup_address", "delivery_address", "package_description",
				"package_weight", "delivery_fee", "payment_method", "status",
				"estimated_delivery_time", "created_at", "updated_at",
			).
			Values(
				d.CustomerID, d.PickupAddress, d.DeliveryAddress, d.PackageDescription,
				d.PackageWeight, d.DeliveryFee, d.PaymentMethod, d.Status,
				d.EstimatedDeliveryTime, now, now,
			).
			Suffix("RETURNING id"))
		if err != nil {
			if database.IsForeignKeyViolation(err) {
				return delivery.ErrCustomerNotFound
			}
			return fmt.Errorf("create delivery: %w", err)
		}

		return insertLog(ctx, tx, d.ID, nil, delivery.StatusChange{
			Status:    delivery.StatusPending,
			ChangedBy: &d.CustomerID,
			Notes:     "Delivery created",
			At:        now,
		})
	})
}

func (r *DeliveryRepository) GetByID(ctx context.Context, id int64) (*delivery.Delivery, error) {
	var d delivery.Delivery
	err := r.db.Get(ctx, &d, selectDeliveries().Where(sq.Eq{"d.id": id}))
	if errors.Is(err, database.ErrNoRows) {
		return nil, delivery.ErrDeliveryNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get delivery %d: %w", id, err)
	}
	return &d, nil
}

func (r *DeliveryRepository) List(ctx context.Context) ([]*delivery.Delivery, error) {
	deliveries := []*delivery.Delivery{}
	err := r.db.Select(ctx, &deliveries, selectDeliveries().OrderBy("d.created_at DESC", "d.id DESC"))
	if err != nil {
		return nil, fmt.Errorf("list deliveries: %w", err)
	}
	return deliveries, nil
}

// UpdateStatus reads the current status, lets check veto the change, then
// writes status, rider and audit row together. The update is guarded on
// the observed status so a concurrent writer cannot be overwritten blindly.
func (r *DeliveryRepository) UpdateStatus(ctx context.Context, id int64, change delivery.StatusChange, check delivery.TransitionCheck) (*delivery.Delivery, error) {
	if change.At.IsZero() {
		change.At = time.Now().UTC()
	}

	err := r.db.WithTx(ctx, func(tx *database.Tx) error {
		var current delivery.Status
		q := sq.Select("status").From("deliveries").Where(sq.Eq{"id": id})
		if lock := tx.Dialect().LockClause(); lock != "" {
			q = q.Suffix(lock)
		}
		err := tx.Get(ctx, &current, q)
		if errors.Is(err, database.ErrNoRows) {
			return delivery.ErrDeliveryNotFound
		}
		if err != nil {
			return fmt.Errorf("read delivery status: %w", err)
		}

		if check != nil {
			if err := check(current); err != nil {
				return err
			}
		}

		upd := sq.Update("deliveries").
			Set("status", change.Status).
			Set("updated_at", change.At).
			Where(sq.Eq{"id": id, "status": current})
		if change.RiderID != nil {
			upd = upd.Set("rider_id", *change.RiderID)
		}
		if change.Status == delivery.StatusDelivered {
			upd = upd.Set("actual_delivery_time", change.At)
		}

		res, err := tx.Exec(ctx, upd)
		if err != nil {
			if database.IsForeignKeyViolation(err) {
				return user.ErrUserNotFound
			}
			return fmt.Errorf("update delivery status: %w", err)
		}
		if n, err := res.RowsAffected(); err == nil && n == 0 {
			return delivery.ErrConcurrentUpdate
		}

		return insertLog(ctx, tx, id, &current, change)
	})
	if err != nil {
		return nil, err
	}
	return r.GetByID(ctx, id)
}

func (r *DeliveryRepository) UpdateLocation(ctx context.Context, id int64, lat, lng float64, at time.Time) (*delivery.Delivery, error) {
	if at.IsZero() {
		at = time.Now().UTC()
	}
	res, err := r.db.Exec(ctx, sq.Update("deliveries").
		Set("current_location_lat", lat).
		Set("current_location_lng", lng).
		Set("updated_at", at).
		Where(sq.Eq{"id": id}))
	if err != nil {
		return nil, fmt.Errorf("update delivery location: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return nil, delivery.ErrDeliveryNotFound
	}
	return r.GetByID(ctx, id)
}

func (r *DeliveryRepository) ListLogs(ctx context.Context, id int64) ([]*delivery.LogEntry, error) {
	var exists int
	err := r.db.Get(ctx, &exists, sq.Select("COUNT(*)").From("deliveries").Where(sq.Eq{"id": id}))
	if err != nil {
		return nil, fmt.Errorf("check delivery: %w", err)
	}
	if exists == 0 {
		return nil, delivery.ErrDeliveryNotFound
	}

	logs := []*delivery.LogEntry{}
	err = r.db.Select(ctx, &logs, sq.Select(
		"id", "delivery_id", "old_status", "new_status", "changed_by", "notes", "created_at",
	).
		From("delivery_logs").
		Where(sq.Eq{"delivery_id": id}).
		OrderBy("created_at", "id"))
	if err != nil {
		return nil, fmt.Errorf("list delivery logs: %w", err)
	}
	return logs, nil
}
