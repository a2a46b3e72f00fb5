package delivery

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	domain "github.com/mugz-josh/Deliverieseasy/internal/domain/delivery"
	"github.com/mugz-josh/Deliverieseasy/internal/domain/user"
	apperrors "github.com/mugz-josh/Deliverieseasy/pkg/errors"
	"github.com/mugz-josh/Deliverieseasy/pkg/logger"
)

// CreateDeliveryInput carries the fields of a new delivery
type CreateDeliveryInput struct {
	CustomerID            int64
	PickupAddress         string
	DeliveryAddress       string
	PackageDescription    string
	PackageWeight         *float64
	DeliveryFee           *float64
	PaymentMethod         string
	EstimatedDeliveryTime *time.Time
}

// CreateDelivery validates input and stores a pending delivery
func (s *Service) CreateDelivery(ctx context.Context, in CreateDeliveryInput) (*domain.Delivery, error) {
	pickup := strings.TrimSpace(in.PickupAddress)
	dropoff := strings.TrimSpace(in.DeliveryAddress)
	description := strings.TrimSpace(in.PackageDescription)
	if in.CustomerID <= 0 || pickup == "" || dropoff == "" || description == "" {
		return nil, apperrors.Validation("Missing required fields", nil)
	}

	method := domain.PaymentMethod(in.PaymentMethod)
	if method == "" {
		method = domain.PaymentCash
	}
	if !method.IsValid() {
		return nil, apperrors.Validation("Invalid payment method", nil)
	}
	if in.PackageWeight != nil && *in.PackageWeight < 0 {
		return nil, apperrors.Validation("Package weight cannot be negative", nil)
	}
	if in.DeliveryFee != nil && *in.DeliveryFee < 0 {
		return nil, apperrors.Validation("Delivery fee cannot be negative", nil)
	}

	d := &domain.Delivery{
		CustomerID:            in.CustomerID,
		PickupAddress:         pickup,
		DeliveryAddress:       dropoff,
		PackageDescription:    description,
		PackageWeight:         in.PackageWeight,
		DeliveryFee:           in.DeliveryFee,
		PaymentMethod:         method,
		EstimatedDeliveryTime: in.EstimatedDeliveryTime,
	}
	if err := s.deliveries.Create(ctx, d); err != nil {
		return nil, mapError(err)
	}

	created, err := s.deliveries.GetByID(ctx, d.ID)
	if err != nil {
		return nil, mapError(err)
	}

	s.logger.Info("Delivery created",
		logger.DeliveryID(created.ID),
		logger.Int64("customer_id", created.CustomerID),
		logger.String("payment_method", string(created.PaymentMethod)),
	)
	if s.recorder != nil {
		s.recorder.RecordDeliveryCreated(created.ID, string(created.PaymentMethod))
	}
	s.publish(EventDeliveryCreated, created)

	return created, nil
}

// GetDelivery returns one delivery with customer and rider details
func (s *Service) GetDelivery(ctx context.Context, id int64) (*domain.Delivery, error) {
	d, err := s.deliveries.GetByID(ctx, id)
	if err != nil {
		return nil, mapError(err)
	}
	return d, nil
}

// ListDeliveries returns every delivery, newest first
func (s *Service) ListDeliveries(ctx context.Context) ([]*domain.Delivery, error) {
	list, err := s.deliveries.List(ctx)
	if err != nil {
		return nil, mapError(err)
	}
	return list, nil
}

// UpdateStatus moves a delivery to status, optionally assigning a rider in
// the same write.
func (s *Service) UpdateStatus(ctx context.Context, id int64, status string, riderID *int64) (*domain.Delivery, error) {
	next := domain.Status(status)
	if !next.IsValid() {
		return nil, apperrors.Validation("Invalid status", nil)
	}

	notes := fmt.Sprintf("Status changed to %s", next)
	if riderID != nil {
		rider, err := s.users.GetByID(ctx, *riderID)
		if errors.Is(err, user.ErrUserNotFound) {
			return nil, apperrors.Validation("Rider not found", err)
		}
		if err != nil {
			return nil, mapError(err)
		}
		if rider.Role != user.RoleRider {
			return nil, apperrors.Validation("Assigned user is not a rider", nil)
		}
		notes = fmt.Sprintf("Status changed to %s, rider %d assigned", next, rider.ID)
	}

	var previous domain.Status
	check := func(current domain.Status) error {
		previous = current
		if !s.config.StrictTransitions {
			return nil
		}
		return domain.CanTransition(current, next)
	}

	updated, err := s.deliveries.UpdateStatus(ctx, id, domain.StatusChange{
		Status:  next,
		RiderID: riderID,
		Notes:   notes,
		At:      time.Now().UTC(),
	}, check)
	if err != nil {
		return nil, mapError(err)
	}

	s.logger.Info("Delivery status updated",
		logger.DeliveryID(id),
		logger.String("from", string(previous)),
		logger.String("to", string(next)),
	)
	if s.recorder != nil {
		s.recorder.RecordStatusChange(id, string(previous), string(next))
	}
	s.publish(EventStatusUpdated, updated)

	return updated, nil
}

// UpdateLocation records the current position of a delivery
func (s *Service) UpdateLocation(ctx context.Context, id int64, lat, lng *float64) (*domain.Delivery, error) {
	if lat == nil || lng == nil {
		return nil, apperrors.Validation("Latitude and longitude are required", nil)
	}
	if !validCoordinates(*lat, *lng) {
		return nil, apperrors.Validation("Latitude must be within [-90, 90] and longitude within [-180, 180]", nil)
	}

	updated, err := s.deliveries.UpdateLocation(ctx, id, *lat, *lng, time.Now().UTC())
	if err != nil {
		return nil, mapError(err)
	}

	if s.recorder != nil {
		s.recorder.RecordLocationUpdate()
	}
	s.publish(EventLocationUpdated, updated)

	return updated, nil
}

// ListDeliveryLogs returns the audit trail of a delivery, oldest first
func (s *Service) ListDeliveryLogs(ctx context.Context, id int64) ([]*domain.LogEntry, error) {
	logs, err := s.deliveries.ListLogs(ctx, id)
	if err != nil {
		return nil, mapError(err)
	}
	return logs, nil
}
