package delivery

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	domain "github.com/mugz-josh/Deliverieseasy/internal/domain/delivery"
	apperrors "github.com/mugz-josh/Deliverieseasy/pkg/errors"
	"github.com/mugz-josh/Deliverieseasy/pkg/logger"
)

const (
	addressToBeArranged   = "To be arranged"
	defaultServiceLabel   = "Delivery service"
	packageServiceLabel   = "Package Delivery"
	defaultPackageSummary = "Package delivery"
)

// BookingInput is a quick booking from the landing page form
type BookingInput struct {
	Service      string
	CustomerName string
	Email        string
	Phone        string
}

// PackageInput is a send-package request
type PackageInput struct {
	Sender          string
	Receiver        string
	Email           string
	PickupAddress   string
	DeliveryAddress string
	Weight          *float64
}

// CreateBooking registers the customer if needed and opens a delivery whose
// addresses are settled later.
func (s *Service) CreateBooking(ctx context.Context, in BookingInput) (*domain.Delivery, error) {
	if strings.TrimSpace(in.CustomerName) == "" || strings.TrimSpace(in.Email) == "" {
		return nil, apperrors.Validation("Name and email are required", nil)
	}

	customerID, err := s.FindOrCreateCustomer(ctx, in.CustomerName, in.Email, &in.Phone)
	if err != nil {
		return nil, err
	}

	label := strings.TrimSpace(in.Service)
	if label == "" {
		label = defaultServiceLabel
	}

	d, err := s.CreateDelivery(ctx, CreateDeliveryInput{
		CustomerID:         customerID,
		PickupAddress:      addressToBeArranged,
		DeliveryAddress:    addressToBeArranged,
		PackageDescription: label,
		PaymentMethod:      string(domain.PaymentCash),
	})
	if err != nil {
		return nil, err
	}

	s.notifyAsync(ctx, normalizeEmail(in.Email), strings.TrimSpace(in.CustomerName), label, d.ID)
	return d, nil
}

// SendPackage books a parcel between two addresses and emails a confirmation
func (s *Service) SendPackage(ctx context.Context, in PackageInput) (*domain.Delivery, error) {
	if strings.TrimSpace(in.Sender) == "" || strings.TrimSpace(in.Email) == "" {
		return nil, apperrors.Validation("Email and sender name are required", nil)
	}
	if in.Weight != nil && *in.Weight < 0 {
		return nil, apperrors.Validation("Package weight cannot be negative", nil)
	}

	customerID, err := s.FindOrCreateCustomer(ctx, in.Sender, in.Email, nil)
	if err != nil {
		return nil, err
	}

	pickup := strings.TrimSpace(in.PickupAddress)
	if pickup == "" {
		pickup = addressToBeArranged
	}
	dropoff := strings.TrimSpace(in.DeliveryAddress)
	if dropoff == "" {
		dropoff = addressToBeArranged
	}

	d, err := s.CreateDelivery(ctx, CreateDeliveryInput{
		CustomerID:         customerID,
		PickupAddress:      pickup,
		DeliveryAddress:    dropoff,
		PackageDescription: packageSummary(in.Weight),
		PackageWeight:      positive(in.Weight),
		PaymentMethod:      string(domain.PaymentCash),
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("Package booked",
		logger.DeliveryID(d.ID),
		logger.String("sender", strings.TrimSpace(in.Sender)),
		logger.String("receiver", strings.TrimSpace(in.Receiver)),
	)
	s.notifyAsync(ctx, normalizeEmail(in.Email), strings.TrimSpace(in.Sender), packageServiceLabel, d.ID)
	return d, nil
}

func packageSummary(weight *float64) string {
	if weight == nil || *weight <= 0 {
		return defaultPackageSummary
	}
	return fmt.Sprintf("Package (%skg)", strconv.FormatFloat(*weight, 'f', -1, 64))
}

// positive drops a zero weight, which the form sends when left blank
func positive(v *float64) *float64 {
	if v == nil || *v <= 0 {
		return nil
	}
	return v
}
