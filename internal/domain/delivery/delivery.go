package delivery

import (
	"context"
	"errors"
	"time"
)

// Status represents delivery status
type Status string

const (
	StatusPending   Status = "pending"
	StatusAssigned  Status = "assigned"
	StatusPickedUp  Status = "picked_up"
	StatusInTransit Status = "in_transit"
	StatusDelivered Status = "delivered"
	StatusCancelled Status = "cancelled"
)

// IsValid checks if the status is one of the fixed values
func (s Status) IsValid() bool {
	switch s {
	case StatusPending, StatusAssigned, StatusPickedUp, StatusInTransit, StatusDelivered, StatusCancelled:
		return true
	}
	return false
}

// IsTerminal reports whether no further change is allowed from s
func (s Status) IsTerminal() bool {
	return s == StatusDelivered || s == StatusCancelled
}

// PaymentMethod represents how the customer pays
type PaymentMethod string

const (
	PaymentCash        PaymentMethod = "cash"
	PaymentCard        PaymentMethod = "card"
	PaymentMobileMoney PaymentMethod = "mobile_money"
)

// IsValid checks if the payment method is supported
func (p PaymentMethod) IsValid() bool {
	switch p {
	case PaymentCash, PaymentCard, PaymentMobileMoney:
		return true
	}
	return false
}

// Delivery is one package transport request. The customer and rider name
// and phone fields are filled from joins on read.
type Delivery struct {
	ID                    int64         `json:"id" db:"id"`
	CustomerID            int64         `json:"customer_id" db:"customer_id"`
	RiderID               *int64        `json:"rider_id" db:"rider_id"`
	PickupAddress         string        `json:"pickup_address" db:"pickup_address"`
	DeliveryAddress       string        `json:"delivery_address" db:"delivery_address"`
	PackageDescription    string        `json:"package_description" db:"package_description"`
	PackageWeight         *float64      `json:"package_weight" db:"package_weight"`
	DeliveryFee           *float64      `json:"delivery_fee" db:"delivery_fee"`
	PaymentMethod         PaymentMethod `json:"payment_method" db:"payment_method"`
	Status                Status        `json:"status" db:"status"`
	CurrentLocationLat    *float64      `json:"current_location_lat" db:"current_location_lat"`
	CurrentLocationLng    *float64      `json:"current_location_lng" db:"current_location_lng"`
	EstimatedDeliveryTime *time.Time    `json:"estimated_delivery_time" db:"estimated_delivery_time"`
	ActualDeliveryTime    *time.Time    `json:"actual_delivery_time" db:"actual_delivery_time"`
	CreatedAt             time.Time     `json:"created_at" db:"created_at"`
	UpdatedAt             time.Time     `json:"updated_at" db:"updated_at"`

	CustomerName  *string `json:"customer_name,omitempty" db:"customer_name"`
	CustomerPhone *string `json:"customer_phone,omitempty" db:"customer_phone"`
	RiderName     *string `json:"rider_name,omitempty" db:"rider_name"`
	RiderPhone    *string `json:"rider_phone,omitempty" db:"rider_phone"`
}

// LogEntry is one row of a delivery's audit trail
type LogEntry struct {
	ID         int64     `json:"id" db:"id"`
	DeliveryID int64     `json:"delivery_id" db:"delivery_id"`
	OldStatus  *Status   `json:"old_status" db:"old_status"`
	NewStatus  Status    `json:"new_status" db:"new_status"`
	ChangedBy  *int64    `json:"changed_by" db:"changed_by"`
	Notes      *string   `json:"notes" db:"notes"`
	CreatedAt  time.Time `json:"created_at" db:"created_at"`
}

// StatusChange describes one status update. RiderID, when set, is written
// in the same statement as the status.
type StatusChange struct {
	Status    Status
	RiderID   *int64
	ChangedBy *int64
	Notes     string
	At        time.Time
}

// TransitionCheck vets a change against the status observed inside the
// updating transaction.
type TransitionCheck func(current Status) error

// Repository defines the interface for delivery data access
type Repository interface {
	// Create inserts d as pending and writes the first audit entry
	Create(ctx context.Context, d *Delivery) error

	// GetByID retrieves a delivery with customer and rider details
	GetByID(ctx context.Context, id int64) (*Delivery, error)

	// List returns all deliveries, newest first
	List(ctx context.Context) ([]*Delivery, error)

	// UpdateStatus applies change if check accepts the current status
	UpdateStatus(ctx context.Context, id int64, change StatusChange, check TransitionCheck) (*Delivery, error)

	UpdateLocation(ctx context.Context, id int64, lat, lng float64, at time.Time) (*Delivery, error)

	// ListLogs returns the audit trail, oldest first
	ListLogs(ctx context.Context, id int64) ([]*LogEntry, error)
}

var (
	ErrDeliveryNotFound = errors.New("delivery not found")
	ErrCustomerNotFound = errors.New("customer not found")
	ErrConcurrentUpdate = errors.New("delivery was modified concurrently")
)
