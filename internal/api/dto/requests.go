package dto

import "time"

// CreateDeliveryRequest represents POST /api/deliveries.
// Required fields are checked by the service so the message matches the
// other validation failures.
type CreateDeliveryRequest struct {
	CustomerID            int64      `json:"customer_id"`
	PickupAddress         string     `json:"pickup_address"`
	DeliveryAddress       string     `json:"delivery_address"`
	PackageDescription    string     `json:"package_description"`
	PackageWeight         *float64   `json:"package_weight"`
	DeliveryFee           *float64   `json:"delivery_fee"`
	PaymentMethod         string     `json:"payment_method"`
	EstimatedDeliveryTime *time.Time `json:"estimated_delivery_time"`
}

// UpdateStatusRequest represents PUT /api/deliveries/:id/status
type UpdateStatusRequest struct {
	Status  string `json:"status"`
	RiderID *int64 `json:"rider_id"`
}

// UpdateLocationRequest represents PUT /api/deliveries/:id/location
type UpdateLocationRequest struct {
	Latitude  *float64 `json:"latitude"`
	Longitude *float64 `json:"longitude"`
}

// CreateUserRequest represents POST /api/users
type CreateUserRequest struct {
	Name     string `json:"name" binding:"max=255"`
	Email    string `json:"email" binding:"max=255"`
	Phone    string `json:"phone" binding:"max=50"`
	Password string `json:"password" binding:"omitempty,max=72"` // bcrypt input limit
	Role     string `json:"role"`
}

// UpdateRoleRequest represents PUT /api/users/:id/role
type UpdateRoleRequest struct {
	Role string `json:"role"`
}

// BookingRequest represents POST /api/bookings
type BookingRequest struct {
	Service      string `json:"service"`
	CustomerName string `json:"customer_name"`
	Email        string `json:"email"`
	Phone        string `json:"phone"`
}

// SendPackageRequest represents POST /api/send-package
type SendPackageRequest struct {
	Sender          string   `json:"sender"`
	Receiver        string   `json:"receiver"`
	Email           string   `json:"email"`
	PickupAddress   string   `json:"pickupAddress"`
	DeliveryAddress string   `json:"deliveryAddress"`
	Weight          *float64 `json:"weight"`
}

// DeletedUserResponse echoes the removed user
type DeletedUserResponse struct {
	ID    int64  `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
}

// HealthResponse is returned by GET /health
type HealthResponse struct {
	Status      string    `json:"status"`
	Timestamp   time.Time `json:"timestamp"`
	Uptime      float64   `json:"uptime"`
	Database    string    `json:"database"`
	Connections int       `json:"websocket_connections"`
}
