package notification

import (
	"context"
)

// Result reports the outcome of one confirmation email
type Result struct {
	Success   bool   `json:"success"`
	MessageID string `json:"messageId,omitempty"`
	Error     string `json:"error,omitempty"`
}

// Notifier sends booking confirmations. Implementations never fail the
// caller; problems are reported in the Result.
type Notifier interface {
	SendBookingConfirmation(ctx context.Context, email, customerName, service string, bookingID int64) Result
}

// NopNotifier is used when no mail transport is configured
type NopNotifier struct{}

func (NopNotifier) SendBookingConfirmation(context.Context, string, string, string, int64) Result {
	return Result{Success: false, Error: ErrNotConfigured.Error()}
}
